package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/medflow-notes/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medflow-notes/internal/domain/note"
	"github.com/dmehra2102/prod-golang-projects/medflow-notes/pkg/metrics"
)

type RevisionRepository interface {
	Create(ctx context.Context, rev *domain.NoteRevision) error
	ListByNote(ctx context.Context, noteID string, limit int) ([]domain.NoteRevision, error)
}

// RevisionEntry describes one successful commit.
type RevisionEntry struct {
	Original  note.Note
	Committed note.Draft
	RequestID string
}

// JournalService records committed edits off the request path.
type JournalService struct {
	repo    RevisionRepository
	metrics *metrics.Collector
	log     *zap.Logger
	entries chan *domain.NoteRevision
	done    chan struct{}

	mu     sync.Mutex
	closed bool
}

const defaultJournalBufferSize = 1_000

func NewJournalService(repo RevisionRepository, bufferSize int, m *metrics.Collector, log *zap.Logger) *JournalService {
	if bufferSize <= 0 {
		bufferSize = defaultJournalBufferSize
	}
	svc := &JournalService{
		repo:    repo,
		metrics: m,
		log:     log,
		entries: make(chan *domain.NoteRevision, bufferSize),
		done:    make(chan struct{}),
	}
	go svc.worker()
	return svc
}

// RecordAsync enqueues a revision for async persistence.
// If the buffer is full or the journal is shut down, the entry is dropped and
// a warning is emitted.
func (s *JournalService) RecordAsync(entry RevisionEntry) {
	fields := entry.Committed.Changes(entry.Original)
	names := make([]string, len(fields))
	changes := make(map[string]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
		changes[string(f)] = entry.Committed.Value(f)
	}
	payload, err := json.Marshal(changes)
	if err != nil {
		s.log.Error("failed to encode revision changes", zap.Error(err))
		return
	}

	rev := &domain.NoteRevision{
		ID:         uuid.New(),
		NoteID:     entry.Committed.ID,
		VisitID:    entry.Committed.VisitID,
		PatientKey: entry.Committed.PatientKey,
		Action:     domain.ActionUpdate,
		Fields:     strings.Join(names, ","),
		Changes:    string(payload),
		RequestID:  entry.RequestID,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		s.metrics.JournalBufferDropped.Inc()
		s.log.Warn("journal shut down, dropping revision",
			zap.String("note_id", rev.NoteID),
			zap.String("visit_id", rev.VisitID),
		)
		return
	}

	select {
	case s.entries <- rev:
	default:
		s.metrics.JournalBufferDropped.Inc()
		s.log.Warn("journal buffer full, dropping revision",
			zap.String("note_id", rev.NoteID),
			zap.String("visit_id", rev.VisitID),
		)
	}
}

// History returns the newest recorded revisions of one note first.
func (s *JournalService) History(ctx context.Context, noteID string, limit int) ([]domain.NoteRevision, error) {
	return s.repo.ListByNote(ctx, noteID, limit)
}

func (s *JournalService) Shutdown() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.entries)
	s.mu.Unlock()

	select {
	case <-s.done:
	case <-time.After(10 * time.Second):
		s.log.Warn("journal shutdown timed out; some revisions may be lost")
	}
}

func (s *JournalService) worker() {
	defer close(s.done)
	for rev := range s.entries {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.repo.Create(ctx, rev); err != nil {
			s.log.Error("failed to persist note revision",
				zap.String("note_id", rev.NoteID),
				zap.Error(err),
			)
		} else {
			s.metrics.JournalEntriesTotal.Inc()
		}
		cancel()
	}
}
