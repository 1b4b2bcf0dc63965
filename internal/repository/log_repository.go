package repository

import (
	"context"

	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/medflow-notes/internal/domain"
)

// LogRepository is the journal used when no database is configured. It writes
// revision metadata to the log and keeps nothing, so history is always empty.
// Changed values are never logged.
type LogRepository struct {
	log *zap.Logger
}

func NewLogRepository(log *zap.Logger) *LogRepository {
	return &LogRepository{log: log}
}

func (r *LogRepository) Create(_ context.Context, rev *domain.NoteRevision) error {
	r.log.Info("note revised",
		zap.String("revision_id", rev.ID.String()),
		zap.String("note_id", rev.NoteID),
		zap.String("visit_id", rev.VisitID),
		zap.String("action", string(rev.Action)),
		zap.String("fields", rev.Fields),
		zap.String("request_id", rev.RequestID),
	)
	return nil
}

func (r *LogRepository) ListByNote(context.Context, string, int) ([]domain.NoteRevision, error) {
	return []domain.NoteRevision{}, nil
}
