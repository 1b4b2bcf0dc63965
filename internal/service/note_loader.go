package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dmehra2102/prod-golang-projects/medflow-notes/internal/domain/note"
	"github.com/dmehra2102/prod-golang-projects/medflow-notes/internal/domain/visit"
	"github.com/dmehra2102/prod-golang-projects/medflow-notes/pkg/metrics"
)

// NoteLoader builds the full note list from the visit store.
type NoteLoader struct {
	store       visit.Store
	concurrency int
	metrics     *metrics.Collector
	log         *zap.Logger
}

func NewNoteLoader(store visit.Store, concurrency int, m *metrics.Collector, log *zap.Logger) *NoteLoader {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &NoteLoader{
		store:       store,
		concurrency: concurrency,
		metrics:     m,
		log:         log,
	}
}

// Load fetches the patient index, then every patient's visits, and returns
// all of them as notes, most recent first. Any failure fails the whole load
// with a *Failure of kind KindLoad; no partial list is returned.
func (l *NoteLoader) Load(ctx context.Context) ([]note.Note, error) {
	start := time.Now()
	notes, err := l.load(ctx)
	l.metrics.NoteLoadSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		l.metrics.NoteLoadsTotal.WithLabelValues("failure").Inc()
		l.log.Error("failed to load clinical notes", zap.Error(err))
		return nil, newFailure(KindLoad, err)
	}
	l.metrics.NoteLoadsTotal.WithLabelValues("success").Inc()
	l.log.Info("clinical notes loaded",
		zap.Int("count", len(notes)),
		zap.Duration("duration", time.Since(start)),
	)
	return notes, nil
}

func (l *NoteLoader) load(ctx context.Context) ([]note.Note, error) {
	patients, err := l.store.ListPatients(ctx)
	if err != nil {
		return nil, err
	}

	// One slot per patient keeps the flattened order independent of which
	// fetch finishes first.
	slots := make([][]note.Note, len(patients))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for i, p := range patients {
		g.Go(func() error {
			notes, err := l.normalizePatient(gctx, p.PatientName)
			if err != nil {
				return err
			}
			slots[i] = notes
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, s := range slots {
		total += len(s)
	}
	notes := make([]note.Note, 0, total)
	for _, s := range slots {
		notes = append(notes, s...)
	}

	note.DisambiguateIDs(notes)
	note.SortByDateDesc(notes)
	return notes, nil
}

// PatientNotes returns one patient's visits as notes, most recent first.
func (l *NoteLoader) PatientNotes(ctx context.Context, patientName string) ([]note.Note, error) {
	notes, err := l.normalizePatient(ctx, patientName)
	if err != nil {
		return nil, newFailure(KindLoad, err)
	}
	note.DisambiguateIDs(notes)
	note.SortByDateDesc(notes)
	return notes, nil
}

func (l *NoteLoader) normalizePatient(ctx context.Context, patientName string) ([]note.Note, error) {
	visits, err := l.store.ListVisits(ctx, patientName)
	if err != nil {
		return nil, err
	}
	notes := make([]note.Note, 0, len(visits))
	for i, v := range visits {
		n, err := note.Normalize(v, patientName)
		if err != nil {
			return nil, fmt.Errorf("normalizing visit %d of %q: %w", i, patientName, err)
		}
		notes = append(notes, n)
	}
	return notes, nil
}
