package service

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/medflow-notes/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medflow-notes/internal/domain/note"
	"github.com/dmehra2102/prod-golang-projects/medflow-notes/internal/domain/visit"
	"github.com/dmehra2102/prod-golang-projects/medflow-notes/pkg/metrics"
)

// EditState is the view of the editor handed to the UI.
type EditState struct {
	Phase   note.Phase   `json:"phase"`
	Draft   *note.Draft  `json:"draft,omitempty"`
	Changes []note.Field `json:"changes,omitempty"`
}

// NotesService owns the note collection and the single open draft.
//
// The mutex guards notes and editor only; it is released before any call to
// the store so a slow commit never blocks reads or a reload.
type NotesService struct {
	store   visit.Store
	loader  *NoteLoader
	journal *JournalService
	metrics *metrics.Collector
	log     *zap.Logger

	mu     sync.Mutex
	notes  *note.Collection
	editor *note.Editor
}

func NewNotesService(store visit.Store, loader *NoteLoader, journal *JournalService, m *metrics.Collector, log *zap.Logger) *NotesService {
	return &NotesService{
		store:   store,
		loader:  loader,
		journal: journal,
		metrics: m,
		log:     log,
		notes:   note.NewCollection(nil),
		editor:  note.NewEditor(),
	}
}

// Reload rebuilds the collection from the store. On failure the current
// collection is kept. An open draft survives a reload.
func (s *NotesService) Reload(ctx context.Context) ([]note.Note, error) {
	notes, err := s.loader.Load(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = note.NewCollection(notes)
	s.metrics.NotesLoaded.Set(float64(s.notes.Len()))
	return s.notes.All(), nil
}

// List returns the notes whose patient name or MRN matches query.
func (s *NotesService) List(query string) []note.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notes.Search(query)
}

func (s *NotesService) Get(id string) (note.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notes.Find(id)
	if !ok {
		return note.Note{}, note.ErrNoteNotFound
	}
	return n, nil
}

func (s *NotesService) BeginEdit(id string) (EditState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notes.Find(id)
	if !ok {
		return EditState{}, note.ErrNoteNotFound
	}
	if _, err := s.editor.Begin(n); err != nil {
		return EditState{}, err
	}
	s.log.Debug("edit started", zap.String("note_id", id))
	return s.editState(), nil
}

func (s *NotesService) UpdateDraft(field note.Field, value string) (EditState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.editor.Update(field, value); err != nil {
		if errors.Is(err, note.ErrUnknownField) || errors.Is(err, note.ErrImmutableField) {
			return EditState{}, &ValidationError{Fields: []string{err.Error()}}
		}
		return EditState{}, err
	}
	return s.editState(), nil
}

func (s *NotesService) CancelEdit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editor.Cancel()
}

func (s *NotesService) EditState() EditState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editState()
}

func (s *NotesService) editState() EditState {
	st := EditState{Phase: s.editor.State().Phase()}
	switch v := s.editor.State().(type) {
	case note.Editing:
		d := v.Draft
		st.Draft = &d
		st.Changes = d.Changes(v.Original)
	case note.Saving:
		d := v.Draft
		st.Draft = &d
		st.Changes = d.Changes(v.Original)
	}
	return st
}

// Commit writes the open draft back to the store.
//
// The PUT is addressed by the draft's PatientKey, the patient-index name the
// note was loaded under, not the editable display name.
// A draft without a visit ID fails with KindMissingVisitID and no store call.
// A store failure returns KindCommit and leaves the draft open for a retry.
// On success the draft replaces the collection entry with the same ID; if a
// reload has since replaced the collection and the ID is gone, the list is
// left as is.
func (s *NotesService) Commit(ctx context.Context, requestID string) (note.Note, error) {
	s.mu.Lock()
	draft, original, err := s.editor.StartSave()
	s.mu.Unlock()
	if err != nil {
		if errors.Is(err, note.ErrMissingVisitID) {
			s.metrics.CommitsTotal.WithLabelValues(string(KindMissingVisitID)).Inc()
			return note.Note{}, newFailure(KindMissingVisitID, err)
		}
		return note.Note{}, err
	}

	err = s.store.UpdateVisit(ctx, draft.PatientKey, draft.VisitID, UpdateCommand(draft))

	s.mu.Lock()
	if err != nil {
		if ferr := s.editor.FailSave(); ferr != nil {
			s.log.Error("editor out of sync after failed commit", zap.Error(ferr))
		}
		s.mu.Unlock()
		s.metrics.CommitsTotal.WithLabelValues(string(KindCommit)).Inc()
		s.log.Warn("commit failed",
			zap.String("note_id", draft.ID),
			zap.String("visit_id", draft.VisitID),
			zap.Error(err),
		)
		return note.Note{}, newFailure(KindCommit, err)
	}

	committed, err := s.editor.CompleteSave()
	if err != nil {
		s.mu.Unlock()
		return note.Note{}, err
	}
	replaced := s.notes.Replace(committed.Note)
	s.mu.Unlock()

	s.metrics.CommitsTotal.WithLabelValues("success").Inc()
	if !replaced {
		s.log.Info("committed note is no longer in the collection",
			zap.String("note_id", committed.ID),
		)
	}
	s.journal.RecordAsync(RevisionEntry{
		Original:  original,
		Committed: committed,
		RequestID: requestID,
	})
	return committed.Note.Clone(), nil
}

// UpdateCommand builds the partial update for a draft. Demographics that are
// absent are left out of the body.
func UpdateCommand(d note.Draft) *visit.UpdateVisitCommand {
	return &visit.UpdateVisitCommand{
		SOAPNote: visit.SOAPUpdate{
			Subjective: d.Subjective,
			Objective:  d.Objective,
			Assessment: d.Assessment,
			Plan:       d.Plan,
		},
		PatientData: visit.PatientUpdate{
			PatientName:    d.PatientName,
			ChiefComplaint: d.ChiefComplaint,
			Age:            visit.AgeValue(d.Demographics.Age),
			Gender:         visit.StringValue(d.Demographics.Gender),
			Occupation:     visit.StringValue(d.Demographics.Occupation),
		},
	}
}

func (s *NotesService) Patients(ctx context.Context) ([]visit.PatientSummary, error) {
	patients, err := s.store.ListPatients(ctx)
	if err != nil {
		return nil, newFailure(KindLoad, err)
	}
	return patients, nil
}

// PatientNotes loads one patient's notes without touching the collection.
func (s *NotesService) PatientNotes(ctx context.Context, patientName string) ([]note.Note, error) {
	return s.loader.PatientNotes(ctx, patientName)
}

// History returns the journal entries of one note, newest first.
func (s *NotesService) History(ctx context.Context, id string, limit int) ([]domain.NoteRevision, error) {
	if _, err := s.Get(id); err != nil {
		return nil, err
	}
	return s.journal.History(ctx, id, limit)
}
