package service

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/medflow-notes/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medflow-notes/internal/domain/visit"
	"github.com/dmehra2102/prod-golang-projects/medflow-notes/pkg/metrics"
)

func testMetrics() *metrics.Collector {
	return metrics.NewCollector("test", prometheus.NewRegistry())
}

func rawVisit(t *testing.T, payload string) visit.RawVisit {
	t.Helper()
	var v visit.RawVisit
	require.NoError(t, json.Unmarshal([]byte(payload), &v))
	return v
}

// fakeStore is an in-memory visit store with call counters.
type fakeStore struct {
	mu       sync.Mutex
	patients []visit.PatientSummary
	visits   map[string][]visit.RawVisit

	listPatientsErr error
	listVisitsErr   map[string]error
	updateFn        func(patientName, visitID string, cmd *visit.UpdateVisitCommand) error

	listPatientsCalls atomic.Int32
	listVisitsCalls   atomic.Int32
	updateCalls       atomic.Int32
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		visits:        map[string][]visit.RawVisit{},
		listVisitsErr: map[string]error{},
	}
}

func (f *fakeStore) addVisit(patient string, v visit.RawVisit) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.visits[patient]; !ok {
		f.patients = append(f.patients, visit.PatientSummary{PatientName: patient})
	}
	f.visits[patient] = append(f.visits[patient], v)
}

func (f *fakeStore) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patients = nil
	f.visits = map[string][]visit.RawVisit{}
}

func (f *fakeStore) ListPatients(context.Context) ([]visit.PatientSummary, error) {
	f.listPatientsCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listPatientsErr != nil {
		return nil, f.listPatientsErr
	}
	out := make([]visit.PatientSummary, len(f.patients))
	copy(out, f.patients)
	return out, nil
}

func (f *fakeStore) ListVisits(_ context.Context, patientName string) ([]visit.RawVisit, error) {
	f.listVisitsCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.listVisitsErr[patientName]; err != nil {
		return nil, err
	}
	out := make([]visit.RawVisit, len(f.visits[patientName]))
	copy(out, f.visits[patientName])
	return out, nil
}

func (f *fakeStore) UpdateVisit(_ context.Context, patientName, visitID string, cmd *visit.UpdateVisitCommand) error {
	f.updateCalls.Add(1)
	if f.updateFn != nil {
		return f.updateFn(patientName, visitID, cmd)
	}
	return nil
}

// mockStore is a testify mock of visit.Store.
type mockStore struct {
	mock.Mock
}

func (m *mockStore) ListPatients(ctx context.Context) ([]visit.PatientSummary, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.([]visit.PatientSummary), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) ListVisits(ctx context.Context, patientName string) ([]visit.RawVisit, error) {
	args := m.Called(ctx, patientName)
	if v := args.Get(0); v != nil {
		return v.([]visit.RawVisit), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) UpdateVisit(ctx context.Context, patientName, visitID string, cmd *visit.UpdateVisitCommand) error {
	args := m.Called(ctx, patientName, visitID, cmd)
	return args.Error(0)
}

// mockPipeline is a testify mock of visit.Pipeline.
type mockPipeline struct {
	mock.Mock
}

func (m *mockPipeline) Transcribe(ctx context.Context, filename, contentType string, audio io.Reader) (*visit.Transcription, error) {
	args := m.Called(ctx, filename, contentType, audio)
	if v := args.Get(0); v != nil {
		return v.(*visit.Transcription), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPipeline) Process(ctx context.Context, req *visit.ProcessRequest) (*visit.ProcessedConsultation, error) {
	args := m.Called(ctx, req)
	if v := args.Get(0); v != nil {
		return v.(*visit.ProcessedConsultation), args.Error(1)
	}
	return nil, args.Error(1)
}

// memRevisions is an in-memory revision repository.
type memRevisions struct {
	mu   sync.Mutex
	revs []domain.NoteRevision
	err  error
}

func (r *memRevisions) Create(_ context.Context, rev *domain.NoteRevision) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.revs = append(r.revs, *rev)
	return nil
}

func (r *memRevisions) ListByNote(_ context.Context, noteID string, limit int) ([]domain.NoteRevision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.NoteRevision{}
	for i := len(r.revs) - 1; i >= 0; i-- {
		if r.revs[i].NoteID == noteID {
			out = append(out, r.revs[i])
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *memRevisions) all() []domain.NoteRevision {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.NoteRevision, len(r.revs))
	copy(out, r.revs)
	return out
}

type testEnv struct {
	store   *fakeStore
	revs    *memRevisions
	journal *JournalService
	svc     *NotesService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	m := testMetrics()
	log := zap.NewNop()
	store := newFakeStore()
	revs := &memRevisions{}
	journal := NewJournalService(revs, 16, m, log)
	t.Cleanup(journal.Shutdown)

	return &testEnv{
		store:   store,
		revs:    revs,
		journal: journal,
		svc:     NewNotesService(store, NewNoteLoader(store, 4, m, log), journal, m, log),
	}
}
