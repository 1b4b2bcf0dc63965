package visitstore

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/medflow-notes/internal/config"
	"github.com/dmehra2102/prod-golang-projects/medflow-notes/internal/domain/visit"
	"github.com/dmehra2102/prod-golang-projects/medflow-notes/pkg/metrics"
)

func newTestClient(t *testing.T, h http.Handler, breaker config.BreakerConfig) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	return New(config.StoreConfig{
		BaseURL:   srv.URL + "/api/",
		Timeout:   5 * time.Second,
		UserAgent: "medflow-notes-test",
	}, breaker, metrics.NewCollector("test", prometheus.NewRegistry()), zap.NewNop())
}

func TestClient_ListPatients(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/patients/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "medflow-notes-test", r.Header.Get("User-Agent"))
		_, _ = io.WriteString(w, `{"patients": [
			{"patient_name": "Alice", "total_visits": 1, "first_visit_date": "2024-03-01T10:00:00Z", "last_visit_date": "2024-03-01T10:00:00Z"},
			{"patient_name": "Bob", "visit_count": 2, "first_visit": "2024-01-01T10:00:00", "last_visit": "2024-02-01T10:00:00", "mrn": "MRN-1"}
		]}`)
	})
	c := newTestClient(t, mux, config.BreakerConfig{})

	patients, err := c.ListPatients(context.Background())
	require.NoError(t, err)
	require.Len(t, patients, 2)
	assert.Equal(t, "Alice", patients[0].PatientName)
	assert.Equal(t, 2, patients[1].TotalVisits)
	assert.Equal(t, "2024-02-01T10:00:00", patients[1].LastVisitDate)
}

func TestClient_ListPatientsEmptyBody(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{}`)
	}), config.BreakerConfig{})

	patients, err := c.ListPatients(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, patients)
	assert.Empty(t, patients)
}

func TestClient_ListVisitsEscapesPatientName(t *testing.T) {
	var gotPath string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_, _ = io.WriteString(w, `{"visits": [{"timestamp": "2024-03-01T10:00:00Z", "visit_id": "visit_1"}]}`)
	}), config.BreakerConfig{})

	visits, err := c.ListVisits(context.Background(), "Alice Smith/Jr")
	require.NoError(t, err)

	assert.Equal(t, "/api/patients/Alice%20Smith%2FJr/visits/", gotPath)
	require.Len(t, visits, 1)
	assert.Equal(t, "visit_1", visits[0].VisitID.Value)
}

func TestClient_UpdateVisitSendsPartialUpdate(t *testing.T) {
	var (
		gotMethod string
		gotPath   string
		gotBody   map[string]any
	)
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.EscapedPath()
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = io.WriteString(w, `{"success": true, "message": "Visit updated successfully"}`)
	}), config.BreakerConfig{})

	age := "42"
	err := c.UpdateVisit(context.Background(), "Alice Smith", "visit_1", &visit.UpdateVisitCommand{
		SOAPNote: visit.SOAPUpdate{Subjective: "s", Objective: "o", Assessment: "a", Plan: "Follow up in 2 weeks"},
		PatientData: visit.PatientUpdate{
			PatientName:    "Alice Smith",
			ChiefComplaint: "cough",
			Age:            visit.AgeValue(&age),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/api/patients/Alice%20Smith/visits/visit_1/", gotPath)
	soap := gotBody["soap_note"].(map[string]any)
	assert.Equal(t, "Follow up in 2 weeks", soap["plan"])
	pd := gotBody["patient_data"].(map[string]any)
	assert.Equal(t, float64(42), pd["age"])
	assert.NotContains(t, pd, "gender")
	assert.NotContains(t, pd, "occupation")
}

func TestClient_UpdateVisitRejectedBySuccessFlag(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success": false, "error": "Visit not found"}`)
	}), config.BreakerConfig{})

	err := c.UpdateVisit(context.Background(), "Alice", "visit_1", &visit.UpdateVisitCommand{})
	require.Error(t, err)
	assert.Equal(t, "Visit not found", err.Error())
}

func TestClient_ErrorMessages(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{name: "backend error field", status: http.StatusNotFound, body: `{"error": "Patient not found"}`, want: "Patient not found"},
		{name: "no body", status: http.StatusInternalServerError, body: ``, want: "HTTP error! status: 500"},
		{name: "html body", status: http.StatusBadGateway, body: `<html>bad gateway</html>`, want: "HTTP error! status: 502"},
		{name: "empty error field", status: http.StatusBadRequest, body: `{"error": ""}`, want: "HTTP error! status: 400"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}), config.BreakerConfig{})

			_, err := c.ListPatients(context.Background())
			require.Error(t, err)

			var se *Error
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.status, se.StatusCode)
			assert.Equal(t, tt.want, err.Error())
		})
	}
}

func TestClient_GetPatient(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/patients/Bob/", r.URL.Path)
		_, _ = io.WriteString(w, `{"patient": {"patient_name": "Bob", "total_visits": 3}}`)
	}), config.BreakerConfig{})

	p, err := c.GetPatient(context.Background(), "Bob")
	require.NoError(t, err)
	assert.Equal(t, 3, p.TotalVisits)
}

func TestClient_TranscribeUploadsAudioField(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/transcribe/", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		f, hdr, err := r.FormFile("audio")
		require.NoError(t, err)
		defer f.Close()
		b, _ := io.ReadAll(f)

		assert.Equal(t, "recording.webm", hdr.Filename)
		assert.Equal(t, "audio/webm", hdr.Header.Get("Content-Type"))
		assert.Equal(t, "RIFF-bytes", string(b))
		_, _ = io.WriteString(w, `{"success": true, "transcription": "hello", "audio_file": "/tmp/recording.webm"}`)
	}), config.BreakerConfig{})

	out, err := c.Transcribe(context.Background(), "recording", "", strings.NewReader("RIFF-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "hello", out.Transcription)
	assert.Equal(t, "/tmp/recording.webm", out.AudioFile)
}

func TestClient_Process(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req visit.ProcessRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Doctor: hi", req.Transcription)
		_, _ = io.WriteString(w, `{"success": true, "soap_note": {"plan": "rest"}, "clinical_data": {"vitals": {}}}`)
	}), config.BreakerConfig{})

	out, err := c.Process(context.Background(), &visit.ProcessRequest{Transcription: "Doctor: hi"})
	require.NoError(t, err)
	require.NotNil(t, out.SOAPNote)
	assert.Equal(t, "rest", out.SOAPNote.Plan.Value)
	assert.JSONEq(t, `{"vitals": {}}`, string(out.ClinicalData))
}

func TestClient_BreakerOpensOnServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}), config.BreakerConfig{
		Enabled:             true,
		MaxHalfOpenRequests: 1,
		Interval:            time.Minute,
		OpenTimeout:         time.Minute,
		ConsecutiveFailures: 2,
	})

	for range 2 {
		_, err := c.ListPatients(context.Background())
		require.Error(t, err)
	}
	_, err := c.ListPatients(context.Background())

	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_BreakerIgnoresClientErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}), config.BreakerConfig{
		Enabled:             true,
		MaxHalfOpenRequests: 1,
		Interval:            time.Minute,
		OpenTimeout:         time.Minute,
		ConsecutiveFailures: 1,
	})

	for range 3 {
		_, err := c.GetPatient(context.Background(), "ghost")
		var se *Error
		require.ErrorAs(t, err, &se)
	}
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_BreakerIgnoresCallerCancellation(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
			return
		case <-time.After(200 * time.Millisecond):
		}
		_, _ = io.WriteString(w, `{"patients": []}`)
	}), config.BreakerConfig{
		Enabled:             true,
		MaxHalfOpenRequests: 1,
		Interval:            time.Minute,
		OpenTimeout:         time.Minute,
		ConsecutiveFailures: 2,
	})

	for range 2 {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		_, err := c.ListPatients(ctx)
		cancel()
		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.NotErrorIs(t, err, ErrUnavailable)
	}

	patients, err := c.ListPatients(context.Background())
	require.NoError(t, err)
	assert.Empty(t, patients)
}
