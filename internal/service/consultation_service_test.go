package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/medflow-notes/internal/domain/note"
	"github.com/dmehra2102/prod-golang-projects/medflow-notes/internal/domain/visit"
)

func TestConsultationService_ProcessBuildsPreview(t *testing.T) {
	var out visit.ProcessedConsultation
	require.NoError(t, json.Unmarshal([]byte(`{
		"success": true,
		"transcription": "Doctor: what brings you in?",
		"patient_data": {"personal_info": {"full_name": "Jane Doe", "age": 35}},
		"soap_note": {"subjective": "Headache", "plan": ""}
	}`), &out))

	pipeline := new(mockPipeline)
	pipeline.On("Process", mock.Anything, &visit.ProcessRequest{
		Transcription: "Doctor: what brings you in?",
		AudioFile:     "/tmp/a.webm",
	}).Return(&out, nil)

	svc := NewConsultationService(pipeline, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC) }

	res, err := svc.Process(context.Background(), "Doctor: what brings you in?", "/tmp/a.webm")
	require.NoError(t, err)

	assert.Equal(t, "Jane Doe-2024-03-01T10:00:00Z", res.Preview.ID)
	assert.Equal(t, "JANE-DOE", res.Preview.PatientMRN)
	assert.Equal(t, "35", *res.Preview.Demographics.Age)
	assert.Equal(t, "Headache", res.Preview.Subjective)
	assert.Equal(t, note.NoPlan, res.Preview.Plan)
	assert.Equal(t, "Doctor: what brings you in?", res.Preview.Transcript)
	assert.Same(t, &out, res.Result)
	pipeline.AssertExpectations(t)
}

func TestConsultationService_ProcessWithoutPatientData(t *testing.T) {
	pipeline := new(mockPipeline)
	pipeline.On("Process", mock.Anything, mock.Anything).Return(&visit.ProcessedConsultation{Success: true}, nil)

	res, err := NewConsultationService(pipeline, zap.NewNop()).Process(context.Background(), "hello", "")
	require.NoError(t, err)
	assert.Equal(t, "Unknown", res.Preview.PatientName)
	assert.Equal(t, note.NoSubjective, res.Preview.Subjective)
}

func TestConsultationService_ProcessRejectsBlankTranscription(t *testing.T) {
	pipeline := new(mockPipeline)
	svc := NewConsultationService(pipeline, zap.NewNop())

	_, err := svc.Process(context.Background(), "   ", "")

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	pipeline.AssertNotCalled(t, "Process", mock.Anything, mock.Anything)
}

func TestConsultationService_Transcribe(t *testing.T) {
	audio := strings.NewReader("bytes")
	pipeline := new(mockPipeline)
	pipeline.On("Transcribe", mock.Anything, "recording", "audio/webm", audio).
		Return(&visit.Transcription{Success: true, Transcription: "hi"}, nil).Once()
	pipeline.On("Transcribe", mock.Anything, "visit.mp3", "", mock.Anything).
		Return(nil, errors.New("No audio file provided")).Once()

	svc := NewConsultationService(pipeline, zap.NewNop())

	out, err := svc.Transcribe(context.Background(), "", "audio/webm", audio)
	require.NoError(t, err)
	assert.Equal(t, "hi", out.Transcription)

	_, err = svc.Transcribe(context.Background(), "visit.mp3", "", strings.NewReader(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No audio file provided")
	pipeline.AssertExpectations(t)
}
