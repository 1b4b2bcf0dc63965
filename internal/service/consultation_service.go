package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/medflow-notes/internal/domain/note"
	"github.com/dmehra2102/prod-golang-projects/medflow-notes/internal/domain/visit"
)

const unknownPatient = "Unknown"

// ProcessedConsultation pairs the raw pipeline output with a display-ready
// preview note.
type ProcessedConsultation struct {
	Preview note.Note                    `json:"preview"`
	Result  *visit.ProcessedConsultation `json:"result"`
}

// ConsultationService forwards audio and transcriptions to the store's AI
// pipeline.
type ConsultationService struct {
	pipeline visit.Pipeline
	log      *zap.Logger
	now      func() time.Time
}

func NewConsultationService(pipeline visit.Pipeline, log *zap.Logger) *ConsultationService {
	return &ConsultationService{
		pipeline: pipeline,
		log:      log,
		now:      time.Now,
	}
}

func (s *ConsultationService) Transcribe(ctx context.Context, filename, contentType string, audio io.Reader) (*visit.Transcription, error) {
	if strings.TrimSpace(filename) == "" {
		filename = "recording"
	}
	out, err := s.pipeline.Transcribe(ctx, filename, contentType, audio)
	if err != nil {
		return nil, fmt.Errorf("transcribing audio: %w", err)
	}
	s.log.Info("audio transcribed",
		zap.String("audio_file", out.AudioFile),
		zap.Int("transcription_chars", len(out.Transcription)),
	)
	return out, nil
}

func (s *ConsultationService) Process(ctx context.Context, transcription, audioFile string) (*ProcessedConsultation, error) {
	if strings.TrimSpace(transcription) == "" {
		return nil, &ValidationError{Fields: []string{ErrBlankTranscription.Error()}}
	}

	start := s.now()
	out, err := s.pipeline.Process(ctx, &visit.ProcessRequest{
		Transcription: transcription,
		AudioFile:     audioFile,
	})
	if err != nil {
		return nil, fmt.Errorf("processing consultation: %w", err)
	}

	owner := unknownPatient
	if out.PatientData != nil {
		info := out.PatientData.PersonalInfo
		if info == nil {
			info = &visit.PersonalInfo{}
		}
		owner = out.PatientData.PatientName.Or(info.FullName.Or(unknownPatient))
	}

	preview, err := note.Normalize(visit.RawVisit{
		Timestamp:     start.UTC().Format(time.RFC3339),
		PatientData:   out.PatientData,
		SOAPNote:      out.SOAPNote,
		Transcription: visit.NewText(out.Transcription),
	}, owner)
	if err != nil {
		return nil, fmt.Errorf("building consultation preview: %w", err)
	}

	s.log.Info("consultation processed", zap.Duration("duration", s.now().Sub(start)))
	return &ProcessedConsultation{Preview: preview, Result: out}, nil
}
