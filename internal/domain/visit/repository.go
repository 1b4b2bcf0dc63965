package visit

import (
	"context"
	"io"
)

// Store is the Remote Visit Store as seen by the note layer.
type Store interface {
	// ListPatients returns the patient index.
	ListPatients(ctx context.Context) ([]PatientSummary, error)

	// ListVisits returns every visit recorded for one patient.
	ListVisits(ctx context.Context, patientName string) ([]RawVisit, error)

	// UpdateVisit writes a partial update back to one visit.
	UpdateVisit(ctx context.Context, patientName, visitID string, cmd *UpdateVisitCommand) error
}

// Pipeline is the transcription and extraction side of the store.
type Pipeline interface {
	Transcribe(ctx context.Context, filename, contentType string, audio io.Reader) (*Transcription, error)
	Process(ctx context.Context, req *ProcessRequest) (*ProcessedConsultation, error)
}
