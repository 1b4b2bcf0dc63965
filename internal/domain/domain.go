package domain

import (
	"time"

	"github.com/google/uuid"
)

type RevisionAction string

const (
	ActionUpdate RevisionAction = "update"
)

// NoteRevision is one committed edit of a clinical note, kept in the edit
// journal.
type NoteRevision struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	RecordedAt time.Time `gorm:"autoCreateTime;index" json:"recorded_at"`

	// Which note
	NoteID     string `gorm:"column:note_id;type:varchar(255);not null;index" json:"note_id"`
	VisitID    string `gorm:"column:visit_id;type:varchar(100);not null;index" json:"visit_id"`
	PatientKey string `gorm:"column:patient_key;type:varchar(255);not null;index" json:"patient_key"`

	// What
	Action RevisionAction `gorm:"column:action;type:varchar(20);not null" json:"action"`
	// Comma separated list of changed field names
	Fields string `gorm:"column:fields;type:text" json:"fields"`
	// JSON object of the new values of the changed fields
	Changes string `gorm:"column:changes;type:jsonb" json:"changes"`

	RequestID string `gorm:"column:request_id;type:varchar(50);index" json:"request_id,omitempty"`
}

func (NoteRevision) TableName() string {
	return "journal.note_revisions"
}
