package note

import "errors"

var (
	ErrMissingTimestamp  = errors.New("visit has no timestamp")
	ErrMissingVisitID    = errors.New("visit ID not found; this note cannot be updated")
	ErrNoteNotFound      = errors.New("clinical note not found")
	ErrUnknownField      = errors.New("unknown note field")
	ErrImmutableField    = errors.New("note field is read-only")
	ErrEditInProgress    = errors.New("another note is already being edited")
	ErrNoDraft           = errors.New("no note is being edited")
	ErrSaveInProgress    = errors.New("the draft is being saved")
	ErrInvalidTransition = errors.New("invalid edit state transition")
)
