package service

import (
	"errors"
	"strings"
)

var ErrBlankTranscription = errors.New("transcription is empty")

type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, "; ")
}

// ErrorKind classifies a Failure for the view layer.
type ErrorKind string

const (
	KindLoad           ErrorKind = "load_failure"
	KindMissingVisitID ErrorKind = "missing_visit_id"
	KindCommit         ErrorKind = "commit_failure"
)

// Failure is a user-facing error. Message is what the clinician sees; Err is
// the underlying cause and is reachable with errors.Is and errors.As.
type Failure struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (f *Failure) Error() string {
	return f.Message
}

func (f *Failure) Unwrap() error {
	return f.Err
}

func newFailure(kind ErrorKind, err error) *Failure {
	return &Failure{Kind: kind, Message: err.Error(), Err: err}
}
