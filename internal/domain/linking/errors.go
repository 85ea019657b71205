package linking

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Sentinel errors the handlers and callers branch on with errors.Is. The
// typed errors below wrap these so callers can also pull out the ids
// involved with errors.As.
var (
	// ErrSubjectMismatch marks an attempt to link a note to an appointment
	// belonging to a different client. Never retried.
	ErrSubjectMismatch = errors.New("subject mismatch")

	// ErrConflict marks a link target that is already taken. The note-side
	// variant is recoverable by passing override.
	ErrConflict = errors.New("link conflict")

	// ErrNotFound marks an unknown note or appointment id.
	ErrNotFound = errors.New("not found")

	// ErrExternalService marks a collaborator failure (similarity service,
	// appointment creation). Scoring treats it as a missing factor.
	ErrExternalService = errors.New("external service failure")

	// ErrExpired marks an undo attempt outside the journal window, or with
	// an empty journal.
	ErrExpired = errors.New("undo window expired")
)

// SubjectMismatchError reports a cross-subject link attempt.
type SubjectMismatchError struct {
	NoteID        uuid.UUID
	AppointmentID uuid.UUID
	NoteClient    uuid.UUID
	ApptClient    uuid.UUID
}

func (e *SubjectMismatchError) Error() string {
	return fmt.Sprintf("note %s belongs to client %s but appointment %s belongs to client %s",
		e.NoteID, e.NoteClient, e.AppointmentID, e.ApptClient)
}

func (e *SubjectMismatchError) Unwrap() error { return ErrSubjectMismatch }

// ConflictError reports that either the note or the target appointment is
// already linked elsewhere.
type ConflictError struct {
	NoteID        uuid.UUID
	AppointmentID uuid.UUID
	Reason        string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("cannot link note %s to appointment %s: %s", e.NoteID, e.AppointmentID, e.Reason)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// NotFoundError reports an unknown record id.
type NotFoundError struct {
	Kind string
	ID   uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ExternalServiceError reports a collaborator failure with its cause.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return ErrExternalService }
