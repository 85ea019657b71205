package notes

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, n *Note) error
	GetByID(ctx context.Context, id uuid.UUID) (*Note, error)
	ListByClient(ctx context.Context, clientID uuid.UUID) ([]*Note, error)
	ListUnlinkedByClient(ctx context.Context, clientID uuid.UUID) ([]*Note, error)

	// SetAppointment atomically updates the note's appointment reference.
	// Passing nil clears it. The single UPDATE either fully applies or not
	// at all; a concurrent reader never sees a partial write.
	SetAppointment(ctx context.Context, id uuid.UUID, appointmentID *uuid.UUID) error

	// FindByAppointment returns the note linked to the appointment, or
	// apperr.ErrNotFound when none is.
	FindByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Note, error)

	// CountUnlinkedOlderThan counts unlinked notes in the practice created
	// before cutoff. The reconciler uses this for review recommendations.
	CountUnlinkedOlderThan(ctx context.Context, practiceID uuid.UUID, cutoff time.Time) (int, error)

	// Document items
	CreateDocument(ctx context.Context, d *DocumentItem) error
	GetDocument(ctx context.Context, id uuid.UUID) (*DocumentItem, error)
	ListPendingDocuments(ctx context.Context, practiceID uuid.UUID) ([]*DocumentItem, error)
	UpdateDocument(ctx context.Context, d *DocumentItem) error

	// Promote creates the note and marks the document matched in a single
	// transaction.
	Promote(ctx context.Context, d *DocumentItem, n *Note) error
}
