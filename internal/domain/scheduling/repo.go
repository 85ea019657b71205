package scheduling

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	ListByClient(ctx context.Context, clientID uuid.UUID) ([]*Appointment, error)
	ListByPractice(ctx context.Context, practiceID uuid.UUID, limit, offset int) ([]*Appointment, int, error)
}
