package identity

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, c *Client) error
	GetByID(ctx context.Context, id uuid.UUID) (*Client, error)
	Update(ctx context.Context, c *Client) error
	ListByPractice(ctx context.Context, practiceID uuid.UUID, limit, offset int) ([]*Client, int, error)
	ListActiveByPractice(ctx context.Context, practiceID uuid.UUID) ([]*Client, error)
}
