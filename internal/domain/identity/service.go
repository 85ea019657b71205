package identity

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

var validStatuses = map[string]bool{
	"active":   true,
	"inactive": true,
	"archived": true,
}

func (s *Service) CreateClient(ctx context.Context, c *Client) error {
	if c.PracticeID == uuid.Nil {
		return fmt.Errorf("practice_id is required")
	}
	if c.FirstName == "" || c.LastName == "" {
		return fmt.Errorf("first_name and last_name are required")
	}
	if c.Status == "" {
		c.Status = "active"
	}
	if !validStatuses[c.Status] {
		return fmt.Errorf("invalid status: %s", c.Status)
	}
	return s.repo.Create(ctx, c)
}

func (s *Service) GetClient(ctx context.Context, id uuid.UUID) (*Client, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateClient(ctx context.Context, c *Client) error {
	if c.Status != "" && !validStatuses[c.Status] {
		return fmt.Errorf("invalid status: %s", c.Status)
	}
	return s.repo.Update(ctx, c)
}

func (s *Service) ListClients(ctx context.Context, practiceID uuid.UUID, limit, offset int) ([]*Client, int, error) {
	return s.repo.ListByPractice(ctx, practiceID, limit, offset)
}

// ListActiveClients returns every active client in the practice. The batch
// reconciler uses this to enumerate subjects without paging.
func (s *Service) ListActiveClients(ctx context.Context, practiceID uuid.UUID) ([]*Client, error) {
	return s.repo.ListActiveByPractice(ctx, practiceID)
}
