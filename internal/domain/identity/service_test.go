package identity

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/jonathanprocter/practice-intelligently-sub006/internal/apperr"
)

type mockClientRepo struct {
	clients map[uuid.UUID]*Client
}

func newMockClientRepo() *mockClientRepo {
	return &mockClientRepo{clients: make(map[uuid.UUID]*Client)}
}

func (m *mockClientRepo) Create(_ context.Context, c *Client) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	m.clients[c.ID] = c
	return nil
}

func (m *mockClientRepo) GetByID(_ context.Context, id uuid.UUID) (*Client, error) {
	c, ok := m.clients[id]
	if !ok {
		return nil, fmt.Errorf("client: %w", apperr.ErrNotFound)
	}
	return c, nil
}

func (m *mockClientRepo) Update(_ context.Context, c *Client) error {
	if _, ok := m.clients[c.ID]; !ok {
		return fmt.Errorf("client: %w", apperr.ErrNotFound)
	}
	m.clients[c.ID] = c
	return nil
}

func (m *mockClientRepo) ListByPractice(_ context.Context, practiceID uuid.UUID, limit, offset int) ([]*Client, int, error) {
	var result []*Client
	for _, c := range m.clients {
		if c.PracticeID == practiceID {
			result = append(result, c)
		}
	}
	return result, len(result), nil
}

func (m *mockClientRepo) ListActiveByPractice(_ context.Context, practiceID uuid.UUID) ([]*Client, error) {
	var result []*Client
	for _, c := range m.clients {
		if c.PracticeID == practiceID && c.Status == "active" {
			result = append(result, c)
		}
	}
	return result, nil
}

func TestCreateClient_RequiresNames(t *testing.T) {
	svc := NewService(newMockClientRepo())
	err := svc.CreateClient(context.Background(), &Client{PracticeID: uuid.New()})
	if err == nil {
		t.Fatal("expected error for missing names")
	}
}

func TestCreateClient_DefaultsToActive(t *testing.T) {
	svc := NewService(newMockClientRepo())
	c := &Client{PracticeID: uuid.New(), FirstName: "John", LastName: "Best"}
	if err := svc.CreateClient(context.Background(), c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Status != "active" {
		t.Errorf("expected default status active, got %s", c.Status)
	}
}

func TestCreateClient_RejectsInvalidStatus(t *testing.T) {
	svc := NewService(newMockClientRepo())
	c := &Client{PracticeID: uuid.New(), FirstName: "A", LastName: "B", Status: "deleted"}
	if err := svc.CreateClient(context.Background(), c); err == nil {
		t.Fatal("expected error for invalid status")
	}
}

func TestListActiveClients_FiltersInactive(t *testing.T) {
	repo := newMockClientRepo()
	svc := NewService(repo)
	practiceID := uuid.New()

	for _, status := range []string{"active", "inactive", "active"} {
		repo.Create(context.Background(), &Client{
			PracticeID: practiceID, FirstName: "X", LastName: "Y", Status: status,
		})
	}

	active, err := svc.ListActiveClients(context.Background(), practiceID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(active) != 2 {
		t.Errorf("expected 2 active clients, got %d", len(active))
	}
}

func TestFullName(t *testing.T) {
	c := &Client{FirstName: "John", LastName: "Best"}
	if c.FullName() != "John Best" {
		t.Errorf("unexpected full name: %q", c.FullName())
	}
}
