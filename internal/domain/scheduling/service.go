package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

var validStatuses = map[string]bool{
	"scheduled":   true,
	"confirmed":   true,
	"completed":   true,
	"cancelled":   true,
	"no_show":     true,
	"rescheduled": true,
}

var validTypes = map[string]bool{
	"therapy_session": true,
	"intake":          true,
	"consultation":    true,
	"assessment":      true,
	"follow_up":       true,
}

// DefaultSessionLength is used when a created appointment has no end time.
// Standard session lengths in the source data are 45, 50 and 60 minutes.
const DefaultSessionLength = 50 * time.Minute

func (s *Service) CreateAppointment(ctx context.Context, a *Appointment) error {
	if a.ClientID == uuid.Nil {
		return fmt.Errorf("client_id is required")
	}
	if a.TherapistID == uuid.Nil {
		return fmt.Errorf("therapist_id is required")
	}
	if a.StartTime.IsZero() {
		return fmt.Errorf("start_time is required")
	}
	if a.EndTime.IsZero() {
		a.EndTime = a.StartTime.Add(DefaultSessionLength)
	}
	if !a.StartTime.Before(a.EndTime) {
		return fmt.Errorf("start_time must be before end_time")
	}
	if a.Type == "" {
		a.Type = "therapy_session"
	}
	if !validTypes[a.Type] {
		return fmt.Errorf("invalid type: %s", a.Type)
	}
	if a.Status == "" {
		a.Status = "scheduled"
	}
	if !validStatuses[a.Status] {
		return fmt.Errorf("invalid status: %s", a.Status)
	}
	return s.repo.Create(ctx, a)
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, newStatus string) error {
	if !validStatuses[newStatus] {
		return fmt.Errorf("invalid status: %s", newStatus)
	}
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("appointment not found: %w", err)
	}
	a.Status = newStatus
	return s.repo.Update(ctx, a)
}

func (s *Service) ListByClient(ctx context.Context, clientID uuid.UUID) ([]*Appointment, error) {
	return s.repo.ListByClient(ctx, clientID)
}

func (s *Service) ListByPractice(ctx context.Context, practiceID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.repo.ListByPractice(ctx, practiceID, limit, offset)
}
