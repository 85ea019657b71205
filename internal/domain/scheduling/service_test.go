package scheduling

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jonathanprocter/practice-intelligently-sub006/internal/apperr"
)

type mockApptRepo struct {
	appts map[uuid.UUID]*Appointment
}

func newMockApptRepo() *mockApptRepo {
	return &mockApptRepo{appts: make(map[uuid.UUID]*Appointment)}
}

func (m *mockApptRepo) Create(_ context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	m.appts[a.ID] = a
	return nil
}

func (m *mockApptRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := m.appts[id]
	if !ok {
		return nil, fmt.Errorf("appointment: %w", apperr.ErrNotFound)
	}
	return a, nil
}

func (m *mockApptRepo) Update(_ context.Context, a *Appointment) error {
	if _, ok := m.appts[a.ID]; !ok {
		return fmt.Errorf("appointment: %w", apperr.ErrNotFound)
	}
	m.appts[a.ID] = a
	return nil
}

func (m *mockApptRepo) ListByClient(_ context.Context, clientID uuid.UUID) ([]*Appointment, error) {
	var result []*Appointment
	for _, a := range m.appts {
		if a.ClientID == clientID {
			result = append(result, a)
		}
	}
	return result, nil
}

func (m *mockApptRepo) ListByPractice(_ context.Context, _ uuid.UUID, _, _ int) ([]*Appointment, int, error) {
	var result []*Appointment
	for _, a := range m.appts {
		result = append(result, a)
	}
	return result, len(result), nil
}

func validAppointment() *Appointment {
	start := time.Date(2025, 7, 28, 10, 0, 0, 0, time.UTC)
	return &Appointment{
		ClientID:    uuid.New(),
		TherapistID: uuid.New(),
		StartTime:   start,
		EndTime:     start.Add(50 * time.Minute),
	}
}

func TestCreateAppointment_Defaults(t *testing.T) {
	svc := NewService(newMockApptRepo())
	a := validAppointment()
	a.EndTime = time.Time{}
	a.Type = ""
	a.Status = ""

	if err := svc.CreateAppointment(context.Background(), a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.EndTime != a.StartTime.Add(DefaultSessionLength) {
		t.Errorf("expected default 50 minute session, got %v", a.Duration())
	}
	if a.Type != "therapy_session" {
		t.Errorf("expected default type therapy_session, got %s", a.Type)
	}
	if a.Status != "scheduled" {
		t.Errorf("expected default status scheduled, got %s", a.Status)
	}
}

func TestCreateAppointment_RejectsStartAfterEnd(t *testing.T) {
	svc := NewService(newMockApptRepo())
	a := validAppointment()
	a.EndTime = a.StartTime.Add(-time.Hour)
	if err := svc.CreateAppointment(context.Background(), a); err == nil {
		t.Fatal("expected error for start after end")
	}
}

func TestCreateAppointment_RejectsInvalidStatus(t *testing.T) {
	svc := NewService(newMockApptRepo())
	a := validAppointment()
	a.Status = "booked"
	if err := svc.CreateAppointment(context.Background(), a); err == nil {
		t.Fatal("expected error for invalid status")
	}
}

func TestUpdateAppointmentStatus(t *testing.T) {
	repo := newMockApptRepo()
	svc := NewService(repo)
	a := validAppointment()
	if err := svc.CreateAppointment(context.Background(), a); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.UpdateAppointmentStatus(context.Background(), a.ID, "completed"); err != nil {
		t.Fatalf("update status: %v", err)
	}
	got, _ := repo.GetByID(context.Background(), a.ID)
	if got.Status != "completed" {
		t.Errorf("expected completed, got %s", got.Status)
	}

	if err := svc.UpdateAppointmentStatus(context.Background(), a.ID, "bogus"); err == nil {
		t.Error("expected error for invalid status")
	}
}

func TestIsCancelled(t *testing.T) {
	a := &Appointment{Status: "no_show"}
	if !a.IsCancelled() {
		t.Error("no_show should count as cancelled")
	}
	a.Status = "completed"
	if a.IsCancelled() {
		t.Error("completed should not count as cancelled")
	}
}
