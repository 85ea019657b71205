package notes

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

var validSources = map[string]bool{
	"manual":        true,
	"upload":        true,
	"import":        true,
	"transcription": true,
}

func (s *Service) CreateNote(ctx context.Context, n *Note) error {
	if n.ClientID == uuid.Nil {
		return fmt.Errorf("client_id is required")
	}
	if n.TherapistID == uuid.Nil {
		return fmt.Errorf("therapist_id is required")
	}
	if n.Content == "" {
		return fmt.Errorf("content is required")
	}
	if n.Source == "" {
		n.Source = "manual"
	}
	if !validSources[n.Source] {
		return fmt.Errorf("invalid source: %s", n.Source)
	}
	if n.WordCount == nil {
		wc := CountWords(n.Content)
		n.WordCount = &wc
	}
	return s.repo.Create(ctx, n)
}

func (s *Service) GetNote(ctx context.Context, id uuid.UUID) (*Note, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByClient(ctx context.Context, clientID uuid.UUID) ([]*Note, error) {
	return s.repo.ListByClient(ctx, clientID)
}

func (s *Service) ListUnlinkedByClient(ctx context.Context, clientID uuid.UUID) ([]*Note, error) {
	return s.repo.ListUnlinkedByClient(ctx, clientID)
}

// SetAppointment updates the note's appointment reference. Used exclusively
// by the linking engine.
func (s *Service) SetAppointment(ctx context.Context, id uuid.UUID, appointmentID *uuid.UUID) error {
	return s.repo.SetAppointment(ctx, id, appointmentID)
}

func (s *Service) FindByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Note, error) {
	return s.repo.FindByAppointment(ctx, appointmentID)
}

func (s *Service) CountUnlinkedOlderThan(ctx context.Context, practiceID uuid.UUID, cutoff time.Time) (int, error) {
	return s.repo.CountUnlinkedOlderThan(ctx, practiceID, cutoff)
}

func (s *Service) CreateDocument(ctx context.Context, d *DocumentItem) error {
	if d.PracticeID == uuid.Nil {
		return fmt.Errorf("practice_id is required")
	}
	if d.TherapistID == uuid.Nil {
		return fmt.Errorf("therapist_id is required")
	}
	if d.FileName == "" {
		return fmt.Errorf("file_name is required")
	}
	if d.Status == "" {
		d.Status = DocStatusPending
	}
	return s.repo.CreateDocument(ctx, d)
}

func (s *Service) GetDocument(ctx context.Context, id uuid.UUID) (*DocumentItem, error) {
	return s.repo.GetDocument(ctx, id)
}

func (s *Service) ListPendingDocuments(ctx context.Context, practiceID uuid.UUID) ([]*DocumentItem, error) {
	return s.repo.ListPendingDocuments(ctx, practiceID)
}

func (s *Service) UpdateDocument(ctx context.Context, d *DocumentItem) error {
	return s.repo.UpdateDocument(ctx, d)
}

// PromoteDocument turns a document item into a Note for the given client,
// optionally linked to an appointment. The note and the document status
// change commit together.
func (s *Service) PromoteDocument(ctx context.Context, d *DocumentItem, clientID uuid.UUID, appointmentID *uuid.UUID) (*Note, error) {
	if d.RawText == "" {
		return nil, fmt.Errorf("document %s has no text to promote", d.ID)
	}

	title := d.FileName
	wc := CountWords(d.RawText)
	n := &Note{
		ClientID:      clientID,
		TherapistID:   d.TherapistID,
		Title:         &title,
		Content:       d.RawText,
		AppointmentID: appointmentID,
		Source:        "upload",
		WordCount:     &wc,
	}
	if d.InferredDate != nil {
		n.CreatedAt = *d.InferredDate
	}

	if err := s.repo.Promote(ctx, d, n); err != nil {
		return nil, err
	}
	return n, nil
}
