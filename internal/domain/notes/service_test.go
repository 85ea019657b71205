package notes

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jonathanprocter/practice-intelligently-sub006/internal/apperr"
)

type mockNoteRepo struct {
	notes map[uuid.UUID]*Note
	docs  map[uuid.UUID]*DocumentItem
}

func newMockNoteRepo() *mockNoteRepo {
	return &mockNoteRepo{
		notes: make(map[uuid.UUID]*Note),
		docs:  make(map[uuid.UUID]*DocumentItem),
	}
}

func (m *mockNoteRepo) Create(_ context.Context, n *Note) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	m.notes[n.ID] = n
	return nil
}

func (m *mockNoteRepo) GetByID(_ context.Context, id uuid.UUID) (*Note, error) {
	n, ok := m.notes[id]
	if !ok {
		return nil, fmt.Errorf("note: %w", apperr.ErrNotFound)
	}
	return n, nil
}

func (m *mockNoteRepo) ListByClient(_ context.Context, clientID uuid.UUID) ([]*Note, error) {
	var result []*Note
	for _, n := range m.notes {
		if n.ClientID == clientID {
			result = append(result, n)
		}
	}
	return result, nil
}

func (m *mockNoteRepo) ListUnlinkedByClient(_ context.Context, clientID uuid.UUID) ([]*Note, error) {
	var result []*Note
	for _, n := range m.notes {
		if n.ClientID == clientID && n.AppointmentID == nil {
			result = append(result, n)
		}
	}
	return result, nil
}

func (m *mockNoteRepo) SetAppointment(_ context.Context, id uuid.UUID, appointmentID *uuid.UUID) error {
	n, ok := m.notes[id]
	if !ok {
		return fmt.Errorf("note: %w", apperr.ErrNotFound)
	}
	n.AppointmentID = appointmentID
	return nil
}

func (m *mockNoteRepo) FindByAppointment(_ context.Context, appointmentID uuid.UUID) (*Note, error) {
	for _, n := range m.notes {
		if n.AppointmentID != nil && *n.AppointmentID == appointmentID {
			return n, nil
		}
	}
	return nil, fmt.Errorf("note: %w", apperr.ErrNotFound)
}

func (m *mockNoteRepo) CountUnlinkedOlderThan(_ context.Context, _ uuid.UUID, cutoff time.Time) (int, error) {
	count := 0
	for _, n := range m.notes {
		if n.AppointmentID == nil && n.CreatedAt.Before(cutoff) {
			count++
		}
	}
	return count, nil
}

func (m *mockNoteRepo) CreateDocument(_ context.Context, d *DocumentItem) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	m.docs[d.ID] = d
	return nil
}

func (m *mockNoteRepo) GetDocument(_ context.Context, id uuid.UUID) (*DocumentItem, error) {
	d, ok := m.docs[id]
	if !ok {
		return nil, fmt.Errorf("document: %w", apperr.ErrNotFound)
	}
	return d, nil
}

func (m *mockNoteRepo) ListPendingDocuments(_ context.Context, practiceID uuid.UUID) ([]*DocumentItem, error) {
	var result []*DocumentItem
	for _, d := range m.docs {
		if d.PracticeID == practiceID && d.NeedsProcessing && d.Status == DocStatusPending {
			result = append(result, d)
		}
	}
	return result, nil
}

func (m *mockNoteRepo) UpdateDocument(_ context.Context, d *DocumentItem) error {
	if _, ok := m.docs[d.ID]; !ok {
		return fmt.Errorf("document: %w", apperr.ErrNotFound)
	}
	m.docs[d.ID] = d
	return nil
}

func (m *mockNoteRepo) Promote(ctx context.Context, d *DocumentItem, n *Note) error {
	if err := m.Create(ctx, n); err != nil {
		return err
	}
	d.NoteID = &n.ID
	d.Status = DocStatusMatched
	d.NeedsProcessing = false
	return m.UpdateDocument(ctx, d)
}

func TestCreateNote_ComputesWordCount(t *testing.T) {
	svc := NewService(newMockNoteRepo())
	n := &Note{
		ClientID:    uuid.New(),
		TherapistID: uuid.New(),
		Content:     "client presented with improved mood today",
	}
	if err := svc.CreateNote(context.Background(), n); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.WordCount == nil || *n.WordCount != 6 {
		t.Errorf("expected word count 6, got %v", n.WordCount)
	}
	if n.Source != "manual" {
		t.Errorf("expected default source manual, got %s", n.Source)
	}
}

func TestCreateNote_RejectsInvalidSource(t *testing.T) {
	svc := NewService(newMockNoteRepo())
	n := &Note{
		ClientID:    uuid.New(),
		TherapistID: uuid.New(),
		Content:     "x",
		Source:      "fax",
	}
	if err := svc.CreateNote(context.Background(), n); err == nil {
		t.Fatal("expected error for invalid source")
	}
}

func TestPromoteDocument(t *testing.T) {
	repo := newMockNoteRepo()
	svc := NewService(repo)
	clientID := uuid.New()
	apptID := uuid.New()
	inferred := time.Date(2025, 7, 28, 10, 0, 0, 0, time.UTC)

	d := &DocumentItem{
		PracticeID:      uuid.New(),
		TherapistID:     uuid.New(),
		FileName:        "scan-2025-07-28.pdf",
		RawText:         "Progress note content from scanned document",
		InferredDate:    &inferred,
		Status:          DocStatusPending,
		NeedsProcessing: true,
	}
	if err := repo.CreateDocument(context.Background(), d); err != nil {
		t.Fatalf("create document: %v", err)
	}

	n, err := svc.PromoteDocument(context.Background(), d, clientID, &apptID)
	if err != nil {
		t.Fatalf("promote: %v", err)
	}

	if n.ClientID != clientID {
		t.Error("promoted note should belong to resolved client")
	}
	if n.AppointmentID == nil || *n.AppointmentID != apptID {
		t.Error("promoted note should be linked to the matched appointment")
	}
	if !n.CreatedAt.Equal(inferred) {
		t.Errorf("promoted note should carry inferred date, got %v", n.CreatedAt)
	}
	if n.Source != "upload" {
		t.Errorf("expected source upload, got %s", n.Source)
	}

	if d.Status != DocStatusMatched || d.NeedsProcessing {
		t.Errorf("document should be matched and processed, got %s/%v", d.Status, d.NeedsProcessing)
	}
	if d.NoteID == nil || *d.NoteID != n.ID {
		t.Error("document should reference the promoted note")
	}
}

func TestPromoteDocument_RequiresText(t *testing.T) {
	svc := NewService(newMockNoteRepo())
	d := &DocumentItem{ID: uuid.New(), TherapistID: uuid.New()}
	if _, err := svc.PromoteDocument(context.Background(), d, uuid.New(), nil); err == nil {
		t.Fatal("expected error for empty document")
	}
}

func TestSetAppointment_Unlink(t *testing.T) {
	repo := newMockNoteRepo()
	svc := NewService(repo)
	apptID := uuid.New()
	n := &Note{
		ClientID:      uuid.New(),
		TherapistID:   uuid.New(),
		Content:       "x",
		AppointmentID: &apptID,
	}
	repo.Create(context.Background(), n)

	if err := svc.SetAppointment(context.Background(), n.ID, nil); err != nil {
		t.Fatalf("unlink: %v", err)
	}
	got, _ := repo.GetByID(context.Background(), n.ID)
	if got.AppointmentID != nil {
		t.Error("expected appointment reference cleared")
	}
}
