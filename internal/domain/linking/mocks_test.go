package linking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jonathanprocter/practice-intelligently-sub006/internal/apperr"
	"github.com/jonathanprocter/practice-intelligently-sub006/internal/domain/identity"
	"github.com/jonathanprocter/practice-intelligently-sub006/internal/domain/notes"
	"github.com/jonathanprocter/practice-intelligently-sub006/internal/domain/scheduling"
	"github.com/jonathanprocter/practice-intelligently-sub006/internal/platform/ai"
)

type mockNoteStore struct {
	notes   map[uuid.UUID]*notes.Note
	docs    map[uuid.UUID]*notes.DocumentItem
	failSet map[uuid.UUID]error
}

func newMockNoteStore() *mockNoteStore {
	return &mockNoteStore{
		notes:   make(map[uuid.UUID]*notes.Note),
		docs:    make(map[uuid.UUID]*notes.DocumentItem),
		failSet: make(map[uuid.UUID]error),
	}
}

func (m *mockNoteStore) add(n *notes.Note) *notes.Note {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	m.notes[n.ID] = n
	return n
}

func (m *mockNoteStore) GetNote(_ context.Context, id uuid.UUID) (*notes.Note, error) {
	n, ok := m.notes[id]
	if !ok {
		return nil, fmt.Errorf("note: %w", apperr.ErrNotFound)
	}
	return n, nil
}

func (m *mockNoteStore) ListByClient(_ context.Context, clientID uuid.UUID) ([]*notes.Note, error) {
	var out []*notes.Note
	for _, n := range m.notes {
		if n.ClientID == clientID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *mockNoteStore) ListUnlinkedByClient(_ context.Context, clientID uuid.UUID) ([]*notes.Note, error) {
	var out []*notes.Note
	for _, n := range m.notes {
		if n.ClientID == clientID && n.AppointmentID == nil {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *mockNoteStore) SetAppointment(_ context.Context, id uuid.UUID, appointmentID *uuid.UUID) error {
	if err, ok := m.failSet[id]; ok {
		return err
	}
	n, ok := m.notes[id]
	if !ok {
		return fmt.Errorf("note: %w", apperr.ErrNotFound)
	}
	n.AppointmentID = appointmentID
	return nil
}

func (m *mockNoteStore) FindByAppointment(_ context.Context, appointmentID uuid.UUID) (*notes.Note, error) {
	for _, n := range m.notes {
		if n.AppointmentID != nil && *n.AppointmentID == appointmentID {
			return n, nil
		}
	}
	return nil, fmt.Errorf("note: %w", apperr.ErrNotFound)
}

func (m *mockNoteStore) CountUnlinkedOlderThan(_ context.Context, _ uuid.UUID, cutoff time.Time) (int, error) {
	count := 0
	for _, n := range m.notes {
		if n.AppointmentID == nil && n.CreatedAt.Before(cutoff) {
			count++
		}
	}
	return count, nil
}

func (m *mockNoteStore) ListPendingDocuments(_ context.Context, practiceID uuid.UUID) ([]*notes.DocumentItem, error) {
	var out []*notes.DocumentItem
	for _, d := range m.docs {
		if d.PracticeID == practiceID && d.NeedsProcessing && d.Status == notes.DocStatusPending {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *mockNoteStore) UpdateDocument(_ context.Context, d *notes.DocumentItem) error {
	if _, ok := m.docs[d.ID]; !ok {
		return fmt.Errorf("document: %w", apperr.ErrNotFound)
	}
	m.docs[d.ID] = d
	return nil
}

func (m *mockNoteStore) PromoteDocument(_ context.Context, d *notes.DocumentItem, clientID uuid.UUID, appointmentID *uuid.UUID) (*notes.Note, error) {
	n := &notes.Note{
		ID:            uuid.New(),
		ClientID:      clientID,
		TherapistID:   d.TherapistID,
		Title:         &d.FileName,
		Content:       d.RawText,
		AppointmentID: appointmentID,
		Source:        "upload",
	}
	if d.InferredDate != nil {
		n.CreatedAt = *d.InferredDate
	}
	m.notes[n.ID] = n
	d.NoteID = &n.ID
	d.Status = notes.DocStatusMatched
	d.NeedsProcessing = false
	return n, nil
}

type mockApptStore struct {
	appts     map[uuid.UUID]*scheduling.Appointment
	createErr error
	created   []*scheduling.Appointment
}

func newMockApptStore() *mockApptStore {
	return &mockApptStore{appts: make(map[uuid.UUID]*scheduling.Appointment)}
}

func (m *mockApptStore) add(a *scheduling.Appointment) *scheduling.Appointment {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = "scheduled"
	}
	if a.Type == "" {
		a.Type = "therapy_session"
	}
	m.appts[a.ID] = a
	return a
}

func (m *mockApptStore) GetAppointment(_ context.Context, id uuid.UUID) (*scheduling.Appointment, error) {
	a, ok := m.appts[id]
	if !ok {
		return nil, fmt.Errorf("appointment: %w", apperr.ErrNotFound)
	}
	return a, nil
}

func (m *mockApptStore) ListByClient(_ context.Context, clientID uuid.UUID) ([]*scheduling.Appointment, error) {
	var out []*scheduling.Appointment
	for _, a := range m.appts {
		if a.ClientID == clientID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockApptStore) CreateAppointment(_ context.Context, a *scheduling.Appointment) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.add(a)
	m.created = append(m.created, a)
	return nil
}

type mockSubjectStore struct {
	clients map[uuid.UUID]*identity.Client
}

func newMockSubjectStore() *mockSubjectStore {
	return &mockSubjectStore{clients: make(map[uuid.UUID]*identity.Client)}
}

func (m *mockSubjectStore) add(c *identity.Client) *identity.Client {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = "active"
	}
	m.clients[c.ID] = c
	return c
}

func (m *mockSubjectStore) GetClient(_ context.Context, id uuid.UUID) (*identity.Client, error) {
	c, ok := m.clients[id]
	if !ok {
		return nil, fmt.Errorf("client: %w", apperr.ErrNotFound)
	}
	return c, nil
}

func (m *mockSubjectStore) ListActiveClients(_ context.Context, practiceID uuid.UUID) ([]*identity.Client, error) {
	var out []*identity.Client
	for _, c := range m.clients {
		if c.PracticeID == practiceID && c.Status == "active" {
			out = append(out, c)
		}
	}
	return out, nil
}

// fixedProvider returns the same similarity score for every pair.
type fixedProvider struct {
	score float64
}

func (p fixedProvider) Similarity(_ context.Context, _, _ string) (float64, bool, error) {
	return p.score, true, nil
}

func (p fixedProvider) BatchSimilarity(_ context.Context, reqs []ai.SimilarityRequest) []ai.SimilarityResult {
	out := make([]ai.SimilarityResult, len(reqs))
	for i := range out {
		out[i] = ai.SimilarityResult{Score: p.score, OK: true}
	}
	return out
}

func newTestService(ns *mockNoteStore, as *mockApptStore, ss *mockSubjectStore) *Service {
	scorer := NewScorer(ScorerConfig{}, ai.Disabled{}, zerolog.Nop())
	return NewService(Config{}, ns, as, ss, scorer, zerolog.Nop())
}
