package linking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jonathanprocter/practice-intelligently-sub006/internal/apperr"
	"github.com/jonathanprocter/practice-intelligently-sub006/internal/domain/identity"
	"github.com/jonathanprocter/practice-intelligently-sub006/internal/domain/notes"
	"github.com/jonathanprocter/practice-intelligently-sub006/internal/domain/scheduling"
)

// NoteStore is the note side of the record store adapter. Satisfied by
// *notes.Service.
type NoteStore interface {
	GetNote(ctx context.Context, id uuid.UUID) (*notes.Note, error)
	ListByClient(ctx context.Context, clientID uuid.UUID) ([]*notes.Note, error)
	ListUnlinkedByClient(ctx context.Context, clientID uuid.UUID) ([]*notes.Note, error)
	SetAppointment(ctx context.Context, id uuid.UUID, appointmentID *uuid.UUID) error
	FindByAppointment(ctx context.Context, appointmentID uuid.UUID) (*notes.Note, error)
	CountUnlinkedOlderThan(ctx context.Context, practiceID uuid.UUID, cutoff time.Time) (int, error)
	ListPendingDocuments(ctx context.Context, practiceID uuid.UUID) ([]*notes.DocumentItem, error)
	UpdateDocument(ctx context.Context, d *notes.DocumentItem) error
	PromoteDocument(ctx context.Context, d *notes.DocumentItem, clientID uuid.UUID, appointmentID *uuid.UUID) (*notes.Note, error)
}

// AppointmentStore is the appointment side of the record store adapter.
// Satisfied by *scheduling.Service. CreateAppointment is only exercised by
// the reconciler's auto-create path.
type AppointmentStore interface {
	GetAppointment(ctx context.Context, id uuid.UUID) (*scheduling.Appointment, error)
	ListByClient(ctx context.Context, clientID uuid.UUID) ([]*scheduling.Appointment, error)
	CreateAppointment(ctx context.Context, a *scheduling.Appointment) error
}

// SubjectStore resolves clients. Satisfied by *identity.Service.
type SubjectStore interface {
	GetClient(ctx context.Context, id uuid.UUID) (*identity.Client, error)
	ListActiveClients(ctx context.Context, practiceID uuid.UUID) ([]*identity.Client, error)
}

// Config carries the engine tunables, typically sourced from the process
// configuration.
type Config struct {
	CommitThreshold float64
	ScoreFloor      float64
	DateWindowDays  int
	TopK            int
	UndoWindow      time.Duration
}

func (c *Config) applyDefaults() {
	if c.CommitThreshold <= 0 {
		c.CommitThreshold = 0.75
	}
	if c.ScoreFloor <= 0 {
		c.ScoreFloor = 0.1
	}
	if c.DateWindowDays <= 0 {
		c.DateWindowDays = 14
	}
	if c.TopK <= 0 {
		c.TopK = 5
	}
	if c.UndoWindow <= 0 {
		c.UndoWindow = 30 * time.Second
	}
}

// Service implements the linking state machine, the batch passes and the
// undo journal on top of the record stores.
type Service struct {
	cfg      Config
	notes    NoteStore
	appts    AppointmentStore
	subjects SubjectStore
	scorer   *Scorer
	journal  *Journal
	logger   zerolog.Logger
}

func NewService(cfg Config, noteStore NoteStore, apptStore AppointmentStore, subjectStore SubjectStore, scorer *Scorer, logger zerolog.Logger) *Service {
	cfg.applyDefaults()
	return &Service{
		cfg:      cfg,
		notes:    noteStore,
		appts:    apptStore,
		subjects: subjectStore,
		scorer:   scorer,
		journal:  NewJournal(cfg.UndoWindow),
		logger:   logger,
	}
}

// Link associates a note with an appointment. It fails with a
// SubjectMismatchError when the two belong to different clients, and with a
// ConflictError when the note is already linked elsewhere without override,
// or when the appointment is already held by another note. A note already
// linked to the requested appointment is a no-op success.
func (s *Service) Link(ctx context.Context, noteID, appointmentID uuid.UUID, override bool) (*LinkResult, error) {
	changed, err := s.linkOne(ctx, noteID, appointmentID, override, true)
	if err != nil {
		return nil, err
	}
	if changed {
		s.journal.Record(HistoryEntry{
			Kind:          ActionLink,
			NoteIDs:       []uuid.UUID{noteID},
			AppointmentID: &appointmentID,
		})
	}
	msg := "note linked"
	if !changed {
		msg = "note already linked to this appointment"
	}
	return &LinkResult{Success: true, Message: msg, NoteID: noteID, AppointmentID: &appointmentID}, nil
}

// linkOne performs the state transition without journaling, so batch
// callers can record one aggregate entry. Returns whether the note changed.
// exclusive additionally rejects an appointment already held by another
// note; bulk callers skip it because linking several notes to one
// appointment is the point of the operation.
func (s *Service) linkOne(ctx context.Context, noteID, appointmentID uuid.UUID, override, exclusive bool) (bool, error) {
	note, err := s.notes.GetNote(ctx, noteID)
	if err != nil {
		return false, wrapNotFound(err, "note", noteID)
	}
	apt, err := s.appts.GetAppointment(ctx, appointmentID)
	if err != nil {
		return false, wrapNotFound(err, "appointment", appointmentID)
	}
	if note.ClientID != apt.ClientID {
		return false, &SubjectMismatchError{
			NoteID:        noteID,
			AppointmentID: appointmentID,
			NoteClient:    note.ClientID,
			ApptClient:    apt.ClientID,
		}
	}
	if note.AppointmentID != nil {
		if *note.AppointmentID == appointmentID {
			return false, nil
		}
		if !override {
			return false, &ConflictError{
				NoteID:        noteID,
				AppointmentID: appointmentID,
				Reason:        fmt.Sprintf("note already linked to appointment %s", *note.AppointmentID),
			}
		}
	}
	if exclusive && !override {
		if holder, err := s.notes.FindByAppointment(ctx, appointmentID); err == nil && holder.ID != noteID {
			return false, &ConflictError{
				NoteID:        noteID,
				AppointmentID: appointmentID,
				Reason:        fmt.Sprintf("appointment already linked to note %s, unlink it first", holder.ID),
			}
		} else if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return false, fmt.Errorf("check appointment holder: %w", err)
		}
	}
	if err := s.notes.SetAppointment(ctx, noteID, &appointmentID); err != nil {
		return false, fmt.Errorf("link note %s: %w", noteID, err)
	}
	return true, nil
}

// Unlink clears the note's appointment reference. Unlinking an already
// unlinked note is a no-op success and records nothing.
func (s *Service) Unlink(ctx context.Context, noteID uuid.UUID) (*LinkResult, error) {
	note, err := s.notes.GetNote(ctx, noteID)
	if err != nil {
		return nil, wrapNotFound(err, "note", noteID)
	}
	if note.AppointmentID == nil {
		return &LinkResult{Success: true, Message: "note already unlinked", NoteID: noteID}, nil
	}
	prior := *note.AppointmentID
	if err := s.notes.SetAppointment(ctx, noteID, nil); err != nil {
		return nil, fmt.Errorf("unlink note %s: %w", noteID, err)
	}
	s.journal.Record(HistoryEntry{
		Kind:          ActionUnlink,
		NoteIDs:       []uuid.UUID{noteID},
		AppointmentID: &prior,
	})
	return &LinkResult{Success: true, Message: "note unlinked", NoteID: noteID}, nil
}

// BulkLink applies the link transition to each note independently. A
// failing note never blocks the others; the journal records only the notes
// that actually linked so undo reverses exactly the aggregate effect.
func (s *Service) BulkLink(ctx context.Context, noteIDs []uuid.UUID, appointmentID uuid.UUID) (*BulkLinkResult, error) {
	result := &BulkLinkResult{AppointmentID: appointmentID}
	var linked []uuid.UUID
	for _, id := range noteIDs {
		changed, err := s.linkOne(ctx, id, appointmentID, false, false)
		outcome := BulkLinkOutcome{NoteID: id}
		if err != nil {
			outcome.Error = err.Error()
			result.Failed++
		} else {
			outcome.Linked = true
			result.Succeeded++
			if changed {
				linked = append(linked, id)
			}
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}
	if len(linked) > 0 {
		s.journal.Record(HistoryEntry{
			Kind:          ActionBulkLink,
			NoteIDs:       linked,
			AppointmentID: &appointmentID,
		})
	}
	result.Success = result.Failed == 0
	result.Message = fmt.Sprintf("%d linked, %d failed", result.Succeeded, result.Failed)
	return result, nil
}

// UndoLast reverses the journaled action. Outside the window, or with an
// empty journal, it fails with ErrExpired and changes nothing. The journal
// is cleared either way; there is no redo.
func (s *Service) UndoLast(ctx context.Context) (*UndoResult, error) {
	entry, err := s.journal.Take()
	if err != nil {
		return nil, err
	}

	switch entry.Kind {
	case ActionLink, ActionBulkLink, ActionAutoLink:
		for _, id := range entry.NoteIDs {
			if err := s.notes.SetAppointment(ctx, id, nil); err != nil {
				return nil, fmt.Errorf("undo %s: unlink note %s: %w", entry.Kind, id, err)
			}
		}
		return &UndoResult{
			Success:       true,
			Message:       fmt.Sprintf("unlinked %d note(s)", len(entry.NoteIDs)),
			Action:        entry.Kind,
			AffectedNotes: entry.NoteIDs,
		}, nil

	case ActionUnlink:
		if entry.AppointmentID == nil {
			return nil, fmt.Errorf("undo unlink: journal entry has no prior appointment")
		}
		if _, err := s.appts.GetAppointment(ctx, *entry.AppointmentID); err != nil {
			// The prior appointment is gone; leave the notes unlinked
			// rather than restoring a dangling reference.
			if errors.Is(err, apperr.ErrNotFound) {
				return &UndoResult{
					Success: false,
					Message: fmt.Sprintf("appointment %s no longer exists, notes left unlinked", *entry.AppointmentID),
					Action:  entry.Kind,
				}, nil
			}
			return nil, fmt.Errorf("undo unlink: %w", err)
		}
		for _, id := range entry.NoteIDs {
			if err := s.notes.SetAppointment(ctx, id, entry.AppointmentID); err != nil {
				return nil, fmt.Errorf("undo unlink: relink note %s: %w", id, err)
			}
		}
		return &UndoResult{
			Success:       true,
			Message:       fmt.Sprintf("relinked %d note(s)", len(entry.NoteIDs)),
			Action:        entry.Kind,
			AffectedNotes: entry.NoteIDs,
		}, nil

	default:
		return nil, fmt.Errorf("undo: unknown action kind %q", entry.Kind)
	}
}

// wrapNotFound converts a storage not-found into the engine's typed error,
// passing other failures through wrapped.
func wrapNotFound(err error, kind string, id uuid.UUID) error {
	if errors.Is(err, apperr.ErrNotFound) {
		return &NotFoundError{Kind: kind, ID: id}
	}
	return fmt.Errorf("load %s %s: %w", kind, id, err)
}
