package linking

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// AutoLink scores every unlinked note for the client and commits links whose
// top suggestion clears the commit threshold. Remaining candidates are
// returned as suggestions for human review. Notes are processed
// independently; one note's failure is captured and the pass continues.
//
// The pass is idempotent: scoring is pure, so with no intervening changes a
// second run commits nothing further and reproduces the same suggestions.
func (s *Service) AutoLink(ctx context.Context, clientID uuid.UUID) (*AutoLinkResult, error) {
	client, err := s.subjects.GetClient(ctx, clientID)
	if err != nil {
		return nil, wrapNotFound(err, "client", clientID)
	}

	unlinked, err := s.notes.ListUnlinkedByClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("list unlinked notes for client %s: %w", clientID, err)
	}
	pool, err := s.appts.ListByClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("list appointments for client %s: %w", clientID, err)
	}

	result := &AutoLinkResult{
		Success:       true,
		ClientID:      clientID,
		TotalUnlinked: len(unlinked),
		LinkedNoteIDs: []uuid.UUID{},
		Suggestions:   []LinkSuggestion{},
	}
	if len(unlinked) == 0 || len(pool) == 0 {
		return result, nil
	}

	taken, err := s.takenAppointments(ctx, clientID)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]int, len(pool))
	for i, apt := range pool {
		byID[apt.ID] = i
	}

	// Oldest notes first, ids as the final tie-break, so repeated passes
	// visit notes in the same order.
	sort.Slice(unlinked, func(i, j int) bool {
		if !unlinked[i].CreatedAt.Equal(unlinked[j].CreatedAt) {
			return unlinked[i].CreatedAt.Before(unlinked[j].CreatedAt)
		}
		return unlinked[i].ID.String() < unlinked[j].ID.String()
	})

	subjectName := client.FullName()
	for _, note := range unlinked {
		suggestions := s.scorer.Score(ctx, note, pool, taken, subjectName)
		if len(suggestions) == 0 {
			continue
		}
		top := suggestions[0]
		apt := pool[byID[top.AppointmentID]]

		commit := top.Confidence >= s.cfg.CommitThreshold &&
			top.HasDateSignal() &&
			!apt.IsCancelled()
		if !commit {
			result.Suggestions = append(result.Suggestions, top)
			continue
		}

		if err := s.notes.SetAppointment(ctx, note.ID, &top.AppointmentID); err != nil {
			result.Errors = append(result.Errors, NoteError{NoteID: note.ID, Reason: err.Error()})
			continue
		}
		taken[top.AppointmentID] = note.ID
		result.LinkedCount++
		result.LinkedNoteIDs = append(result.LinkedNoteIDs, note.ID)
		s.logger.Info().
			Str("note_id", note.ID.String()).
			Str("appointment_id", top.AppointmentID.String()).
			Float64("confidence", top.Confidence).
			Msg("auto-linked note")
	}

	// One journal entry for the whole pass, holding only the notes that
	// actually committed.
	if result.LinkedCount > 0 {
		s.journal.Record(HistoryEntry{
			Kind:    ActionAutoLink,
			NoteIDs: result.LinkedNoteIDs,
		})
	}
	return result, nil
}

// takenAppointments maps each appointment already holding a note to that
// note's id, so the scorer can exclude occupied candidates.
func (s *Service) takenAppointments(ctx context.Context, clientID uuid.UUID) (map[uuid.UUID]uuid.UUID, error) {
	all, err := s.notes.ListByClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("list notes for client %s: %w", clientID, err)
	}
	taken := make(map[uuid.UUID]uuid.UUID)
	for _, n := range all {
		if n.AppointmentID != nil {
			taken[*n.AppointmentID] = n.ID
		}
	}
	return taken, nil
}
