package linking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonathanprocter/practice-intelligently-sub006/internal/domain/identity"
	"github.com/jonathanprocter/practice-intelligently-sub006/internal/domain/notes"
	"github.com/jonathanprocter/practice-intelligently-sub006/internal/domain/scheduling"
)

// ReconcileOptions controls a practice-wide reconciliation run.
type ReconcileOptions struct {
	// AutoCreate allows the reconciler to request appointment creation for
	// documents whose inferred session has no matching appointment.
	AutoCreate bool
}

// staleNoteAge is the age past which a still-unlinked note is worth a
// manual-review recommendation.
const staleNoteAge = 14 * 24 * time.Hour

// Reconcile runs the auto-linker for every active client in the practice and
// then processes pending document items, promoting those that can be matched
// to a note. Failures are isolated per client and per document; the run
// always returns a report, aborting only when the client list itself cannot
// be loaded.
func (s *Service) Reconcile(ctx context.Context, practiceID uuid.UUID, opts ReconcileOptions) (*ReconciliationReport, error) {
	clients, err := s.subjects.ListActiveClients(ctx, practiceID)
	if err != nil {
		return nil, fmt.Errorf("list clients for practice %s: %w", practiceID, err)
	}

	report := &ReconciliationReport{Success: true, PracticeID: practiceID}
	for _, client := range clients {
		res, err := s.AutoLink(ctx, client.ID)
		if err != nil {
			report.StillUnresolved = append(report.StillUnresolved, UnresolvedItem{
				ID:     client.ID,
				Kind:   "client",
				Reason: err.Error(),
			})
			continue
		}
		report.ClientsProcessed++
		report.ProcessedNotes += res.TotalUnlinked
		report.LinkedNotes += res.LinkedCount
		report.Suggestions = append(report.Suggestions, res.Suggestions...)
		for _, ne := range res.Errors {
			report.StillUnresolved = append(report.StillUnresolved, UnresolvedItem{
				ID:     ne.NoteID,
				Kind:   "note",
				Reason: ne.Reason,
			})
		}
	}

	s.reconcileDocuments(ctx, practiceID, clients, opts, report)
	s.addRecommendations(ctx, practiceID, report)

	s.logger.Info().
		Str("practice_id", practiceID.String()).
		Int("clients", report.ClientsProcessed).
		Int("linked_notes", report.LinkedNotes).
		Int("documents_matched", report.DocumentsMatched).
		Int("appointments_created", report.AppointmentsCreated).
		Int("unresolved", len(report.StillUnresolved)).
		Msg("reconciliation complete")
	return report, nil
}

// reconcileDocuments promotes pending document items to notes. A document
// matches through the same scorer as a regular note, using its inferred
// session date and extracted client name.
func (s *Service) reconcileDocuments(ctx context.Context, practiceID uuid.UUID, clients []*identity.Client, opts ReconcileOptions, report *ReconciliationReport) {
	docs, err := s.notes.ListPendingDocuments(ctx, practiceID)
	if err != nil {
		report.StillUnresolved = append(report.StillUnresolved, UnresolvedItem{
			ID:     practiceID,
			Kind:   "document",
			Reason: fmt.Sprintf("list pending documents: %v", err),
		})
		return
	}

	for _, doc := range docs {
		report.ProcessedDocuments++
		if err := s.reconcileDocument(ctx, doc, clients, opts, report); err != nil {
			report.StillUnresolved = append(report.StillUnresolved, UnresolvedItem{
				ID:     doc.ID,
				Kind:   "document",
				Reason: err.Error(),
			})
		}
	}
}

func (s *Service) reconcileDocument(ctx context.Context, doc *notes.DocumentItem, clients []*identity.Client, opts ReconcileOptions, report *ReconciliationReport) error {
	client := resolveDocumentClient(doc, clients)
	if client == nil {
		doc.Status = notes.DocStatusUnmatched
		if err := s.notes.UpdateDocument(ctx, doc); err != nil {
			return fmt.Errorf("mark document unmatched: %w", err)
		}
		return fmt.Errorf("no client matches document %q", doc.FileName)
	}

	pool, err := s.appts.ListByClient(ctx, client.ID)
	if err != nil {
		return fmt.Errorf("list appointments: %w", err)
	}
	taken, err := s.takenAppointments(ctx, client.ID)
	if err != nil {
		return err
	}

	// Score the document as if it were already a note, dated at its
	// inferred session date.
	probe := &notes.Note{
		ID:       doc.ID,
		ClientID: client.ID,
		Title:    &doc.FileName,
		Content:  doc.RawText,
	}
	if doc.InferredDate != nil {
		probe.CreatedAt = *doc.InferredDate
	} else {
		probe.CreatedAt = doc.CreatedAt
	}

	suggestions := s.scorer.Score(ctx, probe, pool, taken, client.FullName())
	if len(suggestions) > 0 {
		top := suggestions[0]
		if top.Confidence >= s.cfg.CommitThreshold && top.HasDateSignal() {
			if _, err := s.notes.PromoteDocument(ctx, doc, client.ID, &top.AppointmentID); err != nil {
				return fmt.Errorf("promote document: %w", err)
			}
			report.DocumentsMatched++
			return nil
		}
	}

	if !opts.AutoCreate || doc.InferredDate == nil {
		doc.Status = notes.DocStatusUnmatched
		if err := s.notes.UpdateDocument(ctx, doc); err != nil {
			return fmt.Errorf("mark document unmatched: %w", err)
		}
		report.Recommendations = append(report.Recommendations,
			fmt.Sprintf("document %q for %s has no matching appointment; review manually or re-run with auto-create", doc.FileName, client.FullName()))
		return nil
	}

	// No matching appointment exists for the inferred session; ask the
	// scheduling collaborator to create one and link the promoted note.
	apt := &scheduling.Appointment{
		ClientID:    client.ID,
		TherapistID: doc.TherapistID,
		StartTime:   *doc.InferredDate,
		EndTime:     doc.InferredDate.Add(scheduling.DefaultSessionLength),
		Type:        "therapy_session",
		Status:      "completed",
	}
	if err := s.appts.CreateAppointment(ctx, apt); err != nil {
		return &ExternalServiceError{Service: "scheduling", Err: err}
	}
	report.AppointmentsCreated++
	if _, err := s.notes.PromoteDocument(ctx, doc, client.ID, &apt.ID); err != nil {
		return fmt.Errorf("promote document: %w", err)
	}
	report.DocumentsMatched++
	return nil
}

// resolveDocumentClient prefers the document's explicit client id, falling
// back to matching the extracted client name against the practice roster.
// Name matching requires a full-name match; a bare first or last name is too
// ambiguous to act on.
func resolveDocumentClient(doc *notes.DocumentItem, clients []*identity.Client) *identity.Client {
	if doc.ClientID != nil {
		for _, c := range clients {
			if c.ID == *doc.ClientID {
				return c
			}
		}
		return nil
	}
	if doc.ExtractedClientName == nil || *doc.ExtractedClientName == "" {
		return nil
	}
	for _, c := range clients {
		if nameMatchScore(*doc.ExtractedClientName, c.FullName()) >= 1.0 {
			return c
		}
	}
	return nil
}

func (s *Service) addRecommendations(ctx context.Context, practiceID uuid.UUID, report *ReconciliationReport) {
	cutoff := time.Now().UTC().Add(-staleNoteAge)
	stale, err := s.notes.CountUnlinkedOlderThan(ctx, practiceID, cutoff)
	if err != nil {
		s.logger.Warn().Err(err).Msg("could not count stale unlinked notes")
		return
	}
	if stale > 0 {
		report.Recommendations = append(report.Recommendations,
			fmt.Sprintf("%d notes still unlinked after 14 days; consider manual review", stale))
	}
}
