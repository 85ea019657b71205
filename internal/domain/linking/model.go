package linking

import (
	"time"

	"github.com/google/uuid"
)

// Factor kinds. Factors form a small open set of named heuristics; each
// suggestion carries the ones that contributed to its confidence.
const (
	FactorDateProximity = "date_proximity"
	FactorContentMatch  = "content_match"
	FactorPatternMatch  = "pattern_match"
	FactorAIAnalysis    = "ai_analysis"
)

// Factor is one scoring contributor: its kind, the weight it carried in the
// combined confidence, the raw [0,1] value the heuristic produced, and a
// short human-readable description.
type Factor struct {
	Kind        string  `json:"kind"`
	Weight      float64 `json:"weight"`
	Value       float64 `json:"value"`
	Description string  `json:"description"`
}

// LinkSuggestion is a non-committed proposal produced by one scoring pass.
// Suggestions are ephemeral; they are consumed by auto-commit or returned
// for display, never persisted.
type LinkSuggestion struct {
	NoteID        uuid.UUID `json:"note_id"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	Confidence    float64   `json:"confidence"`
	Reason        string    `json:"reason"`
	Factors       []Factor  `json:"factors"`

	// dateGap breaks confidence ties; nearest appointment wins.
	dateGap time.Duration
	// startTime breaks remaining ties deterministically.
	startTime time.Time
}

// HasDateSignal reports whether the suggestion carries a date_proximity
// factor above the decay floor, meaning the appointment falls inside the
// scoring window. Auto-commit requires it so that name extraction alone
// never commits a link.
func (s *LinkSuggestion) HasDateSignal() bool {
	for _, f := range s.Factors {
		if f.Kind == FactorDateProximity && f.Value > dateDecayFloor {
			return true
		}
	}
	return false
}

// Action kinds recorded in the undo journal.
const (
	ActionLink     = "link"
	ActionUnlink   = "unlink"
	ActionBulkLink = "bulk-link"
	ActionAutoLink = "auto-link"
)

// HistoryEntry is the single retained reversible action. For link kinds
// AppointmentID is the link target; for unlink it is the prior appointment
// the note must be restored to.
type HistoryEntry struct {
	Kind          string      `json:"kind"`
	NoteIDs       []uuid.UUID `json:"note_ids"`
	AppointmentID *uuid.UUID  `json:"appointment_id,omitempty"`
	RecordedAt    time.Time   `json:"recorded_at"`
}

// LinkResult reports the outcome of a single link or unlink operation.
type LinkResult struct {
	Success       bool       `json:"success"`
	Message       string     `json:"message,omitempty"`
	NoteID        uuid.UUID  `json:"note_id"`
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty"`
}

// BulkLinkOutcome is the per-note result inside a bulk link.
type BulkLinkOutcome struct {
	NoteID uuid.UUID `json:"note_id"`
	Linked bool      `json:"linked"`
	Error  string    `json:"error,omitempty"`
}

// BulkLinkResult reports a bulk link, with per-id outcomes so one failure
// never hides the notes that did link.
type BulkLinkResult struct {
	Success       bool              `json:"success"`
	Message       string            `json:"message,omitempty"`
	AppointmentID uuid.UUID         `json:"appointment_id"`
	Succeeded     int               `json:"succeeded"`
	Failed        int               `json:"failed"`
	Outcomes      []BulkLinkOutcome `json:"outcomes"`
}

// NoteError captures a per-note failure inside a batch pass.
type NoteError struct {
	NoteID uuid.UUID `json:"note_id"`
	Reason string    `json:"reason"`
}

// AutoLinkResult reports one auto-link pass over a client's unlinked notes.
type AutoLinkResult struct {
	Success       bool             `json:"success"`
	ClientID      uuid.UUID        `json:"client_id"`
	TotalUnlinked int              `json:"total_unlinked"`
	LinkedCount   int              `json:"linked_count"`
	LinkedNoteIDs []uuid.UUID      `json:"linked_note_ids"`
	Suggestions   []LinkSuggestion `json:"suggestions"`
	Errors        []NoteError      `json:"errors,omitempty"`
}

// UnresolvedItem is a record the reconciler could not settle, with the
// reason it needs human attention.
type UnresolvedItem struct {
	ID     uuid.UUID `json:"id"`
	Kind   string    `json:"kind"` // "client" | "note" | "document"
	Reason string    `json:"reason"`
}

// ReconciliationReport aggregates a practice-wide reconciliation run.
type ReconciliationReport struct {
	Success             bool             `json:"success"`
	PracticeID          uuid.UUID        `json:"practice_id"`
	ClientsProcessed    int              `json:"clients_processed"`
	ProcessedNotes      int              `json:"processed_notes"`
	LinkedNotes         int              `json:"linked_notes"`
	ProcessedDocuments  int              `json:"processed_documents"`
	DocumentsMatched    int              `json:"documents_matched"`
	AppointmentsCreated int              `json:"appointments_created"`
	Suggestions         []LinkSuggestion `json:"suggestions,omitempty"`
	StillUnresolved     []UnresolvedItem `json:"still_unresolved,omitempty"`
	Recommendations     []string         `json:"recommendations,omitempty"`
}

// UndoResult reports the reversal of the last journaled action.
type UndoResult struct {
	Success       bool        `json:"success"`
	Message       string      `json:"message,omitempty"`
	Action        string      `json:"action,omitempty"`
	AffectedNotes []uuid.UUID `json:"affected_notes,omitempty"`
}
