package notes

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Note maps to the session_note table. A note is created independently of the
// appointment schedule; AppointmentID is nil until the linking engine (or a
// manual action) associates it with an appointment.
type Note struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	ClientID      uuid.UUID  `db:"client_id" json:"client_id"`
	TherapistID   uuid.UUID  `db:"therapist_id" json:"therapist_id"`
	Title         *string    `db:"title" json:"title,omitempty"`
	Content       string     `db:"content" json:"content"`
	AppointmentID *uuid.UUID `db:"appointment_id" json:"appointment_id,omitempty"`
	EventID       *string    `db:"event_id" json:"event_id,omitempty"`
	Source        string     `db:"source" json:"source"`
	WordCount     *int       `db:"word_count" json:"word_count,omitempty"`
	Tags          []string   `db:"tags" json:"tags,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// IsLinked reports whether the note is associated with an appointment.
func (n *Note) IsLinked() bool {
	return n.AppointmentID != nil
}

// SearchText returns the text the scorer matches against: title plus content.
func (n *Note) SearchText() string {
	if n.Title != nil && *n.Title != "" {
		return *n.Title + "\n" + n.Content
	}
	return n.Content
}

// CountWords returns the number of whitespace-separated tokens in the content.
func CountWords(content string) int {
	return len(strings.Fields(content))
}

// DocumentItem maps to the document_item table. It is a document-origin
// record (an upload that went through OCR) awaiting promotion to a Note.
type DocumentItem struct {
	ID                  uuid.UUID  `db:"id" json:"id"`
	PracticeID          uuid.UUID  `db:"practice_id" json:"practice_id"`
	ClientID            *uuid.UUID `db:"client_id" json:"client_id,omitempty"`
	TherapistID         uuid.UUID  `db:"therapist_id" json:"therapist_id"`
	FileName            string     `db:"file_name" json:"file_name"`
	RawText             string     `db:"raw_text" json:"raw_text"`
	ExtractedClientName *string    `db:"extracted_client_name" json:"extracted_client_name,omitempty"`
	InferredDate        *time.Time `db:"inferred_date" json:"inferred_date,omitempty"`
	Status              string     `db:"status" json:"status"`
	NeedsProcessing     bool       `db:"needs_processing" json:"needs_processing"`
	NoteID              *uuid.UUID `db:"note_id" json:"note_id,omitempty"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}

// Document item statuses.
const (
	DocStatusPending   = "pending"
	DocStatusMatched   = "matched"
	DocStatusUnmatched = "unmatched"
)
