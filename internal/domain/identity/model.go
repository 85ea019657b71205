package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Client maps to the client table. A client is the subject of notes and
// appointments; the batch reconciler iterates clients practice-wide.
type Client struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	PracticeID  uuid.UUID  `db:"practice_id" json:"practice_id"`
	TherapistID *uuid.UUID `db:"therapist_id" json:"therapist_id,omitempty"`
	FirstName   string     `db:"first_name" json:"first_name"`
	LastName    string     `db:"last_name" json:"last_name"`
	Email       *string    `db:"email" json:"email,omitempty"`
	Phone       *string    `db:"phone" json:"phone,omitempty"`
	Status      string     `db:"status" json:"status"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// FullName returns "First Last" with surrounding whitespace trimmed.
func (c *Client) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}
