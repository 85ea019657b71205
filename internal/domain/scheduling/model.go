package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// Appointment maps to the appointment table. Appointments are created by
// calendar sync or manual scheduling; the linking engine only reads them,
// except for the reconciler's auto-create path.
type Appointment struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	ClientID    uuid.UUID  `db:"client_id" json:"client_id"`
	TherapistID uuid.UUID  `db:"therapist_id" json:"therapist_id"`
	StartTime   time.Time  `db:"start_time" json:"start_time"`
	EndTime     time.Time  `db:"end_time" json:"end_time"`
	Type        string     `db:"type" json:"type"`
	Status      string     `db:"status" json:"status"`
	EventID     *string    `db:"event_id" json:"event_id,omitempty"`
	Location    *string    `db:"location" json:"location,omitempty"`
	Notes       *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// Duration returns the scheduled length of the appointment.
func (a *Appointment) Duration() time.Duration {
	return a.EndTime.Sub(a.StartTime)
}

// IsCancelled reports whether the appointment did not take place as a
// clinical encounter. Such appointments stay in the candidate pool for
// manual linking but are skipped by auto-commit.
func (a *Appointment) IsCancelled() bool {
	return a.Status == "cancelled" || a.Status == "no_show"
}
