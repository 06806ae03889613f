package followup

import (
	"time"

	"github.com/google/uuid"
)

// Follow-up status values. Transitions are monotonic:
// pending -> sent -> responded.
const (
	StatusPending   = "pending"
	StatusSent      = "sent"
	StatusResponded = "responded"
)

// FollowUp maps to the follow_up table. One scheduled check-in for a
// patient after a surgery, identified by the day offset since discharge.
type FollowUp struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	PatientID   uuid.UUID  `db:"patient_id" json:"patient_id"`
	SurgeryType string     `db:"surgery_type" json:"surgery_type"`
	DayOffset   int        `db:"day_offset" json:"day_offset"`
	Status      string     `db:"status" json:"status"`
	ScheduledAt time.Time  `db:"scheduled_at" json:"scheduled_at"`
	RespondedAt *time.Time `db:"responded_at" json:"responded_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

var statusRank = map[string]int{
	StatusPending:   0,
	StatusSent:      1,
	StatusResponded: 2,
}

// CanTransition reports whether moving from to the target status keeps
// the pending -> sent -> responded ordering.
func CanTransition(from, to string) bool {
	fr, ok := statusRank[from]
	if !ok {
		return false
	}
	tr, ok := statusRank[to]
	if !ok {
		return false
	}
	return tr > fr
}
