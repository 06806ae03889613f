package conversation

import (
	"time"

	"github.com/google/uuid"
)

// Conversation phases. Completed is terminal for one follow-up cycle; a
// later follow-up restarts the cycle as if from idle.
const (
	PhaseIdle                 = "idle"
	PhaseAwaitingConfirmation = "awaiting_confirmation"
	PhaseCollectingAnswers    = "collecting_answers"
	PhaseCompleted            = "completed"
)

// State is the per-patient conversation singleton. Created on first
// contact, mutated on every inbound message, never deleted.
type State struct {
	PatientID      uuid.UUID         `db:"patient_id" json:"patient_id"`
	Phase          string            `db:"phase" json:"phase"`
	FollowUpID     *uuid.UUID        `db:"follow_up_id" json:"follow_up_id,omitempty"`
	QuestionIdx    int               `db:"question_idx" json:"question_idx"`
	Answers        map[string]string `db:"answers" json:"answers"`
	LastActivityAt time.Time         `db:"last_activity_at" json:"last_activity_at"`
	CreatedAt      time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time         `db:"updated_at" json:"updated_at"`
}

// InboundMessage is one patient message delivered by the webhook. The
// provider message id is the idempotency key; the struct itself is
// transient.
type InboundMessage struct {
	MessageID  string
	FromPhone  string
	Text       string
	ReceivedAt time.Time
}
