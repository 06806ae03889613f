package conversation

import (
	"context"

	"github.com/google/uuid"
)

type StateRepository interface {
	// GetOrCreate returns the patient's conversation state, creating an
	// idle one on first contact.
	GetOrCreate(ctx context.Context, patientID uuid.UUID) (*State, error)
	// Save persists the full state row. Called once per transition,
	// after the transition succeeded.
	Save(ctx context.Context, s *State) error
}

// ProcessedMessageRepository tracks provider message ids that finished
// processing. The unique key makes redelivery a no-op.
type ProcessedMessageRepository interface {
	AlreadyProcessed(ctx context.Context, messageID string) (bool, error)
	// MarkProcessed claims the message id and reports whether this call
	// won the claim. A losing claim means another delivery of the same
	// id finished first; its transaction must not commit.
	MarkProcessed(ctx context.Context, messageID string) (bool, error)
}
