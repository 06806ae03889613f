package triage

import (
	"context"

	"github.com/google/uuid"
)

type AssessmentRepository interface {
	Create(ctx context.Context, a *RiskAssessment) error
	GetByID(ctx context.Context, id uuid.UUID) (*RiskAssessment, error)
	// GetByFollowUp returns the assessment recorded for the follow-up,
	// or nil when none exists. One follow-up yields one assessment; a
	// redelivered completion reuses it.
	GetByFollowUp(ctx context.Context, followUpID uuid.UUID) (*RiskAssessment, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*RiskAssessment, int, error)
	// MarkAlerted flips alerted to true iff it is still false, and
	// reports whether this call won the flip. The conditional update is
	// the alert-idempotency guard.
	MarkAlerted(ctx context.Context, id uuid.UUID) (bool, error)
}
