package followup

import (
	"context"

	"github.com/google/uuid"
)

type FollowUpRepository interface {
	Create(ctx context.Context, f *FollowUp) error
	GetByID(ctx context.Context, id uuid.UUID) (*FollowUp, error)
	UpdateStatus(ctx context.Context, f *FollowUp) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*FollowUp, int, error)
	// ActiveForPatient returns the follow-up currently awaiting a
	// response: most recently scheduled among {sent, pending}, or nil.
	ActiveForPatient(ctx context.Context, patientID uuid.UUID) (*FollowUp, error)
}
