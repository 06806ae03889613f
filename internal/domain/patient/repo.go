package patient

import (
	"context"

	"github.com/google/uuid"
)

type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Patient, int, error)
	// FindByPhoneFragment returns active patients whose phone_digits
	// contain the given digit fragment.
	FindByPhoneFragment(ctx context.Context, fragment string) ([]*Patient, error)
}
