package patient

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrPatientNotFound is a named outcome, not a failure: the caller is
// expected to reply to the sender with a generic unregistered message.
var ErrPatientNotFound = errors.New("patient not found")

// suffixLengths are tried longest first: country+area+subscriber,
// area+subscriber, then subscriber only.
var suffixLengths = []int{11, 9, 8}

type Service struct {
	repo PatientRepository
}

func NewService(repo PatientRepository) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreatePatient(ctx context.Context, p *Patient) error {
	if p.FullName == "" {
		return fmt.Errorf("full_name is required")
	}
	if len(NormalizePhone(p.Phone)) < 8 {
		return fmt.Errorf("phone must contain at least 8 digits")
	}
	if p.PhysicianID == uuid.Nil {
		return fmt.Errorf("physician_id is required")
	}
	p.Active = true
	return s.repo.Create(ctx, p)
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdatePatient(ctx context.Context, p *Patient) error {
	if p.Phone != "" && len(NormalizePhone(p.Phone)) < 8 {
		return fmt.Errorf("phone must contain at least 8 digits")
	}
	return s.repo.Update(ctx, p)
}

func (s *Service) DeletePatient(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// ResolveByPhone maps a raw sender phone to a registered patient.
// The raw value is stripped to digits and its last 11, 9 and 8 digits
// are tried in that order against the stored phone digits; the first
// hit at the highest-specificity suffix wins. A sender that matches no
// patient yields ErrPatientNotFound.
func (s *Service) ResolveByPhone(ctx context.Context, rawPhone string) (*Patient, error) {
	digits := NormalizePhone(rawPhone)
	if len(digits) < suffixLengths[len(suffixLengths)-1] {
		return nil, ErrPatientNotFound
	}
	for _, n := range suffixLengths {
		if len(digits) < n {
			continue
		}
		suffix := digits[len(digits)-n:]
		matches, err := s.repo.FindByPhoneFragment(ctx, suffix)
		if err != nil {
			return nil, fmt.Errorf("find by phone fragment: %w", err)
		}
		if len(matches) > 0 {
			return matches[0], nil
		}
	}
	return nil, ErrPatientNotFound
}
