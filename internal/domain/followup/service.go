package followup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNoActiveFollowUp is a named outcome: the sender has nothing
// pending and gets a canned reply.
var ErrNoActiveFollowUp = errors.New("no active follow-up")

type Service struct {
	repo FollowUpRepository
}

func NewService(repo FollowUpRepository) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreateFollowUp(ctx context.Context, f *FollowUp) error {
	if f.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if f.SurgeryType == "" {
		return fmt.Errorf("surgery_type is required")
	}
	if f.DayOffset < 0 {
		return fmt.Errorf("day_offset must not be negative")
	}
	if f.ScheduledAt.IsZero() {
		f.ScheduledAt = time.Now()
	}
	f.Status = StatusPending
	return s.repo.Create(ctx, f)
}

func (s *Service) GetFollowUp(ctx context.Context, id uuid.UUID) (*FollowUp, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*FollowUp, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

// ActiveForPatient returns the follow-up awaiting a response for the
// patient, or ErrNoActiveFollowUp.
func (s *Service) ActiveForPatient(ctx context.Context, patientID uuid.UUID) (*FollowUp, error) {
	f, err := s.repo.ActiveForPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, ErrNoActiveFollowUp
	}
	return f, nil
}

// MarkSent records that the questionnaire invitation went out.
func (s *Service) MarkSent(ctx context.Context, id uuid.UUID) (*FollowUp, error) {
	return s.transition(ctx, id, StatusSent, nil)
}

// MarkResponded closes the follow-up cycle.
func (s *Service) MarkResponded(ctx context.Context, id uuid.UUID) (*FollowUp, error) {
	now := time.Now()
	return s.transition(ctx, id, StatusResponded, &now)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, to string, respondedAt *time.Time) (*FollowUp, error) {
	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if f.Status == to {
		// Redelivered transition. Nothing left to change.
		return f, nil
	}
	if !CanTransition(f.Status, to) {
		return nil, fmt.Errorf("cannot transition follow-up from %s to %s", f.Status, to)
	}
	f.Status = to
	if respondedAt != nil {
		f.RespondedAt = respondedAt
	}
	if err := s.repo.UpdateStatus(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}
