package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aftercare/aftercare/internal/domain/patient"
	"github.com/aftercare/aftercare/internal/domain/triage"
)

// Dispatcher escalates high and critical assessments to the physician
// channel, at most once per assessment.
type Dispatcher struct {
	assessments triage.AssessmentRepository
	queue       Queue
	logger      zerolog.Logger
}

func NewDispatcher(assessments triage.AssessmentRepository, queue Queue, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{assessments: assessments, queue: queue, logger: logger}
}

// Dispatch enqueues a physician alert if the fused level warrants one.
// The conditional alerted-flag update claims the assessment first, so a
// retried inbound message can never produce a second notification.
func (d *Dispatcher) Dispatch(ctx context.Context, a *triage.RiskAssessment, p *patient.Patient, surgeryType string, rawAnswers map[string]string) error {
	if a.FinalLevel < triage.LevelHigh {
		return nil
	}

	won, err := d.assessments.MarkAlerted(ctx, a.ID)
	if err != nil {
		return fmt.Errorf("mark assessment alerted: %w", err)
	}
	if !won {
		d.logger.Debug().
			Str("assessment_id", a.ID.String()).
			Msg("assessment already alerted, skipping dispatch")
		return nil
	}

	alert := &Alert{
		AssessmentID: a.ID,
		PatientID:    p.ID,
		PatientName:  p.FullName,
		PatientPhone: p.Phone,
		SurgeryType:  surgeryType,
		DayOffset:    a.DayOffset,
		Level:        a.FinalLevel,
		Flags:        a.Flags,
		Answers:      rawAnswers,
		CreatedAt:    time.Now(),
	}
	if err := d.queue.Enqueue(ctx, alert); err != nil {
		// The claim already happened; an operator must re-dispatch.
		d.logger.Error().Err(err).
			Str("assessment_id", a.ID.String()).
			Msg("failed to enqueue physician alert")
		return fmt.Errorf("enqueue alert: %w", err)
	}
	d.logger.Info().
		Str("assessment_id", a.ID.String()).
		Str("patient_id", p.ID.String()).
		Str("level", a.FinalLevel.String()).
		Msg("physician alert enqueued")
	return nil
}

// Redispatch forces a new notification for an assessment whose alert is
// stuck, regardless of the alerted flag. Clinician-triggered only.
func (d *Dispatcher) Redispatch(ctx context.Context, a *triage.RiskAssessment, p *patient.Patient, surgeryType string) error {
	alert := &Alert{
		AssessmentID: a.ID,
		PatientID:    p.ID,
		PatientName:  p.FullName,
		PatientPhone: p.Phone,
		SurgeryType:  surgeryType,
		DayOffset:    a.DayOffset,
		Level:        a.FinalLevel,
		Flags:        a.Flags,
		CreatedAt:    time.Now(),
	}
	if _, err := d.assessments.MarkAlerted(ctx, a.ID); err != nil {
		return fmt.Errorf("mark assessment alerted: %w", err)
	}
	return d.queue.Enqueue(ctx, alert)
}
