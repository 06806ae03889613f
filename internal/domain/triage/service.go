package triage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aftercare/aftercare/internal/platform/classifier"
)

// Fallback replies used when the classifier is unavailable or returns
// no patient-facing text. The patient always gets some reply.
var fallbackReplies = map[Level]string{
	LevelLow:      "Obrigado pelas respostas! Tudo parece dentro do esperado. Seguimos acompanhando sua recuperação.",
	LevelMedium:   "Obrigado pelas respostas. Alguns pontos merecem atenção; continue seguindo as orientações e nos avise se algo piorar.",
	LevelHigh:     "Obrigado pelas respostas. Identificamos sinais que merecem avaliação: seu médico foi notificado e deve entrar em contato.",
	LevelCritical: "Seus sintomas precisam de avaliação imediata. Seu médico já foi acionado. Se piorar, procure o pronto-socorro.",
}

// AssessInput is everything needed to produce one RiskAssessment at
// the end of a questionnaire.
type AssessInput struct {
	PatientID   uuid.UUID
	PatientName string
	FollowUpID  uuid.UUID
	SurgeryType string
	DayOffset   int
	Answers     AnswerSet
	RawAnswers  map[string]string
}

type Service struct {
	repo       AssessmentRepository
	classifier classifier.Classifier
	logger     zerolog.Logger
}

func NewService(repo AssessmentRepository, cls classifier.Classifier, logger zerolog.Logger) *Service {
	return &Service{repo: repo, classifier: cls, logger: logger}
}

// Assess runs the rule engine, consults the classifier, fuses both
// levels and persists the resulting assessment. Classifier failure is
// never fatal: the assessment degrades to rule-only and the event is
// logged for later review. A follow-up that was already assessed gets
// its existing assessment back, so a redelivered completion converges
// instead of recording a second verdict.
func (s *Service) Assess(ctx context.Context, in AssessInput) (*RiskAssessment, error) {
	existing, err := s.repo.GetByFollowUp(ctx, in.FollowUpID)
	if err != nil {
		return nil, fmt.Errorf("load existing assessment: %w", err)
	}
	if existing != nil {
		s.logger.Info().
			Str("follow_up_id", in.FollowUpID.String()).
			Str("assessment_id", existing.ID.String()).
			Msg("follow-up already assessed, reusing assessment")
		return existing, nil
	}

	ruleFlags, ruleLevel := Evaluate(in.SurgeryType, in.DayOffset, in.Answers)

	aiLevel := LevelLow
	var aiFlags []RedFlag
	responseText := ""

	if s.classifier != nil {
		tags := make([]string, len(ruleFlags))
		for i, f := range ruleFlags {
			tags[i] = f.Tag
		}
		result, err := s.classifier.Classify(ctx, classifier.Input{
			PatientName: in.PatientName,
			SurgeryType: in.SurgeryType,
			DayOffset:   in.DayOffset,
			Answers:     in.RawAnswers,
			RuleFlags:   tags,
		})
		if err != nil {
			s.logger.Warn().Err(err).
				Str("patient_id", in.PatientID.String()).
				Msg("classifier unavailable, degrading to rule-only triage")
		} else {
			aiLevel = ParseLevel(result.Level)
			for _, tag := range result.AdditionalFlags {
				aiFlags = append(aiFlags, RedFlag{Tag: tag, Message: tag})
			}
			responseText = result.PatientReply
		}
	}

	finalLevel := Fuse(ruleLevel, aiLevel)
	if responseText == "" {
		responseText = fallbackReplies[finalLevel]
	}

	assessment := &RiskAssessment{
		PatientID:    in.PatientID,
		FollowUpID:   in.FollowUpID,
		DayOffset:    in.DayOffset,
		RuleLevel:    ruleLevel,
		AILevel:      aiLevel,
		FinalLevel:   finalLevel,
		Flags:        MergeFlags(ruleFlags, aiFlags),
		Answers:      in.Answers,
		ResponseText: responseText,
	}
	if err := s.repo.Create(ctx, assessment); err != nil {
		return nil, fmt.Errorf("persist risk assessment: %w", err)
	}
	return assessment, nil
}

func (s *Service) GetAssessment(ctx context.Context, id uuid.UUID) (*RiskAssessment, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*RiskAssessment, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}
