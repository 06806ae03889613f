package triage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aftercare/aftercare/internal/platform/classifier"
)

type mockAssessmentRepo struct {
	assessments map[uuid.UUID]*RiskAssessment
}

func newMockAssessmentRepo() *mockAssessmentRepo {
	return &mockAssessmentRepo{assessments: make(map[uuid.UUID]*RiskAssessment)}
}

func (m *mockAssessmentRepo) Create(_ context.Context, a *RiskAssessment) error {
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	m.assessments[a.ID] = a
	return nil
}

func (m *mockAssessmentRepo) GetByID(_ context.Context, id uuid.UUID) (*RiskAssessment, error) {
	a, ok := m.assessments[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return a, nil
}

func (m *mockAssessmentRepo) GetByFollowUp(_ context.Context, followUpID uuid.UUID) (*RiskAssessment, error) {
	for _, a := range m.assessments {
		if a.FollowUpID == followUpID {
			return a, nil
		}
	}
	return nil, nil
}

func (m *mockAssessmentRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*RiskAssessment, int, error) {
	var result []*RiskAssessment
	for _, a := range m.assessments {
		if a.PatientID == patientID {
			result = append(result, a)
		}
	}
	return result, len(result), nil
}

func (m *mockAssessmentRepo) MarkAlerted(_ context.Context, id uuid.UUID) (bool, error) {
	a, ok := m.assessments[id]
	if !ok {
		return false, fmt.Errorf("not found")
	}
	if a.Alerted {
		return false, nil
	}
	a.Alerted = true
	now := time.Now()
	a.AlertedAt = &now
	return true, nil
}

type stubClassifier struct {
	result *classifier.Result
	err    error
	calls  int
}

func (s *stubClassifier) Classify(_ context.Context, _ classifier.Input) (*classifier.Result, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func testLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).Level(zerolog.Disabled)
}

func TestAssess_ClassifierDownFallsBackToRules(t *testing.T) {
	repo := newMockAssessmentRepo()
	cls := &stubClassifier{err: errors.New("connection refused")}
	svc := NewService(repo, cls, testLogger())

	// Day 7 hemorroidectomia with severe pain and severe bleeding.
	a, err := svc.Assess(context.Background(), AssessInput{
		PatientID:   uuid.New(),
		FollowUpID:  uuid.New(),
		SurgeryType: "hemorroidectomia",
		DayOffset:   7,
		Answers:     AnswerSet{PainAtRest: intp(9), Bleeding: "severe"},
		RawAnswers:  map[string]string{"pain_at_rest": "9", "bleeding": "intenso"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.RuleLevel != LevelCritical || a.FinalLevel != LevelCritical {
		t.Errorf("expected critical rule and final level, got %s/%s", a.RuleLevel, a.FinalLevel)
	}
	if a.AILevel != LevelLow {
		t.Errorf("expected absent aiLevel to read as low, got %s", a.AILevel)
	}
	got := map[string]bool{}
	for _, f := range a.Flags {
		got[f.Tag] = true
	}
	if !got["severe_pain"] || !got["active_bleeding"] {
		t.Errorf("expected severe_pain and active_bleeding flags, got %+v", a.Flags)
	}
	if a.ResponseText == "" {
		t.Error("expected a fallback reply when the classifier is down")
	}
}

func TestAssess_ClassifierMediumWithAnxietyFlag(t *testing.T) {
	repo := newMockAssessmentRepo()
	cls := &stubClassifier{result: &classifier.Result{
		Level:           "medium",
		AdditionalFlags: []string{"anxiety"},
		PatientReply:    "Entendo sua preocupação, é normal sentir-se assim.",
	}}
	svc := NewService(repo, cls, testLogger())

	a, err := svc.Assess(context.Background(), AssessInput{
		PatientID:   uuid.New(),
		FollowUpID:  uuid.New(),
		SurgeryType: "hemorroidectomia",
		DayOffset:   7,
		Answers:     AnswerSet{PainAtRest: intp(2), Bleeding: "none"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.RuleLevel != LevelLow {
		t.Errorf("expected rule level low, got %s", a.RuleLevel)
	}
	if a.FinalLevel != LevelMedium {
		t.Errorf("expected final level medium, got %s", a.FinalLevel)
	}
	if len(a.Flags) != 1 || a.Flags[0].Tag != "anxiety" {
		t.Errorf("expected exactly the anxiety flag, got %+v", a.Flags)
	}
	if a.ResponseText != "Entendo sua preocupação, é normal sentir-se assim." {
		t.Errorf("expected classifier reply to be used, got %q", a.ResponseText)
	}
}

func TestAssess_FinalLevelNeverBelowEitherInput(t *testing.T) {
	repo := newMockAssessmentRepo()
	cls := &stubClassifier{result: &classifier.Result{Level: "high"}}
	svc := NewService(repo, cls, testLogger())

	a, err := svc.Assess(context.Background(), AssessInput{
		PatientID:   uuid.New(),
		FollowUpID:  uuid.New(),
		SurgeryType: "colecistectomia",
		DayOffset:   2,
		Answers:     AnswerSet{Temperature: floatp(38.3)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.FinalLevel < a.RuleLevel || a.FinalLevel < a.AILevel {
		t.Errorf("final level %s below inputs %s/%s", a.FinalLevel, a.RuleLevel, a.AILevel)
	}
	if a.FinalLevel != LevelHigh {
		t.Errorf("expected high, got %s", a.FinalLevel)
	}
}

func TestAssess_RedeliveredFollowUpReusesAssessment(t *testing.T) {
	repo := newMockAssessmentRepo()
	cls := &stubClassifier{err: errors.New("connection refused")}
	svc := NewService(repo, cls, testLogger())

	in := AssessInput{
		PatientID:   uuid.New(),
		FollowUpID:  uuid.New(),
		SurgeryType: "hemorroidectomia",
		DayOffset:   7,
		Answers:     AnswerSet{PainAtRest: intp(9), Bleeding: "severe"},
	}
	first, err := svc.Assess(context.Background(), in)
	if err != nil {
		t.Fatalf("first assess: %v", err)
	}
	second, err := svc.Assess(context.Background(), in)
	if err != nil {
		t.Fatalf("second assess: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("expected the recorded assessment back, got %s and %s", first.ID, second.ID)
	}
	if len(repo.assessments) != 1 {
		t.Fatalf("expected one assessment row, got %d", len(repo.assessments))
	}
	if second.ResponseText != first.ResponseText {
		t.Error("reused assessment must carry the original reply text")
	}
}

func TestAssess_WithoutClassifierConfigured(t *testing.T) {
	repo := newMockAssessmentRepo()
	svc := NewService(repo, nil, testLogger())

	a, err := svc.Assess(context.Background(), AssessInput{
		PatientID:   uuid.New(),
		FollowUpID:  uuid.New(),
		SurgeryType: "herniorrafia",
		DayOffset:   1,
		Answers:     AnswerSet{},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.FinalLevel != LevelLow {
		t.Errorf("expected low, got %s", a.FinalLevel)
	}
	if a.ResponseText == "" {
		t.Error("expected fallback reply text")
	}
}
