// Package classifier calls the external AI risk classification service.
package classifier

import (
	"context"
)

// Input carries everything the classification service needs to assess a
// patient reply: demographics, surgical context and the structured answers
// collected during the follow-up conversation.
type Input struct {
	PatientName string            `json:"patient_name"`
	SurgeryType string            `json:"surgery_type"`
	DayOffset   int               `json:"day_offset"`
	Answers     map[string]string `json:"answers"`
	RuleFlags   []string          `json:"rule_flags"`
}

// Result is the classifier's verdict. Level is the service's own risk
// estimate; AdditionalFlags are findings the deterministic rules missed.
type Result struct {
	Level            string   `json:"level"`
	AdditionalFlags  []string `json:"additional_flags"`
	PatientReply     string   `json:"patient_reply"`
	EscalationAdvice string   `json:"escalation_advice"`
}

// Classifier augments rule-based triage with an AI assessment. Every
// failure mode is transient: callers fall back to rule-only triage and
// must never fail the pipeline because of a classifier error.
type Classifier interface {
	Classify(ctx context.Context, in Input) (*Result, error)
}
