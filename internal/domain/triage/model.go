package triage

import (
	"time"

	"github.com/google/uuid"
)

// RiskAssessment maps to the risk_assessment table. Immutable once
// created; only Alerted/AlertedAt mutate afterwards, exactly once.
type RiskAssessment struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	PatientID    uuid.UUID  `db:"patient_id" json:"patient_id"`
	FollowUpID   uuid.UUID  `db:"follow_up_id" json:"follow_up_id"`
	DayOffset    int        `db:"day_offset" json:"day_offset"`
	RuleLevel    Level      `db:"rule_level" json:"rule_level"`
	AILevel      Level      `db:"ai_level" json:"ai_level"`
	FinalLevel   Level      `db:"final_level" json:"final_level"`
	Flags        []RedFlag  `db:"flags" json:"flags"`
	Answers      AnswerSet  `db:"answers" json:"answers"`
	ResponseText string     `db:"response_text" json:"response_text"`
	Alerted      bool       `db:"alerted" json:"alerted"`
	AlertedAt    *time.Time `db:"alerted_at" json:"alerted_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}
