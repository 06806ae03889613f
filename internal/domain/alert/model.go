package alert

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aftercare/aftercare/internal/domain/triage"
)

// Alert is the structured physician notification for one high or
// critical risk assessment.
type Alert struct {
	AssessmentID uuid.UUID         `json:"assessment_id"`
	PatientID    uuid.UUID         `json:"patient_id"`
	PatientName  string            `json:"patient_name"`
	PatientPhone string            `json:"patient_phone"`
	SurgeryType  string            `json:"surgery_type"`
	DayOffset    int               `json:"day_offset"`
	Level        triage.Level      `json:"level"`
	Flags        []triage.RedFlag  `json:"flags"`
	Answers      map[string]string `json:"answers"`
	CreatedAt    time.Time         `json:"created_at"`
}

// Format renders the alert as the message text sent on the physician
// channel.
func (a *Alert) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "🚨 ALERTA %s — %s\n", strings.ToUpper(a.Level.String()), a.PatientName)
	fmt.Fprintf(&b, "Cirurgia: %s (D+%d)\n", a.SurgeryType, a.DayOffset)
	fmt.Fprintf(&b, "Telefone: %s\n", a.PatientPhone)
	if len(a.Flags) > 0 {
		b.WriteString("Sinais de alerta:\n")
		for _, f := range a.Flags {
			fmt.Fprintf(&b, "  - %s: %s\n", f.Tag, f.Message)
		}
	}
	if len(a.Answers) > 0 {
		b.WriteString("Respostas:\n")
		for k, v := range a.Answers {
			fmt.Fprintf(&b, "  %s: %s\n", k, v)
		}
	}
	return b.String()
}
