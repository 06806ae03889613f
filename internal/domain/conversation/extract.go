package conversation

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/aftercare/aftercare/internal/domain/followup"
	"github.com/aftercare/aftercare/internal/domain/triage"
)

// Keyword and regex extraction only. Anything beyond this is the
// classifier's job, not ours.

var (
	intPattern     = regexp.MustCompile(`\b(10|[0-9])\b`)
	decimalPattern = regexp.MustCompile(`\b([2-9][0-9])(?:[.,]([0-9]))?\b`)
)

// affirmativeTokens is the accepted confirmation set. Matching is a
// case-insensitive exact match on the trimmed reply.
var affirmativeTokens = map[string]bool{
	"sim":   true,
	"yes":   true,
	"ok":    true,
	"claro": true,
	"pode":  true,
	"vamos": true,
	"1":     true,
}

// IsAffirmative reports whether a reply confirms the questionnaire
// invitation.
func IsAffirmative(text string) bool {
	return affirmativeTokens[strings.ToLower(strings.TrimSpace(text))]
}

// ParseScale extracts a 0-10 score from a reply.
func ParseScale(text string) *int {
	m := intPattern.FindString(text)
	if m == "" {
		return nil
	}
	v, err := strconv.Atoi(m)
	if err != nil || v < 0 || v > 10 {
		return nil
	}
	return &v
}

// ParseTemperature extracts a body temperature in °C, accepting both
// "38.5" and "38,5".
func ParseTemperature(text string) *float64 {
	m := decimalPattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	raw := m[1]
	if m[2] != "" {
		raw += "." + m[2]
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 30 || v > 45 {
		return nil
	}
	return &v
}

var yesWords = []string{"sim", "yes", "tive", "consegui", "estou", "tenho"}
var noWords = []string{"não", "nao", "no", "nenhum", "nenhuma", "nada"}

// ParseYesNo extracts a boolean answer. Nil means undecidable.
func ParseYesNo(text string) *bool {
	t := strings.ToLower(strings.TrimSpace(text))
	for _, w := range noWords {
		if strings.Contains(t, w) {
			v := false
			return &v
		}
	}
	for _, w := range yesWords {
		if strings.Contains(t, w) {
			v := true
			return &v
		}
	}
	return nil
}

// severityWords is checked in order: explicit denials first, then the
// worst severities, so a mixed reply resolves the same way every time.
var severityWords = []struct {
	canonical string
	words     []string
}{
	{"none", []string{"nenhum", "nenhuma", "nada", "sem "}},
	{"purulent", []string{"purulenta", "purulento", "pus", "amarela"}},
	{"severe", []string{"intenso", "intensa", "forte", "muito", "grave"}},
	{"moderate", []string{"moderado", "moderada"}},
	{"mild", []string{"leve", "pouco", "pouca"}},
	{"clear", []string{"clara", "claro"}},
}

// ParseSeverity maps a reply to a canonical severity token, or empty
// when nothing matched.
func ParseSeverity(text string) string {
	t := strings.ToLower(text)
	for _, group := range severityWords {
		for _, w := range group.words {
			if strings.Contains(t, w) {
				return group.canonical
			}
		}
	}
	return ""
}

// BuildAnswerSet converts raw per-question replies into the structured
// set the rule engine evaluates, keyed by the catalog question kinds.
func BuildAnswerSet(questions []followup.Question, raw map[string]string) triage.AnswerSet {
	var a triage.AnswerSet
	var freeText []string
	for _, q := range questions {
		text, ok := raw[q.Key]
		if !ok {
			continue
		}
		switch q.Kind {
		case followup.KindScale:
			v := ParseScale(text)
			switch q.Key {
			case "pain_evacuation":
				a.PainEvacuation = v
			default:
				a.PainAtRest = v
			}
		case followup.KindTemperature:
			a.Temperature = ParseTemperature(text)
		case followup.KindSeverity:
			switch q.Key {
			case "wound_discharge":
				a.WoundDischarge = ParseSeverity(text)
			default:
				a.Bleeding = ParseSeverity(text)
			}
		case followup.KindYesNo:
			v := ParseYesNo(text)
			switch q.Key {
			case "bowel_movement":
				a.BowelMovement = v
			case "urinary_retention":
				a.UrinaryRetention = v
			case "breathing_difficulty":
				a.BreathingDifficulty = v
			case "confusion":
				a.Confusion = v
			case "nausea":
				a.Nausea = v
			}
		case followup.KindFreeText:
			freeText = append(freeText, text)
		}
	}
	a.FreeText = strings.Join(freeText, " ")
	return a
}
