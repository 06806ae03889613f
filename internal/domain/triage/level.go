package triage

import (
	"encoding/json"
	"fmt"
)

// Level is an ordinal risk level. The ordering low < medium < high <
// critical is load-bearing: fusion takes the maximum.
type Level int

const (
	LevelLow Level = iota
	LevelMedium
	LevelHigh
	LevelCritical
)

var levelNames = map[Level]string{
	LevelLow:      "low",
	LevelMedium:   "medium",
	LevelHigh:     "high",
	LevelCritical: "critical",
}

func (l Level) String() string {
	if s, ok := levelNames[l]; ok {
		return s
	}
	return "low"
}

// ParseLevel maps a level name to its ordinal. Unknown names parse as
// low so a misbehaving classifier can never escalate by accident.
func ParseLevel(s string) Level {
	for l, name := range levelNames {
		if name == s {
			return l
		}
	}
	return LevelLow
}

func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

func (l *Level) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("unmarshal risk level: %w", err)
	}
	*l = ParseLevel(s)
	return nil
}

// Fuse combines the rule-derived and AI-derived levels: the final level
// is exactly the maximum of the two, never inflated.
func Fuse(rule, ai Level) Level {
	if ai > rule {
		return ai
	}
	return rule
}

// MergeFlags unions two flag sets by tag, keeping first-seen order and
// collapsing duplicates.
func MergeFlags(a, b []RedFlag) []RedFlag {
	seen := make(map[string]bool, len(a)+len(b))
	var out []RedFlag
	for _, f := range append(append([]RedFlag{}, a...), b...) {
		if seen[f.Tag] {
			continue
		}
		seen[f.Tag] = true
		out = append(out, f)
	}
	return out
}
