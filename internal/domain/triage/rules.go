package triage

// RedFlag is a symbolic finding plus a human-readable message for the
// physician alert.
type RedFlag struct {
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// AnswerSet is the structured questionnaire extraction the rule engine
// evaluates. Pointer fields distinguish "not asked" from a zero answer.
type AnswerSet struct {
	PainAtRest          *int     `json:"pain_at_rest,omitempty"`
	PainEvacuation      *int     `json:"pain_evacuation,omitempty"`
	Temperature         *float64 `json:"temperature,omitempty"`
	Bleeding            string   `json:"bleeding,omitempty"`
	WoundDischarge      string   `json:"wound_discharge,omitempty"`
	BowelMovement       *bool    `json:"bowel_movement,omitempty"`
	UrinaryRetention    *bool    `json:"urinary_retention,omitempty"`
	BreathingDifficulty *bool    `json:"breathing_difficulty,omitempty"`
	Confusion           *bool    `json:"confusion,omitempty"`
	Nausea              *bool    `json:"nausea,omitempty"`
	FreeText            string   `json:"free_text,omitempty"`
}

// Flag classes drive the rule-to-level table. A critical-class flag
// alone forces critical; a high-class flag forces high. The zero value
// is the benign class: a tag missing from the table must never
// escalate on its own.
const (
	classOther = iota
	classHigh
	classCritical
)

var flagClass = map[string]int{
	"active_bleeding":       classCritical,
	"respiratory_distress":  classCritical,
	"altered_consciousness": classCritical,
	"severe_pain":           classHigh,
	"high_fever":            classHigh,
	"bleeding":              classHigh,
	"urinary_retention":     classHigh,
	"fever":                 classOther,
	"bowel_retention":       classOther,
	"wound_infection":       classOther,
	"nausea":                classOther,
}

// bowelDayThreshold is the post-op day by which a bowel movement is
// expected for each surgery type.
var bowelDayThreshold = map[string]int{
	"hemorroidectomia": 3,
	"colecistectomia":  4,
	"herniorrafia":     4,
}

const defaultBowelThreshold = 4

// Evaluate is the deterministic red-flag rule engine. It is pure:
// identical inputs always yield the identical flag set and level.
func Evaluate(surgeryType string, day int, a AnswerSet) ([]RedFlag, Level) {
	var flags []RedFlag
	add := func(tag, message string) {
		flags = append(flags, RedFlag{Tag: tag, Message: message})
	}

	if a.Temperature != nil {
		if *a.Temperature >= 39.5 {
			add("fever", "febre relatada (temperatura ≥ 38°C)")
			add("high_fever", "febre alta relatada (temperatura ≥ 39.5°C)")
		} else if *a.Temperature >= 38.0 {
			add("fever", "febre relatada (temperatura ≥ 38°C)")
		}
	}

	maxPain := 0
	if a.PainAtRest != nil && *a.PainAtRest > maxPain {
		maxPain = *a.PainAtRest
	}
	if a.PainEvacuation != nil && *a.PainEvacuation > maxPain {
		maxPain = *a.PainEvacuation
	}
	if maxPain >= 8 {
		add("severe_pain", "dor intensa relatada (≥ 8/10)")
	}

	switch a.Bleeding {
	case "severe":
		add("active_bleeding", "sangramento intenso relatado")
	case "moderate":
		add("bleeding", "sangramento moderado relatado")
	}

	if a.WoundDischarge == "purulent" {
		add("wound_infection", "secreção purulenta na ferida")
	}

	threshold, ok := bowelDayThreshold[surgeryType]
	if !ok {
		threshold = defaultBowelThreshold
	}
	if a.BowelMovement != nil && !*a.BowelMovement && day >= threshold {
		add("bowel_retention", "sem evacuação até o dia esperado")
	}

	if a.UrinaryRetention != nil && *a.UrinaryRetention {
		add("urinary_retention", "dificuldade para urinar relatada")
	}
	if a.BreathingDifficulty != nil && *a.BreathingDifficulty {
		add("respiratory_distress", "dificuldade respiratória relatada")
	}
	if a.Confusion != nil && *a.Confusion {
		add("altered_consciousness", "confusão ou sonolência relatada")
	}
	if a.Nausea != nil && *a.Nausea {
		add("nausea", "náusea ou vômitos relatados")
	}

	return flags, levelFor(flags)
}

func levelFor(flags []RedFlag) Level {
	if len(flags) == 0 {
		return LevelLow
	}
	highCount := 0
	for _, f := range flags {
		switch flagClass[f.Tag] {
		case classCritical:
			return LevelCritical
		case classHigh:
			highCount++
		}
	}
	if highCount >= 1 {
		return LevelHigh
	}
	return LevelMedium
}
