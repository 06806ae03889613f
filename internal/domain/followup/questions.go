package followup

// Question is one entry in the ordered questionnaire for a follow-up.
// Kind drives answer extraction downstream.
type Question struct {
	Key  string `json:"key"`
	Text string `json:"text"`
	Kind string `json:"kind"`
}

// Answer kinds understood by the extraction layer.
const (
	KindScale       = "scale"       // 0-10 numeric
	KindTemperature = "temperature" // degrees Celsius
	KindYesNo       = "yesno"
	KindSeverity    = "severity" // none / mild / moderate / severe
	KindFreeText    = "freetext"
)

var baseQuestions = []Question{
	{Key: "pain_at_rest", Text: "De 0 a 10, qual a sua dor em repouso agora?", Kind: KindScale},
	{Key: "temperature", Text: "Qual foi sua temperatura mais alta hoje? (em °C)", Kind: KindTemperature},
	{Key: "bleeding", Text: "Está havendo sangramento? Responda: nenhum, leve, moderado ou intenso.", Kind: KindSeverity},
	{Key: "wound_discharge", Text: "A ferida está com secreção? Responda: nenhuma, clara ou purulenta.", Kind: KindSeverity},
	{Key: "breathing_difficulty", Text: "Está com falta de ar ou dificuldade para respirar? (sim/não)", Kind: KindYesNo},
	{Key: "general_wellbeing", Text: "Como você está se sentindo no geral hoje?", Kind: KindFreeText},
}

var surgeryQuestions = map[string][]Question{
	"hemorroidectomia": {
		{Key: "pain_at_rest", Text: "De 0 a 10, qual a sua dor em repouso agora?", Kind: KindScale},
		{Key: "pain_evacuation", Text: "De 0 a 10, qual a dor ao evacuar?", Kind: KindScale},
		{Key: "temperature", Text: "Qual foi sua temperatura mais alta hoje? (em °C)", Kind: KindTemperature},
		{Key: "bleeding", Text: "Está havendo sangramento anal? Responda: nenhum, leve, moderado ou intenso.", Kind: KindSeverity},
		{Key: "bowel_movement", Text: "Você já conseguiu evacuar desde a cirurgia? (sim/não)", Kind: KindYesNo},
		{Key: "urinary_retention", Text: "Está com dificuldade para urinar? (sim/não)", Kind: KindYesNo},
		{Key: "general_wellbeing", Text: "Como você está se sentindo no geral hoje?", Kind: KindFreeText},
	},
	"colecistectomia": {
		{Key: "pain_at_rest", Text: "De 0 a 10, qual a sua dor em repouso agora?", Kind: KindScale},
		{Key: "temperature", Text: "Qual foi sua temperatura mais alta hoje? (em °C)", Kind: KindTemperature},
		{Key: "wound_discharge", Text: "Algum dos cortes está com secreção? Responda: nenhuma, clara ou purulenta.", Kind: KindSeverity},
		{Key: "nausea", Text: "Está com náusea ou vômitos? (sim/não)", Kind: KindYesNo},
		{Key: "breathing_difficulty", Text: "Está com falta de ar ou dificuldade para respirar? (sim/não)", Kind: KindYesNo},
		{Key: "general_wellbeing", Text: "Como você está se sentindo no geral hoje?", Kind: KindFreeText},
	},
	"herniorrafia": {
		{Key: "pain_at_rest", Text: "De 0 a 10, qual a sua dor em repouso agora?", Kind: KindScale},
		{Key: "temperature", Text: "Qual foi sua temperatura mais alta hoje? (em °C)", Kind: KindTemperature},
		{Key: "bleeding", Text: "O curativo está com sangramento? Responda: nenhum, leve, moderado ou intenso.", Kind: KindSeverity},
		{Key: "wound_discharge", Text: "A ferida está com secreção? Responda: nenhuma, clara ou purulenta.", Kind: KindSeverity},
		{Key: "urinary_retention", Text: "Está com dificuldade para urinar? (sim/não)", Kind: KindYesNo},
		{Key: "general_wellbeing", Text: "Como você está se sentindo no geral hoje?", Kind: KindFreeText},
	},
}

// QuestionsFor returns the ordered questionnaire for a surgery type and
// day offset. Unknown surgery types fall back to the base set. The
// returned slice is a copy; callers may not mutate the catalog.
func QuestionsFor(surgeryType string, dayOffset int) []Question {
	qs, ok := surgeryQuestions[surgeryType]
	if !ok {
		qs = baseQuestions
	}
	out := make([]Question, len(qs))
	copy(out, qs)
	return out
}
