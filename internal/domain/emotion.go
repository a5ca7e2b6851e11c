package domain

// EmotionObservation es un par etiqueta/confianza producido por el clasificador en un turno.
type EmotionObservation struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// EmotionThreshold exige una etiqueta con confianza minima.
type EmotionThreshold struct {
	Label         string  `json:"label" toml:"label"`
	MinConfidence float64 `json:"min" toml:"min"`
}

// CombinationRule describe un patron emocional sobre varias etiquetas simultaneas.
// Una regla con Score 0 igual consume sus etiquetas.
type CombinationRule struct {
	Name                    string             `json:"name"`
	Score                   int                `json:"score"`
	Core                    []EmotionThreshold `json:"core"`
	Support                 []EmotionThreshold `json:"support,omitempty"`
	RequiredTotalConfidence *float64           `json:"required_total_confidence,omitempty"`
	Description             string             `json:"description,omitempty"`
}

// CombinationMatch registra una regla que disparo en el turno.
type CombinationMatch struct {
	Name        string `json:"name"`
	Score       int    `json:"score"`
	Description string `json:"description,omitempty"`
}

// WeightMode define como se aplica el peso individual de cada etiqueta.
type WeightMode string

const (
	// WeightModeFlat suma el peso tal cual.
	WeightModeFlat WeightMode = "flat"
	// WeightModeScaled suma peso * confianza.
	WeightModeScaled WeightMode = "scaled"
)

// ScoringResult es el resultado efimero de puntuar un turno.
type ScoringResult struct {
	Delta               int                  `json:"delta"`
	RawTotal            float64              `json:"raw_total"`
	CombinationTotal    int                  `json:"combination_total"`
	IndividualTotal     float64              `json:"individual_total"`
	ConsumedLabels      []string             `json:"consumed_labels"`
	MatchedCombinations []CombinationMatch   `json:"matched_combinations"`
	ActiveEmotions      []EmotionObservation `json:"active_emotions"`
	DiagnosticLog       []string             `json:"diagnostic_log"`
}
