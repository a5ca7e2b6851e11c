package service

import (
	"fmt"
	"strings"

	"affection-tracker/internal/domain"
)

// ScoringConfig unifica las variantes del motor: umbral, exclusion de neutral,
// tabla de pesos, expansion de etiquetas, reglas de combinacion y bandas.
type ScoringConfig struct {
	MinConfidence  float64
	ExcludeNeutral bool
	WeightMode     domain.WeightMode
	Weights        map[string]int
	Expansion      map[string][]string
	Combinations   []domain.CombinationRule
	Bands          []domain.ScoreBand
}

// Validate revisa umbral, modo, reglas y bandas.
func (c ScoringConfig) Validate() error {
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("%w: min_confidence %.3f out of [0,1]", ErrInvalidScoringConfig, c.MinConfidence)
	}
	switch c.WeightMode {
	case domain.WeightModeFlat, domain.WeightModeScaled:
	default:
		return fmt.Errorf("%w: unknown weight mode %q", ErrInvalidScoringConfig, c.WeightMode)
	}
	if err := ValidateRules(c.Combinations); err != nil {
		return err
	}
	return ValidateBands(c.Bands)
}

// ScoringPipeline ejecuta normalizador -> expansion -> filtro -> {combinaciones, pesos} -> clamp.
type ScoringPipeline struct {
	cfg ScoringConfig
}

func NewScoringPipeline(cfg ScoringConfig) (*ScoringPipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	weights := make(map[string]int, len(cfg.Weights))
	for label, w := range cfg.Weights {
		weights[strings.ToLower(strings.TrimSpace(label))] = w
	}
	cfg.Weights = weights

	expansion := make(map[string][]string, len(cfg.Expansion))
	for label, subs := range cfg.Expansion {
		expansion[strings.ToLower(strings.TrimSpace(label))] = subs
	}
	cfg.Expansion = expansion
	return &ScoringPipeline{cfg: cfg}, nil
}

// Config devuelve la configuracion efectiva.
func (p *ScoringPipeline) Config() ScoringConfig {
	return p.cfg
}

// ScoreRaw normaliza la respuesta cruda del clasificador y la puntua.
func (p *ScoringPipeline) ScoreRaw(raw []byte) (domain.ScoringResult, error) {
	normalized, err := NormalizeClassifierOutput(raw)
	if err != nil {
		return domain.ScoringResult{}, err
	}
	result := p.Score(normalized.Observations)
	if normalized.Dropped > 0 {
		notes := append([]string{fmt.Sprintf("%d malformed classifier entries dropped", normalized.Dropped)}, normalized.Notes...)
		result.DiagnosticLog = append(notes, result.DiagnosticLog...)
	}
	return result, nil
}

// Score puntua observaciones ya normalizadas.
func (p *ScoringPipeline) Score(observations []domain.EmotionObservation) domain.ScoringResult {
	expanded := ExpandLabels(observations, p.cfg.Expansion)
	active := p.Active(expanded)

	logs := []string{"Emotion output: " + formatObservations(active)}

	combos := MatchCombinations(active, p.cfg.Combinations)
	logs = append(logs, combos.Log...)

	weights := AccumulateWeights(active, combos.Consumed, p.cfg.Weights, p.cfg.WeightMode)
	logs = append(logs, weights.Log...)

	total := float64(combos.Total) + weights.Total
	delta := ClampDelta(total)
	logs = append(logs, fmt.Sprintf("total %.2f -> delta %+d", total, delta))

	return domain.ScoringResult{
		Delta:               delta,
		RawTotal:            total,
		CombinationTotal:    combos.Total,
		IndividualTotal:     weights.Total,
		ConsumedLabels:      combos.ConsumedOrder,
		MatchedCombinations: combos.Matches,
		ActiveEmotions:      active,
		DiagnosticLog:       logs,
	}
}

// Active aplica solo el filtro de confianza de esta configuracion.
func (p *ScoringPipeline) Active(observations []domain.EmotionObservation) []domain.EmotionObservation {
	return FilterActive(observations, p.cfg.MinConfidence, p.cfg.ExcludeNeutral)
}

func formatObservations(obs []domain.EmotionObservation) string {
	if len(obs) == 0 {
		return "(none above threshold)"
	}
	parts := make([]string, 0, len(obs))
	for _, o := range obs {
		parts = append(parts, fmt.Sprintf("%s (%.1f%%)", o.Label, o.Confidence*100))
	}
	return strings.Join(parts, ", ")
}
