package service

import (
	"fmt"
	"strings"

	"affection-tracker/internal/domain"
)

// WeightOutcome es el subtotal del acumulador individual.
type WeightOutcome struct {
	Total float64
	Log   []string
}

// AccumulateWeights suma el peso de cada etiqueta activa no consumida por un patron.
// Etiquetas desconocidas aportan cero. El modo se aplica igual a todas.
func AccumulateWeights(active []domain.EmotionObservation, consumed map[string]struct{}, weights map[string]int, mode domain.WeightMode) WeightOutcome {
	var outcome WeightOutcome
	for _, obs := range active {
		label := strings.ToLower(strings.TrimSpace(obs.Label))
		if _, ok := consumed[label]; ok {
			continue
		}
		weight := weights[label]
		switch mode {
		case domain.WeightModeFlat:
			outcome.Total += float64(weight)
			outcome.Log = append(outcome.Log, fmt.Sprintf("%s: %+d", label, weight))
		default:
			contribution := float64(weight) * obs.Confidence
			outcome.Total += contribution
			outcome.Log = append(outcome.Log, fmt.Sprintf("%s: %d x %.2f = %.2f", label, weight, obs.Confidence, contribution))
		}
	}
	return outcome
}
