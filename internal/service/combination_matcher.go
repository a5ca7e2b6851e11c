package service

import (
	"errors"
	"fmt"
	"strings"

	"affection-tracker/internal/domain"
)

var ErrInvalidScoringConfig = errors.New("invalid scoring config")

// CombinationOutcome acumula las reglas que dispararon y las etiquetas consumidas.
type CombinationOutcome struct {
	Total    int
	Matches  []domain.CombinationMatch
	Consumed map[string]struct{}
	// ConsumedOrder conserva el orden de primera aparicion para el log.
	ConsumedOrder []string
	Log           []string
}

// IsConsumed indica si la etiqueta (en cualquier capitalizacion) fue consumida por un patron.
func (o CombinationOutcome) IsConsumed(label string) bool {
	_, ok := o.Consumed[strings.ToLower(strings.TrimSpace(label))]
	return ok
}

// MatchCombinations evalua la tabla en orden contra el conjunto activo ORIGINAL.
// Una etiqueta ya consumida puede volver a participar en otra regla: el consumo
// solo afecta al acumulador individual.
func MatchCombinations(active []domain.EmotionObservation, rules []domain.CombinationRule) CombinationOutcome {
	outcome := CombinationOutcome{Consumed: make(map[string]struct{})}
	present := confidenceIndex(active)

	for _, rule := range rules {
		labels, sum, ok := matchRule(rule, present)
		if !ok {
			continue
		}
		if rule.RequiredTotalConfidence != nil && sum < *rule.RequiredTotalConfidence {
			outcome.Log = append(outcome.Log, fmt.Sprintf("combo %q skipped: total confidence %.2f < %.2f", rule.Name, sum, *rule.RequiredTotalConfidence))
			continue
		}

		outcome.Total += rule.Score
		outcome.Matches = append(outcome.Matches, domain.CombinationMatch{
			Name:        rule.Name,
			Score:       rule.Score,
			Description: rule.Description,
		})
		parts := make([]string, 0, len(labels))
		for _, label := range labels {
			parts = append(parts, fmt.Sprintf("%s %.2f", label, present[label]))
			if _, seen := outcome.Consumed[label]; seen {
				continue
			}
			outcome.Consumed[label] = struct{}{}
			outcome.ConsumedOrder = append(outcome.ConsumedOrder, label)
		}
		outcome.Log = append(outcome.Log, fmt.Sprintf("combo %q %+d [%s]", rule.Name, rule.Score, strings.Join(parts, ", ")))
	}
	return outcome
}

// matchRule exige cada core y cada support presentes y sobre su minimo.
// Devuelve las etiquetas (en minuscula) que participaron y la suma de sus confianzas.
func matchRule(rule domain.CombinationRule, present map[string]float64) ([]string, float64, bool) {
	labels := make([]string, 0, len(rule.Core)+len(rule.Support))
	sum := 0.0
	check := func(thresholds []domain.EmotionThreshold) bool {
		for _, th := range thresholds {
			label := strings.ToLower(strings.TrimSpace(th.Label))
			confidence, ok := present[label]
			if !ok || confidence < th.MinConfidence {
				return false
			}
			labels = append(labels, label)
			sum += confidence
		}
		return true
	}

	if len(rule.Core) == 0 || !check(rule.Core) {
		return nil, 0, false
	}
	if len(rule.Support) > 0 && !check(rule.Support) {
		return nil, 0, false
	}
	return labels, sum, true
}

// confidenceIndex arma el mapa etiqueta -> confianza; ante duplicados gana la mayor.
func confidenceIndex(active []domain.EmotionObservation) map[string]float64 {
	index := make(map[string]float64, len(active))
	for _, obs := range active {
		label := strings.ToLower(strings.TrimSpace(obs.Label))
		if current, ok := index[label]; ok && current >= obs.Confidence {
			continue
		}
		index[label] = obs.Confidence
	}
	return index
}

// ValidateRules verifica los invariantes de la tabla de combinaciones.
func ValidateRules(rules []domain.CombinationRule) error {
	names := make(map[string]struct{}, len(rules))
	for i, rule := range rules {
		name := strings.TrimSpace(rule.Name)
		if name == "" {
			return fmt.Errorf("%w: combination #%d has no name", ErrInvalidScoringConfig, i+1)
		}
		key := strings.ToLower(name)
		if _, dup := names[key]; dup {
			return fmt.Errorf("%w: duplicate combination %q", ErrInvalidScoringConfig, name)
		}
		names[key] = struct{}{}

		if len(rule.Core) == 0 {
			return fmt.Errorf("%w: combination %q has empty core", ErrInvalidScoringConfig, name)
		}
		for _, th := range append(append([]domain.EmotionThreshold{}, rule.Core...), rule.Support...) {
			if strings.TrimSpace(th.Label) == "" {
				return fmt.Errorf("%w: combination %q has a threshold without label", ErrInvalidScoringConfig, name)
			}
			if th.MinConfidence < 0 || th.MinConfidence > 1 {
				return fmt.Errorf("%w: combination %q min for %q out of [0,1]", ErrInvalidScoringConfig, name, th.Label)
			}
		}
		if rule.RequiredTotalConfidence != nil && *rule.RequiredTotalConfidence < 0 {
			return fmt.Errorf("%w: combination %q has negative required total", ErrInvalidScoringConfig, name)
		}
	}
	return nil
}
