package service

import (
	"strings"

	"affection-tracker/internal/domain"
)

const neutralLabel = "neutral"

// FilterActive produce el conjunto activo: confianza >= umbral (inclusivo) y,
// opcionalmente, sin la etiqueta neutral. Conserva el orden.
// Una etiqueta repetida (sin distinguir mayusculas) aparece una sola vez, en su
// primera posicion y con la mayor confianza.
func FilterActive(observations []domain.EmotionObservation, minConfidence float64, excludeNeutral bool) []domain.EmotionObservation {
	active := make([]domain.EmotionObservation, 0, len(observations))
	index := make(map[string]int, len(observations))
	for _, obs := range observations {
		if obs.Confidence < minConfidence {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(obs.Label))
		if excludeNeutral && key == neutralLabel {
			continue
		}
		if i, ok := index[key]; ok {
			if obs.Confidence > active[i].Confidence {
				active[i].Confidence = obs.Confidence
			}
			continue
		}
		index[key] = len(active)
		active = append(active, obs)
	}
	return active
}
