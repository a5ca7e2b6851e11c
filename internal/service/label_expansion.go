package service

import (
	"strings"

	"affection-tracker/internal/domain"
)

// ExpandLabels abre etiquetas gruesas (clasificadores de 7 clases) en etiquetas finas
// que heredan la confianza original. Sin tabla devuelve la entrada intacta.
// Una etiqueta fina repetida conserva su primera posicion y la mayor confianza.
func ExpandLabels(observations []domain.EmotionObservation, expansion map[string][]string) []domain.EmotionObservation {
	if len(expansion) == 0 {
		return observations
	}

	out := make([]domain.EmotionObservation, 0, len(observations))
	index := make(map[string]int, len(observations))
	add := func(label string, confidence float64) {
		key := strings.ToLower(label)
		if i, ok := index[key]; ok {
			if confidence > out[i].Confidence {
				out[i].Confidence = confidence
			}
			return
		}
		index[key] = len(out)
		out = append(out, domain.EmotionObservation{Label: label, Confidence: confidence})
	}

	for _, obs := range observations {
		subs, ok := expansion[strings.ToLower(obs.Label)]
		if !ok {
			add(obs.Label, obs.Confidence)
			continue
		}
		// Lista vacia = etiqueta descartada (p.ej. neutral en el mapa paraguas).
		for _, sub := range subs {
			add(sub, obs.Confidence)
		}
	}
	return out
}
