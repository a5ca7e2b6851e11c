package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"affection-tracker/internal/domain"
)

var (
	ErrClassificationUnavailable = errors.New("classification unavailable")
	ErrUnparseableClassification = errors.New("unparseable classification response")
)

// maxShapeDepth limita el anidamiento tolerado (data -> lista -> confidences -> lista).
const maxShapeDepth = 5

// NormalizeResult contiene las observaciones limpias y el rastro de entradas descartadas.
type NormalizeResult struct {
	Observations []domain.EmotionObservation
	Dropped      int
	Notes        []string
}

// NormalizeClassifierOutput interpreta la respuesta cruda del clasificador.
// Formas aceptadas: lista plana de {label, score|confidence}, {"data": ...},
// {"confidences": [...]}, listas anidadas y la salida de etiqueta de Gradio
// ({"label": ..., "confidences": [...]}). Conserva el orden de origen.
func NormalizeClassifierOutput(raw []byte) (NormalizeResult, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return NormalizeResult{}, fmt.Errorf("%w: empty body", ErrUnparseableClassification)
	}

	entries, err := collectEntries(trimmed, 0)
	if err != nil {
		return NormalizeResult{}, err
	}

	result := NormalizeResult{Observations: make([]domain.EmotionObservation, 0, len(entries))}
	for i, entry := range entries {
		obs, reason, ok := parseEntry(entry)
		if !ok {
			result.Dropped++
			result.Notes = append(result.Notes, fmt.Sprintf("dropped entry #%d: %s", i+1, reason))
			continue
		}
		result.Observations = append(result.Observations, obs)
	}
	return result, nil
}

func collectEntries(raw json.RawMessage, depth int) ([]json.RawMessage, error) {
	if depth > maxShapeDepth {
		return nil, fmt.Errorf("%w: nesting too deep", ErrUnparseableClassification)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty value", ErrUnparseableClassification)
	}

	switch raw[0] {
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnparseableClassification, err)
		}
		if data, ok := obj["data"]; ok {
			return collectEntries(data, depth+1)
		}
		if conf, ok := obj["confidences"]; ok && isArray(conf) {
			return collectEntries(conf, depth+1)
		}
		if _, ok := obj["label"]; ok {
			return []json.RawMessage{raw}, nil
		}
		return nil, fmt.Errorf("%w: object without data, confidences or label", ErrUnparseableClassification)
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnparseableClassification, err)
		}
		out := make([]json.RawMessage, 0, len(items))
		for _, item := range items {
			item = bytes.TrimSpace(item)
			if len(item) == 0 {
				continue
			}
			switch {
			case item[0] == '[':
				nested, err := collectEntries(item, depth+1)
				if err != nil {
					return nil, err
				}
				out = append(out, nested...)
			case item[0] == '{' && hasConfidenceList(item):
				nested, err := collectEntries(item, depth+1)
				if err != nil {
					return nil, err
				}
				out = append(out, nested...)
			default:
				// Entradas mal formadas se descartan una por una en parseEntry.
				out = append(out, item)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unexpected %q", ErrUnparseableClassification, raw[0])
	}
}

func isArray(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}

func hasConfidenceList(raw json.RawMessage) bool {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return false
	}
	conf, ok := obj["confidences"]
	return ok && isArray(conf)
}

func parseEntry(raw json.RawMessage) (domain.EmotionObservation, string, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return domain.EmotionObservation{}, "not an object", false
	}

	var label string
	if rawLabel, ok := obj["label"]; ok {
		_ = json.Unmarshal(rawLabel, &label)
	}
	label = strings.TrimSpace(label)
	if label == "" {
		return domain.EmotionObservation{}, "missing label", false
	}

	confidence, ok := resolveConfidence(obj)
	if !ok {
		return domain.EmotionObservation{}, fmt.Sprintf("unparseable confidence for %q", label), false
	}
	return domain.EmotionObservation{Label: label, Confidence: clampUnit(confidence)}, "", true
}

// resolveConfidence prueba confidence numerico, score numerico y luego ambos como texto.
func resolveConfidence(obj map[string]json.RawMessage) (float64, bool) {
	keys := []string{"confidence", "score"}
	for _, key := range keys {
		if v, ok := numericField(obj[key]); ok {
			return v, true
		}
	}
	for _, key := range keys {
		if v, ok := stringField(obj[key]); ok {
			return v, true
		}
	}
	return 0, false
}

func numericField(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	// null cuenta como ausente, no como cero.
	var v *float64
	if err := json.Unmarshal(raw, &v); err != nil || v == nil {
		return 0, false
	}
	return *v, isFinite(*v)
}

func stringField(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var s *string
	if err := json.Unmarshal(raw, &s); err != nil || s == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(*s), 64)
	if err != nil {
		return 0, false
	}
	return v, isFinite(v)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
