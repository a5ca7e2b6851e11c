package classifier

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
)

type keywordCue struct {
	phrase     string
	label      string
	confidence float64
}

// KeywordClassifier es un clasificador local por frases clave, sin modelo.
// Cada frase aporta confianza a una etiqueta; se acumula y se acota a 1.
type KeywordClassifier struct {
	cues []keywordCue
}

func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{cues: defaultKeywordCues()}
}

func defaultKeywordCues() []keywordCue {
	return []keywordCue{
		{phrase: "i love you", label: "love", confidence: 0.9},
		{phrase: "i care about you", label: "caring", confidence: 0.8},
		{phrase: "i appreciate you", label: "gratitude", confidence: 0.7},
		{phrase: "i like you", label: "love", confidence: 0.6},
		{phrase: "i enjoy your company", label: "joy", confidence: 0.6},
		{phrase: "i value you", label: "admiration", confidence: 0.6},
		{phrase: "i understand you", label: "caring", confidence: 0.5},
		{phrase: "i support you", label: "approval", confidence: 0.6},
		{phrase: "thank you", label: "gratitude", confidence: 0.6},
		{phrase: "i trust you", label: "optimism", confidence: 0.6},
		{phrase: "i feel safe", label: "relief", confidence: 0.6},
		{phrase: "i am here for you", label: "caring", confidence: 0.6},
		{phrase: "i will protect you", label: "caring", confidence: 0.7},
		{phrase: "i am happy", label: "joy", confidence: 0.7},
		{phrase: "i am glad", label: "joy", confidence: 0.6},
		{phrase: "i am excited", label: "excitement", confidence: 0.7},
		{phrase: "smile", label: "joy", confidence: 0.4},
		{phrase: "laughs", label: "amusement", confidence: 0.5},
		{phrase: "relaxes", label: "relief", confidence: 0.4},
		{phrase: "scowl", label: "annoyance", confidence: 0.5},
		{phrase: "step back", label: "fear", confidence: 0.4},
		{phrase: "knife", label: "fear", confidence: 0.5},
		{phrase: "coldly", label: "disapproval", confidence: 0.5},
		{phrase: "suspicious", label: "disapproval", confidence: 0.4},
		{phrase: "growls at", label: "anger", confidence: 0.7},
		{phrase: "growling in warning", label: "anger", confidence: 0.7},
		{phrase: "disgusting", label: "disgust", confidence: 0.7},
		{phrase: "i'm sorry", label: "remorse", confidence: 0.6},
		{phrase: "i miss", label: "sadness", confidence: 0.5},
	}
}

// Classify devuelve una lista plana [{label, score}] ordenada por confianza.
// Sin coincidencias devuelve neutral con confianza 1.
func (k *KeywordClassifier) Classify(_ context.Context, text string) ([]byte, error) {
	lower := strings.ToLower(text)
	scores := make(map[string]float64)
	var order []string
	for _, cue := range k.cues {
		if !strings.Contains(lower, cue.phrase) {
			continue
		}
		if _, seen := scores[cue.label]; !seen {
			order = append(order, cue.label)
		}
		scores[cue.label] += cue.confidence
	}

	out := make([]keywordScore, 0, len(order)+1)
	for _, label := range order {
		score := scores[label]
		if score > 1 {
			score = 1
		}
		out = append(out, keywordScore{Label: label, Score: score})
	}
	if len(out) == 0 {
		out = append(out, keywordScore{Label: "neutral", Score: 1})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return json.Marshal(out)
}

type keywordScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}
