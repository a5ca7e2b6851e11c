package classifier

import (
	"context"
	"encoding/json"
	"testing"
)

func classifyKeywords(t *testing.T, text string) []keywordScore {
	t.Helper()
	raw, err := NewKeywordClassifier().Classify(context.Background(), text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var out []keywordScore
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("invalid json %s: %v", raw, err)
	}
	return out
}

func TestKeywordClassifierMatchesCues(t *testing.T) {
	out := classifyKeywords(t, "She smiles. \"Thank you, I LOVE YOU.\"")
	if len(out) != 3 {
		t.Fatalf("expected love, gratitude and joy, got %+v", out)
	}
	if out[0].Label != "love" || out[0].Score != 0.9 {
		t.Fatalf("expected love first, got %+v", out[0])
	}
	for i := 1; i < len(out); i++ {
		if out[i].Score > out[i-1].Score {
			t.Fatalf("expected descending scores, got %+v", out)
		}
	}
}

func TestKeywordClassifierCapsAccumulatedScore(t *testing.T) {
	out := classifyKeywords(t, "I care about you, I am here for you, I will protect you.")
	if len(out) != 1 || out[0].Label != "caring" || out[0].Score != 1 {
		t.Fatalf("expected caring capped at 1, got %+v", out)
	}
}

func TestKeywordClassifierNeutralFallback(t *testing.T) {
	out := classifyKeywords(t, "The weather report mentions light rain.")
	if len(out) != 1 || out[0].Label != "neutral" || out[0].Score != 1 {
		t.Fatalf("expected neutral fallback, got %+v", out)
	}
}
