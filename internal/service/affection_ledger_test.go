package service

import (
	"errors"
	"testing"

	"affection-tracker/internal/domain"
)

var elaraKey = domain.RelationshipKey{SubjectID: "user", CounterpartID: "elara"}

func TestAffectionLedgerDefaultsToMidpoint(t *testing.T) {
	l := NewAffectionLedger()
	if _, ok := l.Peek(elaraKey); ok {
		t.Fatalf("expected Peek not to create the relationship")
	}
	if got := l.Get(elaraKey); got != domain.AffectionDefault {
		t.Fatalf("expected %d, got %d", domain.AffectionDefault, got)
	}
	if _, ok := l.Peek(elaraKey); !ok {
		t.Fatalf("expected Get to create the relationship")
	}
}

func TestAffectionLedgerApply(t *testing.T) {
	tests := []struct {
		name    string
		current int
		delta   int
		want    int
	}{
		{name: "plain increase", current: 50, delta: 3, want: 53},
		{name: "plain decrease", current: 50, delta: -4, want: 46},
		{name: "high damping", current: 95, delta: 4, want: 96},
		{name: "high damping at threshold", current: 90, delta: 2, want: 91},
		{name: "just below high threshold", current: 89, delta: 4, want: 93},
		{name: "high side negative not damped", current: 95, delta: -4, want: 91},
		{name: "ceiling", current: 100, delta: 4, want: 100},
		{name: "low damping", current: 10, delta: -3, want: 9},
		{name: "low side positive not damped", current: 5, delta: 4, want: 9},
		{name: "floor", current: 0, delta: -4, want: 0},
		{name: "zero delta", current: 95, delta: 0, want: 95},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewAffectionLedgerFromState(domain.AffectionState{"user": {"elara": tt.current}})
			if got := l.Apply(elaraKey, tt.delta); got != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestAffectionLedgerApplyTurnRejectsStaleSequence(t *testing.T) {
	l := NewAffectionLedger()
	if _, err := l.ApplyTurn(elaraKey, 2, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	score, err := l.ApplyTurn(elaraKey, 1, 4)
	if !errors.Is(err, ErrSupersededTurn) {
		t.Fatalf("expected ErrSupersededTurn, got %v", err)
	}
	if score != 53 {
		t.Fatalf("expected ledger untouched at 53, got %d", score)
	}
	if l.LastTurnSeq(elaraKey) != 2 {
		t.Fatalf("expected last seq 2, got %d", l.LastTurnSeq(elaraKey))
	}
	if _, err := l.ApplyTurn(elaraKey, 0, 1); err != nil {
		t.Fatalf("expected seq 0 to skip the check, got %v", err)
	}
}

func TestAffectionLedgerReplaceClampsAndKeepsSequences(t *testing.T) {
	l := NewAffectionLedger()
	if _, err := l.ApplyTurn(elaraKey, 4, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	l.Replace(domain.AffectionState{"user": {"elara": 150, "bran": -3}})

	snap := l.Snapshot()
	if snap["user"]["elara"] != 100 || snap["user"]["bran"] != 0 {
		t.Fatalf("expected clamped values, got %+v", snap)
	}
	if l.LastTurnSeq(elaraKey) != 4 {
		t.Fatalf("expected sequence to survive Replace")
	}
	records := l.Records()
	if len(records) != 2 || records[0].Key.CounterpartID != "bran" {
		t.Fatalf("expected sorted records, got %+v", records)
	}
}
