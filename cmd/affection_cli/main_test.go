package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"affection-tracker/internal/domain"
	"affection-tracker/internal/service"
)

func TestRootCommandRuns(t *testing.T) {
	t.Setenv("CLASSIFIER_MODE", "keyword")
	t.Setenv("STATE_BACKEND", "memory")
	t.Setenv("SCORING_CONFIG_PATH", "")
	scoringPath = ""
	classifierMode = "keyword"

	cases := [][]string{
		{"rules", "check"},
		{"directive", "80"},
		{"score", "--current", "95", "I love you."},
	}
	for _, args := range cases {
		rootCmd.SetArgs(args)
		if err := rootCmd.Execute(); err != nil {
			t.Fatalf("%v: unexpected error: %v", args, err)
		}
	}
}

func TestRulesCheckRejectsBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.toml")
	if err := os.WriteFile(path, []byte("weight_mode = \"cubic\"\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	rootCmd.SetArgs([]string{"rules", "check", path})
	if err := rootCmd.Execute(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestDirectiveRejectsNonInteger(t *testing.T) {
	rootCmd.SetArgs([]string{"directive", "high"})
	if err := rootCmd.Execute(); err == nil {
		t.Fatalf("expected error for non-integer score")
	}
}

func TestDescribeReport(t *testing.T) {
	applied := describeReport(domain.TurnReport{TurnSeq: 3, Speaker: "Elara", Delta: 2, PreviousScore: 50, NewScore: 52})
	if applied != "#3 Elara: +2 (50 -> 52)" {
		t.Fatalf("unexpected applied line: %q", applied)
	}
	skipped := describeReport(domain.TurnReport{TurnSeq: 4, Speaker: "Narrator", Skipped: true, SkipReason: "narrator"})
	if skipped != "#4 Narrator: skipped (narrator)" {
		t.Fatalf("unexpected skipped line: %q", skipped)
	}
}

func TestStateWith(t *testing.T) {
	state := stateWith(cliKey("elara"), 77)
	if score, ok := state.Lookup(domain.RelationshipKey{SubjectID: cliSubject, CounterpartID: "elara"}); !ok || score != 77 {
		t.Fatalf("unexpected state: %+v", state)
	}
}

func TestTokenCommandReadsConfig(t *testing.T) {
	t.Setenv("CLASSIFIER_MODE", "keyword")
	t.Setenv("STATE_BACKEND", "memory")
	t.Setenv("JWT_SECRET", "cli-secret")
	t.Setenv("JWT_ISSUER", "cli-issuer")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	defer rootCmd.SetOut(nil)
	rootCmd.SetArgs([]string{"token", "--host", "host-7", "--session", "s1"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	verifier := service.NewHostTokenService("cli-secret", "cli-issuer", time.Hour, nil)
	claims, err := verifier.Parse(strings.TrimSpace(out.String()))
	if err != nil {
		t.Fatalf("minted token does not verify: %v", err)
	}
	if claims.HostID != "host-7" || claims.SessionID != "s1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestTokenCommandRequiresSecret(t *testing.T) {
	t.Setenv("CLASSIFIER_MODE", "keyword")
	t.Setenv("STATE_BACKEND", "memory")
	t.Setenv("JWT_SECRET", "")
	rootCmd.SetArgs([]string{"token"})
	if err := rootCmd.Execute(); err == nil {
		t.Fatalf("expected error without JWT_SECRET")
	}
}
