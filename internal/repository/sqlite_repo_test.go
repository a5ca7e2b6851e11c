package repository_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"affection-tracker/internal/db"
	"affection-tracker/internal/domain"
	"affection-tracker/internal/repository"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestSQLiteStateRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewSQLiteStateRepository(openTestDB(t))

	if _, found, err := repo.Load(ctx, "s1"); err != nil || found {
		t.Fatalf("expected missing session, got found=%v err=%v", found, err)
	}

	snap := domain.SessionSnapshot{
		ID:           "s1",
		SubjectIDs:   []string{"user", "ally"},
		Counterparts: []domain.Counterpart{{ID: "elara", Name: "Elara"}, {ID: "bran"}},
		Affection: domain.AffectionState{
			"user": {"elara": 64, "bran": 31},
			"ally": {"elara": 50},
		},
		TurnSeqs:    map[string]int64{"user/elara": 7},
		NextTurnSeq: 7,
		UpdatedAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := repo.Save(ctx, snap); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, found, err := repo.Load(ctx, "s1")
	if err != nil || !found {
		t.Fatalf("load: found=%v err=%v", found, err)
	}
	if got.Affection["user"]["elara"] != 64 || got.Affection["user"]["bran"] != 31 || got.Affection["ally"]["elara"] != 50 {
		t.Fatalf("unexpected affection: %+v", got.Affection)
	}
	if got.TurnSeqs["user/elara"] != 7 || got.NextTurnSeq != 7 {
		t.Fatalf("unexpected sequences: %+v next=%d", got.TurnSeqs, got.NextTurnSeq)
	}
	if len(got.SubjectIDs) != 2 || len(got.Counterparts) != 2 || got.Counterparts[0].Name != "Elara" {
		t.Fatalf("unexpected roster: %+v %+v", got.SubjectIDs, got.Counterparts)
	}

	// Un segundo Save reemplaza los puntajes previos.
	snap.Affection = domain.AffectionState{"user": {"elara": 70}}
	if err := repo.Save(ctx, snap); err != nil {
		t.Fatalf("second save: %v", err)
	}
	got, _, err = repo.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(got.Affection) != 1 || got.Affection["user"]["elara"] != 70 {
		t.Fatalf("expected scores replaced, got %+v", got.Affection)
	}
}

func TestSQLiteStateRepositoryRejectsOutOfRangeScore(t *testing.T) {
	repo := repository.NewSQLiteStateRepository(openTestDB(t))
	err := repo.Save(context.Background(), domain.SessionSnapshot{
		ID:        "s1",
		Affection: domain.AffectionState{"user": {"elara": 140}},
		UpdatedAt: time.Now().UTC(),
	})
	if err == nil {
		t.Fatalf("expected check constraint to reject score 140")
	}
}

func TestOpenSQLiteFileIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "affection.db")
	first, err := db.OpenSQLite(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := repository.NewSQLiteStateRepository(first).Save(context.Background(), domain.SessionSnapshot{
		ID:        "s1",
		Affection: domain.AffectionState{"user": {"elara": 55}},
		UpdatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("save: %v", err)
	}
	_ = first.Close()

	second, err := db.OpenSQLite(path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer second.Close()
	got, found, err := repository.NewSQLiteStateRepository(second).Load(context.Background(), "s1")
	if err != nil || !found || got.Affection["user"]["elara"] != 55 {
		t.Fatalf("expected data to survive reopen, got %+v found=%v err=%v", got, found, err)
	}
}

func sampleReport(id string, seq int64, skipped bool) domain.TurnReport {
	key := domain.RelationshipKey{SubjectID: "user", CounterpartID: "elara"}
	return domain.TurnReport{
		TurnID:        id,
		TurnSeq:       seq,
		Speaker:       "Elara",
		Skipped:       skipped,
		Key:           &key,
		Delta:         2,
		PreviousScore: 50,
		NewScore:      52,
		DiagnosticLog: "[Delta for elara: 2 | New: 52]",
		ProcessedAt:   time.Date(2026, 3, 1, 12, 0, int(seq), 0, time.UTC),
	}
}

func assertTurnReportRepository(t *testing.T, repo repository.TurnReportRepository) {
	t.Helper()
	ctx := context.Background()

	for _, r := range []domain.TurnReport{
		sampleReport("t3", 3, false),
		sampleReport("t1", 1, true),
		sampleReport("t2", 2, false),
		sampleReport("t2", 2, true),
	} {
		if err := repo.Create(ctx, "s1", r); err != nil {
			t.Fatalf("create %s: %v", r.TurnID, err)
		}
	}
	if err := repo.Create(ctx, "s2", sampleReport("other", 1, false)); err != nil {
		t.Fatalf("create other: %v", err)
	}

	all, err := repo.ListBySessionID(ctx, "s1", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 reports, got %d", len(all))
	}
	for i, want := range []string{"t1", "t2", "t3"} {
		if all[i].TurnID != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, all[i].TurnID)
		}
	}
	if all[1].Skipped {
		t.Fatalf("expected duplicate turn id to be ignored")
	}
	if all[0].Key == nil || all[0].Key.CounterpartID != "elara" || all[0].DiagnosticLog == "" {
		t.Fatalf("expected full payload restored, got %+v", all[0])
	}

	recent, err := repo.ListBySessionID(ctx, "s1", 2)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(recent) != 2 || recent[0].TurnID != "t2" || recent[1].TurnID != "t3" {
		t.Fatalf("expected last two reports, got %+v", recent)
	}
}

func TestSQLiteTurnReportRepository(t *testing.T) {
	assertTurnReportRepository(t, repository.NewSQLiteTurnReportRepository(openTestDB(t)))
}

func TestMemoryTurnReportRepository(t *testing.T) {
	assertTurnReportRepository(t, repository.NewMemoryTurnReportRepository())
}
