package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"affection-tracker/internal/domain"
)

// SQLiteStateRepository es la variante local de StateRepository usada por el CLI.
type SQLiteStateRepository struct {
	db *sql.DB
}

func NewSQLiteStateRepository(db *sql.DB) *SQLiteStateRepository {
	return &SQLiteStateRepository{db: db}
}

func (r *SQLiteStateRepository) Load(ctx context.Context, sessionID string) (domain.SessionSnapshot, bool, error) {
	var (
		snap         domain.SessionSnapshot
		subjects     string
		counterparts string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, subject_ids, counterparts, next_turn_seq, updated_at
		FROM affection_sessions
		WHERE id = ?
	`, sessionID).Scan(&snap.ID, &subjects, &counterparts, &snap.NextTurnSeq, &snap.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SessionSnapshot{}, false, nil
	}
	if err != nil {
		return domain.SessionSnapshot{}, false, err
	}
	if err := decodeRoster([]byte(subjects), []byte(counterparts), &snap); err != nil {
		return domain.SessionSnapshot{}, false, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT subject_id, counterpart_id, score, last_turn_seq
		FROM affection_scores
		WHERE session_id = ?
		ORDER BY subject_id, counterpart_id
	`, sessionID)
	if err != nil {
		return domain.SessionSnapshot{}, false, err
	}
	defer rows.Close()

	snap.Affection = domain.AffectionState{}
	snap.TurnSeqs = make(map[string]int64)
	for rows.Next() {
		var rec domain.AffectionRecord
		if err := rows.Scan(&rec.Key.SubjectID, &rec.Key.CounterpartID, &rec.Score, &rec.LastTurnSeq); err != nil {
			return domain.SessionSnapshot{}, false, err
		}
		addRecord(&snap, rec)
	}
	if err := rows.Err(); err != nil {
		return domain.SessionSnapshot{}, false, err
	}
	return snap, true, nil
}

func (r *SQLiteStateRepository) Save(ctx context.Context, snapshot domain.SessionSnapshot) error {
	subjects, counterparts, err := encodeRoster(snapshot)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO affection_sessions (id, subject_ids, counterparts, next_turn_seq, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			subject_ids = excluded.subject_ids,
			counterparts = excluded.counterparts,
			next_turn_seq = excluded.next_turn_seq,
			updated_at = excluded.updated_at
	`, snapshot.ID, string(subjects), string(counterparts), snapshot.NextTurnSeq, updatedAt(snapshot)); err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM affection_scores WHERE session_id = ?`, snapshot.ID); err != nil {
		return fmt.Errorf("clear scores: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO affection_scores (session_id, subject_id, counterpart_id, score, last_turn_seq)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, rec := range snapshotRecords(snapshot) {
		if _, err := stmt.ExecContext(ctx, snapshot.ID, rec.Key.SubjectID, rec.Key.CounterpartID, rec.Score, rec.LastTurnSeq); err != nil {
			return fmt.Errorf("insert score: %w", err)
		}
	}
	return tx.Commit()
}
