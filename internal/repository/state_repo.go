package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"affection-tracker/internal/domain"
)

// StateRepository persiste el snapshot de una sesion: roster y un registro por relacion.
type StateRepository interface {
	Load(ctx context.Context, sessionID string) (domain.SessionSnapshot, bool, error)
	Save(ctx context.Context, snapshot domain.SessionSnapshot) error
}

var (
	_ StateRepository = (*PgStateRepository)(nil)
	_ StateRepository = (*SQLiteStateRepository)(nil)
)

type PgStateRepository struct {
	pool *pgxpool.Pool
}

func NewPgStateRepository(pool *pgxpool.Pool) *PgStateRepository {
	return &PgStateRepository{pool: pool}
}

func (r *PgStateRepository) Load(ctx context.Context, sessionID string) (domain.SessionSnapshot, bool, error) {
	const sessionQuery = `
		SELECT id, subject_ids, counterparts, next_turn_seq, updated_at
		FROM affection_sessions
		WHERE id = $1
	`
	var (
		snap         domain.SessionSnapshot
		subjects     []byte
		counterparts []byte
	)
	err := r.pool.QueryRow(ctx, sessionQuery, sessionID).Scan(
		&snap.ID,
		&subjects,
		&counterparts,
		&snap.NextTurnSeq,
		&snap.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.SessionSnapshot{}, false, nil
	}
	if err != nil {
		return domain.SessionSnapshot{}, false, err
	}
	if err := decodeRoster(subjects, counterparts, &snap); err != nil {
		return domain.SessionSnapshot{}, false, err
	}

	const scoresQuery = `
		SELECT subject_id, counterpart_id, score, last_turn_seq
		FROM affection_scores
		WHERE session_id = $1
		ORDER BY subject_id, counterpart_id
	`
	rows, err := r.pool.Query(ctx, scoresQuery, sessionID)
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

// Save reescribe la sesion y todos sus puntajes en una transaccion.
func (r *PgStateRepository) Save(ctx context.Context, snapshot domain.SessionSnapshot) error {
	subjects, counterparts, err := encodeRoster(snapshot)
	if err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const upsertSession = `
		INSERT INTO affection_sessions (id, subject_ids, counterparts, next_turn_seq, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			subject_ids = EXCLUDED.subject_ids,
			counterparts = EXCLUDED.counterparts,
			next_turn_seq = EXCLUDED.next_turn_seq,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := tx.Exec(ctx, upsertSession,
		snapshot.ID,
		subjects,
		counterparts,
		snapshot.NextTurnSeq,
		updatedAt(snapshot),
	); err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM affection_scores WHERE session_id = $1`, snapshot.ID); err != nil {
		return fmt.Errorf("clear scores: %w", err)
	}

	const insertScore = `
		INSERT INTO affection_scores (session_id, subject_id, counterpart_id, score, last_turn_seq)
		VALUES ($1, $2, $3, $4, $5)
	`
	batch := &pgx.Batch{}
	for _, rec := range snapshotRecords(snapshot) {
		batch.Queue(insertScore, snapshot.ID, rec.Key.SubjectID, rec.Key.CounterpartID, rec.Score, rec.LastTurnSeq)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert scores: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func encodeRoster(snapshot domain.SessionSnapshot) ([]byte, []byte, error) {
	subjectIDs := snapshot.SubjectIDs
	if subjectIDs == nil {
		subjectIDs = []string{}
	}
	counterparts := snapshot.Counterparts
	if counterparts == nil {
		counterparts = []domain.Counterpart{}
	}
	subjects, err := json.Marshal(subjectIDs)
	if err != nil {
		return nil, nil, err
	}
	cps, err := json.Marshal(counterparts)
	if err != nil {
		return nil, nil, err
	}
	return subjects, cps, nil
}

func decodeRoster(subjects, counterparts []byte, snap *domain.SessionSnapshot) error {
	if len(subjects) > 0 {
		if err := json.Unmarshal(subjects, &snap.SubjectIDs); err != nil {
			return fmt.Errorf("decode subject ids: %w", err)
		}
	}
	if len(counterparts) > 0 {
		if err := json.Unmarshal(counterparts, &snap.Counterparts); err != nil {
			return fmt.Errorf("decode counterparts: %w", err)
		}
	}
	return nil
}

// snapshotRecords aplana el mapa de afecto junto con la ultima secuencia aplicada.
func snapshotRecords(snapshot domain.SessionSnapshot) []domain.AffectionRecord {
	records := make([]domain.AffectionRecord, 0)
	for subject, inner := range snapshot.Affection {
		for counterpart, score := range inner {
			key := domain.RelationshipKey{SubjectID: subject, CounterpartID: counterpart}
			records = append(records, domain.AffectionRecord{
				Key:         key,
				Score:       score,
				LastTurnSeq: snapshot.TurnSeqs[key.String()],
			})
		}
	}
	return records
}

func addRecord(snap *domain.SessionSnapshot, rec domain.AffectionRecord) {
	snap.Affection.Set(rec.Key, rec.Score)
	if rec.LastTurnSeq > 0 {
		snap.TurnSeqs[rec.Key.String()] = rec.LastTurnSeq
	}
}

func updatedAt(snapshot domain.SessionSnapshot) time.Time {
	if snapshot.UpdatedAt.IsZero() {
		return time.Now().UTC()
	}
	return snapshot.UpdatedAt.UTC()
}
