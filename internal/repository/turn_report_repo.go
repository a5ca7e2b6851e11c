package repository

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"affection-tracker/internal/domain"
)

// TurnReportRepository guarda el historial de turnos procesados de cada sesion.
type TurnReportRepository interface {
	Create(ctx context.Context, sessionID string, report domain.TurnReport) error
	// ListBySessionID devuelve los ultimos limit reportes en orden de secuencia; limit <= 0 trae todos.
	ListBySessionID(ctx context.Context, sessionID string, limit int) ([]domain.TurnReport, error)
}

var (
	_ TurnReportRepository = (*PgTurnReportRepository)(nil)
	_ TurnReportRepository = (*SQLiteTurnReportRepository)(nil)
	_ TurnReportRepository = (*MemoryTurnReportRepository)(nil)
)

type PgTurnReportRepository struct {
	pool *pgxpool.Pool
}

func NewPgTurnReportRepository(pool *pgxpool.Pool) *PgTurnReportRepository {
	return &PgTurnReportRepository{pool: pool}
}

func (r *PgTurnReportRepository) Create(ctx context.Context, sessionID string, report domain.TurnReport) error {
	const query = `
		INSERT INTO turn_reports (turn_id, session_id, turn_seq, speaker, skipped, skip_reason, delta, new_score, payload, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (turn_id) DO NOTHING
	`
	payload, err := json.Marshal(report)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, query,
		report.TurnID,
		sessionID,
		report.TurnSeq,
		report.Speaker,
		report.Skipped,
		report.SkipReason,
		report.Delta,
		report.NewScore,
		payload,
		report.ProcessedAt,
	)
	return err
}

func (r *PgTurnReportRepository) ListBySessionID(ctx context.Context, sessionID string, limit int) ([]domain.TurnReport, error) {
	const query = `
		SELECT payload FROM (
			SELECT payload, turn_seq, processed_at
			FROM turn_reports
			WHERE session_id = $1
			ORDER BY turn_seq DESC, processed_at DESC
			LIMIT $2
		) recent
		ORDER BY turn_seq ASC, processed_at ASC
	`
	var limitArg interface{}
	if limit > 0 {
		limitArg = limit
	}
	rows, err := r.pool.Query(ctx, query, sessionID, limitArg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []domain.TurnReport
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var report domain.TurnReport
		if err := json.Unmarshal(payload, &report); err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reports, nil
}

// MemoryTurnReportRepository es la variante en memoria, usada sin base de datos y en tests.
type MemoryTurnReportRepository struct {
	mu      sync.Mutex
	reports map[string][]domain.TurnReport
}

func NewMemoryTurnReportRepository() *MemoryTurnReportRepository {
	return &MemoryTurnReportRepository{reports: make(map[string][]domain.TurnReport)}
}

func (r *MemoryTurnReportRepository) Create(_ context.Context, sessionID string, report domain.TurnReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.reports[sessionID] {
		if existing.TurnID == report.TurnID {
			return nil
		}
	}
	r.reports[sessionID] = append(r.reports[sessionID], report)
	return nil
}

func (r *MemoryTurnReportRepository) ListBySessionID(_ context.Context, sessionID string, limit int) ([]domain.TurnReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reports := append([]domain.TurnReport(nil), r.reports[sessionID]...)
	sort.SliceStable(reports, func(i, j int) bool { return reports[i].TurnSeq < reports[j].TurnSeq })
	if limit > 0 && len(reports) > limit {
		reports = reports[len(reports)-limit:]
	}
	return reports, nil
}
