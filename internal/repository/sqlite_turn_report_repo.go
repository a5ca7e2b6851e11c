package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"affection-tracker/internal/domain"
)

type SQLiteTurnReportRepository struct {
	db *sql.DB
}

func NewSQLiteTurnReportRepository(db *sql.DB) *SQLiteTurnReportRepository {
	return &SQLiteTurnReportRepository{db: db}
}

func (r *SQLiteTurnReportRepository) Create(ctx context.Context, sessionID string, report domain.TurnReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO turn_reports (turn_id, session_id, turn_seq, speaker, skipped, skip_reason, delta, new_score, payload, processed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		report.TurnID,
		sessionID,
		report.TurnSeq,
		report.Speaker,
		report.Skipped,
		report.SkipReason,
		report.Delta,
		report.NewScore,
		string(payload),
		report.ProcessedAt,
	)
	return err
}

func (r *SQLiteTurnReportRepository) ListBySessionID(ctx context.Context, sessionID string, limit int) ([]domain.TurnReport, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT payload FROM (
			SELECT payload, turn_seq, processed_at
			FROM turn_reports
			WHERE session_id = ?
			ORDER BY turn_seq DESC, processed_at DESC
			LIMIT ?
		)
		ORDER BY turn_seq ASC, processed_at ASC
	`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []domain.TurnReport
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var report domain.TurnReport
		if err := json.Unmarshal([]byte(payload), &report); err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reports, nil
}
