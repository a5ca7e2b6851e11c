package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"affection-tracker/internal/config"
)

// NewPool construye y devuelve un pool de conexiones configurado.
func NewPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 30 * time.Second
	poolCfg.ConnConfig.ConnectTimeout = 5 * time.Second

	return pgxpool.NewWithConfig(ctx, poolCfg)
}

// Ping verifica conectividad con la base de datos.
func Ping(ctx context.Context, pool *pgxpool.Pool) error {
	return pool.Ping(ctx)
}

const pgSchema = `
CREATE TABLE IF NOT EXISTS affection_sessions (
	id            TEXT PRIMARY KEY,
	subject_ids   JSONB NOT NULL DEFAULT '[]',
	counterparts  JSONB NOT NULL DEFAULT '[]',
	next_turn_seq BIGINT NOT NULL DEFAULT 0,
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS affection_scores (
	session_id     TEXT NOT NULL REFERENCES affection_sessions(id) ON DELETE CASCADE,
	subject_id     TEXT NOT NULL,
	counterpart_id TEXT NOT NULL,
	score          SMALLINT NOT NULL CHECK (score BETWEEN 0 AND 100),
	last_turn_seq  BIGINT NOT NULL DEFAULT 0,
	PRIMARY KEY (session_id, subject_id, counterpart_id)
);

CREATE TABLE IF NOT EXISTS turn_reports (
	turn_id        TEXT PRIMARY KEY,
	session_id     TEXT NOT NULL,
	turn_seq       BIGINT NOT NULL,
	speaker        TEXT NOT NULL,
	skipped        BOOLEAN NOT NULL,
	skip_reason    TEXT NOT NULL DEFAULT '',
	delta          INTEGER NOT NULL,
	new_score      INTEGER NOT NULL,
	payload        JSONB NOT NULL,
	processed_at   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS turn_reports_session_idx ON turn_reports (session_id, turn_seq);
`

// EnsureSchema crea las tablas de estado si no existen.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, pgSchema)
	return err
}
