package db

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchemaVersion = 1

// OpenSQLite abre (o crea) la base local y aplica las migraciones pendientes.
// path ":memory:" sirve para tests.
func OpenSQLite(path string) (*sql.DB, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_busy_timeout=10000&_journal_mode=WAL&_foreign_keys=on"
	}
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		// Cada conexion nueva a :memory: es una base distinta.
		conn.SetMaxOpenConns(1)
	}
	if err := migrateSQLite(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

func migrateSQLite(conn *sql.DB) error {
	tx, err := conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var version int
	if err := tx.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return err
	}
	for version < sqliteSchemaVersion {
		version++
		switch version {
		case 1:
			if _, err := tx.Exec(sqliteSchemaV1); err != nil {
				return fmt.Errorf("failed to apply schema v%d: %w", version, err)
			}
		default:
			return fmt.Errorf("unknown schema version: %d", version)
		}
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", sqliteSchemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

const sqliteSchemaV1 = `
CREATE TABLE IF NOT EXISTS affection_sessions (
	id            TEXT PRIMARY KEY,
	subject_ids   TEXT NOT NULL DEFAULT '[]',
	counterparts  TEXT NOT NULL DEFAULT '[]',
	next_turn_seq INTEGER NOT NULL DEFAULT 0,
	updated_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS affection_scores (
	session_id     TEXT NOT NULL REFERENCES affection_sessions(id) ON DELETE CASCADE,
	subject_id     TEXT NOT NULL,
	counterpart_id TEXT NOT NULL,
	score          INTEGER NOT NULL CHECK (score BETWEEN 0 AND 100),
	last_turn_seq  INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (session_id, subject_id, counterpart_id)
);

CREATE TABLE IF NOT EXISTS turn_reports (
	turn_id        TEXT PRIMARY KEY,
	session_id     TEXT NOT NULL,
	turn_seq       INTEGER NOT NULL,
	speaker        TEXT NOT NULL,
	skipped        INTEGER NOT NULL,
	skip_reason    TEXT NOT NULL DEFAULT '',
	delta          INTEGER NOT NULL,
	new_score      INTEGER NOT NULL,
	payload        TEXT NOT NULL,
	processed_at   DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS turn_reports_session_idx ON turn_reports (session_id, turn_seq);
`
