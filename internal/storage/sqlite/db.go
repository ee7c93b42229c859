// Package sqlite implements the relational stores on modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dkeye/StudyRoom/internal/core"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS rooms (
	room_key   TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	subject_id TEXT NOT NULL,
	owner_id   TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS occurrences (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	subject_id TEXT    NOT NULL,
	round      INTEGER NOT NULL,
	day        TEXT    NOT NULL,
	start_time TEXT    NOT NULL DEFAULT '',
	end_time   TEXT    NOT NULL DEFAULT '',
	auto       INTEGER NOT NULL DEFAULT 0,
	UNIQUE (subject_id, round)
);
CREATE UNIQUE INDEX IF NOT EXISTS occurrences_auto_day ON occurrences (subject_id, day) WHERE auto = 1;
CREATE INDEX IF NOT EXISTS occurrences_day ON occurrences (subject_id, day);

CREATE TABLE IF NOT EXISTS participation (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	occurrence_id INTEGER NOT NULL,
	room_key      TEXT    NOT NULL,
	user_id       TEXT    NOT NULL,
	joined_at     TEXT    NOT NULL,
	left_at       TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS participation_open ON participation (occurrence_id, room_key, user_id) WHERE left_at IS NULL;

CREATE TABLE IF NOT EXISTS kicks (
	room_key  TEXT NOT NULL,
	user_id   TEXT NOT NULL,
	day       TEXT NOT NULL,
	kicked_at TEXT NOT NULL,
	PRIMARY KEY (room_key, user_id, day)
);

CREATE TABLE IF NOT EXISTS chat_messages (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	room_key TEXT NOT NULL,
	user_id  TEXT NOT NULL,
	name     TEXT NOT NULL,
	body     TEXT NOT NULL,
	sent_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS chat_messages_room ON chat_messages (room_key, id);
`

// Open opens dsn and applies the schema. A single connection is kept so
// ":memory:" databases survive across calls and writers never contend.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", dsn, err)
	}
	db.SetMaxOpenConns(1)
	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Info().Str("module", "storage.sqlite").Str("dsn", dsn).Msg("database ready")
	return db, nil
}

func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		return fmt.Errorf("sqlite pragma: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("sqlite migrate: %w", err)
	}
	return nil
}

// mapError translates driver errors into core sentinels.
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return core.ErrNotFound
	case strings.Contains(err.Error(), "UNIQUE constraint failed"):
		return fmt.Errorf("%w: %v", core.ErrConflict, err)
	default:
		return err
	}
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) (time.Time, error) { return time.Parse(time.RFC3339Nano, s) }
