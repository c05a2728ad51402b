// Package persistence provides SQLite-based player save storage.
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/astral-district/internal/player"
)

const (
	// PrimarySlot holds the current save.
	PrimarySlot = "astral-district/player"
	// LegacySlot holds saves written before records were versioned. It is
	// read as a fallback and always cleared on reset.
	LegacySlot = "astral-district/player-legacy"

	metaPrefix = "astral-district/"
)

// DB wraps a SQLite connection for player persistence.
type DB struct {
	conn *sqlx.DB
	now  func() time.Time
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One writer; sqlite serializes anyway and this keeps WAL setup simple.
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn, now: time.Now}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS saves (
		slot TEXT PRIMARY KEY,
		version INTEGER NOT NULL,
		payload TEXT NOT NULL,
		saved_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := db.conn.Exec(schema)
	return err
}

type saveRow struct {
	Slot    string `db:"slot"`
	Version int    `db:"version"`
	Payload string `db:"payload"`
	SavedAt string `db:"saved_at"`
}

// Load reads the saved player. A missing or malformed save reports false;
// storage errors are logged and also report false so the caller starts fresh.
func (db *DB) Load(ctx context.Context) (player.State, bool) {
	for _, slot := range []string{PrimarySlot, LegacySlot} {
		var row saveRow
		err := db.conn.GetContext(ctx, &row,
			"SELECT slot, version, payload, saved_at FROM saves WHERE slot = ?", slot)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			slog.Warn("load save failed", "slot", slot, "error", err)
			return player.State{}, false
		}

		st, err := Decode([]byte(row.Payload), slot == LegacySlot)
		if err != nil {
			slog.Warn("discarding malformed save", "slot", slot, "error", err)
			return player.State{}, false
		}
		slog.Info("save loaded", "slot", slot, "player", st.Name, "level", st.Level, "saved_at", row.SavedAt)
		return st, true
	}
	return player.State{}, false
}

// Save writes the player to the primary slot.
func (db *DB) Save(ctx context.Context, st player.State) error {
	payload, err := Encode(st)
	if err != nil {
		return fmt.Errorf("encode save: %w", err)
	}
	_, err = db.conn.ExecContext(ctx,
		"INSERT OR REPLACE INTO saves (slot, version, payload, saved_at) VALUES (?, ?, ?, ?)",
		PrimarySlot, RecordVersion, string(payload), db.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("write save: %w", err)
	}
	return nil
}

// Clear removes every save slot and game metadata key.
func (db *DB) Clear(ctx context.Context) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM saves WHERE slot IN (?, ?)", PrimarySlot, LegacySlot); err != nil {
		return fmt.Errorf("clear saves: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM meta WHERE key LIKE ?", metaPrefix+"%"); err != nil {
		return fmt.Errorf("clear meta: %w", err)
	}
	return tx.Commit()
}

// SaveMeta stores a game metadata value.
func (db *DB) SaveMeta(ctx context.Context, key, value string) error {
	_, err := db.conn.ExecContext(ctx,
		"INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)",
		metaPrefix+key, value,
	)
	return err
}

// GetMeta retrieves a metadata value. ok is false when the key is unset.
func (db *DB) GetMeta(ctx context.Context, key string) (value string, ok bool, err error) {
	err = db.conn.GetContext(ctx, &value, "SELECT value FROM meta WHERE key = ?", metaPrefix+key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}
