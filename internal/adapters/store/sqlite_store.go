package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// sqliteTimeFormat is fixed width so text comparison orders timestamps
const sqliteTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

var sqliteSchema = []string{`
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`, `
	CREATE TABLE IF NOT EXISTS history (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		user_id TEXT NOT NULL,
		from_addr TEXT NOT NULL,
		to_addr TEXT NOT NULL,
		subject TEXT NOT NULL,
		date_value TEXT NOT NULL,
		spf_status TEXT NOT NULL,
		dkim_status TEXT NOT NULL,
		dmarc_status TEXT NOT NULL,
		safe_meter TEXT NOT NULL,
		sender_ip TEXT NOT NULL,
		ip_location TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_history_user_id ON history(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_history_created_at ON history(created_at)`,
}

// SQLiteStore is a SQLite implementation of the history and user repositories
type SQLiteStore struct {
	*sqlStore
}

// NewSQLiteStore opens (and creates if needed) the database at dbPath
func NewSQLiteStore(dbPath string, logger *zap.Logger, retention, cleanupFreq time.Duration) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	s, err := newSQLStore(db, dialect{
		name:   "SQLite",
		schema: sqliteSchema,
		encodeTime: func(t time.Time) any {
			return t.UTC().Format(sqliteTimeFormat)
		},
		isUniqueViolation: func(err error) bool {
			var sqliteErr sqlite3.Error
			return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
		},
	}, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.startCleanup(retention, cleanupFreq)

	return &SQLiteStore{sqlStore: s}, nil
}
