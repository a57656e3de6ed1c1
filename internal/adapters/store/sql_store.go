package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mikey/header-analyzer/internal/core"
	"go.uber.org/zap"
)

// dialect captures what differs between the SQL backends
type dialect struct {
	name              string
	schema            []string
	encodeTime        func(time.Time) any
	isUniqueViolation func(error) bool
}

// sqlStore implements the history and user repositories over database/sql
type sqlStore struct {
	db      *sql.DB
	dialect dialect
	logger  *zap.Logger
	cleanup *retentionTask
}

const historyColumns = `id, user_id, from_addr, to_addr, subject, date_value,
	spf_status, dkim_status, dmarc_status, safe_meter, sender_ip, ip_location, created_at`

func newSQLStore(db *sql.DB, d dialect, logger *zap.Logger) (*sqlStore, error) {
	for _, stmt := range d.schema {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("failed to create %s schema: %w", d.name, err)
		}
	}
	return &sqlStore{db: db, dialect: d, logger: logger}, nil
}

func (s *sqlStore) startCleanup(retention, cleanupFreq time.Duration) {
	s.cleanup = startRetentionTask(s, s.logger, retention, cleanupFreq)
}

// SaveRecord inserts a history record
func (s *sqlStore) SaveRecord(ctx context.Context, r *core.HistoryRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO history (`+historyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.UserID, r.From, r.To, r.Subject, r.Date,
		r.SPFStatus, r.DKIMStatus, r.DMARCStatus, r.SafeMeter, r.SenderIP, r.IPLocation,
		s.dialect.encodeTime(r.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert history record: %w", err)
	}
	return nil
}

// ListRecords returns matching records in reverse insertion order
func (s *sqlStore) ListRecords(ctx context.Context, filter core.HistoryFilter) ([]core.HistoryRecord, error) {
	var (
		query strings.Builder
		args  []any
	)
	query.WriteString(`SELECT ` + historyColumns + ` FROM history`)
	if filter.UserID != "" {
		query.WriteString(` WHERE user_id = ?`)
		args = append(args, filter.UserID)
	}
	query.WriteString(` ORDER BY seq DESC`)
	if filter.Limit > 0 {
		query.WriteString(` LIMIT ?`)
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	records := []core.HistoryRecord{}
	for rows.Next() {
		var (
			r       core.HistoryRecord
			created string
		)
		if err := rows.Scan(&r.ID, &r.UserID, &r.From, &r.To, &r.Subject, &r.Date,
			&r.SPFStatus, &r.DKIMStatus, &r.DMARCStatus, &r.SafeMeter, &r.SenderIP, &r.IPLocation,
			&created); err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}
		if r.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	return records, nil
}

// ClearRecords deletes every history record
func (s *sqlStore) ClearRecords(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM history`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear history: %w", err)
	}
	return s.rowsAffected(result), nil
}

// PruneRecords deletes records created before the cutoff
func (s *sqlStore) PruneRecords(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM history
		WHERE created_at < ?
	`, s.dialect.encodeTime(before))
	if err != nil {
		return 0, fmt.Errorf("failed to prune history: %w", err)
	}
	return s.rowsAffected(result), nil
}

// CreateUser inserts a user, mapping a duplicate email to core.ErrUserExists
func (s *sqlStore) CreateUser(ctx context.Context, u *core.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, password_hash, role, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, u.ID, u.Name, u.Email, u.PasswordHash, string(u.Role), s.dialect.encodeTime(u.CreatedAt))
	if err != nil {
		if s.dialect.isUniqueViolation(err) {
			return core.ErrUserExists
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetUserByEmail looks a user up by normalized email
func (s *sqlStore) GetUserByEmail(ctx context.Context, email string) (*core.User, error) {
	var (
		u       core.User
		role    string
		created string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, role, created_at
		FROM users
		WHERE email = ?
	`, email).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	u.Role = core.Role(role)
	if u.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	return &u, nil
}

// Close stops the background cleanup task and closes the database connection
func (s *sqlStore) Close() error {
	s.cleanup.stop()
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close %s database: %w", s.dialect.name, err)
	}
	return nil
}

func (s *sqlStore) rowsAffected(result sql.Result) int64 {
	n, err := result.RowsAffected()
	if err != nil {
		s.logger.Warn("Failed to get rows affected", zap.Error(err))
		return 0
	}
	return n
}

// parseTime accepts both the fixed-width text written to SQLite and the
// RFC3339Nano rendering database/sql produces when scanning a time.Time into a string
func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}
