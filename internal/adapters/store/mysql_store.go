package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

const mysqlDuplicateEntry = 1062

var mysqlSchema = []string{`
	CREATE TABLE IF NOT EXISTS users (
		id VARCHAR(36) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		role VARCHAR(16) NOT NULL,
		created_at DATETIME(6) NOT NULL
	)`, `
	CREATE TABLE IF NOT EXISTS history (
		seq BIGINT AUTO_INCREMENT PRIMARY KEY,
		id VARCHAR(36) NOT NULL UNIQUE,
		user_id VARCHAR(36) NOT NULL,
		from_addr TEXT NOT NULL,
		to_addr TEXT NOT NULL,
		subject TEXT NOT NULL,
		date_value VARCHAR(255) NOT NULL,
		spf_status VARCHAR(32) NOT NULL,
		dkim_status VARCHAR(32) NOT NULL,
		dmarc_status VARCHAR(32) NOT NULL,
		safe_meter VARCHAR(64) NOT NULL,
		sender_ip VARCHAR(64) NOT NULL,
		ip_location VARCHAR(255) NOT NULL,
		created_at DATETIME(6) NOT NULL,
		INDEX idx_history_user_id (user_id),
		INDEX idx_history_created_at (created_at)
	) DEFAULT CHARSET=utf8mb4`,
}

// MySQLStore is a MySQL implementation of the history and user repositories
type MySQLStore struct {
	*sqlStore
}

// NewMySQLStore connects to dsn and creates the tables if they don't exist
func NewMySQLStore(dsn string, logger *zap.Logger, retention, cleanupFreq time.Duration) (*MySQLStore, error) {
	mysqlCfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid MySQL DSN: %w", err)
	}
	mysqlCfg.ParseTime = true
	mysqlCfg.Loc = time.UTC

	connector, err := mysql.NewConnector(mysqlCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create MySQL connector: %w", err)
	}
	db := sql.OpenDB(connector)

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	s, err := newSQLStore(db, dialect{
		name:   "MySQL",
		schema: mysqlSchema,
		encodeTime: func(t time.Time) any {
			return t.UTC()
		},
		isUniqueViolation: isMySQLDuplicate,
	}, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.startCleanup(retention, cleanupFreq)

	return &MySQLStore{sqlStore: s}, nil
}

func isMySQLDuplicate(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}
