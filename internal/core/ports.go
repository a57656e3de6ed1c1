package core

import (
	"context"
	"time"
)

// DMARCResolver looks up the DMARC record published for a domain
type DMARCResolver interface {
	// LookupDMARC returns the concatenated TXT strings of _dmarc.<domain>.
	// It returns ErrNoDMARCRecord when nothing is published.
	LookupDMARC(ctx context.Context, domain string) (string, error)
}

// GeoLocator maps a public IP address to a location
type GeoLocator interface {
	// Locate resolves the location of ip
	Locate(ctx context.Context, ip string) (*Location, error)
}

// HistoryRepository persists analysis records
type HistoryRepository interface {
	// SaveRecord stores a new record
	SaveRecord(ctx context.Context, record *HistoryRecord) error

	// ListRecords returns records newest first
	ListRecords(ctx context.Context, filter HistoryFilter) ([]HistoryRecord, error)

	// ClearRecords deletes every record and returns how many were removed
	ClearRecords(ctx context.Context) (int64, error)

	// PruneRecords deletes records created before the cutoff
	PruneRecords(ctx context.Context, before time.Time) (int64, error)
}

// UserRepository persists user accounts
type UserRepository interface {
	// CreateUser stores a new user, returning ErrUserExists for a taken email
	CreateUser(ctx context.Context, user *User) error

	// GetUserByEmail returns the user with the given email or ErrNotFound
	GetUserByEmail(ctx context.Context, email string) (*User, error)
}

// TokenIssuer issues and verifies signed bearer tokens
type TokenIssuer interface {
	// Issue signs a token for the principal
	Issue(p Principal) (string, error)

	// Verify checks a token and returns its principal, or ErrInvalidToken
	Verify(token string) (Principal, error)
}
