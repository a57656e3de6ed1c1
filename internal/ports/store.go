package ports

import "github.com/mikey/header-analyzer/internal/core"

// Store persists analysis history and user accounts
type Store interface {
	core.HistoryRepository
	core.UserRepository

	// Close stops background work and releases the underlying connection
	Close() error
}
