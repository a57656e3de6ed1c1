package store

import (
	"context"
	"sync"
	"time"

	"github.com/mikey/header-analyzer/internal/core"
	"go.uber.org/zap"
)

// MemoryStore is an in-memory implementation of the history and user repositories
type MemoryStore struct {
	records []core.HistoryRecord
	users   map[string]core.User
	mu      sync.RWMutex
	logger  *zap.Logger
	cleanup *retentionTask
}

// NewMemoryStore creates a new in-memory store. Records older than retention are
// pruned every cleanupFreq; a zero retention keeps everything.
func NewMemoryStore(logger *zap.Logger, retention, cleanupFreq time.Duration) *MemoryStore {
	s := &MemoryStore{
		users:  make(map[string]core.User),
		logger: logger,
	}
	s.cleanup = startRetentionTask(s, logger, retention, cleanupFreq)
	return s
}

// SaveRecord appends a history record
func (s *MemoryStore) SaveRecord(_ context.Context, record *core.HistoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, *record)
	return nil
}

// ListRecords returns matching records, newest first
func (s *MemoryStore) ListRecords(_ context.Context, filter core.HistoryFilter) ([]core.HistoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []core.HistoryRecord{}
	for i := len(s.records) - 1; i >= 0; i-- {
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
		if filter.UserID != "" && s.records[i].UserID != filter.UserID {
			continue
		}
		out = append(out, s.records[i])
	}
	return out, nil
}

// ClearRecords removes every record
func (s *MemoryStore) ClearRecords(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := int64(len(s.records))
	s.records = nil
	return n, nil
}

// PruneRecords removes records created before the cutoff
func (s *MemoryStore) PruneRecords(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.records[:0]
	for _, r := range s.records {
		if !r.CreatedAt.Before(before) {
			kept = append(kept, r)
		}
	}
	deleted := int64(len(s.records) - len(kept))
	clear(s.records[len(kept):])
	s.records = kept
	return deleted, nil
}

// CreateUser stores a new user keyed by email
func (s *MemoryStore) CreateUser(_ context.Context, user *core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.Email]; ok {
		return core.ErrUserExists
	}
	s.users[user.Email] = *user
	return nil
}

// GetUserByEmail looks a user up by normalized email
func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (*core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[email]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &user, nil
}

// Close stops the background cleanup task
func (s *MemoryStore) Close() error {
	s.cleanup.stop()
	return nil
}
