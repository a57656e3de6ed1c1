package store

import (
	"context"
	"sync"
	"time"

	"github.com/mikey/header-analyzer/internal/core"
	"go.uber.org/zap"
)

// retentionTask periodically prunes history records older than the retention window
type retentionTask struct {
	repo      core.HistoryRepository
	logger    *zap.Logger
	retention time.Duration
	freq      time.Duration
	now       func() time.Time
	stopCh    chan struct{}
	stopOnce  sync.Once
}

// startRetentionTask returns nil when retention is disabled
func startRetentionTask(repo core.HistoryRepository, logger *zap.Logger, retention, freq time.Duration) *retentionTask {
	if retention <= 0 || freq <= 0 {
		return nil
	}
	t := &retentionTask{
		repo:      repo,
		logger:    logger,
		retention: retention,
		freq:      freq,
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}

	// Start background cleanup
	go t.run()

	return t
}

func (t *retentionTask) run() {
	ticker := time.NewTicker(t.freq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.prune(context.Background())
		case <-t.stopCh:
			return
		}
	}
}

func (t *retentionTask) prune(ctx context.Context) {
	deleted, err := t.repo.PruneRecords(ctx, t.now().Add(-t.retention))
	if err != nil {
		t.logger.Error("Failed to prune history", zap.Error(err))
		return
	}
	t.logger.Debug("Pruned expired history records", zap.Int64("expired_count", deleted))
}

// stop is safe on a nil task and when called more than once
func (t *retentionTask) stop() {
	if t == nil {
		return
	}
	t.stopOnce.Do(func() { close(t.stopCh) })
}
