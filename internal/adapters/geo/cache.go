package geo

import (
	"context"
	"sync"
	"time"

	"github.com/mikey/header-analyzer/internal/core"
	"go.uber.org/zap"
)

type cacheEntry struct {
	location  core.Location
	expiresAt time.Time
}

// CachedLocator keeps successful lookups in memory for a fixed TTL
type CachedLocator struct {
	next     core.GeoLocator
	ttl      time.Duration
	entries  map[string]cacheEntry
	mu       sync.RWMutex
	logger   *zap.Logger
	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewCachedLocator wraps next with a TTL cache. Expired entries are swept every
// ttl, which must be positive.
func NewCachedLocator(next core.GeoLocator, ttl time.Duration, logger *zap.Logger) *CachedLocator {
	c := &CachedLocator{
		next:    next,
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		logger:  logger,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}

	// Start background cleanup
	go c.startCleanupTask()

	return c
}

// Locate returns a cached location or asks the wrapped provider. Failures are not cached.
func (c *CachedLocator) Locate(ctx context.Context, ip string) (*core.Location, error) {
	if loc, ok := c.get(ip); ok {
		c.logger.Debug("Geolocation cache hit", zap.String("ip", ip))
		return &loc, nil
	}

	loc, err := c.next.Locate(ctx, ip)
	if err != nil || loc == nil {
		return loc, err
	}

	c.mu.Lock()
	c.entries[ip] = cacheEntry{location: *loc, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()

	return loc, nil
}

func (c *CachedLocator) get(ip string) (core.Location, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[ip]
	if !ok || c.now().After(entry.expiresAt) {
		return core.Location{}, false
	}
	return entry.location, true
}

// Cleanup removes expired entries
func (c *CachedLocator) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	expiredCount := 0
	for ip, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, ip)
			expiredCount++
		}
	}

	c.logger.Debug("Cleaned up expired geolocation entries", zap.Int("expired_count", expiredCount))
}

func (c *CachedLocator) startCleanupTask() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Cleanup()
		case <-c.stopCh:
			return
		}
	}
}

// Close stops the background cleanup task
func (c *CachedLocator) Close() error {
	c.stopOnce.Do(func() { close(c.stopCh) })
	return nil
}
