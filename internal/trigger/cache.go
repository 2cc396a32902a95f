package trigger

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/streamreact/companion/internal/domain"
)

// Source lists triggers ordered by priority descending.
type Source interface {
	ListTriggers(ctx context.Context, activeOnly bool) ([]domain.Trigger, error)
}

// Cache holds the active triggers in memory so matching never waits on the
// store. The snapshot is replaced whole on every refresh and never mutated.
type Cache struct {
	src      Source
	snapshot atomic.Pointer[[]domain.Trigger]
	group    singleflight.Group
	log      *zap.Logger
}

// NewCache creates an empty cache. Nothing is read until Refresh.
func NewCache(src Source, log *zap.Logger) *Cache {
	return &Cache{src: src, log: log}
}

// Snapshot returns the current triggers and whether any refresh has
// succeeded yet.
func (c *Cache) Snapshot() ([]domain.Trigger, bool) {
	p := c.snapshot.Load()
	if p == nil {
		return nil, false
	}
	return *p, true
}

// Refresh reloads the active triggers. Concurrent callers share one read.
// On failure the previous snapshot stays in place.
func (c *Cache) Refresh(ctx context.Context) error {
	_, err, _ := c.group.Do("triggers", func() (interface{}, error) {
		triggers, err := c.src.ListTriggers(ctx, true)
		if err != nil {
			return nil, err
		}
		c.snapshot.Store(&triggers)
		return nil, nil
	})
	return err
}

// Run refreshes every interval until ctx is done.
func (c *Cache) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := c.Refresh(ctx); err != nil && ctx.Err() == nil {
				c.log.Warn("trigger refresh failed, keeping previous snapshot", zap.Error(err))
			}
		}
	}
}
