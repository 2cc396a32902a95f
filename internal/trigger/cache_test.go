package trigger

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/streamreact/companion/internal/domain"
)

type memSource struct {
	mu       sync.Mutex
	triggers []domain.Trigger
	err      error
	reads    atomic.Int32
}

func (m *memSource) ListTriggers(_ context.Context, _ bool) ([]domain.Trigger, error) {
	m.reads.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return append([]domain.Trigger(nil), m.triggers...), nil
}

func (m *memSource) set(triggers []domain.Trigger, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.triggers, m.err = triggers, err
}

func TestCacheStartsEmpty(t *testing.T) {
	c := NewCache(&memSource{}, zap.NewNop())
	_, loaded := c.Snapshot()
	assert.False(t, loaded)
}

func TestCacheRefreshReplacesSnapshot(t *testing.T) {
	src := &memSource{triggers: []domain.Trigger{active("привет", "greeting", 1)}}
	c := NewCache(src, zap.NewNop())
	require.NoError(t, c.Refresh(context.Background()))

	got, loaded := c.Snapshot()
	require.True(t, loaded)
	require.Len(t, got, 1)

	src.set([]domain.Trigger{active("круто", "cool", 2), active("привет", "greeting", 1)}, nil)
	require.NoError(t, c.Refresh(context.Background()))
	got, _ = c.Snapshot()
	assert.Len(t, got, 2)
}

func TestCacheKeepsSnapshotOnFailure(t *testing.T) {
	src := &memSource{triggers: []domain.Trigger{active("привет", "greeting", 1)}}
	c := NewCache(src, zap.NewNop())
	require.NoError(t, c.Refresh(context.Background()))

	src.set(nil, errors.New("database is locked"))
	assert.Error(t, c.Refresh(context.Background()))

	got, loaded := c.Snapshot()
	require.True(t, loaded)
	hit, ok := Match("привет всем", got)
	require.True(t, ok)
	assert.Equal(t, "greeting", hit.Category)
}

func TestCacheSnapshotReadsDoNotTouchSource(t *testing.T) {
	src := &memSource{triggers: []domain.Trigger{active("привет", "greeting", 1)}}
	c := NewCache(src, zap.NewNop())
	require.NoError(t, c.Refresh(context.Background()))

	for i := 0; i < 100; i++ {
		c.Snapshot()
	}
	assert.Equal(t, int32(1), src.reads.Load())
}

func TestCacheRunPicksUpChanges(t *testing.T) {
	src := &memSource{}
	c := NewCache(src, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, 5*time.Millisecond) }()

	src.set([]domain.Trigger{active("донат", domain.CategoryDonation, 10)}, nil)
	require.Eventually(t, func() bool {
		got, _ := c.Snapshot()
		_, ok := FirstInCategory(domain.CategoryDonation, got)
		return ok
	}, time.Second, 5*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}
