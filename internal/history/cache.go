package history

import (
	"context"
	"sync"

	"github.com/mediway/labreports/internal/entity"
)

// Cache is the fast tier in front of the history store. A miss is reported
// with ok=false; a cached empty window is indistinguishable from a miss.
type Cache interface {
	Get(ctx context.Context, reportID string) (turns []entity.Turn, ok bool, err error)
	Set(ctx context.Context, reportID string, turns []entity.Turn) error
	Delete(ctx context.Context, reportID string) error
}

// MemoryCache keeps windows in process.
type MemoryCache struct {
	mu    sync.RWMutex
	items map[string][]entity.Turn
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: make(map[string][]entity.Turn)}
}

func (c *MemoryCache) Get(_ context.Context, reportID string) ([]entity.Turn, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	turns, ok := c.items[reportID]
	if !ok || len(turns) == 0 {
		return nil, false, nil
	}
	return append([]entity.Turn(nil), turns...), true, nil
}

func (c *MemoryCache) Set(_ context.Context, reportID string, turns []entity.Turn) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[reportID] = append([]entity.Turn(nil), turns...)
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, reportID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, reportID)
	return nil
}
