package diag

import (
	"context"
	"sync"
)

// staticCache memoizes one lazily-fetched, invariant-per-connector value.
// Fast path (already populated): RLock, read, return. Slow path: Lock,
// re-check (another goroutine may have won the race), fetch, store,
// unlock. A failed fetch is not cached — the next call retries (§4.4).
type staticCache[T any] struct {
	mu    sync.RWMutex
	value *T
}

func (c *staticCache[T]) get(ctx context.Context, fetch func(context.Context) (T, error)) (T, error) {
	c.mu.RLock()
	if c.value != nil {
		v := *c.value
		c.mu.RUnlock()
		return v, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.value != nil {
		return *c.value, nil
	}
	v, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	c.value = &v
	return v, nil
}
