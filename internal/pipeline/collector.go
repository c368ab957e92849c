package pipeline

import "sync"

// collector gathers results from page workers. Once closed it silently
// drops further writes, so workers that outlive a timeout cannot change a
// result that has already been returned.
type collector[T any] struct {
	mu     sync.Mutex
	closed bool
	items  []T
}

func (c *collector[T]) add(items ...T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.items = append(c.items, items...)
	return true
}

// close stops accepting writes and returns what was collected.
func (c *collector[T]) close() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}
