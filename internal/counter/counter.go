// Package counter keeps the per-color crossing tally.
package counter

import (
	"sync"

	"color-counter/internal/signature"
)

// Listener is called with a fresh snapshot after every increment or reset.
type Listener func(Snapshot)

// Counter is a per-color tally. Names are fixed at construction; only
// Increment raises a count and only Reset lowers one.
type Counter struct {
	mu     sync.Mutex
	names  []string
	counts map[string]int

	listenersMu sync.RWMutex
	listeners   []Listener
}

// New creates a counter with every name at zero.
func New(names ...string) *Counter {
	c := &Counter{
		names:  append([]string(nil), names...),
		counts: make(map[string]int, len(names)),
	}
	for _, n := range names {
		c.counts[n] = 0
	}
	return c
}

// Increment adds one to each named color. If any name is unknown nothing is
// changed and a *signature.ConfigurationError is returned.
func (c *Counter) Increment(names ...string) error {
	if len(names) == 0 {
		return nil
	}

	c.mu.Lock()
	for _, n := range names {
		if _, ok := c.counts[n]; !ok {
			c.mu.Unlock()
			return signature.UnknownColor(n)
		}
	}
	for _, n := range names {
		c.counts[n]++
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.emit(snap)
	return nil
}

// Reset zeroes every tally.
func (c *Counter) Reset() {
	c.mu.Lock()
	for n := range c.counts {
		c.counts[n] = 0
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.emit(snap)
}

// Counts returns an immutable snapshot of the current tallies.
func (c *Counter) Counts() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Known reports whether name is tracked.
func (c *Counter) Known(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.counts[name]
	return ok
}

// Subscribe registers a listener. Listeners run synchronously on the
// goroutine that changed the counter and must not call back into it.
func (c *Counter) Subscribe(l Listener) {
	c.listenersMu.Lock()
	c.listeners = append(c.listeners, l)
	c.listenersMu.Unlock()
}

func (c *Counter) emit(s Snapshot) {
	c.listenersMu.RLock()
	listeners := c.listeners
	c.listenersMu.RUnlock()

	for _, l := range listeners {
		l(s)
	}
}

func (c *Counter) snapshotLocked() Snapshot {
	values := make([]int, len(c.names))
	for i, n := range c.names {
		values[i] = c.counts[n]
	}
	return Snapshot{names: append([]string(nil), c.names...), values: values}
}
