package sbus

import (
	"sort"
	"sync"
	"time"
)

const (
	defaultRefreshDelay = 60 * time.Second
	reSortDelay         = 10 * time.Second
	managerBatchSize    = 64
	staleAfter          = 180 * time.Second
	staleInhibit        = 10 * time.Second
)

// Container is a typed holder for every declared Item in one address
// space: an ordered, best-effort-sorted list plus an index lookup, a
// round-robin cursor for the manager tick, and the container-wide default
// refresh delay (spec.md §4.4).
type Container struct {
	space    Space
	maxSize  int
	readOnly bool

	mu      sync.Mutex
	items   []*Item
	byIndex map[int]*Item

	cursor        int
	resortAt      time.Time
	refreshDelay  time.Duration
	onDeclareInit func(*Item) // hook: enqueue initial pull
}

// NewContainer creates an empty container for one address space.
func NewContainer(space Space, maxSize int, onDeclareInit func(*Item)) *Container {
	return &Container{
		space:         space,
		maxSize:       maxSize,
		byIndex:       make(map[int]*Item),
		refreshDelay:  defaultRefreshDelay,
		onDeclareInit: onDeclareInit,
	}
}

// SetReadOnly marks every item subsequently declared (and the container
// itself) as read-only.
func (c *Container) SetReadOnly(ro bool) {
	c.mu.Lock()
	c.readOnly = ro
	c.mu.Unlock()
}

// SetDefaultRefreshDelay changes the container-wide refresh cadence.
func (c *Container) SetDefaultRefreshDelay(d time.Duration) {
	c.mu.Lock()
	c.refreshDelay = d
	c.mu.Unlock()
}

// Declare validates 0 <= index < maxSize and returns the existing item if
// already declared, otherwise creates one, appends it, marks the container
// for re-sort, and enqueues an initial pull (spec.md §4.4). An
// out-of-range index returns (nil, false) — IndexOutOfRange is silent per
// spec.md §7.
func (c *Container) Declare(index int) (*Item, bool) {
	if index < 0 || index >= c.maxSize {
		return nil, false
	}
	c.mu.Lock()
	if it, ok := c.byIndex[index]; ok {
		c.mu.Unlock()
		return it, true
	}
	it := newItem(c.space, index, c)
	it.readOnly = c.readOnly
	c.items = append(c.items, it)
	c.byIndex[index] = it
	c.resortAt = time.Now().Add(reSortDelay)
	hook := c.onDeclareInit
	c.mu.Unlock()

	if hook != nil {
		hook(it)
	}
	return it, true
}

// DeclareRange declares start..start+n-1 inclusive.
func (c *Container) DeclareRange(start, n int) []*Item {
	out := make([]*Item, 0, n)
	for i := 0; i < n; i++ {
		if it, ok := c.Declare(start + i); ok {
			out = append(out, it)
		}
	}
	return out
}

// DeclareFromTo declares every index in [a, b] inclusive.
func (c *Container) DeclareFromTo(a, b int) []*Item {
	if b < a {
		return nil
	}
	return c.DeclareRange(a, b-a+1)
}

// Lookup returns the item at index, if declared.
func (c *Container) Lookup(index int) (*Item, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.byIndex[index]
	return it, ok
}

// Count returns the number of declared items.
func (c *Container) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Items returns a snapshot slice of the declared items in their current
// (best-effort sorted) order.
func (c *Container) Items() []*Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Item, len(c.items))
	copy(out, c.items)
	return out
}

// Manager advances the round-robin cursor over at most managerBatchSize
// items, enqueuing a normal pull for any item whose age has exceeded its
// refresh delay, inhibiting retries on long-stale items, and re-sorting
// the backing slice by index once the cursor wraps past the re-sort
// deadline (spec.md §4.4).
func (c *Container) Manager(enqueuePull func(*Item)) {
	c.mu.Lock()
	n := len(c.items)
	if n == 0 {
		c.mu.Unlock()
		return
	}
	refreshDelay := c.refreshDelay
	visit := managerBatchSize
	if visit > n {
		visit = n
	}
	start := c.cursor
	wrapped := false
	batch := make([]*Item, 0, visit)
	for i := 0; i < visit; i++ {
		idx := (start + i) % n
		batch = append(batch, c.items[idx])
		if idx < start {
			wrapped = true
		}
	}
	c.cursor = (start + visit) % n
	if c.cursor <= start {
		wrapped = true
	}
	shouldSort := wrapped && time.Now().After(c.resortAt)
	if shouldSort {
		sort.Slice(c.items, func(i, j int) bool { return c.items[i].index < c.items[j].index })
		c.resortAt = time.Now().Add(reSortDelay)
	}
	c.mu.Unlock()

	now := time.Now()
	for _, it := range batch {
		age := it.Age()
		refresh := it.effectiveRefresh(refreshDelay)
		it.mu.Lock()
		inhibited := now.Before(it.inhibitTil)
		it.mu.Unlock()
		if inhibited {
			continue
		}
		if age >= staleAfter {
			it.mu.Lock()
			it.inhibitTil = now.Add(staleInhibit)
			it.mu.Unlock()
		}
		if age >= refresh {
			it.markPullPending()
			if enqueuePull != nil {
				enqueuePull(it)
			}
		}
	}
}
