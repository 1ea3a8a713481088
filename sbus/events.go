package sbus

import (
	"context"
	"sync"
)

// flag is a test-and-clear boolean event, used for an item's
// raised/changed/updated transitions (spec.md §3 Invariants).
type flag struct {
	mu  sync.Mutex
	set bool
}

// Set arms the flag.
func (f *flag) Set() {
	f.mu.Lock()
	f.set = true
	f.mu.Unlock()
}

// Test reports whether the flag is armed, optionally clearing it.
func (f *flag) Test(reset bool) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := f.set
	if v && reset {
		f.set = false
	}
	return v
}

// Clear disarms the flag unconditionally.
func (f *flag) Clear() {
	f.mu.Lock()
	f.set = false
	f.mu.Unlock()
}

// latch is an edge-triggered, re-armable condition: Fire releases every
// goroutine currently in Wait, and any goroutine that calls Wait afterwards
// blocks again until the next Fire. This is the "value-arrived" latch named
// in spec.md §3/§9: a one-shot condition variable that can release multiple
// waiters per update.
type latch struct {
	mu sync.Mutex
	ch chan struct{}
}

func newLatch() *latch {
	return &latch{ch: make(chan struct{})}
}

// channelLocked returns the current generation channel, lazily creating it
// so a zero-value latch (as embedded in Item, never run through newLatch)
// is still safe to use.
func (l *latch) channelLocked() chan struct{} {
	if l.ch == nil {
		l.ch = make(chan struct{})
	}
	return l.ch
}

// Fire releases all current waiters and arms a fresh generation.
func (l *latch) Fire() {
	l.mu.Lock()
	close(l.channelLocked())
	l.ch = make(chan struct{})
	l.mu.Unlock()
}

// Wait blocks until the next Fire, the context is done, or deadline passes.
// It returns true if the latch fired before the context ended.
func (l *latch) Wait(ctx context.Context) bool {
	l.mu.Lock()
	ch := l.channelLocked()
	l.mu.Unlock()

	select {
	case <-ch:
		return true
	case <-ctx.Done():
		return false
	}
}
