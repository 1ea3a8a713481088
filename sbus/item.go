package sbus

import (
	"context"
	"sync"
	"time"

	"github.com/timotiviert/digimat-saia/format"
)

// Item is a single addressable cell in a Server's memory mirror: either a
// Boolean value (inputs/flags/outputs) or a 32-bit Analog value
// (registers/timers/counters), modeled as a tagged variant rather than a
// class hierarchy (spec.md §9 REDESIGN FLAGS). All mutable state lives
// behind mu; the event flags and latches give application goroutines a
// boundary that does not require locking the whole item.
type Item struct {
	space     Space
	index     int
	container *Container // owning container, for Next/Previous adjacency

	mu         sync.Mutex
	boolValue  bool
	rawValue   uint32 // analog items: raw 32-bit word, pre-formatter
	hasPush    bool
	pushBool   bool
	pushRaw    uint32
	stamp      time.Time
	inhibitTil time.Time
	refresh    time.Duration // 0 means "use container default"
	readOnly   bool
	formatter  format.Formatter // analog items only; nil means raw integer

	raised  flag
	changed flag
	updated flag
	pushing flag
	pulling flag

	knownOnce latch
	arrived   latch
}

func newItem(space Space, index int, container *Container) *Item {
	return &Item{space: space, index: index, container: container}
}

// Space reports the address space the item lives in.
func (it *Item) Space() Space { return it.space }

// Index reports the item's index within its space.
func (it *Item) Index() int { return it.index }

// Next returns the nth-following item in the same container, i.e. the one
// declared at index+n (original_source/items.py's SAIAItem.next: "return
// none if index+1 don't exist"). n defaults to 1 semantics are the
// caller's; this takes n explicitly since Go has no default arguments.
func (it *Item) Next(n int) (*Item, bool) {
	if it.container == nil {
		return nil, false
	}
	return it.container.Lookup(it.index + n)
}

// Previous returns the nth-preceding item in the same container
// (original_source/items.py's SAIAItem.previous).
func (it *Item) Previous(n int) (*Item, bool) {
	if it.container == nil {
		return nil, false
	}
	return it.container.Lookup(it.index - n)
}

// Boolean reports whether this item carries a single-bit value.
func (it *Item) Boolean() bool { return it.space.Boolean() }

// SetFormatter installs a decode/encode codec for an analog item's raw
// word. It is a no-op on Boolean items.
func (it *Item) SetFormatter(f format.Formatter) {
	if it.Boolean() {
		return
	}
	it.mu.Lock()
	it.formatter = f
	it.mu.Unlock()
}

// SetReadOnly marks the item as not accepting application-side writes.
func (it *Item) SetReadOnly(ro bool) {
	it.mu.Lock()
	it.readOnly = ro
	it.mu.Unlock()
}

// SetRefreshDelay overrides the container's default refresh delay for this
// item alone. A zero duration reverts to the container default.
func (it *Item) SetRefreshDelay(d time.Duration) {
	it.mu.Lock()
	it.refresh = d
	it.mu.Unlock()
}

// BoolValue returns the item's current boolean value. It is meaningless on
// an analog item.
func (it *Item) BoolValue() bool {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.boolValue
}

// RawValue returns the item's current raw 32-bit word. It is meaningless on
// a boolean item.
func (it *Item) RawValue() uint32 {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.rawValue
}

// Value returns the item's decoded value: for a Boolean item, 1.0 or 0.0;
// for an Analog item, the formatter's Decode output (or the raw signed
// integer if no formatter is installed).
func (it *Item) Value() float64 {
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.Boolean() {
		if it.boolValue {
			return 1
		}
		return 0
	}
	if it.formatter != nil {
		return it.formatter.Decode(it.rawValue)
	}
	return float64(int32(it.rawValue))
}

// Age reports how long it has been since the item last received a wire
// update. A zero stamp (never updated) reports a very large age.
func (it *Item) Age() time.Duration {
	it.mu.Lock()
	stamp := it.stamp
	it.mu.Unlock()
	if stamp.IsZero() {
		return time.Duration(1<<63 - 1)
	}
	return time.Since(stamp)
}

// effectiveRefresh resolves the item's own override against the container
// default (spec.md §4.4 "cascades: item override -> container default").
func (it *Item) effectiveRefresh(containerDefault time.Duration) time.Duration {
	it.mu.Lock()
	d := it.refresh
	it.mu.Unlock()
	if d > 0 {
		return d
	}
	return containerDefault
}

// IsAlive reports whether the item has been updated recently enough,
// relative to its refresh delay (spec.md §4.4): age <= max(1.5*refresh, 15s).
func (it *Item) IsAlive(containerDefault time.Duration) bool {
	refresh := it.effectiveRefresh(containerDefault)
	cap := time.Duration(float64(refresh) * 1.5)
	if cap < 15*time.Second {
		cap = 15 * time.Second
	}
	return it.Age() <= cap
}

// IsRaised tests-and-clears the raised flag (false->true transition).
func (it *Item) IsRaised(reset bool) bool { return it.raised.Test(reset) }

// IsChanged tests-and-clears the changed flag.
func (it *Item) IsChanged(reset bool) bool { return it.changed.Test(reset) }

// IsUpdated tests-and-clears the updated flag (any wire write, changed or not).
func (it *Item) IsUpdated(reset bool) bool { return it.updated.Test(reset) }

// IsPushPending reports whether a push value is queued.
func (it *Item) IsPushPending() bool { return it.pushing.Test(false) }

// IsPullPending reports whether a pull has been requested and not yet
// satisfied.
func (it *Item) IsPullPending() bool { return it.pulling.Test(false) }

// setValue applies a wire-sourced update. force=true always stamps and
// fires updated; changed/raised only fire relative to the previous value,
// and only once a first value has ever been stamped (spec.md Invariants:
// "first ever value is silent").
func (it *Item) setValueBool(v bool, force bool) {
	it.mu.Lock()
	hadStamp := !it.stamp.IsZero()
	prev := it.boolValue
	it.boolValue = v
	it.stamp = time.Now()
	it.mu.Unlock()

	it.updated.Set()
	it.pulling.Clear()
	if hadStamp {
		if v != prev {
			it.changed.Set()
			if v {
				it.raised.Set()
			}
		}
	}
	it.knownOnce.Fire()
	it.arrived.Fire()
	_ = force
}

func (it *Item) setValueRaw(raw uint32, force bool) {
	it.mu.Lock()
	hadStamp := !it.stamp.IsZero()
	prev := it.rawValue
	it.rawValue = raw
	it.stamp = time.Now()
	it.mu.Unlock()

	it.updated.Set()
	it.pulling.Clear()
	if hadStamp && raw != prev {
		it.changed.Set()
		if raw != 0 && prev == 0 {
			it.raised.Set()
		}
	}
	it.knownOnce.Fire()
	it.arrived.Fire()
	_ = force
}

// Write sets the application-desired boolean value. If it differs from the
// cached value, a push is enqueued (debounced by the pushing flag); a
// read-only item silently ignores the write (spec.md §7 policy).
func (it *Item) WriteBool(v bool, enqueue func(*Item)) {
	it.mu.Lock()
	if it.readOnly {
		it.mu.Unlock()
		return
	}
	unchanged := it.boolValue == v && !it.hasPush
	it.pushBool = v
	it.hasPush = true
	it.mu.Unlock()

	if unchanged {
		return
	}
	if !it.pushing.Test(false) {
		it.pushing.Set()
		if enqueue != nil {
			enqueue(it)
		}
	}
}

// WriteRaw sets the application-desired raw word for an analog item.
func (it *Item) WriteRaw(raw uint32, enqueue func(*Item)) {
	it.mu.Lock()
	if it.readOnly {
		it.mu.Unlock()
		return
	}
	unchanged := it.rawValue == raw && !it.hasPush
	it.pushRaw = raw
	it.hasPush = true
	it.mu.Unlock()

	if unchanged {
		return
	}
	if !it.pushing.Test(false) {
		it.pushing.Set()
		if enqueue != nil {
			enqueue(it)
		}
	}
}

// WriteValue encodes v through the installed formatter (or truncates to a
// signed 32-bit integer if none is installed) and calls WriteRaw.
func (it *Item) WriteValue(v float64, enqueue func(*Item)) {
	it.mu.Lock()
	f := it.formatter
	it.mu.Unlock()
	var raw uint32
	if f != nil {
		raw = f.Encode(v)
	} else {
		raw = uint32(int32(v))
	}
	it.WriteRaw(raw, enqueue)
}

// popPushBool takes the queued push value, returning it and whether one was
// queued. Push-pending stays set until onPushComplete, which clears it and
// arms pull-pending so the confirmation pull is tracked.
func (it *Item) popPushBool() (bool, bool) {
	it.mu.Lock()
	defer it.mu.Unlock()
	if !it.hasPush {
		return false, false
	}
	v := it.pushBool
	it.hasPush = false
	return v, true
}

func (it *Item) popPushRaw() (uint32, bool) {
	it.mu.Lock()
	defer it.mu.Unlock()
	if !it.hasPush {
		return 0, false
	}
	v := it.pushRaw
	it.hasPush = false
	return v, true
}

func (it *Item) onPushComplete() {
	it.pushing.Clear()
	it.pulling.Set()
}

// markPullPending sets the pull-pending flag; pull scheduling itself lives
// in Memory's queues. It lets Read report pull-pending immediately.
func (it *Item) markPullPending() {
	it.pulling.Set()
}

// Read raises a priority pull (via enqueue) and blocks until either the
// value-arrived latch fires or the timeout elapses, returning the decoded
// value and whether it arrived in time (spec.md §4.4).
func (it *Item) Read(ctx context.Context, timeout time.Duration, enqueue func(*Item)) (float64, bool) {
	it.markPullPending()
	if enqueue != nil {
		enqueue(it)
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if !it.arrived.Wait(cctx) {
		return 0, false
	}
	return it.Value(), true
}
