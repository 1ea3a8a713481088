package sbus

import (
	"context"
	"time"
)

// ItemGroup aggregates a set of Items for group-level queries, grounded
// in original_source's `SAIAItemGroup` convenience wrapper: "isRaised",
// "isChanged", "isUpdated" etc. across many items at once instead of the
// application polling each individually.
type ItemGroup struct {
	items []*Item
}

// NewItemGroup wraps items for aggregate queries.
func NewItemGroup(items ...*Item) *ItemGroup {
	g := &ItemGroup{}
	g.items = append(g.items, items...)
	return g
}

// Add appends more items to the group.
func (g *ItemGroup) Add(items ...*Item) { g.items = append(g.items, items...) }

// Items returns the group's members.
func (g *ItemGroup) Items() []*Item { return g.items }

// IsRaised reports whether any member's raised flag is set, consuming
// every member's flag in the process (mirrors Item.IsRaised's
// test-and-clear contract at group scope).
func (g *ItemGroup) IsRaised(reset bool) bool {
	any := false
	for _, it := range g.items {
		if it.IsRaised(reset) {
			any = true
		}
	}
	return any
}

// IsChanged reports whether any member changed.
func (g *ItemGroup) IsChanged(reset bool) bool {
	any := false
	for _, it := range g.items {
		if it.IsChanged(reset) {
			any = true
		}
	}
	return any
}

// IsUpdated reports whether any member was updated.
func (g *ItemGroup) IsUpdated(reset bool) bool {
	any := false
	for _, it := range g.items {
		if it.IsUpdated(reset) {
			any = true
		}
	}
	return any
}

// IsAlive reports whether every member is currently alive.
func (g *ItemGroup) IsAlive(containerDefault time.Duration) bool {
	for _, it := range g.items {
		if !it.IsAlive(containerDefault) {
			return false
		}
	}
	return true
}

// Read blocks until every member's value has arrived at least once since
// the call began, or the shared deadline elapses (spec.md §5 "group-level
// read(timeout) awaits each item's updated-flag with a shared deadline").
func (g *ItemGroup) Read(ctx context.Context, timeout time.Duration, enqueue func(*Item)) bool {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ok := true
	for _, it := range g.items {
		if _, arrived := it.Read(cctx, timeout, enqueue); !arrived {
			ok = false
		}
	}
	return ok
}
