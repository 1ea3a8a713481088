package sbus

import (
	"testing"
	"time"
)

func TestContainerDeclareReturnsSameItem(t *testing.T) {
	c := NewContainer(SpaceRegister, 100, nil)
	a, ok := c.Declare(10)
	if !ok {
		t.Fatal("Declare(10) should succeed")
	}
	b, ok := c.Declare(10)
	if !ok || b != a {
		t.Error("declaring the same index twice should return the same Item")
	}
	if c.Count() != 1 {
		t.Errorf("Count() = %d, want 1", c.Count())
	}
}

func TestContainerDeclareOutOfRangeIsSilent(t *testing.T) {
	c := NewContainer(SpaceRegister, 100, nil)
	if _, ok := c.Declare(100); ok {
		t.Error("Declare(100) on a 100-slot container should fail silently")
	}
	if _, ok := c.Declare(-1); ok {
		t.Error("Declare(-1) should fail silently")
	}
}

func TestContainerDeclareRunsInitHook(t *testing.T) {
	var seen []*Item
	c := NewContainer(SpaceRegister, 100, func(it *Item) { seen = append(seen, it) })
	it, _ := c.Declare(5)
	if len(seen) != 1 || seen[0] != it {
		t.Errorf("declare hook did not fire with the new item")
	}
}

func TestContainerDeclareRangeAndFromTo(t *testing.T) {
	c := NewContainer(SpaceRegister, 100, nil)
	items := c.DeclareRange(10, 5)
	if len(items) != 5 {
		t.Fatalf("DeclareRange(10,5) returned %d items, want 5", len(items))
	}
	items2 := c.DeclareFromTo(20, 22)
	if len(items2) != 3 {
		t.Fatalf("DeclareFromTo(20,22) returned %d items, want 3", len(items2))
	}
	if c.Count() != 8 {
		t.Errorf("Count() = %d, want 8", c.Count())
	}
}

func TestContainerManagerEnqueuesStalePulls(t *testing.T) {
	c := NewContainer(SpaceRegister, 100, nil)
	c.SetDefaultRefreshDelay(time.Millisecond)
	it, _ := c.Declare(1)
	it.setValueRaw(1, true) // stamp it so age starts counting

	time.Sleep(5 * time.Millisecond)

	var enqueued []*Item
	c.Manager(func(it *Item) { enqueued = append(enqueued, it) })

	if len(enqueued) != 1 || enqueued[0] != it {
		t.Errorf("Manager should enqueue a pull for a stale item, got %v", enqueued)
	}
}
