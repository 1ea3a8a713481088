package sbus

import (
	"container/list"
	"testing"
)

func maxRangeAlways(n int) func(Space) int {
	return func(Space) int { return n }
}

func TestDrainQueueCoalescesConsecutiveRun(t *testing.T) {
	// spec.md §8 scenario 5: registers 10..25 (16 items), one request.
	q := list.New()
	items := make([]*Item, 16)
	for i := 0; i < 16; i++ {
		items[i] = newItem(SpaceRegister, 10+i, nil)
		q.PushBack(items[i])
	}

	op, ok := drainQueue(q, OpRead, maxRangeAlways(32))
	if !ok {
		t.Fatal("expected a RangeOp")
	}
	if op.Start != 10 || len(op.Items) != 16 {
		t.Errorf("op = {Start:%d len:%d}, want {10, 16}", op.Start, len(op.Items))
	}
	if q.Len() != 0 {
		t.Errorf("queue should be fully drained, has %d left", q.Len())
	}
}

func TestDrainQueueStopsAtGap(t *testing.T) {
	q := list.New()
	q.PushBack(newItem(SpaceRegister, 10, nil))
	q.PushBack(newItem(SpaceRegister, 11, nil))
	q.PushBack(newItem(SpaceRegister, 20, nil)) // gap: not 12

	op, ok := drainQueue(q, OpRead, maxRangeAlways(32))
	if !ok {
		t.Fatal("expected a RangeOp")
	}
	if len(op.Items) != 2 {
		t.Errorf("len(op.Items) = %d, want 2 (stop at the gap)", len(op.Items))
	}
	if q.Len() != 1 {
		t.Errorf("queue should have 1 item left (the one past the gap), has %d", q.Len())
	}
}

func TestDrainQueueStopsAtDifferentSpace(t *testing.T) {
	q := list.New()
	q.PushBack(newItem(SpaceRegister, 1, nil))
	q.PushBack(newItem(SpaceFlag, 2, nil))

	op, _ := drainQueue(q, OpRead, maxRangeAlways(32))
	if len(op.Items) != 1 {
		t.Errorf("len(op.Items) = %d, want 1 (different space stops the run)", len(op.Items))
	}
}

func TestDrainQueueRespectsOpcodeLimit(t *testing.T) {
	q := list.New()
	for i := 0; i < 40; i++ {
		q.PushBack(newItem(SpaceRegister, i, nil))
	}
	op, _ := drainQueue(q, OpRead, maxRangeAlways(32))
	if len(op.Items) != 32 {
		t.Errorf("len(op.Items) = %d, want 32 (opcode limit)", len(op.Items))
	}
	if q.Len() != 8 {
		t.Errorf("queue should retain the remaining 8 items, has %d", q.Len())
	}
}

func TestMemoryNextOpDrainOrderPriorityThenPushThenPull(t *testing.T) {
	m := NewMemory(nil)
	pullItem, _ := m.Registers().Declare(1)
	pushItem, _ := m.Registers().Declare(50)
	priorityItem, _ := m.Registers().Declare(100)

	m.EnqueuePull(pullItem)
	m.EnqueuePush(pushItem)
	m.EnqueuePriorityPull(priorityItem)

	op, ok := m.NextOp()
	if !ok || op.Kind != OpRead || op.Items[0] != priorityItem {
		t.Fatalf("expected priority-pull to drain first, got %+v", op)
	}

	op, ok = m.NextOp()
	if !ok || op.Kind != OpWrite || op.Items[0] != pushItem {
		t.Fatalf("expected push to drain second, got %+v", op)
	}

	op, ok = m.NextOp()
	if !ok || op.Kind != OpRead || op.Items[0] != pullItem {
		t.Fatalf("expected pull to drain last, got %+v", op)
	}
}
