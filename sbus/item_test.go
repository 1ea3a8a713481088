package sbus

import (
	"context"
	"testing"
	"time"
)

func TestItemFirstValueIsSilent(t *testing.T) {
	it := newItem(SpaceFlag, 1, nil)
	it.setValueBool(true, true)
	if it.IsRaised(true) {
		t.Error("IsRaised should be false on the very first update")
	}
	if it.IsChanged(true) {
		t.Error("IsChanged should be false on the very first update")
	}
	if !it.IsUpdated(true) {
		t.Error("IsUpdated should be true on any wire write")
	}
}

func TestItemRaisedOnlyOnFalseToTrueTransition(t *testing.T) {
	it := newItem(SpaceFlag, 1, nil)
	it.setValueBool(false, true) // first value, silent
	it.IsRaised(true)

	it.setValueBool(false, true) // no transition
	if it.IsRaised(true) {
		t.Error("IsRaised should not fire on false->false")
	}

	it.setValueBool(true, true) // false -> true
	if !it.IsRaised(true) {
		t.Error("IsRaised should fire on false->true")
	}

	it.setValueBool(false, true) // true -> false: changed, not raised
	if it.IsRaised(true) {
		t.Error("IsRaised should not fire on true->false")
	}
	if !it.IsChanged(true) {
		t.Error("IsChanged should fire on true->false")
	}
}

func TestItemRegisterValueAndAge(t *testing.T) {
	it := newItem(SpaceRegister, 100, nil)
	it.setValueRaw(0x12345678, true)
	if got := it.RawValue(); got != 0x12345678 {
		t.Errorf("RawValue() = %#x, want %#x", got, 0x12345678)
	}
	it.IsChanged(true) // drain the (silent) first-update flag state
	it.setValueRaw(0x1, true)
	if !it.IsChanged(true) {
		t.Error("expected IsChanged after a differing second update")
	}
	if it.Age() >= 100*time.Millisecond {
		t.Errorf("Age() = %v, want < 100ms right after an update", it.Age())
	}
}

func TestItemWriteEnqueuesPushOnce(t *testing.T) {
	it := newItem(SpaceRegister, 5, nil)
	calls := 0
	enqueue := func(*Item) { calls++ }

	it.WriteRaw(42, enqueue)
	it.WriteRaw(42, enqueue) // same pending value before drain: debounced

	if calls != 1 {
		t.Errorf("enqueue called %d times, want 1 (debounced)", calls)
	}
	if !it.IsPushPending() {
		t.Error("expected push-pending after WriteRaw")
	}

	v, ok := it.popPushRaw()
	if !ok || v != 42 {
		t.Errorf("popPushRaw() = %d, %v, want 42, true", v, ok)
	}
}

func TestItemReadOnlyIgnoresWrite(t *testing.T) {
	it := newItem(SpaceRegister, 5, nil)
	it.SetReadOnly(true)
	it.WriteRaw(99, func(*Item) { t.Error("enqueue should not be called for a read-only item") })
	if it.IsPushPending() {
		t.Error("a read-only item should never carry a pending push")
	}
}

func TestItemReadWaitsForArrival(t *testing.T) {
	it := newItem(SpaceRegister, 7, nil)
	enqueued := false
	enqueue := func(*Item) { enqueued = true }

	go func() {
		time.Sleep(10 * time.Millisecond)
		it.setValueRaw(123, true)
	}()

	v, ok := it.Read(context.Background(), time.Second, enqueue)
	if !ok {
		t.Fatal("Read timed out waiting for value")
	}
	if v != 123 {
		t.Errorf("Read() = %v, want 123", v)
	}
	if !enqueued {
		t.Error("Read should raise a priority pull via enqueue")
	}
}

func TestItemReadTimesOut(t *testing.T) {
	it := newItem(SpaceRegister, 8, nil)
	_, ok := it.Read(context.Background(), 20*time.Millisecond, func(*Item) {})
	if ok {
		t.Error("Read should time out when no value ever arrives")
	}
}
