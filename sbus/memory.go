package sbus

import (
	"container/list"
	"sync"
)

// Memory aggregates the address-space Containers for one Server plus the
// three FIFO queues the manager drains into wire requests (spec.md §3,
// §4.5). Declarations happen through the per-space Container accessors;
// Memory's own job is queueing and range-coalescing.
type Memory struct {
	containers map[Space]*Container
	spaceLimit map[Space]spaceInfo

	mu            sync.Mutex
	priorityPull  *list.List
	pull          *list.List
	push          *list.List
	inPriority    map[*Item]*list.Element
	inPull        map[*Item]*list.Element
	inPush        map[*Item]*list.Element
	readOnly      bool
	autoDeclare   bool
}

// NewMemory builds the six standard containers. limits may override the
// package defaults per space (nil uses defaultSpaceInfo as-is), which is
// how true per-PCD frame bounds are supplied (spec.md §4.5 "must not exceed
// what the PCD advertises"). Config does not carry such a map.
func NewMemory(limits map[Space]spaceInfo) *Memory {
	m := &Memory{
		containers:   make(map[Space]*Container),
		spaceLimit:   make(map[Space]spaceInfo),
		priorityPull: list.New(),
		pull:         list.New(),
		push:         list.New(),
		inPriority:   make(map[*Item]*list.Element),
		inPull:       make(map[*Item]*list.Element),
		inPush:       make(map[*Item]*list.Element),
	}
	for space, info := range defaultSpaceInfo {
		if limits != nil {
			if override, ok := limits[space]; ok {
				info = override
			}
		}
		m.spaceLimit[space] = info
		m.containers[space] = NewContainer(space, info.maxSize, m.enqueueInitialPull)
	}
	return m
}

func (m *Memory) enqueueInitialPull(it *Item) {
	m.EnqueuePull(it)
}

// Container returns the container for one address space.
func (m *Memory) Container(space Space) *Container { return m.containers[space] }

func (m *Memory) Inputs() *Container    { return m.containers[SpaceInput] }
func (m *Memory) Flags() *Container     { return m.containers[SpaceFlag] }
func (m *Memory) Outputs() *Container   { return m.containers[SpaceOutput] }
func (m *Memory) Registers() *Container { return m.containers[SpaceRegister] }
func (m *Memory) Timers() *Container    { return m.containers[SpaceTimer] }
func (m *Memory) Counters() *Container  { return m.containers[SpaceCounter] }

func (m *Memory) maxRangeFor(space Space) int {
	return m.spaceLimit[space].maxRange
}

// InfoFor exposes the resolved wire parameters (opcode, width, limits) for
// one address space, honoring any Config override passed to NewMemory.
func (m *Memory) InfoFor(space Space) spaceInfo {
	return m.spaceLimit[space]
}

func (m *Memory) writable(space Space) bool {
	return m.spaceLimit[space].writable
}

// EnqueuePriorityPull raises a priority pull for it (used by Item.Read),
// debounced so a second call before the first drains is a no-op.
func (m *Memory) EnqueuePriorityPull(it *Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.inPriority[it]; ok {
		return
	}
	m.inPriority[it] = m.priorityPull.PushBack(it)
}

// EnqueuePull raises a normal (manager-driven) pull for it.
func (m *Memory) EnqueuePull(it *Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.inPull[it]; ok {
		return
	}
	m.inPull[it] = m.pull.PushBack(it)
}

// EnqueuePush raises a push for it.
func (m *Memory) EnqueuePush(it *Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.inPush[it]; ok {
		return
	}
	m.inPush[it] = m.push.PushBack(it)
}

// NextOp returns the next coalesced range operation to submit, draining
// priority-pull before push before pull (spec.md §4.5: "Priority-pull
// always drains before pull. Push is drained after priority-pull, before
// pull"). Only one op is produced per call; the caller (the server
// manager) submits at most one request per tick because the Link allows no
// more than one outstanding request.
func (m *Memory) NextOp() (*RangeOp, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if op, ok := m.drainLocked(m.priorityPull, m.inPriority, OpRead); ok {
		return op, true
	}
	if op, ok := m.drainLocked(m.push, m.inPush, OpWrite); ok {
		return op, true
	}
	if op, ok := m.drainLocked(m.pull, m.inPull, OpRead); ok {
		return op, true
	}
	return nil, false
}

func (m *Memory) drainLocked(q *list.List, tracking map[*Item]*list.Element, kind OpKind) (*RangeOp, bool) {
	if q.Len() == 0 {
		return nil, false
	}
	op, ok := drainQueue(q, kind, m.maxRangeFor)
	if !ok {
		return nil, false
	}
	for _, it := range op.Items {
		delete(tracking, it)
	}
	return op, true
}
