package sbus

import "container/list"

// Transfer composes a sequence of Requests into one logical operation
// (spec.md §4.6). Step is called on every TransferQueue.Manager pass,
// whatever the Link's state; it submits the transfer's current request (if
// any) once the Link accepts it and reports whether the transfer has
// reached a terminal state.
type Transfer interface {
	// Step submits work to link if the transfer has more to do and link is
	// idle. It returns (done, success).
	Step(link *Link) (done bool, success bool)
}

// TransferQueue holds at most one active Transfer; submitted transfers
// queue behind it (spec.md §4.6: "holds at most one active transfer").
type TransferQueue struct {
	active  Transfer
	pending *list.List
}

func NewTransferQueue() *TransferQueue {
	return &TransferQueue{pending: list.New()}
}

// Submit enqueues t. If nothing is active, it becomes active immediately
// on the next Manager call.
func (q *TransferQueue) Submit(t Transfer) {
	q.pending.PushBack(t)
}

// Active reports the in-flight transfer, if any.
func (q *TransferQueue) Active() Transfer { return q.active }

// Manager advances the active transfer by one step, promoting the next
// queued transfer once the active one finishes (spec.md §4.6: "marking the
// transfer complete on final success, aborting on any failed step" — both
// outcomes simply retire the transfer and move on).
func (q *TransferQueue) Manager(link *Link) {
	if q.active == nil {
		front := q.pending.Front()
		if front == nil {
			return
		}
		q.active = front.Value.(Transfer)
		q.pending.Remove(front)
	}

	done, _ := q.active.Step(link)
	if done {
		q.active = nil
	}
}

// FromRequestTransfer is a one-shot wrapper around a single Request
// (Run/Stop/Restart CPU, ReadPcdStatusOwn — spec.md §4.6 "FromRequest").
type FromRequestTransfer struct {
	req       Request
	submitted bool
}

func NewFromRequestTransfer(req Request) *FromRequestTransfer {
	return &FromRequestTransfer{req: req}
}

func (t *FromRequestTransfer) Step(link *Link) (bool, bool) {
	if t.submitted {
		// A single request was handed to the Link; the transfer's job is
		// done once the Link has accepted it — the Link's own retry/ACK
		// machinery owns the rest of the lifecycle.
		return true, true
	}
	if !link.Initiate(t.req) {
		return false, false
	}
	t.submitted = true
	return false, false
}
