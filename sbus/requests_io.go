package sbus

import (
	"github.com/timotiviert/digimat-saia/wire"
)

// ReadRangeRequest reads a coalesced run of items from one address space
// and writes the decoded values back into them on a successful response
// (spec.md §4.1/§4.2).
type ReadRangeRequest struct {
	baseRequest
	space Space
	start int
	width wire.IndexWidth
	items []*Item
}

// NewReadRangeRequest builds a read request for op, wired to write its
// response into items (items[i] corresponds to index start+i).
func NewReadRangeRequest(op *RangeOp, width wire.IndexWidth, readOp wire.Opcode) *ReadRangeRequest {
	return &ReadRangeRequest{
		baseRequest: newBaseRequest(readOp, 3, false),
		space:       op.Space,
		start:       op.Start,
		width:       width,
		items:       op.Items,
	}
}

func (r *ReadRangeRequest) Build() ([]byte, error) {
	return wire.EncodeReadRange(r.opcode, r.start, len(r.items), r.width)
}

func (r *ReadRangeRequest) Process(body []byte) bool {
	if r.space.Boolean() {
		values := wire.DecodeValuesBool(body)
		if len(values) != len(r.items) {
			return false
		}
		for i, it := range r.items {
			it.setValueBool(values[i], true)
		}
		return true
	}
	values, err := wire.DecodeValues32(body)
	if err != nil || len(values) != len(r.items) {
		return false
	}
	for i, it := range r.items {
		it.setValueRaw(values[i], true)
	}
	return true
}

func (r *ReadRangeRequest) Fail() {
	for _, it := range r.items {
		it.pulling.Clear()
	}
}

// WriteRangeRequest pushes the pending value of a coalesced run of items
// to the PCD. Values are captured at construction time (popped from each
// item's push slot), not re-read at send time, so a concurrent write
// during retry does not tear the frame.
type WriteRangeRequest struct {
	baseRequest
	space       Space
	start       int
	width       wire.IndexWidth
	items       []*Item
	values      []uint32
	enqueuePull func(*Item)
}

// NewWriteRangeRequest pops the push value of every item in op and builds
// the corresponding write request. enqueuePull schedules each item's
// confirmation pull once the push completes (spec.md Invariants:
// "push-pending clears and pull-pending is set").
func NewWriteRangeRequest(op *RangeOp, width wire.IndexWidth, writeOp wire.Opcode, enqueuePull func(*Item)) *WriteRangeRequest {
	values := make([]uint32, 0, len(op.Items))
	items := make([]*Item, 0, len(op.Items))
	for _, it := range op.Items {
		if op.Space.Boolean() {
			v, ok := it.popPushBool()
			if !ok {
				continue
			}
			if v {
				values = append(values, 1)
			} else {
				values = append(values, 0)
			}
		} else {
			v, ok := it.popPushRaw()
			if !ok {
				continue
			}
			values = append(values, v)
		}
		items = append(items, it)
	}
	return &WriteRangeRequest{
		baseRequest: newBaseRequest(writeOp, 3, false),
		space:       op.Space,
		start:       op.Start,
		width:       width,
		items:       items,
		values:      values,
		enqueuePull: enqueuePull,
	}
}

func (r *WriteRangeRequest) Build() ([]byte, error) {
	return wire.EncodeWriteRange(r.opcode, r.start, r.values, r.space.Boolean(), r.width)
}

func (r *WriteRangeRequest) Process(body []byte) bool { return true }

func (r *WriteRangeRequest) OnSuccess() {
	for _, it := range r.items {
		it.onPushComplete()
		if r.enqueuePull != nil {
			r.enqueuePull(it)
		}
	}
}

func (r *WriteRangeRequest) Fail() {
	for _, it := range r.items {
		it.pushing.Clear()
	}
}
