package sbus

import (
	"github.com/timotiviert/digimat-saia/retry"
	"github.com/timotiviert/digimat-saia/wire"
)

// Request is one S-Bus command: build its payload, validate a response
// against the sequence the Link assigned it, and decode the body back into
// memory (spec.md §4.2). Broadcast requests skip Process; success is
// declared on a clean transmit.
type Request interface {
	// Opcode is the command byte this request sends.
	Opcode() wire.Opcode
	// Build returns the payload bytes (opcode included); the envelope and
	// CRC are added by the Link's SendFunc.
	Build() ([]byte, error)
	// Broadcast reports whether this request expects no unicast response.
	Broadcast() bool
	// ReadyToSend reports whether the request may be sent this tick
	// (almost always true; exists so future pacing rules have a hook).
	ReadyToSend() bool
	// ConsumeRetry decrements the retry budget and reports whether another
	// attempt is still permitted.
	ConsumeRetry() bool
	// Process decodes a validated response body, writing values into
	// items or the Server as appropriate. It reports success.
	Process(body []byte) bool
	// OnSuccess is called once the Link reaches a terminal Success state,
	// whether via a matched response (after Process) or a bare ACK. Write
	// requests use it to flip push-pending to pull-pending.
	OnSuccess()
	// Fail is called once retries are exhausted without success.
	Fail()
}

// baseRequest implements the retry bookkeeping and broadcast/readiness
// defaults shared by every concrete Request (spec.md §3 "retry counter,
// typically 3"). The retry budget itself is a retry.Backoff — the same
// bounded-attempts helper the Link's caller would reach for anywhere else
// a "try N times" counter is needed — rather than a bare decrementing int,
// so ConsumeRetry is just Next() != Stop.
type baseRequest struct {
	opcode    wire.Opcode
	backoff   retry.Backoff
	broadcast bool
}

func newBaseRequest(op wire.Opcode, retries int, broadcast bool) baseRequest {
	if retries <= 0 {
		retries = 3
	}
	return baseRequest{
		opcode:    op,
		backoff:   retry.WithMaxRetries(retry.ZeroBackoff{}, retries),
		broadcast: broadcast,
	}
}

func (b baseRequest) Opcode() wire.Opcode { return b.opcode }
func (b baseRequest) Broadcast() bool     { return b.broadcast }
func (b baseRequest) ReadyToSend() bool   { return true }

func (b baseRequest) ConsumeRetry() bool {
	return b.backoff.Next() != retry.Stop
}

func (b baseRequest) OnSuccess() {}
func (b baseRequest) Fail()      {}
