package sbus

import (
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/timotiviert/digimat-saia/wire"
)

// LinkState is one of the five states the per-server Link occupies
// (spec.md §4.3).
type LinkState int

const (
	StateIdle LinkState = iota
	StatePendingRequest
	StateWaitResponse
	StateError
	StateSuccess
)

func (s LinkState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StatePendingRequest:
		return "PendingRequest"
	case StateWaitResponse:
		return "WaitResponse"
	case StateError:
		return "Error"
	case StateSuccess:
		return "Success"
	default:
		return "Unknown"
	}
}

const (
	responseTimeout  = 3 * time.Second
	errorPause       = 15 * time.Second
	watchdogInterval = 20 * time.Second
)

// SendFunc transmits a request payload under sequence seq. The Link hands
// over the bare payload; the SendFunc wraps it in the envelope and CRC
// (see Node.sendTo / Node.sendToHost) and writes the datagram.
type SendFunc func(payload []byte, seq uint16, broadcast bool) error

// Link is the per-server state machine serializing request/response
// exchanges over UDP: at most one Request in flight, with timeouts,
// retransmission, transmit-inhibit pacing, sequence matching, and a
// liveness watchdog (spec.md §4.3, §9 "cooperative single-threaded
// engine").
type Link struct {
	mu sync.Mutex

	state LinkState
	req   Request
	seq   uint16

	pacing           time.Duration
	xmitInhibitUntil time.Time
	waitDeadline     time.Time
	errorUntil       time.Time
	watchdogDeadline time.Time
	alive            bool
	sentCount        uint64

	send              SendFunc
	onSendErr         func(error) // notified on SendError (spec.md §7: pause server 15s)
	onWatchdogExpired func()      // notified when the watchdog fires (spec.md §7: clear status)
}

// NewLink creates an idle Link. pacing is the post-send cooldown
// (spec.md §4.3 "configurable, default 0"); send performs the actual
// transmit.
func NewLink(pacing time.Duration, send SendFunc) *Link {
	return &Link{pacing: pacing, send: send}
}

// SetOnSendErr installs the callback fired when a send fails (spec.md §7
// SendError: "pauses the server 15s"). The Link itself already refuses to
// send again for errorPause by entering StateError; this hook lets the
// owning Server apply the same pause at its own level.
func (l *Link) SetOnSendErr(fn func(error)) {
	l.mu.Lock()
	l.onSendErr = fn
	l.mu.Unlock()
}

// SetOnWatchdogExpired installs the callback fired once when the watchdog
// deadline passes while the link was alive (spec.md §4.3 "set alive=false,
// set status=0"; §7 WatchdogExpired: "marks server not alive and clears
// status").
func (l *Link) SetOnWatchdogExpired(fn func()) {
	l.mu.Lock()
	l.onWatchdogExpired = fn
	l.mu.Unlock()
}

// State reports the current state, for tests and status reporting.
func (l *Link) State() LinkState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// IsAlive reports the Link's liveness, last set by the watchdog.
func (l *Link) IsAlive() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.alive
}

// SentCount returns the number of frames transmitted by this Link.
func (l *Link) SentCount() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sentCount
}

// nextSeq advances the 16-bit sequence counter, wrapping 65535->1 and
// never emitting 0 (spec.md §4.3).
func (l *Link) nextSeq() uint16 {
	l.seq++
	if l.seq == 0 {
		l.seq = 1
	}
	return l.seq
}

// Initiate hands req to the Link if it is Idle. It returns false if the
// Link is busy (caller should retry next tick).
func (l *Link) Initiate(req Request) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateIdle || req == nil {
		return false
	}
	l.req = req
	l.state = StatePendingRequest
	return true
}

// Busy reports whether a request currently occupies the Link.
func (l *Link) Busy() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state != StateIdle
}

// Tick advances the state machine once (spec.md §4.3's table, driven from
// Server.manager each engine-loop pass).
func (l *Link) Tick() {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()

	switch l.state {
	case StateIdle:
		if !l.watchdogDeadline.IsZero() && l.alive && now.After(l.watchdogDeadline) {
			l.alive = false
			glog.Warningf("sbus: link watchdog expired, marking server not alive")
			if l.onWatchdogExpired != nil {
				l.onWatchdogExpired()
			}
		}

	case StatePendingRequest:
		if now.Before(l.xmitInhibitUntil) {
			return
		}
		req := l.req
		if !req.ReadyToSend() {
			return
		}
		if !req.ConsumeRetry() {
			l.resetLocked(false)
			return
		}
		seq := l.nextSeq()
		payload, err := req.Build()
		if err == nil {
			err = l.send(payload, seq, req.Broadcast())
		}
		if err != nil {
			l.state = StateError
			l.errorUntil = now.Add(errorPause)
			glog.Errorf("sbus: send error, pausing link: %v", err)
			if l.onSendErr != nil {
				l.onSendErr(err)
			}
			return
		}
		l.sentCount++
		l.seq = seq
		if req.Broadcast() {
			l.state = StateSuccess
			return
		}
		l.state = StateWaitResponse
		l.waitDeadline = now.Add(responseTimeout)
		l.xmitInhibitUntil = now.Add(l.pacing)

	case StateWaitResponse:
		if now.After(l.waitDeadline) {
			l.state = StatePendingRequest
		}

	case StateError:
		if now.After(l.errorUntil) {
			l.resetLocked(false)
		}

	case StateSuccess:
		l.resetLocked(true)
	}
}

// OnMessage delivers a decoded inbound frame to the Link. It returns true
// if the frame was consumed (matched the outstanding request); a
// sequence mismatch or an unexpected state drops the frame silently
// (spec.md Invariants, §7 SequenceMismatch).
func (l *Link) OnMessage(frameType uint8, seq uint16, payload []byte) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != StateWaitResponse || l.req == nil || seq != l.seq {
		return false
	}

	switch frameType {
	case wire.TypeResponse:
		l.req.Process(payload)
		l.kickWatchdogLocked()
		l.resetLocked(true)
		return true

	case wire.TypeAckNak:
		if len(payload) >= 1 && payload[0] == 0 {
			l.kickWatchdogLocked()
			l.resetLocked(true)
		} else {
			l.resetLocked(false)
		}
		return true

	default:
		return false
	}
}

func (l *Link) kickWatchdogLocked() {
	l.watchdogDeadline = time.Now().Add(watchdogInterval)
	l.alive = true
}

// resetLocked finalizes the current request (success or failure) and
// returns the Link to Idle. Callers must hold mu.
func (l *Link) resetLocked(success bool) {
	req := l.req
	l.req = nil
	l.state = StateIdle
	if req == nil {
		return
	}
	if success {
		req.OnSuccess()
	} else {
		req.Fail()
	}
}
