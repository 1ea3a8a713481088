package sbus

import (
	"bytes"
	"strings"

	"github.com/timotiviert/digimat-saia/wire"
)

// deviceInfoBlockSize is the block-file chunk requested per 0x27 frame.
// Not specified by the retrievable source (spec.md §9 Open Questions); 32
// bytes is a conservative size well under any advertised S-Bus frame
// limit.
const deviceInfoBlockSize = 32

// deviceInfoTerminator ends the block-file stream. The source does not
// document the exact terminator byte (spec.md §9); a NUL byte is assumed
// and documented here as such.
const deviceInfoTerminator = 0x00

// ReadDeviceInfoBlockRequest reads one block of the PCD's identification
// file at the given offset (opcode 0x27). The Transfer driving device-info
// discovery issues a sequence of these with increasing offsets until a
// block whose payload contains the terminator byte is seen.
type ReadDeviceInfoBlockRequest struct {
	baseRequest
	offset int
	result []byte // set by Process on success
	done   bool
}

func NewReadDeviceInfoBlockRequest(offset int) *ReadDeviceInfoBlockRequest {
	return &ReadDeviceInfoBlockRequest{
		baseRequest: newBaseRequest(wire.OpReadProgramDeviceInfo, 3, false),
		offset:      offset,
	}
}

func (r *ReadDeviceInfoBlockRequest) Build() ([]byte, error) {
	payload, err := wire.EncodeReadRange(r.opcode, r.offset, deviceInfoBlockSize, wire.IndexWidth16)
	if err != nil {
		return nil, err
	}
	return payload, nil
}

func (r *ReadDeviceInfoBlockRequest) Process(body []byte) bool {
	if idx := bytes.IndexByte(body, deviceInfoTerminator); idx >= 0 {
		r.result = append([]byte(nil), body[:idx]...)
		r.done = true
	} else {
		r.result = append([]byte(nil), body...)
	}
	return true
}

// Done reports whether this block contained the terminator.
func (r *ReadDeviceInfoBlockRequest) Done() bool { return r.done }

// Result returns the block's usable (pre-terminator) bytes.
func (r *ReadDeviceInfoBlockRequest) Result() []byte { return r.result }

// DeviceInfo is the parsed identification record (spec.md §4.6).
type DeviceInfo struct {
	DeviceName    string
	PCDType       string
	BuildDateTime string
}

// parseDeviceInfo splits the concatenated block-file payload into its
// semicolon-separated fields. The exact block-file grammar is not fully
// specified by the source (spec.md §9); implementers must match real
// capture data. This assumes the common "name;type;timestamp" layout.
func parseDeviceInfo(raw []byte) DeviceInfo {
	fields := strings.Split(strings.TrimRight(string(raw), "\x00"), ";")
	info := DeviceInfo{}
	if len(fields) > 0 {
		info.DeviceName = strings.TrimSpace(fields[0])
	}
	if len(fields) > 1 {
		info.PCDType = strings.TrimSpace(fields[1])
	}
	if len(fields) > 2 {
		info.BuildDateTime = strings.TrimSpace(fields[2])
	}
	return info
}

const deviceInfoMaxBlocks = 64

// DeviceInfoTransfer issues repeated ReadDeviceInfoBlockRequests at
// increasing offsets until a block carries the terminator, concatenates
// the payload, and hands the parsed record to onDone (spec.md §4.6:
// "calls server.setDeviceInfo(k,v)... triggers loadSymbols").
type DeviceInfoTransfer struct {
	offset    int
	blocks    int
	acc       []byte
	pending   *ReadDeviceInfoBlockRequest
	onDone    func(DeviceInfo)
	failed    bool
}

func NewDeviceInfoTransfer(onDone func(DeviceInfo)) *DeviceInfoTransfer {
	return &DeviceInfoTransfer{onDone: onDone}
}

func (t *DeviceInfoTransfer) Step(link *Link) (bool, bool) {
	if t.failed {
		return true, false
	}

	if t.pending == nil {
		if t.blocks >= deviceInfoMaxBlocks {
			return true, false
		}
		req := NewReadDeviceInfoBlockRequest(t.offset)
		if !link.Initiate(req) {
			return false, false
		}
		t.pending = req
		return false, false
	}

	switch link.State() {
	case StateIdle:
		// The Link finished handling t.pending (success or exhausted retry).
		result := t.pending.Result()
		done := t.pending.Done()
		t.acc = append(t.acc, result...)
		t.blocks++
		t.offset += deviceInfoBlockSize
		t.pending = nil
		if done {
			info := parseDeviceInfo(t.acc)
			if t.onDone != nil {
				t.onDone(info)
			}
			return true, true
		}
		return false, false
	default:
		return false, false
	}
}
