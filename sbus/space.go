package sbus

import "github.com/timotiviert/digimat-saia/wire"

// Space identifies one of the address spaces an Item lives in.
type Space int

const (
	SpaceInput Space = iota
	SpaceFlag
	SpaceOutput
	SpaceRegister
	SpaceTimer
	SpaceCounter
)

func (s Space) String() string {
	switch s {
	case SpaceInput:
		return "input"
	case SpaceFlag:
		return "flag"
	case SpaceOutput:
		return "output"
	case SpaceRegister:
		return "register"
	case SpaceTimer:
		return "timer"
	case SpaceCounter:
		return "counter"
	default:
		return "unknown"
	}
}

// Boolean reports whether items in this space carry a single-bit value
// rather than a 32-bit one.
func (s Space) Boolean() bool {
	switch s {
	case SpaceInput, SpaceFlag, SpaceOutput:
		return true
	default:
		return false
	}
}

// spaceInfo describes the wire shape of one address space: which opcodes
// read and write it, how wide its index field is, and the largest range a
// single frame may carry (spec.md §4.5 — "implementer must not exceed what
// the PCD advertises"; these defaults are the commonly documented limits
// and are overridable through the limits map NewMemory takes; Config has
// no field for them).
type spaceInfo struct {
	readOp   wire.Opcode
	writeOp  wire.Opcode
	writable bool
	width    wire.IndexWidth
	maxSize  int // declarable index bound
	maxRange int // items per frame
}

// defaultSpaceInfo is keyed by Space. Registers/timers/counters default to
// IndexWidth16 (see wire/payload_test.go's grounding in spec.md §8 scenario
// 2, which shows a 2-byte index even for registers) rather than
// IndexWidth24; IndexWidth24 remains available to Config for PCDs whose
// address space exceeds 65535 when passed in a limits map.
var defaultSpaceInfo = map[Space]spaceInfo{
	SpaceInput: {
		readOp: wire.OpReadInputs, writable: false,
		width: wire.IndexWidth16, maxSize: 16384, maxRange: 128,
	},
	SpaceFlag: {
		readOp: wire.OpReadFlags, writeOp: wire.OpWriteFlags, writable: true,
		width: wire.IndexWidth16, maxSize: 16384, maxRange: 128,
	},
	SpaceOutput: {
		readOp: wire.OpReadOutputs, writeOp: wire.OpWriteOutputs, writable: true,
		width: wire.IndexWidth16, maxSize: 16384, maxRange: 128,
	},
	SpaceRegister: {
		readOp: wire.OpReadRegisters, writeOp: wire.OpWriteRegisters, writable: true,
		width: wire.IndexWidth16, maxSize: 16384, maxRange: 32,
	},
	SpaceTimer: {
		readOp: wire.OpReadTimer, writeOp: wire.OpWriteTimer, writable: true,
		width: wire.IndexWidth16, maxSize: 1600, maxRange: 32,
	},
	SpaceCounter: {
		readOp: wire.OpReadCounter, writeOp: wire.OpWriteCounter, writable: true,
		width: wire.IndexWidth16, maxSize: 1600, maxRange: 32,
	},
}
