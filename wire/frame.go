// Package wire implements the Ether-S-Bus UDP frame envelope: the
// fixed-size header, the CRC-16 trailer, and the opcode table shared by
// every request/response pair.
package wire

import (
	"encoding/binary"
	"fmt"
)

// Protocol types carried in the envelope's attribute byte.
const (
	TypeRequest  = 0
	TypeResponse = 1
	TypeAckNak   = 2
)

// HeaderSize is the number of bytes preceding the payload: total_length(4) +
// version(1) + protocol_type(1) + sequence(2) + attribute(1).
const HeaderSize = 9

// CRCSize is the number of trailing CRC-16 bytes.
const CRCSize = 2

// MinFrameSize and MaxFrameSize bound a valid total_length field.
const (
	MinFrameSize = 11
	MaxFrameSize = 255
)

// ProtocolVersion is the only version byte this client emits or accepts.
const ProtocolVersion = 0

// MalformedFrameError reports a frame that failed a size, length-field, or
// CRC check. The frame is dropped; no protocol state changes as a result.
type MalformedFrameError struct {
	Reason string
}

func (e *MalformedFrameError) Error() string {
	return fmt.Sprintf("malformed frame: %s", e.Reason)
}

// Frame is a decoded Ether-S-Bus datagram.
type Frame struct {
	Version      uint8
	ProtocolType uint8
	Sequence     uint16
	Attribute    uint8
	Payload      []byte
}

// Encode serializes f into a complete datagram, envelope plus CRC.
func Encode(f Frame) []byte {
	total := HeaderSize + len(f.Payload) + CRCSize
	buf := make([]byte, total)

	binary.BigEndian.PutUint32(buf[0:4], uint32(total))
	buf[4] = f.Version
	buf[5] = f.ProtocolType
	binary.BigEndian.PutUint16(buf[6:8], f.Sequence)
	buf[8] = f.Attribute
	copy(buf[HeaderSize:], f.Payload)

	crc := CRC16(buf[:total-CRCSize])
	binary.BigEndian.PutUint16(buf[total-CRCSize:], crc)
	return buf
}

// Decode validates and parses a raw datagram into a Frame. It fails with a
// *MalformedFrameError on any size, length-field, or CRC violation.
func Decode(data []byte) (Frame, error) {
	size := len(data)
	if size < MinFrameSize || size > MaxFrameSize {
		return Frame{}, &MalformedFrameError{Reason: fmt.Sprintf("size %d out of range [%d,%d]", size, MinFrameSize, MaxFrameSize)}
	}

	declared := binary.BigEndian.Uint32(data[0:4])
	if int(declared) != size {
		return Frame{}, &MalformedFrameError{Reason: fmt.Sprintf("declared length %d != datagram length %d", declared, size)}
	}

	want := binary.BigEndian.Uint16(data[size-CRCSize:])
	got := CRC16(data[:size-CRCSize])
	if want != got {
		return Frame{}, &MalformedFrameError{Reason: fmt.Sprintf("crc mismatch: frame says %04x, computed %04x", want, got)}
	}

	return Frame{
		Version:      data[4],
		ProtocolType: data[5],
		Sequence:     binary.BigEndian.Uint16(data[6:8]),
		Attribute:    data[8],
		Payload:      append([]byte(nil), data[HeaderSize:size-CRCSize]...),
	}, nil
}
