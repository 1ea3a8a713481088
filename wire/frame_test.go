package wire

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []Frame{
		{Version: ProtocolVersion, ProtocolType: TypeRequest, Sequence: 1, Attribute: 0, Payload: []byte{0x06, 0x00, 0x00, 0x64}},
		{Version: ProtocolVersion, ProtocolType: TypeResponse, Sequence: 65535, Attribute: 1, Payload: []byte{0x12, 0x34, 0x56, 0x78}},
		{Version: ProtocolVersion, ProtocolType: TypeAckNak, Sequence: 42, Attribute: 2, Payload: []byte{0x00}},
	}
	for _, f := range cases {
		encoded := Encode(f)
		decoded, err := Decode(encoded)
		if err != nil {
			t.Fatalf("Decode(Encode(%+v)): %v", f, err)
		}
		if d := cmp.Diff(f, decoded); d != "" {
			t.Errorf("round trip mismatch (-want +got):\n%s", d)
		}
	}
}

func TestDecodeRejectsBadLength(t *testing.T) {
	f := Frame{ProtocolType: TypeRequest, Sequence: 1, Payload: []byte{0x06}}
	encoded := Encode(f)
	encoded[0] = 0xFF // corrupt the declared total_length
	if _, err := Decode(encoded); err == nil {
		t.Fatal("expected a malformed-frame error for a corrupted length field")
	}
}

func TestDecodeRejectsBadCRC(t *testing.T) {
	f := Frame{ProtocolType: TypeRequest, Sequence: 1, Payload: []byte{0x06, 0x00, 0x00, 0x64}}
	encoded := Encode(f)
	encoded[len(encoded)-1] ^= 0xFF
	if _, err := Decode(encoded); err == nil {
		t.Fatal("expected a malformed-frame error for a corrupted CRC")
	}
}

func TestDecodeRejectsOutOfRangeSize(t *testing.T) {
	if _, err := Decode(make([]byte, 10)); err == nil {
		t.Fatal("expected error for frame shorter than MinFrameSize")
	}
	if _, err := Decode(make([]byte, 256)); err == nil {
		t.Fatal("expected error for frame longer than MaxFrameSize")
	}
}
