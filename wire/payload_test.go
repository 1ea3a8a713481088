package wire

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEncodeReadRangeRegisters(t *testing.T) {
	// scenario 2 from spec.md §8: register 100, single item.
	got, err := EncodeReadRange(OpReadRegisters, 100, 1, IndexWidth16)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x06, 0x00, 0x00, 0x64}
	if d := cmp.Diff(want, got); d != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", d)
	}
}

func TestEncodeReadRangeCoalesced(t *testing.T) {
	// scenario 5: registers 10..25 (16 items).
	got, err := EncodeReadRange(OpReadRegisters, 10, 16, IndexWidth16)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x06, 0x0F, 0x00, 0x0A}
	if d := cmp.Diff(want, got); d != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", d)
	}
}

func TestDecodeValues32RoundTrip(t *testing.T) {
	body := []byte{0x12, 0x34, 0x56, 0x78, 0x00, 0x00, 0x00, 0x2A}
	values, err := DecodeValues32(body)
	if err != nil {
		t.Fatal(err)
	}
	want := []uint32{0x12345678, 42}
	if d := cmp.Diff(want, values); d != "" {
		t.Errorf("mismatch (-want +got):\n%s", d)
	}
}

func TestDecodeValues32RejectsShortBody(t *testing.T) {
	if _, err := DecodeValues32([]byte{0x01, 0x02, 0x03}); err == nil {
		t.Fatal("expected error for body not a multiple of 4")
	}
}

func TestEncodeWriteRangeBoolean(t *testing.T) {
	got, err := EncodeWriteRange(OpWriteFlags, 5, []uint32{1, 0, 1}, true, IndexWidth16)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x0B, 0x02, 0x00, 0x05, 0x01, 0x00, 0x01}
	if d := cmp.Diff(want, got); d != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", d)
	}
}
