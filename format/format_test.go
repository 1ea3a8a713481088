package format

import (
	"math"
	"testing"
)

func TestFloat32RoundTrip(t *testing.T) {
	f := Float32{}
	for _, v := range []float64{0, 1, -1, 3.14159, -273.15, 1e10, -1e-10} {
		raw := f.Encode(v)
		got := f.Decode(raw)
		if float32(got) != float32(v) {
			t.Errorf("Float32 round trip: encode/decode(%v) = %v", v, got)
		}
	}
}

func TestSwappedFloat32RoundTrip(t *testing.T) {
	f := SwappedFloat32{}
	for _, v := range []float64{0, 1, -1, 3.14159, -273.15} {
		raw := f.Encode(v)
		got := f.Decode(raw)
		if float32(got) != float32(v) {
			t.Errorf("SwappedFloat32 round trip: encode/decode(%v) = %v", v, got)
		}
	}
}

func TestSwappedFloat32ActuallySwapsHalves(t *testing.T) {
	plain := Float32{}.Encode(3.14159)
	swapped := SwappedFloat32{}.Encode(3.14159)
	want := (plain << 16) | (plain >> 16)
	if swapped != want {
		t.Errorf("SwappedFloat32.Encode = %08x, want %08x (halves of %08x swapped)", swapped, want, plain)
	}
}

func TestInt10(t *testing.T) {
	i := Int10{}
	if got := i.Encode(12.3); got != 123 {
		t.Errorf("Int10.Encode(12.3) = %d, want 123", got)
	}
	minus45 := int32(-45)
	if got := i.Decode(uint32(minus45)); got != -4.5 {
		t.Errorf("Int10.Decode(-45) = %v, want -4.5", got)
	}
}

func TestFFPRoundTrip(t *testing.T) {
	f := FFP{}
	values := []float64{0, 1, -1, 0.5, -0.5, 3.14159, -273.15, 1e6, -1e6, 123456789.0}
	for _, v := range values {
		raw := f.Encode(v)
		got := f.Decode(raw)
		if math.Abs(got-v) > math.Abs(v)*1e-6+1e-9 {
			t.Errorf("FFP round trip: encode/decode(%v) = %v", v, got)
		}
	}
}

func TestFFPZero(t *testing.T) {
	f := FFP{}
	if raw := f.Encode(0); raw != 0 {
		t.Errorf("FFP.Encode(0) = %08x, want 0", raw)
	}
	if got := f.Decode(0); got != 0 {
		t.Errorf("FFP.Decode(0) = %v, want 0", got)
	}
}
