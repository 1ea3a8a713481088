// Package format implements the bidirectional value codecs used by analog
// items (registers/timers/counters) to interpret their raw 32-bit word as
// something other than a plain signed integer.
package format

import "math"

// Formatter is a bidirectional codec between a register's raw 32-bit word
// and a real-world decoded value.
type Formatter interface {
	// Encode turns a decoded value into the raw word to store.
	Encode(v float64) uint32
	// Decode turns a raw word into its decoded value.
	Decode(raw uint32) float64
}

// Float32 interprets the 32 bits as an IEEE-754 single-precision float in
// the "natural" big-endian layout: the word as stored in the register
// directly reinterprets as the IEEE bits.
type Float32 struct{}

func (Float32) Encode(v float64) uint32 {
	return math.Float32bits(float32(v))
}

func (Float32) Decode(raw uint32) float64 {
	return float64(math.Float32frombits(raw))
}

// SwappedFloat32 is Float32 with the two 16-bit halves of the word
// byte-swapped, matching the legacy Saia register ordering.
type SwappedFloat32 struct{}

func swapHalves(v uint32) uint32 {
	return (v << 16) | (v >> 16)
}

func (SwappedFloat32) Encode(v float64) uint32 {
	return swapHalves(math.Float32bits(float32(v)))
}

func (SwappedFloat32) Decode(raw uint32) float64 {
	return float64(math.Float32frombits(swapHalves(raw)))
}

// Int10 is a signed 32-bit integer scaled by 10 (one implicit decimal).
type Int10 struct{}

func (Int10) Encode(v float64) uint32 {
	return uint32(int32(math.Round(v * 10)))
}

func (Int10) Decode(raw uint32) float64 {
	return float64(int32(raw)) / 10
}
