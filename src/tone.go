package modem

import (
	"fmt"
)

// Tone is what gets sounded for one token: either a single frequency (FSK
// style) or a low/high pair sounded together (DTMF style).
type Tone struct {
	low  float64
	high float64 // 0 for a single tone
}

// Single is a one frequency tone.
func Single(f float64) Tone {
	return Tone{low: f}
}

// Dual is a two frequency tone.  Arguments may be given in either order.
func Dual(a, b float64) Tone {
	if b < a {
		a, b = b, a
	}

	return Tone{low: a, high: b}
}

func (t Tone) IsDual() bool {
	return t.high > 0
}

// Frequencies lists what must be mixed to produce the tone.
func (t Tone) Frequencies() []float64 {
	if t.IsDual() {
		return []float64{t.low, t.high}
	}

	return []float64{t.low}
}

// Representative is the frequency shown to an operator: the first one.
func (t Tone) Representative() float64 {
	return t.low
}

// Low and High return the pair of a dual tone.  High is 0 for a single tone.
func (t Tone) Low() float64  { return t.low }
func (t Tone) High() float64 { return t.high }

func (t Tone) String() string {
	if t.IsDual() {
		return fmt.Sprintf("%.0f+%.0f Hz", t.low, t.high)
	}

	return fmt.Sprintf("%.0f Hz", t.low)
}
