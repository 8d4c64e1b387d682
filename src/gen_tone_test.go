package modem

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/floats"
)

func Test_SamplesFor(t *testing.T) {
	assert.Equal(t, 6615, samplesFor(150*time.Millisecond, 44100))
	assert.Equal(t, 44100, samplesFor(time.Second, 44100))
	assert.Equal(t, 0, samplesFor(0, 44100))
	assert.Equal(t, 0, samplesFor(-time.Second, 44100))
}

func Test_Tone_Level_And_Decay(t *testing.T) {
	var g = NewToneGenerator(44100)

	var out = g.ToneSamples(Single(1000), 150*time.Millisecond, 0.8)

	assert.Len(t, out, 6615)

	var peak = math.Max(floats.Max(out), -floats.Min(out))
	assert.InDelta(t, 0.8, peak, 0.01)

	// The last sample is faded to the floor.
	assert.LessOrEqual(t, math.Abs(out[len(out)-1]), 0.8*toneDecayFloor+1e-12)

	// The middle is untouched.
	var mid = out[1000:2000]
	assert.InDelta(t, 0.8, floats.Max(mid), 0.01)
}

func Test_Dual_Tone_Never_Exceeds_Gain(t *testing.T) {
	var g = NewToneGenerator(44100)

	var out = g.ToneSamples(Dual(697, 1209), 200*time.Millisecond, 1)

	assert.LessOrEqual(t, floats.Max(out), 1.0)
	assert.GreaterOrEqual(t, floats.Min(out), -1.0)
	assert.Greater(t, floats.Max(out), 0.9, "the two halves do line up sometimes")
}

func Test_Short_Tone_Decay_Limited(t *testing.T) {
	var g = NewToneGenerator(44100)

	// 4ms is shorter than the fade, so the fade only covers the second half.
	var out = g.ToneSamples(Single(5000), 4*time.Millisecond, 1)

	var first = out[:len(out)/2]
	assert.Greater(t, floats.Max(first), 0.9)
}
