package modem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func Test_AGC_Starts_At_Minimum(t *testing.T) {
	var a = DefaultAGC()

	assert.InDelta(t, DEFAULT_MIN_THRESHOLD, a.Threshold(), 1e-9)
	assert.InDelta(t, 0, a.NoiseLevel(), 1e-9)
}

func Test_AGC_Tracks_Noise(t *testing.T) {
	var a = DefaultAGC()

	// Quiet frames with a mean of 80 pull the noise up towards 80.
	for range 1000 {
		a.Update(85, 80)
	}

	assert.InDelta(t, 80, a.NoiseLevel(), 0.5)
	assert.InDelta(t, 120, a.Threshold(), 0.5)
}

func Test_AGC_First_Frame_Seeds(t *testing.T) {
	var a = DefaultAGC()

	a.Update(95, 66)

	assert.InDelta(t, 66, a.NoiseLevel(), 1e-9)
	assert.InDelta(t, 106, a.Threshold(), 1e-9)
}

func Test_AGC_Signal_Barely_Moves_Noise(t *testing.T) {
	var a = DefaultAGC()

	a.Update(70, 30)

	for range 100 {
		a.Update(250, 60)
	}

	assert.Less(t, a.NoiseLevel(), 40.0, "loud frames count for little")
	assert.InDelta(t, DEFAULT_MIN_THRESHOLD, a.Threshold(), 1e-9)
}

// A floor that rises above the threshold after start is still learned.
func Test_AGC_Follows_Rising_Floor(t *testing.T) {
	var a = DefaultAGC()

	a.Update(60, 30)

	for range 3000 {
		a.Update(150, 120)
	}

	assert.InDelta(t, 120, a.NoiseLevel(), 0.5)
	assert.InDelta(t, 160, a.Threshold(), 0.5)
}

func Test_AGC_Clamps(t *testing.T) {
	var a = NewAGC(1, 40, 90, 200)

	a.Update(0, 250)
	assert.InDelta(t, 200, a.Threshold(), 1e-9)

	a.Update(0, 0)
	assert.InDelta(t, 90, a.Threshold(), 1e-9)
}

func Test_AGC_Reset(t *testing.T) {
	var a = DefaultAGC()

	for range 100 {
		a.Update(10, 70)
	}

	a.Reset()

	assert.InDelta(t, 0, a.NoiseLevel(), 1e-9)
	assert.InDelta(t, DEFAULT_MIN_THRESHOLD, a.Threshold(), 1e-9)
}

func Test_AGC_Threshold_In_Range(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var a = DefaultAGC()

		var frames = rapid.SliceOf(rapid.Float64Range(0, 255)).Draw(t, "frames")

		for _, v := range frames {
			var th = a.Update(v, v/2)

			assert.GreaterOrEqual(t, th, DEFAULT_MIN_THRESHOLD)
			assert.LessOrEqual(t, th, DEFAULT_MAX_THRESHOLD)
		}
	})
}
