package modem

/*------------------------------------------------------------------
 *
 * Purpose:     Synthesize tones as float samples for a sound device
 *		or a .WAV file.
 *
 * Description:	Each frequency has its own phase accumulator so the
 *		waveform is continuous within a tone.  Dual tones are
 *		the sum of both, each at half the gain, so the mix
 *		can't exceed the requested level.
 *
 *		The last few milliseconds of every tone fall away
 *		exponentially.  A tone cut off mid cycle clicks, and the
 *		click spreads energy across the whole spectrum.
 *
 *---------------------------------------------------------------*/

import (
	"math"
	"time"
)

// TONE_DECAY is how long the fade at the end of a tone lasts.
const TONE_DECAY = 10 * time.Millisecond

// Level the fade reaches at the very end, about -60 dB.
const toneDecayFloor = 0.001

// samplesFor converts a duration to a whole number of samples.
func samplesFor(d time.Duration, sampleRate float64) int {
	if d <= 0 {
		return 0
	}

	return int(math.Round(d.Seconds() * sampleRate))
}

// ToneGenerator renders tones at one sample rate.
type ToneGenerator struct {
	sampleRate float64
}

func NewToneGenerator(sampleRate float64) *ToneGenerator {
	return &ToneGenerator{sampleRate: sampleRate}
}

func (g *ToneGenerator) SampleRate() float64 {
	return g.sampleRate
}

// Tone writes the tone into out, which must already have the right length.
func (g *ToneGenerator) Tone(out []float64, tone Tone, gain float64) {
	var freqs = tone.Frequencies()
	var amp = gain / float64(len(freqs))

	clear(out)

	for _, f := range freqs {
		var phase = 0.0
		var step = 2 * math.Pi * f / g.sampleRate

		for i := range out {
			out[i] += amp * math.Sin(phase)

			phase += step
			if phase >= 2*math.Pi {
				phase -= 2 * math.Pi
			}
		}
	}

	g.decay(out)
}

// decay fades the end of a tone.  The fade is shortened for very short
// tones so it never covers more than half.
func (g *ToneGenerator) decay(out []float64) {
	var n = min(samplesFor(TONE_DECAY, g.sampleRate), len(out)/2)
	if n < 2 {
		return
	}

	var k = math.Log(toneDecayFloor) / float64(n-1)
	var start = len(out) - n

	for i := 0; i < n; i++ {
		out[start+i] *= math.Exp(k * float64(i))
	}
}

// ToneSamples allocates and renders a tone of the given duration.
func (g *ToneGenerator) ToneSamples(tone Tone, d time.Duration, gain float64) []float64 {
	var out = make([]float64, samplesFor(d, g.sampleRate))
	g.Tone(out, tone, gain)

	return out
}
