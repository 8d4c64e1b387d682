package modem

/*------------------------------------------------------------------
 *
 * Purpose:   	Decide which token, if any, a spectrum frame holds.
 *
 * Description:	Dual tone protocols are tried first.  The strongest bin
 *		is found separately in the DTMF row band and column band;
 *		both must clear the threshold and both must land near a
 *		grid frequency.
 *
 *		Otherwise the strongest bin in the whole frame is taken
 *		as the tone and matched against each single tone
 *		protocol in turn.  The first protocol with a tone close
 *		enough wins.
 *
 *		Peak positions are refined by fitting a parabola through
 *		the peak bin and its neighbours.
 *
 *---------------------------------------------------------------*/

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

const (
	DEFAULT_SINGLE_TOLERANCE_HZ = 17.0
	DEFAULT_DUAL_TOLERANCE_HZ   = 12.0
)

type Detection struct {
	Token    rune
	Protocol *Protocol
	Tone     Tone

	// Measured frequency, the low one for a dual tone.
	Frequency float64
}

type Detector struct {
	binHz           float64
	singleTolerance float64
	dualTolerance   float64
	protocols       []*Protocol
}

func NewDetector(binHz, singleTolerance, dualTolerance float64, protocols []*Protocol) *Detector {
	return &Detector{
		binHz:           binHz,
		singleTolerance: singleTolerance,
		dualTolerance:   dualTolerance,
		protocols:       protocols,
	}
}

func (d *Detector) Protocols() []*Protocol {
	return d.protocols
}

// Identify looks for a token in a frame whose peak already cleared the
// threshold.
func (d *Detector) Identify(spectrum []float64, threshold float64) (Detection, bool) {
	for _, p := range d.protocols {
		if !p.IsDualTone() {
			continue
		}

		if det, ok := d.identifyDual(spectrum, threshold, p); ok {
			return det, true
		}
	}

	if len(spectrum) == 0 {
		return Detection{}, false
	}

	var peakBin = floats.MaxIdx(spectrum)
	if spectrum[peakBin] < threshold {
		return Detection{}, false
	}

	var f = d.refine(spectrum, peakBin)

	for _, p := range d.protocols {
		if p.IsDualTone() {
			continue
		}

		if token, tone, ok := d.matchSingle(f, p); ok {
			return Detection{Token: token, Protocol: p, Tone: tone, Frequency: f}, true
		}
	}

	return Detection{}, false
}

func (d *Detector) identifyDual(spectrum []float64, threshold float64, p *Protocol) (Detection, bool) {
	var lowMin, lowMax, highMin, highMax = dtmfBands(d.dualTolerance)

	var lowBin, lowOK = d.bandPeak(spectrum, lowMin, lowMax, threshold)
	var highBin, highOK = d.bandPeak(spectrum, highMin, highMax, threshold)

	if !lowOK || !highOK {
		return Detection{}, false
	}

	var low = d.refine(spectrum, lowBin)
	var high = d.refine(spectrum, highBin)

	var key, onGrid = dtmfKey(low, high, d.dualTolerance)
	if !onGrid {
		return Detection{}, false
	}

	var t, known = p.ToneFor(key)
	if !known || !t.IsDual() {
		return Detection{}, false
	}

	return Detection{Token: key, Protocol: p, Tone: t, Frequency: low}, true
}

// bandPeak finds the strongest bin between two frequencies.
func (d *Detector) bandPeak(spectrum []float64, fromHz, toHz, threshold float64) (int, bool) {
	var lo = max(0, int(math.Floor(fromHz/d.binHz)))
	var hi = min(len(spectrum)-1, int(math.Ceil(toHz/d.binHz)))

	if lo > hi {
		return 0, false
	}

	var idx = lo + floats.MaxIdx(spectrum[lo:hi+1])

	return idx, spectrum[idx] >= threshold
}

func (d *Detector) matchSingle(f float64, p *Protocol) (rune, Tone, bool) {
	var best rune
	var bestTone Tone
	var bestDiff = d.singleTolerance
	var found = false

	for token, t := range p.Tones {
		if t.IsDual() {
			continue
		}

		var diff = math.Abs(f - t.Representative())
		if diff < bestDiff || (diff == bestDiff && !found) {
			best, bestTone, bestDiff, found = token, t, diff, true
		}
	}

	return best, bestTone, found
}

// refine converts a peak bin to Hz with parabolic interpolation.
func (d *Detector) refine(spectrum []float64, bin int) float64 {
	if bin <= 0 || bin >= len(spectrum)-1 {
		return float64(bin) * d.binHz
	}

	var y1, y2, y3 = spectrum[bin-1], spectrum[bin], spectrum[bin+1]
	var delta = 0.0

	var denominator = 2 * (2*y2 - y1 - y3)
	if denominator != 0 {
		delta = (y3 - y1) / denominator
	}

	delta = max(-0.5, min(0.5, delta))

	return (float64(bin) + delta) * d.binHz
}
