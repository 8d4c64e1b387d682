package modem

/*------------------------------------------------------------------
 *
 * Purpose:   	Turn a stream of samples into spectrum frames.
 *
 * Description:	Every hop samples, the most recent FFT size samples are
 *		windowed (Blackman) and transformed.  Bin magnitudes are
 *		converted to dB and mapped linearly
 *
 *			-100 dB .. 0 dB   ->   0 .. 255
 *
 *		which is the scale the threshold and quality code use.
 *		Only the lower half of the transform is kept.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
	"gonum.org/v1/gonum/floats"
)

const (
	DEFAULT_SAMPLE_RATE = 44100
	DEFAULT_FFT_SIZE    = 2048
	DEFAULT_HOP_SIZE    = 512

	SPECTRUM_MIN_DB = -100.0
	SPECTRUM_MAX_DB = 0.0
	SPECTRUM_SCALE  = 255.0
)

type Analyser struct {
	sampleRate float64
	size       int
	hop        int
	window     []float64

	hist     []float64
	windowed []float64
}

func NewAnalyser(sampleRate float64, size, hop int) (*Analyser, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate %g must be positive", sampleRate)
	}

	if size < 64 || size&(size-1) != 0 {
		return nil, fmt.Errorf("FFT size %d must be a power of two, at least 64", size)
	}

	if hop < 1 || hop > size {
		return nil, fmt.Errorf("hop %d must be between 1 and the FFT size %d", hop, size)
	}

	return &Analyser{
		sampleRate: sampleRate,
		size:       size,
		hop:        hop,
		window:     window.Blackman(size),
		hist:       make([]float64, 0, 2*size),
		windowed:   make([]float64, size),
	}, nil
}

func (a *Analyser) SampleRate() float64 { return a.sampleRate }
func (a *Analyser) FFTSize() int        { return a.size }
func (a *Analyser) HopSize() int        { return a.hop }

// BinHz is the width of one spectrum bin.
func (a *Analyser) BinHz() float64 {
	return a.sampleRate / float64(a.size)
}

// FrameDuration is the time between frames.
func (a *Analyser) FrameDuration() float64 {
	return float64(a.hop) / a.sampleRate
}

// Reset drops buffered samples.
func (a *Analyser) Reset() {
	a.hist = a.hist[:0]
}

// Feed appends samples and calls emit for every frame that is now complete.
// The spectrum passed to emit is only valid during the call.
func (a *Analyser) Feed(samples []float64, emit func(spectrum []float64)) {
	a.hist = append(a.hist, samples...)

	for len(a.hist) >= a.size {
		emit(a.Spectrum(a.hist[:a.size]))
		a.hist = append(a.hist[:0], a.hist[a.hop:]...)
	}
}

// Spectrum of exactly FFT size samples, on the 0-255 scale.
func (a *Analyser) Spectrum(samples []float64) []float64 {
	for i := range a.windowed {
		a.windowed[i] = samples[i] * a.window[i]
	}

	var x = fft.FFTReal(a.windowed)
	var n = float64(a.size)
	var out = make([]float64, a.size/2)

	for k := range out {
		out[k] = scaleMagnitude(cmplx.Abs(x[k]) / n)
	}

	return out
}

func scaleMagnitude(m float64) float64 {
	if m <= 0 {
		return 0
	}

	var db = 20 * math.Log10(m)
	var v = (db - SPECTRUM_MIN_DB) / (SPECTRUM_MAX_DB - SPECTRUM_MIN_DB) * SPECTRUM_SCALE

	return max(0, min(SPECTRUM_SCALE, v))
}

// FrameStats are the per frame figures the AGC and quality estimate use.
type FrameStats struct {
	Peak    float64
	PeakBin int
	Mean    float64
	Total   float64
}

func SpectrumStats(spectrum []float64) FrameStats {
	if len(spectrum) == 0 {
		return FrameStats{PeakBin: -1}
	}

	var total = floats.Sum(spectrum)
	var idx = floats.MaxIdx(spectrum)

	return FrameStats{
		Peak:    spectrum[idx],
		PeakBin: idx,
		Mean:    total / float64(len(spectrum)),
		Total:   total,
	}
}
