package modem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func toneSpectrum(t *testing.T, a *Analyser, tone Tone) []float64 {
	t.Helper()

	var freqs = tone.Frequencies()

	return a.Spectrum(sines(a.FFTSize(), a.SampleRate(), 0.5/float64(len(freqs)), freqs...))
}

func Test_Detector_Every_FSK_Token(t *testing.T) {
	var a, err = NewAnalyser(DEFAULT_SAMPLE_RATE, DEFAULT_FFT_SIZE, DEFAULT_HOP_SIZE)
	require.NoError(t, err)

	var p = StandardProtocol()
	var d = NewDetector(a.BinHz(), DEFAULT_SINGLE_TOLERANCE_HZ, DEFAULT_DUAL_TOLERANCE_HZ, []*Protocol{p})

	for token, tone := range p.Tones {
		var det, ok = d.Identify(toneSpectrum(t, a, tone), DEFAULT_MIN_THRESHOLD)

		require.True(t, ok, "%q at %s", token, tone)
		assert.Equal(t, token, det.Token, "%s", tone)
		assert.Same(t, p, det.Protocol)
		assert.InDelta(t, tone.Representative(), det.Frequency, DEFAULT_SINGLE_TOLERANCE_HZ)
	}
}

func Test_Detector_Every_DTMF_Key(t *testing.T) {
	var a, _ = NewAnalyser(DEFAULT_SAMPLE_RATE, DEFAULT_FFT_SIZE, DEFAULT_HOP_SIZE)

	var dtmf = DTMFProtocol()
	var d = NewDetector(a.BinHz(), DEFAULT_SINGLE_TOLERANCE_HZ, DEFAULT_DUAL_TOLERANCE_HZ,
		[]*Protocol{StandardProtocol(), dtmf})

	for token, tone := range dtmf.Tones {
		var det, ok = d.Identify(toneSpectrum(t, a, tone), DEFAULT_MIN_THRESHOLD)

		require.True(t, ok, "%q at %s", token, tone)
		assert.Equal(t, token, det.Token, "%s", tone)
		assert.Equal(t, "dtmf", det.Protocol.ID, "dual tones win over single tone protocols")
	}
}

func Test_Detector_Single_Tone_Not_Mistaken_For_DTMF(t *testing.T) {
	var a, _ = NewAnalyser(DEFAULT_SAMPLE_RATE, DEFAULT_FFT_SIZE, DEFAULT_HOP_SIZE)

	var std = StandardProtocol()
	var d = NewDetector(a.BinHz(), DEFAULT_SINGLE_TOLERANCE_HZ, DEFAULT_DUAL_TOLERANCE_HZ,
		[]*Protocol{DTMFProtocol(), std})

	// 'е' is index 4, 740 Hz, inside the DTMF row band.
	var tone, _ = std.ToneFor('е')

	var det, ok = d.Identify(toneSpectrum(t, a, tone), DEFAULT_MIN_THRESHOLD)

	require.True(t, ok)
	assert.Equal(t, 'е', det.Token)
	assert.Equal(t, "standard", det.Protocol.ID)
}

func Test_Detector_First_Protocol_Wins(t *testing.T) {
	var a, _ = NewAnalyser(DEFAULT_SAMPLE_RATE, DEFAULT_FFT_SIZE, DEFAULT_HOP_SIZE)

	var d = NewDetector(a.BinHz(), DEFAULT_SINGLE_TOLERANCE_HZ, DEFAULT_DUAL_TOLERANCE_HZ,
		[]*Protocol{FastProtocol(), StandardProtocol()})

	var det, ok = d.Identify(toneSpectrum(t, a, Single(DEFAULT_BASE_HZ)), DEFAULT_MIN_THRESHOLD)

	require.True(t, ok)
	assert.Equal(t, "fast", det.Protocol.ID)
}

func Test_Detector_Between_Tones(t *testing.T) {
	var a, _ = NewAnalyser(DEFAULT_SAMPLE_RATE, DEFAULT_FFT_SIZE, DEFAULT_HOP_SIZE)

	var d = NewDetector(a.BinHz(), 10, DEFAULT_DUAL_TOLERANCE_HZ,
		[]*Protocol{StandardProtocol()})

	// Halfway between two steps is out of tolerance for both.
	var _, ok = d.Identify(toneSpectrum(t, a, Single(DEFAULT_BASE_HZ+DEFAULT_STEP_HZ/2)), DEFAULT_MIN_THRESHOLD)
	assert.False(t, ok)

	// Above the table.
	_, ok = d.Identify(toneSpectrum(t, a, Single(8000)), DEFAULT_MIN_THRESHOLD)
	assert.False(t, ok)
}

func Test_Detector_Quiet_Frame(t *testing.T) {
	var a, _ = NewAnalyser(DEFAULT_SAMPLE_RATE, DEFAULT_FFT_SIZE, DEFAULT_HOP_SIZE)

	var d = NewDetector(a.BinHz(), DEFAULT_SINGLE_TOLERANCE_HZ, DEFAULT_DUAL_TOLERANCE_HZ,
		[]*Protocol{DTMFProtocol(), StandardProtocol()})

	var _, ok = d.Identify(a.Spectrum(make([]float64, DEFAULT_FFT_SIZE)), DEFAULT_MIN_THRESHOLD)
	assert.False(t, ok)

	_, ok = d.Identify(nil, DEFAULT_MIN_THRESHOLD)
	assert.False(t, ok)
}

func Test_DTMF_Key(t *testing.T) {
	var k, ok = dtmfKey(697, 1209, DEFAULT_DUAL_TOLERANCE_HZ)
	require.True(t, ok)
	assert.Equal(t, '1', k)

	k, ok = dtmfKey(945, 1470, DEFAULT_DUAL_TOLERANCE_HZ)
	require.True(t, ok)
	assert.Equal(t, StopToken, k)

	_, ok = dtmfKey(720, 1209, DEFAULT_DUAL_TOLERANCE_HZ)
	assert.False(t, ok)
}
