package modem

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Text2Codes(t *testing.T) {
	AssertOutputContains(t, func() { Text2Codes([]string{"тест"}) }, "\"19041819\"    checksum = 8")
	AssertOutputContains(t, func() { Text2Codes([]string{"тест"}) }, "\"*19041819#\"")
	AssertOutputContains(t, func() { Text2Codes([]string{"Tест€"}) }, "can't be sent are dropped")
	AssertOutputContains(t, func() { Text2Codes([]string{"€"}) }, "Nothing left to send.")
}

func Test_Codes2Text(t *testing.T) {
	AssertOutputContains(t, func() { Codes2Text("19041819") }, "\"тест\"")
	AssertOutputContains(t, func() { Codes2Text("*19041819#") }, "Looks like a complete packet.")
	AssertOutputContains(t, func() { Codes2Text("123") }, "Can't decode")
	AssertOutputContains(t, func() { Codes2Text("0099") }, "outside the alphabet")
}

func Test_GenTones_Then_Atest(t *testing.T) {
	var path = filepath.Join(t.TempDir(), "out.wav")

	var gen = GenTonesOptions{
		Output:     path,
		Protocol:   "dtmf",
		Volume:     0.5,
		SampleRate: DEFAULT_SAMPLE_RATE,
		Channels:   2,
		Custom:     DefaultCustomConfig(),
	}

	var output = CaptureOutput(t, func() {
		var n, err = GenTones(gen, []string{"first", "€€", "second"})
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	assert.Contains(t, output, "Skipping")
	assert.FileExists(t, path)

	var opts = AtestOptions{
		Protocols:     []string{"standard", "dtmf"},
		ConfirmFrames: DEFAULT_CONFIRM_FRAMES,
		Timeout:       DEFAULT_PACKET_TIMEOUT,
		LogLevel:      "warn",
		Custom:        DefaultCustomConfig(),
	}

	var result AtestResult

	output = CaptureOutput(t, func() {
		var err error
		result, err = Atest(opts, []string{path})
		require.NoError(t, err)
	})

	assert.Equal(t, 2, result.Success)
	assert.Equal(t, 0, result.Errors)
	assert.Contains(t, output, "OK  [dtmf] first")
	assert.Contains(t, output, "OK  [dtmf] second")
	assert.Contains(t, output, "2 from "+path)
}

func Test_GenTones_Errors(t *testing.T) {
	var path = filepath.Join(t.TempDir(), "out.wav")

	var opts = GenTonesOptions{Output: path, Protocol: "morse", Volume: 0.5, SampleRate: 8000, Channels: 1, Custom: DefaultCustomConfig()}

	var _, err = GenTones(opts, []string{"a"})
	require.ErrorIs(t, err, ErrUnknownProtocol)

	opts.Protocol = "standard"
	opts.Channels = 3

	_, err = GenTones(opts, []string{"a"})
	require.Error(t, err)

	opts.Channels = 1

	CaptureOutput(t, func() {
		_, err = GenTones(opts, []string{"€"})
	})
	require.ErrorIs(t, err, ErrNothingToSend)
	assert.NoFileExists(t, path)
}
