package modem

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_DefaultConfig_Valid(t *testing.T) {
	var c = DefaultConfig()

	require.NoError(t, c.Validate())
	assert.Equal(t, []string{"standard", "dtmf"}, c.Receiver.Protocols)
	assert.Equal(t, 5*time.Second, c.Receiver.Timeout)
	assert.Equal(t, "portaudio", c.Audio.Backend)
}

func Test_ParseConfig_Overlay(t *testing.T) {
	var c, err = ParseConfig([]byte(`
audio:
  backend: malgo
  sample_rate: 48000
receiver:
  protocols: [dtmf, fast]
  timeout: 2500ms
  confirm_frames: 3
transmit:
  protocol: quiet
  volume: 0.25
custom:
  base_hz: 900
  step_hz: 40
log:
  level: debug
  timestamp_format: "%H:%M:%S"
`))
	require.NoError(t, err)

	assert.Equal(t, "malgo", c.Audio.Backend)
	assert.Equal(t, 48000, c.Audio.SampleRate)
	assert.Equal(t, DEFAULT_FFT_SIZE, c.Audio.FFTSize, "not given, default kept")
	assert.Equal(t, []string{"dtmf", "fast"}, c.Receiver.Protocols)
	assert.Equal(t, 2500*time.Millisecond, c.Receiver.Timeout)
	assert.Equal(t, 3, c.Receiver.ConfirmFrames)
	assert.Equal(t, "quiet", c.Transmit.Protocol)
	assert.InDelta(t, 0.25, c.Transmit.Volume, 1e-9)
	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, "%H:%M:%S", c.Log.TimestampFormat)

	var r *Registry

	r, err = c.Registry()
	require.NoError(t, err)

	var custom, _ = r.Get("custom")
	var tone, _ = custom.ToneFor('а')
	assert.InDelta(t, 900, tone.Representative(), 1e-9)

	var lc = c.ListenerConfig()
	assert.InDelta(t, 48000, lc.Receiver.SampleRate, 1e-9)
	assert.Equal(t, 3, lc.Receiver.ConfirmFrames)
	assert.Equal(t, 2500*time.Millisecond, lc.Receiver.Timeout)
}

func Test_ParseConfig_Custom_Alphabet(t *testing.T) {
	var c, err = ParseConfig([]byte(`
custom:
  alphabet: "abcdefghijklmnopqrstuvwxyz0123456789 "
`))
	require.NoError(t, err)

	var cc CustomConfig

	cc, err = c.CustomConfig()
	require.NoError(t, err)
	assert.Equal(t, 37, cc.Alphabet.Len())
}

func Test_ParseConfig_Errors(t *testing.T) {
	var bad = map[string]string{
		"syntax":          "audio: [",
		"backend":         "audio:\n  backend: alsa\n",
		"fft size":        "audio:\n  fft_size: 1000\n",
		"hop size":        "audio:\n  hop_size: 0\n",
		"no protocols":    "receiver:\n  protocols: []\n",
		"unknown proto":   "receiver:\n  protocols: [morse]\n",
		"transmit proto":  "transmit:\n  protocol: morse\n",
		"volume":          "transmit:\n  volume: 2\n",
		"custom step":     "custom:\n  step_hz: 0\n",
		"thresholds":      "receiver:\n  min_threshold: 150\n  max_threshold: 100\n",
		"confirm":         "receiver:\n  confirm_frames: 0\n",
		"custom alphabet": "custom:\n  alphabet: \"ab*\"\n",
		"bad duration":    "receiver:\n  timeout: soon\n",
	}

	for name, text := range bad {
		var _, err = ParseConfig([]byte(text))
		require.Error(t, err, name)
	}
}

func Test_LoadConfig_File(t *testing.T) {
	var dir = t.TempDir()
	var path = filepath.Join(dir, "tm.yaml")

	require.NoError(t, os.WriteFile(path, []byte("transmit:\n  protocol: fast\n"), 0o600))

	var c, err = LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "fast", c.Transmit.Protocol)
	assert.Equal(t, path, c.Source)

	_, err = LoadConfig(filepath.Join(dir, "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func Test_LoadConfig_Search(t *testing.T) {
	t.Chdir(t.TempDir())

	var c, err = LoadConfig("")
	require.NoError(t, err)

	if c.Source == "" {
		assert.Equal(t, DefaultConfig().Transmit, c.Transmit)
	}

	require.NoError(t, os.WriteFile(CONFIG_FILE_NAME, []byte("transmit:\n  volume: 0.75\n"), 0o600))

	c, err = LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, CONFIG_FILE_NAME, c.Source)
	assert.InDelta(t, 0.75, c.Transmit.Volume, 1e-9)
}
