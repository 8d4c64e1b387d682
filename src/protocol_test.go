package modem

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func builtinProtocols(t *testing.T) []*Protocol {
	t.Helper()

	var custom, err = NewCustomProtocol(DefaultCustomConfig())
	require.NoError(t, err)

	return []*Protocol{StandardProtocol(), FastProtocol(), ReliableProtocol(), QuietProtocol(), DTMFProtocol(), custom}
}

func Test_Builtin_Protocols_Valid(t *testing.T) {
	for _, p := range builtinProtocols(t) {
		require.NoError(t, p.Validate(), p.ID)
	}
}

func Test_FSK_Tone_Table(t *testing.T) {
	var p = StandardProtocol()

	var tone, ok = p.ToneFor('а')
	require.True(t, ok)
	assert.InDelta(t, DEFAULT_BASE_HZ, tone.Representative(), 1e-9)

	tone, ok = p.ToneFor('б')
	require.True(t, ok)
	assert.InDelta(t, DEFAULT_BASE_HZ+DEFAULT_STEP_HZ, tone.Representative(), 1e-9)

	tone, _ = p.ToneFor(StartToken)
	assert.InDelta(t, DEFAULT_BASE_HZ-2*DEFAULT_STEP_HZ, tone.Representative(), 1e-9)

	tone, _ = p.ToneFor(StopToken)
	assert.InDelta(t, DEFAULT_BASE_HZ-DEFAULT_STEP_HZ, tone.Representative(), 1e-9)

	assert.False(t, p.IsDualTone())
}

func Test_DTMF_Tone_Table(t *testing.T) {
	var p = DTMFProtocol()

	assert.True(t, p.IsDualTone())

	var tone, ok = p.ToneFor('5')
	require.True(t, ok)
	assert.InDelta(t, 770, tone.Low(), 1e-9)
	assert.InDelta(t, 1336, tone.High(), 1e-9)

	tone, _ = p.ToneFor(StartToken)
	assert.Equal(t, Dual(941, 1209), tone)

	tone, _ = p.ToneFor(StopToken)
	assert.Equal(t, Dual(1477, 941), tone, "order of arguments doesn't matter")

	_, ok = p.ToneFor('a')
	assert.False(t, ok, "letters go as digit codes")
}

func Test_Protocol_Timings(t *testing.T) {
	var cases = []struct {
		p     *Protocol
		tone  time.Duration
		pause time.Duration
	}{
		{StandardProtocol(), 150 * time.Millisecond, 100 * time.Millisecond},
		{FastProtocol(), 80 * time.Millisecond, 70 * time.Millisecond},
		{ReliableProtocol(), 200 * time.Millisecond, 120 * time.Millisecond},
		{QuietProtocol(), 180 * time.Millisecond, 120 * time.Millisecond},
		{DTMFProtocol(), 120 * time.Millisecond, 100 * time.Millisecond},
	}

	for _, c := range cases {
		assert.Equal(t, c.tone, c.p.ToneDuration, c.p.ID)
		assert.Equal(t, c.pause, c.p.PauseDuration, c.p.ID)
	}

	assert.InDelta(t, 0.3, QuietProtocol().Gain, 1e-9)
}

func Test_Validate_Rejects_Shared_Tone(t *testing.T) {
	var p = StandardProtocol()
	p.Tones['б'] = p.Tones['а']

	var err = p.Validate()
	require.ErrorIs(t, err, ErrInvalidProtocol)
	assert.Contains(t, err.Error(), "share")
}

func Test_Validate_Rejects_Control_Collision(t *testing.T) {
	var p = StandardProtocol()
	p.Tones['а'] = p.Tones[StartToken]

	var err = p.Validate()
	require.ErrorIs(t, err, ErrInvalidProtocol)
	assert.Contains(t, err.Error(), "control tone")
}

func Test_Validate_Rejects_Missing_Control(t *testing.T) {
	var p = StandardProtocol()
	delete(p.Tones, StopToken)

	require.ErrorIs(t, p.Validate(), ErrInvalidProtocol)
}

func Test_Validate_Rejects_Off_Grid_Dual(t *testing.T) {
	var p = DTMFProtocol()
	p.Tones['1'] = Dual(700, 1200)

	require.ErrorIs(t, p.Validate(), ErrInvalidProtocol)
}

func Test_Validate_Rejects_Bad_Durations(t *testing.T) {
	var p = StandardProtocol()
	p.ToneDuration = 0
	require.ErrorIs(t, p.Validate(), ErrInvalidProtocol)

	p = StandardProtocol()
	p.PauseDuration = -time.Millisecond
	require.ErrorIs(t, p.Validate(), ErrInvalidProtocol)
}

func Test_CustomConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultCustomConfig().Validate())

	var bad = []CustomConfig{
		{BaseHz: 600, StepHz: 0},
		{BaseHz: 600, StepHz: -5},
		{BaseHz: 60, StepHz: 35},
		{BaseHz: 15000, StepHz: 100},
	}

	for _, c := range bad {
		require.ErrorIs(t, c.Validate(), ErrInvalidProtocol, "%+v", c)

		var _, err = NewCustomProtocol(c)
		require.Error(t, err)
	}
}

func Test_Custom_Protocol_Table(t *testing.T) {
	var p, err = NewCustomProtocol(CustomConfig{BaseHz: 1000, StepHz: 50})
	require.NoError(t, err)

	assert.Equal(t, "custom", p.ID)

	var tone, _ = p.ToneFor('в')
	assert.InDelta(t, 1100, tone.Representative(), 1e-9)

	tone, _ = p.ToneFor(StartToken)
	assert.InDelta(t, 900, tone.Representative(), 1e-9)
}

func Test_Registry(t *testing.T) {
	var r, err = DefaultRegistry(DefaultCustomConfig())
	require.NoError(t, err)

	assert.Equal(t, []string{"standard", "fast", "reliable", "quiet", "dtmf", "custom"}, r.IDs())

	var p *Protocol

	p, err = r.Get("DTMF")
	require.NoError(t, err)
	assert.Equal(t, "dtmf", p.ID)

	_, err = r.Get("morse")
	require.ErrorIs(t, err, ErrUnknownProtocol)

	var list []*Protocol

	list, err = r.Lookup([]string{"dtmf", "standard"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "dtmf", list[0].ID)
	assert.Equal(t, "standard", list[1].ID)

	_, err = r.Lookup([]string{"standard", "nope"})
	require.ErrorIs(t, err, ErrUnknownProtocol)
}

func Test_Registry_Rejects_Invalid(t *testing.T) {
	var r = NewRegistry()

	var p = StandardProtocol()
	p.Gain = 0

	require.ErrorIs(t, r.Register(p), ErrInvalidProtocol)
	assert.Empty(t, r.IDs())
}

func Test_Registry_Replace_Keeps_Order(t *testing.T) {
	var r = NewRegistry()

	require.NoError(t, r.Register(StandardProtocol()))
	require.NoError(t, r.Register(DTMFProtocol()))

	var p = StandardProtocol()
	p.Description = "replaced"
	require.NoError(t, r.Register(p))

	assert.Equal(t, []string{"standard", "dtmf"}, r.IDs())

	var got, _ = r.Get("standard")
	assert.Equal(t, "replaced", got.Description)
}

func Test_Packet_Standard(t *testing.T) {
	var p = StandardProtocol()

	var tokens = p.Packet("Тест!")
	assert.Equal(t, "*тест!"+string(Checksum("тест!"))+"#", string(tokens))

	assert.Nil(t, p.Packet("€€"))
	assert.Nil(t, p.Packet(""))
}

func Test_Packet_Reliable(t *testing.T) {
	var p = ReliableProtocol()

	var tokens = p.Packet("ab")
	assert.Equal(t, "*aabb"+string(Checksum("aabb"))+"#", string(tokens))
	assert.Equal(t, "ab", p.Restore("aabb"))
}

func Test_Packet_DTMF(t *testing.T) {
	var p = DTMFProtocol()

	assert.Equal(t, "*19041819#", string(p.Packet("тест")))
}

func Test_CollapsePairs(t *testing.T) {
	assert.Equal(t, "abc", collapsePairs("aabbcc"))
	assert.Equal(t, "ab", collapsePairs("axbb"), "first of a disagreeing pair wins")
	assert.Equal(t, "ab", collapsePairs("aab"), "trailing character kept")
	assert.Empty(t, collapsePairs(""))
}
