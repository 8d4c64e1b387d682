package modem

/*------------------------------------------------------------------
 *
 * Purpose:   	Send a message as a sequence of tones.
 *
 * Description:	The message is filtered to what the alphabet can carry,
 *		turned into a packet by the protocol, and each token
 *		is played for the protocol's tone duration with the
 *		pause duration of silence between tokens.
 *
 *		Live sending plays through a ToneOutput.  Rendering to
 *		a buffer uses exactly the same loop with an output that
 *		writes samples into memory, so the timing of a .WAV
 *		file matches what would have gone to the speaker.
 *
 *		Sending is sequential.  Don't start a second
 *		transmission on the same output while one is running.
 *
 *---------------------------------------------------------------*/

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
)

// LEADING_SILENCE precedes rendered audio so a receiver has time to settle.
const LEADING_SILENCE = time.Second

var ErrNothingToSend = errors.New("no sendable characters in message")

// ToneOutput is something that can make sounds: a sound device or a buffer.
// Both calls return once the sound has finished.
type ToneOutput interface {
	PlayTone(ctx context.Context, tone Tone, d time.Duration, gain float64) error
	PlaySilence(ctx context.Context, d time.Duration) error
}

// ProgressEvent is sent before each token and once more at the end, with
// Done set and the other fields zero.
type ProgressEvent struct {
	Index     int
	Total     int
	Token     rune
	Frequency float64
	Done      bool
}

type ProgressFunc func(ProgressEvent)

type Transmitter struct {
	out    ToneOutput
	logger *log.Logger
}

func NewTransmitter(out ToneOutput, logger *log.Logger) *Transmitter {
	return &Transmitter{out: out, logger: orDefaultLogger(logger)}
}

/*------------------------------------------------------------------
 *
 * Name:        Transmit
 *
 * Inputs:	ctx		- Checked between tokens.  Cancelling stops
 *				  the transmission after the current tone.
 *		message		- Text.  Unsupported characters are dropped.
 *		volume		- 0 .. 1, multiplied by the protocol gain.
 *		proto		- Which protocol.
 *		progress	- May be nil.
 *
 * Returns:	nil when the last tone has finished, ctx.Err() if
 *		cancelled, or an output error.
 *		A message with nothing sendable in it is not an error;
 *		nothing is played.
 *
 *----------------------------------------------------------------*/

func (t *Transmitter) Transmit(ctx context.Context, message string, volume float64, proto *Protocol, progress ProgressFunc) error {
	var tokens = proto.Packet(message)
	if len(tokens) == 0 {
		t.logger.Info("Nothing to send", "message", message)
		return nil
	}

	t.logger.Infof("Sending %q as %d tokens with %s", proto.Alphabet.Filter(message), len(tokens), proto.ID)

	var err = sendTokens(ctx, t.out, t.logger, tokens, volume, proto, progress)
	if err != nil {
		t.logger.Warn("Transmission stopped", "err", err)
		return err
	}

	t.logger.Info("Transmission complete")

	return nil
}

func sendTokens(ctx context.Context, out ToneOutput, logger *log.Logger, tokens []rune, volume float64, proto *Protocol, progress ProgressFunc) error {
	var gain = max(0, min(1, volume)) * proto.Gain

	for i, token := range tokens {
		if err := ctx.Err(); err != nil {
			return err
		}

		var tone, ok = proto.ToneFor(token)

		if progress != nil {
			var ev = ProgressEvent{Index: i, Total: len(tokens), Token: token}
			if ok {
				ev.Frequency = tone.Representative()
			}

			progress(ev)
		}

		if ok {
			logger.Debugf("Token %d/%d %q at %s", i+1, len(tokens), token, tone)

			if err := out.PlayTone(ctx, tone, proto.ToneDuration, gain); err != nil {
				return fmt.Errorf("playing %q: %w", token, err)
			}
		} else {
			logger.Warnf("No tone for %q in %s, sending silence", token, proto.ID)

			if err := out.PlaySilence(ctx, proto.ToneDuration); err != nil {
				return fmt.Errorf("playing silence for %q: %w", token, err)
			}
		}

		if i < len(tokens)-1 && proto.PauseDuration > 0 {
			if err := out.PlaySilence(ctx, proto.PauseDuration); err != nil {
				return fmt.Errorf("pause: %w", err)
			}
		}
	}

	if progress != nil {
		progress(ProgressEvent{Total: len(tokens), Done: true})
	}

	return nil
}

// PacketDuration is how long the tokens take to play, without leading
// silence.
func PacketDuration(n int, proto *Protocol) time.Duration {
	if n == 0 {
		return 0
	}

	return time.Duration(n)*proto.ToneDuration + time.Duration(n-1)*proto.PauseDuration
}

// BufferOutput is a ToneOutput that writes samples into a fixed buffer
// instead of playing them.
type BufferOutput struct {
	gen *ToneGenerator
	buf []float64
	pos int
}

func NewBufferOutput(buf []float64, sampleRate float64) *BufferOutput {
	return &BufferOutput{gen: NewToneGenerator(sampleRate), buf: buf}
}

// Position is the next sample to be written.
func (b *BufferOutput) Position() int {
	return b.pos
}

func (b *BufferOutput) PlayTone(_ context.Context, tone Tone, d time.Duration, gain float64) error {
	var n = samplesFor(d, b.gen.SampleRate())
	if b.pos+n > len(b.buf) {
		return fmt.Errorf("buffer full: %d samples needed at %d, buffer is %d", n, b.pos, len(b.buf))
	}

	b.gen.Tone(b.buf[b.pos:b.pos+n], tone, gain)
	b.pos += n

	return nil
}

func (b *BufferOutput) PlaySilence(_ context.Context, d time.Duration) error {
	var n = samplesFor(d, b.gen.SampleRate())
	if b.pos+n > len(b.buf) {
		return fmt.Errorf("buffer full: %d samples needed at %d, buffer is %d", n, b.pos, len(b.buf))
	}

	clear(b.buf[b.pos : b.pos+n])
	b.pos += n

	return nil
}

// RenderToBuffer produces the audio for a message as a mono buffer,
// starting with a second of silence.
func RenderToBuffer(message string, volume float64, proto *Protocol, sampleRate int) (*PCMBuffer, error) {
	return RenderWithLogger(message, volume, proto, sampleRate, nil)
}

func RenderWithLogger(message string, volume float64, proto *Protocol, sampleRate int, logger *log.Logger) (*PCMBuffer, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}

	var tokens = proto.Packet(message)
	if len(tokens) == 0 {
		return nil, ErrNothingToSend
	}

	var rate = float64(sampleRate)

	// Sum of the parts, each rounded the way BufferOutput rounds it.
	var frames = samplesFor(LEADING_SILENCE, rate) +
		len(tokens)*samplesFor(proto.ToneDuration, rate) +
		(len(tokens)-1)*samplesFor(proto.PauseDuration, rate)

	var pcm = NewPCMBuffer(sampleRate, 1, frames)
	var out = NewBufferOutput(pcm.Channels[0], rate)

	var ctx = context.Background()

	if err := out.PlaySilence(ctx, LEADING_SILENCE); err != nil {
		return nil, err
	}

	if err := sendTokens(ctx, out, orDefaultLogger(logger), tokens, volume, proto, nil); err != nil {
		return nil, err
	}

	return pcm, nil
}
