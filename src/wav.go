package modem

/*------------------------------------------------------------------
 *
 * Purpose:     .WAV files.
 *
 * Description:	Writing is the canonical 44 byte header followed by
 *		interleaved 16 bit signed little endian PCM.  Samples
 *		are clamped to -1 .. +1 first.
 *
 *		Reading goes through go-audio, which copes with the
 *		extra chunks other programs like to add.
 *
 *---------------------------------------------------------------*/

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// PCMBuffer is rendered audio, one slice per channel, all the same length.
type PCMBuffer struct {
	SampleRate int
	Channels   [][]float64
}

func NewPCMBuffer(sampleRate, channels, frames int) *PCMBuffer {
	var b = &PCMBuffer{SampleRate: sampleRate, Channels: make([][]float64, channels)}

	for i := range b.Channels {
		b.Channels[i] = make([]float64, frames)
	}

	return b
}

// Frames is the number of samples per channel.
func (b *PCMBuffer) Frames() int {
	if len(b.Channels) == 0 {
		return 0
	}

	return len(b.Channels[0])
}

func (b *PCMBuffer) Duration() float64 {
	if b.SampleRate == 0 {
		return 0
	}

	return float64(b.Frames()) / float64(b.SampleRate)
}

type wav_header struct { /* .WAV file header. */
	riff            [4]byte /* "RIFF" */
	filesize        int32   /* file length - 8 */
	wave            [4]byte /* "WAVE" */
	fmt             [4]byte /* "fmt " */
	fmtsize         int32   /* 16. */
	wformattag      int16   /* 1 for PCM. */
	nchannels       int16   /* 1 for mono, 2 for stereo. */
	nsamplespersec  int32   /* sampling freq, Hz. */
	navgbytespersec int32   /* = nblockalign * nsamplespersec. */
	nblockalign     int16   /* = wbitspersample / 8 * nchannels. */
	wbitspersample  int16   /* 16 */
	data            [4]byte /* "data" */
	datasize        int32   /* number of bytes following. */
}

const WAV_HEADER_SIZE = 44

func newWavHeader(channels, sampleRate, frames int) wav_header {
	var h = wav_header{
		riff:           [4]byte{'R', 'I', 'F', 'F'},
		wave:           [4]byte{'W', 'A', 'V', 'E'},
		fmt:            [4]byte{'f', 'm', 't', ' '},
		fmtsize:        16,
		wformattag:     1,
		nchannels:      int16(channels),   //nolint:gosec
		nsamplespersec: int32(sampleRate), //nolint:gosec
		wbitspersample: 16,
		data:           [4]byte{'d', 'a', 't', 'a'},
	}

	h.nblockalign = h.wbitspersample / 8 * h.nchannels
	h.navgbytespersec = int32(h.nblockalign) * h.nsamplespersec
	h.datasize = int32(frames) * int32(h.nblockalign) //nolint:gosec
	h.filesize = h.datasize + WAV_HEADER_SIZE - 8

	return h
}

func floatToPCM16(v float64) int16 {
	v = max(-1, min(1, v))

	if v < 0 {
		return int16(math.Round(v * 32768))
	}

	return int16(math.Round(v * 32767))
}

// WriteWAV serializes the buffer.
func WriteWAV(w io.Writer, b *PCMBuffer) error {
	if len(b.Channels) == 0 {
		return errors.New("no channels to write")
	}

	if b.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", b.SampleRate)
	}

	var frames = b.Frames()

	for i, ch := range b.Channels {
		if len(ch) != frames {
			return fmt.Errorf("channel %d has %d samples, channel 0 has %d", i, len(ch), frames)
		}
	}

	if err := binary.Write(w, binary.LittleEndian, newWavHeader(len(b.Channels), b.SampleRate, frames)); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	var data = make([]int16, frames*len(b.Channels))

	for i := range frames {
		for c, ch := range b.Channels {
			data[i*len(b.Channels)+c] = floatToPCM16(ch[i])
		}
	}

	if err := binary.Write(w, binary.LittleEndian, data); err != nil {
		return fmt.Errorf("writing samples: %w", err)
	}

	return nil
}

// EncodeWAV is WriteWAV into memory.
func EncodeWAV(b *PCMBuffer) ([]byte, error) {
	var out bytes.Buffer
	out.Grow(WAV_HEADER_SIZE + 2*b.Frames()*len(b.Channels))

	if err := WriteWAV(&out, b); err != nil {
		return nil, err
	}

	return out.Bytes(), nil
}

// ReadWAV decodes a whole PCM .WAV file.
func ReadWAV(r io.ReadSeeker) (*PCMBuffer, error) {
	var decoder = wav.NewDecoder(r)

	if !decoder.IsValidFile() {
		return nil, errors.New("invalid WAV file")
	}

	var ib, err = decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("reading samples: %w", err)
	}

	return pcmFromIntBuffer(ib, int(decoder.BitDepth))
}

func pcmFromIntBuffer(ib *audio.IntBuffer, bitDepth int) (*PCMBuffer, error) {
	if ib.Format == nil || ib.Format.NumChannels < 1 {
		return nil, errors.New("WAV file has no channels")
	}

	if bitDepth < 8 || bitDepth > 32 {
		return nil, fmt.Errorf("unsupported bit depth %d", bitDepth)
	}

	var channels = ib.Format.NumChannels
	var frames = len(ib.Data) / channels
	var b = NewPCMBuffer(ib.Format.SampleRate, channels, frames)

	var full = float64(int64(1) << (bitDepth - 1))
	var offset = 0.0

	// 8 bit WAV is unsigned.
	if bitDepth == 8 {
		offset = 128
	}

	for i := range frames {
		for c := range channels {
			b.Channels[c][i] = (float64(ib.Data[i*channels+c]) - offset) / full
		}
	}

	return b, nil
}

// Mono returns channel 0, or the average of all channels with mix.
func (b *PCMBuffer) Mono(mix bool) []float64 {
	if len(b.Channels) == 0 {
		return nil
	}

	if !mix || len(b.Channels) == 1 {
		return b.Channels[0]
	}

	var out = make([]float64, b.Frames())

	for _, ch := range b.Channels {
		for i, v := range ch {
			out[i] += v / float64(len(b.Channels))
		}
	}

	return out
}
