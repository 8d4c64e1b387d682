package modem

// Replay a recording as if it were a capture device.  Used by atest and
// by tonemodem --input.

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// REPLAY_CHUNK is how many samples are handed over at a time.
const REPLAY_CHUNK = 1024

type FileCapture struct {
	name     string
	samples  []float64
	rate     float64
	realtime bool

	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// OpenFileCapture loads a .WAV file.  With realtime the samples are paced
// at the file's sample rate, otherwise they go as fast as the receiver
// takes them.
func OpenFileCapture(path string, realtime bool) (*FileCapture, error) {
	var f, err = os.Open(path) //nolint:gosec // We expect to read a user-supplied file from CLI
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}
	defer f.Close()

	var pcm, readErr = ReadWAV(f)
	if readErr != nil {
		return nil, fmt.Errorf("%s: %w", path, readErr)
	}

	return NewBufferCapture(path, pcm, realtime), nil
}

// NewBufferCapture replays audio already in memory, mixed down to mono.
func NewBufferCapture(name string, pcm *PCMBuffer, realtime bool) *FileCapture {
	return &FileCapture{
		name:     name,
		samples:  pcm.Mono(true),
		rate:     float64(pcm.SampleRate),
		realtime: realtime,
		stop:     make(chan struct{}),
	}
}

func (c *FileCapture) Name() string        { return c.name }
func (c *FileCapture) SampleRate() float64 { return c.rate }

// Duration of the recording in seconds.
func (c *FileCapture) Duration() float64 {
	return float64(len(c.samples)) / c.rate
}

// Lossless tells the listener to wait for room rather than drop buffers.
func (c *FileCapture) Lossless() bool { return true }

// Realtime is false when samples come faster than the clock, so frame
// times must be taken from the sample position.
func (c *FileCapture) Realtime() bool { return c.realtime }

func (c *FileCapture) Start(sink func([]float32)) (<-chan error, error) {
	var done = make(chan error, 1)
	var chunk = make([]float32, REPLAY_CHUNK)
	var interval = time.Duration(float64(REPLAY_CHUNK) / c.rate * float64(time.Second))

	c.wg.Add(1)

	go func() {
		defer c.wg.Done()
		defer close(done)

		var ticker *time.Ticker
		if c.realtime {
			ticker = time.NewTicker(interval)
			defer ticker.Stop()
		}

		for pos := 0; pos < len(c.samples); pos += REPLAY_CHUNK {
			select {
			case <-c.stop:
				return
			default:
			}

			var n = copy32(chunk, c.samples[pos:])
			sink(chunk[:n])

			if ticker != nil {
				select {
				case <-c.stop:
					return
				case <-ticker.C:
				}
			}
		}

		done <- nil
	}()

	return done, nil
}

func (c *FileCapture) Close() error {
	c.once.Do(func() {
		close(c.stop)
		c.wg.Wait()
	})

	return nil
}
