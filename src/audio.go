package modem

/*------------------------------------------------------------------
 *
 * Purpose:   	Sound devices.
 *
 * Description:	The receiver needs a stream of mono samples and the
 *		transmitter needs somewhere to play tones.  PortAudio
 *		provides both; see audio_malgo.go for a second capture
 *		backend and audio_file.go for replaying recordings.
 *
 *		A device is named by its number in the list printed
 *		by ListDevices (starting from 1), by the start of its
 *		name, or left empty for the system default.
 *
 *---------------------------------------------------------------*/

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
)

var ErrDeviceUnavailable = errors.New("audio device unavailable")

// CaptureDevice delivers mono samples to a sink until closed.
type CaptureDevice interface {
	Name() string
	SampleRate() float64

	// Start begins capture.  sink is called on the device's own goroutine
	// and must not keep the slice.  The returned channel yields one value
	// when the device stops by itself: nil at the end of a recording, or
	// the read error.
	Start(sink func(samples []float32)) (<-chan error, error)

	Close() error
}

// DeviceOpener acquires a capture device.  Called by Listener.Start so
// that the device and everything built on it are acquired together.
type DeviceOpener func() (CaptureDevice, error)

// PortAudio itself is initialized per process, so the count of open
// streams sharing it is the one piece of package state.
var paMu sync.Mutex
var paUsers int

// portaudioAcquire initializes PortAudio for the first user.
func portaudioAcquire() error {
	paMu.Lock()
	defer paMu.Unlock()

	if paUsers == 0 {
		if err := portaudio.Initialize(); err != nil {
			return fmt.Errorf("%w: portaudio: %w", ErrDeviceUnavailable, err)
		}
	}

	paUsers++

	return nil
}

func portaudioRelease() {
	paMu.Lock()
	defer paMu.Unlock()

	paUsers--
	if paUsers == 0 {
		_ = portaudio.Terminate()
	}
}

// findDevice resolves a device name as described above.
func findDevice(dev string, input bool) (*portaudio.DeviceInfo, error) {
	if dev == "" || dev == "default" {
		var info *portaudio.DeviceInfo
		var err error

		if input {
			info, err = portaudio.DefaultInputDevice()
		} else {
			info, err = portaudio.DefaultOutputDevice()
		}

		if err != nil {
			return nil, fmt.Errorf("%w: no default device: %w", ErrDeviceUnavailable, err)
		}

		return info, nil
	}

	var devices, err = portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}

	if i, err := strconv.Atoi(dev); err == nil && i > 0 && i <= len(devices) {
		return devices[i-1], nil
	}

	for _, d := range devices {
		if strings.HasPrefix(d.Name, dev) {
			return d, nil
		}
	}

	return nil, fmt.Errorf("%w: device not found: %s", ErrDeviceUnavailable, dev)
}

// ListDevices describes every PortAudio device, numbered from 1.
func ListDevices() ([]string, error) {
	if err := portaudioAcquire(); err != nil {
		return nil, err
	}
	defer portaudioRelease()

	var devices, err = portaudio.Devices()
	if err != nil {
		return nil, err
	}

	var list = make([]string, 0, len(devices))

	for i, d := range devices {
		list = append(list, fmt.Sprintf("%d: %s (in %d, out %d, %.0f Hz)",
			i+1, d.Name, d.MaxInputChannels, d.MaxOutputChannels, d.DefaultSampleRate))
	}

	return list, nil
}

// PortAudioCapture reads from an input device with a blocking stream.
type PortAudioCapture struct {
	name       string
	sampleRate float64
	stream     *portaudio.Stream
	buf        []float32

	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// OpenPortAudioCapture opens but does not start the device.
func OpenPortAudioCapture(dev string, sampleRate float64, framesPerBuffer int) (*PortAudioCapture, error) {
	if err := portaudioAcquire(); err != nil {
		return nil, err
	}

	var info, err = findDevice(dev, true)
	if err != nil {
		portaudioRelease()
		return nil, err
	}

	var p = portaudio.HighLatencyParameters(info, nil)
	p.Input.Channels = 1
	p.Output.Channels = 0
	p.SampleRate = sampleRate
	p.FramesPerBuffer = framesPerBuffer

	var c = &PortAudioCapture{
		name:       info.Name,
		sampleRate: sampleRate,
		buf:        make([]float32, framesPerBuffer),
		stop:       make(chan struct{}),
	}

	c.stream, err = portaudio.OpenStream(p, c.buf)
	if err != nil {
		portaudioRelease()
		return nil, fmt.Errorf("%w: open input %s: %w", ErrDeviceUnavailable, info.Name, err)
	}

	return c, nil
}

func (c *PortAudioCapture) Name() string        { return c.name }
func (c *PortAudioCapture) SampleRate() float64 { return c.sampleRate }

func (c *PortAudioCapture) Start(sink func([]float32)) (<-chan error, error) {
	if err := c.stream.Start(); err != nil {
		return nil, fmt.Errorf("%w: start input %s: %w", ErrDeviceUnavailable, c.name, err)
	}

	var done = make(chan error, 1)

	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		for {
			select {
			case <-c.stop:
				return
			default:
			}

			// Overflow just means we were slow; the data is still good.
			if err := c.stream.Read(); err != nil && !errors.Is(err, portaudio.InputOverflowed) {
				done <- fmt.Errorf("reading %s: %w", c.name, err)
				return
			}

			sink(c.buf)
		}
	}()

	return done, nil
}

func (c *PortAudioCapture) Close() error {
	var err error

	c.once.Do(func() {
		close(c.stop)
		err = c.stream.Stop()
		c.wg.Wait()

		if cerr := c.stream.Close(); err == nil {
			err = cerr
		}

		portaudioRelease()
	})

	return err
}

// PortAudioOutput plays tones through an output device.  It implements
// ToneOutput.
type PortAudioOutput struct {
	name   string
	gen    *ToneGenerator
	stream *portaudio.Stream
	buf    []float32
	once   sync.Once
}

func OpenPortAudioOutput(dev string, sampleRate float64, framesPerBuffer int) (*PortAudioOutput, error) {
	if err := portaudioAcquire(); err != nil {
		return nil, err
	}

	var info, err = findDevice(dev, false)
	if err != nil {
		portaudioRelease()
		return nil, err
	}

	var p = portaudio.HighLatencyParameters(nil, info)
	p.Input.Channels = 0
	p.Output.Channels = 1
	p.SampleRate = sampleRate
	p.FramesPerBuffer = framesPerBuffer

	var o = &PortAudioOutput{
		name: info.Name,
		gen:  NewToneGenerator(sampleRate),
		buf:  make([]float32, framesPerBuffer),
	}

	o.stream, err = portaudio.OpenStream(p, o.buf)
	if err != nil {
		portaudioRelease()
		return nil, fmt.Errorf("%w: open output %s: %w", ErrDeviceUnavailable, info.Name, err)
	}

	if err := o.stream.Start(); err != nil {
		_ = o.stream.Close()
		portaudioRelease()

		return nil, fmt.Errorf("%w: start output %s: %w", ErrDeviceUnavailable, info.Name, err)
	}

	return o, nil
}

func (o *PortAudioOutput) Name() string { return o.name }

func (o *PortAudioOutput) PlayTone(ctx context.Context, tone Tone, d time.Duration, gain float64) error {
	return o.play(ctx, o.gen.ToneSamples(tone, d, gain))
}

func (o *PortAudioOutput) PlaySilence(ctx context.Context, d time.Duration) error {
	return o.play(ctx, make([]float64, samplesFor(d, o.gen.SampleRate())))
}

// play writes a buffer at a time; Write blocks until the device has room,
// which is what paces the transmission.
func (o *PortAudioOutput) play(ctx context.Context, samples []float64) error {
	for len(samples) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		var n = copy32(o.buf, samples)
		clear(o.buf[n:])
		samples = samples[n:]

		if err := o.stream.Write(); err != nil && !errors.Is(err, portaudio.OutputUnderflowed) {
			return fmt.Errorf("writing %s: %w", o.name, err)
		}
	}

	return nil
}

func (o *PortAudioOutput) Close() error {
	var err error

	o.once.Do(func() {
		err = o.stream.Stop()

		if cerr := o.stream.Close(); err == nil {
			err = cerr
		}

		portaudioRelease()
	})

	return err
}

func copy32(dst []float32, src []float64) int {
	var n = min(len(dst), len(src))

	for i := range n {
		dst[i] = float32(src[i])
	}

	return n
}
