package modem

// Capture through miniaudio.  Useful where PortAudio is not installed or
// picks the wrong host API.

import (
	"fmt"
	"strings"
	"sync"
	"unsafe"

	"github.com/gen2brain/malgo"
)

type MalgoCapture struct {
	name       string
	sampleRate float64
	ctx        *malgo.AllocatedContext
	deviceName string

	mu      sync.Mutex
	device  *malgo.Device
	sink    func([]float32)
	done    chan error
	closing bool
}

// OpenMalgoCapture sets up the context and checks the named device exists.
// An empty name means the default capture device.
func OpenMalgoCapture(deviceName string, sampleRate float64) (*MalgoCapture, error) {
	var ctx, err = malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: miniaudio context: %w", ErrDeviceUnavailable, err)
	}

	var c = &MalgoCapture{
		name:       "default",
		sampleRate: sampleRate,
		ctx:        ctx,
		deviceName: deviceName,
	}

	var config = malgo.DefaultDeviceConfig(malgo.Capture)
	config.Capture.Format = malgo.FormatF32
	config.Capture.Channels = 1
	config.SampleRate = uint32(sampleRate)
	config.Alsa.NoMMap = 1

	if deviceName != "" && deviceName != "default" {
		var infos, err = ctx.Devices(malgo.Capture)
		if err != nil {
			c.freeContext()
			return nil, fmt.Errorf("%w: listing capture devices: %w", ErrDeviceUnavailable, err)
		}

		var found = false

		for _, info := range infos {
			if strings.Contains(strings.ToLower(info.Name()), strings.ToLower(deviceName)) {
				config.Capture.DeviceID = info.ID.Pointer()
				c.name = info.Name()
				found = true

				break
			}
		}

		if !found {
			c.freeContext()
			return nil, fmt.Errorf("%w: device not found: %s", ErrDeviceUnavailable, deviceName)
		}
	}

	var callbacks = malgo.DeviceCallbacks{
		Data: func(_, input []byte, framecount uint32) {
			if len(input) == 0 {
				return
			}

			c.mu.Lock()
			var sink = c.sink
			c.mu.Unlock()

			if sink != nil {
				sink(unsafe.Slice((*float32)(unsafe.Pointer(&input[0])), int(framecount)))
			}
		},
		// Called for our own Stop too; only an unexpected stop is an error.
		Stop: func() {
			c.mu.Lock()
			defer c.mu.Unlock()

			if c.closing || c.done == nil {
				return
			}

			select {
			case c.done <- fmt.Errorf("%w: capture %s stopped", ErrDeviceUnavailable, c.name):
			default:
			}
		},
	}

	c.device, err = malgo.InitDevice(ctx.Context, config, callbacks)
	if err != nil {
		c.freeContext()
		return nil, fmt.Errorf("%w: init capture %s: %w", ErrDeviceUnavailable, c.name, err)
	}

	return c, nil
}

func (c *MalgoCapture) Name() string        { return c.name }
func (c *MalgoCapture) SampleRate() float64 { return c.sampleRate }

func (c *MalgoCapture) Start(sink func([]float32)) (<-chan error, error) {
	var done = make(chan error, 1)

	c.mu.Lock()
	c.sink = sink
	c.done = done
	c.mu.Unlock()

	if err := c.device.Start(); err != nil {
		return nil, fmt.Errorf("%w: start capture %s: %w", ErrDeviceUnavailable, c.name, err)
	}

	return done, nil
}

func (c *MalgoCapture) Close() error {
	c.mu.Lock()
	c.sink = nil
	c.closing = true
	var device = c.device
	c.device = nil
	c.mu.Unlock()

	if device != nil {
		device.Uninit()
	}

	c.freeContext()

	return nil
}

func (c *MalgoCapture) freeContext() {
	if c.ctx != nil {
		_ = c.ctx.Uninit()
		c.ctx.Free()
		c.ctx = nil
	}
}
