package modem

/*------------------------------------------------------------------
 *
 * Purpose:   	A listening session.
 *
 * Description:	Start acquires the capture device, the analyser and a
 *		fresh receiver together.  One goroutine then owns all
 *		three: it takes sample buffers from a channel, cuts
 *		them into spectrum frames and runs each frame through
 *		the receiver.
 *
 *		The device callback only copies samples into the
 *		channel.  If the loop falls behind, live buffers are
 *		dropped and counted; recordings wait instead.
 *
 *		Everything is released together when the session ends,
 *		whether by Stop, by the context, by a device error or
 *		by the end of a recording.
 *
 *---------------------------------------------------------------*/

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

const DEFAULT_QUEUE_DEPTH = 64

var ErrAlreadyListening = errors.New("already listening")

type ListenerConfig struct {
	FFTSize int
	HopSize int

	Receiver ReceiverConfig

	// Sample buffers waiting for the loop.
	QueueDepth int

	// Time between input statistics reports.  0 for none.
	StatsInterval time.Duration

	// Called on the loop goroutine after every frame.  Must be quick.
	OnFrame func(FrameResult)
}

func DefaultListenerConfig() ListenerConfig {
	return ListenerConfig{
		FFTSize:    DEFAULT_FFT_SIZE,
		HopSize:    DEFAULT_HOP_SIZE,
		Receiver:   DefaultReceiverConfig(),
		QueueDepth: DEFAULT_QUEUE_DEPTH,
	}
}

type Listener struct {
	cfg       ListenerConfig
	protocols []*Protocol
	messages  *MessageLog
	logger    *log.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	err     error
	running bool

	// Capture buffers lost this session.  Written by the device callback.
	dropped atomic.Int64
}

func NewListener(cfg ListenerConfig, protocols []*Protocol, messages *MessageLog, logger *log.Logger) *Listener {
	if messages == nil {
		messages = NewMessageLog()
	}

	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = DEFAULT_QUEUE_DEPTH
	}

	return &Listener{
		cfg:       cfg,
		protocols: protocols,
		messages:  messages,
		logger:    orDefaultLogger(logger),
	}
}

func (l *Listener) Messages() *MessageLog {
	return l.messages
}

// Dropped is the number of capture buffers lost since the last Start
// because the loop fell behind.
func (l *Listener) Dropped() int64 {
	return l.dropped.Load()
}

func (l *Listener) Listening() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.running
}

/*------------------------------------------------------------------
 *
 * Name:        Start
 *
 * Purpose:     Begin listening.
 *
 * Inputs:	ctx	- Cancelling it ends the session.
 *		open	- Acquires the capture device.
 *
 * Returns:	Device errors wrap ErrDeviceUnavailable.  Nothing is
 *		retried; on error nothing is left open.
 *
 *----------------------------------------------------------------*/

func (l *Listener) Start(ctx context.Context, open DeviceOpener) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		return ErrAlreadyListening
	}

	var dev, err = open()
	if err != nil {
		return err
	}

	var analyser *Analyser

	analyser, err = NewAnalyser(dev.SampleRate(), l.cfg.FFTSize, l.cfg.HopSize)
	if err != nil {
		_ = dev.Close()
		return err
	}

	var rcfg = l.cfg.Receiver
	rcfg.SampleRate = dev.SampleRate()
	rcfg.FFTSize = l.cfg.FFTSize

	var receiver *Receiver

	receiver, err = NewReceiver(rcfg, l.protocols, l.messages, l.logger)
	if err != nil {
		_ = dev.Close()
		return err
	}

	var lossless, realtime = false, true

	if ld, ok := dev.(interface{ Lossless() bool }); ok {
		lossless = ld.Lossless()
	}

	if rd, ok := dev.(interface{ Realtime() bool }); ok {
		realtime = rd.Realtime()
	}

	var loopCtx, cancel = context.WithCancel(ctx)
	var queue = make(chan []float32, l.cfg.QueueDepth)
	var stats = NewAudioStats(dev.Name(), l.cfg.StatsInterval, l.logger)

	l.dropped.Store(0)

	var sink = func(samples []float32) {
		var cp = append([]float32(nil), samples...)

		if lossless {
			select {
			case queue <- cp:
			case <-loopCtx.Done():
			}

			return
		}

		select {
		case queue <- cp:
		default:
			l.dropped.Add(1)
		}
	}

	var devDone <-chan error

	devDone, err = dev.Start(sink)
	if err != nil {
		cancel()
		_ = dev.Close()

		return err
	}

	l.logger.Infof("Listening on %s at %.0f Hz, %.1f Hz per bin", dev.Name(), dev.SampleRate(), analyser.BinHz())

	var s = &session{
		listener: l,
		dev:      dev,
		analyser: analyser,
		receiver: receiver,
		stats:    stats,
		queue:    queue,
		devDone:  devDone,
		realtime: realtime,
	}

	l.running = true
	l.err = nil
	l.cancel = cancel
	l.done = make(chan struct{})

	go s.run(loopCtx, cancel, l.done)

	return nil
}

// Stop ends the session and waits for everything to be released.  The
// error is whatever ended the loop, nil for a normal stop.
func (l *Listener) Stop() error {
	l.mu.Lock()
	var cancel, done = l.cancel, l.done
	l.mu.Unlock()

	if cancel == nil {
		return l.Err()
	}

	cancel()
	<-done

	return l.Err()
}

// Wait blocks until the session ends by itself, such as at the end of a
// recording, or the context is cancelled.
func (l *Listener) Wait() error {
	l.mu.Lock()
	var done = l.done
	l.mu.Unlock()

	if done == nil {
		return nil
	}

	<-done

	return l.Err()
}

func (l *Listener) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.err
}

func (l *Listener) finished(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.running = false
	l.cancel = nil
	l.err = err
}

type session struct {
	listener *Listener
	dev      CaptureDevice
	analyser *Analyser
	receiver *Receiver
	stats    *AudioStats
	queue    chan []float32
	devDone  <-chan error
	realtime bool

	start    time.Time
	frames   int
	buf      []float64
	reported int64
}

func (s *session) run(ctx context.Context, cancel context.CancelFunc, done chan struct{}) {
	var err error

	defer func() {
		cancel()

		if cerr := s.dev.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", s.dev.Name(), cerr)
		}

		s.receiver.Reset()
		s.analyser.Reset()
		s.listener.logger.Infof("Stopped listening on %s", s.dev.Name())
		s.listener.finished(err)
		close(done)
	}()

	s.start = time.Now()

	for {
		select {
		case <-ctx.Done():
			return

		case samples := <-s.queue:
			s.process(samples)

		case derr, ok := <-s.devDone:
			// Take whatever the device managed to queue before it stopped.
			for {
				select {
				case samples := <-s.queue:
					s.process(samples)
					continue
				default:
				}

				break
			}

			if ok && derr != nil {
				err = derr
			}

			return
		}
	}
}

func (s *session) process(samples []float32) {
	s.buf = s.buf[:0]
	for _, v := range samples {
		s.buf = append(s.buf, float64(v))
	}

	s.analyser.Feed(s.buf, func(spectrum []float64) {
		var now time.Time

		s.frames++

		if s.realtime {
			now = time.Now()
		} else {
			now = s.sampleTime()
		}

		var res = s.receiver.ProcessFrame(spectrum, now)

		if s.listener.cfg.OnFrame != nil {
			s.listener.cfg.OnFrame(res)
		}
	})

	if n := s.listener.dropped.Load(); n > s.reported {
		s.stats.Dropped(int(n - s.reported))
		s.reported = n
	}

	s.stats.Add(len(samples), s.receiver.NoiseLevel(), s.receiver.Threshold(), time.Now())
}

// sampleTime is the time of the newest sample in the current frame,
// counted from the start of the recording, for recordings read faster
// than real time.
func (s *session) sampleTime() time.Time {
	var n = s.analyser.FFTSize() + (s.frames-1)*s.analyser.HopSize()
	var secs = float64(n) / s.analyser.SampleRate()

	return s.start.Add(time.Duration(secs * float64(time.Second)))
}
