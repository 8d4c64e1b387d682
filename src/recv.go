package modem

/*------------------------------------------------------------------
 *
 * Purpose:   	Receiver.  Spectrum frames in, messages out.
 *
 * Description:	Each frame goes through these steps, in order:
 *
 *		1. Peak and mean of the frame update the noise estimate
 *		   and detection threshold.
 *
 *		2. Tone debounce.  A held tone covers many frames and
 *		   must produce one token, not one per frame.
 *
 *			IDLE		Peak above threshold: try to
 *					identify a token.  Once the same
 *					token has been seen on enough
 *					consecutive frames, pass it to the
 *					framer and go to COOLDOWN.
 *
 *			COOLDOWN	Count quiet frames.  A loud frame
 *					takes one off the count (echo)
 *					rather than starting over.  Enough
 *					quiet frames, back to IDLE.
 *
 *		3. Packet framing, see framer.go.
 *
 *		4. Packet timeout.
 *
 *		The receiver is owned by one goroutine.  It does no I/O
 *		and holds no locks.
 *
 *---------------------------------------------------------------*/

import (
	"errors"
	"time"

	"github.com/charmbracelet/log"
)

const DEFAULT_CONFIRM_FRAMES = 2

type DebounceState int

const (
	DebounceIdle DebounceState = iota
	DebounceCooldown
)

func (s DebounceState) String() string {
	if s == DebounceCooldown {
		return "COOLDOWN"
	}

	return "IDLE"
}

type ReceiverConfig struct {
	SampleRate float64
	FFTSize    int

	NoiseAlpha      float64
	ThresholdOffset float64
	MinThreshold    float64
	MaxThreshold    float64

	SingleToleranceHz float64
	DualToleranceHz   float64

	Timeout time.Duration

	// Consecutive frames a token must be seen on before it counts.
	ConfirmFrames int
}

func DefaultReceiverConfig() ReceiverConfig {
	return ReceiverConfig{
		SampleRate:        DEFAULT_SAMPLE_RATE,
		FFTSize:           DEFAULT_FFT_SIZE,
		NoiseAlpha:        DEFAULT_NOISE_ALPHA,
		ThresholdOffset:   DEFAULT_THRESHOLD_OFFSET,
		MinThreshold:      DEFAULT_MIN_THRESHOLD,
		MaxThreshold:      DEFAULT_MAX_THRESHOLD,
		SingleToleranceHz: DEFAULT_SINGLE_TOLERANCE_HZ,
		DualToleranceHz:   DEFAULT_DUAL_TOLERANCE_HZ,
		Timeout:           DEFAULT_PACKET_TIMEOUT,
		ConfirmFrames:     DEFAULT_CONFIRM_FRAMES,
	}
}

// FrameResult reports what one frame did, for meters and logging.
type FrameResult struct {
	Peak      float64
	Mean      float64
	Threshold float64
	Quality   Quality
	State     DebounceState

	// Set when a token was passed to the framer on this frame.
	Detected  bool
	Detection Detection

	// Messages appended to the log on this frame.
	Messages []Message
}

type Receiver struct {
	cfg      ReceiverConfig
	agc      *AGC
	detector *Detector
	framer   *Framer
	messages *MessageLog
	logger   *log.Logger

	state       DebounceState
	candidate   rune
	candidateN  int
	quietFrames int
	cooldown    int
}

func NewReceiver(cfg ReceiverConfig, protocols []*Protocol, messages *MessageLog, logger *log.Logger) (*Receiver, error) {
	if len(protocols) == 0 {
		return nil, errors.New("receiver needs at least one protocol")
	}

	if cfg.SampleRate <= 0 || cfg.FFTSize <= 0 {
		return nil, errors.New("receiver needs a sample rate and FFT size")
	}

	if cfg.ConfirmFrames < 1 {
		cfg.ConfirmFrames = 1
	}

	if messages == nil {
		messages = NewMessageLog()
	}

	logger = orDefaultLogger(logger)

	var r = &Receiver{
		cfg:      cfg,
		agc:      NewAGC(cfg.NoiseAlpha, cfg.ThresholdOffset, cfg.MinThreshold, cfg.MaxThreshold),
		detector: NewDetector(cfg.SampleRate/float64(cfg.FFTSize), cfg.SingleToleranceHz, cfg.DualToleranceHz, protocols),
		framer:   NewFramer(cfg.Timeout, logger),
		messages: messages,
		logger:   logger,
	}

	return r, nil
}

func (r *Receiver) Messages() *MessageLog { return r.messages }
func (r *Receiver) Threshold() float64    { return r.agc.Threshold() }
func (r *Receiver) NoiseLevel() float64   { return r.agc.NoiseLevel() }
func (r *Receiver) State() DebounceState  { return r.state }
func (r *Receiver) FramerState() FramerState {
	return r.framer.State()
}

// Reset returns everything to the starting state.  The message log is
// left alone.
func (r *Receiver) Reset() {
	r.agc.Reset()
	r.framer.Reset()
	r.state = DebounceIdle
	r.candidate = 0
	r.candidateN = 0
	r.quietFrames = 0
	r.cooldown = 0
}

/*------------------------------------------------------------------
 *
 * Name:        ProcessFrame
 *
 * Inputs:	spectrum	- One frame, FFT size / 2 bins, 0-255.
 *		now		- When the frame was taken.  Live capture
 *				  uses the clock, file replay uses the
 *				  sample position.
 *
 *----------------------------------------------------------------*/

func (r *Receiver) ProcessFrame(spectrum []float64, now time.Time) FrameResult {
	var stats = SpectrumStats(spectrum)
	var threshold = r.agc.Update(stats.Peak, stats.Mean)

	var res = FrameResult{
		Peak:      stats.Peak,
		Mean:      stats.Mean,
		Threshold: threshold,
		Quality:   EstimateQuality(stats.Peak, stats.Total, threshold, len(spectrum)),
	}

	var loud = stats.Peak > threshold

	switch r.state {
	case DebounceIdle:
		if !loud {
			r.candidateN = 0
			break
		}

		var det, ok = r.detector.Identify(spectrum, threshold)
		if !ok {
			r.candidateN = 0
			break
		}

		if det.Token == r.candidate && r.candidateN > 0 {
			r.candidateN++
		} else {
			r.candidate = det.Token
			r.candidateN = 1
		}

		if r.candidateN < r.cfg.ConfirmFrames {
			break
		}

		r.logger.Debugf("Token %q at %.1f Hz (%s)", det.Token, det.Frequency, det.Protocol.ID)

		res.Detected = true
		res.Detection = det

		if m, ok := r.framer.Token(det.Token, det.Protocol, now); ok {
			r.emit(m, &res)
		}

		r.state = DebounceCooldown
		r.candidateN = 0
		r.quietFrames = 0
		r.cooldown = det.Protocol.CooldownFrames

	case DebounceCooldown:
		if loud {
			r.quietFrames = max(0, r.quietFrames-1)
		} else {
			r.quietFrames++
		}

		if r.quietFrames >= r.cooldown {
			r.state = DebounceIdle
		}
	}

	if m, ok := r.framer.CheckTimeout(now); ok {
		r.emit(m, &res)
	}

	res.State = r.state

	return res
}

func (r *Receiver) emit(m Message, res *FrameResult) {
	if m.Status == StatusSuccess {
		r.logger.Infof("Received %q (%s)", m.Text, m.Protocol)
	} else {
		r.logger.Warnf("Receive error %q (%s)", m.Text, m.Protocol)
	}

	r.messages.Append(m)
	res.Messages = append(res.Messages, m)
}

// FeedTokens drives the framer directly with a token sequence, bypassing
// the audio path.  Each token is given the next instant after the last.
func (r *Receiver) FeedTokens(tokens []rune, proto *Protocol, now time.Time) []Message {
	var out []Message

	for i, tok := range tokens {
		var at = now.Add(time.Duration(i) * time.Millisecond)

		if m, ok := r.framer.CheckTimeout(at); ok {
			r.messages.Append(m)
			out = append(out, m)
		}

		if m, ok := r.framer.Token(tok, proto, at); ok {
			r.messages.Append(m)
			out = append(out, m)
		}
	}

	return out
}

// CheckTimeout lets a host expire a packet when no frames are arriving.
func (r *Receiver) CheckTimeout(now time.Time) []Message {
	var m, ok = r.framer.CheckTimeout(now)
	if !ok {
		return nil
	}

	r.messages.Append(m)

	return []Message{m}
}
