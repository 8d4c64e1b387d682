package modem

/*------------------------------------------------------------------
 *
 * Purpose:   	Print statistics for the audio input stream.
 *
 * 		There is otherwise no sign of the input level until a
 *		message is received correctly, so every so often we
 *		print something like this:
 *
 *		ADEVICE default: Sample rate approx. 44.1 k, 0 dropped, noise 62, threshold 102
 *
 *		A rate far from nominal, lots of dropped buffers or a
 *		level stuck at 0 all point at the capture setup rather
 *		than the decoder.
 *
 *		The first report comes after 3 seconds and is
 *		suppressed, because the rate is off until we are on a
 *		steady boundary.
 *
 *---------------------------------------------------------------*/

import (
	"time"

	"github.com/charmbracelet/log"
)

type AudioStats struct {
	device   string
	interval time.Duration
	logger   *log.Logger

	lastTime      time.Time
	sampleCount   int
	droppedCount  int
	suppressFirst bool
}

// NewAudioStats reports every interval.  Zero turns reporting off.
func NewAudioStats(device string, interval time.Duration, logger *log.Logger) *AudioStats {
	return &AudioStats{device: device, interval: interval, logger: orDefaultLogger(logger)}
}

// Dropped records capture buffers lost because the loop fell behind.
func (s *AudioStats) Dropped(n int) {
	s.droppedCount += n
}

/*------------------------------------------------------------------
 *
 * Name:        Add
 *
 * Purpose:     Add sample count from one buffer to the statistics.
 *		Print if specified amount of time has passed.
 *
 * Inputs:	nsamp		- How many audio samples were read.
 *		noise, threshold - Current receiver levels for the report.
 *		now		- Current time.
 *
 *----------------------------------------------------------------*/

func (s *AudioStats) Add(nsamp int, noise, threshold float64, now time.Time) {
	if s.interval <= 0 {
		return
	}

	if s.lastTime.IsZero() {
		s.sampleCount = 0
		s.droppedCount = 0
		s.suppressFirst = true
		s.lastTime = now.Add(-(s.interval - 3*time.Second))

		return
	}

	s.sampleCount += nsamp

	if now.Before(s.lastTime.Add(s.interval)) {
		return
	}

	if s.suppressFirst {
		s.suppressFirst = false
	} else {
		var elapsed = now.Sub(s.lastTime).Seconds()
		var aveRate = float64(s.sampleCount) / 1000.0 / elapsed

		s.logger.Infof("ADEVICE %s: Sample rate approx. %.1f k, %d dropped, noise %.0f, threshold %.0f",
			s.device, aveRate, s.droppedCount, noise, threshold)
	}

	s.lastTime = now
	s.sampleCount = 0
	s.droppedCount = 0
}
