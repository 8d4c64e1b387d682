package modem

// Noise adaptive detection threshold.
//
// Frames whose peak is under the threshold are taken to be background
// noise and their mean level is folded slowly into the noise estimate.
// Louder frames are folded in too, ten times more slowly: a tone barely
// moves the mean of a whole spectrum, but a noise floor that has risen
// above the threshold would otherwise never be learned.
// The first frame after a reset seeds the estimate.
// The threshold sits a fixed distance above the noise, within limits.
// All levels are on the 0-255 spectrum scale.

const (
	DEFAULT_NOISE_ALPHA      = 0.02
	DEFAULT_THRESHOLD_OFFSET = 40.0
	DEFAULT_MIN_THRESHOLD    = 90.0
	DEFAULT_MAX_THRESHOLD    = 200.0

	LOUD_FRAME_WEIGHT = 0.1
)

type AGC struct {
	alpha  float64
	offset float64
	min    float64
	max    float64

	noise     float64
	threshold float64
	seeded    bool
}

func NewAGC(alpha, offset, minThreshold, maxThreshold float64) *AGC {
	var a = &AGC{alpha: alpha, offset: offset, min: minThreshold, max: maxThreshold}
	a.Reset()

	return a
}

func DefaultAGC() *AGC {
	return NewAGC(DEFAULT_NOISE_ALPHA, DEFAULT_THRESHOLD_OFFSET, DEFAULT_MIN_THRESHOLD, DEFAULT_MAX_THRESHOLD)
}

// Reset forgets the noise estimate.  Only done when listening restarts.
func (a *AGC) Reset() {
	a.noise = 0
	a.seeded = false
	a.threshold = a.clamp(a.noise + a.offset)
}

// Update takes one frame's peak and mean and returns the new threshold.
func (a *AGC) Update(peak, mean float64) float64 {
	switch {
	case !a.seeded:
		a.noise = mean
		a.seeded = true
	case peak < a.threshold:
		a.noise = a.noise*(1-a.alpha) + mean*a.alpha
	default:
		var alpha = a.alpha * LOUD_FRAME_WEIGHT
		a.noise = a.noise*(1-alpha) + mean*alpha
	}

	a.threshold = a.clamp(a.noise + a.offset)

	return a.threshold
}

func (a *AGC) Threshold() float64 {
	return a.threshold
}

func (a *AGC) NoiseLevel() float64 {
	return a.noise
}

func (a *AGC) clamp(v float64) float64 {
	return max(a.min, min(a.max, v))
}
