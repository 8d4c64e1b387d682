package modem

// Signal quality, for the operator only.  Nothing in the decoder looks at it.

import (
	"fmt"
)

type QualityLevel int

const (
	QualityNone QualityLevel = iota
	QualityPoor
	QualityFair
	QualityGood
)

func (q QualityLevel) String() string {
	switch q {
	case QualityPoor:
		return "poor"
	case QualityFair:
		return "fair"
	case QualityGood:
		return "good"
	default:
		return "none"
	}
}

type Quality struct {
	Level    QualityLevel
	Score    float64
	Strength float64
	Clarity  float64
}

func (q Quality) String() string {
	if q.Level == QualityNone {
		return "none"
	}

	return fmt.Sprintf("%s (%.2f)", q.Level, q.Score)
}

const qualityEpsilon = 1e-9

/*------------------------------------------------------------------
 *
 * Name:        EstimateQuality
 *
 * Inputs:	peak		- Largest bin.
 *		total		- Sum of all bins.
 *		threshold	- Current detection threshold.
 *		n		- Number of bins.
 *
 * Description:	strength is how far the peak stands above the threshold,
 *		as a fraction of the headroom left.  clarity is how much
 *		the peak stands above the rest of the spectrum.
 *
 *			score = 0.4 * strength + 0.6 * clarity
 *
 *		good above 0.7, fair above 0.4, otherwise poor.  A peak
 *		below the threshold is no signal at all.
 *
 *----------------------------------------------------------------*/

func EstimateQuality(peak, total, threshold float64, n int) Quality {
	if peak < threshold || n < 1 {
		return Quality{Level: QualityNone}
	}

	var strength float64
	if threshold < 255 {
		strength = (peak - threshold) / (255 - threshold)
	}

	var others float64
	if n > 1 {
		others = (total - peak) / float64(n-1)
	}

	var clarity = 1 - others/(peak+qualityEpsilon)

	var q = Quality{
		Score:    0.4*strength + 0.6*clarity,
		Strength: strength,
		Clarity:  clarity,
	}

	switch {
	case q.Score > 0.7:
		q.Level = QualityGood
	case q.Score > 0.4:
		q.Level = QualityFair
	default:
		q.Level = QualityPoor
	}

	return q
}
