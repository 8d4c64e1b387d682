package modem

/*------------------------------------------------------------------
 *
 * Purpose:   	DTMF, commonly known as "touch tones."
 *
 * Description:	Keypad layout, 4 rows by 3 columns.  The A-D column is
 *		not used because telephones don't have it.
 *
 *			 	1209	1336	1477
 *			697	1	2	3
 *			770	4	5	6
 *			852	7	8	9
 *			941	*	0	#
 *
 *		'*' and '#' are the start and stop of a packet.
 *
 *---------------------------------------------------------------*/

const NUM_DTMF_ROWS = 4
const NUM_DTMF_COLS = 3

var DTMF_ROW_TONES = [NUM_DTMF_ROWS]float64{697, 770, 852, 941}
var DTMF_COL_TONES = [NUM_DTMF_COLS]float64{1209, 1336, 1477}

var dtmfKeypad = [NUM_DTMF_ROWS][NUM_DTMF_COLS]rune{
	{'1', '2', '3'},
	{'4', '5', '6'},
	{'7', '8', '9'},
	{StartToken, '0', StopToken},
}

// dtmfTones is the tone table for all twelve keys.
func dtmfTones() map[rune]Tone {
	var tones = make(map[rune]Tone, NUM_DTMF_ROWS*NUM_DTMF_COLS)

	for r, row := range dtmfKeypad {
		for c, key := range row {
			tones[key] = Dual(DTMF_ROW_TONES[r], DTMF_COL_TONES[c])
		}
	}

	return tones
}

// dtmfBands returns the frequency ranges searched for the row and column
// tones, widened by the tolerance.
func dtmfBands(tolerance float64) (lowMin, lowMax, highMin, highMax float64) {
	return DTMF_ROW_TONES[0] - tolerance, DTMF_ROW_TONES[NUM_DTMF_ROWS-1] + tolerance,
		DTMF_COL_TONES[0] - tolerance, DTMF_COL_TONES[NUM_DTMF_COLS-1] + tolerance
}

// nearestTone picks the closest candidate within tolerance, -1 if none.
func nearestTone(f float64, candidates []float64, tolerance float64) int {
	var best = -1
	var bestDiff = tolerance

	for i, c := range candidates {
		var d = f - c
		if d < 0 {
			d = -d
		}

		if d <= bestDiff {
			best = i
			bestDiff = d
		}
	}

	return best
}

// dtmfKey maps a measured frequency pair onto the keypad.
func dtmfKey(low, high float64, tolerance float64) (rune, bool) {
	var row = nearestTone(low, DTMF_ROW_TONES[:], tolerance)
	var col = nearestTone(high, DTMF_COL_TONES[:], tolerance)

	if row < 0 || col < 0 {
		return 0, false
	}

	return dtmfKeypad[row][col], true
}

func isDTMFGridTone(t Tone) bool {
	if !t.IsDual() {
		return false
	}

	return nearestTone(t.Low(), DTMF_ROW_TONES[:], 0.5) >= 0 &&
		nearestTone(t.High(), DTMF_COL_TONES[:], 0.5) >= 0
}
