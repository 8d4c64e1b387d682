package modem

// ChecksumCandidates are the characters a checksum can take.  All of them
// are in the default alphabet so the checksum goes out on a normal tone.
const ChecksumCandidates = "0123456789abcdefghijklmnopqrstuvwxyz"

// Checksum folds the code points of msg with XOR and picks a candidate.
// It detects most single character corruptions but is not a CRC, and
// collisions between different messages are expected.
func Checksum(msg string) rune {
	if msg == "" {
		return rune(ChecksumCandidates[0])
	}

	var acc rune

	for _, c := range msg {
		acc ^= c
	}

	return rune(ChecksumCandidates[int(acc)%len(ChecksumCandidates)])
}
