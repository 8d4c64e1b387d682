package modem

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func Test_Checksum_Empty(t *testing.T) {
	assert.Equal(t, '0', Checksum(""))
}

func Test_Checksum_Known(t *testing.T) {
	// 'a' is 97, 97 % 36 = 25
	assert.Equal(t, 'p', Checksum("a"))

	// Pairs cancel.
	assert.Equal(t, '0', Checksum("aa"))
}

func Test_Checksum_Properties(t *testing.T) {
	var chars = DefaultAlphabet.Chars()

	rapid.Check(t, func(t *rapid.T) {
		var text = string(rapid.SliceOf(rapid.SampledFrom(chars)).Draw(t, "text"))

		var c = Checksum(text)

		assert.Equal(t, c, Checksum(text), "deterministic")
		assert.True(t, strings.ContainsRune(ChecksumCandidates, c))
	})
}
