package modem

import (
	"fmt"
	"os"
	"strings"
)

// Utility program for testing the decoding.
func Codes2TextMain() {
	if len(os.Args) < 2 {
		fmt.Printf("Supply digit sequence on command line.\n")
		os.Exit(1)
	}

	Codes2Text(strings.Join(os.Args[1:], ""))
}

// Codes2Text accepts bare digits, or a whole DTMF packet with * and #.
func Codes2Text(digits string) {
	var framed = strings.HasPrefix(digits, string(StartToken)) && strings.HasSuffix(digits, string(StopToken)) && len(digits) >= 2
	if framed {
		fmt.Printf("Looks like a complete packet.\n")
		digits = digits[1 : len(digits)-1]
	}

	var text, err = DefaultAlphabet.DecodeDigits(digits)
	if err != nil {
		fmt.Printf("Can't decode \"%s\": %s\n", digits, err)
		return
	}

	fmt.Printf("Decoded text:\n")
	fmt.Printf("\"%s\"\n", text)

	if strings.ContainsRune(text, UnknownChar) {
		fmt.Printf("%c marks codes outside the alphabet.\n", UnknownChar)
	}
}
