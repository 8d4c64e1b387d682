package modem

import (
	"fmt"
	"os"
	"strings"
)

// Utility program for testing the encoding.
func Text2CodesMain() {
	if len(os.Args) < 2 {
		fmt.Printf("Supply text string on command line.\n")
		os.Exit(1)
	}

	Text2Codes(os.Args[1:])
}

func Text2Codes(args []string) {
	var text = strings.Join(args, " ")
	var filtered = DefaultAlphabet.Filter(text)

	if filtered != strings.ToLower(text) {
		fmt.Printf("Characters that can't be sent are dropped: \"%s\"\n", filtered)
	}

	if filtered == "" {
		fmt.Printf("Nothing left to send.\n")
		return
	}

	fmt.Printf("Character codes:\n")
	fmt.Printf("\"%s\"    checksum = %c\n", DefaultAlphabet.EncodeText(filtered), Checksum(filtered))

	for _, p := range []*Protocol{StandardProtocol(), ReliableProtocol(), DTMFProtocol()} {
		var tokens = p.Packet(filtered)

		fmt.Printf("Tokens for %s protocol, %s on air:\n", p.ID, PacketDuration(len(tokens), p))
		fmt.Printf("\"%s\"\n", string(tokens))
	}
}
