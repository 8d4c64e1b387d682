package modem

/*------------------------------------------------------------------
 *
 * Purpose:   	Packet framing on the receive side.
 *
 * Description:	Tokens arrive one at a time from the tone detector.
 *
 *		IDLE		Waiting for a start token.  Anything else
 *				is channel noise and is dropped.
 *
 *		RECEIVING	Collecting tokens until stop.  A second
 *				start abandons what we have and begins
 *				again.  Nothing for too long also abandons
 *				the packet.
 *
 *		The protocol of the start token is used for the rest
 *		of the packet.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
)

// DEFAULT_PACKET_TIMEOUT is how long a packet may go without a new token.
const DEFAULT_PACKET_TIMEOUT = 5 * time.Second

type FramerState int

const (
	FramerIdle FramerState = iota
	FramerReceiving
)

func (s FramerState) String() string {
	if s == FramerReceiving {
		return "RECEIVING"
	}

	return "IDLE"
}

type Framer struct {
	state     FramerState
	buf       []rune
	proto     *Protocol
	lastToken time.Time
	timeout   time.Duration
	logger    *log.Logger
}

func NewFramer(timeout time.Duration, logger *log.Logger) *Framer {
	if timeout <= 0 {
		timeout = DEFAULT_PACKET_TIMEOUT
	}

	return &Framer{timeout: timeout, logger: orDefaultLogger(logger)}
}

func (f *Framer) State() FramerState {
	return f.state
}

// Buffer is what has been collected since the last start.
func (f *Framer) Buffer() string {
	return string(f.buf)
}

// Reset drops any partial packet without reporting it.
func (f *Framer) Reset() {
	f.state = FramerIdle
	f.buf = nil
	f.proto = nil
}

/*------------------------------------------------------------------
 *
 * Name:        Token
 *
 * Purpose:     Feed one detected token to the state machine.
 *
 * Inputs:	token	- Character, StartToken or StopToken.
 *		proto	- Protocol the token was recognised under.
 *		now	- Time of the analysis frame.
 *
 * Returns:	A message when a packet completes or is abandoned.
 *
 *----------------------------------------------------------------*/

func (f *Framer) Token(token rune, proto *Protocol, now time.Time) (Message, bool) {
	switch token {
	case StartToken:
		var abandoned, reported = Message{}, false

		if f.state == FramerReceiving && len(f.buf) > 0 {
			f.logger.Warnf("New start while receiving, discarding %q", string(f.buf))
			abandoned = f.errorMessage(fmt.Sprintf("[new-start: %s]", string(f.buf)), now)
			reported = true
		}

		f.state = FramerReceiving
		f.buf = f.buf[:0]
		f.proto = proto
		f.lastToken = now

		return abandoned, reported

	case StopToken:
		if f.state != FramerReceiving {
			f.logger.Debug("Stop while idle, ignored")
			return Message{}, false
		}

		var buf = string(f.buf)
		var p = f.proto

		f.Reset()

		if buf == "" {
			f.logger.Debug("Stop with empty packet, ignored")
			return Message{}, false
		}

		return f.complete(buf, p, now)

	default:
		if f.state != FramerReceiving {
			return Message{}, false
		}

		f.buf = append(f.buf, token)
		f.lastToken = now

		return Message{}, false
	}
}

// CheckTimeout abandons a packet that has gone quiet.  Called once per frame.
func (f *Framer) CheckTimeout(now time.Time) (Message, bool) {
	if f.state != FramerReceiving || now.Sub(f.lastToken) <= f.timeout {
		return Message{}, false
	}

	var buf = string(f.buf)
	var m = f.errorMessage(fmt.Sprintf("[timeout: %s]", buf), now)

	f.logger.Warnf("No tokens for %s, abandoning %q", f.timeout, buf)
	f.Reset()

	return m, true
}

func (f *Framer) complete(buf string, p *Protocol, now time.Time) (Message, bool) {
	var alphabet = DefaultAlphabet
	var id = ""

	if p != nil {
		alphabet = p.Alphabet
		id = p.ID
	}

	if p != nil && p.CustomFraming {
		var text, err = alphabet.DecodeDigits(buf)
		if err != nil {
			f.logger.Warnf("Odd number of digits in %q", buf)
			return Message{Text: fmt.Sprintf("[odd-data: %s]", buf), Status: StatusError, Timestamp: now, Protocol: id}, true
		}

		return Message{Text: text, Status: StatusSuccess, Timestamp: now, Protocol: id}, true
	}

	var runes = []rune(buf)

	// Only a checksum: nothing was sent.
	if len(runes) < 2 {
		f.logger.Debugf("Stop after %q with no payload, ignored", buf)
		return Message{}, false
	}

	var payload = string(runes[:len(runes)-1])
	var received = runes[len(runes)-1]
	var expected = Checksum(payload)

	var text = payload
	if p != nil && p.Restore != nil {
		text = p.Restore(payload)
	}

	if received != expected {
		f.logger.Warnf("Checksum mismatch on %q, received %q, expected %q", payload, received, expected)
		return Message{Text: text, Status: StatusError, Timestamp: now, Protocol: id}, true
	}

	return Message{Text: text, Status: StatusSuccess, Timestamp: now, Protocol: id}, true
}

func (f *Framer) errorMessage(text string, now time.Time) Message {
	var id = ""
	if f.proto != nil {
		id = f.proto.ID
	}

	return Message{Text: text, Status: StatusError, Timestamp: now, Protocol: id}
}
