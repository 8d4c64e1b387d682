package modem

/*------------------------------------------------------------------
 *
 * Purpose:   	Character codec.
 *
 * Description:	Every supported character has a fixed position in the
 *		alphabet and that position, written as two decimal
 *		digits, is its code.  "а" is "00", "б" is "01" and so on.
 *
 *		The order of the alphabet determines the wire codes
 *		(and the tone assigned to each character) so both ends
 *		must be built from the same list.  Do not sort it.
 *
 *---------------------------------------------------------------*/

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// MaxAlphabetSize is the number of distinct two digit codes.
const MaxAlphabetSize = 100

// UnknownChar is substituted for codes outside the alphabet so that a
// partly corrupted message is still readable.
const UnknownChar = '�'

// DefaultAlphabetChars is the reference character set.  The Cyrillic
// letters are not in dictionary order: "е" is 04 and "т" is 19, which is
// what deployed receivers expect.
const DefaultAlphabetChars = "абвгедёжзийклмнопрстуфхцчшщъыьэюя" +
	"abcdefghijklmnopqrstuvwxyz" +
	"0123456789" +
	" " +
	".,!?-:;()\"'/@+=%"

var (
	ErrUnsupportedChar = errors.New("character not supported")
	ErrOddData         = errors.New("odd number of digits")
)

// Alphabet is an immutable bidirectional table between characters and codes.
type Alphabet struct {
	chars []rune
	index map[rune]int
}

// DefaultAlphabet is built once from DefaultAlphabetChars.
var DefaultAlphabet = MustAlphabet(DefaultAlphabetChars)

/*------------------------------------------------------------------
 *
 * Name:        NewAlphabet
 *
 * Purpose:     Build the lookup tables.
 *
 * Inputs:	chars	- Characters in wire order.  Upper case is folded
 *			  to lower case and duplicates keep their first
 *			  position.
 *
 * Returns:	Error if there are more than 100 characters or one of
 *		them is a reserved control token.
 *
 *----------------------------------------------------------------*/

func NewAlphabet(chars string) (*Alphabet, error) {
	var a = &Alphabet{
		index: make(map[rune]int),
	}

	for _, c := range chars {
		c = unicode.ToLower(c)

		if c == StartToken || c == StopToken {
			return nil, fmt.Errorf("%q is reserved for framing", c)
		}

		if _, dup := a.index[c]; dup {
			continue
		}

		a.index[c] = len(a.chars)
		a.chars = append(a.chars, c)
	}

	if len(a.chars) == 0 {
		return nil, errors.New("alphabet is empty")
	}

	if len(a.chars) > MaxAlphabetSize {
		return nil, fmt.Errorf("alphabet has %d characters, limit is %d", len(a.chars), MaxAlphabetSize)
	}

	return a, nil
}

// MustAlphabet is NewAlphabet for package level tables.
func MustAlphabet(chars string) *Alphabet {
	var a, err = NewAlphabet(chars)
	if err != nil {
		panic(err)
	}

	return a
}

// Len is the number of characters.
func (a *Alphabet) Len() int {
	return len(a.chars)
}

// Chars returns a copy of the characters in wire order.
func (a *Alphabet) Chars() []rune {
	return append([]rune(nil), a.chars...)
}

// Index returns the position of c, after lower casing.
func (a *Alphabet) Index(c rune) (int, bool) {
	var i, ok = a.index[unicode.ToLower(c)]
	return i, ok
}

// Contains reports whether c can be sent.
func (a *Alphabet) Contains(c rune) bool {
	var _, ok = a.Index(c)
	return ok
}

// EncodeChar returns the two digit code for c.
func (a *Alphabet) EncodeChar(c rune) (string, error) {
	var i, ok = a.Index(c)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedChar, c)
	}

	return fmt.Sprintf("%02d", i), nil
}

// DecodeCode returns the character for a two digit code, or UnknownChar.
// It never fails.
func (a *Alphabet) DecodeCode(code string) rune {
	if len(code) != 2 || code[0] < '0' || code[0] > '9' || code[1] < '0' || code[1] > '9' {
		return UnknownChar
	}

	var i = int(code[0]-'0')*10 + int(code[1]-'0')
	if i >= len(a.chars) {
		return UnknownChar
	}

	return a.chars[i]
}

// Filter lower cases text and drops everything the alphabet can't send.
func (a *Alphabet) Filter(text string) string {
	var sb strings.Builder

	for _, c := range text {
		c = unicode.ToLower(c)
		if _, ok := a.index[c]; ok {
			sb.WriteRune(c)
		}
	}

	return sb.String()
}

// EncodeText converts text into its digit string.  Unsupported characters
// are dropped, same as Filter.
func (a *Alphabet) EncodeText(text string) string {
	var sb strings.Builder

	for _, c := range a.Filter(text) {
		fmt.Fprintf(&sb, "%02d", a.index[c])
	}

	return sb.String()
}

// DecodeDigits converts a digit string back to text, two digits at a time.
// An odd length is refused outright rather than guessing which digit is missing.
func (a *Alphabet) DecodeDigits(digits string) (string, error) {
	if len(digits)%2 != 0 {
		return "", fmt.Errorf("%w: %d digits", ErrOddData, len(digits))
	}

	var sb strings.Builder

	for i := 0; i < len(digits); i += 2 {
		sb.WriteRune(a.DecodeCode(digits[i : i+2]))
	}

	return sb.String(), nil
}
