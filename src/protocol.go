package modem

/*------------------------------------------------------------------
 *
 * Purpose:   	Tone protocols.
 *
 * Description:	A protocol says how long each tone and the gap after it
 *		last, and which tone is sounded for each token.  Tokens
 *		are alphabet characters plus the two framing tokens.
 *
 *		The FSK protocols all share one table: the character at
 *		alphabet index i is sent at base + i * step.  Start and
 *		stop sit just below the base so they can never be
 *		confused with a payload character.
 *
 *		The DTMF protocol sends only digits and '*' '#', so the
 *		text is converted to its two digit codes first and the
 *		protocol supplies its own framing.
 *
 *---------------------------------------------------------------*/

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

const (
	StartToken = '*'
	StopToken  = '#'
)

const (
	DEFAULT_BASE_HZ = 600.0
	DEFAULT_STEP_HZ = 35.0

	// Audible limit for generated tones.
	MAX_TONE_HZ = 20000.0
)

const DEFAULT_COOLDOWN_FRAMES = 3

var (
	ErrUnknownProtocol = errors.New("unknown protocol")
	ErrInvalidProtocol = errors.New("invalid protocol")
)

// Protocol is immutable once registered.  Build new ones rather than
// editing a shared value.
type Protocol struct {
	ID          string
	Name        string
	Description string

	ToneDuration  time.Duration
	PauseDuration time.Duration

	// Tone for every token, including StartToken and StopToken.
	Tones map[rune]Tone

	// Alphabet the payload characters come from.
	Alphabet *Alphabet

	// Transform maps the filtered message to the wire payload.  Nil means
	// send it unchanged.
	Transform func(string) string

	// Restore undoes Transform on the receiving side, if it can be undone
	// character by character.
	Restore func(string) string

	// CustomFraming means Transform produces the complete token sequence,
	// start and stop included, and the payload is the digit codes of the
	// message rather than the message itself.
	CustomFraming bool

	// Gain multiplies the caller's volume.
	Gain float64

	// Quiet frames needed before the same tone may be accepted again.
	CooldownFrames int
}

// ToneFor looks up the tone for a token.
func (p *Protocol) ToneFor(token rune) (Tone, bool) {
	var t, ok = p.Tones[token]
	return t, ok
}

// IsDualTone is true if any token uses a frequency pair.
func (p *Protocol) IsDualTone() bool {
	for _, t := range p.Tones {
		if t.IsDual() {
			return true
		}
	}

	return false
}

/*------------------------------------------------------------------
 *
 * Name:        Validate
 *
 * Purpose:     Check the rules every protocol must obey.
 *
 * Description:	- Tone duration positive, pause not negative.
 *		- Both framing tokens have a tone.
 *		- No two tokens share a tone.
 *		- Dual tones come from the DTMF grid.
 *		- Every alphabet character and every checksum
 *		  character can be sent, unless the protocol does its
 *		  own framing.
 *
 *----------------------------------------------------------------*/

func (p *Protocol) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidProtocol)
	}

	if p.ToneDuration <= 0 {
		return fmt.Errorf("%w: %s: tone duration %s must be positive", ErrInvalidProtocol, p.ID, p.ToneDuration)
	}

	if p.PauseDuration < 0 {
		return fmt.Errorf("%w: %s: pause duration %s is negative", ErrInvalidProtocol, p.ID, p.PauseDuration)
	}

	if p.Alphabet == nil {
		return fmt.Errorf("%w: %s: no alphabet", ErrInvalidProtocol, p.ID)
	}

	if p.CooldownFrames < 1 {
		return fmt.Errorf("%w: %s: cooldown must be at least one frame", ErrInvalidProtocol, p.ID)
	}

	for _, ctl := range []rune{StartToken, StopToken} {
		if _, ok := p.Tones[ctl]; !ok {
			return fmt.Errorf("%w: %s: no tone for %q", ErrInvalidProtocol, p.ID, ctl)
		}
	}

	var seen = make(map[Tone]rune, len(p.Tones))

	for _, token := range p.tokensInOrder() {
		var t = p.Tones[token]

		if t.Representative() <= 0 || t.Representative() >= MAX_TONE_HZ || t.High() >= MAX_TONE_HZ {
			return fmt.Errorf("%w: %s: %q has frequency %s out of range", ErrInvalidProtocol, p.ID, token, t)
		}

		if t.IsDual() && !isDTMFGridTone(t) {
			return fmt.Errorf("%w: %s: %q has %s which is not on the DTMF grid", ErrInvalidProtocol, p.ID, token, t)
		}

		if other, dup := seen[t]; dup {
			if other == StartToken || other == StopToken || token == StartToken || token == StopToken {
				return fmt.Errorf("%w: %s: %q collides with control tone %q at %s", ErrInvalidProtocol, p.ID, token, other, t)
			}

			return fmt.Errorf("%w: %s: %q and %q share %s", ErrInvalidProtocol, p.ID, other, token, t)
		}

		seen[t] = token
	}

	if !p.CustomFraming {
		for _, c := range p.Alphabet.Chars() {
			if _, ok := p.Tones[c]; !ok {
				return fmt.Errorf("%w: %s: no tone for %q", ErrInvalidProtocol, p.ID, c)
			}
		}

		for _, c := range ChecksumCandidates {
			if _, ok := p.Tones[c]; !ok {
				return fmt.Errorf("%w: %s: no tone for checksum character %q", ErrInvalidProtocol, p.ID, c)
			}
		}
	}

	if p.Gain <= 0 || p.Gain > 1 {
		return fmt.Errorf("%w: %s: gain %g outside (0, 1]", ErrInvalidProtocol, p.ID, p.Gain)
	}

	return nil
}

// tokensInOrder puts the framing tokens first so collisions with them are
// reported as such, then everything else in a stable order.
func (p *Protocol) tokensInOrder() []rune {
	var tokens = make([]rune, 0, len(p.Tones))

	for tok := range p.Tones {
		if tok != StartToken && tok != StopToken {
			tokens = append(tokens, tok)
		}
	}

	slices.Sort(tokens)

	return append([]rune{StartToken, StopToken}, tokens...)
}

// fskTones gives alphabet index i the frequency base + i*step.
func fskTones(alphabet *Alphabet, base, step float64) map[rune]Tone {
	var tones = make(map[rune]Tone, alphabet.Len()+2)

	tones[StartToken] = Single(base - 2*step)
	tones[StopToken] = Single(base - step)

	for i, c := range alphabet.Chars() {
		tones[c] = Single(base + float64(i)*step)
	}

	return tones
}

// doubleChars sends every character twice.
func doubleChars(s string) string {
	var sb strings.Builder

	for _, c := range s {
		sb.WriteRune(c)
		sb.WriteRune(c)
	}

	return sb.String()
}

// collapsePairs undoes doubleChars.  A pair that disagrees keeps its first
// character, a trailing unpaired character is kept as is.
func collapsePairs(s string) string {
	var runes = []rune(s)
	var sb strings.Builder

	for i := 0; i < len(runes); i += 2 {
		sb.WriteRune(runes[i])
	}

	return sb.String()
}

func standardProtocol(id, name, description string, tone, pause time.Duration) *Protocol {
	return &Protocol{
		ID:             id,
		Name:           name,
		Description:    description,
		ToneDuration:   tone,
		PauseDuration:  pause,
		Tones:          fskTones(DefaultAlphabet, DEFAULT_BASE_HZ, DEFAULT_STEP_HZ),
		Alphabet:       DefaultAlphabet,
		Gain:           1.0,
		CooldownFrames: DEFAULT_COOLDOWN_FRAMES,
	}
}

// StandardProtocol and friends return fresh copies of the built in protocols.
func StandardProtocol() *Protocol {
	return standardProtocol("standard", "Standard", "Balanced speed and reliability.",
		150*time.Millisecond, 100*time.Millisecond)
}

func FastProtocol() *Protocol {
	var p = standardProtocol("fast", "Fast", "Short tones for a clean channel.",
		80*time.Millisecond, 70*time.Millisecond)
	p.CooldownFrames = 2

	return p
}

func ReliableProtocol() *Protocol {
	var p = standardProtocol("reliable", "Reliable", "Every character is sent twice with long tones.",
		200*time.Millisecond, 120*time.Millisecond)
	p.Transform = doubleChars
	p.Restore = collapsePairs

	return p
}

func QuietProtocol() *Protocol {
	var p = standardProtocol("quiet", "Quiet", "Reduced volume for shared spaces.",
		180*time.Millisecond, 120*time.Millisecond)
	p.Gain = 0.3

	return p
}

func DTMFProtocol() *Protocol {
	var alphabet = DefaultAlphabet

	return &Protocol{
		ID:            "dtmf",
		Name:          "DTMF",
		Description:   "Touch tones, for channels that only pass telephone keypad signals.",
		ToneDuration:  120 * time.Millisecond,
		PauseDuration: 100 * time.Millisecond,
		Tones:         dtmfTones(),
		Alphabet:      alphabet,
		Transform: func(s string) string {
			return string(StartToken) + alphabet.EncodeText(s) + string(StopToken)
		},
		CustomFraming:  true,
		Gain:           1.0,
		CooldownFrames: DEFAULT_COOLDOWN_FRAMES,
	}
}

// CustomConfig describes a user defined FSK table.  Both ends must use
// the same value.
type CustomConfig struct {
	BaseHz   float64   `yaml:"base_hz"`
	StepHz   float64   `yaml:"step_hz"`
	Alphabet *Alphabet `yaml:"-"`
}

// DefaultCustomConfig matches the standard table.
func DefaultCustomConfig() CustomConfig {
	return CustomConfig{BaseHz: DEFAULT_BASE_HZ, StepHz: DEFAULT_STEP_HZ, Alphabet: DefaultAlphabet}
}

func (c CustomConfig) Validate() error {
	if c.StepHz <= 0 {
		return fmt.Errorf("%w: custom step %g Hz must be positive", ErrInvalidProtocol, c.StepHz)
	}

	if c.BaseHz <= 2*c.StepHz {
		return fmt.Errorf("%w: custom base %g Hz must be above twice the step (%g Hz) to leave room for start and stop",
			ErrInvalidProtocol, c.BaseHz, 2*c.StepHz)
	}

	var alphabet = c.Alphabet
	if alphabet == nil {
		alphabet = DefaultAlphabet
	}

	var top = c.BaseHz + float64(alphabet.Len()-1)*c.StepHz
	if top >= MAX_TONE_HZ {
		return fmt.Errorf("%w: custom table reaches %g Hz, limit is %g Hz", ErrInvalidProtocol, top, MAX_TONE_HZ)
	}

	return nil
}

// NewCustomProtocol builds the "custom" protocol from a validated config.
func NewCustomProtocol(cfg CustomConfig) (*Protocol, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Alphabet == nil {
		cfg.Alphabet = DefaultAlphabet
	}

	var p = &Protocol{
		ID:             "custom",
		Name:           "Custom",
		Description:    fmt.Sprintf("FSK from %g Hz in %g Hz steps.", cfg.BaseHz, cfg.StepHz),
		ToneDuration:   150 * time.Millisecond,
		PauseDuration:  100 * time.Millisecond,
		Tones:          fskTones(cfg.Alphabet, cfg.BaseHz, cfg.StepHz),
		Alphabet:       cfg.Alphabet,
		Gain:           1.0,
		CooldownFrames: DEFAULT_COOLDOWN_FRAMES,
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	return p, nil
}

// Registry is a named set of protocols, in registration order.
type Registry struct {
	mu        sync.RWMutex
	protocols map[string]*Protocol
	order     []string
}

func NewRegistry() *Registry {
	return &Registry{protocols: make(map[string]*Protocol)}
}

// DefaultRegistry holds the built in protocols plus "custom" from cfg.
func DefaultRegistry(cfg CustomConfig) (*Registry, error) {
	var r = NewRegistry()

	var custom, err = NewCustomProtocol(cfg)
	if err != nil {
		return nil, err
	}

	for _, p := range []*Protocol{StandardProtocol(), FastProtocol(), ReliableProtocol(), QuietProtocol(), DTMFProtocol(), custom} {
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Register adds or replaces a protocol after validating it.
func (r *Registry) Register(p *Protocol) error {
	if err := p.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.protocols[p.ID]; !exists {
		r.order = append(r.order, p.ID)
	}

	r.protocols[p.ID] = p

	return nil
}

func (r *Registry) Get(id string) (*Protocol, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var p, ok = r.protocols[strings.ToLower(id)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProtocol, id)
	}

	return p, nil
}

// IDs in registration order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.order)
}

// Lookup resolves a list of ids, for the receiver's protocol set.
func (r *Registry) Lookup(ids []string) ([]*Protocol, error) {
	var out = make([]*Protocol, 0, len(ids))

	for _, id := range ids {
		var p, err = r.Get(id)
		if err != nil {
			return nil, err
		}

		out = append(out, p)
	}

	return out, nil
}
