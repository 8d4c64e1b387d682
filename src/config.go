package modem

/*------------------------------------------------------------------
 *
 * Purpose:   	Configuration file.
 *
 * Description:	YAML, every key optional, e.g.
 *
 *		audio:
 *		  backend: portaudio
 *		  input_device: "USB Audio"
 *		  sample_rate: 44100
 *		receiver:
 *		  protocols: [standard, dtmf]
 *		  timeout: 5s
 *		transmit:
 *		  protocol: fast
 *		  volume: 0.6
 *		custom:
 *		  base_hz: 800
 *		  step_hz: 40
 *		log:
 *		  level: debug
 *		  dir: /var/log/tonemodem
 *
 *		Anything not given keeps its default.  Command line
 *		options override the file.
 *
 *---------------------------------------------------------------*/

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

const CONFIG_FILE_NAME = "tonemodem.yaml"

// Places to look for the configuration file when none is named, in order.
var search_locations = []string{
	CONFIG_FILE_NAME, // Current working directory
	"/usr/local/etc/" + CONFIG_FILE_NAME,
	"/etc/" + CONFIG_FILE_NAME,
}

type AudioSection struct {
	Backend      string `yaml:"backend"` // portaudio or malgo
	InputDevice  string `yaml:"input_device"`
	OutputDevice string `yaml:"output_device"`
	SampleRate   int    `yaml:"sample_rate"`
	FFTSize      int    `yaml:"fft_size"`
	HopSize      int    `yaml:"hop_size"`
	BufferFrames int    `yaml:"buffer_frames"`
}

type ReceiverSection struct {
	Protocols       []string      `yaml:"protocols"`
	Timeout         time.Duration `yaml:"timeout"`
	ConfirmFrames   int           `yaml:"confirm_frames"`
	NoiseAlpha      float64       `yaml:"noise_alpha"`
	ThresholdOffset float64       `yaml:"threshold_offset"`
	MinThreshold    float64       `yaml:"min_threshold"`
	MaxThreshold    float64       `yaml:"max_threshold"`
	SingleTolerance float64       `yaml:"single_tolerance_hz"`
	DualTolerance   float64       `yaml:"dual_tolerance_hz"`
	StatsInterval   time.Duration `yaml:"stats_interval"`
}

type TransmitSection struct {
	Protocol string  `yaml:"protocol"`
	Volume   float64 `yaml:"volume"`
}

type CustomSection struct {
	BaseHz float64 `yaml:"base_hz"`
	StepHz float64 `yaml:"step_hz"`

	// Characters in wire order.  Empty for the default alphabet.
	Alphabet string `yaml:"alphabet"`
}

type LogSection struct {
	Level           string `yaml:"level"`
	Dir             string `yaml:"dir"`
	File            string `yaml:"file"`
	TimestampFormat string `yaml:"timestamp_format"`
}

type Config struct {
	Audio    AudioSection    `yaml:"audio"`
	Receiver ReceiverSection `yaml:"receiver"`
	Transmit TransmitSection `yaml:"transmit"`
	Custom   CustomSection   `yaml:"custom"`
	Log      LogSection      `yaml:"log"`

	// Where it was read from, empty for built in defaults.
	Source string `yaml:"-"`
}

func DefaultConfig() *Config {
	return &Config{
		Audio: AudioSection{
			Backend:      "portaudio",
			SampleRate:   DEFAULT_SAMPLE_RATE,
			FFTSize:      DEFAULT_FFT_SIZE,
			HopSize:      DEFAULT_HOP_SIZE,
			BufferFrames: DEFAULT_HOP_SIZE,
		},
		Receiver: ReceiverSection{
			Protocols:       []string{"standard", "dtmf"},
			Timeout:         DEFAULT_PACKET_TIMEOUT,
			ConfirmFrames:   DEFAULT_CONFIRM_FRAMES,
			NoiseAlpha:      DEFAULT_NOISE_ALPHA,
			ThresholdOffset: DEFAULT_THRESHOLD_OFFSET,
			MinThreshold:    DEFAULT_MIN_THRESHOLD,
			MaxThreshold:    DEFAULT_MAX_THRESHOLD,
			SingleTolerance: DEFAULT_SINGLE_TOLERANCE_HZ,
			DualTolerance:   DEFAULT_DUAL_TOLERANCE_HZ,
			StatsInterval:   100 * time.Second,
		},
		Transmit: TransmitSection{
			Protocol: "standard",
			Volume:   0.5,
		},
		Custom: CustomSection{
			BaseHz: DEFAULT_BASE_HZ,
			StepHz: DEFAULT_STEP_HZ,
		},
		Log: LogSection{
			Level: "info",
		},
	}
}

// ParseConfig overlays YAML onto the defaults.
func ParseConfig(data []byte) (*Config, error) {
	var c = DefaultConfig()

	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// LoadConfig reads the named file.  With no name, the search locations are
// tried and the defaults used if none exist.
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFile(path)
	}

	for _, location := range search_locations {
		var c, err = loadConfigFile(location)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}

		return c, err
	}

	return DefaultConfig(), nil
}

func loadConfigFile(path string) (*Config, error) {
	var data, err = os.ReadFile(path) //nolint:gosec // We expect to read a user-supplied file from CLI
	if err != nil {
		return nil, err
	}

	var c, parseErr = ParseConfig(data)
	if parseErr != nil {
		return nil, fmt.Errorf("%s: %w", path, parseErr)
	}

	c.Source = path

	return c, nil
}

func (c *Config) Validate() error {
	if !slices.Contains([]string{"portaudio", "malgo"}, c.Audio.Backend) {
		return fmt.Errorf("audio backend %q must be portaudio or malgo", c.Audio.Backend)
	}

	if c.Audio.SampleRate < 8000 || c.Audio.SampleRate > 192000 {
		return fmt.Errorf("sample rate %d outside 8000 .. 192000", c.Audio.SampleRate)
	}

	if c.Audio.FFTSize < 64 || c.Audio.FFTSize&(c.Audio.FFTSize-1) != 0 {
		return fmt.Errorf("fft_size %d must be a power of two, at least 64", c.Audio.FFTSize)
	}

	if c.Audio.HopSize < 1 || c.Audio.HopSize > c.Audio.FFTSize {
		return fmt.Errorf("hop_size %d must be between 1 and fft_size", c.Audio.HopSize)
	}

	if c.Audio.BufferFrames < 1 {
		return fmt.Errorf("buffer_frames %d must be positive", c.Audio.BufferFrames)
	}

	if len(c.Receiver.Protocols) == 0 {
		return errors.New("receiver needs at least one protocol")
	}

	if c.Receiver.Timeout <= 0 {
		return fmt.Errorf("receiver timeout %s must be positive", c.Receiver.Timeout)
	}

	if c.Receiver.ConfirmFrames < 1 {
		return fmt.Errorf("confirm_frames %d must be at least 1", c.Receiver.ConfirmFrames)
	}

	if c.Receiver.NoiseAlpha <= 0 || c.Receiver.NoiseAlpha > 1 {
		return fmt.Errorf("noise_alpha %g outside (0, 1]", c.Receiver.NoiseAlpha)
	}

	if c.Receiver.MinThreshold > c.Receiver.MaxThreshold {
		return fmt.Errorf("min_threshold %g above max_threshold %g", c.Receiver.MinThreshold, c.Receiver.MaxThreshold)
	}

	if c.Receiver.SingleTolerance <= 0 || c.Receiver.DualTolerance <= 0 {
		return errors.New("tolerances must be positive")
	}

	if c.Transmit.Volume < 0 || c.Transmit.Volume > 1 {
		return fmt.Errorf("volume %g outside 0 .. 1", c.Transmit.Volume)
	}

	var registry, err = c.Registry()
	if err != nil {
		return err
	}

	if _, err := registry.Lookup(c.Receiver.Protocols); err != nil {
		return fmt.Errorf("receiver protocols: %w", err)
	}

	if _, err := registry.Get(c.Transmit.Protocol); err != nil {
		return fmt.Errorf("transmit protocol: %w", err)
	}

	return nil
}

// CustomConfig builds the custom protocol settings from the file.
func (c *Config) CustomConfig() (CustomConfig, error) {
	var cc = CustomConfig{BaseHz: c.Custom.BaseHz, StepHz: c.Custom.StepHz, Alphabet: DefaultAlphabet}

	if c.Custom.Alphabet != "" {
		var a, err = NewAlphabet(c.Custom.Alphabet)
		if err != nil {
			return CustomConfig{}, fmt.Errorf("custom alphabet: %w", err)
		}

		cc.Alphabet = a
	}

	return cc, cc.Validate()
}

// Registry builds the protocol registry this configuration describes.
func (c *Config) Registry() (*Registry, error) {
	var cc, err = c.CustomConfig()
	if err != nil {
		return nil, err
	}

	return DefaultRegistry(cc)
}

// ListenerConfig converts the audio and receiver sections.
func (c *Config) ListenerConfig() ListenerConfig {
	var lc = DefaultListenerConfig()

	lc.FFTSize = c.Audio.FFTSize
	lc.HopSize = c.Audio.HopSize
	lc.StatsInterval = c.Receiver.StatsInterval

	lc.Receiver = ReceiverConfig{
		SampleRate:        float64(c.Audio.SampleRate),
		FFTSize:           c.Audio.FFTSize,
		NoiseAlpha:        c.Receiver.NoiseAlpha,
		ThresholdOffset:   c.Receiver.ThresholdOffset,
		MinThreshold:      c.Receiver.MinThreshold,
		MaxThreshold:      c.Receiver.MaxThreshold,
		SingleToleranceHz: c.Receiver.SingleTolerance,
		DualToleranceHz:   c.Receiver.DualTolerance,
		Timeout:           c.Receiver.Timeout,
		ConfirmFrames:     c.Receiver.ConfirmFrames,
	}

	return lc
}

// CaptureOpener picks the capture backend.
func (c *Config) CaptureOpener() DeviceOpener {
	var rate = float64(c.Audio.SampleRate)

	if c.Audio.Backend == "malgo" {
		return func() (CaptureDevice, error) {
			return OpenMalgoCapture(c.Audio.InputDevice, rate)
		}
	}

	return func() (CaptureDevice, error) {
		return OpenPortAudioCapture(c.Audio.InputDevice, rate, c.Audio.BufferFrames)
	}
}
