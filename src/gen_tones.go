package modem

/*------------------------------------------------------------------
 *
 * Purpose:   	Render messages to a .WAV file.
 *
 * Description:	Handy for testing the receiver without a speaker and a
 *		microphone, and for sending through anything that can
 *		play a sound file.
 *
 *		Messages come from the command line (one message), a
 *		file given with -f (one per line), or standard input
 *		(one per line).  Each message starts with the usual
 *		second of silence.
 *
 *---------------------------------------------------------------*/

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"
)

type GenTonesOptions struct {
	Output     string
	Protocol   string
	Volume     float64
	SampleRate int
	Channels   int
	Custom     CustomConfig
}

func GenTonesMain() {
	var output = pflag.StringP("output", "o", "", "Send output to .wav file.")
	var protocol = pflag.StringP("protocol", "P", "standard", "Protocol: standard, fast, reliable, quiet, dtmf or custom.")
	var volume = pflag.Float64P("volume", "v", 0.5, "Volume, 0 to 1.")
	var sampleRate = pflag.IntP("sample-rate", "r", DEFAULT_SAMPLE_RATE, "Audio sample rate.")
	var channels = pflag.IntP("channels", "n", 1, "Number of audio channels, 1 or 2.  Stereo gets the same audio in both.")
	var inputFile = pflag.StringP("file", "f", "", "Read messages from this file, one per line.")
	var baseHz = pflag.Float64("base-hz", DEFAULT_BASE_HZ, "Base frequency for the custom protocol.")
	var stepHz = pflag.Float64("step-hz", DEFAULT_STEP_HZ, "Frequency step for the custom protocol.")
	var help = pflag.Bool("help", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s renders text messages as tones in a .WAV file.\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTION]... -o FILE [MESSAGE]...\n", os.Args[0])
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "With no message and no -f, messages are read from standard input.\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Examples:\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "$ gen_tones -o hello.wav hello world\n")
		fmt.Fprintf(os.Stderr, "$ atest hello.wav\n")
	}

	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(1)
	}

	if *output == "" {
		fmt.Fprintf(os.Stderr, "ERROR: The -o output file option must be specified.\n")
		pflag.Usage()
		os.Exit(1)
	}

	var messages []string
	var err error

	switch {
	case len(pflag.Args()) > 0:
		messages = []string{strings.Join(pflag.Args(), " ")}
	case *inputFile != "":
		var f, openErr = os.Open(*inputFile) //nolint:gosec // We expect to read a user-supplied file from CLI
		if openErr != nil {
			fmt.Fprintf(os.Stderr, "Can't open %s: %s\n", *inputFile, openErr)
			os.Exit(1)
		}

		messages, err = readMessageLines(f)
		f.Close()
	default:
		messages, err = readMessageLines(os.Stdin)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading messages: %s\n", err)
		os.Exit(1)
	}

	var opts = GenTonesOptions{
		Output:     *output,
		Protocol:   *protocol,
		Volume:     *volume,
		SampleRate: *sampleRate,
		Channels:   *channels,
		Custom:     CustomConfig{BaseHz: *baseHz, StepHz: *stepHz, Alphabet: DefaultAlphabet},
	}

	var n, genErr = GenTones(opts, messages)
	if genErr != nil {
		fmt.Fprintf(os.Stderr, "%s\n", genErr)
		os.Exit(1)
	}

	fmt.Printf("Wrote %d message(s) to %s\n", n, *output)
}

func readMessageLines(r io.Reader) ([]string, error) {
	var messages []string
	var scanner = bufio.NewScanner(r)

	for scanner.Scan() {
		var line = strings.TrimSpace(scanner.Text())
		if line != "" {
			messages = append(messages, line)
		}
	}

	return messages, scanner.Err()
}

// GenTones renders the messages one after another into opts.Output and
// returns how many were rendered.  Messages with nothing sendable are
// skipped.
func GenTones(opts GenTonesOptions, messages []string) (int, error) {
	if opts.Channels != 1 && opts.Channels != 2 {
		return 0, fmt.Errorf("channels must be 1 or 2, not %d", opts.Channels)
	}

	var registry, err = DefaultRegistry(opts.Custom)
	if err != nil {
		return 0, err
	}

	var proto *Protocol

	proto, err = registry.Get(opts.Protocol)
	if err != nil {
		return 0, err
	}

	var mono []float64
	var count = 0

	for _, m := range messages {
		var pcm, renderErr = RenderToBuffer(m, opts.Volume, proto, opts.SampleRate)
		if errors.Is(renderErr, ErrNothingToSend) {
			fmt.Printf("Skipping \"%s\": nothing to send.\n", m)
			continue
		}

		if renderErr != nil {
			return count, renderErr
		}

		fmt.Printf("[%d] %s: \"%s\", %.1f seconds\n", count, proto.ID, proto.Alphabet.Filter(m), pcm.Duration())

		mono = append(mono, pcm.Channels[0]...)
		count++
	}

	if count == 0 {
		return 0, ErrNothingToSend
	}

	var out = &PCMBuffer{SampleRate: opts.SampleRate, Channels: make([][]float64, opts.Channels)}
	for c := range out.Channels {
		out.Channels[c] = mono
	}

	var f *os.File

	f, err = os.Create(opts.Output) //nolint:gosec // We expect to write to a user-supplied file from CLI
	if err != nil {
		return 0, fmt.Errorf("couldn't open %s for write: %w", opts.Output, err)
	}

	var w = bufio.NewWriter(f)

	err = WriteWAV(w, out)
	if err == nil {
		err = w.Flush()
	}

	if cerr := f.Close(); err == nil {
		err = cerr
	}

	if err != nil {
		return 0, fmt.Errorf("writing %s: %w", opts.Output, err)
	}

	return count, nil
}
