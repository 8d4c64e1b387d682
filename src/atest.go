package modem

/*-------------------------------------------------------------------
 *
 * Purpose:     Test fixture for the receiver.
 *
 * Description:	Decode tone messages from .WAV files rather than a live
 *		microphone.  The file goes through exactly the same
 *		listener, analyser and receiver as live audio, only
 *		faster than real time.
 *
 *		Use gen_tones to make test files, or record real
 *		transmissions with any sound recorder.
 *
 *--------------------------------------------------------------------*/

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
)

type AtestOptions struct {
	Protocols       []string
	ConfirmFrames   int
	Timeout         time.Duration
	TimestampFormat string
	LogLevel        string
	Custom          CustomConfig

	// Show every detected token as it happens.
	Verbose bool
}

type AtestResult struct {
	Success int
	Errors  int
	Seconds float64
}

func AtestMain() {
	var protocols = pflag.StringSliceP("protocols", "P", []string{"standard", "dtmf"}, "Protocols to listen for, in order of preference.")
	var confirmFrames = pflag.IntP("confirm-frames", "C", DEFAULT_CONFIRM_FRAMES, "Frames a tone must be held before it counts.")
	var timeout = pflag.DurationP("timeout", "t", DEFAULT_PACKET_TIMEOUT, "Give up on a packet after this long without a token.")
	var timestampFormat = pflag.StringP("timestamp-format", "T", "", "Precede received messages with 'strftime' format time stamp.")
	var errorIfLessThan = pflag.IntP("error-if-less-than", "L", -1, "Error if less than this number decoded.")
	var errorIfGreaterThan = pflag.IntP("error-if-greater-than", "G", -1, "Error if greater than this number decoded.")
	var logLevel = pflag.String("log-level", "warn", "Log level: debug, info, warn or error.")
	var verbose = pflag.BoolP("verbose", "d", false, "Show each token as it is detected.")
	var baseHz = pflag.Float64("base-hz", DEFAULT_BASE_HZ, "Base frequency for the custom protocol.")
	var stepHz = pflag.Float64("step-hz", DEFAULT_STEP_HZ, "Frequency step for the custom protocol.")
	var help = pflag.Bool("help", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s is a test application which decodes tone messages from an audio file.\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTION]... FILE...\n", os.Args[0])
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Examples:\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "$ gen_tones -o test.wav -P dtmf hello\n")
		fmt.Fprintf(os.Stderr, "$ atest -P dtmf test.wav\n")
	}

	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(1)
	}

	if len(pflag.Args()) == 0 {
		fmt.Printf("Specify .WAV file name on command line.\n\n")
		pflag.Usage()
		os.Exit(1)
	}

	var opts = AtestOptions{
		Protocols:       *protocols,
		ConfirmFrames:   *confirmFrames,
		Timeout:         *timeout,
		TimestampFormat: *timestampFormat,
		LogLevel:        *logLevel,
		Custom:          CustomConfig{BaseHz: *baseHz, StepHz: *stepHz, Alphabet: DefaultAlphabet},
		Verbose:         *verbose,
	}

	var start = time.Now()

	var result, err = Atest(opts, pflag.Args())
	if err != nil {
		fmt.Printf("%s\n", err)
		os.Exit(1)
	}

	var elapsed = time.Since(start)
	var total = result.Success + result.Errors

	fmt.Printf("%d messages decoded (%d good, %d bad) in %.3f seconds.  %.1f x realtime\n",
		total, result.Success, result.Errors, elapsed.Seconds(), result.Seconds/elapsed.Seconds())

	if *errorIfLessThan != -1 && result.Success < *errorIfLessThan {
		fmt.Printf("\n * * * TEST FAILED: number decoded is less than %d * * * \n", *errorIfLessThan)
		os.Exit(1)
	}

	if *errorIfGreaterThan != -1 && result.Success > *errorIfGreaterThan {
		fmt.Printf("\n * * * TEST FAILED: number decoded is greater than %d * * * \n", *errorIfGreaterThan)
		os.Exit(1)
	}
}

// Atest decodes each file in turn and prints the messages found.
func Atest(opts AtestOptions, files []string) (AtestResult, error) {
	var result AtestResult

	var logger, err = NewLogger(os.Stderr, opts.LogLevel, 0)
	if err != nil {
		return result, err
	}

	var registry *Registry

	registry, err = DefaultRegistry(opts.Custom)
	if err != nil {
		return result, err
	}

	var protocols []*Protocol

	protocols, err = registry.Lookup(opts.Protocols)
	if err != nil {
		return result, err
	}

	var cfg = DefaultListenerConfig()
	cfg.Receiver.ConfirmFrames = opts.ConfirmFrames
	cfg.Receiver.Timeout = opts.Timeout

	if opts.Verbose {
		cfg.OnFrame = func(r FrameResult) {
			if r.Detected {
				fmt.Printf("  %c  %s  %.1f Hz  peak %.0f, threshold %.0f, %s\n",
					r.Detection.Token, r.Detection.Protocol.ID, r.Detection.Frequency, r.Peak, r.Threshold, r.Quality)
			}
		}
	}

	for _, fname := range files {
		var capture, openErr = OpenFileCapture(fname, false)
		if openErr != nil {
			fmt.Printf("Couldn't open file for read: %s\n", openErr)
			continue
		}

		fmt.Printf("%d samples per second.  Duration = %.1f seconds.\n", int(capture.SampleRate()), capture.Duration())
		result.Seconds += capture.Duration()

		var messages = NewMessageLog()
		var listener = NewListener(cfg, protocols, messages, logger)

		err = listener.Start(context.Background(), func() (CaptureDevice, error) { return capture, nil })
		if err != nil {
			return result, err
		}

		if err = listener.Wait(); err != nil {
			return result, fmt.Errorf("%s: %w", fname, err)
		}

		var good = 0

		for _, m := range messages.Messages() {
			fmt.Printf("%s\n", FormatMessage(m, opts.TimestampFormat))

			if m.Status == StatusSuccess {
				good++
				result.Success++
			} else {
				result.Errors++
			}
		}

		fmt.Printf("%d from %s\n", good, fname)
	}

	return result, nil
}
