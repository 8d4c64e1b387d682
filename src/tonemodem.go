package modem

/*------------------------------------------------------------------
 *
 * Purpose:   	Main program for the tone modem.
 *
 * Description:	Two modes.
 *
 *		Receive (the default): listen on a sound input, or
 *		replay a .WAV file in real time with -i, and print
 *		each message as it is decoded.  Runs until interrupted
 *		or the file ends.
 *
 *		Send: with -s, play one message through the sound
 *		output and exit.
 *
 *		Settings come from the configuration file, then the
 *		command line options override them.
 *
 *---------------------------------------------------------------*/

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
	"golang.org/x/sys/unix"
)

func TonemodemMain() {
	var configFileName = pflag.StringP("config-file", "c", "", "Configuration file name.  Default is to look for "+CONFIG_FILE_NAME+" in the usual places.")
	var backend = pflag.StringP("backend", "b", "", "Capture backend, portaudio or malgo.")
	var inputDevice = pflag.StringP("input-device", "I", "", "Sound input device, by number or start of name.")
	var outputDevice = pflag.StringP("output-device", "O", "", "Sound output device, by number or start of name.")
	var sampleRate = pflag.IntP("sample-rate", "r", 0, "Audio sample rate, per sec.")
	var protocols = pflag.StringSliceP("protocols", "P", nil, "Protocols to listen for, in order of preference.")
	var send = pflag.StringP("send", "s", "", "Send this message and exit.")
	var protocol = pflag.StringP("protocol", "p", "", "Protocol for sending.")
	var volume = pflag.Float64P("volume", "v", 0, "Volume for sending, 0 to 1.")
	var inputFile = pflag.StringP("input", "i", "", "Replay this .WAV file in real time instead of listening.")
	var audioStatsInterval = pflag.DurationP("audio-stats-interval", "a", 0, "Audio statistics interval.  0 to disable.")
	var logDir = pflag.StringP("log-dir", "l", "", "Directory name for log files.")
	var logFile = pflag.StringP("log-file", "L", "", "File name for logging.")
	var timestampFormat = pflag.StringP("timestamp-format", "T", "", "Precede received messages with 'strftime' format time stamp.")
	var textColor = pflag.IntP("text-color", "t", 1, "Text colors.  0=disabled. 1=default.")
	var logLevel = pflag.String("log-level", "", "Log level: debug, info, warn or error.")
	var listDevices = pflag.Bool("list-devices", false, "List sound devices and exit.")
	var version = pflag.Bool("version", false, "Print version and exit.")
	var help = pflag.BoolP("help", "h", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s sends and receives short text messages as audible tones.\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTION]...\n", os.Args[0])
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Examples:\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "$ tonemodem -P standard,dtmf -T '%%H:%%M:%%S'\n")
		fmt.Fprintf(os.Stderr, "$ tonemodem -p fast -s 'hello world'\n")
	}

	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(1)
	}

	if *version {
		printVersion(*logLevel == "debug")
		os.Exit(0)
	}

	if *listDevices {
		var devices, err = ListDevices()
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s\n", err)
			os.Exit(1)
		}

		for _, d := range devices {
			fmt.Printf("%s\n", d)
		}

		os.Exit(0)
	}

	var cfg, err = LoadConfig(*configFileName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}

	// Command line overrides the file.
	var changed = pflag.CommandLine.Changed

	if changed("backend") {
		cfg.Audio.Backend = *backend
	}

	if changed("input-device") {
		cfg.Audio.InputDevice = *inputDevice
	}

	if changed("output-device") {
		cfg.Audio.OutputDevice = *outputDevice
	}

	if changed("sample-rate") {
		cfg.Audio.SampleRate = *sampleRate
	}

	if changed("protocols") {
		cfg.Receiver.Protocols = *protocols
	}

	if changed("protocol") {
		cfg.Transmit.Protocol = *protocol
	}

	if changed("volume") {
		cfg.Transmit.Volume = *volume
	}

	if changed("audio-stats-interval") {
		cfg.Receiver.StatsInterval = *audioStatsInterval
	}

	if changed("log-dir") {
		cfg.Log.Dir = *logDir
	}

	if changed("log-file") {
		cfg.Log.File = *logFile
	}

	if changed("timestamp-format") {
		cfg.Log.TimestampFormat = *timestampFormat
	}

	if changed("log-level") {
		cfg.Log.Level = *logLevel
	}

	if cfg.Log.Dir != "" && cfg.Log.File != "" {
		fmt.Fprintf(os.Stderr, "Use log directory or log file name, not both.\n")
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}

	var logger = MustLogger(cfg.Log.Level, *textColor)

	if cfg.Source != "" {
		logger.Infof("Configuration from \"%s\"", cfg.Source)
	}

	var ctx, stop = signal.NotifyContext(context.Background(), unix.SIGINT, unix.SIGTERM)
	defer stop()

	if changed("send") {
		err = sendMessage(ctx, cfg, *send, logger)
	} else {
		err = receiveMessages(ctx, cfg, *inputFile, logger)
	}

	if err != nil && ctx.Err() == nil {
		logger.Error("Exiting", "err", err)
		stop()
		os.Exit(1) //nolint:gocritic // stop() already called
	}
}

func sendMessage(ctx context.Context, cfg *Config, message string, logger *log.Logger) error {
	var registry, err = cfg.Registry()
	if err != nil {
		return err
	}

	var proto *Protocol

	proto, err = registry.Get(cfg.Transmit.Protocol)
	if err != nil {
		return err
	}

	var out *PortAudioOutput

	out, err = OpenPortAudioOutput(cfg.Audio.OutputDevice, float64(cfg.Audio.SampleRate), cfg.Audio.BufferFrames)
	if err != nil {
		return err
	}
	defer out.Close()

	logger.Infof("Sending on %s, about %s", out.Name(), PacketDuration(len(proto.Packet(message)), proto))

	var tx = NewTransmitter(out, logger)

	return tx.Transmit(ctx, message, cfg.Transmit.Volume, proto, func(ev ProgressEvent) {
		if ev.Done {
			logger.Debug("Done")
			return
		}

		logger.Debugf("%d/%d  %c  %.0f Hz", ev.Index+1, ev.Total, ev.Token, ev.Frequency)
	})
}

func receiveMessages(ctx context.Context, cfg *Config, inputFile string, logger *log.Logger) error {
	var registry, err = cfg.Registry()
	if err != nil {
		return err
	}

	var protocols []*Protocol

	protocols, err = registry.Lookup(cfg.Receiver.Protocols)
	if err != nil {
		return err
	}

	var messages = NewMessageLog()

	var fileLog *MessageFileLog
	if cfg.Log.Dir != "" {
		fileLog = NewMessageFileLog(true, cfg.Log.Dir, logger)
	} else {
		fileLog = NewMessageFileLog(false, cfg.Log.File, logger)
	}
	defer fileLog.Close()

	var received, unsubscribe = messages.Subscribe(16)

	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()

		for m := range received {
			fmt.Printf("%s\n", FormatMessage(m, cfg.Log.TimestampFormat))
			fileLog.Write(m)
		}
	}()

	var open = cfg.CaptureOpener()
	if inputFile != "" {
		open = func() (CaptureDevice, error) {
			return OpenFileCapture(inputFile, true)
		}
	}

	var listener = NewListener(cfg.ListenerConfig(), protocols, messages, logger)

	err = listener.Start(ctx, open)
	if err == nil {
		err = listener.Wait()
	}

	unsubscribe()
	wg.Wait()

	if n := messages.Dropped(); n > 0 {
		logger.Warnf("%d messages were not printed, output too slow", n)
	}

	return err
}
