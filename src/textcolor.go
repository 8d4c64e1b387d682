package modem

// Logging.  Everything in the package writes through a *log.Logger so the
// host decides where it goes and how loud it is.

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// NewLogger builds the logger used by the tools.
//
// textColor is the -t option: 0 means plain logfmt lines with no
// escape sequences, anything else gives the styled text format, coloured
// when the terminal supports it.
func NewLogger(w io.Writer, level string, textColor int) (*log.Logger, error) {
	var lvl, err = log.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	var formatter = log.TextFormatter
	if textColor == 0 {
		formatter = log.LogfmtFormatter
	}

	var logger = log.NewWithOptions(w, log.Options{
		Level:           lvl,
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.000",
		Formatter:       formatter,
	})

	return logger, nil
}

// MustLogger is NewLogger for command line tools, which give up on a bad
// level.
func MustLogger(level string, textColor int) *log.Logger {
	var logger, err = NewLogger(os.Stderr, level, textColor)
	if err != nil {
		log.Error("Invalid log level", "level", level, "err", err)
		os.Exit(1)
	}

	return logger
}

func orDefaultLogger(l *log.Logger) *log.Logger {
	if l == nil {
		return log.Default()
	}

	return l
}
