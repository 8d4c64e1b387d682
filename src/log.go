package modem

/*------------------------------------------------------------------
 *
 * Purpose:	Save received messages to a log file.
 *
 * Description: One CSV line per message, for easy reading and later
 *		processing.
 *
 *		There are two alternatives here.
 *
 *		-L logfile		Specify full file path.
 *
 *		-l logdir		Daily names will be created here.
 *
 *		Use one or the other but not both.
 *
 *------------------------------------------------------------------*/

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lestrrat-go/strftime"
)

const messageLogHeader = "utime,isotime,protocol,status,text\n"

type MessageFileLog struct {
	dailyNames bool
	path       string
	fp         *os.File
	openFname  string
	logger     *log.Logger
}

/*------------------------------------------------------------------
 *
 * Function:	NewMessageFileLog
 *
 * Inputs:	dailyNames	- True if daily names should be generated.
 *				  In this case path is a directory.
 *				  When false, path would be the file name.
 *
 *		path		- Log file name or just directory.
 *				  Use "." for current directory.
 *				  Empty string disables feature.
 *
 * Description:	The file is kept open.  We don't open/close for every
 *		new item.
 *
 *------------------------------------------------------------------*/

func NewMessageFileLog(dailyNames bool, path string, logger *log.Logger) *MessageFileLog {
	var l = &MessageFileLog{dailyNames: dailyNames, logger: orDefaultLogger(logger)}

	if len(path) == 0 {
		return l
	}

	if !dailyNames {
		l.logger.Infof("Log file is \"%s\"", path)
		l.path = path

		return l
	}

	var stat, statErr = os.Stat(path)
	if statErr == nil {
		if stat.IsDir() {
			l.path = path
		} else {
			l.logger.Errorf("Log file location \"%s\" is not a directory.  Using current working directory \".\" instead.", path)
			l.path = "."
		}

		return l
	}

	if err := os.Mkdir(path, 0o755); err != nil { //nolint:gosec
		l.logger.Errorf("Failed to create log file location \"%s\": %s.  Using current working directory \".\" instead.", path, err)
		l.path = "."

		return l
	}

	l.logger.Infof("Log file location \"%s\" has been created.", path)
	l.path = path

	return l
}

func (l *MessageFileLog) Enabled() bool {
	return len(l.path) > 0
}

// Write saves one message.  Problems are logged, not returned; losing the
// log file shouldn't stop reception.
func (l *MessageFileLog) Write(m Message) {
	if !l.Enabled() {
		return
	}

	var now = m.Timestamp.UTC()
	if m.Timestamp.IsZero() {
		now = time.Now().UTC()
	}

	if err := l.open(now); err != nil {
		l.logger.Errorf("Can't open log file: %s", err)
		return
	}

	var w = csv.NewWriter(l.fp)

	var writeErr = w.Write([]string{
		strconv.FormatInt(now.Unix(), 10),
		now.Format("2006-01-02T15:04:05Z"),
		m.Protocol,
		m.Status.String(),
		m.Text,
	})
	if writeErr == nil {
		w.Flush()
		writeErr = w.Error()
	}

	if writeErr != nil {
		l.logger.Errorf("Error writing log file: %s", writeErr)
	}
}

func (l *MessageFileLog) open(now time.Time) error {
	var fullPath = l.path

	if l.dailyNames {
		var fname = now.Format("2006-01-02.log")

		if l.fp != nil && fname != l.openFname {
			l.Close()
		}

		if l.fp != nil {
			return nil
		}

		l.logger.Infof("Opening log file \"%s\".", fname)
		fullPath = filepath.Join(l.path, fname)
		l.openFname = fname
	} else if l.fp != nil {
		return nil
	}

	var _, statErr = os.Stat(fullPath)
	var alreadyThere = statErr == nil

	var f, err = os.OpenFile(fullPath, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0o644) //nolint:gosec
	if err != nil {
		l.openFname = ""
		return err
	}

	l.fp = f

	if !alreadyThere {
		if _, err := fmt.Fprint(l.fp, messageLogHeader); err != nil {
			return err
		}
	}

	return nil
}

func (l *MessageFileLog) Close() {
	if l.fp != nil {
		_ = l.fp.Close()
		l.fp = nil
		l.openFname = ""
	}
}

// FormatMessage is the line printed for a received message.  timestampFormat
// is strftime style and may be empty for no timestamp.
func FormatMessage(m Message, timestampFormat string) string {
	var prefix = ""

	if timestampFormat != "" {
		var formatted, err = strftime.Format(timestampFormat, m.Timestamp)
		if err == nil {
			prefix = formatted + " "
		}
	}

	var mark = "OK "
	if m.Status == StatusError {
		mark = "ERR"
	}

	if m.Protocol == "" {
		return fmt.Sprintf("%s%s %s", prefix, mark, m.Text)
	}

	return fmt.Sprintf("%s%s [%s] %s", prefix, mark, m.Protocol, m.Text)
}
