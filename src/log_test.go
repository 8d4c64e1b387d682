package modem

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_MessageFileLog_Disabled(t *testing.T) {
	var l = NewMessageFileLog(false, "", nil)

	assert.False(t, l.Enabled())
	l.Write(Message{Text: "ignored"})
	l.Close()
}

func Test_MessageFileLog_Single_File(t *testing.T) {
	var path = filepath.Join(t.TempDir(), "rx.log")
	var l = NewMessageFileLog(false, path, nil)

	require.True(t, l.Enabled())

	l.Write(Message{Text: "привет, мир", Status: StatusSuccess, Timestamp: t0, Protocol: "standard"})
	l.Write(Message{Text: "[timeout: 12]", Status: StatusError, Timestamp: t0.Add(time.Second), Protocol: "dtmf"})
	l.Close()

	var data, err = os.ReadFile(path) //nolint:gosec
	require.NoError(t, err)

	var lines = strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)

	assert.Equal(t, strings.TrimSpace(messageLogHeader), lines[0])
	assert.Equal(t, `1709294400,2024-03-01T12:00:00Z,standard,success,"привет, мир"`, lines[1])
	assert.Equal(t, `1709294401,2024-03-01T12:00:01Z,dtmf,error,[timeout: 12]`, lines[2])

	// Appending to an existing file doesn't repeat the header.
	l = NewMessageFileLog(false, path, nil)
	l.Write(Message{Text: "again", Timestamp: t0})
	l.Close()

	data, _ = os.ReadFile(path) //nolint:gosec
	assert.Equal(t, 1, strings.Count(string(data), "utime,"))
}

func Test_MessageFileLog_Daily(t *testing.T) {
	var dir = filepath.Join(t.TempDir(), "logs")
	var l = NewMessageFileLog(true, dir, nil)

	l.Write(Message{Text: "one", Timestamp: t0})
	l.Write(Message{Text: "two", Timestamp: t0.Add(24 * time.Hour)})
	l.Close()

	assert.FileExists(t, filepath.Join(dir, "2024-03-01.log"))
	assert.FileExists(t, filepath.Join(dir, "2024-03-02.log"))
}

func Test_FormatMessage(t *testing.T) {
	var m = Message{Text: "тест", Status: StatusSuccess, Timestamp: t0, Protocol: "dtmf"}

	assert.Equal(t, "OK  [dtmf] тест", FormatMessage(m, ""))
	assert.Equal(t, "12:00:00 OK  [dtmf] тест", FormatMessage(m, "%H:%M:%S"))

	m.Status = StatusError
	m.Protocol = ""
	assert.Equal(t, "ERR тест", FormatMessage(m, ""))
}
