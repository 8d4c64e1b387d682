package modem

import (
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// CaptureOutput runs command and returns what it printed on stdout.
func CaptureOutput(t *testing.T, command func()) string {
	t.Helper()

	var oldStdout = os.Stdout
	defer func() {
		os.Stdout = oldStdout
	}()

	var r, w, pipeErr = os.Pipe()
	require.NoError(t, pipeErr)

	os.Stdout = w

	// Drain as we go, the tools can print more than a pipe holds.
	var output = make(chan []byte)
	var readErr error

	go func() {
		var b []byte
		b, readErr = io.ReadAll(r)
		output <- b
	}()

	command()

	w.Close() //nolint:gosec

	os.Stdout = oldStdout

	var outputBytes = <-output

	require.NoError(t, readErr)

	return string(outputBytes)
}

func AssertOutputContains(t *testing.T, command func(), expectedOutputContains string) {
	t.Helper()

	assert.Contains(t, CaptureOutput(t, command), expectedOutputContains)
}
