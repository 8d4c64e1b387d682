package modem

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_MessageLog_Snapshot(t *testing.T) {
	var l = NewMessageLog()

	l.Append(Message{Text: "one"})
	l.Append(Message{Text: "two", Status: StatusError})

	var snap = l.Messages()
	require.Len(t, snap, 2)
	assert.Equal(t, "one", snap[0].Text)
	assert.Equal(t, StatusError, snap[1].Status)

	snap[0].Text = "changed"
	assert.Equal(t, "one", l.Messages()[0].Text, "snapshot is a copy")

	l.Clear()
	assert.Equal(t, 0, l.Len())
	assert.Len(t, snap, 2, "old snapshot unaffected")
}

func Test_MessageLog_Subscribe(t *testing.T) {
	var l = NewMessageLog()

	var ch, cancel = l.Subscribe(1)

	l.Append(Message{Text: "a"})
	l.Append(Message{Text: "b"}) // No room, dropped for this subscriber.

	assert.Equal(t, "a", (<-ch).Text)
	assert.Equal(t, 1, l.Dropped())
	assert.Equal(t, 2, l.Len(), "the log itself keeps everything")

	cancel()
	cancel()

	var _, open = <-ch
	assert.False(t, open)

	l.Append(Message{Text: "c"})
	assert.Equal(t, 1, l.Dropped(), "no subscribers, nothing dropped")
}

func Test_MessageLog_Concurrent(t *testing.T) {
	var l = NewMessageLog()
	var wg sync.WaitGroup

	for range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for range 100 {
				l.Append(Message{Text: "x"})
				_ = l.Messages()
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 800, l.Len())
}

func Test_MessageStatus_String(t *testing.T) {
	assert.Equal(t, "success", StatusSuccess.String())
	assert.Equal(t, "error", StatusError.String())
}
