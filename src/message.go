package modem

/*------------------------------------------------------------------
 *
 * Purpose:   	Decoded message log.
 *
 * Description:	The receiver appends one entry per completed or abandoned
 *		packet.  Entries are never edited.  The host may clear
 *		the whole log, read a snapshot, or subscribe to new
 *		entries as they arrive.
 *
 *		Subscribers get a buffered channel.  A subscriber that
 *		doesn't keep up misses entries rather than stalling the
 *		receive loop; the entries are still in the log.
 *
 *---------------------------------------------------------------*/

import (
	"sync"
	"time"
)

type MessageStatus int

const (
	StatusSuccess MessageStatus = iota
	StatusError
)

func (s MessageStatus) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

type Message struct {
	Text      string
	Status    MessageStatus
	Timestamp time.Time

	// Protocol the packet was received with.
	Protocol string
}

type MessageLog struct {
	mu      sync.Mutex
	entries []Message
	subs    map[chan Message]struct{}
	dropped int
}

func NewMessageLog() *MessageLog {
	return &MessageLog{subs: make(map[chan Message]struct{})}
}

// Append adds an entry and offers it to every subscriber.
func (l *MessageLog) Append(m Message) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, m)

	for ch := range l.subs {
		select {
		case ch <- m:
		default:
			l.dropped++
		}
	}
}

// Messages returns a copy of the log.
func (l *MessageLog) Messages() []Message {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]Message(nil), l.entries...)
}

func (l *MessageLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.entries)
}

// Clear empties the log.  Subscribers stay subscribed.
func (l *MessageLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = nil
}

// Dropped counts entries a slow subscriber missed.
func (l *MessageLog) Dropped() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.dropped
}

// Subscribe returns a channel of new entries and a function that ends the
// subscription and closes the channel.
func (l *MessageLog) Subscribe(buffer int) (<-chan Message, func()) {
	var ch = make(chan Message, buffer)

	l.mu.Lock()
	l.subs[ch] = struct{}{}
	l.mu.Unlock()

	var once sync.Once

	var cancel = func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.subs, ch)
			l.mu.Unlock()
			close(ch)
		})
	}

	return ch, cancel
}
