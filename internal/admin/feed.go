// Package admin serves the session debug pages: live status, a JSON status
// endpoint and a server-sent-event tail of scored citations.
package admin

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/banshee-data/citation.report/internal/citation"
	"github.com/banshee-data/citation.report/internal/violation"
)

// subscriberBuffer is the number of lines a slow subscriber may lag by
// before lines are dropped for it.
const subscriberBuffer = 32

// Feed fans scored citations out to live subscribers. Record never blocks.
type Feed struct {
	mu          sync.Mutex
	closed      bool
	subscribers map[string]chan string
}

// NewFeed creates an empty feed.
func NewFeed() *Feed {
	return &Feed{subscribers: make(map[string]chan string)}
}

// Subscribe registers a new subscriber. The channel is closed by
// Unsubscribe or Close.
func (f *Feed) Subscribe() (string, <-chan string) {
	id := uuid.NewString()
	ch := make(chan string, subscriberBuffer)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		close(ch)
		return id, ch
	}
	f.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber.
func (f *Feed) Unsubscribe(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ch, ok := f.subscribers[id]; ok {
		close(ch)
		delete(f.subscribers, id)
	}
}

// Record publishes c to every subscriber with room for it.
func (f *Feed) Record(c violation.Citation) {
	line := Line(c)
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subscribers {
		select {
		case ch <- line:
		default:
		}
	}
}

// Close closes every subscriber channel; later subscribers get a closed
// channel.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	for id, ch := range f.subscribers {
		close(ch)
		delete(f.subscribers, id)
	}
}

// Line formats c the way the violation log does.
func Line(c violation.Citation) string {
	ctx := c.Context
	if ctx == "" {
		ctx = "N/A"
	}
	return fmt.Sprintf("%s | %s | %d | %s", c.Time.Format(citation.TimeLayout), c.Message, c.Points, ctx)
}
