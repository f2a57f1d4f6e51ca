package notify

import (
	"time"
)

// Sink receives user-facing notifications. Calls are fire-and-forget.
type Sink interface {
	Notify(message string)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(message string)

func (f SinkFunc) Notify(message string) { f(message) }

// Discard drops every notification.
var Discard Sink = SinkFunc(func(string) {})

// Fanout delivers each notification to every sink in order.
type Fanout []Sink

func (f Fanout) Notify(message string) {
	for _, s := range f {
		if s != nil {
			s.Notify(message)
		}
	}
}

// Entry is one notification with the time it stops being shown.
type Entry struct {
	Message   string    `json:"message"`
	PostedAt  time.Time `json:"posted_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Feed keeps notifications until they auto-dismiss.
// Like the rest of the session it is not safe for concurrent use.
type Feed struct {
	ttl     time.Duration
	now     func() time.Time
	entries []Entry
	history []Entry
	limit   int
}

// NewFeed creates a feed whose entries expire after ttl.
func NewFeed(ttl time.Duration) *Feed {
	return &Feed{
		ttl:   ttl,
		now:   time.Now,
		limit: 50,
	}
}

// WithClock replaces the time source.
// Returns the Feed for method chaining
func (f *Feed) WithClock(now func() time.Time) *Feed {
	f.now = now
	return f
}

// Notify posts a message.
func (f *Feed) Notify(message string) {
	t := f.now()
	e := Entry{Message: message, PostedAt: t, ExpiresAt: t.Add(f.ttl)}
	f.entries = append(f.entries, e)
	f.history = append(f.history, e)
	if len(f.history) > f.limit {
		f.history = f.history[len(f.history)-f.limit:]
	}
}

// Active prunes expired entries and returns those still showing, oldest first.
func (f *Feed) Active() []Entry {
	t := f.now()
	kept := f.entries[:0]
	for _, e := range f.entries {
		if t.Before(e.ExpiresAt) {
			kept = append(kept, e)
		}
	}
	f.entries = kept
	return append([]Entry(nil), kept...)
}

// History returns the most recent notifications, expired or not.
func (f *Feed) History() []Entry {
	return append([]Entry(nil), f.history...)
}

// Clear drops every entry.
func (f *Feed) Clear() {
	f.entries = nil
	f.history = nil
}
