// Package logsink holds the user-facing terminal log: an ordered, bounded
// sequence of text entries mirrored to every subscribed display surface.
package logsink

import (
	"sync"
	"time"
)

// DefaultMaxEntries bounds the in-memory log. Oldest entries are evicted
// once the cap is reached.
const DefaultMaxEntries = 1000

// Entry is a single appended line with its creation timestamp.
type Entry struct {
	Time time.Time `json:"time"`
	Text string    `json:"text"`
}

// Sink collects log entries and fans them out synchronously to observers.
// Safe for concurrent use.
type Sink struct {
	mu          sync.Mutex
	entries     []Entry
	maxEntries  int
	subscribers []func(Entry)
}

func New(maxEntries int) *Sink {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Sink{maxEntries: maxEntries}
}

// Append adds text to the log with the current time and notifies all
// subscribers before returning.
func (s *Sink) Append(text string) {
	s.AppendEntry(Entry{Text: text})
}

// AppendEntry adds a prepared entry. A zero timestamp is defaulted to now.
func (s *Sink) AppendEntry(e Entry) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	s.mu.Lock()
	s.entries = append(s.entries, e)
	if len(s.entries) > s.maxEntries {
		s.entries = s.entries[len(s.entries)-s.maxEntries:]
	}
	subs := make([]func(Entry), len(s.subscribers))
	copy(subs, s.subscribers)
	s.mu.Unlock()

	// Notify outside the lock so a subscriber may append in turn.
	for _, fn := range subs {
		fn(e)
	}
}

// Subscribe registers fn to be called synchronously for every appended
// entry, in append order.
func (s *Sink) Subscribe(fn func(Entry)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// Entries returns a copy of the retained log.
func (s *Sink) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of retained entries.
func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
