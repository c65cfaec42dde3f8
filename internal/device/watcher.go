package device

import (
	"time"
)

// EventType distinguishes hot-plug notifications.
type EventType int

const (
	Attached EventType = iota
	Detached
)

// Event is a single hot-plug notification.
type Event struct {
	Type   EventType
	Handle Handle
}

// Watcher polls the device API and emits Attached/Detached events when
// the set of handles changes between polls.
type Watcher struct {
	api      API
	interval time.Duration
	known    map[string]Handle
	events   chan Event
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func NewWatcher(api API, interval time.Duration) *Watcher {
	return &Watcher{
		api:      api,
		interval: interval,
		known:    make(map[string]Handle),
		events:   make(chan Event, 8),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Events returns the notification channel. It is closed after Stop.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Start begins polling in a background goroutine. The first poll seeds
// the known set and reports every present device as Attached.
func (w *Watcher) Start() {
	go w.run()
}

func (w *Watcher) Stop() {
	close(w.stopCh)
	<-w.doneCh
}

func (w *Watcher) run() {
	defer close(w.doneCh)
	defer close(w.events)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.poll()
	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.poll()
		}
	}
}

func (w *Watcher) poll() {
	handles, err := w.api.ListPorts()
	if err != nil {
		// enumeration hiccups are transient, keep the last snapshot
		return
	}

	current := make(map[string]Handle, len(handles))
	for _, h := range handles {
		current[h.ID()] = h
		if _, ok := w.known[h.ID()]; !ok {
			w.emit(Event{Type: Attached, Handle: h})
		}
	}
	for id, h := range w.known {
		if _, ok := current[id]; !ok {
			w.emit(Event{Type: Detached, Handle: h})
		}
	}
	w.known = current
}

func (w *Watcher) emit(e Event) {
	select {
	case w.events <- e:
	case <-w.stopCh:
	}
}
