package device

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// SimAPI is the compatibility shim: an in-memory device API with a
// simulated XK852 behind it, for environments without real hardware.
// Attach and Detach mimic host hot-plug notifications.
type SimAPI struct {
	mu      sync.Mutex
	handles []*SimHandle
}

func NewSimAPI() *SimAPI {
	api := &SimAPI{}
	api.Attach("sim0")
	return api
}

// Attach registers a simulated device under the given id.
func (a *SimAPI) Attach(id string) *SimHandle {
	a.mu.Lock()
	defer a.mu.Unlock()
	h := &SimHandle{id: id}
	a.handles = append(a.handles, h)
	return h
}

// Detach removes the simulated device with the given id, if present.
func (a *SimAPI) Detach(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, h := range a.handles {
		if h.id == id {
			a.handles = append(a.handles[:i], a.handles[i+1:]...)
			return
		}
	}
}

func (a *SimAPI) ListPorts() ([]Handle, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	handles := make([]Handle, len(a.handles))
	for i, h := range a.handles {
		handles[i] = h
	}
	return handles, nil
}

func (a *SimAPI) RequestPort() (Handle, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.handles) == 0 {
		return nil, ErrNoPort
	}
	return a.handles[0], nil
}

// SimHandle is a handle onto the simulated receiver.
type SimHandle struct {
	id string
}

func (h *SimHandle) ID() string    { return h.id }
func (h *SimHandle) Label() string { return "Simulated XK852 (" + h.id + ")" }

func (h *SimHandle) Open(_ OpenConfig) (Port, error) {
	p := &simPort{
		rx:     make(chan []byte, 16),
		closed: make(chan struct{}),
	}
	p.push("XK852 REMOTE READY\r\n")
	return p, nil
}

// simPort mimics the receiver's behaviour: command frames written to it
// produce status lines readable back, interleaved with the idle
// keep-alive the real set emits between reports.
type simPort struct {
	rx      chan []byte
	closed  chan struct{}
	mu      sync.Mutex
	pending []byte
	once    sync.Once
}

func (p *simPort) push(s string) {
	select {
	case p.rx <- []byte(s):
	case <-p.closed:
	default:
		// receiver backlog full, drop like a saturated UART would
	}
}

func (p *simPort) Read(buf []byte) (int, error) {
	select {
	case <-p.closed:
		return 0, io.EOF
	case chunk := <-p.rx:
		n := copy(buf, chunk)
		if n < len(chunk) {
			// re-queue the remainder ahead of subsequent chunks
			rest := make([]byte, len(chunk)-n)
			copy(rest, chunk[n:])
			select {
			case p.rx <- rest:
			default:
			}
		}
		return n, nil
	}
}

func (p *simPort) Write(data []byte) (int, error) {
	select {
	case <-p.closed:
		return 0, io.ErrClosedPipe
	default:
	}

	p.mu.Lock()
	p.pending = append(p.pending, data...)
	frames := splitFrames(&p.pending)
	p.mu.Unlock()

	for _, cmd := range frames {
		p.respond(cmd)
	}
	return len(data), nil
}

func (p *simPort) respond(cmd string) {
	switch {
	case strings.HasPrefix(cmd, "*F"):
		p.push(fmt.Sprintf("\n F%s \r", strings.TrimPrefix(cmd, "*F")))
	case cmd == "*R1":
		p.push("\n R1 \r")
	case cmd == "*R0":
		p.push("\n R0 \r")
	default:
		p.push("\n ?" + cmd + " \r")
	}
	p.push("\n T  ")
}

func (p *simPort) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

// splitFrames extracts complete LF...CR command frames from buf, leaving
// any trailing partial frame in place.
func splitFrames(buf *[]byte) []string {
	var frames []string
	b := *buf
	for {
		start := -1
		for i, c := range b {
			if c == 0x0A {
				start = i
				break
			}
		}
		if start == -1 {
			b = b[:0]
			break
		}
		end := -1
		for i := start + 1; i < len(b); i++ {
			if b[i] == 0x0D {
				end = i
				break
			}
		}
		if end == -1 {
			b = b[start:]
			break
		}
		frames = append(frames, string(b[start+1:end]))
		b = b[end+1:]
	}
	*buf = append((*buf)[:0], b...)
	return frames
}
