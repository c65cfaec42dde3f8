// Package conn owns the single active receiver connection: resolving a
// port, opening it with the fixed framing, running the one reader
// goroutine, and tearing everything down again.
package conn

import (
	"errors"
	"fmt"
	"sync"

	"xk852-bridge/internal/device"
	"xk852-bridge/internal/logsink"
	"xk852-bridge/internal/registry"
	"xk852-bridge/pkg/logger"
)

// State is the connection lifecycle state.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// Manager holds at most one open port and its reader goroutine. All
// received bytes are decoded as text and forwarded to the log sink.
type Manager struct {
	api      device.API
	registry *registry.Registry
	sink     *logsink.Sink
	cfg      device.OpenConfig

	mu         sync.Mutex
	port       device.Port
	handle     device.Handle
	state      State
	readerDone chan struct{}
	onState    []func(State)
}

func NewManager(api device.API, reg *registry.Registry, sink *logsink.Sink, cfg device.OpenConfig) *Manager {
	return &Manager{
		api:      api,
		registry: reg,
		sink:     sink,
		cfg:      cfg,
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// PortLabel returns the ID of the connected handle, empty when none.
func (m *Manager) PortLabel() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handle == nil {
		return ""
	}
	return m.handle.ID()
}

// OnStateChange registers a callback invoked after every transition.
func (m *Manager) OnStateChange(fn func(State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onState = append(m.onState, fn)
}

// setState records the transition and returns the notification to run
// once the lock is released. Must be called with the lock held.
func (m *Manager) setState(s State) func() {
	m.state = s
	subs := make([]func(State), len(m.onState))
	copy(subs, m.onState)
	return func() {
		for _, fn := range subs {
			fn(s)
		}
	}
}

// Connect resolves a port handle and opens it with the receiver's
// framing. With no selection in the registry the device chooser is
// prompted; a declined chooser aborts silently. Open failures are
// appended to the log sink as "<ERROR: ...>" and the manager returns to
// Disconnected; no error escapes to the caller either way.
func (m *Manager) Connect() {
	m.mu.Lock()
	if m.state != Disconnected {
		m.mu.Unlock()
		logger.Warn("connect ignored, connection is %s", m.state)
		return
	}
	notify := m.setState(Connecting)
	m.mu.Unlock()
	notify()

	handle := m.registry.Selected()
	if handle == nil {
		requested, err := m.api.RequestPort()
		if err != nil {
			// The user declined the chooser or nothing is attached.
			// Matches the original behaviour: no log line, just reset.
			if !errors.Is(err, device.ErrNoPort) {
				logger.Error("port request failed: %v", err)
			}
			m.resetToDisconnected()
			return
		}
		handle = requested
	}
	m.registry.EnsureOption(handle)

	port, err := handle.Open(m.cfg)
	if err != nil {
		m.sink.Append(fmt.Sprintf("<ERROR: %v>", err))
		logger.Error("failed to open %s: %v", handle.ID(), err)
		m.resetToDisconnected()
		return
	}

	m.mu.Lock()
	if m.state != Connecting {
		// A disconnect arrived while the port was being opened. The
		// user's request wins: discard the late open.
		m.mu.Unlock()
		if cerr := port.Close(); cerr != nil {
			logger.Error("close of abandoned port failed: %v", cerr)
		}
		return
	}
	m.port = port
	m.handle = handle
	m.readerDone = make(chan struct{})
	done := m.readerDone
	notify = m.setState(Connected)
	m.mu.Unlock()
	notify()

	logger.Info("connected to %s", handle.ID())
	go m.readLoop(port, done)
}

func (m *Manager) resetToDisconnected() {
	m.mu.Lock()
	notify := m.setState(Disconnected)
	m.mu.Unlock()
	notify()
}

// readLoop pulls chunks into one reusable buffer and forwards them to
// the log sink until the port errors out or is closed underneath it.
func (m *Manager) readLoop(port device.Port, done chan struct{}) {
	defer close(done)

	buf := make([]byte, m.cfg.ReadBufferSize)
	for {
		n, err := port.Read(buf)
		if !m.owns(port) {
			// Torn down underneath us, possibly with a replacement
			// connection already live. Nothing from this loop may
			// reach the sink anymore.
			return
		}
		if err != nil {
			m.finishAfterReadError(port, err)
			return
		}
		if n == 0 {
			continue
		}
		m.sink.Append(string(buf[:n]))
	}
}

// owns reports whether port is still the manager's current port.
// Cancellation is scoped to the connection: once Disconnect (or a
// read failure) has dropped the reference, the old reader is done no
// matter when its pending read unblocks.
func (m *Manager) owns(port device.Port) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.port == port
}

// finishAfterReadError releases the reader and, if the port is still
// set, closes it and forces the state back to Disconnected.
func (m *Manager) finishAfterReadError(port device.Port, readErr error) {
	logger.Error("read failed: %v", readErr)

	m.mu.Lock()
	if m.port != port {
		// Already torn down by Disconnect.
		m.mu.Unlock()
		return
	}
	m.port = nil
	m.handle = nil
	m.readerDone = nil
	notify := m.setState(Disconnected)
	m.mu.Unlock()
	notify()

	if err := port.Close(); err != nil {
		// Close errors never block teardown.
		logger.Error("close after read failure: %v", err)
	}
}

// Disconnect cancels any in-flight read by closing the port, waits for
// the reader goroutine to exit and returns to Disconnected. Calling it
// while already disconnected is a no-op.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	if m.port == nil {
		if m.state != Disconnected {
			notify := m.setState(Disconnected)
			m.mu.Unlock()
			notify()
			return
		}
		m.mu.Unlock()
		return
	}

	port := m.port
	done := m.readerDone
	// The port reference is dropped before Close can fail so a
	// half-closed port is never retried.
	m.port = nil
	m.handle = nil
	m.readerDone = nil
	notify := m.setState(Disconnected)
	m.mu.Unlock()
	notify()

	if err := port.Close(); err != nil {
		logger.Error("close failed: %v", err)
	}
	if done != nil {
		<-done
	}
	logger.Info("disconnected")
}

// Send writes a frame to the open port. With no writable port the frame
// is dropped with a diagnostic log; the caller gets no signal.
func (m *Manager) Send(frame []byte) {
	m.mu.Lock()
	port := m.port
	m.mu.Unlock()

	if port == nil {
		logger.Warn("no writable port, dropping %d bytes", len(frame))
		return
	}

	for written := 0; written < len(frame); {
		n, err := port.Write(frame[written:])
		if err != nil {
			logger.Error("write failed: %v", err)
			return
		}
		if n == 0 {
			logger.Error("write stalled after %d of %d bytes", written, len(frame))
			return
		}
		written += n
	}
}
