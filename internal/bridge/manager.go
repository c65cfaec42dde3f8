// Package bridge assembles the whole service: device backend, port
// registry, connection manager, log sink, state store, and the
// websocket/HTTP surface the browser terminal talks to.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/atomic"

	"xk852-bridge/config"
	"xk852-bridge/internal/conn"
	"xk852-bridge/internal/device"
	"xk852-bridge/internal/logsink"
	"xk852-bridge/internal/model"
	"xk852-bridge/internal/registry"
	"xk852-bridge/internal/socket"
	"xk852-bridge/internal/state"
	"xk852-bridge/internal/xk852"
	"xk852-bridge/pkg/logger"
)

type Manager struct {
	config     *config.Config
	api        device.API
	registry   *registry.Registry
	sink       *logsink.Sink
	store      *state.Store
	conn       *conn.Manager
	watcher    *device.Watcher
	wsServer   *socket.Server
	httpServer *http.Server
	stopChan   chan bool
	isRunning  atomic.Bool
	wg         sync.WaitGroup
	mu         sync.Mutex
}

func NewManager(cfg *config.Config) *Manager {
	var api device.API
	if cfg.Simulator() {
		api = device.NewSimAPI()
	} else {
		api = device.NewNativeAPI()
	}

	reg := registry.New()
	sink := logsink.New(cfg.Serial.MaxLogEntries)
	store := state.New()

	openCfg := device.OpenConfig{
		BaudRate:       cfg.Serial.BaudRate,
		DataBits:       cfg.Serial.DataBits,
		Parity:         cfg.Serial.Parity,
		StopBits:       cfg.Serial.StopBits,
		ReadBufferSize: cfg.Serial.ReadBufferSize,
	}

	m := &Manager{
		config:   cfg,
		api:      api,
		registry: reg,
		sink:     sink,
		store:    store,
		conn:     conn.NewManager(api, reg, sink, openCfg),
		wsServer: socket.NewServer(),
		stopChan: make(chan bool),
	}

	// Every received chunk is mirrored to the terminal and also fed to
	// the rig status slice, which filters duplicates and the idle
	// keep-alive on its own.
	sink.Subscribe(func(e logsink.Entry) {
		m.store.SetStatusMessage(e.Text)
		m.wsServer.BroadcastMessage("log", model.LogPayload{Time: e.Time, Text: e.Text})
	})
	m.conn.OnStateChange(func(s conn.State) {
		m.wsServer.BroadcastMessage("status", model.StatusPayload{
			State: s.String(),
			Port:  m.conn.PortLabel(),
		})
	})
	store.OnRigChange(func(r state.RigStatus) {
		m.wsServer.BroadcastMessage("rig-status", r)
	})

	m.wsServer.SetCommandHandler(m.handleCommand)
	m.wsServer.SetConnectHandler(m.handleNewClient)

	return m
}

// Sink exposes the terminal log, mainly for UIs running in-process.
func (m *Manager) Sink() *logsink.Sink { return m.sink }

// Registry exposes the port option list for in-process UIs.
func (m *Manager) Registry() *registry.Registry { return m.registry }

// Conn exposes the connection manager for in-process UIs.
func (m *Manager) Conn() *conn.Manager { return m.conn }

// Store exposes the session state for in-process UIs.
func (m *Manager) Store() *state.Store { return m.store }

func (m *Manager) createHTTPServer() *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/", m.serveIndex)
	mux.HandleFunc("/ws", m.wsServer.ServeWS)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","connection":%q,"connected_clients":%d}`,
			m.conn.State(), m.wsServer.GetConnectedClientsCount())
	})

	return &http.Server{
		Addr:    m.config.SocketConfig.Port,
		Handler: mux,
	}
}

func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.isRunning.Load() {
		logger.Error("bridge is already running")
		return fmt.Errorf("bridge is already running")
	}

	m.stopChan = make(chan bool)
	m.httpServer = m.createHTTPServer()

	m.wsServer.Start()
	logger.Info("WebSocket server started on %s", m.config.SocketConfig.Port)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		logger.Info("Terminal page: http://localhost%s/", m.config.SocketConfig.Port)
		logger.Info("WebSocket endpoint: ws://localhost%s/ws", m.config.SocketConfig.Port)

		if err := m.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error: %v", err)
		}
	}()

	// Device discovery and auto-connect run off the hot-plug watcher;
	// its first poll reports every already-attached device.
	m.watcher = device.NewWatcher(m.api, m.config.Serial.PollInterval)
	m.watcher.Start()

	m.isRunning.Store(true)
	m.wg.Add(1)
	go m.run()

	logger.Info("bridge started successfully")
	return nil
}

func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.isRunning.Load() {
		logger.Error("bridge is not running")
		return fmt.Errorf("bridge is not running")
	}

	logger.Info("Stopping bridge...")
	m.isRunning.Store(false)

	if m.stopChan != nil {
		close(m.stopChan)
		m.stopChan = nil
	}
	m.watcher.Stop()
	m.conn.Disconnect()

	// Shut the HTTP server down first so its goroutine can join the
	// wait below instead of timing it out.
	if m.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.httpServer.Shutdown(ctx); err != nil {
			logger.Error("HTTP server forced to shutdown: %v", err)
		}
		m.httpServer = nil
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		logger.Error("Timeout waiting for goroutines to stop")
	}

	m.wsServer.Stop()

	logger.Info("bridge stopped")
	return nil
}

func (m *Manager) IsRunning() bool {
	return m.isRunning.Load()
}

// run consumes hot-plug events until the bridge is stopped.
func (m *Manager) run() {
	defer m.wg.Done()

	stop := m.stopChan
	for {
		select {
		case <-stop:
			return

		case ev, ok := <-m.watcher.Events():
			if !ok {
				return
			}
			m.handleHotplug(ev)
		}
	}
}

// handleHotplug applies the device add/remove policy: newcomers are
// registered and, while disconnected, trigger an auto-connect attempt;
// a removed device only loses its option entry, an active connection is
// never torn down by the event alone.
func (m *Manager) handleHotplug(ev device.Event) {
	switch ev.Type {
	case device.Attached:
		logger.Info("device attached: %s", ev.Handle.ID())
		m.registry.EnsureOption(ev.Handle)
		if m.registry.Selected() == nil {
			m.registry.Select(ev.Handle)
		}
		if m.conn.State() == conn.Disconnected {
			m.conn.Connect()
		}

	case device.Detached:
		logger.Info("device detached: %s", ev.Handle.ID())
		m.registry.RemoveOption(ev.Handle)
	}

	m.wsServer.BroadcastMessage("ports", m.portList())
}

func (m *Manager) portList() []model.PortInfo {
	selected := m.registry.Selected()
	opts := m.registry.Options()
	list := make([]model.PortInfo, 0, len(opts))
	for _, opt := range opts {
		list = append(list, model.PortInfo{
			Label:    opt.Label,
			ID:       opt.Handle.ID(),
			Selected: selected != nil && selected.ID() == opt.Handle.ID(),
		})
	}
	return list
}

// handleNewClient replays the current state to a freshly connected
// terminal: port list, connection status, and the retained log.
func (m *Manager) handleNewClient(c *socket.Client) {
	c.SendMessage("ports", m.portList())
	c.SendMessage("status", model.StatusPayload{
		State: m.conn.State().String(),
		Port:  m.conn.PortLabel(),
	})

	entries := m.sink.Entries()
	backlog := make([]model.LogPayload, 0, len(entries))
	for _, e := range entries {
		backlog = append(backlog, model.LogPayload{Time: e.Time, Text: e.Text})
	}
	c.SendMessage("backlog", backlog)
	c.SendMessage("rig-status", m.store.RigStatus())
}

// handleCommand dispatches inbound terminal commands.
func (m *Manager) handleCommand(c *socket.Client, msg socket.Message) {
	switch msg.Type {
	case "list-ports":
		c.SendMessage("ports", m.portList())

	case "connect":
		var req model.ConnectRequest
		if err := decodePayload(msg.Payload, &req); err != nil {
			logger.Error("bad connect payload: %v", err)
			return
		}
		if req.Port != "" {
			m.registry.SelectByLabel(req.Port)
		}
		m.conn.Connect()

	case "disconnect":
		m.conn.Disconnect()

	case "send":
		var req model.SendRequest
		if err := decodePayload(msg.Payload, &req); err != nil {
			logger.Error("bad send payload: %v", err)
			return
		}
		m.conn.Send(xk852.EncodeCommand(req.Text))

	case "set-frequency":
		var req model.FrequencyRequest
		if err := decodePayload(msg.Payload, &req); err != nil {
			logger.Error("bad frequency payload: %v", err)
			return
		}
		m.conn.Send(xk852.EncodeFrequency(req.Hz))
		m.store.SetFrequency(req.Hz)

	default:
		logger.Warn("unknown command type '%s'", msg.Type)
	}
}

// decodePayload converts the envelope's free-form payload into a typed
// request via a JSON round trip.
func decodePayload(payload interface{}, v interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
