package runner

import (
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/widget"

	"xk852-bridge/config"
	"xk852-bridge/internal/bridge"
	"xk852-bridge/internal/conn"
	"xk852-bridge/internal/logsink"
	"xk852-bridge/internal/xk852"
	"xk852-bridge/pkg/logger"
)

type App struct {
	config *config.Config
	bridge *bridge.Manager

	// ui related
	window        fyne.Window
	portSelect    *widget.Select
	connectButton *widget.Button
	pttButton     *widget.Button
	captureButton *widget.Button
	freqInput     *widget.Entry
	logView       *widget.Entry
	statusDisplay *widget.Label

	stopRefresh chan struct{}
}

func NewApp(cfg *config.Config) (*App, error) {
	myApp := app.New()
	myApp.SetIcon(nil)

	window := myApp.NewWindow(cfg.App.WindowTitle)
	window.Resize(fyne.NewSize(640, 480))

	return &App{
		config:      cfg,
		window:      window,
		bridge:      bridge.NewManager(cfg),
		stopRefresh: make(chan struct{}),
	}, nil
}

func (a *App) Run() {
	a.window.SetContent(a.createMainInterface())

	a.bridge.Sink().Subscribe(func(e logsink.Entry) {
		fyne.Do(func() { a.appendLog(e.Text) })
	})
	a.bridge.Conn().OnStateChange(func(s conn.State) {
		fyne.Do(func() { a.showState(s) })
	})

	if err := a.bridge.Start(); err != nil {
		logger.Error("failed to start bridge: %v", err)
	}

	go a.refreshPortsLoop()

	a.window.SetOnClosed(func() {
		close(a.stopRefresh)
		if a.bridge.IsRunning() {
			if err := a.bridge.Stop(); err != nil {
				logger.Error("failed to stop bridge: %v", err)
			}
		}
	})

	a.window.ShowAndRun()
}

// refreshPortsLoop keeps the dropdown in sync with hot-plug changes.
func (a *App) refreshPortsLoop() {
	ticker := time.NewTicker(a.config.Serial.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.stopRefresh:
			return
		case <-ticker.C:
			fyne.Do(a.refreshPorts)
		}
	}
}

func (a *App) refreshPorts() {
	opts := a.bridge.Registry().Options()
	labels := make([]string, 0, len(opts))
	for _, opt := range opts {
		labels = append(labels, opt.Label)
	}
	a.portSelect.Options = labels
	a.portSelect.Refresh()
}

func (a *App) appendLog(text string) {
	a.logView.SetText(a.logView.Text + text)
}

func (a *App) showState(s conn.State) {
	a.statusDisplay.SetText(s.String())
	switch s {
	case conn.Connected:
		a.connectButton.SetText("Disconnect")
	case conn.Disconnected:
		a.connectButton.SetText("Connect")
	case conn.Connecting:
		a.connectButton.SetText("Connecting...")
	}
}

func (a *App) onConnectClick() {
	if a.bridge.Conn().State() == conn.Connected {
		a.bridge.Conn().Disconnect()
		return
	}
	if sel := a.portSelect.Selected; sel != "" {
		a.bridge.Registry().SelectByLabel(sel)
	}
	a.bridge.Conn().Connect()
}

func (a *App) onPortSelected(label string) {
	a.bridge.Registry().SelectByLabel(label)
}

func (a *App) onFrequencySubmit(value string) {
	hz, err := strconv.ParseFloat(value, 64)
	if err != nil {
		logger.Warn("invalid frequency input %q", value)
		return
	}
	a.bridge.Conn().Send(xk852.EncodeFrequency(hz))
	a.bridge.Store().SetFrequency(hz)
}

// onPTTClick toggles the transmit indicator; the colour change is the
// whole point, the rig itself keys via its own front panel.
func (a *App) onPTTClick() {
	active := !a.bridge.Store().Flags().RTCActive
	a.bridge.Store().SetRTCActive(active)
	if active {
		a.pttButton.Importance = widget.DangerImportance
	} else {
		a.pttButton.Importance = widget.MediumImportance
	}
	a.pttButton.Refresh()
}

// onCaptureClick toggles remote capture: the rig is told to hand over
// or release control and the button colour mirrors the flag.
func (a *App) onCaptureClick() {
	visible := !a.bridge.Store().Flags().CaptureVisible
	a.bridge.Store().SetCaptureVisible(visible)

	if visible {
		a.bridge.Conn().Send(xk852.EncodeCommand(xk852.CmdRemoteOn))
		a.captureButton.Importance = widget.HighImportance
	} else {
		a.bridge.Conn().Send(xk852.EncodeCommand(xk852.CmdRemoteOff))
		a.captureButton.Importance = widget.MediumImportance
	}
	a.captureButton.Refresh()
}
