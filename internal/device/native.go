package device

import (
	"fmt"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// NativeAPI backs the device interface with go.bug.st/serial.
type NativeAPI struct{}

func NewNativeAPI() *NativeAPI {
	return &NativeAPI{}
}

func (a *NativeAPI) ListPorts() ([]Handle, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate ports: %w", err)
	}

	handles := make([]Handle, 0, len(details))
	for _, d := range details {
		label := d.Name
		if d.IsUSB && d.Product != "" {
			label = fmt.Sprintf("%s (%s)", d.Name, d.Product)
		}
		handles = append(handles, &nativeHandle{name: d.Name, label: label})
	}
	return handles, nil
}

func (a *NativeAPI) RequestPort() (Handle, error) {
	handles, err := a.ListPorts()
	if err != nil {
		return nil, err
	}
	if len(handles) == 0 {
		return nil, ErrNoPort
	}
	// Headless stand-in for the host chooser: offer the first device.
	return handles[0], nil
}

type nativeHandle struct {
	name  string
	label string
}

func (h *nativeHandle) ID() string    { return h.name }
func (h *nativeHandle) Label() string { return h.label }

func (h *nativeHandle) Open(cfg OpenConfig) (Port, error) {
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: cfg.DataBits,
		Parity:   cfg.Parity,
		StopBits: cfg.StopBits,
	}

	port, err := serial.Open(h.name, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}

	// Drop any stale bytes buffered by the OS before the first read.
	_ = port.ResetInputBuffer()

	return port, nil
}
