// Package device abstracts the host serial device API behind a small
// capability interface so the native go.bug.st/serial backend and the
// simulator shim are interchangeable.
package device

import (
	"errors"
	"io"

	"go.bug.st/serial"
)

// ErrNoPort is returned by RequestPort when the host has no device to
// offer, the Go equivalent of the user declining the device chooser.
var ErrNoPort = errors.New("device: no port available")

// OpenConfig is the fixed framing applied when a port is opened. The
// XK852 talks 9600 baud, 7 data bits, even parity, 1 stop bit, no flow
// control. ReadBufferSize is the size of the reader's reusable buffer.
type OpenConfig struct {
	BaudRate       int
	DataBits       int
	Parity         serial.Parity
	StopBits       serial.StopBits
	ReadBufferSize int
}

// DefaultOpenConfig returns the receiver's framing parameters.
func DefaultOpenConfig() OpenConfig {
	return OpenConfig{
		BaudRate:       9600,
		DataBits:       7,
		Parity:         serial.EvenParity,
		StopBits:       serial.OneStopBit,
		ReadBufferSize: 8192,
	}
}

// Handle is an opaque reference to a serial device owned by the host.
// The ID is stable per physical device for the process lifetime.
type Handle interface {
	ID() string
	Label() string
	Open(cfg OpenConfig) (Port, error)
}

// Port is an open serial connection. Close unblocks any in-flight Read.
type Port interface {
	io.ReadWriteCloser
}

// API is the host device surface: enumeration plus the chooser prompt.
type API interface {
	// ListPorts returns all currently attached serial devices.
	ListPorts() ([]Handle, error)
	// RequestPort resolves a single device without a prior selection.
	// Returns ErrNoPort when nothing is attached.
	RequestPort() (Handle, error)
}
