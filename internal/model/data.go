// Package model holds the wire payloads exchanged with the browser
// terminal over the websocket.
package model

import "time"

// PortInfo is one entry of the port-selection list.
type PortInfo struct {
	Label    string `json:"label"`
	ID       string `json:"id"`
	Selected bool   `json:"selected"`
}

// StatusPayload reports the connection lifecycle to the UI.
type StatusPayload struct {
	State string `json:"state"`
	Port  string `json:"port,omitempty"`
}

// LogPayload is one mirrored terminal line.
type LogPayload struct {
	Time time.Time `json:"time"`
	Text string    `json:"text"`
}

// ConnectRequest selects a port by option label before connecting. An
// empty label connects via the chooser.
type ConnectRequest struct {
	Port string `json:"port,omitempty"`
}

// SendRequest carries a raw command string to frame and transmit.
type SendRequest struct {
	Text string `json:"text"`
}

// FrequencyRequest tunes the receiver, value in Hz.
type FrequencyRequest struct {
	Hz float64 `json:"hz"`
}
