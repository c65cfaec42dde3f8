// Package xk852 implements the line-oriented command protocol spoken by
// Telefunken XK852 series receivers. Outbound frames are a linefeed,
// the ASCII command text, and a terminating carriage return.
package xk852

import (
	"fmt"
	"math"
)

const (
	frameStart = 0x0A // LF
	frameEnd   = 0x0D // CR
)

// Well-known commands understood by the receiver.
const (
	CmdRemoteOn  = "*R1"
	CmdRemoteOff = "*R0"
)

// EncodeCommand wraps an ASCII command string into a wire frame:
// LF + command + CR.
func EncodeCommand(cmd string) []byte {
	frame := make([]byte, 0, len(cmd)+2)
	frame = append(frame, frameStart)
	frame = append(frame, cmd...)
	frame = append(frame, frameEnd)
	return frame
}

// FrequencyCommand builds the tune command for a frequency given in Hz.
// The receiver expects the value in tens of Hz, zero-padded to 7 digits.
// Values are rounded to the nearest 10 Hz step; bounds are not checked.
func FrequencyCommand(hz float64) string {
	steps := int64(math.Round(hz / 10))
	return fmt.Sprintf("*F%07d", steps)
}

// EncodeFrequency is a convenience combining FrequencyCommand and
// EncodeCommand into a ready-to-send frame.
func EncodeFrequency(hz float64) []byte {
	return EncodeCommand(FrequencyCommand(hz))
}
