package xk852

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeCommand(t *testing.T) {
	t.Parallel()

	got := EncodeCommand("*F0000150")
	want := []byte{10, 42, 70, 48, 48, 48, 48, 49, 53, 48, 13}
	assert.Equal(t, want, got)
}

func TestEncodeCommandEmpty(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []byte{10, 13}, EncodeCommand(""))
}

func TestFrequencyCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		hz   float64
		want string
	}{
		{name: "15 kHz", hz: 15000, want: "*F0001500"},
		{name: "rounds up to nearest 10 Hz", hz: 15005, want: "*F0001501"},
		{name: "rounds down", hz: 15004, want: "*F0001500"},
		{name: "1.5 kHz browser input", hz: 1500, want: "*F0000150"},
		{name: "zero", hz: 0, want: "*F0000000"},
		{name: "full HF range", hz: 29999990, want: "*F2999999"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, FrequencyCommand(tt.hz))
		})
	}
}

func TestEncodeFrequency(t *testing.T) {
	t.Parallel()

	got := EncodeFrequency(1500)
	assert.Equal(t, []byte{10, 42, 70, 48, 48, 48, 48, 49, 53, 48, 13}, got)
}
