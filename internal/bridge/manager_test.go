package bridge

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xk852-bridge/config"
	"xk852-bridge/internal/conn"
	"xk852-bridge/internal/device"
	"xk852-bridge/internal/socket"
)

func newSimManager(t *testing.T) (*Manager, *device.SimAPI) {
	t.Helper()

	cfg, err := config.LoadConfig("simulator")
	require.NoError(t, err)

	m := NewManager(cfg)
	api, ok := m.api.(*device.SimAPI)
	require.True(t, ok)
	return m, api
}

func attachedHandle(t *testing.T, api *device.SimAPI) device.Handle {
	t.Helper()
	h, err := api.RequestPort()
	require.NoError(t, err)
	return h
}

func TestHotplugAttachAutoConnects(t *testing.T) {
	t.Parallel()

	m, api := newSimManager(t)
	h := attachedHandle(t, api)

	m.handleHotplug(device.Event{Type: device.Attached, Handle: h})

	_, ok := m.registry.FindOption(h)
	assert.True(t, ok)
	assert.Equal(t, conn.Connected, m.conn.State())

	m.conn.Disconnect()
}

func TestHotplugDetachKeepsConnection(t *testing.T) {
	t.Parallel()

	m, api := newSimManager(t)
	h := attachedHandle(t, api)

	m.handleHotplug(device.Event{Type: device.Attached, Handle: h})
	require.Equal(t, conn.Connected, m.conn.State())

	m.handleHotplug(device.Event{Type: device.Detached, Handle: h})

	// the option list loses the device but the live connection survives
	assert.Empty(t, m.registry.Options())
	assert.Equal(t, conn.Connected, m.conn.State())

	m.conn.Disconnect()
}

func TestHotplugAttachWhileConnectedDoesNotReconnect(t *testing.T) {
	t.Parallel()

	m, api := newSimManager(t)
	first := attachedHandle(t, api)
	m.handleHotplug(device.Event{Type: device.Attached, Handle: first})
	require.Equal(t, conn.Connected, m.conn.State())
	require.Equal(t, "sim0", m.conn.PortLabel())

	second := api.Attach("sim1")
	m.handleHotplug(device.Event{Type: device.Attached, Handle: second})

	assert.Equal(t, "sim0", m.conn.PortLabel())
	assert.Len(t, m.registry.Options(), 2)

	m.conn.Disconnect()
}

func TestPortListMarksSelection(t *testing.T) {
	t.Parallel()

	m, api := newSimManager(t)
	h := attachedHandle(t, api)
	m.registry.EnsureOption(h)
	m.registry.Select(h)

	list := m.portList()
	require.Len(t, list, 1)
	assert.Equal(t, "Port 1", list[0].Label)
	assert.Equal(t, "sim0", list[0].ID)
	assert.True(t, list[0].Selected)
}

func TestSetFrequencyCommand(t *testing.T) {
	t.Parallel()

	m, api := newSimManager(t)
	h := attachedHandle(t, api)
	m.handleHotplug(device.Event{Type: device.Attached, Handle: h})
	require.Equal(t, conn.Connected, m.conn.State())

	m.handleCommand(nil, socket.Message{
		Type:    "set-frequency",
		Payload: map[string]interface{}{"hz": 15000.0},
	})

	assert.InDelta(t, 15000, m.store.RigStatus().FrequencyHz, 0.001)

	// the simulated receiver echoes the tune command as a status line
	require.Eventually(t, func() bool {
		for _, e := range m.sink.Entries() {
			if strings.Contains(e.Text, "F0001500") {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	m.conn.Disconnect()
}

func TestDisconnectCommand(t *testing.T) {
	t.Parallel()

	m, api := newSimManager(t)
	h := attachedHandle(t, api)
	m.handleHotplug(device.Event{Type: device.Attached, Handle: h})
	require.Equal(t, conn.Connected, m.conn.State())

	m.handleCommand(nil, socket.Message{Type: "disconnect"})
	assert.Equal(t, conn.Disconnected, m.conn.State())
}

func TestStopReturnsPromptly(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig("simulator")
	require.NoError(t, err)
	cfg.SocketConfig.Port = ":0"

	m := NewManager(cfg)
	require.NoError(t, m.Start())

	begin := time.Now()
	require.NoError(t, m.Stop())
	assert.Less(t, time.Since(begin), 2*time.Second)
}

func TestDecodePayload(t *testing.T) {
	t.Parallel()

	var req struct {
		Hz float64 `json:"hz"`
	}
	err := decodePayload(map[string]interface{}{"hz": 15005.0}, &req)
	require.NoError(t, err)
	assert.InDelta(t, 15005, req.Hz, 0.001)
}
