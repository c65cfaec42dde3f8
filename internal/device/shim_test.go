package device

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAllPending(t *testing.T, p Port, timeout time.Duration) string {
	t.Helper()

	var out []byte
	buf := make([]byte, 256)
	deadline := time.After(timeout)
	read := make(chan int, 1)

	for {
		go func() {
			n, err := p.Read(buf)
			if err != nil {
				read <- 0
				return
			}
			read <- n
		}()
		select {
		case n := <-read:
			if n == 0 {
				return string(out)
			}
			out = append(out, buf[:n]...)
		case <-deadline:
			return string(out)
		}
	}
}

func TestSimAPIRequestPort(t *testing.T) {
	t.Parallel()

	api := NewSimAPI()
	h, err := api.RequestPort()
	require.NoError(t, err)
	assert.Equal(t, "sim0", h.ID())

	api.Detach("sim0")
	_, err = api.RequestPort()
	assert.ErrorIs(t, err, ErrNoPort)
}

func TestSimPortRespondsToFrequencyFrame(t *testing.T) {
	t.Parallel()

	api := NewSimAPI()
	h, err := api.RequestPort()
	require.NoError(t, err)

	port, err := h.Open(DefaultOpenConfig())
	require.NoError(t, err)
	defer port.Close()

	_, err = port.Write([]byte{0x0A, '*', 'F', '0', '0', '0', '1', '5', '0', '0', 0x0D})
	require.NoError(t, err)

	got := readAllPending(t, port, 200*time.Millisecond)
	assert.Contains(t, got, "XK852 REMOTE READY")
	assert.Contains(t, got, "F0001500")
}

func TestSimPortCloseUnblocksRead(t *testing.T) {
	t.Parallel()

	h := &SimHandle{id: "sim1"}
	port, err := h.Open(DefaultOpenConfig())
	require.NoError(t, err)

	// Drain the banner first so the next Read blocks.
	buf := make([]byte, 256)
	_, err = port.Read(buf)
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		_, readErr := port.Read(buf)
		errCh <- readErr
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, port.Close())

	select {
	case readErr := <-errCh:
		assert.ErrorIs(t, readErr, io.EOF)
	case <-time.After(time.Second):
		t.Fatal("read did not unblock after close")
	}
}

func TestSplitFramesPartial(t *testing.T) {
	t.Parallel()

	buf := []byte{0x0A, '*', 'R', '1', 0x0D, 0x0A, '*', 'F'}
	frames := splitFrames(&buf)
	assert.Equal(t, []string{"*R1"}, frames)

	// remainder completes on the next write
	buf = append(buf, '1', 0x0D)
	frames = splitFrames(&buf)
	assert.Equal(t, []string{"*F1"}, frames)
	assert.Empty(t, buf)
}
