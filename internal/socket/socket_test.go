package socket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTestServer(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()

	s.Start()
	t.Cleanup(s.Stop)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.ServeWS)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func TestPingPong(t *testing.T) {
	s := NewServer()
	conn := startTestServer(t, s)

	require.NoError(t, conn.WriteJSON(Message{Type: "ping", Payload: "hello"}))

	var reply Message
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "pong", reply.Type)
	assert.Equal(t, "hello", reply.Payload)
}

func TestCommandHandlerReceivesMessages(t *testing.T) {
	s := NewServer()
	got := make(chan Message, 1)
	s.SetCommandHandler(func(c *Client, msg Message) {
		got <- msg
	})

	conn := startTestServer(t, s)
	require.NoError(t, conn.WriteJSON(Message{Type: "connect", Payload: map[string]string{"port": "Port 1"}}))

	select {
	case msg := <-got:
		assert.Equal(t, "connect", msg.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("command handler was not invoked")
	}
}

func TestConnectHandlerRunsForNewClients(t *testing.T) {
	s := NewServer()
	s.SetConnectHandler(func(c *Client) {
		c.SendMessage("backlog", []string{"old line"})
	})

	conn := startTestServer(t, s)

	var msg Message
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "backlog", msg.Type)
}

func TestBroadcastReachesClient(t *testing.T) {
	s := NewServer()
	conn := startTestServer(t, s)

	// wait for registration before broadcasting
	require.Eventually(t, func() bool {
		return s.GetConnectedClientsCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	s.BroadcastMessage("log", map[string]string{"text": "\n T  "})

	var msg Message
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "log", msg.Type)
}
