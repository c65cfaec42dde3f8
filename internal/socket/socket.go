package socket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"xk852-bridge/pkg/logger"
)

// Message is the websocket envelope shared with the browser terminal.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// CommandHandler receives every non-ping message a client sends. The
// bridge installs one to drive the serial connection.
type CommandHandler func(c *Client, msg Message)

// ConnectHandler runs for each newly registered client, typically to
// replay the log backlog and current connection status.
type ConnectHandler func(c *Client)

// Client represents a connected websocket client
type Client struct {
	id       string
	conn     *websocket.Conn
	send     chan Message
	server   *Server
	lastPong time.Time
	mu       sync.RWMutex
}

// Server represents the websocket server
type Server struct {
	clients    map[*Client]bool
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	upgrader   websocket.Upgrader
	mu         sync.RWMutex
	ctx        context.Context
	cancel     context.CancelFunc

	onCommand CommandHandler
	onConnect ConnectHandler
}

// NewServer creates a new websocket server
func NewServer() *Server {
	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// The bridge binds to localhost; the terminal page may be
				// opened from file:// as well, so accept any origin.
				return true
			},
		},
		ctx:    ctx,
		cancel: cancel,
	}
}

// SetCommandHandler installs the handler for inbound terminal commands.
func (s *Server) SetCommandHandler(h CommandHandler) {
	s.onCommand = h
}

// SetConnectHandler installs the handler run for each new client.
func (s *Server) SetConnectHandler(h ConnectHandler) {
	s.onConnect = h
}

// Start starts the websocket server
func (s *Server) Start() {
	s.resetServer()

	go s.handleConnections()
	logger.Info("WebSocket server started")
}

// resetServer reinitializes the server state for a fresh start
func (s *Server) resetServer() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	for client := range s.clients {
		if client.conn != nil {
			client.conn.Close()
		}
		if client.send != nil {
			close(client.send)
		}
		delete(s.clients, client)
	}
	s.clients = make(map[*Client]bool)

	s.broadcast = make(chan Message)
	s.register = make(chan *Client)
	s.unregister = make(chan *Client)
}

// Stop stops the websocket server
func (s *Server) Stop() {
	logger.Info("Stopping WebSocket server...")

	if s.cancel != nil {
		s.cancel()
	}

	// Give goroutines a moment to stop gracefully
	time.Sleep(100 * time.Millisecond)

	s.mu.Lock()
	for client := range s.clients {
		if client.conn != nil {
			client.conn.Close()
		}
		if client.send != nil {
			close(client.send)
		}
		delete(s.clients, client)
	}
	s.mu.Unlock()

	logger.Info("WebSocket server stopped")
}

// handleConnections manages client connections and message broadcasting
func (s *Server) handleConnections() {
	for {
		select {
		case <-s.ctx.Done():
			return

		case client := <-s.register:
			s.mu.Lock()
			s.clients[client] = true
			s.mu.Unlock()
			logger.Info("Client %s connected. Total clients: %d", client.id, s.GetConnectedClientsCount())
			if s.onConnect != nil {
				s.onConnect(client)
			}

		case client := <-s.unregister:
			s.mu.Lock()
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				close(client.send)
				logger.Info("Client %s disconnected. Total clients: %d", client.id, len(s.clients))
			}
			s.mu.Unlock()

		case message := <-s.broadcast:
			s.mu.RLock()
			for client := range s.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(s.clients, client)
				}
			}
			s.mu.RUnlock()
		}
	}
}

// ServeWS handles websocket connections
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Failed to upgrade connection: %v", err)
		return
	}

	client := &Client{
		id:       generateClientID(),
		conn:     conn,
		send:     make(chan Message, 256),
		server:   s,
		lastPong: time.Now(),
	}

	s.register <- client

	go client.writePump()
	go client.readPump()
}

// BroadcastMessage broadcasts a message to all connected clients
func (s *Server) BroadcastMessage(msgType string, payload interface{}) {
	message := Message{
		Type:    msgType,
		Payload: payload,
	}

	select {
	case s.broadcast <- message:
	default:
		logger.Error("Broadcast channel full, message dropped")
	}
}

// GetConnectedClientsCount returns the number of connected clients
func (s *Server) GetConnectedClientsCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// readPump handles reading messages from the websocket connection
func (c *Client) readPump() {
	defer func() {
		c.server.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.mu.Lock()
		c.lastPong = time.Now()
		c.mu.Unlock()
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, messageData, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Error("WebSocket error for client %s: %v", c.id, err)
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(messageData, &msg); err != nil {
			logger.Error("Failed to unmarshal message from client %s: %v", c.id, err)
			continue
		}

		c.handleMessage(msg)
	}
}

// writePump handles writing messages to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			jsonData, err := json.Marshal(message)
			if err != nil {
				logger.Error("Failed to marshal message for client %s: %v", c.id, err)
				continue
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, jsonData); err != nil {
				logger.Error("Failed to write message to client %s: %v", c.id, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage answers protocol pings locally and hands everything
// else to the bridge's command handler.
func (c *Client) handleMessage(msg Message) {
	switch msg.Type {
	case "ping":
		c.SendMessage("pong", msg.Payload)

	default:
		if c.server.onCommand != nil {
			c.server.onCommand(c, msg)
			return
		}
		logger.Warn("No command handler for message type '%s' from client %s", msg.Type, c.id)
	}
}

// SendMessage sends a message to this specific client
func (c *Client) SendMessage(msgType string, payload interface{}) {
	message := Message{
		Type:    msgType,
		Payload: payload,
	}

	select {
	case c.send <- message:
	default:
		logger.Error("Client %s send channel full, message dropped", c.id)
	}
}

// generateClientID generates a unique client ID
func generateClientID() string {
	return fmt.Sprintf("client_%d", time.Now().UnixNano())
}
