package websocket

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/aviationwx/aviationwx/internal/observability"
	"github.com/aviationwx/aviationwx/internal/status"
	"github.com/aviationwx/aviationwx/internal/weather"
	"github.com/aviationwx/aviationwx/pkg/logger"
)

// Message types pushed to dashboard and map pages
const (
	MessageTypeWeatherUpdate = "weather_update"
	MessageTypeWebcamUpdate  = "webcam_update"
	MessageTypeStatusUpdate  = "status_update"
	MessageTypeSubscribe     = "subscribe"   // Client subscribes to an airport
	MessageTypeUnsubscribe   = "unsubscribe" // Client drops an airport subscription
)

// Message represents a WebSocket message. Airport routes it to that
// airport's subscribers; an empty airport goes to every client.
type Message struct {
	Type    string         `json:"type"`
	Airport string         `json:"airport,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// Client represents a WebSocket client
type Client struct {
	id        string
	conn      *websocket.Conn
	send      chan *Message
	server    *Server
	mu        sync.Mutex
	closed    bool
	closeChan chan struct{}
	airports  map[string]bool // subscribed idents; empty means all
}

// Server represents a WebSocket server
type Server struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	upgrader   websocket.Upgrader
	logger     *logger.Logger
	mu         sync.RWMutex
	stop       chan struct{}
	stopOnce   sync.Once
}

// NewServer creates a new WebSocket server
func NewServer(logger *logger.Logger) *Server {
	return &Server{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Widgets connect from third-party origins
			},
		},
		logger: logger.Named("web-socket"),
		stop:   make(chan struct{}),
	}
}

// Run starts the WebSocket server loop
func (s *Server) Run() {
	s.logger.Info("Starting WebSocket server")

	for {
		select {
		case client := <-s.register:
			s.mu.Lock()
			s.clients[client] = true
			clientCount := len(s.clients)
			s.mu.Unlock()
			observability.WebsocketClients.Inc()
			s.logger.Debug("Client registered", String("client_count", fmt.Sprintf("%d", clientCount)))

		case client := <-s.unregister:
			s.mu.Lock()
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				// Mark client as closed first to prevent new messages
				client.mu.Lock()
				client.closed = true
				client.mu.Unlock()
				// Then close the channel
				close(client.send)
				observability.WebsocketClients.Dec()
			}
			clientCount := len(s.clients)
			s.mu.Unlock()
			s.logger.Debug("Client unregistered", String("client_count", fmt.Sprintf("%d", clientCount)))

		case message := <-s.broadcast:
			s.mu.RLock()
			clientsToRemove := make([]*Client, 0)
			for client := range s.clients {
				client.mu.Lock()
				if client.closed {
					clientsToRemove = append(clientsToRemove, client)
					client.mu.Unlock()
					continue
				}
				client.mu.Unlock()

				if !client.wantsMessage(message) {
					continue
				}

				select {
				case client.send <- message:
					// Message sent successfully
				default:
					// Channel is full, mark for removal
					clientsToRemove = append(clientsToRemove, client)
				}
			}
			s.mu.RUnlock()

			// Clean up failed clients
			if len(clientsToRemove) > 0 {
				s.mu.Lock()
				for _, client := range clientsToRemove {
					if _, ok := s.clients[client]; ok {
						delete(s.clients, client)
						client.mu.Lock()
						if !client.closed {
							client.closed = true
							close(client.send)
						}
						client.mu.Unlock()
						observability.WebsocketClients.Dec()
					}
				}
				s.mu.Unlock()
			}

		case <-s.stop:
			s.mu.Lock()
			for client := range s.clients {
				client.Close()
				delete(s.clients, client)
				observability.WebsocketClients.Dec()
			}
			s.mu.Unlock()
			s.logger.Info("WebSocket server stopped")
			return
		}
	}
}

// Stop ends the server loop and disconnects every client
func (s *Server) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// HandleConnection handles a WebSocket connection
func (s *Server) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection",
			Error(err),
			String("remote_addr", r.RemoteAddr))
		return
	}

	client := &Client{
		id:        uuid.NewString(),
		conn:      conn,
		send:      make(chan *Message, 256),
		server:    s,
		closeChan: make(chan struct{}),
	}

	s.logger.Debug("Successfully upgraded connection to WebSocket",
		String("client_id", client.id),
		String("remote_addr", r.RemoteAddr))

	s.register <- client

	go client.readPump()
	go client.writePump()
}

// Broadcast sends a message to all subscribed clients
func (s *Server) Broadcast(message *Message) {
	select {
	case s.broadcast <- message:
	case <-s.stop:
	}
}

// WeatherUpdated fans a fresh snapshot out to the airport's
// subscribers. Implements the weather service notifier.
func (s *Server) WeatherUpdated(snapshot *weather.Snapshot) {
	s.Broadcast(&Message{
		Type:    MessageTypeWeatherUpdate,
		Airport: snapshot.Ident,
		Data:    map[string]any{"snapshot": snapshot},
	})
}

// WebcamUpdated tells the airport's subscribers a camera has a new
// frame. Implements the webcam service notifier.
func (s *Server) WebcamUpdated(ident, camID string) {
	s.Broadcast(&Message{
		Type:    MessageTypeWebcamUpdate,
		Airport: ident,
		Data:    map[string]any{"cam_id": camID},
	})
}

// StatusUpdated pushes a health report to every client. Implements the
// status monitor notifier.
func (s *Server) StatusUpdated(report *status.Report) {
	s.Broadcast(&Message{
		Type: MessageTypeStatusUpdate,
		Data: map[string]any{"report": report},
	})
}

// readPump pumps messages from the WebSocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.mu.Lock()
		if !c.closed {
			c.closed = true
		}
		c.mu.Unlock()

		c.server.unregister <- c
		c.conn.Close()
	}()

	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			break
		}
		c.mu.Unlock()

		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.server.logger.Error("WebSocket read error", Error(err))
			}
			break
		}

		var message Message
		if err := json.Unmarshal(messageBytes, &message); err != nil {
			c.server.logger.Error("Failed to parse WebSocket message", Error(err))
			continue
		}

		c.server.logger.Debug("Received WebSocket message",
			String("type", message.Type),
			String("client_id", c.id))

		switch message.Type {
		case MessageTypeSubscribe:
			if ident := messageAirport(&message); ident != "" {
				c.Subscribe(ident)
			}
		case MessageTypeUnsubscribe:
			if ident := messageAirport(&message); ident != "" {
				c.Unsubscribe(ident)
			}
		}
	}
}

// messageAirport pulls the airport ident out of a client message,
// accepting it at either the top level or inside data
func messageAirport(m *Message) string {
	ident := m.Airport
	if ident == "" {
		if v, ok := m.Data["airport"].(string); ok {
			ident = v
		}
	}
	return strings.ToLower(strings.TrimSpace(ident))
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	defer func() {
		c.mu.Lock()
		if !c.closed {
			c.closed = true
		}
		c.mu.Unlock()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				// Channel closed
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			c.mu.Lock()
			if c.closed {
				c.mu.Unlock()
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				c.mu.Unlock()
				return
			}

			data, err := json.Marshal(message)
			if err != nil {
				c.server.logger.Error("Failed to marshal message", Error(err))
				c.mu.Unlock()
				continue
			}

			w.Write(data)

			if err := w.Close(); err != nil {
				c.mu.Unlock()
				return
			}
			c.mu.Unlock()

		case <-c.closeChan:
			return
		}
	}
}

// Close closes the client connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.closed = true
	close(c.closeChan)
	c.conn.Close()
}

// Subscribe adds an airport to the client's subscription set
func (c *Client) Subscribe(ident string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.airports == nil {
		c.airports = make(map[string]bool)
	}
	c.airports[ident] = true
}

// Unsubscribe removes an airport from the client's subscription set
func (c *Client) Unsubscribe(ident string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.airports, ident)
}

// wantsMessage reports whether the message should reach this client.
// Messages without an airport (status updates) go to everyone, and a
// client that never subscribed receives everything.
func (c *Client) wantsMessage(m *Message) bool {
	if m.Airport == "" {
		return true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.airports) == 0 {
		return true
	}
	return c.airports[m.Airport]
}

// Import logger functions
var (
	String = logger.String
	Error  = logger.Error
)
