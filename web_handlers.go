package main

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/elijahnyp/relay_controller/device"
	"github.com/elijahnyp/relay_controller/display"
	. "github.com/elijahnyp/relay_controller/util"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // read only feed
	},
}

// WebSocketMessage represents a message sent over WebSocket
type WebSocketMessage struct {
	Data interface{} `json:"data"`
	Type string      `json:"type"`
}

// WSClient represents a connected WebSocket client
type WSClient struct {
	conn *websocket.Conn
	send chan WebSocketMessage
	hub  *StatusHub
}

// StatusView is the JSON form of the device status.
type StatusView struct {
	Relay         string   `json:"relay"`
	Connected     bool     `json:"connected"`
	Cursor        int      `json:"cursor"`
	Lit           int      `json:"lit"`
	LastPublishMs uint32   `json:"last_publish_ms"`
	Cells         []string `json:"cells"`
}

func NewStatusView(s device.Status) StatusView {
	v := StatusView{
		Relay:         s.Relay.String(),
		Connected:     s.Connected,
		Cursor:        s.Cursor,
		Lit:           s.Lit,
		LastPublishMs: uint32(s.LastPublish),
		Cells:         make([]string, len(s.Cells)),
	}
	for i, c := range s.Cells {
		v.Cells[i] = c.String()
	}
	return v
}

// StatusHub keeps the last status from the main loop for the HTTP handlers
// and pushes relay and connection changes to websocket clients.
type StatusHub struct {
	mu      sync.RWMutex
	status  device.Status
	current bool

	clients    map[*WSClient]bool
	broadcast  chan WebSocketMessage
	register   chan *WSClient
	unregister chan *WSClient
	done       chan struct{}
}

func NewStatusHub() *StatusHub {
	return &StatusHub{
		clients:    make(map[*WSClient]bool),
		broadcast:  make(chan WebSocketMessage, 16),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
		done:       make(chan struct{}),
	}
}

// Register adds the monitor endpoints to s.
func (h *StatusHub) Register(s *MonitorServer) {
	s.AddHandler("/api/status", h.APIStatus)
	s.AddHandler("/grid.png", h.GridPNG)
	s.AddHandler("/ws", h.ServeWebSocket)
}

// Update is called by the main loop after every tick.
func (h *StatusHub) Update(s device.Status) {
	h.mu.Lock()
	changed := !h.current || h.status.Relay != s.Relay || h.status.Connected != s.Connected
	h.status = s
	h.current = true
	h.mu.Unlock()

	if changed {
		h.BroadcastUpdate("status", NewStatusView(s))
	}
}

func (h *StatusHub) Snapshot() (device.Status, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status, h.current
}

// Run serves websocket registrations and broadcasts until ctx is done. It
// must be called once.
func (h *StatusHub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			Logger.Info().Msg("Client connected to WebSocket")
			if s, ok := h.Snapshot(); ok {
				client.send <- WebSocketMessage{Type: "status", Data: NewStatusView(s)}
			}

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				Logger.Info().Msg("Client disconnected from WebSocket")
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// BroadcastUpdate sends an update to all connected clients
func (h *StatusHub) BroadcastUpdate(messageType string, data interface{}) {
	select {
	case h.broadcast <- WebSocketMessage{Type: messageType, Data: data}:
	default:
		Logger.Debug().Msg("websocket broadcast queue full, skipping update")
	}
}

// readPump discards client messages and unregisters on disconnect
func (c *WSClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		if err := c.conn.Close(); err != nil {
			Logger.Debug().Err(err).Msg("Error closing WebSocket connection")
		}
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *WSClient) writePump() {
	defer func() {
		if err := c.conn.Close(); err != nil {
			Logger.Debug().Err(err).Msg("Error closing WebSocket connection")
		}
	}()

	for message := range c.send {
		if err := c.conn.WriteJSON(message); err != nil {
			return
		}
	}
	if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
		Logger.Debug().Err(err).Msg("Error writing close message")
	}
}

// ServeWebSocket handles websocket requests from the peer
func (h *StatusHub) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	select {
	case <-h.done:
		http.Error(w, "status feed stopped", http.StatusServiceUnavailable)
		return
	default:
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		Logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := &WSClient{
		conn: conn,
		send: make(chan WebSocketMessage, 16),
		hub:  h,
	}
	select {
	case h.register <- client:
	case <-h.done:
		if err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "")); err != nil {
			Logger.Debug().Err(err).Msg("Error writing close message")
		}
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// APIStatus returns the last frame and relay status as JSON
func (h *StatusHub) APIStatus(w http.ResponseWriter, r *http.Request) {
	s, ok := h.Snapshot()
	if !ok {
		http.Error(w, "no frame yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(NewStatusView(s)); err != nil {
		Logger.Error().Err(err).Msg("Error encoding status")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// GridPNG renders the last frame as an image
func (h *StatusHub) GridPNG(w http.ResponseWriter, r *http.Request) {
	s, ok := h.Snapshot()
	if !ok {
		http.Error(w, "no frame yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := display.WritePNG(w, s.Cells, display.SnapshotScale); err != nil {
		Logger.Error().Err(err).Msg("Error encoding grid image")
	}
}
