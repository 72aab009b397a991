// Package ws pushes layer and status updates to connected map clients over
// WebSocket.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/couchcryptid/firms-fire-etl/internal/domain"
	"github.com/couchcryptid/firms-fire-etl/internal/layer"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 16
)

// Message types sent to clients.
const (
	TypeLayer  = "layer"
	TypeStatus = "status"
)

// Envelope is the JSON frame sent to clients.
type Envelope struct {
	Type    string          `json:"type"`
	Cycle   uint64          `json:"cycle,omitempty"`
	Visible *bool           `json:"visible,omitempty"`
	Layer   json.RawMessage `json:"layer,omitempty"`
	Status  string          `json:"status,omitempty"`
}

// SnapshotSource provides the state sent to a client when it connects.
type SnapshotSource interface {
	Snapshot() layer.Snapshot
}

// Hub tracks connected clients and broadcasts to all of them. Slow clients
// whose send buffer fills up are disconnected.
type Hub struct {
	upgrader websocket.Upgrader
	source   SnapshotSource
	logger   *slog.Logger

	mu         sync.RWMutex
	clients    map[string]*client
	lastStatus string
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte

	// Set once a broadcast of that type has been queued; guarded by Hub.mu.
	gotLayer  bool
	gotStatus bool
}

// NewHub creates a Hub. source may be nil, in which case new clients receive
// no initial layer.
func NewHub(source SnapshotSource, logger *slog.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		source:  source,
		logger:  logger,
		clients: make(map[string]*client),
	}
}

// ReplaceAll broadcasts layer to every client.
func (h *Hub) ReplaceAll(_ context.Context, l domain.Layer) error {
	frame, err := layerFrame(l, nil)
	if err != nil {
		return err
	}
	h.broadcast(frame, TypeLayer)
	return nil
}

// SetVisible broadcasts the current layer with its new visibility.
func (h *Hub) SetVisible(visible bool) {
	if h.source == nil {
		return
	}
	frame, err := layerFrame(h.source.Snapshot().Layer, &visible)
	if err != nil {
		h.logger.Error("encode layer frame", "error", err)
		return
	}
	h.broadcast(frame, TypeLayer)
}

// Report broadcasts a status message.
func (h *Hub) Report(msg string) {
	h.mu.Lock()
	h.lastStatus = msg
	h.mu.Unlock()

	frame, err := json.Marshal(Envelope{Type: TypeStatus, Status: msg})
	if err != nil {
		h.logger.Error("encode status frame", "error", err)
		return
	}
	h.broadcast(frame, TypeStatus)
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and registers the connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	// Register before taking the snapshot so no broadcast falls between the two.
	c := &client{id: uuid.NewString(), conn: conn, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	h.clients[c.id] = c
	n := len(h.clients)
	h.mu.Unlock()

	if err := h.greet(c); err != nil {
		h.logger.Warn("websocket greeting failed", "client", c.id, "error", err)
		h.remove(c)
		_ = conn.Close()
		return
	}
	h.logger.Info("websocket client connected", "client", c.id, "clients", n)

	go h.writePump(c)
	go h.readPump(c)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		close(c.send)
		delete(h.clients, id)
	}
}

// greet queues the current layer and status for a newly registered client.
// A snapshot is skipped when a broadcast of the same type already reached the
// client, since that broadcast and everything after it are at least as new.
func (h *Hub) greet(c *client) error {
	var layerMsg []byte
	if h.source != nil {
		snap := h.source.Snapshot()
		var err error
		layerMsg, err = layerFrame(snap.Layer, &snap.Visible)
		if err != nil {
			return err
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if layerMsg != nil && !c.gotLayer {
		h.queue(c, layerMsg, TypeLayer)
	}
	if h.lastStatus != "" && !c.gotStatus {
		statusMsg, err := json.Marshal(Envelope{Type: TypeStatus, Status: h.lastStatus})
		if err != nil {
			return err
		}
		h.queue(c, statusMsg, TypeStatus)
	}
	return nil
}

func (h *Hub) broadcast(frame []byte, kind string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.clients {
		h.queue(c, frame, kind)
	}
}

// queue sends frame to c without blocking, dropping c if its buffer is full.
// Callers hold h.mu.
func (h *Hub) queue(c *client, frame []byte, kind string) {
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	select {
	case c.send <- frame:
		switch kind {
		case TypeLayer:
			c.gotLayer = true
		case TypeStatus:
			c.gotStatus = true
		}
	default:
		h.logger.Warn("websocket client too slow, dropping", "client", c.id)
		close(c.send)
		delete(h.clients, c.id)
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; ok {
		close(c.send)
		delete(h.clients, c.id)
		h.logger.Info("websocket client disconnected", "client", c.id, "clients", len(h.clients))
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				h.remove(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(c)
				return
			}
		}
	}
}

// readPump discards client messages and detects disconnects.
func (h *Hub) readPump(c *client) {
	defer h.remove(c)
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func layerFrame(l domain.Layer, visible *bool) ([]byte, error) {
	data, err := l.MarshalGeoJSON()
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: TypeLayer, Cycle: l.Cycle, Visible: visible, Layer: data})
}
