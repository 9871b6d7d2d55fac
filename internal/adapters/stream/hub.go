// Package stream pushes stroke notifications to WebSocket subscribers.
package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/okian/inkflow/internal/domain/stroke"
	"github.com/okian/inkflow/internal/domain/tracker"
	"github.com/okian/inkflow/internal/domain/types"
	"github.com/okian/inkflow/pkg/logger"
	"github.com/okian/inkflow/pkg/metrics"
)

const (
	defaultBuffer       = 64
	defaultWriteTimeout = 5 * time.Second
	defaultPingInterval = 30 * time.Second
	maxInboundMessage   = 512
)

// Hub fans notifications out to subscribers. Broadcasting never blocks: a
// subscriber whose buffer is full misses the notification.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool

	upgrader     websocket.Upgrader
	buffer       int
	writeTimeout time.Duration
	pingInterval time.Duration
	logger       logger.Logger
}

var _ tracker.Dispatcher = (*Hub)(nil)

type client struct {
	conn    *websocket.Conn
	surface string // empty means every surface
	send    chan []byte
}

// NewHub creates a hub with configuration options.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		clients:      make(map[*client]struct{}),
		buffer:       defaultBuffer,
		writeTimeout: defaultWriteTimeout,
		pingInterval: defaultPingInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = logger.Named("stream")
	}
	return h
}

// ServeHTTP upgrades the request and streams notifications until the
// subscriber disconnects. ?surface= limits the stream to one surface.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		http.Error(w, ErrHubClosed.Error(), http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		h.logger.Debug(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}

	c := &client{
		conn:    conn,
		surface: r.URL.Query().Get("surface"),
		send:    make(chan []byte, h.buffer),
	}
	if err := h.add(c); err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, err.Error()),
			time.Now().Add(h.writeTimeout))
		_ = conn.Close()
		return
	}
	h.logger.Debug(r.Context(), "subscriber connected", logger.String("surface", c.surface))

	go h.writePump(c)
	h.readPump(c)
}

// Broadcast delivers a notification to every matching subscriber.
func (h *Hub) Broadcast(ctx context.Context, n types.Notification) {
	data, err := json.Marshal(n)
	if err != nil {
		metrics.RecordErrorByComponent("stream", "marshal")
		h.logger.Error(ctx, "failed to marshal notification", logger.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c.surface != "" && c.surface != n.SurfaceID {
			continue
		}
		select {
		case c.send <- data:
			metrics.RecordStreamMessage()
		default:
			metrics.RecordStreamDropped()
		}
	}
}

// Clients returns the number of connected subscribers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every subscriber and refuses new ones.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	metrics.UpdateStreamClients(0)
	return nil
}

// Open accepts subscribers again after Close.
func (h *Hub) Open() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = false
}

// StrokesCreated implements tracker.Dispatcher.
func (h *Hub) StrokesCreated(ctx context.Context, surfaceID string, strokes []*stroke.Stroke) {
	h.notify(ctx, surfaceID, types.NotifyCreated, strokes)
}

// StrokesUpdated implements tracker.Dispatcher.
func (h *Hub) StrokesUpdated(ctx context.Context, surfaceID string, strokes []*stroke.Stroke) {
	h.notify(ctx, surfaceID, types.NotifyUpdated, strokes)
}

// StrokesFinished implements tracker.Dispatcher.
func (h *Hub) StrokesFinished(ctx context.Context, surfaceID string, strokes []*stroke.Stroke) {
	h.notify(ctx, surfaceID, types.NotifyFinished, strokes)
}

// StrokesCancelled implements tracker.Dispatcher.
func (h *Hub) StrokesCancelled(ctx context.Context, surfaceID string, strokes []*stroke.Stroke) {
	h.notify(ctx, surfaceID, types.NotifyCancelled, strokes)
}

func (h *Hub) notify(ctx context.Context, surfaceID string, kind types.NotificationKind, strokes []*stroke.Stroke) {
	if h.Clients() == 0 {
		return
	}
	h.Broadcast(ctx, types.Notification{
		Kind:      kind,
		SurfaceID: surfaceID,
		Strokes:   tracker.Views(surfaceID, kind, strokes),
		At:        time.Now().UTC(),
	})
}

func (h *Hub) add(c *client) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHubClosed
	}
	h.clients[c] = struct{}{}
	metrics.UpdateStreamClients(len(h.clients))
	return nil
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	metrics.UpdateStreamClients(len(h.clients))
}

// writePump owns all writes to the connection.
func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(h.pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound messages and notices disconnects.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.remove(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxInboundMessage)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
