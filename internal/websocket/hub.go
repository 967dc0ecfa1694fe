package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"wbbcli/internal/infrastructure"
)

// Event types pushed to clients
const (
	TypeConnection  = "connection"
	TypeRunStarted  = "run:started"
	TypeRunProgress = "run:progress"
	TypeRunComplete = "run:complete"
)

// Event is the JSON envelope of every message sent to a client
type Event struct {
	Type      string      `json:"type"`
	RunID     string      `json:"run_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// Hub maintains the set of active clients and broadcasts events to them
type Hub struct {
	clients map[*Client]bool

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	logger  *slog.Logger
	metrics *infrastructure.BusinessMetrics

	totalConnections int64
	messagesSent     int64
	droppedClients   int64

	quit    chan struct{}
	done    chan struct{}
	running bool
}

// NewHub creates a new Hub instance
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger.With(slog.String("component", "websocket.hub")),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// SetMetrics attaches business metrics; nil disables them
func (h *Hub) SetMetrics(m *infrastructure.BusinessMetrics) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.metrics = m
}

// Start starts the hub loop. It is a no-op when already running.
func (h *Hub) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return
	}
	select {
	case <-h.quit:
		return
	default:
	}
	h.running = true
	go h.run()
}

func (h *Hub) run() {
	defer close(h.done)
	for {
		select {
		case <-h.quit:
			h.logger.Info("Hub shutting down")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.totalConnections++
			count := len(h.clients)
			metrics := h.metrics
			h.mu.Unlock()

			ctx := client.context()
			metrics.RecordWSConnection(ctx, 1)
			h.logger.InfoContext(ctx, "Client registered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr))

			h.greet(client)

		case client := <-h.unregister:
			h.mu.Lock()
			_, ok := h.clients[client]
			if ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			metrics := h.metrics
			h.mu.Unlock()

			if ok {
				ctx := client.context()
				metrics.RecordWSConnection(ctx, -1)
				h.logger.InfoContext(ctx, "Client unregistered",
					slog.Int("total_clients", count),
					slog.String("client_id", client.id),
					slog.Duration("connection_duration", time.Since(client.connectedAt)))
			}

		case message := <-h.broadcast:
			h.fanOut(message)
		}
	}
}

// greet sends the connection event to a newly registered client
func (h *Hub) greet(client *Client) {
	data, err := json.Marshal(Event{
		Type: TypeConnection,
		Data: map[string]interface{}{
			"status":    "connected",
			"client_id": client.id,
		},
		Timestamp: time.Now().Format(time.RFC3339),
		TraceID:   client.traceID,
	})
	if err != nil {
		return
	}
	select {
	case client.send <- data:
	default:
		h.logger.Warn("Failed to send connection message - client buffer full",
			slog.String("client_id", client.id))
	}
}

// fanOut delivers message to every client. A client whose buffer is full is
// disconnected.
func (h *Hub) fanOut(message []byte) {
	h.mu.Lock()
	delivered, dropped := 0, 0
	for client := range h.clients {
		select {
		case client.send <- message:
			delivered++
		default:
			close(client.send)
			delete(h.clients, client)
			dropped++
			h.logger.Warn("Client send buffer full, disconnecting",
				slog.String("client_id", client.id))
		}
	}
	h.messagesSent += int64(delivered)
	h.droppedClients += int64(dropped)
	metrics := h.metrics
	if dropped > 0 {
		metrics.RecordWSConnection(context.Background(), -int64(dropped))
	}
	h.mu.Unlock()

	metrics.RecordWSBroadcast(context.Background(), delivered, dropped)
	h.logger.Debug("Broadcast event",
		slog.Int("delivered", delivered),
		slog.Int("dropped", dropped),
		slog.Int("message_size", len(message)))
}

// Broadcast sends an event of the given type to all connected clients
func (h *Hub) Broadcast(eventType, runID string, data interface{}) {
	h.BroadcastEvent(context.Background(), Event{Type: eventType, RunID: runID, Data: data})
}

// BroadcastEvent sends ev to all connected clients. The trace ID of ctx is
// attached when ev carries none. Events sent after Stop are discarded.
func (h *Hub) BroadcastEvent(ctx context.Context, ev Event) {
	if ev.Timestamp == "" {
		ev.Timestamp = time.Now().Format(time.RFC3339)
	}
	if ev.TraceID == "" {
		ev.TraceID = infrastructure.GetTraceID(ctx)
	}

	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.ErrorContext(ctx, "Error marshaling event",
			slog.String("error", err.Error()),
			slog.String("event_type", ev.Type))
		return
	}

	select {
	case h.broadcast <- data:
	case <-h.quit:
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.quit:
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats returns current hub counters
func (h *Hub) Stats() map[string]interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return map[string]interface{}{
		"active_clients":    len(h.clients),
		"total_connections": h.totalConnections,
		"messages_sent":     h.messagesSent,
		"dropped_clients":   h.droppedClients,
	}
}

// Stop stops the hub loop and disconnects every client. A stopped hub cannot
// be restarted.
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	close(h.quit)
	h.mu.Unlock()

	<-h.done

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}
