// Package monitor implements the optional live dashboard (§2 AMBIENT
// table: "websocket dashboard streaming live Monte Carlo progress"). It
// is a register/unregister/broadcast hub over gorilla/websocket,
// directly grounded on dbehnke-dmr-nexus's pkg/web/websocket.go
// (WebSocketHub/Client/Event), adapted from peer/bridge/transmission
// events to montecarlo.Result progress snapshots, with per-client
// session IDs assigned via google/uuid instead of the teacher's
// RemoteAddr-as-ID, and subscription query parameters decoded with
// gorilla/schema.
package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/schema"
	"github.com/gorilla/websocket"
)

// Event is one broadcast message: a named progress snapshot with a
// timestamp, mirroring the teacher's websocket Event shape.
type Event struct {
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

func (e *Event) marshal() ([]byte, error) { return json.Marshal(e) }

// Client is one subscribed dashboard connection.
type Client struct {
	ID       string
	conn     *websocket.Conn
	messages chan []byte
}

// SubscribeParams are the query parameters a dashboard client may send
// when opening its websocket connection, decoded with gorilla/schema.
type SubscribeParams struct {
	// MinIntervalMS throttles how often this client is sent
	// progress events; zero means every event is forwarded.
	MinIntervalMS int `schema:"min_interval_ms"`
}

var schemaDecoder = schema.NewDecoder()

func init() {
	schemaDecoder.IgnoreUnknownKeys(true)
}

// Hub manages websocket client connections and broadcasts Monte Carlo
// progress events to all of them (grounded on WebSocketHub's
// register/unregister/broadcast channel triad).
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Event
	register   chan *Client
	unregister chan *Client
	logger     *slog.Logger

	mu sync.RWMutex
}

// NewHub builds a Hub. A nil logger falls back to slog.Default().
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// Run drives the hub's event loop until ctx's done channel... this hub
// takes no context; callers that need shutdown should close done
// themselves and stop calling Broadcast — Run exits when done is closed.
func (h *Hub) Run(done <-chan struct{}) {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Debug("dashboard client registered", "client_id", client.ID)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.messages)
			}
			h.mu.Unlock()
			h.logger.Debug("dashboard client unregistered", "client_id", client.ID)

		case event := <-h.broadcast:
			data, err := event.marshal()
			if err != nil {
				h.logger.Error("failed to marshal dashboard event", "err", err)
				continue
			}
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.messages <- data:
				default:
					h.logger.Warn("client buffer full, dropping event", "client_id", client.ID)
				}
			}
			h.mu.RUnlock()

		case <-done:
			h.mu.Lock()
			for client := range h.clients {
				close(client.messages)
			}
			h.clients = make(map[*Client]bool)
			h.mu.Unlock()
			h.logger.Info("dashboard hub shutting down")
			return
		}
	}
}

// Broadcast queues event for delivery to every connected client,
// stamping the timestamp if the caller left it zero.
func (h *Hub) Broadcast(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("broadcast channel full, dropping event", "event_type", event.Type)
	}
}

// BroadcastProgress is the one event this module's caller actually
// needs: a Monte Carlo driver's running BER/FER estimate.
func (h *Hub) BroadcastProgress(trials, totalBits, bitErrors, frameErrs int, converged bool) {
	h.Broadcast(Event{
		Type: "progress_update",
		Data: map[string]interface{}{
			"trials":    trials,
			"totalBits": totalBits,
			"bitErrors": bitErrors,
			"frameErrs": frameErrs,
			"converged": converged,
		},
	})
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler returns an HTTP handler that upgrades incoming requests to
// websocket connections and registers them with the hub. Subscription
// parameters (currently just a per-client throttle) are parsed from the
// query string with gorilla/schema.
func (h *Hub) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var params SubscribeParams
		if err := schemaDecoder.Decode(&params, r.URL.Query()); err != nil {
			http.Error(w, fmt.Sprintf("bad subscribe parameters: %v", err), http.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			http.Error(w, "websocket upgrade failed", http.StatusBadRequest)
			return
		}
		client := &Client{ID: uuid.NewString(), conn: conn, messages: make(chan []byte, 256)}
		h.register <- client

		go func() {
			defer func() {
				h.unregister <- client
				_ = client.conn.Close()
			}()
			client.conn.SetReadLimit(1024)
			for {
				if _, _, err := client.conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		go h.writeLoop(client, params)
	})
}

func (h *Hub) writeLoop(client *Client, params SubscribeParams) {
	interval := time.Duration(params.MinIntervalMS) * time.Millisecond
	var last time.Time
	for msg := range client.messages {
		if interval > 0 {
			if since := time.Since(last); since < interval {
				continue
			}
			last = time.Now()
		}
		if err := client.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}
