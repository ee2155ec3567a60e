package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/colonyops/casetrack/internal/realtime"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	// MessageTasksChanged tells clients to refetch the task list.
	MessageTasksChanged = "tasks.changed"

	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	clientSendSize = 16
)

// Message is the JSON frame pushed to websocket clients.
type Message struct {
	Type string    `json:"type"`
	At   time.Time `json:"at"`
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub relays change signals from a notifier to every connected websocket
// client. Frames carry no task data; clients refetch.
type Hub struct {
	notifier realtime.Notifier
	upgrader websocket.Upgrader
	log      zerolog.Logger

	mu      sync.Mutex
	clients map[*wsClient]struct{}
	unsub   func()
}

// NewHub creates a hub fed by notifier.
func NewHub(notifier realtime.Notifier, log zerolog.Logger) *Hub {
	return &Hub{
		notifier: notifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		log:     log,
		clients: make(map[*wsClient]struct{}),
	}
}

// Start subscribes the hub to the notifier.
func (h *Hub) Start(ctx context.Context) error {
	unsub, err := h.notifier.Subscribe(ctx, func() {
		h.Broadcast(Message{Type: MessageTasksChanged, At: time.Now().UTC()})
	})
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.unsub = unsub
	h.mu.Unlock()
	return nil
}

// Close unsubscribes and disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	unsub := h.unsub
	h.unsub = nil
	clients := h.clients
	h.clients = make(map[*wsClient]struct{})
	h.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	for c := range clients {
		close(c.send)
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast queues msg for every client. Clients whose queue is full are
// disconnected.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error().Err(err).Msg("encode websocket message")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// ServeHTTP upgrades the request and keeps the connection until the client
// goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug().Err(err).Msg("websocket upgrade")
		return
	}

	c := &wsClient{conn: conn, send: make(chan []byte, clientSendSize)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go h.writeLoop(c)
	h.readLoop(c)
}

func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// readLoop drains incoming frames so control messages are processed.
func (h *Hub) readLoop(c *wsClient) {
	defer func() {
		h.remove(c)
		_ = c.conn.Close()
	}()

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

func (h *Hub) writeLoop(c *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
