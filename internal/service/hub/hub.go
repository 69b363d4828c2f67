// Package hub pushes download progress to every connected browser.
package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"camdash/internal/logger"
	"camdash/internal/service/progress"
)

const writeWait = 10 * time.Second

// Hub owns the set of websocket clients. All mutations go through Run.
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	mutex      sync.RWMutex
	logger     *logger.Logger

	last    []byte
	onCount func(int)
}

// NewHub creates a hub; call Run to start it.
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		logger:     log,
	}
}

// OnCount registers a callback receiving the client count after each change.
// It must be set before Run.
func (h *Hub) OnCount(fn func(int)) {
	h.onCount = fn
}

// Run serves registrations and broadcasts until ctx is cancelled, then
// disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for client := range h.clients {
				_ = client.Close()
				delete(h.clients, client)
			}
			h.mutex.Unlock()
			h.counted()
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("progress client connected. Total: %d", total)
			if h.last != nil {
				h.send(client, h.last)
			}
			h.counted()

		case client := <-h.unregister:
			h.drop(client)
			h.logger.Info("progress client disconnected. Total: %d", h.ClientCount())

		case message := <-h.broadcast:
			h.last = message
			h.mutex.RLock()
			clients := make([]*websocket.Conn, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mutex.RUnlock()
			for _, client := range clients {
				h.send(client, message)
			}
		}
	}
}

func (h *Hub) send(client *websocket.Conn, message []byte) {
	_ = client.SetWriteDeadline(time.Now().Add(writeWait))
	if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
		h.logger.Warning("error sending progress: %v", err)
		h.drop(client)
	}
}

func (h *Hub) drop(client *websocket.Conn) {
	h.mutex.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
		_ = client.Close()
	}
	h.mutex.Unlock()
	if ok {
		h.counted()
	}
}

func (h *Hub) counted() {
	if h.onCount != nil {
		h.onCount(h.ClientCount())
	}
}

// Register adds a connected client. It is a no-op once the hub stopped.
func (h *Hub) Register(client *websocket.Conn) {
	select {
	case h.register <- client:
	case <-h.done:
		_ = client.Close()
	}
}

// Unregister removes and closes a client.
func (h *Hub) Unregister(client *websocket.Conn) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast sends a text message to every client.
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	case <-h.done:
	}
}

// BroadcastSnapshot is a progress.Listener.
func (h *Hub) BroadcastSnapshot(s progress.Snapshot) {
	message, err := json.Marshal(s)
	if err != nil {
		h.logger.Error("failed to encode progress snapshot: %v", err)
		return
	}
	h.Broadcast(message)
}

// ClientCount is the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}
