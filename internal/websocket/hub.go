// Package websocket provides the live dashboard channel: a hub of connected
// clients and typed event broadcasts scoped to the owning account.
package websocket

import (
	"context"
	"log/slog"
	"sync"
)

// envelope is an encoded message and the owner it is scoped to. An empty
// owner reaches every client.
type envelope struct {
	owner string
	data  []byte
}

// Hub tracks connected dashboard clients and fans events out to the clients
// subscribed to the event's owner.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan envelope
	register   chan *Client
	unregister chan *Client

	// mu guards clients and each client's owner
	mu sync.RWMutex
}

// NewHub creates a new WebSocket hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan envelope, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run processes registrations and broadcasts until ctx is cancelled, then
// closes every client. Call it in its own goroutine.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				h.drop(client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			owner, total := client.owner, len(h.clients)
			h.mu.Unlock()
			slog.Debug("WebSocket client connected", "owner", owner, "total", total)

		case client := <-h.unregister:
			h.mu.Lock()
			if h.clients[client] {
				h.drop(client)
			}
			total := len(h.clients)
			h.mu.Unlock()
			slog.Debug("WebSocket client disconnected", "total", total)

		case env := <-h.broadcast:
			h.deliver(env)
		}
	}
}

func (h *Hub) deliver(env envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		if env.owner != "" && client.owner != env.owner {
			continue
		}
		select {
		case client.send <- env.data:
		default:
			slog.Warn("WebSocket client too slow, disconnecting", "owner", client.owner)
			h.drop(client)
		}
	}
}

// drop removes a client. h.mu must be held for writing.
func (h *Hub) drop(client *Client) {
	close(client.send)
	delete(h.clients, client)
}

// Broadcast queues a message for every connected client.
func (h *Hub) Broadcast(message []byte) {
	h.enqueue(envelope{data: message})
}

// BroadcastTo queues a message for the clients subscribed to owner. An
// empty owner is the same as Broadcast.
func (h *Hub) BroadcastTo(owner string, message []byte) {
	h.enqueue(envelope{owner: owner, data: message})
}

func (h *Hub) enqueue(env envelope) {
	select {
	case h.broadcast <- env:
	default:
		slog.Warn("Broadcast channel full, dropping message", "owner", env.owner)
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Client is one dashboard connection. A client without an owner only
// receives unscoped events such as bulk sync summaries.
type Client struct {
	hub   *Hub
	send  chan []byte
	owner string
}

// NewClient creates a client subscribed to owner's events.
func NewClient(hub *Hub, owner string) *Client {
	return &Client{
		hub:   hub,
		send:  make(chan []byte, 256),
		owner: owner,
	}
}

// Send returns the send channel for the client.
func (c *Client) Send() chan []byte {
	return c.send
}

// Owner returns the owner the client is subscribed to.
func (c *Client) Owner() string {
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	return c.owner
}

// Subscribe switches the client to owner's events.
func (c *Client) Subscribe(owner string) {
	c.hub.mu.Lock()
	c.owner = owner
	c.hub.mu.Unlock()
}

// Reply queues a message for this client only. It reports false when the
// client is gone or its buffer is full.
func (c *Client) Reply(msg Message) bool {
	data, err := msg.JSON()
	if err != nil {
		return false
	}
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if !c.hub.clients[c] {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}
