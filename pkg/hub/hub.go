package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/agni-os/nova/internal/log"
)

const (
	defaultWriteWait = 10 * time.Second
	defaultPongWait  = 60 * time.Second

	// defaultMaxMessage allows for camera frames on the wire.
	defaultMaxMessage = 512 * 1024
)

// Hub maintains the set of active clients for one broadcast channel
// and fans messages out to them.
type Hub struct {
	name       string
	clients    map[*Client]bool
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	stop       chan struct{}
	stopOnce   sync.Once

	// Keepalive settings applied to every client connection.
	writeWait  time.Duration
	pongWait   time.Duration
	maxMessage int64

	mu sync.RWMutex

	// retained is the last JSON message, replayed to clients that
	// connect later so a fresh dashboard sees current state at once.
	retain   bool
	retained []byte
}

// Option configures a Hub.
type Option func(*Hub)

// WithRetention makes the hub replay the most recent JSON message to
// every newly registered client.
func WithRetention() Option {
	return func(h *Hub) { h.retain = true }
}

// WithTimeouts overrides the write deadline and the pong wait applied
// to client connections. Zero values keep the defaults.
func WithTimeouts(write, pong time.Duration) Option {
	return func(h *Hub) {
		if write > 0 {
			h.writeWait = write
		}
		if pong > 0 {
			h.pongWait = pong
		}
	}
}

// WithMessageLimit overrides the per-message read limit in bytes.
func WithMessageLimit(n int64) Option {
	return func(h *Hub) {
		if n > 0 {
			h.maxMessage = n
		}
	}
}

// New creates a named hub. Run must be called before clients attach.
func New(name string, opts ...Option) *Hub {
	h := &Hub{
		name:       name,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stop:       make(chan struct{}),
		writeWait:  defaultWriteWait,
		pongWait:   defaultPongWait,
		maxMessage: defaultMaxMessage,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// pingPeriod is the keepalive interval, kept under the pong wait so a
// healthy client always answers in time.
func (h *Hub) pingPeriod() time.Duration {
	return h.pongWait * 9 / 10
}

// Run drives the hub loop. Call it in a goroutine; it returns after
// Stop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			replay := h.retained
			h.mu.Unlock()
			if h.retain && replay != nil {
				select {
				case client.send <- NewJSONMessage(replay):
				default:
				}
			}
			log.Debug("hub client connected", "hub", h.name, "clients", count)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			log.Debug("hub client disconnected", "hub", h.name, "clients", count)

		case msg := <-h.broadcast:
			h.mu.Lock()
			if h.retain && msg.Type == JSONMessage {
				h.retained = msg.Data
			}
			for client := range h.clients {
				select {
				case client.send <- msg:
				default:
					// Slow consumer, cut it loose.
					close(client.send)
					delete(h.clients, client)
					log.Warn("dropped slow hub client", "hub", h.name)
				}
			}
			h.mu.Unlock()

		case <-h.stop:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Stop shuts the hub down and disconnects all clients. Idempotent.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
}

// Broadcast queues a message for all connected clients. Messages are
// dropped when the queue is full rather than blocking the caller.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		log.Warn("hub broadcast queue full, dropping message", "hub", h.name)
	}
}

// BroadcastJSON encodes v and broadcasts it as a text message.
func (h *Hub) BroadcastJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(NewJSONMessage(data))
	return nil
}

// BroadcastBinary broadcasts raw bytes, used for camera frames.
func (h *Hub) BroadcastBinary(data []byte) {
	h.Broadcast(NewBinaryMessage(data))
}

// ClientCount returns the number of attached clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
