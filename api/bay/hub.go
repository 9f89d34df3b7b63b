package bay

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/kristi80/Datakomm-prosjekt-2022/core/logger"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/model"
)

// Hub maintains the set of stream clients and broadcasts snapshots to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.Mutex
	log        logger.Logger
}

// NewHub initializes a new Hub.
func NewHub(log logger.Logger) *Hub {
	return &Hub{
		broadcast:  make(chan []byte, 16),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run handles registrations and broadcasts until ctx is done. Every client
// is disconnected on return.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			h.log.Infof("stream hub stopped")
			return
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			h.log.Debugf("stream client connected")
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.log.Debugf("stream client disconnected")
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					close(c.send)
					delete(h.clients, c)
				}
			}
			h.mu.Unlock()
		}
	}
}

// add registers c. It reports false once the hub has stopped.
func (h *Hub) add(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) remove(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Observe queues s for broadcast. A full queue drops the snapshot; the next
// cycle supersedes it.
func (h *Hub) Observe(_ context.Context, s model.Snapshot) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- payload:
	default:
		h.log.Debugf("stream backlog full, cycle %d dropped", s.Seq)
	}
	return nil
}

// Follow broadcasts every snapshot received on sub until ctx is done or sub
// is closed.
func (h *Hub) Follow(ctx context.Context, sub <-chan model.Snapshot) {
	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-sub:
			if !ok {
				return
			}
			if err := h.Observe(ctx, s); err != nil {
				h.log.Errorf("stream encode: %v", err)
			}
		}
	}
}
