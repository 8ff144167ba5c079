package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/yigit/campuswell/internal/community"
)

// allCategories is the topic of clients following the whole board
const allCategories = ""

const broadcastBuffer = 256

// maxMissedEvents is how many events in a row a client may miss before it is disconnected
const maxMissedEvents = 3

// Hub maintains the set of active clients and pushes community events to them
type Hub struct {
	// Registered clients organized by followed category
	clients map[string]map[*Client]bool

	// Committed community events waiting to be fanned out
	broadcast chan community.Event

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Topic changes requested by clients
	resubscribe chan subscription

	// Closed once Run returns
	done chan struct{}

	// Mutex for concurrent access to clients map
	mu sync.RWMutex

	// Logger for Hub operations
	logger zerolog.Logger
}

type subscription struct {
	client   *Client
	category string
}

// NewHub creates a new Hub instance
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		broadcast:   make(chan community.Event, broadcastBuffer),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		resubscribe: make(chan subscription),
		done:        make(chan struct{}),
		clients:     make(map[string]map[*Client]bool),
		logger:      logger,
	}
}

// Run handles registrations and broadcasts until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case sub := <-h.resubscribe:
			h.moveClient(sub.client, sub.category)

		case evt := <-h.broadcast:
			h.broadcastEvent(evt)
		}
	}
}

// Publish queues an event for delivery. It never blocks; events are dropped when the queue is full.
func (h *Hub) Publish(evt community.Event) {
	select {
	case h.broadcast <- evt:
	default:
		h.logger.Warn().
			Str("type", string(evt.Type)).
			Str("postID", evt.PostID).
			Msg("Live feed queue full, event dropped")
	}
}

// send hands a request to the Run loop. It reports false once the hub stopped.
func send[T any](h *Hub, ch chan T, v T) bool {
	select {
	case ch <- v:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.add(client)
	h.logger.Debug().
		Str("category", client.category).
		Str("userID", client.userID).
		Msg("Client registered")
}

func (h *Hub) add(client *Client) {
	if _, ok := h.clients[client.category]; !ok {
		h.clients[client.category] = make(map[*Client]bool)
	}
	h.clients[client.category][client] = true
}

// remove drops client from its topic. Caller holds mu.
func (h *Hub) remove(client *Client) bool {
	topic, ok := h.clients[client.category]
	if !ok || !topic[client] {
		return false
	}
	delete(topic, client)
	if len(topic) == 0 {
		delete(h.clients, client.category)
	}
	return true
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.remove(client) {
		close(client.send)
		h.logger.Debug().
			Str("category", client.category).
			Str("userID", client.userID).
			Msg("Client unregistered")
	}
}

func (h *Hub) moveClient(client *Client, category string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.remove(client) {
		return
	}
	client.category = category
	h.add(client)
	h.ack(client)
}

// broadcastEvent delivers evt to clients following its category and to those following everything.
// A client with a full buffer misses the event; after maxMissedEvents misses in a row it is dropped.
func (h *Hub) broadcastEvent(evt community.Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		h.logger.Error().Err(err).Str("type", string(evt.Type)).Msg("Failed to marshal event for broadcast")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	var slow []*Client
	delivered, missed := 0, 0
	for _, topic := range []string{allCategories, evt.Category} {
		for client := range h.clients[topic] {
			select {
			case client.send <- data:
				client.missed = 0
				delivered++
			default:
				client.missed++
				missed++
				if client.missed >= maxMissedEvents {
					slow = append(slow, client)
				}
			}
		}
		if evt.Category == allCategories {
			break
		}
	}

	for _, client := range slow {
		if h.remove(client) {
			close(client.send)
		}
	}

	h.logger.Debug().
		Str("type", string(evt.Type)).
		Str("category", evt.Category).
		Int("delivered", delivered).
		Int("missed", missed).
		Int("disconnected", len(slow)).
		Msg("Event broadcasted")
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for topic, clients := range h.clients {
		for client := range clients {
			close(client.send)
		}
		delete(h.clients, topic)
	}
}

// ClientCount returns the number of connected clients following category.
// An empty category counts every client.
func (h *Hub) ClientCount(category string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if category != allCategories {
		return len(h.clients[category])
	}
	total := 0
	for _, clients := range h.clients {
		total += len(clients)
	}
	return total
}
