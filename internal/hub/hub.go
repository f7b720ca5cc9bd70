// Package hub fans engine snapshots and notices out to streaming clients.
package hub

import (
	"log"
	"sync"

	"attendance/dashboard/internal/dashboard"
	"attendance/dashboard/internal/reconcile"
)

// Event names on the stream.
const (
	EventBoard  = "board"
	EventNotice = "notice"
)

// DefaultBuffer is the per-client queue length.
const DefaultBuffer = 32

// Board is the payload of a board event: the snapshot with its derived
// views.
type Board struct {
	reconcile.Snapshot
	Stats  dashboard.DailyStats  `json:"stats"`
	Recent []dashboard.Activity  `json:"recent"`
	Late   []dashboard.LateEntry `json:"late"`
}

// NewBoard derives the views of s.
func NewBoard(s reconcile.Snapshot) Board {
	return Board{
		Snapshot: s,
		Stats:    dashboard.Stats(s),
		Recent:   dashboard.RecentActivity(s),
		Late:     dashboard.LateEmployees(s),
	}
}

// Event is one message on the stream.
type Event struct {
	Name string
	Data interface{}
}

// Client receives events until it is unsubscribed or falls behind.
type Client struct {
	events chan Event
}

// Events is closed when the hub drops the client.
func (c *Client) Events() <-chan Event {
	return c.events
}

// Hub implements reconcile.Observer. Sends never block: a client whose
// queue is full is dropped and is expected to reconnect.
type Hub struct {
	log    *log.Logger
	buffer int

	mu      sync.Mutex
	clients map[*Client]struct{}
	last    *Board
	closed  bool
}

// New returns an empty hub.
func New(log *log.Logger, buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		log:     log,
		buffer:  buffer,
		clients: make(map[*Client]struct{}),
	}
}

// SnapshotChanged implements reconcile.Observer.
func (h *Hub) SnapshotChanged(s reconcile.Snapshot) {
	board := NewBoard(s)

	h.mu.Lock()
	defer h.mu.Unlock()

	h.last = &board
	h.broadcastLocked(Event{Name: EventBoard, Data: board})
}

// Notify implements reconcile.Observer.
func (h *Hub) Notify(n reconcile.Notice) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.broadcastLocked(Event{Name: EventNotice, Data: n})
}

// Subscribe registers a client. The latest board, if any, is queued first.
func (h *Hub) Subscribe() *Client {
	c := &Client{events: make(chan Event, h.buffer)}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(c.events)
		return c
	}
	if h.last != nil {
		c.events <- Event{Name: EventBoard, Data: *h.last}
	}
	h.clients[c] = struct{}{}

	return c
}

// Unsubscribe removes c. It is safe to call after the hub dropped c.
func (h *Hub) Unsubscribe(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.events)
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close drops every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.events)
	}
}

func (h *Hub) broadcastLocked(ev Event) {
	for c := range h.clients {
		select {
		case c.events <- ev:
		default:
			h.log.Printf("hub : dropping slow client after %d queued events", len(c.events))
			delete(h.clients, c)
			close(c.events)
		}
	}
}
