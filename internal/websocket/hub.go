package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"
)

// Event is a production line notification pushed to connected dashboards
type Event struct {
	Type   string      `json:"type"` // UNIT_CREATED, STEP_COMPLETED, UNIT_COMPLETED, FIRMWARE_INSTALLED
	Serial string      `json:"serial,omitempty"`
	UnitID string      `json:"unitId,omitempty"`
	At     time.Time   `json:"at"`
	Data   interface{} `json:"data,omitempty"`
}

// Hub maintains the set of active clients and broadcasts production events
type Hub struct {
	// Registered clients map: StationID -> Client
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte

	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 64),
		clients:    make(map[string]*Client),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if client.StationID != "" {
				// A re-identifying connection may still be in the map under
				// its old ID; drop every stale entry for this connection so
				// one client never holds two keys.
				for id, existing := range h.clients {
					if existing == client && id != client.StationID {
						delete(h.clients, id)
					}
				}
				// If a station reconnects, close the old connection
				if old, ok := h.clients[client.StationID]; ok && old != client {
					close(old.send)
				}
				h.clients[client.StationID] = client
				log.Printf("📟 Station connected: %s", client.StationID)
			}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			// Remove by connection, not by current ID: the ID may have
			// changed since registration. Close the channel only once.
			removed := false
			for id, existing := range h.clients {
				if existing == client {
					delete(h.clients, id)
					removed = true
				}
			}
			if removed {
				close(client.send)
				log.Printf("📴 Station disconnected: %s", client.StationID)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.RLock()
			for _, client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Buffer full or client dead; drop for this client
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Broadcast pushes an event to every connected station
func (h *Hub) Broadcast(event Event) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	msg, err := json.Marshal(event)
	if err != nil {
		log.Printf("Error marshaling event: %v", err)
		return
	}

	select {
	case h.broadcast <- msg:
	default:
		log.Printf("⚠️  Event channel full, dropping %s", event.Type)
	}
}
