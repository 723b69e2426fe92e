package services

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// ============================================================
// SSE Hub: live queue updates per clinic
// ============================================================

// Queue event names
const (
	EventQueueCreated = "queue.created"
	EventEntryAdded   = "queue.entry_added"
	EventAdvanced     = "queue.advanced"
	EventEntryRemoved = "queue.entry_removed"
	EventQueueClosed  = "queue.closed"
)

// SSEEvent represents a server-sent event
type SSEEvent struct {
	Event    string      `json:"event"`
	ClinicID uint        `json:"clinic_id"`
	Data     interface{} `json:"data"`
}

// SSEClient represents a connected SSE client (a staff screen or a waiting-room display)
type SSEClient struct {
	ID       string
	UserID   uint
	ClinicID uint
	Channel  chan SSEEvent
}

// SSEHub manages all SSE connections
type SSEHub struct {
	mu      sync.RWMutex
	clients map[string]*SSEClient
}

// NewSSEHub creates a new SSE hub
func NewSSEHub() *SSEHub {
	return &SSEHub{
		clients: make(map[string]*SSEClient),
	}
}

// Register adds a new SSE client
func (h *SSEHub) Register(client *SSEClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
	log.Debug().
		Str("client_id", client.ID).
		Uint("clinic_id", client.ClinicID).
		Int("total", len(h.clients)).
		Msg("sse client registered")
}

// Unregister removes an SSE client and closes its channel
func (h *SSEHub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client, ok := h.clients[clientID]; ok {
		close(client.Channel)
		delete(h.clients, clientID)
		log.Debug().Str("client_id", clientID).Int("total", len(h.clients)).Msg("sse client unregistered")
	}
}

// BroadcastToClinic sends an event to every client of one clinic. Slow
// clients with a full channel miss the event rather than block the sender.
func (h *SSEHub) BroadcastToClinic(clinicID uint, event SSEEvent) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	event.ClinicID = clinicID
	sent := 0
	for _, client := range h.clients {
		if client.ClinicID != clinicID {
			continue
		}
		select {
		case client.Channel <- event:
			sent++
		default:
			log.Warn().Str("client_id", client.ID).Msg("sse channel full, event dropped")
		}
	}
	if sent > 0 {
		log.Debug().Str("event", event.Event).Uint("clinic_id", clinicID).Int("clients", sent).Msg("sse broadcast")
	}
	return sent
}

// GetClientCount returns the number of connected clients
func (h *SSEHub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
