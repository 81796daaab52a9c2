package realtime

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"wastelog/backend/services/dashboard-service/internal/domain"
	"wastelog/backend/services/dashboard-service/internal/observability"
)

// Hub fans the latest vehicle location out to attached browsers and keeps the
// last known position for late joiners.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	last    *domain.Location
	logger  *zap.Logger
}

// NewHub builds an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		logger:  logger,
	}
}

// Publish stores loc as the latest position and broadcasts it.
func (h *Hub) Publish(loc domain.Location) {
	payload, err := json.Marshal(loc)
	if err != nil {
		h.logger.Error("failed to encode location", zap.Error(err))
		return
	}

	h.mu.Lock()
	h.last = &loc
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.Send(payload)
	}
}

// Last returns the most recent location, if any arrived.
func (h *Hub) Last() (domain.Location, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.last == nil {
		return domain.Location{}, false
	}
	return *h.last, true
}

// Len returns the number of attached clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	h.clients[c.ID()] = c
	n := len(h.clients)
	last := h.last
	h.mu.Unlock()

	observability.SetBrowserClients(n)
	if last != nil {
		if payload, err := json.Marshal(last); err == nil {
			c.Send(payload)
		}
	}
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	delete(h.clients, id)
	n := len(h.clients)
	h.mu.Unlock()
	observability.SetBrowserClients(n)
}
