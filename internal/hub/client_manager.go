package hub

import (
	"sync"

	"livetext/internal/metrics"
)

// ClientManager tracks the currently registered broadcast clients. It is
// shared by the Server, which registers and unregisters, and the
// Broadcaster, which iterates snapshots.
type ClientManager struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	metrics *metrics.HubMetrics
}

func NewClientManager(m *metrics.HubMetrics) *ClientManager {
	return &ClientManager{
		clients: make(map[*Client]struct{}),
		metrics: m,
	}
}

// register reports false if c is already a member.
func (m *ClientManager) register(c *Client) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.clients[c]; ok {
		return false
	}
	m.clients[c] = struct{}{}
	m.metrics.ActiveConnections.Inc()
	m.metrics.ConnectionsTotal.Inc()
	return true
}

// unregister reports false if c was not a member.
func (m *ClientManager) unregister(c *Client) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.clients[c]; !ok {
		return false
	}
	delete(m.clients, c)
	m.metrics.ActiveConnections.Dec()
	return true
}

// Snapshot returns the current members. The slice is a copy, so callers
// may iterate it while clients come and go.
func (m *ClientManager) Snapshot() []*Client {
	m.mu.RLock()
	defer m.mu.RUnlock()

	clients := make([]*Client, 0, len(m.clients))
	for c := range m.clients {
		clients = append(clients, c)
	}
	return clients
}

func (m *ClientManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// CloseAll closes every member's transport. Handlers observe the closure
// and unregister on their own.
func (m *ClientManager) CloseAll() {
	for _, c := range m.Snapshot() {
		c.Close()
	}
}
