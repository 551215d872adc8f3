package realtime

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/platinummonkey/panelhub/pkg/observability"
	"github.com/sirupsen/logrus"
)

// Envelope is the frame delivered to clients
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Emitter delivers events to every live connection of an identity.
// Delivery is best effort: events for identities with no connection are dropped.
type Emitter interface {
	Emit(identityID int64, event string, payload any)
}

// Registry maps each identity to its live connections. One identity may hold
// several connections (tabs, devices); they all receive its events.
type Registry struct {
	mu      sync.RWMutex
	rooms   map[int64]map[string]*Connection // identityID -> connID -> connection
	logger  logrus.FieldLogger
	metrics *observability.Metrics
}

// NewRegistry constructs an empty registry
func NewRegistry(logger logrus.FieldLogger, metrics *observability.Metrics) *Registry {
	return &Registry{
		rooms:   make(map[int64]map[string]*Connection),
		logger:  logger,
		metrics: metrics,
	}
}

// Join adds the connection to its identity's room
func (r *Registry) Join(conn *Connection) {
	r.mu.Lock()
	room := r.rooms[conn.IdentityID]
	if room == nil {
		room = make(map[string]*Connection)
		r.rooms[conn.IdentityID] = room
	}
	room[conn.ID] = conn
	connections, identities := r.sizeLocked()
	r.mu.Unlock()

	r.metrics.SetRealtimeSize(connections, identities)
}

// Leave removes the connection from its identity's room. The room is dropped once empty.
func (r *Registry) Leave(conn *Connection) {
	r.mu.Lock()
	if room := r.rooms[conn.IdentityID]; room != nil {
		delete(room, conn.ID)
		if len(room) == 0 {
			delete(r.rooms, conn.IdentityID)
		}
	}
	connections, identities := r.sizeLocked()
	r.mu.Unlock()

	r.metrics.SetRealtimeSize(connections, identities)
}

// Emit sends event to every connection held by identityID
func (r *Registry) Emit(identityID int64, event string, payload any) {
	r.Deliver(identityID, event, payload)
}

// Deliver sends event to every connection held by identityID and returns how
// many connections accepted it.
func (r *Registry) Deliver(identityID int64, event string, payload any) int {
	logger := r.logger.WithFields(logrus.Fields{
		"user_id": identityID,
		"event":   event,
	})

	frame, err := json.Marshal(Envelope{Event: event, Data: payload})
	if err != nil {
		logger.WithError(err).Error("failed to encode realtime event")
		r.metrics.RealtimeEvent(event, "error")
		return 0
	}

	r.mu.RLock()
	conns := make([]*Connection, 0, len(r.rooms[identityID]))
	for _, conn := range r.rooms[identityID] {
		conns = append(conns, conn)
	}
	r.mu.RUnlock()

	if len(conns) == 0 {
		logger.Debug("no live connection, event dropped")
		r.metrics.RealtimeEvent(event, "dropped")
		return 0
	}

	delivered := 0
	for _, conn := range conns {
		if err := conn.Send(frame); err != nil {
			logger.WithError(err).WithField("conn_id", conn.ID).Warn("realtime send failed")
			continue
		}
		delivered++
	}

	if delivered == 0 {
		r.metrics.RealtimeEvent(event, "dropped")
	} else {
		r.metrics.RealtimeEvent(event, "delivered")
	}
	return delivered
}

// ConnectionCount returns the number of live connections
func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	connections, _ := r.sizeLocked()
	return connections
}

// IdentityCount returns the number of identities with at least one live connection
func (r *Registry) IdentityCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// IsOnline reports whether the identity holds a live connection
func (r *Registry) IsOnline(identityID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[identityID]) > 0
}

// CloseAll closes every connection and clears the registry
func (r *Registry) CloseAll() {
	r.mu.Lock()
	var conns []*Connection
	for _, room := range r.rooms {
		for _, conn := range room {
			conns = append(conns, conn)
		}
	}
	r.rooms = make(map[int64]map[string]*Connection)
	r.mu.Unlock()

	for _, conn := range conns {
		conn.Close(websocket.CloseGoingAway, "server shutdown")
	}
	r.metrics.SetRealtimeSize(0, 0)
}

func (r *Registry) sizeLocked() (connections, identities int) {
	for _, room := range r.rooms {
		connections += len(room)
	}
	return connections, len(r.rooms)
}
