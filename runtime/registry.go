package runtime

import (
	"direct-chat/contract"
	"direct-chat/domain"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type binding struct {
	conn domain.Connection
	sink contract.EventSink
}

// Registry maps every identity to its set of bound connections and keeps Presence in step:
// a user is present iff it owns at least one connection.
type Registry struct {
	mu          sync.RWMutex
	sessions    map[domain.UserID]map[uuid.UUID]binding // user -> its connections
	connections map[uuid.UUID]domain.UserID
	presence    Presence
}

func NewRegistry() *Registry {
	return &Registry{
		sessions:    make(map[domain.UserID]map[uuid.UUID]binding),
		connections: make(map[uuid.UUID]domain.UserID),
		presence:    make(Presence),
	}
}

// Bind registers a connection under its identity.
// It returns true when the connection is the first one of the user (offline -> online).
// Binding the same connection twice is a no-op returning false.
func (r *Registry) Bind(conn domain.Connection, sink contract.EventSink) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.connections[conn.ID]; ok {
		return false
	}
	bindings, ok := r.sessions[conn.UserID]
	if !ok {
		bindings = make(map[uuid.UUID]binding)
		r.sessions[conn.UserID] = bindings
	}
	bindings[conn.ID] = binding{conn: conn, sink: sink}
	r.connections[conn.ID] = conn.UserID

	first := len(bindings) == 1
	if first {
		r.presence.Add(conn.UserID)
	}
	return first
}

// Unbind removes a connection.
// last is true when the user has no connection left (online -> offline),
// ok is false when the connection was not bound.
func (r *Registry) Unbind(connID uuid.UUID) (userID domain.UserID, last bool, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok = r.connections[connID]
	if !ok {
		return "", false, false
	}
	delete(r.connections, connID)

	bindings := r.sessions[userID]
	delete(bindings, connID)
	if len(bindings) == 0 {
		// No empty sets left behind
		delete(r.sessions, userID)
		r.presence.Remove(userID)
		return userID, true, true
	}
	return userID, false, true
}

// SinksFor returns the sinks of every connection bound to userID, nil if offline.
func (r *Registry) SinksFor(userID domain.UserID) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bindings, ok := r.sessions[userID]
	if !ok {
		return nil
	}
	sinks := make([]contract.EventSink, 0, len(bindings))
	for _, b := range bindings {
		sinks = append(sinks, b.sink)
	}
	return sinks
}

// AllSinks returns the sinks of every bound connection except the excluded connection ids.
func (r *Registry) AllSinks(except ...uuid.UUID) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sinks := make([]contract.EventSink, 0, len(r.connections))
	for _, bindings := range r.sessions {
		for id, b := range bindings {
			if lo.Contains(except, id) {
				continue
			}
			sinks = append(sinks, b.sink)
		}
	}
	return sinks
}

// Online is the presence snapshot, sorted, without the excluded users.
func (r *Registry) Online(exclude ...domain.UserID) []domain.UserID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.presence.Snapshot(exclude...)
}

func (r *Registry) IsOnline(userID domain.UserID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.presence.Contains(userID)
}

func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections)
}

func (r *Registry) ConnectionsOf(userID domain.UserID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions[userID])
}
