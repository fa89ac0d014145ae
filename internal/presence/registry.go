// Package presence tracks which users currently hold an open, authenticated
// connection. Registry state lives only in memory: after a restart every user
// is offline until they re-authenticate.
package presence

import (
	"sync"

	"github.com/google/uuid"

	"github.com/whisper-chat/relay/internal/protocol"
)

// Conn is the write side of an authenticated connection. Push must not
// block; a false return means the event was dropped.
type Conn interface {
	Push(evt *protocol.Event) bool
}

// Registry maps user IDs to their single active connection. Most recent
// connection wins: registering over an existing entry replaces it without
// closing the old connection.
type Registry struct {
	mu    sync.RWMutex
	conns map[uuid.UUID]Conn
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[uuid.UUID]Conn)}
}

func (r *Registry) Register(userID uuid.UUID, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[userID] = conn
}

// Unregister removes the mapping only if conn is still the registered
// connection. A stale connection's disconnect must not evict its replacement.
// Reports whether an entry was removed.
func (r *Registry) Unregister(userID uuid.UUID, conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.conns[userID]; ok && cur == conn {
		delete(r.conns, userID)
		return true
	}
	return false
}

func (r *Registry) Lookup(userID uuid.UUID) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[userID]
	return conn, ok
}

// Len returns the number of users currently online.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
