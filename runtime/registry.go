package runtime

import (
	"sync"

	"chathub/contract"
	"chathub/domain"
)

// Registry maps live connections to their event sinks. Unlike the room
// tables it is accessed from gateway goroutines concurrently with the
// fanout worker, so it guards itself.
type Registry struct {
	mu       sync.RWMutex
	sessions map[domain.ConnID]contract.EventSink
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[domain.ConnID]contract.EventSink)}
}

// Subscribe registers a connection's active sink.
func (r *Registry) Subscribe(conn domain.ConnID, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[conn] = sink
}

// Unsubscribe removes a connection's sink so no further events are
// delivered to it.
func (r *Registry) Unsubscribe(conn domain.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, conn)
}

func (r *Registry) Sink(conn domain.ConnID) (contract.EventSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sink, ok := r.sessions[conn]
	return sink, ok
}

// All returns every live sink, used for broadcasts addressed to everyone.
func (r *Registry) All() []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sinks := make([]contract.EventSink, 0, len(r.sessions))
	for _, sink := range r.sessions {
		sinks = append(sinks, sink)
	}
	return sinks
}

// Len reports the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
