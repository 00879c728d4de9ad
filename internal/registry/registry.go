// Package registry tracks live client sessions and their bound nicknames.
package registry

import (
	"fmt"
	"sync"

	"github.com/herocast/herocast/domain"
)

type entry struct {
	client   domain.Client
	nickname string
}

// Removed describes a session deleted from the registry.
type Removed struct {
	Client domain.Client
	// Nickname is the bound nickname, or empty if the session was never
	// named.
	Nickname string
}

// DisplayName returns the name to use in a departure announcement: the
// bound nickname or a session-derived placeholder.
func (r Removed) DisplayName() string {
	if r.Nickname != "" {
		return r.Nickname
	}
	return fmt.Sprintf("Client %s", r.Client.ID())
}

// Registry is the set of connected sessions in registration order. All
// mutations are serialized by a single mutex so no caller observes a
// partially updated state.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]*entry
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		entries: make(map[string]*entry),
	}
}

// Add inserts a session in the unnamed state. Nickname binding is a
// separate second phase.
func (r *Registry) Add(client domain.Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := client.ID()
	if _, exists := r.entries[id]; exists {
		return false
	}

	r.entries[id] = &entry{client: client}
	r.order = append(r.order, id)
	return true
}

// Bind associates a nickname with a session. It fails if the session is
// unknown or already named.
func (r *Registry) Bind(id, nickname string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok || e.nickname != "" {
		return false
	}

	e.nickname = nickname
	return true
}

// Remove deletes a session. The second return value is false when the
// session was not present, which makes disconnect cleanup idempotent.
func (r *Registry) Remove(id string) (Removed, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return Removed{}, false
	}

	delete(r.entries, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	return Removed{Client: e.client, Nickname: e.nickname}, true
}

// Clients returns all connected clients in registration order.
func (r *Registry) Clients() []domain.Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clients := make([]domain.Client, 0, len(r.order))
	for _, id := range r.order {
		clients = append(clients, r.entries[id].client)
	}
	return clients
}

// Nicknames returns the bound nicknames in registration order. Unnamed
// sessions are excluded.
func (r *Registry) Nicknames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.order))
	for _, id := range r.order {
		if n := r.entries[id].nickname; n != "" {
			names = append(names, n)
		}
	}
	return names
}

// Len returns the number of connected sessions, named or not.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
