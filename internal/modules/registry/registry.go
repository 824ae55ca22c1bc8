package registry

import "sync"

// Registry is the bidirectional map between transport connection ids and
// resolved user identities. It owns nothing beyond the mapping: dropping a
// connection from room membership is the room manager's job, triggered by
// the cleanup callbacks registered here.
type Registry struct {
	mu       sync.RWMutex
	users    map[string]string   // connID -> userID
	conns    map[string][]string // userID -> connIDs (a user may have several tabs)
	cleanups map[string][]func()
}

func New() *Registry {
	return &Registry{
		users:    make(map[string]string),
		conns:    make(map[string][]string),
		cleanups: make(map[string][]func()),
	}
}

// Register records the identity resolved for a connection. The identity is
// set once; re-registering the same connection is ignored.
func (r *Registry) Register(connID, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[connID]; ok {
		return
	}
	r.users[connID] = userID
	r.conns[userID] = append(r.conns[userID], connID)
}

// Lookup resolves a connection id to its user identity.
func (r *Registry) Lookup(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	userID, ok := r.users[connID]
	return userID, ok
}

// Connections returns the live connection ids of a user.
func (r *Registry) Connections(userID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.conns[userID]))
	copy(out, r.conns[userID])
	return out
}

// OnClose appends fn to the connection's cleanup list. The list runs
// synchronously inside Unregister, most recent first, so later
// registrations may depend on earlier ones still being intact.
func (r *Registry) OnClose(connID string, fn func()) {
	r.mu.Lock()
	r.cleanups[connID] = append(r.cleanups[connID], fn)
	r.mu.Unlock()
}

// Unregister runs the connection's cleanup list and drops the mapping.
func (r *Registry) Unregister(connID string) {
	r.mu.Lock()
	fns := r.cleanups[connID]
	delete(r.cleanups, connID)
	userID, ok := r.users[connID]
	if ok {
		delete(r.users, connID)
		list := r.conns[userID]
		for i, id := range list {
			if id == connID {
				r.conns[userID] = append(list[:i], list[i+1:]...)
				break
			}
		}
		if len(r.conns[userID]) == 0 {
			delete(r.conns, userID)
		}
	}
	r.mu.Unlock()

	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}
