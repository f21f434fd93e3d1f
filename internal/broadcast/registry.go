package broadcast

import "sync"

// ConnectionRegistry tracks live sessions per user. The hub owns no session
// state itself; substituting a shared registry makes presence queries work
// across process instances.
type ConnectionRegistry interface {
	Register(connID, userID, tenantID string)
	// Unregister removes the session and reports whether it was the user's
	// last active one, along with the identity it carried.
	Unregister(connID string) (userID, tenantID string, wasLast bool)
	ListByUser(userID string) []string
	IsOnline(userID string) bool
}

type session struct {
	userID   string
	tenantID string
}

// MemoryRegistry is the in-process ConnectionRegistry used by default.
type MemoryRegistry struct {
	mu       sync.RWMutex
	sessions map[string]session
	byUser   map[string]map[string]struct{}
}

// NewMemoryRegistry creates an empty MemoryRegistry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		sessions: make(map[string]session),
		byUser:   make(map[string]map[string]struct{}),
	}
}

func (r *MemoryRegistry) Register(connID, userID, tenantID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[connID] = session{userID: userID, tenantID: tenantID}
	if userID == "" {
		return
	}
	if r.byUser[userID] == nil {
		r.byUser[userID] = make(map[string]struct{})
	}
	r.byUser[userID][connID] = struct{}{}
}

func (r *MemoryRegistry) Unregister(connID string) (string, string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[connID]
	if !ok {
		return "", "", false
	}
	delete(r.sessions, connID)

	if sess.userID == "" {
		return "", sess.tenantID, false
	}
	conns := r.byUser[sess.userID]
	delete(conns, connID)
	if len(conns) == 0 {
		delete(r.byUser, sess.userID)
		return sess.userID, sess.tenantID, true
	}
	return sess.userID, sess.tenantID, false
}

func (r *MemoryRegistry) ListByUser(userID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := r.byUser[userID]
	out := make([]string, 0, len(conns))
	for connID := range conns {
		out = append(out, connID)
	}
	return out
}

func (r *MemoryRegistry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID]) > 0
}
