package server

import "sync"

// Registry maps authenticated usernames to their live sessions. It is the
// only place a username can be turned into a deliverable connection; the
// domain model itself never holds session references.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

func (r *Registry) Add(username string, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[username] = s
}

// Remove drops the binding only if it still points at the given session,
// so a stale cleanup cannot evict a newer login.
func (r *Registry) Remove(username string, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessions[username] == s {
		delete(r.sessions, username)
	}
}

func (r *Registry) Get(username string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[username]
	return s, ok
}

func (r *Registry) All() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	return all
}
