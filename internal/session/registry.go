package session

import (
	"sync"

	"github.com/ashureev/wellness-companion/internal/domain"
)

// Store looks sessions up by user ID.
type Store interface {
	// Get returns the session for userID, if one has been started.
	Get(userID string) (*Session, bool)

	// GetOrCreate returns the existing session for userID, or atomically
	// creates one with prefs. The boolean reports whether it was created.
	GetOrCreate(userID string, prefs domain.Preferences) (*Session, bool)
}

// Registry is an in-process Store. Sessions live until the process exits.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Get implements Store.
func (r *Registry) Get(userID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[userID]
	return s, ok
}

// GetOrCreate implements Store.
func (r *Registry) GetOrCreate(userID string, prefs domain.Preferences) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[userID]; ok {
		return s, false
	}
	s := New(userID, prefs)
	r.sessions[userID] = s
	return s, true
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

var _ Store = (*Registry)(nil)
