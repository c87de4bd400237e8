package wallet

import (
	"errors"
	"sync"
)

// ErrAlreadyConnected is returned when an address already has a session.
var ErrAlreadyConnected = errors.New("wallet: address already connected")

// Registry tracks connected sessions by address.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Connect registers s under its address.
func (r *Registry) Connect(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.Address()]; ok {
		return ErrAlreadyConnected
	}
	r.sessions[s.Address()] = s
	return nil
}

// Disconnect drops the session of address and reports whether one existed.
func (r *Registry) Disconnect(address string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[address]
	delete(r.sessions, address)
	return ok
}

// Lookup returns the session connected under address.
func (r *Registry) Lookup(address string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[address]
	return s, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
