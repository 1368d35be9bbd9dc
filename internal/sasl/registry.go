package sasl

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry maps mechanism names to engine factories. Names are
// case-insensitive.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry returns a registry holding CRAM-MD5, PLAIN and LOGIN.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(CRAMMD5, NewCRAMMD5)
	r.Register(PLAIN, NewPlain)
	r.Register(LOGIN, NewLogin)
	return r
}

// Register adds or replaces the factory for name.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[strings.ToUpper(name)] = factory
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[strings.ToUpper(name)]
	return ok
}

// Mechanisms returns the registered names in sorted order.
func (r *Registry) Mechanisms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New creates an engine for mechanism.
func (r *Registry) New(mechanism, protocol, serverName string, handler CallbackHandler) (Engine, error) {
	r.mu.RLock()
	factory, ok := r.factories[strings.ToUpper(mechanism)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMechanism, mechanism)
	}
	return factory(protocol, serverName, handler)
}

// Factory returns the factory registered for mechanism.
func (r *Registry) Factory(mechanism string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	factory, ok := r.factories[strings.ToUpper(mechanism)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMechanism, mechanism)
	}
	return factory, nil
}
