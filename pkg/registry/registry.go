// Package registry implements the static responder registry and its
// per-responder health bookkeeping.
package registry

import (
	"fmt"
	"sync"
)

const logPrefix = "registry:registry"

// Registry holds the fixed set of responders for the process lifetime.
// Descriptors are registered once at construction; only the health field
// mutates afterwards, guarded per responder so concurrent exchanges touching
// different responders never serialize on a shared lock.
type Registry struct {
	order   []string
	entries map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	desc ResponderDescriptor
}

// NewRegistry builds a Registry from descriptors in registration order.
func NewRegistry(descs []ResponderDescriptor) (*Registry, error) {
	r := &Registry{
		order:   make([]string, 0, len(descs)),
		entries: make(map[string]*entry, len(descs)),
	}
	for _, d := range descs {
		if d.Identifier == "" {
			return nil, fmt.Errorf("%s - responder with empty identifier (address %q)", logPrefix, d.Address)
		}
		if d.Address == "" {
			return nil, fmt.Errorf("%s - responder %q has no address", logPrefix, d.Identifier)
		}
		if _, exists := r.entries[d.Identifier]; exists {
			return nil, fmt.Errorf("%s - duplicate responder identifier %q", logPrefix, d.Identifier)
		}
		if d.Health == "" {
			d.Health = HealthUnknown
		}
		r.order = append(r.order, d.Identifier)
		r.entries[d.Identifier] = &entry{desc: d}
	}
	return r, nil
}

// Lookup returns a snapshot of the descriptor for the given identifier.
func (r *Registry) Lookup(identifier string) (ResponderDescriptor, bool) {
	e, ok := r.entries[identifier]
	if !ok {
		return ResponderDescriptor{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.desc, true
}

// All returns descriptor snapshots in registration order.
func (r *Registry) All() []ResponderDescriptor {
	out := make([]ResponderDescriptor, 0, len(r.order))
	for _, id := range r.order {
		e := r.entries[id]
		e.mu.Lock()
		out = append(out, e.desc)
		e.mu.Unlock()
	}
	return out
}

// Len returns the number of registered responders.
func (r *Registry) Len() int {
	return len(r.order)
}

// MarkHealthy records a successful call to the responder.
func (r *Registry) MarkHealthy(identifier string) {
	r.setHealth(identifier, HealthHealthy)
}

// MarkUnreachable records a failed delivery attempt to the responder.
func (r *Registry) MarkUnreachable(identifier string) {
	r.setHealth(identifier, HealthUnreachable)
}

func (r *Registry) setHealth(identifier string, h HealthState) {
	e, ok := r.entries[identifier]
	if !ok {
		return
	}
	e.mu.Lock()
	e.desc.Health = h
	e.mu.Unlock()
}
