// Package registry provides the tag-keyed factories for condition and
// action kinds. Built-ins register at startup through explicit
// registration calls; there is no filesystem discovery.
package registry

import (
	"log/slog"
	"maps"
	"slices"
	"sync"
)

// Registry is a process-wide factory keyed by tag. Registering an
// existing tag replaces the previous entry and logs a warning, so the
// registry holds exactly one entry per tag; built-ins register before
// user-supplied kinds, which makes the replacement order deterministic.
type Registry[T any] struct {
	name    string
	mu      sync.RWMutex
	entries map[string]T
	logger  *slog.Logger
}

// New creates an empty registry. The name appears in log output only.
func New[T any](name string) *Registry[T] {
	return &Registry[T]{
		name:    name,
		entries: make(map[string]T),
		logger:  slog.Default().WithGroup("registry").With("registry", name),
	}
}

// Register adds or replaces the entry for a tag.
func (r *Registry[T]) Register(tag string, entry T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[tag]; exists {
		r.logger.Warn("Replacing existing registration", "tag", tag)
	}
	r.entries[tag] = entry
}

// Get retrieves the entry for a tag.
func (r *Registry[T]) Get(tag string) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[tag]
	return entry, ok
}

// Tags returns the registered tags in sorted order.
func (r *Registry[T]) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.entries))
}

// Len returns the number of registered entries.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
