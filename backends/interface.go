// Package backends defines the common interface for media-providing APIs
// and the registry that maps backend names to their fetch clients.
package backends

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrUnknownBackend is returned when a backend name has no registered client.
	ErrUnknownBackend = errors.New("unknown backend")

	// ErrUnknownEndpoint is returned when a backend does not serve the
	// requested endpoint.
	ErrUnknownEndpoint = errors.New("unknown endpoint")

	// ErrBadStatus is returned when a backend responds with a non-success
	// HTTP status.
	ErrBadStatus = errors.New("unexpected response status")

	// ErrMalformedResponse is returned when a backend's response cannot be
	// decoded or carries no usable media URL.
	ErrMalformedResponse = errors.New("malformed backend response")
)

// Backend is the minimal interface every media backend must implement.
// A Fetch performs exactly one outbound call and returns a single media URL;
// retry policy belongs to the caller.
type Backend interface {
	// Name returns the backend identifier used in reaction definitions
	// (e.g. "giphy", "tenor").
	Name() string

	// Fetch returns a fresh media URL for the given endpoint.
	Fetch(ctx context.Context, endpoint string) (string, error)
}

// Registry manages the configured media backends. It is populated once at
// startup and read-only afterwards, so lookups need no synchronization.
type Registry struct {
	backends map[string]Backend
}

// NewRegistry creates an empty backend registry.
func NewRegistry() *Registry {
	return &Registry{
		backends: make(map[string]Backend),
	}
}

// Register adds a backend to the registry, keyed by its name.
func (r *Registry) Register(b Backend) {
	r.backends[b.Name()] = b
}

// Get retrieves a backend by name.
func (r *Registry) Get(name string) (Backend, bool) {
	b, exists := r.backends[name]
	return b, exists
}

// List returns all registered backend names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	return names
}

// Fetch resolves the named backend and delegates to its Fetch.
func (r *Registry) Fetch(ctx context.Context, backend, endpoint string) (string, error) {
	b, exists := r.Get(backend)
	if !exists {
		return "", fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
	return b.Fetch(ctx, endpoint)
}
