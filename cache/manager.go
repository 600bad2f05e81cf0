package cache

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/andrewmolyneux/reactbot/backends"
)

var (
	// ErrNotCached is returned by GetCached when a key has never been
	// successfully fetched. Callers must decline to respond rather than
	// use an empty URL.
	ErrNotCached = errors.New("no cached url for key")

	// ErrNothingToWarm is returned by BuildCache when no pairs were given.
	ErrNothingToWarm = errors.New("no backend pairs to warm")
)

// Manager combines the backend registry and the store and owns the warm-up
// and refresh policies. Lookups are served from the store without I/O;
// freshness is maintained by refreshes issued after each use.
type Manager struct {
	registry *backends.Registry
	store    *Store
	inflight singleflight.Group
	log      zerolog.Logger
}

// New creates a manager over the given registry. No network calls happen
// here; the store starts empty until BuildCache runs.
func New(registry *backends.Registry, log zerolog.Logger) *Manager {
	return &Manager{
		registry: registry,
		store:    NewStore(),
		log:      log.With().Str("component", "cache").Logger(),
	}
}

// Store exposes the underlying store for status reporting.
func (m *Manager) Store() *Store {
	return m.store
}

// BuildCache performs the initial warm-up: one fetch per distinct pair, all
// in flight concurrently, best-effort. A pair whose fetch fails is logged
// and left unpopulated so one broken backend cannot take down the rest.
// Returns only after every attempt has resolved.
func (m *Manager) BuildCache(ctx context.Context, pairs []Key) error {
	distinct := make(map[Key]struct{}, len(pairs))
	for _, p := range pairs {
		distinct[p] = struct{}{}
	}
	if len(distinct) == 0 {
		return ErrNothingToWarm
	}

	m.log.Info().Int("pairs", len(distinct)).Msg("warming cache")

	var wg sync.WaitGroup
	for pair := range distinct {
		wg.Add(1)
		go func(pair Key) {
			defer wg.Done()
			if err := m.RefreshCache(ctx, pair.Backend, pair.Endpoint); err != nil {
				m.log.Warn().Err(err).Stringer("pair", pair).Msg("warm-up fetch failed")
			}
		}(pair)
	}
	wg.Wait()

	m.log.Info().Int("cached", m.store.Len()).Msg("cache warm-up complete")
	return nil
}

// GetCached returns the cached URL for the pair. It never performs I/O and
// never waits on an in-flight refresh; an unpopulated pair yields
// ErrNotCached.
func (m *Manager) GetCached(backend, endpoint string) (string, error) {
	url, exists := m.store.Get(Key{Backend: backend, Endpoint: endpoint})
	if !exists {
		return "", ErrNotCached
	}
	return url, nil
}

// RefreshCache fetches a new URL for the pair and replaces the stored value
// on success. On failure the previous value stays available. Concurrent
// refreshes for the same key attach to the single in-flight fetch, so a
// burst of invocations produces at most one outbound call per key; keys
// refresh independently of each other.
func (m *Manager) RefreshCache(ctx context.Context, backend, endpoint string) error {
	key := Key{Backend: backend, Endpoint: endpoint}

	url, err, shared := m.inflight.Do(key.String(), func() (interface{}, error) {
		fetched, err := m.registry.Fetch(ctx, backend, endpoint)
		if err != nil {
			return "", err
		}
		m.store.Put(key, fetched)
		return fetched, nil
	})
	if err != nil {
		return err
	}

	m.log.Debug().
		Stringer("pair", key).
		Str("url", url.(string)).
		Bool("shared", shared).
		Msg("cache refreshed")
	return nil
}
