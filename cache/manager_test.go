package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/andrewmolyneux/reactbot/backends"
)

// fakeBackend serves scripted fetch results and records call pressure.
type fakeBackend struct {
	name    string
	fetch   func(ctx context.Context, endpoint string) (string, error)
	calls   atomic.Int64
	current atomic.Int64
	maxSeen atomic.Int64
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) Fetch(ctx context.Context, endpoint string) (string, error) {
	f.calls.Add(1)
	cur := f.current.Add(1)
	for {
		max := f.maxSeen.Load()
		if cur <= max || f.maxSeen.CompareAndSwap(max, cur) {
			break
		}
	}
	defer f.current.Add(-1)
	return f.fetch(ctx, endpoint)
}

func newManager(t *testing.T, bs ...backends.Backend) *Manager {
	t.Helper()
	reg := backends.NewRegistry()
	for _, b := range bs {
		reg.Register(b)
	}
	return New(reg, zerolog.Nop())
}

func TestGetCachedNeverFetched(t *testing.T) {
	m := newManager(t)

	_, err := m.GetCached("giphy", "hug")
	require.ErrorIs(t, err, ErrNotCached)
}

func TestBuildCacheBestEffort(t *testing.T) {
	// One endpoint succeeds, one fails; the failure must not prevent the
	// healthy pair from being cached.
	giphy := &fakeBackend{name: "giphy", fetch: func(_ context.Context, endpoint string) (string, error) {
		if endpoint == "slap" {
			return "", fmt.Errorf("%w: 500", backends.ErrBadStatus)
		}
		return "https://x/1.gif", nil
	}}
	m := newManager(t, giphy)

	err := m.BuildCache(context.Background(), []Key{
		{Backend: "giphy", Endpoint: "hug"},
		{Backend: "giphy", Endpoint: "slap"},
	})
	require.NoError(t, err)

	url, err := m.GetCached("giphy", "hug")
	require.NoError(t, err)
	require.Equal(t, "https://x/1.gif", url)

	_, err = m.GetCached("giphy", "slap")
	require.ErrorIs(t, err, ErrNotCached)
}

func TestBuildCacheDeduplicatesPairs(t *testing.T) {
	giphy := &fakeBackend{name: "giphy", fetch: func(context.Context, string) (string, error) {
		return "https://x/1.gif", nil
	}}
	m := newManager(t, giphy)

	pairs := []Key{
		{Backend: "giphy", Endpoint: "hug"},
		{Backend: "giphy", Endpoint: "hug"},
		{Backend: "giphy", Endpoint: "hug"},
	}
	require.NoError(t, m.BuildCache(context.Background(), pairs))
	require.EqualValues(t, 1, giphy.calls.Load())
}

func TestBuildCacheNoPairs(t *testing.T) {
	m := newManager(t)
	require.ErrorIs(t, m.BuildCache(context.Background(), nil), ErrNothingToWarm)
}

func TestRefreshReplacesValue(t *testing.T) {
	var n atomic.Int64
	giphy := &fakeBackend{name: "giphy", fetch: func(context.Context, string) (string, error) {
		return fmt.Sprintf("https://x/%d.gif", n.Add(1)), nil
	}}
	m := newManager(t, giphy)

	require.NoError(t, m.RefreshCache(context.Background(), "giphy", "hug"))
	url, err := m.GetCached("giphy", "hug")
	require.NoError(t, err)
	require.Equal(t, "https://x/1.gif", url)

	require.NoError(t, m.RefreshCache(context.Background(), "giphy", "hug"))
	url, err = m.GetCached("giphy", "hug")
	require.NoError(t, err)
	require.Equal(t, "https://x/2.gif", url)
}

func TestRefreshFailureKeepsOldValue(t *testing.T) {
	var fail atomic.Bool
	giphy := &fakeBackend{name: "giphy", fetch: func(context.Context, string) (string, error) {
		if fail.Load() {
			return "", fmt.Errorf("%w: connection reset", backends.ErrBadStatus)
		}
		return "https://x/1.gif", nil
	}}
	m := newManager(t, giphy)

	require.NoError(t, m.RefreshCache(context.Background(), "giphy", "hug"))

	fail.Store(true)
	err := m.RefreshCache(context.Background(), "giphy", "hug")
	require.ErrorIs(t, err, backends.ErrBadStatus)

	// Stale-but-available beats empty.
	url, err := m.GetCached("giphy", "hug")
	require.NoError(t, err)
	require.Equal(t, "https://x/1.gif", url)
}

func TestRefreshUnknownBackend(t *testing.T) {
	m := newManager(t)
	err := m.RefreshCache(context.Background(), "nope", "hug")
	require.ErrorIs(t, err, backends.ErrUnknownBackend)
}

func TestConcurrentRefreshesCollapse(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	var n atomic.Int64
	giphy := &fakeBackend{name: "giphy", fetch: func(context.Context, string) (string, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return fmt.Sprintf("https://x/%d.gif", n.Add(1)), nil
	}}
	m := newManager(t, giphy)

	const callers = 16
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = m.RefreshCache(context.Background(), "giphy", "hug")
		}(i)
	}

	// Let the callers pile up behind the first in-flight fetch, then let
	// it complete.
	<-started
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "caller %d", i)
	}

	// Never more than one outbound fetch in flight for the same key.
	require.EqualValues(t, 1, giphy.maxSeen.Load())

	// The store holds one of the completed fetch results.
	url, err := m.GetCached("giphy", "hug")
	require.NoError(t, err)
	require.Contains(t, url, "https://x/")
}

func TestRefreshesOfDistinctKeysRunConcurrently(t *testing.T) {
	// Two endpoints block until both fetches are in flight; a whole-store
	// lock would deadlock here.
	both := make(chan struct{}, 2)
	proceed := make(chan struct{})
	giphy := &fakeBackend{name: "giphy", fetch: func(_ context.Context, endpoint string) (string, error) {
		both <- struct{}{}
		<-proceed
		return "https://x/" + endpoint + ".gif", nil
	}}
	m := newManager(t, giphy)

	var wg sync.WaitGroup
	for _, ep := range []string{"hug", "slap"} {
		wg.Add(1)
		go func(ep string) {
			defer wg.Done()
			if err := m.RefreshCache(context.Background(), "giphy", ep); err != nil {
				t.Errorf("RefreshCache(%q) = %v", ep, err)
			}
		}(ep)
	}

	for i := 0; i < 2; i++ {
		select {
		case <-both:
		case <-time.After(2 * time.Second):
			t.Fatal("refreshes of distinct keys serialized")
		}
	}
	close(proceed)
	wg.Wait()
}

func TestLookupDoesNotWaitOnRefresh(t *testing.T) {
	release := make(chan struct{})
	giphy := &fakeBackend{name: "giphy", fetch: func(context.Context, string) (string, error) {
		<-release
		return "https://x/2.gif", nil
	}}
	m := newManager(t, giphy)
	m.Store().Put(Key{Backend: "giphy", Endpoint: "hug"}, "https://x/1.gif")

	done := make(chan error, 1)
	go func() {
		done <- m.RefreshCache(context.Background(), "giphy", "hug")
	}()

	// The lookup returns the old value immediately while the refresh is
	// still blocked on the network.
	url, err := m.GetCached("giphy", "hug")
	require.NoError(t, err)
	require.Equal(t, "https://x/1.gif", url)

	close(release)
	require.NoError(t, <-done)

	url, err = m.GetCached("giphy", "hug")
	require.NoError(t, err)
	require.Equal(t, "https://x/2.gif", url)
}

func TestScenarioWarmThenRefresh(t *testing.T) {
	var hugURL atomic.Value
	hugURL.Store("https://x/1.gif")
	giphy := &fakeBackend{name: "giphy", fetch: func(_ context.Context, endpoint string) (string, error) {
		if endpoint == "slap" {
			return "", errors.New("slap endpoint down")
		}
		return hugURL.Load().(string), nil
	}}
	m := newManager(t, giphy)

	require.NoError(t, m.BuildCache(context.Background(), []Key{
		{Backend: "giphy", Endpoint: "hug"},
		{Backend: "giphy", Endpoint: "slap"},
	}))

	url, err := m.GetCached("giphy", "hug")
	require.NoError(t, err)
	require.Equal(t, "https://x/1.gif", url)

	_, err = m.GetCached("giphy", "slap")
	require.ErrorIs(t, err, ErrNotCached)

	hugURL.Store("https://x/2.gif")
	require.NoError(t, m.RefreshCache(context.Background(), "giphy", "hug"))

	url, err = m.GetCached("giphy", "hug")
	require.NoError(t, err)
	require.Equal(t, "https://x/2.gif", url)
}
