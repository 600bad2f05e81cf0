package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/andrewmolyneux/reactbot/backends"
	"github.com/andrewmolyneux/reactbot/cache"
	"github.com/andrewmolyneux/reactbot/reaction"
)

type staticBackend struct {
	name string
	urls map[string]string
}

func (b *staticBackend) Name() string { return b.name }

func (b *staticBackend) Fetch(ctx context.Context, endpoint string) (string, error) {
	if url, ok := b.urls[endpoint]; ok {
		return url, nil
	}
	return "", backends.ErrUnknownEndpoint
}

func newTestServer(t *testing.T, warm bool) *Server {
	t.Helper()

	registry := backends.NewRegistry()
	registry.Register(&staticBackend{
		name: "giphy",
		urls: map[string]string{"hug": "https://x/1.gif"},
	})

	manager := cache.New(registry, zerolog.Nop())
	if warm {
		require.NoError(t, manager.BuildCache(context.Background(), []cache.Key{
			{Backend: "giphy", Endpoint: "hug"},
		}))
	}

	module, err := reaction.NewModule([]reaction.Reaction{{
		Name:             "hug",
		Description:      "Hug someone.",
		Alias:            true,
		Backends:         []string{"giphy/hug"},
		DefaultResponses: []string{"{user} hugs {target}!"},
		BotResponses:     []string{"{user} hugs me!"},
		SelfResponses:    []string{"{user} hugs themselves."},
	}}, manager, "bot1", zerolog.Nop())
	require.NoError(t, err)

	return New(ServerOptions{Module: module, Cache: manager, Log: zerolog.Nop()})
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, true)

	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}

func TestCachez(t *testing.T) {
	s := newTestServer(t, true)

	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cachez", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Entries int      `json:"entries"`
		Pairs   []string `json:"pairs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 1, body.Entries)
	require.Equal(t, []string{"giphy/hug"}, body.Pairs)
}

func TestInvoke(t *testing.T) {
	s := newTestServer(t, true)

	req := httptest.NewRequest(http.MethodPost, "/invoke/hug",
		strings.NewReader(`{"user_id":"u1","target_id":"u2"}`))
	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp reaction.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "https://x/1.gif", resp.ImageURL)
	require.Contains(t, resp.Content, "<@u1>")
	require.Contains(t, resp.Content, "<@u2>")
}

func TestInvokeUnknownCommand(t *testing.T) {
	s := newTestServer(t, true)

	req := httptest.NewRequest(http.MethodPost, "/invoke/ping",
		strings.NewReader(`{"user_id":"u1"}`))
	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInvokeUncached(t *testing.T) {
	s := newTestServer(t, false)

	req := httptest.NewRequest(http.MethodPost, "/invoke/hug",
		strings.NewReader(`{"user_id":"u1","target_id":"u2"}`))
	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "no image available")
}

func TestInvokeBadBody(t *testing.T) {
	s := newTestServer(t, true)

	req := httptest.NewRequest(http.MethodPost, "/invoke/hug", strings.NewReader(`not json`))
	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
