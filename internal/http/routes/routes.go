// Package routes exposes the admin HTTP surface: health, cache status, and
// a local invoke endpoint for driving the reaction module without a chat
// platform attached.
package routes

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/andrewmolyneux/reactbot/cache"
	"github.com/andrewmolyneux/reactbot/reaction"
)

type Server struct {
	Router *chi.Mux
	Module *reaction.Module
	Cache  *cache.Manager
	Log    zerolog.Logger
}

type ServerOptions struct {
	Module *reaction.Module
	Cache  *cache.Manager
	Log    zerolog.Logger
}

func New(opts ServerOptions) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	s := &Server{Router: r, Module: opts.Module, Cache: opts.Cache, Log: opts.Log}

	r.Get("/healthz", s.handleHealth)
	r.Get("/cachez", s.handleCacheStatus)
	r.Post("/invoke/{command}", s.handleInvoke)

	return s
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := w.Write([]byte("ok")); err != nil {
		s.Log.Warn().Err(err).Msg("write health response")
	}
}

func (s *Server) handleCacheStatus(w http.ResponseWriter, r *http.Request) {
	keys := s.Cache.Store().Keys()
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k.String())
	}
	s.renderJSON(w, http.StatusOK, map[string]any{
		"entries": len(pairs),
		"pairs":   pairs,
	})
}

type invokeRequest struct {
	Subcommand string `json:"subcommand,omitempty"`
	UserID     string `json:"user_id"`
	TargetID   string `json:"target_id,omitempty"`
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	command := chi.URLParam(r, "command")
	if !s.Module.Handles(command) {
		http.Error(w, "unknown command", http.StatusNotFound)
		return
	}

	var req invokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}

	resp, err := s.Module.Handle(r.Context(), reaction.Invocation{
		Command:    command,
		Subcommand: req.Subcommand,
		UserID:     req.UserID,
		TargetID:   req.TargetID,
	})
	switch {
	case errors.Is(err, reaction.ErrUnknownReaction):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case errors.Is(err, reaction.ErrNoImage):
		http.Error(w, "no image available", http.StatusServiceUnavailable)
		return
	case err != nil:
		s.Log.Error().Err(err).Str("command", command).Msg("invoke failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	s.renderJSON(w, http.StatusOK, resp)
}

func (s *Server) renderJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Log.Warn().Err(err).Msg("write json response")
	}
}
