package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/andrewmolyneux/reactbot/backends"
	"github.com/andrewmolyneux/reactbot/cache"
	"github.com/andrewmolyneux/reactbot/giphy"
	"github.com/andrewmolyneux/reactbot/internal/config"
	"github.com/andrewmolyneux/reactbot/internal/http/routes"
	"github.com/andrewmolyneux/reactbot/otakugifs"
	"github.com/andrewmolyneux/reactbot/reaction"
	"github.com/andrewmolyneux/reactbot/tenor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}

	registry, err := setupBackendRegistry(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("backend setup failed")
	}
	logger.Info().Strs("backends", registry.List()).Msg("backends configured")

	reactions, err := config.LoadReactions(cfg.ReactionsFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("loading reactions failed")
	}

	manager := cache.New(registry, logger)
	if err := manager.BuildCache(context.Background(), reaction.BackendPairs(reactions)); err != nil {
		logger.Fatal().Err(err).Msg("cache warm-up failed")
	}

	module, err := reaction.NewModule(reactions, manager, cfg.BotID, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("reaction module setup failed")
	}
	for _, c := range module.Commands() {
		logger.Info().Str("command", c.Name).Int("subcommands", len(c.Subcommands)).Msg("command ready")
	}

	s := routes.New(routes.ServerOptions{
		Module: module,
		Cache:  manager,
		Log:    logger,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.Router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info().Str("addr", cfg.ListenAddr).Msg("admin server listening")
	logger.Fatal().Err(srv.ListenAndServe()).Msg("server stopped")
}

// setupBackendRegistry registers every backend whose configuration is
// present. The keyless otakugifs backend is always registered.
func setupBackendRegistry(cfg *config.Config) (*backends.Registry, error) {
	registry := backends.NewRegistry()

	httpClient := &http.Client{Timeout: 10 * time.Second}

	registry.Register(otakugifs.New(otakugifs.WithHTTPClient(httpClient)))

	if cfg.HasGiphy() {
		client, err := giphy.New(cfg.Giphy.APIKey, giphy.WithHTTPClient(httpClient))
		if err != nil {
			return nil, err
		}
		registry.Register(client)
	}

	if cfg.HasTenor() {
		client, err := tenor.New(cfg.Tenor.APIKey, tenor.WithHTTPClient(httpClient))
		if err != nil {
			return nil, err
		}
		registry.Register(client)
	}

	return registry, nil
}
