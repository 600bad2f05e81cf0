// Package reaction implements the chat-bot reaction command module: it
// resolves a command to a reaction definition, serves a cached gif for one
// of the reaction's backends, renders the response text, and schedules a
// cache refresh for the next invocation.
package reaction

import (
	"fmt"
	"strings"

	"github.com/andrewmolyneux/reactbot/cache"
)

// Reaction is one reaction definition, normally loaded from the reactions
// file.
type Reaction struct {
	// Name of the reaction, used as the subcommand name.
	Name string `yaml:"name"`
	// Description shown in the command listing.
	Description string `yaml:"description"`
	// Alias registers the reaction as a top-level command as well.
	Alias bool `yaml:"alias"`
	// Backends lists "backend/endpoint" pairs to fetch gifs from.
	Backends []string `yaml:"backends"`
	// DefaultResponses are used when reacting to another user.
	DefaultResponses []string `yaml:"default_responses"`
	// BotResponses are used when the target is the bot itself.
	BotResponses []string `yaml:"bot_responses"`
	// SelfResponses are used when a user reacts to themselves.
	SelfResponses []string `yaml:"self_responses"`
}

// Validate checks that the definition is usable.
func (r Reaction) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("reaction with empty name")
	}
	if len(r.Backends) == 0 {
		return fmt.Errorf("reaction %q: no backends", r.Name)
	}
	for _, b := range r.Backends {
		if _, _, err := splitPair(b); err != nil {
			return fmt.Errorf("reaction %q: %w", r.Name, err)
		}
	}
	if len(r.DefaultResponses) == 0 || len(r.BotResponses) == 0 || len(r.SelfResponses) == 0 {
		return fmt.Errorf("reaction %q: missing response templates", r.Name)
	}
	return nil
}

// splitPair splits a "backend/endpoint" string on the first slash.
func splitPair(s string) (backend, endpoint string, err error) {
	backend, endpoint, found := strings.Cut(s, "/")
	if !found || backend == "" || endpoint == "" {
		return "", "", fmt.Errorf("malformed backend pair %q", s)
	}
	return backend, endpoint, nil
}

// BackendPairs derives the cache keys declared by the given reactions,
// skipping malformed entries. This is the warm-up input for the cache
// manager.
func BackendPairs(reactions []Reaction) []cache.Key {
	var pairs []cache.Key
	for _, r := range reactions {
		for _, b := range r.Backends {
			backend, endpoint, err := splitPair(b)
			if err != nil {
				continue
			}
			pairs = append(pairs, cache.Key{Backend: backend, Endpoint: endpoint})
		}
	}
	return pairs
}
