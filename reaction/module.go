package reaction

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrUnknownReaction is returned when no definition matches the command.
	ErrUnknownReaction = errors.New("unknown reaction")

	// ErrNoImage is returned when the reaction's cache slot is unpopulated.
	// The caller must tell the user the command is unavailable instead of
	// responding with a broken link.
	ErrNoImage = errors.New("no image available")
)

// Cache is the slice of the cache manager the module depends on.
type Cache interface {
	GetCached(backend, endpoint string) (string, error)
	RefreshCache(ctx context.Context, backend, endpoint string) error
}

// Invocation carries the parsed fields of one command invocation. Parsing
// the platform's interaction payload into this struct is the platform
// adapter's job.
type Invocation struct {
	// Command is the invoked top-level command name.
	Command string
	// Subcommand is the reaction name when Command is one of the grouped
	// "reaction" commands; empty for alias commands.
	Subcommand string
	// UserID is the invoking user.
	UserID string
	// TargetID is the targeted user; empty targets the bot itself.
	TargetID string
}

// Response is the rendered reply for one invocation.
type Response struct {
	Content  string
	ImageURL string
	Color    int
}

// subcommandsPerGroup is the platform's per-command option limit.
const subcommandsPerGroup = 25

// groupPrefix is the name of the grouped commands ("reaction",
// "reaction2", ...).
const groupPrefix = "reaction"

// Module is the reaction command module.
type Module struct {
	reactions []Reaction
	aliases   map[string]bool
	cache     Cache
	botID     string
	randIndex func(n int) int
	log       zerolog.Logger
}

// Option configures a Module.
type Option func(*Module)

// WithRand replaces the random-index source; tests inject a fixed sequence
// here.
func WithRand(fn func(n int) int) Option {
	return func(m *Module) { m.randIndex = fn }
}

// NewModule validates the definitions and builds the module. botID is the
// bot's own user id, used to select bot-targeted response templates.
func NewModule(reactions []Reaction, c Cache, botID string, log zerolog.Logger, opts ...Option) (*Module, error) {
	if len(reactions) == 0 {
		return nil, errors.New("no reactions configured")
	}
	aliases := make(map[string]bool)
	for _, r := range reactions {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		if r.Alias {
			aliases[r.Name] = true
		}
	}
	m := &Module{
		reactions: reactions,
		aliases:   aliases,
		cache:     c,
		botID:     botID,
		randIndex: rand.Intn,
		log:       log.With().Str("component", "reaction").Logger(),
	}
	for _, o := range opts {
		o(m)
	}
	return m, nil
}

// Handles reports whether the command belongs to this module.
func (m *Module) Handles(command string) bool {
	return strings.HasPrefix(command, groupPrefix) || m.aliases[command]
}

// Handle resolves and renders one invocation. The cached gif is returned
// immediately; the slot refresh runs in the background after the response
// is assembled, detached from the invocation's context so a platform
// timeout cannot cancel it.
func (m *Module) Handle(ctx context.Context, inv Invocation) (*Response, error) {
	id := uuid.NewString()
	log := m.log.With().Str("invocation", id).Str("command", inv.Command).Logger()

	r, err := m.resolve(inv)
	if err != nil {
		return nil, err
	}

	target := inv.TargetID
	if target == "" {
		target = m.botID
	}

	pair := r.Backends[m.randIndex(len(r.Backends))]
	backend, endpoint, err := splitPair(pair)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("reaction", r.Name).
		Str("user", inv.UserID).
		Str("target", target).
		Str("backend", backend).
		Msg("handling reaction")

	imageURL, err := m.cache.GetCached(backend, endpoint)
	if err != nil {
		return nil, fmt.Errorf("reaction %q: %w", r.Name, ErrNoImage)
	}

	templates := r.DefaultResponses
	switch {
	case inv.UserID == target:
		templates = r.SelfResponses
	case target == m.botID:
		templates = r.BotResponses
	}
	template := templates[m.randIndex(len(templates))]

	content := strings.NewReplacer(
		"{user}", mention(inv.UserID),
		"{target}", mention(target),
	).Replace(template)
	content += fmt.Sprintf("\n-# From: %s • [Source](<%s>)", backend, imageURL)

	resp := &Response{
		Content:  content,
		ImageURL: imageURL,
		Color:    m.randColor(),
	}

	// Refresh benefits the next invocation, not this one, so it runs on a
	// detached context and its failure is only logged.
	go func() {
		ctx := context.WithoutCancel(ctx)
		if err := m.cache.RefreshCache(ctx, backend, endpoint); err != nil {
			log.Warn().Err(err).Str("backend", backend).Str("endpoint", endpoint).Msg("refresh failed")
		}
	}()

	return resp, nil
}

// resolve finds the reaction definition for an invocation: grouped
// commands carry the reaction name as a subcommand, alias commands are the
// reaction name itself.
func (m *Module) resolve(inv Invocation) (*Reaction, error) {
	name := inv.Command
	if strings.HasPrefix(inv.Command, groupPrefix) {
		if inv.Subcommand == "" {
			return nil, fmt.Errorf("%w: no subcommand", ErrUnknownReaction)
		}
		name = inv.Subcommand
	}
	for i := range m.reactions {
		if m.reactions[i].Name == name {
			return &m.reactions[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownReaction, name)
}

func mention(id string) string {
	return "<@" + id + ">"
}
