// Package otakugifs implements the backends.Backend interface for the
// keyless OtakuGIFs reaction API.
package otakugifs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/andrewmolyneux/reactbot/backends"
)

const DefaultBaseURL = "https://api.otakugifs.xyz"

// reactions is the fixed endpoint vocabulary the API serves. Requests for
// anything else fail locally without an outbound call.
var reactions = map[string]struct{}{
	"airkiss": {}, "angrystare": {}, "bite": {}, "bleh": {}, "blush": {},
	"brofist": {}, "celebrate": {}, "cheers": {}, "clap": {}, "confused": {},
	"cool": {}, "cry": {}, "cuddle": {}, "dance": {}, "drool": {},
	"evillaugh": {}, "facepalm": {}, "handhold": {}, "happy": {}, "headbang": {},
	"hug": {}, "kiss": {}, "laugh": {}, "lick": {}, "love": {},
	"mad": {}, "nervous": {}, "no": {}, "nom": {}, "nosebleed": {},
	"nuzzle": {}, "nyah": {}, "pat": {}, "peek": {}, "pinch": {},
	"poke": {}, "pout": {}, "punch": {}, "roll": {}, "run": {},
	"sad": {}, "scared": {}, "shout": {}, "shrug": {}, "shy": {},
	"sigh": {}, "sip": {}, "slap": {}, "sleep": {}, "slowclap": {},
	"smack": {}, "smile": {}, "smug": {}, "sneeze": {}, "sorry": {},
	"stare": {}, "stop": {}, "surprised": {}, "sweat": {}, "thumbsup": {},
	"tickle": {}, "tired": {}, "wave": {}, "wink": {}, "woah": {},
	"yawn": {}, "yay": {}, "yes": {},
}

type Client struct {
	http    *http.Client
	baseURL *url.URL
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithBaseURL(raw string) Option {
	return func(c *Client) {
		if u, err := url.Parse(raw); err == nil {
			c.baseURL = u
		}
	}
}

func New(opts ...Option) *Client {
	u, _ := url.Parse(DefaultBaseURL)
	c := &Client{
		http:    http.DefaultClient,
		baseURL: u,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) Name() string { return "otakugifs" }

type gifResponse struct {
	URL string `json:"url"`
}

// Fetch returns the URL of a random gif for the given reaction endpoint.
func (c *Client) Fetch(ctx context.Context, endpoint string) (string, error) {
	if _, ok := reactions[endpoint]; !ok {
		return "", fmt.Errorf("otakugifs: %w: %q", backends.ErrUnknownEndpoint, endpoint)
	}

	u := *c.baseURL
	u.Path = "/gif"
	q := u.Query()
	q.Set("reaction", endpoint)
	q.Set("format", "gif")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("otakugifs: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("otakugifs: fetch %q: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("otakugifs: fetch %q: %w: %d", endpoint, backends.ErrBadStatus, resp.StatusCode)
	}

	var body gifResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("otakugifs: fetch %q: %w: %v", endpoint, backends.ErrMalformedResponse, err)
	}
	if body.URL == "" {
		return "", fmt.Errorf("otakugifs: fetch %q: %w: no url in payload", endpoint, backends.ErrMalformedResponse)
	}
	return body.URL, nil
}
