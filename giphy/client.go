// Package giphy implements the backends.Backend interface for the Giphy
// random-gif API.
package giphy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/andrewmolyneux/reactbot/backends"
)

const DefaultBaseURL = "https://api.giphy.com"

type Client struct {
	http    *http.Client
	baseURL *url.URL
	apiKey  string
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

func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("apiKey required")
	}
	u, _ := url.Parse(DefaultBaseURL)
	c := &Client{
		http:    http.DefaultClient,
		baseURL: u,
		apiKey:  apiKey,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

func (c *Client) Name() string { return "giphy" }

// randomResponse mirrors the subset of the /v1/gifs/random payload we need.
type randomResponse struct {
	Data struct {
		Images struct {
			Original struct {
				URL string `json:"url"`
			} `json:"original"`
		} `json:"images"`
	} `json:"data"`
}

// Fetch returns the URL of a random gif tagged with the given endpoint.
func (c *Client) Fetch(ctx context.Context, endpoint string) (string, error) {
	if endpoint == "" {
		return "", fmt.Errorf("giphy: %w: empty tag", backends.ErrUnknownEndpoint)
	}

	u := *c.baseURL
	u.Path = "/v1/gifs/random"
	q := u.Query()
	q.Set("api_key", c.apiKey)
	q.Set("tag", endpoint)
	q.Set("rating", "pg-13")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("giphy: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("giphy: fetch %q: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("giphy: fetch %q: %w: %d", endpoint, backends.ErrBadStatus, resp.StatusCode)
	}

	var body randomResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("giphy: fetch %q: %w: %v", endpoint, backends.ErrMalformedResponse, err)
	}
	gif := body.Data.Images.Original.URL
	if gif == "" {
		return "", fmt.Errorf("giphy: fetch %q: %w: no gif in payload", endpoint, backends.ErrMalformedResponse)
	}
	return gif, nil
}
