// Package tenor implements the backends.Backend interface for the Tenor v2
// search API.
package tenor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/andrewmolyneux/reactbot/backends"
)

const DefaultBaseURL = "https://tenor.googleapis.com"

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

func (c *Client) Name() string { return "tenor" }

type searchResponse struct {
	Results []struct {
		MediaFormats struct {
			Gif struct {
				URL string `json:"url"`
			} `json:"gif"`
		} `json:"media_formats"`
	} `json:"results"`
}

// Fetch returns the URL of one gif matching the endpoint as a search term.
// Tenor shuffles server-side via random=true, so a single result is enough.
func (c *Client) Fetch(ctx context.Context, endpoint string) (string, error) {
	if endpoint == "" {
		return "", fmt.Errorf("tenor: %w: empty search term", backends.ErrUnknownEndpoint)
	}

	u := *c.baseURL
	u.Path = "/v2/search"
	q := u.Query()
	q.Set("key", c.apiKey)
	q.Set("q", endpoint)
	q.Set("random", "true")
	q.Set("limit", "1")
	q.Set("media_filter", "gif")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("tenor: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("tenor: fetch %q: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("tenor: fetch %q: %w: %d", endpoint, backends.ErrBadStatus, resp.StatusCode)
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("tenor: fetch %q: %w: %v", endpoint, backends.ErrMalformedResponse, err)
	}
	if len(body.Results) == 0 || body.Results[0].MediaFormats.Gif.URL == "" {
		return "", fmt.Errorf("tenor: fetch %q: %w: empty result set", endpoint, backends.ErrMalformedResponse)
	}
	return body.Results[0].MediaFormats.Gif.URL, nil
}
