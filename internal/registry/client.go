// Package registry is the client for the public verenigingenregister API:
// token exchange, the paginated search endpoint, the per-association detail
// endpoint, the mutation feed and the JSON-LD context document.
//
// All fetchers return tagged results and classified errors; retry handling
// follows the configured policy but the components never touch the ledger.
package registry

import (
	"net/http"

	"github.com/lblod/verenigingen-harvester/internal/config"
	"github.com/lblod/verenigingen-harvester/internal/support/retry"
)

const (
	searchPath   = "/v1/verenigingen/zoeken"
	detailPath   = "/v1/verenigingen/"
	mutationPath = "/v1/verenigingen/mutaties"
)

// Client talks to the verenigingenregister public API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	contextURL string
	pageSize   int
	policy     retry.Policy
}

// NewClient creates a Client from configuration. Transient network errors are
// retried per the configured budget; HTTP error responses are never retried.
func NewClient(cfg *config.Config) *Client {
	rc := cfg.Harvester.Registry
	return &Client{
		httpClient: &http.Client{Timeout: rc.Timeout()},
		baseURL:    rc.BaseURL,
		apiKey:     rc.APIKey,
		contextURL: rc.ContextURL,
		pageSize:   rc.PageSize,
		policy:     retry.NewFixedPolicy(rc.Retry.MaxAttempts, rc.Retry.Interval(), nil),
	}
}

// NewClientWithOptions creates a Client with explicit settings, used in tests.
func NewClientWithOptions(httpClient *http.Client, baseURL, apiKey, contextURL string, pageSize int, policy retry.Policy) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
		contextURL: contextURL,
		pageSize:   pageSize,
		policy:     policy,
	}
}

// MutationFeedURL returns the absolute URL of the mutation feed, recorded as
// the source URL of incremental harvest results.
func (c *Client) MutationFeedURL() string {
	return c.baseURL + mutationPath
}

// SearchURL returns the absolute URL of the search endpoint, recorded as the
// source URL of full harvest results.
func (c *Client) SearchURL() string {
	return c.baseURL + searchPath
}
