// Package sparql implements the HTTP client for the triplestore. The store is
// reached through the mu-authorization sudo endpoints: every request carries
// the mu-auth-sudo header. Queries fail loud; updates are best effort with a
// bounded retry budget, matching the ledger-write policy of the service.
package sparql

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lblod/verenigingen-harvester/internal/config"
	"github.com/lblod/verenigingen-harvester/internal/support/exception"
	"github.com/lblod/verenigingen-harvester/internal/support/logger"
	"github.com/lblod/verenigingen-harvester/internal/support/retry"
)

const moduleName = "sparql"

// Term is a single RDF term in a SPARQL JSON result binding.
type Term struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Datatype string `json:"datatype,omitempty"`
}

// Binding maps a variable name to its bound term.
type Binding map[string]Term

// Results is the SPARQL 1.1 JSON results document for SELECT and ASK.
type Results struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Results struct {
		Bindings []Binding `json:"bindings"`
	} `json:"results"`
	Boolean *bool `json:"boolean,omitempty"`
}

// Client talks to the triplestore's query and update endpoints.
type Client struct {
	httpClient     *http.Client
	queryEndpoint  string
	updateEndpoint string
	updatePolicy   retry.Policy
}

// NewClient creates a Client from the application configuration. Update
// retries wait 30s plus 600ms per attempt, the established pacing for a
// store that is briefly unavailable during deploys.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		httpClient:     &http.Client{Timeout: cfg.Harvester.Sparql.Timeout()},
		queryEndpoint:  cfg.Harvester.Sparql.QueryEndpoint,
		updateEndpoint: cfg.Harvester.Sparql.UpdateEndpoint,
		updatePolicy:   retry.NewLinearPolicy(5, 30*time.Second, 600*time.Millisecond),
	}
}

// NewClientWithEndpoints creates a Client against explicit endpoints with a
// caller-supplied update policy. Used by tests and by tooling that talks to a
// store outside the service configuration.
func NewClientWithEndpoints(queryEndpoint, updateEndpoint string, timeout time.Duration, updatePolicy retry.Policy) *Client {
	return &Client{
		httpClient:     &http.Client{Timeout: timeout},
		queryEndpoint:  queryEndpoint,
		updateEndpoint: updateEndpoint,
		updatePolicy:   updatePolicy,
	}
}

// Query executes a SELECT or ASK query and returns the parsed JSON results.
func (c *Client) Query(ctx context.Context, query string) (*Results, error) {
	logger.Debugf("execute query:\n%s", query)
	start := time.Now()

	form := url.Values{}
	form.Set("query", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.queryEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, exception.New(moduleName, "failed to create query request", err, exception.KindDataShape)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/sparql-results+json")
	req.Header.Set("mu-auth-sudo", "true")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, exception.New(moduleName, "query request failed", err, exception.KindTransientNetwork)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, exception.Newf(moduleName, exception.KindUpstreamRejection,
			"query returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var results Results
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, exception.New(moduleName, "failed to decode query results", err, exception.KindDataShape)
	}
	logger.Debugf("query took %v", time.Since(start))
	return &results, nil
}

// Ask executes an ASK query and returns its boolean result.
func (c *Client) Ask(ctx context.Context, query string) (bool, error) {
	results, err := c.Query(ctx, query)
	if err != nil {
		return false, err
	}
	if results.Boolean == nil {
		return false, exception.Newf(moduleName, exception.KindDataShape, "ASK query returned no boolean result")
	}
	return *results.Boolean, nil
}

// Update executes a SPARQL update. Failures are retried with the update
// policy; when the budget is exhausted the update is dropped with a warning
// rather than failing the run. This best-effort behaviour is intentional and
// differs from the fetch path.
func (c *Client) Update(ctx context.Context, update string) error {
	err := retry.Do(ctx, c.updatePolicy, func(ctx context.Context) error {
		return c.doUpdate(ctx, update)
	})
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	logger.Warnf("Max attempts reached for update. Skipping. Last error: %v", err)
	return nil
}

func (c *Client) doUpdate(ctx context.Context, update string) error {
	logger.Debugf("execute update:\n%s", update)
	start := time.Now()

	form := url.Values{}
	form.Set("update", update)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.updateEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return exception.New(moduleName, "failed to create update request", err, exception.KindLedgerWrite)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("mu-auth-sudo", "true")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return exception.New(moduleName, "update request failed", err, exception.KindLedgerWrite)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return exception.New(moduleName,
			fmt.Sprintf("update returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
			nil, exception.KindLedgerWrite)
	}
	logger.Debugf("update took %v", time.Since(start))
	return nil
}
