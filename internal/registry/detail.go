package registry

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/lblod/verenigingen-harvester/internal/support/exception"
	"github.com/lblod/verenigingen-harvester/internal/support/retry"
)

// DetailResult is the tagged outcome of a detail fetch. Removed marks the
// recognized "association was removed" response; the orchestrator skips those
// records instead of failing the run.
type DetailResult struct {
	VCode       string
	Removed     bool
	Association map[string]interface{}
	ETag        string
}

// problemDetail is the structured error body of the register API.
type problemDetail struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Status int    `json:"status"`
}

const (
	removedProblemType   = "urn:associationregistry.admin.api:validation"
	removedProblemDetail = "Deze vereniging werd verwijderd."
)

// isRemovedShape recognizes the structured 404 body the register returns for
// removed associations. Any other 404 is an upstream rejection.
func isRemovedShape(body []byte) bool {
	var p problemDetail
	if err := json.Unmarshal(body, &p); err != nil {
		return false
	}
	return p.Status == http.StatusNotFound &&
		p.Type == removedProblemType &&
		p.Detail == removedProblemDetail
}

// FetchDetail retrieves the full record of one association. The etag response
// header is mandatory; its absence fails the record. Transient network errors
// are retried, any HTTP error other than the removed shape aborts immediately.
func (c *Client) FetchDetail(ctx context.Context, token, vCode string) (*DetailResult, error) {
	var result *DetailResult
	err := retry.Do(ctx, c.policy, func(ctx context.Context) error {
		r, err := c.fetchDetailOnce(ctx, token, vCode)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) fetchDetailOnce(ctx context.Context, token, vCode string) (*DetailResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+detailPath+vCode, nil)
	if err != nil {
		return nil, exception.New("detail_fetcher", "failed to build detail request", err, exception.KindDataShape)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("vr-api-key", c.apiKey)
	req.Header.Set("x-correlation-id", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, exception.New("detail_fetcher", "detail request failed", err, exception.KindTransientNetwork)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, exception.New("detail_fetcher", "failed to read detail response", err, exception.KindTransientNetwork)
	}

	if resp.StatusCode == http.StatusNotFound && isRemovedShape(body) {
		return &DetailResult{VCode: vCode, Removed: true}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, exception.Newf("detail_fetcher", exception.KindUpstreamRejection,
			"detail endpoint returned status %d for vCode %s", resp.StatusCode, vCode)
	}

	etag := resp.Header.Get("ETag")
	if etag == "" {
		return nil, exception.Newf("detail_fetcher", exception.KindDataShape,
			"detail response for vCode %s carries no etag", vCode)
	}

	var payload struct {
		Vereniging map[string]interface{} `json:"vereniging"`
		Metadata   map[string]interface{} `json:"metadata"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, exception.New("detail_fetcher", "failed to decode detail response", err, exception.KindDataShape)
	}
	if payload.Vereniging == nil {
		return nil, exception.Newf("detail_fetcher", exception.KindDataShape,
			"detail response for vCode %s carries no vereniging payload", vCode)
	}
	payload.Vereniging["metadata"] = payload.Metadata

	return &DetailResult{
		VCode:       vCode,
		Association: payload.Vereniging,
		ETag:        etag,
	}, nil
}
