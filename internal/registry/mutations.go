package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/lblod/verenigingen-harvester/internal/support/exception"
	"github.com/lblod/verenigingen-harvester/internal/support/retry"
)

// MutationEvent is one entry of the incremental-changes feed.
type MutationEvent struct {
	VCode    string `json:"vCode"`
	Sequence int64  `json:"sequence"`
}

// FetchChangesSince polls the mutation feed for events after the given
// sequence number. The upstream returns events ordered ascending by sequence;
// the ordering is trusted, not re-verified. An empty result means nothing
// changed and is not an error.
func (c *Client) FetchChangesSince(ctx context.Context, token string, since int64) ([]MutationEvent, error) {
	feedURL := fmt.Sprintf("%s%s?vanaf=%d", c.baseURL, mutationPath, since)

	var events []MutationEvent
	err := retry.Do(ctx, c.policy, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
		if err != nil {
			return exception.New("mutation_feed", "failed to build mutation request", err, exception.KindDataShape)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("x-correlation-id", uuid.NewString())

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return exception.New("mutation_feed", "mutation request failed", err, exception.KindTransientNetwork)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return exception.New("mutation_feed", "failed to read mutation response", err, exception.KindTransientNetwork)
		}
		if resp.StatusCode != http.StatusOK {
			return exception.Newf("mutation_feed", exception.KindUpstreamRejection,
				"mutation endpoint returned status %d", resp.StatusCode)
		}

		events = events[:0]
		if err := json.Unmarshal(body, &events); err != nil {
			return exception.New("mutation_feed", "failed to decode mutation response", err, exception.KindDataShape)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}
