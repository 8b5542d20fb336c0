package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/lblod/verenigingen-harvester/internal/support/exception"
	"github.com/lblod/verenigingen-harvester/internal/support/logger"
	"github.com/lblod/verenigingen-harvester/internal/support/retry"
)

// searchPage is the paginated search response.
type searchPage struct {
	Verenigingen []struct {
		VCode string `json:"vCode"`
	} `json:"verenigingen"`
	Metadata struct {
		Pagination struct {
			TotalCount int `json:"totalCount"`
		} `json:"pagination"`
	} `json:"metadata"`
}

// FetchAllCodes walks the search endpoint for one postal-code partition and
// returns every vCode it lists. Pagination is strictly sequential; each page
// is retried on transient network errors only, and an HTTP error response
// aborts the partition immediately.
func (c *Client) FetchAllCodes(ctx context.Context, token, postalCode string) ([]string, error) {
	base := fmt.Sprintf("%s%s?q=%s", c.baseURL, searchPath,
		url.QueryEscape(fmt.Sprintf("locaties.postcode:%s", postalCode)))

	var vCodes []string
	offset := 0
	for {
		pageURL := fmt.Sprintf("%s&offset=%d&limit=%d", base, offset, c.pageSize)
		logger.Debugf("Fetching search page: %s", pageURL)

		var page searchPage
		err := retry.Do(ctx, c.policy, func(ctx context.Context) error {
			return c.fetchSearchPage(ctx, token, pageURL, &page)
		})
		if err != nil {
			return nil, err
		}

		for _, v := range page.Verenigingen {
			vCodes = append(vCodes, v.VCode)
		}

		if page.Metadata.Pagination.TotalCount > offset+c.pageSize {
			offset += c.pageSize
		} else {
			break
		}
	}

	logger.Infof("Postal code %s yielded %d vCodes", postalCode, len(vCodes))
	return vCodes, nil
}

func (c *Client) fetchSearchPage(ctx context.Context, token, pageURL string, page *searchPage) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return exception.New("code_fetcher", "failed to build search request", err, exception.KindDataShape)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("x-correlation-id", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return exception.New("code_fetcher", "search request failed", err, exception.KindTransientNetwork)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return exception.New("code_fetcher", "failed to read search response", err, exception.KindTransientNetwork)
	}
	if resp.StatusCode != http.StatusOK {
		return exception.Newf("code_fetcher", exception.KindUpstreamRejection,
			"search endpoint returned status %d for %s", resp.StatusCode, pageURL)
	}

	if err := json.Unmarshal(body, page); err != nil {
		return exception.New("code_fetcher", "failed to decode search response", err, exception.KindDataShape)
	}
	return nil
}
