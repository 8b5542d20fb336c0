package registry

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/lblod/verenigingen-harvester/internal/support/exception"
	"github.com/lblod/verenigingen-harvester/internal/support/retry"
)

// contextExtensions are the term mappings added on top of the published
// JSON-LD context before it is embedded in harvest results.
var contextExtensions = map[string]interface{}{
	"doel":                         "https://data.vlaanderen.be/ns/",
	"loc":                          "http://data.lblod.info/id/vestigingen/",
	"concept":                      "http://data.vlaanderen.be/id/concept/",
	"gestructureerdeIdentificator": "generiek:gestructureerdeIdentificator",
	"bestaatUit":                   "https://data.vlaanderen.be/ns/organisatie#bestaatUit",
	"startdatum":                   "pav:createdOn",
	"contactgegeventype":           "foaf:name",
	"primairContact":               "schema:contactType",
	"description":                  "dc:description",
	"vertegenwoordigers":           "org:hasMembership",
	"lidmaatschap":                 "http://data.lblod.info/id/lidmaatschap/",
	"vertegenwoordigerPersoon":     "org:member",
	"ere":                          "http://data.lblod.info/vocabularies/erediensten/",
	"adresvoorstelling":            "locn:fullAddress",
}

// FetchContext downloads the published JSON-LD context document and extends
// it with the fixed term mappings. Fetched once per run.
func (c *Client) FetchContext(ctx context.Context) (map[string]interface{}, error) {
	var doc map[string]interface{}
	err := retry.Do(ctx, c.policy, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.contextURL, nil)
		if err != nil {
			return exception.New("context_fetcher", "failed to build context request", err, exception.KindDataShape)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return exception.New("context_fetcher", "context request failed", err, exception.KindTransientNetwork)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return exception.New("context_fetcher", "failed to read context response", err, exception.KindTransientNetwork)
		}
		if resp.StatusCode != http.StatusOK {
			return exception.Newf("context_fetcher", exception.KindUpstreamRejection,
				"context document returned status %d", resp.StatusCode)
		}
		if err := json.Unmarshal(body, &doc); err != nil {
			return exception.New("context_fetcher", "failed to decode context document", err, exception.KindDataShape)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for term, mapping := range contextExtensions {
		doc[term] = mapping
	}
	return doc, nil
}
