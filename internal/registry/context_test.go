package registry_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchContext_AppliesTermExtensions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/contexten/beheer/detail-vereniging-context.json", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"@vocab": "https://data.vlaanderen.be/ns/FeitelijkeVerenigingen#",
			"naam":   "skos:prefLabel",
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL, 160)
	doc, err := client.FetchContext(context.Background())

	require.NoError(t, err)
	// Published terms survive.
	assert.Equal(t, "skos:prefLabel", doc["naam"])
	// The fixed extensions are layered on top.
	assert.Equal(t, "https://data.vlaanderen.be/ns/", doc["doel"])
	assert.Equal(t, "schema:contactType", doc["primairContact"])
	assert.Equal(t, "locn:fullAddress", doc["adresvoorstelling"])
	assert.Equal(t, "org:hasMembership", doc["vertegenwoordigers"])
}

func TestFetchContext_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(server.URL, 160)
	_, err := client.FetchContext(context.Background())

	assert.Error(t, err)
}
