package sparql_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lblod/verenigingen-harvester/internal/sparql"
	"github.com/lblod/verenigingen-harvester/internal/support/retry"
)

func newClient(queryURL, updateURL string, attempts int) *sparql.Client {
	return sparql.NewClientWithEndpoints(queryURL, updateURL, 5*time.Second,
		retry.NewLinearPolicy(attempts, 0, 0))
}

func TestQuerySendsSudoHeaderAndDecodesResults(t *testing.T) {
	var gotSudo, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSudo = r.Header.Get("mu-auth-sudo")
		_ = r.ParseForm()
		gotQuery = r.FormValue("query")
		w.Header().Set("Content-Type", "application/sparql-results+json")
		_, _ = w.Write([]byte(`{
			"head": {"vars": ["s"]},
			"results": {"bindings": [{"s": {"type": "uri", "value": "http://example.org/a"}}]}
		}`))
	}))
	defer server.Close()

	c := newClient(server.URL, server.URL, 1)
	results, err := c.Query(context.Background(), "SELECT ?s WHERE { ?s ?p ?o }")

	require.NoError(t, err)
	assert.Equal(t, "true", gotSudo)
	assert.Equal(t, "SELECT ?s WHERE { ?s ?p ?o }", gotQuery)
	require.Len(t, results.Results.Bindings, 1)
	assert.Equal(t, "http://example.org/a", results.Results.Bindings[0]["s"].Value)
}

func TestQueryErrorStatusFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	c := newClient(server.URL, server.URL, 1)
	_, err := c.Query(context.Background(), "SELECT * WHERE { ?s ?p ?o }")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestAsk(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"head": {}, "boolean": true}`))
	}))
	defer server.Close()

	c := newClient(server.URL, server.URL, 1)
	answer, err := c.Ask(context.Background(), "ASK { ?s ?p ?o }")

	require.NoError(t, err)
	assert.True(t, answer)
}

func TestAskWithoutBooleanFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"head": {}, "results": {"bindings": []}}`))
	}))
	defer server.Close()

	c := newClient(server.URL, server.URL, 1)
	_, err := c.Ask(context.Background(), "ASK { ?s ?p ?o }")

	require.Error(t, err)
}

func TestUpdateRetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "temporarily unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	c := newClient(server.URL, server.URL, 3)
	err := c.Update(context.Background(), "INSERT DATA { <a> <b> <c> }")

	require.NoError(t, err)
	assert.Equal(t, int64(2), calls.Load())
}

func TestUpdateDropsAfterBudget(t *testing.T) {
	// Exhausting the retry budget drops the update instead of failing the run.
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer server.Close()

	c := newClient(server.URL, server.URL, 2)
	err := c.Update(context.Background(), "INSERT DATA { <a> <b> <c> }")

	require.NoError(t, err)
	assert.Equal(t, int64(2), calls.Load())
}

func TestUpdatePropagatesContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := sparql.NewClientWithEndpoints(server.URL, server.URL, 5*time.Second,
		retry.NewLinearPolicy(3, time.Minute, 0))
	err := c.Update(ctx, "INSERT DATA { <a> <b> <c> }")

	require.ErrorIs(t, err, context.Canceled)
}

func TestEscaping(t *testing.T) {
	assert.Equal(t, "<http://example.org/a%20b>", sparql.EscapeURI(" http://example.org/a b "))
	assert.Equal(t, "<http://example.org/a>", sparql.EscapeURI("<http://example.org/a>"))
	assert.Equal(t, `"say \"hi\"\nthere"`, sparql.EscapeString("say \"hi\"\nthere"))
	assert.Equal(t, `"back\\slash"`, sparql.EscapeString(`back\slash`))
	assert.Equal(t,
		`"2026-01-02T03:04:05Z"^^<http://www.w3.org/2001/XMLSchema#dateTime>`,
		sparql.EscapeDateTime(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)))
	assert.Equal(t, `"42"^^<http://www.w3.org/2001/XMLSchema#integer>`, sparql.EscapeInt(42))
}
