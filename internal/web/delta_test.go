package web_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lblod/verenigingen-harvester/internal/config"
	"github.com/lblod/verenigingen-harvester/internal/web"
)

type recordingRunner struct {
	mu    sync.Mutex
	tasks []string
	ran   chan string
}

func newRecordingRunner() *recordingRunner {
	return &recordingRunner{ran: make(chan string, 16)}
}

func (r *recordingRunner) RunCollectingTask(ctx context.Context, taskURI string) error {
	r.mu.Lock()
	r.tasks = append(r.tasks, taskURI)
	r.mu.Unlock()
	r.ran <- taskURI
	return nil
}

func (r *recordingRunner) recorded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.tasks...)
}

func newTestServer(runner web.TaskRunner) *httptest.Server {
	s := web.NewServer(config.NewConfig(), runner, nil)
	return httptest.NewServer(s.Handler())
}

func scheduledInsert(subject string) string {
	return fmt.Sprintf(`{
		"subject":   {"value": %q},
		"predicate": {"value": "http://www.w3.org/ns/adms#status"},
		"object":    {"value": "http://redpencil.data.gift/id/concept/JobStatus/scheduled"}
	}`, subject)
}

func postDelta(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url+"/delta", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestDeltaTriggersScheduledTask(t *testing.T) {
	runner := newRecordingRunner()
	srv := newTestServer(runner)
	defer srv.Close()

	body := `[{"inserts": [` + scheduledInsert("http://data.lblod.info/id/task-1") + `]}]`
	resp := postDelta(t, srv.URL, body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	select {
	case uri := <-runner.ran:
		assert.Equal(t, "http://data.lblod.info/id/task-1", uri)
	case <-time.After(time.Second):
		t.Fatal("runner was not invoked")
	}
}

func TestDeltaDeduplicatesSubjects(t *testing.T) {
	runner := newRecordingRunner()
	srv := newTestServer(runner)
	defer srv.Close()

	// The same task scheduled twice across changesets runs once.
	body := `[
		{"inserts": [` + scheduledInsert("http://data.lblod.info/id/task-1") + `]},
		{"inserts": [` + scheduledInsert("http://data.lblod.info/id/task-1") + `,` +
		scheduledInsert("http://data.lblod.info/id/task-2") + `]}
	]`
	postDelta(t, srv.URL, body)

	for i := 0; i < 2; i++ {
		select {
		case <-runner.ran:
		case <-time.After(time.Second):
			t.Fatal("runner was not invoked twice")
		}
	}
	assert.Equal(t,
		[]string{"http://data.lblod.info/id/task-1", "http://data.lblod.info/id/task-2"},
		runner.recorded())
}

func TestDeltaIgnoresUnrelatedInserts(t *testing.T) {
	runner := newRecordingRunner()
	srv := newTestServer(runner)
	defer srv.Close()

	body := `[{"inserts": [
		{
			"subject":   {"value": "http://data.lblod.info/id/task-1"},
			"predicate": {"value": "http://purl.org/dc/terms/created"},
			"object":    {"value": "2026-01-01T00:00:00Z"}
		},
		{
			"subject":   {"value": "http://data.lblod.info/id/task-2"},
			"predicate": {"value": "http://www.w3.org/ns/adms#status"},
			"object":    {"value": "http://redpencil.data.gift/id/concept/JobStatus/busy"}
		}
	]}]`
	resp := postDelta(t, srv.URL, body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	select {
	case uri := <-runner.ran:
		t.Fatalf("runner was invoked for %s", uri)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDeltaAcksMalformedBody(t *testing.T) {
	runner := newRecordingRunner()
	srv := newTestServer(runner)
	defer srv.Close()

	resp := postDelta(t, srv.URL, `{"not": "a changeset list"`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, runner.recorded())
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(newRecordingRunner())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
