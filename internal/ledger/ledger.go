package ledger

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/lblod/verenigingen-harvester/internal/config"
	"github.com/lblod/verenigingen-harvester/internal/sparql"
)

const moduleName = "ledger"

// Ledger provides the job/task administration operations against the
// triplestore.
type Ledger struct {
	client *sparql.Client
	graph  string
}

// New creates a Ledger bound to the configured default graph.
func New(client *sparql.Client, cfg *config.Config) *Ledger {
	return &Ledger{
		client: client,
		graph:  cfg.Harvester.Sparql.DefaultGraph,
	}
}

// NewWithGraph creates a Ledger against an explicit client and graph.
func NewWithGraph(client *sparql.Client, graph string) *Ledger {
	return &Ledger{client: client, graph: graph}
}

// newID generates a fresh resource id.
func newID() string {
	return uuid.New().String()
}

var jsessionidPattern = regexp.MustCompile(";jsessionid=[a-zA-Z;0-9]*")

// NormalizeURL canonicalizes a remote URL before it is used as the lookup key
// of a RemoteDataObject. The fragment and any jsessionid path parameter are
// stripped; other query parameters are kept since they matter for extraction.
// Normalization is idempotent.
func NormalizeURL(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)
	if u, err := url.Parse(trimmed); err == nil {
		u.Fragment = ""
		trimmed = u.String()
	} else if i := strings.Index(trimmed, "#"); i >= 0 {
		trimmed = trimmed[:i]
	}
	return jsessionidPattern.ReplaceAllString(trimmed, "")
}
