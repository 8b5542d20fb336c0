package ledger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lblod/verenigingen-harvester/internal/ledger"
)

func TestNormalizeURL_StripsFragmentAndSessionID(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "fragment removed",
			in:   "http://example.org/page#section",
			want: "http://example.org/page",
		},
		{
			name: "jsessionid removed",
			in:   "http://example.org/page;jsessionid=AB12cd34",
			want: "http://example.org/page",
		},
		{
			name: "other query parameters preserved",
			in:   "http://example.org/page;jsessionid=AB12?x=1&y=2",
			want: "http://example.org/page?x=1&y=2",
		},
		{
			name: "surrounding whitespace trimmed",
			in:   "  http://example.org/page  ",
			want: "http://example.org/page",
		},
		{
			name: "plain url untouched",
			in:   "https://publiek.verenigingen.staging-vlaanderen.be/v1/verenigingen/zoeken",
			want: "https://publiek.verenigingen.staging-vlaanderen.be/v1/verenigingen/zoeken",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ledger.NormalizeURL(tt.in))
		})
	}
}

func TestNormalizeURL_Idempotent(t *testing.T) {
	urls := []string{
		"http://example.org/a;jsessionid=AB12#frag",
		"http://example.org/page?x=1",
		"http://example.org/plain",
	}
	for _, u := range urls {
		once := ledger.NormalizeURL(u)
		assert.Equal(t, once, ledger.NormalizeURL(once))
	}
}
