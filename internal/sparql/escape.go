package sparql

import (
	"fmt"
	"strings"
	"time"
)

// EscapeURI formats a URI for inclusion in a SPARQL query. Angle brackets and
// whitespace inside the value are stripped, since they cannot legally occur
// in an IRI ref.
func EscapeURI(uri string) string {
	cleaned := strings.NewReplacer("<", "", ">", "", "\n", "", "\r", "", " ", "%20").Replace(strings.TrimSpace(uri))
	return "<" + cleaned + ">"
}

// EscapeString formats a plain literal for inclusion in a SPARQL query.
func EscapeString(value string) string {
	escaped := strings.NewReplacer(
		`\`, `\\`,
		`"`, `\"`,
		"\n", `\n`,
		"\r", `\r`,
		"\t", `\t`,
	).Replace(value)
	return `"` + escaped + `"`
}

// EscapeDateTime formats a timestamp as an xsd:dateTime literal.
func EscapeDateTime(t time.Time) string {
	return fmt.Sprintf(`"%s"^^<http://www.w3.org/2001/XMLSchema#dateTime>`, t.UTC().Format(time.RFC3339))
}

// EscapeInt formats an integer as an xsd:integer literal.
func EscapeInt(v int64) string {
	return fmt.Sprintf(`"%d"^^<http://www.w3.org/2001/XMLSchema#integer>`, v)
}
