package ledger

import (
	"context"
	"fmt"
	"strconv"

	"github.com/lblod/verenigingen-harvester/internal/sparql"
	"github.com/lblod/verenigingen-harvester/internal/support/exception"
)

// Cursor tracks the last processed sequence number of the mutation feed.
type Cursor struct {
	Subject string
	Since   int64
}

// LoadCursor reads the mutation-feed cursor from the ledger. A missing cursor
// is not an error; the caller decides whether to skip the run. Multiple cursor
// resources indicate a corrupted graph and fail loudly.
func (l *Ledger) LoadCursor(ctx context.Context) (*Cursor, error) {
	query := fmt.Sprintf(`
%s
SELECT ?s ?seq WHERE {
  GRAPH %s {
    ?s a %s ;
       %s ?seq .
  }
}`,
		Prefixes,
		sparql.EscapeURI(l.graph),
		sparql.EscapeURI(CursorType),
		sparql.EscapeURI(CursorSequencePredicate))

	results, err := l.client.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	bindings := results.Results.Bindings
	if len(bindings) == 0 {
		return nil, nil
	}
	if len(bindings) > 1 {
		return nil, exception.Newf("ledger", exception.KindDataShape,
			"expected a single mutation cursor, found %d", len(bindings))
	}

	seq, err := strconv.ParseInt(bindings[0]["seq"].Value, 10, 64)
	if err != nil {
		return nil, exception.New("ledger", "mutation cursor sequence is not an integer", err, exception.KindDataShape)
	}
	return &Cursor{
		Subject: bindings[0]["s"].Value,
		Since:   seq,
	}, nil
}

// AdvanceCursor moves the cursor to the given sequence number. Callers must
// only advance after the harvested results have been durably persisted.
func (l *Ledger) AdvanceCursor(ctx context.Context, subject string, sequence int64) error {
	update := fmt.Sprintf(`
%s
DELETE {
  GRAPH %[2]s {
    %[3]s %[4]s ?seq .
  }
}
INSERT {
  GRAPH %[2]s {
    %[3]s %[4]s %[5]s .
  }
}
WHERE {
  GRAPH %[2]s {
    OPTIONAL { %[3]s %[4]s ?seq . }
  }
}`,
		Prefixes,
		sparql.EscapeURI(l.graph),
		sparql.EscapeURI(subject),
		sparql.EscapeURI(CursorSequencePredicate),
		sparql.EscapeInt(sequence))

	if err := l.client.Update(ctx, update); err != nil {
		return exception.New("ledger", "failed to advance mutation cursor", err, exception.KindLedgerWrite)
	}
	return nil
}
