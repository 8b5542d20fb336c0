package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lblod/verenigingen-harvester/internal/ledger"
)

const cursorSubject = "http://data.lblod.info/id/mutatiedienst-state/1"

func cursorBinding(seq string) map[string]interface{} {
	return map[string]interface{}{
		"s": term(cursorSubject),
		"seq": map[string]interface{}{
			"type":     "literal",
			"value":    seq,
			"datatype": "http://www.w3.org/2001/XMLSchema#integer",
		},
	}
}

func TestLoadCursor_MissingIsNotAnError(t *testing.T) {
	stub := &sparqlStub{}
	ldg, _ := newTestLedger(t, stub)

	cursor, err := ldg.LoadCursor(context.Background())

	require.NoError(t, err)
	assert.Nil(t, cursor)
}

func TestLoadCursor_SingleCursor(t *testing.T) {
	stub := &sparqlStub{
		answer: func(string) interface{} { return bindingsDoc(cursorBinding("1042")) },
	}
	ldg, _ := newTestLedger(t, stub)

	cursor, err := ldg.LoadCursor(context.Background())

	require.NoError(t, err)
	require.NotNil(t, cursor)
	assert.Equal(t, cursorSubject, cursor.Subject)
	assert.Equal(t, int64(1042), cursor.Since)
}

func TestLoadCursor_MultipleCursorsFailLoud(t *testing.T) {
	stub := &sparqlStub{
		answer: func(string) interface{} {
			return bindingsDoc(cursorBinding("1"), cursorBinding("2"))
		},
	}
	ldg, _ := newTestLedger(t, stub)

	_, err := ldg.LoadCursor(context.Background())

	assert.Error(t, err)
}

func TestLoadCursor_NonIntegerSequence(t *testing.T) {
	stub := &sparqlStub{
		answer: func(string) interface{} { return bindingsDoc(cursorBinding("not-a-number")) },
	}
	ldg, _ := newTestLedger(t, stub)

	_, err := ldg.LoadCursor(context.Background())

	assert.Error(t, err)
}

func TestAdvanceCursor_WritesNewSequence(t *testing.T) {
	stub := &sparqlStub{}
	ldg, _ := newTestLedger(t, stub)

	err := ldg.AdvanceCursor(context.Background(), cursorSubject, 2048)

	require.NoError(t, err)
	updates := stub.recordedUpdates()
	require.Len(t, updates, 1)
	assert.Contains(t, updates[0], cursorSubject)
	assert.Contains(t, updates[0], `"2048"`)
	assert.Contains(t, updates[0], ledger.CursorSequencePredicate)
}
