package exception_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lblod/verenigingen-harvester/internal/support/exception"
)

func TestHarvestError_ErrorAndUnwrap(t *testing.T) {
	original := errors.New("connection refused")
	err := exception.New("detail_fetcher", "detail request failed", original, exception.KindTransientNetwork)

	assert.Equal(t, "[detail_fetcher] detail request failed: connection refused", err.Error())
	assert.Equal(t, original, errors.Unwrap(err))
	assert.Equal(t, exception.KindTransientNetwork, err.Kind())
}

func TestKindRetryability(t *testing.T) {
	tests := []struct {
		kind      exception.Kind
		retryable bool
	}{
		{exception.KindAuth, false},
		{exception.KindTransientNetwork, true},
		{exception.KindUpstreamRejection, false},
		{exception.KindRemoved, false},
		{exception.KindDataShape, false},
		{exception.KindLedgerWrite, true},
		{exception.KindUnknown, false},
	}
	for _, tt := range tests {
		err := exception.Newf("m", tt.kind, "boom")
		assert.Equal(t, tt.retryable, err.IsRetryable(), "kind %s", tt.kind)
	}
}

func TestIsRetryable_WrappedHarvestError(t *testing.T) {
	inner := exception.Newf("sparql", exception.KindLedgerWrite, "update failed")
	wrapped := fmt.Errorf("run aborted: %w", inner)

	assert.True(t, exception.IsRetryable(wrapped))
	assert.True(t, exception.IsKind(wrapped, exception.KindLedgerWrite))
	assert.Equal(t, exception.KindLedgerWrite, exception.KindOf(wrapped))
}

func TestIsRetryable_UntaggedHeuristic(t *testing.T) {
	assert.True(t, exception.IsRetryable(errors.New("dial tcp: i/o timeout")))
	assert.True(t, exception.IsRetryable(errors.New("read: connection reset by peer")))
	assert.False(t, exception.IsRetryable(errors.New("invalid payload")))
	assert.False(t, exception.IsRetryable(nil))
}

func TestExtractErrorMessage(t *testing.T) {
	tagged := exception.New("ledger", "failed to advance mutation cursor", errors.New("status 500"), exception.KindLedgerWrite)
	assert.Equal(t, "failed to advance mutation cursor", exception.ExtractErrorMessage(tagged))
	assert.Equal(t, "plain", exception.ExtractErrorMessage(errors.New("plain")))
	assert.Equal(t, "", exception.ExtractErrorMessage(nil))
}
