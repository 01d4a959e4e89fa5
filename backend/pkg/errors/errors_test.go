package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsErrorType(t *testing.T) {
	cause := stderrors.New("connection refused")

	tests := []struct {
		name string
		err  error
		typ  ErrorType
		want bool
	}{
		{"store", NewStoreUnavailable("bolt://db:7687", cause), ErrorTypeStore, true},
		{"wrapped store", fmt.Errorf("failed to write graph: %w", NewStoreUnavailable("bolt://db:7687", cause)), ErrorTypeStore, true},
		{"store is not queue", NewStoreUnavailable("bolt://db:7687", cause), ErrorTypeQueue, false},
		{"empty", NewEmptyGraphResult("tag:go"), ErrorTypeEmpty, true},
		{"fetch", NewFetchFailure("all", cause), ErrorTypeFetch, true},
		{"config", NewConfigMissingRequired("AWS_BUCKET"), ErrorTypeConfig, true},
		{"plain", cause, ErrorTypeStore, false},
		{"nil", nil, ErrorTypeStore, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsErrorType(tt.err, tt.typ))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	cause := stderrors.New("boom")

	assert.True(t, IsRetryable(NewStoreUnavailable("bolt://db:7687", cause)))
	assert.True(t, IsRetryable(NewQueueUnavailable("blog_process_queue", cause)))
	assert.True(t, IsRetryable(NewFetchFailure("all", cause)))
	assert.False(t, IsRetryable(NewEmptyGraphResult("all")))
	assert.False(t, IsRetryable(NewGraphQueryFailed("MATCH (n)", cause)))
	assert.False(t, IsRetryable(NewContextCancelled("query all", context.Canceled)))
	assert.False(t, IsRetryable(cause))
}

func TestErrorMessagesAndCauses(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := NewStoreUnavailable("bolt://db:7687", cause)

	assert.Equal(t, "[store] graph store unavailable: bolt://db:7687: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "[empty] no graph data for tag:go", NewEmptyGraphResult("tag:go").Error())

	var store *ErrStoreUnavailable
	assert.ErrorAs(t, fmt.Errorf("wrapped: %w", err), &store)
	assert.Equal(t, "bolt://db:7687", store.URI)

	partial := NewPartialWriteFailure("edge", "a->b", "endpoint not found", nil)
	assert.Equal(t, "edge", partial.Kind)
	assert.Contains(t, partial.Error(), "skipped edge a->b: endpoint not found")
}
