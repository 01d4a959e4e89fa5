package errors

import (
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeStore represents graph store errors
	ErrorTypeStore ErrorType = "store"
	// ErrorTypeQuery represents a graph query rejected by the database
	ErrorTypeQuery ErrorType = "query"
	// ErrorTypeWrite represents a single node or edge that could not be written
	ErrorTypeWrite ErrorType = "write"
	// ErrorTypeEmpty represents a query that produced no nodes
	ErrorTypeEmpty ErrorType = "empty"
	// ErrorTypeFetch represents a failed graph fetch on the viewing side
	ErrorTypeFetch ErrorType = "fetch"
	// ErrorTypeSource represents blog source errors
	ErrorTypeSource ErrorType = "source"
	// ErrorTypeQueue represents broker errors
	ErrorTypeQueue ErrorType = "queue"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeContext represents context cancellation/timeout errors
	ErrorTypeContext ErrorType = "context"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Store Errors

// ErrStoreUnavailable is returned when the graph database cannot be reached.
// Nothing retries automatically; the caller decides.
type ErrStoreUnavailable struct {
	*BaseError
	URI string
}

func NewStoreUnavailable(uri string, err error) *ErrStoreUnavailable {
	return &ErrStoreUnavailable{
		BaseError: NewBaseError(ErrorTypeStore, fmt.Sprintf("graph store unavailable: %s", uri), err),
		URI:       uri,
	}
}

// Unwrap exposes the base error so IsErrorType can see the category
func (e *ErrStoreUnavailable) Unwrap() error {
	return e.BaseError
}

// ErrGraphQueryFailed is returned when a graph query fails for reasons other than connectivity
type ErrGraphQueryFailed struct {
	*BaseError
	Query string
}

func NewGraphQueryFailed(query string, err error) *ErrGraphQueryFailed {
	return &ErrGraphQueryFailed{
		BaseError: NewBaseError(ErrorTypeQuery, fmt.Sprintf("query failed: %s", query), err),
		Query:     query,
	}
}

func (e *ErrGraphQueryFailed) Unwrap() error {
	return e.BaseError
}

// ErrPartialWriteFailure describes one node or edge that was skipped during a write
type ErrPartialWriteFailure struct {
	*BaseError
	Kind string // "node" or "edge"
	ID   string
}

func NewPartialWriteFailure(kind, id, reason string, err error) *ErrPartialWriteFailure {
	return &ErrPartialWriteFailure{
		BaseError: NewBaseError(ErrorTypeWrite, fmt.Sprintf("skipped %s %s: %s", kind, id, reason), err),
		Kind:      kind,
		ID:        id,
	}
}

func (e *ErrPartialWriteFailure) Unwrap() error {
	return e.BaseError
}

// ErrEmptyGraphResult signals a query that returned zero nodes.
// It maps to a user-visible empty state, never to a 5xx.
type ErrEmptyGraphResult struct {
	*BaseError
	Scope string
}

func NewEmptyGraphResult(scope string) *ErrEmptyGraphResult {
	return &ErrEmptyGraphResult{
		BaseError: NewBaseError(ErrorTypeEmpty, fmt.Sprintf("no graph data for %s", scope), nil),
		Scope:     scope,
	}
}

func (e *ErrEmptyGraphResult) Unwrap() error {
	return e.BaseError
}

// Fetch Errors

// ErrFetchFailure is returned when the viewer cannot obtain graph data
type ErrFetchFailure struct {
	*BaseError
	Scope string
}

func NewFetchFailure(scope string, err error) *ErrFetchFailure {
	return &ErrFetchFailure{
		BaseError: NewBaseError(ErrorTypeFetch, fmt.Sprintf("failed to fetch graph for %s", scope), err),
		Scope:     scope,
	}
}

func (e *ErrFetchFailure) Unwrap() error {
	return e.BaseError
}

// Queue Errors

// ErrQueueUnavailable is returned when the broker cannot be reached
type ErrQueueUnavailable struct {
	*BaseError
	Queue string
}

func NewQueueUnavailable(queue string, err error) *ErrQueueUnavailable {
	return &ErrQueueUnavailable{
		BaseError: NewBaseError(ErrorTypeQueue, fmt.Sprintf("queue unavailable: %s", queue), err),
		Queue:     queue,
	}
}

func (e *ErrQueueUnavailable) Unwrap() error {
	return e.BaseError
}

// Config Errors

// ErrConfigMissingRequired is returned when a required config value is missing
type ErrConfigMissingRequired struct {
	*BaseError
	Field string
}

func NewConfigMissingRequired(field string) *ErrConfigMissingRequired {
	return &ErrConfigMissingRequired{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("missing required config: %s", field), nil),
		Field:     field,
	}
}

func (e *ErrConfigMissingRequired) Unwrap() error {
	return e.BaseError
}

// Context Errors

// ErrContextCancelled is returned when context is cancelled
type ErrContextCancelled struct {
	*BaseError
	Operation string
}

func NewContextCancelled(operation string, err error) *ErrContextCancelled {
	return &ErrContextCancelled{
		BaseError: NewBaseError(ErrorTypeContext, fmt.Sprintf("context cancelled: %s", operation), err),
		Operation: operation,
	}
}

func (e *ErrContextCancelled) Unwrap() error {
	return e.BaseError
}

// Helper functions

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	if err == nil {
		return false
	}
	if baseErr, ok := err.(*BaseError); ok {
		if baseErr.Type == errType {
			return true
		}
	}
	// Check wrapped errors
	if wrapped, ok := err.(interface{ Unwrap() error }); ok {
		return IsErrorType(wrapped.Unwrap(), errType)
	}
	return false
}

// IsRetryable reports whether retrying the operation could help
func IsRetryable(err error) bool {
	// Context errors are not retryable
	if IsErrorType(err, ErrorTypeContext) {
		return false
	}
	switch {
	case IsErrorType(err, ErrorTypeStore),
		IsErrorType(err, ErrorTypeFetch),
		IsErrorType(err, ErrorTypeQueue):
		return true
	}
	return false
}
