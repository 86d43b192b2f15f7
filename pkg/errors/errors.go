package errors

import (
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeGraph represents graph database errors
	ErrorTypeGraph ErrorType = "graph"
	// ErrorTypeIngest represents entity ingestion errors
	ErrorTypeIngest ErrorType = "ingest"
	// ErrorTypeExtraction represents episodic extraction/LLM errors
	ErrorTypeExtraction ErrorType = "extraction"
	// ErrorTypeValidation represents query/input validation errors
	ErrorTypeValidation ErrorType = "validation"
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

// Category returns the error category. Embedding promotes this onto every
// typed wrapper, so classification sees the wrapper's own category rather
// than the wrapped cause's.
func (e *BaseError) Category() ErrorType {
	return e.Type
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

// Graph Errors

// ErrGraphConnectionFailed is returned when the store connection fails
type ErrGraphConnectionFailed struct {
	*BaseError
	URI string
}

func NewGraphConnectionFailed(uri string, err error) *ErrGraphConnectionFailed {
	return &ErrGraphConnectionFailed{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("failed to connect to Neo4j: %s", uri), err),
		URI:       uri,
	}
}

// ErrGraphQueryFailed is returned when a graph statement fails
type ErrGraphQueryFailed struct {
	*BaseError
	Query string
}

func NewGraphQueryFailed(query string, err error) *ErrGraphQueryFailed {
	return &ErrGraphQueryFailed{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("query failed: %s", query), err),
		Query:     query,
	}
}

// ErrGraphNodeNotFound is returned when a node lookup by natural key matches nothing
type ErrGraphNodeNotFound struct {
	*BaseError
	Label string
	Name  string
}

func NewGraphNodeNotFound(label, name string) *ErrGraphNodeNotFound {
	return &ErrGraphNodeNotFound{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("%s not found: %s", label, name), nil),
		Label:     label,
		Name:      name,
	}
}

// ErrGraphClearFailed is returned when the bulk clear operation fails
type ErrGraphClearFailed struct {
	*BaseError
}

func NewGraphClearFailed(err error) *ErrGraphClearFailed {
	return &ErrGraphClearFailed{
		BaseError: NewBaseError(ErrorTypeGraph, "failed to clear graph", err),
	}
}

// Ingest Errors

// ErrIngestLoadFailed is returned when a record source file cannot be loaded
type ErrIngestLoadFailed struct {
	*BaseError
	Path string
}

func NewIngestLoadFailed(path string, err error) *ErrIngestLoadFailed {
	return &ErrIngestLoadFailed{
		BaseError: NewBaseError(ErrorTypeIngest, fmt.Sprintf("failed to load records: %s", path), err),
		Path:      path,
	}
}

// ErrIngestStatementFailed is returned when one pipeline statement fails.
// The pipeline logs these and continues; they never abort a run.
type ErrIngestStatementFailed struct {
	*BaseError
	Phase string
	Key   string
}

func NewIngestStatementFailed(phase, key string, err error) *ErrIngestStatementFailed {
	return &ErrIngestStatementFailed{
		BaseError: NewBaseError(ErrorTypeIngest, fmt.Sprintf("%s failed for %s", phase, key), err),
		Phase:     phase,
		Key:       key,
	}
}

// Extraction Errors

// ErrExtractionLLMFailed is returned when the extraction model request fails
type ErrExtractionLLMFailed struct {
	*BaseError
	Model     string
	Attempts  int
	Retryable bool
}

func NewExtractionLLMFailed(model string, attempts int, retryable bool, err error) *ErrExtractionLLMFailed {
	return &ErrExtractionLLMFailed{
		BaseError: NewBaseError(ErrorTypeExtraction, fmt.Sprintf("LLM request failed after %d attempts", attempts), err),
		Model:     model,
		Attempts:  attempts,
		Retryable: retryable,
	}
}

// ErrExtractionNoResponse is returned when the extraction model returns no choices
var ErrExtractionNoResponse = NewBaseError(ErrorTypeExtraction, "no response from LLM", nil)

// ErrExtractionEmbeddingFailed is returned when an embedding request fails
type ErrExtractionEmbeddingFailed struct {
	*BaseError
	Model string
}

func NewExtractionEmbeddingFailed(model string, err error) *ErrExtractionEmbeddingFailed {
	return &ErrExtractionEmbeddingFailed{
		BaseError: NewBaseError(ErrorTypeExtraction, "embedding request failed", err),
		Model:     model,
	}
}

// Validation Errors

// ErrValidationBadAttribute is returned when a filter attribute is not allowlisted
type ErrValidationBadAttribute struct {
	*BaseError
	Attribute string
}

func NewValidationBadAttribute(attribute string) *ErrValidationBadAttribute {
	return &ErrValidationBadAttribute{
		BaseError: NewBaseError(ErrorTypeValidation, fmt.Sprintf("attribute not allowed: %s", attribute), nil),
		Attribute: attribute,
	}
}

// ErrValidationBadRelationship is returned when a relationship type is not allowlisted
type ErrValidationBadRelationship struct {
	*BaseError
	Relationship string
}

func NewValidationBadRelationship(relationship string) *ErrValidationBadRelationship {
	return &ErrValidationBadRelationship{
		BaseError:    NewBaseError(ErrorTypeValidation, fmt.Sprintf("relationship type not allowed: %s", relationship), nil),
		Relationship: relationship,
	}
}

// ErrValidationBadLabel is returned when a node label is not allowlisted
type ErrValidationBadLabel struct {
	*BaseError
	Label string
}

func NewValidationBadLabel(label string) *ErrValidationBadLabel {
	return &ErrValidationBadLabel{
		BaseError: NewBaseError(ErrorTypeValidation, fmt.Sprintf("node label not allowed: %s", label), nil),
		Label:     label,
	}
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

// ErrContextTimeout is returned when context times out
type ErrContextTimeout struct {
	*BaseError
	Operation string
	Timeout   time.Duration
}

func NewContextTimeout(operation string, timeout time.Duration) *ErrContextTimeout {
	return &ErrContextTimeout{
		BaseError: NewBaseError(ErrorTypeContext, fmt.Sprintf("context timeout: %s (timeout: %v)", operation, timeout), nil),
		Operation: operation,
		Timeout:   timeout,
	}
}

// Config Errors

// ErrConfigValidationFailed is returned when configuration validation fails
type ErrConfigValidationFailed struct {
	*BaseError
	Field  string
	Reason string
}

func NewConfigValidationFailed(field, reason string) *ErrConfigValidationFailed {
	return &ErrConfigValidationFailed{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("config validation failed: %s - %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

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

// Helper functions

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	for err != nil {
		if categorized, ok := err.(interface{ Category() ErrorType }); ok {
			return categorized.Category() == errType
		}
		// Check wrapped errors
		wrapped, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = wrapped.Unwrap()
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	// Context errors are not retryable
	if IsErrorType(err, ErrorTypeContext) {
		return false
	}
	// Validation errors will fail the same way again
	if IsErrorType(err, ErrorTypeValidation) {
		return false
	}
	if llmErr, ok := err.(*ErrExtractionLLMFailed); ok {
		return llmErr.Retryable
	}
	// Store hiccups are worth another attempt
	if IsErrorType(err, ErrorTypeGraph) {
		return true
	}
	return false
}
