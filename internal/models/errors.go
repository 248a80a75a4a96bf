package models

import (
	"errors"
	"fmt"
)

// Error codes for typed pipeline failures.
const (
	CodeConfig            = "CONFIG_ERROR"
	CodeEmbedding         = "EMBEDDING_ERROR"
	CodeSourceUnavailable = "SOURCE_UNAVAILABLE"
	CodeGeneration        = "GENERATION_ERROR"
	CodeNoCorpus          = "NO_CORPUS"
	CodeInvalidInput      = "INVALID_INPUT"
)

// DomainError is a typed failure with a stable code, a message and an optional cause.
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches any DomainError with the same code, so errors.Is(err, ErrEmbedding) holds for every
// embedding failure regardless of message.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a DomainError without a cause.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// NewDomainErrorWithCause creates a DomainError wrapping err.
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{Code: code, Message: message, Err: err}
}

// Sentinels for errors.Is.
var (
	ErrConfig            = NewDomainError(CodeConfig, "invalid configuration")
	ErrEmbedding         = NewDomainError(CodeEmbedding, "embedding failed")
	ErrSourceUnavailable = NewDomainError(CodeSourceUnavailable, "source unavailable")
	ErrGeneration        = NewDomainError(CodeGeneration, "generation failed")
	ErrNoCorpus          = NewDomainError(CodeNoCorpus, "no corpus available")
	ErrInvalidInput      = NewDomainError(CodeInvalidInput, "invalid input")
)

// ConfigError reports invalid parameters detected before any work begins.
func ConfigError(format string, args ...interface{}) *DomainError {
	return NewDomainError(CodeConfig, fmt.Sprintf(format, args...))
}

// EmbeddingError wraps an embedding provider failure.
func EmbeddingError(message string, err error) *DomainError {
	return NewDomainErrorWithCause(CodeEmbedding, message, err)
}

// SourceUnavailable wraps the failure of one retrieval source.
func SourceUnavailable(source SourceTag, err error) *DomainError {
	return NewDomainErrorWithCause(CodeSourceUnavailable, string(source)+" unavailable", err)
}

// GenerationError wraps a failed completion call.
func GenerationError(message string, err error) *DomainError {
	return NewDomainErrorWithCause(CodeGeneration, message, err)
}

// ErrorCode returns the DomainError code carried by err, or "" for untyped errors.
func ErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
