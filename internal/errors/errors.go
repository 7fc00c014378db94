// Package errors carries coded application errors across the service
// boundary. Domain invariants use the sentinels in domain/core; this
// package is for infrastructure failures (configuration, the LLM
// provider) where the API needs a stable code to report.
package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap adds context to an error, preserving the code of an AppError
// anywhere in its chain
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    codeOrInternal(err),
		Message: message,
		Cause:   err,
	}
}

// GetCode returns the code of the nearest AppError in the chain, or
// empty when there is none
func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

func codeOrInternal(err error) string {
	if code := GetCode(err); code != "" {
		return code
	}
	return CodeInternal
}

// Error codes reported across the API
const (
	CodeConfigInvalid   = "CONFIG_INVALID"
	CodeCollaborator    = "COLLABORATOR_ERROR"
	CodeExternalService = "EXTERNAL_SERVICE_ERROR"
	CodeInternal        = "INTERNAL_ERROR"
)

// ConfigInvalid reports a rejected configuration value
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

// CollaboratorError marks output from the AI collaborator that could
// not be used (malformed JSON, invalid tool calls)
func CollaboratorError(cause error) *AppError {
	return &AppError{
		Code:    CodeCollaborator,
		Message: "collaborator response rejected",
		Cause:   cause,
	}
}

// ExternalServiceError marks a failure talking to an external service
func ExternalServiceError(service string, cause error) *AppError {
	return &AppError{
		Code:    CodeExternalService,
		Message: fmt.Sprintf("%s request failed", service),
		Cause:   cause,
	}
}
