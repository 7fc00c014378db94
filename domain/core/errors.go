package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound         = errors.New("resource not found")
	ErrNodeNotFound     = fmt.Errorf("%w: area node", ErrNotFound)
	ErrGroupNotFound    = fmt.Errorf("%w: group", ErrNotFound)
	ErrProposalNotFound = fmt.Errorf("%w: proposal", ErrNotFound)

	// Validation errors
	ErrInvalidArea     = errors.New("area per unit must be positive")
	ErrInvalidCount    = errors.New("count must be at least 1")
	ErrEmptyName       = errors.New("name cannot be empty")
	ErrFieldLocked     = errors.New("field is locked")
	ErrInvalidProposal = errors.New("invalid proposal")

	// Proposal lifecycle errors
	ErrProposalTerminal = errors.New("proposal already resolved")
	ErrStaleReference   = errors.New("referenced entity no longer exists")

	// Split/merge arithmetic errors
	ErrQuantityMismatch   = errors.New("split quantities do not sum to original count")
	ErrInvalidProportions = errors.New("proportions must be positive")

	// External collaborator errors
	ErrMalformedResponse   = errors.New("AI response malformed")
	ErrProviderUnavailable = errors.New("AI provider unavailable")

	// Document errors
	ErrUnknownSchemaVersion = errors.New("unrecognized document schema version")
)

// Error constructors with context
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

func NewValidationError(field string, reason string) error {
	return fmt.Errorf("validation failed for %s: %s", field, reason)
}

func NewStaleReferenceError(kind string, id string) error {
	return fmt.Errorf("%w: %s %s", ErrStaleReference, kind, id)
}

func NewLockedFieldError(field string, nodeID string) error {
	return fmt.Errorf("%w: %s on node %s", ErrFieldLocked, field, nodeID)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidArea) ||
		errors.Is(err, ErrInvalidCount) ||
		errors.Is(err, ErrEmptyName) ||
		errors.Is(err, ErrFieldLocked) ||
		errors.Is(err, ErrInvalidProposal)
}

func IsStaleReferenceError(err error) bool {
	return errors.Is(err, ErrStaleReference)
}

func IsCollaboratorError(err error) bool {
	return errors.Is(err, ErrMalformedResponse) ||
		errors.Is(err, ErrProviderUnavailable)
}
