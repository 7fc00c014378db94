package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	// Use UUID v7 for time-ordered, sortable IDs
	// Falls back to v4 if v7 is not available (for compatibility)
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to v4 if v7 fails
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	NodeID     ID
	GroupID    ID
	ProposalID ID
	LineageID  ID
	InputID    ID
)

// String conversions for domain IDs
func (id NodeID) String() string     { return ID(id).String() }
func (id GroupID) String() string    { return ID(id).String() }
func (id ProposalID) String() string { return ID(id).String() }
func (id LineageID) String() string  { return ID(id).String() }
func (id InputID) String() string    { return ID(id).String() }

// Emptiness checks for the IDs that get passed around optionally
func (id NodeID) IsEmpty() bool    { return id == "" }
func (id GroupID) IsEmpty() bool   { return id == "" }
func (id LineageID) IsEmpty() bool { return id == "" }

// ParseNodeID parses a string into NodeID
func ParseNodeID(s string) (NodeID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("node ID cannot be empty")
	}
	return NodeID(s), nil
}

// ParseGroupID parses a string into GroupID
func ParseGroupID(s string) (GroupID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("group ID cannot be empty")
	}
	return GroupID(s), nil
}

// ParseProposalID parses a string into ProposalID
func ParseProposalID(s string) (ProposalID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("proposal ID cannot be empty")
	}
	return ProposalID(s), nil
}
