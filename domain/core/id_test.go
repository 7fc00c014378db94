package core

import (
	"testing"
)

// TestNewIDUniqueness tests that NewID generates unique identifiers
func TestNewIDUniqueness(t *testing.T) {
	const numIDs = 10000

	ids := make(map[ID]bool, numIDs)
	for i := 0; i < numIDs; i++ {
		id := NewID()
		if id.IsEmpty() {
			t.Errorf("Generated empty ID at iteration %d", i)
		}
		if ids[id] {
			t.Errorf("Generated duplicate ID: %s", id)
		}
		ids[id] = true
	}

	if len(ids) != numIDs {
		t.Errorf("Expected %d unique IDs, got %d", numIDs, len(ids))
	}
}

// TestIDString tests ID string conversion
func TestIDString(t *testing.T) {
	id := ID("test-123")
	if id.String() != "test-123" {
		t.Errorf("Expected String() to return 'test-123', got '%s'", id.String())
	}
}

// TestIDIsEmpty tests ID emptiness check
func TestIDIsEmpty(t *testing.T) {
	emptyID := ID("")
	if !emptyID.IsEmpty() {
		t.Error("Expected empty ID to be empty")
	}

	nonEmptyID := ID("not-empty")
	if nonEmptyID.IsEmpty() {
		t.Error("Expected non-empty ID to not be empty")
	}
}

// TestParseNodeID tests node ID parsing
func TestParseNodeID(t *testing.T) {
	tests := []struct {
		input    string
		expected NodeID
		hasError bool
	}{
		{"valid-id", NodeID("valid-id"), false},
		{"", "", true},
		{"   ", "", true},
	}

	for _, test := range tests {
		result, err := ParseNodeID(test.input)
		if test.hasError && err == nil {
			t.Errorf("Expected error for input '%s', but got none", test.input)
		}
		if !test.hasError && err != nil {
			t.Errorf("Unexpected error for input '%s': %v", test.input, err)
		}
		if result != test.expected {
			t.Errorf("Expected %s, got %s", test.expected, result)
		}
	}
}

// TestParseGroupID tests group ID parsing
func TestParseGroupID(t *testing.T) {
	tests := []struct {
		input    string
		expected GroupID
		hasError bool
	}{
		{"grp-1", GroupID("grp-1"), false},
		{"", "", true},
		{"  \t ", "", true},
	}

	for _, test := range tests {
		result, err := ParseGroupID(test.input)
		if test.hasError && err == nil {
			t.Errorf("Expected error for input '%s', but got none", test.input)
		}
		if !test.hasError && err != nil {
			t.Errorf("Unexpected error for input '%s': %v", test.input, err)
		}
		if result != test.expected {
			t.Errorf("Expected %s, got %s", test.expected, result)
		}
	}
}

// TestErrorHelpers tests the errors.Is helper predicates
func TestErrorHelpers(t *testing.T) {
	if !IsNotFoundError(ErrNodeNotFound) {
		t.Error("ErrNodeNotFound should be a not-found error")
	}
	if !IsValidationError(ErrFieldLocked) {
		t.Error("ErrFieldLocked should be a validation error")
	}
	if !IsStaleReferenceError(NewStaleReferenceError("node", "abc")) {
		t.Error("NewStaleReferenceError should satisfy IsStaleReferenceError")
	}
	if !IsCollaboratorError(ErrMalformedResponse) {
		t.Error("ErrMalformedResponse should be a collaborator error")
	}
	if IsCollaboratorError(ErrNodeNotFound) {
		t.Error("ErrNodeNotFound should not be a collaborator error")
	}
}
