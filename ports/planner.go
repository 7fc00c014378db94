package ports

import (
	"context"
	"encoding/json"
)

// ToolCall is one requested operation from the collaborator. Args is
// kept raw so the catalog can validate it against the tool's schema
// before anything is decoded.
type ToolCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args"`
}

// Plan is the collaborator's answer to a chat message: zero or more
// tool calls plus a natural-language reply for the user.
type Plan struct {
	Calls []ToolCall `json:"calls"`
	Reply string     `json:"reply"`
}

// ToolPlanner maps a user message onto the tool surface
type ToolPlanner interface {
	PlanTools(ctx context.Context, message string, projectSummary string) (*Plan, error)
}
