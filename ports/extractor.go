package ports

import (
	"context"

	"spaceplan/domain/brief"
)

// Extractor turns raw brief text into candidate program rows. The
// output is a candidate, not truth: every row still passes through
// normalization before it reaches the graph.
type Extractor interface {
	Extract(ctx context.Context, text string, cls brief.Classification) (*brief.Extraction, error)
}

// Grouper proposes a grouping over the current set of areas. Returned
// groups may reference stale or duplicate node IDs; the reconciler
// repairs them into a partition.
type Grouper interface {
	ProposeGroups(ctx context.Context, req GroupingRequest) ([]brief.RawGroup, error)
}

// GroupingRequest carries the live area inventory plus the user's
// instruction for how to organize it.
type GroupingRequest struct {
	Instruction string
	Areas       []GroupingArea
}

// GroupingArea is the minimal view of a node a grouper needs
type GroupingArea struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	TotalArea float64 `json:"total_area"`
	GroupName string  `json:"group_name,omitempty"`
}
