package program

import (
	"strings"

	"spaceplan/domain/core"
)

// Provenance records where an area node came from
type Provenance string

const (
	ProvenanceBrief Provenance = "brief"
	ProvenanceAI    Provenance = "ai"
	ProvenanceUser  Provenance = "user"
)

// AreaNode is a named quantity of floor area: one space type with a
// per-instance area and an instance count.
type AreaNode struct {
	ID          core.NodeID    `json:"id"`
	Name        string         `json:"name"`
	AreaPerUnit float64        `json:"area_per_unit"`
	Count       int            `json:"count"`
	TotalArea   float64        `json:"total_area"` // always AreaPerUnit * Count, recomputed on every write
	Provenance  Provenance     `json:"provenance"`
	Notes       []string       `json:"notes,omitempty"`
	// LockedFields lists field names ("name", "area_per_unit", "count")
	// that user edits have pinned; updates to them are rejected.
	LockedFields map[string]bool `json:"locked_fields,omitempty"`
	// ContainerID nests this node under another node instead of the root.
	ContainerID core.NodeID `json:"container_id,omitempty"`
	// LineageID links nodes produced by the same split. Traceability
	// metadata only; edits never propagate between lineage siblings.
	LineageID core.LineageID `json:"lineage_id,omitempty"`
	// NeedsReview marks nodes whose extraction data was incomplete
	// (e.g. missing area) and should be confirmed by the user.
	NeedsReview bool           `json:"needs_review,omitempty"`
	Confidence  float64        `json:"confidence,omitempty"`
	CreatedAt   core.Timestamp `json:"created_at"`
}

// Recompute refreshes the derived total. Upstream-supplied totals are
// never trusted; this is the only way TotalArea changes.
func (n *AreaNode) Recompute() {
	n.TotalArea = n.AreaPerUnit * float64(n.Count)
}

// IsLocked reports whether a field has been pinned against edits.
func (n *AreaNode) IsLocked(field string) bool {
	return n.LockedFields[field]
}

// Lock pins a field against silent overwrites.
func (n *AreaNode) Lock(field string) {
	if n.LockedFields == nil {
		n.LockedFields = make(map[string]bool)
	}
	n.LockedFields[field] = true
}

// AddNote appends a traceability note.
func (n *AreaNode) AddNote(note string) {
	if strings.TrimSpace(note) == "" {
		return
	}
	n.Notes = append(n.Notes, note)
}

// Clone returns a deep copy with no aliasing of slices or maps.
func (n *AreaNode) Clone() *AreaNode {
	c := *n
	if n.Notes != nil {
		c.Notes = append([]string(nil), n.Notes...)
	}
	if n.LockedFields != nil {
		c.LockedFields = make(map[string]bool, len(n.LockedFields))
		for k, v := range n.LockedFields {
			c.LockedFields[k] = v
		}
	}
	return &c
}

// Validate checks well-formedness of a node
func (n *AreaNode) Validate() error {
	if strings.TrimSpace(n.Name) == "" {
		return core.ErrEmptyName
	}
	if n.AreaPerUnit <= 0 {
		return core.ErrInvalidArea
	}
	if n.Count < 1 {
		return core.ErrInvalidCount
	}
	return nil
}

// NodeInput carries the data needed to create an area node
type NodeInput struct {
	Name        string     `json:"name"`
	AreaPerUnit float64    `json:"area_per_unit"`
	Count       int        `json:"count"`
	Provenance  Provenance `json:"provenance,omitempty"`
	Note        string     `json:"note,omitempty"`
	Confidence  float64    `json:"confidence,omitempty"`
}

// NodeChanges carries a partial update; nil fields are left untouched
type NodeChanges struct {
	Name        *string  `json:"name,omitempty"`
	AreaPerUnit *float64 `json:"area_per_unit,omitempty"`
	Count       *int     `json:"count,omitempty"`
	Note        *string  `json:"note,omitempty"`
}

// Group is a named, colored, unordered collection of area node IDs.
// Membership is exclusive: a node belongs to at most one group.
type Group struct {
	ID         core.GroupID   `json:"id"`
	Name       string         `json:"name"`
	Color      string         `json:"color"`
	ProgramIDs []core.NodeID  `json:"program_ids"`
	CreatedAt  core.Timestamp `json:"created_at"`
}

// Contains reports membership of a node ID.
func (g *Group) Contains(id core.NodeID) bool {
	for _, pid := range g.ProgramIDs {
		if pid == id {
			return true
		}
	}
	return false
}

// Remove deletes a node ID from the member list if present.
func (g *Group) Remove(id core.NodeID) {
	for i, pid := range g.ProgramIDs {
		if pid == id {
			g.ProgramIDs = append(g.ProgramIDs[:i], g.ProgramIDs[i+1:]...)
			return
		}
	}
}

// IsEmpty reports whether the group has no members. Empty groups are
// invalid and must be removed by whatever operation emptied them.
func (g *Group) IsEmpty() bool {
	return len(g.ProgramIDs) == 0
}

// Clone returns a deep copy with no aliasing of the member slice.
func (g *Group) Clone() *Group {
	c := *g
	if g.ProgramIDs != nil {
		c.ProgramIDs = append([]core.NodeID(nil), g.ProgramIDs...)
	}
	return &c
}

// GroupInput carries the data needed to create a group
type GroupInput struct {
	Name       string        `json:"name"`
	Color      string        `json:"color"`
	ProgramIDs []core.NodeID `json:"program_ids,omitempty"`
}

// TotalArea sums the total area of the given nodes.
func TotalArea(nodes []*AreaNode) float64 {
	var sum float64
	for _, n := range nodes {
		sum += n.TotalArea
	}
	return sum
}

// TotalCount sums the instance counts of the given nodes.
func TotalCount(nodes []*AreaNode) int {
	var sum int
	for _, n := range nodes {
		sum += n.Count
	}
	return sum
}
