package proposal

import (
	"fmt"

	"spaceplan/domain/brief"
	"spaceplan/domain/core"
	"spaceplan/domain/program"
)

// Kind is the discriminant of the closed proposal union
type Kind string

const (
	KindCreateAreas     Kind = "create_areas"
	KindUpdateArea      Kind = "update_area"
	KindDeleteAreas     Kind = "delete_areas"
	KindSplitArea       Kind = "split_area"
	KindMergeAreas      Kind = "merge_areas"
	KindRegroup         Kind = "regroup"
	KindSplitGroup      Kind = "split_group"
	KindMergeGroupAreas Kind = "merge_group_areas"
	KindScaleAreas      Kind = "scale_areas"
)

// Status is the proposal lifecycle state. Only pending proposals may
// transition; accepted and rejected are terminal.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// CreateAreasPayload creates new area nodes, optionally with group hints
// that auto-create or extend groups on acceptance.
type CreateAreasPayload struct {
	Areas []brief.RawProgram `json:"areas"`
}

// UpdateAreaPayload applies a partial update to one existing node
type UpdateAreaPayload struct {
	NodeID  core.NodeID         `json:"node_id"`
	Changes program.NodeChanges `json:"changes"`
}

// DeleteAreasPayload removes one or more existing nodes
type DeleteAreasPayload struct {
	NodeIDs []core.NodeID `json:"node_ids"`
}

// SplitAreaPayload replaces one node with linked instances whose counts
// are the given quantities (they must sum to the original count).
type SplitAreaPayload struct {
	SourceNodeID core.NodeID `json:"source_node_id"`
	Quantities   []int       `json:"quantities"`
	Names        []string    `json:"names,omitempty"` // optional per-part names
}

// MergeAreasPayload collapses source nodes into one replacement
type MergeAreasPayload struct {
	SourceNodeIDs []core.NodeID `json:"source_node_ids"`
	NewName       string        `json:"new_name"`
}

// RegroupPayload proposes a full replacement grouping over the known nodes
type RegroupPayload struct {
	Groups []brief.RawGroup `json:"groups"`
}

// SplitGroupPayload divides a group either into equal parts or by
// positive proportional weights (exactly one of Parts/Proportions is set).
type SplitGroupPayload struct {
	GroupID     core.GroupID `json:"group_id"`
	Parts       int          `json:"parts,omitempty"`
	Proportions []float64    `json:"proportions,omitempty"`
	NameSuffix  string       `json:"name_suffix,omitempty"`
}

// MergeGroupAreasPayload collapses every member of a group into one node
type MergeGroupAreasPayload struct {
	GroupID core.GroupID `json:"group_id"`
	NewName string       `json:"new_name"`
}

// ScaleAreasPayload multiplies per-unit areas by a factor; empty NodeIDs
// means every node in the graph.
type ScaleAreasPayload struct {
	NodeIDs []core.NodeID `json:"node_ids,omitempty"`
	Factor  float64       `json:"factor"`
}

// Proposal is an immutable, tagged description of one graph mutation
// produced by the AI collaborator. Exactly one payload field matching
// Kind is populated.
type Proposal struct {
	ID          core.ProposalID `json:"id"`
	Kind        Kind            `json:"kind"`
	Status      Status          `json:"status"`
	Summary     string          `json:"summary,omitempty"`
	CreatedAt   core.Timestamp  `json:"created_at"`

	CreateAreas     *CreateAreasPayload     `json:"create_areas,omitempty"`
	UpdateArea      *UpdateAreaPayload      `json:"update_area,omitempty"`
	DeleteAreas     *DeleteAreasPayload     `json:"delete_areas,omitempty"`
	SplitArea       *SplitAreaPayload       `json:"split_area,omitempty"`
	MergeAreas      *MergeAreasPayload      `json:"merge_areas,omitempty"`
	Regroup         *RegroupPayload         `json:"regroup,omitempty"`
	SplitGroup      *SplitGroupPayload      `json:"split_group,omitempty"`
	MergeGroupAreas *MergeGroupAreasPayload `json:"merge_group_areas,omitempty"`
	ScaleAreas      *ScaleAreasPayload      `json:"scale_areas,omitempty"`
}

// New creates a pending proposal of the given kind. The caller attaches
// the matching payload before handing it to the engine.
func New(kind Kind, summary string) *Proposal {
	return &Proposal{
		ID:        core.ProposalID(core.NewID()),
		Kind:      kind,
		Status:    StatusPending,
		Summary:   summary,
		CreatedAt: core.Now(),
	}
}

// IsTerminal reports whether the proposal has been resolved.
func (p *Proposal) IsTerminal() bool {
	return p.Status == StatusAccepted || p.Status == StatusRejected
}

// Validate checks that exactly the payload matching Kind is present and
// carries the minimum data its apply procedure needs.
func (p *Proposal) Validate() error {
	switch p.Kind {
	case KindCreateAreas:
		if p.CreateAreas == nil || len(p.CreateAreas.Areas) == 0 {
			return fmt.Errorf("%w: create_areas needs at least one area", core.ErrInvalidProposal)
		}
	case KindUpdateArea:
		if p.UpdateArea == nil || p.UpdateArea.NodeID.IsEmpty() {
			return fmt.Errorf("%w: update_area needs a node id", core.ErrInvalidProposal)
		}
	case KindDeleteAreas:
		if p.DeleteAreas == nil || len(p.DeleteAreas.NodeIDs) == 0 {
			return fmt.Errorf("%w: delete_areas needs node ids", core.ErrInvalidProposal)
		}
	case KindSplitArea:
		if p.SplitArea == nil || p.SplitArea.SourceNodeID.IsEmpty() || len(p.SplitArea.Quantities) < 2 {
			return fmt.Errorf("%w: split_area needs a source and at least two quantities", core.ErrInvalidProposal)
		}
	case KindMergeAreas:
		if p.MergeAreas == nil || len(p.MergeAreas.SourceNodeIDs) < 2 {
			return fmt.Errorf("%w: merge_areas needs at least two sources", core.ErrInvalidProposal)
		}
	case KindRegroup:
		if p.Regroup == nil {
			return fmt.Errorf("%w: regroup needs a grouping payload", core.ErrInvalidProposal)
		}
	case KindSplitGroup:
		if p.SplitGroup == nil || p.SplitGroup.GroupID.IsEmpty() {
			return fmt.Errorf("%w: split_group needs a group id", core.ErrInvalidProposal)
		}
		if p.SplitGroup.Parts < 2 && len(p.SplitGroup.Proportions) < 2 {
			return fmt.Errorf("%w: split_group needs parts >= 2 or proportions", core.ErrInvalidProposal)
		}
	case KindMergeGroupAreas:
		if p.MergeGroupAreas == nil || p.MergeGroupAreas.GroupID.IsEmpty() || p.MergeGroupAreas.NewName == "" {
			return fmt.Errorf("%w: merge_group_areas needs a group id and name", core.ErrInvalidProposal)
		}
	case KindScaleAreas:
		if p.ScaleAreas == nil || p.ScaleAreas.Factor <= 0 {
			return fmt.Errorf("%w: scale_areas needs a positive factor", core.ErrInvalidProposal)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", core.ErrInvalidProposal, p.Kind)
	}
	return nil
}
