// Package engine applies AI-generated proposals against the project
// graph. Proposals are weak references into the graph: every identifier
// they carry is re-resolved at apply time, never trusted as still valid.
// Application is atomic per proposal — a stale reference fails the whole
// proposal without partial mutation — except for multi-item creations,
// whose items are logically independent and skip individually.
package engine

import (
	"fmt"
	"log"
	"sort"
	"sync"

	"spaceplan/domain/core"
	"spaceplan/domain/program"
	"spaceplan/domain/proposal"
	"spaceplan/internal/extraction"
	"spaceplan/internal/graph"
	"spaceplan/internal/grouping"
)

// Result reports what an accepted proposal did to the graph
type Result struct {
	ProposalID    core.ProposalID `json:"proposal_id"`
	CreatedNodes  []core.NodeID   `json:"created_nodes,omitempty"`
	DeletedNodes  []core.NodeID   `json:"deleted_nodes,omitempty"`
	UpdatedNodes  []core.NodeID   `json:"updated_nodes,omitempty"`
	CreatedGroups []core.GroupID  `json:"created_groups,omitempty"`
	RemovedGroups []core.GroupID  `json:"removed_groups,omitempty"`
	Skipped       []string        `json:"skipped,omitempty"`
}

// Engine owns the proposal registry and the deterministic mapping from
// each proposal kind to graph operations.
type Engine struct {
	mu        sync.Mutex
	graph     *graph.Graph
	proposals map[core.ProposalID]*proposal.Proposal
	order     []core.ProposalID
}

// New creates an engine bound to a graph.
func New(g *graph.Graph) *Engine {
	return &Engine{
		graph:     g,
		proposals: make(map[core.ProposalID]*proposal.Proposal),
	}
}

// Submit registers a pending proposal after structural validation.
func (e *Engine) Submit(p *proposal.Proposal) error {
	if err := p.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.proposals[p.ID]; exists {
		return fmt.Errorf("proposal %s already submitted", p.ID)
	}
	e.proposals[p.ID] = p
	e.order = append(e.order, p.ID)
	return nil
}

// Get returns a proposal by ID.
func (e *Engine) Get(id core.ProposalID) (*proposal.Proposal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.proposals[id]
	if !ok {
		return nil, core.NewNotFoundError("proposal", id.String())
	}
	return p, nil
}

// Pending lists pending proposals in submission order. The engine never
// reorders them.
func (e *Engine) Pending() []*proposal.Proposal {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []*proposal.Proposal
	for _, id := range e.order {
		if p := e.proposals[id]; p.Status == proposal.StatusPending {
			out = append(out, p)
		}
	}
	return out
}

// All lists every registered proposal in submission order.
func (e *Engine) All() []*proposal.Proposal {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]*proposal.Proposal, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.proposals[id])
	}
	return out
}

// Reject marks a pending proposal rejected without touching the graph.
// Rejecting an already-terminal proposal is a no-op.
func (e *Engine) Reject(id core.ProposalID, reason string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.proposals[id]
	if !ok {
		return core.NewNotFoundError("proposal", id.String())
	}
	if p.IsTerminal() {
		return nil
	}
	p.Status = proposal.StatusRejected
	if reason != "" {
		p.Summary = reason
	}
	return nil
}

// Accept applies a pending proposal. Terminal proposals return (nil,
// nil): the second accept of the same proposal is a no-op, not an
// error, so repeated clicks mutate the graph exactly once. The lock is
// held through application, so a racing accept of the same proposal
// blocks until the first finishes and then observes its terminal
// status. On failure the proposal transitions to rejected with the
// failure as explanation and the graph is left untouched.
func (e *Engine) Accept(id core.ProposalID) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.proposals[id]
	if !ok {
		return nil, core.NewNotFoundError("proposal", id.String())
	}
	if p.IsTerminal() {
		log.Printf("[Engine] Proposal %s already %s, ignoring repeat accept", id, p.Status)
		return nil, nil
	}

	result, err := e.apply(p)
	if err != nil {
		p.Status = proposal.StatusRejected
		p.Summary = fmt.Sprintf("could not apply: %v", err)
		return nil, err
	}
	p.Status = proposal.StatusAccepted

	// Post-condition sweep: no group may be left observably empty by
	// the operation just applied.
	if removed := e.graph.SweepEmptyGroups(); len(removed) > 0 {
		result.RemovedGroups = append(result.RemovedGroups, removed...)
	}
	return result, nil
}

// apply dispatches over the closed proposal union.
func (e *Engine) apply(p *proposal.Proposal) (*Result, error) {
	result := &Result{ProposalID: p.ID}

	switch p.Kind {
	case proposal.KindCreateAreas:
		return e.applyCreateAreas(p, result)

	case proposal.KindUpdateArea:
		pay := p.UpdateArea
		if err := e.graph.UpdateNode(pay.NodeID, pay.Changes); err != nil {
			return nil, err
		}
		result.UpdatedNodes = []core.NodeID{pay.NodeID}
		return result, nil

	case proposal.KindDeleteAreas:
		deleted, skipped := e.graph.DeleteNodes("Delete areas (proposal)", p.DeleteAreas.NodeIDs)
		if len(deleted) == 0 {
			return nil, fmt.Errorf("%w: none of the %d areas exist", core.ErrStaleReference, len(p.DeleteAreas.NodeIDs))
		}
		result.DeletedNodes = deleted
		result.Skipped = skipped
		return result, nil

	case proposal.KindSplitArea:
		pay := p.SplitArea
		parts, err := e.graph.SplitNodeByQuantity(pay.SourceNodeID, pay.Quantities, pay.Names)
		if err != nil {
			return nil, err
		}
		for _, part := range parts {
			result.CreatedNodes = append(result.CreatedNodes, part.ID)
		}
		result.DeletedNodes = []core.NodeID{pay.SourceNodeID}
		return result, nil

	case proposal.KindMergeAreas:
		pay := p.MergeAreas
		merged, err := e.graph.MergeNodes(pay.SourceNodeIDs, graph.MergeSpec{Name: pay.NewName})
		if err != nil {
			return nil, err
		}
		result.CreatedNodes = []core.NodeID{merged.ID}
		result.DeletedNodes = pay.SourceNodeIDs
		return result, nil

	case proposal.KindRegroup:
		return e.applyRegroup(p, result)

	case proposal.KindSplitGroup:
		pay := p.SplitGroup
		var groups []*program.Group
		var err error
		if len(pay.Proportions) > 0 {
			groups, err = e.graph.SplitGroupByProportion(pay.GroupID, pay.Proportions)
		} else {
			groups, err = e.graph.SplitGroupEqual(pay.GroupID, pay.Parts, pay.NameSuffix)
		}
		if err != nil {
			return nil, err
		}
		for _, grp := range groups {
			result.CreatedGroups = append(result.CreatedGroups, grp.ID)
		}
		result.RemovedGroups = []core.GroupID{pay.GroupID}
		return result, nil

	case proposal.KindMergeGroupAreas:
		pay := p.MergeGroupAreas
		merged, err := e.graph.MergeGroupAreas(pay.GroupID, pay.NewName)
		if err != nil {
			return nil, err
		}
		result.CreatedNodes = []core.NodeID{merged.ID}
		result.RemovedGroups = []core.GroupID{pay.GroupID}
		return result, nil

	case proposal.KindScaleAreas:
		pay := p.ScaleAreas
		// Stale targets are independent items: filter and report
		// instead of failing the whole scale.
		targets := pay.NodeIDs
		if len(targets) > 0 {
			var live []core.NodeID
			for _, id := range targets {
				if _, err := e.graph.Node(id); err != nil {
					result.Skipped = append(result.Skipped, fmt.Sprintf("node %s no longer exists", id))
					continue
				}
				live = append(live, id)
			}
			if len(live) == 0 {
				return nil, fmt.Errorf("%w: no scale targets remain", core.ErrStaleReference)
			}
			targets = live
		}
		scaled, err := e.graph.ScaleAreas(targets, pay.Factor)
		if err != nil {
			return nil, err
		}
		result.UpdatedNodes = scaled
		return result, nil

	default:
		return nil, fmt.Errorf("%w: unknown kind %q", core.ErrInvalidProposal, p.Kind)
	}
}

// applyCreateAreas normalizes the payload items, inserts them per-item,
// and realizes group hints: an existing group with a matching name
// absorbs the new nodes, otherwise a group is created per hint label.
func (e *Engine) applyCreateAreas(p *proposal.Proposal, result *Result) (*Result, error) {
	normalized := extraction.Normalize(p.CreateAreas.Areas, program.ProvenanceAI)
	inserted, skipped := e.graph.InsertNodes(fmt.Sprintf("Create %d areas", len(normalized)), normalized)
	result.Skipped = skipped
	if len(inserted) == 0 {
		return nil, fmt.Errorf("no areas could be created: %v", skipped)
	}
	for _, n := range inserted {
		result.CreatedNodes = append(result.CreatedNodes, n.ID)
	}

	hints, order := extraction.GroupHints(p.CreateAreas.Areas, normalized)
	insertedSet := make(map[core.NodeID]bool, len(inserted))
	for _, n := range inserted {
		insertedSet[n.ID] = true
	}
	for _, label := range order {
		var members []core.NodeID
		for _, id := range hints[label] {
			if insertedSet[id] {
				members = append(members, id)
			}
		}
		if len(members) == 0 {
			continue
		}
		if existing := e.graph.FindGroupByName(label); existing != nil {
			if err := e.graph.AssignToGroup(existing.ID, members); err != nil {
				return nil, err
			}
			continue
		}
		grp, err := e.graph.CreateGroup(program.GroupInput{Name: label, ProgramIDs: members})
		if err != nil {
			return nil, err
		}
		result.CreatedGroups = append(result.CreatedGroups, grp.ID)
	}
	return result, nil
}

// applyRegroup reconciles the proposed grouping against the live node
// set and swaps the grouping layer wholesale. The reconciler guarantees
// the partition invariant, so ReplaceGroups cannot reject its output.
func (e *Engine) applyRegroup(p *proposal.Proposal, result *Result) (*Result, error) {
	nodes := e.graph.Nodes()
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: graph has no areas to regroup", core.ErrInvalidProposal)
	}

	// Feed current group names as origin hints so empty proposed
	// groups can claim items by where they came from.
	rec := grouping.New()
	rec.Origins = make(map[core.NodeID]string)
	for _, grp := range e.graph.Groups() {
		for _, pid := range grp.ProgramIDs {
			rec.Origins[pid] = grp.Name
		}
	}

	before := make(map[core.GroupID]bool)
	for _, grp := range e.graph.Groups() {
		before[grp.ID] = true
	}

	groups := rec.Reconcile(p.Regroup.Groups, nodes, nil)
	if err := e.graph.ReplaceGroups("Regroup areas", groups); err != nil {
		return nil, err
	}
	for _, grp := range groups {
		result.CreatedGroups = append(result.CreatedGroups, grp.ID)
	}
	removed := make([]core.GroupID, 0, len(before))
	for id := range before {
		removed = append(removed, id)
	}
	sort.Slice(removed, func(i, j int) bool { return removed[i] < removed[j] })
	result.RemovedGroups = removed
	return result, nil
}
