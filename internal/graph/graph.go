// Package graph holds the authoritative in-memory project model: area
// nodes and groups keyed by opaque identifiers. All mutation goes through
// the enumerated operation set; every mutating operation snapshots the
// pre-operation state into the history manager first, which is what makes
// undo/redo airtight.
package graph

import (
	"fmt"
	"sort"
	"sync"

	"spaceplan/domain/brief"
	"spaceplan/domain/core"
	"spaceplan/domain/document"
	"spaceplan/domain/program"
	"spaceplan/internal/history"
)

// Graph is the single shared mutable resource of a project session.
// Operations are coarse and graph-wide; a mutex serializes them so the
// HTTP handlers and the chat service can share one instance.
type Graph struct {
	mu     sync.Mutex
	nodes  map[core.NodeID]*program.AreaNode
	groups map[core.GroupID]*program.Group
	hist   *history.Manager

	// containers is the stack of open container contexts; createNode
	// nests new nodes under the innermost one instead of the root.
	containers []core.NodeID

	rawInputs []brief.RawInput
	meta      document.Meta
}

// New creates an empty graph with a fresh history manager.
func New() *Graph {
	return &Graph{
		nodes:  make(map[core.NodeID]*program.AreaNode),
		groups: make(map[core.GroupID]*program.Group),
		hist:   history.NewManager(),
	}
}

// NewWithHistory creates an empty graph around an existing history manager.
func NewWithHistory(hist *history.Manager) *Graph {
	g := New()
	g.hist = hist
	return g
}

// snapshot records the pre-operation state. Callers must hold g.mu and
// must have finished all validation: a pushed snapshot implies the
// mutation that follows will happen.
func (g *Graph) snapshot(action history.ActionType, label string) {
	g.hist.Push(action, label, g.nodes, g.groups)
}

// adopt replaces the live state wholesale with a restored snapshot.
func (g *Graph) adopt(s *history.State) {
	g.nodes = s.Nodes
	g.groups = s.Groups
}

// Undo restores the state before the most recent operation. Returns the
// label of the undone operation, or false when there is nothing to undo.
func (g *Graph) Undo() (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	label := g.hist.LastLabel()
	s := g.hist.Undo(g.nodes, g.groups)
	if s == nil {
		return "", false
	}
	g.adopt(s)
	return label, true
}

// Redo reverses the most recent undo.
func (g *Graph) Redo() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	s := g.hist.Redo()
	if s == nil {
		return false
	}
	g.adopt(s)
	return true
}

// CanUndo reports whether an undo step is available.
func (g *Graph) CanUndo() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.hist.CanUndo()
}

// CanRedo reports whether a redo step is available.
func (g *Graph) CanRedo() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.hist.CanRedo()
}

// Node returns a copy of one node.
func (g *Graph) Node(id core.NodeID) (*program.AreaNode, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, core.NewNotFoundError("area node", id.String())
	}
	return n.Clone(), nil
}

// Nodes returns copies of all nodes, sorted by creation order (IDs are
// time-ordered UUIDv7, so lexical sort is chronological).
func (g *Graph) Nodes() []*program.AreaNode {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.nodesLocked()
}

func (g *Graph) nodesLocked() []*program.AreaNode {
	out := make([]*program.AreaNode, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Group returns a copy of one group.
func (g *Graph) Group(id core.GroupID) (*program.Group, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	grp, ok := g.groups[id]
	if !ok {
		return nil, core.NewNotFoundError("group", id.String())
	}
	return grp.Clone(), nil
}

// Groups returns copies of all groups, sorted by ID.
func (g *Graph) Groups() []*program.Group {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.groupsLocked()
}

func (g *Graph) groupsLocked() []*program.Group {
	out := make([]*program.Group, 0, len(g.groups))
	for _, grp := range g.groups {
		out = append(out, grp.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// GroupOf returns a copy of the group holding the given node, or nil if
// the node is ungrouped.
func (g *Graph) GroupOf(id core.NodeID) *program.Group {
	g.mu.Lock()
	defer g.mu.Unlock()

	if grp := g.groupOfLocked(id); grp != nil {
		return grp.Clone()
	}
	return nil
}

func (g *Graph) groupOfLocked(id core.NodeID) *program.Group {
	for _, grp := range g.groups {
		if grp.Contains(id) {
			return grp
		}
	}
	return nil
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.nodes)
}

// GroupCount returns the number of groups.
func (g *Graph) GroupCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.groups)
}

// OpenContainer pushes a container context; nodes created while it is
// open nest under it instead of the root.
func (g *Graph) OpenContainer(id core.NodeID) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[id]; !ok {
		return core.NewNotFoundError("container node", id.String())
	}
	g.containers = append(g.containers, id)
	return nil
}

// CloseContainer pops the innermost container context.
func (g *Graph) CloseContainer() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.containers) > 0 {
		g.containers = g.containers[:len(g.containers)-1]
	}
}

func (g *Graph) currentContainerLocked() core.NodeID {
	if len(g.containers) == 0 {
		return ""
	}
	return g.containers[len(g.containers)-1]
}

// AddRawInput records a brief source for document export traceability.
func (g *Graph) AddRawInput(input brief.RawInput) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rawInputs = append(g.rawInputs, input)
}

// SetMeta sets the document metadata used by Export.
func (g *Graph) SetMeta(meta document.Meta) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.meta = meta
}

// Load replaces graph contents with the given nodes and groups, e.g. the
// output of the grouping reconciler. Snapshotted like any other mutation.
func (g *Graph) Load(label string, nodes []*program.AreaNode, groups []*program.Group) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	known := make(map[core.NodeID]bool, len(nodes))
	for _, n := range nodes {
		if err := n.Validate(); err != nil {
			if !n.NeedsReview {
				return fmt.Errorf("load node %q: %w", n.Name, err)
			}
			// Flagged nodes may be incomplete (surfaced for review,
			// not dropped) as long as they are not outright malformed.
			if n.Name == "" || n.Count < 1 {
				return fmt.Errorf("load node %q: %w", n.Name, err)
			}
		}
		known[n.ID] = true
	}
	for _, grp := range groups {
		for _, pid := range grp.ProgramIDs {
			if !known[pid] {
				return fmt.Errorf("load group %q: %w", grp.Name, core.NewStaleReferenceError("node", pid.String()))
			}
		}
		if grp.IsEmpty() {
			return fmt.Errorf("load group %q: empty groups are not persisted", grp.Name)
		}
	}

	g.snapshot(history.ActionLoad, label)
	g.nodes = make(map[core.NodeID]*program.AreaNode, len(nodes))
	for _, n := range nodes {
		g.nodes[n.ID] = n.Clone()
	}
	g.groups = make(map[core.GroupID]*program.Group, len(groups))
	for _, grp := range groups {
		g.groups[grp.ID] = grp.Clone()
	}
	return nil
}

// Export dumps the graph into a versioned document.
func (g *Graph) Export() *document.Project {
	g.mu.Lock()
	defer g.mu.Unlock()

	doc := &document.Project{
		SchemaVersion: document.SchemaVersionCurrent,
		Meta:          g.meta,
		RawInputs:     append([]brief.RawInput(nil), g.rawInputs...),
		AreaLayer:     document.AreaLayer{Nodes: make(map[core.NodeID]*program.AreaNode, len(g.nodes))},
		GroupingLayer: document.GroupingLayer{Groups: make(map[core.GroupID]*program.Group, len(g.groups))},
	}
	doc.Meta.ExportedAt = core.Now()
	for id, n := range g.nodes {
		doc.AreaLayer.Nodes[id] = n.Clone()
	}
	for id, grp := range g.groups {
		doc.GroupingLayer.Groups[id] = grp.Clone()
	}
	return doc
}

// Import replaces graph contents from a decoded document. Dangling group
// members would violate referential integrity, so they are rejected.
func (g *Graph) Import(doc *document.Project) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, grp := range doc.GroupingLayer.Groups {
		for _, pid := range grp.ProgramIDs {
			if _, ok := doc.AreaLayer.Nodes[pid]; !ok {
				return fmt.Errorf("import group %q: %w", grp.Name, core.NewStaleReferenceError("node", pid.String()))
			}
		}
	}

	g.snapshot(history.ActionLoad, "Import document")
	g.nodes = make(map[core.NodeID]*program.AreaNode, len(doc.AreaLayer.Nodes))
	for id, n := range doc.AreaLayer.Nodes {
		clone := n.Clone()
		clone.Recompute()
		g.nodes[id] = clone
	}
	g.groups = make(map[core.GroupID]*program.Group, len(doc.GroupingLayer.Groups))
	for id, grp := range doc.GroupingLayer.Groups {
		if grp.IsEmpty() {
			continue
		}
		g.groups[id] = grp.Clone()
	}
	g.meta = doc.Meta
	g.rawInputs = append([]brief.RawInput(nil), doc.RawInputs...)
	return nil
}

// sweepEmptyGroups removes groups emptied by the operation in progress.
// Runs inside the same mutation, so a group is never observably empty
// between two operations. Callers must hold g.mu.
func (g *Graph) sweepEmptyGroups() []core.GroupID {
	var removed []core.GroupID
	for id, grp := range g.groups {
		if grp.IsEmpty() {
			delete(g.groups, id)
			removed = append(removed, id)
		}
	}
	return removed
}

// detachFromGroups removes a node ID from every group member list.
// Callers must hold g.mu.
func (g *Graph) detachFromGroups(id core.NodeID) {
	for _, grp := range g.groups {
		grp.Remove(id)
	}
}
