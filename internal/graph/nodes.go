package graph

import (
	"fmt"
	"log"

	"spaceplan/domain/core"
	"spaceplan/domain/program"
	"spaceplan/internal/history"
)

// CreateNode validates and inserts a new area node. If a container
// context is open the node nests under it instead of the root.
func (g *Graph) CreateNode(input program.NodeInput) (*program.AreaNode, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	node, err := g.buildNodeLocked(input)
	if err != nil {
		return nil, err
	}

	g.snapshot(history.ActionCreateNode, fmt.Sprintf("Create %s", node.Name))
	g.nodes[node.ID] = node
	return node.Clone(), nil
}

// buildNodeLocked constructs and validates a node without inserting it.
func (g *Graph) buildNodeLocked(input program.NodeInput) (*program.AreaNode, error) {
	prov := input.Provenance
	if prov == "" {
		prov = program.ProvenanceUser
	}
	count := input.Count
	if count == 0 {
		count = 1
	}
	node := &program.AreaNode{
		ID:          core.NodeID(core.NewID()),
		Name:        input.Name,
		AreaPerUnit: input.AreaPerUnit,
		Count:       count,
		Provenance:  prov,
		Confidence:  input.Confidence,
		ContainerID: g.currentContainerLocked(),
		CreatedAt:   core.Now(),
	}
	if input.Note != "" {
		node.AddNote(input.Note)
	}
	if err := node.Validate(); err != nil {
		return nil, err
	}
	node.Recompute()
	return node, nil
}

// UpdateNode applies a partial update, rejecting changes to locked
// fields. This is the path AI proposals take; user edits go through
// UserUpdateNode, which may touch locked fields and pins what it edits.
func (g *Graph) UpdateNode(id core.NodeID, changes program.NodeChanges) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.updateNodeLocked(id, changes, false)
}

// UserUpdateNode applies a direct user edit. An explicit user action is
// not a silent overwrite, so locks do not block it; every field the user
// touches becomes locked against later silent changes.
func (g *Graph) UserUpdateNode(id core.NodeID, changes program.NodeChanges) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.updateNodeLocked(id, changes, true)
}

func (g *Graph) updateNodeLocked(id core.NodeID, changes program.NodeChanges, userEdit bool) error {
	node, ok := g.nodes[id]
	if !ok {
		return core.NewNotFoundError("area node", id.String())
	}

	// Validate everything before snapshotting so a rejected update
	// leaves no history entry.
	if !userEdit {
		if changes.Name != nil && node.IsLocked("name") {
			return core.NewLockedFieldError("name", id.String())
		}
		if changes.AreaPerUnit != nil && node.IsLocked("area_per_unit") {
			return core.NewLockedFieldError("area_per_unit", id.String())
		}
		if changes.Count != nil && node.IsLocked("count") {
			return core.NewLockedFieldError("count", id.String())
		}
	}
	if changes.Name != nil && *changes.Name == "" {
		return core.ErrEmptyName
	}
	if changes.AreaPerUnit != nil && *changes.AreaPerUnit <= 0 {
		return core.ErrInvalidArea
	}
	if changes.Count != nil && *changes.Count < 1 {
		return core.ErrInvalidCount
	}

	g.snapshot(history.ActionUpdateNode, fmt.Sprintf("Edit %s", node.Name))

	if changes.Name != nil {
		node.Name = *changes.Name
		if userEdit {
			node.Lock("name")
		}
	}
	if changes.AreaPerUnit != nil {
		node.AreaPerUnit = *changes.AreaPerUnit
		node.NeedsReview = false
		if userEdit {
			node.Lock("area_per_unit")
		}
	}
	if changes.Count != nil {
		node.Count = *changes.Count
		if userEdit {
			node.Lock("count")
		}
	}
	if changes.Note != nil {
		node.AddNote(*changes.Note)
	}
	if userEdit {
		node.Provenance = program.ProvenanceUser
	}
	node.Recompute()
	return nil
}

// DeleteNode removes a node, detaches it from every group, and cleans up
// any group that ends up empty. Children nested under the node are
// reparented to the node's own container.
func (g *Graph) DeleteNode(id core.NodeID) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	node, ok := g.nodes[id]
	if !ok {
		return core.NewNotFoundError("area node", id.String())
	}

	g.snapshot(history.ActionDeleteNode, fmt.Sprintf("Delete %s", node.Name))
	g.deleteNodeLocked(id)
	return nil
}

// deleteNodeLocked performs the delete cascade without snapshotting, for
// reuse inside compound operations that snapshot once up front.
func (g *Graph) deleteNodeLocked(id core.NodeID) {
	parent := g.nodes[id].ContainerID
	delete(g.nodes, id)
	for _, n := range g.nodes {
		if n.ContainerID == id {
			n.ContainerID = parent
		}
	}
	g.detachFromGroups(id)
	if removed := g.sweepEmptyGroups(); len(removed) > 0 {
		log.Printf("[Graph] Removed %d group(s) emptied by deleting node %s", len(removed), id)
	}
}

// SplitNodeByQuantity replaces one node with len(quantities) nodes whose
// counts are the supplied quantities; they must sum to the original
// count. The results share a lineage ID for traceability and take over
// the source's group membership.
func (g *Graph) SplitNodeByQuantity(id core.NodeID, quantities []int, names []string) ([]*program.AreaNode, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	node, ok := g.nodes[id]
	if !ok {
		return nil, core.NewNotFoundError("area node", id.String())
	}
	if len(quantities) < 2 {
		return nil, fmt.Errorf("split needs at least two quantities")
	}
	sum := 0
	for _, q := range quantities {
		if q < 1 {
			return nil, core.ErrInvalidCount
		}
		sum += q
	}
	if sum != node.Count {
		return nil, fmt.Errorf("%w: quantities sum to %d, node count is %d", core.ErrQuantityMismatch, sum, node.Count)
	}
	if len(names) > 0 && len(names) != len(quantities) {
		return nil, fmt.Errorf("names and quantities length mismatch")
	}

	g.snapshot(history.ActionSplitNode, fmt.Sprintf("Split %s into %d", node.Name, len(quantities)))

	lineage := node.LineageID
	if lineage.IsEmpty() {
		lineage = core.LineageID(core.NewID())
	}
	// Resolve the source's group before deleting it so the new parts
	// can inherit membership.
	sourceGroup := g.groupOfLocked(id)

	parts := make([]*program.AreaNode, 0, len(quantities))
	for i, q := range quantities {
		name := fmt.Sprintf("%s %d", node.Name, i+1)
		if len(names) > 0 && names[i] != "" {
			name = names[i]
		}
		part := &program.AreaNode{
			ID:          core.NodeID(core.NewID()),
			Name:        name,
			AreaPerUnit: node.AreaPerUnit,
			Count:       q,
			Provenance:  node.Provenance,
			ContainerID: node.ContainerID,
			LineageID:   lineage,
			CreatedAt:   core.Now(),
		}
		part.AddNote(fmt.Sprintf("split from %s", node.Name))
		part.Recompute()
		g.nodes[part.ID] = part
		if sourceGroup != nil {
			sourceGroup.ProgramIDs = append(sourceGroup.ProgramIDs, part.ID)
		}
		parts = append(parts, part.Clone())
	}
	g.deleteNodeLocked(id)
	return parts, nil
}

// MergeSpec names the replacement node of a merge
type MergeSpec struct {
	Name string `json:"name"`
}

// MergeNodes deletes the source nodes and creates one replacement whose
// count is the summed counts and whose per-unit area conserves total
// area: areaPerUnit = sum(area_i * count_i) / sum(count_i). If every
// source belonged to the same group, the replacement joins that group.
func (g *Graph) MergeNodes(ids []core.NodeID, spec MergeSpec) (*program.AreaNode, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(ids) < 2 {
		return nil, fmt.Errorf("merge needs at least two nodes")
	}
	if spec.Name == "" {
		return nil, core.ErrEmptyName
	}

	sources := make([]*program.AreaNode, 0, len(ids))
	seen := make(map[core.NodeID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return nil, fmt.Errorf("duplicate node id %s in merge", id)
		}
		seen[id] = true
		node, ok := g.nodes[id]
		if !ok {
			return nil, core.NewNotFoundError("area node", id.String())
		}
		sources = append(sources, node)
	}

	g.snapshot(history.ActionMergeNodes, fmt.Sprintf("Merge %d areas into %s", len(ids), spec.Name))

	var totalArea float64
	var totalCount int
	for _, n := range sources {
		totalArea += n.TotalArea
		totalCount += n.Count
	}

	// A merge auto-joins the shared group only when the sources agree;
	// mixed-group or group-less merges leave the result ungrouped.
	sharedGroup := g.groupOfLocked(ids[0])
	for _, id := range ids[1:] {
		if sharedGroup == nil {
			break
		}
		grp := g.groupOfLocked(id)
		if grp == nil || grp.ID != sharedGroup.ID {
			sharedGroup = nil
		}
	}

	merged := &program.AreaNode{
		ID:          core.NodeID(core.NewID()),
		Name:        spec.Name,
		AreaPerUnit: totalArea / float64(totalCount),
		Count:       totalCount,
		Provenance:  program.ProvenanceUser,
		ContainerID: sources[0].ContainerID,
		CreatedAt:   core.Now(),
	}
	merged.AddNote(fmt.Sprintf("merged from %d areas", len(ids)))
	merged.Recompute()

	for _, id := range ids {
		g.deleteNodeLocked(id)
	}
	g.nodes[merged.ID] = merged
	if sharedGroup != nil {
		// The shared group survives the deletes only if it had other
		// members; recreate membership either way via re-lookup.
		if grp, ok := g.groups[sharedGroup.ID]; ok {
			grp.ProgramIDs = append(grp.ProgramIDs, merged.ID)
		} else {
			restored := sharedGroup.Clone()
			restored.ProgramIDs = []core.NodeID{merged.ID}
			g.groups[restored.ID] = restored
		}
	}
	return merged.Clone(), nil
}

// ScaleAreas multiplies per-unit areas by factor. An empty id list means
// every node. Nodes whose area field is locked are skipped, not failed:
// scaling is a bulk advisory operation and locks win.
func (g *Graph) ScaleAreas(ids []core.NodeID, factor float64) ([]core.NodeID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if factor <= 0 {
		return nil, fmt.Errorf("scale factor must be positive, got %v", factor)
	}
	targets := ids
	if len(targets) == 0 {
		for id := range g.nodes {
			targets = append(targets, id)
		}
	} else {
		for _, id := range targets {
			if _, ok := g.nodes[id]; !ok {
				return nil, core.NewNotFoundError("area node", id.String())
			}
		}
	}

	var scaled []core.NodeID
	for _, id := range targets {
		if !g.nodes[id].IsLocked("area_per_unit") {
			scaled = append(scaled, id)
		}
	}
	// Every target locked: nothing changes, so no undo step either.
	if len(scaled) == 0 {
		return nil, nil
	}

	g.snapshot(history.ActionScaleAreas, fmt.Sprintf("Scale %d areas by %.2f", len(scaled), factor))
	for _, id := range scaled {
		node := g.nodes[id]
		node.AreaPerUnit *= factor
		node.Recompute()
	}
	return scaled, nil
}

// LockField pins a node field against silent overwrites.
func (g *Graph) LockField(id core.NodeID, field string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	node, ok := g.nodes[id]
	if !ok {
		return core.NewNotFoundError("area node", id.String())
	}
	node.Lock(field)
	return nil
}

// UnlockField releases a pinned field.
func (g *Graph) UnlockField(id core.NodeID, field string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	node, ok := g.nodes[id]
	if !ok {
		return core.NewNotFoundError("area node", id.String())
	}
	delete(node.LockedFields, field)
	return nil
}
