package graph

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"spaceplan/domain/core"
	"spaceplan/domain/program"
	"spaceplan/internal/history"
)

// CreateGroup validates and inserts a new group. Any listed members are
// moved out of their previous group (membership is exclusive).
func (g *Graph) CreateGroup(input program.GroupInput) (*program.Group, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if input.Name == "" {
		return nil, core.ErrEmptyName
	}
	for _, pid := range input.ProgramIDs {
		if _, ok := g.nodes[pid]; !ok {
			return nil, core.NewStaleReferenceError("node", pid.String())
		}
	}

	g.snapshot(history.ActionCreateGroup, fmt.Sprintf("Create group %s", input.Name))

	grp := &program.Group{
		ID:        core.GroupID(core.NewID()),
		Name:      input.Name,
		Color:     input.Color,
		CreatedAt: core.Now(),
	}
	g.groups[grp.ID] = grp
	g.assignLocked(grp, input.ProgramIDs)
	return grp.Clone(), nil
}

// DeleteGroup removes a group; its member nodes stay in the graph.
func (g *Graph) DeleteGroup(id core.GroupID) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	grp, ok := g.groups[id]
	if !ok {
		return core.NewNotFoundError("group", id.String())
	}

	g.snapshot(history.ActionDeleteGroup, fmt.Sprintf("Delete group %s", grp.Name))
	delete(g.groups, id)
	return nil
}

// AssignToGroup adds nodes to a group. Idempotent per node: reassigning
// a node already in the group is a no-op; otherwise the node is removed
// from whichever group previously held it, and groups emptied by that
// removal are cleaned up.
func (g *Graph) AssignToGroup(id core.GroupID, nodeIDs []core.NodeID) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	grp, ok := g.groups[id]
	if !ok {
		return core.NewNotFoundError("group", id.String())
	}
	for _, pid := range nodeIDs {
		if _, ok := g.nodes[pid]; !ok {
			return core.NewStaleReferenceError("node", pid.String())
		}
	}

	moving := 0
	for _, pid := range nodeIDs {
		if !grp.Contains(pid) {
			moving++
		}
	}
	// All listed nodes already members: nothing changes, no undo step.
	if moving == 0 {
		return nil
	}

	g.snapshot(history.ActionAssignGroup, fmt.Sprintf("Assign %d areas to %s", moving, grp.Name))
	g.assignLocked(grp, nodeIDs)
	return nil
}

// assignLocked moves nodes into grp, enforcing exclusive membership.
func (g *Graph) assignLocked(grp *program.Group, nodeIDs []core.NodeID) {
	for _, pid := range nodeIDs {
		if grp.Contains(pid) {
			continue
		}
		for _, other := range g.groups {
			if other.ID != grp.ID {
				other.Remove(pid)
			}
		}
		grp.ProgramIDs = append(grp.ProgramIDs, pid)
	}
	g.sweepEmptyGroups()
}

// SplitGroupEqual duplicates the group's structure parts times, dividing
// each member's count as evenly as integer division allows; remainder
// goes to the first parts. Splitting count 10 into 3 yields 4, 3, 3.
func (g *Graph) SplitGroupEqual(id core.GroupID, parts int, nameSuffix string) ([]*program.Group, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	grp, ok := g.groups[id]
	if !ok {
		return nil, core.NewNotFoundError("group", id.String())
	}
	if parts < 2 {
		return nil, fmt.Errorf("split needs at least 2 parts, got %d", parts)
	}

	g.snapshot(history.ActionSplitGroup, fmt.Sprintf("Split group %s into %d", grp.Name, parts))

	allocations := make(map[core.NodeID][]int, len(grp.ProgramIDs))
	for _, pid := range grp.ProgramIDs {
		node := g.nodes[pid]
		alloc := make([]int, parts)
		base := node.Count / parts
		rem := node.Count % parts
		for i := range alloc {
			alloc[i] = base
			if i < rem {
				alloc[i]++
			}
		}
		allocations[pid] = alloc
	}
	return g.applyGroupSplitLocked(grp, parts, nameSuffix, allocations), nil
}

// SplitGroupByProportion divides a group by positive weights. Weights
// need not sum to 100; they are normalized by their sum. Counts are
// allocated with a largest-remainder rounding so the parts always sum to
// the original exactly.
func (g *Graph) SplitGroupByProportion(id core.GroupID, proportions []float64) ([]*program.Group, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	grp, ok := g.groups[id]
	if !ok {
		return nil, core.NewNotFoundError("group", id.String())
	}
	if len(proportions) < 2 {
		return nil, fmt.Errorf("split needs at least 2 proportions, got %d", len(proportions))
	}
	for _, p := range proportions {
		if p <= 0 {
			return nil, core.ErrInvalidProportions
		}
	}

	g.snapshot(history.ActionSplitGroup, fmt.Sprintf("Split group %s by proportion", grp.Name))

	total := floats.Sum(proportions)
	weights := make([]float64, len(proportions))
	for i, p := range proportions {
		weights[i] = p / total
	}

	allocations := make(map[core.NodeID][]int, len(grp.ProgramIDs))
	for _, pid := range grp.ProgramIDs {
		allocations[pid] = largestRemainder(g.nodes[pid].Count, weights)
	}
	return g.applyGroupSplitLocked(grp, len(proportions), "", allocations), nil
}

// largestRemainder allocates count units across weights: floor quotas
// first, then one extra unit per part in descending fractional-remainder
// order. Ties break toward the earlier part, which keeps the result
// deterministic.
func largestRemainder(count int, weights []float64) []int {
	alloc := make([]int, len(weights))
	remainders := make([]float64, len(weights))
	used := 0
	for i, w := range weights {
		quota := float64(count) * w
		alloc[i] = int(math.Floor(quota))
		remainders[i] = quota - math.Floor(quota)
		used += alloc[i]
	}

	order := make([]int, len(weights))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return remainders[order[a]] > remainders[order[b]]
	})
	for i := 0; i < count-used; i++ {
		alloc[order[i%len(order)]]++
	}
	return alloc
}

// applyGroupSplitLocked replaces the member nodes of grp with per-part
// lineage-linked nodes and the group itself with one group per part.
// Parts that receive no members are never created (a group must not be
// observably empty). Callers must hold g.mu and have snapshotted.
func (g *Graph) applyGroupSplitLocked(grp *program.Group, parts int, nameSuffix string, allocations map[core.NodeID][]int) []*program.Group {
	members := append([]core.NodeID(nil), grp.ProgramIDs...)

	newGroups := make([]*program.Group, parts)
	for i := 0; i < parts; i++ {
		name := fmt.Sprintf("%s %d", grp.Name, i+1)
		if nameSuffix != "" {
			name = fmt.Sprintf("%s %s %d", grp.Name, nameSuffix, i+1)
		}
		newGroups[i] = &program.Group{
			ID:        core.GroupID(core.NewID()),
			Name:      name,
			Color:     grp.Color,
			CreatedAt: core.Now(),
		}
	}

	for _, pid := range members {
		node := g.nodes[pid]
		lineage := node.LineageID
		if lineage.IsEmpty() {
			lineage = core.LineageID(core.NewID())
		}
		for i, quantity := range allocations[pid] {
			if quantity < 1 {
				continue
			}
			part := &program.AreaNode{
				ID:          core.NodeID(core.NewID()),
				Name:        node.Name,
				AreaPerUnit: node.AreaPerUnit,
				Count:       quantity,
				Provenance:  node.Provenance,
				ContainerID: node.ContainerID,
				LineageID:   lineage,
				CreatedAt:   core.Now(),
			}
			part.AddNote(fmt.Sprintf("split from group %s", grp.Name))
			part.Recompute()
			g.nodes[part.ID] = part
			newGroups[i].ProgramIDs = append(newGroups[i].ProgramIDs, part.ID)
		}
		g.deleteNodeLocked(pid)
	}

	delete(g.groups, grp.ID)
	out := make([]*program.Group, 0, parts)
	for _, ng := range newGroups {
		if ng.IsEmpty() {
			continue
		}
		g.groups[ng.ID] = ng
		out = append(out, ng.Clone())
	}
	return out
}

// MergeGroupAreas collapses every member node of a group into a single
// node. count = sum of counts; areaPerUnit = total area / count, so the
// group's total area is conserved. The group itself is deleted.
func (g *Graph) MergeGroupAreas(id core.GroupID, newName string) (*program.AreaNode, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	grp, ok := g.groups[id]
	if !ok {
		return nil, core.NewNotFoundError("group", id.String())
	}
	if newName == "" {
		return nil, core.ErrEmptyName
	}

	g.snapshot(history.ActionMergeGroupAreas, fmt.Sprintf("Collapse group %s into %s", grp.Name, newName))

	var totalArea float64
	var totalCount int
	members := append([]core.NodeID(nil), grp.ProgramIDs...)
	for _, pid := range members {
		node := g.nodes[pid]
		totalArea += node.TotalArea
		totalCount += node.Count
	}

	merged := &program.AreaNode{
		ID:          core.NodeID(core.NewID()),
		Name:        newName,
		AreaPerUnit: totalArea / float64(totalCount),
		Count:       totalCount,
		Provenance:  program.ProvenanceUser,
		CreatedAt:   core.Now(),
	}
	merged.AddNote(fmt.Sprintf("collapsed from group %s", grp.Name))
	merged.Recompute()

	for _, pid := range members {
		g.deleteNodeLocked(pid)
	}
	delete(g.groups, id)
	g.nodes[merged.ID] = merged
	return merged.Clone(), nil
}
