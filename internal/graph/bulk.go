package graph

import (
	"fmt"
	"strings"

	"spaceplan/domain/core"
	"spaceplan/domain/program"
	"spaceplan/internal/history"
)

// InsertNodes adds pre-built nodes (typically normalizer output) under a
// single snapshot. Items that fail validation outright are skipped with
// a reason rather than aborting the batch, since the items are
// logically independent. Nodes flagged NeedsReview may be incomplete.
func (g *Graph) InsertNodes(label string, nodes []*program.AreaNode) (inserted []*program.AreaNode, skipped []string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	accepted := make([]*program.AreaNode, 0, len(nodes))
	seen := make(map[core.NodeID]bool, len(nodes))
	for _, n := range nodes {
		if err := n.Validate(); err != nil && !n.NeedsReview {
			skipped = append(skipped, fmt.Sprintf("%s: %v", n.Name, err))
			continue
		}
		if n.Name == "" || n.Count < 1 {
			skipped = append(skipped, fmt.Sprintf("%s: malformed beyond repair", n.Name))
			continue
		}
		// Reject collisions against the graph and within the batch
		// itself; a repeated ID would overwrite an accepted item.
		if _, exists := g.nodes[n.ID]; exists || seen[n.ID] {
			skipped = append(skipped, fmt.Sprintf("%s: id %s already present", n.Name, n.ID))
			continue
		}
		seen[n.ID] = true
		accepted = append(accepted, n)
	}
	if len(accepted) == 0 {
		return nil, skipped
	}

	g.snapshot(history.ActionCreateNode, label)
	container := g.currentContainerLocked()
	for _, n := range accepted {
		clone := n.Clone()
		if clone.ContainerID.IsEmpty() {
			clone.ContainerID = container
		}
		clone.Recompute()
		g.nodes[clone.ID] = clone
		inserted = append(inserted, clone.Clone())
	}
	return inserted, skipped
}

// DeleteNodes removes several nodes under one snapshot. Stale IDs are
// skipped per item, not fatal to the batch.
func (g *Graph) DeleteNodes(label string, ids []core.NodeID) (deleted []core.NodeID, skipped []string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	existing := make([]core.NodeID, 0, len(ids))
	for _, id := range ids {
		if _, ok := g.nodes[id]; ok {
			existing = append(existing, id)
		} else {
			skipped = append(skipped, fmt.Sprintf("node %s no longer exists", id))
		}
	}
	if len(existing) == 0 {
		return nil, skipped
	}

	g.snapshot(history.ActionDeleteNode, label)
	for _, id := range existing {
		g.deleteNodeLocked(id)
		deleted = append(deleted, id)
	}
	return deleted, skipped
}

// ReplaceGroups swaps the entire grouping layer under one snapshot.
// Groups must reference existing nodes and must not be empty; this is
// the landing point for reconciler output, which guarantees both.
func (g *Graph) ReplaceGroups(label string, groups []*program.Group) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, grp := range groups {
		if grp.IsEmpty() {
			return fmt.Errorf("group %q is empty", grp.Name)
		}
		for _, pid := range grp.ProgramIDs {
			if _, ok := g.nodes[pid]; !ok {
				return core.NewStaleReferenceError("node", pid.String())
			}
		}
	}

	g.snapshot(history.ActionRegroup, label)
	g.groups = make(map[core.GroupID]*program.Group, len(groups))
	for _, grp := range groups {
		g.groups[grp.ID] = grp.Clone()
	}
	return nil
}

// FindGroupByName returns a copy of the first group whose name matches
// case-insensitively, or nil.
func (g *Graph) FindGroupByName(name string) *program.Group {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, grp := range g.groupsLocked() {
		if strings.EqualFold(grp.Name, name) {
			return grp
		}
	}
	return nil
}

// SweepEmptyGroups removes any group with zero members and reports what
// was removed. The enumerated operations already clean up after
// themselves, so this post-condition sweep normally finds nothing; the
// proposal engine runs it anyway after every apply.
func (g *Graph) SweepEmptyGroups() []core.GroupID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sweepEmptyGroups()
}
