package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spaceplan/domain/brief"
	"spaceplan/domain/core"
	"spaceplan/domain/program"
	"spaceplan/domain/proposal"
	"spaceplan/internal/graph"
)

func seedGraph(t *testing.T) (*graph.Graph, *program.AreaNode, *program.AreaNode) {
	t.Helper()
	g := graph.New()
	office, err := g.CreateNode(program.NodeInput{Name: "Office", AreaPerUnit: 12, Count: 10})
	require.NoError(t, err)
	lobby, err := g.CreateNode(program.NodeInput{Name: "Lobby", AreaPerUnit: 80, Count: 1})
	require.NoError(t, err)
	return g, office, lobby
}

func TestSubmitRejectsInvalidProposal(t *testing.T) {
	g, _, _ := seedGraph(t)
	e := New(g)

	p := proposal.New(proposal.KindCreateAreas, "empty creation")
	p.CreateAreas = &proposal.CreateAreasPayload{}
	assert.ErrorIs(t, e.Submit(p), core.ErrInvalidProposal)
	assert.Empty(t, e.All())
}

func TestAcceptCreateAreasWithGroupHints(t *testing.T) {
	g, _, _ := seedGraph(t)
	e := New(g)

	p := proposal.New(proposal.KindCreateAreas, "add meeting spaces")
	p.CreateAreas = &proposal.CreateAreasPayload{Areas: []brief.RawProgram{
		{Name: "Meeting Room", Area: 20, Count: 4, GroupHint: "Collaboration"},
		{Name: "Phone Booth", Area: 3, Count: 6, GroupHint: "Collaboration"},
	}}
	require.NoError(t, e.Submit(p))

	result, err := e.Accept(p.ID)
	require.NoError(t, err)
	assert.Len(t, result.CreatedNodes, 2)
	require.Len(t, result.CreatedGroups, 1)

	grp, err := g.Group(result.CreatedGroups[0])
	require.NoError(t, err)
	assert.Equal(t, "Collaboration", grp.Name)
	assert.Len(t, grp.ProgramIDs, 2)
	assert.Equal(t, proposal.StatusAccepted, p.Status)
}

func TestAcceptIsIdempotentOnTerminal(t *testing.T) {
	g, office, _ := seedGraph(t)
	e := New(g)

	p := proposal.New(proposal.KindUpdateArea, "bump office area")
	area := 15.0
	p.UpdateArea = &proposal.UpdateAreaPayload{NodeID: office.ID, Changes: program.NodeChanges{AreaPerUnit: &area}}
	require.NoError(t, e.Submit(p))

	first, err := e.Accept(p.ID)
	require.NoError(t, err)
	require.NotNil(t, first)

	// Second accept must be a silent no-op, not a re-apply.
	second, err := e.Accept(p.ID)
	assert.NoError(t, err)
	assert.Nil(t, second)

	n, err := g.Node(office.ID)
	require.NoError(t, err)
	assert.Equal(t, 15.0, n.AreaPerUnit)
	assert.Equal(t, 150.0, n.TotalArea)
}

func TestAcceptStaleSplitFailsWithoutMutation(t *testing.T) {
	g, office, lobby := seedGraph(t)
	e := New(g)

	p := proposal.New(proposal.KindSplitArea, "split office by floor")
	p.SplitArea = &proposal.SplitAreaPayload{SourceNodeID: office.ID, Quantities: []int{4, 6}}
	require.NoError(t, e.Submit(p))

	// The source disappears between proposal and accept.
	require.NoError(t, g.DeleteNode(office.ID))
	countBefore := g.NodeCount()

	result, err := e.Accept(p.ID)
	assert.Nil(t, result)
	assert.True(t, core.IsNotFoundError(err))
	assert.Equal(t, proposal.StatusRejected, p.Status)
	assert.Contains(t, p.Summary, "could not apply")

	assert.Equal(t, countBefore, g.NodeCount())
	n, err := g.Node(lobby.ID)
	require.NoError(t, err)
	assert.Equal(t, 80.0, n.TotalArea)
}

func TestAcceptDeleteAreasSkipsStaleItems(t *testing.T) {
	g, office, lobby := seedGraph(t)
	e := New(g)

	p := proposal.New(proposal.KindDeleteAreas, "remove both")
	p.DeleteAreas = &proposal.DeleteAreasPayload{NodeIDs: []core.NodeID{office.ID, core.NodeID(core.NewID()), lobby.ID}}
	require.NoError(t, e.Submit(p))

	result, err := e.Accept(p.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []core.NodeID{office.ID, lobby.ID}, result.DeletedNodes)
	assert.Len(t, result.Skipped, 1)
	assert.Equal(t, 0, g.NodeCount())
}

func TestAcceptDeleteAreasAllStaleFails(t *testing.T) {
	g, _, _ := seedGraph(t)
	e := New(g)

	p := proposal.New(proposal.KindDeleteAreas, "remove ghosts")
	p.DeleteAreas = &proposal.DeleteAreasPayload{NodeIDs: []core.NodeID{core.NodeID(core.NewID())}}
	require.NoError(t, e.Submit(p))

	_, err := e.Accept(p.ID)
	assert.ErrorIs(t, err, core.ErrStaleReference)
	assert.Equal(t, 2, g.NodeCount())
}

func TestAcceptMergeSweepsEmptiedGroup(t *testing.T) {
	g, office, lobby := seedGraph(t)
	e := New(g)

	grp, err := g.CreateGroup(program.GroupInput{Name: "Everything", ProgramIDs: []core.NodeID{office.ID, lobby.ID}})
	require.NoError(t, err)

	p := proposal.New(proposal.KindMergeAreas, "merge all")
	p.MergeAreas = &proposal.MergeAreasPayload{SourceNodeIDs: []core.NodeID{office.ID, lobby.ID}, NewName: "Open Plan"}
	require.NoError(t, e.Submit(p))

	result, err := e.Accept(p.ID)
	require.NoError(t, err)
	require.Len(t, result.CreatedNodes, 1)

	// Both sources sat in the same group, so the merged node inherits
	// it and the sweep has nothing to remove.
	got, err := g.Group(grp.ID)
	require.NoError(t, err)
	assert.Equal(t, []core.NodeID{result.CreatedNodes[0]}, got.ProgramIDs)

	merged, err := g.Node(result.CreatedNodes[0])
	require.NoError(t, err)
	assert.Equal(t, 200.0, merged.TotalArea)
}

func TestAcceptRegroupReplacesGroupingLayer(t *testing.T) {
	g, office, lobby := seedGraph(t)
	e := New(g)

	old, err := g.CreateGroup(program.GroupInput{Name: "Old Layout", ProgramIDs: []core.NodeID{office.ID}})
	require.NoError(t, err)

	p := proposal.New(proposal.KindRegroup, "regroup by function")
	p.Regroup = &proposal.RegroupPayload{Groups: []brief.RawGroup{
		{Name: "Work", ProgramIDs: []string{office.ID.String()}},
		{Name: "Public", ProgramIDs: []string{lobby.ID.String()}},
	}}
	require.NoError(t, e.Submit(p))

	result, err := e.Accept(p.ID)
	require.NoError(t, err)
	assert.Len(t, result.CreatedGroups, 2)
	assert.Contains(t, result.RemovedGroups, old.ID)

	_, err = g.Group(old.ID)
	assert.True(t, core.IsNotFoundError(err))

	// Partition invariant: every node grouped exactly once.
	seen := map[core.NodeID]int{}
	for _, grp := range g.Groups() {
		for _, id := range grp.ProgramIDs {
			seen[id]++
		}
	}
	assert.Equal(t, map[core.NodeID]int{office.ID: 1, lobby.ID: 1}, seen)
}

func TestAcceptSplitGroupEqual(t *testing.T) {
	g := graph.New()
	e := New(g)

	var ids []core.NodeID
	for _, name := range []string{"A", "B", "C", "D"} {
		n, err := g.CreateNode(program.NodeInput{Name: name, AreaPerUnit: 10, Count: 1})
		require.NoError(t, err)
		ids = append(ids, n.ID)
	}
	grp, err := g.CreateGroup(program.GroupInput{Name: "Bulk", ProgramIDs: ids})
	require.NoError(t, err)

	p := proposal.New(proposal.KindSplitGroup, "halve the bulk group")
	p.SplitGroup = &proposal.SplitGroupPayload{GroupID: grp.ID, Parts: 2}
	require.NoError(t, e.Submit(p))

	result, err := e.Accept(p.ID)
	require.NoError(t, err)
	assert.Len(t, result.CreatedGroups, 2)
	assert.Contains(t, result.RemovedGroups, grp.ID)
	assert.Equal(t, 2, g.GroupCount())
}

func TestAcceptScaleSkipsStaleTargets(t *testing.T) {
	g, office, lobby := seedGraph(t)
	e := New(g)

	p := proposal.New(proposal.KindScaleAreas, "scale up 10%")
	p.ScaleAreas = &proposal.ScaleAreasPayload{
		NodeIDs: []core.NodeID{office.ID, lobby.ID, core.NodeID(core.NewID())},
		Factor:  1.1,
	}
	require.NoError(t, e.Submit(p))

	result, err := e.Accept(p.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []core.NodeID{office.ID, lobby.ID}, result.UpdatedNodes)
	assert.Len(t, result.Skipped, 1)

	n, err := g.Node(lobby.ID)
	require.NoError(t, err)
	assert.InDelta(t, 88.0, n.AreaPerUnit, 1e-9)
}

func TestRejectLeavesGraphUntouched(t *testing.T) {
	g, office, _ := seedGraph(t)
	e := New(g)

	p := proposal.New(proposal.KindDeleteAreas, "remove office")
	p.DeleteAreas = &proposal.DeleteAreasPayload{NodeIDs: []core.NodeID{office.ID}}
	require.NoError(t, e.Submit(p))

	require.NoError(t, e.Reject(p.ID, "user declined"))
	assert.Equal(t, proposal.StatusRejected, p.Status)
	assert.Equal(t, 2, g.NodeCount())

	// Accepting a rejected proposal is a no-op.
	result, err := e.Accept(p.ID)
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.Equal(t, 2, g.NodeCount())
}

func TestPendingOrdering(t *testing.T) {
	g, office, _ := seedGraph(t)
	e := New(g)

	area := 20.0
	first := proposal.New(proposal.KindUpdateArea, "first")
	first.UpdateArea = &proposal.UpdateAreaPayload{NodeID: office.ID, Changes: program.NodeChanges{AreaPerUnit: &area}}
	second := proposal.New(proposal.KindDeleteAreas, "second")
	second.DeleteAreas = &proposal.DeleteAreasPayload{NodeIDs: []core.NodeID{office.ID}}
	require.NoError(t, e.Submit(first))
	require.NoError(t, e.Submit(second))

	pending := e.Pending()
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID)

	_, err := e.Accept(first.ID)
	require.NoError(t, err)
	pending = e.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)
}

func TestAcceptCreateAreasRejectsRepeatedIDs(t *testing.T) {
	g := graph.New()
	e := New(g)

	// Two raw items carrying the same identifier: only the first may
	// land, and the second must be reported, not silently collapsed.
	p := proposal.New(proposal.KindCreateAreas, "add duplicated rows")
	p.CreateAreas = &proposal.CreateAreasPayload{Areas: []brief.RawProgram{
		{ID: "row-7", Name: "Office", Area: 12, Count: 2},
		{ID: "row-7", Name: "Lab", Area: 30, Count: 1},
	}}
	require.NoError(t, e.Submit(p))

	result, err := e.Accept(p.ID)
	require.NoError(t, err)
	assert.Len(t, result.CreatedNodes, 1)
	require.Len(t, result.Skipped, 1)
	assert.Contains(t, result.Skipped[0], "already present")
	assert.Equal(t, 1, g.NodeCount())
}

func TestConcurrentAcceptAppliesOnce(t *testing.T) {
	g, _, _ := seedGraph(t)
	e := New(g)

	p := proposal.New(proposal.KindCreateAreas, "add storage")
	p.CreateAreas = &proposal.CreateAreasPayload{Areas: []brief.RawProgram{
		{Name: "Storage", Area: 15, Count: 2},
	}}
	require.NoError(t, e.Submit(p))

	const racers = 8
	results := make(chan *Result, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := e.Accept(p.ID)
			assert.NoError(t, err)
			results <- res
		}()
	}
	wg.Wait()
	close(results)

	// Exactly one accept applies; the rest observe the terminal status
	// and no-op.
	applied := 0
	for res := range results {
		if res != nil {
			applied++
		}
	}
	assert.Equal(t, 1, applied)
	assert.Equal(t, 3, g.NodeCount())
	assert.Equal(t, proposal.StatusAccepted, p.Status)
}
