package grouping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spaceplan/domain/brief"
	"spaceplan/domain/core"
	"spaceplan/domain/program"
)

func item(name string) *program.AreaNode {
	n := &program.AreaNode{
		ID:          core.NodeID(core.NewID()),
		Name:        name,
		AreaPerUnit: 10,
		Count:       1,
	}
	n.Recompute()
	return n
}

// assertPartition checks the core invariant: every known item in exactly
// one group, nothing extra, no empty groups.
func assertPartition(t *testing.T, groups []*program.Group, items []*program.AreaNode) {
	t.Helper()
	seen := make(map[core.NodeID]int)
	for _, g := range groups {
		assert.False(t, g.IsEmpty(), "group %q is empty", g.Name)
		for _, id := range g.ProgramIDs {
			seen[id]++
		}
	}
	require.Len(t, seen, len(items))
	for _, it := range items {
		assert.Equal(t, 1, seen[it.ID], "item %q assigned %d times", it.Name, seen[it.ID])
	}
}

func TestReconcileValidPartitionPassesThrough(t *testing.T) {
	a, b := item("Office"), item("Lobby")
	items := []*program.AreaNode{a, b}

	groups := New().Reconcile([]brief.RawGroup{
		{Name: "Work", ProgramIDs: []string{a.ID.String()}},
		{Name: "Public", ProgramIDs: []string{b.ID.String()}},
	}, items, nil)

	require.Len(t, groups, 2)
	assertPartition(t, groups, items)
}

func TestReconcileUnassignedItemsFallToMisc(t *testing.T) {
	a, b, c := item("Office"), item("Lobby"), item("Plant Room")
	items := []*program.AreaNode{a, b, c}

	groups := New().Reconcile([]brief.RawGroup{
		{Name: "Work", ProgramIDs: []string{a.ID.String(), b.ID.String()}},
	}, items, nil)

	assertPartition(t, groups, items)
	require.Len(t, groups, 2)
	assert.Equal(t, "Miscellaneous", groups[1].Name)
	assert.ElementsMatch(t, []core.NodeID{c.ID}, groups[1].ProgramIDs)
}

func TestReconcileUsesExistingOtherBucket(t *testing.T) {
	a, b, stray := item("Office"), item("Plant Room"), item("Storage")
	items := []*program.AreaNode{a, b, stray}

	groups := New().Reconcile([]brief.RawGroup{
		{Name: "Work", ProgramIDs: []string{a.ID.String()}},
		{Name: "Other", ProgramIDs: []string{b.ID.String()}},
	}, items, nil)

	// The pre-existing Other bucket absorbs the unassigned item; no
	// second Miscellaneous group appears.
	assertPartition(t, groups, items)
	require.Len(t, groups, 2)
	var other *program.Group
	for _, g := range groups {
		if g.Name == "Other" {
			other = g
		}
	}
	require.NotNil(t, other)
	assert.ElementsMatch(t, []core.NodeID{b.ID, stray.ID}, other.ProgramIDs)
}

func TestReconcileRedistributesIntoEmptyLexicalMatches(t *testing.T) {
	a, b := item("Office East"), item("Lab Bench")
	items := []*program.AreaNode{a, b}

	// "Office Wing" arrives empty; the unassigned "Office East" shares
	// the token "office" and should land there, not in Misc.
	groups := New().Reconcile([]brief.RawGroup{
		{Name: "Research", ProgramIDs: []string{b.ID.String()}},
		{Name: "Office Wing", ProgramIDs: nil},
	}, items, nil)

	assertPartition(t, groups, items)
	var wing *program.Group
	for _, g := range groups {
		if g.Name == "Office Wing" {
			wing = g
		}
	}
	require.NotNil(t, wing)
	assert.ElementsMatch(t, []core.NodeID{a.ID}, wing.ProgramIDs)
}

func TestReconcileRedistributesByOriginGroupName(t *testing.T) {
	a := item("Room 101")
	items := []*program.AreaNode{a}

	r := New()
	r.Origins = map[core.NodeID]string{a.ID: "Teaching Cluster"}

	groups := r.Reconcile([]brief.RawGroup{
		{Name: "Teaching", ProgramIDs: nil},
	}, items, nil)

	assertPartition(t, groups, items)
	require.Len(t, groups, 1)
	assert.Equal(t, "Teaching", groups[0].Name)
}

func TestReconcileEvenSpreadAcrossCompetingEmptyGroups(t *testing.T) {
	var items []*program.AreaNode
	for i := 0; i < 4; i++ {
		items = append(items, item("Office"))
	}

	groups := New().Reconcile([]brief.RawGroup{
		{Name: "Office North", ProgramIDs: nil},
		{Name: "Office South", ProgramIDs: nil},
	}, items, nil)

	assertPartition(t, groups, items)
	require.Len(t, groups, 2)
	// Four identical matches split evenly between the two competitors.
	assert.Len(t, groups[0].ProgramIDs, 2)
	assert.Len(t, groups[1].ProgramIDs, 2)
}

func TestReconcileDropsDuplicateAndUnknownReferences(t *testing.T) {
	a := item("Office")
	items := []*program.AreaNode{a}

	groups := New().Reconcile([]brief.RawGroup{
		{Name: "Work", ProgramIDs: []string{a.ID.String(), "ghost-id"}},
		{Name: "Also Work", ProgramIDs: []string{a.ID.String()}},
	}, items, nil)

	assertPartition(t, groups, items)
	require.Len(t, groups, 1)
	assert.Equal(t, "Work", groups[0].Name)
}

func TestReconcileEmptyInputsYieldEmptyResult(t *testing.T) {
	groups := New().Reconcile([]brief.RawGroup{{Name: "Work"}}, nil, nil)
	assert.Empty(t, groups)
}

func TestReconcileAssignsDefaultColors(t *testing.T) {
	a := item("Office")
	groups := New().Reconcile([]brief.RawGroup{
		{Name: "Work", ProgramIDs: []string{a.ID.String()}},
	}, []*program.AreaNode{a}, nil)

	require.Len(t, groups, 1)
	assert.NotEmpty(t, groups[0].Color)
}

func TestReconcileNewItemsJoinThePartition(t *testing.T) {
	a := item("Office")
	fresh := item("New Meeting Room")

	groups := New().Reconcile([]brief.RawGroup{
		{Name: "Work", ProgramIDs: []string{a.ID.String(), fresh.ID.String()}},
	}, []*program.AreaNode{a}, []*program.AreaNode{fresh})

	assertPartition(t, groups, []*program.AreaNode{a, fresh})
}
