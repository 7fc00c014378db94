// Package history maintains the linear undo/redo stack of full graph
// snapshots. Every graph-mutating operation pushes a snapshot of the
// pre-operation state before touching anything, so undo always lands on
// the state the operation started from.
package history

import (
	"spaceplan/domain/core"
	"spaceplan/domain/program"
)

// ActionType tags a snapshot with the operation that followed it
type ActionType string

const (
	ActionCreateNode      ActionType = "create_node"
	ActionUpdateNode      ActionType = "update_node"
	ActionDeleteNode      ActionType = "delete_node"
	ActionSplitNode       ActionType = "split_node"
	ActionMergeNodes      ActionType = "merge_nodes"
	ActionCreateGroup     ActionType = "create_group"
	ActionDeleteGroup     ActionType = "delete_group"
	ActionAssignGroup     ActionType = "assign_group"
	ActionSplitGroup      ActionType = "split_group"
	ActionMergeGroupAreas ActionType = "merge_group_areas"
	ActionScaleAreas      ActionType = "scale_areas"
	ActionRegroup         ActionType = "regroup"
	ActionLoad            ActionType = "load"
	ActionProposal        ActionType = "proposal"
)

// State is a full {nodes, groups} copy. Snapshots own their copies
// outright; mutating the live graph never reaches into a stored State.
type State struct {
	Nodes  map[core.NodeID]*program.AreaNode
	Groups map[core.GroupID]*program.Group
}

// CloneState deep-copies a node and group map pair.
func CloneState(nodes map[core.NodeID]*program.AreaNode, groups map[core.GroupID]*program.Group) *State {
	s := &State{
		Nodes:  make(map[core.NodeID]*program.AreaNode, len(nodes)),
		Groups: make(map[core.GroupID]*program.Group, len(groups)),
	}
	for id, n := range nodes {
		s.Nodes[id] = n.Clone()
	}
	for id, g := range groups {
		s.Groups[id] = g.Clone()
	}
	return s
}

// Clone deep-copies a State.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	return CloneState(s.Nodes, s.Groups)
}

// Snapshot is one immutable entry on the undo stack
type Snapshot struct {
	Action  ActionType
	Label   string
	State   *State
	TakenAt core.Timestamp
}

// DefaultLimit caps the number of retained snapshots; the oldest entries
// are trimmed once the stack grows past it.
const DefaultLimit = 100

// Manager holds the strictly linear snapshot sequence. entries[:cursor]
// are the undoable pre-states; cursor == len(entries) means no undo has
// happened since the last push.
type Manager struct {
	entries []*Snapshot
	cursor  int
	// top holds the live state captured when the first undo of a run
	// happens, so redo can return all the way to the newest state.
	top   *State
	limit int
}

// NewManager creates a history manager with the default depth limit.
func NewManager() *Manager {
	return &Manager{limit: DefaultLimit}
}

// NewManagerWithLimit creates a history manager with a custom depth limit.
func NewManagerWithLimit(limit int) *Manager {
	if limit < 1 {
		limit = 1
	}
	return &Manager{limit: limit}
}

// Push records the pre-operation state and discards any redo tail.
func (m *Manager) Push(action ActionType, label string, nodes map[core.NodeID]*program.AreaNode, groups map[core.GroupID]*program.Group) {
	m.entries = m.entries[:m.cursor]
	m.top = nil

	m.entries = append(m.entries, &Snapshot{
		Action:  action,
		Label:   label,
		State:   CloneState(nodes, groups),
		TakenAt: core.Now(),
	})
	if len(m.entries) > m.limit {
		m.entries = m.entries[len(m.entries)-m.limit:]
	}
	m.cursor = len(m.entries)
}

// Undo moves the cursor back one position and returns a copy of that
// snapshot's state, or nil if already at the oldest entry. The caller
// passes its live state so a later Redo can return to it.
func (m *Manager) Undo(liveNodes map[core.NodeID]*program.AreaNode, liveGroups map[core.GroupID]*program.Group) *State {
	if m.cursor == 0 {
		return nil
	}
	if m.cursor == len(m.entries) {
		m.top = CloneState(liveNodes, liveGroups)
	}
	m.cursor--
	return m.entries[m.cursor].State.Clone()
}

// Redo is the mirror of Undo: it moves the cursor forward and returns a
// copy of the state the undone operation had produced, or nil when there
// is nothing to redo.
func (m *Manager) Redo() *State {
	if m.cursor == len(m.entries) {
		return nil
	}
	m.cursor++
	if m.cursor == len(m.entries) {
		return m.top.Clone()
	}
	return m.entries[m.cursor].State.Clone()
}

// CanUndo reports whether an undo step is available.
func (m *Manager) CanUndo() bool { return m.cursor > 0 }

// CanRedo reports whether a redo step is available.
func (m *Manager) CanRedo() bool { return m.cursor < len(m.entries) }

// Depth returns the number of retained snapshots.
func (m *Manager) Depth() int { return len(m.entries) }

// LastLabel returns the label of the most recent undoable snapshot, or
// "" when the stack is empty.
func (m *Manager) LastLabel() string {
	if m.cursor == 0 {
		return ""
	}
	return m.entries[m.cursor-1].Label
}
