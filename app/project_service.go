package app

import (
	"encoding/json"
	"fmt"

	"spaceplan/domain/core"
	"spaceplan/domain/document"
	"spaceplan/domain/program"
	"spaceplan/internal"
	"spaceplan/internal/engine"
	"spaceplan/internal/graph"
)

// ProjectService covers the non-chat surface: direct user edits,
// history, and document round-trips.
type ProjectService struct {
	graph  *graph.Graph
	engine *engine.Engine
	logger *internal.Logger
}

// NewProjectService wires a project service
func NewProjectService(g *graph.Graph, eng *engine.Engine, logger *internal.Logger) *ProjectService {
	return &ProjectService{graph: g, engine: eng, logger: logger.For("ProjectService")}
}

// Graph exposes read access for handlers
func (s *ProjectService) Graph() *graph.Graph {
	return s.graph
}

// Engine exposes the proposal registry for handlers
func (s *ProjectService) Engine() *engine.Engine {
	return s.engine
}

// CreateNode adds an area directly (a user action, not a proposal)
func (s *ProjectService) CreateNode(input program.NodeInput) (*program.AreaNode, error) {
	return s.graph.CreateNode(input)
}

// UpdateNode applies a direct user edit, pinning the fields it touches
func (s *ProjectService) UpdateNode(id core.NodeID, changes program.NodeChanges) error {
	return s.graph.UserUpdateNode(id, changes)
}

// DeleteNode removes an area directly
func (s *ProjectService) DeleteNode(id core.NodeID) error {
	return s.graph.DeleteNode(id)
}

// Undo steps history back once
func (s *ProjectService) Undo() (string, bool) {
	label, ok := s.graph.Undo()
	if ok {
		s.logger.Info("Undid %q", label)
	}
	return label, ok
}

// Redo steps history forward once
func (s *ProjectService) Redo() bool {
	return s.graph.Redo()
}

// Export serializes the project to the current document schema
func (s *ProjectService) Export() ([]byte, error) {
	doc := s.graph.Export()
	data, err := document.Encode(doc)
	if err != nil {
		return nil, fmt.Errorf("export failed: %w", err)
	}
	s.logger.Info("Exported %d nodes, %d groups", len(doc.AreaLayer.Nodes), len(doc.GroupingLayer.Groups))
	return data, nil
}

// Import replaces the project from a serialized document. Legacy
// schema versions are migrated; unknown versions are rejected before
// anything is touched.
func (s *ProjectService) Import(data []byte) error {
	doc, err := document.Decode(data)
	if err != nil {
		return err
	}
	if err := s.graph.Import(doc); err != nil {
		return err
	}
	s.logger.Info("Imported project %q", doc.Meta.Title)
	return nil
}

// SummaryData is the structured project overview for the API
type SummaryData struct {
	NodeCount  int            `json:"node_count"`
	GroupCount int            `json:"group_count"`
	TotalArea  float64        `json:"total_area"`
	Flagged    int            `json:"flagged"`
	CanUndo    bool           `json:"can_undo"`
	CanRedo    bool           `json:"can_redo"`
	Groups     []GroupSummary `json:"groups"`
}

// GroupSummary is one group line in the overview
type GroupSummary struct {
	ID        core.GroupID `json:"id"`
	Name      string       `json:"name"`
	Color     string       `json:"color"`
	Members   int          `json:"members"`
	TotalArea float64      `json:"total_area"`
}

// Summarize builds the project overview
func (s *ProjectService) Summarize() SummaryData {
	nodes := s.graph.Nodes()
	byID := make(map[core.NodeID]*program.AreaNode, len(nodes))

	out := SummaryData{
		NodeCount:  len(nodes),
		GroupCount: s.graph.GroupCount(),
		CanUndo:    s.graph.CanUndo(),
		CanRedo:    s.graph.CanRedo(),
	}
	for _, n := range nodes {
		byID[n.ID] = n
		out.TotalArea += n.TotalArea
		if n.NeedsReview {
			out.Flagged++
		}
	}
	for _, grp := range s.graph.Groups() {
		gs := GroupSummary{ID: grp.ID, Name: grp.Name, Color: grp.Color, Members: len(grp.ProgramIDs)}
		for _, id := range grp.ProgramIDs {
			if n, ok := byID[id]; ok {
				gs.TotalArea += n.TotalArea
			}
		}
		out.Groups = append(out.Groups, gs)
	}
	return out
}

// SummarizeJSON renders the overview for clients that want raw bytes
func (s *ProjectService) SummarizeJSON() ([]byte, error) {
	return json.Marshal(s.Summarize())
}
