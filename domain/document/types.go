package document

import (
	"encoding/json"
	"fmt"

	"spaceplan/domain/brief"
	"spaceplan/domain/core"
	"spaceplan/domain/program"
)

// SchemaVersionCurrent is the version written by Export. Version 1
// documents (flat area list, no lineage or lock metadata) are migrated
// on import; anything else is rejected.
const (
	SchemaVersionCurrent = 2
	SchemaVersionLegacy  = 1
)

// Meta carries non-structural document information
type Meta struct {
	Title       string            `json:"title,omitempty"`
	UnitSystem  brief.UnitSystem  `json:"unit_system,omitempty"`
	Fingerprint core.DocumentHash `json:"fingerprint,omitempty"`
	ExportedAt  core.Timestamp    `json:"exported_at"`
}

// AreaLayer holds the node map keyed by opaque identifier
type AreaLayer struct {
	Nodes map[core.NodeID]*program.AreaNode `json:"nodes"`
}

// GroupingLayer holds the group map keyed by opaque identifier
type GroupingLayer struct {
	Groups map[core.GroupID]*program.Group `json:"groups"`
}

// Project is the versioned export/import document: a direct structural
// dump of the in-memory state, no binary encoding.
type Project struct {
	SchemaVersion int              `json:"schema_version"`
	Meta          Meta             `json:"meta"`
	RawInputs     []brief.RawInput `json:"raw_inputs,omitempty"`
	AreaLayer     AreaLayer        `json:"area_layer"`
	GroupingLayer GroupingLayer    `json:"grouping_layer"`
}

// legacyProject is the version-1 layout: areas as a flat list and group
// members stored as plain strings.
type legacyProject struct {
	SchemaVersion int  `json:"schema_version"`
	Meta          Meta `json:"meta"`
	Areas         []struct {
		ID    string  `json:"id"`
		Name  string  `json:"name"`
		Area  float64 `json:"area"`
		Count int     `json:"count"`
	} `json:"areas"`
	Groups []struct {
		ID         string   `json:"id"`
		Name       string   `json:"name"`
		Color      string   `json:"color"`
		ProgramIDs []string `json:"program_ids"`
	} `json:"groups"`
}

// Decode parses a serialized document, migrating recognized older
// versions and rejecting unknown ones.
func Decode(data []byte) (*Project, error) {
	var probe struct {
		SchemaVersion int `json:"schema_version"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	switch probe.SchemaVersion {
	case SchemaVersionCurrent:
		var doc Project
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse document: %w", err)
		}
		if doc.AreaLayer.Nodes == nil {
			doc.AreaLayer.Nodes = make(map[core.NodeID]*program.AreaNode)
		}
		if doc.GroupingLayer.Groups == nil {
			doc.GroupingLayer.Groups = make(map[core.GroupID]*program.Group)
		}
		return &doc, nil
	case SchemaVersionLegacy:
		var legacy legacyProject
		if err := json.Unmarshal(data, &legacy); err != nil {
			return nil, fmt.Errorf("parse legacy document: %w", err)
		}
		return migrateLegacy(&legacy), nil
	default:
		return nil, fmt.Errorf("%w: %d", core.ErrUnknownSchemaVersion, probe.SchemaVersion)
	}
}

// Encode serializes a document and stamps its content fingerprint.
func Encode(doc *Project) ([]byte, error) {
	doc.SchemaVersion = SchemaVersionCurrent

	// Fingerprint the structural layers only, so re-exporting unchanged
	// content yields the same hash regardless of export time.
	structural, err := json.Marshal(struct {
		AreaLayer     AreaLayer     `json:"area_layer"`
		GroupingLayer GroupingLayer `json:"grouping_layer"`
	}{doc.AreaLayer, doc.GroupingLayer})
	if err != nil {
		return nil, fmt.Errorf("fingerprint document: %w", err)
	}
	doc.Meta.Fingerprint = core.DocumentHash(core.NewHash(structural))

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return data, nil
}

// migrateLegacy lifts a version-1 document into the current layout.
// Legacy areas carry no provenance so they are attributed to the brief.
func migrateLegacy(legacy *legacyProject) *Project {
	doc := &Project{
		SchemaVersion: SchemaVersionCurrent,
		Meta:          legacy.Meta,
		AreaLayer:     AreaLayer{Nodes: make(map[core.NodeID]*program.AreaNode)},
		GroupingLayer: GroupingLayer{Groups: make(map[core.GroupID]*program.Group)},
	}
	for _, a := range legacy.Areas {
		node := &program.AreaNode{
			ID:          core.NodeID(a.ID),
			Name:        a.Name,
			AreaPerUnit: a.Area,
			Count:       a.Count,
			Provenance:  program.ProvenanceBrief,
		}
		if node.Count < 1 {
			node.Count = 1
		}
		node.Recompute()
		doc.AreaLayer.Nodes[node.ID] = node
	}
	for _, g := range legacy.Groups {
		grp := &program.Group{
			ID:    core.GroupID(g.ID),
			Name:  g.Name,
			Color: g.Color,
		}
		for _, pid := range g.ProgramIDs {
			// Drop members that the legacy document never defined.
			if _, ok := doc.AreaLayer.Nodes[core.NodeID(pid)]; ok {
				grp.ProgramIDs = append(grp.ProgramIDs, core.NodeID(pid))
			}
		}
		if !grp.IsEmpty() {
			doc.GroupingLayer.Groups[grp.ID] = grp
		}
	}
	return doc
}
