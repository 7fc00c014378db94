// Package extraction normalizes untrusted parse results into
// well-formed program items. The AI collaborator (and every other
// extraction source) is treated as unreliable: missing fields get
// defaults, suspect fields get flagged for review, and nothing is ever
// silently dropped — output length always equals input length.
package extraction

import (
	"log"
	"strings"

	"spaceplan/domain/brief"
	"spaceplan/domain/core"
	"spaceplan/domain/program"
)

// defaultConfidence is assigned when the source supplied none.
const defaultConfidence = 0.8

// lowConfidence marks items whose area was missing or non-positive.
const lowConfidence = 0.2

// Normalize converts raw candidate programs into AreaNodes. Guarantees:
// len(result) == len(raws); every result either passes Validate or is
// flagged NeedsReview; totals are always recomputed from area and count
// because upstream-computed totals are a known inconsistency source.
func Normalize(raws []brief.RawProgram, provenance program.Provenance) []*program.AreaNode {
	if provenance == "" {
		provenance = program.ProvenanceAI
	}

	out := make([]*program.AreaNode, 0, len(raws))
	for i, raw := range raws {
		node := &program.AreaNode{
			ID:         core.NodeID(core.NewID()),
			Name:       strings.TrimSpace(raw.Name),
			Provenance: provenance,
			Confidence: raw.Confidence,
			CreatedAt:  core.Now(),
		}
		// Keep a supplied identifier when it is usable; otherwise the
		// generated one stands.
		if id := strings.TrimSpace(raw.ID); id != "" {
			node.ID = core.NodeID(id)
		}
		if node.Name == "" {
			node.Name = "Unnamed space"
			node.NeedsReview = true
			node.AddNote("extraction returned no name")
		}
		if node.Confidence == 0 {
			node.Confidence = defaultConfidence
		}

		node.Count = raw.Count
		if node.Count < 1 {
			// Missing count defaults to 1; it is not a review reason.
			node.Count = 1
		}

		node.AreaPerUnit = raw.Area
		if node.AreaPerUnit <= 0 {
			// Do not fabricate an area: flag the item for review so
			// the user supplies one, instead of silently zeroing.
			node.AreaPerUnit = 0
			node.NeedsReview = true
			node.Confidence = lowConfidence
			node.AddNote("extraction returned no usable area")
			log.Printf("[Normalizer] Item %d (%q) has no usable area, flagged for review", i, node.Name)
		}

		if raw.Note != "" {
			node.AddNote(raw.Note)
		}
		if raw.Total != 0 && raw.Total != node.AreaPerUnit*float64(node.Count) {
			node.AddNote("upstream total ignored; recomputed from area and count")
		}
		node.Recompute()
		out = append(out, node)
	}
	return out
}

// GroupHints collects the group hint labels of raw programs, keyed by
// the IDs their normalized nodes ended up with. Hint order follows
// first appearance.
func GroupHints(raws []brief.RawProgram, nodes []*program.AreaNode) (map[string][]core.NodeID, []string) {
	hints := make(map[string][]core.NodeID)
	var order []string
	for i, raw := range raws {
		if i >= len(nodes) {
			break
		}
		hint := strings.TrimSpace(raw.GroupHint)
		if hint == "" {
			continue
		}
		if _, seen := hints[hint]; !seen {
			order = append(order, hint)
		}
		hints[hint] = append(hints[hint], nodes[i].ID)
	}
	return hints, order
}
