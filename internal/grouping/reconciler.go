// Package grouping enforces the partition invariant over functional
// groups: every known program item belongs to exactly one group. AI
// grouping output violates this routinely — split groups forget to carry
// member lists over, items get listed twice, groups arrive empty — so
// reconciliation is defensive rather than trusting.
package grouping

import (
	"log"
	"strings"
	"unicode"

	"spaceplan/domain/brief"
	"spaceplan/domain/core"
	"spaceplan/domain/program"
)

// palette supplies deterministic default colors for groups that arrive
// without one.
var palette = []string{
	"#4e79a7", "#f28e2b", "#e15759", "#76b7b2", "#59a64f",
	"#edc948", "#b07aa1", "#ff9da7", "#9c755f", "#bab0ac",
}

// fallbackGroupName is used when leftover items have no Other/Misc
// bucket to land in.
const fallbackGroupName = "Miscellaneous"

// Reconciler repairs candidate groupings against the known item set
type Reconciler struct {
	// Origins maps item IDs to the name of the group that previously
	// held them, used as a redistribution signal for empty groups.
	Origins map[core.NodeID]string
}

// New creates a reconciler with no origin hints.
func New() *Reconciler {
	return &Reconciler{}
}

// Reconcile turns candidate groups into a valid partition of items plus
// newItems: every identifier in exactly one group, no empty groups. It
// never fails; with zero known items it returns an empty valid result.
func (r *Reconciler) Reconcile(candidates []brief.RawGroup, items []*program.AreaNode, newItems []*program.AreaNode) []*program.Group {
	known := make(map[core.NodeID]*program.AreaNode, len(items)+len(newItems))
	order := make([]core.NodeID, 0, len(items)+len(newItems))
	for _, it := range items {
		if _, ok := known[it.ID]; !ok {
			known[it.ID] = it
			order = append(order, it.ID)
		}
	}
	for _, it := range newItems {
		if _, ok := known[it.ID]; !ok {
			known[it.ID] = it
			order = append(order, it.ID)
		}
	}
	if len(known) == 0 {
		return nil
	}

	// Step 1: build groups from the candidates, dropping unknown IDs
	// and duplicate assignments (first group to claim an item wins).
	assigned := make(map[core.NodeID]bool, len(known))
	groups := make([]*program.Group, 0, len(candidates))
	var emptyGroups []*program.Group
	for i, cand := range candidates {
		grp := &program.Group{
			ID:        core.GroupID(core.NewID()),
			Name:      strings.TrimSpace(cand.Name),
			Color:     cand.Color,
			CreatedAt: core.Now(),
		}
		if grp.Name == "" {
			grp.Name = fallbackGroupName
		}
		if grp.Color == "" {
			grp.Color = palette[i%len(palette)]
		}
		for _, raw := range cand.ProgramIDs {
			id := core.NodeID(raw)
			if _, ok := known[id]; !ok {
				log.Printf("[Reconciler] Dropping unknown item reference %q from group %q", raw, grp.Name)
				continue
			}
			if assigned[id] {
				log.Printf("[Reconciler] Item %s already assigned; ignoring duplicate in group %q", id, grp.Name)
				continue
			}
			assigned[id] = true
			grp.ProgramIDs = append(grp.ProgramIDs, id)
		}
		if grp.IsEmpty() {
			emptyGroups = append(emptyGroups, grp)
		} else {
			groups = append(groups, grp)
		}
	}

	unassigned := make([]core.NodeID, 0)
	for _, id := range order {
		if !assigned[id] {
			unassigned = append(unassigned, id)
		}
	}

	// Step 2: heuristic redistribution — empty groups claim unassigned
	// items that share a lexical token with their name, round-robin
	// when several empty groups match the same item.
	if len(unassigned) > 0 && len(emptyGroups) > 0 {
		unassigned = r.redistribute(emptyGroups, unassigned, known)
		for _, grp := range emptyGroups {
			if !grp.IsEmpty() {
				groups = append(groups, grp)
			}
		}
	}

	// Step 3: whatever is still loose lands in an Other/Misc bucket.
	if len(unassigned) > 0 {
		bucket := findMiscGroup(groups)
		if bucket == nil {
			bucket = &program.Group{
				ID:        core.GroupID(core.NewID()),
				Name:      fallbackGroupName,
				Color:     palette[len(groups)%len(palette)],
				CreatedAt: core.Now(),
			}
			groups = append(groups, bucket)
		}
		bucket.ProgramIDs = append(bucket.ProgramIDs, unassigned...)
		log.Printf("[Reconciler] Placed %d unassigned item(s) into %q", len(unassigned), bucket.Name)
	}

	// Step 4: groups that remain empty are never persisted.
	out := groups[:0]
	for _, grp := range groups {
		if !grp.IsEmpty() {
			out = append(out, grp)
		}
	}
	return out
}

// redistribute assigns lexically matching unassigned items to empty
// groups. Returns the items that still found no home. When multiple
// empty groups match an item, assignment rotates between them so no
// single group swallows the whole matched set.
func (r *Reconciler) redistribute(empty []*program.Group, unassigned []core.NodeID, known map[core.NodeID]*program.AreaNode) []core.NodeID {
	next := make(map[string]int) // rotation cursor per match signature
	var leftover []core.NodeID

	for _, id := range unassigned {
		item := known[id]
		var matches []*program.Group
		for _, grp := range empty {
			if tokensOverlap(grp.Name, item.Name) || tokensOverlap(grp.Name, r.Origins[id]) {
				matches = append(matches, grp)
			}
		}
		if len(matches) == 0 {
			leftover = append(leftover, id)
			continue
		}
		sig := matchSignature(matches)
		chosen := matches[next[sig]%len(matches)]
		next[sig]++
		chosen.ProgramIDs = append(chosen.ProgramIDs, id)
	}
	return leftover
}

func matchSignature(groups []*program.Group) string {
	parts := make([]string, len(groups))
	for i, g := range groups {
		parts[i] = g.ID.String()
	}
	return strings.Join(parts, "|")
}

// findMiscGroup locates an existing catch-all group by name.
func findMiscGroup(groups []*program.Group) *program.Group {
	for _, grp := range groups {
		name := strings.ToLower(grp.Name)
		if name == "other" || name == "misc" || name == "miscellaneous" ||
			strings.Contains(name, "other/misc") {
			return grp
		}
	}
	return nil
}

// tokensOverlap reports whether two names share at least one lexical
// token, case-insensitive, split on non-letter runes.
func tokensOverlap(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	ta := tokenSet(a)
	for _, tok := range tokenize(b) {
		if ta[tok] {
			return true
		}
	}
	return false
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range tokenize(s) {
		set[tok] = true
	}
	return set
}
