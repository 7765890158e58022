package catalog

import (
	"sort"
)

// RenameConflict records an old id that the catalog reported as renamed to
// more than one new id. The largest candidate is used.
type RenameConflict struct {
	OldID      int
	Candidates []int
	Chosen     int
}

// ResolveRenames collapses rename events into a mapping from every superseded
// id to the id that currently holds its data. Chains (A->B->C) resolve to
// their terminal id and merges (A->C, B->C) keep every source. Duplicate
// events are ignored. The result is independent of event order.
func ResolveRenames(events []RenameEvent) (map[int]int, []RenameConflict) {
	targets := make(map[int]map[int]struct{})
	for _, ev := range events {
		if ev.OldID <= 0 || ev.NewID <= 0 || ev.OldID == ev.NewID {
			continue
		}
		if targets[ev.OldID] == nil {
			targets[ev.OldID] = make(map[int]struct{})
		}
		targets[ev.OldID][ev.NewID] = struct{}{}
	}

	next := make(map[int]int, len(targets))
	var conflicts []RenameConflict
	for old, set := range targets {
		candidates := make([]int, 0, len(set))
		for id := range set {
			candidates = append(candidates, id)
		}
		sort.Sort(sort.Reverse(sort.IntSlice(candidates)))
		next[old] = candidates[0]
		if len(candidates) > 1 {
			conflicts = append(conflicts, RenameConflict{OldID: old, Candidates: candidates, Chosen: candidates[0]})
		}
	}
	sort.Slice(conflicts, func(i, j int) bool { return conflicts[i].OldID > conflicts[j].OldID })

	olds := make([]int, 0, len(next))
	for id := range next {
		olds = append(olds, id)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(olds)))

	resolved := make(map[int]int, len(next))
	for _, start := range olds {
		var path []int
		onPath := make(map[int]bool)
		id := start
		for {
			if terminal, ok := resolved[id]; ok {
				id = terminal
				break
			}
			to, ok := next[id]
			if !ok || onPath[id] {
				// a cycle ends at the first repeated id
				break
			}
			onPath[id] = true
			path = append(path, id)
			id = to
		}
		for _, p := range path {
			if p != id {
				resolved[p] = id
			}
		}
	}
	return resolved, conflicts
}
