// Package drift compares freshly built charts against the recorded
// catalog and reports what changed.
package drift

import (
	"sort"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/kyle0527/mermaid-dist/internal/chart"
)

// ChangeKind classifies one drift entry.
type ChangeKind string

const (
	Added   ChangeKind = "added"
	Removed ChangeKind = "removed"
	Changed ChangeKind = "changed"
)

// Change is one drifted chart.
type Change struct {
	Path  string
	Title string
	Kind  ChangeKind
	Diff  string // rendered text diff, only for Changed
}

// Compare diffs two catalog snapshots (path -> charts). The result is
// ordered by path, then by chart title within a path.
func Compare(old, cur map[string][]chart.Chart) []Change {
	var changes []Change

	paths := make(map[string]bool, len(old)+len(cur))
	for p := range old {
		paths[p] = true
	}
	for p := range cur {
		paths[p] = true
	}

	sorted := make([]string, 0, len(paths))
	for p := range paths {
		sorted = append(sorted, p)
	}
	sort.Strings(sorted)

	dmp := diffmatchpatch.New()
	for _, p := range sorted {
		oldByTitle := byTitle(old[p])
		curByTitle := byTitle(cur[p])

		titles := make(map[string]bool, len(oldByTitle)+len(curByTitle))
		for t := range oldByTitle {
			titles[t] = true
		}
		for t := range curByTitle {
			titles[t] = true
		}
		sortedTitles := make([]string, 0, len(titles))
		for t := range titles {
			sortedTitles = append(sortedTitles, t)
		}
		sort.Strings(sortedTitles)

		for _, t := range sortedTitles {
			oldText, hadOld := oldByTitle[t]
			curText, hasCur := curByTitle[t]
			switch {
			case !hadOld:
				changes = append(changes, Change{Path: p, Title: t, Kind: Added})
			case !hasCur:
				changes = append(changes, Change{Path: p, Title: t, Kind: Removed})
			case oldText != curText:
				diffs := dmp.DiffMain(oldText, curText, false)
				diffs = dmp.DiffCleanupSemantic(diffs)
				changes = append(changes, Change{
					Path:  p,
					Title: t,
					Kind:  Changed,
					Diff:  dmp.DiffPrettyText(diffs),
				})
			}
		}
	}
	return changes
}

func byTitle(charts []chart.Chart) map[string]string {
	m := make(map[string]string, len(charts))
	for _, ch := range charts {
		m[ch.Title] = ch.Mermaid
	}
	return m
}
