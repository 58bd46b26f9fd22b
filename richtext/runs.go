package richtext

import "github.com/deepteams/dirplayer/internal/packer"

// CharRun is one (position, style-index) pair decoded from a 0x0004
// or 0x0005 section (spec.md §4.2 "character runs").
type CharRun struct {
	Position int
	StyleIdx int
}

// decodeCharRuns reads repeated (position, style-index) pairs until
// the payload is exhausted.
func decodeCharRuns(payload []byte) []CharRun {
	p := packer.New(payload)
	var runs []CharRun
	for p.Remaining() {
		pos := p.Int()
		if !p.Remaining() {
			break
		}
		styleIdx := p.Int()
		runs = append(runs, CharRun{Position: pos, StyleIdx: styleIdx})
	}
	return runs
}

// mergeRuns concatenates 0x0004 and 0x0005 runs, sorts by position,
// and collapses duplicate positions keeping the first occurrence —
// giving 0x0004 entries precedence since they are appended first
// (spec.md §4.2).
func mergeRuns(runs4, runs5 []CharRun) []CharRun {
	all := make([]CharRun, 0, len(runs4)+len(runs5))
	all = append(all, runs4...)
	all = append(all, runs5...)

	sortRunsByPosition(all)

	var out []CharRun
	seen := map[int]bool{}
	for _, r := range all {
		if seen[r.Position] {
			continue
		}
		seen[r.Position] = true
		out = append(out, r)
	}
	return out
}

func sortRunsByPosition(runs []CharRun) {
	for i := 1; i < len(runs); i++ {
		for j := i; j > 0 && runs[j-1].Position > runs[j].Position; j-- {
			runs[j-1], runs[j] = runs[j], runs[j-1]
		}
	}
}
