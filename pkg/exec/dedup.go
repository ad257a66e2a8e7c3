package exec

import (
	"sort"

	"github.com/cuemby/graphcore/pkg/types"
)

// DeDupNode sorts a materialized set of output rows by the tuple of values
// at a fixed set of column indices and removes runs of equal tuples,
// keeping the first occurrence. It runs after branch merging, not per vid:
// a lookup over several index contexts builds one row set per branch, and
// DeDupNode reconciles rows that different index paths reached via the
// same primary key.
type DeDupNode struct {
	Cols []int
}

func NewDeDupNode(cols []int) *DeDupNode { return &DeDupNode{Cols: cols} }

func (n *DeDupNode) Name() string { return "DeDupNode" }

// Apply sorts rows in place by the n.Cols tuple and returns the deduped
// slice. Row order among equal tuples is otherwise unspecified; the first
// row in sorted order is the one kept.
func (n *DeDupNode) Apply(rows []types.Value) []types.Value {
	if len(rows) < 2 {
		return rows
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return n.compare(rows[i], rows[j]) < 0
	})
	out := rows[:1]
	for i := 1; i < len(rows); i++ {
		if n.compare(rows[i], out[len(out)-1]) == 0 {
			continue
		}
		out = append(out, rows[i])
	}
	return out
}

func (n *DeDupNode) compare(a, b types.Value) int {
	for _, c := range n.Cols {
		if c >= len(a.L) || c >= len(b.L) {
			continue
		}
		if d := a.L[c].Compare(b.L[c]); d != 0 {
			return d
		}
	}
	return 0
}
