package exec

import (
	"math/rand"

	"github.com/cuemby/graphcore/pkg/expr"
	"github.com/cuemby/graphcore/pkg/types"
)

// EdgeColumnSpec describes one edge-type output column of a get-neighbors
// row: the ordered property names to project per edge instance, and an
// optional reservoir cap. A SampleSize of zero keeps every matching edge.
type EdgeColumnSpec struct {
	Props      []string
	SampleSize int
	Seed       int64
}

// GetNeighborsNode is the get-neighbors terminal emit operator. It drains
// its FilterNode once per vid, simultaneously accumulating any declared
// stat columns and bucketing (reservoir-sampling, where configured) edge
// rows into their declared output column, then assembles the full output
// row: [vid, stats-list|null, tag-0-list, ..., tag-k-list, edge-0-list|null, ..., edge-m-list|null].
type GetNeighborsNode struct {
	base
	Filter  *FilterNode
	Columns []EdgeColumnSpec // aligned with the wrapped HashJoinNode's Edges order; empty in tag-only mode
	Stats   []StatSpec

	row types.Value
}

func NewGetNeighborsNode(filter *FilterNode, columns []EdgeColumnSpec, stats []StatSpec) *GetNeighborsNode {
	return &GetNeighborsNode{base: newBase("GetNeighborsNode", filter), Filter: filter, Columns: columns, Stats: stats}
}

func (n *GetNeighborsNode) Execute(ctx *RuntimeContext, part types.PartitionID, vid types.Value) error {
	return n.runTimed(ctx, part, vid, func() error {
		tagList := n.Filter.Value()

		accs := make([]aggState, len(n.Stats))
		buckets := make([][]types.Value, len(n.Columns))
		seen := make([]int, len(n.Columns))
		rngs := make([]*rand.Rand, len(n.Columns))
		for i, c := range n.Columns {
			if c.SampleSize > 0 {
				rngs[i] = rand.New(rand.NewSource(c.Seed))
			}
		}

		for n.Filter.Next(ctx) {
			for i, st := range n.Stats {
				v, err := expr.Evaluate(st.Source, ctx.Vars)
				if err != nil {
					ctx.IllegalDataCount++
					continue
				}
				accs[i].accumulate(st.Func, v)
			}

			idx := n.Filter.EdgeIndex()
			if idx < 0 || idx >= len(n.Columns) {
				continue
			}
			row := n.Filter.Current()
			if row == nil {
				continue
			}
			val := n.projectEdge(ctx, row, n.Columns[idx])
			seen[idx]++
			limit := n.Columns[idx].SampleSize
			if limit <= 0 || len(buckets[idx]) < limit {
				buckets[idx] = append(buckets[idx], val)
				continue
			}
			j := rngs[idx].Intn(seen[idx])
			if j < limit {
				buckets[idx][j] = val
			}
		}
		if err := n.Filter.Err(); err != nil {
			return err
		}

		var statVal types.Value
		if len(n.Stats) == 0 {
			statVal = types.NullValue()
		} else {
			stats := make([]types.Value, len(n.Stats))
			for i, st := range n.Stats {
				stats[i] = accs[i].materialize(st.Func)
			}
			statVal = types.ListValue(stats...)
		}

		out := make([]types.Value, 0, 2+len(tagList.L)+len(n.Columns))
		out = append(out, vid, statVal)
		out = append(out, tagList.L...)
		for _, b := range buckets {
			if len(b) == 0 {
				out = append(out, types.NullValue())
				continue
			}
			out = append(out, types.ListValue(b...))
		}
		n.row = types.ListValue(out...)
		return nil
	})
}

// projectEdge builds one edge's inner output list: the declared property
// values in order, followed by _src, _type, _rank, _dst.
func (n *GetNeighborsNode) projectEdge(ctx *RuntimeContext, row *edgeRow, spec EdgeColumnSpec) types.Value {
	vals := make([]types.Value, 0, len(spec.Props)+4)
	for _, p := range spec.Props {
		v, ok := ctx.EdgeProps[p]
		if !ok {
			v = types.NullValue()
		}
		vals = append(vals, v)
	}
	vals = append(vals, row.Src, types.IntValue(int64(row.EdgeType)), types.IntValue(row.Rank), row.Dst)
	return types.ListValue(vals...)
}

// Value returns the assembled output row.
func (n *GetNeighborsNode) Value() types.Value { return n.row }
