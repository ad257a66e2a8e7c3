package exec

import (
	"github.com/cuemby/graphcore/pkg/expr"
	"github.com/cuemby/graphcore/pkg/types"
)

// FilterNode pulls rows from an edge-or-tag cursor, binds the
// expression context to each row in turn, and only lets through rows
// whose filter evaluates truthy. It takes ctx directly on Next rather
// than matching IterateNode's bare signature, the same deviation
// HashJoinNode/SingleEdgeNode make, since resuming a soft lock on the
// underlying edge cursor needs it.
//
// Two modes, picked by which constructor built it:
//   - tag+edge: wraps a HashJoinNode. An optional tag-only subfilter
//     runs first and short-circuits via ctx.TagFilterOut before the
//     full filter sees any edge.
//   - tag-only: wraps a MultiTagNode; only tag props are bound.
type FilterNode struct {
	base
	TagOnlyFilter *expr.Expr
	Filter        *expr.Expr

	tagEdge   bool
	tags      []*TagNode
	advance   func(ctx *RuntimeContext) bool
	curRow    func() *edgeRow
	value     func() types.Value
	edgeIndex func() int

	valid bool
	err   error
}

// NewFilterNode builds the tag+edge mode filter over a HashJoinNode.
func NewFilterNode(hj *HashJoinNode, tagOnly, full *expr.Expr) *FilterNode {
	return &FilterNode{
		base:          newBase("FilterNode", hj),
		TagOnlyFilter: tagOnly,
		Filter:        full,
		tagEdge:       true,
		tags:          hj.Tags,
		advance:       hj.Next,
		curRow:        hj.Current,
		value:         hj.Value,
		edgeIndex:     hj.CurrentEdgeIndex,
	}
}

// NewTagOnlyFilterNode builds the tag-only mode filter over a
// MultiTagNode, used when the plan has no edges.
func NewTagOnlyFilterNode(mt *MultiTagNode, full *expr.Expr) *FilterNode {
	return &FilterNode{
		base:    newBase("FilterNode", mt),
		Filter:  full,
		tagEdge: false,
		tags:    mt.Tags,
		advance:   func(ctx *RuntimeContext) bool { return mt.Next() },
		curRow:    func() *edgeRow { return nil },
		value:     mt.Value,
		edgeIndex: func() int { return -1 },
	}
}

func (n *FilterNode) Execute(ctx *RuntimeContext, part types.PartitionID, input types.Value) error {
	return n.runTimed(ctx, part, input, func() error {
		n.valid = false
		n.err = nil
		return nil
	})
}

// Valid reports whether the cursor is positioned on a row that passed
// every active filter.
func (n *FilterNode) Valid() bool { return n.valid }

// Err returns a non-nil error once a filter's type mismatch has
// aborted the current input; the caller must stop driving this input
// immediately rather than treating it as ordinary exhaustion.
func (n *FilterNode) Err() error { return n.err }

// Value passes through the underlying join node's gathered tag list.
func (n *FilterNode) Value() types.Value { return n.value() }

// Current passes through the underlying join node's current edge row,
// nil in tag-only mode.
func (n *FilterNode) Current() *edgeRow { return n.curRow() }

// EdgeIndex passes through the underlying HashJoinNode's current edge
// type index, or -1 in tag-only mode.
func (n *FilterNode) EdgeIndex() int { return n.edgeIndex() }

// Next advances the underlying cursor, binding tag (and, in tag+edge
// mode, edge) properties into ctx.Vars for each candidate row, until
// one row satisfies every active filter or the cursor is exhausted.
func (n *FilterNode) Next(ctx *RuntimeContext) bool {
	for {
		if !n.advance(ctx) {
			n.valid = false
			return false
		}
		n.bindTagProps(ctx)

		if n.tagEdge {
			if n.TagOnlyFilter != nil {
				res, err := expr.Evaluate(n.TagOnlyFilter, ctx.Vars)
				if err != nil {
					ctx.IllegalDataCount++
					n.err = err
					n.valid = false
					return false
				}
				ctx.TagFilterOut = !res.Truthy()
				if ctx.TagFilterOut {
					continue
				}
			}
			n.bindEdgeProps(ctx)
		}

		res, err := expr.Evaluate(n.Filter, ctx.Vars)
		if err != nil {
			ctx.IllegalDataCount++
			n.err = err
			n.valid = false
			return false
		}
		if !res.Truthy() {
			continue
		}
		n.valid = true
		return true
	}
}

func (n *FilterNode) bindTagProps(ctx *RuntimeContext) {
	for _, t := range n.tags {
		if !t.Found() {
			continue
		}
		latest := t.Schema().Latest()
		for _, f := range latest.Fields {
			v, ok := t.Reader().GetByName(f.Name, latest)
			if !ok {
				v = types.NullValue()
			}
			ctx.Vars.SetTagProp(t.Schema().Name, f.Name, v)
		}
	}
}

func (n *FilterNode) bindEdgeProps(ctx *RuntimeContext) {
	if ctx.EdgeProps == nil {
		return
	}
	for name, v := range ctx.EdgeProps {
		ctx.Vars.SetEdgeProp(ctx.EdgeName, name, v)
	}
}
