package exec

import (
	"github.com/cuemby/graphcore/pkg/types"
)

// HashJoinNode drives a fixed set of TagNodes (gathered once, into a
// Value::List with one cell per tag, null for a tag the vid doesn't
// carry) and a fixed set of SingleEdgeNodes for the same vid, exposed
// as one multi-edge cursor that concatenates every edge type in
// plan-declared order. Each advance updates the runtime context's
// current-edge metadata so FilterNode/GetNeighborsNode address the
// right edge's properties without re-deriving which edge type they're
// looking at.
type HashJoinNode struct {
	base
	Tags  []*TagNode
	Edges []*SingleEdgeNode

	tagList types.Value
	edgeIdx int
	cur     *edgeRow
}

func NewHashJoinNode(tags []*TagNode, edges []*SingleEdgeNode) *HashJoinNode {
	deps := make([]RelNode, 0, len(tags)+len(edges))
	for _, t := range tags {
		deps = append(deps, t)
	}
	for _, e := range edges {
		deps = append(deps, e)
	}
	return &HashJoinNode{base: newBase("HashJoinNode", deps...), Tags: tags, Edges: edges}
}

func (n *HashJoinNode) Execute(ctx *RuntimeContext, part types.PartitionID, vid types.Value) error {
	return n.runTimed(ctx, part, vid, func() error {
		vals := make([]types.Value, len(n.Tags))
		for i, t := range n.Tags {
			vals[i] = t.Value()
		}
		n.tagList = types.ListValue(vals...)
		n.edgeIdx = 0
		n.cur = nil
		return nil
	})
}

// Value implements QueryNode: the gathered tag property lists.
func (n *HashJoinNode) Value() types.Value { return n.tagList }

// Valid reports whether the cursor is positioned on an edge row.
func (n *HashJoinNode) Valid() bool { return n.cur != nil }

// Next advances across the current edge type's cursor, then the next
// edge type's, until every declared edge type is exhausted. It takes
// ctx directly (see SingleEdgeNode.Next) because resuming a soft lock
// needs it.
func (n *HashJoinNode) Next(ctx *RuntimeContext) bool {
	for n.edgeIdx < len(n.Edges) {
		e := n.Edges[n.edgeIdx]
		if e.Next(ctx) {
			row := e.Current()
			n.cur = row
			ctx.EdgeType = e.EdgeType
			ctx.EdgeName = e.Schema().Name
			ctx.EdgeSchema = e.Schema()
			ctx.EdgeProps = edgeRowProps(e.Schema(), row)
			return true
		}
		n.edgeIdx++
	}
	n.cur = nil
	return false
}

// Key and Val satisfy IterateNode; HashJoinNode's own consumers read
// Current()/CurrentEdgeIndex() instead.
func (n *HashJoinNode) Key() []byte { return nil }
func (n *HashJoinNode) Val() []byte { return nil }

// Current returns the edge row the cursor is positioned on.
func (n *HashJoinNode) Current() *edgeRow { return n.cur }

// CurrentEdgeIndex returns the plan-declared index of the edge type
// the cursor is currently iterating, so the emit operator can bucket
// rows into the matching output column.
func (n *HashJoinNode) CurrentEdgeIndex() int { return n.edgeIdx }

// edgeRowProps projects an edgeRow's fields into a name-keyed map for
// expression evaluation.
func edgeRowProps(schema *types.EdgeSchema, row *edgeRow) map[string]types.Value {
	latest := schema.Latest()
	props := make(map[string]types.Value, len(latest.Fields))
	for _, f := range latest.Fields {
		v, ok := row.Reader.GetByName(f.Name, latest)
		if !ok {
			v = types.NullValue()
		}
		props[f.Name] = v
	}
	return props
}
