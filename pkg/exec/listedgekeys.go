package exec

import "github.com/cuemby/graphcore/pkg/types"

// ListEdgeKeysNode emits bare (src, type, rank, dst) tuples for every edge
// of the driven type out of a vid, with no property projection. It wraps
// a SingleEdgeNode the same way HashJoinNode does, reusing its cursor
// rather than re-scanning.
type ListEdgeKeysNode struct {
	base
	Edge *SingleEdgeNode

	row types.Value
}

func NewListEdgeKeysNode(edge *SingleEdgeNode) *ListEdgeKeysNode {
	return &ListEdgeKeysNode{base: newBase("ListEdgeKeysNode", edge), Edge: edge}
}

func (n *ListEdgeKeysNode) Execute(ctx *RuntimeContext, part types.PartitionID, vid types.Value) error {
	return n.runTimed(ctx, part, vid, func() error {
		n.row = types.Value{}
		return nil
	})
}

// Err passes through the underlying edge cursor's error.
func (n *ListEdgeKeysNode) Err() error { return n.Edge.Err() }

// Value returns the tuple Next last assembled.
func (n *ListEdgeKeysNode) Value() types.Value { return n.row }

// Next advances the underlying edge cursor and assembles its key tuple.
func (n *ListEdgeKeysNode) Next(ctx *RuntimeContext) bool {
	if !n.Edge.Next(ctx) {
		return false
	}
	row := n.Edge.Current()
	n.row = types.ListValue(row.Src, types.IntValue(int64(row.EdgeType)), types.IntValue(row.Rank), row.Dst)
	return true
}
