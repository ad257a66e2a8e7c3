package exec

import (
	"github.com/cuemby/graphcore/pkg/types"
)

// MultiTagNode is HashJoinNode's edge-less variant: it gathers the same
// tag property lists, but its cursor yields exactly once per vid
// instead of concatenating edge types. The plan picks this node over
// HashJoinNode whenever the request carries no edge projections.
type MultiTagNode struct {
	base
	Tags []*TagNode

	tagList types.Value
	yielded bool
	done    bool
}

func NewMultiTagNode(tags []*TagNode) *MultiTagNode {
	deps := make([]RelNode, 0, len(tags))
	for _, t := range tags {
		deps = append(deps, t)
	}
	return &MultiTagNode{base: newBase("MultiTagNode", deps...), Tags: tags}
}

func (n *MultiTagNode) Execute(ctx *RuntimeContext, part types.PartitionID, vid types.Value) error {
	return n.runTimed(ctx, part, vid, func() error {
		vals := make([]types.Value, len(n.Tags))
		for i, t := range n.Tags {
			vals[i] = t.Value()
		}
		n.tagList = types.ListValue(vals...)
		n.yielded = false
		n.done = false
		return nil
	})
}

// Value implements QueryNode: the gathered tag property lists.
func (n *MultiTagNode) Value() types.Value { return n.tagList }

// Valid reports whether the cursor is positioned on the single row, i.e.
// the first Next has returned true and no later Next has run.
func (n *MultiTagNode) Valid() bool { return n.yielded }

// Next yields once, then reports exhaustion on every subsequent call.
func (n *MultiTagNode) Next() bool {
	if n.done {
		n.yielded = false
		return false
	}
	n.yielded = true
	n.done = true
	return true
}

func (n *MultiTagNode) Key() []byte { return nil }
func (n *MultiTagNode) Val() []byte { return nil }
