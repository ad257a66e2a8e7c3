package exec

import (
	"github.com/cuemby/graphcore/pkg/expr"
	"github.com/cuemby/graphcore/pkg/types"
)

// UpdateSource is whatever UpdateTagNode/UpdateEdgeNode expose about the
// write they just committed: whether the row was freshly inserted, whether
// the WHEN condition filtered the request out before any write happened,
// and the post-image value of any field by name.
type UpdateSource interface {
	Inserted() bool
	FilteredOut() bool
	PostValue(name string) (types.Value, bool)
}

// UpdateResNode evaluates the YIELD clause of an update request against
// the post-image its upstream UpdateTagNode/UpdateEdgeNode just committed,
// and assembles the result row the driver appends to the response.
type UpdateResNode struct {
	base
	Source    UpdateSource
	OwnerName string
	IsEdge    bool
	Fields    []string // every field name the post-image carries, for binding
	Yields    []*expr.Expr

	emit bool
	row  types.Value
}

func NewUpdateResNode(source UpdateSource, ownerName string, isEdge bool, fields []string, yields []*expr.Expr, dep RelNode) *UpdateResNode {
	var b base
	if dep != nil {
		b = newBase("UpdateResNode", dep)
	} else {
		b = newBase("UpdateResNode")
	}
	return &UpdateResNode{base: b, Source: source, OwnerName: ownerName, IsEdge: isEdge, Fields: fields, Yields: yields}
}

func (n *UpdateResNode) Execute(ctx *RuntimeContext, part types.PartitionID, input types.Value) error {
	return n.runTimed(ctx, part, input, func() error {
		n.emit, n.row = false, types.Value{}

		if n.Source.FilteredOut() {
			return nil
		}
		n.bindPostImage(ctx)

		vals := make([]types.Value, 0, 1+len(n.Yields))
		vals = append(vals, types.BoolValue(n.Source.Inserted()))

		for _, y := range n.Yields {
			v, err := expr.Evaluate(y, ctx.Vars)
			if err != nil {
				ctx.IllegalDataCount++
				vals = append(vals, types.NullValue())
				continue
			}
			vals = append(vals, v)
		}
		n.row = types.ListValue(vals...)
		n.emit = true
		return nil
	})
}

// bindPostImage rebinds every field of the committed row, the same eager
// whole-row binding FilterNode uses ahead of its own filter evaluation,
// so a YIELD expression can reference any property regardless of whether
// an assignment touched it.
func (n *UpdateResNode) bindPostImage(ctx *RuntimeContext) {
	set := ctx.Vars.SetTagProp
	if n.IsEdge {
		set = ctx.Vars.SetEdgeProp
	}
	for _, name := range n.Fields {
		v, ok := n.Source.PostValue(name)
		if !ok {
			v = types.NullValue()
		}
		set(n.OwnerName, name, v)
	}
}

// Emit reports whether Execute produced a row (false when the WHEN
// condition filtered the request out before any write).
func (n *UpdateResNode) Emit() bool { return n.emit }

func (n *UpdateResNode) Value() types.Value { return n.row }
