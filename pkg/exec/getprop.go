package exec

import (
	"github.com/cuemby/graphcore/pkg/types"
)

// GetTagPropNode emits one row per existing vid: [vid, tag-0-props...,
// tag-k-props...]. A vid carrying none of the requested tags is still
// emitted as a bare [vid] when the vertex-existence marker is present;
// otherwise the vid is omitted (Found reports false).
type GetTagPropNode struct {
	base
	Tags []*TagNode

	found bool
	row   types.Value
}

func NewGetTagPropNode(tags []*TagNode) *GetTagPropNode {
	deps := make([]RelNode, 0, len(tags))
	for _, t := range tags {
		deps = append(deps, t)
	}
	return &GetTagPropNode{base: newBase("GetTagPropNode", deps...), Tags: tags}
}

func (n *GetTagPropNode) Execute(ctx *RuntimeContext, part types.PartitionID, vid types.Value) error {
	return n.runTimed(ctx, part, vid, func() error {
		n.found = false
		n.row = types.Value{}

		vals := []types.Value{vid}
		anyTag := false
		for _, t := range n.Tags {
			if !t.Found() {
				continue
			}
			anyTag = true
			latest := t.Schema().Latest()
			for _, f := range latest.Fields {
				v, ok := t.Reader().GetByName(f.Name, latest)
				if !ok {
					v = types.NullValue()
				}
				vals = append(vals, v)
			}
		}
		if anyTag {
			n.found = true
			n.row = types.ListValue(vals...)
			return nil
		}

		key, err := ctx.VidCodec().VertexExistKey(part, vid)
		if err != nil {
			return err
		}
		if _, err := ctx.Store.Get(part, key); err != nil {
			if isNotFound(err) {
				return nil
			}
			return err
		}
		n.found = true
		n.row = types.ListValue(vid)
		return nil
	})
}

// Found reports whether this vid should be emitted at all.
func (n *GetTagPropNode) Found() bool { return n.found }

// Value implements QueryNode: the assembled row, meaningful only when
// Found is true.
func (n *GetTagPropNode) Value() types.Value { return n.row }

// GetEdgePropNode emits one row per existing edge key, projecting the
// requested properties by name in the declared order.
type GetEdgePropNode struct {
	base
	Edge  *FetchEdgeNode
	Props []string

	found bool
	row   types.Value
}

func NewGetEdgePropNode(edge *FetchEdgeNode, props []string) *GetEdgePropNode {
	return &GetEdgePropNode{base: newBase("GetEdgePropNode", edge), Edge: edge, Props: props}
}

func (n *GetEdgePropNode) Execute(ctx *RuntimeContext, part types.PartitionID, input types.Value) error {
	return n.runTimed(ctx, part, input, func() error {
		n.found = n.Edge.Found()
		if !n.found {
			n.row = types.Value{}
			return nil
		}
		latest := n.Edge.Schema().Latest()
		vals := make([]types.Value, 0, len(n.Props))
		for _, p := range n.Props {
			v, ok := n.Edge.Reader().GetByName(p, latest)
			if !ok {
				v = types.NullValue()
			}
			vals = append(vals, v)
		}
		n.row = types.ListValue(vals...)
		return nil
	})
}

func (n *GetEdgePropNode) Found() bool       { return n.found }
func (n *GetEdgePropNode) Value() types.Value { return n.row }
