package query

import (
	"time"

	"github.com/cuemby/graphcore/pkg/exec"
	"github.com/cuemby/graphcore/pkg/types"
)

// GetNeighbors answers a GetNeighborsRequest: one plan shape (tag+edge
// HashJoin when req.Spec projects any edge, tag-only MultiTag otherwise)
// is rebuilt fresh per partition so concurrent partitions never share
// operator state, then driven once per vid in that partition's input
// list, with ctx.ResetInput before each vid.
func (d *Driver) GetNeighbors(req *GetNeighborsRequest) Response {
	colNames := neighborColNames(req.Spec)
	seed := time.Now().UnixNano()

	parts := make([]types.PartitionID, 0, len(req.Parts))
	for p := range req.Parts {
		parts = append(parts, p)
	}

	return d.run(req.Space, req.VidLen, req.Kind, req.Common, parts, colNames,
		func(ctx *exec.RuntimeContext, part types.PartitionID) ([]types.Value, error) {
			plan, get := buildGetNeighborsPlan(req.Spec, seed)
			var rows []types.Value
			for _, vid := range req.Parts[part] {
				if err := ctx.CheckDeadline(); err != nil {
					return nil, err
				}
				ctx.ResetInput()
				if err := plan.Execute(ctx, part, vid); err != nil {
					if types.IsHardFault(err) {
						return nil, err
					}
					if types.CodeOf(err) == types.CodeFilterOut {
						continue
					}
					ctx.IllegalDataCount++
					continue
				}
				row := get.Value()
				if err := ctx.ChargeMemory(estimateSize(row)); err != nil {
					return nil, err
				}
				rows = append(rows, row)
			}
			return rows, nil
		})
}

// neighborColNames builds the declared output column names in
// GetNeighborsNode's row order: _vid, one _stats: column per declared
// stat, one _tag: column per projected tag, one _edge: column per
// projected edge.
func neighborColNames(spec TraverseSpec) []string {
	cols := []string{"_vid"}
	for _, s := range spec.StatProps {
		cols = append(cols, "_stats:"+s.Name)
	}
	for _, t := range spec.VertexProps {
		cols = append(cols, "_tag:"+t.Name)
	}
	for _, e := range spec.EdgeProps {
		sign := "+"
		if e.EdgeType < 0 {
			sign = "-"
		}
		cols = append(cols, "_edge:"+sign+e.Name)
	}
	return cols
}

// buildGetNeighborsPlan wires a fresh operator tree for one partition's
// pass over the request's TraverseSpec: a HashJoinNode (or MultiTagNode
// when the request has no edge projections) feeding a FilterNode, wrapped
// by GetNeighborsNode's stat/sample/column assembly.
func buildGetNeighborsPlan(spec TraverseSpec, seed int64) (exec.RelNode, *exec.GetNeighborsNode) {
	tags := make([]*exec.TagNode, len(spec.VertexProps))
	for i, t := range spec.VertexProps {
		tags[i] = exec.NewTagNode(t.TagID)
	}

	if len(spec.EdgeProps) == 0 {
		mt := exec.NewMultiTagNode(tags)
		filter := exec.NewTagOnlyFilterNode(mt, spec.Filter)
		return filter, exec.NewGetNeighborsNode(filter, nil, spec.StatProps)
	}

	edges := make([]*exec.SingleEdgeNode, len(spec.EdgeProps))
	cols := make([]exec.EdgeColumnSpec, len(spec.EdgeProps))
	for i, e := range spec.EdgeProps {
		edges[i] = exec.NewSingleEdgeNode(e.EdgeType)
		cols[i] = exec.EdgeColumnSpec{Props: e.Props, SampleSize: e.SampleSize, Seed: seed + int64(i)}
	}
	hj := exec.NewHashJoinNode(tags, edges)
	filter := exec.NewFilterNode(hj, spec.TagFilter, spec.Filter)
	return filter, exec.NewGetNeighborsNode(filter, cols, spec.StatProps)
}
