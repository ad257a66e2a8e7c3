package query

import (
	"github.com/cuemby/graphcore/pkg/exec"
	"github.com/cuemby/graphcore/pkg/types"
)

// GetProp answers a GetPropRequest: the vertex branch drives
// GetTagPropNode once per vid, the edge branch drives GetEdgePropNode
// once per (src, rank, dst) tuple carried in the partition's input list.
func (d *Driver) GetProp(req *GetPropRequest) Response {
	parts := make([]types.PartitionID, 0, len(req.Parts))
	for p := range req.Parts {
		parts = append(parts, p)
	}

	if req.EdgeProps != nil {
		return d.getEdgeProp(req, parts)
	}
	return d.getTagProp(req, parts)
}

func (d *Driver) getTagProp(req *GetPropRequest, parts []types.PartitionID) Response {
	colNames := []string{"_vid"}
	for _, t := range req.VertexProps {
		colNames = append(colNames, "_tag:"+t.Name)
	}

	return d.run(req.Space, req.VidLen, req.Kind, req.Common, parts, colNames,
		func(ctx *exec.RuntimeContext, part types.PartitionID) ([]types.Value, error) {
			var rows []types.Value
			for _, vid := range req.Parts[part] {
				if err := ctx.CheckDeadline(); err != nil {
					return nil, err
				}
				ctx.ResetInput()
				tags := make([]*exec.TagNode, len(req.VertexProps))
				for i, t := range req.VertexProps {
					tags[i] = exec.NewTagNode(t.TagID)
				}
				node := exec.NewGetTagPropNode(tags)
				if err := node.Execute(ctx, part, vid); err != nil {
					if types.IsHardFault(err) {
						return nil, err
					}
					ctx.IllegalDataCount++
					continue
				}
				if !node.Found() {
					continue
				}
				row := node.Value()
				if err := ctx.ChargeMemory(estimateSize(row)); err != nil {
					return nil, err
				}
				rows = append(rows, row)
			}
			return rows, nil
		})
}

func (d *Driver) getEdgeProp(req *GetPropRequest, parts []types.PartitionID) Response {
	colNames := make([]string, 0, len(req.EdgeProps.Props))
	for _, p := range req.EdgeProps.Props {
		colNames = append(colNames, "_edge:+"+req.EdgeProps.Name+":"+p)
	}

	return d.run(req.Space, req.VidLen, req.Kind, req.Common, parts, colNames,
		func(ctx *exec.RuntimeContext, part types.PartitionID) ([]types.Value, error) {
			var rows []types.Value
			for _, key := range req.Parts[part] {
				if err := ctx.CheckDeadline(); err != nil {
					return nil, err
				}
				if len(key.L) != 3 {
					ctx.IllegalDataCount++
					continue
				}
				src, rank, dst := key.L[0], key.L[1].I, key.L[2]
				ctx.ResetInput()
				fe := exec.NewFetchEdgeNode(src, req.EdgeProps.EdgeType, rank, dst)
				node := exec.NewGetEdgePropNode(fe, req.EdgeProps.Props)
				if err := node.Execute(ctx, part, types.Value{}); err != nil {
					if types.IsHardFault(err) {
						return nil, err
					}
					ctx.IllegalDataCount++
					continue
				}
				if !node.Found() {
					continue
				}
				row := node.Value()
				if err := ctx.ChargeMemory(estimateSize(row)); err != nil {
					return nil, err
				}
				rows = append(rows, row)
			}
			return rows, nil
		})
}
