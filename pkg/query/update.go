package query

import (
	"strconv"

	"github.com/cuemby/graphcore/pkg/exec"
	"github.com/cuemby/graphcore/pkg/txn"
	"github.com/cuemby/graphcore/pkg/types"
)

// UpdateVertex answers an UpdateVertexRequest: a single-partition,
// single-vid request, since the nebula wire protocol keys an update by
// exactly one vertex. The driver still goes through d.run so the
// deadline/memory-budget/error-aggregation plumbing is identical to the
// read paths.
func (d *Driver) UpdateVertex(req *UpdateVertexRequest) Response {
	up := txn.NewUpserter(d.Locks, d.Store)
	indexes, err := d.Catalog.IndexesOn(req.Space, req.TagID, false)
	if err != nil {
		return Response{Code: types.CodeOf(err), FailedParts: map[types.PartitionID]types.Code{req.Part: types.CodeOf(err)}}
	}

	assigns := make([]exec.UpdateAssignment, len(req.Assignments))
	for i, a := range req.Assignments {
		assigns[i] = exec.UpdateAssignment{Prop: a.Prop, Expr: a.Expr}
	}

	colNames := updateColNames(len(req.Yields))
	return d.run(req.Space, req.VidLen, req.Kind, req.Common, []types.PartitionID{req.Part}, colNames,
		func(ctx *exec.RuntimeContext, part types.PartitionID) ([]types.Value, error) {
			if err := ctx.CheckDeadline(); err != nil {
				return nil, err
			}
			ctx.ResetInput()
			tag := exec.NewUpdateTagNode(req.TagID, req.Condition, assigns, indexes, req.Insertable, true, up)
			tagFields := fieldNames(ctx, req.Space, req.TagID, false)
			res := exec.NewUpdateResNode(tag, req.TagName, false, tagFields, req.Yields, tag)
			if err := res.Execute(ctx, part, req.Vid); err != nil {
				return nil, err
			}
			if !res.Emit() {
				return nil, types.NewError(types.CodeFilterOut, "query.UpdateVertex", errFilteredOut("when condition not satisfied"))
			}
			row := res.Value()
			if err := ctx.ChargeMemory(estimateSize(row)); err != nil {
				return nil, err
			}
			return []types.Value{row}, nil
		})
}

// UpdateEdge is UpdateVertex's edge counterpart.
func (d *Driver) UpdateEdge(req *UpdateEdgeRequest) Response {
	up := txn.NewUpserter(d.Locks, d.Store)
	indexes, err := d.Catalog.IndexesOn(req.Space, abs32(req.EdgeType), true)
	if err != nil {
		return Response{Code: types.CodeOf(err), FailedParts: map[types.PartitionID]types.Code{req.Part: types.CodeOf(err)}}
	}

	assigns := make([]exec.UpdateAssignment, len(req.Assignments))
	for i, a := range req.Assignments {
		assigns[i] = exec.UpdateAssignment{Prop: a.Prop, Expr: a.Expr}
	}

	colNames := updateColNames(len(req.Yields))
	return d.run(req.Space, req.VidLen, req.Kind, req.Common, []types.PartitionID{req.Part}, colNames,
		func(ctx *exec.RuntimeContext, part types.PartitionID) ([]types.Value, error) {
			if err := ctx.CheckDeadline(); err != nil {
				return nil, err
			}
			ctx.ResetInput()
			edge := exec.NewUpdateEdgeNode(req.EdgeType, req.Condition, assigns, indexes, req.Insertable, up)
			edgeFields := fieldNames(ctx, req.Space, abs32(req.EdgeType), true)
			res := exec.NewUpdateResNode(edge, req.EdgeName, true, edgeFields, req.Yields, edge)
			input := types.ListValue(req.Src, types.IntValue(req.Rank), req.Dst)
			if err := res.Execute(ctx, part, input); err != nil {
				return nil, err
			}
			if !res.Emit() {
				return nil, types.NewError(types.CodeFilterOut, "query.UpdateEdge", errFilteredOut("when condition not satisfied"))
			}
			row := res.Value()
			if err := ctx.ChargeMemory(estimateSize(row)); err != nil {
				return nil, err
			}
			return []types.Value{row}, nil
		})
}

// updateColNames names the update response's columns: "inserted" always
// leads (UpdateResNode.Value's first cell), followed by one "_yield:N"
// per declared YIELD expression since the wire request carries no
// per-yield alias.
func updateColNames(n int) []string {
	cols := []string{"inserted"}
	for i := 0; i < n; i++ {
		cols = append(cols, "_yield:"+strconv.Itoa(i))
	}
	return cols
}


type errFilteredOut string

func (e errFilteredOut) Error() string { return string(e) }

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

// fieldNames resolves a tag/edge's latest schema field names, for
// UpdateResNode's post-image binding. It runs before the update executes;
// a lookup failure returns nil, so UpdateResNode binds no properties for
// the YIELD clause, and the failure itself is not reported here.
func fieldNames(ctx *exec.RuntimeContext, space, ownerID int32, isEdge bool) []string {
	if isEdge {
		schema, err := ctx.Catalog.EdgeSchema(space, ownerID)
		if err != nil || schema.Latest() == nil {
			return nil
		}
		names := make([]string, len(schema.Latest().Fields))
		for i, f := range schema.Latest().Fields {
			names[i] = f.Name
		}
		return names
	}
	schema, err := ctx.Catalog.TagSchema(space, ownerID)
	if err != nil || schema.Latest() == nil {
		return nil
	}
	names := make([]string, len(schema.Latest().Fields))
	for i, f := range schema.Latest().Fields {
		names[i] = f.Name
	}
	return names
}
