package query

import (
	"github.com/cuemby/graphcore/pkg/exec"
	"github.com/cuemby/graphcore/pkg/expr"
	"github.com/cuemby/graphcore/pkg/types"
)

// Lookup answers a LookupIndexRequest, one IndexOutputNode per declared
// context per partition, deduping across contexts that land on the same
// primary key the way two index paths into the same vertex/edge would.
func (d *Driver) Lookup(req *LookupIndexRequest) Response {
	resp := d.run(req.Space, req.VidLen, req.Kind, req.Common, req.Parts, req.ReturnColumns,
		func(ctx *exec.RuntimeContext, part types.PartitionID) ([]types.Value, error) {
			var rows []types.Value
			for _, lc := range req.Contexts {
				if err := ctx.CheckDeadline(); err != nil {
					return nil, err
				}
				idx, err := ctx.Catalog.Index(req.Space, lc.IndexID)
				if err != nil {
					return nil, err
				}
				out := buildLookupPlan(idx, lc, req.ReturnColumns)
				if err := out.Execute(ctx, part, types.Value{}); err != nil {
					return nil, err
				}
				for out.Next(ctx) {
					row := out.Value()
					if err := ctx.ChargeMemory(estimateSize(row)); err != nil {
						return nil, err
					}
					rows = append(rows, row)
				}
				if err := out.Err(); err != nil {
					if types.IsHardFault(err) {
						return nil, err
					}
					ctx.IllegalDataCount++
				}
			}
			return rows, nil
		})

	if len(req.Contexts) > 1 {
		dedupCols := make([]int, len(req.ReturnColumns))
		for i := range dedupCols {
			dedupCols[i] = i
		}
		resp.Result.Rows = exec.NewDeDupNode(dedupCols).Apply(resp.Result.Rows)
	}
	return resp
}

// buildLookupPlan implements the §4.8 branch selection: an index scan
// alone answers the request (basic/filter branch) when every requested
// column and the filter expression's properties are covered by the
// index's own declared Fields; otherwise the backing vertex/edge row
// must be fetched per surviving entry (data/data+filter branch).
func buildLookupPlan(idx *types.Index, lc LookupContext, returnColumns []string) *exec.IndexOutputNode {
	scan := exec.NewIndexScanNode(lc.IndexID, lc.Hints)
	needed := append(append([]string{}, returnColumns...), filterProps(lc.Filter)...)
	if indexCovers(idx, needed) {
		return exec.NewIndexOutputNode(scan, nil, nil, lc.Filter, returnColumns)
	}
	if idx.IsEdge {
		return exec.NewIndexOutputNode(scan, nil, exec.NewIndexEdgeNode(idx.OwnerID), lc.Filter, returnColumns)
	}
	return exec.NewIndexOutputNode(scan, exec.NewIndexVertexNode(idx.OwnerID), nil, lc.Filter, returnColumns)
}

// indexCovers reports whether every requested output column is either a
// reserved pseudo-column (always resolvable from the decoded primary
// key) or one of the index's own declared fields, meaning the scan never
// needs to touch the backing row.
func indexCovers(idx *types.Index, columns []string) bool {
	covered := make(map[string]bool, len(idx.Fields))
	for _, f := range idx.Fields {
		covered[f] = true
	}
	for _, c := range columns {
		switch c {
		case "_vid", "_src", "_dst", "_rank", "_type", "_tag":
			continue
		}
		if !covered[c] {
			return false
		}
	}
	return true
}

// filterProps walks e collecting every tag/edge property name it
// references, used to fold the filter's requirements into the same
// index-coverage check returnColumns alone would otherwise get.
func filterProps(e *expr.Expr) []string {
	if e == nil {
		return nil
	}
	var props []string
	switch e.Kind {
	case expr.KindTagProp, expr.KindEdgeProp, expr.KindSrcProp, expr.KindDstProp:
		props = append(props, e.Name2)
	case expr.KindUnary:
		props = append(props, filterProps(e.Left)...)
	case expr.KindBinary, expr.KindLogical:
		props = append(props, filterProps(e.Left)...)
		props = append(props, filterProps(e.Right)...)
	case expr.KindList:
		for _, it := range e.Items {
			props = append(props, filterProps(it)...)
		}
	}
	return props
}
