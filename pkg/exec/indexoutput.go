package exec

import (
	"github.com/cuemby/graphcore/pkg/codec"
	"github.com/cuemby/graphcore/pkg/expr"
	"github.com/cuemby/graphcore/pkg/types"
)

// IndexVertexNode fetches the backing vertex row for one vertex-index
// entry. It is driven per scanned entry rather than once per vid, so it
// does not implement RelNode; IndexOutputNode calls Fetch directly out of
// its own Next loop, the same way HashJoinNode calls SingleEdgeNode.Next
// per row instead of through the generic dependency-driving machinery.
type IndexVertexNode struct {
	TagID int32
}

func NewIndexVertexNode(tagID int32) *IndexVertexNode { return &IndexVertexNode{TagID: tagID} }

// Fetch resolves pk (a vid) to its tag row. found is false, with a nil
// error, when the row is absent or TTL-expired; the caller skips the
// entry in that case rather than treating it as a hard failure.
func (n *IndexVertexNode) Fetch(ctx *RuntimeContext, part types.PartitionID, pk []byte) (reader *codec.RowReader, schema *types.TagSchema, vid types.Value, found bool, err error) {
	vid, err = ctx.VidCodec().DecodeVid(pk)
	if err != nil {
		return nil, nil, types.Value{}, false, err
	}
	schema, err = ctx.Catalog.TagSchema(ctx.Space, n.TagID)
	if err != nil {
		return nil, nil, types.Value{}, false, err
	}
	key, err := ctx.VidCodec().TagKey(part, vid, n.TagID)
	if err != nil {
		return nil, nil, types.Value{}, false, err
	}
	raw, err := ctx.Store.Get(part, key)
	if err != nil {
		if isNotFound(err) {
			return nil, schema, vid, false, nil
		}
		return nil, nil, types.Value{}, false, err
	}
	reader, err = codec.NewRowReader(schema.Versions, raw)
	if err != nil {
		ctx.IllegalDataCount++
		return nil, schema, vid, false, nil
	}
	if ttlExpired(schema.Latest(), reader) {
		return nil, schema, vid, false, nil
	}
	return reader, schema, vid, true, nil
}

// IndexEdgeNode is IndexVertexNode's edge-index counterpart: it resolves
// an edge-index entry's primary-key suffix back to (src, rank, dst) and
// fetches the backing edge row.
type IndexEdgeNode struct {
	EdgeType int32
}

func NewIndexEdgeNode(edgeType int32) *IndexEdgeNode { return &IndexEdgeNode{EdgeType: edgeType} }

func (n *IndexEdgeNode) Fetch(ctx *RuntimeContext, part types.PartitionID, pk []byte) (reader *codec.RowReader, schema *types.EdgeSchema, src, dst types.Value, rank int64, found bool, err error) {
	src, rank, dst, err = ctx.VidCodec().DecodeEdgePK(pk)
	if err != nil {
		return nil, nil, types.Value{}, types.Value{}, 0, false, err
	}
	schema, err = ctx.Catalog.EdgeSchema(ctx.Space, n.EdgeType)
	if err != nil {
		return nil, nil, types.Value{}, types.Value{}, 0, false, err
	}
	key, err := ctx.VidCodec().EdgeKey(part, src, n.EdgeType, rank, dst)
	if err != nil {
		return nil, nil, types.Value{}, types.Value{}, 0, false, err
	}
	raw, err := ctx.Store.Get(part, key)
	if err != nil {
		if isNotFound(err) {
			return nil, schema, src, dst, rank, false, nil
		}
		return nil, nil, types.Value{}, types.Value{}, 0, false, err
	}
	reader, err = codec.NewRowReader(schema.Versions, raw)
	if err != nil {
		ctx.IllegalDataCount++
		return nil, schema, src, dst, rank, false, nil
	}
	if ttlExpired(schema.Latest(), reader) {
		return nil, schema, src, dst, rank, false, nil
	}
	return reader, schema, src, dst, rank, true, nil
}

// IndexOutputNode drives an IndexScanNode and assembles output rows,
// covering all four lookup branch shapes from one implementation:
//   - basic/filter (Vertex and Edge both nil): columns and the optional
//     Filter are satisfied entirely from the index's own decoded fields.
//   - data/data+filter (Vertex or Edge set): each surviving index entry's
//     primary key is resolved against the backing row, so columns and
//     Filter may also reference properties the index doesn't cover.
//
// Filter, when set, is evaluated against whichever property source the
// branch has available (index fields alone, or the fetched row) before a
// row is considered for Columns projection.
type IndexOutputNode struct {
	base
	Scan    *IndexScanNode
	Vertex  *IndexVertexNode
	Edge    *IndexEdgeNode
	Filter  *expr.Expr
	Columns []string

	ownerName string
	part      types.PartitionID

	row types.Value
	err error
}

func NewIndexOutputNode(scan *IndexScanNode, vertex *IndexVertexNode, edge *IndexEdgeNode, filter *expr.Expr, columns []string) *IndexOutputNode {
	return &IndexOutputNode{base: newBase("IndexOutputNode", scan), Scan: scan, Vertex: vertex, Edge: edge, Filter: filter, Columns: columns}
}

func (n *IndexOutputNode) Execute(ctx *RuntimeContext, part types.PartitionID, input types.Value) error {
	return n.runTimed(ctx, part, input, func() error {
		n.part = part
		n.row = types.Value{}
		n.err = nil

		idx := n.Scan.Index()
		if idx == nil {
			return nil
		}
		if idx.IsEdge {
			schema, err := ctx.Catalog.EdgeSchema(ctx.Space, idx.OwnerID)
			if err != nil {
				return err
			}
			n.ownerName = schema.Name
		} else {
			schema, err := ctx.Catalog.TagSchema(ctx.Space, idx.OwnerID)
			if err != nil {
				return err
			}
			n.ownerName = schema.Name
		}
		return nil
	})
}

// Err returns the first hard error Next encountered.
func (n *IndexOutputNode) Err() error { return n.err }

// Value returns the row Next last assembled.
func (n *IndexOutputNode) Value() types.Value { return n.row }

// Next advances to the next index entry that passes Filter (if any),
// resolving the backing row when Vertex/Edge is configured, and
// assembles the requested output columns.
func (n *IndexOutputNode) Next(ctx *RuntimeContext) bool {
	idx := n.Scan.Index()
	for n.Scan.Next() {
		fields := n.Scan.Fields()
		pk := n.Scan.PK()

		byName := make(map[string]types.Value, len(idx.Fields))
		for i, name := range idx.Fields {
			byName[name] = fields[i]
		}

		var vid, src, dst types.Value
		var rank int64
		var edgeType int32
		var reader *codec.RowReader
		var latest *types.SchemaVersion

		if idx.IsEdge {
			var err error
			src, rank, dst, err = ctx.VidCodec().DecodeEdgePK(pk)
			if err != nil {
				n.err = err
				return false
			}
			edgeType = idx.OwnerID
		} else {
			var err error
			vid, err = ctx.VidCodec().DecodeVid(pk)
			if err != nil {
				n.err = err
				return false
			}
		}

		if n.Vertex != nil {
			r, schema, v, ok, err := n.Vertex.Fetch(ctx, n.part, pk)
			if err != nil {
				n.err = err
				return false
			}
			if !ok {
				continue
			}
			reader, vid, latest = r, v, schema.Latest()
		} else if n.Edge != nil {
			r, schema, s, d, rk, ok, err := n.Edge.Fetch(ctx, n.part, pk)
			if err != nil {
				n.err = err
				return false
			}
			if !ok {
				continue
			}
			reader, src, dst, rank, latest = r, s, d, rk, schema.Latest()
		}

		if n.Filter != nil {
			n.bindFilterContext(ctx, byName, reader, latest, idx.IsEdge)
			res, err := expr.Evaluate(n.Filter, ctx.Vars)
			if err != nil {
				ctx.IllegalDataCount++
				n.err = err
				return false
			}
			if !res.Truthy() {
				continue
			}
		}

		vals := make([]types.Value, 0, len(n.Columns))
		for _, col := range n.Columns {
			vals = append(vals, n.resolveColumn(col, byName, reader, latest, vid, src, dst, rank, edgeType, idx.OwnerID))
		}
		n.row = types.ListValue(vals...)
		return true
	}
	if err := n.Scan.Err(); err != nil {
		n.err = err
	}
	return false
}

func (n *IndexOutputNode) bindFilterContext(ctx *RuntimeContext, byName map[string]types.Value, reader *codec.RowReader, latest *types.SchemaVersion, isEdge bool) {
	set := ctx.Vars.SetTagProp
	if isEdge {
		set = ctx.Vars.SetEdgeProp
	}
	for name, v := range byName {
		set(n.ownerName, name, v)
	}
	if reader == nil || latest == nil {
		return
	}
	for _, f := range latest.Fields {
		if _, ok := byName[f.Name]; ok {
			continue
		}
		v, ok := reader.GetByName(f.Name, latest)
		if !ok {
			v = types.NullValue()
		}
		set(n.ownerName, f.Name, v)
	}
}

func (n *IndexOutputNode) resolveColumn(col string, byName map[string]types.Value, reader *codec.RowReader, latest *types.SchemaVersion, vid, src, dst types.Value, rank int64, edgeType, ownerID int32) types.Value {
	switch col {
	case "_vid":
		return vid
	case "_tag":
		return types.IntValue(int64(ownerID))
	case "_src":
		return src
	case "_dst":
		return dst
	case "_rank":
		return types.IntValue(rank)
	case "_type":
		return types.IntValue(int64(edgeType))
	}
	if v, ok := byName[col]; ok {
		return v
	}
	if reader != nil && latest != nil {
		if v, ok := reader.GetByName(col, latest); ok {
			return v
		}
	}
	return types.NullValue()
}
