package exec

import (
	"context"
	"sync/atomic"

	"github.com/cuemby/graphcore/pkg/codec"
	"github.com/cuemby/graphcore/pkg/expr"
	"github.com/cuemby/graphcore/pkg/kvstore"
	"github.com/cuemby/graphcore/pkg/txn"
	"github.com/cuemby/graphcore/pkg/types"
)

// UpdateAssignment is one `prop = expression` clause of an update request,
// applied in declared order against a working copy that reflects every
// preceding assignment in the same request.
type UpdateAssignment struct {
	Prop string
	Expr *expr.Expr
}

type errUpdate string

func (e errUpdate) Error() string { return string(e) }

var opLogSeq uint64

// nextOpLogSeq hands out a process-local monotonically increasing sequence
// for operation-log keys. Uniqueness only has to hold within one index's
// key space (OperationKey also carries the index id), so a local counter
// is sufficient; there is no cluster-wide sequence to coordinate with.
func nextOpLogSeq() uint64 { return atomic.AddUint64(&opLogSeq, 1) }

// UpdateTagNode performs a locked read-modify-write cycle against one
// vertex's tag row. Unlike the read-path nodes, it does not trust a
// dependency-phase read: TagNode's own Execute runs unlocked, so the only
// row image this node treats as authoritative is the one UpsertBatch hands
// its mutate closure after the per-key lock is held. It evaluates the WHEN
// condition and the declared assignments against that locked read, stages
// index maintenance for the transition, and commits the row plus index
// ops as one atomic batch.
type UpdateTagNode struct {
	base
	TagID           int32
	Insertable      bool
	When            *expr.Expr
	Assignments     []UpdateAssignment
	Indexes         []*types.Index
	ExistenceMarker bool
	Upserter        *txn.Upserter

	inserted    bool
	filteredOut bool
	postVals    map[string]types.Value
}

func NewUpdateTagNode(tagID int32, when *expr.Expr, assignments []UpdateAssignment, indexes []*types.Index, insertable, existenceMarker bool, up *txn.Upserter) *UpdateTagNode {
	return &UpdateTagNode{
		base: newBase("UpdateTagNode"), TagID: tagID, Insertable: insertable, When: when,
		Assignments: assignments, Indexes: indexes, ExistenceMarker: existenceMarker, Upserter: up,
	}
}

func (n *UpdateTagNode) Execute(ctx *RuntimeContext, part types.PartitionID, vid types.Value) error {
	return n.runTimed(ctx, part, vid, func() error {
		n.inserted, n.filteredOut, n.postVals = false, false, nil

		schema, err := ctx.Catalog.TagSchema(ctx.Space, n.TagID)
		if err != nil {
			return err
		}
		latest := schema.Latest()
		key, err := ctx.VidCodec().TagKey(part, vid, n.TagID)
		if err != nil {
			return err
		}
		pk, err := ctx.VidCodec().EncodeVid(vid)
		if err != nil {
			return err
		}

		var existKey []byte
		if n.ExistenceMarker {
			existKey, err = ctx.VidCodec().VertexExistKey(part, vid)
			if err != nil {
				return err
			}
		}

		inserted, err := n.Upserter.UpsertBatch(context.Background(), part, key, func(current []byte) ([]kvstore.Op, bool, error) {
			var reader *codec.RowReader
			found := len(current) > 0
			if found {
				r, derr := codec.NewRowReader(schema.Versions, current)
				if derr != nil {
					return nil, false, types.NewError(types.CodeInvalidData, "exec.UpdateTagNode", derr)
				}
				if !ttlExpired(latest, r) {
					reader = r
				} else {
					found = false
				}
			}
			if !found && !n.Insertable {
				return nil, false, types.NewError(types.CodeTagNotFound, "exec.UpdateTagNode", errUpdate("tag row not found and not insertable"))
			}

			evalCtx := expr.NewContext()
			bindSchemaRow(evalCtx, schema.Name, reader, latest, false)

			if n.When != nil {
				res, everr := expr.Evaluate(n.When, evalCtx)
				if everr != nil {
					ctx.IllegalDataCount++
					return nil, false, everr
				}
				if !res.Truthy() {
					n.filteredOut = true
					return nil, false, types.NewError(types.CodeFilterOut, "exec.UpdateTagNode", errUpdate("when condition not satisfied"))
				}
			}

			w := codec.NewRowWriter(latest)
			if found {
				for _, f := range latest.Fields {
					if v, ok := reader.GetByName(f.Name, latest); ok {
						_ = w.Set(f.Name, v)
					}
				}
			}
			for _, a := range n.Assignments {
				bindWorkingCopy(evalCtx, schema.Name, w, latest, false)
				v, everr := expr.Evaluate(a.Expr, evalCtx)
				if everr != nil {
					ctx.IllegalDataCount++
					return nil, false, everr
				}
				if serr := w.Set(a.Prop, v); serr != nil {
					return nil, false, serr
				}
			}
			if err := w.FillDefaults(); err != nil {
				return nil, false, err
			}
			next, err := w.Encode()
			if err != nil {
				return nil, false, err
			}

			ops := make([]kvstore.Op, 0, len(n.Indexes)*2+2)
			for _, idx := range n.Indexes {
				if idx.IsEdge || idx.OwnerID != n.TagID {
					continue
				}
				op, ierr := n.stageIndex(idx, part, pk, reader, w, latest, found)
				if ierr != nil {
					return nil, false, ierr
				}
				ops = append(ops, op...)
			}

			ops = append(ops, kvstore.Op{Kind: kvstore.OpPut, Key: key, Value: next})
			if n.ExistenceMarker {
				ops = append(ops, kvstore.Op{Kind: kvstore.OpPut, Key: existKey, Value: nil})
			}

			n.postVals = make(map[string]types.Value, len(latest.Fields))
			for _, f := range latest.Fields {
				if v, ok := w.Get(f.Name); ok {
					n.postVals[f.Name] = v
				}
			}
			return ops, !found, nil
		})
		if err != nil {
			if types.CodeOf(err) == types.CodeFilterOut {
				return nil
			}
			return err
		}
		n.inserted = inserted
		return nil
	})
}

// stageIndex computes the remove/put (or operation-log) ops one index
// needs for the transition from reader's pre-image (nil if absent) to w's
// post-image.
func (n *UpdateTagNode) stageIndex(idx *types.Index, part types.PartitionID, pk []byte, reader *codec.RowReader, w *codec.RowWriter, latest *types.SchemaVersion, hadOld bool) ([]kvstore.Op, error) {
	switch idx.State {
	case types.IndexLocked:
		return nil, types.NewError(types.CodeIndexLocked, "exec.UpdateTagNode", errUpdate("index locked for exclusive rebuild"))
	case types.IndexRebuilding:
		opKey := codec.OperationKey(part, idx.ID, nextOpLogSeq())
		return []kvstore.Op{{Kind: kvstore.OpPut, Key: opKey, Value: codec.EncodeOperationEntry(codec.OperationModify, pk)}}, nil
	}

	ops := make([]kvstore.Op, 0, 2)
	if hadOld {
		oldFields := make([]types.Value, len(idx.Fields))
		for i, name := range idx.Fields {
			v, ok := reader.GetByName(name, latest)
			if !ok {
				v = types.NullValue()
			}
			oldFields[i] = v
		}
		ops = append(ops, kvstore.Op{Kind: kvstore.OpRemove, Key: codec.IndexKey(part, idx.ID, oldFields, pk)})
	}
	newFields := make([]types.Value, len(idx.Fields))
	for i, name := range idx.Fields {
		v, ok := w.Get(name)
		if !ok {
			v = types.NullValue()
		}
		newFields[i] = v
	}
	ops = append(ops, kvstore.Op{Kind: kvstore.OpPut, Key: codec.IndexKey(part, idx.ID, newFields, pk)})
	return ops, nil
}

func (n *UpdateTagNode) Inserted() bool          { return n.inserted }
func (n *UpdateTagNode) FilteredOut() bool       { return n.filteredOut }
func (n *UpdateTagNode) PostValue(name string) (types.Value, bool) {
	v, ok := n.postVals[name]
	return v, ok
}

// bindSchemaRow binds every field of a possibly-nil row into an expr
// Context, as tag or edge props depending on isEdge.
func bindSchemaRow(c *expr.Context, owner string, reader *codec.RowReader, latest *types.SchemaVersion, isEdge bool) {
	set := c.SetTagProp
	if isEdge {
		set = c.SetEdgeProp
	}
	if latest == nil {
		return
	}
	for _, f := range latest.Fields {
		v := types.NullValue()
		if reader != nil {
			if rv, ok := reader.GetByName(f.Name, latest); ok {
				v = rv
			}
		}
		set(owner, f.Name, v)
	}
}

// bindWorkingCopy re-binds every field from w's current working state, so
// an assignment's expression sees the effect of every assignment that ran
// before it in the same update.
func bindWorkingCopy(c *expr.Context, owner string, w *codec.RowWriter, latest *types.SchemaVersion, isEdge bool) {
	set := c.SetTagProp
	if isEdge {
		set = c.SetEdgeProp
	}
	if latest == nil {
		return
	}
	for _, f := range latest.Fields {
		v, ok := w.Get(f.Name)
		if !ok {
			v = types.NullValue()
		}
		set(owner, f.Name, v)
	}
}

// UpdateEdgeNode is UpdateTagNode's edge counterpart. Edge rows carry no
// insertable-vertex existence marker and their lock key is the edge key
// itself (shared with the reverse edge's own key on the peer partition,
// reconciled by the soft-lock protocol above this node, not here).
type UpdateEdgeNode struct {
	base
	EdgeType    int32
	Insertable  bool
	When        *expr.Expr
	Assignments []UpdateAssignment
	Indexes     []*types.Index
	Upserter    *txn.Upserter

	inserted    bool
	filteredOut bool
	postVals    map[string]types.Value
}

func NewUpdateEdgeNode(edgeType int32, when *expr.Expr, assignments []UpdateAssignment, indexes []*types.Index, insertable bool, up *txn.Upserter) *UpdateEdgeNode {
	return &UpdateEdgeNode{
		base: newBase("UpdateEdgeNode"), EdgeType: edgeType, Insertable: insertable,
		When: when, Assignments: assignments, Indexes: indexes, Upserter: up,
	}
}

// Execute updates the edge (src, EdgeType, rank, dst) identified by a
// 3-element [src, rank, dst] tuple (EdgeType is fixed on the node itself,
// so the request need not repeat it per row).
func (n *UpdateEdgeNode) Execute(ctx *RuntimeContext, part types.PartitionID, edgeKeyTuple types.Value) error {
	return n.runTimed(ctx, part, edgeKeyTuple, func() error {
		n.inserted, n.filteredOut, n.postVals = false, false, nil

		src, rank, dst := edgeKeyTuple.L[0], edgeKeyTuple.L[1].I, edgeKeyTuple.L[2]

		schema, err := ctx.Catalog.EdgeSchema(ctx.Space, n.EdgeType)
		if err != nil {
			return err
		}
		latest := schema.Latest()
		key, err := ctx.VidCodec().EdgeKey(part, src, n.EdgeType, rank, dst)
		if err != nil {
			return err
		}
		pk, err := ctx.VidCodec().EdgePK(src, rank, dst)
		if err != nil {
			return err
		}

		inserted, err := n.Upserter.UpsertBatch(context.Background(), part, key, func(current []byte) ([]kvstore.Op, bool, error) {
			var reader *codec.RowReader
			found := len(current) > 0
			if found {
				r, derr := codec.NewRowReader(schema.Versions, current)
				if derr != nil {
					return nil, false, types.NewError(types.CodeInvalidData, "exec.UpdateEdgeNode", derr)
				}
				if !ttlExpired(latest, r) {
					reader = r
				} else {
					found = false
				}
			}
			if !found && !n.Insertable {
				return nil, false, types.NewError(types.CodeEdgeNotFound, "exec.UpdateEdgeNode", errUpdate("edge row not found and not insertable"))
			}

			evalCtx := expr.NewContext()
			bindSchemaRow(evalCtx, schema.Name, reader, latest, true)

			if n.When != nil {
				res, everr := expr.Evaluate(n.When, evalCtx)
				if everr != nil {
					ctx.IllegalDataCount++
					return nil, false, everr
				}
				if !res.Truthy() {
					n.filteredOut = true
					return nil, false, types.NewError(types.CodeFilterOut, "exec.UpdateEdgeNode", errUpdate("when condition not satisfied"))
				}
			}

			w := codec.NewRowWriter(latest)
			if found {
				for _, f := range latest.Fields {
					if v, ok := reader.GetByName(f.Name, latest); ok {
						_ = w.Set(f.Name, v)
					}
				}
			}
			for _, a := range n.Assignments {
				bindWorkingCopy(evalCtx, schema.Name, w, latest, true)
				v, everr := expr.Evaluate(a.Expr, evalCtx)
				if everr != nil {
					ctx.IllegalDataCount++
					return nil, false, everr
				}
				if serr := w.Set(a.Prop, v); serr != nil {
					return nil, false, serr
				}
			}
			if err := w.FillDefaults(); err != nil {
				return nil, false, err
			}
			next, err := w.Encode()
			if err != nil {
				return nil, false, err
			}

			ops := make([]kvstore.Op, 0, len(n.Indexes)*2+1)
			for _, idx := range n.Indexes {
				if !idx.IsEdge || idx.OwnerID != n.EdgeType {
					continue
				}
				op, ierr := n.stageIndex(idx, part, pk, reader, w, latest, found)
				if ierr != nil {
					return nil, false, ierr
				}
				ops = append(ops, op...)
			}
			ops = append(ops, kvstore.Op{Kind: kvstore.OpPut, Key: key, Value: next})

			n.postVals = make(map[string]types.Value, len(latest.Fields))
			for _, f := range latest.Fields {
				if v, ok := w.Get(f.Name); ok {
					n.postVals[f.Name] = v
				}
			}
			return ops, !found, nil
		})
		if err != nil {
			if types.CodeOf(err) == types.CodeFilterOut {
				return nil
			}
			return err
		}
		n.inserted = inserted
		return nil
	})
}

func (n *UpdateEdgeNode) stageIndex(idx *types.Index, part types.PartitionID, pk []byte, reader *codec.RowReader, w *codec.RowWriter, latest *types.SchemaVersion, hadOld bool) ([]kvstore.Op, error) {
	switch idx.State {
	case types.IndexLocked:
		return nil, types.NewError(types.CodeIndexLocked, "exec.UpdateEdgeNode", errUpdate("index locked for exclusive rebuild"))
	case types.IndexRebuilding:
		opKey := codec.OperationKey(part, idx.ID, nextOpLogSeq())
		return []kvstore.Op{{Kind: kvstore.OpPut, Key: opKey, Value: codec.EncodeOperationEntry(codec.OperationModify, pk)}}, nil
	}

	ops := make([]kvstore.Op, 0, 2)
	if hadOld {
		oldFields := make([]types.Value, len(idx.Fields))
		for i, name := range idx.Fields {
			v, ok := reader.GetByName(name, latest)
			if !ok {
				v = types.NullValue()
			}
			oldFields[i] = v
		}
		ops = append(ops, kvstore.Op{Kind: kvstore.OpRemove, Key: codec.IndexKey(part, idx.ID, oldFields, pk)})
	}
	newFields := make([]types.Value, len(idx.Fields))
	for i, name := range idx.Fields {
		v, ok := w.Get(name)
		if !ok {
			v = types.NullValue()
		}
		newFields[i] = v
	}
	ops = append(ops, kvstore.Op{Kind: kvstore.OpPut, Key: codec.IndexKey(part, idx.ID, newFields, pk)})
	return ops, nil
}

func (n *UpdateEdgeNode) Inserted() bool    { return n.inserted }
func (n *UpdateEdgeNode) FilteredOut() bool { return n.filteredOut }
func (n *UpdateEdgeNode) PostValue(name string) (types.Value, bool) {
	v, ok := n.postVals[name]
	return v, ok
}
