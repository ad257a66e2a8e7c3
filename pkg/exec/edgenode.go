package exec

import (
	"errors"
	"fmt"

	"github.com/cuemby/graphcore/pkg/codec"
	"github.com/cuemby/graphcore/pkg/kvstore"
	"github.com/cuemby/graphcore/pkg/types"
)

// edgeRow is one decoded edge SingleEdgeNode's cursor yields: the raw
// key components plus a bound reader over the row body, which for an
// edge resolved from a soft lock is the committed value the lock's
// resolution carried.
type edgeRow struct {
	Src, Dst types.Value
	EdgeType int32
	Rank     int64
	Reader   *codec.RowReader
}

// SingleEdgeNode prefix-scans one edge type rooted at the driven vid,
// acting as an IterateNode cursor over the edges that survive TTL, the
// illegal-data check and soft-lock resolution.
type SingleEdgeNode struct {
	base
	EdgeType int32

	schema *types.EdgeSchema
	it     kvstore.Iterator
	cur    *edgeRow
	err    error
}

func NewSingleEdgeNode(edgeType int32) *SingleEdgeNode {
	return &SingleEdgeNode{base: newBase(fmt.Sprintf("SingleEdgeNode(%d)", edgeType)), EdgeType: edgeType}
}

func (n *SingleEdgeNode) Execute(ctx *RuntimeContext, part types.PartitionID, vid types.Value) error {
	return n.runTimed(ctx, part, vid, func() error {
		n.cur, n.err = nil, nil
		schema, err := ctx.Catalog.EdgeSchema(ctx.Space, n.EdgeType)
		if err != nil {
			return err
		}
		n.schema = schema

		prefix, err := ctx.VidCodec().EdgePrefix(part, vid, n.EdgeType)
		if err != nil {
			return err
		}
		it, err := ctx.Store.Prefix(part, prefix)
		if err != nil {
			return err
		}
		n.it = it
		return nil
	})
}

// Valid reports whether Next has positioned the cursor on a usable row.
func (n *SingleEdgeNode) Valid() bool { return n.cur != nil }

// Err returns the first hard error Next encountered, if any.
func (n *SingleEdgeNode) Err() error { return n.err }

// Next advances past TTL-expired, illegal, and rolled-back-lock rows
// until it lands on a visible edge or exhausts the prefix scan.
func (n *SingleEdgeNode) Next(ctx *RuntimeContext) bool {
	if n.it == nil {
		return false
	}
	vc := ctx.VidCodec()
	for n.it.Next() {
		key := n.it.Key()
		val := n.it.Value()

		src, edgeType, rank, dst, isLock, err := vc.DecodeEdgeKey(key)
		if err != nil {
			ctx.IllegalDataCount++
			continue
		}

		if isLock {
			lockKey := string(key)
			value, yield, err := ctx.Soft.ResumeLock(lockKey)
			if err != nil {
				n.err = err
				n.cur = nil
				return false
			}
			if !yield {
				continue
			}
			reader, err := codec.NewRowReader(n.schema.Versions, value)
			if err != nil {
				ctx.IllegalDataCount++
				continue
			}
			n.cur = &edgeRow{Src: src, Dst: dst, EdgeType: edgeType, Rank: rank, Reader: reader}
			return true
		}

		reader, err := codec.NewRowReader(n.schema.Versions, val)
		if err != nil {
			ctx.IllegalDataCount++
			continue
		}
		if ttlExpired(n.schema.Latest(), reader) {
			continue
		}
		n.cur = &edgeRow{Src: src, Dst: dst, EdgeType: edgeType, Rank: rank, Reader: reader}
		return true
	}
	n.cur = nil
	if err := n.it.Err(); err != nil {
		n.err = err
	}
	_ = n.it.Close()
	return false
}

// Key and Val always return nil; consumers read the current edge
// through Current() instead.
func (n *SingleEdgeNode) Key() []byte { return nil }
func (n *SingleEdgeNode) Val() []byte { return nil }

// Current returns the row the cursor is positioned on.
func (n *SingleEdgeNode) Current() *edgeRow { return n.cur }

// Schema returns the edge type's full version history.
func (n *SingleEdgeNode) Schema() *types.EdgeSchema { return n.schema }

// FetchEdgeNode point-gets a single, fully-specified edge key. A miss is
// success with no row (E_KEY_NOT_FOUND is swallowed here; GetEdgePropNode
// emits nothing, UpdateEdgeNode decides insert-vs-error).
type FetchEdgeNode struct {
	base
	Src, Dst types.Value
	EdgeType int32
	Rank     int64

	found  bool
	reader *codec.RowReader
	schema *types.EdgeSchema
}

func NewFetchEdgeNode(src types.Value, edgeType int32, rank int64, dst types.Value) *FetchEdgeNode {
	return &FetchEdgeNode{base: newBase("FetchEdgeNode"), Src: src, Dst: dst, EdgeType: edgeType, Rank: rank}
}

func (n *FetchEdgeNode) Execute(ctx *RuntimeContext, part types.PartitionID, input types.Value) error {
	return n.runTimed(ctx, part, input, func() error {
		n.found, n.reader = false, nil

		schema, err := ctx.Catalog.EdgeSchema(ctx.Space, n.EdgeType)
		if err != nil {
			return err
		}
		n.schema = schema

		key, err := ctx.VidCodec().EdgeKey(part, n.Src, n.EdgeType, n.Rank, n.Dst)
		if err != nil {
			return err
		}
		raw, err := ctx.Store.Get(part, key)
		if err != nil {
			if errors.Is(err, types.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		reader, err := codec.NewRowReader(schema.Versions, raw)
		if err != nil {
			ctx.IllegalDataCount++
			return nil
		}
		if ttlExpired(schema.Latest(), reader) {
			return nil
		}
		n.reader = reader
		n.found = true
		return nil
	})
}

func (n *FetchEdgeNode) Found() bool               { return n.found }
func (n *FetchEdgeNode) Reader() *codec.RowReader   { return n.reader }
func (n *FetchEdgeNode) Schema() *types.EdgeSchema  { return n.schema }

func (n *FetchEdgeNode) Value() types.Value {
	if !n.found {
		return types.NullValue()
	}
	latest := n.schema.Latest()
	vals := make([]types.Value, 0, len(latest.Fields))
	for _, f := range latest.Fields {
		v, ok := n.reader.GetByName(f.Name, latest)
		if !ok {
			v = types.NullValue()
		}
		vals = append(vals, v)
	}
	return types.ListValue(vals...)
}
