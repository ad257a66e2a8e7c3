package exec

import (
	"fmt"

	"github.com/cuemby/graphcore/pkg/codec"
	"github.com/cuemby/graphcore/pkg/kvstore"
	"github.com/cuemby/graphcore/pkg/types"
)

// IndexScanNode walks one secondary index. Leading HintEquals hints on
// the index's declared column order build an exact prefix; the kvstore
// only supports prefix scans, so everything past the equality prefix
// (a GreaterEqual/Less/Between/In/IsNull hint, or no hint at all) is
// filtered client-side by decoding each scanned key's field bytes back
// to typed values and comparing them.
type IndexScanNode struct {
	base
	IndexID int32
	Hints   []types.ColumnHint

	index      *types.Index
	fieldTypes []types.FieldType
	tailHints  map[int]types.ColumnHint // field index -> hint, for columns at/after the equality prefix

	it      kvstore.Iterator
	curKey  []byte
	curVals []types.Value
	curPK   []byte
	err     error
}

func NewIndexScanNode(indexID int32, hints []types.ColumnHint) *IndexScanNode {
	return &IndexScanNode{base: newBase(fmt.Sprintf("IndexScanNode(%d)", indexID)), IndexID: indexID, Hints: hints}
}

func (n *IndexScanNode) Execute(ctx *RuntimeContext, part types.PartitionID, input types.Value) error {
	return n.runTimed(ctx, part, input, func() error {
		n.curKey, n.curVals, n.curPK, n.err = nil, nil, nil, nil

		idx, err := ctx.Catalog.Index(ctx.Space, n.IndexID)
		if err != nil {
			return err
		}
		n.index = idx

		fieldTypes, err := resolveIndexFieldTypes(ctx, idx)
		if err != nil {
			return err
		}
		n.fieldTypes = fieldTypes

		byCol := make(map[string]types.ColumnHint, len(n.Hints))
		for _, h := range n.Hints {
			byCol[h.Column] = h
		}

		var equalFields []types.Value
		n.tailHints = make(map[int]types.ColumnHint)
		stopped := false
		for i, colName := range idx.Fields {
			h, ok := byCol[colName]
			if !stopped && ok && h.Kind == types.HintEquals {
				equalFields = append(equalFields, h.Lo)
				continue
			}
			stopped = true
			if ok {
				n.tailHints[i] = h
			}
		}

		prefix := codec.IndexPrefix(part, idx.ID, equalFields)
		it, err := ctx.Store.Prefix(part, prefix)
		if err != nil {
			return err
		}
		n.it = it
		return nil
	})
}

// Valid reports whether Next has positioned the cursor on a row that
// survived hint filtering.
func (n *IndexScanNode) Valid() bool { return n.curKey != nil }

// Err returns the first hard error encountered while iterating.
func (n *IndexScanNode) Err() error { return n.err }

// Next advances to the next index entry whose non-equality columns
// satisfy every remaining hint, decoding and discarding rows that don't
// until the scan is exhausted.
func (n *IndexScanNode) Next() bool {
	if n.it == nil {
		return false
	}
	for n.it.Next() {
		key := n.it.Key()
		vals, pk, err := codec.DecodeIndexFields(key, n.fieldTypes)
		if err != nil {
			continue
		}
		if !n.satisfiesTailHints(vals) {
			continue
		}
		n.curKey = key
		n.curVals = vals
		n.curPK = pk
		return true
	}
	n.curKey = nil
	if err := n.it.Err(); err != nil {
		n.err = err
	}
	_ = n.it.Close()
	return false
}

func (n *IndexScanNode) satisfiesTailHints(vals []types.Value) bool {
	for i, h := range n.tailHints {
		if i >= len(vals) {
			return false
		}
		if !hintMatches(h, vals[i]) {
			return false
		}
	}
	return true
}

func hintMatches(h types.ColumnHint, v types.Value) bool {
	switch h.Kind {
	case types.HintEquals:
		return v.Compare(h.Lo) == 0
	case types.HintGreaterEqual:
		return v.Compare(h.Lo) >= 0
	case types.HintLess:
		return v.Compare(h.Hi) < 0
	case types.HintBetween:
		return v.Compare(h.Lo) >= 0 && v.Compare(h.Hi) < 0
	case types.HintIn:
		for _, s := range h.Set {
			if v.Compare(s) == 0 {
				return true
			}
		}
		return false
	case types.HintIsNull:
		return v.IsNull()
	default:
		return true
	}
}

// Key returns the raw index key of the current entry.
func (n *IndexScanNode) Key() []byte { return n.curKey }

// Val is unused by IndexScanNode's own consumer (IndexOutputNode reads
// Fields/PK instead) but kept for IterateNode conformance.
func (n *IndexScanNode) Val() []byte { return nil }

// Fields returns the current entry's decoded indexed columns, in the
// index's declared order.
func (n *IndexScanNode) Fields() []types.Value { return n.curVals }

// PK returns the current entry's primary-key suffix: the vid for a
// vertex index, or VidCodec.DecodeEdgePK's input for an edge index.
func (n *IndexScanNode) PK() []byte { return n.curPK }

// Index returns the resolved index metadata.
func (n *IndexScanNode) Index() *types.Index { return n.index }

func resolveIndexFieldTypes(ctx *RuntimeContext, idx *types.Index) ([]types.FieldType, error) {
	var latest *types.SchemaVersion
	if idx.IsEdge {
		schema, err := ctx.Catalog.EdgeSchema(ctx.Space, idx.OwnerID)
		if err != nil {
			return nil, err
		}
		latest = schema.Latest()
	} else {
		schema, err := ctx.Catalog.TagSchema(ctx.Space, idx.OwnerID)
		if err != nil {
			return nil, err
		}
		latest = schema.Latest()
	}

	byName := make(map[string]types.FieldType, len(latest.Fields))
	for _, f := range latest.Fields {
		byName[f.Name] = f.Type
	}
	out := make([]types.FieldType, 0, len(idx.Fields))
	for _, name := range idx.Fields {
		ft, ok := byName[name]
		if !ok {
			return nil, types.NewError(types.CodeIndexNotFound, "exec.resolveIndexFieldTypes", errIndexField("indexed column not found in owner schema: "+name))
		}
		out = append(out, ft)
	}
	return out, nil
}

type errIndexField string

func (e errIndexField) Error() string { return string(e) }
