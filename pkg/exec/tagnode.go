package exec

import (
	"errors"
	"time"

	"github.com/cuemby/graphcore/pkg/codec"
	"github.com/cuemby/graphcore/pkg/types"
)

// TagNode point-gets one vertex's tag row and binds a RowReader over the
// tag's schema list, applying TTL. A miss (row absent, or present but
// TTL-expired) leaves the node invalid; it is the parent's job to decide
// whether that is tolerated (GetTagPropNode still emits a bare [vid] if
// the existence marker is set, MultiTagNode/HashJoinNode emit null for
// that tag's column).
type TagNode struct {
	base
	TagID int32

	reader *codec.RowReader
	schema *types.TagSchema
	found  bool
}

// NewTagNode builds a scan for one tag of the vid the plan is driven
// with.
func NewTagNode(tagID int32) *TagNode {
	return &TagNode{base: newBase("TagNode"), TagID: tagID}
}

func (n *TagNode) Execute(ctx *RuntimeContext, part types.PartitionID, vid types.Value) error {
	return n.runTimed(ctx, part, vid, func() error {
		n.found = false
		n.reader = nil

		schema, err := ctx.Catalog.TagSchema(ctx.Space, n.TagID)
		if err != nil {
			return err
		}
		n.schema = schema

		key, err := ctx.VidCodec().TagKey(part, vid, n.TagID)
		if err != nil {
			return err
		}
		raw, err := ctx.Store.Get(part, key)
		if err != nil {
			if isNotFound(err) {
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

// Found reports whether the tag row exists (post-TTL).
func (n *TagNode) Found() bool { return n.found }

// Reader returns the bound row reader, or nil if the tag is absent.
func (n *TagNode) Reader() *codec.RowReader { return n.reader }

// Schema returns the tag's full version history, resolved regardless of
// whether the row itself was found (callers need it for column shape).
func (n *TagNode) Schema() *types.TagSchema { return n.schema }

// Value implements QueryNode: the projected property list in schema
// field order of the tag's latest version, or VNull if the row is
// absent.
func (n *TagNode) Value() types.Value {
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

func isNotFound(err error) bool {
	return errors.Is(err, types.ErrKeyNotFound)
}

// ttlExpired evaluates a schema version's TTL spec against a decoded
// row: the row is invisible once now is past the TTL field's value plus
// the declared duration.
func ttlExpired(sv *types.SchemaVersion, reader *codec.RowReader) bool {
	if sv == nil || !sv.TTL.Enabled {
		return false
	}
	v, ok := reader.GetByName(sv.TTL.Field, sv)
	if !ok || v.IsNull() {
		return false
	}
	var base time.Time
	switch v.Kind {
	case types.VTimestamp:
		base = v.T
	case types.VInt:
		base = time.Unix(v.I, 0)
	default:
		return false
	}
	return time.Now().After(base.Add(time.Duration(sv.TTL.Duration) * time.Second))
}
