package exec

import (
	"testing"
	"time"

	"github.com/cuemby/graphcore/pkg/catalog"
	"github.com/cuemby/graphcore/pkg/codec"
	"github.com/cuemby/graphcore/pkg/expr"
	"github.com/cuemby/graphcore/pkg/txn"
	"github.com/cuemby/graphcore/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUpdateTagTestContext(schema *types.TagSchema, indexes ...*types.Index) (*RuntimeContext, *fakeStore, *txn.Upserter) {
	cat := catalog.NewMemory()
	cat.PutTagSchema(1, schema)
	for _, idx := range indexes {
		cat.PutIndex(1, idx)
	}
	store := newFakeStore()
	ctx := NewRuntimeContext(1, 8, types.VidInt64, cat, store, txn.NewLockTable(), txn.NewSoftLockBroker(), time.Time{}, 0)
	up := txn.NewUpserter(ctx.Locks, store)
	return ctx, store, up
}

// incAgeExpr builds `age = age + amount`, exercising ordered assignment
// evaluation against the working copy.
func incAgeExpr(amount int64) *expr.Expr {
	return &expr.Expr{
		Kind: expr.KindBinary, Binary: expr.OpAdd,
		Left:  &expr.Expr{Kind: expr.KindTagProp, Name1: "person", Name2: "age"},
		Right: &expr.Expr{Kind: expr.KindLiteral, Literal: types.IntValue(amount)},
	}
}

func TestUpdateTagNodeAppliesOrderedAssignments(t *testing.T) {
	schema := personSchema()
	ctx, store, up := newUpdateTagTestContext(schema)
	vid := types.IntValue(1)
	putTagRow(t, ctx, store, 1, vid, 1, schema, map[string]types.Value{
		"name": types.StringValue("ada"),
		"age":  types.IntValue(30),
	})

	n := NewUpdateTagNode(1, nil, []UpdateAssignment{
		{Prop: "age", Expr: incAgeExpr(1)},
		{Prop: "age", Expr: incAgeExpr(1)},
	}, nil, false, false, up)
	require.NoError(t, n.Execute(ctx, 1, vid))
	assert.False(t, n.Inserted())
	assert.False(t, n.FilteredOut())

	v, ok := n.PostValue("age")
	require.True(t, ok)
	assert.Equal(t, int64(32), v.I)

	key, err := ctx.VidCodec().TagKey(1, vid, 1)
	require.NoError(t, err)
	raw, err := store.Get(1, key)
	require.NoError(t, err)
	reader, err := codec.NewRowReader(schema.Versions, raw)
	require.NoError(t, err)
	got, ok := reader.GetByName("age", schema.Latest())
	require.True(t, ok)
	assert.Equal(t, int64(32), got.I)
}

func TestUpdateTagNodeInsertsDefaultsWhenInsertable(t *testing.T) {
	schema := personSchema()
	ctx, store, up := newUpdateTagTestContext(schema)
	vid := types.IntValue(2)

	n := NewUpdateTagNode(1, nil, []UpdateAssignment{
		{Prop: "name", Expr: &expr.Expr{Kind: expr.KindLiteral, Literal: types.StringValue("grace")}},
	}, nil, true, false, up)
	require.NoError(t, n.Execute(ctx, 1, vid))
	assert.True(t, n.Inserted())

	nameV, ok := n.PostValue("name")
	require.True(t, ok)
	assert.Equal(t, "grace", nameV.S)
	ageV, ok := n.PostValue("age")
	require.True(t, ok)
	assert.True(t, ageV.IsNull())

	_ = store
}

func TestUpdateTagNodeNotFoundNotInsertableFails(t *testing.T) {
	schema := personSchema()
	ctx, _, up := newUpdateTagTestContext(schema)

	n := NewUpdateTagNode(1, nil, nil, nil, false, false, up)
	err := n.Execute(ctx, 1, types.IntValue(3))
	require.Error(t, err)
	assert.Equal(t, types.CodeTagNotFound, types.CodeOf(err))
}

func TestUpdateTagNodeWhenFilterOutMakesNoWrites(t *testing.T) {
	schema := personSchema()
	ctx, store, up := newUpdateTagTestContext(schema)
	vid := types.IntValue(4)
	putTagRow(t, ctx, store, 1, vid, 1, schema, map[string]types.Value{
		"name": types.StringValue("bob"),
		"age":  types.IntValue(10),
	})

	when := &expr.Expr{
		Kind: expr.KindBinary, Binary: expr.OpGE,
		Left:  &expr.Expr{Kind: expr.KindTagProp, Name1: "person", Name2: "age"},
		Right: &expr.Expr{Kind: expr.KindLiteral, Literal: types.IntValue(100)},
	}
	n := NewUpdateTagNode(1, when, []UpdateAssignment{
		{Prop: "age", Expr: &expr.Expr{Kind: expr.KindLiteral, Literal: types.IntValue(999)}},
	}, nil, false, false, up)
	require.NoError(t, n.Execute(ctx, 1, vid))
	assert.True(t, n.FilteredOut())

	key, err := ctx.VidCodec().TagKey(1, vid, 1)
	require.NoError(t, err)
	raw, err := store.Get(1, key)
	require.NoError(t, err)
	reader, err := codec.NewRowReader(schema.Versions, raw)
	require.NoError(t, err)
	got, _ := reader.GetByName("age", schema.Latest())
	assert.Equal(t, int64(10), got.I)
}

func TestUpdateTagNodeMaintainsActiveIndex(t *testing.T) {
	schema := personSchema()
	idx := &types.Index{ID: 7, Name: "by_age", IsEdge: false, OwnerID: 1, Fields: []string{"age"}, State: types.IndexActive}
	ctx, store, up := newUpdateTagTestContext(schema, idx)
	vid := types.IntValue(5)
	putTagRow(t, ctx, store, 1, vid, 1, schema, map[string]types.Value{
		"name": types.StringValue("eve"),
		"age":  types.IntValue(20),
	})
	pk, err := ctx.VidCodec().EncodeVid(vid)
	require.NoError(t, err)
	oldKey := codec.IndexKey(1, idx.ID, []types.Value{types.IntValue(20)}, pk)
	store.put(1, oldKey, nil)

	n := NewUpdateTagNode(1, nil, []UpdateAssignment{
		{Prop: "age", Expr: &expr.Expr{Kind: expr.KindLiteral, Literal: types.IntValue(21)}},
	}, []*types.Index{idx}, false, false, up)
	require.NoError(t, n.Execute(ctx, 1, vid))

	_, err = store.Get(1, oldKey)
	assert.Error(t, err, "old index entry should have been removed")

	newKey := codec.IndexKey(1, idx.ID, []types.Value{types.IntValue(21)}, pk)
	_, err = store.Get(1, newKey)
	assert.NoError(t, err, "new index entry should have been staged")
}

func TestUpdateTagNodeRebuildingIndexStagesOperationLog(t *testing.T) {
	schema := personSchema()
	idx := &types.Index{ID: 8, Name: "by_age", IsEdge: false, OwnerID: 1, Fields: []string{"age"}, State: types.IndexRebuilding}
	ctx, store, up := newUpdateTagTestContext(schema, idx)
	vid := types.IntValue(6)
	putTagRow(t, ctx, store, 1, vid, 1, schema, map[string]types.Value{
		"name": types.StringValue("frank"),
		"age":  types.IntValue(40),
	})

	n := NewUpdateTagNode(1, nil, []UpdateAssignment{
		{Prop: "age", Expr: &expr.Expr{Kind: expr.KindLiteral, Literal: types.IntValue(41)}},
	}, []*types.Index{idx}, false, false, up)
	require.NoError(t, n.Execute(ctx, 1, vid))

	it, err := store.Prefix(1, codec.OperationPrefix(1, idx.ID))
	require.NoError(t, err)
	var count int
	for it.Next() {
		count++
		kind, pk, derr := codec.DecodeOperationEntry(it.Value())
		require.NoError(t, derr)
		assert.Equal(t, codec.OperationModify, kind)
		wantPK, _ := ctx.VidCodec().EncodeVid(vid)
		assert.Equal(t, wantPK, pk)
	}
	assert.Equal(t, 1, count)
}

func TestUpdateTagNodeLockedIndexFails(t *testing.T) {
	schema := personSchema()
	idx := &types.Index{ID: 9, Name: "by_age", IsEdge: false, OwnerID: 1, Fields: []string{"age"}, State: types.IndexLocked}
	ctx, store, up := newUpdateTagTestContext(schema, idx)
	vid := types.IntValue(7)
	putTagRow(t, ctx, store, 1, vid, 1, schema, map[string]types.Value{
		"name": types.StringValue("gail"),
		"age":  types.IntValue(50),
	})

	n := NewUpdateTagNode(1, nil, []UpdateAssignment{
		{Prop: "age", Expr: &expr.Expr{Kind: expr.KindLiteral, Literal: types.IntValue(51)}},
	}, []*types.Index{idx}, false, false, up)
	err := n.Execute(ctx, 1, vid)
	require.Error(t, err)
	assert.Equal(t, types.CodeIndexLocked, types.CodeOf(err))
}

func TestUpdateEdgeNodeAppliesAssignmentAndReencodes(t *testing.T) {
	schema := likesSchema()
	ctx, store := newEdgeTestContext(schema)
	up := txn.NewUpserter(ctx.Locks, store)
	src, dst := types.IntValue(1), types.IntValue(2)
	putEdgeRow(t, ctx, store, 1, src, 10, 1, dst, schema, 0.5)

	n := NewUpdateEdgeNode(10, nil, []UpdateAssignment{
		{Prop: "weight", Expr: &expr.Expr{Kind: expr.KindLiteral, Literal: types.FloatValue(0.9)}},
	}, nil, false, up)
	tuple := types.ListValue(src, types.IntValue(1), dst)
	require.NoError(t, n.Execute(ctx, 1, tuple))
	assert.False(t, n.Inserted())

	v, ok := n.PostValue("weight")
	require.True(t, ok)
	assert.InDelta(t, 0.9, v.F, 0.0001)
}
