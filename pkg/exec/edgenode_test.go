package exec

import (
	"testing"
	"time"

	"github.com/cuemby/graphcore/pkg/catalog"
	"github.com/cuemby/graphcore/pkg/codec"
	"github.com/cuemby/graphcore/pkg/txn"
	"github.com/cuemby/graphcore/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func likesSchema() *types.EdgeSchema {
	return &types.EdgeSchema{
		ID:   10,
		Name: "likes",
		Versions: []types.SchemaVersion{
			{
				Version: 1,
				Fields: []types.FieldDef{
					{Name: "weight", Type: types.FieldFloat, Nullable: false},
				},
			},
		},
	}
}

func newEdgeTestContext(schema *types.EdgeSchema) (*RuntimeContext, *fakeStore) {
	cat := catalog.NewMemory()
	cat.PutEdgeSchema(1, schema)
	store := newFakeStore()
	ctx := NewRuntimeContext(1, 8, types.VidInt64, cat, store, txn.NewLockTable(), txn.NewSoftLockBroker(), time.Time{}, 0)
	return ctx, store
}

func putEdgeRow(t *testing.T, ctx *RuntimeContext, store *fakeStore, part types.PartitionID, src types.Value, edgeType int32, rank int64, dst types.Value, schema *types.EdgeSchema, weight float64) {
	t.Helper()
	w := codec.NewRowWriter(schema.Latest())
	require.NoError(t, w.Set("weight", types.FloatValue(weight)))
	require.NoError(t, w.FillDefaults())
	raw, err := w.Encode()
	require.NoError(t, err)
	key, err := ctx.VidCodec().EdgeKey(part, src, edgeType, rank, dst)
	require.NoError(t, err)
	store.put(part, key, raw)
}

func TestSingleEdgeNodeIteratesAllEdgesOfType(t *testing.T) {
	schema := likesSchema()
	ctx, store := newEdgeTestContext(schema)
	src := types.IntValue(1)
	putEdgeRow(t, ctx, store, 1, src, 10, 1, types.IntValue(2), schema, 0.5)
	putEdgeRow(t, ctx, store, 1, src, 10, 2, types.IntValue(3), schema, 0.9)

	n := NewSingleEdgeNode(10)
	require.NoError(t, n.Execute(ctx, 1, src))

	var dsts []int64
	for n.Next(ctx) {
		row := n.Current()
		dsts = append(dsts, row.Dst.I)
	}
	require.NoError(t, n.Err())
	assert.ElementsMatch(t, []int64{2, 3}, dsts)
}

func TestSingleEdgeNodeResumesSoftLockAndYieldsSyntheticRow(t *testing.T) {
	schema := likesSchema()
	ctx, store := newEdgeTestContext(schema)
	src := types.IntValue(1)
	dst := types.IntValue(2)

	lockKey, err := ctx.VidCodec().LockKey(1, src, 10, 1, dst)
	require.NoError(t, err)
	store.put(1, lockKey, nil)

	w := codec.NewRowWriter(schema.Latest())
	require.NoError(t, w.Set("weight", types.FloatValue(1.5)))
	require.NoError(t, w.FillDefaults())
	resolved, err := w.Encode()
	require.NoError(t, err)

	go func() {
		deadline := time.Now().Add(time.Second)
		for ctx.Soft.WaiterCount(string(lockKey)) == 0 && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}
		ctx.Soft.Resolve(txn.Resolution{LockKey: string(lockKey), Committed: true, Value: resolved})
	}()

	n := NewSingleEdgeNode(10)
	require.NoError(t, n.Execute(ctx, 1, src))
	require.True(t, n.Next(ctx))
	row := n.Current()
	assert.Equal(t, int64(2), row.Dst.I)
	v, ok := row.Reader.GetByName("weight", schema.Latest())
	require.True(t, ok)
	assert.Equal(t, 1.5, v.F)
	assert.False(t, n.Next(ctx))
}

func TestSingleEdgeNodeSuppressesRolledBackLock(t *testing.T) {
	schema := likesSchema()
	ctx, store := newEdgeTestContext(schema)
	src := types.IntValue(1)
	dst := types.IntValue(2)

	lockKey, err := ctx.VidCodec().LockKey(1, src, 10, 1, dst)
	require.NoError(t, err)
	store.put(1, lockKey, nil)

	go func() {
		deadline := time.Now().Add(time.Second)
		for ctx.Soft.WaiterCount(string(lockKey)) == 0 && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}
		ctx.Soft.Resolve(txn.Resolution{LockKey: string(lockKey), Committed: false})
	}()

	n := NewSingleEdgeNode(10)
	require.NoError(t, n.Execute(ctx, 1, src))
	assert.False(t, n.Next(ctx))
	require.NoError(t, n.Err())
}

func TestFetchEdgeNodeFoundProjectsFields(t *testing.T) {
	schema := likesSchema()
	ctx, store := newEdgeTestContext(schema)
	src, dst := types.IntValue(1), types.IntValue(2)
	putEdgeRow(t, ctx, store, 1, src, 10, 1, dst, schema, 0.25)

	n := NewFetchEdgeNode(src, 10, 1, dst)
	require.NoError(t, n.Execute(ctx, 1, types.NullValue()))
	require.True(t, n.Found())
	val := n.Value()
	require.Len(t, val.L, 1)
	assert.Equal(t, 0.25, val.L[0].F)
}

func TestFetchEdgeNodeMissingKeyIsNotAnError(t *testing.T) {
	schema := likesSchema()
	ctx, _ := newEdgeTestContext(schema)
	n := NewFetchEdgeNode(types.IntValue(1), 10, 1, types.IntValue(2))
	require.NoError(t, n.Execute(ctx, 1, types.NullValue()))
	assert.False(t, n.Found())
	assert.True(t, n.Value().IsNull())
}
