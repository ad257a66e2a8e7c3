package exec

import (
	"testing"
	"time"

	"github.com/cuemby/graphcore/pkg/catalog"
	"github.com/cuemby/graphcore/pkg/expr"
	"github.com/cuemby/graphcore/pkg/txn"
	"github.com/cuemby/graphcore/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJoinTestContext() (*RuntimeContext, *fakeStore) {
	cat := catalog.NewMemory()
	cat.PutTagSchema(1, personSchema())
	cat.PutEdgeSchema(1, likesSchema())
	store := newFakeStore()
	ctx := NewRuntimeContext(1, 8, types.VidInt64, cat, store, txn.NewLockTable(), txn.NewSoftLockBroker(), time.Time{}, 0)
	return ctx, store
}

func TestHashJoinNodeGathersTagsAndConcatenatesEdgeTypes(t *testing.T) {
	ctx, store := newJoinTestContext()
	vid := types.IntValue(1)
	putTagRow(t, ctx, store, 1, vid, 1, personSchema(), map[string]types.Value{
		"name": types.StringValue("ada"), "age": types.IntValue(36),
	})
	putEdgeRow(t, ctx, store, 1, vid, 10, 1, types.IntValue(2), likesSchema(), 0.5)
	putEdgeRow(t, ctx, store, 1, vid, 10, 2, types.IntValue(3), likesSchema(), 0.9)

	tag := NewTagNode(1)
	edge := NewSingleEdgeNode(10)
	hj := NewHashJoinNode([]*TagNode{tag}, []*SingleEdgeNode{edge})

	require.NoError(t, hj.Execute(ctx, 1, vid))
	val := hj.Value()
	require.Len(t, val.L, 1)
	assert.Equal(t, "ada", val.L[0].L[0].S)

	var dsts []int64
	for hj.Next(ctx) {
		dsts = append(dsts, hj.Current().Dst.I)
		assert.Equal(t, int32(10), ctx.EdgeType)
		assert.Equal(t, "likes", ctx.EdgeName)
	}
	assert.ElementsMatch(t, []int64{2, 3}, dsts)
}

func TestMultiTagNodeYieldsExactlyOnce(t *testing.T) {
	ctx, store := newJoinTestContext()
	vid := types.IntValue(1)
	putTagRow(t, ctx, store, 1, vid, 1, personSchema(), map[string]types.Value{
		"name": types.StringValue("grace"), "age": types.IntValue(50),
	})

	tag := NewTagNode(1)
	mt := NewMultiTagNode([]*TagNode{tag})
	require.NoError(t, mt.Execute(ctx, 1, vid))

	require.True(t, mt.Next())
	assert.True(t, mt.Valid())
	assert.False(t, mt.Next())
	assert.False(t, mt.Valid())
}

func edgePropExpr(edge, prop string) *expr.Expr {
	return &expr.Expr{Kind: expr.KindEdgeProp, Name1: edge, Name2: prop}
}

func tagPropExpr(tag, prop string) *expr.Expr {
	return &expr.Expr{Kind: expr.KindTagProp, Name1: tag, Name2: prop}
}

func litExpr(v types.Value) *expr.Expr {
	return &expr.Expr{Kind: expr.KindLiteral, Literal: v}
}

func geExpr(l, r *expr.Expr) *expr.Expr {
	return &expr.Expr{Kind: expr.KindBinary, Binary: expr.OpGE, Left: l, Right: r}
}

func TestFilterNodeTagEdgeModeKeepsOnlyMatchingEdges(t *testing.T) {
	ctx, store := newJoinTestContext()
	vid := types.IntValue(1)
	putTagRow(t, ctx, store, 1, vid, 1, personSchema(), map[string]types.Value{
		"name": types.StringValue("ada"), "age": types.IntValue(36),
	})
	putEdgeRow(t, ctx, store, 1, vid, 10, 1, types.IntValue(2), likesSchema(), 0.2)
	putEdgeRow(t, ctx, store, 1, vid, 10, 2, types.IntValue(3), likesSchema(), 0.9)

	tag := NewTagNode(1)
	edge := NewSingleEdgeNode(10)
	hj := NewHashJoinNode([]*TagNode{tag}, []*SingleEdgeNode{edge})
	full := geExpr(edgePropExpr("likes", "weight"), litExpr(types.FloatValue(0.5)))
	fn := NewFilterNode(hj, nil, full)

	require.NoError(t, fn.Execute(ctx, 1, vid))

	var passed int
	for fn.Next(ctx) {
		passed++
		assert.True(t, fn.Current().Reader != nil)
	}
	require.NoError(t, fn.Err())
	assert.Equal(t, 1, passed)
}

func TestFilterNodeTagOnlySubfilterShortCircuitsEdgeEvaluation(t *testing.T) {
	ctx, store := newJoinTestContext()
	vid := types.IntValue(1)
	putTagRow(t, ctx, store, 1, vid, 1, personSchema(), map[string]types.Value{
		"name": types.StringValue("ada"), "age": types.IntValue(10),
	})
	putEdgeRow(t, ctx, store, 1, vid, 10, 1, types.IntValue(2), likesSchema(), 1.0)

	tag := NewTagNode(1)
	edge := NewSingleEdgeNode(10)
	hj := NewHashJoinNode([]*TagNode{tag}, []*SingleEdgeNode{edge})
	tagOnly := geExpr(tagPropExpr("person", "age"), litExpr(types.IntValue(18)))
	full := geExpr(edgePropExpr("likes", "weight"), litExpr(types.FloatValue(0)))
	fn := NewFilterNode(hj, tagOnly, full)

	require.NoError(t, fn.Execute(ctx, 1, vid))
	assert.False(t, fn.Next(ctx))
	require.NoError(t, fn.Err())
	assert.True(t, ctx.TagFilterOut)
}

func TestFilterNodeTagOnlyModeEvaluatesAgainstTagContextOnly(t *testing.T) {
	ctx, store := newJoinTestContext()
	vid := types.IntValue(1)
	putTagRow(t, ctx, store, 1, vid, 1, personSchema(), map[string]types.Value{
		"name": types.StringValue("ada"), "age": types.IntValue(36),
	})

	tag := NewTagNode(1)
	mt := NewMultiTagNode([]*TagNode{tag})
	full := geExpr(tagPropExpr("person", "age"), litExpr(types.IntValue(18)))
	fn := NewTagOnlyFilterNode(mt, full)

	require.NoError(t, fn.Execute(ctx, 1, vid))
	require.True(t, fn.Next(ctx))
	assert.False(t, fn.Next(ctx))
}
