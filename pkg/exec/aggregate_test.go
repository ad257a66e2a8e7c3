package exec

import (
	"testing"

	"github.com/cuemby/graphcore/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAggregateFilter(t *testing.T, ctx *RuntimeContext, vid types.Value, hj *HashJoinNode) *FilterNode {
	t.Helper()
	fn := NewFilterNode(hj, nil, litExpr(types.BoolValue(true)))
	require.NoError(t, fn.Execute(ctx, 1, vid))
	return fn
}

func TestAggregateNodeSumCountAvgMinMax(t *testing.T) {
	ctx, store := newJoinTestContext()
	vid := types.IntValue(1)
	putTagRow(t, ctx, store, 1, vid, 1, personSchema(), map[string]types.Value{
		"name": types.StringValue("ada"), "age": types.IntValue(36),
	})
	putEdgeRow(t, ctx, store, 1, vid, 10, 1, types.IntValue(2), likesSchema(), 0.2)
	putEdgeRow(t, ctx, store, 1, vid, 10, 2, types.IntValue(3), likesSchema(), 0.9)
	putEdgeRow(t, ctx, store, 1, vid, 10, 3, types.IntValue(4), likesSchema(), 0.4)

	tag := NewTagNode(1)
	edge := NewSingleEdgeNode(10)
	hj := NewHashJoinNode([]*TagNode{tag}, []*SingleEdgeNode{edge})
	fn := newAggregateFilter(t, ctx, vid, hj)

	stats := []StatSpec{
		{Name: "sum_weight", Func: AggSum, Source: edgePropExpr("likes", "weight")},
		{Name: "cnt", Func: AggCount, Source: edgePropExpr("likes", "weight")},
		{Name: "avg_weight", Func: AggAvg, Source: edgePropExpr("likes", "weight")},
		{Name: "min_weight", Func: AggMin, Source: edgePropExpr("likes", "weight")},
		{Name: "max_weight", Func: AggMax, Source: edgePropExpr("likes", "weight")},
	}
	agg := NewAggregateNode(fn, stats)
	require.NoError(t, agg.Execute(ctx, 1, vid))

	val := agg.Value()
	require.Len(t, val.L, 5)
	assert.InDelta(t, 1.5, val.L[0].F, 1e-9)
	assert.Equal(t, int64(3), val.L[1].I)
	assert.InDelta(t, 0.5, val.L[2].F, 1e-9)
	assert.InDelta(t, 0.2, val.L[3].F, 1e-9)
	assert.InDelta(t, 0.9, val.L[4].F, 1e-9)
}

func TestAggregateNodeNoStatsYieldsNull(t *testing.T) {
	ctx, store := newJoinTestContext()
	vid := types.IntValue(1)
	putTagRow(t, ctx, store, 1, vid, 1, personSchema(), map[string]types.Value{
		"name": types.StringValue("ada"), "age": types.IntValue(36),
	})

	tag := NewTagNode(1)
	mt := NewMultiTagNode([]*TagNode{tag})
	fn := NewTagOnlyFilterNode(mt, litExpr(types.BoolValue(true)))
	require.NoError(t, fn.Execute(ctx, 1, vid))

	agg := NewAggregateNode(fn, nil)
	require.NoError(t, agg.Execute(ctx, 1, vid))
	assert.True(t, agg.Value().IsNull())
}

func TestAggregateNodeAvgOfEmptyEdgeSetIsNull(t *testing.T) {
	ctx, store := newJoinTestContext()
	vid := types.IntValue(1)
	putTagRow(t, ctx, store, 1, vid, 1, personSchema(), map[string]types.Value{
		"name": types.StringValue("ada"), "age": types.IntValue(36),
	})

	tag := NewTagNode(1)
	edge := NewSingleEdgeNode(10)
	hj := NewHashJoinNode([]*TagNode{tag}, []*SingleEdgeNode{edge})
	fn := newAggregateFilter(t, ctx, vid, hj)

	stats := []StatSpec{{Name: "avg_weight", Func: AggAvg, Source: edgePropExpr("likes", "weight")}}
	agg := NewAggregateNode(fn, stats)
	require.NoError(t, agg.Execute(ctx, 1, vid))
	val := agg.Value()
	require.Len(t, val.L, 1)
	assert.True(t, val.L[0].IsNull())
}
