package exec

import (
	"testing"

	"github.com/cuemby/graphcore/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetNeighborsNodeAssemblesRowWithStatsAndEdges(t *testing.T) {
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
	fn := NewFilterNode(hj, nil, litExpr(types.BoolValue(true)))
	require.NoError(t, fn.Execute(ctx, 1, vid))

	stats := []StatSpec{{Name: "sum_weight", Func: AggSum, Source: edgePropExpr("likes", "weight")}}
	cols := []EdgeColumnSpec{{Props: []string{"weight"}}}
	gn := NewGetNeighborsNode(fn, cols, stats)
	require.NoError(t, gn.Execute(ctx, 1, vid))

	row := gn.Value()
	require.Len(t, row.L, 4)
	assert.Equal(t, int64(1), row.L[0].I)
	assert.InDelta(t, 1.4, row.L[1].L[0].F, 1e-9)
	assert.Equal(t, "ada", row.L[2].L[0].S)
	edgeCol := row.L[3]
	require.Len(t, edgeCol.L, 2)
	inner := edgeCol.L[0]
	require.Len(t, inner.L, 5)
	assert.InDelta(t, 0.5, inner.L[0].F, 1e-9)
	assert.Equal(t, int64(1), inner.L[1].I)
	assert.Equal(t, int64(10), inner.L[2].I)
	assert.Equal(t, int64(1), inner.L[3].I)
	assert.Equal(t, int64(2), inner.L[4].I)
}

func TestGetNeighborsNodeEmptyEdgeColumnIsNull(t *testing.T) {
	ctx, store := newJoinTestContext()
	vid := types.IntValue(1)
	putTagRow(t, ctx, store, 1, vid, 1, personSchema(), map[string]types.Value{
		"name": types.StringValue("ada"), "age": types.IntValue(36),
	})

	tag := NewTagNode(1)
	edge := NewSingleEdgeNode(10)
	hj := NewHashJoinNode([]*TagNode{tag}, []*SingleEdgeNode{edge})
	fn := NewFilterNode(hj, nil, litExpr(types.BoolValue(true)))
	require.NoError(t, fn.Execute(ctx, 1, vid))

	gn := NewGetNeighborsNode(fn, []EdgeColumnSpec{{Props: []string{"weight"}}}, nil)
	require.NoError(t, gn.Execute(ctx, 1, vid))

	row := gn.Value()
	assert.True(t, row.L[1].IsNull())
	assert.True(t, row.L[3].IsNull())
}

func TestGetNeighborsNodeSamplesPerEdgeColumn(t *testing.T) {
	ctx, store := newJoinTestContext()
	vid := types.IntValue(1)
	putTagRow(t, ctx, store, 1, vid, 1, personSchema(), map[string]types.Value{
		"name": types.StringValue("ada"), "age": types.IntValue(36),
	})
	for i := int64(1); i <= 5; i++ {
		putEdgeRow(t, ctx, store, 1, vid, 10, i, types.IntValue(100+i), likesSchema(), float64(i))
	}

	tag := NewTagNode(1)
	edge := NewSingleEdgeNode(10)
	hj := NewHashJoinNode([]*TagNode{tag}, []*SingleEdgeNode{edge})
	fn := NewFilterNode(hj, nil, litExpr(types.BoolValue(true)))
	require.NoError(t, fn.Execute(ctx, 1, vid))

	cols := []EdgeColumnSpec{{Props: []string{"weight"}, SampleSize: 2, Seed: 7}}
	gn := NewGetNeighborsNode(fn, cols, nil)
	require.NoError(t, gn.Execute(ctx, 1, vid))

	row := gn.Value()
	assert.Len(t, row.L[3].L, 2)
}
