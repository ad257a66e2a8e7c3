package exec

import (
	"testing"

	"github.com/cuemby/graphcore/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetNeighborsSampleNodeCapsAtLimit(t *testing.T) {
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
	fn := newAggregateFilter(t, ctx, vid, hj)

	n := NewGetNeighborsSampleNode(fn, 2, 42)
	require.NoError(t, n.Execute(ctx, 1, vid))
	assert.Len(t, n.Rows(), 2)
	assert.Equal(t, 5, n.Seen())
}

func TestGetNeighborsSampleNodeZeroLimitKeepsEverything(t *testing.T) {
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
	fn := newAggregateFilter(t, ctx, vid, hj)

	n := NewGetNeighborsSampleNode(fn, 0, 42)
	require.NoError(t, n.Execute(ctx, 1, vid))
	assert.Len(t, n.Rows(), 2)
}
