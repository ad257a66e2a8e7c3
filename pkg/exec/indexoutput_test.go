package exec

import (
	"testing"

	"github.com/cuemby/graphcore/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexOutputNodeBasicBranchProjectsIndexFieldsAndVid(t *testing.T) {
	ctx, store, idx := newIndexTestContext()
	putIndexEntry(ctx, store, 1, idx, "nyc", 30, types.IntValue(1))
	putIndexEntry(ctx, store, 1, idx, "nyc", 40, types.IntValue(2))

	scan := NewIndexScanNode(idx.ID, []types.ColumnHint{
		{Column: "city", Kind: types.HintEquals, Lo: types.StringValue("nyc")},
	})
	require.NoError(t, scan.Execute(ctx, 1, types.NullValue()))

	out := NewIndexOutputNode(scan, nil, nil, nil, []string{"_vid", "city", "age"})
	require.NoError(t, out.Execute(ctx, 1, types.NullValue()))

	var vids []int64
	for out.Next(ctx) {
		row := out.Value()
		require.Len(t, row.L, 3)
		vids = append(vids, row.L[0].I)
		assert.Equal(t, "nyc", row.L[1].S)
	}
	require.NoError(t, out.Err())
	assert.ElementsMatch(t, []int64{1, 2}, vids)
}

func TestIndexOutputNodeDataBranchFiltersOnBackingRow(t *testing.T) {
	ctx, store, idx := newIndexTestContext()
	schema := cityAgeSchema()
	putIndexEntry(ctx, store, 1, idx, "nyc", 30, types.IntValue(1))
	putIndexEntry(ctx, store, 1, idx, "nyc", 40, types.IntValue(2))
	putTagRow(t, ctx, store, 1, types.IntValue(1), 2, schema, map[string]types.Value{
		"city": types.StringValue("nyc"), "age": types.IntValue(30),
	})
	putTagRow(t, ctx, store, 1, types.IntValue(2), 2, schema, map[string]types.Value{
		"city": types.StringValue("nyc"), "age": types.IntValue(40),
	})

	scan := NewIndexScanNode(idx.ID, []types.ColumnHint{
		{Column: "city", Kind: types.HintEquals, Lo: types.StringValue("nyc")},
	})
	require.NoError(t, scan.Execute(ctx, 1, types.NullValue()))

	vertex := NewIndexVertexNode(2)
	filter := geExpr(tagPropExpr("person", "age"), litExpr(types.IntValue(35)))
	out := NewIndexOutputNode(scan, vertex, nil, filter, []string{"_vid", "age"})
	require.NoError(t, out.Execute(ctx, 1, types.NullValue()))

	var ages []int64
	for out.Next(ctx) {
		ages = append(ages, out.Value().L[1].I)
	}
	require.NoError(t, out.Err())
	assert.Equal(t, []int64{40}, ages)
}

func TestIndexOutputNodeDataBranchSkipsMissingBackingRow(t *testing.T) {
	ctx, store, idx := newIndexTestContext()
	putIndexEntry(ctx, store, 1, idx, "nyc", 30, types.IntValue(1))

	scan := NewIndexScanNode(idx.ID, []types.ColumnHint{
		{Column: "city", Kind: types.HintEquals, Lo: types.StringValue("nyc")},
	})
	require.NoError(t, scan.Execute(ctx, 1, types.NullValue()))

	vertex := NewIndexVertexNode(2)
	out := NewIndexOutputNode(scan, vertex, nil, nil, []string{"_vid"})
	require.NoError(t, out.Execute(ctx, 1, types.NullValue()))

	assert.False(t, out.Next(ctx))
	require.NoError(t, out.Err())
}
