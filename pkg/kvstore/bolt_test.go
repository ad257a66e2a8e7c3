package kvstore

import (
	"testing"

	"github.com/cuemby/graphcore/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBolt(t *testing.T) *Bolt {
	t.Helper()
	b, err := NewBolt(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestBoltGetMissingKeyReturnsSentinel(t *testing.T) {
	b := newTestBolt(t)
	_, err := b.Get(1, []byte("missing"))
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrKeyNotFound)
}

func TestBoltApplyBatchPutAndGet(t *testing.T) {
	b := newTestBolt(t)
	err := b.ApplyBatch(Batch{
		Partition: 1,
		Ops: []Op{
			{Kind: OpPut, Key: []byte("a"), Value: []byte("1")},
			{Kind: OpPut, Key: []byte("b"), Value: []byte("2")},
		},
	})
	require.NoError(t, err)

	v, err := b.Get(1, []byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)

	vs, err := b.MultiGet(1, [][]byte{[]byte("a"), []byte("b"), []byte("missing")})
	require.NoError(t, err)
	require.Len(t, vs, 3)
	assert.Equal(t, []byte("1"), vs[0])
	assert.Equal(t, []byte("2"), vs[1])
	assert.Nil(t, vs[2])
}

func TestBoltApplyBatchRemove(t *testing.T) {
	b := newTestBolt(t)
	require.NoError(t, b.ApplyBatch(Batch{Partition: 1, Ops: []Op{{Kind: OpPut, Key: []byte("a"), Value: []byte("1")}}}))
	require.NoError(t, b.ApplyBatch(Batch{Partition: 1, Ops: []Op{{Kind: OpRemove, Key: []byte("a")}}}))

	_, err := b.Get(1, []byte("a"))
	assert.ErrorIs(t, err, types.ErrKeyNotFound)
}

func TestBoltApplyBatchRemoveRange(t *testing.T) {
	b := newTestBolt(t)
	require.NoError(t, b.ApplyBatch(Batch{
		Partition: 1,
		Ops: []Op{
			{Kind: OpPut, Key: []byte("a"), Value: []byte("1")},
			{Kind: OpPut, Key: []byte("b"), Value: []byte("2")},
			{Kind: OpPut, Key: []byte("c"), Value: []byte("3")},
		},
	}))
	require.NoError(t, b.ApplyBatch(Batch{
		Partition: 1,
		Ops:       []Op{{Kind: OpRemoveRange, Key: []byte("a"), EndKey: []byte("c")}},
	}))

	_, err := b.Get(1, []byte("a"))
	assert.ErrorIs(t, err, types.ErrKeyNotFound)
	_, err = b.Get(1, []byte("b"))
	assert.ErrorIs(t, err, types.ErrKeyNotFound)
	v, err := b.Get(1, []byte("c"))
	require.NoError(t, err)
	assert.Equal(t, []byte("3"), v)
}

func TestBoltPrefixScanOrdersAscending(t *testing.T) {
	b := newTestBolt(t)
	require.NoError(t, b.ApplyBatch(Batch{
		Partition: 1,
		Ops: []Op{
			{Kind: OpPut, Key: []byte("row/2"), Value: []byte("2")},
			{Kind: OpPut, Key: []byte("row/1"), Value: []byte("1")},
			{Kind: OpPut, Key: []byte("row/3"), Value: []byte("3")},
			{Kind: OpPut, Key: []byte("other/1"), Value: []byte("x")},
		},
	}))

	it, err := b.Prefix(1, []byte("row/"))
	require.NoError(t, err)
	var got []string
	for it.Next() {
		got = append(got, string(it.Value()))
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []string{"1", "2", "3"}, got)
}

func TestBoltPartitionsAreIsolated(t *testing.T) {
	b := newTestBolt(t)
	require.NoError(t, b.ApplyBatch(Batch{Partition: 1, Ops: []Op{{Kind: OpPut, Key: []byte("k"), Value: []byte("p1")}}}))
	require.NoError(t, b.ApplyBatch(Batch{Partition: 2, Ops: []Op{{Kind: OpPut, Key: []byte("k"), Value: []byte("p2")}}}))

	v1, err := b.Get(1, []byte("k"))
	require.NoError(t, err)
	v2, err := b.Get(2, []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("p1"), v1)
	assert.Equal(t, []byte("p2"), v2)
}

func TestBoltWriteBlocking(t *testing.T) {
	b := newTestBolt(t)
	assert.False(t, b.IsWriteBlocking(1))
	require.NoError(t, b.SetWriteBlocking(1, true))
	assert.True(t, b.IsWriteBlocking(1))
	assert.False(t, b.IsWriteBlocking(2), "write-blocking is per partition")
}

func TestBoltCheckpointCreateAndRestore(t *testing.T) {
	b := newTestBolt(t)
	require.NoError(t, b.ApplyBatch(Batch{Partition: 1, Ops: []Op{{Kind: OpPut, Key: []byte("k"), Value: []byte("before")}}}))
	require.NoError(t, b.CreateCheckpoint("snap1"))

	require.NoError(t, b.ApplyBatch(Batch{Partition: 1, Ops: []Op{{Kind: OpPut, Key: []byte("k"), Value: []byte("after")}}}))
	v, err := b.Get(1, []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("after"), v)

	require.NoError(t, b.restoreFromCheckpoint("snap1"))
	v, err = b.Get(1, []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("before"), v, "restore should roll the database back to the checkpoint's contents")

	require.NoError(t, b.DropCheckpoint("snap1"))
}
