package kvstore

import (
	"testing"

	"github.com/cuemby/graphcore/pkg/types"
	"github.com/hashicorp/raft"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFSM(t *testing.T) *FSM {
	t.Helper()
	b, err := NewBolt(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return NewFSM(b)
}

func TestFSMApplyReplaysBatch(t *testing.T) {
	fsm := newTestFSM(t)
	batch := Batch{Partition: 1, Ops: []Op{{Kind: OpPut, Key: []byte("k"), Value: []byte("v")}}}

	result := fsm.Apply(&raft.Log{Data: EncodeBatch(batch)})
	assert.Nil(t, result)

	v, err := fsm.Get(1, []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)
}

func TestFSMApplyReturnsDecodeError(t *testing.T) {
	fsm := newTestFSM(t)
	result := fsm.Apply(&raft.Log{Data: []byte{0x00}})
	err, ok := result.(error)
	require.True(t, ok)
	assert.Equal(t, types.CodeInvalidData, types.CodeOf(err))
}

func TestFSMPrefixAfterApply(t *testing.T) {
	fsm := newTestFSM(t)
	fsm.Apply(&raft.Log{Data: EncodeBatch(Batch{
		Partition: 1,
		Ops: []Op{
			{Kind: OpPut, Key: []byte("a"), Value: []byte("1")},
			{Kind: OpPut, Key: []byte("b"), Value: []byte("2")},
		},
	})})

	it, err := fsm.Prefix(1, nil)
	require.NoError(t, err)
	count := 0
	for it.Next() {
		count++
	}
	assert.Equal(t, 2, count)
}

func TestFSMLeadershipTracking(t *testing.T) {
	fsm := newTestFSM(t)
	assert.Empty(t, fsm.AllLeader())

	fsm.MarkLeader(1, true)
	fsm.MarkLeader(2, false)

	leaders := fsm.AllLeader()
	assert.True(t, leaders[1])
	assert.False(t, leaders[2])
}

func TestFSMSetWriteBlockingAndCheckpoint(t *testing.T) {
	fsm := newTestFSM(t)
	require.NoError(t, fsm.SetWriteBlocking(1, true))

	fsm.Apply(&raft.Log{Data: EncodeBatch(Batch{Partition: 1, Ops: []Op{{Kind: OpPut, Key: []byte("k"), Value: []byte("v")}}})})
	require.NoError(t, fsm.CreateCheckpoint("t1"))
	require.NoError(t, fsm.DropCheckpoint("t1"))
}

func TestFSMAsyncAppendBatchWithoutRaftFails(t *testing.T) {
	fsm := newTestFSM(t)
	done := make(chan error, 1)
	fsm.AsyncAppendBatch(nil, Batch{Partition: 1}, func(err error) { done <- err })
	err := <-done
	require.Error(t, err, "proposing a batch before SetRaft must report an error, not silently drop it")
}
