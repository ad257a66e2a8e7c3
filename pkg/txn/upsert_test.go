package txn

import (
	"context"
	"sync"
	"testing"

	"github.com/cuemby/graphcore/pkg/kvstore"
	"github.com/cuemby/graphcore/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is a synchronous, single-partition kvstore.Store stand-in used
// to exercise Upserter without standing up a Raft cluster: AsyncAppendBatch
// applies its batch and invokes cb before returning.
type fakeStore struct {
	mu   sync.Mutex
	data map[string][]byte
	fail error
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string][]byte)}
}

func (s *fakeStore) Get(part types.PartitionID, key []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[string(key)]
	if !ok {
		return nil, types.ErrKeyNotFound
	}
	return v, nil
}

func (s *fakeStore) MultiGet(part types.PartitionID, keys [][]byte) ([][]byte, error) {
	out := make([][]byte, len(keys))
	for i, k := range keys {
		v, err := s.Get(part, k)
		if err != nil {
			continue
		}
		out[i] = v
	}
	return out, nil
}

func (s *fakeStore) Prefix(part types.PartitionID, prefix []byte) (kvstore.Iterator, error) {
	return nil, types.NewError(types.CodeUnknown, "fakeStore.Prefix", errFakeUnimplemented("not implemented"))
}

func (s *fakeStore) AsyncAppendBatch(ctx context.Context, b kvstore.Batch, cb func(error)) {
	if s.fail != nil {
		cb(s.fail)
		return
	}
	s.mu.Lock()
	for _, op := range b.Ops {
		switch op.Kind {
		case kvstore.OpPut:
			s.data[string(op.Key)] = op.Value
		case kvstore.OpRemove:
			delete(s.data, string(op.Key))
		}
	}
	s.mu.Unlock()
	cb(nil)
}

func (s *fakeStore) AsyncMultiPut(ctx context.Context, part types.PartitionID, kvs map[string][]byte, cb func(error)) {
	cb(nil)
}

func (s *fakeStore) AsyncMultiRemove(ctx context.Context, part types.PartitionID, keys [][]byte, cb func(error)) {
	cb(nil)
}

func (s *fakeStore) SetWriteBlocking(part types.PartitionID, blocking bool) error { return nil }
func (s *fakeStore) CreateCheckpoint(name string) error                          { return nil }
func (s *fakeStore) DropCheckpoint(name string) error                            { return nil }
func (s *fakeStore) AllLeader() map[types.PartitionID]bool                       { return nil }

type errFakeUnimplemented string

func (e errFakeUnimplemented) Error() string { return string(e) }

func TestUpsertCreatesRowWhenMissing(t *testing.T) {
	store := newFakeStore()
	u := NewUpserter(NewLockTable(), store)

	err := u.Upsert(context.Background(), 1, []byte("v1"), func(current []byte) ([]byte, error) {
		assert.Nil(t, current)
		return []byte("created"), nil
	})
	require.NoError(t, err)

	v, err := store.Get(1, []byte("v1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("created"), v)
}

func TestUpsertSeesPreviousValueOnUpdate(t *testing.T) {
	store := newFakeStore()
	store.data["v1"] = []byte("old")
	u := NewUpserter(NewLockTable(), store)

	err := u.Upsert(context.Background(), 1, []byte("v1"), func(current []byte) ([]byte, error) {
		assert.Equal(t, []byte("old"), current)
		return []byte("new"), nil
	})
	require.NoError(t, err)

	v, _ := store.Get(1, []byte("v1"))
	assert.Equal(t, []byte("new"), v)
}

func TestUpsertNilNextDeletesKey(t *testing.T) {
	store := newFakeStore()
	store.data["v1"] = []byte("old")
	u := NewUpserter(NewLockTable(), store)

	err := u.Upsert(context.Background(), 1, []byte("v1"), func(current []byte) ([]byte, error) {
		return nil, nil
	})
	require.NoError(t, err)

	_, err = store.Get(1, []byte("v1"))
	assert.ErrorIs(t, err, types.ErrKeyNotFound)
}

func TestUpsertMutatorErrorAbortsWithoutWriting(t *testing.T) {
	store := newFakeStore()
	u := NewUpserter(NewLockTable(), store)
	wantErr := types.NewError(types.CodeInvalidFieldValue, "test", nil)

	err := u.Upsert(context.Background(), 1, []byte("v1"), func(current []byte) ([]byte, error) {
		return nil, wantErr
	})
	assert.Equal(t, wantErr, err)

	_, getErr := store.Get(1, []byte("v1"))
	assert.ErrorIs(t, getErr, types.ErrKeyNotFound)
}

func TestUpsertReturnsConflictWhenKeyAlreadyLocked(t *testing.T) {
	store := newFakeStore()
	locks := NewLockTable()
	unlock, err := locks.TryLock([]byte("v1"))
	require.NoError(t, err)
	defer unlock()

	u := NewUpserter(locks, store)
	err = u.Upsert(context.Background(), 1, []byte("v1"), func(current []byte) ([]byte, error) {
		t.Fatal("mutate must not run while the key is held by another writer")
		return nil, nil
	})
	require.Error(t, err)
	assert.Equal(t, types.CodeDataConflict, types.CodeOf(err))
}

func TestUpsertPropagatesStoreFailure(t *testing.T) {
	store := newFakeStore()
	store.fail = types.NewError(types.CodeUnknown, "test", nil)
	u := NewUpserter(NewLockTable(), store)

	err := u.Upsert(context.Background(), 1, []byte("v1"), func(current []byte) ([]byte, error) {
		return []byte("x"), nil
	})
	assert.Equal(t, store.fail, err)
}
