package exec

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/cuemby/graphcore/pkg/kvstore"
	"github.com/cuemby/graphcore/pkg/types"
)

// fakeStore is a synchronous, single-process kvstore.Store backed by a
// sorted map, used so exec tests never need a real raft cluster. Prefix
// mirrors kvstore.Bolt.Prefix's contract: snapshot every key/value under
// the prefix, in ascending key order.
type fakeStore struct {
	mu   sync.Mutex
	data map[types.PartitionID]map[string][]byte
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[types.PartitionID]map[string][]byte)}
}

func (s *fakeStore) put(part types.PartitionID, key, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data[part] == nil {
		s.data[part] = make(map[string][]byte)
	}
	s.data[part][string(key)] = append([]byte(nil), value...)
}

func (s *fakeStore) Get(part types.PartitionID, key []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[part][string(key)]
	if !ok {
		return nil, types.ErrKeyNotFound
	}
	return v, nil
}

func (s *fakeStore) MultiGet(part types.PartitionID, keys [][]byte) ([][]byte, error) {
	out := make([][]byte, len(keys))
	for i, k := range keys {
		if v, err := s.Get(part, k); err == nil {
			out[i] = v
		}
	}
	return out, nil
}

func (s *fakeStore) Prefix(part types.PartitionID, prefix []byte) (kvstore.Iterator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for k := range s.data[part] {
		if bytes.HasPrefix([]byte(k), prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	it := &fakeIterator{}
	for _, k := range keys {
		it.keys = append(it.keys, []byte(k))
		it.values = append(it.values, s.data[part][k])
	}
	it.idx = -1
	return it, nil
}

func (s *fakeStore) AsyncAppendBatch(ctx context.Context, b kvstore.Batch, cb func(error)) {
	s.mu.Lock()
	if s.data[b.Partition] == nil {
		s.data[b.Partition] = make(map[string][]byte)
	}
	for _, op := range b.Ops {
		switch op.Kind {
		case kvstore.OpPut:
			s.data[b.Partition][string(op.Key)] = append([]byte(nil), op.Value...)
		case kvstore.OpRemove:
			delete(s.data[b.Partition], string(op.Key))
		}
	}
	s.mu.Unlock()
	cb(nil)
}
func (s *fakeStore) AsyncMultiPut(ctx context.Context, part types.PartitionID, kvs map[string][]byte, cb func(error)) {
	for k, v := range kvs {
		s.put(part, []byte(k), v)
	}
	cb(nil)
}
func (s *fakeStore) AsyncMultiRemove(ctx context.Context, part types.PartitionID, keys [][]byte, cb func(error)) {
	cb(nil)
}
func (s *fakeStore) SetWriteBlocking(part types.PartitionID, blocking bool) error { return nil }
func (s *fakeStore) CreateCheckpoint(name string) error                          { return nil }
func (s *fakeStore) DropCheckpoint(name string) error                            { return nil }
func (s *fakeStore) AllLeader() map[types.PartitionID]bool                       { return nil }

type fakeIterator struct {
	keys, values [][]byte
	idx          int
}

func (it *fakeIterator) Next() bool {
	it.idx++
	return it.idx < len(it.keys)
}
func (it *fakeIterator) Key() []byte   { return it.keys[it.idx] }
func (it *fakeIterator) Value() []byte { return it.values[it.idx] }
func (it *fakeIterator) Close() error  { return nil }
func (it *fakeIterator) Err() error    { return nil }
