package txn

import (
	"hash/fnv"
	"sync"

	"github.com/cuemby/graphcore/pkg/types"
)

const stripeCount = 256

// LockTable grants exclusive, non-blocking ownership of a single key to
// one in-flight operation at a time. It never makes a caller wait: a key
// already held returns CodeDataConflict immediately, the same error an
// upsert surfaces to its caller when another writer is mid-transaction
// on the same vertex or edge.
type LockTable struct {
	stripes [stripeCount]stripe
}

type stripe struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLockTable returns an empty table.
func NewLockTable() *LockTable {
	lt := &LockTable{}
	for i := range lt.stripes {
		lt.stripes[i].held = make(map[string]struct{})
	}
	return lt
}

func (lt *LockTable) stripeFor(key []byte) *stripe {
	h := fnv.New32a()
	h.Write(key)
	return &lt.stripes[h.Sum32()%stripeCount]
}

// TryLock attempts to acquire key. On success it returns an unlock
// function the caller must invoke exactly once, win or lose, to release
// the key. On failure it returns CodeDataConflict and a nil unlock func.
func (lt *LockTable) TryLock(key []byte) (unlock func(), err error) {
	s := lt.stripeFor(key)
	k := string(key)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.held[k]; busy {
		return nil, types.NewError(types.CodeDataConflict, "txn.TryLock", errConflict("key is locked by another writer"))
	}
	s.held[k] = struct{}{}
	return func() {
		s.mu.Lock()
		delete(s.held, k)
		s.mu.Unlock()
	}, nil
}

type errConflict string

func (e errConflict) Error() string { return string(e) }
