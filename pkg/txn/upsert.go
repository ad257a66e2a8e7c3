package txn

import (
	"context"
	"errors"

	"github.com/cuemby/graphcore/pkg/kvstore"
	"github.com/cuemby/graphcore/pkg/types"
)

// Mutator reads the current row bytes at key (nil if absent) and returns
// the new row bytes to write, or an error that aborts the whole upsert
// (e.g. CodeFilterOut, CodeInvalidUpdater). It runs with key's lock held,
// so it must not itself touch kvstore for key.
type Mutator func(current []byte) (next []byte, err error)

// Upserter serializes read-modify-write cycles through a LockTable
// before committing the result through a kvstore.Store, giving callers
// the "exactly one in-flight writer per key" guarantee the update
// operators need without holding a kvstore-level transaction open across
// the whole evaluate-then-write cycle.
type Upserter struct {
	locks *LockTable
	store kvstore.Store
}

// NewUpserter ties a lock table to the store its writes commit through.
func NewUpserter(locks *LockTable, store kvstore.Store) *Upserter {
	return &Upserter{locks: locks, store: store}
}

// Upsert acquires key's lock, reads its current value, runs mutate, and
// commits the result (or the key's removal, if mutate returns a nil
// next with a nil error) as a single-op batch. It returns
// CodeDataConflict immediately if another writer already holds key.
func (u *Upserter) Upsert(ctx context.Context, part types.PartitionID, key []byte, mutate Mutator) error {
	unlock, err := u.locks.TryLock(key)
	if err != nil {
		return err
	}
	defer unlock()

	current, err := u.store.Get(part, key)
	if err != nil {
		if !errors.Is(err, types.ErrKeyNotFound) {
			return err
		}
		current = nil
	}

	next, err := mutate(current)
	if err != nil {
		return err
	}

	var op kvstore.Op
	if next == nil {
		op = kvstore.Op{Kind: kvstore.OpRemove, Key: key}
	} else {
		op = kvstore.Op{Kind: kvstore.OpPut, Key: key, Value: next}
	}

	done := make(chan error, 1)
	u.store.AsyncAppendBatch(ctx, kvstore.Batch{Partition: part, Ops: []kvstore.Op{op}}, func(e error) { done <- e })
	select {
	case e := <-done:
		return e
	case <-ctx.Done():
		return types.NewError(types.CodeRPCExceedDeadline, "txn.Upsert", ctx.Err())
	}
}

// BatchMutator is Mutator's richer sibling: it reads key's current row
// bytes (nil if absent) and returns the full set of ops the update should
// commit (the row put plus index maintenance and operation-log entries),
// along with whether the row was freshly inserted. It runs with key's
// lock held.
type BatchMutator func(current []byte) (ops []kvstore.Op, inserted bool, err error)

// UpsertBatch is Upsert's multi-op variant, used by tag/edge update
// operators that must stage index maintenance alongside the row write as
// one atomic append. Locking and error semantics match Upsert; a mutate
// returning no ops commits nothing and still reports inserted.
func (u *Upserter) UpsertBatch(ctx context.Context, part types.PartitionID, key []byte, mutate BatchMutator) (bool, error) {
	unlock, err := u.locks.TryLock(key)
	if err != nil {
		return false, err
	}
	defer unlock()

	current, err := u.store.Get(part, key)
	if err != nil {
		if !errors.Is(err, types.ErrKeyNotFound) {
			return false, err
		}
		current = nil
	}

	ops, inserted, err := mutate(current)
	if err != nil {
		return false, err
	}
	if len(ops) == 0 {
		return inserted, nil
	}

	done := make(chan error, 1)
	u.store.AsyncAppendBatch(ctx, kvstore.Batch{Partition: part, Ops: ops}, func(e error) { done <- e })
	select {
	case e := <-done:
		return inserted, e
	case <-ctx.Done():
		return inserted, types.NewError(types.CodeRPCExceedDeadline, "txn.UpsertBatch", ctx.Err())
	}
}
