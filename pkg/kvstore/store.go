// Package kvstore implements the replicated key-value contract the query
// engine is built against: point/prefix/multi-get reads, async batched
// writes, a write-blocking switch used by the soft-lock and checkpoint
// protocols, and checkpoint creation/drop for backup.
//
// Store is satisfied by FSM, which wraps Bolt, a single-node bbolt-backed
// engine, so that every batch commits through Raft before it is visible
// to readers.
package kvstore

import (
	"context"
	"encoding/binary"

	"github.com/cuemby/graphcore/pkg/types"
)

// OpKind distinguishes the three mutations a Batch may contain.
type OpKind uint8

const (
	OpPut OpKind = iota
	OpRemove
	OpRemoveRange
)

// Op is one mutation within a Batch. Key is the point key for Put/Remove;
// for RemoveRange, Key is the inclusive lower bound and EndKey the
// exclusive upper bound.
type Op struct {
	Kind   OpKind
	Key    []byte
	Value  []byte // only meaningful for OpPut
	EndKey []byte // only meaningful for OpRemoveRange
}

// Batch is an ordered list of mutations applied atomically to one
// partition.
type Batch struct {
	Partition types.PartitionID
	Ops       []Op
}

// EncodeBatch serializes b into a byte-exact, round-trippable wire form:
// [4-byte partition][4-byte op count]{[1-byte kind][4-byte keylen][key]
// [4-byte vlen][value or endkey]}*. Put encodes Value in the trailing
// slot, RemoveRange encodes EndKey there, Remove encodes nothing.
func EncodeBatch(b Batch) []byte {
	size := 8
	for _, op := range b.Ops {
		size += 1 + 4 + len(op.Key) + 4
		switch op.Kind {
		case OpPut:
			size += len(op.Value)
		case OpRemoveRange:
			size += len(op.EndKey)
		}
	}
	buf := make([]byte, 0, size)
	var hdr [8]byte
	binary.BigEndian.PutUint32(hdr[0:4], uint32(b.Partition))
	binary.BigEndian.PutUint32(hdr[4:8], uint32(len(b.Ops)))
	buf = append(buf, hdr[:]...)
	for _, op := range b.Ops {
		buf = append(buf, byte(op.Kind))
		buf = appendLenPrefixed(buf, op.Key)
		switch op.Kind {
		case OpPut:
			buf = appendLenPrefixed(buf, op.Value)
		case OpRemoveRange:
			buf = appendLenPrefixed(buf, op.EndKey)
		default:
			buf = appendLenPrefixed(buf, nil)
		}
	}
	return buf
}

func appendLenPrefixed(buf, data []byte) []byte {
	var lb [4]byte
	binary.BigEndian.PutUint32(lb[:], uint32(len(data)))
	buf = append(buf, lb[:]...)
	return append(buf, data...)
}

// DecodeBatch reverses EncodeBatch.
func DecodeBatch(raw []byte) (Batch, error) {
	if len(raw) < 8 {
		return Batch{}, types.NewError(types.CodeInvalidData, "kvstore.DecodeBatch", errShort("batch too short"))
	}
	part := types.PartitionID(binary.BigEndian.Uint32(raw[0:4]))
	n := binary.BigEndian.Uint32(raw[4:8])
	off := 8
	ops := make([]Op, 0, n)
	for i := uint32(0); i < n; i++ {
		if off+1+4 > len(raw) {
			return Batch{}, types.NewError(types.CodeInvalidData, "kvstore.DecodeBatch", errShort("truncated op header"))
		}
		kind := OpKind(raw[off])
		off++
		key, next, err := readLenPrefixed(raw, off)
		if err != nil {
			return Batch{}, err
		}
		off = next
		trailing, next, err := readLenPrefixed(raw, off)
		if err != nil {
			return Batch{}, err
		}
		off = next
		op := Op{Kind: kind, Key: key}
		switch kind {
		case OpPut:
			op.Value = trailing
		case OpRemoveRange:
			op.EndKey = trailing
		}
		ops = append(ops, op)
	}
	return Batch{Partition: part, Ops: ops}, nil
}

func readLenPrefixed(raw []byte, off int) ([]byte, int, error) {
	if off+4 > len(raw) {
		return nil, 0, types.NewError(types.CodeInvalidData, "kvstore.DecodeBatch", errShort("truncated length"))
	}
	n := int(binary.BigEndian.Uint32(raw[off : off+4]))
	off += 4
	if off+n > len(raw) {
		return nil, 0, types.NewError(types.CodeInvalidData, "kvstore.DecodeBatch", errShort("truncated value"))
	}
	return raw[off : off+n], off + n, nil
}

type errShort string

func (e errShort) Error() string { return string(e) }

// Iterator walks a prefix scan in ascending key order.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Close() error
	Err() error
}

// Store is the replicated key-value contract the query engine runs
// against. Every mutating call is asynchronous: it returns without
// waiting for the batch to be proposed, and invokes cb when it has
// committed (or failed to).
type Store interface {
	Get(part types.PartitionID, key []byte) ([]byte, error)
	MultiGet(part types.PartitionID, keys [][]byte) ([][]byte, error)
	Prefix(part types.PartitionID, prefix []byte) (Iterator, error)

	AsyncAppendBatch(ctx context.Context, b Batch, cb func(error))
	AsyncMultiPut(ctx context.Context, part types.PartitionID, kvs map[string][]byte, cb func(error))
	AsyncMultiRemove(ctx context.Context, part types.PartitionID, keys [][]byte, cb func(error))

	// SetWriteBlocking enables or disables write admission for a
	// partition, used by the checkpoint and soft-lock protocols to
	// pause writers while a snapshot or cross-partition commit settles.
	SetWriteBlocking(part types.PartitionID, blocking bool) error

	CreateCheckpoint(name string) error
	DropCheckpoint(name string) error

	// AllLeader reports, per partition, whether this node currently
	// holds Raft leadership for it.
	AllLeader() map[types.PartitionID]bool
}
