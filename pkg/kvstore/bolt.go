package kvstore

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cuemby/graphcore/pkg/types"
	bolt "go.etcd.io/bbolt"
)

// Engine is the local, non-replicated storage primitive FSM applies
// committed batches to. Bolt is the only implementation.
type Engine interface {
	Get(part types.PartitionID, key []byte) ([]byte, error)
	MultiGet(part types.PartitionID, keys [][]byte) ([][]byte, error)
	Prefix(part types.PartitionID, prefix []byte) (Iterator, error)
	ApplyBatch(b Batch) error
	SetWriteBlocking(part types.PartitionID, blocking bool) error
	IsWriteBlocking(part types.PartitionID) bool
	CreateCheckpoint(name string) error
	DropCheckpoint(name string) error
	Close() error
}

// Bolt is a bbolt-backed Engine: every partition gets its own top-level
// bucket within a single database file, so a prefix scan within a
// partition never crosses another partition's keys.
type Bolt struct {
	db      *bolt.DB
	dataDir string

	mu      sync.RWMutex
	blocked map[types.PartitionID]bool
}

// NewBolt opens (creating if absent) the partition database under dataDir.
func NewBolt(dataDir string) (*Bolt, error) {
	dbPath := filepath.Join(dataDir, "storage.db")
	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("kvstore: open database: %w", err)
	}
	return &Bolt{db: db, dataDir: dataDir, blocked: make(map[types.PartitionID]bool)}, nil
}

func (b *Bolt) Close() error { return b.db.Close() }

func partitionBucket(part types.PartitionID) []byte {
	return []byte(fmt.Sprintf("part-%d", int32(part)))
}

func (b *Bolt) Get(part types.PartitionID, key []byte) ([]byte, error) {
	var out []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(partitionBucket(part))
		if bucket == nil {
			return nil
		}
		if v := bucket.Get(key); v != nil {
			out = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("kvstore: get: %w", err)
	}
	if out == nil {
		return nil, types.ErrKeyNotFound
	}
	return out, nil
}

func (b *Bolt) MultiGet(part types.PartitionID, keys [][]byte) ([][]byte, error) {
	out := make([][]byte, len(keys))
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(partitionBucket(part))
		if bucket == nil {
			return nil
		}
		for i, k := range keys {
			if v := bucket.Get(k); v != nil {
				out[i] = append([]byte(nil), v...)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("kvstore: multiget: %w", err)
	}
	return out, nil
}

// Prefix snapshots every key/value under prefix into an in-memory
// iterator; bbolt cursors cannot outlive the transaction that created
// them, so this trades memory for a simple Iterator contract.
func (b *Bolt) Prefix(part types.PartitionID, prefix []byte) (Iterator, error) {
	var keys, values [][]byte
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(partitionBucket(part))
		if bucket == nil {
			return nil
		}
		c := bucket.Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			keys = append(keys, append([]byte(nil), k...))
			values = append(values, append([]byte(nil), v...))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("kvstore: prefix scan: %w", err)
	}
	return &sliceIterator{keys: keys, values: values, idx: -1}, nil
}

type sliceIterator struct {
	keys, values [][]byte
	idx          int
}

func (it *sliceIterator) Next() bool {
	it.idx++
	return it.idx < len(it.keys)
}
func (it *sliceIterator) Key() []byte   { return it.keys[it.idx] }
func (it *sliceIterator) Value() []byte { return it.values[it.idx] }
func (it *sliceIterator) Close() error  { return nil }
func (it *sliceIterator) Err() error    { return nil }

// ApplyBatch applies every op in b within a single bbolt transaction.
func (b *Bolt) ApplyBatch(batch Batch) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(partitionBucket(batch.Partition))
		if err != nil {
			return err
		}
		for _, op := range batch.Ops {
			switch op.Kind {
			case OpPut:
				if err := bucket.Put(op.Key, op.Value); err != nil {
					return err
				}
			case OpRemove:
				if err := bucket.Delete(op.Key); err != nil {
					return err
				}
			case OpRemoveRange:
				c := bucket.Cursor()
				var toDelete [][]byte
				for k, _ := c.Seek(op.Key); k != nil && bytes.Compare(k, op.EndKey) < 0; k, _ = c.Next() {
					toDelete = append(toDelete, append([]byte(nil), k...))
				}
				for _, k := range toDelete {
					if err := bucket.Delete(k); err != nil {
						return err
					}
				}
			}
		}
		return nil
	})
}

func (b *Bolt) SetWriteBlocking(part types.PartitionID, blocking bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blocked[part] = blocking
	return nil
}

func (b *Bolt) IsWriteBlocking(part types.PartitionID) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.blocked[part]
}

// CreateCheckpoint copies the current database file into
// dataDir/checkpoints/name, matching the torua/bbolt convention of a
// whole-file backup taken inside a read transaction.
func (b *Bolt) CreateCheckpoint(name string) error {
	dir := filepath.Join(b.dataDir, "checkpoints", name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("kvstore: create checkpoint dir: %w", err)
	}
	return b.db.View(func(tx *bolt.Tx) error {
		return tx.CopyFile(filepath.Join(dir, "storage.db"), 0600)
	})
}

func (b *Bolt) DropCheckpoint(name string) error {
	return os.RemoveAll(filepath.Join(b.dataDir, "checkpoints", name))
}

// restoreFromCheckpoint replaces the live database file with a
// previously created checkpoint's copy, reopening the handle afterward.
func (b *Bolt) restoreFromCheckpoint(name string) error {
	src := filepath.Join(b.dataDir, "checkpoints", name, "storage.db")
	dst := filepath.Join(b.dataDir, "storage.db")

	if err := b.db.Close(); err != nil {
		return fmt.Errorf("kvstore: close before restore: %w", err)
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("kvstore: read checkpoint: %w", err)
	}
	if err := os.WriteFile(dst, data, 0600); err != nil {
		return fmt.Errorf("kvstore: write restored database: %w", err)
	}
	db, err := bolt.Open(dst, 0600, nil)
	if err != nil {
		return fmt.Errorf("kvstore: reopen after restore: %w", err)
	}
	b.db = db
	return nil
}
