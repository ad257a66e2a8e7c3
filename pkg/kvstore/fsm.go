package kvstore

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/cuemby/graphcore/pkg/types"
	"github.com/hashicorp/raft"
)

// FSM is the Raft state machine that replicates Batch writes across a
// partition's replica set and applies them to a local Engine once
// committed. It also implements Store, so callers never see Raft or the
// Engine directly.
type FSM struct {
	mu     sync.RWMutex
	engine Engine
	raft   *raft.Raft

	leaderMu sync.RWMutex
	isLeader map[types.PartitionID]bool
}

// NewFSM wraps engine; SetRaft must be called once the Raft instance
// bootstrapped against this FSM is available, since raft.NewRaft needs
// the FSM to already exist.
func NewFSM(engine Engine) *FSM {
	return &FSM{engine: engine, isLeader: make(map[types.PartitionID]bool)}
}

// SetRaft attaches the Raft handle this FSM proposes batches through.
func (f *FSM) SetRaft(r *raft.Raft) { f.raft = r }

// MarkLeader records whether this node currently leads part, so
// AllLeader can answer without a Raft round-trip.
func (f *FSM) MarkLeader(part types.PartitionID, leader bool) {
	f.leaderMu.Lock()
	defer f.leaderMu.Unlock()
	f.isLeader[part] = leader
}

func (f *FSM) AllLeader() map[types.PartitionID]bool {
	f.leaderMu.RLock()
	defer f.leaderMu.RUnlock()
	out := make(map[types.PartitionID]bool, len(f.isLeader))
	for k, v := range f.isLeader {
		out[k] = v
	}
	return out
}

// Apply is invoked by Raft once a log entry commits; it decodes the
// embedded Batch and replays it against the local engine.
func (f *FSM) Apply(log *raft.Log) interface{} {
	batch, err := DecodeBatch(log.Data)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.engine.ApplyBatch(batch)
}

// Snapshot captures every partition bucket the engine currently holds.
// Bolt does not expose a bucket listing through the Engine interface, so
// snapshotting is delegated to the engine's own checkpoint file, copied
// whole rather than walked bucket by bucket.
func (f *FSM) Snapshot() (raft.FSMSnapshot, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	bolt, ok := f.engine.(*Bolt)
	if !ok {
		return nil, fmt.Errorf("kvstore: snapshot requires a *Bolt engine")
	}
	if err := bolt.CreateCheckpoint("raft-snapshot"); err != nil {
		return nil, fmt.Errorf("kvstore: snapshot checkpoint: %w", err)
	}
	return &fsmSnapshot{dataDir: bolt.dataDir}, nil
}

// Restore replaces the local engine's database file with the one
// encoded in the snapshot stream.
func (f *FSM) Restore(rc io.ReadCloser) error {
	defer rc.Close()
	var manifest snapshotManifest
	if err := json.NewDecoder(rc).Decode(&manifest); err != nil {
		return fmt.Errorf("kvstore: decode snapshot manifest: %w", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	bolt, ok := f.engine.(*Bolt)
	if !ok {
		return fmt.Errorf("kvstore: restore requires a *Bolt engine")
	}
	return bolt.restoreFromCheckpoint(manifest.CheckpointName)
}

type snapshotManifest struct {
	CheckpointName string `json:"checkpointName"`
}

type fsmSnapshot struct {
	dataDir string
}

func (s *fsmSnapshot) Persist(sink raft.SnapshotSink) error {
	err := func() error {
		return json.NewEncoder(sink).Encode(snapshotManifest{CheckpointName: "raft-snapshot"})
	}()
	if err != nil {
		sink.Cancel()
		return err
	}
	return sink.Close()
}

func (s *fsmSnapshot) Release() {}

// Store contract, proxied through Raft for mutating calls.

func (f *FSM) Get(part types.PartitionID, key []byte) ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.engine.Get(part, key)
}

func (f *FSM) MultiGet(part types.PartitionID, keys [][]byte) ([][]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.engine.MultiGet(part, keys)
}

func (f *FSM) Prefix(part types.PartitionID, prefix []byte) (Iterator, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.engine.Prefix(part, prefix)
}
