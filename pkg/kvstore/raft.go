package kvstore

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/cuemby/graphcore/pkg/types"
	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb"
)

// ClusterConfig configures a single replica's Raft participation.
type ClusterConfig struct {
	NodeID   string
	BindAddr string
	DataDir  string
}

// Bootstrap opens the local engine, wraps it in an FSM and stands up a
// single-node Raft cluster rooted at it. Additional replicas attach with
// Join. Timeouts are tuned the same way the underlying Raft library's
// caller tunes them for LAN-latency failover rather than its
// WAN-oriented defaults.
func Bootstrap(cfg ClusterConfig) (*FSM, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("kvstore: create data dir: %w", err)
	}
	engine, err := NewBolt(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	fsm := NewFSM(engine)

	r, transport, err := newRaft(cfg, fsm)
	if err != nil {
		return nil, err
	}
	fsm.SetRaft(r)

	configuration := raft.Configuration{
		Servers: []raft.Server{
			{ID: raft.ServerID(cfg.NodeID), Address: transport.LocalAddr()},
		},
	}
	if err := r.BootstrapCluster(configuration).Error(); err != nil {
		return nil, fmt.Errorf("kvstore: bootstrap raft cluster: %w", err)
	}
	return fsm, nil
}

// Join opens the local engine and Raft instance for a replica that will
// be added to an existing cluster by its leader (via AddVoter), rather
// than bootstrapping its own single-member configuration.
func Join(cfg ClusterConfig) (*FSM, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("kvstore: create data dir: %w", err)
	}
	engine, err := NewBolt(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	fsm := NewFSM(engine)

	r, _, err := newRaft(cfg, fsm)
	if err != nil {
		return nil, err
	}
	fsm.SetRaft(r)
	return fsm, nil
}

func newRaft(cfg ClusterConfig, fsm *FSM) (*raft.Raft, *raft.NetworkTransport, error) {
	raftCfg := raft.DefaultConfig()
	raftCfg.LocalID = raft.ServerID(cfg.NodeID)
	raftCfg.HeartbeatTimeout = 500 * time.Millisecond
	raftCfg.ElectionTimeout = 500 * time.Millisecond
	raftCfg.CommitTimeout = 50 * time.Millisecond
	raftCfg.LeaderLeaseTimeout = 250 * time.Millisecond

	addr, err := net.ResolveTCPAddr("tcp", cfg.BindAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("kvstore: resolve bind address: %w", err)
	}
	transport, err := raft.NewTCPTransport(cfg.BindAddr, addr, 3, 10*time.Second, os.Stderr)
	if err != nil {
		return nil, nil, fmt.Errorf("kvstore: create transport: %w", err)
	}
	snapshotStore, err := raft.NewFileSnapshotStore(cfg.DataDir, 2, os.Stderr)
	if err != nil {
		return nil, nil, fmt.Errorf("kvstore: create snapshot store: %w", err)
	}
	logStore, err := raftboltdb.NewBoltStore(filepath.Join(cfg.DataDir, "raft-log.db"))
	if err != nil {
		return nil, nil, fmt.Errorf("kvstore: create log store: %w", err)
	}
	stableStore, err := raftboltdb.NewBoltStore(filepath.Join(cfg.DataDir, "raft-stable.db"))
	if err != nil {
		return nil, nil, fmt.Errorf("kvstore: create stable store: %w", err)
	}
	r, err := raft.NewRaft(raftCfg, fsm, logStore, stableStore, snapshotStore, transport)
	if err != nil {
		return nil, nil, fmt.Errorf("kvstore: create raft: %w", err)
	}
	return r, transport, nil
}

// AddVoter is called on the current leader to admit a replica that ran
// Join on its own node.
func (f *FSM) AddVoter(nodeID, addr string) error {
	if f.raft == nil {
		return fmt.Errorf("kvstore: raft not initialized")
	}
	return f.raft.AddVoter(raft.ServerID(nodeID), raft.ServerAddress(addr), 0, 10*time.Second).Error()
}

func (f *FSM) propose(ctx context.Context, b Batch, cb func(error)) {
	if f.raft == nil {
		cb(fmt.Errorf("kvstore: raft not initialized"))
		return
	}
	if f.engineBlocking(b.Partition) {
		cb(types.NewError(types.CodeIndexLocked, "kvstore.propose", errShort("partition is write-blocked")))
		return
	}
	future := f.raft.Apply(EncodeBatch(b), 10*time.Second)
	if err := future.Error(); err != nil {
		cb(fmt.Errorf("kvstore: raft apply: %w", err))
		return
	}
	if res := future.Response(); res != nil {
		if err, ok := res.(error); ok && err != nil {
			cb(err)
			return
		}
	}
	cb(nil)
}

func (f *FSM) engineBlocking(part types.PartitionID) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.engine.IsWriteBlocking(part)
}

func (f *FSM) AsyncAppendBatch(ctx context.Context, b Batch, cb func(error)) {
	go f.propose(ctx, b, cb)
}

func (f *FSM) AsyncMultiPut(ctx context.Context, part types.PartitionID, kvs map[string][]byte, cb func(error)) {
	ops := make([]Op, 0, len(kvs))
	for k, v := range kvs {
		ops = append(ops, Op{Kind: OpPut, Key: []byte(k), Value: v})
	}
	f.AsyncAppendBatch(ctx, Batch{Partition: part, Ops: ops}, cb)
}

func (f *FSM) AsyncMultiRemove(ctx context.Context, part types.PartitionID, keys [][]byte, cb func(error)) {
	ops := make([]Op, 0, len(keys))
	for _, k := range keys {
		ops = append(ops, Op{Kind: OpRemove, Key: k})
	}
	f.AsyncAppendBatch(ctx, Batch{Partition: part, Ops: ops}, cb)
}

func (f *FSM) SetWriteBlocking(part types.PartitionID, blocking bool) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.engine.SetWriteBlocking(part, blocking)
}

func (f *FSM) CreateCheckpoint(name string) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.engine.CreateCheckpoint(name)
}

func (f *FSM) DropCheckpoint(name string) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.engine.DropCheckpoint(name)
}
