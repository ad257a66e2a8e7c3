// Package admin implements the storage-service admin operations: per-space
// checkpoint create/drop, the blocking-sign protocol that quiesces writers
// ahead of a checkpoint or backup, clearing a space's data, and reporting
// leadership. These are thin orchestration over pkg/kvstore's Store
// contract; the replicated engine itself (multi-Raft log, snapshot
// machinery) is an external collaborator this package only calls into, per
// the purpose-and-scope boundary the rest of the query engine observes.
package admin

import (
	"context"

	"github.com/cuemby/graphcore/pkg/events"
	"github.com/cuemby/graphcore/pkg/kvstore"
	"github.com/cuemby/graphcore/pkg/log"
	"github.com/cuemby/graphcore/pkg/types"
	"github.com/rs/zerolog"
)

// Admin wraps the kvstore.Store handle every admin operation is issued
// against. One Admin serves every space the node hosts partitions for.
type Admin struct {
	store  kvstore.Store
	logger zerolog.Logger
	events *events.Broker
}

func New(store kvstore.Store) *Admin {
	return &Admin{store: store, logger: log.WithComponent("admin")}
}

// WithBroker attaches the event broker admin operations publish to;
// callers that don't need a feed can leave it unset.
func (a *Admin) WithBroker(b *events.Broker) *Admin {
	a.events = b
	return a
}

func (a *Admin) publish(typ events.EventType, msg string) {
	if a.events == nil {
		return
	}
	a.events.Publish(&events.Event{Type: typ, Message: msg})
}

// CreateCheckpoint snapshots the given name across every partition the
// store exposes. The KV store's checkpoint call takes only the name, so
// the snapshot covers the whole store rather than one space; space is
// only recorded in the log line. This gives the operation a logged,
// error-wrapped entry point and a name clients refer back to on
// DropCheckpoint.
func (a *Admin) CreateCheckpoint(space int32, name string) error {
	if err := a.store.CreateCheckpoint(name); err != nil {
		return types.NewError(types.CodeUnknown, "admin.CreateCheckpoint", err)
	}
	a.logger.Info().Int32("space", space).Str("name", name).Msg("checkpoint created")
	a.publish(events.EventCheckpointCreated, name)
	return nil
}

// DropCheckpoint removes a previously created snapshot.
func (a *Admin) DropCheckpoint(space int32, name string) error {
	if err := a.store.DropCheckpoint(name); err != nil {
		return types.NewError(types.CodeUnknown, "admin.DropCheckpoint", err)
	}
	a.logger.Info().Int32("space", space).Str("name", name).Msg("checkpoint dropped")
	a.publish(events.EventCheckpointDropped, name)
	return nil
}

// BlockingSign toggles write admission for every partition in parts,
// used to quiesce a space's writers while a checkpoint or cross-host
// migration settles. It is not atomic across partitions: a failure
// partway through leaves the already-toggled partitions in their new
// state, matching SetWriteBlocking's own per-partition contract.
func (a *Admin) BlockingSign(space int32, parts []types.PartitionID, blocked bool) error {
	for _, p := range parts {
		if err := a.store.SetWriteBlocking(p, blocked); err != nil {
			return types.NewError(types.CodeUnknown, "admin.BlockingSign", err)
		}
	}
	a.logger.Info().Int32("space", space).Bool("blocked", blocked).Int("parts", len(parts)).Msg("write blocking toggled")
	return nil
}

// ClearSpace removes every key belonging to a space's partitions:
// vertex-existence markers, tag rows, edge rows and lock records, index
// entries, and any pending index-rebuild operation-log entries. Each
// partition's ranges are issued as one OpRemoveRange-per-prefix batch so
// they go through the same replicated commit path as any other write;
// callers are expected to have already blocking-signed the space's
// writers.
func (a *Admin) ClearSpace(space int32, parts []types.PartitionID, prefixes map[types.PartitionID][][]byte) error {
	for _, p := range parts {
		prefixSet, ok := prefixes[p]
		if !ok {
			continue
		}
		ops := make([]kvstore.Op, 0, len(prefixSet))
		for _, prefix := range prefixSet {
			ops = append(ops, kvstore.Op{Kind: kvstore.OpRemoveRange, Key: prefix, EndKey: prefixUpperBound(prefix)})
		}
		batch := kvstore.Batch{Partition: p, Ops: ops}
		done := make(chan error, 1)
		a.store.AsyncAppendBatch(context.Background(), batch, func(e error) { done <- e })
		if err := <-done; err != nil {
			return types.NewError(types.CodeUnknown, "admin.ClearSpace", err)
		}
	}
	a.logger.Info().Int32("space", space).Int("parts", len(parts)).Msg("space cleared")
	a.publish(events.EventSpaceCleared, "")
	return nil
}

// GetLeader reports, for each requested partition, whether this node
// currently holds Raft leadership for it.
func (a *Admin) GetLeader(parts []types.PartitionID) map[types.PartitionID]bool {
	all := a.store.AllLeader()
	out := make(map[types.PartitionID]bool, len(parts))
	for _, p := range parts {
		out[p] = all[p]
	}
	return out
}

// prefixUpperBound returns the smallest byte string greater than every
// string beginning with prefix, matching the exclusive upper bound
// OpRemoveRange expects; an all-0xff prefix has no finite upper bound,
// in which case nil signals "to the end of the keyspace".
func prefixUpperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] != 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}
