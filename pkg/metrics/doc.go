/*
Package metrics exposes the storage node's Prometheus metrics: request
throughput and latency by operation, partition leadership, memory/deadline
exceedances, Raft apply latency, index rebuild progress and checkpoint
activity.

# Core Components

Request Metrics:
  - RequestsTotal: counter by op/code, every GetNeighbors/GetProp/Update/LookupIndex call
  - RequestDuration: histogram by op
  - IllegalDataTotal: rows skipped for decode or validation failure
  - MemoryExceededTotal / DeadlineExceededTotal: requests that tripped a guard

Raft Metrics:
  - RaftLeader: whether this node holds leadership for at least one partition
  - RaftApplyDuration: time to apply one committed log entry

Index Rebuild Metrics:
  - IndexRebuildDuration / IndexRebuildsTotal
  - IndexesByState: gauge vec by Active/Rebuilding/Locked

Checkpoint Metrics:
  - CheckpointsTotal: counter by kind (create/drop) and result

Collector:
  - NewCollector polls the catalog and kvstore.Store on an interval and
    sets PartitionsServed, RaftLeader and IndexesByState — the only three
    gauges that reflect current state rather than being updated inline by
    the operation that changed them.

# Usage

	import "github.com/cuemby/graphcore/pkg/metrics"

	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.RequestDuration, "get_neighbors")

	mux.Handle("/metrics", metrics.Handler())

# Integration Points

  - pkg/indexrebuild: times each rebuild, increments IndexRebuildsTotal
  - cmd/storaged: serves /metrics and starts the Collector

RequestsTotal, RequestDuration, IllegalDataTotal, MemoryExceededTotal,
DeadlineExceededTotal, RaftApplyDuration and CheckpointsTotal are
registered, but no package in this module updates them.
*/
package metrics
