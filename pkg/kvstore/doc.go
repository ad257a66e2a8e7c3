/*
Package kvstore implements the replicated key-value store the query
engine treats as an external dependency: point/prefix/multi-get reads,
asynchronous batched writes, a per-partition write-blocking switch, and
checkpoint create/drop.

Engine is the local, non-replicated storage primitive; Bolt is the only
implementation, one bbolt bucket per partition. FSM wraps an Engine
behind hashicorp/raft: every mutating Store call is proposed as a Raft
log entry carrying an EncodeBatch-encoded Batch, and only takes effect
once Raft commits it and replays it through FSM.Apply. Bootstrap and
Join stand up the Raft transport, log store and stable store (both
raft-boltdb backed) for a new or joining replica.
*/
package kvstore
