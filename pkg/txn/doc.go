/*
Package txn provides the concurrency control the update operators and
the cross-partition edge-write protocol need on top of pkg/kvstore,
which itself only guarantees atomicity within one partition's batch.

LockTable grants non-blocking, per-key ownership: a writer that loses
the race gets CodeDataConflict immediately rather than queueing behind
the winner. Upserter composes a LockTable with a kvstore.Store into the
read-modify-write cycle UpdateTagNode and UpdateEdgeNode run. SoftLockBroker
lets the first phase of a cross-partition edge write block on the second
phase's outcome instead of polling the lock record left in pkg/codec's
edge-key space.
*/
package txn
