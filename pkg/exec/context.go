// Package exec implements the per-request operator DAG: scan, join,
// filter, aggregate, dedup and emit operators that a plan wires together
// over pkg/codec, pkg/catalog, pkg/kvstore, pkg/txn and pkg/expr to answer
// one get-neighbors, get-prop, update or lookup request.
package exec

import (
	"time"

	"github.com/cuemby/graphcore/pkg/catalog"
	"github.com/cuemby/graphcore/pkg/codec"
	"github.com/cuemby/graphcore/pkg/expr"
	"github.com/cuemby/graphcore/pkg/kvstore"
	"github.com/cuemby/graphcore/pkg/txn"
	"github.com/cuemby/graphcore/pkg/types"
)

// RuntimeContext is the shared, mutable state every operator in one
// plan invocation reads and writes by reference. The request driver
// builds one per partition and reuses it across every input of that
// partition; ResetInput clears the per-input fields between inputs
// without discarding the longer-lived ones (catalog handles, expression
// pool, deadline).
type RuntimeContext struct {
	Space   int32
	VidLen  int32
	VidKind types.VidKind

	Catalog catalog.Catalog
	Store   kvstore.Store
	Locks   *txn.LockTable
	Soft    *txn.SoftLockBroker

	Deadline     time.Time
	MemoryBudget int64
	memoryUsed   int64

	Exprs *expr.Pool
	Vars  *expr.Context

	// TagFilterOut is set by a tag-only subfilter to short-circuit the
	// rest of FilterNode's tag+edge evaluation for the current input.
	TagFilterOut bool

	// Current edge metadata, updated by HashJoinNode's cursor each time
	// it advances so FilterNode/GetNeighborsNode know which edge's
	// properties to address.
	EdgeType   int32
	EdgeName   string
	EdgeSchema *types.EdgeSchema
	EdgeProps  map[string]types.Value

	IllegalDataCount int

	Elapsed map[string]time.Duration
}

// VidCodec builds the key codec for this request's space.
func (c *RuntimeContext) VidCodec() codec.VidCodec {
	return codec.VidCodec{Len: int(c.VidLen), Kind: c.VidKind}
}

// NewRuntimeContext wires a fresh context for one request.
func NewRuntimeContext(space int32, vidLen int32, vidKind types.VidKind, cat catalog.Catalog, store kvstore.Store, locks *txn.LockTable, soft *txn.SoftLockBroker, deadline time.Time, memoryBudget int64) *RuntimeContext {
	return &RuntimeContext{
		Space:        space,
		VidLen:       vidLen,
		VidKind:      vidKind,
		Catalog:      cat,
		Store:        store,
		Locks:        locks,
		Soft:         soft,
		Deadline:     deadline,
		MemoryBudget: memoryBudget,
		Exprs:        expr.NewPool(),
		Vars:         expr.NewContext(),
		Elapsed:      make(map[string]time.Duration),
	}
}

// ResetInput clears the per-input fields (tag filter outcome, current
// edge metadata, expression variable bindings) before the plan is
// driven over the next (partition, input) pair.
func (c *RuntimeContext) ResetInput() {
	c.TagFilterOut = false
	c.EdgeType = 0
	c.EdgeName = ""
	c.EdgeSchema = nil
	c.EdgeProps = nil
	c.Vars.Reset()
}

// CheckDeadline returns CodeRPCExceedDeadline once c.Deadline has
// passed; operators call this at their own boundary per the concurrency
// model's "checked at every operator boundary" rule.
func (c *RuntimeContext) CheckDeadline() error {
	if c.Deadline.IsZero() {
		return nil
	}
	if time.Now().After(c.Deadline) {
		return types.NewError(types.CodeRPCExceedDeadline, "exec.CheckDeadline", errDeadline("request deadline exceeded"))
	}
	return nil
}

// ChargeMemory accounts n bytes against the request's memory budget,
// returning CodeStorageMemoryExceeded once the budget is exhausted.
func (c *RuntimeContext) ChargeMemory(n int64) error {
	if c.MemoryBudget <= 0 {
		return nil
	}
	c.memoryUsed += n
	if c.memoryUsed > c.MemoryBudget {
		return types.NewError(types.CodeStorageMemoryExceeded, "exec.ChargeMemory", errDeadline("memory budget exceeded"))
	}
	return nil
}

func (c *RuntimeContext) recordElapsed(name string, d time.Duration) {
	c.Elapsed[name] += d
}

type errDeadline string

func (e errDeadline) Error() string { return string(e) }
