package exec

import (
	"time"

	"github.com/cuemby/graphcore/pkg/types"
)

// RelNode is the capability every operator in a plan shares: execute
// itself (after driving its dependencies), report its elapsed time, and
// expose the dependency list the plan used to build execution order.
// QueryNode and IterateNode add a value slot and a cursor respectively;
// a two-level hierarchy (RelNode, then one specialization) is enough —
// there is no need for a deeper virtual chain.
type RelNode interface {
	Name() string
	Execute(ctx *RuntimeContext, part types.PartitionID, input types.Value) error
	Dependencies() []RelNode
}

// QueryNode is a RelNode that produces a single addressable value for
// its parent to read after Execute returns (TagNode, FetchEdgeNode,
// HashJoinNode's tag list, aggregates).
type QueryNode interface {
	RelNode
	Value() types.Value
}

// IterateNode is a RelNode that behaves as a cursor: Execute binds or
// rewinds it, then the parent drives it with Next until Valid is false.
type IterateNode interface {
	RelNode
	Valid() bool
	Next() bool
	Key() []byte
	Val() []byte
}

// base implements the timing and dependency bookkeeping every concrete
// operator embeds; concrete execute logic lives in the embedding type's
// own Execute method, which should call base.runTimed around its body.
type base struct {
	name string
	deps []RelNode
}

func newBase(name string, deps ...RelNode) base {
	return base{name: name, deps: deps}
}

func (b *base) Name() string            { return b.name }
func (b *base) Dependencies() []RelNode { return b.deps }

// runTimed drives dep.Execute for every dependency, then fn, accumulating
// fn's own elapsed time (not the dependencies') into ctx.Elapsed under
// b.name — matching the "per-operator duration counter" in the runtime
// context rather than a call-tree-inclusive total.
func (b *base) runTimed(ctx *RuntimeContext, part types.PartitionID, input types.Value, fn func() error) error {
	for _, d := range b.deps {
		if err := d.Execute(ctx, part, input); err != nil {
			return err
		}
	}
	start := time.Now()
	err := fn()
	ctx.recordElapsed(b.name, time.Since(start))
	return err
}
