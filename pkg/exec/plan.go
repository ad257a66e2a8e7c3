package exec

import "github.com/cuemby/graphcore/pkg/types"

// StoragePlan owns the lifetime of one request's operator tree, rooted
// at an emit or update-result operator. Execution order is implicitly
// topological (leaves first) because every node drives its own
// Dependencies before running its own step; the plan itself only needs
// to hold the root and re-run it once per (partition, input) pair.
type StoragePlan struct {
	Root RelNode
}

// NewStoragePlan wraps root, already wired with its full dependency
// tree, as a reusable per-request plan.
func NewStoragePlan(root RelNode) *StoragePlan {
	return &StoragePlan{Root: root}
}

// Drive runs the plan once for one (partition, input) pair. A plan can
// be reused across every input of a partition; ctx.ResetInput should be
// called between
// inputs by the request driver, not by Drive, so the driver controls
// exactly when per-input state resets relative to result collection.
func (p *StoragePlan) Drive(ctx *RuntimeContext, part types.PartitionID, input types.Value) error {
	return p.Root.Execute(ctx, part, input)
}
