package query

import (
	"runtime"
	"sync"

	"github.com/cuemby/graphcore/pkg/admin"
	"github.com/cuemby/graphcore/pkg/catalog"
	"github.com/cuemby/graphcore/pkg/exec"
	"github.com/cuemby/graphcore/pkg/indexrebuild"
	"github.com/cuemby/graphcore/pkg/kvstore"
	"github.com/cuemby/graphcore/pkg/txn"
	"github.com/cuemby/graphcore/pkg/types"
)

// Driver owns the handles every request's per-partition RuntimeContext is
// built from. One Driver is shared across requests; it holds no
// per-request state itself. Admin is the much smaller checkpoint/
// blocking-sign/clear-space surface this driver forwards its own admin
// request shapes to; Rebuild is the background index-rebuild task
// registry AddTask/StopTask forward to.
type Driver struct {
	Catalog catalog.Catalog
	Store   kvstore.Store
	Locks   *txn.LockTable
	Soft    *txn.SoftLockBroker
	Admin   *admin.Admin
	Rebuild *indexrebuild.Rebuilder
}

func NewDriver(cat indexrebuild.IndexCatalog, store kvstore.Store, locks *txn.LockTable, soft *txn.SoftLockBroker) *Driver {
	return &Driver{
		Catalog: cat,
		Store:   store,
		Locks:   locks,
		Soft:    soft,
		Admin:   admin.New(store),
		Rebuild: indexrebuild.New(cat, store),
	}
}

// AddTask starts a background index rebuild and returns its task id.
func (d *Driver) AddTask(req *AddTaskRequest) string {
	return d.Rebuild.Start(req.Space, req.IndexID, req.Parts)
}

// StopTask cancels a running index rebuild, reporting whether one was
// found under that id.
func (d *Driver) StopTask(req *StopTaskRequest) bool {
	return d.Rebuild.Stop(req.TaskID)
}

// CreateCheckpoint, DropCheckpoint, BlockingSign, and ClearSpace forward
// the request envelopes defined in types.go to pkg/admin, which owns the
// actual kvstore.Store calls.
func (d *Driver) CreateCheckpoint(req *CreateCPRequest) error {
	return d.Admin.CreateCheckpoint(req.Space, req.Name)
}

func (d *Driver) DropCheckpoint(req *DropCPRequest) error {
	return d.Admin.DropCheckpoint(req.Space, req.Name)
}

func (d *Driver) BlockingSign(req *BlockingSignRequest) error {
	return d.Admin.BlockingSign(req.Space, req.Parts, req.Blocked)
}

func (d *Driver) ClearSpace(req *ClearSpaceRequest) error {
	return d.Admin.ClearSpace(req.Space, req.Parts, req.Prefixes)
}

func (d *Driver) GetLeader(parts []types.PartitionID) map[types.PartitionID]bool {
	return d.Admin.GetLeader(parts)
}

// partitionWork runs one partition's full share of a request against a
// freshly built RuntimeContext (never shared across partitions, so
// concurrent partitions never race on Vars/Elapsed/memoryUsed) and
// returns the rows it produced; run reads the illegal-data count the
// plan accumulated from ctx.IllegalDataCount afterwards.
type partitionWork func(ctx *exec.RuntimeContext, part types.PartitionID) ([]types.Value, error)

// run fans partitionWork out over parts, sequentially if !common.Parallel
// or over a bounded worker pool otherwise, and assembles the aggregate
// Response per the "SUCCEEDED if any partition succeeded, else the first
// failure's code; a hard fault discards every partition's output" policy.
// colNames is stamped onto the result unconditionally; callers that don't
// know it up front (none currently) would pass nil and fill it in after.
func (d *Driver) run(space int32, vidLen int32, kind types.VidKind, common RequestCommon, parts []types.PartitionID, colNames []string, work partitionWork) Response {
	type outcome struct {
		part    types.PartitionID
		rows    []types.Value
		err     error
		illegal int
	}
	results := make([]outcome, len(parts))

	runOne := func(i int) {
		part := parts[i]
		ctx := exec.NewRuntimeContext(space, vidLen, kind, d.Catalog, d.Store, d.Locks, d.Soft, common.Deadline, common.MemoryBudget)
		rows, err := work(ctx, part)
		results[i] = outcome{part: part, rows: rows, err: err, illegal: ctx.IllegalDataCount}
	}

	if !common.Parallel || len(parts) <= 1 {
		for i := range parts {
			runOne(i)
		}
	} else {
		workers := runtime.GOMAXPROCS(0)
		if workers > len(parts) {
			workers = len(parts)
		}
		if workers < 1 {
			workers = 1
		}
		var wg sync.WaitGroup
		jobs := make(chan int)
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range jobs {
					runOne(i)
				}
			}()
		}
		for i := range parts {
			jobs <- i
		}
		close(jobs)
		wg.Wait()
	}

	var hardCode types.Code
	hardFault := false
	for _, r := range results {
		if r.err != nil && types.IsHardFault(r.err) && !hardFault {
			hardFault = true
			hardCode = types.CodeOf(r.err)
		}
	}
	if hardFault {
		return Response{Code: hardCode, FailedParts: map[types.PartitionID]types.Code{}}
	}

	resp := Response{FailedParts: map[types.PartitionID]types.Code{}, Result: DataSet{ColNames: colNames}}
	succeeded, failed := 0, 0
	var firstFailureCode types.Code
	for _, r := range results {
		resp.IllegalDataCount += r.illegal
		if r.err != nil {
			failed++
			code := types.CodeOf(r.err)
			resp.FailedParts[r.part] = code
			if succeeded == 0 && failed == 1 {
				firstFailureCode = code
			}
			continue
		}
		succeeded++
		resp.Result.Rows = append(resp.Result.Rows, r.rows...)
	}

	switch {
	case succeeded == 0 && failed > 0:
		resp.Code = firstFailureCode
	case failed > 0:
		resp.Code = types.CodePartialSuccess
	default:
		resp.Code = types.CodeSucceeded
	}
	return resp
}

// estimateSize is the memory-guard's per-row cost estimate: a cheap,
// deliberately approximate walk of a Value's variable-length payload,
// charged against the request's memory budget via ctx.ChargeMemory so a
// pathologically wide result still trips CodeStorageMemoryExceeded
// before it grows unbounded.
func estimateSize(v types.Value) int64 {
	const cellOverhead = 16
	switch v.Kind {
	case types.VString:
		return cellOverhead + int64(len(v.S))
	case types.VList:
		var n int64 = cellOverhead
		for _, c := range v.L {
			n += estimateSize(c)
		}
		return n
	default:
		return cellOverhead
	}
}
