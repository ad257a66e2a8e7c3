// Package query is the request driver: it owns the (space, parts, input)
// fan-out the rest of pkg/exec is driven through, builds the per-partition
// plan for each of the four request shapes (get-neighbors, get-prop,
// update, lookup-index), and assembles the DataSet/code a client sees.
// Admin operations (checkpoint, blocking-sign, clear-space, leader
// report) are a separate, much smaller surface handled by pkg/admin, and
// index-rebuild tasks (AddTask/StopTask) are handled by pkg/indexrebuild;
// Driver forwards those requests so they ride the same entry point.
package query

import (
	"time"

	"github.com/cuemby/graphcore/pkg/exec"
	"github.com/cuemby/graphcore/pkg/expr"
	"github.com/cuemby/graphcore/pkg/types"
)

// DataSet is the wire result shape every request response carries on
// success: ordered column names, each a reserved pseudo-column name or
// a `_tag:`/`_edge:`/`_stats:`-prefixed projection, alongside the rows.
type DataSet struct {
	ColNames []string
	Rows     []types.Value
}

// RequestCommon carries the fields every request shares: the deadline and
// memory budget propagated into each partition's RuntimeContext, and
// whether partitions run one-at-a-time or over a bounded worker pool.
type RequestCommon struct {
	Deadline     time.Time
	MemoryBudget int64
	Parallel     bool
}

// Response is what every driver entry point returns: the aggregate code
// (SUCCEEDED/PARTIAL_SUCCESS/first hard failure), the merged result set,
// and per-partition failure codes for whichever partitions didn't
// contribute rows.
type Response struct {
	Code             types.Code
	Result           DataSet
	FailedParts      map[types.PartitionID]types.Code
	IllegalDataCount int
}

// TagProjection names one tag's requested output columns: Props in
// declared order, or every field of the tag's latest schema when Props
// is empty.
type TagProjection struct {
	TagID int32
	Name  string
	Props []string
}

// EdgeProjection names one edge type's requested output column, with an
// optional reservoir cap (SampleSize <= 0 keeps every matching edge).
type EdgeProjection struct {
	EdgeType   int32
	Name       string
	Props      []string
	SampleSize int
}

// TraverseSpec is GetNeighborsRequest's traverseSpec field: which tags
// and edges to project, optional stat columns, a result limit, a random
// flag, and the two filter expressions FilterNode consumes (tag-only
// short-circuit, full tag+edge predicate). GetNeighbors reads neither
// Limit nor Random: the number of rows is not capped, and reservoir
// sampling is governed by EdgeProjection.SampleSize with a seed taken
// from wall time on every request.
type TraverseSpec struct {
	VertexProps []TagProjection
	EdgeProps   []EdgeProjection
	StatProps   []exec.StatSpec
	Limit       int
	Random      bool
	Filter      *expr.Expr
	TagFilter   *expr.Expr
}

// GetNeighborsRequest requests, per partition, the neighbor rows of a
// list of vertex ids.
type GetNeighborsRequest struct {
	Space  int32
	VidLen int32
	Kind   types.VidKind
	Parts  map[types.PartitionID][]types.Value
	Spec   TraverseSpec
	Common RequestCommon
}

// GetPropRequest requests either vertex tag properties or edge
// properties, keyed by vid (vertex case) or a [src, rank, dst] list
// (edge case, with the edge type taken from EdgeProps), per partition.
type GetPropRequest struct {
	Space       int32
	VidLen      int32
	Kind        types.VidKind
	Parts       map[types.PartitionID][]types.Value
	VertexProps []TagProjection // vertex case; nil for the edge case
	EdgeProps   *EdgeProjection // edge case; nil for the vertex case
	Common      RequestCommon
}

// UpdateAssignment mirrors exec.UpdateAssignment on the wire.
type UpdateAssignment struct {
	Prop string
	Expr *expr.Expr
}

// UpdateVertexRequest updates or inserts one tag row per partition/vid
// pair. Insertable permits creating the row when absent; Condition is
// the WHEN clause; Yields is the YIELD clause evaluated against the
// post-image.
type UpdateVertexRequest struct {
	Space       int32
	VidLen      int32
	Kind        types.VidKind
	Part        types.PartitionID
	Vid         types.Value
	TagID       int32
	TagName     string
	Insertable  bool
	Assignments []UpdateAssignment
	Condition   *expr.Expr
	Yields      []*expr.Expr
	Common      RequestCommon
}

// UpdateEdgeRequest is UpdateVertexRequest's edge counterpart, keyed by
// a full (src, rank, dst) tuple against a fixed edge type.
type UpdateEdgeRequest struct {
	Space       int32
	VidLen      int32
	Kind        types.VidKind
	Part        types.PartitionID
	Src, Dst    types.Value
	Rank        int64
	EdgeType    int32
	EdgeName    string
	Insertable  bool
	Assignments []UpdateAssignment
	Condition   *expr.Expr
	Yields      []*expr.Expr
	Common      RequestCommon
}

// LookupContext is one entry of LookupIndexRequest's indices.contexts
// list: which index to scan, the column hints that narrow it, and an
// optional filter evaluated per surviving entry.
type LookupContext struct {
	IndexID int32
	Hints   []types.ColumnHint
	Filter  *expr.Expr
}

// LookupIndexRequest scans one or more indexes on the same tag or edge
// type and returns ReturnColumns per surviving entry, resolving the
// backing row only when a requested column or filter needs a property
// the index itself doesn't carry (the basic/data/filter/data+filter
// branch selection in buildLookupPlan).
type LookupIndexRequest struct {
	Space         int32
	VidLen        int32
	Kind          types.VidKind
	IsEdge        bool
	TagOrEdgeID   int32
	Parts         []types.PartitionID
	Contexts      []LookupContext
	ReturnColumns []string
	Common        RequestCommon
}

// AddTaskRequest and StopTaskRequest track a long-running background
// task; an index rebuild is the only kind the core currently issues, so
// AddTaskRequest carries the fields pkg/indexrebuild.Rebuilder.Start
// needs directly rather than a generic opaque payload.
type AddTaskRequest struct {
	Space   int32
	IndexID int32
	Parts   []types.PartitionID
}

type StopTaskRequest struct {
	Space  int32
	TaskID string
}

// CreateCPRequest/DropCPRequest/BlockingSignRequest/ClearSpaceRequest
// are the admin operations forwarded verbatim to pkg/admin.
type CreateCPRequest struct {
	Space int32
	Name  string
}

type DropCPRequest struct {
	Space int32
	Name  string
}

type BlockingSignRequest struct {
	Space   int32
	Parts   []types.PartitionID
	Blocked bool
}

type ClearSpaceRequest struct {
	Space    int32
	Parts    []types.PartitionID
	Prefixes map[types.PartitionID][][]byte
}
