// Package types defines the core data model of the storage query engine:
// spaces, partitions, tags, edge types, schemas, indexes and the typed
// Value carried through every row and expression.
package types

import "time"

// VidKind distinguishes the two vertex-id representations a space may pick
// at creation time. The choice is immutable for the lifetime of the space.
type VidKind uint8

const (
	VidInt64 VidKind = iota
	VidFixedString
)

// Space is a logical database: it isolates keys, schemas and membership.
type Space struct {
	ID                int32
	Name              string
	PartitionCount    int32
	ReplicaFactor     int32
	VidKind           VidKind
	VidLen            int32 // fixed width in bytes; immutable once set
	Charset           string
	Collate           string
	Zones             []string
	CreatedAt         time.Time
}

// PartitionID identifies a shard of a space. Partition numbering starts at 1.
type PartitionID int32

// Host is failure-domain / membership metadata consumed, not owned, by the
// query core through the catalog interface.
type Host struct {
	Addr string
	Port int32
}

// Zone groups hosts into a failure domain.
type Zone struct {
	Name  string
	Hosts []Host
}

// FieldType enumerates the scalar types a schema field may declare.
type FieldType uint8

const (
	FieldBool FieldType = iota
	FieldInt
	FieldFloat
	FieldDouble
	FieldString     // variable length
	FieldFixedString
	FieldTimestamp
	FieldDate
	FieldDateTime
	FieldGeography
)

// FieldDef describes one column of a tag/edge schema version.
type FieldDef struct {
	Name         string
	Type         FieldType
	FixedLen     int // only meaningful for FieldFixedString
	Nullable     bool
	HasDefault   bool
	DefaultValue Value
}

// TTLSpec names the field whose value gates row expiry and the duration, in
// seconds, past that value at which the row stops being visible to reads.
type TTLSpec struct {
	Enabled  bool
	Field    string
	Duration int64
}

// SchemaVersion is one generation of a tag or edge-type's field layout.
// Layouts are append-only with optional drops/renames; the schema list for
// a tag/edge is ordered oldest-first, so the last element is authoritative
// for writes.
type SchemaVersion struct {
	Version int64
	Fields  []FieldDef
	TTL     TTLSpec
}

// TagSchema is the full version history of a vertex label.
type TagSchema struct {
	ID       int32
	Name     string
	Versions []SchemaVersion // ordered oldest to newest
}

// Latest returns the authoritative (newest) schema version.
func (t *TagSchema) Latest() *SchemaVersion {
	if len(t.Versions) == 0 {
		return nil
	}
	return &t.Versions[len(t.Versions)-1]
}

// EdgeSchema is the full version history of an edge type. EdgeType is
// signed: a positive id is the "out" direction, its negation the
// corresponding "in" direction of the same relation; both share one
// schema history, keyed by abs(id).
type EdgeSchema struct {
	ID       int32 // always stored positive; callers negate for the in-edge
	Name     string
	Versions []SchemaVersion
}

func (e *EdgeSchema) Latest() *SchemaVersion {
	if len(e.Versions) == 0 {
		return nil
	}
	return &e.Versions[len(e.Versions)-1]
}

// IndexState reflects whether an index is fully built, being rebuilt
// online (writers log operation records instead of touching the index),
// or locked for an exclusive rebuild (writes to the owning tag/edge fail).
type IndexState uint8

const (
	IndexActive IndexState = iota
	IndexRebuilding
	IndexLocked
)

// Index belongs to exactly one tag or edge type and lists an ordered
// subset of its schema's fields.
type Index struct {
	ID     int32
	Name   string
	IsEdge bool
	OwnerID int32 // tag id or edge type id (always positive)
	Fields []string
	State  IndexState
}

// ColumnHintKind enumerates the shapes an index-scan column hint can take.
type ColumnHintKind uint8

const (
	HintEquals ColumnHintKind = iota
	HintGreaterEqual
	HintLess
	HintBetween
	HintIn
	HintIsNull
)

// ColumnHint narrows one index column to a value, range or set for an
// IndexScanNode.
type ColumnHint struct {
	Column string
	Kind   ColumnHintKind
	Lo     Value
	Hi     Value
	Set    []Value
}
