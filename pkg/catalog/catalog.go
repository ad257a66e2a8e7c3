// Package catalog is the storage engine's read-only view of schema and
// membership metadata: spaces, partition counts, tag/edge schema
// histories and secondary indexes. The real system owns this state in a
// separate meta service and replicates it down; this package only
// defines the lookup surface the query engine consumes and an in-memory
// implementation usable standalone or in tests.
package catalog

import (
	"github.com/cuemby/graphcore/pkg/types"
)

// Catalog is the metadata lookup surface every operator and the request
// driver depend on. Implementations must be safe for concurrent reads.
type Catalog interface {
	// Space returns the space's membership metadata.
	Space(spaceID int32) (*types.Space, error)

	// Partitions returns the partition count configured for a space.
	Partitions(spaceID int32) (int32, error)

	// TagSchema returns the full version history of a tag, by id.
	TagSchema(spaceID, tagID int32) (*types.TagSchema, error)

	// TagSchemaByName resolves a tag's id by name, then returns its schema.
	TagSchemaByName(spaceID int32, name string) (*types.TagSchema, error)

	// EdgeSchema returns the full version history of an edge type. typeID
	// is always the positive (out-edge) id; callers negate it themselves
	// to address the in-edge direction of the same relation.
	EdgeSchema(spaceID, typeID int32) (*types.EdgeSchema, error)

	// EdgeSchemaByName resolves an edge type's id by name.
	EdgeSchemaByName(spaceID int32, name string) (*types.EdgeSchema, error)

	// Index returns one index's metadata by id.
	Index(spaceID, indexID int32) (*types.Index, error)

	// IndexesOn lists every index owned by a tag or edge type.
	IndexesOn(spaceID, ownerID int32, isEdge bool) ([]*types.Index, error)
}
