package catalog

import (
	"sync"

	"github.com/cuemby/graphcore/pkg/types"
)

// Memory is an in-process Catalog backed by plain maps, guarded by a
// single RWMutex. It is the catalog used by tests and by standalone
// single-node deployments that load their schema from a fixture file
// instead of talking to a meta service.
type Memory struct {
	mu sync.RWMutex

	spaces map[int32]*types.Space

	tagsByID   map[int32]map[int32]*types.TagSchema
	tagsByName map[int32]map[string]int32

	edgesByID   map[int32]map[int32]*types.EdgeSchema
	edgesByName map[int32]map[string]int32

	indexes map[int32]map[int32]*types.Index
}

// NewMemory returns an empty catalog; callers populate it with PutSpace,
// PutTagSchema, PutEdgeSchema and PutIndex before serving reads.
func NewMemory() *Memory {
	return &Memory{
		spaces:      make(map[int32]*types.Space),
		tagsByID:    make(map[int32]map[int32]*types.TagSchema),
		tagsByName:  make(map[int32]map[string]int32),
		edgesByID:   make(map[int32]map[int32]*types.EdgeSchema),
		edgesByName: make(map[int32]map[string]int32),
		indexes:     make(map[int32]map[int32]*types.Index),
	}
}

// PutSpace registers (or replaces) a space's membership metadata.
func (m *Memory) PutSpace(s *types.Space) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.spaces[s.ID] = s
}

// PutTagSchema registers (or replaces) a tag's full version history.
func (m *Memory) PutTagSchema(spaceID int32, t *types.TagSchema) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tagsByID[spaceID] == nil {
		m.tagsByID[spaceID] = make(map[int32]*types.TagSchema)
		m.tagsByName[spaceID] = make(map[string]int32)
	}
	m.tagsByID[spaceID][t.ID] = t
	m.tagsByName[spaceID][t.Name] = t.ID
}

// PutEdgeSchema registers (or replaces) an edge type's version history.
// ID must be the positive (out-edge) id.
func (m *Memory) PutEdgeSchema(spaceID int32, e *types.EdgeSchema) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.edgesByID[spaceID] == nil {
		m.edgesByID[spaceID] = make(map[int32]*types.EdgeSchema)
		m.edgesByName[spaceID] = make(map[string]int32)
	}
	m.edgesByID[spaceID][e.ID] = e
	m.edgesByName[spaceID][e.Name] = e.ID
}

// PutIndex registers (or replaces) a secondary index's metadata.
func (m *Memory) PutIndex(spaceID int32, idx *types.Index) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.indexes[spaceID] == nil {
		m.indexes[spaceID] = make(map[int32]*types.Index)
	}
	m.indexes[spaceID][idx.ID] = idx
}

// SetIndexState transitions an already-registered index to a new state
// (Active, Rebuilding, Locked), used by the background index rebuilder
// to drive an index through its rebuild lifecycle.
func (m *Memory) SetIndexState(spaceID, indexID int32, state types.IndexState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx, ok := m.indexes[spaceID][indexID]
	if !ok {
		return notFound(types.CodeIndexNotFound, "catalog.SetIndexState")
	}
	clone := *idx
	clone.State = state
	m.indexes[spaceID][indexID] = &clone
	return nil
}

func notFound(code types.Code, op string) error {
	return types.NewError(code, op, types.ErrKeyNotFound)
}

func (m *Memory) Space(spaceID int32) (*types.Space, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.spaces[spaceID]
	if !ok {
		return nil, notFound(types.CodeSpaceNotFound, "catalog.Space")
	}
	return s, nil
}

func (m *Memory) Partitions(spaceID int32) (int32, error) {
	s, err := m.Space(spaceID)
	if err != nil {
		return 0, err
	}
	return s.PartitionCount, nil
}

// SpaceIDs lists every space id this catalog currently holds, for callers
// (the metrics collector, admin tooling) that need to enumerate spaces
// rather than look one up by id.
func (m *Memory) SpaceIDs() []int32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]int32, 0, len(m.spaces))
	for id := range m.spaces {
		out = append(out, id)
	}
	return out
}

func (m *Memory) TagSchema(spaceID, tagID int32) (*types.TagSchema, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	byID, ok := m.tagsByID[spaceID]
	if !ok {
		return nil, notFound(types.CodeTagNotFound, "catalog.TagSchema")
	}
	t, ok := byID[tagID]
	if !ok {
		return nil, notFound(types.CodeTagNotFound, "catalog.TagSchema")
	}
	return t, nil
}

func (m *Memory) TagSchemaByName(spaceID int32, name string) (*types.TagSchema, error) {
	m.mu.RLock()
	byName, ok := m.tagsByName[spaceID]
	if !ok {
		m.mu.RUnlock()
		return nil, notFound(types.CodeTagNotFound, "catalog.TagSchemaByName")
	}
	id, ok := byName[name]
	m.mu.RUnlock()
	if !ok {
		return nil, notFound(types.CodeTagNotFound, "catalog.TagSchemaByName")
	}
	return m.TagSchema(spaceID, id)
}

func (m *Memory) EdgeSchema(spaceID, typeID int32) (*types.EdgeSchema, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	byID, ok := m.edgesByID[spaceID]
	if !ok {
		return nil, notFound(types.CodeEdgeNotFound, "catalog.EdgeSchema")
	}
	if typeID < 0 {
		typeID = -typeID
	}
	e, ok := byID[typeID]
	if !ok {
		return nil, notFound(types.CodeEdgeNotFound, "catalog.EdgeSchema")
	}
	return e, nil
}

func (m *Memory) EdgeSchemaByName(spaceID int32, name string) (*types.EdgeSchema, error) {
	m.mu.RLock()
	byName, ok := m.edgesByName[spaceID]
	if !ok {
		m.mu.RUnlock()
		return nil, notFound(types.CodeEdgeNotFound, "catalog.EdgeSchemaByName")
	}
	id, ok := byName[name]
	m.mu.RUnlock()
	if !ok {
		return nil, notFound(types.CodeEdgeNotFound, "catalog.EdgeSchemaByName")
	}
	return m.EdgeSchema(spaceID, id)
}

// Indexes lists every index registered for a space, for callers (the
// metrics collector, admin tooling) that need the full set rather than
// one owner's indexes.
func (m *Memory) Indexes(spaceID int32) []*types.Index {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bySpace := m.indexes[spaceID]
	out := make([]*types.Index, 0, len(bySpace))
	for _, idx := range bySpace {
		out = append(out, idx)
	}
	return out
}

func (m *Memory) Index(spaceID, indexID int32) (*types.Index, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bySpace, ok := m.indexes[spaceID]
	if !ok {
		return nil, notFound(types.CodeIndexNotFound, "catalog.Index")
	}
	idx, ok := bySpace[indexID]
	if !ok {
		return nil, notFound(types.CodeIndexNotFound, "catalog.Index")
	}
	return idx, nil
}

func (m *Memory) IndexesOn(spaceID, ownerID int32, isEdge bool) ([]*types.Index, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bySpace, ok := m.indexes[spaceID]
	if !ok {
		return nil, nil
	}
	var out []*types.Index
	for _, idx := range bySpace {
		if idx.OwnerID == ownerID && idx.IsEdge == isEdge {
			out = append(out, idx)
		}
	}
	return out, nil
}
