package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFixture = `
spaces:
  - id: 1
    name: social
    partitionCount: 4
    replicaFactor: 3
    vidKind: int64
    tags:
      - id: 1
        name: player
        versions:
          - version: 1
            fields:
              - {name: name, type: string}
              - {name: age, type: int}
          - version: 2
            fields:
              - {name: name, type: string}
              - {name: age, type: int}
              - {name: active, type: bool, default: true}
    edges:
      - id: 1
        name: follows
        versions:
          - version: 1
            fields:
              - {name: since, type: int}
            ttl:
              field: since
              duration: 86400
    indexes:
      - id: 1
        name: idx_player_name
        isEdge: false
        owner: 1
        fields: [name]
`

func writeFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fixture.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleFixture), 0o644))
	return path
}

func TestLoadFixtureBuildsCatalog(t *testing.T) {
	path := writeFixture(t)
	cat, err := LoadFixture(path)
	require.NoError(t, err)

	space, err := cat.Space(1)
	require.NoError(t, err)
	assert.Equal(t, int32(4), space.PartitionCount)

	tag, err := cat.TagSchemaByName(1, "player")
	require.NoError(t, err)
	require.Len(t, tag.Versions, 2)
	assert.Equal(t, int64(2), tag.Latest().Version)
	assert.True(t, tag.Latest().Fields[2].HasDefault)
	assert.True(t, tag.Latest().Fields[2].DefaultValue.B)

	edge, err := cat.EdgeSchemaByName(1, "follows")
	require.NoError(t, err)
	assert.True(t, edge.Latest().TTL.Enabled)
	assert.Equal(t, "since", edge.Latest().TTL.Field)
	assert.Equal(t, int64(86400), edge.Latest().TTL.Duration)

	idxs, err := cat.IndexesOn(1, 1, false)
	require.NoError(t, err)
	require.Len(t, idxs, 1)
	assert.Equal(t, "idx_player_name", idxs[0].Name)
}

func TestLoadFixtureRejectsUnknownFieldType(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	bad := `
spaces:
  - id: 1
    name: bad
    tags:
      - id: 1
        name: t
        versions:
          - version: 1
            fields:
              - {name: x, type: not_a_type}
`
	require.NoError(t, os.WriteFile(path, []byte(bad), 0o644))
	_, err := LoadFixture(path)
	require.Error(t, err)
}

func TestLoadFixtureMissingFile(t *testing.T) {
	_, err := LoadFixture("/nonexistent/path.yaml")
	require.Error(t, err)
}
