package catalog

import (
	"fmt"
	"os"
	"time"

	"github.com/cuemby/graphcore/pkg/types"
	"gopkg.in/yaml.v3"
)

// fixtureFile is the on-disk YAML shape accepted by LoadFixture, used by
// cmd/storaged to stand up a catalog without a meta service and by tests
// that want realistic multi-version schemas without hand-building types.
type fixtureFile struct {
	Spaces []fixtureSpace `yaml:"spaces"`
}

type fixtureSpace struct {
	ID             int32           `yaml:"id"`
	Name           string          `yaml:"name"`
	PartitionCount int32           `yaml:"partitionCount"`
	ReplicaFactor  int32           `yaml:"replicaFactor"`
	VidKind        string          `yaml:"vidKind"` // "int64" or "fixedString"
	VidLen         int32           `yaml:"vidLen"`
	Tags           []fixtureSchema `yaml:"tags"`
	Edges          []fixtureSchema `yaml:"edges"`
	Indexes        []fixtureIndex  `yaml:"indexes"`
}

type fixtureSchema struct {
	ID       int32            `yaml:"id"`
	Name     string           `yaml:"name"`
	Versions []fixtureVersion `yaml:"versions"`
}

type fixtureVersion struct {
	Version int64           `yaml:"version"`
	Fields  []fixtureField  `yaml:"fields"`
	TTL     *fixtureTTLSpec `yaml:"ttl,omitempty"`
}

type fixtureTTLSpec struct {
	Field    string `yaml:"field"`
	Duration int64  `yaml:"duration"`
}

type fixtureField struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	FixedLen int    `yaml:"fixedLen,omitempty"`
	Nullable bool   `yaml:"nullable,omitempty"`
	Default  *any   `yaml:"default,omitempty"`
}

type fixtureIndex struct {
	ID     int32    `yaml:"id"`
	Name   string   `yaml:"name"`
	IsEdge bool     `yaml:"isEdge"`
	Owner  int32    `yaml:"owner"`
	Fields []string `yaml:"fields"`
}

// LoadFixture reads a YAML catalog description from path and returns a
// populated Memory catalog, suitable for single-node deployments and
// integration tests.
func LoadFixture(path string) (*Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read fixture: %w", err)
	}
	var f fixtureFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("catalog: parse fixture: %w", err)
	}

	cat := NewMemory()
	for _, sp := range f.Spaces {
		kind := types.VidInt64
		if sp.VidKind == "fixedString" {
			kind = types.VidFixedString
		}
		cat.PutSpace(&types.Space{
			ID:             sp.ID,
			Name:           sp.Name,
			PartitionCount: sp.PartitionCount,
			ReplicaFactor:  sp.ReplicaFactor,
			VidKind:        kind,
			VidLen:         sp.VidLen,
			CreatedAt:      time.Now(),
		})
		for _, t := range sp.Tags {
			versions, err := convertVersions(t.Versions)
			if err != nil {
				return nil, fmt.Errorf("catalog: tag %s: %w", t.Name, err)
			}
			cat.PutTagSchema(sp.ID, &types.TagSchema{ID: t.ID, Name: t.Name, Versions: versions})
		}
		for _, e := range sp.Edges {
			versions, err := convertVersions(e.Versions)
			if err != nil {
				return nil, fmt.Errorf("catalog: edge %s: %w", e.Name, err)
			}
			cat.PutEdgeSchema(sp.ID, &types.EdgeSchema{ID: e.ID, Name: e.Name, Versions: versions})
		}
		for _, idx := range sp.Indexes {
			cat.PutIndex(sp.ID, &types.Index{
				ID:      idx.ID,
				Name:    idx.Name,
				IsEdge:  idx.IsEdge,
				OwnerID: idx.Owner,
				Fields:  idx.Fields,
				State:   types.IndexActive,
			})
		}
	}
	return cat, nil
}

func convertVersions(vs []fixtureVersion) ([]types.SchemaVersion, error) {
	out := make([]types.SchemaVersion, 0, len(vs))
	for _, v := range vs {
		fields := make([]types.FieldDef, 0, len(v.Fields))
		for _, f := range v.Fields {
			ft, err := fieldTypeFromString(f.Type)
			if err != nil {
				return nil, err
			}
			fd := types.FieldDef{
				Name:     f.Name,
				Type:     ft,
				FixedLen: f.FixedLen,
				Nullable: f.Nullable,
			}
			if f.Default != nil {
				dv, err := defaultValueFromYAML(ft, *f.Default)
				if err != nil {
					return nil, err
				}
				fd.HasDefault = true
				fd.DefaultValue = dv
			}
			fields = append(fields, fd)
		}
		sv := types.SchemaVersion{Version: v.Version, Fields: fields}
		if v.TTL != nil {
			sv.TTL = types.TTLSpec{Enabled: true, Field: v.TTL.Field, Duration: v.TTL.Duration}
		}
		out = append(out, sv)
	}
	return out, nil
}

func fieldTypeFromString(s string) (types.FieldType, error) {
	switch s {
	case "bool":
		return types.FieldBool, nil
	case "int":
		return types.FieldInt, nil
	case "float":
		return types.FieldFloat, nil
	case "double":
		return types.FieldDouble, nil
	case "string":
		return types.FieldString, nil
	case "fixedString":
		return types.FieldFixedString, nil
	case "timestamp":
		return types.FieldTimestamp, nil
	case "date":
		return types.FieldDate, nil
	case "datetime":
		return types.FieldDateTime, nil
	case "geography":
		return types.FieldGeography, nil
	default:
		return 0, fmt.Errorf("catalog: unknown field type %q", s)
	}
}

func defaultValueFromYAML(ft types.FieldType, v any) (types.Value, error) {
	switch ft {
	case types.FieldBool:
		b, ok := v.(bool)
		if !ok {
			return types.Value{}, fmt.Errorf("catalog: default value is not a bool")
		}
		return types.BoolValue(b), nil
	case types.FieldInt, types.FieldTimestamp:
		i, ok := v.(int)
		if !ok {
			return types.Value{}, fmt.Errorf("catalog: default value is not an int")
		}
		return types.IntValue(int64(i)), nil
	case types.FieldFloat, types.FieldDouble:
		switch n := v.(type) {
		case float64:
			return types.FloatValue(n), nil
		case int:
			return types.FloatValue(float64(n)), nil
		default:
			return types.Value{}, fmt.Errorf("catalog: default value is not a number")
		}
	case types.FieldString, types.FieldFixedString:
		s, ok := v.(string)
		if !ok {
			return types.Value{}, fmt.Errorf("catalog: default value is not a string")
		}
		return types.StringValue(s), nil
	default:
		return types.Value{}, fmt.Errorf("catalog: field type has no supported default literal")
	}
}
