package codec

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/cuemby/graphcore/pkg/types"
)

// Row wire format: [8-byte version][null-bitmap, ceil(n/8) bytes][values...]
// in schema-field order. Fixed-width scalars are encoded in place; strings
// are length-prefixed (4-byte BE length + raw bytes); FIXED_STRING(n) is
// exactly n bytes, rejecting anything else with E_INVALID_FIELD_VALUE.

// RowReader decodes a row's bytes against the schema version it was
// written with, while exposing reads for fields added in later versions.
type RowReader struct {
	schemaList []types.SchemaVersion
	version    *types.SchemaVersion
	raw        []byte
	offsets    map[string]int // field name -> byte offset into raw's value area, -1 if absent
	valueStart int
}

// NewRowReader selects the schema version embedded in raw and binds it.
// It returns CodeInvalidData if no version in schemaList matches.
func NewRowReader(schemaList []types.SchemaVersion, raw []byte) (*RowReader, error) {
	if len(raw) < 8 {
		return nil, types.NewError(types.CodeInvalidData, "codec.RowReader", errString("row too short"))
	}
	ver := int64(binary.BigEndian.Uint64(raw[:8]))
	var sv *types.SchemaVersion
	for i := range schemaList {
		if schemaList[i].Version == ver {
			sv = &schemaList[i]
			break
		}
	}
	if sv == nil {
		return nil, types.NewError(types.CodeInvalidData, "codec.RowReader", errString("no schema version decodes this row"))
	}
	bitmapLen := (len(sv.Fields) + 7) / 8
	if len(raw) < 8+bitmapLen {
		return nil, types.NewError(types.CodeInvalidData, "codec.RowReader", errString("row truncated before bitmap"))
	}
	r := &RowReader{
		schemaList: schemaList,
		version:    sv,
		raw:        raw,
		offsets:    make(map[string]int, len(sv.Fields)),
		valueStart: 8 + bitmapLen,
	}
	off := r.valueStart
	bitmap := raw[8 : 8+bitmapLen]
	for i, f := range sv.Fields {
		null := bitmap[i/8]&(1<<uint(i%8)) != 0
		if null {
			r.offsets[f.Name] = -1
			continue
		}
		r.offsets[f.Name] = off
		n, err := fieldWidth(raw, off, f)
		if err != nil {
			return nil, err
		}
		off += n
	}
	if off > len(raw) {
		return nil, types.NewError(types.CodeInvalidData, "codec.RowReader", errString("row truncated in value area"))
	}
	return r, nil
}

// Version returns the schema version this row was encoded with.
func (r *RowReader) Version() int64 { return r.version.Version }

// GetByName reads a field by name. Fields declared in a newer schema than
// this row's version fall back to that version's default or null; for a
// field unknown to both this row's version and latest, the second result
// is false and the caller chooses which not-found error to report.
func (r *RowReader) GetByName(name string, latest *types.SchemaVersion) (types.Value, bool) {
	if off, ok := r.offsets[name]; ok {
		if off < 0 {
			return types.NullValue(), true
		}
		for _, f := range r.version.Fields {
			if f.Name == name {
				v, _ := decodeField(r.raw, off, f)
				return v, true
			}
		}
	}
	// Not present in this row's version: consult latest for default/null.
	if latest != nil {
		for _, f := range latest.Fields {
			if f.Name == name {
				if f.HasDefault {
					return f.DefaultValue, true
				}
				return types.NullValue(), true
			}
		}
	}
	return types.Value{}, false
}

// RowWriter accumulates typed field assignments and serializes against the
// latest schema version.
type RowWriter struct {
	version *types.SchemaVersion
	values  map[string]types.Value
}

// NewRowWriter binds the latest (authoritative) schema version.
func NewRowWriter(latest *types.SchemaVersion) *RowWriter {
	return &RowWriter{version: latest, values: make(map[string]types.Value, len(latest.Fields))}
}

// Set assigns a typed value by field name, validating it against the
// field's declared type and, for FIXED_STRING(n), its exact width.
func (w *RowWriter) Set(name string, v types.Value) error {
	f, ok := w.fieldDef(name)
	if !ok {
		return types.NewError(types.CodeTagPropNotFound, "codec.RowWriter.Set", errString("unknown field "+name))
	}
	if v.IsNull() {
		if !f.Nullable {
			return types.NewError(types.CodeInvalidFieldValue, "codec.RowWriter.Set", errString("field "+name+" is not nullable"))
		}
		w.values[name] = v
		return nil
	}
	if err := validateFieldValue(f, v); err != nil {
		return err
	}
	w.values[name] = v
	return nil
}

func (w *RowWriter) fieldDef(name string) (types.FieldDef, bool) {
	for _, f := range w.version.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return types.FieldDef{}, false
}

// FillDefaults sets every unset field to its declared default, or null if
// nullable; returns CodeInvalidFieldValue if a required field with no
// default was never set.
func (w *RowWriter) FillDefaults() error {
	for _, f := range w.version.Fields {
		if _, ok := w.values[f.Name]; ok {
			continue
		}
		switch {
		case f.HasDefault:
			w.values[f.Name] = f.DefaultValue
		case f.Nullable:
			w.values[f.Name] = types.NullValue()
		default:
			return types.NewError(types.CodeInvalidFieldValue, "codec.RowWriter.FillDefaults",
				errString("field "+f.Name+" has no default and is not nullable"))
		}
	}
	return nil
}

// Encode serializes the accumulated assignments against the bound schema
// version. Every declared field must have a value (call FillDefaults first
// for upserts that may be missing some).
func (w *RowWriter) Encode() ([]byte, error) {
	bitmapLen := (len(w.version.Fields) + 7) / 8
	header := make([]byte, 8+bitmapLen)
	binary.BigEndian.PutUint64(header[:8], uint64(w.version.Version))
	bitmap := header[8:]

	var body []byte
	for i, f := range w.version.Fields {
		v, ok := w.values[f.Name]
		if !ok {
			return nil, types.NewError(types.CodeInvalidFieldValue, "codec.RowWriter.Encode",
				errString("field "+f.Name+" was never assigned"))
		}
		if v.IsNull() {
			bitmap[i/8] |= 1 << uint(i%8)
			continue
		}
		enc, err := encodeField(f, v)
		if err != nil {
			return nil, err
		}
		body = append(body, enc...)
	}
	return append(header, body...), nil
}

// Get returns the value assigned so far for name (used by update
// expression evaluation, which must see a snapshot of the working copy
// after each preceding assignment).
func (w *RowWriter) Get(name string) (types.Value, bool) {
	v, ok := w.values[name]
	return v, ok
}

func validateFieldValue(f types.FieldDef, v types.Value) error {
	switch f.Type {
	case types.FieldBool:
		if v.Kind != types.VBool {
			return fieldTypeErr(f.Name)
		}
	case types.FieldInt, types.FieldTimestamp:
		if v.Kind != types.VInt {
			return fieldTypeErr(f.Name)
		}
	case types.FieldFloat, types.FieldDouble:
		if v.Kind != types.VFloat {
			return fieldTypeErr(f.Name)
		}
	case types.FieldString:
		if v.Kind != types.VString {
			return fieldTypeErr(f.Name)
		}
	case types.FieldFixedString:
		if v.Kind != types.VString || len(v.S) != f.FixedLen {
			return types.NewError(types.CodeInvalidFieldValue, "codec.validateFieldValue",
				errString("field "+f.Name+" overflows FIXED_STRING("+itoa(f.FixedLen)+")"))
		}
	case types.FieldDate, types.FieldDateTime:
		if v.Kind != types.VTimestamp {
			return fieldTypeErr(f.Name)
		}
	default:
		return fieldTypeErr(f.Name)
	}
	return nil
}

func fieldTypeErr(name string) error {
	return types.NewError(types.CodeInvalidFieldValue, "codec.validateFieldValue", errString("type mismatch for field "+name))
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// fieldWidth returns the number of bytes field f occupies starting at off
// in raw, validating that raw is long enough.
func fieldWidth(raw []byte, off int, f types.FieldDef) (int, error) {
	switch f.Type {
	case types.FieldBool:
		return checkLen(raw, off, 1)
	case types.FieldInt, types.FieldTimestamp, types.FieldFloat, types.FieldDouble, types.FieldDate, types.FieldDateTime:
		return checkLen(raw, off, 8)
	case types.FieldFixedString:
		return checkLen(raw, off, f.FixedLen)
	case types.FieldString:
		if off+4 > len(raw) {
			return 0, types.NewError(types.CodeInvalidData, "codec.fieldWidth", errString("truncated string length"))
		}
		n := int(binary.BigEndian.Uint32(raw[off : off+4]))
		return checkLen(raw, off, 4+n)
	default:
		return 0, types.NewError(types.CodeInvalidData, "codec.fieldWidth", errString("unknown field type"))
	}
}

func checkLen(raw []byte, off, n int) (int, error) {
	if off+n > len(raw) {
		return 0, types.NewError(types.CodeInvalidData, "codec.fieldWidth", errString("row truncated"))
	}
	return n, nil
}

func decodeField(raw []byte, off int, f types.FieldDef) (types.Value, error) {
	switch f.Type {
	case types.FieldBool:
		return types.BoolValue(raw[off] != 0), nil
	case types.FieldInt, types.FieldTimestamp:
		return types.IntValue(int64(binary.BigEndian.Uint64(raw[off : off+8]))), nil
	case types.FieldFloat, types.FieldDouble:
		bits := binary.BigEndian.Uint64(raw[off : off+8])
		return types.FloatValue(math.Float64frombits(bits)), nil
	case types.FieldFixedString:
		return types.StringValue(string(raw[off : off+f.FixedLen])), nil
	case types.FieldString:
		n := int(binary.BigEndian.Uint32(raw[off : off+4]))
		return types.StringValue(string(raw[off+4 : off+4+n])), nil
	case types.FieldDate, types.FieldDateTime:
		ns := int64(binary.BigEndian.Uint64(raw[off : off+8]))
		return types.TimestampValue(time.Unix(0, ns).UTC()), nil
	default:
		return types.Value{}, types.NewError(types.CodeInvalidData, "codec.decodeField", errString("unknown field type"))
	}
}

func encodeField(f types.FieldDef, v types.Value) ([]byte, error) {
	switch f.Type {
	case types.FieldBool:
		if v.B {
			return []byte{1}, nil
		}
		return []byte{0}, nil
	case types.FieldInt, types.FieldTimestamp:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(v.I))
		return b[:], nil
	case types.FieldFloat, types.FieldDouble:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], math.Float64bits(v.F))
		return b[:], nil
	case types.FieldFixedString:
		if len(v.S) != f.FixedLen {
			return nil, types.NewError(types.CodeInvalidFieldValue, "codec.encodeField",
				errString("field "+f.Name+" overflows FIXED_STRING("+itoa(f.FixedLen)+")"))
		}
		return []byte(v.S), nil
	case types.FieldString:
		var lb [4]byte
		binary.BigEndian.PutUint32(lb[:], uint32(len(v.S)))
		return append(lb[:], v.S...), nil
	case types.FieldDate, types.FieldDateTime:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(v.T.UnixNano()))
		return b[:], nil
	default:
		return nil, types.NewError(types.CodeInvalidFieldValue, "codec.encodeField", errString("unknown field type"))
	}
}
