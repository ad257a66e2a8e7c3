package codec

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/cuemby/graphcore/pkg/types"
)

func unixNanoToTime(ns int64) time.Time { return time.Unix(0, ns).UTC() }

// EncodeIndexField exposes the order-preserving single-column encoding
// IndexKey/IndexPrefix use, for callers that need to compare against a
// raw index key's bytes without building a full key.
func EncodeIndexField(v types.Value) []byte { return encodeIndexField(v) }

// IndexHeaderLen is the number of bytes IndexKey/IndexPrefix spend on
// the type tag, partition and index id before the first field begins.
const IndexHeaderLen = 1 + 4 + 4

// DecodeIndexFields reverses the field portion of an IndexKey, given the
// declared type of each indexed column in order. It returns the decoded
// values and the remaining bytes (the primary-key suffix).
func DecodeIndexFields(key []byte, fieldTypes []types.FieldType) (fields []types.Value, pk []byte, err error) {
	if len(key) < IndexHeaderLen {
		return nil, nil, types.NewError(types.CodeInvalidData, "codec.DecodeIndexFields", errString("index key too short"))
	}
	rest := key[IndexHeaderLen:]
	fields = make([]types.Value, 0, len(fieldTypes))
	for _, ft := range fieldTypes {
		v, n, derr := decodeIndexField(rest, ft)
		if derr != nil {
			return nil, nil, derr
		}
		fields = append(fields, v)
		rest = rest[n:]
	}
	return fields, rest, nil
}

func decodeIndexField(raw []byte, ft types.FieldType) (types.Value, int, error) {
	if len(raw) < 1 {
		return types.Value{}, 0, types.NewError(types.CodeInvalidData, "codec.decodeIndexField", errString("truncated null marker"))
	}
	if raw[0] == 0x00 {
		return types.NullValue(), 1, nil
	}
	body := raw[1:]
	switch ft {
	case types.FieldBool:
		if len(body) < 1 {
			return types.Value{}, 0, types.NewError(types.CodeInvalidData, "codec.decodeIndexField", errString("truncated bool"))
		}
		return types.BoolValue(body[0] != 0), 2, nil
	case types.FieldInt, types.FieldTimestamp:
		if len(body) < 8 {
			return types.Value{}, 0, types.NewError(types.CodeInvalidData, "codec.decodeIndexField", errString("truncated int"))
		}
		u := binary.BigEndian.Uint64(body[:8]) ^ (1 << 63)
		if ft == types.FieldTimestamp {
			return types.TimestampValue(unixNanoToTime(int64(u))), 9, nil
		}
		return types.IntValue(int64(u)), 9, nil
	case types.FieldFloat, types.FieldDouble:
		if len(body) < 8 {
			return types.Value{}, 0, types.NewError(types.CodeInvalidData, "codec.decodeIndexField", errString("truncated float"))
		}
		bits := binary.BigEndian.Uint64(body[:8])
		if bits&(1<<63) != 0 {
			bits &^= 1 << 63
		} else {
			bits = ^bits
		}
		return types.FloatValue(math.Float64frombits(bits)), 9, nil
	case types.FieldString, types.FieldFixedString:
		s, n, derr := unescapeString(body)
		if derr != nil {
			return types.Value{}, 0, derr
		}
		return types.StringValue(s), 1 + n, nil
	case types.FieldDate, types.FieldDateTime:
		if len(body) < 8 {
			return types.Value{}, 0, types.NewError(types.CodeInvalidData, "codec.decodeIndexField", errString("truncated date"))
		}
		u := binary.BigEndian.Uint64(body[:8]) ^ (1 << 63)
		return types.TimestampValue(unixNanoToTime(int64(u))), 9, nil
	default:
		return types.Value{}, 0, types.NewError(types.CodeInvalidData, "codec.decodeIndexField", errString("unsupported indexed field type"))
	}
}

// unescapeString reverses escapeString, returning the decoded string and
// the number of raw bytes consumed (including the 0x00 0x00 terminator).
func unescapeString(raw []byte) (string, int, error) {
	out := make([]byte, 0, len(raw))
	i := 0
	for i < len(raw) {
		if raw[i] != 0x00 {
			out = append(out, raw[i])
			i++
			continue
		}
		if i+1 >= len(raw) {
			return "", 0, types.NewError(types.CodeInvalidData, "codec.unescapeString", errString("unterminated string"))
		}
		switch raw[i+1] {
		case 0x00:
			return string(out), i + 2, nil
		case 0xFF:
			out = append(out, 0x00)
			i += 2
		default:
			return "", 0, types.NewError(types.CodeInvalidData, "codec.unescapeString", errString("invalid escape sequence"))
		}
	}
	return "", 0, types.NewError(types.CodeInvalidData, "codec.unescapeString", errString("unterminated string"))
}
