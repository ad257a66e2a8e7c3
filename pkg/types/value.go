package types

import (
	"fmt"
	"time"
)

// ValueKind is the tag of the Value union.
type ValueKind uint8

const (
	VNull ValueKind = iota
	VBool
	VInt
	VFloat
	VString
	VTimestamp
	VList
	VRank // a pseudo-numeric kind used only for edge rank columns
)

// Value is the tagged union carried through rows, index keys and
// expressions. It intentionally mirrors the small, closed set of scalar
// kinds the wire protocol needs rather than a general-purpose any.
type Value struct {
	Kind ValueKind
	B    bool
	I    int64
	F    float64
	S    string
	T    time.Time
	L    []Value
}

func NullValue() Value               { return Value{Kind: VNull} }
func BoolValue(b bool) Value         { return Value{Kind: VBool, B: b} }
func IntValue(i int64) Value         { return Value{Kind: VInt, I: i} }
func FloatValue(f float64) Value     { return Value{Kind: VFloat, F: f} }
func StringValue(s string) Value     { return Value{Kind: VString, S: s} }
func RankValue(i int64) Value        { return Value{Kind: VRank, I: i} }
func ListValue(vs ...Value) Value    { return Value{Kind: VList, L: vs} }
func TimestampValue(t time.Time) Value { return Value{Kind: VTimestamp, T: t} }

func (v Value) IsNull() bool { return v.Kind == VNull }

// Truthy implements the "filter returning null is false" rule: only
// VBool true, or a non-zero numeric, counts as true.
func (v Value) Truthy() bool {
	switch v.Kind {
	case VBool:
		return v.B
	case VInt, VRank:
		return v.I != 0
	case VFloat:
		return v.F != 0
	case VNull:
		return false
	default:
		return false
	}
}

// Numeric reports whether the value can participate in a numeric
// aggregate, and its float64 projection.
func (v Value) Numeric() (float64, bool) {
	switch v.Kind {
	case VInt, VRank:
		return float64(v.I), true
	case VFloat:
		return v.F, true
	default:
		return 0, false
	}
}

// Compare orders two values of the same kind ascending; used by the row
// codec's index-key encoding and by DeDupNode/ORDER-adjacent operators.
// Values of differing kind compare by kind tag, with VNull always least
// so nullable columns sort before any value.
func (v Value) Compare(o Value) int {
	if v.Kind == VNull || o.Kind == VNull {
		if v.Kind == o.Kind {
			return 0
		}
		if v.Kind == VNull {
			return -1
		}
		return 1
	}
	if v.Kind != o.Kind {
		if v.Kind < o.Kind {
			return -1
		}
		return 1
	}
	switch v.Kind {
	case VBool:
		if v.B == o.B {
			return 0
		}
		if !v.B {
			return -1
		}
		return 1
	case VInt, VRank:
		switch {
		case v.I < o.I:
			return -1
		case v.I > o.I:
			return 1
		default:
			return 0
		}
	case VFloat:
		switch {
		case v.F < o.F:
			return -1
		case v.F > o.F:
			return 1
		default:
			return 0
		}
	case VString:
		switch {
		case v.S < o.S:
			return -1
		case v.S > o.S:
			return 1
		default:
			return 0
		}
	case VTimestamp:
		if v.T.Before(o.T) {
			return -1
		}
		if v.T.After(o.T) {
			return 1
		}
		return 0
	default:
		return 0
	}
}

func (v Value) Equal(o Value) bool { return v.Compare(o) == 0 }

func (v Value) String() string {
	switch v.Kind {
	case VNull:
		return "NULL"
	case VBool:
		return fmt.Sprintf("%t", v.B)
	case VInt, VRank:
		return fmt.Sprintf("%d", v.I)
	case VFloat:
		return fmt.Sprintf("%g", v.F)
	case VString:
		return v.S
	case VTimestamp:
		return v.T.Format(time.RFC3339)
	case VList:
		return fmt.Sprintf("%v", v.L)
	default:
		return "<unknown>"
	}
}
