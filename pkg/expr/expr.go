// Package expr decodes the filter and update expressions carried on
// get-neighbors, get-prop, update and lookup requests into an immutable
// tree, and evaluates that tree against a per-operator Context built from
// the current row(s) FilterNode, UpdateTagNode and UpdateResNode are
// positioned over.
package expr

import (
	"encoding/binary"
	"math"

	"github.com/cuemby/graphcore/pkg/types"
)

// Kind tags the node types a decoded expression tree can contain.
type Kind uint8

const (
	KindLiteral Kind = iota
	KindSrcProp
	KindDstProp
	KindTagProp
	KindEdgeProp
	KindPseudoColumn
	KindVar
	KindUnary
	KindBinary
	KindLogical
	KindList
)

// UnaryOp and BinaryOp enumerate the operators a Unary/Binary/Logical
// node may carry.
type UnaryOp uint8

const (
	OpNeg UnaryOp = iota
	OpNot
)

type BinaryOp uint8

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEQ
	OpNE
	OpLT
	OpLE
	OpGT
	OpGE
	OpAnd
	OpOr
)

// Expr is one node of a decoded expression tree. Every field not used by
// Kind is the zero value; the tree is built once by Decode and never
// mutated afterward, so it is safe to share across the operators that
// evaluate it against different rows within one request.
type Expr struct {
	Kind Kind

	Literal types.Value

	// Name1 is the tag/edge name for a prop reference, or the pseudo-column
	// / variable name for KindPseudoColumn / KindVar.
	Name1 string
	// Name2 is the property name for a prop reference.
	Name2 string

	Unary  UnaryOp
	Binary BinaryOp

	Left, Right *Expr
	Items       []*Expr
}

// ReservedPseudoColumns are the column names expression evaluation and
// IndexOutputNode recognize as positional, not schema-backed, fields.
var ReservedPseudoColumns = map[string]bool{
	"_vid": true, "_tag": true, "_src": true, "_type": true, "_rank": true, "_dst": true,
}

// Decode parses the wire encoding produced by the client-side query
// planner into an Expr tree rooted at the returned node. The encoding is
// a recursive, length-prefixed binary form: [1-byte kind]{kind-specific
// payload}. Pool, if non-nil, owns every node allocated during the
// decode so the caller can free the whole tree in one shot at request
// end instead of relying on GC to reclaim it piecemeal.
func Decode(raw []byte, pool *Pool) (*Expr, error) {
	e, rest, err := decodeNode(raw, pool)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, types.NewError(types.CodeInvalidFilter, "expr.Decode", errTrailing("trailing bytes after expression"))
	}
	return e, nil
}

func decodeNode(raw []byte, pool *Pool) (*Expr, []byte, error) {
	if len(raw) < 1 {
		return nil, nil, types.NewError(types.CodeInvalidFilter, "expr.decodeNode", errTrailing("empty expression"))
	}
	kind := Kind(raw[0])
	raw = raw[1:]
	e := pool.alloc()
	e.Kind = kind

	switch kind {
	case KindLiteral:
		v, rest, err := decodeValue(raw)
		if err != nil {
			return nil, nil, err
		}
		e.Literal = v
		return e, rest, nil

	case KindSrcProp, KindDstProp, KindTagProp, KindEdgeProp:
		n1, rest, err := decodeString(raw)
		if err != nil {
			return nil, nil, err
		}
		n2, rest2, err := decodeString(rest)
		if err != nil {
			return nil, nil, err
		}
		e.Name1, e.Name2 = n1, n2
		return e, rest2, nil

	case KindPseudoColumn, KindVar:
		n1, rest, err := decodeString(raw)
		if err != nil {
			return nil, nil, err
		}
		e.Name1 = n1
		return e, rest, nil

	case KindUnary:
		if len(raw) < 1 {
			return nil, nil, types.NewError(types.CodeInvalidFilter, "expr.decodeNode", errTrailing("truncated unary op"))
		}
		e.Unary = UnaryOp(raw[0])
		child, rest, err := decodeNode(raw[1:], pool)
		if err != nil {
			return nil, nil, err
		}
		e.Left = child
		return e, rest, nil

	case KindBinary, KindLogical:
		if len(raw) < 1 {
			return nil, nil, types.NewError(types.CodeInvalidFilter, "expr.decodeNode", errTrailing("truncated binary op"))
		}
		e.Binary = BinaryOp(raw[0])
		left, rest, err := decodeNode(raw[1:], pool)
		if err != nil {
			return nil, nil, err
		}
		right, rest2, err := decodeNode(rest, pool)
		if err != nil {
			return nil, nil, err
		}
		e.Left, e.Right = left, right
		return e, rest2, nil

	case KindList:
		if len(raw) < 4 {
			return nil, nil, types.NewError(types.CodeInvalidFilter, "expr.decodeNode", errTrailing("truncated list length"))
		}
		n := binary.BigEndian.Uint32(raw[:4])
		rest := raw[4:]
		items := make([]*Expr, 0, n)
		for i := uint32(0); i < n; i++ {
			item, next, err := decodeNode(rest, pool)
			if err != nil {
				return nil, nil, err
			}
			items = append(items, item)
			rest = next
		}
		e.Items = items
		return e, rest, nil

	default:
		return nil, nil, types.NewError(types.CodeInvalidFilter, "expr.decodeNode", errTrailing("unknown expression kind"))
	}
}

func decodeString(raw []byte) (string, []byte, error) {
	if len(raw) < 4 {
		return "", nil, types.NewError(types.CodeInvalidFilter, "expr.decodeString", errTrailing("truncated string length"))
	}
	n := int(binary.BigEndian.Uint32(raw[:4]))
	raw = raw[4:]
	if len(raw) < n {
		return "", nil, types.NewError(types.CodeInvalidFilter, "expr.decodeString", errTrailing("truncated string"))
	}
	return string(raw[:n]), raw[n:], nil
}

func decodeValue(raw []byte) (types.Value, []byte, error) {
	if len(raw) < 1 {
		return types.Value{}, nil, types.NewError(types.CodeInvalidFilter, "expr.decodeValue", errTrailing("truncated value tag"))
	}
	kind := types.ValueKind(raw[0])
	raw = raw[1:]
	switch kind {
	case types.VNull:
		return types.NullValue(), raw, nil
	case types.VBool:
		if len(raw) < 1 {
			return types.Value{}, nil, types.NewError(types.CodeInvalidFilter, "expr.decodeValue", errTrailing("truncated bool"))
		}
		return types.BoolValue(raw[0] != 0), raw[1:], nil
	case types.VInt:
		if len(raw) < 8 {
			return types.Value{}, nil, types.NewError(types.CodeInvalidFilter, "expr.decodeValue", errTrailing("truncated int"))
		}
		return types.IntValue(int64(binary.BigEndian.Uint64(raw[:8]))), raw[8:], nil
	case types.VFloat:
		if len(raw) < 8 {
			return types.Value{}, nil, types.NewError(types.CodeInvalidFilter, "expr.decodeValue", errTrailing("truncated float"))
		}
		return types.FloatValue(math.Float64frombits(binary.BigEndian.Uint64(raw[:8]))), raw[8:], nil
	case types.VString:
		s, rest, err := decodeString(raw)
		if err != nil {
			return types.Value{}, nil, err
		}
		return types.StringValue(s), rest, nil
	default:
		return types.Value{}, nil, types.NewError(types.CodeInvalidFilter, "expr.decodeValue", errTrailing("unsupported literal kind"))
	}
}

type errTrailing string

func (e errTrailing) Error() string { return string(e) }
