package expr

import (
	"encoding/binary"
	"math"

	"github.com/cuemby/graphcore/pkg/types"
)

// The tests in this package build expressions with these helpers rather
// than hand-encoding bytes everywhere; they mirror exactly what Decode
// must accept, so a bug in one is caught by the other's round-trip.

func encodeNode(e testNode) []byte {
	switch e.kind {
	case KindLiteral:
		return append([]byte{byte(KindLiteral)}, encodeValue(e.lit)...)
	case KindSrcProp, KindDstProp, KindTagProp, KindEdgeProp:
		out := []byte{byte(e.kind)}
		out = append(out, encodeStr(e.n1)...)
		out = append(out, encodeStr(e.n2)...)
		return out
	case KindPseudoColumn, KindVar:
		out := []byte{byte(e.kind)}
		out = append(out, encodeStr(e.n1)...)
		return out
	case KindUnary:
		out := []byte{byte(KindUnary), byte(e.uop)}
		return append(out, encodeNode(*e.left)...)
	case KindBinary, KindLogical:
		out := []byte{byte(e.kind), byte(e.bop)}
		out = append(out, encodeNode(*e.left)...)
		out = append(out, encodeNode(*e.right)...)
		return out
	case KindList:
		out := []byte{byte(KindList)}
		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(e.items)))
		out = append(out, lenBuf[:]...)
		for _, item := range e.items {
			out = append(out, encodeNode(item)...)
		}
		return out
	default:
		panic("unhandled test node kind")
	}
}

func encodeStr(s string) []byte {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(s)))
	return append(lenBuf[:], []byte(s)...)
}

func encodeValue(v types.Value) []byte {
	switch v.Kind {
	case types.VNull:
		return []byte{byte(types.VNull)}
	case types.VBool:
		b := byte(0)
		if v.B {
			b = 1
		}
		return []byte{byte(types.VBool), b}
	case types.VInt:
		out := []byte{byte(types.VInt)}
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(v.I))
		return append(out, buf[:]...)
	case types.VFloat:
		out := []byte{byte(types.VFloat)}
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], math.Float64bits(v.F))
		return append(out, buf[:]...)
	case types.VString:
		return append([]byte{byte(types.VString)}, encodeStr(v.S)...)
	default:
		panic("unhandled test value kind")
	}
}

type testNode struct {
	kind  Kind
	lit   types.Value
	n1    string
	n2    string
	uop   UnaryOp
	bop   BinaryOp
	left  *testNode
	right *testNode
	items []testNode
}

func lit(v types.Value) testNode           { return testNode{kind: KindLiteral, lit: v} }
func tagProp(tag, prop string) testNode    { return testNode{kind: KindTagProp, n1: tag, n2: prop} }
func edgeProp(edge, prop string) testNode  { return testNode{kind: KindEdgeProp, n1: edge, n2: prop} }
func pseudoCol(name string) testNode       { return testNode{kind: KindPseudoColumn, n1: name} }
func unary(op UnaryOp, child testNode) testNode {
	return testNode{kind: KindUnary, uop: op, left: &child}
}
func binary_(op BinaryOp, l, r testNode) testNode {
	return testNode{kind: KindBinary, bop: op, left: &l, right: &r}
}
func logical(op BinaryOp, l, r testNode) testNode {
	return testNode{kind: KindLogical, bop: op, left: &l, right: &r}
}
