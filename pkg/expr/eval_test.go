package expr

import (
	"testing"

	"github.com/cuemby/graphcore/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, n testNode) *Expr {
	t.Helper()
	e, err := Decode(encodeNode(n), nil)
	require.NoError(t, err)
	return e
}

func TestEvaluateTagPropComparison(t *testing.T) {
	ctx := NewContext()
	ctx.SetTagProp("player", "age", types.IntValue(30))

	e := decode(t, binary_(OpGE, tagProp("player", "age"), lit(types.IntValue(18))))
	v, err := Evaluate(e, ctx)
	require.NoError(t, err)
	assert.Equal(t, types.BoolValue(true), v)
}

func TestEvaluateEdgePropAndPseudoColumn(t *testing.T) {
	ctx := NewContext()
	ctx.SetEdgeProp("follow", "degree", types.IntValue(90))
	ctx.SetPseudoColumn("_dst", types.StringValue("Bob"))

	e := decode(t, logical(OpAnd,
		binary_(OpGE, edgeProp("follow", "degree"), lit(types.IntValue(80))),
		binary_(OpEQ, pseudoCol("_dst"), lit(types.StringValue("Bob"))),
	))
	v, err := Evaluate(e, ctx)
	require.NoError(t, err)
	assert.Equal(t, types.BoolValue(true), v)
}

func TestEvaluateUnboundPropIsNullAndFilterTreatsItAsFalse(t *testing.T) {
	ctx := NewContext()
	e := decode(t, binary_(OpGE, tagProp("player", "age"), lit(types.IntValue(18))))
	v, err := Evaluate(e, ctx)
	require.NoError(t, err)
	assert.True(t, v.IsNull())
	assert.False(t, v.Truthy())
}

func TestEvaluateLogicalAndShortCircuitsOnFalseLeft(t *testing.T) {
	ctx := NewContext()
	// An unbound prop on the right would only evaluate to null, so assert
	// via a poisoned tree that would error if evaluated: modulo by zero.
	poison := binary_(OpMod, lit(types.IntValue(1)), lit(types.IntValue(0)))
	e := decode(t, logical(OpAnd, lit(types.BoolValue(false)), poison))
	v, err := Evaluate(e, ctx)
	require.NoError(t, err)
	assert.Equal(t, types.BoolValue(false), v)
}

func TestEvaluateArithmeticPreservesIntWhenExact(t *testing.T) {
	ctx := NewContext()
	e := decode(t, binary_(OpAdd, lit(types.IntValue(2)), lit(types.IntValue(3))))
	v, err := Evaluate(e, ctx)
	require.NoError(t, err)
	assert.Equal(t, types.VInt, v.Kind)
	assert.Equal(t, int64(5), v.I)
}

func TestEvaluateDivisionProducesFloat(t *testing.T) {
	ctx := NewContext()
	e := decode(t, binary_(OpDiv, lit(types.IntValue(7)), lit(types.IntValue(2))))
	v, err := Evaluate(e, ctx)
	require.NoError(t, err)
	assert.Equal(t, types.VFloat, v.Kind)
	assert.InDelta(t, 3.5, v.F, 0.0001)
}

func TestEvaluateModuloByZeroErrors(t *testing.T) {
	ctx := NewContext()
	e := decode(t, binary_(OpMod, lit(types.IntValue(5)), lit(types.IntValue(0))))
	_, err := Evaluate(e, ctx)
	require.Error(t, err)
	assert.Equal(t, types.CodeInvalidFilter, types.CodeOf(err))
}

func TestEvaluateUnaryNot(t *testing.T) {
	ctx := NewContext()
	e := decode(t, unary(OpNot, lit(types.BoolValue(false))))
	v, err := Evaluate(e, ctx)
	require.NoError(t, err)
	assert.Equal(t, types.BoolValue(true), v)
}

func TestContextResetClearsAllBindings(t *testing.T) {
	ctx := NewContext()
	ctx.SetTagProp("player", "age", types.IntValue(30))
	ctx.SetEdgeProp("follow", "degree", types.IntValue(1))
	ctx.SetPseudoColumn("_vid", types.StringValue("Ann"))
	ctx.SetVar("a", types.IntValue(1))

	ctx.Reset()

	assert.True(t, ctx.tagProp("player", "age").IsNull())
	assert.True(t, ctx.edgeProp("follow", "degree").IsNull())
	assert.True(t, ctx.pseudoColumn("_vid").IsNull())
	assert.True(t, ctx.variable("a").IsNull())
}
