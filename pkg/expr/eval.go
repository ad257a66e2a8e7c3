package expr

import "github.com/cuemby/graphcore/pkg/types"

// Evaluate walks e against ctx. A null operand makes comparisons and
// arithmetic evaluate to null without an error (callers treat a null
// filter result as false). Operand types an operator cannot reconcile
// return an error tagged CodeInvalidFilter; callers in pkg/exec translate
// that into the "mark ILLEGAL_DATA and abort this input" rule rather than
// a hard fault.
func Evaluate(e *Expr, ctx *Context) (types.Value, error) {
	if e == nil {
		return types.NullValue(), nil
	}
	switch e.Kind {
	case KindLiteral:
		return e.Literal, nil

	case KindSrcProp, KindTagProp:
		return ctx.tagProp(e.Name1, e.Name2), nil
	case KindDstProp:
		return ctx.tagProp(e.Name1, e.Name2), nil
	case KindEdgeProp:
		return ctx.edgeProp(e.Name1, e.Name2), nil
	case KindPseudoColumn:
		return ctx.pseudoColumn(e.Name1), nil
	case KindVar:
		return ctx.variable(e.Name1), nil

	case KindUnary:
		return evalUnary(e, ctx)
	case KindBinary:
		return evalBinary(e, ctx)
	case KindLogical:
		return evalLogical(e, ctx)
	case KindList:
		items := make([]types.Value, 0, len(e.Items))
		for _, child := range e.Items {
			v, err := Evaluate(child, ctx)
			if err != nil {
				return types.Value{}, err
			}
			items = append(items, v)
		}
		return types.ListValue(items...), nil

	default:
		return types.Value{}, types.NewError(types.CodeInvalidFilter, "expr.Evaluate", errTrailing("unknown expression kind"))
	}
}

func evalUnary(e *Expr, ctx *Context) (types.Value, error) {
	v, err := Evaluate(e.Left, ctx)
	if err != nil {
		return types.Value{}, err
	}
	switch e.Unary {
	case OpNot:
		if v.IsNull() {
			return types.NullValue(), nil
		}
		return types.BoolValue(!v.Truthy()), nil
	case OpNeg:
		switch v.Kind {
		case types.VInt, types.VRank:
			return types.IntValue(-v.I), nil
		case types.VFloat:
			return types.FloatValue(-v.F), nil
		case types.VNull:
			return types.NullValue(), nil
		default:
			return types.Value{}, types.NewError(types.CodeInvalidFilter, "expr.evalUnary", errTrailing("negation of non-numeric value"))
		}
	default:
		return types.Value{}, types.NewError(types.CodeInvalidFilter, "expr.evalUnary", errTrailing("unknown unary operator"))
	}
}

func evalLogical(e *Expr, ctx *Context) (types.Value, error) {
	left, err := Evaluate(e.Left, ctx)
	if err != nil {
		return types.Value{}, err
	}
	// Short-circuit exactly as a relational engine would: AND with a
	// false left operand, or OR with a true one, never evaluates Right.
	switch e.Binary {
	case OpAnd:
		if !left.IsNull() && !left.Truthy() {
			return types.BoolValue(false), nil
		}
	case OpOr:
		if !left.IsNull() && left.Truthy() {
			return types.BoolValue(true), nil
		}
	default:
		return types.Value{}, types.NewError(types.CodeInvalidFilter, "expr.evalLogical", errTrailing("unknown logical operator"))
	}

	right, err := Evaluate(e.Right, ctx)
	if err != nil {
		return types.Value{}, err
	}
	if left.IsNull() || right.IsNull() {
		return types.NullValue(), nil
	}
	switch e.Binary {
	case OpAnd:
		return types.BoolValue(left.Truthy() && right.Truthy()), nil
	case OpOr:
		return types.BoolValue(left.Truthy() || right.Truthy()), nil
	default:
		return types.Value{}, types.NewError(types.CodeInvalidFilter, "expr.evalLogical", errTrailing("unknown logical operator"))
	}
}

func evalBinary(e *Expr, ctx *Context) (types.Value, error) {
	left, err := Evaluate(e.Left, ctx)
	if err != nil {
		return types.Value{}, err
	}
	right, err := Evaluate(e.Right, ctx)
	if err != nil {
		return types.Value{}, err
	}

	switch e.Binary {
	case OpEQ:
		if left.IsNull() || right.IsNull() {
			return types.NullValue(), nil
		}
		return types.BoolValue(left.Equal(right)), nil
	case OpNE:
		if left.IsNull() || right.IsNull() {
			return types.NullValue(), nil
		}
		return types.BoolValue(!left.Equal(right)), nil
	case OpLT, OpLE, OpGT, OpGE:
		if left.IsNull() || right.IsNull() {
			return types.NullValue(), nil
		}
		c := left.Compare(right)
		switch e.Binary {
		case OpLT:
			return types.BoolValue(c < 0), nil
		case OpLE:
			return types.BoolValue(c <= 0), nil
		case OpGT:
			return types.BoolValue(c > 0), nil
		default:
			return types.BoolValue(c >= 0), nil
		}
	case OpAdd:
		if left.Kind == types.VString && right.Kind == types.VString {
			return types.StringValue(left.S + right.S), nil
		}
		return arith(left, right, func(a, b float64) float64 { return a + b })
	case OpSub:
		return arith(left, right, func(a, b float64) float64 { return a - b })
	case OpMul:
		return arith(left, right, func(a, b float64) float64 { return a * b })
	case OpDiv:
		return arith(left, right, func(a, b float64) float64 { return a / b })
	case OpMod:
		li, lok := asInt(left)
		ri, rok := asInt(right)
		if !lok || !rok {
			return types.Value{}, types.NewError(types.CodeInvalidFilter, "expr.evalBinary", errTrailing("modulo requires integer operands"))
		}
		if ri == 0 {
			return types.Value{}, types.NewError(types.CodeInvalidFilter, "expr.evalBinary", errTrailing("modulo by zero"))
		}
		return types.IntValue(li % ri), nil
	default:
		return types.Value{}, types.NewError(types.CodeInvalidFilter, "expr.evalBinary", errTrailing("unknown binary operator"))
	}
}

func arith(left, right types.Value, f func(a, b float64) float64) (types.Value, error) {
	if left.IsNull() || right.IsNull() {
		return types.NullValue(), nil
	}
	lf, lok := left.Numeric()
	rf, rok := right.Numeric()
	if !lok || !rok {
		return types.Value{}, types.NewError(types.CodeInvalidFilter, "expr.arith", errTrailing("arithmetic on non-numeric value"))
	}
	result := f(lf, rf)
	if left.Kind == types.VInt && right.Kind == types.VInt && result == float64(int64(result)) {
		return types.IntValue(int64(result)), nil
	}
	return types.FloatValue(result), nil
}

func asInt(v types.Value) (int64, bool) {
	switch v.Kind {
	case types.VInt, types.VRank:
		return v.I, true
	default:
		return 0, false
	}
}
