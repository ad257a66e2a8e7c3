package exec

import (
	"github.com/cuemby/graphcore/pkg/expr"
	"github.com/cuemby/graphcore/pkg/types"
)

// AggFunc enumerates the accepted stat-column accumulators.
type AggFunc uint8

const (
	AggSum AggFunc = iota
	AggCount
	AggAvg
	AggMin
	AggMax
)

// StatSpec names one declared stat column: the accumulator and the
// per-row expression it evaluates, typically an edge property.
type StatSpec struct {
	Name   string
	Func   AggFunc
	Source *expr.Expr
}

// AggregateNode drains a FilterNode's entire filtered edge cursor for
// one vid and produces one value per declared stat column. It runs
// downstream of filtering, matching the plan-builder ordering where a
// filtered-out row never contributes to a stat: COUNT, SUM, AVG, MIN
// and MAX all only ever see rows that already passed FilterNode.
type AggregateNode struct {
	base
	Stats []StatSpec
	Input *FilterNode

	result []types.Value
}

func NewAggregateNode(input *FilterNode, stats []StatSpec) *AggregateNode {
	return &AggregateNode{base: newBase("AggregateNode", input), Stats: stats, Input: input}
}

func (n *AggregateNode) Execute(ctx *RuntimeContext, part types.PartitionID, vid types.Value) error {
	return n.runTimed(ctx, part, vid, func() error {
		accs := make([]aggState, len(n.Stats))
		for n.Input.Next(ctx) {
			for i, st := range n.Stats {
				v, err := expr.Evaluate(st.Source, ctx.Vars)
				if err != nil {
					ctx.IllegalDataCount++
					continue
				}
				accs[i].accumulate(st.Func, v)
			}
		}
		if err := n.Input.Err(); err != nil {
			return err
		}
		n.result = make([]types.Value, len(n.Stats))
		for i, st := range n.Stats {
			n.result[i] = accs[i].materialize(st.Func)
		}
		return nil
	})
}

// Value implements QueryNode: the stat list in declared order, or
// VNull if no stat columns were requested.
func (n *AggregateNode) Value() types.Value {
	if len(n.Stats) == 0 {
		return types.NullValue()
	}
	return types.ListValue(n.result...)
}

type aggState struct {
	sum        float64
	count      int64
	min, max   types.Value
	haveMinMax bool
}

// accumulate folds one row's evaluated value in. COUNT accepts any
// type, including RANK, and is incremented regardless of whether the
// value is numeric; every other accumulator silently skips a
// non-numeric value rather than erroring, since a stat column is
// declared against a single field whose type is already known to be
// numeric by the time the plan reaches here.
func (a *aggState) accumulate(f AggFunc, v types.Value) {
	if f == AggCount {
		a.count++
		return
	}
	n, ok := v.Numeric()
	if !ok {
		return
	}
	a.count++
	a.sum += n
	if !a.haveMinMax {
		a.min, a.max = v, v
		a.haveMinMax = true
		return
	}
	if v.Compare(a.min) < 0 {
		a.min = v
	}
	if v.Compare(a.max) > 0 {
		a.max = v
	}
}

func (a *aggState) materialize(f AggFunc) types.Value {
	switch f {
	case AggSum:
		if a.count == 0 {
			return types.IntValue(0)
		}
		return types.FloatValue(a.sum)
	case AggCount:
		return types.IntValue(a.count)
	case AggAvg:
		if a.count == 0 {
			return types.NullValue()
		}
		return types.FloatValue(a.sum / float64(a.count))
	case AggMin:
		if !a.haveMinMax {
			return types.NullValue()
		}
		return a.min
	case AggMax:
		if !a.haveMinMax {
			return types.NullValue()
		}
		return a.max
	default:
		return types.NullValue()
	}
}
