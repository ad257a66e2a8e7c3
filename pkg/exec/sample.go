package exec

import (
	"math/rand"

	"github.com/cuemby/graphcore/pkg/types"
)

// GetNeighborsSampleNode reservoir-samples up to Limit rows out of its
// input edge cursor, used when a get-neighbors request caps the number of
// edges returned per edge type rather than returning every edge. A Limit
// of zero or less disables sampling; every row is kept.
type GetNeighborsSampleNode struct {
	base
	Limit int
	Input *FilterNode
	rng   *rand.Rand

	reservoir []*edgeRow
	seen      int
}

// NewGetNeighborsSampleNode builds a sampler seeded by the caller, which
// derives seed from wall time once per request so every edge type in the
// same request draws from an independent but reproducible-within-request
// sequence.
func NewGetNeighborsSampleNode(input *FilterNode, limit int, seed int64) *GetNeighborsSampleNode {
	return &GetNeighborsSampleNode{
		base:  newBase("GetNeighborsSampleNode", input),
		Limit: limit,
		Input: input,
		rng:   rand.New(rand.NewSource(seed)),
	}
}

func (n *GetNeighborsSampleNode) Execute(ctx *RuntimeContext, part types.PartitionID, vid types.Value) error {
	return n.runTimed(ctx, part, vid, func() error {
		n.reservoir = n.reservoir[:0]
		n.seen = 0
		for n.Input.Next(ctx) {
			row := n.Input.Current()
			n.seen++
			if n.Limit <= 0 || len(n.reservoir) < n.Limit {
				n.reservoir = append(n.reservoir, row)
				continue
			}
			j := n.rng.Intn(n.seen)
			if j < n.Limit {
				n.reservoir[j] = row
			}
		}
		return n.Input.Err()
	})
}

// Rows returns the sampled edge rows, in reservoir order (not input order).
func (n *GetNeighborsSampleNode) Rows() []*edgeRow { return n.reservoir }

// Seen returns the total number of rows the underlying cursor produced,
// before sampling, for stats reporting.
func (n *GetNeighborsSampleNode) Seen() int { return n.seen }
