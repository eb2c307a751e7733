package network

import "context"

// NodePair addresses a potential difference between two node indices.
// Conventionally Pos carries the higher potential when the pair is driven.
type NodePair struct {
	Pos int
	Neg int
}

// Edge is one trainable element of a physical network.
type Edge interface {
	// Value returns the current parameter value (e.g. a conductance).
	Value() float64
	// Terminals returns the endpoint node indices, positive first.
	Terminals() (pos, neg int)
}

// Network is the capability interface the trainer depends on. A concrete
// network owns its topology and its relaxation mechanics; the trainer only
// reads topology and calls Solve, Predict and Update.
type Network interface {
	// NumNodes returns the number of potential variables.
	NumNodes() int
	// Edges returns the trainable elements in a fixed order.
	Edges() []Edge
	// Inputs returns the forced boundary node pairs, one per input feature.
	Inputs() []NodePair
	// Outputs returns the read node pairs, one per output dimension.
	Outputs() []NodePair

	// Solve relaxes the network to equilibrium with the inputs clamped to x.
	// A non-nil outputClamp additionally forces each output pair to the given
	// value. The result has exactly NumNodes entries, all finite.
	Solve(ctx context.Context, x []float64, outputClamp []float64) ([]float64, error)

	// Predict runs a free-phase solve per sample and reads the output pair
	// differences. It never mutates the network.
	Predict(ctx context.Context, xs [][]float64) ([][]float64, error)

	// Update applies one delta per edge, in edge order, in place.
	Update(deltas []float64) error
}

// OutputsOf reads the output pair differences from an equilibrium state.
func OutputsOf(net Network, state []float64) []float64 {
	pairs := net.Outputs()
	out := make([]float64, len(pairs))
	for i, p := range pairs {
		out[i] = state[p.Pos] - state[p.Neg]
	}
	return out
}
