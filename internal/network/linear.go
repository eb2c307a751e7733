package network

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/mat"
)

// Conductances below this floor are clamped so the nodal matrix stays
// well-posed after an aggressive update.
const minConductance = 1e-9

// resistor is one trainable conductance between two nodes.
type resistor struct {
	pair NodePair
	g    float64
}

func (r *resistor) Value() float64 { return r.g }

func (r *resistor) Terminals() (int, int) { return r.pair.Pos, r.pair.Neg }

// LinearNetwork is a resistive network solved by modified nodal analysis.
// Node 0 is the ground reference; inputs and output clamps act as ideal
// voltage sources across their node pairs.
type LinearNetwork struct {
	numNodes int
	elements []*resistor
	inputs   []NodePair
	outputs  []NodePair
}

// NewLinear returns an empty network with numNodes potential variables.
func NewLinear(numNodes int) (*LinearNetwork, error) {
	if numNodes < 2 {
		return nil, fmt.Errorf("network: need at least 2 nodes, got %d", numNodes)
	}
	return &LinearNetwork{numNodes: numNodes}, nil
}

func (n *LinearNetwork) checkPair(pos, neg int) error {
	if pos < 0 || pos >= n.numNodes || neg < 0 || neg >= n.numNodes {
		return fmt.Errorf("network: node pair (%d,%d) out of range [0,%d)", pos, neg, n.numNodes)
	}
	if pos == neg {
		return fmt.Errorf("network: node pair (%d,%d) is degenerate", pos, neg)
	}
	return nil
}

// AddEdge registers a trainable conductance g between pos and neg.
func (n *LinearNetwork) AddEdge(pos, neg int, g float64) error {
	if err := n.checkPair(pos, neg); err != nil {
		return err
	}
	if g <= 0 || math.IsInf(g, 0) || math.IsNaN(g) {
		return fmt.Errorf("network: conductance must be positive and finite, got %g", g)
	}
	n.elements = append(n.elements, &resistor{pair: NodePair{Pos: pos, Neg: neg}, g: g})
	return nil
}

// AddInput registers a forced boundary pair.
func (n *LinearNetwork) AddInput(pos, neg int) error {
	if err := n.checkPair(pos, neg); err != nil {
		return err
	}
	n.inputs = append(n.inputs, NodePair{Pos: pos, Neg: neg})
	return nil
}

// AddOutput registers a read pair.
func (n *LinearNetwork) AddOutput(pos, neg int) error {
	if err := n.checkPair(pos, neg); err != nil {
		return err
	}
	n.outputs = append(n.outputs, NodePair{Pos: pos, Neg: neg})
	return nil
}

func (n *LinearNetwork) NumNodes() int { return n.numNodes }

func (n *LinearNetwork) Inputs() []NodePair { return append([]NodePair(nil), n.inputs...) }

func (n *LinearNetwork) Outputs() []NodePair { return append([]NodePair(nil), n.outputs...) }

func (n *LinearNetwork) Edges() []Edge {
	edges := make([]Edge, len(n.elements))
	for i, e := range n.elements {
		edges[i] = e
	}
	return edges
}

// Solve assembles and solves the MNA system: N node equations plus one
// current unknown per voltage source, with node 0 pinned to zero.
func (n *LinearNetwork) Solve(ctx context.Context, x []float64, outputClamp []float64) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(x) != len(n.inputs) {
		return nil, fmt.Errorf("network: got %d input values, want %d", len(x), len(n.inputs))
	}
	if outputClamp != nil && len(outputClamp) != len(n.outputs) {
		return nil, fmt.Errorf("network: got %d output clamps, want %d", len(outputClamp), len(n.outputs))
	}
	if len(n.elements) == 0 {
		return nil, errors.New("network: no edges")
	}

	sources := n.assembleSources(x, outputClamp)
	dim := n.numNodes + len(sources)

	a := mat.NewDense(dim, dim, nil)
	b := mat.NewVecDense(dim, nil)

	for _, e := range n.elements {
		p, q := e.pair.Pos, e.pair.Neg
		a.Set(p, p, a.At(p, p)+e.g)
		a.Set(q, q, a.At(q, q)+e.g)
		a.Set(p, q, a.At(p, q)-e.g)
		a.Set(q, p, a.At(q, p)-e.g)
	}
	for k, s := range sources {
		row := n.numNodes + k
		a.Set(row, s.pair.Pos, 1)
		a.Set(row, s.pair.Neg, -1)
		a.Set(s.pair.Pos, row, 1)
		a.Set(s.pair.Neg, row, -1)
		b.SetVec(row, s.value)
	}
	// Ground reference: replace the KCL row of node 0 with V0 = 0.
	for j := 0; j < dim; j++ {
		a.Set(0, j, 0)
	}
	a.Set(0, 0, 1)
	b.SetVec(0, 0)

	var lu mat.LU
	lu.Factorize(a)
	sol := mat.NewVecDense(dim, nil)
	if err := lu.SolveVecTo(sol, false, b); err != nil {
		return nil, fmt.Errorf("network: nodal system is singular: %w", err)
	}

	state := make([]float64, n.numNodes)
	for i := range state {
		v := sol.AtVec(i)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("network: non-finite potential at node %d", i)
		}
		state[i] = v
	}
	return state, nil
}

type voltageSource struct {
	pair  NodePair
	value float64
}

// assembleSources merges input clamps with optional output clamps. An output
// clamp on the same ordered pair as an input clamp replaces it; stacking two
// sources across one pair would make the system singular.
func (n *LinearNetwork) assembleSources(x []float64, outputClamp []float64) []voltageSource {
	sources := make([]voltageSource, 0, len(n.inputs)+len(n.outputs))
	for i, p := range n.inputs {
		sources = append(sources, voltageSource{pair: p, value: x[i]})
	}
	if outputClamp == nil {
		return sources
	}
	for i, p := range n.outputs {
		replaced := false
		for k := range sources {
			if sources[k].pair == p {
				sources[k].value = outputClamp[i]
				replaced = true
				break
			}
		}
		if !replaced {
			sources = append(sources, voltageSource{pair: p, value: outputClamp[i]})
		}
	}
	return sources
}

// Predict solves the free phase for each sample and reads the output pairs.
// Samples are independent read-only solves, so they fan out across a small
// worker pool; results keep input order.
func (n *LinearNetwork) Predict(ctx context.Context, xs [][]float64) ([][]float64, error) {
	out := make([][]float64, len(xs))
	workers := runtime.NumCPU()
	if workers > len(xs) {
		workers = len(xs)
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan int)
	errCh := make(chan error, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			failed := false
			for idx := range jobs {
				if failed {
					continue
				}
				state, err := n.Solve(ctx, xs[idx], nil)
				if err != nil {
					errCh <- fmt.Errorf("sample %d: %w", idx, err)
					failed = true
					continue
				}
				out[idx] = OutputsOf(n, state)
			}
		}()
	}

	for idx := range xs {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return nil, ctx.Err()
		case jobs <- idx:
		}
	}
	close(jobs)
	wg.Wait()

	select {
	case err := <-errCh:
		return nil, err
	default:
	}
	for idx, row := range out {
		if row == nil {
			return nil, fmt.Errorf("network: sample %d was not solved", idx)
		}
	}
	return out, nil
}

// Update applies one delta per conductance, flooring the result so the
// nodal matrix stays well-posed.
func (n *LinearNetwork) Update(deltas []float64) error {
	if len(deltas) != len(n.elements) {
		return fmt.Errorf("network: got %d deltas for %d edges", len(deltas), len(n.elements))
	}
	for i, d := range deltas {
		if math.IsNaN(d) || math.IsInf(d, 0) {
			return fmt.Errorf("network: non-finite delta for edge %d", i)
		}
	}
	for i, d := range deltas {
		g := n.elements[i].g + d
		if g < minConductance {
			g = minConductance
		}
		n.elements[i].g = g
	}
	return nil
}
