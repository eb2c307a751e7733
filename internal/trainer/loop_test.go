package trainer

import (
	"context"
	"math"
	"testing"

	"eqprop-forge/internal/network"
)

type stubEdge struct {
	pair  network.NodePair
	value *float64
}

func (e stubEdge) Value() float64        { return *e.value }
func (e stubEdge) Terminals() (int, int) { return e.pair.Pos, e.pair.Neg }

// stubNetwork returns canned equilibrium states and records what the trainer
// asked for.
type stubNetwork struct {
	nodes   int
	pairs   []network.NodePair
	values  []float64
	inputs  []network.NodePair
	outputs []network.NodePair

	free    []float64
	clamped []float64

	solveInputs [][]float64
	clamps      [][]float64
	solves      int
}

func newStubNetwork() *stubNetwork {
	return &stubNetwork{
		nodes:   2,
		pairs:   []network.NodePair{{Pos: 1, Neg: 0}},
		values:  []float64{1.0},
		inputs:  []network.NodePair{{Pos: 1, Neg: 0}},
		outputs: []network.NodePair{{Pos: 1, Neg: 0}},
		free:    []float64{0, 0.5},
		clamped: []float64{0, 0.8},
	}
}

func (s *stubNetwork) NumNodes() int              { return s.nodes }
func (s *stubNetwork) Inputs() []network.NodePair { return s.inputs }

func (s *stubNetwork) Outputs() []network.NodePair { return s.outputs }

func (s *stubNetwork) Edges() []network.Edge {
	edges := make([]network.Edge, len(s.pairs))
	for i := range s.pairs {
		edges[i] = stubEdge{pair: s.pairs[i], value: &s.values[i]}
	}
	return edges
}

func (s *stubNetwork) Solve(_ context.Context, x []float64, outputClamp []float64) ([]float64, error) {
	s.solves++
	s.solveInputs = append(s.solveInputs, append([]float64(nil), x...))
	if outputClamp == nil {
		return append([]float64(nil), s.free...), nil
	}
	s.clamps = append(s.clamps, append([]float64(nil), outputClamp...))
	return append([]float64(nil), s.clamped...), nil
}

func (s *stubNetwork) Predict(_ context.Context, xs [][]float64) ([][]float64, error) {
	out := make([][]float64, len(xs))
	for i := range xs {
		out[i] = network.OutputsOf(s, s.free)
	}
	return out, nil
}

func (s *stubNetwork) Update(deltas []float64) error {
	for i, d := range deltas {
		s.values[i] += d
	}
	return nil
}

func batch(n int) (xs, ys [][]float64) {
	for i := 0; i < n; i++ {
		v := float64(i+1) / float64(n)
		xs = append(xs, []float64{v})
		ys = append(ys, []float64{v})
	}
	return xs, ys
}

func TestZeroGammaLeavesWeights(t *testing.T) {
	net := newStubNetwork()
	xs, ys := batch(4)
	before := append([]float64(nil), net.values...)

	_, err := Train(context.Background(), net, xs, ys, Options{Epochs: 3, Gamma: 0, Eta: 0.5})
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	for i := range before {
		if net.values[i] != before[i] {
			t.Fatalf("edge %d changed with gamma=0: %f -> %f", i, before[i], net.values[i])
		}
	}
}

func TestUpdateFormulaExactness(t *testing.T) {
	net := newStubNetwork()
	xs, ys := batch(1)
	gamma := 0.1

	hist, err := Train(context.Background(), net, xs, ys, Options{Epochs: 1, Gamma: gamma, Eta: 0.5})
	if err != nil {
		t.Fatalf("train: %v", err)
	}

	df := net.free[1] - net.free[0]
	dc := net.clamped[1] - net.clamped[0]
	want := -gamma * (dc*dc - df*df)
	got := hist.Updates[0][0][0]
	if math.Abs(got-want) > 1e-15 {
		t.Fatalf("update = %g, want %g", got, want)
	}
	if w := hist.Weights[1][0][0]; math.Abs(w-(1.0+want)) > 1e-15 {
		t.Fatalf("post-update weight = %g, want %g", w, 1.0+want)
	}
}

func TestEtaBoundaries(t *testing.T) {
	// eta=0: nudge equals the free-phase prediction; with a solver that is
	// idempotent under equal clamps the update is exactly zero.
	net := newStubNetwork()
	net.clamped = append([]float64(nil), net.free...)
	xs, ys := batch(1)

	hist, err := Train(context.Background(), net, xs, ys, Options{Epochs: 1, Gamma: 0.1, Eta: 0})
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	pred := net.free[1] - net.free[0]
	if got := net.clamps[0][0]; got != pred {
		t.Fatalf("eta=0 nudge = %g, want free prediction %g", got, pred)
	}
	if got := hist.Updates[0][0][0]; got != 0 {
		t.Fatalf("eta=0 update = %g, want 0", got)
	}

	// eta=1: nudge equals the target exactly.
	net = newStubNetwork()
	_, err = Train(context.Background(), net, xs, ys, Options{Epochs: 1, Gamma: 0.1, Eta: 1})
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if got := net.clamps[0][0]; got != ys[0][0] {
		t.Fatalf("eta=1 nudge = %g, want target %g", got, ys[0][0])
	}
}

func freePhaseOrder(s *stubNetwork) []float64 {
	var order []float64
	// free and clamped solves alternate; the free solve carries the sample
	for i := 0; i < len(s.solveInputs); i += 2 {
		order = append(order, s.solveInputs[i][0])
	}
	return order
}

func TestNoShuffleKeepsOrder(t *testing.T) {
	net := newStubNetwork()
	xs, ys := batch(4)

	_, err := Train(context.Background(), net, xs, ys, Options{Epochs: 2, Gamma: 0.1, Eta: 0.5})
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	order := freePhaseOrder(net)
	if len(order) != 8 {
		t.Fatalf("expected 8 free solves, got %d", len(order))
	}
	for i, v := range order {
		if want := xs[i%4][0]; v != want {
			t.Fatalf("solve %d used sample %g, want %g", i, v, want)
		}
	}
}

func TestShuffleIsSeedDeterministic(t *testing.T) {
	run := func(seed int64) []float64 {
		net := newStubNetwork()
		xs, ys := batch(6)
		_, err := Train(context.Background(), net, xs, ys, Options{
			Epochs: 3, Gamma: 0.1, Eta: 0.5, Shuffle: true, Seed: seed,
		})
		if err != nil {
			t.Fatalf("train: %v", err)
		}
		return freePhaseOrder(net)
	}

	a, b := run(7), run(7)
	if len(a) != len(b) {
		t.Fatalf("runs differ in length: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed diverged at solve %d: %g vs %g", i, a[i], b[i])
		}
	}
}

func TestHistoryShapes(t *testing.T) {
	net := newStubNetwork()
	xs, ys := batch(4)
	checkpoints := []int{0, 2}

	hist, err := Train(context.Background(), net, xs, ys, Options{
		Epochs: 5, Gamma: 0.1, Eta: 0.5, Checkpoints: checkpoints,
	})
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if len(hist.Loss) != 6 {
		t.Fatalf("loss length = %d, want 6", len(hist.Loss))
	}
	if len(hist.Weights) != 3 || len(hist.Updates) != 2 {
		t.Fatalf("got %d weight slabs and %d update slabs, want 3 and 2", len(hist.Weights), len(hist.Updates))
	}
	for _, slab := range hist.Weights {
		if len(slab) != 4 || len(slab[0]) != 1 {
			t.Fatalf("weight slab shape [%d][%d], want [4][1]", len(slab), len(slab[0]))
		}
	}
	for i := range hist.Weights[0] {
		if hist.Weights[0][i][0] != 1.0 {
			t.Fatalf("initial snapshot sample %d = %g, want 1.0", i, hist.Weights[0][i][0])
		}
	}
}

func TestValidationRejectsBeforeSolving(t *testing.T) {
	xs, ys := batch(4)
	cases := []struct {
		name string
		xs   [][]float64
		ys   [][]float64
		opts Options
	}{
		{"zero epochs", xs, ys, Options{Epochs: 0, Gamma: 0.1}},
		{"length mismatch", xs, ys[:3], Options{Epochs: 1, Gamma: 0.1}},
		{"arity mismatch", [][]float64{{1, 2}}, [][]float64{{1}}, Options{Epochs: 1, Gamma: 0.1}},
		{"checkpoint out of range", xs, ys, Options{Epochs: 2, Gamma: 0.1, Checkpoints: []int{2}}},
		{"negative lambda", xs, ys, Options{Epochs: 1, Gamma: 0.1, Lambda: -1}},
	}
	for _, tc := range cases {
		net := newStubNetwork()
		if _, err := Train(context.Background(), net, tc.xs, tc.ys, tc.opts); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if net.solves != 0 {
			t.Fatalf("%s: %d solves ran before validation failed", tc.name, net.solves)
		}
	}
}

func TestTwoNodeIdentityFixedPoint(t *testing.T) {
	net, err := network.NewLinear(2)
	if err != nil {
		t.Fatalf("new network: %v", err)
	}
	for _, e := range []error{
		net.AddEdge(1, 0, 1.0),
		net.AddInput(1, 0),
		net.AddOutput(1, 0),
	} {
		if e != nil {
			t.Fatalf("build network: %v", e)
		}
	}
	xs, ys := batch(4)

	hist, err := Train(context.Background(), net, xs, ys, Options{Epochs: 5, Gamma: 0.1, Eta: 0.5})
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	// The output pair is the clamped input pair, so the network already
	// realizes the identity map: loss stays at zero and the edge is stable.
	for i, loss := range hist.Loss {
		if loss > 1e-12 {
			t.Fatalf("loss[%d] = %g, want ~0", i, loss)
		}
	}
	for i := 1; i < len(hist.Loss); i++ {
		if hist.Loss[i] > hist.Loss[i-1]+1e-12 {
			t.Fatalf("loss increased at epoch %d: %g -> %g", i, hist.Loss[i-1], hist.Loss[i])
		}
	}
	if g := net.Edges()[0].Value(); math.Abs(g-1.0) > 1e-9 {
		t.Fatalf("edge drifted from fixed point: %g", g)
	}
}

func TestDividerLearnsAttenuation(t *testing.T) {
	net, err := network.NewLinear(3)
	if err != nil {
		t.Fatalf("new network: %v", err)
	}
	for _, e := range []error{
		net.AddEdge(1, 2, 1.0),
		net.AddEdge(2, 0, 1.0),
		net.AddInput(1, 0),
		net.AddOutput(2, 0),
	} {
		if e != nil {
			t.Fatalf("build network: %v", e)
		}
	}

	// divider starts at 0.5x; teach it 0.25x
	var xs, ys [][]float64
	for _, v := range []float64{0.25, 0.5, 0.75, 1.0} {
		xs = append(xs, []float64{v})
		ys = append(ys, []float64{0.25 * v})
	}

	hist, err := Train(context.Background(), net, xs, ys, Options{Epochs: 20, Gamma: 0.2, Eta: 0.5})
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	first, last := hist.Loss[0], hist.Loss[len(hist.Loss)-1]
	if last >= first {
		t.Fatalf("loss did not decrease: %g -> %g", first, last)
	}
	ga := net.Edges()[0].Value()
	gb := net.Edges()[1].Value()
	ratio := ga / (ga + gb)
	if math.Abs(ratio-0.25) >= math.Abs(0.5-0.25) {
		t.Fatalf("divider ratio %g did not move toward 0.25", ratio)
	}
}
