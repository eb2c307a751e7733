package trainer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"math/rand"
	"time"

	"eqprop-forge/internal/history"
	"eqprop-forge/internal/metrics"
	"eqprop-forge/internal/network"
)

// Options captures the knobs of one training run.
type Options struct {
	Epochs int
	// Gamma scales the contrastive update.
	Gamma float64
	// Eta blends the target into the nudge: eta*y + (1-eta)*prediction.
	Eta float64
	// Lambda is accepted for compatibility with the published training
	// entry point but has no effect on the update rule.
	Lambda float64
	// Checkpoints lists the epochs whose per-sample updates and weights
	// are recorded. Empty means every epoch.
	Checkpoints []int
	Shuffle     bool
	Seed        int64
}

// Train runs equilibrium-propagation training of net on the sample batch
// (xs, ys) and returns the filled history. The network is mutated in place;
// on error it is left in the state reached so far.
func Train(ctx context.Context, net network.Network, xs, ys [][]float64, opts Options) (*history.History, error) {
	cps, err := validate(net, xs, ys, opts)
	if err != nil {
		return nil, err
	}

	pos, neg := edgeTerminals(net)
	nEdges := len(pos)
	hist := history.New(opts.Epochs, len(xs), nEdges, cps)

	preds, err := net.Predict(ctx, xs)
	if err != nil {
		return nil, fmt.Errorf("initial prediction: %w", err)
	}
	hist.Loss[0] = meanSquaredError(ys, preds)
	hist.RecordInitial(edgeValues(net))

	var rng *rand.Rand
	if opts.Shuffle {
		rng = rand.New(rand.NewSource(opts.Seed))
	}
	order := make([]int, len(xs))
	for i := range order {
		order[i] = i
	}

	var window metrics.Window

	for epoch := 0; epoch < opts.Epochs; epoch++ {
		if len(net.Edges()) != nEdges {
			return nil, fmt.Errorf("trainer: edge count changed mid-run (%d -> %d)", nEdges, len(net.Edges()))
		}
		if opts.Shuffle {
			// one permutation applied jointly to inputs and targets
			rng.Shuffle(len(order), func(i, j int) {
				order[i], order[j] = order[j], order[i]
			})
		}

		for j, idx := range order {
			x, y := xs[idx], ys[idx]

			startFree := time.Now()
			free, err := net.Solve(ctx, x, nil)
			freeTime := time.Since(startFree)
			if err != nil {
				return nil, fmt.Errorf("free solve (epoch %d sample %d): %w", epoch, j, err)
			}
			if err := checkState(net, free); err != nil {
				return nil, fmt.Errorf("free solve (epoch %d sample %d): %w", epoch, j, err)
			}

			pred := network.OutputsOf(net, free)
			nudge := make([]float64, len(y))
			for k := range y {
				nudge[k] = opts.Eta*y[k] + (1-opts.Eta)*pred[k]
			}

			startClamped := time.Now()
			clamped, err := net.Solve(ctx, x, nudge)
			clampedTime := time.Since(startClamped)
			if err != nil {
				return nil, fmt.Errorf("clamped solve (epoch %d sample %d): %w", epoch, j, err)
			}
			if err := checkState(net, clamped); err != nil {
				return nil, fmt.Errorf("clamped solve (epoch %d sample %d): %w", epoch, j, err)
			}

			deltas := Deltas(opts.Gamma, free, clamped, pos, neg)
			if err := net.Update(deltas); err != nil {
				return nil, fmt.Errorf("update (epoch %d sample %d): %w", epoch, j, err)
			}
			window.Record(freeTime, clampedTime)

			if k, ok := cps.Index(epoch); ok {
				hist.RecordSample(k, j, deltas, edgeValues(net))
			}
		}

		preds, err := net.Predict(ctx, xs)
		if err != nil {
			return nil, fmt.Errorf("epoch %d prediction: %w", epoch, err)
		}
		loss := meanSquaredError(ys, preds)
		hist.Loss[epoch+1] = loss
		window.SetLoss(loss)

		if cps.Contains(epoch) {
			snap := window.Snapshot()
			log.Printf("epoch=%d loss=%.6f solves_per_sec=%.1f free_ms=%.2f clamped_ms=%.2f",
				epoch+1,
				snap.LastLoss,
				snap.SolvesPerSec,
				snap.AvgFreeMS,
				snap.AvgClampedMS,
			)
		}
	}

	return hist, nil
}

func validate(net network.Network, xs, ys [][]float64, opts Options) (*history.Checkpoints, error) {
	if opts.Epochs <= 0 {
		return nil, errors.New("trainer: epochs must be > 0")
	}
	if len(xs) == 0 {
		return nil, errors.New("trainer: empty sample batch")
	}
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("trainer: %d inputs vs %d targets", len(xs), len(ys))
	}
	for _, v := range []float64{opts.Gamma, opts.Eta, opts.Lambda} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.New("trainer: gamma, eta and lambda must be finite")
		}
	}
	if opts.Lambda < 0 {
		return nil, errors.New("trainer: lambda must be >= 0")
	}
	inDim := len(net.Inputs())
	outDim := len(net.Outputs())
	for i := range xs {
		if len(xs[i]) != inDim {
			return nil, fmt.Errorf("trainer: sample %d has %d features, network has %d inputs", i, len(xs[i]), inDim)
		}
		if len(ys[i]) != outDim {
			return nil, fmt.Errorf("trainer: sample %d has %d targets, network has %d outputs", i, len(ys[i]), outDim)
		}
	}
	if len(net.Edges()) == 0 {
		return nil, errors.New("trainer: network has no trainable edges")
	}
	return history.NewCheckpoints(opts.Checkpoints, opts.Epochs)
}

func checkState(net network.Network, state []float64) error {
	if len(state) != net.NumNodes() {
		return fmt.Errorf("trainer: solver returned %d potentials for %d nodes", len(state), net.NumNodes())
	}
	for i, v := range state {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("trainer: non-finite potential at node %d", i)
		}
	}
	return nil
}

func edgeValues(net network.Network) []float64 {
	edges := net.Edges()
	vals := make([]float64, len(edges))
	for i, e := range edges {
		vals[i] = e.Value()
	}
	return vals
}

func edgeTerminals(net network.Network) (pos, neg []int) {
	edges := net.Edges()
	pos = make([]int, len(edges))
	neg = make([]int, len(edges))
	for i, e := range edges {
		pos[i], neg[i] = e.Terminals()
	}
	return pos, neg
}

func meanSquaredError(ys, preds [][]float64) float64 {
	total := 0.0
	count := 0
	for i := range ys {
		for k := range ys[i] {
			d := ys[i][k] - preds[i][k]
			total += d * d
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}
