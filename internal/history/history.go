// Package history keeps the telemetry buffers for a training run: the loss
// curve plus per-sample weight and update snapshots at checkpoint epochs.
package history

import (
	"fmt"
	"sort"
)

// Checkpoints is an ordered, deduplicated set of epoch indices.
type Checkpoints struct {
	epochs []int
	index  map[int]int
}

// NewCheckpoints normalizes list into a checkpoint set. Every entry must lie
// in [0, epochs); duplicates collapse and order is not significant. An empty
// list selects every epoch.
func NewCheckpoints(list []int, epochs int) (*Checkpoints, error) {
	if len(list) == 0 {
		return EveryEpoch(epochs), nil
	}
	seen := make(map[int]bool, len(list))
	unique := make([]int, 0, len(list))
	for _, e := range list {
		if e < 0 || e >= epochs {
			return nil, fmt.Errorf("history: checkpoint %d outside [0,%d)", e, epochs)
		}
		if seen[e] {
			continue
		}
		seen[e] = true
		unique = append(unique, e)
	}
	sort.Ints(unique)
	return build(unique), nil
}

// EveryEpoch selects all epochs in [0, epochs).
func EveryEpoch(epochs int) *Checkpoints {
	all := make([]int, epochs)
	for i := range all {
		all[i] = i
	}
	return build(all)
}

func build(sorted []int) *Checkpoints {
	idx := make(map[int]int, len(sorted))
	for i, e := range sorted {
		idx[e] = i
	}
	return &Checkpoints{epochs: sorted, index: idx}
}

// Len returns the number of checkpoint epochs.
func (c *Checkpoints) Len() int { return len(c.epochs) }

// Contains reports whether epoch is a checkpoint.
func (c *Checkpoints) Contains(epoch int) bool {
	_, ok := c.index[epoch]
	return ok
}

// Index returns the snapshot slot for epoch and whether it is a checkpoint.
func (c *Checkpoints) Index(epoch int) (int, bool) {
	i, ok := c.index[epoch]
	return i, ok
}

// Epochs returns the checkpoint epochs in ascending order.
func (c *Checkpoints) Epochs() []int { return append([]int(nil), c.epochs...) }

// History holds the run telemetry. Loss has epochs+1 entries; Weights has
// one [samples][edges] slab per checkpoint plus the initial snapshot at
// index 0; Updates has one slab per checkpoint.
type History struct {
	Checkpoints *Checkpoints
	Loss        []float64
	Weights     [][][]float64
	Updates     [][][]float64
}

// New allocates all buffers up front; cells are written once each.
func New(epochs, samples, edges int, checkpoints *Checkpoints) *History {
	k := checkpoints.Len()
	return &History{
		Checkpoints: checkpoints,
		Loss:        make([]float64, epochs+1),
		Weights:     allocSlabs(k+1, samples, edges),
		Updates:     allocSlabs(k, samples, edges),
	}
}

func allocSlabs(n, samples, edges int) [][][]float64 {
	slabs := make([][][]float64, n)
	for i := range slabs {
		slab := make([][]float64, samples)
		for j := range slab {
			slab[j] = make([]float64, edges)
		}
		slabs[i] = slab
	}
	return slabs
}

// RecordInitial fills the first weight slab with the starting edge values,
// replicated across the sample dimension.
func (h *History) RecordInitial(weights []float64) {
	for _, row := range h.Weights[0] {
		copy(row, weights)
	}
}

// RecordSample stores one sample's update vector and post-update weights
// into checkpoint slot k.
func (h *History) RecordSample(k, sample int, updates, weights []float64) {
	copy(h.Updates[k][sample], updates)
	copy(h.Weights[k+1][sample], weights)
}
