package trainer

// Deltas computes the contrastive equilibrium-propagation update from a pair
// of relaxed states. For the edge between nodes pos[i] and neg[i],
//
//	delta[i] = -gamma * ((clamped[pos]-clamped[neg])^2 - (free[pos]-free[neg])^2)
//
// so an edge whose potential difference grew under the output nudge has its
// parameter decreased. Working per edge is numerically identical to forming
// the full pairwise difference matrices and subselecting the edge pairs.
func Deltas(gamma float64, free, clamped []float64, pos, neg []int) []float64 {
	deltas := make([]float64, len(pos))
	for i := range pos {
		df := free[pos[i]] - free[neg[i]]
		dc := clamped[pos[i]] - clamped[neg[i]]
		deltas[i] = -gamma * (dc*dc - df*df)
	}
	return deltas
}
