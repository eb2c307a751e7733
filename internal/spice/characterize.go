package spice

import (
	"context"
	"fmt"
	"sort"
)

// Characteristic holds one device's sweep traces and the derived energy
// curves. Content integrates V dI, co-content integrates I dV; both are
// shifted to pass through zero at the zero of the integration variable.
type Characteristic struct {
	V         []float64
	I         []float64
	Content   []float64
	Cocontent []float64
}

// Default trace names written by the simulator for the sweep netlist.
const (
	currentVar = "id(m1)"
	voltageVar = "v(d)"
)

// Characterize runs a DC sweep for one gate bias and extracts the device's
// content and co-content curves from the simulator output.
func Characterize(ctx context.Context, binary, dir string, vgs, vmin, vmax float64, n int) (*Characteristic, error) {
	rawPath, err := RunBatch(ctx, binary, dir, SweepNetlist(vgs, vmin, vmax, n))
	if err != nil {
		return nil, err
	}
	raw, err := LoadRaw(rawPath)
	if err != nil {
		return nil, err
	}
	i, ok := raw.Get(currentVar)
	if !ok {
		return nil, fmt.Errorf("spice: trace %s missing from raw file", currentVar)
	}
	v, ok := raw.Get(voltageVar)
	if !ok {
		return nil, fmt.Errorf("spice: trace %s missing from raw file", voltageVar)
	}
	content, cocontent, err := ContentCocontent(i, v)
	if err != nil {
		return nil, err
	}
	return &Characteristic{V: v, I: i, Content: content, Cocontent: cocontent}, nil
}

// ContentCocontent computes both energy curves from matching current and
// voltage traces.
func ContentCocontent(i, v []float64) (content, cocontent []float64, err error) {
	if len(i) != len(v) {
		return nil, nil, fmt.Errorf("spice: %d current points vs %d voltage points", len(i), len(v))
	}
	if len(i) < 2 {
		return nil, nil, fmt.Errorf("spice: need at least 2 sweep points, got %d", len(i))
	}
	cocontent = CumTrapz(i, v)
	shift := Interp(0, v, cocontent)
	for k := range cocontent {
		cocontent[k] -= shift
	}
	content = CumTrapz(v, i)
	shift = Interp(0, i, content)
	for k := range content {
		content[k] -= shift
	}
	return content, cocontent, nil
}

// CumTrapz is the cumulative trapezoidal integral of y over x, starting
// at zero.
func CumTrapz(y, x []float64) []float64 {
	out := make([]float64, len(y))
	for k := 1; k < len(y); k++ {
		out[k] = out[k-1] + 0.5*(y[k]+y[k-1])*(x[k]-x[k-1])
	}
	return out
}

// Interp evaluates the piecewise-linear function through (xs, ys) at x0,
// clamping outside the range. xs need not be sorted; evaluation sorts a
// copy jointly with ys.
func Interp(x0 float64, xs, ys []float64) float64 {
	n := len(xs)
	idx := make([]int, n)
	for k := range idx {
		idx[k] = k
	}
	sort.Slice(idx, func(a, b int) bool { return xs[idx[a]] < xs[idx[b]] })

	if x0 <= xs[idx[0]] {
		return ys[idx[0]]
	}
	if x0 >= xs[idx[n-1]] {
		return ys[idx[n-1]]
	}
	for k := 1; k < n; k++ {
		lo, hi := xs[idx[k-1]], xs[idx[k]]
		if x0 <= hi {
			if hi == lo {
				return ys[idx[k]]
			}
			t := (x0 - lo) / (hi - lo)
			return ys[idx[k-1]] + t*(ys[idx[k]]-ys[idx[k-1]])
		}
	}
	return ys[idx[n-1]]
}
