package dataset

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"strconv"
)

// Load reads a sample batch from a CSV file. Each row holds inDim input
// columns followed by outDim target columns.
func Load(path string, inDim, outDim int) (xs, ys [][]float64, err error) {
	if inDim <= 0 || outDim <= 0 {
		return nil, nil, fmt.Errorf("dataset: dimensions must be positive (in=%d out=%d)", inDim, outDim)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = inDim + outDim
	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read dataset: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("dataset %s is empty", path)
	}

	xs = make([][]float64, len(records))
	ys = make([][]float64, len(records))
	for i, record := range records {
		row := make([]float64, inDim+outDim)
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("row %d column %d: %w", i+1, j+1, err)
			}
			row[j] = v
		}
		xs[i] = row[:inDim:inDim]
		ys[i] = row[inDim:]
	}
	return xs, ys, nil
}

// Identity builds a synthetic batch mapping each input to itself, with
// inputs drawn uniformly from (0, 1].
func Identity(n, dim int, seed int64) (xs, ys [][]float64) {
	rng := rand.New(rand.NewSource(seed))
	xs = make([][]float64, n)
	ys = make([][]float64, n)
	for i := 0; i < n; i++ {
		x := make([]float64, dim)
		for j := range x {
			x[j] = 1 - rng.Float64()
		}
		xs[i] = x
		ys[i] = append([]float64(nil), x...)
	}
	return xs, ys
}
