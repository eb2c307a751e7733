// Command eqprop-characterize extracts a device's content and co-content
// curves by driving an external SPICE simulator through a DC sweep, and
// writes them as CSV for inspection.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"eqprop-forge/internal/spice"
)

func main() {
	binary := flag.String("spice", "ngspice", "Path to the SPICE binary")
	workDir := flag.String("workdir", ".", "Directory for netlist and raw files")
	out := flag.String("out", "characteristic.csv", "Output CSV path")
	vgs := flag.Float64("vgs", 2.0, "Gate bias in volts")
	vmin := flag.Float64("vmin", -0.5, "Sweep start in volts")
	vmax := flag.Float64("vmax", 5.0, "Sweep end in volts")
	points := flag.Int("points", 1000, "Number of sweep points")

	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ch, err := spice.Characterize(ctx, *binary, *workDir, *vgs, *vmin, *vmax, *points)
	if err != nil {
		log.Fatalf("characterize: %v", err)
	}

	f, err := os.Create(*out)
	if err != nil {
		log.Fatalf("create %s: %v", *out, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"v", "i", "content", "cocontent"}); err != nil {
		log.Fatalf("write header: %v", err)
	}
	for k := range ch.V {
		row := []string{
			formatFloat(ch.V[k]),
			formatFloat(ch.I[k]),
			formatFloat(ch.Content[k]),
			formatFloat(ch.Cocontent[k]),
		}
		if err := w.Write(row); err != nil {
			log.Fatalf("write row %d: %v", k, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		log.Fatalf("flush %s: %v", *out, err)
	}
	log.Printf("out=%s points=%d vgs=%g", *out, len(ch.V), *vgs)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
