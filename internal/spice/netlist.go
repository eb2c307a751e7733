// Package spice wraps an external SPICE simulator for device
// characterization: netlist generation, batch invocation, raw-file parsing
// and content/co-content curve extraction.
package spice

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// SweepNetlist builds a DC sweep netlist for a single NMOS device with the
// gate held at vgs and the drain swept from vmin to vmax in n steps.
func SweepNetlist(vgs, vmin, vmax float64, n int) string {
	return fmt.Sprintf(`M1 D G 0 0 NMOS
VD D 0 0
* source-referenced gate bias
VGS G S %g
.model NMOS NMOS
.dc VD %g %g %d
`, vgs, vmin, vmax, n)
}

// RunBatch writes the netlist, invokes the simulator in batch mode and
// returns the path of the raw output file.
func RunBatch(ctx context.Context, binary, dir, netlist string) (string, error) {
	cirPath := filepath.Join(dir, "sweep.cir")
	if err := os.WriteFile(cirPath, []byte(netlist), 0o644); err != nil {
		return "", fmt.Errorf("write netlist: %w", err)
	}
	rawPath := strings.TrimSuffix(cirPath, ".cir") + ".raw"

	cmd := exec.CommandContext(ctx, binary, "-b", "-r", rawPath, cirPath)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("spice batch run: %w: %s", err, strings.TrimSpace(string(out)))
	}
	if _, err := os.Stat(rawPath); err != nil {
		return "", fmt.Errorf("spice produced no raw file: %w", err)
	}
	return rawPath, nil
}
