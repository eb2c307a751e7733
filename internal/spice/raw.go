package spice

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Raw holds the traces of one ASCII raw file, keyed by lowercased variable
// name.
type Raw struct {
	Variables []string
	Points    int
	data      map[string][]float64
}

// Get returns the trace for a variable name, case-insensitively.
func (r *Raw) Get(name string) ([]float64, bool) {
	trace, ok := r.data[strings.ToLower(name)]
	return trace, ok
}

// LoadRaw parses the ASCII raw file at path.
func LoadRaw(path string) (*Raw, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open raw file: %w", err)
	}
	defer f.Close()
	return ParseRaw(f)
}

// ParseRaw reads an ASCII raw file: "Key: value" headers, a Variables
// section listing index/name/type triples, then a Values section with one
// indexed block of variable values per sweep point.
func ParseRaw(r io.Reader) (*Raw, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	raw := &Raw{data: make(map[string][]float64)}
	nVars := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "No. Variables:"):
			v, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "No. Variables:")))
			if err != nil {
				return nil, fmt.Errorf("raw header: %w", err)
			}
			nVars = v
		case strings.HasPrefix(line, "No. Points:"):
			v, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "No. Points:")))
			if err != nil {
				return nil, fmt.Errorf("raw header: %w", err)
			}
			raw.Points = v
		case line == "Variables:":
			if nVars <= 0 {
				return nil, fmt.Errorf("raw file: Variables section before variable count")
			}
			for i := 0; i < nVars; i++ {
				if !scanner.Scan() {
					return nil, fmt.Errorf("raw file: truncated Variables section")
				}
				fields := strings.Fields(scanner.Text())
				if len(fields) < 3 {
					return nil, fmt.Errorf("raw file: malformed variable line %q", scanner.Text())
				}
				raw.Variables = append(raw.Variables, fields[1])
			}
		case line == "Values:":
			if len(raw.Variables) == 0 {
				return nil, fmt.Errorf("raw file: Values section before Variables")
			}
			if err := parseValues(scanner, raw); err != nil {
				return nil, err
			}
			return raw, nil
		case strings.HasPrefix(line, "Flags:") && strings.Contains(line, "complex"):
			return nil, fmt.Errorf("raw file: complex traces are not supported")
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("raw file: no Values section")
}

func parseValues(scanner *bufio.Scanner, raw *Raw) error {
	nVars := len(raw.Variables)
	traces := make([][]float64, nVars)
	for i := range traces {
		traces[i] = make([]float64, 0, raw.Points)
	}

	var words []string
	for scanner.Scan() {
		words = append(words, strings.Fields(scanner.Text())...)
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	perPoint := nVars + 1 // leading point index
	if len(words)%perPoint != 0 {
		return fmt.Errorf("raw file: %d values do not form whole points of %d", len(words), perPoint)
	}
	nPoints := len(words) / perPoint
	if raw.Points > 0 && nPoints != raw.Points {
		return fmt.Errorf("raw file: got %d points, header says %d", nPoints, raw.Points)
	}
	raw.Points = nPoints

	for p := 0; p < nPoints; p++ {
		base := p * perPoint
		for v := 0; v < nVars; v++ {
			val, err := strconv.ParseFloat(words[base+1+v], 64)
			if err != nil {
				return fmt.Errorf("raw file: point %d variable %d: %w", p, v, err)
			}
			traces[v] = append(traces[v], val)
		}
	}
	for i, name := range raw.Variables {
		raw.data[strings.ToLower(name)] = traces[i]
	}
	return nil
}
