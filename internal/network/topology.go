package network

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// LoadTopology reads a netlist-like description and builds a LinearNetwork.
//
// The format is line oriented:
//
//	nodes 3
//	edge 1 2 1.0
//	edge 2 0 1.0
//	input 1 0
//	output 2 0
//
// Blank lines and lines starting with '#' or '*' are ignored.
func LoadTopology(path string) (*LinearNetwork, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open netlist: %w", err)
	}
	defer f.Close()
	return ParseTopology(f)
}

// ParseTopology does the work of LoadTopology on an open reader.
func ParseTopology(r io.Reader) (*LinearNetwork, error) {
	var net *LinearNetwork
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "*") {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "nodes":
			if net != nil {
				return nil, fmt.Errorf("line %d: duplicate nodes declaration", lineNo)
			}
			if len(fields) != 2 {
				return nil, fmt.Errorf("line %d: nodes wants 1 argument", lineNo)
			}
			count, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, fmt.Errorf("line %d: nodes: %w", lineNo, err)
			}
			net, err = NewLinear(count)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
		case "edge":
			if net == nil {
				return nil, fmt.Errorf("line %d: edge before nodes declaration", lineNo)
			}
			if len(fields) != 4 {
				return nil, fmt.Errorf("line %d: edge wants 3 arguments", lineNo)
			}
			pos, neg, err := parsePair(fields[1], fields[2])
			if err != nil {
				return nil, fmt.Errorf("line %d: edge: %w", lineNo, err)
			}
			g, err := strconv.ParseFloat(fields[3], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: edge conductance: %w", lineNo, err)
			}
			if err := net.AddEdge(pos, neg, g); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
		case "input", "output":
			if net == nil {
				return nil, fmt.Errorf("line %d: %s before nodes declaration", lineNo, fields[0])
			}
			if len(fields) != 3 {
				return nil, fmt.Errorf("line %d: %s wants 2 arguments", lineNo, fields[0])
			}
			pos, neg, err := parsePair(fields[1], fields[2])
			if err != nil {
				return nil, fmt.Errorf("line %d: %s: %w", lineNo, fields[0], err)
			}
			if fields[0] == "input" {
				err = net.AddInput(pos, neg)
			} else {
				err = net.AddOutput(pos, neg)
			}
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
		default:
			return nil, fmt.Errorf("line %d: unknown directive %s", lineNo, fields[0])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if net == nil {
		return nil, fmt.Errorf("netlist has no nodes declaration")
	}
	if len(net.elements) == 0 {
		return nil, fmt.Errorf("netlist has no edges")
	}
	if len(net.inputs) == 0 || len(net.outputs) == 0 {
		return nil, fmt.Errorf("netlist needs at least one input and one output")
	}
	return net, nil
}

func parsePair(a, b string) (int, int, error) {
	pos, err := strconv.Atoi(a)
	if err != nil {
		return 0, 0, err
	}
	neg, err := strconv.Atoi(b)
	if err != nil {
		return 0, 0, err
	}
	return pos, neg, nil
}
