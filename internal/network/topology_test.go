package network

import (
	"strings"
	"testing"
)

const goodNetlist = `# divider
nodes 3
* comment in netlist style
edge 1 2 1.5
edge 2 0 0.5
input 1 0
output 2 0
`

func TestParseTopology(t *testing.T) {
	net, err := ParseTopology(strings.NewReader(goodNetlist))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if net.NumNodes() != 3 {
		t.Fatalf("nodes = %d, want 3", net.NumNodes())
	}
	edges := net.Edges()
	if len(edges) != 2 {
		t.Fatalf("edges = %d, want 2", len(edges))
	}
	if edges[0].Value() != 1.5 || edges[1].Value() != 0.5 {
		t.Fatalf("edge values %g, %g", edges[0].Value(), edges[1].Value())
	}
	if len(net.Inputs()) != 1 || len(net.Outputs()) != 1 {
		t.Fatalf("inputs=%d outputs=%d, want 1 and 1", len(net.Inputs()), len(net.Outputs()))
	}
	if p := net.Inputs()[0]; p.Pos != 1 || p.Neg != 0 {
		t.Fatalf("input pair (%d,%d), want (1,0)", p.Pos, p.Neg)
	}
}

func TestParseTopologyErrors(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"edge before nodes", "edge 0 1 1.0\n"},
		{"unknown directive", "nodes 2\nresistor 0 1 1.0\n"},
		{"bad conductance", "nodes 2\nedge 0 1 abc\n"},
		{"node out of range", "nodes 2\nedge 0 5 1.0\n"},
		{"missing edges", "nodes 2\ninput 1 0\noutput 1 0\n"},
		{"missing io", "nodes 2\nedge 1 0 1.0\n"},
		{"duplicate nodes", "nodes 2\nnodes 3\n"},
		{"empty", ""},
	}
	for _, tc := range cases {
		if _, err := ParseTopology(strings.NewReader(tc.in)); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}
