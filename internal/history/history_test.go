package history

import "testing"

func TestNewCheckpointsNormalizes(t *testing.T) {
	cps, err := NewCheckpoints([]int{4, 0, 4, 2}, 5)
	if err != nil {
		t.Fatalf("new checkpoints: %v", err)
	}
	want := []int{0, 2, 4}
	got := cps.Epochs()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	if idx, ok := cps.Index(4); !ok || idx != 2 {
		t.Fatalf("Index(4) = %d,%v, want 2,true", idx, ok)
	}
	if cps.Contains(1) {
		t.Fatalf("Contains(1) should be false")
	}
}

func TestNewCheckpointsRejectsOutOfRange(t *testing.T) {
	if _, err := NewCheckpoints([]int{3}, 3); err == nil {
		t.Fatalf("expected error for checkpoint == epochs")
	}
	if _, err := NewCheckpoints([]int{-1}, 3); err == nil {
		t.Fatalf("expected error for negative checkpoint")
	}
}

func TestEmptyListSelectsEveryEpoch(t *testing.T) {
	cps, err := NewCheckpoints(nil, 4)
	if err != nil {
		t.Fatalf("new checkpoints: %v", err)
	}
	if cps.Len() != 4 {
		t.Fatalf("Len = %d, want 4", cps.Len())
	}
	for e := 0; e < 4; e++ {
		if idx, ok := cps.Index(e); !ok || idx != e {
			t.Fatalf("Index(%d) = %d,%v", e, idx, ok)
		}
	}
}

func TestHistoryBufferShapes(t *testing.T) {
	cps, _ := NewCheckpoints([]int{0, 3}, 6)
	h := New(6, 5, 3, cps)

	if len(h.Loss) != 7 {
		t.Fatalf("loss length = %d, want 7", len(h.Loss))
	}
	if len(h.Weights) != 3 || len(h.Updates) != 2 {
		t.Fatalf("got %d weight and %d update slabs, want 3 and 2", len(h.Weights), len(h.Updates))
	}
	for _, slab := range h.Updates {
		if len(slab) != 5 || len(slab[0]) != 3 {
			t.Fatalf("slab shape [%d][%d], want [5][3]", len(slab), len(slab[0]))
		}
	}
}

func TestRecordInitialAndSample(t *testing.T) {
	cps, _ := NewCheckpoints([]int{1}, 2)
	h := New(2, 2, 2, cps)

	h.RecordInitial([]float64{1.5, 2.5})
	for j := 0; j < 2; j++ {
		if h.Weights[0][j][0] != 1.5 || h.Weights[0][j][1] != 2.5 {
			t.Fatalf("initial snapshot sample %d = %v", j, h.Weights[0][j])
		}
	}

	h.RecordSample(0, 1, []float64{-0.1, 0.2}, []float64{1.4, 2.7})
	if h.Updates[0][1][0] != -0.1 || h.Updates[0][1][1] != 0.2 {
		t.Fatalf("update row = %v", h.Updates[0][1])
	}
	if h.Weights[1][1][0] != 1.4 || h.Weights[1][1][1] != 2.7 {
		t.Fatalf("weight row = %v", h.Weights[1][1])
	}
}
