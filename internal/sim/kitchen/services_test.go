package kitchen

import (
	"testing"

	"github.com/jakecoffman/cp"
)

func TestScanProximity(t *testing.T) {
	ents := []*Entity{
		{ID: "E1", Pos: cp.Vector{X: 1}},
		{ID: "E2", Pos: cp.Vector{X: 2, Y: 2}},
		{ID: "E3", Pos: cp.Vector{X: -1, Y: -1}, Stripped: true},
	}
	p := ScanProximity{Entities: func() []*Entity { return ents }}

	got := p.Query(cp.Vector{}, 2, nil)
	if len(got) != 2 || got[0].ID != "E1" || got[1].ID != "E3" {
		t.Fatalf("query = %v", got)
	}
	got = p.Query(cp.Vector{}, 2, func(e *Entity) bool { return !e.Stripped })
	if len(got) != 1 || got[0].ID != "E1" {
		t.Fatalf("filtered query = %v", got)
	}
	if got := (ScanProximity{}).Query(cp.Vector{}, 5, nil); got != nil {
		t.Fatalf("nil source should return nothing")
	}
}

func TestStraightNavigator(t *testing.T) {
	var n StraightNavigator
	pos, arrived := n.Step(cp.Vector{}, cp.Vector{X: 10}, 2, 1, 0.5)
	if arrived || pos.Distance(cp.Vector{X: 2}) > 1e-9 {
		t.Fatalf("step = %v %v", pos, arrived)
	}
	pos, arrived = n.Step(cp.Vector{X: 9}, cp.Vector{X: 10}, 2, 1, 0.5)
	if !arrived || pos != (cp.Vector{X: 10}) {
		t.Fatalf("overshoot should land on goal: %v %v", pos, arrived)
	}
	_, arrived = n.Step(cp.Vector{X: 9.8}, cp.Vector{X: 10}, 0, 1, 0.5)
	if !arrived {
		t.Fatalf("within tolerance should count as arrived")
	}
}

func TestFlagHighlighter_RefCounted(t *testing.T) {
	h := NewFlagHighlighter()
	e := &Entity{ID: "E1"}
	h.SetHighlight(e, true)
	h.SetHighlight(e, true)
	h.SetHighlight(e, false)
	if !e.Highlighted {
		t.Fatalf("still highlighted by one player")
	}
	h.SetHighlight(e, false)
	h.SetHighlight(e, false)
	if e.Highlighted {
		t.Fatalf("highlight should clear")
	}
}

func TestPanels(t *testing.T) {
	d := NewPanels()
	d.Show("P1", "C0001", "hello")
	d.Hide("P1", "C0002")
	if p, ok := d.Panel("P1"); !ok || p.Text != "hello" {
		t.Fatalf("hide by another speaker closed the panel")
	}
	d.Hide("P1", "C0001")
	if _, ok := d.Panel("P1"); ok {
		t.Fatalf("panel still open")
	}
}

func TestRNG_Deterministic(t *testing.T) {
	a, b := NewRNG(7), NewRNG(7)
	for i := 0; i < 100; i++ {
		if a.Uint64() != b.Uint64() {
			t.Fatalf("diverged at %d", i)
		}
	}
	r := NewRNG(1)
	for i := 0; i < 1000; i++ {
		if v := r.Range(2, 5); v < 2 || v >= 5 {
			t.Fatalf("range out of bounds: %v", v)
		}
		if n := r.Intn(3); n < 0 || n >= 3 {
			t.Fatalf("intn out of bounds: %d", n)
		}
	}
	if r.Range(3, 3) != 3 || r.Intn(0) != 0 {
		t.Fatalf("degenerate ranges")
	}
}
