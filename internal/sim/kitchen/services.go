package kitchen

import (
	"github.com/jakecoffman/cp"
)

// Proximity finds candidate entities within radius of center. Result order is
// the tie-break order for equally distant candidates.
type Proximity interface {
	Query(center cp.Vector, radius float64, filter func(*Entity) bool) []*Entity
}

// Navigator advances a walker one tick toward a goal and reports arrival
// within tolerance.
type Navigator interface {
	Step(from, to cp.Vector, speed, dt, tolerance float64) (cp.Vector, bool)
}

type Highlighter interface {
	SetHighlight(e *Entity, on bool)
}

// Dialogue is the panel surface customers talk through.
type Dialogue interface {
	Show(playerID, speakerID, text string)
	Hide(playerID, speakerID string)
}

// PanelReader is implemented by dialogue surfaces that can report the open
// panel for a player; OBS includes it when available.
type PanelReader interface {
	Panel(playerID string) (Panel, bool)
}

type Panel struct {
	Speaker string
	Text    string
}

type Services struct {
	Proximity   Proximity
	Navigator   Navigator
	Highlighter Highlighter
	Dialogue    Dialogue
}

// ScanProximity is a linear scan over entities in ascending id order with an
// axis-aligned box reject before the exact distance check.
type ScanProximity struct {
	Entities func() []*Entity
}

func (p ScanProximity) Query(center cp.Vector, radius float64, filter func(*Entity) bool) []*Entity {
	if p.Entities == nil || radius < 0 {
		return nil
	}
	bb := cp.BB{L: center.X - radius, B: center.Y - radius, R: center.X + radius, T: center.Y + radius}
	var out []*Entity
	for _, e := range p.Entities() {
		if !bb.ContainsVect(e.Pos) {
			continue
		}
		if e.Pos.Distance(center) > radius {
			continue
		}
		if filter != nil && !filter(e) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// StraightNavigator walks in a straight line; the kitchen floor has no obstacles.
type StraightNavigator struct{}

func (StraightNavigator) Step(from, to cp.Vector, speed, dt, tolerance float64) (cp.Vector, bool) {
	d := to.Sub(from)
	dist := d.Length()
	if dist <= tolerance {
		return from, true
	}
	step := speed * dt
	if step <= 0 {
		return from, false
	}
	if step >= dist {
		return to, true
	}
	next := from.Add(d.Mult(step / dist))
	return next, dist-step <= tolerance
}

// FlagHighlighter sets Entity.Highlighted while at least one player highlights it.
type FlagHighlighter struct {
	counts map[string]int
}

func NewFlagHighlighter() *FlagHighlighter {
	return &FlagHighlighter{counts: map[string]int{}}
}

func (h *FlagHighlighter) SetHighlight(e *Entity, on bool) {
	if e == nil {
		return
	}
	n := h.counts[e.ID]
	if on {
		n++
	} else if n > 0 {
		n--
	}
	if n == 0 {
		delete(h.counts, e.ID)
	} else {
		h.counts[e.ID] = n
	}
	e.Highlighted = n > 0
}

// Panels records the open dialogue panel per player.
type Panels struct {
	open map[string]Panel
}

func NewPanels() *Panels { return &Panels{open: map[string]Panel{}} }

func (d *Panels) Show(playerID, speakerID, text string) {
	d.open[playerID] = Panel{Speaker: speakerID, Text: text}
}

func (d *Panels) Hide(playerID, speakerID string) {
	if p, ok := d.open[playerID]; ok && p.Speaker == speakerID {
		delete(d.open, playerID)
	}
}

func (d *Panels) Panel(playerID string) (Panel, bool) {
	p, ok := d.open[playerID]
	return p, ok
}
