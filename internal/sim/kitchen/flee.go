package kitchen

import (
	"math"

	"github.com/jakecoffman/cp"
)

type FleeMode string

const (
	ModeWander FleeMode = "WANDER"
	ModeFlee   FleeMode = "FLEE"
	ModeCaught FleeMode = "CAUGHT"
	ModePlated FleeMode = "PLATED" // terminal
)

// Flee is the behaviour state of a raw ingredient that runs from players.
type Flee struct {
	Mode FleeMode

	// Current wander heading and the ticks left on it. The countdown only runs
	// while wandering; a zero countdown picks a new heading on the next step.
	Dir        cp.Vector
	WanderLeft uint64

	Holder string // player id while CAUGHT
}

func NewFlee() *Flee { return &Flee{Mode: ModeWander} }

// Catch moves WANDER/FLEE to CAUGHT.
func (f *Flee) Catch(holder string) bool {
	switch f.Mode {
	case ModeWander, ModeFlee:
		f.Mode = ModeCaught
		f.Holder = holder
		return true
	}
	return false
}

// Release moves CAUGHT back to WANDER. It never leaves PLATED.
func (f *Flee) Release() bool {
	if f.Mode != ModeCaught {
		return false
	}
	f.Mode = ModeWander
	f.Holder = ""
	f.WanderLeft = 0
	return true
}

// PlaceOnPlate enters PLATED from any mode. Repeated calls are no-ops.
func (f *Flee) PlaceOnPlate() {
	f.Mode = ModePlated
	f.Holder = ""
	f.Dir = cp.Vector{}
	f.WanderLeft = 0
}

func (f *Flee) Plated() bool { return f.Mode == ModePlated }

// systemFlee runs the WANDER/FLEE half of the state machine for every free
// ingredient. Held and plated ingredients are positioned by their owner.
func (k *Kitchen) systemFlee() {
	dt := k.tun.Dt()
	players := k.sortedPlayers()
	for _, e := range k.sortedEntities() {
		if e.Flee == nil || e.Owner != OwnerWorld {
			continue
		}
		k.stepFlee(e, players, dt)
	}
}

func (k *Kitchen) stepFlee(e *Entity, players []*Player, dt float64) {
	f := e.Flee
	if f.Mode == ModePlated || f.Mode == ModeCaught {
		return
	}
	ft := k.tun.Flee

	var nearest *Player
	best := math.Inf(1)
	for _, p := range players {
		if d := p.Pos.Distance(e.Pos); d < best {
			best = d
			nearest = p
		}
	}

	if nearest != nil && best < ft.DetectionRange {
		f.Mode = ModeFlee
		away := e.Pos.Sub(nearest.Pos)
		if away.Length() == 0 {
			away = e.Facing
			if away.Length() == 0 {
				away = cp.Vector{X: 1}
			}
		}
		away = away.Normalize()
		e.Facing = away
		e.Pos = k.clamp(e.Pos.Add(away.Mult(ft.RunSpeed * dt)))
		return
	}

	f.Mode = ModeWander
	if f.WanderLeft == 0 {
		angle := k.rng.Range(0, 2*math.Pi)
		f.Dir = cp.Vector{X: math.Cos(angle), Y: math.Sin(angle)}
		f.WanderLeft = k.tun.Ticks(k.rng.Range(ft.WanderMinS, ft.WanderMaxS))
		if f.WanderLeft == 0 {
			f.WanderLeft = 1
		}
	}
	f.WanderLeft--
	if f.Dir.Length() > 0 {
		e.Facing = f.Dir
	}
	e.Pos = k.clamp(e.Pos.Add(f.Dir.Mult(ft.WanderSpeed * dt)))
}

func (k *Kitchen) clamp(v cp.Vector) cp.Vector {
	b := k.layout.Bounds
	return cp.Vector{
		X: math.Min(math.Max(v.X, b.MinX), b.MaxX),
		Y: math.Min(math.Max(v.Y, b.MinZ), b.MaxZ),
	}
}
