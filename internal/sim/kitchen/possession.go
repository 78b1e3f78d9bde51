package kitchen

import (
	"math"

	"github.com/jakecoffman/cp"

	"kitchenchaos.game/internal/protocol"
)

// handReach is how far in front of the player the hand anchor sits.
const handReach = 0.5

type Player struct {
	ID          string
	Name        string
	ResumeToken string

	Pos     cp.Vector
	Facing  cp.Vector
	MoveDir cp.Vector

	Hand Possession

	// Customer whose dialogue panel this player has open; movement is locked while set.
	TalkingTo string

	Events []protocol.Event
}

func (p *Player) CanMove() bool { return p.TalkingTo == "" }

func (p *Player) HandPos() cp.Vector { return p.Pos.Add(p.Facing.Mult(handReach)) }

func (p *Player) AddEvent(e protocol.Event) { p.Events = append(p.Events, e) }

// Possession is the player's single held slot. The four item variants are
// views of the same slot, so at most one is ever non-nil.
type Possession struct {
	held        *Entity
	highlighted *Entity
}

func (h *Possession) Held() *Entity        { return h.held }
func (h *Possession) Empty() bool          { return h.held == nil }
func (h *Possession) Highlighted() *Entity { return h.highlighted }

func (h *Possession) HeldRaw() *Entity   { return h.heldOf(KindRaw) }
func (h *Possession) HeldCut() *Entity   { return h.heldOf(KindCut) }
func (h *Possession) HeldPlate() *Entity { return h.heldOf(KindPlate) }
func (h *Possession) HeldDish() *Entity  { return h.heldOf(KindDish) }

func (h *Possession) heldOf(k Kind) *Entity {
	if h.held != nil && h.held.Kind == k {
		return h.held
	}
	return nil
}

// pickable reports whether an entity may be taken into an empty hand.
func (k *Kitchen) pickable(e *Entity) bool {
	switch e.Owner {
	case OwnerWorld:
		if e.Stripped {
			return false
		}
		if e.Flee != nil && (e.Flee.Mode == ModeCaught || e.Flee.Mode == ModePlated) {
			return false
		}
		return true
	case OwnerStation:
		if e.Kind != KindDish {
			return false
		}
		st := k.stations[e.OwnerRef]
		return st != nil && st.Dish == e && st.Recipe != nil && st.Recipe.ServeWith == ""
	}
	return false
}

// Scan refreshes the player's highlighted candidate. With an item in hand
// nothing is highlighted.
func (k *Kitchen) Scan(p *Player) {
	prev := p.Hand.highlighted
	if prev != nil {
		k.svc.Highlighter.SetHighlight(prev, false)
		p.Hand.highlighted = nil
	}
	if !p.Hand.Empty() {
		return
	}

	center := p.Pos
	var best *Entity
	bestDist := math.Inf(1)
	for _, e := range k.svc.Proximity.Query(center, k.tun.Player.PickupRadius, k.pickable) {
		// Strict: the first candidate wins ties.
		if d := e.Pos.Distance(center); d < bestDist {
			bestDist = d
			best = e
		}
	}
	if best != nil {
		p.Hand.highlighted = best
		k.svc.Highlighter.SetHighlight(best, true)
	}
}

// Pickup moves the highlighted entity into the player's hand.
func (k *Kitchen) Pickup(p *Player) Result {
	if !p.Hand.Empty() {
		return reject(protocol.ErrHandsFull, "already holding "+p.Hand.held.Item)
	}
	e := p.Hand.highlighted
	if e == nil || k.entities[e.ID] != e || !k.pickable(e) {
		if e != nil {
			k.svc.Highlighter.SetHighlight(e, false)
			p.Hand.highlighted = nil
		}
		return reject(protocol.ErrNothingNearby, "nothing to pick up")
	}
	k.svc.Highlighter.SetHighlight(e, false)
	p.Hand.highlighted = nil

	if e.Owner == OwnerStation {
		if st := k.stations[e.OwnerRef]; st != nil && st.Dish == e {
			st.Dish = nil
		}
	}
	k.transfer(e, OwnerHand, p.ID, p.ID, "PICKUP")
	if e.Flee != nil {
		e.Flee.Catch(p.ID)
	}
	e.Pos = p.HandPos()
	return ok("picked up " + e.Item)
}

// Drop puts the held entity back into the world in front of the player.
func (k *Kitchen) Drop(p *Player) Result {
	e := p.Hand.held
	if e == nil {
		return reject(protocol.ErrNotHolding, "nothing held")
	}
	k.transfer(e, OwnerWorld, "", p.ID, "DROP")
	e.Pos = k.clamp(p.HandPos().Add(p.Facing.Mult(k.tun.Player.DropOffset)))
	if e.Flee != nil {
		e.Flee.Release()
	}
	return ok("dropped " + e.Item)
}

// systemHeld keeps held entities attached to their holder's hand.
func (k *Kitchen) systemHeld() {
	for _, p := range k.sortedPlayers() {
		if e := p.Hand.held; e != nil {
			e.Pos = p.HandPos()
			e.Facing = p.Facing
		}
	}
}
