package kitchen

import (
	"fmt"
	"sort"

	"github.com/jakecoffman/cp"
)

func (k *Kitchen) newEntityID() string {
	k.nextEntityNum++
	return fmt.Sprintf("E%06d", k.nextEntityNum)
}

// spawn creates an entity of a catalog item. The kind comes from the catalog,
// never from the item's name.
func (k *Kitchen) spawn(item string, pos cp.Vector, owner Owner, ref, actor, reason string) *Entity {
	def := k.catalogs.Items.Defs[item]
	e := &Entity{
		ID:     k.newEntityID(),
		Kind:   Kind(def.Kind),
		Item:   item,
		Pos:    pos,
		Facing: cp.Vector{X: 0, Y: 1},
		Points: def.Points,
	}
	if e.Kind == KindRaw && def.Flees {
		e.Flee = NewFlee()
	}
	if k.session.Limits.Limited(item) {
		k.session.Limits.Register(item)
		e.Tracked = true
	}
	k.entities[e.ID] = e
	k.setOwner(e, owner, ref)
	k.audit(AuditEntry{Actor: actor, Action: "SPAWN", EntityID: e.ID, Item: item, To: ownerLabel(owner, ref), Reason: reason})
	return e
}

// transfer is the only place ownership changes. It keeps the held slots and
// the simulation flag consistent with Owner.
func (k *Kitchen) transfer(e *Entity, to Owner, ref, actor, reason string) {
	from := ownerLabel(e.Owner, e.OwnerRef)
	k.setOwner(e, to, ref)
	if to != OwnerWorld {
		k.clearHighlights(e)
	}
	k.audit(AuditEntry{Actor: actor, Action: "TRANSFER", EntityID: e.ID, Item: e.Item, From: from, To: ownerLabel(to, ref), Reason: reason})
}

func (k *Kitchen) setOwner(e *Entity, to Owner, ref string) {
	if e.Owner == OwnerHand {
		if p := k.players[e.OwnerRef]; p != nil && p.Hand.held == e {
			p.Hand.held = nil
		}
	}
	if to == OwnerWorld {
		ref = ""
	}
	e.Owner = to
	e.OwnerRef = ref
	e.Simulated = to == OwnerWorld
	if to == OwnerHand {
		if p := k.players[ref]; p != nil {
			p.Hand.held = e
		}
	}
}

// strip permanently removes an entity's own behaviour: no simulation, no
// fleeing, and it stops counting against ingredient limits.
func (k *Kitchen) strip(e *Entity) {
	e.Stripped = true
	e.Simulated = false
	if e.Flee != nil {
		e.Flee.PlaceOnPlate()
	}
	k.untrack(e)
}

func (k *Kitchen) untrack(e *Entity) {
	if e.Tracked {
		k.session.Limits.Unregister(e.Item)
		e.Tracked = false
	}
}

func (k *Kitchen) remove(e *Entity, actor, reason string) {
	if k.entities[e.ID] != e {
		return
	}
	if e.Owner == OwnerHand {
		if p := k.players[e.OwnerRef]; p != nil && p.Hand.held == e {
			p.Hand.held = nil
		}
	}
	k.clearHighlights(e)
	k.untrack(e)
	delete(k.entities, e.ID)
	k.audit(AuditEntry{Actor: actor, Action: "REMOVE", EntityID: e.ID, Item: e.Item, From: ownerLabel(e.Owner, e.OwnerRef), Reason: reason})
}

func (k *Kitchen) clearHighlights(e *Entity) {
	for _, p := range k.sortedPlayers() {
		if p.Hand.highlighted == e {
			k.svc.Highlighter.SetHighlight(e, false)
			p.Hand.highlighted = nil
		}
	}
}

func (k *Kitchen) sortedEntities() []*Entity {
	out := make([]*Entity, 0, len(k.entities))
	for _, e := range k.entities {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func ownerLabel(o Owner, ref string) string {
	if ref == "" {
		return string(o)
	}
	return string(o) + ":" + ref
}
