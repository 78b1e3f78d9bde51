package kitchen

import (
	"math"

	"github.com/jakecoffman/cp"

	"kitchenchaos.game/internal/protocol"
)

func (k *Kitchen) applyAct(p *Player, act protocol.ActMsg, nowTick uint64) {
	// Staleness check: accept only [now-staleActTicks, now].
	if act.Tick+staleActTicks < nowTick || act.Tick > nowTick {
		p.AddEvent(actionResult(nowTick, "ACT", false, protocol.ErrStale, "act tick out of range"))
		return
	}
	for _, in := range act.Intents {
		res := k.applyIntent(p, in)
		if !res.OK {
			k.logf("player %s %s %s: %s %s", p.ID, in.Type, in.ID, res.Code, res.Message)
		}
		p.AddEvent(actionResult(nowTick, in.ID, res.OK, res.Code, res.Message))
	}
}

func (k *Kitchen) applyIntent(p *Player, in protocol.Intent) Result {
	if k.session.Timer.Over {
		return reject(protocol.ErrRoundOver, "round is over")
	}
	switch in.Type {
	case protocol.IntentPause:
		return k.setPaused(p, true)
	case protocol.IntentResume:
		return k.setPaused(p, false)
	}
	if k.session.Paused {
		return reject(protocol.ErrPaused, "game is paused")
	}

	switch in.Type {
	case protocol.IntentMove:
		if !p.CanMove() {
			return reject(protocol.ErrMovementLocked, "talking to "+p.TalkingTo)
		}
		dir := fromVec2(in.Dir)
		if l := dir.Length(); l == 0 || math.IsNaN(l) || math.IsInf(l, 0) {
			p.MoveDir = cp.Vector{}
			return ok("stopped")
		}
		p.MoveDir = dir.Normalize()
		return ok("")
	case protocol.IntentStop:
		p.MoveDir = cp.Vector{}
		return ok("stopped")
	case protocol.IntentPickup:
		return k.Pickup(p)
	case protocol.IntentDrop:
		return k.Drop(p)
	case protocol.IntentInteract:
		return k.Interact(p, in.TargetID)
	case protocol.IntentReset:
		s := k.resetTarget(p, in.TargetID)
		if s == nil {
			return reject(protocol.ErrNoTarget, "no station to reset")
		}
		return k.ResetStation(s, p.ID)
	}
	return reject(protocol.ErrBadRequest, "unknown intent type "+in.Type)
}

func (k *Kitchen) setPaused(p *Player, paused bool) Result {
	if k.session.Paused == paused {
		return ok("")
	}
	k.session.Paused = paused
	typ := "RESUMED"
	if paused {
		typ = "PAUSED"
	}
	k.broadcast(protocol.Event{"t": k.tick.Load(), "type": typ, "by": p.ID})
	return ok(typ)
}

func (k *Kitchen) stationRadius(s *Station) float64 {
	if s.InteractRadius > 0 {
		return s.InteractRadius
	}
	return k.tun.Player.InteractRadius
}

// Interact resolves the target (explicit id, the customer the player is
// talking to, or the nearest station or waiting customer) and uses it.
func (k *Kitchen) Interact(p *Player, targetID string) Result {
	if targetID == "" && p.TalkingTo != "" {
		targetID = p.TalkingTo
	}
	if targetID != "" {
		if s := k.stations[targetID]; s != nil {
			if p.Pos.Distance(s.Pos) > k.stationRadius(s) {
				return reject(protocol.ErrNoTarget, s.ID+" is out of reach")
			}
			return k.interactStation(s, p)
		}
		if c := k.customers[targetID]; c != nil {
			if p.Pos.Distance(c.Pos) > k.tun.Customer.TalkRadius && c.TalkingTo != p.ID {
				return reject(protocol.ErrNoTarget, c.ID+" is out of reach")
			}
			return k.interactCustomer(c, p)
		}
		return reject(protocol.ErrNoTarget, "unknown target "+targetID)
	}

	var bestStation *Station
	var bestCustomer *Customer
	best := math.Inf(1)
	for _, s := range k.sortedStations() {
		d := p.Pos.Distance(s.Pos)
		if d <= k.stationRadius(s) && d < best {
			best, bestStation = d, s
		}
	}
	for _, c := range k.sortedCustomers() {
		if c.State != CustomerWaiting {
			continue
		}
		d := p.Pos.Distance(c.Pos)
		if d <= k.tun.Customer.TalkRadius && d < best {
			best, bestStation, bestCustomer = d, nil, c
		}
	}
	switch {
	case bestCustomer != nil:
		return k.interactCustomer(bestCustomer, p)
	case bestStation != nil:
		return k.interactStation(bestStation, p)
	}
	return reject(protocol.ErrNothingNearby, "nothing to interact with")
}

// resetTarget picks the named station, or the nearest recipe station in reach.
func (k *Kitchen) resetTarget(p *Player, targetID string) *Station {
	if targetID != "" {
		s := k.stations[targetID]
		if s == nil || p.Pos.Distance(s.Pos) > k.stationRadius(s) {
			return nil
		}
		return s
	}
	var out *Station
	best := math.Inf(1)
	for _, s := range k.sortedStations() {
		if !s.isRecipe() {
			continue
		}
		d := p.Pos.Distance(s.Pos)
		if d <= k.stationRadius(s) && d < best {
			best, out = d, s
		}
	}
	return out
}

func actionResult(tick uint64, ref string, ok bool, code string, message string) protocol.Event {
	e := protocol.Event{
		"t":    tick,
		"type": "ACTION_RESULT",
		"ref":  ref,
		"ok":   ok,
	}
	if code != "" {
		e["code"] = code
	}
	if message != "" {
		e["message"] = message
	}
	return e
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
