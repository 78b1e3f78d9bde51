package kitchen

import (
	"kitchenchaos.game/internal/protocol"
)

func (k *Kitchen) buildObs(p *Player, nowTick uint64) protocol.ObsMsg {
	obs := protocol.ObsMsg{
		Type:            protocol.TypeObs,
		ProtocolVersion: protocol.Version,
		Tick:            nowTick,
		PlayerID:        p.ID,
		Round:           k.roundObs(),
		Self:            k.selfObs(p),
		Entities:        k.entityObs(),
		Stations:        k.stationObs(),
		Customers:       k.customerObs(),
		Events:          p.Events,
	}
	if obs.Events == nil {
		obs.Events = []protocol.Event{}
	}
	return obs
}

func (k *Kitchen) roundObs() protocol.RoundObs {
	t := k.session.Timer
	return protocol.RoundObs{
		Score:          k.session.Score.Total(),
		ScoreThreshold: t.Threshold,
		RemainingS:     float64(t.Remaining) * k.tun.Dt(),
		Paused:         k.session.Paused,
		Over:           t.Over,
		Outcome:        t.Outcome,
		NextScene:      t.NextScene,
	}
}

func (k *Kitchen) selfObs(p *Player) protocol.SelfObs {
	self := protocol.SelfObs{
		Pos:     vec2(p.Pos),
		Facing:  vec2(p.Facing),
		CanMove: p.CanMove(),
	}
	if e := p.Hand.held; e != nil {
		self.Held = &protocol.HeldObs{ID: e.ID, Kind: string(e.Kind), Item: e.Item}
	}
	if e := p.Hand.highlighted; e != nil {
		self.Highlighted = e.ID
	}
	if pr, ok := k.svc.Dialogue.(PanelReader); ok {
		if panel, open := pr.Panel(p.ID); open {
			self.Dialogue = &protocol.DialogueObs{Speaker: panel.Speaker, Text: panel.Text}
		}
	}
	return self
}

func (k *Kitchen) entityObs() []protocol.EntityObs {
	out := make([]protocol.EntityObs, 0, len(k.entities))
	for _, e := range k.sortedEntities() {
		eo := protocol.EntityObs{
			ID:        e.ID,
			Kind:      string(e.Kind),
			Item:      e.Item,
			Owner:     string(e.Owner),
			OwnerRef:  e.OwnerRef,
			Pos:       vec2(e.Pos),
			Simulated: e.Simulated,
		}
		if e.Flee != nil {
			eo.Mode = string(e.Flee.Mode)
		}
		if e.Kind == KindDish {
			eo.Points = e.Points
		}
		out = append(out, eo)
	}
	return out
}

func (k *Kitchen) stationObs() []protocol.StationObs {
	out := make([]protocol.StationObs, 0, len(k.stations))
	for _, s := range k.sortedStations() {
		so := protocol.StationObs{
			ID:        s.ID,
			Kind:      s.Kind,
			Pos:       vec2(s.Pos),
			Completed: s.Completed,
			Item:      s.Item,
			ReadyTick: s.ReadyTick,
		}
		if s.Recipe != nil {
			so.Recipe = s.Recipe.RecipeID
			so.Required = s.Required
			so.Accumulated = append([]string(nil), s.Accumulated...)
		}
		if s.Dish != nil {
			so.DishID = s.Dish.ID
		}
		if s.Holding != nil {
			so.Item = s.Holding.Item
		}
		out = append(out, so)
	}
	return out
}

func (k *Kitchen) customerObs() []protocol.CustomerObs {
	out := make([]protocol.CustomerObs, 0, len(k.customers))
	for _, c := range k.sortedCustomers() {
		out = append(out, protocol.CustomerObs{
			ID:     c.ID,
			State:  string(c.State),
			Pos:    vec2(c.Pos),
			Order:  c.Order,
			Served: c.Served,
		})
	}
	return out
}

// Observation returns the OBS a player would receive now, without draining
// its events. Loop goroutine or tests only.
func (k *Kitchen) Observation(playerID string) (protocol.ObsMsg, bool) {
	p := k.players[playerID]
	if p == nil {
		return protocol.ObsMsg{}, false
	}
	return k.buildObs(p, k.tick.Load()), true
}
