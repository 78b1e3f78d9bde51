package kitchen

import (
	"sort"

	"github.com/jakecoffman/cp"

	"kitchenchaos.game/internal/protocol"
	"kitchenchaos.game/internal/sim/catalogs"
	"kitchenchaos.game/internal/sim/tasks"
	"kitchenchaos.game/internal/sim/tuning"
)

// Station is a fixed interaction point. Recipe stations (ASSEMBLY, POT)
// accumulate items against a required multiset; the others hand out or
// transform single items.
type Station struct {
	ID             string
	Kind           string
	Pos            cp.Vector
	InteractRadius float64

	// Recipe stations.
	Recipe      *catalogs.RecipeDef
	Accepts     Kind
	Required    []string
	Accumulated []string // item ids in accept order; kept after completion
	names       map[string]bool
	contents    []*Entity
	Completed   bool
	Dish        *Entity

	// CUTTING_BOARD: the raw ingredient waiting to be cut.
	Holding *Entity

	// DISH_RACK plate item, CRATE ingredient item.
	Item string
	// CRATE: sim clock tick the crate can spawn again.
	ReadyTick uint64
}

func (s *Station) isRecipe() bool {
	return s.Kind == tuning.StationAssembly || s.Kind == tuning.StationPot
}

func (s *Station) requires(item string) bool {
	for _, r := range s.Required {
		if r == item {
			return true
		}
	}
	return false
}

// satisfied applies the completion rule: in exact mode every required item
// must have been accepted; otherwise only the count matters.
func (s *Station) satisfied() bool {
	if s.Recipe.Exact {
		for _, r := range s.Required {
			if !s.names[r] {
				return false
			}
		}
		return true
	}
	return len(s.Accumulated) >= len(s.Required)
}

// Accept places e on a recipe station on behalf of actor.
func (k *Kitchen) Accept(s *Station, e *Entity, actor string) Result {
	if !s.isRecipe() {
		return reject(protocol.ErrBadRequest, s.ID+" does not take ingredients")
	}
	if e == nil {
		return reject(protocol.ErrNotHolding, "nothing to place")
	}
	if s.Completed {
		return reject(protocol.ErrStationComplete, s.ID+" is already complete")
	}
	if e.Kind != s.Accepts {
		return reject(protocol.ErrWrongKind, s.ID+" takes "+string(s.Accepts)+" items")
	}
	if s.Recipe.Exact && !s.requires(e.Item) {
		return reject(protocol.ErrWrongItem, e.Item+" is not needed for "+s.Recipe.RecipeID)
	}

	s.Accumulated = append(s.Accumulated, e.Item)
	s.names[e.Item] = true
	s.contents = append(s.contents, e)
	k.transfer(e, OwnerStation, s.ID, actor, "ACCEPT")
	k.strip(e)
	e.Pos = s.Pos

	if s.satisfied() {
		k.completeStation(s, actor)
		return ok("placed " + e.Item + "; " + s.Recipe.RecipeID + " complete")
	}
	return ok("placed " + e.Item)
}

func (k *Kitchen) completeStation(s *Station, actor string) {
	for _, e := range s.contents {
		k.remove(e, actor, "RECIPE_COMPLETE")
	}
	s.contents = nil

	dish := k.spawn(s.Recipe.Output, s.Pos, OwnerStation, s.ID, actor, "RECIPE_COMPLETE")
	if s.Recipe.DishPoints > 0 {
		dish.Points = s.Recipe.DishPoints
	}
	s.Dish = dish
	s.Completed = true

	if err := k.session.Score.Add(s.Recipe.Bonus, "RECIPE_COMPLETE:"+s.Recipe.RecipeID, actor); err != nil {
		k.logf("station %s: %v", s.ID, err)
	}
	k.broadcast(protocol.Event{
		"t":       k.tick.Load(),
		"type":    "STATION_COMPLETE",
		"station": s.ID,
		"recipe":  s.Recipe.RecipeID,
		"dish_id": dish.ID,
		"by":      actor,
	})
}

// ResetStation clears a completed recipe station so it can be reused.
func (k *Kitchen) ResetStation(s *Station, actor string) Result {
	if !s.isRecipe() {
		return reject(protocol.ErrBadRequest, s.ID+" cannot be reset")
	}
	if !s.Completed {
		return reject(protocol.ErrNotComplete, s.ID+" is not complete")
	}
	for _, e := range s.contents {
		k.remove(e, actor, "STATION_RESET")
	}
	if s.Dish != nil && s.Dish.Owner == OwnerStation && s.Dish.OwnerRef == s.ID {
		k.remove(s.Dish, actor, "STATION_RESET")
	}
	s.contents = nil
	s.Dish = nil
	s.Accumulated = nil
	s.names = map[string]bool{}
	s.Completed = false
	k.audit(AuditEntry{Actor: actor, Action: "STATION_RESET", To: s.ID})
	return ok(s.ID + " reset")
}

// interactStation dispatches an INTERACT on a station by kind.
func (k *Kitchen) interactStation(s *Station, p *Player) Result {
	switch s.Kind {
	case tuning.StationAssembly, tuning.StationPot:
		return k.useRecipeStation(s, p)
	case tuning.StationCuttingBoard:
		return k.useCuttingBoard(s, p)
	case tuning.StationDishRack:
		return k.useDishRack(s, p)
	case tuning.StationCrate:
		return k.useCrate(s, p)
	}
	return reject(protocol.ErrBadRequest, "unknown station kind "+s.Kind)
}

func (k *Kitchen) useRecipeStation(s *Station, p *Player) Result {
	held := p.Hand.held
	if s.Completed && s.Dish != nil {
		serveWith := s.Recipe.ServeWith
		switch {
		case serveWith != "" && held != nil && held.Kind == KindPlate && held.Item == serveWith:
			return k.serveDish(s, p)
		case serveWith == "" && held == nil:
			dish := s.Dish
			s.Dish = nil
			k.transfer(dish, OwnerHand, p.ID, p.ID, "PICKUP")
			dish.Pos = p.HandPos()
			return ok("picked up " + dish.Item)
		case serveWith != "" && held == nil:
			return reject(protocol.ErrNotHolding, s.Recipe.Output+" must be served with "+serveWith)
		}
	}
	if held == nil {
		return reject(protocol.ErrNotHolding, "nothing to place")
	}
	return k.Accept(s, held, p.ID)
}

// serveDish trades the player's plate for the finished dish.
func (k *Kitchen) serveDish(s *Station, p *Player) Result {
	plate := p.Hand.held
	k.remove(plate, p.ID, "SERVE")
	dish := s.Dish
	s.Dish = nil
	k.transfer(dish, OwnerHand, p.ID, p.ID, "SERVE")
	dish.Pos = p.HandPos()
	k.broadcast(protocol.Event{
		"t":       k.tick.Load(),
		"type":    "DISH_SERVED",
		"station": s.ID,
		"dish_id": dish.ID,
		"by":      p.ID,
	})
	return ok("served " + dish.Item)
}

func (k *Kitchen) useCuttingBoard(s *Station, p *Player) Result {
	held := p.Hand.held
	if held != nil {
		if held.Kind != KindRaw {
			return reject(protocol.ErrWrongKind, "only raw ingredients can be cut")
		}
		if s.Holding != nil {
			return reject(protocol.ErrStationBusy, s.ID+" already holds "+s.Holding.Item)
		}
		if k.catalogs.Items.Defs[held.Item].CutInto == "" {
			return reject(protocol.ErrWrongItem, held.Item+" cannot be cut")
		}
		k.transfer(held, OwnerStation, s.ID, p.ID, "BOARD")
		k.strip(held)
		held.Pos = s.Pos
		s.Holding = held
		return ok("placed " + held.Item + " on " + s.ID)
	}
	if s.Holding == nil {
		return reject(protocol.ErrNotHolding, "nothing to cut")
	}
	raw := s.Holding
	s.Holding = nil
	cutInto := k.catalogs.Items.Defs[raw.Item].CutInto
	k.remove(raw, p.ID, "CUT")
	cut := k.spawn(cutInto, s.Pos, OwnerWorld, "", p.ID, "CUT")
	k.broadcast(protocol.Event{
		"t":       k.tick.Load(),
		"type":    "CUT",
		"station": s.ID,
		"from":    raw.Item,
		"item":    cut.Item,
		"id":      cut.ID,
	})
	return ok("cut " + raw.Item + " into " + cut.Item)
}

func (k *Kitchen) useDishRack(s *Station, p *Player) Result {
	if !p.Hand.Empty() {
		return reject(protocol.ErrHandsFull, "already holding "+p.Hand.held.Item)
	}
	plate := k.spawn(s.Item, p.HandPos(), OwnerHand, p.ID, p.ID, "DISH_RACK")
	return ok("took " + plate.Item)
}

func (k *Kitchen) useCrate(s *Station, p *Player) Result {
	now := k.clock
	if now < s.ReadyTick {
		return reject(protocol.ErrCooldown, s.ID+" is cooling down")
	}
	if !k.session.Limits.CanSpawn(s.Item) {
		return reject(protocol.ErrLimitReached, "too many "+s.Item+" in the kitchen")
	}
	toward := p.Pos.Sub(s.Pos)
	if toward.Length() > 0 {
		toward = toward.Normalize()
	}
	pos := k.clamp(s.Pos.Add(toward.Mult(k.tun.Player.DropOffset)))
	e := k.spawn(s.Item, pos, OwnerWorld, "", p.ID, "CRATE")
	if cd := k.tun.Ticks(k.tun.Crate.CooldownS); cd > 0 {
		s.ReadyTick = now + cd
		k.sched.At(s.ReadyTick, tasks.KindCrateReady, s.ID)
	}
	return ok("spawned " + e.Item)
}

func (k *Kitchen) sortedStations() []*Station {
	out := make([]*Station, 0, len(k.stations))
	for _, s := range k.stations {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
