package kitchen

import (
	"testing"

	"github.com/jakecoffman/cp"

	"kitchenchaos.game/internal/protocol"
)

func TestAccept_ExactRecipe(t *testing.T) {
	k := newTestKitchen(t, nil)
	s := k.stations["plate_1"]

	tomato := spawnWorld(k, "Tomato", cp.Vector{})
	if res := k.Accept(s, tomato, "P1"); !res.OK {
		t.Fatalf("accept tomato: %+v", res)
	}
	if tomato.Owner != OwnerStation || tomato.OwnerRef != "plate_1" || !tomato.Stripped || tomato.Simulated {
		t.Fatalf("accepted tomato not stripped onto station: %+v", tomato)
	}
	if tomato.Flee.Mode != ModePlated {
		t.Fatalf("accepted tomato mode = %s", tomato.Flee.Mode)
	}

	onion := spawnWorld(k, "Onion", cp.Vector{X: 1})
	res := k.Accept(s, onion, "P1")
	if res.OK || res.Code != protocol.ErrWrongItem {
		t.Fatalf("accept onion = %+v", res)
	}
	if onion.Owner != OwnerWorld || onion.Stripped || onion.Flee.Mode != ModeWander || len(s.Accumulated) != 1 {
		t.Fatalf("rejected item changed state")
	}

	rings := spawnWorld(k, "OnionRings", cp.Vector{X: 2})
	if res := k.Accept(s, rings, "P1"); res.Code != protocol.ErrWrongKind {
		t.Fatalf("accept cut item = %+v", res)
	}
	if res := k.Accept(s, nil, "P1"); res.Code != protocol.ErrNotHolding {
		t.Fatalf("accept nil = %+v", res)
	}

	for _, item := range []string{"Lettuce", "Cheese"} {
		if res := k.Accept(s, spawnWorld(k, item, cp.Vector{}), "P1"); !res.OK {
			t.Fatalf("accept %s: %+v", item, res)
		}
	}
	if s.Completed || k.session.Score.Total() != 0 {
		t.Fatalf("completed early")
	}
	if res := k.Accept(s, spawnWorld(k, "Patty", cp.Vector{}), "P1"); !res.OK {
		t.Fatalf("accept patty: %+v", res)
	}
	if !s.Completed || s.Dish == nil || s.Dish.Item != "Burger" {
		t.Fatalf("station not complete: %+v", s)
	}
	if s.Dish.Points != 100 || s.Dish.Owner != OwnerStation {
		t.Fatalf("bad dish: %+v", s.Dish)
	}
	if k.session.Score.Total() != 100 {
		t.Fatalf("score = %d, want 100", k.session.Score.Total())
	}
	if _, ok := k.entities[tomato.ID]; ok {
		t.Fatalf("ingredients should be consumed on completion")
	}
	if got := s.Accumulated; len(got) != 4 || got[0] != "Tomato" || got[3] != "Patty" {
		t.Fatalf("accumulated = %v", got)
	}

	res = k.Accept(s, spawnWorld(k, "Tomato", cp.Vector{}), "P1")
	if res.OK || res.Code != protocol.ErrStationComplete {
		t.Fatalf("accept after completion = %+v", res)
	}
	if k.session.Score.Total() != 100 {
		t.Fatalf("bonus awarded twice: %d", k.session.Score.Total())
	}
}

func TestAccept_ExactNeedsEveryRequiredItem(t *testing.T) {
	k := newTestKitchen(t, nil)
	s := k.stations["plate_1"]

	for _, item := range []string{"Tomato", "Tomato", "Lettuce", "Cheese", "Cheese"} {
		if res := k.Accept(s, spawnWorld(k, item, cp.Vector{}), "P1"); !res.OK {
			t.Fatalf("accept %s: %+v", item, res)
		}
	}
	if s.Completed {
		t.Fatalf("duplicates must not stand in for a missing required item")
	}
	if res := k.Accept(s, spawnWorld(k, "Patty", cp.Vector{}), "P1"); !res.OK {
		t.Fatalf("accept patty: %+v", res)
	}
	if !s.Completed || len(s.Accumulated) != 6 {
		t.Fatalf("superset should complete: completed=%v acc=%v", s.Completed, s.Accumulated)
	}
}

func TestAccept_CountMode(t *testing.T) {
	k := newTestKitchen(t, nil)
	s := k.stations["salad_1"]

	if res := k.Accept(s, spawnWorld(k, "Onion", cp.Vector{}), "P1"); !res.OK {
		t.Fatalf("count mode should accept any raw item: %+v", res)
	}
	if res := k.Accept(s, spawnWorld(k, "Cheese", cp.Vector{}), "P1"); !res.OK {
		t.Fatalf("accept cheese: %+v", res)
	}
	if !s.Completed || s.Dish == nil || s.Dish.Points != 30 {
		t.Fatalf("salad not complete with catalog points: %+v", s.Dish)
	}
	if k.session.Score.Total() != 10 {
		t.Fatalf("score = %d", k.session.Score.Total())
	}
}

func TestResetStation(t *testing.T) {
	k := newTestKitchen(t, nil)
	s := k.stations["salad_1"]

	if res := k.ResetStation(s, "P1"); res.Code != protocol.ErrNotComplete {
		t.Fatalf("reset incomplete = %+v", res)
	}
	k.Accept(s, spawnWorld(k, "Tomato", cp.Vector{}), "P1")
	k.Accept(s, spawnWorld(k, "Lettuce", cp.Vector{}), "P1")
	dish := s.Dish
	if res := k.ResetStation(s, "P1"); !res.OK {
		t.Fatalf("reset: %+v", res)
	}
	if s.Completed || s.Dish != nil || len(s.Accumulated) != 0 {
		t.Fatalf("station not cleared")
	}
	if _, ok := k.entities[dish.ID]; ok {
		t.Fatalf("uncollected dish should be removed on reset")
	}

	k.Accept(s, spawnWorld(k, "Tomato", cp.Vector{}), "P1")
	k.Accept(s, spawnWorld(k, "Lettuce", cp.Vector{}), "P1")
	if !s.Completed || k.session.Score.Total() != 20 {
		t.Fatalf("second completion: completed=%v score=%d", s.Completed, k.session.Score.Total())
	}
	if res := k.ResetStation(k.stations["board_1"], "P1"); res.Code != protocol.ErrBadRequest {
		t.Fatalf("reset board = %+v", res)
	}
}

func TestPot_ServeWithPlate(t *testing.T) {
	k := newTestKitchen(t, nil)
	p := addPlayer(t, k, "chef", cp.Vector{X: 4, Y: 3})

	for _, item := range []string{"OnionRings", "Broth"} {
		spawnInHand(k, p, item)
		if res := k.Interact(p, "pot_1"); !res.OK {
			t.Fatalf("place %s: %+v", item, res)
		}
		if !p.Hand.Empty() {
			t.Fatalf("hand should be empty after placing %s", item)
		}
	}
	s := k.stations["pot_1"]
	if !s.Completed || k.session.Score.Total() != 50 {
		t.Fatalf("pot not complete: %v score=%d", s.Completed, k.session.Score.Total())
	}

	if res := k.Interact(p, "pot_1"); res.Code != protocol.ErrNotHolding {
		t.Fatalf("empty-handed serve = %+v", res)
	}
	k.Scan(p)
	if p.Hand.Highlighted() == s.Dish {
		t.Fatalf("pot dish must not be picked up without a plate")
	}

	plate := spawnInHand(k, p, "Plate")
	if res := k.Interact(p, "pot_1"); !res.OK {
		t.Fatalf("serve: %+v", res)
	}
	held := p.Hand.HeldDish()
	if held == nil || held.Item != "Soup" || held.Points != 150 {
		t.Fatalf("expected soup worth 150 in hand, got %+v", held)
	}
	if _, ok := k.entities[plate.ID]; ok {
		t.Fatalf("plate should be consumed by serving")
	}
	if s.Dish != nil || !hasEvent(p, "DISH_SERVED") {
		t.Fatalf("station dish not handed over")
	}
}

func TestAssemblyDish_PickupAndInteract(t *testing.T) {
	k := newTestKitchen(t, nil)
	p := addPlayer(t, k, "chef", cp.Vector{X: -4, Y: -3})
	s := k.stations["salad_1"]
	k.Accept(s, spawnWorld(k, "Tomato", cp.Vector{}), "P1")
	k.Accept(s, spawnWorld(k, "Lettuce", cp.Vector{}), "P1")
	dish := s.Dish

	k.Scan(p)
	if p.Hand.Highlighted() != dish {
		t.Fatalf("assembly dish should be pickable")
	}
	if res := k.Pickup(p); !res.OK {
		t.Fatalf("pickup dish: %+v", res)
	}
	if s.Dish != nil || p.Hand.HeldDish() != dish || !s.Completed {
		t.Fatalf("dish not taken from station")
	}

	k.ResetStation(s, p.ID)
	k.Drop(p)
	k.Accept(s, spawnWorld(k, "Tomato", cp.Vector{}), "P1")
	k.Accept(s, spawnWorld(k, "Lettuce", cp.Vector{}), "P1")
	if res := k.Interact(p, ""); !res.OK || p.Hand.HeldDish() == nil {
		t.Fatalf("interact should hand over the dish: %+v", res)
	}
}

func TestCuttingBoard(t *testing.T) {
	k := newTestKitchen(t, nil)
	p := addPlayer(t, k, "chef", cp.Vector{X: 5})

	spawnInHand(k, p, "Tomato")
	if res := k.Interact(p, "board_1"); res.Code != protocol.ErrWrongItem {
		t.Fatalf("cut tomato = %+v", res)
	}
	k.Drop(p)

	onion := spawnInHand(k, p, "Onion")
	if res := k.Interact(p, "board_1"); !res.OK {
		t.Fatalf("place onion: %+v", res)
	}
	if k.stations["board_1"].Holding != onion || !onion.Stripped {
		t.Fatalf("onion not on board")
	}

	spawnInHand(k, p, "Lettuce")
	if res := k.Interact(p, "board_1"); res.Code != protocol.ErrStationBusy {
		t.Fatalf("busy board = %+v", res)
	}
	k.Drop(p)

	if res := k.Interact(p, "board_1"); !res.OK {
		t.Fatalf("cut: %+v", res)
	}
	if _, ok := k.entities[onion.ID]; ok {
		t.Fatalf("raw onion should be removed")
	}
	if countItem(k, "OnionRings") != 1 {
		t.Fatalf("expected one OnionRings")
	}
	if res := k.Interact(p, "board_1"); res.Code != protocol.ErrNotHolding {
		t.Fatalf("cut empty board = %+v", res)
	}
}

func TestDishRack(t *testing.T) {
	k := newTestKitchen(t, nil)
	p := addPlayer(t, k, "chef", cp.Vector{X: -5})

	if res := k.Interact(p, ""); !res.OK || p.Hand.HeldPlate() == nil {
		t.Fatalf("rack should hand out a plate: %+v", res)
	}
	if res := k.Interact(p, "rack_1"); res.Code != protocol.ErrHandsFull {
		t.Fatalf("rack with full hands = %+v", res)
	}
}

func TestCrate_CooldownAndLimit(t *testing.T) {
	k := newTestKitchen(t, nil)
	p := addPlayer(t, k, "chef", cp.Vector{X: 9, Y: 3})
	s := k.stations["crate_broth"]

	if res := k.Interact(p, "crate_broth"); !res.OK {
		t.Fatalf("crate: %+v", res)
	}
	if countItem(k, "Broth") != 1 || k.session.Limits.Count("Broth") != 1 {
		t.Fatalf("broth not spawned and tracked")
	}
	if s.ReadyTick != k.tun.Ticks(k.tun.Crate.CooldownS) {
		t.Fatalf("ready tick = %d", s.ReadyTick)
	}
	if res := k.Interact(p, "crate_broth"); res.Code != protocol.ErrCooldown {
		t.Fatalf("crate during cooldown = %+v", res)
	}

	stepN(k, int(s.ReadyTick)+1)
	if s.ReadyTick != 0 {
		t.Fatalf("crate not ready after cooldown")
	}
	if res := k.Interact(p, "crate_broth"); res.Code != protocol.ErrLimitReached {
		t.Fatalf("crate at limit = %+v", res)
	}

	// Using up the broth frees its slot.
	for _, e := range k.sortedEntities() {
		if e.Item == "Broth" {
			k.remove(e, p.ID, "TEST")
		}
	}
	if res := k.Interact(p, "crate_broth"); !res.OK {
		t.Fatalf("crate after release: %+v", res)
	}
}

func TestInteract_OutOfReach(t *testing.T) {
	k := newTestKitchen(t, nil)
	p := addPlayer(t, k, "chef", cp.Vector{})
	if res := k.Interact(p, "plate_1"); res.Code != protocol.ErrNoTarget {
		t.Fatalf("far station = %+v", res)
	}
	if res := k.Interact(p, "nope"); res.Code != protocol.ErrNoTarget {
		t.Fatalf("unknown target = %+v", res)
	}
	if res := k.Interact(p, ""); res.Code != protocol.ErrNothingNearby {
		t.Fatalf("nothing nearby = %+v", res)
	}
}
