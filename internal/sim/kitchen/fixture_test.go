package kitchen

import (
	"testing"

	"github.com/jakecoffman/cp"

	"kitchenchaos.game/internal/sim/catalogs"
	"kitchenchaos.game/internal/sim/tuning"
)

func testCatalogs(t *testing.T) *catalogs.Catalogs {
	t.Helper()
	items := []catalogs.ItemDef{
		{ID: "Tomato", Kind: catalogs.KindRaw, Flees: true, Points: 10},
		{ID: "Lettuce", Kind: catalogs.KindRaw, Flees: true, Points: 10},
		{ID: "Cheese", Kind: catalogs.KindRaw, Flees: true, Points: 10},
		{ID: "Patty", Kind: catalogs.KindRaw, Flees: true, Points: 10},
		{ID: "Onion", Kind: catalogs.KindRaw, Flees: true, CutInto: "OnionRings"},
		{ID: "OnionRings", Kind: catalogs.KindCut},
		{ID: "Broth", Kind: catalogs.KindCut},
		{ID: "Plate", Kind: catalogs.KindPlate},
		{ID: "Burger", Kind: catalogs.KindDish, Points: 100},
		{ID: "Soup", Kind: catalogs.KindDish, Points: 20},
		{ID: "Salad", Kind: catalogs.KindDish, Points: 30},
	}
	recipes := []catalogs.RecipeDef{
		{RecipeID: "burger", Station: catalogs.StationAssembly, Inputs: []string{"Tomato", "Lettuce", "Cheese", "Patty"}, Exact: true, Output: "Burger", Bonus: 100, DishPoints: 100},
		{RecipeID: "salad", Station: catalogs.StationAssembly, Inputs: []string{"Tomato", "Lettuce"}, Output: "Salad", Bonus: 10},
		{RecipeID: "soup", Station: catalogs.StationPot, Inputs: []string{"OnionRings", "Broth"}, Exact: true, Output: "Soup", Bonus: 50, DishPoints: 150, ServeWith: "Plate"},
	}
	customers := catalogs.CustomerCatalog{
		Orders:        []string{"Burger please"},
		SatisfiedText: "Delicious!",
		WrongItemText: "Not what I ordered.",
	}
	cats, err := catalogs.New(items, recipes, customers)
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	return cats
}

func testLayout() tuning.Layout {
	return tuning.Layout{
		Bounds:      tuning.Bounds{MinX: -15, MinZ: -15, MaxX: 15, MaxZ: 15},
		PlayerSpawn: tuning.Point{X: 0, Z: 0},
		Waypoints: tuning.Waypoints{
			Counter: &tuning.Point{X: 0, Z: 8},
			Door:    &tuning.Point{X: 0, Z: 14},
		},
		Area: tuning.IngredientArea{Center: tuning.Point{X: 0, Z: 0}, Radius: 10},
		Stations: []tuning.StationSpec{
			{ID: "plate_1", Kind: tuning.StationAssembly, Recipe: "burger", Pos: tuning.Point{X: -4, Z: 4}},
			{ID: "salad_1", Kind: tuning.StationAssembly, Recipe: "salad", Pos: tuning.Point{X: -4, Z: -4}},
			{ID: "pot_1", Kind: tuning.StationPot, Recipe: "soup", Pos: tuning.Point{X: 4, Z: 4}},
			{ID: "board_1", Kind: tuning.StationCuttingBoard, Pos: tuning.Point{X: 6, Z: 0}},
			{ID: "rack_1", Kind: tuning.StationDishRack, Item: "Plate", Pos: tuning.Point{X: -6, Z: 0}},
			{ID: "crate_broth", Kind: tuning.StationCrate, Item: "Broth", Pos: tuning.Point{X: 10, Z: 3}},
		},
	}
}

// testTuning has no customer spawner and an endless round so tests drive
// everything explicitly.
func testTuning() tuning.Tuning {
	tun := tuning.Defaults()
	tun.Customer.MaxAlive = 0
	tun.Round.Seconds = 0
	tun.IngredientLimits = map[string]int{"Broth": 1}
	return tun
}

func newTestKitchen(t *testing.T, mutate func(*Config)) *Kitchen {
	t.Helper()
	cfg := Config{
		RoundID: "round_test",
		Seed:    42,
		Tuning:  testTuning(),
		Layout:  testLayout(),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	k, err := New(cfg, testCatalogs(t))
	if err != nil {
		t.Fatalf("new kitchen: %v", err)
	}
	return k
}

func addPlayer(t *testing.T, k *Kitchen, name string, pos cp.Vector) *Player {
	t.Helper()
	resp := k.joinPlayer(name, nil)
	p := k.players[resp.Welcome.PlayerID]
	if p == nil {
		t.Fatalf("player %q not registered", name)
	}
	p.Pos = pos
	return p
}

func spawnWorld(k *Kitchen, item string, pos cp.Vector) *Entity {
	return k.spawn(item, pos, OwnerWorld, "", "TEST", "TEST")
}

func spawnInHand(k *Kitchen, p *Player, item string) *Entity {
	return k.spawn(item, p.HandPos(), OwnerHand, p.ID, "TEST", "TEST")
}

func countItem(k *Kitchen, item string) int {
	n := 0
	for _, e := range k.entities {
		if e.Item == item {
			n++
		}
	}
	return n
}

func hasEvent(p *Player, typ string) bool {
	for _, e := range p.Events {
		if e["type"] == typ {
			return true
		}
	}
	return false
}

func stepN(k *Kitchen, n int) {
	for i := 0; i < n; i++ {
		k.StepOnce(nil, nil, nil, nil)
	}
}
