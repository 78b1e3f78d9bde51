package kitchen

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/jakecoffman/cp"

	"kitchenchaos.game/internal/observerproto"
	"kitchenchaos.game/internal/protocol"
	"kitchenchaos.game/internal/sim/tuning"
)

func TestNew_ConfigErrors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"unknown recipe", func(c *Config) { c.Layout.Stations[0].Recipe = "pizza" }, "station plate_1"},
		{"recipe on wrong station", func(c *Config) { c.Layout.Stations[2].Recipe = "burger" }, "station pot_1"},
		{"rack without plate", func(c *Config) { c.Layout.Stations[4].Item = "Tomato" }, "station rack_1"},
		{"crate with dish", func(c *Config) { c.Layout.Stations[5].Item = "Burger" }, "station crate_broth"},
		{"seed not raw", func(c *Config) {
			c.Layout.Ingredients = []tuning.IngredientSeed{{Item: "Plate", Count: 1}}
		}, "layout.ingredients"},
		{"customers without door", func(c *Config) {
			c.Tuning.Customer.MaxAlive = 1
			c.Layout.Waypoints.Door = nil
		}, "layout.waypoints"},
		{"bad tuning", func(c *Config) { c.Tuning.TickRateHz = 0 }, "tuning"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Config{Seed: 1, Tuning: testTuning(), Layout: testLayout()}
			tc.mutate(&cfg)
			_, err := New(cfg, testCatalogs(t))
			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
			if ce.Field != tc.field {
				t.Fatalf("field = %q, want %q", ce.Field, tc.field)
			}
		})
	}

	if _, err := New(Config{Tuning: testTuning(), Layout: testLayout()}, nil); err == nil {
		t.Fatalf("expected error for missing catalogs")
	}
}

func TestPause_FreezesSystems(t *testing.T) {
	k := newTestKitchen(t, nil)
	p := addPlayer(t, k, "chef", cp.Vector{})
	tomato := spawnWorld(k, "Tomato", cp.Vector{X: 1})

	if res := k.applyIntent(p, protocol.Intent{ID: "1", Type: protocol.IntentPause}); !res.OK || !k.session.Paused {
		t.Fatalf("pause: %+v", res)
	}
	if res := k.applyIntent(p, protocol.Intent{ID: "2", Type: protocol.IntentMove, Dir: protocol.Vec2{1, 0}}); res.Code != protocol.ErrPaused {
		t.Fatalf("move while paused = %+v", res)
	}
	clock, pos := k.clock, tomato.Pos
	stepN(k, 5)
	if k.clock != clock || tomato.Pos != pos {
		t.Fatalf("systems ran while paused")
	}
	if k.CurrentTick() != 5 {
		t.Fatalf("tick should still advance, got %d", k.CurrentTick())
	}
	if res := k.applyIntent(p, protocol.Intent{ID: "3", Type: protocol.IntentResume}); !res.OK || k.session.Paused {
		t.Fatalf("resume: %+v", res)
	}
	stepN(k, 1)
	if k.clock != clock+1 || tomato.Pos == pos {
		t.Fatalf("systems did not resume")
	}
}

func TestRoundEnd(t *testing.T) {
	k := newTestKitchen(t, func(cfg *Config) {
		cfg.Tuning.Round.Seconds = 0.1
		cfg.Tuning.Round.ScoreThreshold = 50
	})
	p := addPlayer(t, k, "chef", cp.Vector{})
	_ = k.session.Score.Add(60, "TEST", p.ID)

	k.StepOnce(nil, nil, nil, nil)
	if k.session.Timer.Over {
		t.Fatalf("round ended early")
	}
	k.StepOnce(nil, nil, nil, nil)
	tm := k.session.Timer
	if !tm.Over || tm.Outcome != OutcomeSuccess || tm.NextScene != "paris" {
		t.Fatalf("timer = %+v", tm)
	}
	if res := k.applyIntent(p, protocol.Intent{ID: "x", Type: protocol.IntentStop}); res.Code != protocol.ErrRoundOver {
		t.Fatalf("intent after round = %+v", res)
	}
	obs, _ := k.Observation(p.ID)
	if !obs.Round.Over || obs.Round.Outcome != OutcomeSuccess || obs.Round.RemainingS != 0 {
		t.Fatalf("round obs = %+v", obs.Round)
	}
}

func TestApplyAct_StaleAndResults(t *testing.T) {
	k := newTestKitchen(t, nil)
	p := addPlayer(t, k, "chef", cp.Vector{})
	stepN(k, 20)

	now := k.CurrentTick()
	k.applyAct(p, protocol.ActMsg{Tick: now - staleActTicks - 1, Intents: []protocol.Intent{{ID: "a", Type: protocol.IntentStop}}}, now)
	if len(p.Events) != 1 || p.Events[0]["code"] != protocol.ErrStale {
		t.Fatalf("stale events = %v", p.Events)
	}
	p.Events = nil

	k.applyAct(p, protocol.ActMsg{Tick: now, Intents: []protocol.Intent{
		{ID: "m", Type: protocol.IntentMove, Dir: protocol.Vec2{3, 4}},
		{ID: "d", Type: protocol.IntentDrop},
		{ID: "z", Type: "FLY"},
	}}, now)
	if len(p.Events) != 3 {
		t.Fatalf("expected one result per intent, got %v", p.Events)
	}
	if p.Events[0]["ok"] != true || p.Events[1]["code"] != protocol.ErrNotHolding || p.Events[2]["code"] != protocol.ErrBadRequest {
		t.Fatalf("results = %v", p.Events)
	}
	if p.MoveDir.Distance(cp.Vector{X: 0.6, Y: 0.8}) > 1e-9 {
		t.Fatalf("move dir not normalized: %v", p.MoveDir)
	}
	for _, e := range p.Events {
		if code, _ := e["code"].(string); !protocol.IsKnownCode(code) {
			t.Fatalf("unknown code %q", code)
		}
	}
}

func TestMovement(t *testing.T) {
	k := newTestKitchen(t, nil)
	p := addPlayer(t, k, "chef", cp.Vector{})
	env := ActionEnvelope{PlayerID: p.ID, Act: protocol.ActMsg{Tick: 0, Intents: []protocol.Intent{{ID: "m", Type: protocol.IntentMove, Dir: protocol.Vec2{1, 0}}}}}
	k.StepOnce(nil, nil, []ActionEnvelope{env}, nil)

	want := k.tun.Player.MoveSpeed * k.tun.Dt()
	if p.Pos.Distance(cp.Vector{X: want}) > 1e-9 || p.Facing.Distance(cp.Vector{X: 1}) > 1e-9 {
		t.Fatalf("pos=%v facing=%v", p.Pos, p.Facing)
	}
	p.Pos = cp.Vector{X: 14.99}
	stepN(k, 5)
	if p.Pos.X != 15 {
		t.Fatalf("player not clamped: %v", p.Pos)
	}
}

func TestJoinAttachLeave(t *testing.T) {
	k := newTestKitchen(t, nil)
	out := make(chan []byte, 4)
	resp := make(chan JoinResponse, 1)
	k.StepOnce([]JoinRequest{{Name: "chef", Out: out, Resp: resp}}, nil, nil, nil)

	jr := <-resp
	w := jr.Welcome
	if w.PlayerID != "P1" || w.RoundID != "round_test" || w.ResumeToken == "" {
		t.Fatalf("welcome = %+v", w)
	}
	if len(jr.Catalogs) != 2 || jr.Catalogs[0].Name != "item_palette" {
		t.Fatalf("catalogs = %+v", jr.Catalogs)
	}
	var obs protocol.ObsMsg
	if err := json.Unmarshal(<-out, &obs); err != nil || obs.PlayerID != "P1" {
		t.Fatalf("obs: %v %+v", err, obs)
	}

	k.StepOnce(nil, []string{"P1"}, nil, nil)
	if _, ok := k.players["P1"]; !ok {
		t.Fatalf("leave must keep the player for resume")
	}
	if k.clients["P1"] != nil {
		t.Fatalf("client still attached")
	}

	out2 := make(chan []byte, 4)
	resp2 := make(chan JoinResponse, 1)
	k.handleAttach(AttachRequest{ResumeToken: w.ResumeToken, Out: out2, Resp: resp2})
	again := <-resp2
	if again.Welcome.PlayerID != "P1" || again.Welcome.ResumeToken == w.ResumeToken {
		t.Fatalf("attach should rotate the token: %+v", again.Welcome)
	}

	resp3 := make(chan JoinResponse, 1)
	k.handleAttach(AttachRequest{ResumeToken: w.ResumeToken, Out: out2, Resp: resp3})
	if (<-resp3).Welcome.PlayerID != "" {
		t.Fatalf("old token must not attach")
	}
}

func TestSpawners_TopUpSeeds(t *testing.T) {
	k := newTestKitchen(t, func(cfg *Config) {
		cfg.Layout.Ingredients = []tuning.IngredientSeed{{Item: "Tomato", Count: 2}}
	})
	if countItem(k, "Tomato") != 2 {
		t.Fatalf("tomatoes = %d", countItem(k, "Tomato"))
	}
	for _, e := range k.sortedEntities() {
		if e.Pos.Distance(cp.Vector{}) > 10+1e-9 {
			t.Fatalf("seed outside the ingredient area: %v", e.Pos)
		}
	}
	s := k.stations["plate_1"]
	var first *Entity
	for _, e := range k.sortedEntities() {
		first = e
		break
	}
	k.Accept(s, first, "P1")
	stepN(k, 1)
	live := 0
	for _, e := range k.entities {
		if e.Item == "Tomato" && !e.Stripped {
			live++
		}
	}
	if live != 2 {
		t.Fatalf("live tomatoes = %d, want 2", live)
	}
}

func TestApplyTuning_KeepsRoundClock(t *testing.T) {
	k := newTestKitchen(t, nil)
	next := testTuning()
	next.TickRateHz = 60
	next.Player.MoveSpeed = 9
	next.IngredientLimits = map[string]int{"Broth": 3}
	k.StepOnce(nil, nil, nil, &next)
	if k.tun.TickRateHz != 20 || k.tun.Player.MoveSpeed != 9 {
		t.Fatalf("tuning = %+v", k.tun)
	}

	bad := testTuning()
	bad.Player.PickupRadius = 0
	k.StepOnce(nil, nil, nil, &bad)
	if k.tun.Player.PickupRadius == 0 {
		t.Fatalf("invalid tuning applied")
	}
}

func TestApplyTuning_StartsCustomerSpawner(t *testing.T) {
	k := newTestKitchen(t, nil)
	if k.spawnTask != 0 {
		t.Fatalf("spawner scheduled with max_alive=0")
	}
	next := testTuning()
	next.Customer.MaxAlive = 2
	next.Customer.FirstSpawnS = 0.1
	k.StepOnce(nil, nil, nil, &next)
	if k.spawnTask == 0 {
		t.Fatalf("reload did not schedule the spawner")
	}
	stepN(k, 3)
	if len(k.customers) == 0 {
		t.Fatalf("no customer spawned after reload")
	}
	for _, c := range k.customers {
		if c.Pos != k.door || c.Order == "" {
			t.Fatalf("customer = %+v", c)
		}
	}
}

func TestApplyTuning_RejectsCustomersWithoutWaypoints(t *testing.T) {
	k := newTestKitchen(t, func(cfg *Config) {
		cfg.Layout.Waypoints = tuning.Waypoints{}
	})
	next := testTuning()
	next.Customer.MaxAlive = 2
	next.Player.MoveSpeed = 9
	k.StepOnce(nil, nil, nil, &next)
	if k.tun.Customer.MaxAlive != 0 || k.tun.Player.MoveSpeed == 9 || k.spawnTask != 0 {
		t.Fatalf("reload applied without waypoints: %+v spawn=%d", k.tun.Customer, k.spawnTask)
	}
	stepN(k, 40)
	if len(k.customers) != 0 {
		t.Fatalf("customers = %d", len(k.customers))
	}
}

func TestStepOnce_Deterministic(t *testing.T) {
	mk := func() *Kitchen {
		return newTestKitchen(t, func(cfg *Config) {
			cfg.Layout.Ingredients = []tuning.IngredientSeed{{Item: "Tomato", Count: 3}, {Item: "Lettuce", Count: 2}}
			cfg.Tuning.Customer.MaxAlive = 2
			cfg.Tuning.Customer.SpawnIntervalS = 1
		})
	}
	a, b := mk(), mk()
	join := func() []JoinRequest { return []JoinRequest{{Name: "chef"}} }
	a.StepOnce(join(), nil, nil, nil)
	b.StepOnce(join(), nil, nil, nil)
	for i := 1; i < 200; i++ {
		var acts []ActionEnvelope
		if i%10 == 0 {
			dir := protocol.Vec2{float64(i%3) - 1, 1}
			acts = []ActionEnvelope{{PlayerID: "P1", Act: protocol.ActMsg{Tick: uint64(i), Intents: []protocol.Intent{
				{ID: "m", Type: protocol.IntentMove, Dir: dir},
				{ID: "p", Type: protocol.IntentPickup},
			}}}}
		}
		_, da := a.StepOnce(nil, nil, acts, nil)
		_, db := b.StepOnce(nil, nil, acts, nil)
		if da != db {
			t.Fatalf("digest mismatch at tick %d", i)
		}
	}
}

func TestSnapshot_RoundTrip(t *testing.T) {
	mk := func() *Kitchen {
		return newTestKitchen(t, func(cfg *Config) {
			cfg.Layout.Ingredients = []tuning.IngredientSeed{{Item: "Tomato", Count: 2}}
			cfg.Tuning.Customer.MaxAlive = 1
			cfg.Tuning.Customer.FirstSpawnS = 0
		})
	}
	k := mk()
	k.StepOnce([]JoinRequest{{Name: "chef"}}, nil, nil, nil)
	p := k.players["P1"]
	p.Pos = cp.Vector{X: 4, Y: 3}
	spawnInHand(k, p, "OnionRings")
	k.Interact(p, "pot_1")
	p.Pos = cp.Vector{X: 9, Y: 3}
	k.Interact(p, "crate_broth")
	spawnInHand(k, p, "Plate")
	stepN(k, 30)

	last := k.CurrentTick() - 1
	snap := k.ExportSnapshot(last)
	want := k.stateDigest(last)

	r := mk()
	if err := r.ImportSnapshot(snap); err != nil {
		t.Fatalf("import: %v", err)
	}
	if got := r.stateDigest(last); got != want {
		t.Fatalf("digest after import = %s, want %s", got, want)
	}
	if r.CurrentTick() != k.CurrentTick() {
		t.Fatalf("tick after import = %d, want %d", r.CurrentTick(), k.CurrentTick())
	}
	if r.players["P1"].Hand.HeldPlate() == nil {
		t.Fatalf("held plate lost")
	}
	for i := 0; i < 50; i++ {
		_, da := k.StepOnce(nil, nil, nil, nil)
		_, db := r.StepOnce(nil, nil, nil, nil)
		if da != db {
			t.Fatalf("diverged %d ticks after import", i)
		}
	}
}

func TestObservers(t *testing.T) {
	k := newTestKitchen(t, nil)
	k.StepOnce([]JoinRequest{{Name: "chef"}}, nil, nil, nil)

	out := make(chan []byte, 1)
	k.handleObserverJoin(ObserverJoinRequest{SessionID: "s1", TickOut: out, FocusPlayerID: "P1"})
	k.StepOnce(nil, nil, nil, nil)

	var msg observerproto.TickMsg
	if err := json.Unmarshal(<-out, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Type != "TICK" || len(msg.Players) != 1 || msg.Focus == nil || msg.FocusPlayerID != "P1" {
		t.Fatalf("tick msg = %+v", msg)
	}
	if len(msg.Stations) != 0 {
		t.Fatalf("stations streamed without with_entities")
	}

	k.handleObserverSubscribe(ObserverSubscribeRequest{SessionID: "s1", WithEntities: true})
	k.StepOnce(nil, nil, nil, nil)
	msg = observerproto.TickMsg{}
	if err := json.Unmarshal(<-out, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(msg.Stations) != len(k.stations) || msg.Focus != nil {
		t.Fatalf("subscribe not applied: %+v", msg)
	}

	k.handleObserverLeave("s1")
	if _, open := <-out; open {
		t.Fatalf("observer channel should be closed")
	}

	b := k.Bootstrap()
	if b.RoundID != "round_test" || len(b.Stations) != len(k.stations) || len(b.ItemPalette) == 0 {
		t.Fatalf("bootstrap = %+v", b)
	}
}

func TestObservers_UnknownFocusCleared(t *testing.T) {
	k := newTestKitchen(t, nil)
	k.StepOnce([]JoinRequest{{Name: "chef"}}, nil, nil, nil)

	out := make(chan []byte, 1)
	k.handleObserverJoin(ObserverJoinRequest{SessionID: "s1", TickOut: out, FocusPlayerID: "P9"})
	if k.observers["s1"].focusPlayerID != "" {
		t.Fatalf("unknown focus kept: %q", k.observers["s1"].focusPlayerID)
	}
	k.StepOnce(nil, nil, nil, nil)
	var msg observerproto.TickMsg
	if err := json.Unmarshal(<-out, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Focus != nil || msg.FocusPlayerID != "" {
		t.Fatalf("focus streamed for unknown player: %+v", msg)
	}

	k.handleObserverSubscribe(ObserverSubscribeRequest{SessionID: "s1", FocusPlayerID: " P1 "})
	if k.observers["s1"].focusPlayerID != "P1" {
		t.Fatalf("focus = %q, want P1", k.observers["s1"].focusPlayerID)
	}
	k.StepOnce(nil, []string{"P1"}, nil, nil)
	msg = observerproto.TickMsg{}
	if err := json.Unmarshal(<-out, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.FocusPlayerID != "P1" || msg.Focus == nil {
		t.Fatalf("disconnected player lost focus: %+v", msg)
	}
}
