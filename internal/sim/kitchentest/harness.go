package kitchentest

import (
	"encoding/json"
	"path/filepath"
	"strconv"
	"testing"

	"kitchenchaos.game/internal/protocol"
	"kitchenchaos.game/internal/sim/catalogs"
	"kitchenchaos.game/internal/sim/kitchen"
	"kitchenchaos.game/internal/sim/tuning"
)

// ConfigDir is the repository config directory, relative to this package.
var ConfigDir = filepath.Join("..", "..", "..", "configs")

// Harness drives a kitchen through its exported APIs only:
// - Join() issues a JoinRequest via StepOnce()
// - Step()/StepFor() issue ACTs via StepOnce()
// - per-player Out channels carry OBS JSON, decoded into LastObs
type Harness struct {
	T    *testing.T
	Cats *catalogs.Catalogs
	K    *kitchen.Kitchen

	DefaultPlayerID string

	sessions map[string]*session
	nextID   int
}

type session struct {
	PlayerID string
	Out      chan []byte
	lastObs  protocol.ObsMsg
	events   []protocol.Event
}

// LoadConfig reads the shipped catalogs, tuning and layout.
func LoadConfig(t *testing.T) (*catalogs.Catalogs, tuning.Tuning, tuning.Layout) {
	t.Helper()
	cats, err := catalogs.Load(ConfigDir)
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	tun, err := tuning.Load(filepath.Join(ConfigDir, "tuning.yaml"))
	if err != nil {
		t.Fatalf("load tuning: %v", err)
	}
	layout, err := tuning.LoadLayout(filepath.Join(ConfigDir, "layout.yaml"))
	if err != nil {
		t.Fatalf("load layout: %v", err)
	}
	return cats, tun, layout
}

func NewHarness(t *testing.T, cfg kitchen.Config, cats *catalogs.Catalogs, playerName string) *Harness {
	t.Helper()
	k, err := kitchen.New(cfg, cats)
	if err != nil {
		t.Fatalf("kitchen.New: %v", err)
	}
	return NewHarnessWithKitchen(t, k, cats, playerName)
}

// NewHarnessWithKitchen is like NewHarness, but uses an already-constructed
// kitchen, e.g. one restored from a snapshot.
func NewHarnessWithKitchen(t *testing.T, k *kitchen.Kitchen, cats *catalogs.Catalogs, playerName string) *Harness {
	t.Helper()
	h := &Harness{
		T:        t,
		Cats:     cats,
		K:        k,
		sessions: map[string]*session{},
	}
	if playerName != "" {
		h.DefaultPlayerID = h.Join(playerName)
	}
	return h
}

func (h *Harness) Join(name string) string {
	h.T.Helper()
	out := make(chan []byte, 16)
	resp := make(chan kitchen.JoinResponse, 1)
	h.K.StepOnce([]kitchen.JoinRequest{{Name: name, Out: out, Resp: resp}}, nil, nil, nil)
	jr := <-resp
	if jr.Welcome.PlayerID == "" {
		h.T.Fatalf("join returned empty player id")
	}
	s := &session{PlayerID: jr.Welcome.PlayerID, Out: out}
	h.sessions[s.PlayerID] = s
	h.drainAllObs()
	return s.PlayerID
}

func (h *Harness) LastObs() protocol.ObsMsg { return h.LastObsFor(h.DefaultPlayerID) }

func (h *Harness) LastObsFor(playerID string) protocol.ObsMsg {
	h.T.Helper()
	s := h.sessions[playerID]
	if s == nil {
		h.T.Fatalf("unknown player id: %q", playerID)
	}
	return s.lastObs
}

// Events returns every event the player has observed so far.
func (h *Harness) Events(playerID string) []protocol.Event {
	return h.sessions[playerID].events
}

func (h *Harness) Step(intents ...protocol.Intent) protocol.ObsMsg {
	return h.StepFor(h.DefaultPlayerID, intents...)
}

func (h *Harness) StepFor(playerID string, intents ...protocol.Intent) protocol.ObsMsg {
	h.T.Helper()
	var acts []kitchen.ActionEnvelope
	if len(intents) > 0 {
		acts = []kitchen.ActionEnvelope{{PlayerID: playerID, Act: h.act(playerID, intents)}}
	}
	h.K.StepOnce(nil, nil, acts, nil)
	h.drainAllObs()
	return h.LastObsFor(playerID)
}

// Idle advances n ticks without actions.
func (h *Harness) Idle(n int) {
	for i := 0; i < n; i++ {
		h.K.StepOnce(nil, nil, nil, nil)
		h.drainAllObs()
	}
}

func (h *Harness) act(playerID string, intents []protocol.Intent) protocol.ActMsg {
	for i := range intents {
		if intents[i].ID == "" {
			h.nextID++
			intents[i].ID = "I" + strconv.Itoa(h.nextID)
		}
	}
	return protocol.ActMsg{
		Type:            protocol.TypeAct,
		ProtocolVersion: protocol.Version,
		Tick:            h.K.CurrentTick(),
		PlayerID:        playerID,
		Intents:         intents,
	}
}

func (h *Harness) drainAllObs() {
	for _, s := range h.sessions {
		h.drain(s)
	}
}

func (h *Harness) drain(s *session) {
	for {
		select {
		case b := <-s.Out:
			var obs protocol.ObsMsg
			if err := json.Unmarshal(b, &obs); err != nil {
				h.T.Fatalf("decode obs: %v", err)
			}
			s.lastObs = obs
			s.events = append(s.events, obs.Events...)
		default:
			return
		}
	}
}
