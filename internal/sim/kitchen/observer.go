package kitchen

import (
	"encoding/json"
	"sort"
	"strings"

	"kitchenchaos.game/internal/observerproto"
	"kitchenchaos.game/internal/protocol"
)

// ObserverJoinRequest registers a read-only spectator session that receives
// one TICK message per tick on TickOut.
type ObserverJoinRequest struct {
	SessionID     string
	TickOut       chan []byte
	FocusPlayerID string
	WithEntities  bool
}

// ObserverSubscribeRequest updates an existing observer session subscription settings.
type ObserverSubscribeRequest struct {
	SessionID     string
	FocusPlayerID string
	WithEntities  bool
}

type observerClient struct {
	id      string
	tickOut chan []byte

	focusPlayerID string
	withEntities  bool
}

func (k *Kitchen) handleObserverJoin(req ObserverJoinRequest) {
	if req.SessionID == "" || req.TickOut == nil {
		return
	}
	// Replace existing session id if any.
	if old := k.observers[req.SessionID]; old != nil {
		close(old.tickOut)
	}
	k.observers[req.SessionID] = &observerClient{
		id:            req.SessionID,
		tickOut:       req.TickOut,
		focusPlayerID: k.resolveFocus(req.SessionID, req.FocusPlayerID),
		withEntities:  req.WithEntities,
	}
}

func (k *Kitchen) handleObserverSubscribe(req ObserverSubscribeRequest) {
	c := k.observers[req.SessionID]
	if c == nil {
		return
	}
	c.focusPlayerID = k.resolveFocus(req.SessionID, req.FocusPlayerID)
	c.withEntities = req.WithEntities
}

// resolveFocus drops a focus on a player this round never saw. Players that
// disconnected stay valid since they can resume.
func (k *Kitchen) resolveFocus(sessionID, playerID string) string {
	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return ""
	}
	if _, ok := k.players[playerID]; !ok {
		k.logf("observer %s: unknown focus player %q", sessionID, playerID)
		return ""
	}
	return playerID
}

func (k *Kitchen) handleObserverLeave(sessionID string) {
	c := k.observers[sessionID]
	if c == nil {
		return
	}
	delete(k.observers, sessionID)
	close(c.tickOut)
}

func (k *Kitchen) stepObservers(nowTick uint64, joins []RecordedJoin, leaves []string, actions []RecordedAction) {
	if len(k.observers) == 0 {
		return
	}

	players := make([]observerproto.PlayerState, 0, len(k.players))
	for _, p := range k.sortedPlayers() {
		ps := observerproto.PlayerState{
			ID:        p.ID,
			Name:      p.Name,
			Connected: k.clients[p.ID] != nil,
			Pos:       vec2(p.Pos),
			Facing:    vec2(p.Facing),
			CanMove:   p.CanMove(),
		}
		if e := p.Hand.held; e != nil {
			ps.HeldID = e.ID
			ps.HeldItem = e.Item
		}
		players = append(players, ps)
	}

	joinInfos := make([]observerproto.JoinInfo, 0, len(joins))
	for _, j := range joins {
		joinInfos = append(joinInfos, observerproto.JoinInfo{PlayerID: j.PlayerID, Name: j.Name})
	}
	acts := make([]observerproto.RecordedAction, 0, len(actions))
	for _, a := range actions {
		acts = append(acts, observerproto.RecordedAction{PlayerID: a.PlayerID, Act: a.Act})
	}
	audits := make([]observerproto.AuditEntry, 0, len(k.tickAudits))
	for _, a := range k.tickAudits {
		audits = append(audits, observerproto.AuditEntry{
			Tick:     a.Tick,
			Actor:    a.Actor,
			Action:   a.Action,
			EntityID: a.EntityID,
			Item:     a.Item,
			From:     a.From,
			To:       a.To,
			Points:   a.Points,
			Reason:   a.Reason,
		})
	}

	base := observerproto.TickMsg{
		Type:            "TICK",
		ProtocolVersion: observerproto.Version,
		Tick:            nowTick,
		Round:           k.roundObs(),
		Players:         players,
		Joins:           joinInfos,
		Leaves:          leaves,
		Actions:         acts,
		Audits:          audits,
	}
	var full *observerproto.TickMsg
	for _, id := range k.sortedObserverIDs() {
		c := k.observers[id]
		msg := base
		if c.withEntities {
			if full == nil {
				f := base
				f.Entities = k.entityObs()
				f.Stations = k.stationObs()
				f.Customers = k.customerObs()
				full = &f
			}
			msg = *full
		}
		if p := k.players[c.focusPlayerID]; p != nil {
			self := k.selfObs(p)
			msg.FocusPlayerID = p.ID
			msg.Focus = &self
		}
		b, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		sendLatest(c.tickOut, b)
	}
}

func (k *Kitchen) sortedObserverIDs() []string {
	ids := make([]string, 0, len(k.observers))
	for id := range k.observers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Bootstrap returns the immutable round parameters for spectators. Safe to call
// from any goroutine.
func (k *Kitchen) Bootstrap() observerproto.BootstrapResponse {
	b := k.cfg.Layout.Bounds
	stations := make([]observerproto.StationState, 0, len(k.cfg.Layout.Stations))
	for _, spec := range k.cfg.Layout.Stations {
		st := protocol.StationObs{ID: spec.ID, Kind: spec.Kind, Pos: protocol.Vec2{spec.Pos.X, spec.Pos.Z}, Item: spec.Item, Recipe: spec.Recipe}
		if r, ok := k.catalogs.Recipes.ByID[spec.Recipe]; ok {
			st.Required = append([]string(nil), r.Inputs...)
		}
		stations = append(stations, st)
	}
	return observerproto.BootstrapResponse{
		ProtocolVersion: observerproto.Version,
		RoundID:         k.cfg.RoundID,
		Tick:            k.tick.Load(),
		KitchenParams: observerproto.KitchenParams{
			TickRateHz:     k.cfg.Tuning.TickRateHz,
			RoundSeconds:   k.cfg.Tuning.Round.Seconds,
			ScoreThreshold: k.cfg.Tuning.Round.ScoreThreshold,
			Bounds:         [4]float64{b.MinX, b.MinZ, b.MaxX, b.MaxZ},
			Seed:           k.cfg.Seed,
		},
		ItemPalette: append([]string(nil), k.catalogs.Items.Palette...),
		Stations:    stations,
	}
}
