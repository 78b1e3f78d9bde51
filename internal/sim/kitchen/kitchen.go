package kitchen

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jakecoffman/cp"

	"kitchenchaos.game/internal/persistence/snapshot"
	"kitchenchaos.game/internal/protocol"
	"kitchenchaos.game/internal/sim/catalogs"
	"kitchenchaos.game/internal/sim/tasks"
	"kitchenchaos.game/internal/sim/tuning"
)

type Config struct {
	RoundID string
	Seed    int64
	Tuning  tuning.Tuning
	Layout  tuning.Layout

	// Nil services fall back to the in-process defaults.
	Services Services
}

type JoinRequest struct {
	Name string
	Out  chan []byte
	Resp chan JoinResponse
}

type AttachRequest struct {
	ResumeToken string
	Out         chan []byte
	Resp        chan JoinResponse
}

// LeaveRequest detaches a client. Out identifies the connection, so a late
// leave from a replaced connection does not detach its successor.
type LeaveRequest struct {
	PlayerID string
	Out      chan []byte
}

type JoinResponse struct {
	Welcome  protocol.WelcomeMsg
	Catalogs []protocol.CatalogMsg
}

type ActionEnvelope struct {
	PlayerID string
	Act      protocol.ActMsg
}

type RecordedJoin struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
}

type RecordedAction struct {
	PlayerID string          `json:"player_id"`
	Act      protocol.ActMsg `json:"act"`
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

type AuditLogger interface {
	WriteAudit(entry AuditEntry) error
}

type TickLogEntry struct {
	Tick    uint64           `json:"tick"`
	Joins   []RecordedJoin   `json:"joins,omitempty"`
	Leaves  []string         `json:"leaves,omitempty"`
	Actions []RecordedAction `json:"actions,omitempty"`
	// Tuning applied at the start of this tick (hot reload).
	Tuning *tuning.Tuning `json:"tuning,omitempty"`
	Score  int            `json:"score"`
	Digest string         `json:"digest"`
}

type AuditEntry struct {
	Tick     uint64 `json:"tick"`
	Actor    string `json:"actor"`
	Action   string `json:"action"` // SPAWN, TRANSFER, REMOVE, SCORE, STATION_RESET, ROUND_END
	EntityID string `json:"entity_id,omitempty"`
	Item     string `json:"item,omitempty"`
	From     string `json:"from,omitempty"`
	To       string `json:"to,omitempty"`
	Points   int    `json:"points,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

type clientState struct {
	Out chan []byte
}

// staleActTicks is how far behind the current tick an ACT may be stamped.
const staleActTicks = 8

// Kitchen is a single-threaded authoritative simulation of one round.
// All state must be accessed only from the loop goroutine.
type Kitchen struct {
	cfg      Config
	catalogs *catalogs.Catalogs
	tun      tuning.Tuning
	layout   tuning.Layout
	svc      Services

	tick atomic.Uint64

	entities  map[string]*Entity
	players   map[string]*Player
	clients   map[string]*clientState
	stations  map[string]*Station
	customers map[string]*Customer
	observers map[string]*observerClient

	session *Session
	sched   *tasks.Scheduler
	rng     *RNG

	counter cp.Vector
	door    cp.Vector

	// clock counts ticks the systems actually ran; deadlines are measured on it
	// so a pause freezes every wait.
	clock uint64

	nextEntityNum   uint64
	nextPlayerNum   uint64
	nextCustomerNum uint64
	spawnTask       uint64

	inbox        chan ActionEnvelope
	join         chan JoinRequest
	attach       chan AttachRequest
	leave        chan LeaveRequest
	tuningCh     chan tuning.Tuning
	obsJoin      chan ObserverJoinRequest
	obsSubscribe chan ObserverSubscribeRequest
	obsLeave     chan string
	admin        chan adminSnapshotReq
	stop         chan struct{}

	metrics atomic.Value

	logger      *log.Logger
	tickLogger  TickLogger
	auditLogger AuditLogger

	// Optional snapshot sink (may be nil). Snapshot writing should be off-thread.
	snapshotSink chan<- snapshot.SnapshotV1

	// Audits of the tick in progress, forwarded to observers.
	tickAudits []AuditEntry
}

func New(cfg Config, cats *catalogs.Catalogs) (*Kitchen, error) {
	if cats == nil {
		return nil, fmt.Errorf("kitchen: %w", configErr("catalogs", "missing"))
	}
	if err := cfg.Tuning.Validate(); err != nil {
		return nil, fmt.Errorf("kitchen: %w", configErr("tuning", "%v", err))
	}
	if err := cfg.Layout.Validate(); err != nil {
		return nil, fmt.Errorf("kitchen: %w", configErr("layout", "%v", err))
	}
	if cfg.RoundID == "" {
		cfg.RoundID = uuid.NewString()
	}

	k := &Kitchen{
		cfg:          cfg,
		catalogs:     cats,
		tun:          cfg.Tuning,
		layout:       cfg.Layout,
		svc:          cfg.Services,
		entities:     map[string]*Entity{},
		players:      map[string]*Player{},
		clients:      map[string]*clientState{},
		stations:     map[string]*Station{},
		customers:    map[string]*Customer{},
		observers:    map[string]*observerClient{},
		sched:        tasks.NewScheduler(),
		rng:          NewRNG(cfg.Seed),
		inbox:        make(chan ActionEnvelope, 1024),
		join:         make(chan JoinRequest, 64),
		attach:       make(chan AttachRequest, 64),
		leave:        make(chan LeaveRequest, 64),
		tuningCh:     make(chan tuning.Tuning, 1),
		obsJoin:      make(chan ObserverJoinRequest, 16),
		obsSubscribe: make(chan ObserverSubscribeRequest, 16),
		obsLeave:     make(chan string, 16),
		admin:        make(chan adminSnapshotReq, 16),
		stop:         make(chan struct{}),
	}
	if k.svc.Proximity == nil {
		k.svc.Proximity = ScanProximity{Entities: k.sortedEntities}
	}
	if k.svc.Navigator == nil {
		k.svc.Navigator = StraightNavigator{}
	}
	if k.svc.Highlighter == nil {
		k.svc.Highlighter = NewFlagHighlighter()
	}
	if k.svc.Dialogue == nil {
		k.svc.Dialogue = NewPanels()
	}

	if err := k.resolveLayout(); err != nil {
		return nil, fmt.Errorf("kitchen: %w", err)
	}

	k.session = &Session{
		RoundID: cfg.RoundID,
		Score:   &ScoreBoard{onAward: k.onAward},
		Limits:  NewLimits(k.tun.IngredientLimits),
		Timer:   NewRoundTimer(k.tun.Ticks(k.tun.Round.Seconds), k.tun.Round.ScoreThreshold, k.tun.Round.NextScene),
	}

	k.systemSpawners()
	if k.tun.Customer.MaxAlive > 0 {
		k.spawnTask = k.sched.At(k.tun.Ticks(k.tun.Customer.FirstSpawnS), tasks.KindCustomerSpawn, "")
	}
	return k, nil
}

// checkCustomerLayout rejects customer tuning the layout cannot host.
func (k *Kitchen) checkCustomerLayout(t tuning.Tuning) error {
	if t.Customer.MaxAlive <= 0 {
		return nil
	}
	if k.layout.Waypoints.Counter == nil || k.layout.Waypoints.Door == nil {
		return configErr("layout.waypoints", "customers need both counter and door")
	}
	if len(k.catalogs.Customers.Orders) == 0 {
		return configErr("customers", "no orders")
	}
	return nil
}

// resolveLayout builds stations and checks every reference the layout makes
// into the catalogs.
func (k *Kitchen) resolveLayout() error {
	l := k.layout
	if err := k.checkCustomerLayout(k.tun); err != nil {
		return err
	}
	if l.Waypoints.Counter != nil {
		k.counter = l.Waypoints.Counter.Vec()
	}
	if l.Waypoints.Door != nil {
		k.door = l.Waypoints.Door.Vec()
	}

	for _, seed := range l.Ingredients {
		def, ok := k.catalogs.Items.Defs[seed.Item]
		if !ok || def.Kind != catalogs.KindRaw {
			return configErr("layout.ingredients", "%s is not a RAW item", seed.Item)
		}
	}
	if len(l.Ingredients) > 0 && l.Area.Radius <= 0 {
		return configErr("layout.ingredient_area", "radius must be > 0")
	}

	for _, spec := range l.Stations {
		s := &Station{
			ID:             spec.ID,
			Kind:           spec.Kind,
			Pos:            spec.Pos.Vec(),
			InteractRadius: spec.InteractRadius,
		}
		switch spec.Kind {
		case tuning.StationAssembly, tuning.StationPot:
			r, ok := k.catalogs.Recipes.ByID[spec.Recipe]
			if !ok {
				return configErr("station "+spec.ID, "unknown recipe %q", spec.Recipe)
			}
			if r.Station != spec.Kind {
				return configErr("station "+spec.ID, "recipe %s belongs to %s stations", r.RecipeID, r.Station)
			}
			s.Recipe = &r
			s.Required = append([]string(nil), r.Inputs...)
			s.names = map[string]bool{}
			if spec.Kind == tuning.StationAssembly {
				s.Accepts = KindRaw
			} else {
				s.Accepts = KindCut
			}
		case tuning.StationDishRack:
			s.Item = spec.Item
			if s.Item == "" {
				s.Item = k.catalogs.FirstOfKind(catalogs.KindPlate)
			}
			if k.catalogs.Kind(s.Item) != catalogs.KindPlate {
				return configErr("station "+spec.ID, "dish rack item %q is not a PLATE", s.Item)
			}
		case tuning.StationCrate:
			switch k.catalogs.Kind(spec.Item) {
			case catalogs.KindRaw, catalogs.KindCut:
			default:
				return configErr("station "+spec.ID, "crate item %q is not an ingredient", spec.Item)
			}
			s.Item = spec.Item
		case tuning.StationCuttingBoard:
		}
		k.stations[s.ID] = s
	}
	return nil
}

func (k *Kitchen) SetLogger(l *log.Logger)                       { k.logger = l }
func (k *Kitchen) SetTickLogger(l TickLogger)                    { k.tickLogger = l }
func (k *Kitchen) SetAuditLogger(l AuditLogger)                  { k.auditLogger = l }
func (k *Kitchen) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { k.snapshotSink = ch }

func (k *Kitchen) Inbox() chan<- ActionEnvelope             { return k.inbox }
func (k *Kitchen) Join() chan<- JoinRequest                 { return k.join }
func (k *Kitchen) Attach() chan<- AttachRequest             { return k.attach }
func (k *Kitchen) Leave() chan<- LeaveRequest               { return k.leave }
func (k *Kitchen) TuningUpdates() chan<- tuning.Tuning      { return k.tuningCh }
func (k *Kitchen) ObserverJoin() chan<- ObserverJoinRequest { return k.obsJoin }
func (k *Kitchen) ObserverLeave() chan<- string             { return k.obsLeave }
func (k *Kitchen) ObserverSubscribe() chan<- ObserverSubscribeRequest {
	return k.obsSubscribe
}

func (k *Kitchen) CurrentTick() uint64 { return k.tick.Load() }
func (k *Kitchen) RoundID() string     { return k.cfg.RoundID }
func (k *Kitchen) Seed() int64         { return k.cfg.Seed }

// Session exposes the round context. Loop goroutine or tests only.
func (k *Kitchen) Session() *Session { return k.session }

func (k *Kitchen) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(k.tun.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pendingActions []ActionEnvelope
	var pendingJoins []JoinRequest
	var pendingLeaves []string
	var pendingTuning *tuning.Tuning
	var pendingAdmin []adminSnapshotReq

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-k.stop:
			return nil
		case req := <-k.join:
			pendingJoins = append(pendingJoins, req)
		case req := <-k.attach:
			if id := k.handleAttach(req); id != "" {
				// The new connection supersedes a leave queued for this tick.
				pendingLeaves = removeString(pendingLeaves, id)
			}
		case req := <-k.leave:
			if cl := k.clients[req.PlayerID]; cl != nil && req.Out != nil && cl.Out != req.Out {
				continue
			}
			pendingLeaves = append(pendingLeaves, req.PlayerID)
		case env := <-k.inbox:
			pendingActions = append(pendingActions, env)
		case t := <-k.tuningCh:
			pendingTuning = &t
		case req := <-k.obsJoin:
			k.handleObserverJoin(req)
		case req := <-k.obsSubscribe:
			k.handleObserverSubscribe(req)
		case id := <-k.obsLeave:
			k.handleObserverLeave(id)
		case req := <-k.admin:
			pendingAdmin = append(pendingAdmin, req)
		case <-ticker.C:
			k.step(pendingJoins, pendingLeaves, pendingActions, pendingTuning)
			k.handleAdminSnapshotRequests(pendingAdmin)
			pendingAdmin = pendingAdmin[:0]
			pendingJoins = pendingJoins[:0]
			pendingLeaves = pendingLeaves[:0]
			pendingActions = pendingActions[:0]
			pendingTuning = nil
		}
	}
}

func (k *Kitchen) Stop() { close(k.stop) }

func (k *Kitchen) joinPlayer(name string, out chan []byte) JoinResponse {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "chef"
	}
	k.nextPlayerNum++
	n := k.nextPlayerNum
	playerID := fmt.Sprintf("P%d", n)

	spawn := k.layout.PlayerSpawn.Vec().Add(cp.Vector{X: float64(n-1) * 1.5})
	p := &Player{
		ID:          playerID,
		Name:        name,
		Pos:         k.clamp(spawn),
		Facing:      cp.Vector{X: 0, Y: 1},
		ResumeToken: newResumeToken(),
	}
	k.players[playerID] = p
	if out != nil {
		k.clients[playerID] = &clientState{Out: out}
	}
	return k.joinResponse(p)
}

func newResumeToken() string { return "resume_" + uuid.NewString() }

func (k *Kitchen) joinResponse(p *Player) JoinResponse {
	cats := k.catalogs
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		RoundID:         k.cfg.RoundID,
		PlayerID:        p.ID,
		ResumeToken:     p.ResumeToken,
		KitchenParams: protocol.KitchenParams{
			TickRateHz:     k.tun.TickRateHz,
			RoundSeconds:   k.tun.Round.Seconds,
			ScoreThreshold: k.tun.Round.ScoreThreshold,
			PickupRadius:   k.tun.Player.PickupRadius,
			InteractRadius: k.tun.Player.InteractRadius,
			MoveSpeed:      k.tun.Player.MoveSpeed,
			Seed:           k.cfg.Seed,
		},
		Catalogs: protocol.CatalogDigests{
			ItemPalette:     protocol.DigestRef{Digest: cats.Items.PaletteDigest, Count: len(cats.Items.Palette)},
			ItemsDigest:     cats.Items.DefsDigest,
			RecipesDigest:   cats.Recipes.Digest,
			CustomersDigest: cats.Customers.Digest,
		},
	}

	recipes := make([]catalogs.RecipeDef, 0, len(cats.Recipes.ByID))
	for _, r := range cats.Recipes.ByID {
		recipes = append(recipes, r)
	}
	sort.Slice(recipes, func(i, j int) bool { return recipes[i].RecipeID < recipes[j].RecipeID })

	catalogMsgs := []protocol.CatalogMsg{
		{
			Type:            protocol.TypeCatalog,
			ProtocolVersion: protocol.Version,
			Name:            "item_palette",
			Digest:          cats.Items.PaletteDigest,
			Part:            1,
			TotalParts:      1,
			Data:            cats.Items.Palette,
		},
		{
			Type:            protocol.TypeCatalog,
			ProtocolVersion: protocol.Version,
			Name:            "recipes",
			Digest:          cats.Recipes.Digest,
			Part:            1,
			TotalParts:      1,
			Data:            recipes,
		},
	}
	return JoinResponse{Welcome: welcome, Catalogs: catalogMsgs}
}

func (k *Kitchen) handleAttach(req AttachRequest) string {
	token := strings.TrimSpace(req.ResumeToken)
	if token == "" || req.Out == nil {
		if req.Resp != nil {
			req.Resp <- JoinResponse{}
		}
		return ""
	}
	var p *Player
	for _, pp := range k.sortedPlayers() {
		if pp.ResumeToken == token {
			p = pp
			break
		}
	}
	if p == nil {
		if req.Resp != nil {
			req.Resp <- JoinResponse{}
		}
		return ""
	}

	// Attach client (does not affect simulation determinism).
	k.clients[p.ID] = &clientState{Out: req.Out}
	p.ResumeToken = newResumeToken()
	if req.Resp != nil {
		req.Resp <- k.joinResponse(p)
	}
	return p.ID
}

func removeString(list []string, s string) []string {
	out := list[:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}

// handleLeave detaches the client. The player stays for resume, but any
// order panel it held is closed so the customer can serve others.
func (k *Kitchen) handleLeave(playerID string) {
	delete(k.clients, playerID)
	k.closePlayerDialogues(playerID)
}

func (k *Kitchen) step(joins []JoinRequest, leaves []string, actions []ActionEnvelope, newTuning *tuning.Tuning) {
	stepStart := time.Now()
	nowTick := k.tick.Load()
	k.tickAudits = k.tickAudits[:0]

	// Apply leaves and joins deterministically at tick boundary.
	recordedLeaves := make([]string, 0, len(leaves))
	for _, id := range leaves {
		if _, ok := k.players[id]; ok {
			k.handleLeave(id)
			recordedLeaves = append(recordedLeaves, id)
		}
	}
	recordedJoins := make([]RecordedJoin, 0, len(joins))
	for _, req := range joins {
		resp := k.joinPlayer(req.Name, req.Out)
		if req.Resp != nil {
			req.Resp <- resp
		}
		recordedJoins = append(recordedJoins, RecordedJoin{PlayerID: resp.Welcome.PlayerID, Name: req.Name})
	}

	if newTuning != nil {
		k.applyTuning(*newTuning)
	}

	// Apply actions in server receive order (the inbox order).
	recorded := make([]RecordedAction, 0, len(actions))
	for _, env := range actions {
		p := k.players[env.PlayerID]
		if p == nil {
			continue
		}
		env.Act.PlayerID = env.PlayerID // trust session identity
		recorded = append(recorded, RecordedAction{PlayerID: env.PlayerID, Act: env.Act})
		k.applyAct(p, env.Act, nowTick)
	}

	// Systems, in a fixed order. Nothing moves while paused or after the round.
	ended := false
	if !k.session.Paused && !k.session.Timer.Over {
		k.systemMovement()
		k.systemHeld()
		for _, p := range k.sortedPlayers() {
			k.Scan(p)
		}
		k.systemFlee()
		k.systemCustomers()
		k.runTasks(k.clock)
		k.systemSpawners()
		if k.session.Timer.Tick(k.session.Score.Total()) {
			k.endRound(nowTick)
			ended = true
		}
		k.clock++
	}

	// Build + send OBS for each connected player.
	for _, p := range k.sortedPlayers() {
		cl := k.clients[p.ID]
		if cl != nil {
			obs := k.buildObs(p, nowTick)
			if b, err := json.Marshal(obs); err == nil {
				sendLatest(cl.Out, b)
			}
		}
		p.Events = nil
	}
	k.stepObservers(nowTick, recordedJoins, recordedLeaves, recorded)

	digest := k.stateDigest(nowTick)
	if k.tickLogger != nil {
		_ = k.tickLogger.WriteTick(TickLogEntry{
			Tick:    nowTick,
			Joins:   recordedJoins,
			Leaves:  recordedLeaves,
			Actions: recorded,
			Tuning:  newTuning,
			Score:   k.session.Score.Total(),
			Digest:  digest,
		})
	}

	// The round's final state is always offered to the sink so it can be archived.
	every := uint64(k.tun.SnapshotEveryTicks)
	if k.snapshotSink != nil && (ended || (every > 0 && nowTick != 0 && nowTick%every == 0)) {
		snap := k.ExportSnapshot(nowTick)
		select {
		case k.snapshotSink <- snap:
		default:
			// Drop snapshot if sink is backed up.
		}
	}

	k.publishMetrics(nowTick, float64(time.Since(stepStart).Microseconds())/1000.0)
	k.tick.Add(1)
}

// StepOnce advances the kitchen by a single tick using the same ordering semantics as the server.
// It is primarily intended for deterministic replays/tests.
func (k *Kitchen) StepOnce(joins []JoinRequest, leaves []string, actions []ActionEnvelope, newTuning *tuning.Tuning) (tick uint64, digest string) {
	tick = k.tick.Load()
	k.step(joins, leaves, actions, newTuning)
	return tick, k.stateDigest(tick)
}

// applyTuning swaps in reloaded tuning at a tick boundary. The tick rate and
// round length are fixed for the life of a round.
func (k *Kitchen) applyTuning(t tuning.Tuning) {
	if err := t.Validate(); err != nil {
		k.logf("tuning rejected: %v", err)
		return
	}
	if err := k.checkCustomerLayout(t); err != nil {
		k.logf("tuning rejected: %v", err)
		return
	}
	t.TickRateHz = k.tun.TickRateHz
	t.Round = k.tun.Round
	k.tun = t
	k.session.Limits.SetMax(t.IngredientLimits)
	if t.Customer.MaxAlive > 0 && k.spawnTask == 0 && !k.session.Timer.Over {
		k.spawnTask = k.sched.At(k.clock+t.Ticks(t.Customer.FirstSpawnS), tasks.KindCustomerSpawn, "")
	}
	k.logf("tuning applied")
}

func (k *Kitchen) systemMovement() {
	dt := k.tun.Dt()
	for _, p := range k.sortedPlayers() {
		if !p.CanMove() || p.MoveDir.Length() == 0 {
			continue
		}
		p.Facing = p.MoveDir
		p.Pos = k.clamp(p.Pos.Add(p.MoveDir.Mult(k.tun.Player.MoveSpeed * dt)))
	}
}

// systemSpawners keeps each ingredient seed topped up. Plated, cut or eaten
// copies are replaced at a random point in the ingredient area.
func (k *Kitchen) systemSpawners() {
	for _, seed := range k.layout.Ingredients {
		live := 0
		for _, e := range k.entities {
			if e.Item == seed.Item && e.Kind == KindRaw && !e.Stripped {
				live++
			}
		}
		for ; live < seed.Count; live++ {
			k.spawn(seed.Item, k.randomAreaPoint(), OwnerWorld, "", "WORLD", "RESPAWN")
		}
	}
}

func (k *Kitchen) randomAreaPoint() cp.Vector {
	a := k.layout.Area
	angle := k.rng.Range(0, 2*math.Pi)
	r := a.Radius * math.Sqrt(k.rng.Float64())
	return k.clamp(a.Center.Vec().Add(cp.Vector{X: r * math.Cos(angle), Y: r * math.Sin(angle)}))
}

func (k *Kitchen) endRound(nowTick uint64) {
	t := k.session.Timer
	for _, c := range k.sortedCustomers() {
		k.closeDialogue(c)
	}
	k.cancelCustomerTasks()
	for _, p := range k.sortedPlayers() {
		p.MoveDir = cp.Vector{}
	}
	k.audit(AuditEntry{Actor: "WORLD", Action: "ROUND_END", Points: k.session.Score.Total(), Reason: t.Outcome})
	k.broadcast(protocol.Event{
		"t":          nowTick,
		"type":       "ROUND_END",
		"outcome":    t.Outcome,
		"score":      k.session.Score.Total(),
		"threshold":  t.Threshold,
		"next_scene": t.NextScene,
	})
	k.logf("round %s ended: %s score=%d", k.cfg.RoundID, t.Outcome, k.session.Score.Total())
}

// onAward records a score award and pops the points up for every player.
func (k *Kitchen) onAward(points int, reason, actor string) {
	k.audit(AuditEntry{Actor: actor, Action: "SCORE", Points: points, Reason: reason})
	k.broadcast(protocol.Event{
		"t":      k.tick.Load(),
		"type":   "POINTS",
		"points": points,
		"reason": reason,
		"by":     actor,
		"total":  k.session.Score.Total(),
	})
}

func (k *Kitchen) audit(e AuditEntry) {
	e.Tick = k.tick.Load()
	k.tickAudits = append(k.tickAudits, e)
	if k.auditLogger != nil {
		_ = k.auditLogger.WriteAudit(e)
	}
}

func (k *Kitchen) broadcast(e protocol.Event) {
	for _, p := range k.players {
		p.AddEvent(e)
	}
}

func (k *Kitchen) logf(format string, args ...any) {
	if k.logger != nil {
		k.logger.Printf(format, args...)
	}
}

func (k *Kitchen) sortedPlayers() []*Player {
	out := make([]*Player, 0, len(k.players))
	for _, p := range k.players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
