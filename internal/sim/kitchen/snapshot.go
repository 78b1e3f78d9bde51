package kitchen

import (
	"fmt"
	"sort"

	"kitchenchaos.game/internal/persistence/snapshot"
	"kitchenchaos.game/internal/sim/tasks"
)

// ExportSnapshot captures the state after nowTick has been stepped.
// Loop goroutine or tests only.
func (k *Kitchen) ExportSnapshot(nowTick uint64) snapshot.SnapshotV1 {
	s := k.session
	out := snapshot.SnapshotV1{
		Header:   snapshot.Header{Version: 1, RoundID: k.cfg.RoundID, Tick: nowTick},
		Seed:     k.cfg.Seed,
		RNGState: k.rng.State,
		Tuning:   k.tun,
		Layout:   k.layout,
		Score:    s.Score.Total(),
		Paused:   s.Paused,
		Timer: snapshot.TimerV1{
			Total:     s.Timer.Total,
			Remaining: s.Timer.Remaining,
			Threshold: s.Timer.Threshold,
			NextScene: s.Timer.NextScene,
			Over:      s.Timer.Over,
			Outcome:   s.Timer.Outcome,
		},
		Clock:           k.clock,
		NextEntityNum:   k.nextEntityNum,
		NextPlayerNum:   k.nextPlayerNum,
		NextCustomerNum: k.nextCustomerNum,
		SpawnTask:       k.spawnTask,
		TasksNext:       k.sched.NextID(),
	}
	if counts := s.Limits.Counts(); len(counts) > 0 {
		out.LimitCounts = make(map[string]int, len(counts))
		for _, c := range counts {
			out.LimitCounts[c.Item] = c.Count
		}
	}
	for _, t := range k.sched.Pending() {
		out.Tasks = append(out.Tasks, snapshot.TaskV1{ID: t.ID, Kind: string(t.Kind), Target: t.Target, DueTick: t.DueTick})
	}

	for _, e := range k.sortedEntities() {
		ev := snapshot.EntityV1{
			ID:       e.ID,
			Kind:     string(e.Kind),
			Item:     e.Item,
			Owner:    string(e.Owner),
			OwnerRef: e.OwnerRef,
			Pos:      vec2(e.Pos),
			Facing:   vec2(e.Facing),
			Stripped: e.Stripped,
			Tracked:  e.Tracked,
			Points:   e.Points,
		}
		if f := e.Flee; f != nil {
			ev.Flee = &snapshot.FleeV1{Mode: string(f.Mode), Dir: vec2(f.Dir), WanderLeft: f.WanderLeft, Holder: f.Holder}
		}
		out.Entities = append(out.Entities, ev)
	}
	for _, p := range k.sortedPlayers() {
		pv := snapshot.PlayerV1{
			ID:          p.ID,
			Name:        p.Name,
			ResumeToken: p.ResumeToken,
			Pos:         vec2(p.Pos),
			Facing:      vec2(p.Facing),
			MoveDir:     vec2(p.MoveDir),
			TalkingTo:   p.TalkingTo,
		}
		if p.Hand.held != nil {
			pv.HeldID = p.Hand.held.ID
		}
		out.Players = append(out.Players, pv)
	}
	for _, st := range k.sortedStations() {
		sv := snapshot.StationV1{
			ID:          st.ID,
			Accumulated: append([]string(nil), st.Accumulated...),
			Completed:   st.Completed,
			ReadyTick:   st.ReadyTick,
		}
		for _, e := range st.contents {
			sv.ContentIDs = append(sv.ContentIDs, e.ID)
		}
		if st.Dish != nil {
			sv.DishID = st.Dish.ID
		}
		if st.Holding != nil {
			sv.HoldingID = st.Holding.ID
		}
		out.Stations = append(out.Stations, sv)
	}
	for _, c := range k.sortedCustomers() {
		out.Customers = append(out.Customers, snapshot.CustomerV1{
			ID:        c.ID,
			State:     string(c.State),
			Pos:       vec2(c.Pos),
			Order:     c.Order,
			Served:    c.Served,
			TalkingTo: c.TalkingTo,
			Panel:     c.Panel,
			LeaveTask: c.LeaveTask,
		})
	}
	return out
}

// ImportSnapshot replaces the kitchen state with s and resumes at
// s.Header.Tick+1. Call before Run. Connected clients and observers are not
// part of a snapshot; players reattach with their resume token.
func (k *Kitchen) ImportSnapshot(s snapshot.SnapshotV1) error {
	if s.Header.Version != 1 {
		return fmt.Errorf("unsupported snapshot version %d", s.Header.Version)
	}
	if err := s.Tuning.Validate(); err != nil {
		return fmt.Errorf("snapshot tuning: %w", err)
	}

	k.cfg.RoundID = s.Header.RoundID
	k.cfg.Seed = s.Seed
	k.tun = s.Tuning
	k.layout = s.Layout
	k.stations = map[string]*Station{}
	if err := k.resolveLayout(); err != nil {
		return fmt.Errorf("snapshot layout: %w", err)
	}

	k.rng = &RNG{State: s.RNGState}
	k.clock = s.Clock
	k.nextEntityNum = s.NextEntityNum
	k.nextPlayerNum = s.NextPlayerNum
	k.nextCustomerNum = s.NextCustomerNum
	k.spawnTask = s.SpawnTask

	pending := make([]tasks.Task, 0, len(s.Tasks))
	for _, t := range s.Tasks {
		pending = append(pending, tasks.Task{ID: t.ID, Kind: tasks.Kind(t.Kind), Target: t.Target, DueTick: t.DueTick})
	}
	k.sched = tasks.NewScheduler()
	k.sched.Restore(s.TasksNext, pending)

	limits := NewLimits(k.tun.IngredientLimits)
	items := make([]string, 0, len(s.LimitCounts))
	for item := range s.LimitCounts {
		items = append(items, item)
	}
	sort.Strings(items)
	for _, item := range items {
		for i := 0; i < s.LimitCounts[item]; i++ {
			limits.Register(item)
		}
	}
	score := &ScoreBoard{onAward: k.onAward}
	score.total = s.Score
	k.session = &Session{
		RoundID: s.Header.RoundID,
		Score:   score,
		Limits:  limits,
		Timer: &RoundTimer{
			Total:     s.Timer.Total,
			Remaining: s.Timer.Remaining,
			Threshold: s.Timer.Threshold,
			NextScene: s.Timer.NextScene,
			Over:      s.Timer.Over,
			Outcome:   s.Timer.Outcome,
		},
		Paused: s.Paused,
	}

	k.entities = map[string]*Entity{}
	for _, ev := range s.Entities {
		if ev.ID == "" {
			return fmt.Errorf("snapshot entity with empty id")
		}
		e := &Entity{
			ID:        ev.ID,
			Kind:      Kind(ev.Kind),
			Item:      ev.Item,
			Owner:     Owner(ev.Owner),
			OwnerRef:  ev.OwnerRef,
			Pos:       fromVec2(ev.Pos),
			Facing:    fromVec2(ev.Facing),
			Simulated: Owner(ev.Owner) == OwnerWorld && !ev.Stripped,
			Stripped:  ev.Stripped,
			Tracked:   ev.Tracked,
			Points:    ev.Points,
		}
		if f := ev.Flee; f != nil {
			e.Flee = &Flee{Mode: FleeMode(f.Mode), Dir: fromVec2(f.Dir), WanderLeft: f.WanderLeft, Holder: f.Holder}
		}
		k.entities[e.ID] = e
	}
	lookup := func(id string) (*Entity, error) {
		if id == "" {
			return nil, nil
		}
		e := k.entities[id]
		if e == nil {
			return nil, fmt.Errorf("snapshot references unknown entity %s", id)
		}
		return e, nil
	}

	k.players = map[string]*Player{}
	k.clients = map[string]*clientState{}
	if k.cfg.Services.Highlighter == nil {
		k.svc.Highlighter = NewFlagHighlighter()
	}
	if k.cfg.Services.Dialogue == nil {
		k.svc.Dialogue = NewPanels()
	}
	for _, pv := range s.Players {
		p := &Player{
			ID:          pv.ID,
			Name:        pv.Name,
			ResumeToken: pv.ResumeToken,
			Pos:         fromVec2(pv.Pos),
			Facing:      fromVec2(pv.Facing),
			MoveDir:     fromVec2(pv.MoveDir),
			TalkingTo:   pv.TalkingTo,
		}
		held, err := lookup(pv.HeldID)
		if err != nil {
			return err
		}
		p.Hand.held = held
		k.players[p.ID] = p
	}

	for _, sv := range s.Stations {
		st := k.stations[sv.ID]
		if st == nil {
			return fmt.Errorf("snapshot references unknown station %s", sv.ID)
		}
		st.Accumulated = append([]string(nil), sv.Accumulated...)
		if st.isRecipe() {
			st.names = map[string]bool{}
			for _, item := range st.Accumulated {
				st.names[item] = true
			}
		}
		for _, id := range sv.ContentIDs {
			e, err := lookup(id)
			if err != nil {
				return err
			}
			st.contents = append(st.contents, e)
		}
		st.Completed = sv.Completed
		dish, err := lookup(sv.DishID)
		if err != nil {
			return err
		}
		st.Dish = dish
		holding, err := lookup(sv.HoldingID)
		if err != nil {
			return err
		}
		st.Holding = holding
		st.ReadyTick = sv.ReadyTick
	}

	k.customers = map[string]*Customer{}
	for _, cv := range s.Customers {
		c := &Customer{
			ID:        cv.ID,
			State:     CustomerState(cv.State),
			Pos:       fromVec2(cv.Pos),
			Order:     cv.Order,
			Served:    cv.Served,
			TalkingTo: cv.TalkingTo,
			Panel:     cv.Panel,
			LeaveTask: cv.LeaveTask,
		}
		k.customers[c.ID] = c
		if c.TalkingTo != "" {
			k.svc.Dialogue.Show(c.TalkingTo, c.ID, c.Panel)
		}
	}

	k.tick.Store(s.Header.Tick + 1)
	return nil
}
