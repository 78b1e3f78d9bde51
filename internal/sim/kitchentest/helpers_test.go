package kitchentest

import (
	"math"

	"kitchenchaos.game/internal/protocol"
)

func dist(a, b protocol.Vec2) float64 {
	return math.Hypot(b[0]-a[0], b[1]-a[1])
}

func moveToward(from, to protocol.Vec2) protocol.Intent {
	return protocol.Intent{Type: protocol.IntentMove, Dir: protocol.Vec2{to[0] - from[0], to[1] - from[1]}}
}

func stop() protocol.Intent { return protocol.Intent{Type: protocol.IntentStop} }

func interact(target string) protocol.Intent {
	return protocol.Intent{Type: protocol.IntentInteract, TargetID: target}
}

func stationByID(obs protocol.ObsMsg, id string) (protocol.StationObs, bool) {
	for _, s := range obs.Stations {
		if s.ID == id {
			return s, true
		}
	}
	return protocol.StationObs{}, false
}

func entityByID(obs protocol.ObsMsg, id string) (protocol.EntityObs, bool) {
	for _, e := range obs.Entities {
		if e.ID == id {
			return e, true
		}
	}
	return protocol.EntityObs{}, false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func countEvents(events []protocol.Event, typ string) int {
	n := 0
	for _, e := range events {
		if e["type"] == typ {
			n++
		}
	}
	return n
}

func lastResult(obs protocol.ObsMsg) protocol.Event {
	var out protocol.Event
	for _, e := range obs.Events {
		if e["type"] == "ACTION_RESULT" {
			out = e
		}
	}
	return out
}
