package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"os/signal"

	"github.com/gorilla/websocket"

	"kitchenchaos.game/internal/protocol"
)

func main() {
	var (
		url   = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name  = flag.String("name", "bot", "player name")
		token = flag.String("token", "", "resume token from an earlier WELCOME (optional)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		PlayerName:      *name,
		Capabilities:    protocol.HelloCapabilities{MaxQueue: 8},
	}
	if *token != "" {
		hello.Auth = &protocol.HelloAuth{Token: *token}
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	var b bot
	for {
		select {
		case <-stop:
			return
		default:
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				continue
			}
			logger.Printf("WELCOME player_id=%s round=%s tick_rate=%d token=%s", w.PlayerID, w.RoundID, w.KitchenParams.TickRateHz, w.ResumeToken)

		case protocol.TypeObs:
			var obs protocol.ObsMsg
			if err := json.Unmarshal(msg, &obs); err != nil {
				continue
			}
			if obs.Round.Over {
				logger.Printf("round over: outcome=%s score=%d next=%s", obs.Round.Outcome, obs.Round.Score, obs.Round.NextScene)
				return
			}
			intents := b.decide(&obs)
			if len(intents) == 0 {
				continue
			}
			_ = conn.WriteJSON(protocol.ActMsg{
				Type:            protocol.TypeAct,
				ProtocolVersion: protocol.Version,
				Tick:            obs.Tick,
				PlayerID:        obs.PlayerID,
				Intents:         intents,
			})
		}
	}
}

// bot chases the nearest loose ingredient and carries whatever it holds to the
// nearest station. It only resends MOVE when the heading changes.
type bot struct {
	seq     int
	lastDir protocol.Vec2
}

func (b *bot) decide(obs *protocol.ObsMsg) []protocol.Intent {
	if !obs.Self.CanMove {
		return nil
	}
	var (
		target protocol.Vec2
		found  bool
		near   protocol.Intent
		reach  float64
	)
	if obs.Self.Held == nil {
		target, found = nearestLoose(obs)
		near = protocol.Intent{Type: protocol.IntentPickup}
		reach = 1.5
	} else {
		for _, c := range obs.Customers {
			if c.State == "WAITING" && obs.Self.Held.Kind == "DISH" {
				target, found = c.Pos, true
				break
			}
		}
		if !found {
			target, found = nearestStation(obs)
		}
		near = protocol.Intent{Type: protocol.IntentInteract}
		reach = 1.5
	}
	if !found {
		return b.move(protocol.Vec2{})
	}

	dx, dz := target[0]-obs.Self.Pos[0], target[1]-obs.Self.Pos[1]
	if math.Hypot(dx, dz) <= reach {
		out := b.move(protocol.Vec2{})
		near.ID = b.nextID()
		return append(out, near)
	}
	return b.move(heading(dx, dz))
}

func (b *bot) move(dir protocol.Vec2) []protocol.Intent {
	if dir == b.lastDir {
		return nil
	}
	b.lastDir = dir
	if dir == (protocol.Vec2{}) {
		return []protocol.Intent{{ID: b.nextID(), Type: protocol.IntentStop}}
	}
	return []protocol.Intent{{ID: b.nextID(), Type: protocol.IntentMove, Dir: dir}}
}

func (b *bot) nextID() string {
	b.seq++
	return fmt.Sprintf("B%d", b.seq)
}

// heading snaps a direction to one of eight compass points.
func heading(dx, dz float64) protocol.Vec2 {
	sx, sz := 0.0, 0.0
	if math.Abs(dx) > 0.25 {
		sx = math.Copysign(1, dx)
	}
	if math.Abs(dz) > 0.25 {
		sz = math.Copysign(1, dz)
	}
	return protocol.Vec2{sx, sz}
}

func nearestLoose(obs *protocol.ObsMsg) (protocol.Vec2, bool) {
	best, found := protocol.Vec2{}, false
	bestD := math.Inf(1)
	for _, e := range obs.Entities {
		if e.Owner != "WORLD" {
			continue
		}
		if d := math.Hypot(e.Pos[0]-obs.Self.Pos[0], e.Pos[1]-obs.Self.Pos[1]); d < bestD {
			best, bestD, found = e.Pos, d, true
		}
	}
	return best, found
}

func nearestStation(obs *protocol.ObsMsg) (protocol.Vec2, bool) {
	best, found := protocol.Vec2{}, false
	bestD := math.Inf(1)
	for _, s := range obs.Stations {
		if d := math.Hypot(s.Pos[0]-obs.Self.Pos[0], s.Pos[1]-obs.Self.Pos[1]); d < bestD {
			best, bestD, found = s.Pos, d, true
		}
	}
	return best, found
}
