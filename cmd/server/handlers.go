package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"kitchenchaos.game/internal/sim/kitchen"
)

func metricsHandler(k *kitchen.Kitchen, idx runtimeIndex) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		m := k.Metrics()
		round := k.RoundID()
		tick := k.CurrentTick()
		if m.Tick != 0 {
			tick = m.Tick
		}

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP kitchenchaos_tick Current kitchen tick.\n")
		fmt.Fprintf(rw, "# TYPE kitchenchaos_tick gauge\n")
		fmt.Fprintf(rw, "kitchenchaos_tick{round=%q} %d\n", round, tick)

		fmt.Fprintf(rw, "# HELP kitchenchaos_players Players in the kitchen.\n")
		fmt.Fprintf(rw, "# TYPE kitchenchaos_players gauge\n")
		fmt.Fprintf(rw, "kitchenchaos_players{round=%q} %d\n", round, m.Players)

		fmt.Fprintf(rw, "# HELP kitchenchaos_clients Currently connected clients.\n")
		fmt.Fprintf(rw, "# TYPE kitchenchaos_clients gauge\n")
		fmt.Fprintf(rw, "kitchenchaos_clients{round=%q} %d\n", round, m.Clients)

		fmt.Fprintf(rw, "# HELP kitchenchaos_entities Live interactable entities.\n")
		fmt.Fprintf(rw, "# TYPE kitchenchaos_entities gauge\n")
		fmt.Fprintf(rw, "kitchenchaos_entities{round=%q} %d\n", round, m.Entities)

		fmt.Fprintf(rw, "# HELP kitchenchaos_customers Customers in the kitchen.\n")
		fmt.Fprintf(rw, "# TYPE kitchenchaos_customers gauge\n")
		fmt.Fprintf(rw, "kitchenchaos_customers{round=%q} %d\n", round, m.Customers)

		fmt.Fprintf(rw, "# HELP kitchenchaos_score Round score.\n")
		fmt.Fprintf(rw, "# TYPE kitchenchaos_score gauge\n")
		fmt.Fprintf(rw, "kitchenchaos_score{round=%q} %d\n", round, m.Score)

		fmt.Fprintf(rw, "# HELP kitchenchaos_remaining_seconds Round time left.\n")
		fmt.Fprintf(rw, "# TYPE kitchenchaos_remaining_seconds gauge\n")
		fmt.Fprintf(rw, "kitchenchaos_remaining_seconds{round=%q} %.3f\n", round, m.RemainingS)

		fmt.Fprintf(rw, "# HELP kitchenchaos_queue_depth Channel backlog depth.\n")
		fmt.Fprintf(rw, "# TYPE kitchenchaos_queue_depth gauge\n")
		fmt.Fprintf(rw, "kitchenchaos_queue_depth{round=%q,queue=%q} %d\n", round, "inbox", m.QueueDepths.Inbox)
		fmt.Fprintf(rw, "kitchenchaos_queue_depth{round=%q,queue=%q} %d\n", round, "join", m.QueueDepths.Join)
		fmt.Fprintf(rw, "kitchenchaos_queue_depth{round=%q,queue=%q} %d\n", round, "leave", m.QueueDepths.Leave)
		fmt.Fprintf(rw, "kitchenchaos_queue_depth{round=%q,queue=%q} %d\n", round, "attach", m.QueueDepths.Attach)

		fmt.Fprintf(rw, "# HELP kitchenchaos_step_ms Last tick step duration in milliseconds.\n")
		fmt.Fprintf(rw, "# TYPE kitchenchaos_step_ms gauge\n")
		fmt.Fprintf(rw, "kitchenchaos_step_ms{round=%q} %.3f\n", round, m.StepMS)

		if idx != nil {
			s := idx.Stats()
			fmt.Fprintf(rw, "# HELP kitchenchaos_index_dropped_total Index writes dropped because the writer fell behind.\n")
			fmt.Fprintf(rw, "# TYPE kitchenchaos_index_dropped_total counter\n")
			fmt.Fprintf(rw, "kitchenchaos_index_dropped_total{kind=%q} %d\n", "tick", s.DropTickTotal)
			fmt.Fprintf(rw, "kitchenchaos_index_dropped_total{kind=%q} %d\n", "audit", s.DropAuditTotal)
			fmt.Fprintf(rw, "kitchenchaos_index_dropped_total{kind=%q} %d\n", "snapshot", s.DropSnapshotTotal)
			fmt.Fprintf(rw, "kitchenchaos_index_dropped_total{kind=%q} %d\n", "round", s.DropRoundTotal)
		}
	}
}

func stateHandler(k *kitchen.Kitchen) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		resp := struct {
			RoundID string                 `json:"round_id"`
			Tick    uint64                 `json:"tick"`
			Metrics kitchen.KitchenMetrics `json:"metrics"`
		}{
			RoundID: k.RoundID(),
			Tick:    k.CurrentTick(),
			Metrics: k.Metrics(),
		}
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func snapshotHandler(k *kitchen.Kitchen) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		tick, err := k.RequestSnapshot(ctx)
		rw.Header().Set("Content-Type", "application/json")
		if err != nil {
			rw.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "tick": tick, "error": err.Error()})
			return
		}
		_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "tick": tick})
	}
}
