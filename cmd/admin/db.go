package main

import (
	"database/sql"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

type dbOpts struct {
	Tick   uint64
	Limit  int
	Actor  string
	Entity string
	Action string
}

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	roundID := fs.String("round", "", "round id (required unless -db)")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	var o dbOpts
	fs.Uint64Var(&o.Tick, "tick", 0, "snapshot tick for stations (optional; defaults to latest)")
	fs.IntVar(&o.Limit, "limit", 20, "result limit")
	fs.StringVar(&o.Actor, "actor", "", "actor filter (audits)")
	fs.StringVar(&o.Entity, "entity", "", "entity id filter (audits)")
	fs.StringVar(&o.Action, "action", "", "action filter (audits)")
	_ = fs.Parse(args)

	q := "snapshots"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		if strings.TrimSpace(*roundID) == "" {
			fmt.Fprintln(os.Stderr, "missing -round or -db")
			os.Exit(2)
		}
		path = filepath.Join(*dataDir, "rounds", *roundID, "index", "round.sqlite")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := runQuery(db, q, o, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runQuery(db *sql.DB, q string, o dbOpts, w io.Writer) error {
	if o.Limit <= 0 {
		o.Limit = 20
	}
	switch q {
	case "rounds":
		rows, err := db.Query(`SELECT round_id,seed,start_tick,threshold,COALESCE(end_tick,0),COALESCE(outcome,''),COALESCE(score,0) FROM rounds ORDER BY recorded_at DESC LIMIT ?`, o.Limit)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				RoundID   string `json:"round_id"`
				Seed      int64  `json:"seed"`
				StartTick uint64 `json:"start_tick"`
				Threshold int    `json:"threshold"`
				EndTick   uint64 `json:"end_tick,omitempty"`
				Outcome   string `json:"outcome,omitempty"`
				Score     int    `json:"score"`
			}
			if err := rows.Scan(&r.RoundID, &r.Seed, &r.StartTick, &r.Threshold, &r.EndTick, &r.Outcome, &r.Score); err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			printJSON(w, r)
		}
		return rows.Err()

	case "snapshots":
		rows, err := db.Query(`SELECT tick,path,round_id,seed,score,entities,players,customers FROM snapshots ORDER BY tick DESC LIMIT ?`, o.Limit)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Tick      uint64 `json:"tick"`
				Path      string `json:"path"`
				RoundID   string `json:"round_id"`
				Seed      int64  `json:"seed"`
				Score     int    `json:"score"`
				Entities  int    `json:"entities"`
				Players   int    `json:"players"`
				Customers int    `json:"customers"`
			}
			if err := rows.Scan(&r.Tick, &r.Path, &r.RoundID, &r.Seed, &r.Score, &r.Entities, &r.Players, &r.Customers); err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			printJSON(w, r)
		}
		return rows.Err()

	case "stations":
		tick := o.Tick
		if tick == 0 {
			lt, err := latestSnapshotTick(db)
			if err != nil {
				return fmt.Errorf("latest tick: %w", err)
			}
			if lt == 0 {
				return fmt.Errorf("no snapshots found")
			}
			tick = lt
		}
		rows, err := db.Query(`SELECT station_id,accumulated_json,completed,ready_tick FROM snapshot_stations WHERE tick=? ORDER BY station_id`, tick)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Tick            uint64 `json:"tick"`
				StationID       string `json:"station_id"`
				AccumulatedJSON string `json:"accumulated_json"`
				Completed       bool   `json:"completed"`
				ReadyTick       uint64 `json:"ready_tick,omitempty"`
			}
			var completed int
			if err := rows.Scan(&r.StationID, &r.AccumulatedJSON, &completed, &r.ReadyTick); err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			r.Tick = tick
			r.Completed = completed != 0
			printJSON(w, r)
		}
		return rows.Err()

	case "ticks":
		rows, err := db.Query(`SELECT tick,digest,score,joins,leaves,actions FROM ticks ORDER BY tick DESC LIMIT ?`, o.Limit)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Tick    uint64 `json:"tick"`
				Digest  string `json:"digest"`
				Score   int    `json:"score"`
				Joins   int    `json:"joins"`
				Leaves  int    `json:"leaves"`
				Actions int    `json:"actions"`
			}
			if err := rows.Scan(&r.Tick, &r.Digest, &r.Score, &r.Joins, &r.Leaves, &r.Actions); err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			printJSON(w, r)
		}
		return rows.Err()

	case "audits":
		where := []string{"1=1"}
		var params []any
		if o.Actor != "" {
			where = append(where, "actor=?")
			params = append(params, o.Actor)
		}
		if o.Entity != "" {
			where = append(where, "entity_id=?")
			params = append(params, o.Entity)
		}
		if o.Action != "" {
			where = append(where, "action=?")
			params = append(params, strings.ToUpper(o.Action))
		}
		params = append(params, o.Limit)
		rows, err := db.Query(`SELECT tick,seq,actor,action,COALESCE(entity_id,''),COALESCE(item,''),COALESCE(from_owner,''),COALESCE(to_owner,''),points,COALESCE(reason,'') FROM audits WHERE `+
			strings.Join(where, " AND ")+` ORDER BY tick DESC, seq DESC LIMIT ?`, params...)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Tick     uint64 `json:"tick"`
				Seq      int    `json:"seq"`
				Actor    string `json:"actor"`
				Action   string `json:"action"`
				EntityID string `json:"entity_id,omitempty"`
				Item     string `json:"item,omitempty"`
				From     string `json:"from,omitempty"`
				To       string `json:"to,omitempty"`
				Points   int    `json:"points,omitempty"`
				Reason   string `json:"reason,omitempty"`
			}
			if err := rows.Scan(&r.Tick, &r.Seq, &r.Actor, &r.Action, &r.EntityID, &r.Item, &r.From, &r.To, &r.Points, &r.Reason); err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			printJSON(w, r)
		}
		return rows.Err()

	case "catalogs":
		rows, err := db.Query(`SELECT name,digest,updated_at FROM catalogs ORDER BY name`)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Name      string `json:"name"`
				Digest    string `json:"digest"`
				UpdatedAt string `json:"updated_at"`
			}
			if err := rows.Scan(&r.Name, &r.Digest, &r.UpdatedAt); err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			printJSON(w, r)
		}
		return rows.Err()

	default:
		return fmt.Errorf("unknown query %q (want rounds|snapshots|stations|ticks|audits|catalogs)", q)
	}
}

func latestSnapshotTick(db *sql.DB) (uint64, error) {
	var t sql.NullInt64
	if err := db.QueryRow(`SELECT MAX(tick) FROM snapshots`).Scan(&t); err != nil {
		return 0, err
	}
	if !t.Valid {
		return 0, nil
	}
	return uint64(t.Int64), nil
}
