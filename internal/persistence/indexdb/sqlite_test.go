package indexdb

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"kitchenchaos.game/internal/persistence/snapshot"
	"kitchenchaos.game/internal/protocol"
	"kitchenchaos.game/internal/sim/catalogs"
	"kitchenchaos.game/internal/sim/kitchen"
	"kitchenchaos.game/internal/sim/tuning"
)

func openTestIndex(t *testing.T) (*SQLiteIndex, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index", "round.sqlite")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	return idx, path
}

func openRead(t *testing.T, path string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSQLiteIndex_TicksAndAudits(t *testing.T) {
	idx, path := openTestIndex(t)

	idx.RecordRound("r1", 42, 0, 10)
	_ = idx.WriteTick(kitchen.TickLogEntry{
		Tick:   5,
		Joins:  []kitchen.RecordedJoin{{PlayerID: "P1", Name: "chef"}},
		Leaves: []string{"P2"},
		Actions: []kitchen.RecordedAction{{PlayerID: "P1", Act: protocol.ActMsg{
			Type: protocol.TypeAct, Tick: 5, Intents: []protocol.Intent{{ID: "i1", Type: protocol.IntentPickup}},
		}}},
		Score:  100,
		Digest: "abc",
	})
	_ = idx.WriteAudit(kitchen.AuditEntry{Tick: 5, Actor: "P1", Action: "TRANSFER", EntityID: "E000001", Item: "Tomato", From: "WORLD", To: "HAND:P1", Reason: "PICKUP"})
	_ = idx.WriteAudit(kitchen.AuditEntry{Tick: 5, Actor: "P1", Action: "SCORE", Points: 100, Reason: "DISH_DELIVERED:Burger"})
	_ = idx.WriteAudit(kitchen.AuditEntry{Tick: 9, Actor: "WORLD", Action: "ROUND_END", Points: 100, Reason: "SUCCESS"})
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db := openRead(t, path)
	var digest string
	var score, joins, leaves, actions int
	if err := db.QueryRow(`SELECT digest,score,joins,leaves,actions FROM ticks WHERE tick=5`).Scan(&digest, &score, &joins, &leaves, &actions); err != nil {
		t.Fatalf("tick row: %v", err)
	}
	if digest != "abc" || score != 100 || joins != 1 || leaves != 1 || actions != 1 {
		t.Fatalf("tick row mismatch: %s %d %d %d %d", digest, score, joins, leaves, actions)
	}

	var name string
	if err := db.QueryRow(`SELECT name FROM joins WHERE tick=5 AND player_id='P1'`).Scan(&name); err != nil || name != "chef" {
		t.Fatalf("join row: %v %q", err, name)
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM audits WHERE tick=5`).Scan(&n); err != nil || n != 2 {
		t.Fatalf("audits at tick 5: %v %d", err, n)
	}
	var item, to string
	if err := db.QueryRow(`SELECT item,to_owner FROM audits WHERE tick=5 AND seq=0`).Scan(&item, &to); err != nil {
		t.Fatalf("audit row: %v", err)
	}
	if item != "Tomato" || to != "HAND:P1" {
		t.Fatalf("audit row mismatch: %s %s", item, to)
	}

	var outcome string
	var endTick int64
	if err := db.QueryRow(`SELECT end_tick,outcome,score FROM rounds WHERE round_id='r1'`).Scan(&endTick, &outcome, &score); err != nil {
		t.Fatalf("round row: %v", err)
	}
	if endTick != 9 || outcome != "SUCCESS" || score != 100 {
		t.Fatalf("round row mismatch: %d %s %d", endTick, outcome, score)
	}
}

func TestSQLiteIndex_RecordSnapshot(t *testing.T) {
	idx, path := openTestIndex(t)
	idx.RecordSnapshot("/abs/600.snap.zst", snapshot.SnapshotV1{
		Header:   snapshot.Header{Version: 1, RoundID: "r1", Tick: 600},
		Seed:     42,
		Score:    250,
		Entities: []snapshot.EntityV1{{ID: "E000001"}, {ID: "E000002"}},
		Players:  []snapshot.PlayerV1{{ID: "P1"}},
		Stations: []snapshot.StationV1{{ID: "plate_1", Accumulated: []string{"Tomato", "Lettuce"}}, {ID: "crate_1", ReadyTick: 640}},
	})
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db := openRead(t, path)
	var p string
	var score, entities, players int
	if err := db.QueryRow(`SELECT path,score,entities,players FROM snapshots WHERE tick=600`).Scan(&p, &score, &entities, &players); err != nil {
		t.Fatalf("snapshot row: %v", err)
	}
	if p != "/abs/600.snap.zst" || score != 250 || entities != 2 || players != 1 {
		t.Fatalf("snapshot row mismatch")
	}
	var acc string
	if err := db.QueryRow(`SELECT accumulated_json FROM snapshot_stations WHERE tick=600 AND station_id='plate_1'`).Scan(&acc); err != nil {
		t.Fatalf("station row: %v", err)
	}
	if acc != `["Tomato","Lettuce"]` {
		t.Fatalf("accumulated = %s", acc)
	}
}

func TestSQLiteIndex_UpsertCatalogs(t *testing.T) {
	idx, path := openTestIndex(t)
	cats, err := catalogs.New(
		[]catalogs.ItemDef{{ID: "Tomato", Kind: catalogs.KindRaw}, {ID: "Salad", Kind: catalogs.KindDish, Points: 10}},
		[]catalogs.RecipeDef{{RecipeID: "salad", Station: catalogs.StationAssembly, Inputs: []string{"Tomato"}, Output: "Salad"}},
		catalogs.CustomerCatalog{Orders: []string{"Salad!"}},
	)
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	if err := idx.UpsertCatalogs("", cats, tuning.Defaults(), tuning.Layout{}); err != nil {
		t.Fatalf("UpsertCatalogs: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db := openRead(t, path)
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM catalogs WHERE name IN ('items_palette','recipes','tuning','layout')`).Scan(&n); err != nil || n != 4 {
		t.Fatalf("catalog rows: %v %d", err, n)
	}
}

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}
	s.ch <- req{kind: reqTick, tick: kitchen.TickLogEntry{Tick: 1}}

	_ = s.WriteTick(kitchen.TickLogEntry{Tick: 2})
	_ = s.WriteAudit(kitchen.AuditEntry{Tick: 2})
	s.RecordSnapshot("/tmp/2.snap.zst", snapshot.SnapshotV1{})
	s.RecordRound("r1", 42, 0, 10)

	st := s.Stats()
	if st.DropTickTotal != 1 || st.DropAuditTotal != 1 || st.DropSnapshotTotal != 1 || st.DropRoundTotal != 1 {
		t.Fatalf("stats = %+v", st)
	}
}
