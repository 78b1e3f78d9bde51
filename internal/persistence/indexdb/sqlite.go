package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"kitchenchaos.game/internal/persistence/snapshot"
	"kitchenchaos.game/internal/sim/catalogs"
	"kitchenchaos.game/internal/sim/kitchen"
	"kitchenchaos.game/internal/sim/tuning"
)

// SQLiteIndex is a queryable read-model of the round logs. A single writer
// goroutine owns the database; producers never block the sim loop.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropTick     atomic.Uint64
	dropAudit    atomic.Uint64
	dropSnapshot atomic.Uint64
	dropRound    atomic.Uint64
}

type reqKind int

const (
	reqTick reqKind = iota + 1
	reqAudit
	reqSnapshot
	reqRound
)

type req struct {
	kind reqKind

	tick     kitchen.TickLogEntry
	audit    kitchen.AuditEntry
	snapshot snapshotRow
	round    roundRow
}

type snapshotRow struct {
	Tick      uint64
	Path      string
	RoundID   string
	Seed      int64
	Score     int
	Entities  int
	Players   int
	Customers int
	Stations  []snapshot.StationV1
}

type roundRow struct {
	RoundID    string
	Seed       int64
	StartTick  uint64
	Threshold  int
	RecordedAt string
}

// Stats counts requests dropped because the writer fell behind.
type Stats struct {
	DropTickTotal     uint64 `json:"drop_tick_total"`
	DropAuditTotal    uint64 `json:"drop_audit_total"`
	DropSnapshotTotal uint64 `json:"drop_snapshot_total"`
	DropRoundTotal    uint64 `json:"drop_round_total"`
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS rounds (
			round_id TEXT PRIMARY KEY,
			seed INTEGER NOT NULL,
			start_tick INTEGER NOT NULL,
			threshold INTEGER NOT NULL,
			end_tick INTEGER,
			outcome TEXT,
			score INTEGER,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS ticks (
			tick INTEGER PRIMARY KEY,
			digest TEXT NOT NULL,
			score INTEGER NOT NULL,
			joins INTEGER NOT NULL,
			leaves INTEGER NOT NULL,
			actions INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS joins (
			tick INTEGER NOT NULL,
			player_id TEXT NOT NULL,
			name TEXT NOT NULL,
			PRIMARY KEY (tick, player_id)
		);`,
		`CREATE TABLE IF NOT EXISTS leaves (
			tick INTEGER NOT NULL,
			player_id TEXT NOT NULL,
			PRIMARY KEY (tick, player_id)
		);`,
		`CREATE TABLE IF NOT EXISTS actions (
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			player_id TEXT NOT NULL,
			act_json TEXT NOT NULL,
			PRIMARY KEY (tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_actions_player_tick ON actions(player_id, tick);`,
		`CREATE TABLE IF NOT EXISTS audits (
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			actor TEXT NOT NULL,
			action TEXT NOT NULL,
			entity_id TEXT,
			item TEXT,
			from_owner TEXT,
			to_owner TEXT,
			points INTEGER NOT NULL,
			reason TEXT,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_actor_tick ON audits(actor, tick);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_entity_tick ON audits(entity_id, tick);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_action_tick ON audits(action, tick);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			tick INTEGER PRIMARY KEY,
			path TEXT NOT NULL,
			round_id TEXT NOT NULL,
			seed INTEGER NOT NULL,
			score INTEGER NOT NULL,
			entities INTEGER NOT NULL,
			players INTEGER NOT NULL,
			customers INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS snapshot_stations (
			tick INTEGER NOT NULL,
			station_id TEXT NOT NULL,
			accumulated_json TEXT NOT NULL,
			completed INTEGER NOT NULL,
			ready_tick INTEGER NOT NULL,
			PRIMARY KEY (tick, station_id)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		DropTickTotal:     s.dropTick.Load(),
		DropAuditTotal:    s.dropAudit.Load(),
		DropSnapshotTotal: s.dropSnapshot.Load(),
		DropRoundTotal:    s.dropRound.Load(),
	}
}

func (s *SQLiteIndex) WriteTick(entry kitchen.TickLogEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqTick, tick: entry}:
	default:
		// Drop if the indexer falls behind; JSONL logs remain the source of truth.
		s.dropTick.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) WriteAudit(entry kitchen.AuditEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqAudit, audit: entry}:
	default:
		s.dropAudit.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	if s == nil || s.closed.Load() {
		return
	}
	r := snapshotRow{
		Tick:      snap.Header.Tick,
		Path:      path,
		RoundID:   snap.Header.RoundID,
		Seed:      snap.Seed,
		Score:     snap.Score,
		Entities:  len(snap.Entities),
		Players:   len(snap.Players),
		Customers: len(snap.Customers),
		Stations:  snap.Stations,
	}
	select {
	case s.ch <- req{kind: reqSnapshot, snapshot: r}:
	default:
		s.dropSnapshot.Add(1)
	}
}

// RecordRound registers the round being played. Its end is filled in from the
// ROUND_END audit.
func (s *SQLiteIndex) RecordRound(roundID string, seed int64, startTick uint64, threshold int) {
	if s == nil || s.closed.Load() || roundID == "" {
		return
	}
	r := roundRow{
		RoundID:    roundID,
		Seed:       seed,
		StartTick:  startTick,
		Threshold:  threshold,
		RecordedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	select {
	case s.ch <- req{kind: reqRound, round: r}:
	default:
		s.dropRound.Add(1)
	}
}

func (s *SQLiteIndex) UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning, layout tuning.Layout) error {
	if s == nil {
		return nil
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	raw := map[string][]byte{}
	read := func(name, path string) {
		b, err := os.ReadFile(path)
		if err != nil {
			return
		}
		raw[name] = b
	}
	if configDir != "" {
		read("items_defs", filepath.Join(configDir, "items.json"))
		read("recipes", filepath.Join(configDir, "recipes.json"))
		read("customers", filepath.Join(configDir, "customers.json"))
	}

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	if b := raw["items_defs"]; len(b) > 0 {
		rows = append(rows, kv{name: "items_defs", digest: cats.Items.DefsDigest, json: b})
	}
	if b, _ := json.Marshal(cats.Items.Palette); len(b) > 0 {
		rows = append(rows, kv{name: "items_palette", digest: cats.Items.PaletteDigest, json: b})
	}
	{
		// Canonical recipe list, also for catalogs built in memory.
		recipes := make([]catalogs.RecipeDef, 0, len(cats.Recipes.ByID))
		for _, r := range cats.Recipes.ByID {
			recipes = append(recipes, r)
		}
		sort.Slice(recipes, func(i, j int) bool { return recipes[i].RecipeID < recipes[j].RecipeID })
		b := raw["recipes"]
		if len(b) == 0 {
			b, _ = json.Marshal(recipes)
		}
		rows = append(rows, kv{name: "recipes", digest: cats.Recipes.Digest, json: b})
	}
	if b := raw["customers"]; len(b) > 0 {
		rows = append(rows, kv{name: "customers", digest: cats.Customers.Digest, json: b})
	}
	for name, v := range map[string]any{"tuning": tune, "layout": layout} {
		b, _ := json.Marshal(v)
		rows = append(rows, kv{name: name, digest: sha256Hex(b), json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.name == "" || r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	// Prepared statements (on db; executed within tx).
	insertTick, _ := s.db.Prepare(`INSERT OR REPLACE INTO ticks(tick,digest,score,joins,leaves,actions,raw_json) VALUES(?,?,?,?,?,?,?)`)
	insertJoin, _ := s.db.Prepare(`INSERT OR REPLACE INTO joins(tick,player_id,name) VALUES(?,?,?)`)
	insertLeave, _ := s.db.Prepare(`INSERT OR REPLACE INTO leaves(tick,player_id) VALUES(?,?)`)
	insertAction, _ := s.db.Prepare(`INSERT OR REPLACE INTO actions(tick,seq,player_id,act_json) VALUES(?,?,?,?)`)
	insertAudit, _ := s.db.Prepare(`INSERT OR REPLACE INTO audits(tick,seq,actor,action,entity_id,item,from_owner,to_owner,points,reason,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(tick,path,round_id,seed,score,entities,players,customers) VALUES(?,?,?,?,?,?,?,?)`)
	insertStation, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshot_stations(tick,station_id,accumulated_json,completed,ready_tick) VALUES(?,?,?,?,?)`)
	insertRound, _ := s.db.Prepare(`INSERT OR IGNORE INTO rounds(round_id,seed,start_tick,threshold,recorded_at) VALUES(?,?,?,?,?)`)
	endRound, _ := s.db.Prepare(`UPDATE rounds SET end_tick=?, outcome=?, score=? WHERE round_id=?`)
	stmts := []*sql.Stmt{insertTick, insertJoin, insertLeave, insertAction, insertAudit, insertSnapshot, insertStation, insertRound, endRound}
	defer func() {
		for _, st := range stmts {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second

		lastAuditTick uint64
		auditSeq      int
		curRound      string
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			// If we can't start a tx, we can't do much; sleep a bit.
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(st *sql.Stmt, args ...any) bool {
		if st == nil || tx == nil {
			return false
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			rollback()
			return false
		}
		opCount++
		return true
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqTick:
			t := r.tick
			b, _ := json.Marshal(t)
			if !exec(insertTick, int64(t.Tick), t.Digest, t.Score, len(t.Joins), len(t.Leaves), len(t.Actions), string(b)) {
				continue
			}
			for _, j := range t.Joins {
				if !exec(insertJoin, int64(t.Tick), j.PlayerID, j.Name) {
					break
				}
			}
			for _, id := range t.Leaves {
				if !exec(insertLeave, int64(t.Tick), id) {
					break
				}
			}
			for i, a := range t.Actions {
				actJSON, _ := json.Marshal(a.Act)
				if !exec(insertAction, int64(t.Tick), i, a.PlayerID, string(actJSON)) {
					break
				}
			}

		case reqAudit:
			a := r.audit
			if a.Tick != lastAuditTick {
				lastAuditTick = a.Tick
				auditSeq = 0
			}
			seq := auditSeq
			auditSeq++
			raw, _ := json.Marshal(a)
			if !exec(insertAudit, int64(a.Tick), seq, a.Actor, a.Action, a.EntityID, a.Item, a.From, a.To, a.Points, a.Reason, string(raw)) {
				continue
			}
			if a.Action == "ROUND_END" && curRound != "" {
				exec(endRound, int64(a.Tick), a.Reason, a.Points, curRound)
			}

		case reqSnapshot:
			sn := r.snapshot
			if !exec(insertSnapshot, int64(sn.Tick), sn.Path, sn.RoundID, sn.Seed, sn.Score, sn.Entities, sn.Players, sn.Customers) {
				continue
			}
			for _, st := range sn.Stations {
				acc, _ := json.Marshal(st.Accumulated)
				if !exec(insertStation, int64(sn.Tick), st.ID, string(acc), boolInt(st.Completed), int64(st.ReadyTick)) {
					break
				}
			}

		case reqRound:
			ro := r.round
			if exec(insertRound, ro.RoundID, ro.Seed, int64(ro.StartTick), ro.Threshold, ro.RecordedAt) {
				curRound = ro.RoundID
			}
		}
		if tx != nil && (opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait) {
			commit()
		}
	}

	commit()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
