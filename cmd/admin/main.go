package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"kitchenchaos.game/internal/persistence/archive"
	persistlog "kitchenchaos.game/internal/persistence/log"
	"kitchenchaos.game/internal/sim/kitchen"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "audit":
			auditCmd(os.Args[2:])
			return
		case "db":
			dbCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "snapshot":
			snapshotCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	roundID := fs.String("round", "", "round id (optional)")
	_ = fs.Parse(args)

	base := filepath.Join(*dataDir, "rounds")
	if *roundID != "" {
		base = filepath.Join(base, *roundID)
	}

	entries, err := os.ReadDir(base)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		if *roundID == "" && e.IsDir() {
			if m, err := archive.ReadMeta(filepath.Join(base, e.Name())); err == nil {
				fmt.Printf("%s\t%s\tscore=%d/%d\tend_tick=%d\n", e.Name(), m.Outcome, m.Score, m.Threshold, m.EndTick)
				continue
			}
		}
		fmt.Println(e.Name())
	}
}

type auditFilter struct {
	SinceTick uint64
	ToTick    uint64
	Actor     string
	Action    string
	EntityID  string
}

func (f auditFilter) match(e kitchen.AuditEntry) bool {
	if e.Tick < f.SinceTick || (f.ToTick != 0 && e.Tick > f.ToTick) {
		return false
	}
	if f.Actor != "" && e.Actor != f.Actor {
		return false
	}
	if f.Action != "" && !strings.EqualFold(e.Action, f.Action) {
		return false
	}
	if f.EntityID != "" && e.EntityID != f.EntityID {
		return false
	}
	return true
}

func auditCmd(args []string) {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	roundID := fs.String("round", "", "round id")
	var f auditFilter
	fs.Uint64Var(&f.SinceTick, "since_tick", 0, "first tick (inclusive)")
	fs.Uint64Var(&f.ToTick, "to_tick", 0, "last tick (inclusive, optional)")
	fs.StringVar(&f.Actor, "actor", "", "actor filter (player id or WORLD)")
	fs.StringVar(&f.Action, "action", "", "action filter (SPAWN, TRANSFER, REMOVE, SCORE, STATION_RESET, ROUND_END)")
	fs.StringVar(&f.EntityID, "entity", "", "entity id filter; prints the entity's custody chain")
	summary := fs.Bool("summary", false, "print per-action counts and the score total instead of entries")
	_ = fs.Parse(args)

	if strings.TrimSpace(*roundID) == "" {
		fmt.Fprintln(os.Stderr, "missing -round")
		os.Exit(2)
	}
	recs, err := readAudit(filepath.Join(*dataDir, "rounds", *roundID), f)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read audit:", err)
		os.Exit(1)
	}
	if *summary {
		printJSON(os.Stdout, summarize(recs))
		return
	}
	for _, r := range recs {
		printJSON(os.Stdout, r)
	}
}

func readAudit(roundDir string, f auditFilter) ([]kitchen.AuditEntry, error) {
	files, err := filepath.Glob(filepath.Join(roundDir, "audit", "audit-*.jsonl.zst"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	var out []kitchen.AuditEntry
	for _, path := range files {
		err := persistlog.ReadJSONLZstd(path, func(line []byte) error {
			var e kitchen.AuditEntry
			if err := json.Unmarshal(line, &e); err != nil {
				return fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
			}
			if f.match(e) {
				out = append(out, e)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Tick < out[j].Tick })
	return out, nil
}

type auditSummary struct {
	Entries int            `json:"entries"`
	Actions map[string]int `json:"actions"`
	Points  int            `json:"points"`
	Outcome string         `json:"outcome,omitempty"`
}

func summarize(recs []kitchen.AuditEntry) auditSummary {
	s := auditSummary{Entries: len(recs), Actions: map[string]int{}}
	for _, e := range recs {
		s.Actions[e.Action]++
		switch e.Action {
		case "SCORE":
			s.Points += e.Points
		case "ROUND_END":
			s.Outcome = e.Reason
		}
	}
	return s
}

func printJSON(w io.Writer, v any) {
	b, _ := json.Marshal(v)
	fmt.Fprintln(w, string(b))
}
