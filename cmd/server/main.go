package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"kitchenchaos.game/internal/persistence/archive"
	persistlog "kitchenchaos.game/internal/persistence/log"
	"kitchenchaos.game/internal/persistence/snapshot"
	"kitchenchaos.game/internal/sim/catalogs"
	"kitchenchaos.game/internal/sim/kitchen"
	"kitchenchaos.game/internal/sim/tuning"
	"kitchenchaos.game/internal/transport/observer"
	"kitchenchaos.game/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		roundID    = flag.String("round", "round_1", "round id")
		seed       = flag.Int64("seed", 1337, "round seed (used only when starting a fresh round)")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		layoutPath = flag.String("layout", "", "path to layout.yaml (default: <configs>/layout.yaml)")
		watch      = flag.Bool("watch_tuning", true, "hot-reload tuning.yaml on change")
		disableDB  = flag.Bool("disable_db", false, "disable indexing (tick/audit + catalogs + snapshot metadata)")

		snapPath   = flag.String("snapshot", "", "path to snapshot to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "load latest snapshot from data dir if present (when -snapshot is empty)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	roundDir := filepath.Join(*dataDir, "rounds", *roundID)
	_ = os.MkdirAll(roundDir, 0o755)

	tp := orDefault(*tuningPath, filepath.Join(*configDir, "tuning.yaml"))
	lp := orDefault(*layoutPath, filepath.Join(*configDir, "layout.yaml"))

	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" && *loadLatest {
		snapshotToLoad = latestSnapshot(roundDir)
	}

	// Tuning and layout are required for a fresh round; a resume carries its own.
	tune, err := tuning.Load(tp)
	if err != nil {
		if snapshotToLoad == "" || !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}
	layout, err := tuning.LoadLayout(lp)
	if err != nil && snapshotToLoad == "" {
		logger.Fatalf("load layout: %v", err)
	}

	// Optional: read-model index backend (does not affect sim determinism).
	idx, err := openRuntimeIndex(roundDir, *disableDB)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertCatalogs(*configDir, cats, tune, layout); err != nil {
			logger.Printf("index backend: upsert catalogs: %v", err)
		}
	}

	var k *kitchen.Kitchen
	if snapshotToLoad != "" {
		snap, err := snapshot.ReadSnapshot(snapshotToLoad)
		if err != nil {
			logger.Fatalf("read snapshot: %v", err)
		}
		if snap.Header.RoundID != "" && snap.Header.RoundID != *roundID {
			logger.Fatalf("snapshot round id mismatch: flag=%s snap=%s", *roundID, snap.Header.RoundID)
		}
		k, err = kitchen.New(kitchen.Config{RoundID: *roundID, Seed: snap.Seed, Tuning: snap.Tuning, Layout: snap.Layout}, cats)
		if err != nil {
			logger.Fatalf("kitchen: %v", err)
		}
		if err := k.ImportSnapshot(snap); err != nil {
			logger.Fatalf("import snapshot: %v", err)
		}
		logger.Printf("resumed from snapshot=%s tick=%d", filepath.Base(snapshotToLoad), k.CurrentTick())
	} else {
		k, err = kitchen.New(kitchen.Config{RoundID: *roundID, Seed: *seed, Tuning: tune, Layout: layout}, cats)
		if err != nil {
			logger.Fatalf("kitchen: %v", err)
		}
	}
	k.SetLogger(log.New(os.Stdout, "[kitchen] ", log.LstdFlags|log.Lmicroseconds))
	if idx != nil {
		idx.RecordRound(k.RoundID(), k.Seed(), k.CurrentTick(), tune.Round.ScoreThreshold)
	}

	ctx, cancel := signalContext()
	defer cancel()

	tickLog := persistlog.NewTickLogger(roundDir)
	auditLog := persistlog.NewAuditLogger(roundDir)
	defer tickLog.Close()
	defer auditLog.Close()
	k.SetTickLogger(multiTickLogger{a: tickLog, b: idx})
	k.SetAuditLogger(multiAuditLogger{a: auditLog, b: idx})

	// Snapshot writer.
	snapCh := make(chan snapshot.SnapshotV1, 2)
	k.SetSnapshotSink(snapCh)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-snapCh:
				path := filepath.Join(roundDir, "snapshots", fmt.Sprintf("%d.snap.zst", snap.Header.Tick))
				if err := snapshot.WriteSnapshot(path, snap); err != nil {
					logger.Printf("snapshot write: %v", err)
					continue
				}
				if idx != nil {
					idx.RecordSnapshot(path, snap)
				}
				if dst, ok, err := archive.ArchiveRoundSnapshot(roundDir, path, snap); err != nil {
					logger.Printf("archive round: %v", err)
				} else if ok {
					logger.Printf("round archived: %s", dst)
				}
			}
		}
	}()

	if *watch {
		if err := watchTuning(ctx, tp, k, logger); err != nil {
			logger.Printf("tuning watch disabled: %v", err)
		}
	}

	go func() {
		if err := k.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("kitchen stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", metricsHandler(k, idx))

	enableAdminHTTP := envBool("KC_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP())
	enablePprofHTTP := envBool("KC_ENABLE_PPROF_HTTP", false)
	if enableAdminHTTP {
		// Local-only admin endpoints (do not affect simulation determinism).
		mux.HandleFunc("/admin/v1/state", stateHandler(k))
		mux.HandleFunc("/admin/v1/snapshot", snapshotHandler(k))

		obsSrv := observer.NewServer(k, logger)
		mux.HandleFunc("/admin/v1/observer/bootstrap", obsSrv.BootstrapHandler())
		mux.HandleFunc("/admin/v1/observer/ws", obsSrv.WSHandler())
	} else {
		logger.Printf("admin endpoints disabled (KC_ENABLE_ADMIN_HTTP=false)")
	}
	if enablePprofHTTP {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	} else {
		logger.Printf("pprof endpoints disabled (KC_ENABLE_PPROF_HTTP=false)")
	}
	mux.HandleFunc("/v1/ws", ws.NewServer(k, logger).Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("round %s listening on %s", k.RoundID(), *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

// watchTuning forwards validated tuning edits to the kitchen loop.
func watchTuning(ctx context.Context, path string, k *kitchen.Kitchen, logger *log.Logger) error {
	w, err := tuning.NewWatcher(path)
	if err != nil {
		return err
	}
	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case t, ok := <-w.Updates:
				if !ok {
					return
				}
				select {
				case k.TuningUpdates() <- t:
					logger.Printf("tuning reloaded from %s", path)
				default:
					logger.Printf("tuning reload dropped: previous update still pending")
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Printf("tuning reload: %v", err)
			}
		}
	}()
	return nil
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}

func latestSnapshot(roundDir string) string {
	dir := filepath.Join(roundDir, "snapshots")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestTick uint64
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		base := strings.TrimSuffix(name, ".snap.zst")
		tick, err := strconv.ParseUint(base, 10, 64)
		if err != nil {
			continue
		}
		if best == "" || tick > bestTick {
			bestTick = tick
			best = filepath.Join(dir, name)
		}
	}
	return best
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

type multiTickLogger struct {
	a kitchen.TickLogger
	b kitchen.TickLogger
}

func (m multiTickLogger) WriteTick(entry kitchen.TickLogEntry) error {
	if m.a != nil {
		_ = m.a.WriteTick(entry)
	}
	if m.b != nil {
		_ = m.b.WriteTick(entry)
	}
	return nil
}

type multiAuditLogger struct {
	a kitchen.AuditLogger
	b kitchen.AuditLogger
}

func (m multiAuditLogger) WriteAudit(entry kitchen.AuditEntry) error {
	if m.a != nil {
		_ = m.a.WriteAudit(entry)
	}
	if m.b != nil {
		_ = m.b.WriteAudit(entry)
	}
	return nil
}
