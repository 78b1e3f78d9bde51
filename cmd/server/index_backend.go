package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"kitchenchaos.game/internal/persistence/indexdb"
	"kitchenchaos.game/internal/persistence/snapshot"
	"kitchenchaos.game/internal/sim/catalogs"
	"kitchenchaos.game/internal/sim/kitchen"
	"kitchenchaos.game/internal/sim/tuning"
)

type runtimeIndex interface {
	kitchen.TickLogger
	kitchen.AuditLogger
	Close() error
	UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning, layout tuning.Layout) error
	RecordSnapshot(path string, snap snapshot.SnapshotV1)
	RecordRound(roundID string, seed int64, startTick uint64, threshold int)
	Stats() indexdb.Stats
}

func openRuntimeIndex(roundDir string, disableDB bool) (runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("KC_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		return indexdb.OpenSQLite(filepath.Join(roundDir, "index", "round.sqlite"))
	default:
		return nil, fmt.Errorf("unsupported KC_INDEX_BACKEND: %s", backend)
	}
}
