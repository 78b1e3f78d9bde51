package archive

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"time"

	"kitchenchaos.game/internal/persistence/snapshot"
)

type RoundArchiveMeta struct {
	RoundID   string `json:"round_id"`
	EndTick   uint64 `json:"end_tick"`
	Seed      int64  `json:"seed"`
	Outcome   string `json:"outcome"`
	Score     int    `json:"score"`
	Threshold int    `json:"threshold"`
	NextScene string `json:"next_scene,omitempty"`
	Snapshot  string `json:"snapshot"`
	CreatedAt string `json:"created_at"`
}

// ArchiveRoundSnapshot copies a round-end snapshot into `roundDir/archive/`
// next to a meta.json summary. Snapshots of a round still in progress are
// left alone and report archived=false.
func ArchiveRoundSnapshot(roundDir, snapshotPath string, snap snapshot.SnapshotV1) (archivedPath string, archived bool, err error) {
	if !snap.Timer.Over {
		return "", false, nil
	}

	archiveDir := filepath.Join(roundDir, "archive")
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return "", false, err
	}

	dst := filepath.Join(archiveDir, filepath.Base(snapshotPath))
	if err := copyFile(snapshotPath, dst); err != nil {
		return "", false, err
	}

	meta := RoundArchiveMeta{
		RoundID:   snap.Header.RoundID,
		EndTick:   snap.Header.Tick,
		Seed:      snap.Seed,
		Outcome:   snap.Timer.Outcome,
		Score:     snap.Score,
		Threshold: snap.Timer.Threshold,
		NextScene: snap.Timer.NextScene,
		Snapshot:  filepath.Base(dst),
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", false, err
	}
	if err := os.WriteFile(filepath.Join(archiveDir, "meta.json"), b, 0o644); err != nil {
		return "", false, err
	}
	return dst, true, nil
}

// ReadMeta loads the archive summary of a finished round.
func ReadMeta(roundDir string) (RoundArchiveMeta, error) {
	var m RoundArchiveMeta
	b, err := os.ReadFile(filepath.Join(roundDir, "archive", "meta.json"))
	if err != nil {
		return m, err
	}
	err = json.Unmarshal(b, &m)
	return m, err
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
