package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"kitchenchaos.game/internal/sim/tuning"
)

type Header struct {
	Version int    `json:"version"`
	RoundID string `json:"round_id"`
	Tick    uint64 `json:"tick"`
}

// SnapshotV1 is the full kitchen state after Header.Tick has been stepped.
// Importing it resumes at Header.Tick+1.
type SnapshotV1 struct {
	Header Header `json:"header"`

	Seed     int64  `json:"seed"`
	RNGState uint64 `json:"rng_state"`

	// Configuration in force, captured for deterministic replay/resume.
	Tuning tuning.Tuning `json:"tuning"`
	Layout tuning.Layout `json:"layout"`

	Score  int     `json:"score"`
	Paused bool    `json:"paused"`
	Timer  TimerV1 `json:"timer"`
	Clock  uint64  `json:"clock"`

	LimitCounts map[string]int `json:"limit_counts,omitempty"`

	NextEntityNum   uint64 `json:"next_entity_num"`
	NextPlayerNum   uint64 `json:"next_player_num"`
	NextCustomerNum uint64 `json:"next_customer_num"`

	SpawnTask uint64   `json:"spawn_task"`
	TasksNext uint64   `json:"tasks_next"`
	Tasks     []TaskV1 `json:"tasks"`

	Entities  []EntityV1   `json:"entities"`
	Players   []PlayerV1   `json:"players"`
	Stations  []StationV1  `json:"stations"`
	Customers []CustomerV1 `json:"customers"`
}

type TimerV1 struct {
	Total     uint64 `json:"total"`
	Remaining uint64 `json:"remaining"`
	Threshold int    `json:"threshold"`
	NextScene string `json:"next_scene,omitempty"`
	Over      bool   `json:"over"`
	Outcome   string `json:"outcome,omitempty"`
}

type TaskV1 struct {
	ID      uint64 `json:"id"`
	Kind    string `json:"kind"`
	Target  string `json:"target,omitempty"`
	DueTick uint64 `json:"due_tick"`
}

type EntityV1 struct {
	ID       string     `json:"id"`
	Kind     string     `json:"kind"`
	Item     string     `json:"item"`
	Owner    string     `json:"owner"`
	OwnerRef string     `json:"owner_ref,omitempty"`
	Pos      [2]float64 `json:"pos"`
	Facing   [2]float64 `json:"facing"`
	Stripped bool       `json:"stripped,omitempty"`
	Tracked  bool       `json:"tracked,omitempty"`
	Points   int        `json:"points,omitempty"`
	Flee     *FleeV1    `json:"flee,omitempty"`
}

type FleeV1 struct {
	Mode       string     `json:"mode"`
	Dir        [2]float64 `json:"dir"`
	WanderLeft uint64     `json:"wander_left"`
	Holder     string     `json:"holder,omitempty"`
}

type PlayerV1 struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	ResumeToken string     `json:"resume_token"`
	Pos         [2]float64 `json:"pos"`
	Facing      [2]float64 `json:"facing"`
	MoveDir     [2]float64 `json:"move_dir"`
	HeldID      string     `json:"held_id,omitempty"`
	TalkingTo   string     `json:"talking_to,omitempty"`
}

type StationV1 struct {
	ID          string   `json:"id"`
	Accumulated []string `json:"accumulated,omitempty"`
	ContentIDs  []string `json:"content_ids,omitempty"`
	Completed   bool     `json:"completed,omitempty"`
	DishID      string   `json:"dish_id,omitempty"`
	HoldingID   string   `json:"holding_id,omitempty"`
	ReadyTick   uint64   `json:"ready_tick,omitempty"`
}

type CustomerV1 struct {
	ID        string     `json:"id"`
	State     string     `json:"state"`
	Pos       [2]float64 `json:"pos"`
	Order     string     `json:"order"`
	Served    bool       `json:"served,omitempty"`
	TalkingTo string     `json:"talking_to,omitempty"`
	Panel     string     `json:"panel,omitempty"`
	LeaveTask uint64     `json:"leave_task,omitempty"`
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 256*1024)
	defer bw.Flush()

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// Read header line (ignore it for now, gob also contains header).
	_, _ = br.ReadBytes('\n')

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	return snap, nil
}
