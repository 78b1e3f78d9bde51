package tuning

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version" json:"protocol_version"`

	TickRateHz         int `yaml:"tick_rate_hz" json:"tick_rate_hz"`
	SnapshotEveryTicks int `yaml:"snapshot_every_ticks" json:"snapshot_every_ticks"`

	Player   Player   `yaml:"player" json:"player"`
	Flee     Flee     `yaml:"flee" json:"flee"`
	Customer Customer `yaml:"customer" json:"customer"`
	Round    Round    `yaml:"round" json:"round"`
	Crate    Crate    `yaml:"crate" json:"crate"`

	// Session-wide caps on live ingredients per item id. Unlisted items are unlimited.
	IngredientLimits map[string]int `yaml:"ingredient_limits" json:"ingredient_limits,omitempty"`
}

type Player struct {
	MoveSpeed      float64 `yaml:"move_speed" json:"move_speed"`
	PickupRadius   float64 `yaml:"pickup_radius" json:"pickup_radius"`
	DropOffset     float64 `yaml:"drop_offset" json:"drop_offset"`
	InteractRadius float64 `yaml:"interact_radius" json:"interact_radius"`
}

type Flee struct {
	DetectionRange float64 `yaml:"detection_range" json:"detection_range"`
	RunSpeed       float64 `yaml:"run_speed" json:"run_speed"`
	WanderSpeed    float64 `yaml:"wander_speed" json:"wander_speed"`
	WanderMinS     float64 `yaml:"wander_min_s" json:"wander_min_s"`
	WanderMaxS     float64 `yaml:"wander_max_s" json:"wander_max_s"`
}

type Customer struct {
	MoveSpeed      float64 `yaml:"move_speed" json:"move_speed"`
	ArriveRadius   float64 `yaml:"arrive_radius" json:"arrive_radius"`
	TalkRadius     float64 `yaml:"talk_radius" json:"talk_radius"`
	LeaveDelayS    float64 `yaml:"leave_delay_s" json:"leave_delay_s"`
	FirstSpawnS    float64 `yaml:"first_spawn_s" json:"first_spawn_s"`
	SpawnIntervalS float64 `yaml:"spawn_interval_s" json:"spawn_interval_s"`
	MaxAlive       int     `yaml:"max_alive" json:"max_alive"`
}

type Round struct {
	Seconds        float64 `yaml:"seconds" json:"seconds"`
	ScoreThreshold int     `yaml:"score_threshold" json:"score_threshold"`
	NextScene      string  `yaml:"next_scene" json:"next_scene"`
}

type Crate struct {
	CooldownS float64 `yaml:"cooldown_s" json:"cooldown_s"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:    "1.0",
		TickRateHz:         20,
		SnapshotEveryTicks: 600,
		Player: Player{
			MoveSpeed:      5,
			PickupRadius:   3,
			DropOffset:     1,
			InteractRadius: 2,
		},
		Flee: Flee{
			DetectionRange: 5,
			RunSpeed:       3,
			WanderSpeed:    1,
			WanderMinS:     2,
			WanderMaxS:     5,
		},
		Customer: Customer{
			MoveSpeed:      4.5,
			ArriveRadius:   0.6,
			TalkRadius:     4,
			LeaveDelayS:    2,
			FirstSpawnS:    1,
			SpawnIntervalS: 120,
			MaxAlive:       2,
		},
		Round: Round{
			Seconds:        90,
			ScoreThreshold: 10,
			NextScene:      "paris",
		},
		Crate: Crate{CooldownS: 2},
	}
}

// Load reads a tuning file on top of Defaults, so omitted keys keep their default.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if t.TickRateHz <= 0 {
		return fmt.Errorf("tick_rate_hz must be > 0")
	}
	if t.Player.PickupRadius <= 0 || t.Player.InteractRadius <= 0 {
		return fmt.Errorf("player radii must be > 0")
	}
	if t.Flee.WanderMinS <= 0 || t.Flee.WanderMaxS < t.Flee.WanderMinS {
		return fmt.Errorf("flee wander range [%v,%v] invalid", t.Flee.WanderMinS, t.Flee.WanderMaxS)
	}
	if t.Customer.MaxAlive < 0 {
		return fmt.Errorf("customer.max_alive must be >= 0")
	}
	if t.Round.Seconds < 0 {
		return fmt.Errorf("round.seconds must be >= 0")
	}
	for item, n := range t.IngredientLimits {
		if n < 0 {
			return fmt.Errorf("ingredient_limits.%s must be >= 0", item)
		}
	}
	return nil
}

// Ticks converts seconds to whole ticks (rounded up, so a non-zero wait never collapses to 0).
func (t Tuning) Ticks(seconds float64) uint64 {
	if seconds <= 0 || t.TickRateHz <= 0 {
		return 0
	}
	return uint64(math.Ceil(seconds*float64(t.TickRateHz) - 1e-9))
}

// Dt is the simulated duration of one tick in seconds.
func (t Tuning) Dt() float64 {
	if t.TickRateHz <= 0 {
		return 0
	}
	return 1 / float64(t.TickRateHz)
}
