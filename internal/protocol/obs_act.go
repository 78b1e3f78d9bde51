package protocol

// Positions on the wire are [x, z] on the kitchen floor.
type Vec2 [2]float64

type ObsMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`
	PlayerID        string `json:"player_id"`

	Round     RoundObs      `json:"round"`
	Self      SelfObs       `json:"self"`
	Entities  []EntityObs   `json:"entities"`
	Stations  []StationObs  `json:"stations"`
	Customers []CustomerObs `json:"customers"`
	Events    []Event       `json:"events"`
}

type RoundObs struct {
	Score          int     `json:"score"`
	ScoreThreshold int     `json:"score_threshold"`
	RemainingS     float64 `json:"remaining_s"`
	Paused         bool    `json:"paused"`
	Over           bool    `json:"over"`
	Outcome        string  `json:"outcome,omitempty"` // "SUCCESS","FAIL"
	NextScene      string  `json:"next_scene,omitempty"`
}

type SelfObs struct {
	Pos         Vec2         `json:"pos"`
	Facing      Vec2         `json:"facing"`
	CanMove     bool         `json:"can_move"`
	Held        *HeldObs     `json:"held,omitempty"`
	Highlighted string       `json:"highlighted,omitempty"`
	Dialogue    *DialogueObs `json:"dialogue,omitempty"`
}

type HeldObs struct {
	ID   string `json:"id"`
	Kind string `json:"kind"` // "RAW","CUT","PLATE","DISH"
	Item string `json:"item"`
}

type DialogueObs struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

type EntityObs struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Item      string `json:"item"`
	Owner     string `json:"owner"` // "WORLD","HAND","STATION","CUSTOMER"
	OwnerRef  string `json:"owner_ref,omitempty"`
	Pos       Vec2   `json:"pos"`
	Simulated bool   `json:"simulated"`
	Mode      string `json:"mode,omitempty"` // flee mode for raw ingredients
	Points    int    `json:"points,omitempty"`
}

type StationObs struct {
	ID          string   `json:"id"`
	Kind        string   `json:"kind"`
	Pos         Vec2     `json:"pos"`
	Recipe      string   `json:"recipe,omitempty"`
	Required    []string `json:"required,omitempty"`
	Accumulated []string `json:"accumulated,omitempty"`
	Completed   bool     `json:"completed,omitempty"`
	DishID      string   `json:"dish_id,omitempty"`
	Item        string   `json:"item,omitempty"`
	ReadyTick   uint64   `json:"ready_tick,omitempty"`
}

type CustomerObs struct {
	ID     string `json:"id"`
	State  string `json:"state"` // "ARRIVING","WAITING","LEAVING"
	Pos    Vec2   `json:"pos"`
	Order  string `json:"order"`
	Served bool   `json:"served,omitempty"`
}

type Event map[string]interface{}

// Intent types.
const (
	IntentMove     = "MOVE"
	IntentStop     = "STOP"
	IntentPickup   = "PICKUP"
	IntentDrop     = "DROP"
	IntentInteract = "INTERACT"
	IntentReset    = "RESET"
	IntentPause    = "PAUSE"
	IntentResume   = "RESUME"
)

// ACT (client -> server)
type ActMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	Tick            uint64   `json:"tick"`
	PlayerID        string   `json:"player_id"`
	Intents         []Intent `json:"intents,omitempty"`
}

type Intent struct {
	ID   string `json:"id"`
	Type string `json:"type"`

	// MOVE: desired direction on the floor; normalized server-side.
	Dir Vec2 `json:"dir,omitempty"`

	// INTERACT/RESET: optional explicit station or customer id. Empty means nearest.
	TargetID string `json:"target_id,omitempty"`
}
