package observerproto

import "kitchenchaos.game/internal/protocol"

// Version is the observer protocol version (separate from the player WS protocol).
const Version = "0.1"

// Client -> Server. First message on the observer WS connection, and can be re-sent to update settings.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	// Optional: mirror one player's dialogue panel and highlight.
	FocusPlayerID string `json:"focus_player_id,omitempty"`
	// When false, entity lists are omitted and only the round/score header is streamed.
	WithEntities bool `json:"with_entities"`
}

// HTTP response for GET /admin/v1/observer/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string         `json:"protocol_version"`
	RoundID         string         `json:"round_id"`
	Tick            uint64         `json:"tick"`
	KitchenParams   KitchenParams  `json:"kitchen_params"`
	ItemPalette     []string       `json:"item_palette"`
	Stations        []StationState `json:"stations"`
}

type KitchenParams struct {
	TickRateHz     int        `json:"tick_rate_hz"`
	RoundSeconds   float64    `json:"round_seconds"`
	ScoreThreshold int        `json:"score_threshold"`
	Bounds         [4]float64 `json:"bounds"` // min_x, min_z, max_x, max_z
	Seed           int64      `json:"seed"`
}

// Server -> Client. Sent every tick.
type TickMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`

	Round protocol.RoundObs `json:"round"`

	Players   []PlayerState          `json:"players"`
	Entities  []protocol.EntityObs   `json:"entities,omitempty"`
	Stations  []StationState         `json:"stations,omitempty"`
	Customers []protocol.CustomerObs `json:"customers,omitempty"`
	Joins     []JoinInfo             `json:"joins,omitempty"`
	Leaves    []string               `json:"leaves,omitempty"`
	Actions   []RecordedAction       `json:"actions,omitempty"`
	Audits    []AuditEntry           `json:"audits,omitempty"`

	// FocusPlayerID echoes the accepted focus; empty when the requested
	// player is unknown.
	FocusPlayerID string            `json:"focus_player_id,omitempty"`
	Focus         *protocol.SelfObs `json:"focus,omitempty"`
}

type JoinInfo struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
}

type RecordedAction struct {
	PlayerID string          `json:"player_id"`
	Act      protocol.ActMsg `json:"act"`
}

// AuditEntry is one ownership transfer or score award.
type AuditEntry struct {
	Tick     uint64 `json:"tick"`
	Actor    string `json:"actor"`
	Action   string `json:"action"`
	EntityID string `json:"entity_id,omitempty"`
	Item     string `json:"item,omitempty"`
	From     string `json:"from,omitempty"`
	To       string `json:"to,omitempty"`
	Points   int    `json:"points,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

type PlayerState struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Connected bool          `json:"connected"`
	Pos       protocol.Vec2 `json:"pos"`
	Facing    protocol.Vec2 `json:"facing"`
	CanMove   bool          `json:"can_move"`
	HeldID    string        `json:"held_id,omitempty"`
	HeldItem  string        `json:"held_item,omitempty"`
}

type StationState = protocol.StationObs
