package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string            `json:"type"`
	ProtocolVersion string            `json:"protocol_version"`
	PlayerName      string            `json:"player_name"`
	Capabilities    HelloCapabilities `json:"capabilities"`
	Auth            *HelloAuth        `json:"auth,omitempty"`
}

type HelloCapabilities struct {
	MaxQueue int `json:"max_queue,omitempty"`
}

// HelloAuth carries a resume token from an earlier WELCOME. A valid token
// reattaches to the same player (and whatever it was holding).
type HelloAuth struct {
	Token string `json:"token,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	RoundID         string         `json:"round_id"`
	PlayerID        string         `json:"player_id"`
	ResumeToken     string         `json:"resume_token"`
	KitchenParams   KitchenParams  `json:"kitchen_params"`
	Catalogs        CatalogDigests `json:"catalogs"`
}

type KitchenParams struct {
	TickRateHz     int     `json:"tick_rate_hz"`
	RoundSeconds   float64 `json:"round_seconds"`
	ScoreThreshold int     `json:"score_threshold"`
	PickupRadius   float64 `json:"pickup_radius"`
	InteractRadius float64 `json:"interact_radius"`
	MoveSpeed      float64 `json:"move_speed"`
	Seed           int64   `json:"seed"`
}

type CatalogDigests struct {
	ItemPalette     DigestRef `json:"item_palette"`
	ItemsDigest     string    `json:"items_digest"`
	RecipesDigest   string    `json:"recipes_digest"`
	CustomersDigest string    `json:"customers_digest"`
	TuningDigest    string    `json:"tuning_digest,omitempty"`
}

type DigestRef struct {
	Digest string `json:"digest"`
	Count  int    `json:"count"`
}

// CATALOG (server -> client): one catalog per message.
type CatalogMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	Name            string      `json:"name"`   // "items", "recipes"
	Digest          string      `json:"digest"` // sha256 hex
	Part            int         `json:"part"`
	TotalParts      int         `json:"total_parts"`
	Data            interface{} `json:"data"`
}
