package kitchen

import (
	"fmt"

	"github.com/jakecoffman/cp"

	"kitchenchaos.game/internal/sim/catalogs"
)

// Kind is resolved from the item catalog when an entity spawns.
type Kind string

const (
	KindRaw   Kind = catalogs.KindRaw
	KindCut   Kind = catalogs.KindCut
	KindPlate Kind = catalogs.KindPlate
	KindDish  Kind = catalogs.KindDish
)

type Owner string

const (
	OwnerWorld    Owner = "WORLD"
	OwnerHand     Owner = "HAND"
	OwnerStation  Owner = "STATION"
	OwnerCustomer Owner = "CUSTOMER"
)

// Entity is anything a player can hold: a raw or cut ingredient, a plate or a
// finished dish. Only Kitchen.transfer changes Owner, and it keeps
// Simulated == (Owner == OwnerWorld).
type Entity struct {
	ID       string
	Kind     Kind
	Item     string
	Owner    Owner
	OwnerRef string // player, station or customer id; empty for WORLD

	Pos    cp.Vector
	Facing cp.Vector

	Simulated   bool
	Stripped    bool // independent behaviour removed for good (placed on a station)
	Highlighted bool

	Points int // dish value paid out by a customer

	// Counted against the session ingredient limits until removed or stripped.
	Tracked bool

	Flee *Flee // raw ingredients that run from players
}

// Result is the outcome of a player-facing mutation. Rejections never change state.
type Result struct {
	OK      bool
	Code    string
	Message string
}

func ok(msg string) Result { return Result{OK: true, Message: msg} }

func reject(code, msg string) Result { return Result{Code: code, Message: msg} }

// ConfigError reports a missing or inconsistent collaborator at construction.
// It is fatal; the kitchen never starts with a partial configuration.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("kitchen config: %s: %s", e.Field, e.Msg)
}

func configErr(field, format string, args ...any) error {
	return &ConfigError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

func vec2(v cp.Vector) [2]float64 { return [2]float64{v.X, v.Y} }

func fromVec2(a [2]float64) cp.Vector { return cp.Vector{X: a[0], Y: a[1]} }
