package tuning

import (
	"fmt"
	"os"

	"github.com/jakecoffman/cp"
	"gopkg.in/yaml.v3"
)

// Station kinds placed by a layout.
const (
	StationAssembly     = "ASSEMBLY"
	StationPot          = "POT"
	StationCuttingBoard = "CUTTING_BOARD"
	StationDishRack     = "DISH_RACK"
	StationCrate        = "CRATE"
)

// Point is a position on the kitchen floor (x, z).
type Point struct {
	X float64 `yaml:"x" json:"x"`
	Z float64 `yaml:"z" json:"z"`
}

// Vec maps the floor plane onto chipmunk's 2D vector (z becomes Y).
func (p Point) Vec() cp.Vector { return cp.Vector{X: p.X, Y: p.Z} }

type Bounds struct {
	MinX float64 `yaml:"min_x" json:"min_x"`
	MinZ float64 `yaml:"min_z" json:"min_z"`
	MaxX float64 `yaml:"max_x" json:"max_x"`
	MaxZ float64 `yaml:"max_z" json:"max_z"`
}

func (b Bounds) BB() cp.BB { return cp.BB{L: b.MinX, B: b.MinZ, R: b.MaxX, T: b.MaxZ} }

type Layout struct {
	Bounds      Bounds           `yaml:"bounds" json:"bounds"`
	PlayerSpawn Point            `yaml:"player_spawn" json:"player_spawn"`
	Waypoints   Waypoints        `yaml:"waypoints" json:"waypoints"`
	Area        IngredientArea   `yaml:"ingredient_area" json:"ingredient_area"`
	Ingredients []IngredientSeed `yaml:"ingredients" json:"ingredients"`
	Stations    []StationSpec    `yaml:"stations" json:"stations"`
}

// Waypoints used by customers: they enter at Door, wait at Counter, leave via Door.
type Waypoints struct {
	Counter *Point `yaml:"counter" json:"counter,omitempty"`
	Door    *Point `yaml:"door" json:"door,omitempty"`
}

type IngredientArea struct {
	Center Point   `yaml:"center" json:"center"`
	Radius float64 `yaml:"radius" json:"radius"`
}

// IngredientSeed keeps Count live copies of Item in the ingredient area; a plated
// copy is replaced immediately.
type IngredientSeed struct {
	Item  string `yaml:"item" json:"item"`
	Count int    `yaml:"count" json:"count"`
}

type StationSpec struct {
	ID             string  `yaml:"id" json:"id"`
	Kind           string  `yaml:"kind" json:"kind"`
	Pos            Point   `yaml:"pos" json:"pos"`
	Recipe         string  `yaml:"recipe,omitempty" json:"recipe,omitempty"`
	Item           string  `yaml:"item,omitempty" json:"item,omitempty"`
	InteractRadius float64 `yaml:"interact_radius,omitempty" json:"interact_radius,omitempty"`
}

func LoadLayout(path string) (Layout, error) {
	var l Layout
	raw, err := os.ReadFile(path)
	if err != nil {
		return l, err
	}
	if err := yaml.Unmarshal(raw, &l); err != nil {
		return l, fmt.Errorf("layout.yaml: %w", err)
	}
	if err := l.Validate(); err != nil {
		return l, fmt.Errorf("layout.yaml: %w", err)
	}
	return l, nil
}

// Validate checks only the layout's own shape; references into catalogs are
// resolved (and rejected) when the kitchen is built.
func (l Layout) Validate() error {
	if l.Bounds.MaxX <= l.Bounds.MinX || l.Bounds.MaxZ <= l.Bounds.MinZ {
		return fmt.Errorf("bounds are empty")
	}
	seen := map[string]bool{}
	for i, s := range l.Stations {
		if s.ID == "" {
			return fmt.Errorf("stations[%d]: empty id", i)
		}
		if seen[s.ID] {
			return fmt.Errorf("stations[%d]: duplicate id %s", i, s.ID)
		}
		seen[s.ID] = true
		switch s.Kind {
		case StationAssembly, StationPot, StationCuttingBoard, StationDishRack, StationCrate:
		default:
			return fmt.Errorf("station %s: unknown kind %q", s.ID, s.Kind)
		}
	}
	for i, seed := range l.Ingredients {
		if seed.Item == "" || seed.Count < 0 {
			return fmt.Errorf("ingredients[%d]: invalid seed", i)
		}
	}
	return nil
}
