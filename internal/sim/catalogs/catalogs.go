package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Item kinds. Every interactable resolves to exactly one of these at spawn time.
const (
	KindRaw   = "RAW"
	KindCut   = "CUT"
	KindPlate = "PLATE"
	KindDish  = "DISH"
)

// Station kinds that consume recipes.
const (
	StationAssembly = "ASSEMBLY"
	StationPot      = "POT"
)

type Catalogs struct {
	Items     ItemCatalog
	Recipes   RecipeCatalog
	Customers CustomerCatalog
}

type ItemCatalog struct {
	Palette       []string
	Index         map[string]uint16
	Defs          map[string]ItemDef
	PaletteDigest string
	DefsDigest    string
}

type ItemDef struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"` // "RAW","CUT","PLATE","DISH"
	Flees   bool   `json:"flees,omitempty"`
	CutInto string `json:"cut_into,omitempty"`
	Points  int    `json:"points,omitempty"`
}

type RecipeCatalog struct {
	ByID   map[string]RecipeDef
	Digest string
}

type RecipeDef struct {
	RecipeID   string   `json:"recipe_id"`
	Station    string   `json:"station"`
	Inputs     []string `json:"inputs"`
	Exact      bool     `json:"exact"`
	Output     string   `json:"output"`
	Bonus      int      `json:"bonus"`
	DishPoints int      `json:"dish_points"`
	ServeWith  string   `json:"serve_with,omitempty"`
}

type CustomerCatalog struct {
	Orders        []string `json:"orders"`
	SatisfiedText string   `json:"satisfied_text"`
	WrongItemText string   `json:"wrong_item_text"`
	Digest        string   `json:"-"`
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs

	if err := loadItems(filepath.Join(configDir, "items.json"), &c.Items); err != nil {
		return nil, err
	}
	if err := loadRecipes(filepath.Join(configDir, "recipes.json"), &c.Recipes); err != nil {
		return nil, err
	}
	if err := loadCustomers(filepath.Join(configDir, "customers.json"), &c.Customers); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// New builds catalogs from in-memory definitions. Digests are computed over the
// canonical JSON encoding so they match what Load would produce for the same defs.
func New(items []ItemDef, recipes []RecipeDef, customers CustomerCatalog) (*Catalogs, error) {
	var c Catalogs

	raw, _ := json.Marshal(items)
	if err := indexItems(raw, items, &c.Items); err != nil {
		return nil, err
	}
	raw, _ = json.Marshal(recipes)
	if err := indexRecipes(raw, recipes, &c.Recipes); err != nil {
		return nil, err
	}
	raw, _ = json.Marshal(customers)
	c.Customers = customers
	c.Customers.Digest = sha256Hex(raw)

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks cross references between catalogs.
func (c *Catalogs) Validate() error {
	for _, d := range c.Items.Defs {
		switch d.Kind {
		case KindRaw, KindCut, KindPlate, KindDish:
		default:
			return fmt.Errorf("items.json: %s: unknown kind %q", d.ID, d.Kind)
		}
		if d.Points < 0 {
			return fmt.Errorf("items.json: %s: negative points", d.ID)
		}
		if d.CutInto != "" {
			cut, ok := c.Items.Defs[d.CutInto]
			if !ok {
				return fmt.Errorf("items.json: %s: cut_into references unknown item %s", d.ID, d.CutInto)
			}
			if cut.Kind != KindCut {
				return fmt.Errorf("items.json: %s: cut_into %s is not a CUT item", d.ID, d.CutInto)
			}
		}
	}
	for _, r := range c.Recipes.ByID {
		switch r.Station {
		case StationAssembly, StationPot:
		default:
			return fmt.Errorf("recipes.json: %s: unknown station %q", r.RecipeID, r.Station)
		}
		if len(r.Inputs) == 0 {
			return fmt.Errorf("recipes.json: %s: no inputs", r.RecipeID)
		}
		for _, in := range r.Inputs {
			if _, ok := c.Items.Defs[in]; !ok {
				return fmt.Errorf("recipes.json: %s: unknown input %s", r.RecipeID, in)
			}
		}
		out, ok := c.Items.Defs[r.Output]
		if !ok || out.Kind != KindDish {
			return fmt.Errorf("recipes.json: %s: output %q is not a DISH item", r.RecipeID, r.Output)
		}
		if r.Bonus < 0 || r.DishPoints < 0 {
			return fmt.Errorf("recipes.json: %s: negative points", r.RecipeID)
		}
		if r.ServeWith != "" {
			sw, ok := c.Items.Defs[r.ServeWith]
			if !ok || sw.Kind != KindPlate {
				return fmt.Errorf("recipes.json: %s: serve_with %q is not a PLATE item", r.RecipeID, r.ServeWith)
			}
		}
	}
	return nil
}

// Kind returns the kind of a catalog item, or "" when unknown.
func (c *Catalogs) Kind(itemID string) string {
	return c.Items.Defs[itemID].Kind
}

// FirstOfKind returns the lexically first item of a kind (used for default plates).
func (c *Catalogs) FirstOfKind(kind string) string {
	for _, id := range c.Items.Palette {
		if c.Items.Defs[id].Kind == kind {
			return id
		}
	}
	return ""
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadItems(path string, out *ItemCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var defs []ItemDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("items.json: %w", err)
	}
	return indexItems(raw, defs, out)
}

func indexItems(raw []byte, defs []ItemDef, out *ItemCatalog) error {
	out.DefsDigest = sha256Hex(raw)
	out.Defs = map[string]ItemDef{}
	for _, d := range defs {
		d.ID = strings.TrimSpace(d.ID)
		if d.ID == "" {
			return fmt.Errorf("items.json: empty id")
		}
		if _, dup := out.Defs[d.ID]; dup {
			return fmt.Errorf("items.json: duplicate id %s", d.ID)
		}
		out.Defs[d.ID] = d
	}

	ids := make([]string, 0, len(out.Defs))
	for id := range out.Defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out.Palette = ids
	out.Index = make(map[string]uint16, len(ids))
	for i, id := range ids {
		out.Index[id] = uint16(i)
	}
	palJSON, _ := json.Marshal(ids)
	out.PaletteDigest = sha256Hex(palJSON)
	return nil
}

func loadRecipes(path string, out *RecipeCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var defs []RecipeDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("recipes.json: %w", err)
	}
	return indexRecipes(raw, defs, out)
}

func indexRecipes(raw []byte, defs []RecipeDef, out *RecipeCatalog) error {
	out.Digest = sha256Hex(raw)
	out.ByID = map[string]RecipeDef{}
	for _, r := range defs {
		if r.RecipeID == "" {
			return fmt.Errorf("recipes.json: empty recipe_id")
		}
		out.ByID[r.RecipeID] = r
	}
	return nil
}

func loadCustomers(path string, out *CustomerCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		// Customers are optional; fall back to a single generic order.
		if os.IsNotExist(err) {
			*out = CustomerCatalog{
				Orders:        []string{"Give me your best dish!"},
				SatisfiedText: "That was so delicious!",
				WrongItemText: "That's not what I ordered...",
				Digest:        sha256Hex(nil),
			}
			return nil
		}
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("customers.json: %w", err)
	}
	if len(out.Orders) == 0 {
		return fmt.Errorf("customers.json: empty orders")
	}
	out.Digest = sha256Hex(raw)
	return nil
}
