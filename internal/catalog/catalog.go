// Package catalog provides the static item and crime tables the engine
// consults. The tables are data: a YAML file embedded in the binary,
// overridable from disk. The engine only ever reads them through
// RewardCatalog.
package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultCatalog []byte

// ItemType classifies items for equip and use rules.
type ItemType string

const (
	ItemWeapon     ItemType = "weapon"
	ItemArmor      ItemType = "armor"
	ItemConsumable ItemType = "consumable"
	ItemMisc       ItemType = "misc"
)

// Effect is what using an item restores. HeartRate calms (lowers) the pulse.
type Effect struct {
	Health    int `yaml:"health" json:"health"`
	Energy    int `yaml:"energy" json:"energy"`
	HeartRate int `yaml:"heart_rate" json:"heart_rate"`
}

// Item is one catalog entry.
type Item struct {
	ID          string   `yaml:"id" json:"id"`
	Name        string   `yaml:"name" json:"name"`
	Type        ItemType `yaml:"type" json:"type"`
	Slot        string   `yaml:"slot,omitempty" json:"slot,omitempty"` // equipment slot for weapons/armor
	Stackable   bool     `yaml:"stackable" json:"stackable"`
	Usable      bool     `yaml:"usable" json:"usable"`
	Tradeable   bool     `yaml:"tradeable" json:"tradeable"`
	Effect      Effect   `yaml:"effect" json:"effect"`
	MarketValue int      `yaml:"market_value" json:"market_value"`
}

// Equippable reports whether the item can occupy an equipment slot.
func (i Item) Equippable() bool {
	return i.Type == ItemWeapon || i.Type == ItemArmor
}

// Range is an inclusive integer range.
type Range struct {
	Min int `yaml:"min" json:"min"`
	Max int `yaml:"max" json:"max"`
}

// Drop is a chance to find an item on a successful crime.
type Drop struct {
	ItemID string  `yaml:"item" json:"item"`
	Chance float64 `yaml:"chance" json:"chance"`
}

// Crime describes one committable action and its reward table.
type Crime struct {
	ID          string  `yaml:"id" json:"id"`
	Name        string  `yaml:"name" json:"name"`
	EnergyCost  int     `yaml:"energy_cost" json:"energy_cost"`
	SuccessRate float64 `yaml:"success_rate" json:"success_rate"`
	// CriticalRate is the share of successes that pay double.
	CriticalRate float64 `yaml:"critical_rate" json:"critical_rate"`
	Money        Range   `yaml:"money" json:"money"`
	Experience   Range   `yaml:"experience" json:"experience"`

	HeatOnSuccess      int `yaml:"heat_on_success" json:"heat_on_success"`
	HeatOnFailure      int `yaml:"heat_on_failure" json:"heat_on_failure"`
	HeartRateOnSuccess int `yaml:"heart_rate_on_success" json:"heart_rate_on_success"`
	HeartRateOnFailure int `yaml:"heart_rate_on_failure" json:"heart_rate_on_failure"`

	// InjuryChance applies on failure only.
	InjuryChance float64 `yaml:"injury_chance" json:"injury_chance"`
	InjuryDamage Range   `yaml:"injury_damage" json:"injury_damage"`

	Drops []Drop `yaml:"drops" json:"drops"`
}

// RewardCatalog is the read-only lookup the engine depends on.
type RewardCatalog interface {
	Item(id string) (Item, bool)
	Crime(id string) (Crime, bool)
}

// Catalog is the YAML-backed RewardCatalog.
type Catalog struct {
	Items  []Item  `yaml:"items"`
	Crimes []Crime `yaml:"crimes"`

	items  map[string]Item
	crimes map[string]Crime
}

// Parse decodes and validates a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := c.index(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Load reads a catalog file from disk.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Default returns the catalog embedded in the binary.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog invalid: %v", err))
	}
	return c
}

func (c *Catalog) index() error {
	c.items = make(map[string]Item, len(c.Items))
	for _, it := range c.Items {
		if it.ID == "" {
			return fmt.Errorf("item with empty id")
		}
		if _, dup := c.items[it.ID]; dup {
			return fmt.Errorf("duplicate item %q", it.ID)
		}
		if it.Equippable() && it.Slot == "" {
			return fmt.Errorf("item %q: equippable item needs a slot", it.ID)
		}
		if it.MarketValue < 0 {
			return fmt.Errorf("item %q: negative market value", it.ID)
		}
		c.items[it.ID] = it
	}

	c.crimes = make(map[string]Crime, len(c.Crimes))
	for _, cr := range c.Crimes {
		if cr.ID == "" {
			return fmt.Errorf("crime with empty id")
		}
		if _, dup := c.crimes[cr.ID]; dup {
			return fmt.Errorf("duplicate crime %q", cr.ID)
		}
		if cr.EnergyCost <= 0 {
			return fmt.Errorf("crime %q: energy cost must be positive", cr.ID)
		}
		if !unit(cr.SuccessRate) || !unit(cr.CriticalRate) || !unit(cr.InjuryChance) {
			return fmt.Errorf("crime %q: rates must be within [0, 1]", cr.ID)
		}
		if cr.Money.Min > cr.Money.Max || cr.Experience.Min > cr.Experience.Max || cr.InjuryDamage.Min > cr.InjuryDamage.Max {
			return fmt.Errorf("crime %q: range min exceeds max", cr.ID)
		}
		for _, d := range cr.Drops {
			if _, ok := c.items[d.ItemID]; !ok {
				return fmt.Errorf("crime %q: drop references unknown item %q", cr.ID, d.ItemID)
			}
			if !unit(d.Chance) {
				return fmt.Errorf("crime %q: drop chance must be within [0, 1]", cr.ID)
			}
		}
		c.crimes[cr.ID] = cr
	}
	return nil
}

func unit(v float64) bool {
	return v >= 0 && v <= 1
}

// Item looks up an item by id.
func (c *Catalog) Item(id string) (Item, bool) {
	it, ok := c.items[id]
	return it, ok
}

// Crime looks up a crime by id.
func (c *Catalog) Crime(id string) (Crime, bool) {
	cr, ok := c.crimes[id]
	return cr, ok
}
