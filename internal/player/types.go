// Package player provides the resource model of a single player character:
// vitals, progression, inventory, confinement and loans, plus the
// normalization rules that keep every field inside its invariants.
package player

import (
	"time"

	"github.com/google/uuid"

	"github.com/talgya/astral-district/internal/balance"
)

// ConfinementKind is the current place of confinement, if any.
type ConfinementKind string

const (
	ConfinementNone     ConfinementKind = "none"
	ConfinementJail     ConfinementKind = "jail"
	ConfinementHospital ConfinementKind = "hospital"
)

// Confinement is the jail/hospital state. Kind and RemainingSeconds move
// together: entering one kind replaces the other and its countdown.
type Confinement struct {
	Kind             ConfinementKind `json:"kind"`
	RemainingSeconds int             `json:"remaining_seconds"`
}

// Free reports whether the player is neither jailed nor hospitalized.
func (c Confinement) Free() bool {
	return c.Kind == ConfinementNone || c.Kind == ""
}

// Stats are the combat stats raised on level-up.
type Stats struct {
	Strength  int `json:"strength"`
	Defense   int `json:"defense"`
	Speed     int `json:"speed"`
	Dexterity int `json:"dexterity"`
}

// InventoryEntry is one stack (stackable items) or one unit (everything else).
type InventoryEntry struct {
	ItemID     string    `json:"item_id"`
	Quantity   int       `json:"quantity"`
	Equipped   bool      `json:"equipped"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// Loan is an outstanding debt taken at the bank.
type Loan struct {
	ID        string    `json:"id"`
	Principal int       `json:"principal"`
	Owed      int       `json:"owed"`
	TakenAt   time.Time `json:"taken_at"`
	DueAt     time.Time `json:"due_at"`
}

// State is the complete mutable model of one player character.
type State struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`

	// Vitals
	Health       int `json:"health"`
	MaxHealth    int `json:"max_health"`
	Energy       int `json:"energy"`
	MaxEnergy    int `json:"max_energy"`     // never above 100
	HeartRate    int `json:"heart_rate"`     // never below 50
	MaxHeartRate int `json:"max_heart_rate"` // never above 180
	Heat         int `json:"heat"`
	MaxHeat      int `json:"max_heat"`

	// Economic
	Money int    `json:"money"`
	Loans []Loan `json:"loans"`

	// Progression
	Level            int   `json:"level"`
	Experience       int   `json:"experience"`
	ExperienceToNext int   `json:"experience_to_next"`
	Stats            Stats `json:"stats"`

	Inventory   []InventoryEntry `json:"inventory"`
	Confinement Confinement      `json:"confinement"`
	Location    string           `json:"location"`

	LastAction time.Time `json:"last_action"`
}

// New creates a level-1 character.
func New(name string, now time.Time) State {
	return State{
		ID:               uuid.NewString(),
		Name:             name,
		CreatedAt:        now,
		Health:           balance.StartHealth,
		MaxHealth:        balance.StartHealth,
		Energy:           balance.StartEnergy,
		MaxEnergy:        balance.StartEnergy,
		HeartRate:        balance.StartHeartRate,
		MaxHeartRate:     balance.StartMaxHeartRate,
		Heat:             0,
		MaxHeat:          balance.StartMaxHeat,
		Money:            balance.StartMoney,
		Level:            1,
		Experience:       0,
		ExperienceToNext: balance.StartExperienceToNext,
		Stats: Stats{
			Strength:  balance.StartStat,
			Defense:   balance.StartStat,
			Speed:     balance.StartStat,
			Dexterity: balance.StartStat,
		},
		Inventory:   []InventoryEntry{},
		Confinement: Confinement{Kind: ConfinementNone},
		Location:    balance.StartLocation,
		LastAction:  now,
		Loans:       []Loan{},
	}
}

// Clone returns a deep copy safe to hand to observers.
func (s State) Clone() State {
	c := s
	c.Inventory = append([]InventoryEntry(nil), s.Inventory...)
	c.Loans = append([]Loan(nil), s.Loans...)
	if c.Inventory == nil {
		c.Inventory = []InventoryEntry{}
	}
	if c.Loans == nil {
		c.Loans = []Loan{}
	}
	return c
}

// Quantity returns how many units of itemID the player holds.
func (s *State) Quantity(itemID string) int {
	total := 0
	for _, e := range s.Inventory {
		if e.ItemID == itemID {
			total += e.Quantity
		}
	}
	return total
}
