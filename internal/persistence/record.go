package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/astral-district/internal/player"
)

// RecordVersion is the current save layout.
const RecordVersion = 1

var errMalformed = errors.New("malformed save")

// Record is the serialized form of player.State. Timestamps are strings
// (RFC 3339); legacy saves may carry unix milliseconds instead.
type Record struct {
	Version   int    `json:"version" jsonschema:"title=Record version,minimum=0"`
	ID        string `json:"id" jsonschema:"minLength=1"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at" jsonschema:"description=RFC 3339 or unix milliseconds"`

	Health       int `json:"health"`
	MaxHealth    int `json:"max_health"`
	Energy       int `json:"energy"`
	MaxEnergy    int `json:"max_energy"`
	HeartRate    int `json:"heart_rate"`
	MaxHeartRate int `json:"max_heart_rate"`
	Heat         int `json:"heat"`
	MaxHeat      int `json:"max_heat"`

	Money int          `json:"money"`
	Loans []RecordLoan `json:"loans,omitempty"`

	Level            int          `json:"level"`
	Experience       int          `json:"experience"`
	ExperienceToNext int          `json:"experience_to_next"`
	Stats            player.Stats `json:"stats"`

	Inventory   []RecordItem       `json:"inventory,omitempty"`
	Confinement player.Confinement `json:"confinement"`
	Location    string             `json:"location,omitempty"`
	LastAction  string             `json:"last_action,omitempty"`
}

// RecordItem is a serialized inventory entry.
type RecordItem struct {
	ItemID     string `json:"item_id"`
	Quantity   int    `json:"quantity"`
	Equipped   bool   `json:"equipped,omitempty"`
	AcquiredAt string `json:"acquired_at,omitempty"`
}

// RecordLoan is a serialized loan.
type RecordLoan struct {
	ID        string `json:"id"`
	Principal int    `json:"principal"`
	Owed      int    `json:"owed"`
	TakenAt   string `json:"taken_at"`
	DueAt     string `json:"due_at"`
}

// Encode serializes a state as the current record version.
func Encode(st player.State) ([]byte, error) {
	return json.Marshal(ToRecord(st))
}

// ToRecord converts a state to its serialized form.
func ToRecord(st player.State) Record {
	r := Record{
		Version:          RecordVersion,
		ID:               st.ID,
		Name:             st.Name,
		CreatedAt:        formatTime(st.CreatedAt),
		Health:           st.Health,
		MaxHealth:        st.MaxHealth,
		Energy:           st.Energy,
		MaxEnergy:        st.MaxEnergy,
		HeartRate:        st.HeartRate,
		MaxHeartRate:     st.MaxHeartRate,
		Heat:             st.Heat,
		MaxHeat:          st.MaxHeat,
		Money:            st.Money,
		Level:            st.Level,
		Experience:       st.Experience,
		ExperienceToNext: st.ExperienceToNext,
		Stats:            st.Stats,
		Confinement:      st.Confinement,
		Location:         st.Location,
		LastAction:       formatTime(st.LastAction),
	}
	for _, e := range st.Inventory {
		r.Inventory = append(r.Inventory, RecordItem{
			ItemID:     e.ItemID,
			Quantity:   e.Quantity,
			Equipped:   e.Equipped,
			AcquiredAt: formatTime(e.AcquiredAt),
		})
	}
	for _, l := range st.Loans {
		r.Loans = append(r.Loans, RecordLoan{
			ID:        l.ID,
			Principal: l.Principal,
			Owed:      l.Owed,
			TakenAt:   formatTime(l.TakenAt),
			DueAt:     formatTime(l.DueAt),
		})
	}
	return r
}

// Decode parses and revives a saved record. Version 0 is accepted only
// when legacy is set. The result is normalized.
func Decode(data []byte, legacy bool) (player.State, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return player.State{}, fmt.Errorf("%w: %v", errMalformed, err)
	}
	return Revive(r, legacy)
}

// Revive validates a record and converts every temporal field back into a
// time.Time. Missing optional timestamps default to the creation time.
func Revive(r Record, legacy bool) (player.State, error) {
	switch {
	case r.Version == RecordVersion:
	case r.Version == 0 && legacy:
	default:
		return player.State{}, fmt.Errorf("%w: unsupported version %d", errMalformed, r.Version)
	}
	if strings.TrimSpace(r.ID) == "" {
		return player.State{}, fmt.Errorf("%w: missing id", errMalformed)
	}
	created, err := parseTime(r.CreatedAt)
	if err != nil {
		return player.State{}, fmt.Errorf("%w: created_at: %v", errMalformed, err)
	}

	st := player.State{
		ID:               r.ID,
		Name:             r.Name,
		CreatedAt:        created,
		Health:           r.Health,
		MaxHealth:        r.MaxHealth,
		Energy:           r.Energy,
		MaxEnergy:        r.MaxEnergy,
		HeartRate:        r.HeartRate,
		MaxHeartRate:     r.MaxHeartRate,
		Heat:             r.Heat,
		MaxHeat:          r.MaxHeat,
		Money:            r.Money,
		Level:            r.Level,
		Experience:       r.Experience,
		ExperienceToNext: r.ExperienceToNext,
		Stats:            r.Stats,
		Confinement:      r.Confinement,
		Location:         r.Location,
		LastAction:       parseTimeOr(r.LastAction, created),
		Inventory:        make([]player.InventoryEntry, 0, len(r.Inventory)),
		Loans:            make([]player.Loan, 0, len(r.Loans)),
	}
	for _, it := range r.Inventory {
		st.Inventory = append(st.Inventory, player.InventoryEntry{
			ItemID:     it.ItemID,
			Quantity:   it.Quantity,
			Equipped:   it.Equipped,
			AcquiredAt: parseTimeOr(it.AcquiredAt, created),
		})
	}
	for _, l := range r.Loans {
		if l.ID == "" {
			continue
		}
		taken := parseTimeOr(l.TakenAt, created)
		st.Loans = append(st.Loans, player.Loan{
			ID:        l.ID,
			Principal: l.Principal,
			Owed:      l.Owed,
			TakenAt:   taken,
			DueAt:     parseTimeOr(l.DueAt, taken),
		})
	}
	return player.Normalize(st), nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
	}
	return time.UnixMilli(ms).UTC(), nil
}

func parseTimeOr(s string, fallback time.Time) time.Time {
	t, err := parseTime(s)
	if err != nil {
		return fallback
	}
	return t
}
