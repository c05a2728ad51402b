package player

import (
	"golang.org/x/exp/constraints"

	"github.com/talgya/astral-district/internal/balance"
)

// Normalize re-applies every invariant and returns the result.
// Maxima are clamped first so the current values clamp against final caps,
// which makes Normalize idempotent.
func Normalize(s State) State {
	s = s.Clone()

	s.MaxHealth = atLeast(s.MaxHealth, 1)
	s.Health = clamp(s.Health, 0, s.MaxHealth)

	s.MaxEnergy = clamp(s.MaxEnergy, 0, balance.EnergyCap)
	s.Energy = clamp(s.Energy, 0, s.MaxEnergy)

	s.MaxHeartRate = clamp(s.MaxHeartRate, balance.HeartRateFloor, balance.HeartRateCap)
	s.HeartRate = clamp(s.HeartRate, balance.HeartRateFloor, s.MaxHeartRate)

	s.MaxHeat = atLeast(s.MaxHeat, 0)
	s.Heat = clamp(s.Heat, 0, s.MaxHeat)

	s.Money = atLeast(s.Money, 0)
	s.Level = atLeast(s.Level, 1)
	s.Experience = atLeast(s.Experience, 0)
	s.ExperienceToNext = atLeast(s.ExperienceToNext, 1)

	s.Stats.Strength = atLeast(s.Stats.Strength, 1)
	s.Stats.Defense = atLeast(s.Stats.Defense, 1)
	s.Stats.Speed = atLeast(s.Stats.Speed, 1)
	s.Stats.Dexterity = atLeast(s.Stats.Dexterity, 1)

	inv := s.Inventory[:0]
	for _, e := range s.Inventory {
		if e.ItemID == "" || e.Quantity <= 0 {
			continue
		}
		inv = append(inv, e)
	}
	s.Inventory = inv

	switch s.Confinement.Kind {
	case ConfinementJail, ConfinementHospital:
		s.Confinement.RemainingSeconds = atLeast(s.Confinement.RemainingSeconds, 0)
	default:
		s.Confinement = Confinement{Kind: ConfinementNone}
	}

	if s.Location == "" {
		s.Location = balance.StartLocation
	}

	for i := range s.Loans {
		s.Loans[i].Principal = atLeast(s.Loans[i].Principal, 0)
		s.Loans[i].Owed = atLeast(s.Loans[i].Owed, 0)
	}

	return s
}

func clamp[T constraints.Integer](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func atLeast[T constraints.Integer](v, lo T) T {
	if v < lo {
		return lo
	}
	return v
}
