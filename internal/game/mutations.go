package game

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/dustin/go-humanize"

	"github.com/talgya/astral-district/internal/balance"
	"github.com/talgya/astral-district/internal/player"
)

// mutate runs fn against the active player under the lock. fn returns
// whether it changed the state and an optional journal line; changes are
// normalized, stamped, persisted and published.
func (s *Service) mutate(op string, fn func(st *player.State) (bool, string)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.activeLocked(op) {
		return false
	}
	ok, desc := fn(s.st)
	if ok {
		s.commitLocked(true, op, desc)
	}
	return ok
}

// ConsumeEnergy spends energy. It fails without change when short.
func (s *Service) ConsumeEnergy(n int) bool {
	return s.mutate("energy", func(st *player.State) (bool, string) {
		if n < 0 || st.Energy < n {
			return false, ""
		}
		st.Energy -= n
		return true, ""
	})
}

// RestoreHealth heals up to MaxHealth.
func (s *Service) RestoreHealth(n int) {
	s.mutate("health", func(st *player.State) (bool, string) {
		if n <= 0 {
			return false, ""
		}
		st.Health = min(st.Health+n, st.MaxHealth)
		return true, ""
	})
}

// RestoreEnergy refills up to MaxEnergy.
func (s *Service) RestoreEnergy(n int) {
	s.mutate("energy", func(st *player.State) (bool, string) {
		if n <= 0 {
			return false, ""
		}
		st.Energy = min(st.Energy+n, st.MaxEnergy)
		return true, ""
	})
}

// IncreaseHeartRate raises the pulse up to MaxHeartRate.
func (s *Service) IncreaseHeartRate(n int) {
	s.mutate("heart_rate", func(st *player.State) (bool, string) {
		if n <= 0 {
			return false, ""
		}
		st.HeartRate = min(st.HeartRate+n, st.MaxHeartRate)
		return true, ""
	})
}

// IncreaseHeat raises police attention up to MaxHeat.
func (s *Service) IncreaseHeat(n int) {
	s.mutate("heat", func(st *player.State) (bool, string) {
		if n <= 0 {
			return false, ""
		}
		st.Heat = min(st.Heat+n, st.MaxHeat)
		return true, ""
	})
}

// AddMoney credits the player.
func (s *Service) AddMoney(n int) {
	s.mutate("money", func(st *player.State) (bool, string) {
		if n <= 0 {
			return false, ""
		}
		st.Money += n
		return true, ""
	})
}

// SpendMoney debits the player. It fails without change when short.
func (s *Service) SpendMoney(n int) bool {
	return s.mutate("money", func(st *player.State) (bool, string) {
		if n < 0 || st.Money < n {
			return false, ""
		}
		st.Money -= n
		return true, ""
	})
}

// AddExperience awards experience, levelling up as many times as the
// award covers.
func (s *Service) AddExperience(n int) {
	s.mutate("level", func(st *player.State) (bool, string) {
		if n <= 0 {
			return false, ""
		}
		gained := addExperience(st, n)
		if gained == 0 {
			return true, ""
		}
		return true, fmt.Sprintf("%s reached level %d", st.Name, st.Level)
	})
}

// addExperience applies an award and returns the number of levels gained.
func addExperience(st *player.State, n int) int {
	st.Experience += n
	levels := 0
	for st.Experience >= st.ExperienceToNext {
		st.Experience -= st.ExperienceToNext
		st.Level++
		st.ExperienceToNext = balance.NextThreshold(st.ExperienceToNext)
		st.MaxHealth += balance.HealthPerLevel
		st.Health = min(st.Health+balance.HealthPerLevel, st.MaxHealth)
		st.Stats.Strength += balance.StatPerLevel
		st.Stats.Defense += balance.StatPerLevel
		st.Stats.Speed += balance.StatPerLevel
		st.Stats.Dexterity += balance.StatPerLevel
		levels++
	}
	return levels
}

// ScaleAllStats multiplies every numeric resource (vitals and their
// maxima, heart rate, heat, money and combat stats) by multiplier, floored
// and clamped to caps. Developer tool.
func (s *Service) ScaleAllStats(multiplier float64) bool {
	return s.mutate("dev", func(st *player.State) (bool, string) {
		if multiplier <= 0 || math.IsInf(multiplier, 0) || math.IsNaN(multiplier) {
			return false, ""
		}
		scale := func(v int) int {
			f := math.Floor(float64(v) * multiplier)
			if f > math.MaxInt32 {
				return math.MaxInt32
			}
			return int(f)
		}
		st.MaxHealth = scale(st.MaxHealth)
		st.Health = scale(st.Health)
		st.MaxEnergy = min(scale(st.MaxEnergy), balance.EnergyCap)
		st.Energy = scale(st.Energy)
		st.MaxHeartRate = scale(st.MaxHeartRate)
		st.HeartRate = scale(st.HeartRate)
		st.MaxHeat = scale(st.MaxHeat)
		st.Heat = scale(st.Heat)
		st.Money = scale(st.Money)
		st.Stats.Strength = scale(st.Stats.Strength)
		st.Stats.Defense = scale(st.Stats.Defense)
		st.Stats.Speed = scale(st.Stats.Speed)
		st.Stats.Dexterity = scale(st.Stats.Dexterity)
		return true, fmt.Sprintf("stats scaled x%g", multiplier)
	})
}

// ResetToBeginner deletes the character: in-memory state, every task and
// all persisted saves.
func (s *Service) ResetToBeginner() {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := ""
	if s.st != nil {
		name = s.st.Name
	}
	s.st = nil
	s.session++
	s.busy = false
	s.syncTasksLocked()
	if s.store != nil {
		if err := s.store.Clear(context.Background()); err != nil {
			slog.Error("clear saves failed", "error", err)
		}
	}
	ev := s.recordLocked("reset", "character deleted")
	s.publishLocked(ev)
	slog.Info("player reset", "player", name)
}

// Travel moves the player to a known district location.
func (s *Service) Travel(location string) bool {
	return s.mutate("travel", func(st *player.State) (bool, string) {
		if !st.Confinement.Free() || st.Location == location {
			return false, ""
		}
		loc, ok := s.dist.Location(location)
		if !ok {
			return false, ""
		}
		st.Location = loc.ID
		return true, fmt.Sprintf("%s travelled to %s", st.Name, loc.Name)
	})
}

func money(n int) string {
	return "$" + humanize.Comma(int64(n))
}
