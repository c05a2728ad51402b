package game

import (
	"fmt"

	"github.com/talgya/astral-district/internal/balance"
	"github.com/talgya/astral-district/internal/player"
	"github.com/talgya/astral-district/internal/risk"
)

// SendToJail locks the player up for minutes. Heat resets to zero and any
// hospital stay ends.
func (s *Service) SendToJail(minutes int) bool {
	return s.mutate("jail", func(st *player.State) (bool, string) {
		if minutes <= 0 {
			return false, ""
		}
		jail(st, minutes)
		return true, fmt.Sprintf("%s was jailed for %d minutes", st.Name, minutes)
	})
}

// SendToHospital admits the player for minutes. Heart rate resets to
// resting and any jail sentence ends.
func (s *Service) SendToHospital(minutes int) bool {
	return s.mutate("hospital", func(st *player.State) (bool, string) {
		if minutes <= 0 {
			return false, ""
		}
		hospitalize(st, minutes)
		return true, fmt.Sprintf("%s was hospitalized for %d minutes", st.Name, minutes)
	})
}

// AttemptJailEscape rolls a breakout. The exertion costs heart rate and
// heat whether or not it works; a failed attempt lengthens the sentence.
func (s *Service) AttemptJailEscape() bool {
	escaped := false
	s.mutate("jail", func(st *player.State) (bool, string) {
		if st.Confinement.Kind != player.ConfinementJail || st.HeartRate < balance.MinEscapeHeartRate {
			return false, ""
		}
		escaped = risk.Escape(balance.EscapeChancePercent, s.src)
		st.HeartRate = min(st.HeartRate+balance.EscapeHeartRateCost, st.MaxHeartRate)
		st.Heat = min(st.Heat+balance.EscapeHeatCost, st.MaxHeat)
		if escaped {
			st.Confinement = player.Confinement{Kind: player.ConfinementNone}
			return true, fmt.Sprintf("%s broke out of jail", st.Name)
		}
		st.Confinement.RemainingSeconds += balance.EscapeFailureSeconds
		return true, fmt.Sprintf("%s was caught escaping", st.Name)
	})
	return escaped
}

// PayBail buys the player out of jail and cools their heat a little.
// amount must cover the current quote.
func (s *Service) PayBail(amount int) bool {
	return s.mutate("jail", func(st *player.State) (bool, string) {
		if st.Confinement.Kind != player.ConfinementJail || amount <= 0 || amount < bailQuote(st) || st.Money < amount {
			return false, ""
		}
		st.Money -= amount
		st.Heat = max(st.Heat-balance.BailHeatRelief, 0)
		st.Confinement = player.Confinement{Kind: player.ConfinementNone}
		return true, fmt.Sprintf("%s posted bail of %s", st.Name, money(amount))
	})
}

// BailQuote prices bail for the remaining sentence; zero when not jailed.
func (s *Service) BailQuote() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st == nil || s.st.Confinement.Kind != player.ConfinementJail {
		return 0
	}
	return bailQuote(s.st)
}

func bailQuote(st *player.State) int {
	minutes := (st.Confinement.RemainingSeconds + 59) / 60
	return minutes * balance.BailPerMinutePerLevel * st.Level
}

// ApplyMedInHospital shortens a hospital stay by seconds, never below
// zero. Discharge happens on the next countdown tick.
func (s *Service) ApplyMedInHospital(seconds int) bool {
	return s.mutate("hospital", func(st *player.State) (bool, string) {
		if st.Confinement.Kind != player.ConfinementHospital || seconds <= 0 {
			return false, ""
		}
		st.Confinement.RemainingSeconds = max(st.Confinement.RemainingSeconds-seconds, 0)
		return true, ""
	})
}

func jail(st *player.State, minutes int) {
	st.Heat = 0
	st.Confinement = player.Confinement{Kind: player.ConfinementJail, RemainingSeconds: minutes * 60}
}

func hospitalize(st *player.State, minutes int) {
	st.HeartRate = balance.HeartRateFloor
	st.Confinement = player.Confinement{Kind: player.ConfinementHospital, RemainingSeconds: minutes * 60}
}

// critical reports whether health is low enough to need a hospital.
func critical(st *player.State) bool {
	return st.Health <= 0 || float64(st.Health) < balance.CriticalHealthRatio*float64(st.MaxHealth)
}
