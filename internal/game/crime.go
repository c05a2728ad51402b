package game

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/talgya/astral-district/internal/balance"
	"github.com/talgya/astral-district/internal/catalog"
	"github.com/talgya/astral-district/internal/player"
	"github.com/talgya/astral-district/internal/risk"
)

// Refusal explains why a crime never started.
type Refusal string

const (
	RefusedBusy     Refusal = "busy"
	RefusedConfined Refusal = "confined"
	RefusedUnknown  Refusal = "unknown_crime"
	RefusedEnergy   Refusal = "insufficient_energy"
)

// CrimeReport describes how an attempt played out. A refused attempt has
// no side effects.
type CrimeReport struct {
	CrimeID string          `json:"crime_id"`
	Refused Refusal         `json:"refused,omitempty"`
	Outcome catalog.Outcome `json:"outcome"`

	HeartRateGained int `json:"heart_rate_gained"`
	HeatGained      int `json:"heat_gained"`
	Damage          int `json:"damage"` // direct plus exertion injury
	// DangerZone is set when the risk check found the pulse above the
	// injury threshold.
	DangerZone bool `json:"danger_zone,omitempty"`

	Hospitalized bool `json:"hospitalized"`
	Arrested     bool `json:"arrested"`
	Minutes      int  `json:"minutes,omitempty"` // confinement length
	Rewarded     bool `json:"rewarded"`
	LevelsGained int  `json:"levels_gained,omitempty"`
	// Interrupted is set when the player was confined by something else
	// while the attempt was paused.
	Interrupted bool `json:"interrupted,omitempty"`
}

// CommitCrime runs one crime attempt end to end. Only one attempt may be
// in flight. The pauses release the lock, so ticks and other mutations
// interleave and every later step reads the state as it is then.
//
// An error is returned only when there is no player or ctx ends during a
// pause; energy already spent is not refunded.
func (s *Service) CommitCrime(ctx context.Context, crimeID string) (CrimeReport, error) {
	rep := CrimeReport{CrimeID: crimeID}

	crime, session, refusal, err := s.beginCrime(crimeID)
	if err != nil || refusal != "" {
		rep.Refused = refusal
		return rep, err
	}
	defer func() {
		s.mu.Lock()
		if s.session == session {
			s.busy = false
		}
		s.mu.Unlock()
	}()

	if err := s.pause(ctx, s.suspenseDelay); err != nil {
		return rep, err
	}
	done, err := s.resolveOutcome(session, crime, &rep)
	if err != nil || done {
		return rep, err
	}

	if err := s.pause(ctx, s.riskDelay); err != nil {
		return rep, err
	}
	return rep, s.resolveRisk(session, crime, &rep)
}

// beginCrime validates and pays the energy cost.
func (s *Service) beginCrime(crimeID string) (catalog.Crime, uint64, Refusal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.st == nil {
		return catalog.Crime{}, 0, "", ErrNoPlayer
	}
	if s.busy {
		return catalog.Crime{}, 0, RefusedBusy, nil
	}
	if !s.st.Confinement.Free() {
		return catalog.Crime{}, 0, RefusedConfined, nil
	}
	crime, ok := s.cat.Crime(crimeID)
	if !ok {
		return catalog.Crime{}, 0, RefusedUnknown, nil
	}
	if s.st.Energy < crime.EnergyCost {
		return catalog.Crime{}, 0, RefusedEnergy, nil
	}

	s.busy = true
	s.st.Energy -= crime.EnergyCost
	s.commitLocked(true, "", "")
	slog.Debug("crime started", "crime", crime.ID, "player", s.st.Name)
	return crime, s.session, "", nil
}

// resolveOutcome rolls the attempt, applies direct injury and the heart
// rate and heat it generates. done is true when the attempt ended early.
func (s *Service) resolveOutcome(session uint64, crime catalog.Crime, rep *CrimeReport) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.st == nil || s.session != session {
		return true, ErrNoPlayer
	}
	st := s.st
	if !st.Confinement.Free() {
		rep.Interrupted = true
		return true, nil
	}

	out := catalog.Roll(crime, s.src)
	rep.Outcome = out

	if out.Damage > 0 {
		rep.Damage += out.Damage
		st.Health = max(st.Health-out.Damage, 0)
		if critical(st) {
			s.hospitalizeAfterInjury(st, rep, crime)
			return true, nil
		}
	}

	rep.HeartRateGained = crime.HeartRateDelta(out)
	rep.HeatGained = s.dist.ScaleHeat(st.Location, crime.HeatDelta(out))
	st.HeartRate = min(st.HeartRate+rep.HeartRateGained, st.MaxHeartRate)
	st.Heat = min(st.Heat+rep.HeatGained, st.MaxHeat)
	s.commitLocked(true, "", "")
	return false, nil
}

// resolveRisk evaluates exertion injury and arrest against the current
// state, then pays out.
func (s *Service) resolveRisk(session uint64, crime catalog.Crime, rep *CrimeReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// A reset during the pause ends the attempt; a new character must not
	// inherit it.
	if s.st == nil || s.session != session {
		return ErrNoPlayer
	}
	st := s.st
	if !st.Confinement.Free() {
		rep.Interrupted = true
		return nil
	}

	rep.DangerZone = risk.InDangerZone(st.HeartRate, st.MaxHeartRate)
	if rep.DangerZone {
		slog.Debug("crime in heart-rate danger zone", "crime", crime.ID, "heart_rate", st.HeartRate)
	}
	if inj := risk.Injury(st.HeartRate, st.MaxHealth, st.MaxHeartRate, s.src); inj.Injured {
		rep.Damage += inj.Damage
		st.Health = max(st.Health-inj.Damage, 0)
		if critical(st) {
			s.hospitalizeAfterInjury(st, rep, crime)
			return nil
		}
	}

	if arr := risk.Arrest(st.Heat, s.src); arr.Arrested {
		rep.Arrested = true
		rep.Minutes = arr.JailMinutes
		jail(st, arr.JailMinutes)
		s.commitLocked(true, "jail", fmt.Sprintf("%s was arrested during %s and jailed for %d minutes",
			st.Name, crime.Name, arr.JailMinutes))
		return nil
	}

	out := rep.Outcome
	st.Money += out.Money
	rep.LevelsGained = addExperience(st, out.Experience)
	now := s.clk.Now()
	for _, id := range out.Drops {
		it, ok := s.cat.Item(id)
		if !ok {
			slog.Warn("crime drop not in catalog", "crime", crime.ID, "item", id)
			continue
		}
		addItem(st, it, 1, now)
	}
	rep.Rewarded = true

	desc := fmt.Sprintf("%s failed %s", st.Name, crime.Name)
	if out.Succeeded() {
		desc = fmt.Sprintf("%s pulled off %s for %s (%s)", st.Name, crime.Name, money(out.Money), out.Kind)
	}
	s.commitLocked(true, "crime", desc)
	return nil
}

func (s *Service) hospitalizeAfterInjury(st *player.State, rep *CrimeReport, crime catalog.Crime) {
	minutes := balance.InjuryHospitalMinutes
	if st.Health <= 0 {
		minutes += balance.CollapseHospitalExtra
	}
	rep.Hospitalized = true
	rep.Minutes = minutes
	hospitalize(st, minutes)
	s.commitLocked(true, "hospital", fmt.Sprintf("%s was hurt during %s and hospitalized for %d minutes",
		st.Name, crime.Name, minutes))
}

// pause waits d on the service clock without holding the lock.
func (s *Service) pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.clk.After(d):
		return nil
	}
}
