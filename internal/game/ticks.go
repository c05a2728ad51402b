package game

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/talgya/astral-district/internal/balance"
	"github.com/talgya/astral-district/internal/engine"
	"github.com/talgya/astral-district/internal/player"
)

// Scheduler task names.
const (
	TaskEnergyRegen       = "energy-regen"
	TaskHealthRegen       = "health-regen"
	TaskVitalsDecay       = "vitals-decay"
	TaskJailCountdown     = "jail-countdown"
	TaskHospitalCountdown = "hospital-countdown"
)

// regenTasks run whenever a player exists.
var regenTasks = []string{TaskEnergyRegen, TaskHealthRegen, TaskVitalsDecay}

func (s *Service) registerTasks() error {
	tasks := []engine.Task{
		{Name: TaskEnergyRegen, Interval: balance.EnergyRegenInterval, FastInterval: balance.FastTickInterval, Run: s.tickEnergy},
		{Name: TaskHealthRegen, Interval: balance.HealthRegenInterval, FastInterval: balance.FastTickInterval, Run: s.tickHealth},
		{Name: TaskVitalsDecay, Interval: balance.VitalsDecayInterval, FastInterval: balance.FastTickInterval, Run: s.tickVitals},
		{Name: TaskJailCountdown, Interval: balance.CountdownInterval, Run: s.tickJail},
		{Name: TaskHospitalCountdown, Interval: balance.CountdownInterval, Run: s.tickHospital},
	}
	for _, t := range tasks {
		if err := s.sched.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// syncTasksLocked arms exactly the tasks whose governing condition holds
// and disarms the rest.
func (s *Service) syncTasksLocked() {
	if s.st == nil {
		s.sched.StopAll()
		return
	}
	for _, name := range regenTasks {
		_ = s.sched.Start(name)
	}
	s.toggleLocked(TaskJailCountdown, s.st.Confinement.Kind == player.ConfinementJail)
	s.toggleLocked(TaskHospitalCountdown, s.st.Confinement.Kind == player.ConfinementHospital)
}

func (s *Service) toggleLocked(name string, on bool) {
	if on {
		_ = s.sched.Start(name)
		return
	}
	s.sched.Stop(name)
}

func (s *Service) tickEnergy(time.Time) {
	if s.st == nil || s.st.Energy >= s.st.MaxEnergy {
		return
	}
	s.st.Energy = min(s.st.Energy+balance.EnergyRegenPerTick, s.st.MaxEnergy)
	s.commitLocked(false, "", "")
}

func (s *Service) tickHealth(now time.Time) {
	if s.st == nil {
		return
	}
	s.lastHealthTick = now
	if s.st.Health >= s.st.MaxHealth {
		return
	}
	gain := balance.HealthRegenPerTick
	if s.st.Confinement.Kind == player.ConfinementHospital {
		gain = balance.HospitalHealthPerTick
	}
	s.st.Health = min(s.st.Health+gain, s.st.MaxHealth)
	s.commitLocked(false, "", "")
}

func (s *Service) tickVitals(time.Time) {
	if s.st == nil {
		return
	}
	hr := max(s.st.HeartRate-balance.HeartRateDecayPerTick, balance.HeartRateFloor)
	heat := max(s.st.Heat-balance.HeatDecayPerTick, 0)
	if hr == s.st.HeartRate && heat == s.st.Heat {
		return
	}
	s.st.HeartRate, s.st.Heat = hr, heat
	s.commitLocked(false, "", "")
}

func (s *Service) tickJail(time.Time) {
	s.countdownLocked(player.ConfinementJail, "released from jail")
}

func (s *Service) tickHospital(time.Time) {
	s.countdownLocked(player.ConfinementHospital, "discharged from hospital")
}

// countdownLocked subtracts exactly one second and frees the player when
// the sentence runs out.
func (s *Service) countdownLocked(kind player.ConfinementKind, released string) {
	if s.st == nil || s.st.Confinement.Kind != kind {
		return
	}
	s.st.Confinement.RemainingSeconds--
	if s.st.Confinement.RemainingSeconds > 0 {
		s.commitLocked(false, "", "")
		return
	}
	s.st.Confinement = player.Confinement{Kind: player.ConfinementNone}
	s.commitLocked(false, string(kind), fmt.Sprintf("%s %s", s.st.Name, released))
}

// SetFastTicks swaps every task to the fast cadence (or back) and
// persists the choice.
func (s *Service) SetFastTicks(fast bool) {
	s.mu.Lock()
	s.sched.SetFast(fast)
	s.mu.Unlock()

	if s.store == nil {
		return
	}
	if err := s.store.SaveMeta(context.Background(), metaFastTicks, strconv.FormatBool(fast)); err != nil {
		slog.Error("persist fast tick flag failed", "error", err)
	}
}

// FastTicks reports whether the fast cadence is active.
func (s *Service) FastTicks() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sched.Fast()
}

// TaskStatus describes one scheduler task.
type TaskStatus struct {
	Name    string    `json:"name"`
	Running bool      `json:"running"`
	LastRun time.Time `json:"last_run,omitzero"`
}

// Tasks reports every scheduler task in registration order.
func (s *Service) Tasks() []TaskStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := append(append([]string(nil), regenTasks...), TaskJailCountdown, TaskHospitalCountdown)
	out := make([]TaskStatus, 0, len(names))
	for _, name := range names {
		out = append(out, TaskStatus{
			Name:    name,
			Running: s.sched.Running(name),
			LastRun: s.sched.LastRun(name),
		})
	}
	return out
}

// RunTask fires one tick of the named task synchronously.
func (s *Service) RunTask(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st == nil {
		return ErrNoPlayer
	}
	return s.sched.Fire(name)
}
