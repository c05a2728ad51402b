package game

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/talgya/astral-district/internal/district"
	"github.com/talgya/astral-district/internal/entropy"
	"github.com/talgya/astral-district/internal/player"
	"github.com/talgya/astral-district/internal/risk"
)

const testCatalog = `
items:
  - {id: loot, name: Loot, type: misc, stackable: true, tradeable: true, market_value: 10}
crimes:
  - id: heist
    name: Test Heist
    energy_cost: 10
    success_rate: 0.5
    money: {min: 100, max: 100}
    experience: {min: 10, max: 10}
    heat_on_success: 10
    heat_on_failure: 20
    heart_rate_on_success: 10
    heart_rate_on_failure: 20
    drops:
      - {item: loot, chance: 0.5}
  - id: brawl
    name: Test Brawl
    energy_cost: 5
    success_rate: 0
    injury_chance: 1
    injury_damage: {min: 95, max: 95}
    heat_on_failure: 5
    heart_rate_on_failure: 5
`

func newCrimeHarness(t *testing.T, rolls ...float64) *harness {
	t.Helper()
	h := newHarness(t, Options{
		Catalog:  mustCatalog(t, testCatalog),
		District: district.Generate(7),
		Source:   entropy.NewSequence(rolls...),
	})
	h.create(t)
	return h
}

func TestCrimeSuccessPaysOut(t *testing.T) {
	// success roll, drop roll; heart rate and heat stay below both risk
	// thresholds so no further draws happen.
	h := newCrimeHarness(t, 0.1, 0.1)

	rep, err := h.svc.CommitCrime(context.Background(), "heist")
	if err != nil {
		t.Fatalf("commit crime: %v", err)
	}
	if !rep.Outcome.Succeeded() || !rep.Rewarded || rep.Arrested || rep.Hospitalized || rep.DangerZone {
		t.Fatalf("expected a clean success got %+v", rep)
	}
	wantHeat := h.svc.dist.ScaleHeat("downtown", 10)
	if rep.HeatGained != wantHeat {
		t.Fatalf("expected patrol-scaled heat %d got %d", wantHeat, rep.HeatGained)
	}

	st := h.state(t)
	checkBounds(t, st)
	if st.Energy != 90 || st.Money != 600 || st.Experience != 10 || st.Quantity("loot") != 1 {
		t.Fatalf("expected rewards applied got energy %d money %d exp %d loot %d",
			st.Energy, st.Money, st.Experience, st.Quantity("loot"))
	}
	if st.HeartRate != 70 || st.Heat != wantHeat {
		t.Fatalf("expected 70 bpm and %d heat got %d %d", wantHeat, st.HeartRate, st.Heat)
	}
	if h.svc.Busy() {
		t.Fatalf("expected busy flag cleared")
	}
}

func TestCrimeRefusalsHaveNoSideEffects(t *testing.T) {
	h := newCrimeHarness(t, 0.1)
	ctx := context.Background()

	rep, err := h.svc.CommitCrime(ctx, "jaywalk")
	if err != nil || rep.Refused != RefusedUnknown {
		t.Fatalf("expected unknown crime refused got %+v %v", rep, err)
	}

	h.svc.ConsumeEnergy(95)
	before := h.state(t)
	rep, _ = h.svc.CommitCrime(ctx, "heist")
	if rep.Refused != RefusedEnergy {
		t.Fatalf("expected energy refusal got %+v", rep)
	}
	if after := h.state(t); after.Energy != before.Energy || after.Money != before.Money {
		t.Fatalf("expected refusal to leave state untouched")
	}

	h.svc.RestoreEnergy(100)
	h.svc.SendToHospital(1)
	rep, _ = h.svc.CommitCrime(ctx, "heist")
	if rep.Refused != RefusedConfined {
		t.Fatalf("expected confinement refusal got %+v", rep)
	}
	if st := h.state(t); st.Energy != 100 {
		t.Fatalf("expected no energy spent while confined got %d", st.Energy)
	}

	h.svc.ResetToBeginner()
	if _, err := h.svc.CommitCrime(ctx, "heist"); !errors.Is(err, ErrNoPlayer) {
		t.Fatalf("expected ErrNoPlayer got %v", err)
	}
}

func TestCrimeArrestSkipsRewards(t *testing.T) {
	// success, no drop, arrest.
	h := newCrimeHarness(t, 0.1, 0.9, 0.0)
	h.svc.IncreaseHeat(80)

	rep, err := h.svc.CommitCrime(context.Background(), "heist")
	if err != nil {
		t.Fatalf("commit crime: %v", err)
	}
	if !rep.Arrested || rep.Rewarded {
		t.Fatalf("expected arrest without rewards got %+v", rep)
	}
	if want := risk.Sentence(80 + rep.HeatGained); rep.Minutes != want {
		t.Fatalf("expected %d minute sentence got %d", want, rep.Minutes)
	}
	st := h.state(t)
	if st.Confinement.Kind != player.ConfinementJail || st.Confinement.RemainingSeconds != rep.Minutes*60 {
		t.Fatalf("expected jailed got %+v", st.Confinement)
	}
	if st.Heat != 0 || st.Money != 500 || st.Experience != 0 {
		t.Fatalf("expected heat cleared and no payout got heat %d money %d exp %d", st.Heat, st.Money, st.Experience)
	}
	if !h.running(TaskJailCountdown) {
		t.Fatalf("expected jail countdown armed")
	}
}

func TestCrimeDirectInjuryHospitalizes(t *testing.T) {
	// failure roll, injury roll.
	h := newCrimeHarness(t, 0.5, 0.5)

	rep, err := h.svc.CommitCrime(context.Background(), "brawl")
	if err != nil {
		t.Fatalf("commit crime: %v", err)
	}
	if !rep.Hospitalized || rep.Damage != 95 || rep.Minutes != 10 {
		t.Fatalf("expected 10 minute hospital stay for 95 damage got %+v", rep)
	}
	if rep.HeatGained != 0 || rep.Rewarded {
		t.Fatalf("expected orchestration to stop before heat and rewards got %+v", rep)
	}
	st := h.state(t)
	if st.Health != 5 || st.HeartRate != 50 || st.Confinement.Kind != player.ConfinementHospital {
		t.Fatalf("expected hospitalized at 5 health got %+v", st)
	}
}

func TestCrimeCollapseAddsHospitalTime(t *testing.T) {
	h := newCrimeHarness(t, 0.5, 0.5)
	h.poke(func(st *player.State) { st.Health = 50 })

	rep, _ := h.svc.CommitCrime(context.Background(), "brawl")
	if !rep.Hospitalized || rep.Minutes != 20 {
		t.Fatalf("expected 20 minute stay after collapse got %+v", rep)
	}
	if st := h.state(t); st.Health != 0 {
		t.Fatalf("expected health at 0 got %d", st.Health)
	}
}

func TestCrimeExertionInjury(t *testing.T) {
	// success, no drop, exertion injury certain at the cap.
	h := newCrimeHarness(t, 0.1, 0.9, 0.0)
	h.svc.IncreaseHeartRate(200)

	rep, err := h.svc.CommitCrime(context.Background(), "heist")
	if err != nil {
		t.Fatalf("commit crime: %v", err)
	}
	want := risk.InjuryDamage(180, 100, 180)
	if rep.Damage != want || rep.Hospitalized || !rep.Rewarded || !rep.DangerZone {
		t.Fatalf("expected %d exertion damage and a payout got %+v", want, rep)
	}
	if st := h.state(t); st.Health != 100-want {
		t.Fatalf("expected %d health got %d", 100-want, st.Health)
	}
}

func TestCrimeReadsStateAfterSuspense(t *testing.T) {
	h := newHarness(t, Options{
		Catalog:       mustCatalog(t, testCatalog),
		District:      district.Generate(7),
		Source:        entropy.NewSequence(0.1, 0.9, 0.0),
		SuspenseDelay: time.Second,
	})
	h.create(t)

	done := make(chan CrimeReport, 1)
	go func() {
		rep, _ := h.svc.CommitCrime(context.Background(), "heist")
		done <- rep
	}()
	waitFor(t, h.svc.Busy)

	rep, err := h.svc.CommitCrime(context.Background(), "heist")
	if err != nil || rep.Refused != RefusedBusy {
		t.Fatalf("expected re-entrant attempt refused got %+v %v", rep, err)
	}

	// Heat raised during the pause must count toward the arrest check.
	h.svc.IncreaseHeat(70)

	deadline := time.Now().Add(2 * time.Second)
	for {
		select {
		case rep := <-done:
			if !rep.Arrested {
				t.Fatalf("expected arrest from heat gained mid-attempt got %+v", rep)
			}
			if st := h.state(t); st.Energy != 90 {
				t.Fatalf("expected exactly one energy payment got %d", st.Energy)
			}
			return
		default:
		}
		if time.Now().After(deadline) {
			t.Fatalf("crime never finished")
		}
		h.clk.Advance(time.Second)
		time.Sleep(time.Millisecond)
	}
}

func TestCrimeCancelledDuringSuspense(t *testing.T) {
	h := newHarness(t, Options{
		Catalog:       mustCatalog(t, testCatalog),
		SuspenseDelay: time.Hour,
	})
	h.create(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rep, err := h.svc.CommitCrime(ctx, "heist")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled got %v", err)
	}
	if rep.Rewarded {
		t.Fatalf("expected no payout")
	}
	st := h.state(t)
	if st.Energy != 90 || st.Money != 500 {
		t.Fatalf("expected energy spent and nothing else got %d %d", st.Energy, st.Money)
	}
	if h.svc.Busy() {
		t.Fatalf("expected busy flag cleared after cancellation")
	}
}
