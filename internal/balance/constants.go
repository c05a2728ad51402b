// Package balance holds the tuning constants of the player state engine.
// Every regen rate, cap, threshold and cost lives here so the rules read
// the same numbers the tests assert against.
package balance

import "time"

// Hard caps on resource maxima.
const (
	// EnergyCap is the ceiling for MaxEnergy regardless of upgrades.
	EnergyCap = 100

	// HeartRateCap is the ceiling for MaxHeartRate.
	HeartRateCap = 180

	// HeartRateFloor is the resting heart rate. Nothing pushes it lower.
	HeartRateFloor = 50
)

// Level-1 character defaults.
const (
	StartHealth           = 100
	StartEnergy           = 100
	StartHeartRate        = 60
	StartMaxHeartRate     = HeartRateCap
	StartMaxHeat          = 100
	StartMoney            = 500
	StartExperienceToNext = 100
	StartStat             = 5
	StartLocation         = "downtown"
)

// Progression.
const (
	// HealthPerLevel is added to MaxHealth (and healed) on every level-up.
	HealthPerLevel = 25

	// StatPerLevel is added to every combat stat on level-up.
	StatPerLevel = 1
)

// NextThreshold returns the experience needed for the level after one
// that needed cur: floor(cur * 1.5), and always at least cur+1 so the
// threshold keeps growing from 1.
func NextThreshold(cur int) int {
	return max(cur*3/2, cur+1)
}

// Clock scheduler cadence and per-tick effects.
const (
	EnergyRegenInterval   = 10 * time.Minute
	HealthRegenInterval   = time.Minute
	VitalsDecayInterval   = 5 * time.Minute
	CountdownInterval     = time.Second
	FastTickInterval      = 5 * time.Second
	EnergyRegenPerTick    = 5
	HealthRegenPerTick    = 1
	HospitalHealthPerTick = 5
	HeartRateDecayPerTick = 2
	HeatDecayPerTick      = 2
)

// Risk thresholds.
const (
	// DangerZoneRatio is the share of MaxHeartRate above which injury rolls happen.
	DangerZoneRatio = 0.9

	// ArrestHeatThreshold is the heat at or below which arrest never happens.
	ArrestHeatThreshold = 75

	// CriticalHealthRatio sends a player to hospital when health drops below it.
	CriticalHealthRatio = 0.15
)

// Confinement.
const (
	EscapeChancePercent   = 40
	MinEscapeHeartRate    = 30
	EscapeHeartRateCost   = 30
	EscapeHeatCost        = 10
	EscapeFailureSeconds  = 600
	BailHeatRelief        = 10
	BailPerMinutePerLevel = 25
	InjuryHospitalMinutes = 10
	CollapseHospitalExtra = 10
)

// Economy.
const (
	// Selling pays SellRatioNumerator/SellRatioDenominator of market value.
	SellRatioNumerator   = 7
	SellRatioDenominator = 10

	LoanInterestPercent = 10
	LoanTerm            = 7 * 24 * time.Hour
	LoanLimitPerLevel   = 1000
)

// Orchestrator pacing.
const (
	SuspenseDelay = 1500 * time.Millisecond
	RiskDelay     = 100 * time.Millisecond
)
