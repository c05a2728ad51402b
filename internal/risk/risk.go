// Package risk provides the pure decision functions behind injury, arrest
// and escape. They take numbers and a randomness source and return a
// decision; applying the consequence is the caller's job.
package risk

import (
	"math"

	"github.com/talgya/astral-district/internal/balance"
	"github.com/talgya/astral-district/internal/entropy"
)

// InjuryDecision is the outcome of an exertion injury check.
type InjuryDecision struct {
	Injured bool `json:"injured"`
	Damage  int  `json:"damage"`
}

// ArrestDecision is the outcome of a police check.
type ArrestDecision struct {
	Arrested    bool `json:"arrested"`
	JailMinutes int  `json:"jail_minutes"`
}

// DangerThreshold is the heart rate above which injury becomes possible.
func DangerThreshold(maxHeartRate int) float64 {
	return balance.DangerZoneRatio * float64(maxHeartRate)
}

// InDangerZone reports whether heartRate is above the danger threshold.
func InDangerZone(heartRate, maxHeartRate int) bool {
	return float64(heartRate) > DangerThreshold(maxHeartRate)
}

// InjuryChance returns the probability of injury at heartRate.
// Zero at or below the threshold, then rising linearly from 0.2 to 0.8.
func InjuryChance(heartRate, maxHeartRate int) float64 {
	excess := overshoot(heartRate, maxHeartRate)
	if excess <= 0 {
		return 0
	}
	return 0.2 + 0.6*excess
}

// InjuryDamage returns the damage dealt when an injury lands, scaled to
// maxHealth so it stays meaningful at every level.
func InjuryDamage(heartRate, maxHealth, maxHeartRate int) int {
	excess := overshoot(heartRate, maxHeartRate)
	if excess <= 0 {
		return 0
	}
	return int(math.Ceil(float64(maxHealth) * (0.05 + 0.15*excess)))
}

// Injury rolls an exertion injury.
func Injury(heartRate, maxHealth, maxHeartRate int, src entropy.Source) InjuryDecision {
	chance := InjuryChance(heartRate, maxHeartRate)
	if chance <= 0 {
		return InjuryDecision{}
	}
	if src.Float() >= chance {
		return InjuryDecision{}
	}
	return InjuryDecision{Injured: true, Damage: InjuryDamage(heartRate, maxHealth, maxHeartRate)}
}

// overshoot normalizes how far heartRate sits above the danger threshold,
// in (0, 1] inside the zone and 0 outside it.
func overshoot(heartRate, maxHeartRate int) float64 {
	threshold := DangerThreshold(maxHeartRate)
	if float64(heartRate) <= threshold {
		return 0
	}
	span := float64(maxHeartRate) - threshold
	if span <= 0 {
		return 1
	}
	return math.Min(1, (float64(heartRate)-threshold)/span)
}

// ArrestChance returns the probability of arrest at heat.
func ArrestChance(heat int) float64 {
	if heat <= balance.ArrestHeatThreshold {
		return 0
	}
	return math.Min(0.9, 0.15+0.03*float64(heat-balance.ArrestHeatThreshold))
}

// Sentence returns the jail time for an arrest at heat.
func Sentence(heat int) int {
	if heat <= balance.ArrestHeatThreshold {
		return 0
	}
	return 5 + (heat-balance.ArrestHeatThreshold)/2
}

// Arrest rolls a police check.
func Arrest(heat int, src entropy.Source) ArrestDecision {
	chance := ArrestChance(heat)
	if chance <= 0 {
		return ArrestDecision{}
	}
	if src.Float() >= chance {
		return ArrestDecision{}
	}
	return ArrestDecision{Arrested: true, JailMinutes: Sentence(heat)}
}

// Escape is a single weighted coin flip with P(true) = chancePercent/100.
func Escape(chancePercent int, src entropy.Source) bool {
	if chancePercent <= 0 {
		return false
	}
	if chancePercent >= 100 {
		return true
	}
	return src.Float()*100 < float64(chancePercent)
}
