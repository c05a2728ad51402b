package catalog

import (
	"github.com/talgya/astral-district/internal/balance"
	"github.com/talgya/astral-district/internal/entropy"
)

// OutcomeKind is how a crime attempt went.
type OutcomeKind string

const (
	OutcomeSuccess  OutcomeKind = "success"
	OutcomeCritical OutcomeKind = "critical"
	OutcomeFailure  OutcomeKind = "failure"
)

// Outcome is a rolled result. Rewards are only paid if the orchestration
// survives its risk checks.
type Outcome struct {
	Kind       OutcomeKind `json:"kind"`
	Money      int         `json:"money"`
	Experience int         `json:"experience"`
	Drops      []string    `json:"drops,omitempty"`
	// Damage is direct injury caused by the attempt itself.
	Damage int `json:"damage,omitempty"`
}

// Succeeded is true for success and critical outcomes.
func (o Outcome) Succeeded() bool {
	return o.Kind == OutcomeSuccess || o.Kind == OutcomeCritical
}

// HeatDelta returns the heat the attempt generates. Failure still draws
// police attention.
func (c Crime) HeatDelta(o Outcome) int {
	if o.Succeeded() {
		return c.HeatOnSuccess
	}
	return c.HeatOnFailure
}

// HeartRateDelta returns the exertion of the attempt.
func (c Crime) HeartRateDelta(o Outcome) int {
	if o.Succeeded() {
		return c.HeartRateOnSuccess
	}
	return c.HeartRateOnFailure
}

// Roll resolves a crime attempt against its reward table.
func Roll(c Crime, src entropy.Source) Outcome {
	if src.Float() >= c.SuccessRate {
		out := Outcome{Kind: OutcomeFailure, Experience: 1}
		if c.InjuryChance > 0 && src.Float() < c.InjuryChance {
			out.Damage = pick(c.InjuryDamage, src)
		}
		return out
	}

	out := Outcome{
		Kind:       OutcomeSuccess,
		Money:      pick(c.Money, src),
		Experience: pick(c.Experience, src),
	}
	if c.CriticalRate > 0 && src.Float() < c.CriticalRate {
		out.Kind = OutcomeCritical
		out.Money *= 2
		out.Experience *= 2
	}
	for _, d := range c.Drops {
		if src.Float() < d.Chance {
			out.Drops = append(out.Drops, d.ItemID)
		}
	}
	return out
}

func pick(r Range, src entropy.Source) int {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + int(src.Float()*float64(r.Max-r.Min+1))
}

// SellPrice is what a shop pays for one unit of the item.
func SellPrice(it Item) int {
	return it.MarketValue * balance.SellRatioNumerator / balance.SellRatioDenominator
}
