package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/talgya/astral-district/internal/entropy"
)

func TestDefaultCatalogLoads(t *testing.T) {
	c := Default()
	if _, ok := c.Item("medkit"); !ok {
		t.Fatalf("expected medkit in default catalog")
	}
	cr, ok := c.Crime("pickpocket")
	if !ok {
		t.Fatalf("expected pickpocket in default catalog")
	}
	if cr.EnergyCost <= 0 {
		t.Fatalf("expected positive energy cost got %d", cr.EnergyCost)
	}
	if _, ok := c.Item("nope"); ok {
		t.Fatalf("expected missing item lookup to fail")
	}
}

func TestParseRejectsInvalidTables(t *testing.T) {
	cases := map[string]string{
		"duplicate item": `
items:
  - {id: a, type: misc}
  - {id: a, type: misc}
`,
		"slotless weapon": `
items:
  - {id: a, type: weapon}
`,
		"unknown drop": `
crimes:
  - id: c
    energy_cost: 5
    success_rate: 0.5
    drops:
      - {item: ghost, chance: 0.5}
`,
		"rate out of range": `
crimes:
  - {id: c, energy_cost: 5, success_rate: 1.5}
`,
		"zero energy": `
crimes:
  - {id: c, energy_cost: 0, success_rate: 0.5}
`,
		"bad yaml": "items: [",
	}
	for name, doc := range cases {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	doc := "items:\n  - {id: gem, type: misc, tradeable: true, market_value: 10}\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if it, ok := c.Item("gem"); !ok || it.MarketValue != 10 {
		t.Fatalf("expected gem with value 10 got %+v", it)
	}

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil || !strings.Contains(err.Error(), "read catalog") {
		t.Fatalf("expected read error got %v", err)
	}
}

func TestRollSuccessAndCritical(t *testing.T) {
	cr := Crime{
		SuccessRate:  0.5,
		CriticalRate: 0.5,
		Money:        Range{Min: 10, Max: 19},
		Experience:   Range{Min: 4, Max: 4},
		Drops:        []Drop{{ItemID: "lockpick", Chance: 0.5}},
	}

	// success roll, money pick 0.0 -> 10, exp fixed, critical miss, drop hit
	out := Roll(cr, entropy.NewSequence(0.1, 0.0, 0.9, 0.1))
	if out.Kind != OutcomeSuccess || out.Money != 10 || out.Experience != 4 {
		t.Fatalf("unexpected success outcome %+v", out)
	}
	if len(out.Drops) != 1 || out.Drops[0] != "lockpick" {
		t.Fatalf("expected lockpick drop got %v", out.Drops)
	}

	// success roll, money pick 0.99 -> 19, critical hit doubles, drop miss
	out = Roll(cr, entropy.NewSequence(0.1, 0.99, 0.1, 0.9))
	if out.Kind != OutcomeCritical || out.Money != 38 || out.Experience != 8 {
		t.Fatalf("unexpected critical outcome %+v", out)
	}
	if len(out.Drops) != 0 {
		t.Fatalf("expected no drops got %v", out.Drops)
	}
}

func TestRollFailureWithInjury(t *testing.T) {
	cr := Crime{
		SuccessRate:  0.5,
		InjuryChance: 0.5,
		InjuryDamage: Range{Min: 5, Max: 5},
		Money:        Range{Min: 100, Max: 100},
	}
	out := Roll(cr, entropy.NewSequence(0.7, 0.2))
	if out.Succeeded() {
		t.Fatalf("expected failure got %+v", out)
	}
	if out.Money != 0 || out.Damage != 5 {
		t.Fatalf("expected no money and 5 damage got %+v", out)
	}

	out = Roll(cr, entropy.NewSequence(0.7, 0.9))
	if out.Damage != 0 {
		t.Fatalf("expected no injury got %+v", out)
	}
}

func TestDeltasDependOnOutcome(t *testing.T) {
	cr := Crime{HeatOnSuccess: 3, HeatOnFailure: 6, HeartRateOnSuccess: 5, HeartRateOnFailure: 10}
	win := Outcome{Kind: OutcomeCritical}
	lose := Outcome{Kind: OutcomeFailure}
	if cr.HeatDelta(win) != 3 || cr.HeatDelta(lose) != 6 {
		t.Fatalf("unexpected heat deltas")
	}
	if cr.HeartRateDelta(win) != 5 || cr.HeartRateDelta(lose) != 10 {
		t.Fatalf("unexpected heart rate deltas")
	}
}

func TestSellPrice(t *testing.T) {
	if got := SellPrice(Item{MarketValue: 1000}); got != 700 {
		t.Fatalf("expected 700 got %d", got)
	}
	if got := SellPrice(Item{MarketValue: 25}); got != 17 {
		t.Fatalf("expected floor(17.5)=17 got %d", got)
	}
}
