package persistence

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/talgya/astral-district/internal/player"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "astral.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func writeSlot(t *testing.T, db *DB, slot string, version int, payload string) {
	t.Helper()
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO saves (slot, version, payload, saved_at) VALUES (?, ?, ?, ?)",
		slot, version, payload, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		t.Fatalf("write slot: %v", err)
	}
}

func sampleState() player.State {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	st := player.New("Vex", created)
	st.Money = 1234
	st.Level = 3
	st.Experience = 10
	st.ExperienceToNext = 225
	st.LastAction = created.Add(90 * time.Minute)
	st.Inventory = []player.InventoryEntry{
		{ItemID: "medkit", Quantity: 3, AcquiredAt: created.Add(time.Hour)},
		{ItemID: "switchblade", Quantity: 1, Equipped: true, AcquiredAt: created.Add(2 * time.Hour)},
	}
	st.Loans = []player.Loan{{
		ID:        "loan-1",
		Principal: 1000,
		Owed:      1100,
		TakenAt:   created.Add(time.Hour),
		DueAt:     created.Add(7 * 24 * time.Hour),
	}}
	st.Confinement = player.Confinement{Kind: player.ConfinementJail, RemainingSeconds: 120}
	return st
}

func TestLoadEmptyIsAbsent(t *testing.T) {
	db := openTestDB(t)
	if _, ok := db.Load(context.Background()); ok {
		t.Fatalf("expected no save in a fresh database")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	noLocation := sampleState()
	noLocation.Location = ""
	outOfRange := sampleState()
	outOfRange.Energy = 400
	outOfRange.HeartRate = 20
	outOfRange.Inventory = append(outOfRange.Inventory, player.InventoryEntry{ItemID: "lockpick", Quantity: 0})

	cases := map[string]player.State{
		"sample":       sampleState(),
		"fresh":        player.New("Nova", time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)),
		"no location":  noLocation,
		"out of range": outOfRange,
	}
	for name, st := range cases {
		t.Run(name, func(t *testing.T) {
			db := openTestDB(t)
			ctx := context.Background()
			if err := db.Save(ctx, st); err != nil {
				t.Fatalf("save: %v", err)
			}
			got, ok := db.Load(ctx)
			if !ok {
				t.Fatalf("expected save to load")
			}
			want := player.Normalize(st)
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("round trip mismatch\ngot:  %+v\nwant: %+v", got, want)
			}
		})
	}
}

func TestLoadNormalizesOutOfRangeValues(t *testing.T) {
	db := openTestDB(t)
	writeSlot(t, db, PrimarySlot, 1, `{
		"version": 1,
		"id": "p-1",
		"name": "Edge",
		"created_at": "2025-01-01T00:00:00Z",
		"health": 500, "max_health": 100,
		"energy": -4, "max_energy": 250,
		"heart_rate": 10, "max_heart_rate": 400,
		"heat": 30, "max_heat": 100,
		"money": -50, "level": 0,
		"experience": 0, "experience_to_next": 0,
		"stats": {"strength": 0, "defense": 2, "speed": 2, "dexterity": 2},
		"inventory": [{"item_id": "medkit", "quantity": 0}],
		"confinement": {"kind": "space-prison", "remaining_seconds": 30}
	}`)

	st, ok := db.Load(context.Background())
	if !ok {
		t.Fatalf("expected save to load")
	}
	if st.Health != 100 || st.Energy != 0 || st.MaxEnergy != 100 {
		t.Fatalf("expected clamped health/energy got %d %d/%d", st.Health, st.Energy, st.MaxEnergy)
	}
	if st.HeartRate != 50 || st.MaxHeartRate != 180 {
		t.Fatalf("expected heart rate 50/180 got %d/%d", st.HeartRate, st.MaxHeartRate)
	}
	if st.Money != 0 || st.Level != 1 || st.ExperienceToNext != 1 || st.Stats.Strength != 1 {
		t.Fatalf("expected floors applied got %+v", st)
	}
	if len(st.Inventory) != 0 {
		t.Fatalf("expected zero-quantity entry dropped got %+v", st.Inventory)
	}
	if !st.Confinement.Free() {
		t.Fatalf("expected unknown confinement coerced to free got %+v", st.Confinement)
	}
	if st.Location != "downtown" {
		t.Fatalf("expected default location got %q", st.Location)
	}
	if !st.LastAction.Equal(st.CreatedAt) {
		t.Fatalf("expected missing last_action to default to created_at")
	}
}

func TestMalformedSavesAreAbsent(t *testing.T) {
	cases := map[string]string{
		"not json":       `{"version": 1, "id":`,
		"future version": `{"version": 9, "id": "p", "created_at": "2025-01-01T00:00:00Z"}`,
		"missing id":     `{"version": 1, "created_at": "2025-01-01T00:00:00Z"}`,
		"bad created_at": `{"version": 1, "id": "p", "created_at": "yesterday"}`,
		"unversioned":    `{"id": "p", "created_at": "2025-01-01T00:00:00Z"}`,
		"wrong shape":    `[1, 2, 3]`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			db := openTestDB(t)
			writeSlot(t, db, PrimarySlot, 1, payload)
			if _, ok := db.Load(context.Background()); ok {
				t.Fatalf("expected malformed save to be treated as absent")
			}
		})
	}
}

func TestLegacySlotFallback(t *testing.T) {
	db := openTestDB(t)
	writeSlot(t, db, LegacySlot, 0, `{
		"id": "old-1",
		"name": "Relic",
		"created_at": "1735689600000",
		"health": 80, "max_health": 100,
		"energy": 40, "max_energy": 100,
		"heart_rate": 70, "max_heart_rate": 180,
		"max_heat": 100, "level": 2, "experience_to_next": 150,
		"stats": {"strength": 6, "defense": 6, "speed": 6, "dexterity": 6},
		"inventory": [{"item_id": "lockpick", "quantity": 2, "acquired_at": "1735693200000"}],
		"confinement": {"kind": "none"}
	}`)

	st, ok := db.Load(context.Background())
	if !ok {
		t.Fatalf("expected legacy save to load")
	}
	wantCreated := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if st.ID != "old-1" || !st.CreatedAt.Equal(wantCreated) {
		t.Fatalf("expected legacy id and created_at got %s %v", st.ID, st.CreatedAt)
	}
	if !st.Inventory[0].AcquiredAt.Equal(wantCreated.Add(time.Hour)) {
		t.Fatalf("expected millisecond timestamp revived got %v", st.Inventory[0].AcquiredAt)
	}

	// A primary save takes precedence once written.
	st.Name = "Relic II"
	if err := db.Save(context.Background(), st); err != nil {
		t.Fatalf("save: %v", err)
	}
	again, _ := db.Load(context.Background())
	if again.Name != "Relic II" {
		t.Fatalf("expected primary slot to win got %q", again.Name)
	}
}

func TestClearRemovesAllSlotsAndMeta(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Save(ctx, sampleState()); err != nil {
		t.Fatalf("save: %v", err)
	}
	writeSlot(t, db, LegacySlot, 0, `{"id": "x", "created_at": "2025-01-01T00:00:00Z"}`)
	if err := db.SaveMeta(ctx, "fast_ticks", "true"); err != nil {
		t.Fatalf("save meta: %v", err)
	}

	if err := db.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok := db.Load(ctx); ok {
		t.Fatalf("expected no save after clear")
	}
	if _, ok, err := db.GetMeta(ctx, "fast_ticks"); err != nil || ok {
		t.Fatalf("expected meta cleared got ok=%v err=%v", ok, err)
	}
}

func TestMetaRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, ok, err := db.GetMeta(ctx, "fast_ticks"); err != nil || ok {
		t.Fatalf("expected unset key got ok=%v err=%v", ok, err)
	}
	if err := db.SaveMeta(ctx, "fast_ticks", "true"); err != nil {
		t.Fatalf("save meta: %v", err)
	}
	if err := db.SaveMeta(ctx, "fast_ticks", "false"); err != nil {
		t.Fatalf("save meta: %v", err)
	}
	v, ok, err := db.GetMeta(ctx, "fast_ticks")
	if err != nil || !ok || v != "false" {
		t.Fatalf("expected false got %q ok=%v err=%v", v, ok, err)
	}
}
