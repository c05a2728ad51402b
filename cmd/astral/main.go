// Command astral runs the Astral District player state engine and serves
// it over the local HTTP API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/talgya/astral-district/internal/api"
	"github.com/talgya/astral-district/internal/catalog"
	"github.com/talgya/astral-district/internal/clock"
	"github.com/talgya/astral-district/internal/config"
	"github.com/talgya/astral-district/internal/district"
	"github.com/talgya/astral-district/internal/entropy"
	"github.com/talgya/astral-district/internal/game"
	"github.com/talgya/astral-district/internal/logging"
	"github.com/talgya/astral-district/internal/persistence"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, err := logging.New(os.Stdout, cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	slog.Info("Astral District: player state engine")

	// ── Database ──────────────────────────────────────────────────────
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		slog.Error("failed to create data directory", "error", err)
		os.Exit(1)
	}
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	// ── Catalog and district ──────────────────────────────────────────
	cat := catalog.Default()
	if cfg.Catalog != "" {
		cat, err = catalog.Load(cfg.Catalog)
		if err != nil {
			slog.Error("failed to load catalog", "path", cfg.Catalog, "error", err)
			os.Exit(1)
		}
	}
	slog.Info("catalog ready", "items", len(cat.Items), "crimes", len(cat.Crimes))

	dist := district.Generate(cfg.DistrictSeed)
	for _, loc := range dist.Locations() {
		slog.Debug("location", "id", loc.ID, "patrol", fmt.Sprintf("%.2f", loc.Patrol))
	}

	// ── Engine ────────────────────────────────────────────────────────
	svc, err := game.NewService(game.Options{
		Catalog:       cat,
		Store:         db,
		District:      dist,
		Clock:         clock.RealClock{},
		Source:        entropy.FromSeed(cfg.Seed),
		FastTicks:     cfg.FastTicks,
		SuspenseDelay: cfg.SuspenseDelay,
		RiskDelay:     cfg.RiskDelay,
	})
	if err != nil {
		slog.Error("failed to start engine", "error", err)
		os.Exit(1)
	}

	if svc.Load(context.Background()) {
		st, _ := svc.Snapshot()
		slog.Info("player restored", "player", st.Name, "level", st.Level, "location", st.Location)
	} else {
		slog.Info("no saved player, waiting for character creation")
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.Dev && !cfg.DevEnabled() {
		slog.Warn("ASTRAL_DEV set without ASTRAL_ADMIN_KEY; developer endpoints will refuse every request")
	}
	apiServer := &api.Server{
		Game:        svc,
		Catalog:     cat,
		District:    dist,
		Port:        cfg.Port,
		AdminKey:    cfg.AdminKey,
		Dev:         cfg.Dev,
		ActionLimit: api.NewRateLimiter(30, time.Minute),
	}
	srv := apiServer.Start()

	fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.Port)
	fmt.Println("Engine running... (Ctrl+C to stop)")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("received signal, shutting down", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP shutdown failed", "error", err)
	}
	svc.Close()

	fmt.Println("Engine stopped. Player state saved.")
}
