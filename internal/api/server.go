// Package api provides the local HTTP and WebSocket transport between the
// presentation layer and the player state engine. Handlers only forward
// intent to game.Service and report results; no game rule lives here.
// GET endpoints are read-only. Developer endpoints need Dev mode and the
// admin bearer token.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/astral-district/internal/catalog"
	"github.com/talgya/astral-district/internal/district"
	"github.com/talgya/astral-district/internal/game"
	"github.com/talgya/astral-district/internal/player"
)

const maxStreamConns = 4

// Server serves the player state over HTTP.
type Server struct {
	Game     *game.Service
	Catalog  *catalog.Catalog
	District *district.Map
	Port     int
	AdminKey string // Bearer token for developer endpoints. Empty = disabled.
	Dev      bool   // Developer endpoints are only mounted in dev mode.

	// ActionLimit throttles crime attempts per client. Nil = unlimited.
	ActionLimit *RateLimiter

	streamConns int32
}

// Handler builds the routing table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/player", s.handlePlayer)
	mux.HandleFunc("/api/v1/catalog", s.handleCatalog)
	mux.HandleFunc("/api/v1/district", s.handleDistrict)
	mux.HandleFunc("/api/v1/events", s.handleEvents)
	mux.HandleFunc("/api/v1/stream", s.handleStream)

	crime := postOnly(s.handleCrime)
	if s.ActionLimit != nil {
		crime = RateLimitMiddleware(s.ActionLimit, crime)
	}
	mux.HandleFunc("/api/v1/crime", crime)
	mux.HandleFunc("/api/v1/travel", postOnly(s.handleTravel))
	mux.HandleFunc("/api/v1/inventory/", postOnly(s.handleInventory))
	mux.HandleFunc("/api/v1/jail/escape", postOnly(s.handleEscape))
	mux.HandleFunc("/api/v1/jail/bail", s.handleBail)
	mux.HandleFunc("/api/v1/hospital/med", postOnly(s.handleMed))
	mux.HandleFunc("/api/v1/bank/loan", postOnly(s.handleLoan))
	mux.HandleFunc("/api/v1/bank/repay", postOnly(s.handleRepay))

	if s.Dev {
		mux.HandleFunc("/api/v1/dev/fast-ticks", s.adminOnly(s.handleFastTicks))
		mux.HandleFunc("/api/v1/dev/reset", s.adminOnly(postOnly(s.handleReset)))
		mux.HandleFunc("/api/v1/dev/scale", s.adminOnly(postOnly(s.handleScale)))
		mux.HandleFunc("/api/v1/dev/run-task", s.adminOnly(postOnly(s.handleRunTask)))
		mux.HandleFunc("/api/v1/dev/grant", s.adminOnly(postOnly(s.handleGrant)))
		mux.HandleFunc("/api/v1/dev/confine", s.adminOnly(postOnly(s.handleConfine)))
	}

	return corsMiddleware(mux)
}

// Start begins serving in a goroutine. The returned server can be shut
// down by the caller.
func (s *Server) Start() *http.Server {
	addr := fmt.Sprintf(":%d", s.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "dev", s.Dev, "admin_auth", s.AdminKey != "")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	return srv
}

// corsMiddleware adds CORS headers for local UI dev servers plus any
// origins listed in ASTRAL_CORS_ORIGINS.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("ASTRAL_CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request carries the admin token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly requires the bearer token on every request.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			http.Error(w, "developer endpoints disabled (no ASTRAL_ADMIN_KEY set)", http.StatusForbidden)
			return
		}
		if !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func postOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return false
	}
	return true
}

// respond writes the current state with an ok flag. Refusals are 409 so
// the UI can tell a rule refusal from a transport error.
func (s *Server) respond(w http.ResponseWriter, ok bool, extra map[string]any) {
	st, active := s.Game.Snapshot()
	if !active {
		http.Error(w, "no active player", http.StatusNotFound)
		return
	}
	body := map[string]any{"ok": ok, "player": st}
	for k, v := range extra {
		body[k] = v
	}
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(body)
		return
	}
	writeJSON(w, body)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	_, active := s.Game.Snapshot()
	status := map[string]any{
		"name":             "Astral District",
		"active":           active,
		"busy":             s.Game.Busy(),
		"fast_ticks":       s.Game.FastTicks(),
		"last_health_tick": s.Game.LastHealthTick(),
		"tasks":            s.Game.Tasks(),
		"dev":              s.Dev,
	}
	writeJSON(w, status)
}

func (s *Server) handlePlayer(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		st, ok := s.Game.Snapshot()
		if !ok {
			http.Error(w, "no active player", http.StatusNotFound)
			return
		}
		writeJSON(w, st)
	case http.MethodPost:
		var req struct {
			Name string `json:"name"`
		}
		if !decode(w, r, &req) {
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			http.Error(w, "name is required", http.StatusBadRequest)
			return
		}
		st, ok := s.Game.Create(req.Name)
		if !ok {
			http.Error(w, "a character already exists", http.StatusConflict)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(st)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"items":  s.Catalog.Items,
		"crimes": s.Catalog.Crimes,
	})
}

func (s *Server) handleDistrict(w http.ResponseWriter, r *http.Request) {
	type place struct {
		district.Location
		HeatMultiplier float64 `json:"heat_multiplier"`
	}
	var places []place
	for _, loc := range s.District.Locations() {
		places = append(places, place{Location: loc, HeatMultiplier: s.District.HeatMultiplier(loc.ID)})
	}
	writeJSON(w, places)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	events := s.Game.RecentEvents(limit)

	if category := r.URL.Query().Get("category"); category != "" {
		var filtered []game.Event
		for _, e := range events {
			if e.Category == category {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}
	if events == nil {
		events = []game.Event{}
	}
	writeJSON(w, events)
}

func (s *Server) handleCrime(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Crime string `json:"crime"`
	}
	if !decode(w, r, &req) {
		return
	}
	rep, err := s.Game.CommitCrime(r.Context(), req.Crime)
	switch {
	case errors.Is(err, game.ErrNoPlayer):
		http.Error(w, "no active player", http.StatusNotFound)
		return
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		slog.Info("crime abandoned by client", "crime", req.Crime)
		return
	case err != nil:
		slog.Error("crime failed", "crime", req.Crime, "error", err)
		http.Error(w, "crime failed", http.StatusInternalServerError)
		return
	}
	s.respond(w, rep.Refused == "", map[string]any{"report": rep})
}

func (s *Server) handleTravel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Location string `json:"location"`
	}
	if !decode(w, r, &req) {
		return
	}
	s.respond(w, s.Game.Travel(req.Location), nil)
}

// handleInventory serves /api/v1/inventory/{use,equip,unequip,sell}.
func (s *Server) handleInventory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Item string `json:"item"`
	}
	if !decode(w, r, &req) {
		return
	}
	switch strings.TrimPrefix(r.URL.Path, "/api/v1/inventory/") {
	case "use":
		s.respond(w, s.Game.UseItem(req.Item), nil)
	case "equip":
		s.respond(w, s.Game.EquipItem(req.Item), nil)
	case "unequip":
		s.respond(w, s.Game.UnequipItem(req.Item), nil)
	case "sell":
		price, ok := s.Game.SellItem(req.Item)
		s.respond(w, ok, map[string]any{"price": price})
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleEscape(w http.ResponseWriter, r *http.Request) {
	st, ok := s.Game.Snapshot()
	if ok && st.Confinement.Kind != player.ConfinementJail {
		s.respond(w, false, map[string]any{"escaped": false})
		return
	}
	escaped := s.Game.AttemptJailEscape()
	s.respond(w, true, map[string]any{"escaped": escaped})
}

// handleBail quotes on GET and pays the quote on POST.
func (s *Server) handleBail(w http.ResponseWriter, r *http.Request) {
	quote := s.Game.BailQuote()
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, map[string]int{"quote": quote})
	case http.MethodPost:
		ok := quote > 0 && s.Game.PayBail(quote)
		s.respond(w, ok, map[string]any{"paid": quote})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleMed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Seconds int `json:"seconds"`
	}
	if !decode(w, r, &req) {
		return
	}
	s.respond(w, s.Game.ApplyMedInHospital(req.Seconds), nil)
}

func (s *Server) handleLoan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount int `json:"amount"`
	}
	if !decode(w, r, &req) {
		return
	}
	loan, ok := s.Game.TakeLoan(req.Amount)
	s.respond(w, ok, map[string]any{"loan": loan})
}

func (s *Server) handleRepay(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if !decode(w, r, &req) {
		return
	}
	s.respond(w, s.Game.RepayLoan(req.ID), nil)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
