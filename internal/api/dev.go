package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/talgya/astral-district/internal/engine"
	"github.com/talgya/astral-district/internal/game"
)

func (s *Server) handleFastTicks(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var req struct {
			Enabled bool `json:"enabled"`
		}
		if !decode(w, r, &req) {
			return
		}
		s.Game.SetFastTicks(req.Enabled)
	}
	writeJSON(w, map[string]bool{"fast_ticks": s.Game.FastTicks()})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.Game.ResetToBeginner()
	slog.Info("character reset via dev API")
	writeJSON(w, map[string]string{"message": "character deleted"})
}

func (s *Server) handleScale(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Multiplier float64 `json:"multiplier"`
	}
	if !decode(w, r, &req) {
		return
	}
	s.respond(w, s.Game.ScaleAllStats(req.Multiplier), nil)
}

func (s *Server) handleRunTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Task string `json:"task"`
	}
	if !decode(w, r, &req) {
		return
	}
	err := s.Game.RunTask(req.Task)
	switch {
	case errors.Is(err, game.ErrNoPlayer):
		http.Error(w, "no active player", http.StatusNotFound)
		return
	case errors.Is(err, engine.ErrUnknownTask):
		http.Error(w, "unknown task", http.StatusBadRequest)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.respond(w, true, map[string]any{"task": req.Task})
}

// handleGrant credits money, experience, energy and items in one call.
func (s *Server) handleGrant(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Money      int    `json:"money,omitempty"`
		Experience int    `json:"experience,omitempty"`
		Energy     int    `json:"energy,omitempty"`
		Health     int    `json:"health,omitempty"`
		HeartRate  int    `json:"heart_rate,omitempty"`
		Heat       int    `json:"heat,omitempty"`
		Item       string `json:"item,omitempty"`
		Quantity   int    `json:"quantity,omitempty"`
	}
	if !decode(w, r, &req) {
		return
	}
	if _, ok := s.Game.Snapshot(); !ok {
		http.Error(w, "no active player", http.StatusNotFound)
		return
	}
	s.Game.AddMoney(req.Money)
	s.Game.AddExperience(req.Experience)
	s.Game.RestoreEnergy(req.Energy)
	s.Game.RestoreHealth(req.Health)
	s.Game.IncreaseHeartRate(req.HeartRate)
	s.Game.IncreaseHeat(req.Heat)
	ok := true
	if req.Item != "" {
		qty := req.Quantity
		if qty == 0 {
			qty = 1
		}
		ok = s.Game.AddItemToInventory(req.Item, qty)
	}
	s.respond(w, ok, nil)
}

// handleConfine sends the player to jail or hospital.
func (s *Server) handleConfine(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind    string `json:"kind"`
		Minutes int    `json:"minutes"`
	}
	if !decode(w, r, &req) {
		return
	}
	switch req.Kind {
	case "jail":
		s.respond(w, s.Game.SendToJail(req.Minutes), nil)
	case "hospital":
		s.respond(w, s.Game.SendToHospital(req.Minutes), nil)
	default:
		http.Error(w, "kind must be jail or hospital", http.StatusBadRequest)
	}
}
