package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/cory-johannsen/guildmaster/internal/game/battle"
	"github.com/cory-johannsen/guildmaster/internal/game/unit"
	"github.com/cory-johannsen/guildmaster/internal/guild"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// UnitsResponse lists the roster.
type UnitsResponse struct {
	Units []guild.UnitView `json:"units"`
}

// ExperienceRequest is the body of POST /units/{id}/experience.
type ExperienceRequest struct {
	Amount int `json:"amount"`
}

// ExperienceResponse reports a grant.
type ExperienceResponse struct {
	Unit         guild.UnitView `json:"unit"`
	LevelsGained int            `json:"levels_gained"`
}

// AwakenResponse reports an awakening attempt.
type AwakenResponse struct {
	Unit     guild.UnitView `json:"unit"`
	Awakened bool           `json:"awakened"`
}

// ReviveRequest is the body of POST /units/{id}/revive.
type ReviveRequest struct {
	Fraction float64 `json:"fraction"`
}

// ReviveResponse reports a revive attempt.
type ReviveResponse struct {
	Unit    guild.UnitView `json:"unit"`
	Revived bool           `json:"revived"`
}

// UnitHandler serves the roster endpoints.
type UnitHandler struct {
	svc    *guild.Service
	logger *zap.Logger
}

func NewUnitHandler(svc *guild.Service, logger *zap.Logger) *UnitHandler {
	return &UnitHandler{svc: svc, logger: logger}
}

func (h *UnitHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, UnitsResponse{Units: h.svc.Views()})
}

func (h *UnitHandler) Get(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.View(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *UnitHandler) Recruit(w http.ResponseWriter, r *http.Request) {
	var req guild.RecruitRequest
	if !decode(w, r, &req) {
		return
	}
	v, err := h.svc.Recruit(req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (h *UnitHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Dismiss(chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UnitHandler) GrantExperience(w http.ResponseWriter, r *http.Request) {
	var req ExperienceRequest
	if !decode(w, r, &req) {
		return
	}
	v, gained, err := h.svc.GrantExperience(chi.URLParam(r, "id"), req.Amount)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ExperienceResponse{Unit: v, LevelsGained: gained})
}

func (h *UnitHandler) Awaken(w http.ResponseWriter, r *http.Request) {
	v, awakened, err := h.svc.Awaken(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, AwakenResponse{Unit: v, Awakened: awakened})
}

func (h *UnitHandler) Revive(w http.ResponseWriter, r *http.Request) {
	var req ReviveRequest
	if !decode(w, r, &req) {
		return
	}
	v, revived, err := h.svc.Revive(chi.URLParam(r, "id"), req.Fraction)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ReviveResponse{Unit: v, Revived: revived})
}

// BattleHandler serves battle and save endpoints.
type BattleHandler struct {
	svc    *guild.Service
	logger *zap.Logger
}

func NewBattleHandler(svc *guild.Service, logger *zap.Logger) *BattleHandler {
	return &BattleHandler{svc: svc, logger: logger}
}

func (h *BattleHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req guild.BattleRequest
	if !decode(w, r, &req) {
		return
	}
	report, err := h.svc.Battle(req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *BattleHandler) Save(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Save(r.Context()); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// statusOf maps service errors onto HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, guild.ErrUnitNotFound):
		return http.StatusNotFound
	case errors.Is(err, guild.ErrDuplicateUnit):
		return http.StatusConflict
	case errors.Is(err, unit.ErrUnknownJob),
		errors.Is(err, unit.ErrUnknownRank),
		errors.Is(err, unit.ErrInvalidAmount),
		errors.Is(err, unit.ErrInvalidFraction),
		errors.Is(err, unit.ErrInvalidLevel),
		errors.Is(err, unit.ErrInvalidName),
		errors.Is(err, battle.ErrEmptySide):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}
