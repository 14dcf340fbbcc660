package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Dosada05/season-engine/services"
	"github.com/go-chi/chi/v5"
)

// LineupSelector stores the lineup of the team the user manages.
type LineupSelector interface {
	Select(ctx context.Context, gameID int, formation, mentality string, playerIDs []int) error
}

type GameHandler struct {
	responder
	engine  *services.Engine
	lineups LineupSelector
}

func NewGameHandler(engine *services.Engine, lineups LineupSelector, logger *slog.Logger) *GameHandler {
	return &GameHandler{
		responder: responder{logger: logger},
		engine:    engine,
		lineups:   lineups,
	}
}

type advanceResponse struct {
	Status         services.AdvanceStatus `json:"status"`
	Matches        interface{}            `json:"matches"`
	Competitions   []string               `json:"competitions"`
	Redirect       string                 `json:"redirect,omitempty"`
	Reason         string                 `json:"reason,omitempty"`
	SeasonComplete bool                   `json:"season_complete"`
	Warning        string                 `json:"warning,omitempty"`
}

// AdvanceHandler обрабатывает POST /games/{gameID}/advance
func (h *GameHandler) AdvanceHandler(w http.ResponseWriter, r *http.Request) {
	gameID, err := getIDFromURL(r, "gameID")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	outcome, err := h.engine.Advance.Advance(r.Context(), gameID)
	if err != nil && !(outcome != nil && errors.Is(err, services.ErrHooksFailed)) {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}

	resp := advanceResponse{
		Status:         outcome.Status,
		Matches:        outcome.Matches,
		Competitions:   outcome.Competitions,
		Redirect:       outcome.Redirect,
		Reason:         outcome.Reason,
		SeasonComplete: outcome.SeasonComplete,
	}
	if err != nil {
		// Фатальные ошибки хуков сами не исправятся: отдаём их статус сразу.
		if services.IsFatal(err) {
			status := http.StatusInternalServerError
			if errors.Is(err, services.ErrConfiguration) {
				status = http.StatusUnprocessableEntity
			}
			h.logger.Error("post-match hooks failed", slog.Int("game_id", gameID), slog.Bool("fatal", true), slog.Any("error", err))
			h.ok(w, r, status, jsonResponse{"error": err.Error(), "advance": resp})
			return
		}
		// Результаты сохранены, хуки догонятся при следующем продвижении.
		h.logger.Warn("post-match hooks failed", slog.Int("game_id", gameID), slog.Any("error", err))
		resp.Warning = err.Error()
	}
	h.ok(w, r, http.StatusOK, resp)
}

// StandingsHandler обрабатывает GET /games/{gameID}/competitions/{competitionID}/standings
func (h *GameHandler) StandingsHandler(w http.ResponseWriter, r *http.Request) {
	gameID, err := getIDFromURL(r, "gameID")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	competitionID := chi.URLParam(r, "competitionID")

	table, err := h.engine.Standings.Table(r.Context(), gameID, competitionID)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, jsonResponse{"standings": table})
}

// RebuildStandingsHandler обрабатывает POST /games/{gameID}/competitions/{competitionID}/standings/rebuild
func (h *GameHandler) RebuildStandingsHandler(w http.ResponseWriter, r *http.Request) {
	gameID, err := getIDFromURL(r, "gameID")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	table, err := h.engine.Standings.Rebuild(r.Context(), gameID, chi.URLParam(r, "competitionID"))
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, jsonResponse{"standings": table})
}

// TiesHandler обрабатывает GET /games/{gameID}/competitions/{competitionID}/ties?round=N
func (h *GameHandler) TiesHandler(w http.ResponseWriter, r *http.Request) {
	gameID, err := getIDFromURL(r, "gameID")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	competitionID := chi.URLParam(r, "competitionID")

	round := 0
	if v := r.URL.Query().Get("round"); v != "" {
		round, err = strconv.Atoi(v)
		if err != nil || round <= 0 {
			h.badRequestResponse(w, r, errors.New("invalid round query parameter"))
			return
		}
	}

	ties, err := h.engine.Draws.ListTies(r.Context(), gameID, competitionID, round)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, jsonResponse{"ties": ties})
}

// DrawHandler обрабатывает POST /games/{gameID}/competitions/{competitionID}/draw
func (h *GameHandler) DrawHandler(w http.ResponseWriter, r *http.Request) {
	gameID, err := getIDFromURL(r, "gameID")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	competitionID := chi.URLParam(r, "competitionID")

	round, pending, err := h.engine.Draws.NextRoundNeedingDraw(r.Context(), gameID, competitionID)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	if !pending {
		h.ok(w, r, http.StatusOK, jsonResponse{"ties": []interface{}{}})
		return
	}
	ties, err := h.engine.Draws.ConductDraw(r.Context(), gameID, competitionID, round)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.ok(w, r, http.StatusCreated, jsonResponse{"round": round, "ties": ties})
}

// PromotionsHandler обрабатывает GET /games/{gameID}/promotions
func (h *GameHandler) PromotionsHandler(w http.ResponseWriter, r *http.Request) {
	gameID, err := getIDFromURL(r, "gameID")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	movements, err := h.engine.Seasons.Promotions(r.Context(), gameID)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, jsonResponse{"promotions": movements})
}

// SeasonTransitionHandler обрабатывает POST /games/{gameID}/season/transition
func (h *GameHandler) SeasonTransitionHandler(w http.ResponseWriter, r *http.Request) {
	gameID, err := getIDFromURL(r, "gameID")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	result, err := h.engine.Seasons.Transition(r.Context(), gameID)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, jsonResponse{"transition": result})
}

type lineupInput struct {
	Formation string `json:"formation"`
	Mentality string `json:"mentality"`
	PlayerIDs []int  `json:"player_ids"`
}

// SelectLineupHandler обрабатывает PUT /games/{gameID}/lineup
func (h *GameHandler) SelectLineupHandler(w http.ResponseWriter, r *http.Request) {
	gameID, err := getIDFromURL(r, "gameID")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	if h.lineups == nil {
		h.errorResponse(w, r, http.StatusConflict, "lineups are picked automatically on this server")
		return
	}

	var input lineupInput
	if err := readJSON(w, r, &input); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	if input.Formation == "" {
		input.Formation = "4-4-2"
	}
	if input.Mentality == "" {
		input.Mentality = "balanced"
	}

	if err := h.lineups.Select(r.Context(), gameID, input.Formation, input.Mentality, input.PlayerIDs); err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
