package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/Dosada05/season-engine/config"
	"github.com/Dosada05/season-engine/events"
	"github.com/Dosada05/season-engine/locking"
	"github.com/Dosada05/season-engine/models"
	"github.com/Dosada05/season-engine/repositories"
	"github.com/Dosada05/season-engine/services"
	"github.com/Dosada05/season-engine/simulation"
	"github.com/go-chi/chi/v5"
)

const cupYAML = `
competitions:
  - id: CUP
    name: Copa
    type: knockout_cup
    handler: knockout_cup
    season: "2025"
    draw: straight
schedules:
  - competition: CUP
    season: "2025"
    rounds:
      - round: 1
        name: Final
        first_leg_date: "2025-08-16"
        entrants: [1, 2]
`

// newTestRouter wires a cup game. managed switches on user-picked lineups for team 1.
func newTestRouter(t *testing.T, managed bool) (http.Handler, *models.Game) {
	t.Helper()
	file, err := config.ParseCompetitions([]byte(cupYAML))
	if err != nil {
		t.Fatalf("ParseCompetitions() error = %v", err)
	}
	schedule, err := config.NewSchedule(file)
	if err != nil {
		t.Fatalf("NewSchedule() error = %v", err)
	}
	ctx := context.Background()
	store := repositories.NewMemoryStore()
	if err := store.Competitions().Upsert(ctx, file.Competitions[0].ToModel()); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	game := &models.Game{UserID: 1, TeamID: 1, Season: "2025", CurrentDate: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), CompetitionIDs: []string{"CUP"}}
	if err := store.Games().Create(ctx, nil, game); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	store.AddPlayers(squad(1, 100)...)
	store.AddPlayers(squad(2, 200)...)

	var (
		lineups  services.LineupProvider
		selector LineupSelector
	)
	if managed {
		m := services.NewManagedLineups(store.Lineups())
		lineups, selector = m, m
	}

	sim := simulation.NewRatingSimulator(3)
	engine, err := services.NewEngine(services.EngineDeps{
		Store:        store.Set(),
		Competitions: file,
		Schedule:     schedule,
		Simulator:    sim,
		TieBreaker:   sim,
		Lineups:      lineups,
		Locker:       locking.NewLocalLocker(),
		Dispatcher:   events.NewDispatcher(discardLogger),
		Logger:       discardLogger,
	})
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	h := NewGameHandler(engine, selector, discardLogger)
	router := chi.NewRouter()
	router.Route("/games/{gameID}", func(r chi.Router) {
		r.Post("/advance", h.AdvanceHandler)
		r.Put("/lineup", h.SelectLineupHandler)
		r.Get("/competitions/{competitionID}/ties", h.TiesHandler)
		r.Post("/season/transition", h.SeasonTransitionHandler)
	})
	return router, game
}

func squad(teamID, firstID int) []*models.Player {
	players := make([]*models.Player, simulation.LineupSize)
	for i := range players {
		players[i] = &models.Player{ID: firstID + i, TeamID: teamID, Ability: 60 + i, BirthDate: time.Date(1998, 1, 1, 0, 0, 0, 0, time.UTC)}
	}
	return players
}

func do(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestGameHandler_AdvanceAndTies(t *testing.T) {
	router, game := newTestRouter(t, false)
	path := "/games/" + strconv.Itoa(game.ID)

	rec := do(router, http.MethodPost, path+"/advance", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("advance status = %d, body %s", rec.Code, rec.Body)
	}
	var resp struct {
		Status       string            `json:"status"`
		Matches      []json.RawMessage `json:"matches"`
		Competitions []string          `json:"competitions"`
		Redirect     string            `json:"redirect"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode advance response: %v", err)
	}
	if resp.Status != string(services.AdvanceAdvanced) || len(resp.Matches) != 1 || resp.Redirect == "" {
		t.Errorf("advance response = %+v", resp)
	}

	rec = do(router, http.MethodGet, path+"/competitions/CUP/ties", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"completed": true`) {
		t.Errorf("ties status = %d, body %s", rec.Code, rec.Body)
	}
	if rec := do(router, http.MethodGet, path+"/competitions/CUP/ties?round=x", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("ties with bad round status = %d, want 400", rec.Code)
	}

	rec = do(router, http.MethodPost, path+"/season/transition", "")
	if rec.Code != http.StatusOK {
		t.Errorf("transition status = %d, body %s", rec.Code, rec.Body)
	}
	if rec := do(router, http.MethodPost, "/games/999/advance", ""); rec.Code != http.StatusNotFound {
		t.Errorf("advance of unknown game status = %d, want 404", rec.Code)
	}
}

func TestGameHandler_LineupBlocksUntilSelected(t *testing.T) {
	router, game := newTestRouter(t, true)
	path := "/games/" + strconv.Itoa(game.ID)

	rec := do(router, http.MethodPost, path+"/advance", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), services.ReasonLineupRequired) {
		t.Fatalf("advance without lineup = %d %s, want blocked", rec.Code, rec.Body)
	}

	if rec := do(router, http.MethodPut, path+"/lineup", `{"player_ids":[100,101]}`); rec.Code != http.StatusBadRequest {
		t.Errorf("short lineup status = %d, want 400", rec.Code)
	}
	ids := make([]string, 0, simulation.LineupSize)
	for _, p := range squad(1, 100) {
		ids = append(ids, strconv.Itoa(p.ID))
	}
	body := `{"formation":"4-3-3","player_ids":[` + strings.Join(ids, ",") + `]}`
	if rec := do(router, http.MethodPut, path+"/lineup", body); rec.Code != http.StatusNoContent {
		t.Fatalf("lineup status = %d, body %s", rec.Code, rec.Body)
	}

	rec = do(router, http.MethodPost, path+"/advance", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status": "advanced"`) {
		t.Errorf("advance after lineup = %d %s", rec.Code, rec.Body)
	}
}

func TestGameHandler_LineupWithoutSelector(t *testing.T) {
	router, game := newTestRouter(t, false)
	if rec := do(router, http.MethodPut, "/games/"+strconv.Itoa(game.ID)+"/lineup", `{}`); rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

// stubAdvance returns a fixed outcome and error.
type stubAdvance struct {
	outcome *services.AdvanceOutcome
	err     error
}

func (s stubAdvance) Advance(context.Context, int) (*services.AdvanceOutcome, error) {
	return s.outcome, s.err
}

func TestGameHandler_AdvanceHookFailures(t *testing.T) {
	saved := &services.AdvanceOutcome{Status: services.AdvanceAdvanced, Competitions: []string{"LIGA"}}
	tests := []struct {
		name       string
		outcome    *services.AdvanceOutcome
		err        error
		wantStatus int
		wantBody   []string
	}{
		{
			name:       "transient failure is a warning",
			outcome:    saved,
			err:        fmt.Errorf("%w: %w", services.ErrHooksFailed, errors.New("connection reset")),
			wantStatus: http.StatusOK,
			wantBody:   []string{`"warning"`, "connection reset", `"status": "advanced"`},
		},
		{
			name:       "configuration error surfaces at once",
			outcome:    saved,
			err:        fmt.Errorf("%w: %w", services.ErrHooksFailed, fmt.Errorf("%w: competition X has no playoff", services.ErrConfiguration)),
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   []string{"configuration error", "competition X has no playoff", `"advance"`},
		},
		{
			name:       "data inconsistency surfaces at once",
			outcome:    saved,
			err:        fmt.Errorf("%w: %w", services.ErrHooksFailed, services.ErrDataInconsistency),
			wantStatus: http.StatusInternalServerError,
			wantBody:   []string{"data inconsistency", `"advance"`},
		},
		{
			name:       "failure before the batch was saved",
			err:        services.ErrAdvanceInProgress,
			wantStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := &services.Engine{Advance: stubAdvance{outcome: tt.outcome, err: tt.err}}
			h := NewGameHandler(engine, nil, discardLogger)
			router := chi.NewRouter()
			router.Post("/games/{gameID}/advance", h.AdvanceHandler)

			rec := do(router, http.MethodPost, "/games/1/advance", "")
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d; body %s", rec.Code, tt.wantStatus, rec.Body)
			}
			for _, want := range tt.wantBody {
				if !strings.Contains(rec.Body.String(), want) {
					t.Errorf("body %s does not contain %s", rec.Body, want)
				}
			}
		})
	}
}
