package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Dosada05/season-engine/models"
)

func TestCupDraw_NoDrawOnceRoundHasTies(t *testing.T) {
	env := newTestEnv(t, leagueYAML, nil)
	game := env.createGame(t, 1, "2025", "CUP")

	round, ok, err := env.engine.Draws.NextRoundNeedingDraw(env.ctx, game.ID, "CUP")
	if err != nil || !ok || round != 1 {
		t.Fatalf("NextRoundNeedingDraw() = %d, %v, %v; want 1, true, nil", round, ok, err)
	}

	ties, err := env.engine.Draws.ConductDraw(env.ctx, game.ID, "CUP", 1)
	if err != nil {
		t.Fatalf("ConductDraw() error = %v", err)
	}
	if len(ties) != 2 {
		t.Fatalf("ConductDraw() created %d ties, want 2", len(ties))
	}
	seen := make(map[int]bool)
	for _, tie := range ties {
		if tie.FirstLegMatchID == nil || tie.SecondLegMatchID != nil {
			t.Errorf("tie %d legs = %v/%v, want a single leg", tie.ID, tie.FirstLegMatchID, tie.SecondLegMatchID)
		}
		for _, team := range []int{tie.HomeTeamID, tie.AwayTeamID} {
			if seen[team] {
				t.Errorf("team %d drawn twice", team)
			}
			seen[team] = true
		}
	}

	// Ties exist but are unplayed: nothing to draw.
	if round, ok, err := env.engine.Draws.NextRoundNeedingDraw(env.ctx, game.ID, "CUP"); err != nil || ok {
		t.Errorf("NextRoundNeedingDraw() = %d, %v, %v; want none", round, ok, err)
	}
	for _, r := range []int{1, 2} {
		again, err := env.engine.Draws.ConductDraw(env.ctx, game.ID, "CUP", r)
		if err != nil || len(again) != 0 {
			t.Errorf("ConductDraw(round %d) = %d ties, %v; want none", r, len(again), err)
		}
	}
	if n := env.published.count(models.EventDrawConducted); n != 1 {
		t.Errorf("draw_conducted published %d times, want 1", n)
	}
}

func TestCupDraw_CompetitionNotActive(t *testing.T) {
	env := newTestEnv(t, leagueYAML, nil)
	game := env.createGame(t, 1, "2025", "LIGA")

	if _, err := env.engine.Draws.ConductDraw(env.ctx, game.ID, "CUP", 1); !errors.Is(err, ErrCompetitionInactive) {
		t.Errorf("ConductDraw() error = %v, want ErrCompetitionInactive", err)
	}
}

func TestAdvance_KnockoutResolvesTiesAndDrawsNextRound(t *testing.T) {
	env := newTestEnv(t, leagueYAML, nil)
	game := env.createGame(t, 1, "2025", "CUP")

	first := env.advance(t, game.ID)
	if len(first.Matches) != 2 {
		t.Fatalf("first batch has %d matches, want 2 semifinals", len(first.Matches))
	}
	if want := fmt.Sprintf("/games/%d/competitions/CUP/ties", game.ID); first.Redirect != want {
		t.Errorf("Redirect = %q, want %q", first.Redirect, want)
	}
	semis, _ := env.engine.Draws.ListTies(env.ctx, game.ID, "CUP", 1)
	for _, tie := range semis {
		if !tie.Completed || tie.WinnerID == nil {
			t.Errorf("semifinal %d not resolved", tie.ID)
		}
	}
	final, _ := env.engine.Draws.ListTies(env.ctx, game.ID, "CUP", 2)
	if len(final) != 1 {
		t.Fatalf("final round has %d ties, want 1", len(final))
	}
	if n := env.published.count(models.EventDrawConducted); n != 2 {
		t.Errorf("draw_conducted published %d times, want 2", n)
	}
	if n := env.published.count(models.EventCupTieResolved); n != 2 {
		t.Errorf("cup_tie_resolved published %d times, want 2", n)
	}

	second := env.advance(t, game.ID)
	if !second.SeasonComplete {
		t.Errorf("SeasonComplete = false after the final")
	}
	final, _ = env.engine.Draws.ListTies(env.ctx, game.ID, "CUP", 2)
	tie := final[0]
	if !tie.Completed || tie.WinnerID == nil || *tie.WinnerID != 1 {
		t.Fatalf("final = %+v, want won by team 1", tie)
	}
	if tie.Resolution == nil || tie.Resolution.Method != models.ResolvedRegulation {
		t.Errorf("final resolution = %+v, want regulation", tie.Resolution)
	}

	if third := env.advance(t, game.ID); third.Status != AdvanceSeasonComplete {
		t.Errorf("Status = %s, want %s", third.Status, AdvanceSeasonComplete)
	}
}

func TestAdvance_DrawnSingleLegGoesToTieBreak(t *testing.T) {
	env := newTestEnv(t, leagueYAML, nil)
	game := env.createGame(t, 1, "2025", "CUP")
	env.sim.SimulateFunc = func(m *models.GameMatch) (*models.MatchResult, error) {
		return &models.MatchResult{MatchID: m.ID}, nil
	}

	env.advance(t, game.ID)
	semis, _ := env.engine.Draws.ListTies(env.ctx, game.ID, "CUP", 1)
	for _, tie := range semis {
		if !tie.Completed || tie.Resolution == nil {
			t.Fatalf("tie %d not resolved after a 0-0", tie.ID)
		}
		if !tie.Resolution.ExtraTimePlayed {
			t.Errorf("tie %d: extra time not recorded", tie.ID)
		}
		switch tie.Resolution.Method {
		case models.ResolvedExtraTime:
		case models.ResolvedPenalties:
			if tie.Resolution.HomePenalties == nil || tie.Resolution.AwayPenalties == nil {
				t.Errorf("tie %d decided on penalties without a shoot-out score", tie.ID)
			}
		default:
			t.Errorf("tie %d method = %s, want extra time or penalties", tie.ID, tie.Resolution.Method)
		}
	}
}
