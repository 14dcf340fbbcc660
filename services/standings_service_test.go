package services

import (
	"errors"
	"testing"

	"github.com/Dosada05/season-engine/locking"
)

func TestStandings_RebuildMatchesIncrementalTable(t *testing.T) {
	env := newTestEnv(t, leagueYAML, nil)
	game := env.createGame(t, 1, "2025", "LIGA")
	env.seedLeague(t, game, "LIGA", 1, 2, 3, 4)
	env.advance(t, game.ID)
	env.advance(t, game.ID)
	env.advance(t, game.ID)

	incremental, err := env.engine.Standings.Table(env.ctx, game.ID, "LIGA")
	if err != nil {
		t.Fatalf("Table() error = %v", err)
	}
	rebuilt, err := env.engine.Standings.Rebuild(env.ctx, game.ID, "LIGA")
	if err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	if len(rebuilt) != len(incremental) {
		t.Fatalf("Rebuild() returned %d rows, table has %d", len(rebuilt), len(incremental))
	}
	for i := range rebuilt {
		a, b := incremental[i], rebuilt[i]
		if a.TeamID != b.TeamID || a.Position != b.Position || a.Points != b.Points ||
			a.Played != b.Played || a.GoalDifference != b.GoalDifference {
			t.Errorf("row %d: incremental %+v, rebuilt %+v", i, a, b)
		}
	}
	if incremental[0].TeamID != 1 || incremental[0].Points != 9 || incremental[0].Played != 3 {
		t.Errorf("leader = %+v, want team 1 with 9 points from 3 games", incremental[0])
	}
}

func TestStandings_IgnoresCupMatches(t *testing.T) {
	env := newTestEnv(t, leagueYAML, nil)
	game := env.createGame(t, 1, "2025", "CUP")
	env.advance(t, game.ID)

	rows, err := env.engine.Standings.Table(env.ctx, game.ID, "CUP")
	if err != nil {
		t.Fatalf("Table() error = %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("cup has %d standing rows, want none", len(rows))
	}
}

func TestStandings_RebuildWhileLocked(t *testing.T) {
	env := newTestEnv(t, leagueYAML, nil)
	game := env.createGame(t, 1, "2025", "LIGA")
	release, err := env.locker.TryLock(env.ctx, locking.GameKey(game.ID))
	if err != nil {
		t.Fatalf("TryLock() error = %v", err)
	}
	defer release()

	if _, err := env.engine.Standings.Rebuild(env.ctx, game.ID, "LIGA"); !errors.Is(err, ErrAdvanceInProgress) {
		t.Errorf("Rebuild() error = %v, want ErrAdvanceInProgress", err)
	}
}
