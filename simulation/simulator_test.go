package simulation

import (
	"context"
	"reflect"
	"testing"

	"github.com/Dosada05/season-engine/models"
)

func squad(teamID, firstID, ability, size int) []*models.Player {
	players := make([]*models.Player, size)
	for i := range players {
		players[i] = &models.Player{ID: firstID + i, TeamID: teamID, Ability: ability - i}
	}
	return players
}

func TestPickLineup(t *testing.T) {
	players := squad(1, 100, 80, 15)
	// Reverse so PickLineup has to sort.
	for i, j := 0, len(players)-1; i < j; i, j = i+1, j-1 {
		players[i], players[j] = players[j], players[i]
	}
	l := PickLineup(1, players)
	if len(l.Players) != LineupSize {
		t.Fatalf("lineup has %d players, want %d", len(l.Players), LineupSize)
	}
	if l.Players[0].Ability != 80 || l.Players[10].Ability != 70 {
		t.Errorf("lineup abilities %d..%d, want 80..70", l.Players[0].Ability, l.Players[10].Ability)
	}
	if got := Strength(&models.Lineup{}); got != defaultAbility {
		t.Errorf("Strength(empty) = %v, want %v", got, defaultAbility)
	}
}

func TestSimulate_ScoreMatchesEvents(t *testing.T) {
	sim := NewRatingSimulator(7)
	home := PickLineup(1, squad(1, 100, 75, 18))
	away := PickLineup(2, squad(2, 200, 60, 18))

	for id := 1; id <= 200; id++ {
		match := &models.GameMatch{ID: id, HomeTeamID: 1, AwayTeamID: 2}
		res, err := sim.Simulate(context.Background(), match, home, away)
		if err != nil {
			t.Fatalf("Simulate() error = %v", err)
		}
		if got := models.GoalsFor(res.Events, 1); got != res.HomeScore {
			t.Fatalf("match %d: home events give %d goals, score says %d", id, got, res.HomeScore)
		}
		if got := models.GoalsFor(res.Events, 2); got != res.AwayScore {
			t.Fatalf("match %d: away events give %d goals, score says %d", id, got, res.AwayScore)
		}
	}
}

func TestSimulate_Deterministic(t *testing.T) {
	home := PickLineup(1, squad(1, 100, 70, 11))
	away := PickLineup(2, squad(2, 200, 70, 11))
	match := &models.GameMatch{ID: 42, HomeTeamID: 1, AwayTeamID: 2}

	a, _ := NewRatingSimulator(3).Simulate(context.Background(), match, home, away)
	b, _ := NewRatingSimulator(3).Simulate(context.Background(), match, home, away)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("same seed produced different results:\n%+v\n%+v", a, b)
	}
}

func TestShootOut_AlwaysDecisive(t *testing.T) {
	sim := NewRatingSimulator(11)
	players := models.PlayersByTeam{1: squad(1, 100, 70, 11), 2: squad(2, 200, 70, 11)}
	for id := 1; id <= 100; id++ {
		home, away, err := sim.ShootOut(context.Background(), &models.GameMatch{ID: id, HomeTeamID: 1, AwayTeamID: 2}, players)
		if err != nil {
			t.Fatalf("ShootOut() error = %v", err)
		}
		if home == away {
			t.Fatalf("match %d: shoot-out ended level %d-%d", id, home, away)
		}
	}
}

func TestPlayExtraTime_EventsInExtraTime(t *testing.T) {
	sim := NewRatingSimulator(5)
	players := models.PlayersByTeam{1: squad(1, 100, 90, 11), 2: squad(2, 200, 40, 11)}
	for id := 1; id <= 50; id++ {
		home, away, events, err := sim.PlayExtraTime(context.Background(), &models.GameMatch{ID: id, HomeTeamID: 1, AwayTeamID: 2}, players)
		if err != nil {
			t.Fatalf("PlayExtraTime() error = %v", err)
		}
		if models.GoalsFor(events, 1) != home || models.GoalsFor(events, 2) != away {
			t.Fatalf("match %d: events do not add up to %d-%d", id, home, away)
		}
		for _, e := range events {
			if e.Minute < 91 || e.Minute > 120 {
				t.Errorf("extra time event at minute %d", e.Minute)
			}
		}
	}
}

func TestSimulate_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewRatingSimulator(1).Simulate(ctx, &models.GameMatch{ID: 1}, &models.Lineup{}, &models.Lineup{}); err == nil {
		t.Error("Simulate() with cancelled context returned nil error")
	}
}
