package standings

import (
	"errors"
	"testing"

	"github.com/Dosada05/season-engine/models"
)

func intPtr(v int) *int { return &v }

func played(id, home, away, hs, as int) *models.GameMatch {
	return &models.GameMatch{
		ID: id, CompetitionID: "L", HomeTeamID: home, AwayTeamID: away,
		Played: true, HomeScore: intPtr(hs), AwayScore: intPtr(as),
	}
}

func TestApplyResult(t *testing.T) {
	tests := []struct {
		name               string
		hs, as             int
		homePts, awayPts   int
		homeGD, awayGD     int
		homeW, homeD, awayL int
	}{
		{"home win", 3, 1, 3, 0, 2, -2, 1, 0, 1},
		{"draw", 2, 2, 1, 1, 0, 0, 0, 1, 0},
		{"away win", 0, 1, 0, 3, -1, 1, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			home := &models.GameStanding{TeamID: 1}
			away := &models.GameStanding{TeamID: 2}
			ApplyResult(home, away, tt.hs, tt.as)

			if home.Points != tt.homePts || away.Points != tt.awayPts {
				t.Errorf("points = %d/%d, want %d/%d", home.Points, away.Points, tt.homePts, tt.awayPts)
			}
			if home.GoalDifference != tt.homeGD || away.GoalDifference != tt.awayGD {
				t.Errorf("goal difference = %d/%d, want %d/%d", home.GoalDifference, away.GoalDifference, tt.homeGD, tt.awayGD)
			}
			if home.Won != tt.homeW || home.Drawn != tt.homeD || away.Lost != tt.awayL {
				t.Errorf("record home W%d D%d, away L%d; want W%d D%d L%d", home.Won, home.Drawn, away.Lost, tt.homeW, tt.homeD, tt.awayL)
			}
			if home.Played != 1 || away.Played != 1 {
				t.Errorf("played = %d/%d, want 1/1", home.Played, away.Played)
			}
		})
	}
}

func TestRank_LexicographicOrder(t *testing.T) {
	rows := []*models.GameStanding{
		{TeamID: 4, Won: 1, GoalsFor: 3, GoalsAgainst: 3},  // 3 pts, GD 0, GF 3
		{TeamID: 1, Won: 1, GoalsFor: 5, GoalsAgainst: 1},  // 3 pts, GD 4
		{TeamID: 3, Won: 1, GoalsFor: 5, GoalsAgainst: 5},  // 3 pts, GD 0, GF 5
		{TeamID: 2, Won: 2, GoalsFor: 2, GoalsAgainst: 0},  // 6 pts
		{TeamID: 5, Won: 1, GoalsFor: 3, GoalsAgainst: 3},  // identical to team 4
	}
	Rank(rows)

	want := []int{2, 1, 3, 4, 5}
	for i, id := range want {
		if rows[i].TeamID != id || rows[i].Position != i+1 {
			t.Errorf("position %d: got team %d (pos %d), want team %d", i+1, rows[i].TeamID, rows[i].Position, id)
		}
	}
}

func TestRank_IdempotentAndOrderIndependent(t *testing.T) {
	a := []*models.GameStanding{
		{TeamID: 7, Won: 1, Drawn: 1, GoalsFor: 2, GoalsAgainst: 1},
		{TeamID: 3, Won: 1, Drawn: 1, GoalsFor: 2, GoalsAgainst: 1},
		{TeamID: 9, Drawn: 2, GoalsFor: 1, GoalsAgainst: 1},
	}
	b := []*models.GameStanding{
		{TeamID: 9, Drawn: 2, GoalsFor: 1, GoalsAgainst: 1},
		{TeamID: 3, Won: 1, Drawn: 1, GoalsFor: 2, GoalsAgainst: 1},
		{TeamID: 7, Won: 1, Drawn: 1, GoalsFor: 2, GoalsAgainst: 1},
	}
	Rank(a)
	Rank(b)
	Rank(a)

	for i := range a {
		if a[i].TeamID != b[i].TeamID || a[i].Position != b[i].Position {
			t.Errorf("row %d differs: %d@%d vs %d@%d", i, a[i].TeamID, a[i].Position, b[i].TeamID, b[i].Position)
		}
	}
	if a[0].TeamID != 3 {
		t.Errorf("tie on all stats should fall back to team id, got leader %d", a[0].TeamID)
	}
}

func TestRank_Groups(t *testing.T) {
	rows := []*models.GameStanding{
		{TeamID: 1, GroupLabel: "B", Won: 1},
		{TeamID: 2, GroupLabel: "A"},
		{TeamID: 3, GroupLabel: "A", Won: 1},
		{TeamID: 4, GroupLabel: "B"},
	}
	Rank(rows)

	want := []struct{ team, pos int }{{3, 1}, {2, 2}, {1, 1}, {4, 2}}
	for i, w := range want {
		if rows[i].TeamID != w.team || rows[i].Position != w.pos {
			t.Errorf("row %d = team %d pos %d, want team %d pos %d", i, rows[i].TeamID, rows[i].Position, w.team, w.pos)
		}
	}
}

func TestBuild_FromHistory(t *testing.T) {
	tie := 9
	cupMatch := played(99, 1, 2, 5, 0)
	cupMatch.CupTieID = &tie

	matches := []*models.GameMatch{
		played(1, 1, 2, 2, 0),
		played(2, 3, 4, 1, 1),
		played(3, 2, 3, 0, 3),
		{ID: 4, CompetitionID: "L", HomeTeamID: 4, AwayTeamID: 1},
		cupMatch,
	}

	rows, err := Build(10, "L", []int{1, 2, 3, 4}, matches)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want 4", len(rows))
	}
	// team 3: 4 pts GD+3; team 1: 3 pts GD+2; team 4: 1 pt; team 2: 0 pts
	want := []int{3, 1, 4, 2}
	for i, id := range want {
		if rows[i].TeamID != id {
			t.Errorf("position %d = team %d, want %d", i+1, rows[i].TeamID, id)
		}
	}
	if rows[0].Played != 2 || rows[2].Played != 1 {
		t.Errorf("played counts wrong: %+v", rows)
	}

	if _, err := Build(10, "L", []int{1, 2}, matches); !errors.Is(err, ErrUnknownTeam) {
		t.Errorf("Build() with missing team error = %v, want ErrUnknownTeam", err)
	}
}
