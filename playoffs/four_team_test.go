package playoffs

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/Dosada05/season-engine/brackets"
	"github.com/Dosada05/season-engine/config"
	"github.com/Dosada05/season-engine/models"
)

type fakeSource struct {
	table []*models.GameStanding
	ties  map[int][]*models.CupTie
}

func (f *fakeSource) Standings(ctx context.Context, gameID int, competitionID string) ([]*models.GameStanding, error) {
	return f.table, nil
}

func (f *fakeSource) TiesInRound(ctx context.Context, gameID int, competitionID string, round int) ([]*models.CupTie, error) {
	return f.ties[round], nil
}

type fakeSchedule struct {
	RoundConfigFunc func(competitionID, season string, round int) (models.PlayoffRoundConfig, error)
}

func (f *fakeSchedule) RoundConfig(competitionID, season string, round int) (models.PlayoffRoundConfig, error) {
	return f.RoundConfigFunc(competitionID, season, round)
}

func intPtr(v int) *int { return &v }

// tableOf builds a table where team id = 100 + position.
func tableOf(n int) []*models.GameStanding {
	rows := make([]*models.GameStanding, n)
	for i := range rows {
		rows[i] = &models.GameStanding{TeamID: 100 + i + 1, Position: i + 1}
	}
	return rows
}

func newGenerator(t *testing.T) *FourTeam {
	t.Helper()
	g, err := NewFourTeam(config.PlayoffConfig{
		ID:                       "champ_playoff",
		Type:                     config.PlayoffFourTeam,
		Competition:              "championship",
		QualifyingPositions:      []int{3, 4, 5, 6},
		DirectPromotionPositions: []int{1, 2},
		TriggerMatchday:          46,
	}, &fakeSchedule{RoundConfigFunc: func(competitionID, season string, round int) (models.PlayoffRoundConfig, error) {
		return models.PlayoffRoundConfig{Round: round, TwoLegged: true, FirstLegDate: time.Date(2025, 5, 10+round*7, 0, 0, 0, 0, time.UTC)}, nil
	}})
	if err != nil {
		t.Fatalf("NewFourTeam() error = %v", err)
	}
	return g
}

func TestFourTeam_SemifinalPairing(t *testing.T) {
	g := newGenerator(t)
	src := &fakeSource{table: tableOf(8)}

	got, err := g.GenerateMatchups(context.Background(), src, 1, 1)
	if err != nil {
		t.Fatalf("GenerateMatchups(1) error = %v", err)
	}
	want := []brackets.Pairing{
		{BracketPosition: 1, HomeTeamID: 106, AwayTeamID: 103},
		{BracketPosition: 2, HomeTeamID: 105, AwayTeamID: 104},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("semifinals = %+v, want %+v", got, want)
	}
}

func TestFourTeam_FinalHostingOrder(t *testing.T) {
	g := newGenerator(t)
	src := &fakeSource{ties: map[int][]*models.CupTie{
		1: {
			{ID: 1, BracketPosition: 1, HomeTeamID: 106, AwayTeamID: 103, Completed: true, WinnerID: intPtr(103)},
			{ID: 2, BracketPosition: 2, HomeTeamID: 105, AwayTeamID: 104, Completed: true, WinnerID: intPtr(105)},
		},
	}}

	got, err := g.GenerateMatchups(context.Background(), src, 1, 2)
	if err != nil {
		t.Fatalf("GenerateMatchups(2) error = %v", err)
	}
	want := []brackets.Pairing{{BracketPosition: 1, HomeTeamID: 105, AwayTeamID: 103}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("final = %+v, want %+v", got, want)
	}
}

func TestFourTeam_FinalWithoutWinnersIsFatal(t *testing.T) {
	tests := []struct {
		name string
		ties []*models.CupTie
	}{
		{"no semifinals", nil},
		{"one undecided", []*models.CupTie{
			{ID: 1, BracketPosition: 1, Completed: true, WinnerID: intPtr(103)},
			{ID: 2, BracketPosition: 2},
		}},
		{"completed without winner", []*models.CupTie{
			{ID: 1, BracketPosition: 1, Completed: true, WinnerID: intPtr(103)},
			{ID: 2, BracketPosition: 2, Completed: true},
		}},
	}
	g := newGenerator(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{ties: map[int][]*models.CupTie{1: tt.ties}}
			_, err := g.GenerateMatchups(context.Background(), src, 1, 2)
			if !errors.Is(err, ErrWinnerMissing) {
				t.Errorf("error = %v, want ErrWinnerMissing", err)
			}
		})
	}
}

func TestFourTeam_MissingPosition(t *testing.T) {
	g := newGenerator(t)
	_, err := g.GenerateMatchups(context.Background(), &fakeSource{table: tableOf(5)}, 1, 1)
	if !errors.Is(err, ErrPositionMissing) {
		t.Errorf("error = %v, want ErrPositionMissing", err)
	}
}

func TestFourTeam_UnknownRound(t *testing.T) {
	g := newGenerator(t)
	if _, err := g.GenerateMatchups(context.Background(), &fakeSource{}, 1, 3); !errors.Is(err, ErrUnknownRound) {
		t.Errorf("GenerateMatchups(3) error = %v, want ErrUnknownRound", err)
	}
	if _, err := g.RoundConfig("2025", 0); !errors.Is(err, ErrUnknownRound) {
		t.Errorf("RoundConfig(0) error = %v, want ErrUnknownRound", err)
	}
	cfg, err := g.RoundConfig("2025", 2)
	if err != nil || cfg.Round != 2 {
		t.Errorf("RoundConfig(2) = %+v, %v", cfg, err)
	}
}

func TestFourTeam_Completion(t *testing.T) {
	g := newGenerator(t)
	src := &fakeSource{ties: map[int][]*models.CupTie{}}

	done, err := g.IsComplete(context.Background(), src, 1)
	if err != nil || done {
		t.Errorf("IsComplete() without final = %v, %v; want false", done, err)
	}

	src.ties[2] = []*models.CupTie{{ID: 9, BracketPosition: 1, HomeTeamID: 105, AwayTeamID: 103}}
	if _, ok, _ := g.Winner(context.Background(), src, 1); ok {
		t.Error("Winner() reported a winner for an open final")
	}

	src.ties[2][0].Completed = true
	src.ties[2][0].WinnerID = intPtr(103)
	done, _ = g.IsComplete(context.Background(), src, 1)
	winner, ok, err := g.Winner(context.Background(), src, 1)
	if !done || !ok || err != nil || winner != 103 {
		t.Errorf("after final: complete=%v winner=%d ok=%v err=%v; want true 103 true nil", done, winner, ok, err)
	}
}

func TestNew_UnknownType(t *testing.T) {
	_, err := New(config.PlayoffConfig{Type: "eight_team"}, &fakeSchedule{})
	if !errors.Is(err, ErrUnknownType) {
		t.Errorf("New() error = %v, want ErrUnknownType", err)
	}
}
