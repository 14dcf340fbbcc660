package promotions

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/Dosada05/season-engine/config"
	"github.com/Dosada05/season-engine/models"
	"github.com/Dosada05/season-engine/playoffs"
)

type fakeSource struct {
	tables    map[string][]*models.GameStanding
	simulated map[string]*models.SimulatedSeason
}

func (f *fakeSource) Standings(ctx context.Context, gameID int, competitionID string) ([]*models.GameStanding, error) {
	return f.tables[competitionID], nil
}

func (f *fakeSource) TiesInRound(ctx context.Context, gameID int, competitionID string, round int) ([]*models.CupTie, error) {
	return nil, nil
}

func (f *fakeSource) SimulatedSeason(ctx context.Context, gameID int, competitionID, season string) (*models.SimulatedSeason, error) {
	return f.simulated[competitionID], nil
}

// fakePlayoff reports a fixed final result.
type fakePlayoff struct {
	playoffs.Generator
	winner  int
	decided bool
}

func (f *fakePlayoff) Winner(ctx context.Context, src playoffs.Source, gameID int) (int, bool, error) {
	return f.winner, f.decided, nil
}

// tableOf returns rows with team id = base + position.
func tableOf(base, n int) []*models.GameStanding {
	rows := make([]*models.GameStanding, n)
	for i := range rows {
		rows[i] = &models.GameStanding{TeamID: base + i + 1, Position: i + 1}
	}
	return rows
}

var game = &models.Game{ID: 1, Season: "2025"}

func TestPromotedTeams_FallbackWhenPlayoffUndecided(t *testing.T) {
	src := &fakeSource{tables: map[string][]*models.GameStanding{"bottom": tableOf(200, 10)}}
	rule := NewRule("top", "bottom", []int{18, 19, 20}, []int{1, 2}, &fakePlayoff{})

	got, err := rule.PromotedTeams(context.Background(), src, game)
	if err != nil {
		t.Fatalf("PromotedTeams() error = %v", err)
	}
	want := []int{201, 202, 203}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("PromotedTeams() = %v, want %v", got, want)
	}
}

func TestPromotedTeams_PlayoffWinner(t *testing.T) {
	src := &fakeSource{tables: map[string][]*models.GameStanding{"bottom": tableOf(200, 10)}}
	rule := NewRule("top", "bottom", nil, []int{1, 2}, &fakePlayoff{winner: 205, decided: true})

	got, err := rule.PromotedTeams(context.Background(), src, game)
	if err != nil {
		t.Fatalf("PromotedTeams() error = %v", err)
	}
	if want := []int{201, 202, 205}; !reflect.DeepEqual(got, want) {
		t.Errorf("PromotedTeams() = %v, want %v", got, want)
	}
}

func TestPromotedTeams_NoDuplicates(t *testing.T) {
	src := &fakeSource{tables: map[string][]*models.GameStanding{"bottom": tableOf(200, 10)}}
	// A winner that already went up directly must not take the extra slot twice.
	rule := NewRule("top", "bottom", nil, []int{1, 2}, &fakePlayoff{winner: 202, decided: true})

	got, err := rule.PromotedTeams(context.Background(), src, game)
	if err != nil {
		t.Fatalf("PromotedTeams() error = %v", err)
	}
	if want := []int{201, 202, 203}; !reflect.DeepEqual(got, want) {
		t.Errorf("PromotedTeams() = %v, want %v", got, want)
	}
}

func TestPromotedTeams_SimulatedFallback(t *testing.T) {
	src := &fakeSource{simulated: map[string]*models.SimulatedSeason{
		"bottom": {CompetitionID: "bottom", Season: "2025", Results: []int{9, 8, 7, 6, 5}},
	}}

	withPlayoff := NewRule("top", "bottom", nil, []int{1, 2}, &fakePlayoff{winner: 5, decided: true})
	got, err := withPlayoff.PromotedTeams(context.Background(), src, game)
	if err != nil {
		t.Fatalf("PromotedTeams() error = %v", err)
	}
	if want := []int{9, 8, 7}; !reflect.DeepEqual(got, want) {
		t.Errorf("with playoff: PromotedTeams() = %v, want %v", got, want)
	}

	direct := NewRule("top", "bottom", nil, []int{1, 2}, nil)
	got, err = direct.PromotedTeams(context.Background(), src, game)
	if err != nil {
		t.Fatalf("PromotedTeams() error = %v", err)
	}
	if want := []int{9, 8}; !reflect.DeepEqual(got, want) {
		t.Errorf("direct only: PromotedTeams() = %v, want %v", got, want)
	}
}

func TestRelegatedTeams(t *testing.T) {
	src := &fakeSource{
		tables: map[string][]*models.GameStanding{"top": tableOf(100, 20)},
		simulated: map[string]*models.SimulatedSeason{
			"other": {Results: []int{1, 2, 3, 4}},
		},
	}
	rule := NewRule("top", "bottom", []int{18, 19, 20}, []int{1, 2}, nil)
	got, err := rule.RelegatedTeams(context.Background(), src, game)
	if err != nil {
		t.Fatalf("RelegatedTeams() error = %v", err)
	}
	if want := []int{118, 119, 120}; !reflect.DeepEqual(got, want) {
		t.Errorf("RelegatedTeams() = %v, want %v", got, want)
	}

	simulatedTop := NewRule("other", "bottom", []int{3, 4}, []int{1}, nil)
	got, err = simulatedTop.RelegatedTeams(context.Background(), src, game)
	if err != nil {
		t.Fatalf("RelegatedTeams() error = %v", err)
	}
	if want := []int{3, 4}; !reflect.DeepEqual(got, want) {
		t.Errorf("simulated RelegatedTeams() = %v, want %v", got, want)
	}
}

func TestRule_MissingData(t *testing.T) {
	rule := NewRule("top", "bottom", []int{18}, []int{1}, nil)
	if _, err := rule.PromotedTeams(context.Background(), &fakeSource{}, game); !errors.Is(err, ErrNoFinishingOrder) {
		t.Errorf("PromotedTeams() error = %v, want ErrNoFinishingOrder", err)
	}
	src := &fakeSource{tables: map[string][]*models.GameStanding{"top": tableOf(100, 10)}}
	if _, err := rule.RelegatedTeams(context.Background(), src, game); !errors.Is(err, ErrPositionMissing) {
		t.Errorf("RelegatedTeams() error = %v, want ErrPositionMissing", err)
	}
}

func TestBuildRules(t *testing.T) {
	file := &config.CompetitionsFile{PromotionRules: []config.PromotionRuleConfig{
		{TopDivision: "top", BottomDivision: "bottom", RelegatedPositions: []int{20}, DirectPromotionPositions: []int{1}, Playoff: "po"},
	}}
	if _, err := BuildRules(file, map[string]playoffs.Generator{}); !errors.Is(err, ErrUnknownPlayoff) {
		t.Errorf("BuildRules() error = %v, want ErrUnknownPlayoff", err)
	}
	rules, err := BuildRules(file, map[string]playoffs.Generator{"po": &fakePlayoff{}})
	if err != nil {
		t.Fatalf("BuildRules() error = %v", err)
	}
	if len(rules) != 1 || !rules[0].HasPlayoff() || rules[0].PromotedCount() != 2 {
		t.Errorf("BuildRules() = %+v", rules)
	}
}
