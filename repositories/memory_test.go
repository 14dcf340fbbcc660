package repositories

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/Dosada05/season-engine/models"
)

func day(d, hour int) time.Time {
	return time.Date(2025, 8, d, hour, 0, 0, 0, time.UTC)
}

// seedMatches stores the fixture used by the query tests and returns the
// created matches by name.
func seedMatches(t *testing.T, s *MemoryStore) (int, map[string]*models.GameMatch) {
	t.Helper()
	ctx := context.Background()
	game := &models.Game{UserID: 1, TeamID: 1, Season: "2025"}
	other := &models.Game{UserID: 2, TeamID: 1, Season: "2025"}
	for _, g := range []*models.Game{game, other} {
		if err := s.Games().Create(ctx, nil, g); err != nil {
			t.Fatalf("Create(game) error = %v", err)
		}
	}

	tie := func(id int) *int { return &id }
	matches := map[string]*models.GameMatch{
		"liga r1":         {GameID: game.ID, CompetitionID: "LIGA", ScheduledDate: day(16, 0), RoundNumber: 1, HomeTeamID: 1, AwayTeamID: 2},
		"cup leg":         {GameID: game.ID, CompetitionID: "CUP", ScheduledDate: day(16, 0), RoundNumber: 1, CupTieID: tie(10), HomeTeamID: 3, AwayTeamID: 4},
		"cup leg evening": {GameID: game.ID, CompetitionID: "CUP", ScheduledDate: day(16, 20), RoundNumber: 1, CupTieID: tie(11), HomeTeamID: 5, AwayTeamID: 6},
		"cup next day":    {GameID: game.ID, CompetitionID: "CUP", ScheduledDate: day(17, 0), RoundNumber: 1, CupTieID: tie(12), HomeTeamID: 7, AwayTeamID: 8},
		"liga r2":         {GameID: game.ID, CompetitionID: "LIGA", ScheduledDate: day(23, 0), RoundNumber: 2, HomeTeamID: 2, AwayTeamID: 1},
		"liga r1 played":  {GameID: game.ID, CompetitionID: "LIGA", ScheduledDate: day(9, 0), RoundNumber: 1, Played: true, HomeTeamID: 3, AwayTeamID: 4},
		"other game":      {GameID: other.ID, CompetitionID: "LIGA", ScheduledDate: day(1, 0), RoundNumber: 1, HomeTeamID: 1, AwayTeamID: 2},
	}
	for name, m := range matches {
		if err := s.Matches().Create(ctx, nil, m); err != nil {
			t.Fatalf("Create(%s) error = %v", name, err)
		}
	}
	return game.ID, matches
}

func TestMemoryMatches_Queries(t *testing.T) {
	s := NewMemoryStore()
	gameID, seeded := seedMatches(t, s)
	repo := s.Matches()
	ctx := context.Background()

	first := func(m *models.GameMatch, err error) ([]*models.GameMatch, error) {
		if m == nil {
			return nil, err
		}
		return []*models.GameMatch{m}, err
	}

	tests := []struct {
		name  string
		query func() ([]*models.GameMatch, error)
		want  []string
	}{
		{
			name:  "next unplayed breaks a shared date by competition id",
			query: func() ([]*models.GameMatch, error) { return first(repo.NextUnplayed(ctx, nil, gameID)) },
			want:  []string{"cup leg"},
		},
		{
			name: "next unplayed in one competition",
			query: func() ([]*models.GameMatch, error) {
				return first(repo.NextUnplayedInCompetition(ctx, nil, gameID, "LIGA"))
			},
			want: []string{"liga r1"},
		},
		{
			name: "round skips played matches",
			query: func() ([]*models.GameMatch, error) {
				return repo.ListUnplayedByRound(ctx, nil, gameID, "LIGA", 1)
			},
			want: []string{"liga r1"},
		},
		{
			name: "tie legs match the calendar date, not the instant",
			query: func() ([]*models.GameMatch, error) {
				return repo.ListUnplayedTieLegsByDate(ctx, nil, gameID, "CUP", day(16, 12))
			},
			want: []string{"cup leg", "cup leg evening"},
		},
		{
			name: "no tie legs on a league date",
			query: func() ([]*models.GameMatch, error) {
				return repo.ListUnplayedTieLegsByDate(ctx, nil, gameID, "CUP", day(23, 0))
			},
		},
		{
			name: "no round matches for a cup",
			query: func() ([]*models.GameMatch, error) {
				return repo.ListUnplayedByRound(ctx, nil, gameID, "CUP", 1)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.query()
			if err != nil {
				t.Fatalf("query error = %v", err)
			}
			want := make([]int, len(tt.want))
			for i, name := range tt.want {
				want[i] = seeded[name].ID
			}
			ids := make([]int, len(got))
			for i, m := range got {
				ids[i] = m.ID
			}
			if !reflect.DeepEqual(ids, want) {
				t.Errorf("got match ids %v, want %v (%v)", ids, want, tt.want)
			}
		})
	}
}

func TestMemoryMatches_NextUnplayedNilWhenDone(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	game := &models.Game{UserID: 1, TeamID: 1, Season: "2025"}
	if err := s.Games().Create(ctx, nil, game); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	m := &models.GameMatch{GameID: game.ID, CompetitionID: "LIGA", ScheduledDate: day(16, 0), RoundNumber: 1, HomeTeamID: 1, AwayTeamID: 2}
	if err := s.Matches().Create(ctx, nil, m); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	m.Played = true
	if err := s.Matches().SaveResult(ctx, nil, m); err != nil {
		t.Fatalf("SaveResult() error = %v", err)
	}
	next, err := s.Matches().NextUnplayed(ctx, nil, game.ID)
	if err != nil || next != nil {
		t.Errorf("NextUnplayed() = %v, %v; want nil, nil", next, err)
	}
}

func TestMemoryLineups(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	game := &models.Game{UserID: 1, TeamID: 1, Season: "2025"}
	if err := s.Games().Create(ctx, nil, game); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	repo := s.Lineups()

	if _, err := repo.Get(ctx, nil, game.ID); !errors.Is(err, ErrLineupNotFound) {
		t.Errorf("Get() before Save error = %v, want ErrLineupNotFound", err)
	}
	if err := repo.Save(ctx, nil, &models.LineupSelection{GameID: 999}); !errors.Is(err, ErrGameNotFound) {
		t.Errorf("Save(unknown game) error = %v, want ErrGameNotFound", err)
	}

	ids := []int{1, 2, 3}
	if err := repo.Save(ctx, nil, &models.LineupSelection{GameID: game.ID, Formation: "4-4-2", Mentality: "balanced", PlayerIDs: ids}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := repo.Save(ctx, nil, &models.LineupSelection{GameID: game.ID, Formation: "5-3-2", Mentality: "defensive", PlayerIDs: []int{4, 5}}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := repo.Get(ctx, nil, game.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Formation != "5-3-2" || got.Mentality != "defensive" || !reflect.DeepEqual(got.PlayerIDs, []int{4, 5}) {
		t.Errorf("Get() = %+v, want the latest selection", got)
	}

	// A rolled back transaction leaves the previous selection in place.
	rollback := errors.New("rollback")
	err = s.RunInTx(ctx, func(ctx context.Context, exec SQLExecutor) error {
		if err := repo.Save(ctx, exec, &models.LineupSelection{GameID: game.ID, Formation: "3-5-2", PlayerIDs: []int{7}}); err != nil {
			return err
		}
		return rollback
	})
	if !errors.Is(err, rollback) {
		t.Fatalf("RunInTx() error = %v", err)
	}
	if got, _ := repo.Get(ctx, nil, game.ID); got.Formation != "5-3-2" {
		t.Errorf("Formation after rollback = %s, want 5-3-2", got.Formation)
	}
}
