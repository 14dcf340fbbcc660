package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Dosada05/season-engine/brackets"
	"github.com/Dosada05/season-engine/config"
	"github.com/Dosada05/season-engine/events"
	"github.com/Dosada05/season-engine/locking"
	"github.com/Dosada05/season-engine/models"
	"github.com/Dosada05/season-engine/repositories"
	"github.com/Dosada05/season-engine/simulation"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakeSimulator lets the lower team id win 1-0 unless SimulateFunc says otherwise.
type fakeSimulator struct {
	mu           sync.Mutex
	calls        map[int]int
	SimulateFunc func(match *models.GameMatch) (*models.MatchResult, error)
}

func newFakeSimulator() *fakeSimulator {
	return &fakeSimulator{calls: make(map[int]int)}
}

func (f *fakeSimulator) Simulate(ctx context.Context, match *models.GameMatch, home, away *models.Lineup) (*models.MatchResult, error) {
	f.mu.Lock()
	f.calls[match.ID]++
	f.mu.Unlock()
	if f.SimulateFunc != nil {
		return f.SimulateFunc(match)
	}
	return lowerIDWins(match), nil
}

func (f *fakeSimulator) callsFor(matchID int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[matchID]
}

func lowerIDWins(match *models.GameMatch) *models.MatchResult {
	res := &models.MatchResult{MatchID: match.ID}
	winner := match.HomeTeamID
	if match.AwayTeamID < winner {
		winner = match.AwayTeamID
		res.AwayScore = 1
	} else {
		res.HomeScore = 1
	}
	res.Events = []models.MatchEventData{{TeamID: winner, PlayerID: winner * 100, Minute: 30, Type: models.EventGoal}}
	return res
}

// capturePublisher records committed events.
type capturePublisher struct {
	mu     sync.Mutex
	events []models.DomainEvent
}

func (c *capturePublisher) Publish(event models.DomainEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *capturePublisher) count(t models.DomainEventType) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

func (c *capturePublisher) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}

type testEnv struct {
	ctx       context.Context
	store     *repositories.MemoryStore
	file      *config.CompetitionsFile
	schedule  *config.Schedule
	sim       *fakeSimulator
	locker    *locking.LocalLocker
	published *capturePublisher
	engine    *Engine
}

// newTestEnv builds an engine over a fresh memory store. lineups, when set,
// builds the lineup provider from that store; nil picks every side automatically.
func newTestEnv(t *testing.T, competitionsYAML string, lineups func(store *repositories.MemoryStore) LineupProvider) *testEnv {
	t.Helper()
	file, err := config.ParseCompetitions([]byte(competitionsYAML))
	if err != nil {
		t.Fatalf("ParseCompetitions() error = %v", err)
	}
	schedule, err := config.NewSchedule(file)
	if err != nil {
		t.Fatalf("NewSchedule() error = %v", err)
	}

	ctx := context.Background()
	store := repositories.NewMemoryStore()
	for _, c := range file.Competitions {
		if err := store.Competitions().Upsert(ctx, c.ToModel()); err != nil {
			t.Fatalf("Upsert(%s) error = %v", c.ID, err)
		}
	}

	var provider LineupProvider
	if lineups != nil {
		provider = lineups(store)
	}

	dispatcher := events.NewDispatcher(discardLogger)
	published := &capturePublisher{}
	dispatcher.AddPublisher(published)

	env := &testEnv{
		ctx:       ctx,
		store:     store,
		file:      file,
		schedule:  schedule,
		sim:       newFakeSimulator(),
		locker:    locking.NewLocalLocker(),
		published: published,
	}
	env.engine, err = NewEngine(EngineDeps{
		Store:        store.Set(),
		Competitions: file,
		Schedule:     schedule,
		Simulator:    env.sim,
		TieBreaker:   simulation.NewRatingSimulator(1),
		Lineups:      provider,
		Locker:       env.locker,
		Dispatcher:   dispatcher,
		Logger:       discardLogger,
	})
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return env
}

func (e *testEnv) createGame(t *testing.T, teamID int, season string, competitionIDs ...string) *models.Game {
	t.Helper()
	game := &models.Game{
		UserID:         1,
		TeamID:         teamID,
		Season:         season,
		CurrentDate:    time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		CompetitionIDs: competitionIDs,
	}
	if err := e.store.Games().Create(e.ctx, nil, game); err != nil {
		t.Fatalf("create game: %v", err)
	}
	return game
}

func (e *testEnv) game(t *testing.T, id int) *models.Game {
	t.Helper()
	g, err := e.store.Games().GetByID(e.ctx, nil, id)
	if err != nil {
		t.Fatalf("GetByID(%d) error = %v", id, err)
	}
	return g
}

// seedLeague registers teams and schedules a double round-robin on the
// configured matchdays.
func (e *testEnv) seedLeague(t *testing.T, game *models.Game, competitionID string, teams ...int) {
	t.Helper()
	if err := e.store.Participants().ReplaceTeams(e.ctx, nil, game.ID, competitionID, teams); err != nil {
		t.Fatalf("ReplaceTeams() error = %v", err)
	}
	fixtures, err := brackets.NewRoundRobinGenerator(true).GenerateFixtures(teams)
	if err != nil {
		t.Fatalf("GenerateFixtures() error = %v", err)
	}
	for _, f := range fixtures {
		date, err := e.schedule.MatchdayDate(competitionID, game.Season, f.Round)
		if err != nil {
			t.Fatalf("MatchdayDate() error = %v", err)
		}
		m := &models.GameMatch{
			GameID:        game.ID,
			CompetitionID: competitionID,
			HomeTeamID:    f.HomeTeamID,
			AwayTeamID:    f.AwayTeamID,
			ScheduledDate: date,
			RoundNumber:   f.Round,
		}
		if err := e.store.Matches().Create(e.ctx, nil, m); err != nil {
			t.Fatalf("create match: %v", err)
		}
	}
}

// seedGroups schedules a single round-robin inside every group, round r of
// all groups on the same date.
func (e *testEnv) seedGroups(t *testing.T, game *models.Game, competitionID string, first time.Time, groups map[string][]int) {
	t.Helper()
	for label, teams := range groups {
		fixtures, err := brackets.NewRoundRobinGenerator(false).GenerateFixtures(teams)
		if err != nil {
			t.Fatalf("GenerateFixtures(group %s) error = %v", label, err)
		}
		for _, f := range fixtures {
			m := &models.GameMatch{
				GameID:        game.ID,
				CompetitionID: competitionID,
				HomeTeamID:    f.HomeTeamID,
				AwayTeamID:    f.AwayTeamID,
				ScheduledDate: first.AddDate(0, 0, 7*(f.Round-1)),
				RoundNumber:   f.Round,
				GroupLabel:    label,
			}
			if err := e.store.Matches().Create(e.ctx, nil, m); err != nil {
				t.Fatalf("create match: %v", err)
			}
		}
	}
}

func (e *testEnv) advance(t *testing.T, gameID int) *AdvanceOutcome {
	t.Helper()
	outcome, err := e.engine.Advance.Advance(e.ctx, gameID)
	if err != nil {
		t.Fatalf("Advance() error = %v", err)
	}
	return outcome
}

// advanceUntilComplete advances until the season is over and returns how
// many batches were played.
func (e *testEnv) advanceUntilComplete(t *testing.T, gameID int) int {
	t.Helper()
	for batches := 0; batches < 100; batches++ {
		outcome := e.advance(t, gameID)
		if outcome.Status == AdvanceSeasonComplete {
			return batches
		}
		if outcome.Status != AdvanceAdvanced {
			t.Fatalf("Advance() status = %s, reason %q", outcome.Status, outcome.Reason)
		}
	}
	t.Fatal("season did not finish after 100 batches")
	return 0
}

func (e *testEnv) unplayed(t *testing.T, gameID int, competitionID string) int {
	t.Helper()
	matches, err := e.store.Matches().ListByCompetition(e.ctx, nil, gameID, competitionID)
	if err != nil {
		t.Fatalf("ListByCompetition() error = %v", err)
	}
	n := 0
	for _, m := range matches {
		if !m.Played {
			n++
		}
	}
	return n
}

// matchdays returns n weekly dates starting at from, quoted for YAML.
func matchdays(from string, n int) string {
	start, _ := time.Parse("2006-01-02", from)
	dates := make([]string, n)
	for i := range dates {
		dates[i] = fmt.Sprintf("%q", start.AddDate(0, 0, 7*i).Format("2006-01-02"))
	}
	return "[" + strings.Join(dates, ", ") + "]"
}

func squadOf(teamID, firstID, size int, birth time.Time) []*models.Player {
	players := make([]*models.Player, size)
	for i := range players {
		players[i] = &models.Player{ID: firstID + i, TeamID: teamID, Ability: 70, BirthDate: birth}
	}
	return players
}
