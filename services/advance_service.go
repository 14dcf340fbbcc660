package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/season-engine/locking"
	"github.com/Dosada05/season-engine/models"
	"github.com/Dosada05/season-engine/simulation"
)

type AdvanceStatus string

const (
	AdvanceAdvanced       AdvanceStatus = "advanced"
	AdvanceBlocked        AdvanceStatus = "blocked"
	AdvanceSeasonComplete AdvanceStatus = "season_complete"
)

// ReasonLineupRequired is reported with a blocked outcome when the managed
// team has no valid lineup.
const ReasonLineupRequired = "lineup_required"

type AdvanceState string

const (
	StateIdle               AdvanceState = "idle"
	StateSelectingBatch     AdvanceState = "selecting_batch"
	StateAwaitingSimulation AdvanceState = "awaiting_simulation"
	StateApplyingResults    AdvanceState = "applying_results"
	StateRunningHooks       AdvanceState = "running_hooks"
	StateSeasonComplete     AdvanceState = "season_complete"
)

const defaultSimulationParallelism = 8

// AdvanceOutcome is the definitive result of one advance request.
type AdvanceOutcome struct {
	Status         AdvanceStatus       `json:"status"`
	Matches        []*models.GameMatch `json:"matches"`
	Competitions   []string            `json:"competitions"`
	Redirect       string              `json:"redirect,omitempty"`
	Reason         string              `json:"reason,omitempty"`
	Date           *time.Time          `json:"date,omitempty"`
	SeasonComplete bool                `json:"season_complete"`
	States         []AdvanceState      `json:"states"`
}

type AdvanceService interface {
	// Advance plays the next batch of the game. A second call for the same
	// game while one is running fails with ErrAdvanceInProgress.
	Advance(ctx context.Context, gameID int) (*AdvanceOutcome, error)
}

type advanceService struct {
	*progression
	simulator   simulation.MatchSimulator
	lineups     LineupProvider
	locker      locking.Locker
	parallelism int
}

func newAdvanceService(p *progression, simulator simulation.MatchSimulator, lineups LineupProvider, locker locking.Locker) AdvanceService {
	return &advanceService{
		progression: p,
		simulator:   simulator,
		lineups:     lineups,
		locker:      locker,
		parallelism: defaultSimulationParallelism,
	}
}

// advanceRun tracks the state machine of one advance call.
type advanceRun struct {
	gameID int
	state  AdvanceState
	trace  []AdvanceState
	logger *slog.Logger
}

func newAdvanceRun(gameID int, logger *slog.Logger) *advanceRun {
	return &advanceRun{gameID: gameID, state: StateIdle, trace: []AdvanceState{StateIdle}, logger: logger}
}

func (r *advanceRun) to(ctx context.Context, next AdvanceState) error {
	if !isValidStateTransition(r.state, next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStateChange, r.state, next)
	}
	r.logger.InfoContext(ctx, "advance state changed",
		slog.Int("game_id", r.gameID),
		slog.String("from", string(r.state)),
		slog.String("to", string(next)))
	r.state = next
	r.trace = append(r.trace, next)
	return nil
}

// abort returns the run to Idle after a failure in a non-terminal state.
func (r *advanceRun) abort(ctx context.Context) {
	if r.state == StateIdle || r.state == StateSeasonComplete {
		return
	}
	_ = r.to(ctx, StateIdle)
}

type sides struct {
	home, away *models.Lineup
}

type batchPayload struct {
	MatchIDs     []int     `json:"match_ids"`
	Competitions []string  `json:"competitions"`
	Date         time.Time `json:"date"`
	Matchday     int       `json:"matchday"`
}

func (s *advanceService) Advance(ctx context.Context, gameID int) (*AdvanceOutcome, error) {
	release, err := s.locker.TryLock(ctx, locking.GameKey(gameID))
	if err != nil {
		if errors.Is(err, locking.ErrLocked) {
			return nil, ErrAdvanceInProgress
		}
		return nil, fmt.Errorf("failed to acquire advance lock: %w", err)
	}
	defer release()

	run := newAdvanceRun(gameID, s.logger)
	outcome, err := s.advance(ctx, run)
	if err != nil {
		run.abort(ctx)
		s.logger.ErrorContext(ctx, "advance failed", slog.Int("game_id", gameID), slog.Any("error", err))
	}
	if outcome != nil {
		outcome.States = run.trace
	}
	return outcome, err
}

func (s *advanceService) advance(ctx context.Context, run *advanceRun) (*AdvanceOutcome, error) {
	// Досчитываем хуки, если прошлый вызов упал между коммитом батча и хуками.
	if _, err := s.inTx(ctx, func(ctx context.Context, u *unitOfWork) error {
		game, err := s.loadGame(ctx, u.exec, run.gameID)
		if err != nil {
			return err
		}
		return s.reconcile(ctx, u, game)
	}); err != nil {
		return nil, classify(err)
	}

	if err := run.to(ctx, StateSelectingBatch); err != nil {
		return nil, err
	}
	u := s.readUnit()
	game, err := s.loadGame(ctx, u.exec, run.gameID)
	if err != nil {
		return nil, err
	}
	anchor, batch, competitions, err := s.selectBatch(ctx, u, game)
	if err != nil {
		return nil, classify(err)
	}
	if anchor == nil {
		if err := run.to(ctx, StateSeasonComplete); err != nil {
			return nil, err
		}
		return &AdvanceOutcome{
			Status:         AdvanceSeasonComplete,
			Matches:        []*models.GameMatch{},
			Competitions:   []string{},
			SeasonComplete: true,
		}, nil
	}

	handler, err := s.handlerFor(ctx, anchor.CompetitionID)
	if err != nil {
		return nil, err
	}
	date := anchor.ScheduledDate
	outcome := &AdvanceOutcome{
		Status:       AdvanceAdvanced,
		Matches:      batch,
		Competitions: competitions,
		Redirect:     handler.redirect(game, anchor.CompetitionID),
		Date:         &date,
	}

	if err := run.to(ctx, StateAwaitingSimulation); err != nil {
		return nil, err
	}
	players, err := s.squads(ctx, u, nil, teamsOf(batch)...)
	if err != nil {
		return nil, err
	}
	lineups, err := s.pickLineups(ctx, game, batch, players)
	if err != nil {
		if errors.Is(err, ErrLineupRequired) {
			if err := run.to(ctx, StateIdle); err != nil {
				return nil, err
			}
			outcome.Status = AdvanceBlocked
			outcome.Reason = ReasonLineupRequired
			s.logger.InfoContext(ctx, "advance blocked",
				slog.Int("game_id", game.ID),
				slog.String("reason", ReasonLineupRequired),
				slog.Any("detail", err))
			return outcome, nil
		}
		return nil, err
	}
	results, err := s.simulate(ctx, batch, lineups)
	if err != nil {
		return nil, err
	}

	if err := run.to(ctx, StateApplyingResults); err != nil {
		return nil, err
	}
	if _, err := s.inTx(ctx, func(ctx context.Context, u *unitOfWork) error {
		return s.applyResults(ctx, u, anchor, batch, competitions, results)
	}); err != nil {
		return nil, classify(err)
	}

	if err := run.to(ctx, StateRunningHooks); err != nil {
		return nil, err
	}
	if _, err := s.inTx(ctx, func(ctx context.Context, u *unitOfWork) error {
		game, err := s.loadGame(ctx, u.exec, run.gameID)
		if err != nil {
			return err
		}
		for _, competitionID := range competitions {
			h, err := s.handlerFor(ctx, competitionID)
			if err != nil {
				return err
			}
			if err := h.afterMatches(ctx, s.progression, u, game, competitionID, matchesOf(batch, competitionID), players); err != nil {
				return fmt.Errorf("after matches of %s: %w", competitionID, err)
			}
		}
		return s.reconcile(ctx, u, game)
	}); err != nil {
		// Батч уже сохранён, хуки повторятся при следующем вызове.
		if err := run.to(ctx, StateIdle); err != nil {
			return nil, err
		}
		return outcome, fmt.Errorf("%w: %w", ErrHooksFailed, classify(err))
	}

	next, err := s.store.Matches.NextUnplayed(ctx, nil, run.gameID)
	if err != nil {
		return nil, err
	}
	if next == nil {
		outcome.SeasonComplete = true
		return outcome, run.to(ctx, StateSeasonComplete)
	}
	return outcome, run.to(ctx, StateIdle)
}

// reconcile re-runs the idempotent hooks of every active competition: open
// ties with all legs played get resolved, waiting draws are made and playoff
// rounds whose trigger has passed are generated.
func (s *advanceService) reconcile(ctx context.Context, u *unitOfWork, game *models.Game) error {
	for _, competitionID := range game.CompetitionIDs {
		h, err := s.handlerFor(ctx, competitionID)
		if err != nil {
			return err
		}
		if err := h.afterMatches(ctx, s.progression, u, game, competitionID, nil, nil); err != nil {
			return fmt.Errorf("after matches of %s: %w", competitionID, err)
		}
		if err := h.beforeMatches(ctx, s.progression, u, game, competitionID, game.CurrentDate); err != nil {
			return fmt.Errorf("before matches of %s: %w", competitionID, err)
		}
	}
	return nil
}

// selectBatch returns the chronologically next unplayed match, the batch of
// its competition and the batches of other active competitions whose next
// match falls on the same day. A nil anchor means the season is complete.
func (s *advanceService) selectBatch(ctx context.Context, u *unitOfWork, game *models.Game) (*models.GameMatch, []*models.GameMatch, []string, error) {
	anchor, err := s.store.Matches.NextUnplayed(ctx, u.exec, game.ID)
	if err != nil {
		return nil, nil, nil, err
	}
	if anchor == nil {
		return nil, nil, nil, nil
	}

	seen := make(map[int]bool)
	batch := make([]*models.GameMatch, 0)
	competitions := make([]string, 0, len(game.CompetitionIDs))
	add := func(competitionID string, matches []*models.GameMatch) {
		added := false
		for _, m := range matches {
			if !seen[m.ID] {
				seen[m.ID] = true
				batch = append(batch, m)
				added = true
			}
		}
		if added {
			competitions = append(competitions, competitionID)
		}
	}

	h, err := s.handlerFor(ctx, anchor.CompetitionID)
	if err != nil {
		return nil, nil, nil, err
	}
	matches, err := h.matchBatch(ctx, s.progression, u, game, anchor)
	if err != nil {
		return nil, nil, nil, err
	}
	add(anchor.CompetitionID, matches)

	for _, competitionID := range game.CompetitionIDs {
		if competitionID == anchor.CompetitionID {
			continue
		}
		next, err := s.store.Matches.NextUnplayedInCompetition(ctx, u.exec, game.ID, competitionID)
		if err != nil {
			return nil, nil, nil, err
		}
		if next == nil || !sameDate(next.ScheduledDate, anchor.ScheduledDate) {
			continue
		}
		h, err := s.handlerFor(ctx, competitionID)
		if err != nil {
			return nil, nil, nil, err
		}
		matches, err := h.matchBatch(ctx, s.progression, u, game, next)
		if err != nil {
			return nil, nil, nil, err
		}
		add(competitionID, matches)
	}

	if len(batch) == 0 {
		return nil, nil, nil, fmt.Errorf("%w: match %d of %s is unplayed but belongs to no batch",
			ErrDataInconsistency, anchor.ID, anchor.CompetitionID)
	}
	sort.SliceStable(batch, func(i, j int) bool {
		if !batch[i].ScheduledDate.Equal(batch[j].ScheduledDate) {
			return batch[i].ScheduledDate.Before(batch[j].ScheduledDate)
		}
		return batch[i].ID < batch[j].ID
	})
	return anchor, batch, competitions, nil
}

func (s *advanceService) pickLineups(ctx context.Context, game *models.Game, batch []*models.GameMatch, players models.PlayersByTeam) ([]sides, error) {
	lineups := make([]sides, len(batch))
	for i, m := range batch {
		home, err := s.lineups.Lineup(ctx, game, m, m.HomeTeamID, players[m.HomeTeamID])
		if err != nil {
			return nil, fmt.Errorf("lineup of team %d for match %d: %w", m.HomeTeamID, m.ID, err)
		}
		away, err := s.lineups.Lineup(ctx, game, m, m.AwayTeamID, players[m.AwayTeamID])
		if err != nil {
			return nil, fmt.Errorf("lineup of team %d for match %d: %w", m.AwayTeamID, m.ID, err)
		}
		lineups[i] = sides{home: home, away: away}
	}
	return lineups, nil
}

// simulate plays the batch in parallel. One failed match fails the batch.
func (s *advanceService) simulate(ctx context.Context, batch []*models.GameMatch, lineups []sides) ([]*models.MatchResult, error) {
	results := make([]*models.MatchResult, len(batch))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for i, m := range batch {
		g.Go(func() error {
			res, err := s.simulator.Simulate(gctx, m, lineups[i].home, lineups[i].away)
			if err != nil {
				return fmt.Errorf("match %d: %w", m.ID, err)
			}
			if res == nil {
				return fmt.Errorf("match %d: simulator returned no result", m.ID)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSimulationFailed, err)
	}
	return results, nil
}

func checkResult(m *models.GameMatch, res *models.MatchResult) error {
	if res.MatchID != 0 && res.MatchID != m.ID {
		return fmt.Errorf("%w: result for match %d returned for match %d", ErrDataInconsistency, res.MatchID, m.ID)
	}
	if res.HomeScore < 0 || res.AwayScore < 0 {
		return fmt.Errorf("%w: negative score %d-%d for match %d", ErrDataInconsistency, res.HomeScore, res.AwayScore, m.ID)
	}
	for _, e := range res.Events {
		if !e.Type.Valid() {
			return fmt.Errorf("%w: unknown event type %q in match %d", ErrDataInconsistency, e.Type, m.ID)
		}
	}
	if !models.HasGoalEvents(res.Events) {
		return nil
	}
	home, away := models.GoalsFor(res.Events, m.HomeTeamID), models.GoalsFor(res.Events, m.AwayTeamID)
	if home != res.HomeScore || away != res.AwayScore {
		return fmt.Errorf("%w: match %d reported %d-%d, events give %d-%d",
			ErrScoreMismatch, m.ID, res.HomeScore, res.AwayScore, home, away)
	}
	return nil
}

// applyResults marks the whole batch played in one transaction and moves the
// game calendar forward.
func (s *advanceService) applyResults(ctx context.Context, u *unitOfWork, anchor *models.GameMatch, batch []*models.GameMatch, competitions []string, results []*models.MatchResult) error {
	game, err := s.loadGame(ctx, u.exec, anchor.GameID)
	if err != nil {
		return err
	}
	for i, m := range batch {
		if err := checkResult(m, results[i]); err != nil {
			return err
		}
	}

	playedAt := time.Now().UTC()
	latest := game.CurrentDate
	for i, m := range batch {
		res := results[i]
		m.Played = true
		m.HomeScore = intPtr(res.HomeScore)
		m.AwayScore = intPtr(res.AwayScore)
		m.Events = res.Events
		m.PlayedAt = &playedAt
		if err := s.store.Matches.SaveResult(ctx, u.exec, m); err != nil {
			return fmt.Errorf("failed to save result of match %d: %w", m.ID, err)
		}

		event := models.NewDomainEvent(models.EventMatchFinalized, game.ID, m.CompetitionID)
		event.Match = m
		if err := u.emit(ctx, event); err != nil {
			return err
		}
		s.logger.DebugContext(ctx, "match finalized",
			slog.Int("game_id", game.ID),
			slog.Int("match_id", m.ID),
			slog.String("competition_id", m.CompetitionID),
			slog.Int("home_team_id", m.HomeTeamID),
			slog.Int("away_team_id", m.AwayTeamID),
			slog.Int("home_score", res.HomeScore),
			slog.Int("away_score", res.AwayScore))
		if m.ScheduledDate.After(latest) {
			latest = m.ScheduledDate
		}
	}

	game.CurrentDate = latest
	rounds := roundsPlayed(batch)
	for _, round := range rounds {
		if round > game.CurrentMatchday {
			game.CurrentMatchday = round
		}
	}
	if err := s.store.Games.Update(ctx, u.exec, game); err != nil {
		return fmt.Errorf("failed to move game %d forward: %w", game.ID, err)
	}

	payload := batchPayload{MatchIDs: matchIDs(batch), Competitions: competitions, Date: latest, Matchday: game.CurrentMatchday}
	if err := u.logTransition(ctx, game, TransitionBatchAdvanced, payload); err != nil {
		return err
	}
	for _, competitionID := range competitions {
		round, ok := rounds[competitionID]
		if !ok {
			continue
		}
		event := models.NewDomainEvent(models.EventMatchdayAdvanced, game.ID, competitionID)
		event.Matchday = round
		event.Season = game.Season
		if err := u.emit(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// roundsPlayed returns the highest round played per competition. Cup tie legs
// are dated, not numbered by matchday, so they are skipped.
func roundsPlayed(batch []*models.GameMatch) map[string]int {
	rounds := make(map[string]int)
	for _, m := range batch {
		if m.IsCupTieMatch() {
			continue
		}
		if m.RoundNumber > rounds[m.CompetitionID] {
			rounds[m.CompetitionID] = m.RoundNumber
		}
	}
	return rounds
}
