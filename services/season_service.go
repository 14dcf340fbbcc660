package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/Dosada05/season-engine/locking"
	"github.com/Dosada05/season-engine/models"
	"github.com/Dosada05/season-engine/promotions"
	"github.com/Dosada05/season-engine/storage"
)

type SeasonTransitionResult struct {
	GameID       int                            `json:"game_id"`
	OldSeason    string                         `json:"old_season"`
	NewSeason    string                         `json:"new_season"`
	Competitions []string                       `json:"competitions"`
	Movements    []PromotionResult              `json:"movements"`
	Data         []*models.SeasonTransitionData `json:"data"`
	ArchiveKey   string                         `json:"archive_key,omitempty"`
}

type SeasonService interface {
	// Transition closes a fully played season and opens the next one.
	Transition(ctx context.Context, gameID int) (*SeasonTransitionResult, error)
	// Promotions evaluates every configured rule without changing anything.
	Promotions(ctx context.Context, gameID int) ([]PromotionResult, error)
}

type seasonService struct {
	*progression
	rules    []*promotions.Rule
	closing  *SeasonPipeline
	opening  *SeasonPipeline
	locker   locking.Locker
	archiver *storage.Archiver
}

func newSeasonService(p *progression, rules []*promotions.Rule, locker locking.Locker, archiver *storage.Archiver) SeasonService {
	return &seasonService{
		progression: p,
		rules:       rules,
		closing: NewSeasonPipeline(p.logger,
			NewFinalStandingsProcessor(p.store.Standings),
			NewPromotionRelegationProcessor(rules, p.store, p.logger),
			NewPlayerDevelopmentProcessor(p.store),
		),
		opening: NewSeasonPipeline(p.logger,
			NewCompetitionResetProcessor(p.store),
			NewLeagueFixturesProcessor(p.store, p.schedule),
		),
		locker:   locker,
		archiver: archiver,
	}
}

type seasonClosedPayload struct {
	OldSeason    string            `json:"old_season"`
	NewSeason    string            `json:"new_season"`
	Competitions []string          `json:"competitions"`
	Movements    []PromotionResult `json:"movements"`
}

// NextSeasonLabel increments "2025" to "2026" and "2025/26" to "2026/27".
func NextSeasonLabel(season string) (string, error) {
	first, second, split := strings.Cut(season, "/")
	year, err := strconv.Atoi(first)
	if err != nil || len(first) != 4 {
		return "", fmt.Errorf("%w: %q", ErrInvalidSeasonLabel, season)
	}
	if !split {
		return strconv.Itoa(year + 1), nil
	}
	short, err := strconv.Atoi(second)
	if err != nil || len(second) != 2 || short != (year+1)%100 {
		return "", fmt.Errorf("%w: %q", ErrInvalidSeasonLabel, season)
	}
	return fmt.Sprintf("%d/%02d", year+1, (year+2)%100), nil
}

func (s *seasonService) Transition(ctx context.Context, gameID int) (*SeasonTransitionResult, error) {
	release, err := s.locker.TryLock(ctx, locking.GameKey(gameID))
	if err != nil {
		if errors.Is(err, locking.ErrLocked) {
			return nil, ErrAdvanceInProgress
		}
		return nil, fmt.Errorf("failed to acquire season lock: %w", err)
	}
	defer release()

	game, err := s.loadGame(ctx, nil, gameID)
	if err != nil {
		return nil, err
	}
	next, err := s.store.Matches.NextUnplayed(ctx, nil, gameID)
	if err != nil {
		return nil, err
	}
	if next != nil {
		return nil, fmt.Errorf("%w: match %d of %s on %s", ErrSeasonNotComplete,
			next.ID, next.CompetitionID, next.ScheduledDate.Format("2006-01-02"))
	}
	newSeason, err := NextSeasonLabel(game.Season)
	if err != nil {
		return nil, err
	}

	result := &SeasonTransitionResult{GameID: gameID, OldSeason: game.Season, NewSeason: newSeason}
	_, err = s.inTx(ctx, func(ctx context.Context, u *unitOfWork) error {
		result.Data = nil
		game, err := s.loadGame(ctx, u.exec, gameID)
		if err != nil {
			return err
		}
		previous := append([]string(nil), game.CompetitionIDs...)

		for _, competitionID := range previous {
			out, err := s.closing.Run(ctx, u.exec, game, models.NewSeasonTransitionData(game.Season, newSeason, competitionID))
			if err != nil {
				return err
			}
			result.Data = append(result.Data, out)
		}

		movements := collectMovements(result.Data)
		if err := s.applyMovements(ctx, u, game, movements); err != nil {
			return err
		}
		game.CompetitionIDs = followTeam(game.TeamID, game.CompetitionIDs, movements)

		for _, competitionID := range union(previous, game.CompetitionIDs) {
			out, err := s.opening.Run(ctx, u.exec, game, models.NewSeasonTransitionData(game.Season, newSeason, competitionID))
			if err != nil {
				return err
			}
			result.Data = append(result.Data, out)
		}

		if err := u.logTransition(ctx, game, TransitionSeasonClosed, seasonClosedPayload{
			OldSeason: game.Season, NewSeason: newSeason, Competitions: game.CompetitionIDs, Movements: movements,
		}); err != nil {
			return err
		}

		game.Season = newSeason
		game.CurrentMatchday = 0
		if err := s.store.Games.Update(ctx, u.exec, game); err != nil {
			return err
		}
		result.Competitions = game.CompetitionIDs
		result.Movements = movements

		event := models.NewDomainEvent(models.EventSeasonStarted, game.ID, "")
		event.Season = newSeason
		return u.emit(ctx, event)
	})
	if err != nil {
		return nil, classify(err)
	}

	s.logger.InfoContext(ctx, "season transitioned",
		slog.Int("game_id", gameID),
		slog.String("old_season", result.OldSeason),
		slog.String("new_season", result.NewSeason),
		slog.Int("movements", len(result.Movements)))

	result.ArchiveKey = s.archive(ctx, result)
	return result, nil
}

// archive uploads the finished season's transition log. Failures are logged
// only: the log stays in the database.
func (s *seasonService) archive(ctx context.Context, result *SeasonTransitionResult) string {
	if s.archiver == nil {
		return ""
	}
	entries, err := s.store.Transitions.ListByGame(ctx, nil, result.GameID, result.OldSeason)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to read transition log for archive", slog.Int("game_id", result.GameID), slog.Any("error", err))
		return ""
	}
	key, err := s.archiver.ArchiveSeason(ctx, &storage.SeasonArchive{
		GameID:      result.GameID,
		Season:      result.OldSeason,
		NextSeason:  result.NewSeason,
		ArchivedAt:  time.Now().UTC(),
		Transitions: entries,
		Pipeline:    result.Data,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to archive season", slog.Int("game_id", result.GameID), slog.Any("error", err))
		return ""
	}
	return key
}

func (s *seasonService) Promotions(ctx context.Context, gameID int) ([]PromotionResult, error) {
	game, err := s.loadGame(ctx, nil, gameID)
	if err != nil {
		return nil, err
	}
	src := s.source(nil)
	results := make([]PromotionResult, 0, len(s.rules))
	for _, rule := range s.rules {
		result, err := evaluateRule(ctx, src, game, rule)
		if err != nil {
			if errors.Is(err, promotions.ErrNoFinishingOrder) {
				s.logger.DebugContext(ctx, "promotion rule has no finishing order yet",
					slog.Int("game_id", gameID),
					slog.String("top", rule.TopDivision()),
					slog.String("bottom", rule.BottomDivision()))
				continue
			}
			return nil, classify(err)
		}
		results = append(results, result)
	}
	return results, nil
}

// collectMovements gathers the movements recorded by the closing pipeline.
// A rule seen from both of its divisions is kept once.
func collectMovements(data []*models.SeasonTransitionData) []PromotionResult {
	seen := make(map[string]bool)
	out := make([]PromotionResult, 0)
	for _, d := range data {
		movements, _ := d.Metadata[MetadataMovements].([]PromotionResult)
		for _, m := range movements {
			key := m.TopDivision + "|" + m.BottomDivision
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, m)
		}
	}
	return out
}

// applyMovements swaps promoted and relegated teams between the participant
// lists of both divisions.
func (s *seasonService) applyMovements(ctx context.Context, u *unitOfWork, game *models.Game, movements []PromotionResult) error {
	for _, m := range movements {
		top, err := s.store.Participants.ListTeams(ctx, u.exec, game.ID, m.TopDivision)
		if err != nil {
			return err
		}
		bottom, err := s.store.Participants.ListTeams(ctx, u.exec, game.ID, m.BottomDivision)
		if err != nil {
			return err
		}
		if len(top) == 0 || len(bottom) == 0 {
			continue
		}
		newTop, err := swapTeams(top, m.Relegated, m.Promoted, m.TopDivision)
		if err != nil {
			return err
		}
		newBottom, err := swapTeams(bottom, m.Promoted, m.Relegated, m.BottomDivision)
		if err != nil {
			return err
		}
		if err := s.store.Participants.ReplaceTeams(ctx, u.exec, game.ID, m.TopDivision, newTop); err != nil {
			return err
		}
		if err := s.store.Participants.ReplaceTeams(ctx, u.exec, game.ID, m.BottomDivision, newBottom); err != nil {
			return err
		}
	}
	return nil
}

func swapTeams(current, leaving, arriving []int, competitionID string) ([]int, error) {
	members := make(map[int]bool, len(current))
	for _, id := range current {
		members[id] = true
	}
	gone := make(map[int]bool, len(leaving))
	for _, id := range leaving {
		if !members[id] {
			return nil, fmt.Errorf("%w: team %d leaves %s but is not in it", ErrDataInconsistency, id, competitionID)
		}
		gone[id] = true
	}
	out := make([]int, 0, len(current))
	for _, id := range current {
		if !gone[id] {
			out = append(out, id)
		}
	}
	for _, id := range arriving {
		if members[id] && !gone[id] {
			return nil, fmt.Errorf("%w: team %d joins %s twice", ErrDataInconsistency, id, competitionID)
		}
		out = append(out, id)
	}
	return out, nil
}

// followTeam moves the managed team's league membership with it.
func followTeam(teamID int, competitionIDs []string, movements []PromotionResult) []string {
	out := append([]string(nil), competitionIDs...)
	replace := func(from, to string) {
		for i, id := range out {
			if id == from {
				out[i] = to
			}
		}
	}
	for _, m := range movements {
		if containsInt(m.Relegated, teamID) {
			replace(m.TopDivision, m.BottomDivision)
		}
		if containsInt(m.Promoted, teamID) {
			replace(m.BottomDivision, m.TopDivision)
		}
	}
	return out
}

func containsInt(ids []int, id int) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func union(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, id := range append(append([]string(nil), a...), b...) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
