package services

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math/rand"
	"sort"

	"github.com/Dosada05/season-engine/brackets"
	"github.com/Dosada05/season-engine/config"
	"github.com/Dosada05/season-engine/models"
	"github.com/Dosada05/season-engine/promotions"
	"github.com/Dosada05/season-engine/repositories"
)

// Ключи метаданных сезонного перехода.
const (
	MetadataFinalStandings = "final_standings"
	MetadataChampion       = "champion"
	MetadataMovements      = "movements"
	MetadataFixtures       = "fixtures_created"
)

const (
	minAbility = 1
	maxAbility = 99
)

// PromotionResult is the movement between two divisions decided by one rule.
type PromotionResult struct {
	TopDivision    string `json:"top_division"`
	BottomDivision string `json:"bottom_division"`
	Promoted       []int  `json:"promoted"`
	Relegated      []int  `json:"relegated"`
}

type FinalPosition struct {
	TeamID     int    `json:"team_id"`
	Position   int    `json:"position"`
	GroupLabel string `json:"group_label,omitempty"`
	Points     int    `json:"points"`
	GoalDiff   int    `json:"goal_difference"`
}

// --- Closing processors ---

// FinalStandingsProcessor snapshots the final table before it is cleared.
type FinalStandingsProcessor struct {
	standings repositories.StandingRepository
}

func NewFinalStandingsProcessor(standings repositories.StandingRepository) *FinalStandingsProcessor {
	return &FinalStandingsProcessor{standings: standings}
}

func (p *FinalStandingsProcessor) Name() string { return "final_standings" }

func (p *FinalStandingsProcessor) Process(ctx context.Context, exec repositories.SQLExecutor, game *models.Game, data *models.SeasonTransitionData) (*models.SeasonTransitionData, error) {
	rows, err := p.standings.ListByCompetition(ctx, exec, game.ID, data.CompetitionID, true)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return data, nil
	}
	table := make([]FinalPosition, len(rows))
	for i, r := range rows {
		table[i] = FinalPosition{TeamID: r.TeamID, Position: r.Position, GroupLabel: r.GroupLabel, Points: r.Points, GoalDiff: r.GoalDifference}
		if r.Position == 1 && r.GroupLabel == "" {
			data.Metadata[MetadataChampion] = r.TeamID
		}
	}
	data.Metadata[MetadataFinalStandings] = table
	return data, nil
}

// PromotionRelegationProcessor evaluates the rules that involve the
// competition. Divisions that were not played get a simulated finishing
// order first.
type PromotionRelegationProcessor struct {
	rules  []*promotions.Rule
	store  repositories.Set
	logger *slog.Logger
}

func NewPromotionRelegationProcessor(rules []*promotions.Rule, store repositories.Set, logger *slog.Logger) *PromotionRelegationProcessor {
	return &PromotionRelegationProcessor{rules: rules, store: store, logger: logger}
}

func (p *PromotionRelegationProcessor) Name() string { return "promotion_relegation" }

func (p *PromotionRelegationProcessor) Process(ctx context.Context, exec repositories.SQLExecutor, game *models.Game, data *models.SeasonTransitionData) (*models.SeasonTransitionData, error) {
	src := &stateSource{exec: exec, store: p.store}
	movements := make([]PromotionResult, 0)
	for _, rule := range p.rules {
		if rule.TopDivision() != data.CompetitionID && rule.BottomDivision() != data.CompetitionID {
			continue
		}
		ready := true
		for _, division := range []string{rule.TopDivision(), rule.BottomDivision()} {
			ok, err := p.ensureFinishingOrder(ctx, exec, game, division)
			if err != nil {
				return nil, err
			}
			ready = ready && ok
		}
		if !ready {
			p.logger.WarnContext(ctx, "promotion rule skipped, division has no teams",
				slog.Int("game_id", game.ID),
				slog.String("top", rule.TopDivision()),
				slog.String("bottom", rule.BottomDivision()))
			continue
		}
		result, err := evaluateRule(ctx, src, game, rule)
		if err != nil {
			return nil, err
		}
		movements = append(movements, result)
	}
	data.Metadata[MetadataMovements] = movements
	return data, nil
}

// ensureFinishingOrder makes sure the division has real standings or a
// simulated season. It reports false when the division has no teams at all.
func (p *PromotionRelegationProcessor) ensureFinishingOrder(ctx context.Context, exec repositories.SQLExecutor, game *models.Game, competitionID string) (bool, error) {
	rows, err := p.store.Standings.ListByCompetition(ctx, exec, game.ID, competitionID, false)
	if err != nil {
		return false, err
	}
	if len(rows) > 0 {
		return true, nil
	}
	_, err = p.store.Simulated.Get(ctx, exec, game.ID, competitionID, game.Season)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, repositories.ErrSimulatedSeasonNotFound) {
		return false, err
	}

	teams, err := p.store.Participants.ListTeams(ctx, exec, game.ID, competitionID)
	if err != nil {
		return false, err
	}
	if len(teams) == 0 {
		return false, nil
	}
	simulated := &models.SimulatedSeason{
		GameID:        game.ID,
		CompetitionID: competitionID,
		Season:        game.Season,
		Results:       shuffledOrder(teams, game.ID, competitionID, game.Season),
	}
	if err := p.store.Simulated.Save(ctx, exec, simulated); err != nil {
		return false, err
	}
	p.logger.InfoContext(ctx, "simulated season saved",
		slog.Int("game_id", game.ID),
		slog.String("competition_id", competitionID),
		slog.String("season", game.Season))
	return true, nil
}

// shuffledOrder is a reproducible finishing order for a division nobody played.
func shuffledOrder(teams []int, gameID int, competitionID, season string) []int {
	order := append([]int(nil), teams...)
	sort.Ints(order)
	h := fnv.New64a()
	fmt.Fprintf(h, "%d/%s/%s", gameID, competitionID, season)
	rng := rand.New(rand.NewSource(int64(h.Sum64())))
	rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	return order
}

func evaluateRule(ctx context.Context, src promotions.Source, game *models.Game, rule *promotions.Rule) (PromotionResult, error) {
	promoted, err := rule.PromotedTeams(ctx, src, game)
	if err != nil {
		return PromotionResult{}, err
	}
	relegated, err := rule.RelegatedTeams(ctx, src, game)
	if err != nil {
		return PromotionResult{}, err
	}
	return PromotionResult{
		TopDivision:    rule.TopDivision(),
		BottomDivision: rule.BottomDivision(),
		Promoted:       promoted,
		Relegated:      relegated,
	}, nil
}

// PlayerDevelopmentProcessor ages the squads of league participants. Young
// players improve, veterans decline.
type PlayerDevelopmentProcessor struct {
	store repositories.Set
}

func NewPlayerDevelopmentProcessor(store repositories.Set) *PlayerDevelopmentProcessor {
	return &PlayerDevelopmentProcessor{store: store}
}

func (p *PlayerDevelopmentProcessor) Name() string { return "player_development" }

func (p *PlayerDevelopmentProcessor) Process(ctx context.Context, exec repositories.SQLExecutor, game *models.Game, data *models.SeasonTransitionData) (*models.SeasonTransitionData, error) {
	competition, err := p.store.Competitions.GetByID(ctx, data.CompetitionID)
	if err != nil {
		return nil, err
	}
	// Кубки пропускаем, иначе игроки развивались бы дважды.
	if competition.Type != models.CompetitionLeague {
		return data, nil
	}
	teams, err := p.store.Participants.ListTeams(ctx, exec, game.ID, data.CompetitionID)
	if err != nil {
		return nil, err
	}
	squads, err := p.store.Players.ListByTeams(ctx, exec, teams)
	if err != nil {
		return nil, err
	}

	for _, teamID := range teams {
		squad := append([]*models.Player(nil), squads[teamID]...)
		sort.Slice(squad, func(i, j int) bool { return squad[i].ID < squad[j].ID })
		for _, player := range squad {
			age := player.AgeAt(game.CurrentDate)
			if age == 0 {
				continue
			}
			delta, reason := developmentDelta(age, player.ID, data.OldSeason)
			after := clampAbility(player.Ability + delta)
			if after == player.Ability {
				continue
			}
			if err := p.store.Players.UpdateAbility(ctx, exec, player.ID, after); err != nil {
				return nil, err
			}
			data.PlayerChanges = append(data.PlayerChanges, models.PlayerAbilityChange{
				PlayerID: player.ID,
				TeamID:   teamID,
				Before:   player.Ability,
				After:    after,
				Reason:   reason,
			})
		}
	}
	return data, nil
}

func developmentDelta(age, playerID int, season string) (int, string) {
	h := fnv.New32a()
	fmt.Fprintf(h, "%d/%s", playerID, season)
	jitter := int(h.Sum32() % 3)
	switch {
	case age <= 21:
		return 2 + jitter, "youth_growth"
	case age <= 27:
		return jitter, "maturing"
	case age <= 30:
		return jitter - 1, "peak"
	default:
		return -2 - jitter, "veteran_decline"
	}
}

func clampAbility(v int) int {
	if v < minAbility {
		return minAbility
	}
	if v > maxAbility {
		return maxAbility
	}
	return v
}

// --- Opening processors ---

// CompetitionResetProcessor clears last season's table, fixtures and ties.
type CompetitionResetProcessor struct {
	store repositories.Set
}

func NewCompetitionResetProcessor(store repositories.Set) *CompetitionResetProcessor {
	return &CompetitionResetProcessor{store: store}
}

func (p *CompetitionResetProcessor) Name() string { return "competition_reset" }

func (p *CompetitionResetProcessor) Process(ctx context.Context, exec repositories.SQLExecutor, game *models.Game, data *models.SeasonTransitionData) (*models.SeasonTransitionData, error) {
	if err := p.store.Standings.DeleteByCompetition(ctx, exec, game.ID, data.CompetitionID); err != nil {
		return nil, err
	}
	// Матчи ссылаются на пары, поэтому удаляются первыми.
	if err := p.store.Matches.DeleteByCompetition(ctx, exec, game.ID, data.CompetitionID); err != nil {
		return nil, err
	}
	if err := p.store.CupTies.DeleteByCompetition(ctx, exec, game.ID, data.CompetitionID); err != nil {
		return nil, err
	}
	return data, nil
}

// LeagueFixturesProcessor schedules the new season's double round-robin for
// the leagues the game takes part in.
type LeagueFixturesProcessor struct {
	store    repositories.Set
	schedule *config.Schedule
}

func NewLeagueFixturesProcessor(store repositories.Set, schedule *config.Schedule) *LeagueFixturesProcessor {
	return &LeagueFixturesProcessor{store: store, schedule: schedule}
}

func (p *LeagueFixturesProcessor) Name() string { return "league_fixtures" }

func (p *LeagueFixturesProcessor) Process(ctx context.Context, exec repositories.SQLExecutor, game *models.Game, data *models.SeasonTransitionData) (*models.SeasonTransitionData, error) {
	if !game.ParticipatesIn(data.CompetitionID) {
		return data, nil
	}
	competition, err := p.store.Competitions.GetByID(ctx, data.CompetitionID)
	if err != nil {
		return nil, err
	}
	if competition.Type != models.CompetitionLeague {
		return data, nil
	}
	teams, err := p.store.Participants.ListTeams(ctx, exec, game.ID, data.CompetitionID)
	if err != nil {
		return nil, err
	}
	if len(teams) < 2 {
		return data, nil
	}

	fixtures, err := brackets.NewRoundRobinGenerator(true).GenerateFixtures(teams)
	if err != nil {
		return nil, err
	}
	for _, f := range fixtures {
		date, err := p.schedule.MatchdayDate(data.CompetitionID, data.NewSeason, f.Round)
		if err != nil {
			return nil, err
		}
		match := &models.GameMatch{
			GameID:        game.ID,
			CompetitionID: data.CompetitionID,
			HomeTeamID:    f.HomeTeamID,
			AwayTeamID:    f.AwayTeamID,
			ScheduledDate: date,
			RoundNumber:   f.Round,
			RoundName:     fmt.Sprintf("Matchday %d", f.Round),
		}
		if err := p.store.Matches.Create(ctx, exec, match); err != nil {
			return nil, err
		}
	}
	data.Metadata[MetadataFixtures] = len(fixtures)
	return data, nil
}
