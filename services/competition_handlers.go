package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Dosada05/season-engine/models"
)

type (
	batchFunc  func(ctx context.Context, p *progression, u *unitOfWork, game *models.Game, anchor *models.GameMatch) ([]*models.GameMatch, error)
	beforeFunc func(ctx context.Context, p *progression, u *unitOfWork, game *models.Game, competitionID string, targetDate time.Time) error
	afterFunc  func(ctx context.Context, p *progression, u *unitOfWork, game *models.Game, competitionID string, played []*models.GameMatch, players models.PlayersByTeam) error
)

// competitionHandler is the batching and hook behaviour of one handler type.
//
// matchBatch returns every unplayed match that is resolved together with the
// anchor; an empty batch means nothing to advance for this competition.
// beforeMatches runs before a batch is simulated and afterMatches once the
// batch is durable. Both hooks are idempotent, so they can be re-run after a
// crash between the batch commit and the hooks.
type competitionHandler struct {
	handlerType   models.HandlerType
	matchBatch    batchFunc
	beforeMatches beforeFunc
	afterMatches  afterFunc
	redirect      func(game *models.Game, competitionID string) string
}

var competitionHandlers = map[models.HandlerType]competitionHandler{
	models.HandlerLeague: {
		handlerType:   models.HandlerLeague,
		matchBatch:    roundBatch,
		beforeMatches: noBeforeMatches,
		afterMatches:  noAfterMatches, // standings follow match_finalized
		redirect:      standingsView,
	},
	models.HandlerKnockoutCup: {
		handlerType:   models.HandlerKnockoutCup,
		matchBatch:    dateBatch,
		beforeMatches: noBeforeMatches,
		afterMatches:  knockoutAfterMatches,
		redirect:      tiesView,
	},
	models.HandlerLeagueWithPlayoff: {
		handlerType:   models.HandlerLeagueWithPlayoff,
		matchBatch:    roundOrDateBatch,
		beforeMatches: playoffBeforeMatches,
		afterMatches:  playoffAfterMatches,
		redirect:      standingsView,
	},
	models.HandlerGroupStageCup: {
		handlerType:   models.HandlerGroupStageCup,
		matchBatch:    roundBatch,
		beforeMatches: noBeforeMatches,
		afterMatches:  noAfterMatches,
		redirect:      standingsView,
	},
}

func handlerFor(t models.HandlerType) (competitionHandler, error) {
	h, ok := competitionHandlers[t]
	if !ok {
		return competitionHandler{}, fmt.Errorf("%w: unknown handler type %q", ErrConfiguration, t)
	}
	return h, nil
}

func roundBatch(ctx context.Context, p *progression, u *unitOfWork, game *models.Game, anchor *models.GameMatch) ([]*models.GameMatch, error) {
	return p.store.Matches.ListUnplayedByRound(ctx, u.exec, game.ID, anchor.CompetitionID, anchor.RoundNumber)
}

func dateBatch(ctx context.Context, p *progression, u *unitOfWork, game *models.Game, anchor *models.GameMatch) ([]*models.GameMatch, error) {
	return p.store.Matches.ListUnplayedTieLegsByDate(ctx, u.exec, game.ID, anchor.CompetitionID, anchor.ScheduledDate)
}

// roundOrDateBatch: regular-season matches go by round, playoff legs by date.
func roundOrDateBatch(ctx context.Context, p *progression, u *unitOfWork, game *models.Game, anchor *models.GameMatch) ([]*models.GameMatch, error) {
	if anchor.IsCupTieMatch() {
		return dateBatch(ctx, p, u, game, anchor)
	}
	return roundBatch(ctx, p, u, game, anchor)
}

func noBeforeMatches(context.Context, *progression, *unitOfWork, *models.Game, string, time.Time) error {
	return nil
}

func noAfterMatches(context.Context, *progression, *unitOfWork, *models.Game, string, []*models.GameMatch, models.PlayersByTeam) error {
	return nil
}

func knockoutAfterMatches(ctx context.Context, p *progression, u *unitOfWork, game *models.Game, competitionID string, _ []*models.GameMatch, players models.PlayersByTeam) error {
	cfg, err := p.competitionConfig(competitionID)
	if err != nil {
		return err
	}
	if _, err := p.resolveTies(ctx, u, game, competitionID, cfg.AwayGoals, players); err != nil {
		return err
	}
	_, err = p.drawIfReady(ctx, u, game, competitionID)
	return err
}

func playoffBeforeMatches(ctx context.Context, p *progression, u *unitOfWork, game *models.Game, competitionID string, _ time.Time) error {
	_, err := p.generatePlayoffRound(ctx, u, game, competitionID)
	return err
}

func playoffAfterMatches(ctx context.Context, p *progression, u *unitOfWork, game *models.Game, competitionID string, _ []*models.GameMatch, players models.PlayersByTeam) error {
	gen, err := p.playoffFor(competitionID)
	if err != nil {
		return err
	}
	_, err = p.resolveTies(ctx, u, game, competitionID, gen.AwayGoals(), players)
	return err
}

func standingsView(game *models.Game, competitionID string) string {
	return fmt.Sprintf("/games/%d/competitions/%s/standings", game.ID, competitionID)
}

func tiesView(game *models.Game, competitionID string) string {
	return fmt.Sprintf("/games/%d/competitions/%s/ties", game.ID, competitionID)
}
