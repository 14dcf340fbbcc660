package services

import (
	"context"
	"log/slog"

	"github.com/Dosada05/season-engine/models"
)

// generatePlayoffRound creates the next playoff round of a league once the
// regular season is fully played and the previous playoff round is decided.
// In every other situation it does nothing and returns no ties.
func (p *progression) generatePlayoffRound(ctx context.Context, u *unitOfWork, game *models.Game, competitionID string) ([]*models.CupTie, error) {
	gen, err := p.playoffFor(competitionID)
	if err != nil {
		return nil, err
	}

	unplayed, err := p.store.Matches.CountUnplayedLeague(ctx, u.exec, game.ID, competitionID)
	if err != nil {
		return nil, err
	}
	if unplayed > 0 {
		return nil, nil
	}
	lastMatchday, err := p.store.Matches.MaxLeagueRound(ctx, u.exec, game.ID, competitionID)
	if err != nil {
		return nil, err
	}
	if lastMatchday == 0 || lastMatchday < gen.TriggerMatchday() {
		return nil, nil
	}

	last, err := p.store.CupTies.MaxRound(ctx, u.exec, game.ID, competitionID)
	if err != nil {
		return nil, err
	}
	round := last + 1
	if round > gen.TotalRounds() {
		return nil, nil
	}
	if last > 0 {
		previous, err := p.store.CupTies.ListByRound(ctx, u.exec, game.ID, competitionID, last)
		if err != nil {
			return nil, err
		}
		for _, t := range previous {
			if !t.Completed {
				return nil, nil
			}
		}
	}

	pairings, err := gen.GenerateMatchups(ctx, p.source(u.exec), game.ID, round)
	if err != nil {
		return nil, classify(err)
	}
	rc, err := gen.RoundConfig(game.Season, round)
	if err != nil {
		return nil, classify(err)
	}
	ties, err := p.createTies(ctx, u, game, competitionID, rc, pairings)
	if err != nil {
		return nil, err
	}

	event := models.NewDomainEvent(models.EventPlayoffGenerated, game.ID, competitionID)
	event.Ties = ties
	if err := u.emit(ctx, event); err != nil {
		return nil, err
	}
	if err := u.logTransition(ctx, game, TransitionPlayoffGenerated, roundPayload{CompetitionID: competitionID, Round: round, Ties: tieSummaries(ties)}); err != nil {
		return nil, err
	}
	p.logger.InfoContext(ctx, "playoff round generated",
		slog.Int("game_id", game.ID),
		slog.String("competition_id", competitionID),
		slog.Int("round", round),
		slog.String("name", rc.Name))
	return ties, nil
}
