package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Dosada05/season-engine/brackets"
	"github.com/Dosada05/season-engine/models"
)

type tieSummary struct {
	TieID           int `json:"tie_id"`
	BracketPosition int `json:"bracket_position"`
	HomeTeamID      int `json:"home_team_id"`
	AwayTeamID      int `json:"away_team_id"`
}

type roundPayload struct {
	CompetitionID string       `json:"competition_id"`
	Round         int          `json:"round"`
	Ties          []tieSummary `json:"ties"`
}

type tieResolvedPayload struct {
	CompetitionID string               `json:"competition_id"`
	TieID         int                  `json:"tie_id"`
	WinnerID      int                  `json:"winner_id"`
	Resolution    models.TieResolution `json:"resolution"`
}

func tieSummaries(ties []*models.CupTie) []tieSummary {
	out := make([]tieSummary, 0, len(ties))
	for _, t := range ties {
		out = append(out, tieSummary{TieID: t.ID, BracketPosition: t.BracketPosition, HomeTeamID: t.HomeTeamID, AwayTeamID: t.AwayTeamID})
	}
	return out
}

// createTies stores one tie per pairing together with its legs. The pairing's
// home team hosts the first leg; the second leg swaps venues.
func (p *progression) createTies(ctx context.Context, u *unitOfWork, game *models.Game, competitionID string, rc models.PlayoffRoundConfig, pairings []brackets.Pairing) ([]*models.CupTie, error) {
	if rc.TwoLegged && rc.SecondLegDate == nil {
		return nil, fmt.Errorf("%w: round %d of %s is two-legged but has no second leg date", ErrConfiguration, rc.Round, competitionID)
	}

	ties := make([]*models.CupTie, 0, len(pairings))
	for _, pr := range pairings {
		tie := &models.CupTie{
			GameID:          game.ID,
			CompetitionID:   competitionID,
			RoundNumber:     rc.Round,
			BracketPosition: pr.BracketPosition,
			HomeTeamID:      pr.HomeTeamID,
			AwayTeamID:      pr.AwayTeamID,
		}
		if err := p.store.CupTies.Create(ctx, u.exec, tie); err != nil {
			return nil, fmt.Errorf("failed to create tie %d-%d: %w", pr.HomeTeamID, pr.AwayTeamID, err)
		}
		tieID := tie.ID

		first := &models.GameMatch{
			GameID:        game.ID,
			CompetitionID: competitionID,
			HomeTeamID:    pr.HomeTeamID,
			AwayTeamID:    pr.AwayTeamID,
			ScheduledDate: rc.FirstLegDate,
			RoundNumber:   rc.Round,
			RoundName:     rc.Name,
			CupTieID:      &tieID,
		}
		if err := p.store.Matches.Create(ctx, u.exec, first); err != nil {
			return nil, fmt.Errorf("failed to create first leg of tie %d: %w", tie.ID, err)
		}
		firstID := first.ID
		tie.FirstLegMatchID = &firstID

		if rc.TwoLegged {
			second := &models.GameMatch{
				GameID:        game.ID,
				CompetitionID: competitionID,
				HomeTeamID:    pr.AwayTeamID,
				AwayTeamID:    pr.HomeTeamID,
				ScheduledDate: *rc.SecondLegDate,
				RoundNumber:   rc.Round,
				RoundName:     rc.Name,
				CupTieID:      &tieID,
			}
			if err := p.store.Matches.Create(ctx, u.exec, second); err != nil {
				return nil, fmt.Errorf("failed to create second leg of tie %d: %w", tie.ID, err)
			}
			secondID := second.ID
			tie.SecondLegMatchID = &secondID
		}

		if err := p.store.CupTies.SetLegs(ctx, u.exec, tie); err != nil {
			return nil, err
		}
		ties = append(ties, tie)
	}
	return ties, nil
}

// resolveTies completes every open tie whose legs have all been played. Ties
// that cannot be decided yet are left open.
func (p *progression) resolveTies(ctx context.Context, u *unitOfWork, game *models.Game, competitionID string, awayGoals bool, players models.PlayersByTeam) ([]*models.CupTie, error) {
	open, err := p.store.CupTies.ListOpen(ctx, u.exec, game.ID, competitionID)
	if err != nil {
		return nil, err
	}
	resolver := brackets.NewTieResolver(awayGoals, p.tieBreaker, p.tieBreaker)

	resolved := make([]*models.CupTie, 0)
	for _, tie := range open {
		legIDs := make([]int, 0, 2)
		if tie.FirstLegMatchID != nil {
			legIDs = append(legIDs, *tie.FirstLegMatchID)
		}
		if tie.SecondLegMatchID != nil {
			legIDs = append(legIDs, *tie.SecondLegMatchID)
		}
		legs, err := p.store.Matches.ListByIDs(ctx, u.exec, legIDs)
		if err != nil {
			return nil, err
		}
		if !allPlayed(legs, len(legIDs)) {
			continue
		}

		squads, err := p.squads(ctx, u, players, tie.HomeTeamID, tie.AwayTeamID)
		if err != nil {
			return nil, err
		}
		outcome, err := resolver.Resolve(ctx, tie, legs, squads)
		if err != nil {
			return nil, classify(fmt.Errorf("failed to resolve tie %d: %w", tie.ID, err))
		}
		if outcome == nil {
			continue
		}

		deciding := legs[len(legs)-1]
		if outcome.TieBreakMatch != nil {
			if err := p.store.Matches.SaveTieBreak(ctx, u.exec, outcome.TieBreakMatch); err != nil {
				return nil, err
			}
			deciding = outcome.TieBreakMatch
		}

		winner := outcome.WinnerID
		resolution := outcome.Resolution
		tie.WinnerID = &winner
		tie.Completed = true
		tie.Resolution = &resolution
		if err := p.store.CupTies.Complete(ctx, u.exec, tie); err != nil {
			return nil, classify(err)
		}

		event := models.NewDomainEvent(models.EventCupTieResolved, game.ID, competitionID)
		event.Tie = tie
		event.Match = deciding
		if err := u.emit(ctx, event); err != nil {
			return nil, err
		}
		if err := u.logTransition(ctx, game, TransitionTieResolved, tieResolvedPayload{
			CompetitionID: competitionID, TieID: tie.ID, WinnerID: winner, Resolution: resolution,
		}); err != nil {
			return nil, err
		}
		p.logger.InfoContext(ctx, "cup tie resolved",
			slog.Int("game_id", game.ID),
			slog.Int("tie_id", tie.ID),
			slog.Int("winner_id", winner),
			slog.String("method", string(resolution.Method)))
		resolved = append(resolved, tie)
	}
	return resolved, nil
}

func allPlayed(legs []*models.GameMatch, want int) bool {
	if len(legs) != want {
		return false
	}
	for _, m := range legs {
		if !m.Played {
			return false
		}
	}
	return true
}
