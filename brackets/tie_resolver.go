package brackets

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/season-engine/models"
)

// ErrTieInconsistent marks corrupted tie data: legs that do not belong to the
// tie, swapped teams, or a shoot-out without a winner.
var ErrTieInconsistent = errors.New("cup tie data is inconsistent")

// ExtraTimeResolver plays 30 minutes of extra time on a drawn match. It returns
// the goals scored in extra time only.
type ExtraTimeResolver interface {
	PlayExtraTime(ctx context.Context, match *models.GameMatch, players models.PlayersByTeam) (home, away int, events []models.MatchEventData, err error)
}

// PenaltyResolver runs a shoot-out. The two scores must differ.
type PenaltyResolver interface {
	ShootOut(ctx context.Context, match *models.GameMatch, players models.PlayersByTeam) (home, away int, err error)
}

// Outcome is a decided tie. TieBreakMatch is set when extra time or penalties
// were added to a leg and that leg has to be saved again.
type Outcome struct {
	WinnerID      int
	Resolution    models.TieResolution
	TieBreakMatch *models.GameMatch
}

type TieResolver struct {
	awayGoals bool
	extraTime ExtraTimeResolver
	penalties PenaltyResolver
}

func NewTieResolver(awayGoals bool, extraTime ExtraTimeResolver, penalties PenaltyResolver) *TieResolver {
	return &TieResolver{awayGoals: awayGoals, extraTime: extraTime, penalties: penalties}
}

// Resolve decides a tie from its played legs. It returns nil while the tie
// cannot be decided yet, e.g. only the first leg has been played. Legs are
// looked up by the ids stored on the tie; other matches are ignored.
func (r *TieResolver) Resolve(ctx context.Context, tie *models.CupTie, legs []*models.GameMatch, players models.PlayersByTeam) (*Outcome, error) {
	if tie.Completed {
		return nil, nil
	}
	if tie.FirstLegMatchID == nil {
		return nil, fmt.Errorf("%w: tie %d has no first leg", ErrTieInconsistent, tie.ID)
	}

	byID := make(map[int]*models.GameMatch, len(legs))
	for _, m := range legs {
		byID[m.ID] = m
	}

	first, ok := byID[*tie.FirstLegMatchID]
	if !ok || !first.Played {
		return nil, nil
	}
	if err := checkLeg(tie, first, tie.HomeTeamID, tie.AwayTeamID); err != nil {
		return nil, err
	}

	if !tie.TwoLegged() {
		return r.resolveSingle(ctx, tie, first, players)
	}

	second, ok := byID[*tie.SecondLegMatchID]
	if !ok || !second.Played {
		return nil, nil
	}
	if err := checkLeg(tie, second, tie.AwayTeamID, tie.HomeTeamID); err != nil {
		return nil, err
	}
	return r.resolveTwoLegs(ctx, tie, first, second, players)
}

func checkLeg(tie *models.CupTie, leg *models.GameMatch, host, visitor int) error {
	if leg.CupTieID == nil || *leg.CupTieID != tie.ID {
		return fmt.Errorf("%w: match %d is not a leg of tie %d", ErrTieInconsistent, leg.ID, tie.ID)
	}
	if leg.HomeTeamID != host || leg.AwayTeamID != visitor {
		return fmt.Errorf("%w: match %d has teams %d-%d, tie %d expects %d-%d",
			ErrTieInconsistent, leg.ID, leg.HomeTeamID, leg.AwayTeamID, tie.ID, host, visitor)
	}
	return nil
}

func (r *TieResolver) resolveSingle(ctx context.Context, tie *models.CupTie, match *models.GameMatch, players models.PlayersByTeam) (*Outcome, error) {
	home, away := match.Score()
	res := models.TieResolution{Method: models.ResolvedRegulation, HomeAggregate: home, AwayAggregate: away}
	if home != away {
		return decided(tie, res, nil), nil
	}
	return r.breakTie(ctx, tie, match, res, false, players)
}

func (r *TieResolver) resolveTwoLegs(ctx context.Context, tie *models.CupTie, first, second *models.GameMatch, players models.PlayersByTeam) (*Outcome, error) {
	h1, a1 := first.Score()
	h2, a2 := second.Score()

	// Totals are from the point of view of the tie: "home" hosted the first leg.
	res := models.TieResolution{
		Method:        models.ResolvedRegulation,
		HomeAggregate: h1 + a2,
		AwayAggregate: a1 + h2,
		HomeAwayGoals: a2,
		AwayAwayGoals: a1,
	}
	if res.HomeAggregate != res.AwayAggregate {
		return decided(tie, res, nil), nil
	}

	if r.awayGoals && res.HomeAwayGoals != res.AwayAwayGoals {
		res.Method = models.ResolvedAwayGoals
		return decided(tie, res, nil), nil
	}

	// Extra time and penalties are played on the second leg, hosted by the tie's away side.
	return r.breakTie(ctx, tie, second, res, true, players)
}

// breakTie plays extra time and, if still level, penalties on match. swapped
// is true when match is hosted by the tie's away team.
func (r *TieResolver) breakTie(ctx context.Context, tie *models.CupTie, match *models.GameMatch, res models.TieResolution, swapped bool, players models.PlayersByTeam) (*Outcome, error) {
	updated := *match

	etHome, etAway, played := match.ExtraTimeScore()
	if !played {
		if r.extraTime == nil {
			return nil, fmt.Errorf("tie %d needs extra time but no extra time resolver is configured", tie.ID)
		}
		var (
			events []models.MatchEventData
			err    error
		)
		etHome, etAway, events, err = r.extraTime.PlayExtraTime(ctx, match, players)
		if err != nil {
			return nil, fmt.Errorf("extra time of match %d: %w", match.ID, err)
		}
		updated.HomeScoreET = &etHome
		updated.AwayScoreET = &etAway
		updated.Events = append(append([]models.MatchEventData(nil), match.Events...), events...)
	}

	res.ExtraTimePlayed = true
	if swapped {
		res.HomeAggregate += etAway
		res.AwayAggregate += etHome
	} else {
		res.HomeAggregate += etHome
		res.AwayAggregate += etAway
	}
	if res.HomeAggregate != res.AwayAggregate {
		res.Method = models.ResolvedExtraTime
		return decided(tie, res, &updated), nil
	}

	res.NeedsPenalties = true
	var penHome, penAway int
	if match.HomePenalties != nil && match.AwayPenalties != nil {
		penHome, penAway = *match.HomePenalties, *match.AwayPenalties
	} else {
		if r.penalties == nil {
			return nil, fmt.Errorf("tie %d needs penalties but no penalty resolver is configured", tie.ID)
		}
		var err error
		penHome, penAway, err = r.penalties.ShootOut(ctx, match, players)
		if err != nil {
			return nil, fmt.Errorf("penalties of match %d: %w", match.ID, err)
		}
		storedHome, storedAway := penHome, penAway
		updated.HomePenalties = &storedHome
		updated.AwayPenalties = &storedAway
	}
	if penHome == penAway {
		return nil, fmt.Errorf("%w: shoot-out of match %d ended %d-%d", ErrTieInconsistent, match.ID, penHome, penAway)
	}

	if swapped {
		penHome, penAway = penAway, penHome
	}
	res.Method = models.ResolvedPenalties
	res.HomePenalties = &penHome
	res.AwayPenalties = &penAway
	return decided(tie, res, &updated), nil
}

// decided picks the winner from the tie-oriented totals in res.
func decided(tie *models.CupTie, res models.TieResolution, tieBreak *models.GameMatch) *Outcome {
	homeWins := res.HomeAggregate > res.AwayAggregate
	switch res.Method {
	case models.ResolvedAwayGoals:
		homeWins = res.HomeAwayGoals > res.AwayAwayGoals
	case models.ResolvedPenalties:
		homeWins = *res.HomePenalties > *res.AwayPenalties
	}

	winner := tie.AwayTeamID
	if homeWins {
		winner = tie.HomeTeamID
	}
	return &Outcome{WinnerID: winner, Resolution: res, TieBreakMatch: tieBreak}
}
