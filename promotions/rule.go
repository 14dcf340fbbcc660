// Package promotions evaluates which teams move between two divisions at the
// end of a season. Evaluation is read-only; moving teams is left to the caller.
package promotions

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/season-engine/config"
	"github.com/Dosada05/season-engine/models"
	"github.com/Dosada05/season-engine/playoffs"
)

var (
	ErrNoFinishingOrder = errors.New("division has neither real standings nor a simulated season")
	ErrPositionMissing  = errors.New("finishing order has no team at a required position")
	ErrUnknownPlayoff   = errors.New("promotion rule references an unknown playoff")
)

// Source is the read access a rule needs. SimulatedSeason returns nil when the
// division has no precomputed finishing order.
type Source interface {
	playoffs.Source
	SimulatedSeason(ctx context.Context, gameID int, competitionID, season string) (*models.SimulatedSeason, error)
}

type Rule struct {
	topDivision    string
	bottomDivision string
	relegated      []int
	direct         []int
	playoff        playoffs.Generator
}

// NewRule builds a rule between two divisions. playoff may be nil.
func NewRule(top, bottom string, relegated, direct []int, playoff playoffs.Generator) *Rule {
	return &Rule{
		topDivision:    top,
		bottomDivision: bottom,
		relegated:      append([]int(nil), relegated...),
		direct:         append([]int(nil), direct...),
		playoff:        playoff,
	}
}

// BuildRules turns validated configuration into rules, resolving playoff ids
// against the already built generators.
func BuildRules(file *config.CompetitionsFile, generators map[string]playoffs.Generator) ([]*Rule, error) {
	rules := make([]*Rule, 0, len(file.PromotionRules))
	for _, cfg := range file.PromotionRules {
		var playoff playoffs.Generator
		if cfg.Playoff != "" {
			g, ok := generators[cfg.Playoff]
			if !ok {
				return nil, fmt.Errorf("%w: %s (%s/%s)", ErrUnknownPlayoff, cfg.Playoff, cfg.TopDivision, cfg.BottomDivision)
			}
			playoff = g
		}
		rules = append(rules, NewRule(cfg.TopDivision, cfg.BottomDivision, cfg.RelegatedPositions, cfg.DirectPromotionPositions, playoff))
	}
	return rules, nil
}

func (r *Rule) TopDivision() string    { return r.topDivision }
func (r *Rule) BottomDivision() string { return r.bottomDivision }
func (r *Rule) HasPlayoff() bool       { return r.playoff != nil }

// PromotedCount is the fixed number of teams going up.
func (r *Rule) PromotedCount() int {
	n := len(r.direct)
	if r.playoff != nil {
		n++
	}
	return n
}

// finishingOrder maps position to team for a division. real is false when the
// order comes from a simulated season.
func (r *Rule) finishingOrder(ctx context.Context, src Source, game *models.Game, competitionID string) (order map[int]int, real bool, err error) {
	table, err := src.Standings(ctx, game.ID, competitionID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read standings of %s: %w", competitionID, err)
	}
	if len(table) > 0 {
		order = make(map[int]int, len(table))
		for _, row := range table {
			order[row.Position] = row.TeamID
		}
		return order, true, nil
	}

	simulated, err := src.SimulatedSeason(ctx, game.ID, competitionID, game.Season)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read simulated season of %s: %w", competitionID, err)
	}
	if simulated == nil {
		return nil, false, fmt.Errorf("%w: %s season %s", ErrNoFinishingOrder, competitionID, game.Season)
	}
	order = make(map[int]int, len(simulated.Results))
	for i, teamID := range simulated.Results {
		order[i+1] = teamID
	}
	return order, false, nil
}

func pick(order map[int]int, positions []int, competitionID string) ([]int, error) {
	teams := make([]int, 0, len(positions))
	for _, pos := range positions {
		id, ok := order[pos]
		if !ok {
			return nil, fmt.Errorf("%w: position %d of %s", ErrPositionMissing, pos, competitionID)
		}
		teams = append(teams, id)
	}
	return teams, nil
}

// PromotedTeams returns the teams leaving the bottom division, in order: the
// direct slots, then the playoff winner (or the next-placed team while the
// playoff final is undecided). Simulated divisions never model playoffs and
// promote their top PromotedCount teams.
func (r *Rule) PromotedTeams(ctx context.Context, src Source, game *models.Game) ([]int, error) {
	order, real, err := r.finishingOrder(ctx, src, game, r.bottomDivision)
	if err != nil {
		return nil, err
	}

	if !real {
		positions := make([]int, r.PromotedCount())
		for i := range positions {
			positions[i] = i + 1
		}
		return pick(order, positions, r.bottomDivision)
	}

	promoted, err := pick(order, r.direct, r.bottomDivision)
	if err != nil {
		return nil, err
	}
	if r.playoff == nil {
		return promoted, nil
	}

	taken := make(map[int]bool, len(promoted)+1)
	for _, id := range promoted {
		taken[id] = true
	}

	winner, decided, err := r.playoff.Winner(ctx, src, game.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read playoff winner of %s: %w", r.bottomDivision, err)
	}
	if decided && !taken[winner] {
		return append(promoted, winner), nil
	}

	// Fallback keeps the promotion count fixed: next position beyond the direct slots.
	next := 1
	for _, pos := range r.direct {
		if pos >= next {
			next = pos + 1
		}
	}
	for ; ; next++ {
		id, ok := order[next]
		if !ok {
			return nil, fmt.Errorf("%w: no fallback promotion candidate in %s", ErrPositionMissing, r.bottomDivision)
		}
		if !taken[id] {
			return append(promoted, id), nil
		}
	}
}

// RelegatedTeams returns the teams leaving the top division.
func (r *Rule) RelegatedTeams(ctx context.Context, src Source, game *models.Game) ([]int, error) {
	order, _, err := r.finishingOrder(ctx, src, game, r.topDivision)
	if err != nil {
		return nil, err
	}
	return pick(order, r.relegated, r.topDivision)
}
