package brackets

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotEnoughTeams = errors.New("not enough teams to draw a round (minimum 2)")
	ErrOddTeamCount   = errors.New("knockout round needs an even number of teams")
	ErrDuplicateTeam  = errors.New("team appears twice in one draw")
	ErrUnknownDraw    = errors.New("unknown draw strategy")
)

// Pairing is one drawn tie. HomeTeamID hosts the first (or only) leg.
type Pairing struct {
	BracketPosition int
	HomeTeamID      int
	AwayTeamID      int
}

// DrawParams describes one knockout round to be drawn. Teams are ordered:
// winners of the previous round by bracket position, then the teams entering
// at this round.
type DrawParams struct {
	CompetitionID string
	Round         int
	Teams         []int
	Seed          uint64
}

// DrawStrategy pairs the remaining teams of a knockout round.
type DrawStrategy interface {
	Draw(ctx context.Context, params DrawParams) ([]Pairing, error)

	GetName() string
}

// NewDrawStrategy returns the strategy registered under name. An empty name
// selects the random draw.
func NewDrawStrategy(name string) (DrawStrategy, error) {
	switch name {
	case "", DrawRandom:
		return NewRandomDraw(), nil
	case DrawStraight:
		return NewStraightBracket(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDraw, name)
	}
}

const (
	DrawRandom   = "random"
	DrawStraight = "straight"
)

func validateTeams(teams []int) error {
	if len(teams) < 2 {
		return ErrNotEnoughTeams
	}
	if len(teams)%2 != 0 {
		return fmt.Errorf("%w: got %d", ErrOddTeamCount, len(teams))
	}
	seen := make(map[int]bool, len(teams))
	for _, id := range teams {
		if seen[id] {
			return fmt.Errorf("%w: team %d", ErrDuplicateTeam, id)
		}
		seen[id] = true
	}
	return nil
}

// pairInOrder pairs neighbours: (0,1), (2,3), ...
func pairInOrder(teams []int) []Pairing {
	pairings := make([]Pairing, 0, len(teams)/2)
	for i := 0; i+1 < len(teams); i += 2 {
		pairings = append(pairings, Pairing{
			BracketPosition: i/2 + 1,
			HomeTeamID:      teams[i],
			AwayTeamID:      teams[i+1],
		})
	}
	return pairings
}
