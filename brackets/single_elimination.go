package brackets

import (
	"context"
	"math/rand"
)

// StraightBracket keeps the bracket path: the winner of tie 1 meets the winner
// of tie 2, and so on. Teams entering at this round fill the slots after them.
type StraightBracket struct{}

func NewStraightBracket() DrawStrategy {
	return &StraightBracket{}
}

func (g *StraightBracket) GetName() string {
	return "StraightBracket"
}

func (g *StraightBracket) Draw(ctx context.Context, params DrawParams) ([]Pairing, error) {
	if err := validateTeams(params.Teams); err != nil {
		return nil, err
	}
	return pairInOrder(params.Teams), nil
}

// RandomDraw shuffles the teams with a seeded source, so the same seed and the
// same team order always produce the same pairings.
type RandomDraw struct{}

func NewRandomDraw() DrawStrategy {
	return &RandomDraw{}
}

func (g *RandomDraw) GetName() string {
	return "RandomDraw"
}

func (g *RandomDraw) Draw(ctx context.Context, params DrawParams) ([]Pairing, error) {
	if err := validateTeams(params.Teams); err != nil {
		return nil, err
	}

	shuffled := make([]int, len(params.Teams))
	copy(shuffled, params.Teams)

	rng := rand.New(rand.NewSource(int64(params.Seed)))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	return pairInOrder(shuffled), nil
}
