package brackets

import (
	"fmt"
	"sort"
)

// Fixture is one scheduled league match on a 1-based matchday.
type Fixture struct {
	Round      int
	HomeTeamID int
	AwayTeamID int
}

type RoundRobinGenerator struct {
	double bool
}

// NewRoundRobinGenerator builds a circle-method schedule. With double set every
// pairing is played twice, the second half mirroring the first with venues swapped.
func NewRoundRobinGenerator(double bool) *RoundRobinGenerator {
	return &RoundRobinGenerator{double: double}
}

func (g *RoundRobinGenerator) GetName() string {
	return "RoundRobin"
}

// Rounds returns how many matchdays the schedule has for n teams.
func (g *RoundRobinGenerator) Rounds(n int) int {
	if n < 2 {
		return 0
	}
	if n%2 != 0 {
		n++
	}
	rounds := n - 1
	if g.double {
		rounds *= 2
	}
	return rounds
}

// GenerateFixtures returns fixtures ordered by round. With an odd number of
// teams one team rests every matchday.
func (g *RoundRobinGenerator) GenerateFixtures(teamIDs []int) ([]Fixture, error) {
	if len(teamIDs) < 2 {
		return nil, fmt.Errorf("RoundRobinGenerator: not enough teams (found %d, min 2 required)", len(teamIDs))
	}
	if err := checkDistinct(teamIDs); err != nil {
		return nil, err
	}

	const rest = 0
	slots := make([]int, len(teamIDs))
	copy(slots, teamIDs)
	sort.Ints(slots)
	if len(slots)%2 != 0 {
		slots = append(slots, rest)
	}

	n := len(slots)
	single := n - 1
	fixtures := make([]Fixture, 0, g.Rounds(len(teamIDs))*n/2)

	for round := 0; round < single; round++ {
		for i := 0; i < n/2; i++ {
			home, away := slots[i], slots[n-1-i]
			if home == rest || away == rest {
				continue
			}
			// Alternate venues so nobody plays every match at home.
			if (round+i)%2 == 1 {
				home, away = away, home
			}
			fixtures = append(fixtures, Fixture{Round: round + 1, HomeTeamID: home, AwayTeamID: away})
		}
		// Rotate every slot except the first.
		last := slots[n-1]
		copy(slots[2:], slots[1:n-1])
		slots[1] = last
	}

	if g.double {
		firstHalf := len(fixtures)
		for i := 0; i < firstHalf; i++ {
			f := fixtures[i]
			fixtures = append(fixtures, Fixture{Round: f.Round + single, HomeTeamID: f.AwayTeamID, AwayTeamID: f.HomeTeamID})
		}
	}

	return fixtures, nil
}

func checkDistinct(teamIDs []int) error {
	seen := make(map[int]bool, len(teamIDs))
	for _, id := range teamIDs {
		if id <= 0 {
			return fmt.Errorf("RoundRobinGenerator: invalid team id %d", id)
		}
		if seen[id] {
			return fmt.Errorf("%w: team %d", ErrDuplicateTeam, id)
		}
		seen[id] = true
	}
	return nil
}
