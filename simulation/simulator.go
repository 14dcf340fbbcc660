// Package simulation produces match results. The engine only depends on the
// MatchSimulator contract; RatingSimulator is the built-in rating-based model.
package simulation

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"sort"

	"github.com/Dosada05/season-engine/models"
)

const (
	LineupSize       = 11
	defaultAbility   = 50
	homeGoalRate     = 1.45
	awayGoalRate     = 1.10
	extraTimeFactor  = 1.0 / 3.0
	ownGoalChance    = 0.04
	assistChance     = 0.7
	yellowCardRate   = 1.8
	redCardChance    = 0.05
	injuryChance     = 0.08
	penaltyBaseScore = 0.76
)

// MatchSimulator plays one fixture. It is called once per unplayed match and
// must be safe for concurrent use.
type MatchSimulator interface {
	Simulate(ctx context.Context, match *models.GameMatch, home, away *models.Lineup) (*models.MatchResult, error)
}

// PickLineup takes the strongest eleven of a squad.
func PickLineup(teamID int, squad []*models.Player) *models.Lineup {
	players := append([]*models.Player(nil), squad...)
	sort.SliceStable(players, func(i, j int) bool {
		if players[i].Ability != players[j].Ability {
			return players[i].Ability > players[j].Ability
		}
		return players[i].ID < players[j].ID
	})
	if len(players) > LineupSize {
		players = players[:LineupSize]
	}
	return &models.Lineup{TeamID: teamID, Formation: "4-4-2", Mentality: "balanced", Players: players}
}

// Strength is the average ability of a lineup.
func Strength(l *models.Lineup) float64 {
	if l == nil || len(l.Players) == 0 {
		return defaultAbility
	}
	total := 0
	for _, p := range l.Players {
		total += p.Ability
	}
	return float64(total) / float64(len(l.Players))
}

// RatingSimulator derives goal expectations from lineup strength. Results are
// deterministic for a given seed and match id.
type RatingSimulator struct {
	seed int64
}

func NewRatingSimulator(seed int64) *RatingSimulator {
	return &RatingSimulator{seed: seed}
}

func (s *RatingSimulator) rng(matchID int, salt string) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(salt))
	mixed := s.seed ^ int64(h.Sum64()) ^ int64(matchID)*0x9E3779B1
	return rand.New(rand.NewSource(mixed))
}

func (s *RatingSimulator) Simulate(ctx context.Context, match *models.GameMatch, home, away *models.Lineup) (*models.MatchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rng := s.rng(match.ID, "regulation")
	homeRate, awayRate := goalRates(home, away)

	result := &models.MatchResult{
		MatchID:   match.ID,
		HomeScore: poisson(rng, homeRate),
		AwayScore: poisson(rng, awayRate),
	}
	result.Events = append(result.Events, goalEvents(rng, result.HomeScore, home, away, 1, 90)...)
	result.Events = append(result.Events, goalEvents(rng, result.AwayScore, away, home, 1, 90)...)
	result.Events = append(result.Events, disciplineEvents(rng, home)...)
	result.Events = append(result.Events, disciplineEvents(rng, away)...)
	sortEvents(result.Events)
	return result, nil
}

// PlayExtraTime plays 30 more minutes on a drawn match.
func (s *RatingSimulator) PlayExtraTime(ctx context.Context, match *models.GameMatch, players models.PlayersByTeam) (int, int, []models.MatchEventData, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, nil, err
	}
	rng := s.rng(match.ID, "extra_time")
	home := PickLineup(match.HomeTeamID, players[match.HomeTeamID])
	away := PickLineup(match.AwayTeamID, players[match.AwayTeamID])
	homeRate, awayRate := goalRates(home, away)

	homeGoals := poisson(rng, homeRate*extraTimeFactor)
	awayGoals := poisson(rng, awayRate*extraTimeFactor)
	events := append(goalEvents(rng, homeGoals, home, away, 91, 120), goalEvents(rng, awayGoals, away, home, 91, 120)...)
	sortEvents(events)
	return homeGoals, awayGoals, events, nil
}

// ShootOut takes five kicks each, then sudden death.
func (s *RatingSimulator) ShootOut(ctx context.Context, match *models.GameMatch, players models.PlayersByTeam) (int, int, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	rng := s.rng(match.ID, "penalties")
	homeChance := kickChance(PickLineup(match.HomeTeamID, players[match.HomeTeamID]))
	awayChance := kickChance(PickLineup(match.AwayTeamID, players[match.AwayTeamID]))

	home, away := 0, 0
	for kick := 0; kick < 5; kick++ {
		if rng.Float64() < homeChance {
			home++
		}
		if rng.Float64() < awayChance {
			away++
		}
	}
	for rounds := 0; home == away; rounds++ {
		if rounds >= 50 {
			if rng.Intn(2) == 0 {
				home++
			} else {
				away++
			}
			break
		}
		if rng.Float64() < homeChance {
			home++
		}
		if rng.Float64() < awayChance {
			away++
		}
	}
	return home, away, nil
}

func goalRates(home, away *models.Lineup) (float64, float64) {
	ratio := Strength(home) / Strength(away)
	homeRate := homeGoalRate * math.Pow(ratio, 1.5)
	awayRate := awayGoalRate * math.Pow(1/ratio, 1.5)
	return clamp(homeRate, 0.2, 4.5), clamp(awayRate, 0.2, 4.5)
}

func kickChance(l *models.Lineup) float64 {
	return clamp(penaltyBaseScore+(Strength(l)-defaultAbility)/500, 0.6, 0.9)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// poisson samples with Knuth's method; rates here are small.
func poisson(rng *rand.Rand, lambda float64) int {
	limit := math.Exp(-lambda)
	k := 0
	p := rng.Float64()
	for p > limit {
		k++
		p *= rng.Float64()
	}
	return k
}

// goalEvents credits goals goals to scoring. An own goal is recorded against a
// player of the conceding side, with that side's team id.
func goalEvents(rng *rand.Rand, goals int, scoring, conceding *models.Lineup, from, to int) []models.MatchEventData {
	events := make([]models.MatchEventData, 0, goals*2)
	for i := 0; i < goals; i++ {
		minute := from + rng.Intn(to-from+1)
		if rng.Float64() < ownGoalChance && len(conceding.Players) > 0 {
			events = append(events, models.MatchEventData{
				TeamID:   conceding.TeamID,
				PlayerID: randomPlayer(rng, conceding),
				Minute:   minute,
				Type:     models.EventOwnGoal,
			})
			continue
		}
		scorer := randomPlayer(rng, scoring)
		events = append(events, models.MatchEventData{
			TeamID:   scoring.TeamID,
			PlayerID: scorer,
			Minute:   minute,
			Type:     models.EventGoal,
		})
		if len(scoring.Players) > 1 && rng.Float64() < assistChance {
			assist := randomPlayer(rng, scoring)
			if assist != scorer {
				events = append(events, models.MatchEventData{
					TeamID:   scoring.TeamID,
					PlayerID: assist,
					Minute:   minute,
					Type:     models.EventAssist,
				})
			}
		}
	}
	return events
}

func disciplineEvents(rng *rand.Rand, l *models.Lineup) []models.MatchEventData {
	if len(l.Players) == 0 {
		return nil
	}
	events := make([]models.MatchEventData, 0)
	for i := poisson(rng, yellowCardRate); i > 0; i-- {
		events = append(events, models.MatchEventData{
			TeamID: l.TeamID, PlayerID: randomPlayer(rng, l), Minute: 1 + rng.Intn(90), Type: models.EventYellowCard,
		})
	}
	if rng.Float64() < redCardChance {
		events = append(events, models.MatchEventData{
			TeamID: l.TeamID, PlayerID: randomPlayer(rng, l), Minute: 1 + rng.Intn(90), Type: models.EventRedCard,
		})
	}
	if rng.Float64() < injuryChance {
		events = append(events, models.MatchEventData{
			TeamID: l.TeamID, PlayerID: randomPlayer(rng, l), Minute: 1 + rng.Intn(90), Type: models.EventInjury,
		})
	}
	return events
}

func randomPlayer(rng *rand.Rand, l *models.Lineup) int {
	if len(l.Players) == 0 {
		return 0
	}
	return l.Players[rng.Intn(len(l.Players))].ID
}

func sortEvents(events []models.MatchEventData) {
	sort.SliceStable(events, func(i, j int) bool { return events[i].Minute < events[j].Minute })
}
