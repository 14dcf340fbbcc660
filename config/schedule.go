package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/season-engine/models"
)

// ErrMissingScheduleEntry means the calendar has no entry the engine needs.
// It is a deployment/data error and is never retried.
var ErrMissingScheduleEntry = errors.New("missing schedule entry")

type scheduleKey struct {
	competition string
	season      string
}

type roundEntry struct {
	config   models.PlayoffRoundConfig
	entrants []int
}

// Schedule is the read-only calendar for every competition and season.
type Schedule struct {
	matchdays map[scheduleKey][]time.Time
	rounds    map[scheduleKey]map[int]roundEntry
}

// NewSchedule builds the calendar from an already validated competitions file.
func NewSchedule(file *CompetitionsFile) (*Schedule, error) {
	s := &Schedule{
		matchdays: make(map[scheduleKey][]time.Time),
		rounds:    make(map[scheduleKey]map[int]roundEntry),
	}
	for _, sc := range file.Schedules {
		key := scheduleKey{competition: sc.Competition, season: sc.Season}

		dates := make([]time.Time, 0, len(sc.Matchdays))
		for _, d := range sc.Matchdays {
			t, err := time.Parse(dateLayout, d)
			if err != nil {
				return nil, fmt.Errorf("schedule %s/%s: %w", sc.Competition, sc.Season, err)
			}
			dates = append(dates, t)
		}
		s.matchdays[key] = dates

		rounds := make(map[int]roundEntry, len(sc.Rounds))
		for _, r := range sc.Rounds {
			first, err := time.Parse(dateLayout, r.FirstLegDate)
			if err != nil {
				return nil, fmt.Errorf("schedule %s/%s round %d: %w", sc.Competition, sc.Season, r.Round, err)
			}
			cfg := models.PlayoffRoundConfig{
				Round:        r.Round,
				Name:         r.Name,
				TwoLegged:    r.TwoLegged,
				FirstLegDate: first,
			}
			if r.TwoLegged {
				second, err := time.Parse(dateLayout, r.SecondLegDate)
				if err != nil {
					return nil, fmt.Errorf("schedule %s/%s round %d: %w", sc.Competition, sc.Season, r.Round, err)
				}
				cfg.SecondLegDate = &second
			}
			rounds[r.Round] = roundEntry{config: cfg, entrants: append([]int(nil), r.Entrants...)}
		}
		s.rounds[key] = rounds
	}
	return s, nil
}

// RoundConfig returns the knockout round definition for a competition and season.
func (s *Schedule) RoundConfig(competitionID, season string, round int) (models.PlayoffRoundConfig, error) {
	rounds, ok := s.rounds[scheduleKey{competitionID, season}]
	if !ok {
		return models.PlayoffRoundConfig{}, fmt.Errorf("%w: no rounds for %s season %s", ErrMissingScheduleEntry, competitionID, season)
	}
	entry, ok := rounds[round]
	if !ok {
		return models.PlayoffRoundConfig{}, fmt.Errorf("%w: round %d of %s season %s", ErrMissingScheduleEntry, round, competitionID, season)
	}
	return entry.config, nil
}

// TotalRounds returns the number of knockout rounds configured for the season.
func (s *Schedule) TotalRounds(competitionID, season string) int {
	return len(s.rounds[scheduleKey{competitionID, season}])
}

// Entrants lists the teams that join the competition at the given round.
func (s *Schedule) Entrants(competitionID, season string, round int) []int {
	entry, ok := s.rounds[scheduleKey{competitionID, season}][round]
	if !ok {
		return nil
	}
	return append([]int(nil), entry.entrants...)
}

// MatchdayDate returns the date of a 1-based league matchday.
func (s *Schedule) MatchdayDate(competitionID, season string, matchday int) (time.Time, error) {
	dates, ok := s.matchdays[scheduleKey{competitionID, season}]
	if !ok || matchday < 1 || matchday > len(dates) {
		return time.Time{}, fmt.Errorf("%w: matchday %d of %s season %s", ErrMissingScheduleEntry, matchday, competitionID, season)
	}
	return dates[matchday-1], nil
}

// Matchdays returns how many league matchdays the season has.
func (s *Schedule) Matchdays(competitionID, season string) int {
	return len(s.matchdays[scheduleKey{competitionID, season}])
}
