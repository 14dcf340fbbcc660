package models

import "time"

type EventType string

const (
	EventGoal       EventType = "goal"
	EventOwnGoal    EventType = "own_goal"
	EventAssist     EventType = "assist"
	EventYellowCard EventType = "yellow_card"
	EventRedCard    EventType = "red_card"
	EventInjury     EventType = "injury"
)

func (t EventType) Valid() bool {
	switch t {
	case EventGoal, EventOwnGoal, EventAssist, EventYellowCard, EventRedCard, EventInjury:
		return true
	}
	return false
}

// MatchEventData is one timestamped event produced by the match simulator.
// For an own goal TeamID is the team of the player who put the ball in his own net.
type MatchEventData struct {
	TeamID   int                    `json:"team_id"`
	PlayerID int                    `json:"player_id"`
	Minute   int                    `json:"minute"`
	Type     EventType              `json:"type"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// MatchResult is what the simulator returns for a single fixture.
type MatchResult struct {
	MatchID   int              `json:"match_id"`
	HomeScore int              `json:"home_score"`
	AwayScore int              `json:"away_score"`
	Events    []MatchEventData `json:"events"`
}

// GameMatch is a scheduled match inside one game.
type GameMatch struct {
	ID            int       `json:"id" db:"id"`
	GameID        int       `json:"game_id" db:"game_id"`
	CompetitionID string    `json:"competition_id" db:"competition_id"`
	HomeTeamID    int       `json:"home_team_id" db:"home_team_id"`
	AwayTeamID    int       `json:"away_team_id" db:"away_team_id"`
	ScheduledDate time.Time `json:"scheduled_date" db:"scheduled_date"`
	RoundNumber   int       `json:"round_number" db:"round_number"`
	RoundName     string    `json:"round_name,omitempty" db:"round_name"`
	GroupLabel    string    `json:"group_label,omitempty" db:"group_label"`
	CupTieID      *int      `json:"cup_tie_id,omitempty" db:"cup_tie_id"`

	Played        bool             `json:"played" db:"played"`
	HomeScore     *int             `json:"home_score,omitempty" db:"home_score"`
	AwayScore     *int             `json:"away_score,omitempty" db:"away_score"`
	HomeScoreET   *int             `json:"home_score_et,omitempty" db:"home_score_et"`
	AwayScoreET   *int             `json:"away_score_et,omitempty" db:"away_score_et"`
	HomePenalties *int             `json:"home_penalties,omitempty" db:"home_penalties"`
	AwayPenalties *int             `json:"away_penalties,omitempty" db:"away_penalties"`
	Events        []MatchEventData `json:"events,omitempty" db:"events"`
	PlayedAt      *time.Time       `json:"played_at,omitempty" db:"played_at"`
}

func (m *GameMatch) IsCupTieMatch() bool {
	return m.CupTieID != nil
}

func (m *GameMatch) Involves(teamID int) bool {
	return m.HomeTeamID == teamID || m.AwayTeamID == teamID
}

// Score returns the regulation score. Unplayed matches report 0-0.
func (m *GameMatch) Score() (home, away int) {
	if m.HomeScore != nil {
		home = *m.HomeScore
	}
	if m.AwayScore != nil {
		away = *m.AwayScore
	}
	return home, away
}

// ExtraTimeScore returns goals scored in extra time only.
func (m *GameMatch) ExtraTimeScore() (home, away int, played bool) {
	if m.HomeScoreET == nil || m.AwayScoreET == nil {
		return 0, 0, false
	}
	return *m.HomeScoreET, *m.AwayScoreET, true
}

// GoalsFor counts goals credited to teamID in an event list. A goal event counts
// for the scorer's team, an own goal counts for the opponent. Each event is
// counted at most once, so a team cannot be credited twice for one event.
func GoalsFor(events []MatchEventData, teamID int) int {
	goals := 0
	for _, e := range events {
		switch e.Type {
		case EventGoal:
			if e.TeamID == teamID {
				goals++
			}
		case EventOwnGoal:
			if e.TeamID != teamID {
				goals++
			}
		}
	}
	return goals
}

// HasGoalEvents reports whether the event list carries any scoring event.
func HasGoalEvents(events []MatchEventData) bool {
	for _, e := range events {
		if e.Type == EventGoal || e.Type == EventOwnGoal {
			return true
		}
	}
	return false
}
