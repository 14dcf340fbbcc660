package models

import "time"

// GameStanding is one table row of a team in a competition of a game.
type GameStanding struct {
	ID             int       `json:"id" db:"id"`
	GameID         int       `json:"game_id" db:"game_id"`
	CompetitionID  string    `json:"competition_id" db:"competition_id"`
	TeamID         int       `json:"team_id" db:"team_id"`
	GroupLabel     string    `json:"group_label,omitempty" db:"group_label"`
	Position       int       `json:"position" db:"position"`
	Played         int       `json:"played" db:"played"`
	Won            int       `json:"won" db:"won"`
	Drawn          int       `json:"drawn" db:"drawn"`
	Lost           int       `json:"lost" db:"lost"`
	GoalsFor       int       `json:"goals_for" db:"goals_for"`
	GoalsAgainst   int       `json:"goals_against" db:"goals_against"`
	GoalDifference int       `json:"goal_difference" db:"goal_difference"`
	Points         int       `json:"points" db:"points"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// SimulatedSeason is a precomputed finishing order for a competition the user
// does not actively play. Results[0] is the champion.
type SimulatedSeason struct {
	ID            int    `json:"id" db:"id"`
	GameID        int    `json:"game_id" db:"game_id"`
	CompetitionID string `json:"competition_id" db:"competition_id"`
	Season        string `json:"season" db:"season"`
	Results       []int  `json:"results" db:"results"`
}

// TeamAtPosition returns the team finishing at a 1-based position.
func (s *SimulatedSeason) TeamAtPosition(position int) (int, bool) {
	if position < 1 || position > len(s.Results) {
		return 0, false
	}
	return s.Results[position-1], true
}
