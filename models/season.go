package models

import "time"

// PlayoffRoundConfig describes one knockout round as read from the schedule
// configuration. SecondLegDate is nil for single-leg rounds.
type PlayoffRoundConfig struct {
	Round         int        `json:"round" yaml:"round"`
	Name          string     `json:"name" yaml:"name"`
	TwoLegged     bool       `json:"two_legged" yaml:"two_legged"`
	FirstLegDate  time.Time  `json:"first_leg_date" yaml:"first_leg_date"`
	SecondLegDate *time.Time `json:"second_leg_date,omitempty" yaml:"second_leg_date"`
}

// PlayerAbilityChange is one development step recorded during a season transition.
type PlayerAbilityChange struct {
	PlayerID int    `json:"player_id"`
	TeamID   int    `json:"team_id"`
	Before   int    `json:"before"`
	After    int    `json:"after"`
	Reason   string `json:"reason"`
}

// SeasonTransitionData is carried through the season transition pipeline and
// dropped once the pipeline finishes.
type SeasonTransitionData struct {
	OldSeason     string                 `json:"old_season"`
	NewSeason     string                 `json:"new_season"`
	CompetitionID string                 `json:"competition_id"`
	PlayerChanges []PlayerAbilityChange  `json:"player_changes"`
	Metadata      map[string]interface{} `json:"metadata"`
}

func NewSeasonTransitionData(oldSeason, newSeason, competitionID string) *SeasonTransitionData {
	return &SeasonTransitionData{
		OldSeason:     oldSeason,
		NewSeason:     newSeason,
		CompetitionID: competitionID,
		PlayerChanges: []PlayerAbilityChange{},
		Metadata:      make(map[string]interface{}),
	}
}

// Player is the slice of squad data the engine hands to external resolvers.
type Player struct {
	ID        int       `json:"id"`
	TeamID    int       `json:"team_id"`
	Name      string    `json:"name"`
	Position  string    `json:"position"`
	Ability   int       `json:"ability"`
	BirthDate time.Time `json:"birth_date"`
}

// AgeAt returns the player's age in whole years at the given date.
func (p *Player) AgeAt(t time.Time) int {
	if p.BirthDate.IsZero() {
		return 0
	}
	age := t.Year() - p.BirthDate.Year()
	if t.YearDay() < p.BirthDate.YearDay() {
		age--
	}
	return age
}

// PlayersByTeam groups squads by team id.
type PlayersByTeam map[int][]*Player

// Lineup is the starting eleven and tactics the simulator receives for one side.
type Lineup struct {
	TeamID    int       `json:"team_id"`
	Formation string    `json:"formation"`
	Mentality string    `json:"mentality"`
	Players   []*Player `json:"players"`
}

// LineupSelection is the lineup the user picked for the managed team. It is
// reused for every match until replaced.
type LineupSelection struct {
	GameID    int       `json:"game_id" db:"game_id"`
	Formation string    `json:"formation" db:"formation"`
	Mentality string    `json:"mentality" db:"mentality"`
	PlayerIDs []int     `json:"player_ids" db:"player_ids"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
