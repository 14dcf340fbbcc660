package models

import "time"

// ResolutionMethod records how a tie was decided.
type ResolutionMethod string

const (
	ResolvedRegulation ResolutionMethod = "regulation"
	ResolvedAwayGoals  ResolutionMethod = "away_goals"
	ResolvedExtraTime  ResolutionMethod = "extra_time"
	ResolvedPenalties  ResolutionMethod = "penalties"
)

// TieResolution is the audit record of a decided tie. Aggregates include extra time.
type TieResolution struct {
	Method          ResolutionMethod `json:"method"`
	HomeAggregate   int              `json:"home_aggregate"`
	AwayAggregate   int              `json:"away_aggregate"`
	HomeAwayGoals   int              `json:"home_away_goals,omitempty"`
	AwayAwayGoals   int              `json:"away_away_goals,omitempty"`
	ExtraTimePlayed bool             `json:"extra_time_played"`
	NeedsPenalties  bool             `json:"needs_penalties"`
	HomePenalties   *int             `json:"home_penalties,omitempty"`
	AwayPenalties   *int             `json:"away_penalties,omitempty"`
}

// CupTie pairs two teams in a knockout round, played over one or two legs.
// HomeTeamID hosts the first leg.
type CupTie struct {
	ID               int            `json:"id" db:"id"`
	GameID           int            `json:"game_id" db:"game_id"`
	CompetitionID    string         `json:"competition_id" db:"competition_id"`
	RoundNumber      int            `json:"round_number" db:"round_number"`
	BracketPosition  int            `json:"bracket_position" db:"bracket_position"`
	HomeTeamID       int            `json:"home_team_id" db:"home_team_id"`
	AwayTeamID       int            `json:"away_team_id" db:"away_team_id"`
	FirstLegMatchID  *int           `json:"first_leg_match_id,omitempty" db:"first_leg_match_id"`
	SecondLegMatchID *int           `json:"second_leg_match_id,omitempty" db:"second_leg_match_id"`
	WinnerID         *int           `json:"winner_id,omitempty" db:"winner_id"`
	Completed        bool           `json:"completed" db:"completed"`
	Resolution       *TieResolution `json:"resolution,omitempty" db:"resolution"`
	CreatedAt        time.Time      `json:"created_at" db:"created_at"`
}

func (t *CupTie) TwoLegged() bool {
	return t.SecondLegMatchID != nil
}

func (t *CupTie) HasTeam(teamID int) bool {
	return t.HomeTeamID == teamID || t.AwayTeamID == teamID
}

// Loser returns the eliminated team of a completed tie.
func (t *CupTie) Loser() (int, bool) {
	if !t.Completed || t.WinnerID == nil {
		return 0, false
	}
	if *t.WinnerID == t.HomeTeamID {
		return t.AwayTeamID, true
	}
	return t.HomeTeamID, true
}
