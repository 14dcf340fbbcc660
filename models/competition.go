package models

// CompetitionType соответствует ENUM competition_type в БД.
type CompetitionType string

const (
	CompetitionLeague        CompetitionType = "league"
	CompetitionKnockoutCup   CompetitionType = "knockout_cup"
	CompetitionGroupStageCup CompetitionType = "group_stage_cup"
)

// HandlerType selects how a competition is batched and which hooks run around a batch.
type HandlerType string

const (
	HandlerLeague            HandlerType = "league"
	HandlerKnockoutCup       HandlerType = "knockout_cup"
	HandlerLeagueWithPlayoff HandlerType = "league_with_playoff"
	HandlerGroupStageCup     HandlerType = "group_stage_cup"
)

func (h HandlerType) Valid() bool {
	switch h {
	case HandlerLeague, HandlerKnockoutCup, HandlerLeagueWithPlayoff, HandlerGroupStageCup:
		return true
	}
	return false
}

type Competition struct {
	ID          string          `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Type        CompetitionType `json:"type" db:"type"`
	HandlerType HandlerType     `json:"handler_type" db:"handler_type"`
	Season      string          `json:"season" db:"season"`
	Country     string          `json:"country" db:"country"`
	Tier        int             `json:"tier" db:"tier"`
}

// HasStandings reports whether group or league matches of this competition feed a table.
func (c *Competition) HasStandings() bool {
	return c.Type == CompetitionLeague || c.Type == CompetitionGroupStageCup
}
