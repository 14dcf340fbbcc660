package models

import "time"

// Game представляет одно сохранение симуляции (карьеру пользователя).
type Game struct {
	ID              int       `json:"id" db:"id"`
	UserID          int       `json:"user_id" db:"user_id"`
	TeamID          int       `json:"team_id" db:"team_id"` // команда под управлением пользователя
	Season          string    `json:"season" db:"season"`
	CurrentDate     time.Time `json:"current_date" db:"game_date"`
	CurrentMatchday int       `json:"current_matchday" db:"current_matchday"`
	CompetitionIDs  []string  `json:"competition_ids" db:"competition_ids"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// ParticipatesIn reports whether the game has the competition among its active ones.
func (g *Game) ParticipatesIn(competitionID string) bool {
	for _, id := range g.CompetitionIDs {
		if id == competitionID {
			return true
		}
	}
	return false
}
