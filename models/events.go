package models

import (
	"time"

	"github.com/google/uuid"
)

type DomainEventType string

const (
	EventMatchFinalized   DomainEventType = "match_finalized"
	EventCupTieResolved   DomainEventType = "cup_tie_resolved"
	EventMatchdayAdvanced DomainEventType = "matchday_advanced"
	EventSeasonStarted    DomainEventType = "season_started"
	EventDrawConducted    DomainEventType = "draw_conducted"
	EventPlayoffGenerated DomainEventType = "playoff_round_generated"
)

// DomainEvent is emitted at fixed points of the advance flow. Payload carries
// the complete context (teams, score, competition, resolved tie).
type DomainEvent struct {
	ID            uuid.UUID       `json:"id"`
	Type          DomainEventType `json:"type"`
	GameID        int             `json:"game_id"`
	CompetitionID string          `json:"competition_id,omitempty"`
	Match         *GameMatch      `json:"match,omitempty"`
	Tie           *CupTie         `json:"tie,omitempty"`
	Ties          []*CupTie       `json:"ties,omitempty"`
	Matchday      int             `json:"matchday,omitempty"`
	Season        string          `json:"season,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

func NewDomainEvent(eventType DomainEventType, gameID int, competitionID string) DomainEvent {
	return DomainEvent{
		ID:            uuid.New(),
		Type:          eventType,
		GameID:        gameID,
		CompetitionID: competitionID,
		OccurredAt:    time.Now().UTC(),
	}
}

// TransitionLogEntry is one row of the append-only log of applied transitions.
// The game snapshot remains the source of truth; the log is for audit and replay.
type TransitionLogEntry struct {
	ID        uuid.UUID `json:"id" db:"id"`
	GameID    int       `json:"game_id" db:"game_id"`
	Kind      string    `json:"kind" db:"kind"`
	Season    string    `json:"season" db:"season"`
	Payload   []byte    `json:"payload" db:"payload"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
