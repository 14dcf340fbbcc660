package services

import (
	"errors"
	"fmt"

	"github.com/Dosada05/season-engine/brackets"
	"github.com/Dosada05/season-engine/config"
	"github.com/Dosada05/season-engine/playoffs"
	"github.com/Dosada05/season-engine/promotions"
	"github.com/Dosada05/season-engine/repositories"
	"github.com/Dosada05/season-engine/standings"
)

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	ErrNotFound            = errors.New("requested resource not found")
	ErrGameNotFound        = errors.New("game not found")
	ErrCompetitionNotFound = errors.New("competition not found")
	ErrForbiddenOperation  = errors.New("operation not allowed for the current user")

	// Фатальные ошибки: развёртывание или данные, автоматически не исправляются.
	ErrConfiguration     = errors.New("configuration error")
	ErrDataInconsistency = errors.New("data inconsistency")
	ErrScoreMismatch     = errors.New("reported score does not match goal events")

	// Ошибки продвижения сезона
	ErrAdvanceInProgress   = errors.New("another advance is already running for this game")
	ErrSimulationFailed    = errors.New("match simulation failed")
	ErrLineupRequired      = errors.New("lineup selection required")
	ErrInvalidStateChange  = errors.New("invalid advance state transition")
	ErrSeasonNotComplete   = errors.New("season still has unplayed matches")
	ErrInvalidSeasonLabel  = errors.New("season label cannot be incremented")
	ErrHooksFailed         = errors.New("batch was saved but post-match processing failed")
	ErrCompetitionInactive = errors.New("game does not take part in this competition")
)

// IsFatal reports whether err needs an operator: retrying cannot fix it.
func IsFatal(err error) bool {
	return errors.Is(err, ErrConfiguration) || errors.Is(err, ErrDataInconsistency)
}

// classify tags errors of the fatal kinds with ErrConfiguration or
// ErrDataInconsistency so callers can tell them from transient failures.
func classify(err error) error {
	if err == nil || IsFatal(err) {
		return err
	}
	switch {
	case errors.Is(err, config.ErrMissingScheduleEntry),
		errors.Is(err, config.ErrInvalidCompetitionConfig),
		errors.Is(err, playoffs.ErrUnknownRound),
		errors.Is(err, playoffs.ErrUnknownType),
		errors.Is(err, brackets.ErrUnknownDraw),
		errors.Is(err, brackets.ErrNotEnoughTeams),
		errors.Is(err, promotions.ErrUnknownPlayoff):
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	case errors.Is(err, playoffs.ErrWinnerMissing),
		errors.Is(err, playoffs.ErrPositionMissing),
		errors.Is(err, brackets.ErrTieInconsistent),
		errors.Is(err, brackets.ErrOddTeamCount),
		errors.Is(err, brackets.ErrDuplicateTeam),
		errors.Is(err, standings.ErrUnknownTeam),
		errors.Is(err, promotions.ErrPositionMissing),
		errors.Is(err, promotions.ErrNoFinishingOrder),
		errors.Is(err, repositories.ErrCupTieAlreadyComplete),
		errors.Is(err, ErrScoreMismatch):
		return fmt.Errorf("%w: %w", ErrDataInconsistency, err)
	}
	return err
}
