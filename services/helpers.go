package services

import (
	"sort"

	"github.com/Dosada05/season-engine/models"
)

// --- Общие хелперы ---

func intPtr(v int) *int {
	return &v
}

func isValidStateTransition(current, next AdvanceState) bool {
	allowedTransitions := map[AdvanceState][]AdvanceState{
		StateIdle:               {StateSelectingBatch},
		StateSelectingBatch:     {StateAwaitingSimulation, StateSeasonComplete, StateIdle},
		StateAwaitingSimulation: {StateApplyingResults, StateIdle},
		StateApplyingResults:    {StateRunningHooks, StateIdle},
		StateRunningHooks:       {StateIdle, StateSeasonComplete},
		StateSeasonComplete:     {},
	}
	for _, allowedNext := range allowedTransitions[current] {
		if next == allowedNext {
			return true
		}
	}
	return false
}

// teamsOf returns the distinct teams of matches in ascending order.
func teamsOf(matches []*models.GameMatch) []int {
	seen := make(map[int]bool, len(matches)*2)
	ids := make([]int, 0, len(matches)*2)
	for _, m := range matches {
		for _, id := range []int{m.HomeTeamID, m.AwayTeamID} {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	sort.Ints(ids)
	return ids
}

func matchesOf(matches []*models.GameMatch, competitionID string) []*models.GameMatch {
	out := make([]*models.GameMatch, 0, len(matches))
	for _, m := range matches {
		if m.CompetitionID == competitionID {
			out = append(out, m)
		}
	}
	return out
}

func matchIDs(matches []*models.GameMatch) []int {
	ids := make([]int, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}
	return ids
}
