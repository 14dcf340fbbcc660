// Package standings holds the pure table arithmetic: points, goal difference and
// the deterministic ordering of a competition table.
package standings

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/Dosada05/season-engine/models"
)

const (
	PointsWin  = 3
	PointsDraw = 1
	PointsLoss = 0
)

// ErrUnknownTeam is returned when a result references a team with no table row.
var ErrUnknownTeam = errors.New("standings reference an unknown team")

// ApplyResult adds one match result to both teams' rows.
func ApplyResult(home, away *models.GameStanding, homeScore, awayScore int) {
	home.Played++
	away.Played++
	home.GoalsFor += homeScore
	home.GoalsAgainst += awayScore
	away.GoalsFor += awayScore
	away.GoalsAgainst += homeScore

	switch {
	case homeScore > awayScore:
		home.Won++
		away.Lost++
	case homeScore < awayScore:
		away.Won++
		home.Lost++
	default:
		home.Drawn++
		away.Drawn++
	}

	recompute(home)
	recompute(away)
}

func recompute(s *models.GameStanding) {
	s.Points = s.Won*PointsWin + s.Drawn*PointsDraw + s.Lost*PointsLoss
	s.GoalDifference = s.GoalsFor - s.GoalsAgainst
}

// Compare orders rows by points, goal difference and goals scored, all
// descending, then by team id ascending so the order is total.
func Compare(a, b *models.GameStanding) int {
	if c := cmp.Compare(b.Points, a.Points); c != 0 {
		return c
	}
	if c := cmp.Compare(b.GoalDifference, a.GoalDifference); c != 0 {
		return c
	}
	if c := cmp.Compare(b.GoalsFor, a.GoalsFor); c != 0 {
		return c
	}
	return cmp.Compare(a.TeamID, b.TeamID)
}

// Rank sorts rows in place and assigns 1-based positions. Rows with different
// group labels are ranked independently, groups ordered by label. Ranking only
// reads stored aggregates, so the result does not depend on update order.
func Rank(rows []*models.GameStanding) {
	for _, r := range rows {
		recompute(r)
	}
	slices.SortStableFunc(rows, func(a, b *models.GameStanding) int {
		if c := cmp.Compare(a.GroupLabel, b.GroupLabel); c != 0 {
			return c
		}
		return Compare(a, b)
	})

	position := 0
	for i, r := range rows {
		if i == 0 || rows[i-1].GroupLabel != r.GroupLabel {
			position = 0
		}
		position++
		r.Position = position
	}
}

// Build recomputes a table from scratch out of the played, non-knockout
// matches of one competition. teamIDs seeds rows for teams that have not
// played yet; a match referencing a team outside teamIDs is an error when
// teamIDs is non-empty.
func Build(gameID int, competitionID string, teamIDs []int, matches []*models.GameMatch) ([]*models.GameStanding, error) {
	rows := make(map[int]*models.GameStanding, len(teamIDs))
	strict := len(teamIDs) > 0
	for _, id := range teamIDs {
		rows[id] = &models.GameStanding{GameID: gameID, CompetitionID: competitionID, TeamID: id}
	}

	row := func(teamID int, group string) (*models.GameStanding, error) {
		if r, ok := rows[teamID]; ok {
			if r.GroupLabel == "" {
				r.GroupLabel = group
			}
			return r, nil
		}
		if strict {
			return nil, fmt.Errorf("%w: team %d in competition %s", ErrUnknownTeam, teamID, competitionID)
		}
		r := &models.GameStanding{GameID: gameID, CompetitionID: competitionID, TeamID: teamID, GroupLabel: group}
		rows[teamID] = r
		return r, nil
	}

	for _, m := range matches {
		if !m.Played || m.IsCupTieMatch() || m.CompetitionID != competitionID {
			continue
		}
		home, err := row(m.HomeTeamID, m.GroupLabel)
		if err != nil {
			return nil, err
		}
		away, err := row(m.AwayTeamID, m.GroupLabel)
		if err != nil {
			return nil, err
		}
		hs, as := m.Score()
		ApplyResult(home, away, hs, as)
	}

	out := make([]*models.GameStanding, 0, len(rows))
	for _, r := range rows {
		out = append(out, r)
	}
	Rank(out)
	return out, nil
}

// TeamAtPosition returns the team holding a 1-based position in an ungrouped table.
func TeamAtPosition(rows []*models.GameStanding, position int) (int, bool) {
	for _, r := range rows {
		if r.Position == position {
			return r.TeamID, true
		}
	}
	return 0, false
}
