package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Dosada05/season-engine/models"
	"github.com/google/uuid"
)

// MemoryStore keeps every entity in process memory. It backs STORAGE_DRIVER=memory
// and the service tests. Transactions are serialized and roll back by restoring
// a snapshot taken when they began.
type MemoryStore struct {
	txMu sync.Mutex
	mu   sync.Mutex
	data memoryData
}

type simulatedKey struct {
	gameID      int
	competition string
	season      string
}

type participantKey struct {
	gameID      int
	competition string
}

type memoryData struct {
	nextID       int
	games        map[int]*models.Game
	competitions map[string]*models.Competition
	matches      map[int]*models.GameMatch
	ties         map[int]*models.CupTie
	standings    map[int]*models.GameStanding
	simulated    map[simulatedKey]*models.SimulatedSeason
	participants map[participantKey][]int
	players      map[int]*models.Player
	lineups      map[int]*models.LineupSelection
	transitions  []*models.TransitionLogEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: memoryData{
		games:        make(map[int]*models.Game),
		competitions: make(map[string]*models.Competition),
		matches:      make(map[int]*models.GameMatch),
		ties:         make(map[int]*models.CupTie),
		standings:    make(map[int]*models.GameStanding),
		simulated:    make(map[simulatedKey]*models.SimulatedSeason),
		participants: make(map[participantKey][]int),
		players:      make(map[int]*models.Player),
		lineups:      make(map[int]*models.LineupSelection),
	}}
}

func (s *MemoryStore) Games() GameRepository { return memGames{s} }
func (s *MemoryStore) Competitions() CompetitionRepository { return memCompetitions{s} }
func (s *MemoryStore) Matches() MatchRepository { return memMatches{s} }
func (s *MemoryStore) CupTies() CupTieRepository { return memTies{s} }
func (s *MemoryStore) Standings() StandingRepository { return memStandings{s} }
func (s *MemoryStore) SimulatedSeasons() SimulatedSeasonRepository { return memSimulated{s} }
func (s *MemoryStore) TransitionLog() TransitionLogRepository { return memTransitions{s} }
func (s *MemoryStore) Participants() ParticipantRepository { return memParticipants{s} }
func (s *MemoryStore) Players() PlayerRepository { return memPlayers{s} }
func (s *MemoryStore) Lineups() LineupRepository { return memLineups{s} }

// AddPlayers seeds squads; players keep the ids they were given.
func (s *MemoryStore) AddPlayers(players ...*models.Player) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range players {
		cp := *p
		s.data.players[p.ID] = &cp
	}
}

// RunInTx passes a nil executor: memory repositories ignore it.
func (s *MemoryStore) RunInTx(ctx context.Context, fn func(ctx context.Context, exec SQLExecutor) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.data.clone()
	s.mu.Unlock()

	if err := fn(ctx, nil); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *MemoryStore) id() int {
	s.data.nextID++
	return s.data.nextID
}

func (d memoryData) clone() memoryData {
	c := memoryData{
		nextID:       d.nextID,
		games:        make(map[int]*models.Game, len(d.games)),
		competitions: make(map[string]*models.Competition, len(d.competitions)),
		matches:      make(map[int]*models.GameMatch, len(d.matches)),
		ties:         make(map[int]*models.CupTie, len(d.ties)),
		standings:    make(map[int]*models.GameStanding, len(d.standings)),
		simulated:    make(map[simulatedKey]*models.SimulatedSeason, len(d.simulated)),
		participants: make(map[participantKey][]int, len(d.participants)),
		players:      make(map[int]*models.Player, len(d.players)),
		lineups:      make(map[int]*models.LineupSelection, len(d.lineups)),
		transitions:  append([]*models.TransitionLogEntry(nil), d.transitions...),
	}
	for k, v := range d.games {
		c.games[k] = copyGame(v)
	}
	for k, v := range d.competitions {
		cp := *v
		c.competitions[k] = &cp
	}
	for k, v := range d.matches {
		c.matches[k] = copyMatch(v)
	}
	for k, v := range d.ties {
		c.ties[k] = copyTie(v)
	}
	for k, v := range d.standings {
		cp := *v
		c.standings[k] = &cp
	}
	for k, v := range d.simulated {
		cp := *v
		cp.Results = append([]int(nil), v.Results...)
		c.simulated[k] = &cp
	}
	for k, v := range d.participants {
		c.participants[k] = append([]int(nil), v...)
	}
	for k, v := range d.players {
		cp := *v
		c.players[k] = &cp
	}
	for k, v := range d.lineups {
		c.lineups[k] = copyLineup(v)
	}
	return c
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

func copyGame(g *models.Game) *models.Game {
	cp := *g
	cp.CompetitionIDs = append([]string(nil), g.CompetitionIDs...)
	return &cp
}

func copyMatch(m *models.GameMatch) *models.GameMatch {
	cp := *m
	cp.CupTieID = copyInt(m.CupTieID)
	cp.HomeScore = copyInt(m.HomeScore)
	cp.AwayScore = copyInt(m.AwayScore)
	cp.HomeScoreET = copyInt(m.HomeScoreET)
	cp.AwayScoreET = copyInt(m.AwayScoreET)
	cp.HomePenalties = copyInt(m.HomePenalties)
	cp.AwayPenalties = copyInt(m.AwayPenalties)
	cp.Events = append([]models.MatchEventData(nil), m.Events...)
	if m.PlayedAt != nil {
		t := *m.PlayedAt
		cp.PlayedAt = &t
	}
	return &cp
}

func copyTie(t *models.CupTie) *models.CupTie {
	cp := *t
	cp.FirstLegMatchID = copyInt(t.FirstLegMatchID)
	cp.SecondLegMatchID = copyInt(t.SecondLegMatchID)
	cp.WinnerID = copyInt(t.WinnerID)
	if t.Resolution != nil {
		res := *t.Resolution
		res.HomePenalties = copyInt(t.Resolution.HomePenalties)
		res.AwayPenalties = copyInt(t.Resolution.AwayPenalties)
		cp.Resolution = &res
	}
	return &cp
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// --- games ---

type memGames struct{ s *MemoryStore }

func (r memGames) Create(_ context.Context, _ SQLExecutor, g *models.Game) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	g.ID = r.s.id()
	g.CreatedAt = time.Now()
	g.UpdatedAt = g.CreatedAt
	r.s.data.games[g.ID] = copyGame(g)
	return nil
}

func (r memGames) GetByID(_ context.Context, _ SQLExecutor, id int) (*models.Game, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	g, ok := r.s.data.games[id]
	if !ok {
		return nil, ErrGameNotFound
	}
	return copyGame(g), nil
}

func (r memGames) Update(_ context.Context, _ SQLExecutor, g *models.Game) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.games[g.ID]; !ok {
		return ErrGameNotFound
	}
	g.UpdatedAt = time.Now()
	r.s.data.games[g.ID] = copyGame(g)
	return nil
}

func (r memGames) ListIDs(_ context.Context) ([]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ids := make([]int, 0, len(r.s.data.games))
	for id := range r.s.data.games {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

// --- competitions ---

type memCompetitions struct{ s *MemoryStore }

func (r memCompetitions) GetByID(_ context.Context, id string) (*models.Competition, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.data.competitions[id]
	if !ok {
		return nil, ErrCompetitionNotFound
	}
	cp := *c
	return &cp, nil
}

func (r memCompetitions) Upsert(_ context.Context, c *models.Competition) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *c
	r.s.data.competitions[c.ID] = &cp
	return nil
}

// --- matches ---

type memMatches struct{ s *MemoryStore }

func (r memMatches) Create(_ context.Context, _ SQLExecutor, m *models.GameMatch) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m.ID = r.s.id()
	r.s.data.matches[m.ID] = copyMatch(m)
	return nil
}

func (r memMatches) GetByID(_ context.Context, _ SQLExecutor, id int) (*models.GameMatch, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.data.matches[id]
	if !ok {
		return nil, ErrMatchNotFound
	}
	return copyMatch(m), nil
}

// filter returns copies of matching rows in scheduling order.
func (r memMatches) filter(keep func(m *models.GameMatch) bool) []*models.GameMatch {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.GameMatch, 0)
	for _, m := range r.s.data.matches {
		if keep(m) {
			out = append(out, copyMatch(m))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.ScheduledDate.Equal(b.ScheduledDate) {
			return a.ScheduledDate.Before(b.ScheduledDate)
		}
		if a.CompetitionID != b.CompetitionID {
			return a.CompetitionID < b.CompetitionID
		}
		if a.RoundNumber != b.RoundNumber {
			return a.RoundNumber < b.RoundNumber
		}
		return a.ID < b.ID
	})
	return out
}

func (r memMatches) ListByIDs(_ context.Context, _ SQLExecutor, ids []int) ([]*models.GameMatch, error) {
	wanted := make(map[int]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	return r.filter(func(m *models.GameMatch) bool { return wanted[m.ID] }), nil
}

func (r memMatches) ListByCompetition(_ context.Context, _ SQLExecutor, gameID int, competitionID string) ([]*models.GameMatch, error) {
	return r.filter(func(m *models.GameMatch) bool {
		return m.GameID == gameID && m.CompetitionID == competitionID
	}), nil
}

func (r memMatches) NextUnplayed(_ context.Context, _ SQLExecutor, gameID int) (*models.GameMatch, error) {
	matches := r.filter(func(m *models.GameMatch) bool { return m.GameID == gameID && !m.Played })
	if len(matches) == 0 {
		return nil, nil
	}
	return matches[0], nil
}

func (r memMatches) NextUnplayedInCompetition(_ context.Context, _ SQLExecutor, gameID int, competitionID string) (*models.GameMatch, error) {
	matches := r.filter(func(m *models.GameMatch) bool {
		return m.GameID == gameID && m.CompetitionID == competitionID && !m.Played
	})
	if len(matches) == 0 {
		return nil, nil
	}
	return matches[0], nil
}

func (r memMatches) ListUnplayedByRound(_ context.Context, _ SQLExecutor, gameID int, competitionID string, round int) ([]*models.GameMatch, error) {
	return r.filter(func(m *models.GameMatch) bool {
		return m.GameID == gameID && m.CompetitionID == competitionID && m.RoundNumber == round &&
			!m.Played && m.CupTieID == nil
	}), nil
}

func (r memMatches) ListUnplayedTieLegsByDate(_ context.Context, _ SQLExecutor, gameID int, competitionID string, date time.Time) ([]*models.GameMatch, error) {
	return r.filter(func(m *models.GameMatch) bool {
		return m.GameID == gameID && m.CompetitionID == competitionID && sameDay(m.ScheduledDate, date) &&
			!m.Played && m.CupTieID != nil
	}), nil
}

func (r memMatches) CountUnplayedLeague(_ context.Context, _ SQLExecutor, gameID int, competitionID string) (int, error) {
	return len(r.filter(func(m *models.GameMatch) bool {
		return m.GameID == gameID && m.CompetitionID == competitionID && !m.Played && m.CupTieID == nil
	})), nil
}

func (r memMatches) MaxLeagueRound(_ context.Context, _ SQLExecutor, gameID int, competitionID string) (int, error) {
	last := 0
	for _, m := range r.filter(func(m *models.GameMatch) bool {
		return m.GameID == gameID && m.CompetitionID == competitionID && m.CupTieID == nil
	}) {
		if m.RoundNumber > last {
			last = m.RoundNumber
		}
	}
	return last, nil
}

func (r memMatches) DeleteByCompetition(_ context.Context, _ SQLExecutor, gameID int, competitionID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, m := range r.s.data.matches {
		if m.GameID == gameID && m.CompetitionID == competitionID {
			delete(r.s.data.matches, id)
		}
	}
	return nil
}

func (r memMatches) SaveResult(_ context.Context, _ SQLExecutor, m *models.GameMatch) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.data.matches[m.ID]
	if !ok || stored.Played {
		return ErrMatchAlreadyPlayed
	}
	stored.Played = true
	stored.HomeScore = copyInt(m.HomeScore)
	stored.AwayScore = copyInt(m.AwayScore)
	stored.Events = append([]models.MatchEventData(nil), m.Events...)
	if m.PlayedAt != nil {
		t := *m.PlayedAt
		stored.PlayedAt = &t
	}
	return nil
}

func (r memMatches) SaveTieBreak(_ context.Context, _ SQLExecutor, m *models.GameMatch) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.data.matches[m.ID]
	if !ok || !stored.Played {
		return ErrMatchNotPlayed
	}
	stored.HomeScoreET = copyInt(m.HomeScoreET)
	stored.AwayScoreET = copyInt(m.AwayScoreET)
	stored.HomePenalties = copyInt(m.HomePenalties)
	stored.AwayPenalties = copyInt(m.AwayPenalties)
	stored.Events = append([]models.MatchEventData(nil), m.Events...)
	return nil
}

// --- cup ties ---

type memTies struct{ s *MemoryStore }

func (r memTies) Create(_ context.Context, _ SQLExecutor, t *models.CupTie) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t.ID = r.s.id()
	t.CreatedAt = time.Now()
	r.s.data.ties[t.ID] = copyTie(t)
	return nil
}

func (r memTies) GetByID(_ context.Context, _ SQLExecutor, id int) (*models.CupTie, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.data.ties[id]
	if !ok {
		return nil, ErrCupTieNotFound
	}
	return copyTie(t), nil
}

func (r memTies) SetLegs(_ context.Context, _ SQLExecutor, t *models.CupTie) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.data.ties[t.ID]
	if !ok {
		return ErrCupTieNotFound
	}
	stored.FirstLegMatchID = copyInt(t.FirstLegMatchID)
	stored.SecondLegMatchID = copyInt(t.SecondLegMatchID)
	return nil
}

func (r memTies) Complete(_ context.Context, _ SQLExecutor, t *models.CupTie) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.data.ties[t.ID]
	if !ok || stored.Completed {
		return ErrCupTieAlreadyComplete
	}
	done := copyTie(t)
	stored.Completed = true
	stored.WinnerID = done.WinnerID
	stored.Resolution = done.Resolution
	return nil
}

func (r memTies) filter(keep func(t *models.CupTie) bool) []*models.CupTie {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.CupTie, 0)
	for _, t := range r.s.data.ties {
		if keep(t) {
			out = append(out, copyTie(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RoundNumber != out[j].RoundNumber {
			return out[i].RoundNumber < out[j].RoundNumber
		}
		if out[i].BracketPosition != out[j].BracketPosition {
			return out[i].BracketPosition < out[j].BracketPosition
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r memTies) ListByRound(_ context.Context, _ SQLExecutor, gameID int, competitionID string, round int) ([]*models.CupTie, error) {
	return r.filter(func(t *models.CupTie) bool {
		return t.GameID == gameID && t.CompetitionID == competitionID && t.RoundNumber == round
	}), nil
}

func (r memTies) ListOpen(_ context.Context, _ SQLExecutor, gameID int, competitionID string) ([]*models.CupTie, error) {
	return r.filter(func(t *models.CupTie) bool {
		return t.GameID == gameID && t.CompetitionID == competitionID && !t.Completed
	}), nil
}

func (r memTies) MaxRound(_ context.Context, _ SQLExecutor, gameID int, competitionID string) (int, error) {
	last := 0
	for _, t := range r.filter(func(t *models.CupTie) bool {
		return t.GameID == gameID && t.CompetitionID == competitionID
	}) {
		if t.RoundNumber > last {
			last = t.RoundNumber
		}
	}
	return last, nil
}

func (r memTies) DeleteByCompetition(_ context.Context, _ SQLExecutor, gameID int, competitionID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, t := range r.s.data.ties {
		if t.GameID == gameID && t.CompetitionID == competitionID {
			delete(r.s.data.ties, id)
		}
	}
	return nil
}

// --- standings ---

type memStandings struct{ s *MemoryStore }

func (r memStandings) Create(_ context.Context, _ SQLExecutor, st *models.GameStanding) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st.ID = r.s.id()
	st.UpdatedAt = time.Now()
	cp := *st
	r.s.data.standings[st.ID] = &cp
	return nil
}

func (r memStandings) GetByTeam(_ context.Context, _ SQLExecutor, gameID int, competitionID string, teamID int) (*models.GameStanding, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, st := range r.s.data.standings {
		if st.GameID == gameID && st.CompetitionID == competitionID && st.TeamID == teamID {
			cp := *st
			return &cp, nil
		}
	}
	return nil, ErrStandingNotFound
}

func (r memStandings) GetOrCreate(ctx context.Context, exec SQLExecutor, gameID int, competitionID string, teamID int, groupLabel string) (*models.GameStanding, error) {
	st, err := r.GetByTeam(ctx, exec, gameID, competitionID, teamID)
	if err == nil {
		return st, nil
	}
	st = &models.GameStanding{GameID: gameID, CompetitionID: competitionID, TeamID: teamID, GroupLabel: groupLabel}
	if err := r.Create(ctx, exec, st); err != nil {
		return nil, err
	}
	return st, nil
}

func (r memStandings) Update(_ context.Context, _ SQLExecutor, st *models.GameStanding) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.standings[st.ID]; !ok {
		return ErrStandingNotFound
	}
	st.UpdatedAt = time.Now()
	cp := *st
	r.s.data.standings[st.ID] = &cp
	return nil
}

func (r memStandings) ListByCompetition(_ context.Context, _ SQLExecutor, gameID int, competitionID string, sortByPosition bool) ([]*models.GameStanding, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.GameStanding, 0)
	for _, st := range r.s.data.standings {
		if st.GameID == gameID && st.CompetitionID == competitionID {
			cp := *st
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if sortByPosition {
			if out[i].GroupLabel != out[j].GroupLabel {
				return out[i].GroupLabel < out[j].GroupLabel
			}
			if out[i].Position != out[j].Position {
				return out[i].Position < out[j].Position
			}
		}
		return out[i].TeamID < out[j].TeamID
	})
	return out, nil
}

func (r memStandings) DeleteByCompetition(_ context.Context, _ SQLExecutor, gameID int, competitionID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, st := range r.s.data.standings {
		if st.GameID == gameID && st.CompetitionID == competitionID {
			delete(r.s.data.standings, id)
		}
	}
	return nil
}

// --- simulated seasons ---

type memSimulated struct{ s *MemoryStore }

func (r memSimulated) Get(_ context.Context, _ SQLExecutor, gameID int, competitionID, season string) (*models.SimulatedSeason, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ss, ok := r.s.data.simulated[simulatedKey{gameID, competitionID, season}]
	if !ok {
		return nil, ErrSimulatedSeasonNotFound
	}
	cp := *ss
	cp.Results = append([]int(nil), ss.Results...)
	return &cp, nil
}

func (r memSimulated) Save(_ context.Context, _ SQLExecutor, ss *models.SimulatedSeason) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := simulatedKey{ss.GameID, ss.CompetitionID, ss.Season}
	if existing, ok := r.s.data.simulated[key]; ok {
		ss.ID = existing.ID
	} else {
		ss.ID = r.s.id()
	}
	cp := *ss
	cp.Results = append([]int(nil), ss.Results...)
	r.s.data.simulated[key] = &cp
	return nil
}

// --- transition log ---

type memTransitions struct{ s *MemoryStore }

func (r memTransitions) Append(_ context.Context, _ SQLExecutor, e *models.TransitionLogEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	cp := *e
	cp.Payload = append([]byte(nil), e.Payload...)
	r.s.data.transitions = append(r.s.data.transitions, &cp)
	return nil
}

func (r memTransitions) ListByGame(_ context.Context, _ SQLExecutor, gameID int, season string) ([]*models.TransitionLogEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.TransitionLogEntry, 0)
	for _, e := range r.s.data.transitions {
		if e.GameID == gameID && e.Season == season {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

// --- participants ---

type memParticipants struct{ s *MemoryStore }

func (r memParticipants) ListTeams(_ context.Context, _ SQLExecutor, gameID int, competitionID string) ([]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ids := append([]int{}, r.s.data.participants[participantKey{gameID, competitionID}]...)
	sort.Ints(ids)
	return ids, nil
}

func (r memParticipants) ReplaceTeams(_ context.Context, _ SQLExecutor, gameID int, competitionID string, teamIDs []int) error {
	seen := make(map[int]bool, len(teamIDs))
	for _, id := range teamIDs {
		if seen[id] {
			return ErrParticipantConflict
		}
		seen[id] = true
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.data.participants[participantKey{gameID, competitionID}] = append([]int(nil), teamIDs...)
	return nil
}

// --- players ---

type memPlayers struct{ s *MemoryStore }

func (r memPlayers) ListByTeams(_ context.Context, _ SQLExecutor, teamIDs []int) (models.PlayersByTeam, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	wanted := make(map[int]bool, len(teamIDs))
	for _, id := range teamIDs {
		wanted[id] = true
	}
	squads := make(models.PlayersByTeam, len(teamIDs))
	for _, p := range r.s.data.players {
		if wanted[p.TeamID] {
			cp := *p
			squads[p.TeamID] = append(squads[p.TeamID], &cp)
		}
	}
	for _, squad := range squads {
		sort.Slice(squad, func(i, j int) bool {
			if squad[i].Ability != squad[j].Ability {
				return squad[i].Ability > squad[j].Ability
			}
			return squad[i].ID < squad[j].ID
		})
	}
	return squads, nil
}

func (r memPlayers) UpdateAbility(_ context.Context, _ SQLExecutor, playerID, ability int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.data.players[playerID]
	if !ok {
		return ErrPlayerNotFound
	}
	p.Ability = ability
	return nil
}

// --- lineups ---

type memLineups struct{ s *MemoryStore }

func copyLineup(l *models.LineupSelection) *models.LineupSelection {
	cp := *l
	cp.PlayerIDs = append([]int(nil), l.PlayerIDs...)
	return &cp
}

func (r memLineups) Get(_ context.Context, _ SQLExecutor, gameID int) (*models.LineupSelection, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.data.lineups[gameID]
	if !ok {
		return nil, ErrLineupNotFound
	}
	return copyLineup(l), nil
}

func (r memLineups) Save(_ context.Context, _ SQLExecutor, l *models.LineupSelection) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.games[l.GameID]; !ok {
		return ErrGameNotFound
	}
	l.UpdatedAt = time.Now().UTC()
	r.s.data.lineups[l.GameID] = copyLineup(l)
	return nil
}
