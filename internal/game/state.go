package game

import (
	"github.com/sinedd777/towerdef/internal/pathfind"
)

// DefaultStartingMoney is each player's bankroll at session start.
const DefaultStartingMoney = 100

// State is the authoritative, mutable state of one session. It is owned by
// exactly one Processor; nothing else writes to it.
type State struct {
	Grid   pathfind.Grid
	Spawns []pathfind.Point
	Exit   pathfind.Point
	Phase  Phase

	Players map[string]*Player
	Towers  map[string]*Tower
	Maze    map[string]*MazePiece

	// spawnOf fixes each player's spawn assignment for the session.
	spawnOf map[string]pathfind.Point
	// joinOrder keeps player iteration deterministic.
	joinOrder []string

	// Revision increments on every committed mutation. A phase transition
	// bumps it too, which marks every entity changed for the next broadcast.
	Revision uint64
}

// NewState builds an empty building-phase state over the given layout.
// Spawns must be non-empty; players are assigned spawns round-robin in join
// order.
func NewState(grid pathfind.Grid, spawns []pathfind.Point, exit pathfind.Point) *State {
	return &State{
		Grid:    grid,
		Spawns:  spawns,
		Exit:    exit,
		Phase:   PhaseBuilding,
		Players: make(map[string]*Player),
		Towers:  make(map[string]*Tower),
		Maze:    make(map[string]*MazePiece),
		spawnOf: make(map[string]pathfind.Point),
	}
}

// DefaultLayout returns the stock cooperative map for the given grid: spawns
// spread along the top edge, one shared exit centered on the bottom edge.
func DefaultLayout(grid pathfind.Grid, spawnCount int) (spawns []pathfind.Point, exit pathfind.Point) {
	h := float64(grid.Half())
	if spawnCount < 1 {
		spawnCount = 1
	}
	for i := 0; i < spawnCount; i++ {
		// Even spread across the top edge.
		x := -h + float64(i+1)*2*h/float64(spawnCount+1)
		spawns = append(spawns, pathfind.Point{X: x, Z: -h})
	}
	return spawns, pathfind.Point{X: 0, Z: h}
}

// AddPlayer registers a new session member with starting money and a spawn
// assignment. Re-adding an existing player is a no-op.
func (s *State) AddPlayer(id string) *Player {
	if p, ok := s.Players[id]; ok {
		return p
	}
	p := &Player{
		ID:    id,
		Money: DefaultStartingMoney,
	}
	s.Players[id] = p
	s.spawnOf[id] = s.Spawns[len(s.joinOrder)%len(s.Spawns)]
	s.joinOrder = append(s.joinOrder, id)
	s.Revision++
	return p
}

// RemovePlayer drops a member. Their towers and maze pieces stay on the map;
// session teardown is the session manager's concern.
func (s *State) RemovePlayer(id string) {
	if _, ok := s.Players[id]; !ok {
		return
	}
	delete(s.Players, id)
	delete(s.spawnOf, id)
	for i, pid := range s.joinOrder {
		if pid == id {
			s.joinOrder = append(s.joinOrder[:i], s.joinOrder[i+1:]...)
			break
		}
	}
	s.Revision++
}

// PlayerIDs returns the members in join order.
func (s *State) PlayerIDs() []string {
	out := make([]string, len(s.joinOrder))
	copy(out, s.joinOrder)
	return out
}

// SpawnFor returns the spawn point assigned to a player.
func (s *State) SpawnFor(id string) (pathfind.Point, bool) {
	p, ok := s.spawnOf[id]
	return p, ok
}

// Obstacles returns the current blocked-cell set: the union of all tower
// cells and all maze cells. A fresh set is built each call so callers can
// never mutate the authoritative state through it.
func (s *State) Obstacles() pathfind.CellSet {
	set := pathfind.NewCellSet()
	for _, t := range s.Towers {
		set.Add(t.Position)
	}
	for _, m := range s.Maze {
		for _, c := range m.Positions {
			set.Add(c)
		}
	}
	return set
}

// AllReady reports whether every player's ready flag is set. An empty session
// is never ready.
func (s *State) AllReady() bool {
	if len(s.Players) == 0 {
		return false
	}
	for _, p := range s.Players {
		if !p.Ready {
			return false
		}
	}
	return true
}

// RecomputePaths re-derives every player's spawn-to-exit route from scratch
// against the current obstacle set and stores it on the player. It returns
// the paths keyed by player ID; a nil entry means that route is unreachable.
func (s *State) RecomputePaths() map[string][]pathfind.Point {
	obstacles := s.Obstacles()
	paths := make(map[string][]pathfind.Point, len(s.Players))
	for _, id := range s.joinOrder {
		spawn := s.spawnOf[id]
		path := pathfind.FindPath(s.Grid, spawn, s.Exit, obstacles)
		s.Players[id].Path = path
		paths[id] = path
	}
	return paths
}
