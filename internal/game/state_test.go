package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sinedd777/towerdef/internal/pathfind"
)

func newTestState() *State {
	grid := pathfind.NewGrid(20)
	spawns, exit := DefaultLayout(grid, 2)
	return NewState(grid, spawns, exit)
}

func TestState_AddRemovePlayer(t *testing.T) {
	s := newTestState()

	p := s.AddPlayer("p1")
	assert.Equal(t, DefaultStartingMoney, p.Money)
	assert.False(t, p.Ready)

	// Re-adding is a no-op.
	again := s.AddPlayer("p1")
	assert.Same(t, p, again)
	assert.Equal(t, []string{"p1"}, s.PlayerIDs())

	s.AddPlayer("p2")
	assert.Equal(t, []string{"p1", "p2"}, s.PlayerIDs())

	// Spawns are assigned round-robin in join order.
	s1, ok := s.SpawnFor("p1")
	require.True(t, ok)
	s2, ok := s.SpawnFor("p2")
	require.True(t, ok)
	assert.NotEqual(t, s1, s2)

	s.RemovePlayer("p1")
	assert.Equal(t, []string{"p2"}, s.PlayerIDs())
	_, ok = s.SpawnFor("p1")
	assert.False(t, ok)
}

func TestState_AllReady(t *testing.T) {
	s := newTestState()
	assert.False(t, s.AllReady(), "an empty session is never ready")

	s.AddPlayer("p1")
	s.AddPlayer("p2")
	assert.False(t, s.AllReady())

	s.Players["p1"].Ready = true
	assert.False(t, s.AllReady())

	s.Players["p2"].Ready = true
	assert.True(t, s.AllReady())
}

func TestState_ObstaclesUnionsTowersAndMaze(t *testing.T) {
	s := newTestState()
	s.Towers["t1"] = &Tower{ID: "t1", Position: pathfind.Cell{X: 1, Z: 1}}
	s.Maze["m1"] = &MazePiece{ID: "m1", Positions: []pathfind.Cell{{X: 2, Z: 2}, {X: 2, Z: 3}}}

	obstacles := s.Obstacles()
	assert.Len(t, obstacles, 3)

	// The returned set is a copy; mutating it cannot corrupt state.
	obstacles.Add(pathfind.Cell{X: 9, Z: 9})
	assert.Len(t, s.Obstacles(), 3)
}

func TestState_RecomputePathsStoresPerPlayerRoutes(t *testing.T) {
	s := newTestState()
	s.AddPlayer("p1")
	s.AddPlayer("p2")

	paths := s.RecomputePaths()
	require.Len(t, paths, 2)
	for id, path := range paths {
		assert.NotNil(t, path, "player %s should have a route on an empty grid", id)
		assert.Equal(t, path, s.Players[id].Path)
	}
}
