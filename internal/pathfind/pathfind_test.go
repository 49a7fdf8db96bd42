package pathfind

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindPath_OpenGrid(t *testing.T) {
	grid := NewGrid(20)

	path := FindPath(grid, Point{X: -8, Z: -8}, Point{X: 8, Z: 8}, NewCellSet())

	require.NotNil(t, path)
	assert.Greater(t, len(path), 0)
	assert.Equal(t, Point{X: -8, Z: -8}, path[0])
	assert.Equal(t, Point{X: 8, Z: 8}, path[len(path)-1])

	// Optimal Manhattan distance on a 4-connected grid is 32 moves.
	assert.Len(t, path, 33)
}

func TestFindPath_WallBlocksEverything(t *testing.T) {
	grid := NewGrid(20)

	// Solid wall across the full width at z=0.
	obstacles := NewCellSet()
	for x := -10; x <= 10; x++ {
		obstacles.Add(Cell{X: x, Z: 0})
	}

	path := FindPath(grid, Point{X: 0, Z: -5}, Point{X: 0, Z: 5}, obstacles)
	assert.Nil(t, path)
}

func TestFindPath_RoutesAroundPartialWall(t *testing.T) {
	grid := NewGrid(20)

	// Wall with a single gap at x=10.
	obstacles := NewCellSet()
	for x := -10; x < 10; x++ {
		obstacles.Add(Cell{X: x, Z: 0})
	}

	path := FindPath(grid, Point{X: 0, Z: -5}, Point{X: 0, Z: 5}, obstacles)
	require.NotNil(t, path)

	for _, p := range path {
		assert.False(t, obstacles.Has(grid.Snap(p)), "path crosses an obstacle at %v", p)
	}
}

func TestFindPath_PathValidity(t *testing.T) {
	grid := NewGrid(20)
	obstacles := NewCellSet(Cell{X: 1, Z: 0}, Cell{X: 0, Z: 1}, Cell{X: -3, Z: 2})

	path := FindPath(grid, Point{X: -6, Z: -6}, Point{X: 6, Z: 6}, obstacles)
	require.NotNil(t, path)

	for i, p := range path {
		c := grid.Snap(p)
		assert.True(t, grid.Contains(c), "waypoint %d out of bounds", i)
		assert.False(t, obstacles.Has(c), "waypoint %d on an obstacle", i)

		if i > 0 {
			prev := grid.Snap(path[i-1])
			assert.Equal(t, 1, manhattan(prev, c), "waypoints %d and %d are not adjacent", i-1, i)
		}
	}
}

func TestFindPath_SnapsUnalignedEndpoints(t *testing.T) {
	grid := NewGrid(20)

	path := FindPath(grid, Point{X: -2.4, Z: 0.3}, Point{X: 3.6, Z: -1.2}, NewCellSet())
	require.NotNil(t, path)
	assert.Equal(t, Point{X: -2, Z: 0}, path[0])
	assert.Equal(t, Point{X: 4, Z: -1}, path[len(path)-1])
}

func TestFindPath_StartEqualsEnd(t *testing.T) {
	grid := NewGrid(20)

	path := FindPath(grid, Point{X: 3, Z: 3}, Point{X: 3, Z: 3}, NewCellSet())
	require.NotNil(t, path)
	assert.Len(t, path, 1)
}

func TestFindPath_BlockedEndpointsAreUnreachable(t *testing.T) {
	grid := NewGrid(20)
	obstacles := NewCellSet(Cell{X: 5, Z: 5})

	assert.Nil(t, FindPath(grid, Point{X: 5, Z: 5}, Point{X: 0, Z: 0}, obstacles))
	assert.Nil(t, FindPath(grid, Point{X: 0, Z: 0}, Point{X: 5, Z: 5}, obstacles))
}

func TestFindPath_OutOfBoundsEndpoint(t *testing.T) {
	grid := NewGrid(20)

	assert.Nil(t, FindPath(grid, Point{X: 50, Z: 0}, Point{X: 0, Z: 0}, NewCellSet()))
}

func TestFindPath_DoesNotMutateObstacles(t *testing.T) {
	grid := NewGrid(20)
	obstacles := NewCellSet(Cell{X: 1, Z: 1})

	FindPath(grid, Point{X: -5, Z: -5}, Point{X: 5, Z: 5}, obstacles)

	assert.Len(t, obstacles, 1)
	assert.True(t, obstacles.Has(Cell{X: 1, Z: 1}))
}

func TestFindPath_Deterministic(t *testing.T) {
	grid := NewGrid(20)
	obstacles := NewCellSet(Cell{X: 0, Z: 0}, Cell{X: 1, Z: 1}, Cell{X: -1, Z: -1})

	first := FindPath(grid, Point{X: -7, Z: -7}, Point{X: 7, Z: 7}, obstacles)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, FindPath(grid, Point{X: -7, Z: -7}, Point{X: 7, Z: 7}, obstacles))
	}
}

// floodFill is the connectivity oracle used to cross-check FindPath soundness.
func floodFill(grid Grid, from, to Cell, obstacles CellSet) bool {
	if obstacles.Has(from) || obstacles.Has(to) {
		return false
	}
	seen := map[Cell]struct{}{from: {}}
	queue := []Cell{from}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == to {
			return true
		}
		for _, d := range neighbors {
			next := Cell{X: c.X + d.X, Z: c.Z + d.Z}
			if !grid.Contains(next) || obstacles.Has(next) {
				continue
			}
			if _, ok := seen[next]; ok {
				continue
			}
			seen[next] = struct{}{}
			queue = append(queue, next)
		}
	}
	return false
}

func TestFindPath_AgreesWithFloodFill(t *testing.T) {
	grid := NewGrid(10)
	start := Point{X: -5, Z: -5}
	end := Point{X: 5, Z: 5}

	// A deterministic pseudo-random scattering of obstacles, dense enough to
	// produce both reachable and unreachable layouts.
	for seed := 0; seed < 50; seed++ {
		obstacles := NewCellSet()
		v := seed*2654435761 + 1
		for i := 0; i < 40; i++ {
			v = v*1103515245 + 12345
			x := (v>>8)%11 - 5
			v = v*1103515245 + 12345
			z := (v>>8)%11 - 5
			c := Cell{X: x, Z: z}
			if c == grid.Snap(start) || c == grid.Snap(end) {
				continue
			}
			obstacles.Add(c)
		}

		got := FindPath(grid, start, end, obstacles) != nil
		want := floodFill(grid, grid.Snap(start), grid.Snap(end), obstacles)
		assert.Equal(t, want, got, "seed %d: pathfinder disagrees with flood fill", seed)
	}
}

func TestValidatePlacement_AnyPolicy(t *testing.T) {
	grid := NewGrid(20)
	spawns := []Point{{X: -10, Z: -10}, {X: 10, Z: -10}}
	exit := Point{X: 0, Z: 10}

	// A near-complete wall leaving one gap at x=-10: legal, both spawns still route.
	var wall []Cell
	for x := -9; x <= 10; x++ {
		wall = append(wall, Cell{X: x, Z: 0})
	}
	assert.True(t, ValidatePlacement(grid, spawns, exit, NewCellSet(), wall, BlockPolicyAny))

	// Sealing the gap cuts off both spawns: rejected under either policy.
	sealed := append([]Cell{{X: -10, Z: 0}}, wall...)
	assert.False(t, ValidatePlacement(grid, spawns, exit, NewCellSet(), sealed, BlockPolicyAny))
	assert.False(t, ValidatePlacement(grid, spawns, exit, NewCellSet(), sealed, BlockPolicyAll))
}

func TestValidatePlacement_PolicyDivergence(t *testing.T) {
	grid := NewGrid(20)
	exit := Point{X: 0, Z: 10}

	// Box in the left spawn only. The right spawn still routes, so the
	// policies disagree.
	spawns := []Point{{X: -10, Z: -10}, {X: 10, Z: -10}}
	box := []Cell{{X: -9, Z: -10}, {X: -10, Z: -9}, {X: -9, Z: -9}}

	assert.False(t, ValidatePlacement(grid, spawns, exit, NewCellSet(), box, BlockPolicyAny))
	assert.True(t, ValidatePlacement(grid, spawns, exit, NewCellSet(), box, BlockPolicyAll))
}

func TestValidatePlacement_IgnoresAlreadyBlockedSpawn(t *testing.T) {
	grid := NewGrid(20)
	exit := Point{X: 0, Z: 10}
	spawns := []Point{{X: -10, Z: -10}, {X: 10, Z: -10}}

	// Left spawn pre-boxed before the candidate shows up.
	obstacles := NewCellSet(Cell{X: -9, Z: -10}, Cell{X: -10, Z: -9}, Cell{X: -9, Z: -9})

	// A harmless tower near the middle must stay legal even though one spawn
	// was unreachable before it.
	assert.True(t, ValidatePlacement(grid, spawns, exit, obstacles, []Cell{{X: 3, Z: 3}}, BlockPolicyAny))
}

func TestValidatePlacement_DoesNotMutateObstacles(t *testing.T) {
	grid := NewGrid(20)
	obstacles := NewCellSet(Cell{X: 2, Z: 2})

	ValidatePlacement(grid, []Point{{X: -10, Z: -10}}, Point{X: 10, Z: 10}, obstacles, []Cell{{X: 0, Z: 0}}, BlockPolicyAny)

	assert.Len(t, obstacles, 1)
}
