package pathfind

import (
	"container/heap"
	"math"
)

// Cell is a single grid square, addressed by integer world coordinates.
// The playfield is centered on the origin, so a 20-sized grid spans -10..10
// on both axes.
type Cell struct {
	X int
	Z int
}

// Point is a world-space position. Callers are not required to pre-snap
// points to cell centers; Snap does that.
type Point struct {
	X float64
	Z float64
}

// Grid describes the fixed square playfield. Size is the side length; cells
// run from -Size/2 to +Size/2 inclusive on both axes.
type Grid struct {
	Size int
}

// NewGrid returns a grid with the given side length.
func NewGrid(size int) Grid {
	return Grid{Size: size}
}

// Half returns the maximum absolute cell coordinate.
func (g Grid) Half() int {
	return g.Size / 2
}

// Contains reports whether the cell lies inside the playfield.
func (g Grid) Contains(c Cell) bool {
	h := g.Half()
	return c.X >= -h && c.X <= h && c.Z >= -h && c.Z <= h
}

// Snap maps a world-space point to its nearest cell.
func (g Grid) Snap(p Point) Cell {
	return Cell{
		X: int(math.Round(p.X)),
		Z: int(math.Round(p.Z)),
	}
}

// Center returns the world-space center of a cell.
func (c Cell) Center() Point {
	return Point{X: float64(c.X), Z: float64(c.Z)}
}

// CellSet is the obstacle representation handed to FindPath. It is a plain
// value set; FindPath never mutates the set it is given.
type CellSet map[Cell]struct{}

// NewCellSet builds a set from the given cells.
func NewCellSet(cells ...Cell) CellSet {
	s := make(CellSet, len(cells))
	for _, c := range cells {
		s.Add(c)
	}
	return s
}

// Add inserts a cell into the set.
func (s CellSet) Add(c Cell) {
	s[c] = struct{}{}
}

// Has reports whether the cell is in the set.
func (s CellSet) Has(c Cell) bool {
	_, ok := s[c]
	return ok
}

// Clone returns an independent copy of the set.
func (s CellSet) Clone() CellSet {
	out := make(CellSet, len(s))
	for c := range s {
		out[c] = struct{}{}
	}
	return out
}

// Union adds every cell of other into the set and returns it.
func (s CellSet) Union(other CellSet) CellSet {
	for c := range other {
		s[c] = struct{}{}
	}
	return s
}

// node is a frontier entry. seq preserves insertion order so that equal-cost
// nodes pop FIFO, keeping results deterministic for deterministic inputs.
type node struct {
	cell Cell
	f    int
	seq  int
	idx  int
}

type frontier []*node

func (f frontier) Len() int { return len(f) }

func (f frontier) Less(i, j int) bool {
	if f[i].f != f[j].f {
		return f[i].f < f[j].f
	}
	return f[i].seq < f[j].seq
}

func (f frontier) Swap(i, j int) {
	f[i], f[j] = f[j], f[i]
	f[i].idx = i
	f[j].idx = j
}

func (f *frontier) Push(x any) {
	n := x.(*node)
	n.idx = len(*f)
	*f = append(*f, n)
}

func (f *frontier) Pop() any {
	old := *f
	n := old[len(old)-1]
	old[len(old)-1] = nil
	*f = old[:len(old)-1]
	return n
}

// neighbor offsets, 4-connected to match the Manhattan heuristic.
var neighbors = [4]Cell{{X: 1}, {X: -1}, {Z: 1}, {Z: -1}}

func manhattan(a, b Cell) int {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	dz := a.Z - b.Z
	if dz < 0 {
		dz = -dz
	}
	return dx + dz
}

// FindPath runs an A* search from start to end around the given obstacles.
// It returns the ordered list of waypoints (cell centers, start and end
// inclusive), or nil when no route exists. A nil result is the formal
// definition of "unreachable" and is a first-class outcome, not an error.
//
// FindPath is a pure function of its inputs and is safe for concurrent use.
func FindPath(grid Grid, start, end Point, obstacles CellSet) []Point {
	from := grid.Snap(start)
	to := grid.Snap(end)

	if !grid.Contains(from) || !grid.Contains(to) {
		return nil
	}
	if obstacles.Has(from) || obstacles.Has(to) {
		return nil
	}

	open := &frontier{}
	heap.Init(open)

	seq := 0
	gScore := map[Cell]int{from: 0}
	cameFrom := map[Cell]Cell{}
	inOpen := map[Cell]*node{}

	push := func(c Cell, f int) {
		n := &node{cell: c, f: f, seq: seq}
		seq++
		heap.Push(open, n)
		inOpen[c] = n
	}
	push(from, manhattan(from, to))

	closed := map[Cell]struct{}{}

	for open.Len() > 0 {
		current := heap.Pop(open).(*node)
		delete(inOpen, current.cell)

		if current.cell == to {
			return reconstruct(cameFrom, current.cell)
		}
		if _, done := closed[current.cell]; done {
			continue
		}
		closed[current.cell] = struct{}{}

		for _, d := range neighbors {
			next := Cell{X: current.cell.X + d.X, Z: current.cell.Z + d.Z}
			if !grid.Contains(next) || obstacles.Has(next) {
				continue
			}
			if _, done := closed[next]; done {
				continue
			}

			tentative := gScore[current.cell] + 1
			if prev, seen := gScore[next]; seen && tentative >= prev {
				continue
			}
			gScore[next] = tentative
			cameFrom[next] = current.cell

			f := tentative + manhattan(next, to)
			if existing, ok := inOpen[next]; ok {
				existing.f = f
				heap.Fix(open, existing.idx)
			} else {
				push(next, f)
			}
		}
	}

	return nil
}

func reconstruct(cameFrom map[Cell]Cell, end Cell) []Point {
	cells := []Cell{end}
	for {
		parent, ok := cameFrom[cells[len(cells)-1]]
		if !ok {
			break
		}
		cells = append(cells, parent)
	}

	path := make([]Point, len(cells))
	for i, c := range cells {
		path[len(cells)-1-i] = c.Center()
	}
	return path
}
