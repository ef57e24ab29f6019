package main

import "math"

// SpatialCellSize is the target cell edge. The real edge is stretched so a
// whole number of cells tiles each axis, which keeps wrap-around exact.
const SpatialCellSize = 80.0

// SpatialGrid is a wrap-around grid for broad-phase collision queries. It
// stores indices into a room's player order.
type SpatialGrid struct {
	cols, rows   int
	cellW, cellH float64
	cells        [][]int
}

// NewSpatialGrid sizes a grid for a w x h torus.
func NewSpatialGrid(w, h float64) *SpatialGrid {
	cols := max(1, int(w/SpatialCellSize))
	rows := max(1, int(h/SpatialCellSize))
	return &SpatialGrid{
		cols:  cols,
		rows:  rows,
		cellW: w / float64(cols),
		cellH: h / float64(rows),
		cells: make([][]int, cols*rows),
	}
}

// Clear resets all cells (keeps allocated capacity)
func (g *SpatialGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

func wrapIndex(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

func (g *SpatialGrid) cellIdx(x, y float64) int {
	cx := wrapIndex(int(math.Floor(x/g.cellW)), g.cols)
	cy := wrapIndex(int(math.Floor(y/g.cellH)), g.rows)
	return cy*g.cols + cx
}

// Insert adds idx at a position already wrapped into the arena.
func (g *SpatialGrid) Insert(x, y float64, idx int) {
	c := g.cellIdx(x, y)
	g.cells[c] = append(g.cells[c], idx)
}

// QueryBuf appends every index stored in cells touched by the circle's
// bounding box, wrapping across edges. An entry appears at most once.
func (g *SpatialGrid) QueryBuf(x, y, radius float64, buf []int) []int {
	minCX := int(math.Floor((x - radius) / g.cellW))
	maxCX := int(math.Floor((x + radius) / g.cellW))
	minCY := int(math.Floor((y - radius) / g.cellH))
	maxCY := int(math.Floor((y + radius) / g.cellH))
	// A box wider than the arena would visit cells twice.
	if maxCX-minCX >= g.cols {
		minCX, maxCX = 0, g.cols-1
	}
	if maxCY-minCY >= g.rows {
		minCY, maxCY = 0, g.rows-1
	}
	for cy := minCY; cy <= maxCY; cy++ {
		row := wrapIndex(cy, g.rows) * g.cols
		for cx := minCX; cx <= maxCX; cx++ {
			buf = append(buf, g.cells[row+wrapIndex(cx, g.cols)]...)
		}
	}
	return buf
}
