// Package spatial provides the broad-phase grid used by combat to prune
// sword-vs-enemy candidates before the exact box test.
//
// The grid stores integer indices (not pointers) in preallocated cells so a
// rebuild every tick costs no allocations once warmed up.
package spatial

import (
	"math"
)

// SpatialGrid buckets entities into fixed-size cells over a rectangular region
// of the ground plane. Entities outside the region are clamped into the edge
// cells, so queries never miss them.
//
// Memory layout: cells are stored in row-major order (cells[row*cols+col])
type SpatialGrid struct {
	originX, originZ float64 // world coordinate of the grid's min corner
	cellSize         float64
	invCellSize      float64 // 1/cellSize for faster division
	cols, rows       int
	cells            [][]uint32 // cells[row*cols+col] = list of entity indices
	scratch          []uint32   // reusable buffer for query results
}

// NewSpatialGrid creates a grid covering [minX, minX+width] x [minZ, minZ+depth].
// maxEntities is used to preallocate cell capacity.
func NewSpatialGrid(minX, minZ, width, depth, cellSize float64, maxEntities int) *SpatialGrid {
	if cellSize <= 0 {
		cellSize = 1
	}
	cols := int(math.Ceil(width / cellSize))
	rows := int(math.Ceil(depth / cellSize))

	// Ensure at least 1x1 grid
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}

	cells := make([][]uint32, cols*rows)
	avgPerCell := maxEntities / len(cells)
	if avgPerCell < 4 {
		avgPerCell = 4
	}
	for i := range cells {
		cells[i] = make([]uint32, 0, avgPerCell)
	}

	return &SpatialGrid{
		originX:     minX,
		originZ:     minZ,
		cellSize:    cellSize,
		invCellSize: 1.0 / cellSize,
		cols:        cols,
		rows:        rows,
		cells:       cells,
		scratch:     make([]uint32, 0, 32),
	}
}

// Clear resets all cells without deallocating underlying memory.
func (g *SpatialGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0] // Keep capacity, reset length
	}
}

// Insert adds an entity at ground position (x, z).
// The entityID should be the index into the caller's entity slice.
func (g *SpatialGrid) Insert(entityID uint32, x, z float64) {
	idx := g.row(z)*g.cols + g.col(x)
	g.cells[idx] = append(g.cells[idx], entityID)
}

func (g *SpatialGrid) col(x float64) int {
	return clampIndex(int(math.Floor((x-g.originX)*g.invCellSize)), g.cols)
}

func (g *SpatialGrid) row(z float64) int {
	return clampIndex(int(math.Floor((z-g.originZ)*g.invCellSize)), g.rows)
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// QueryRect returns all entity IDs whose cell overlaps the rectangle
// [minX, maxX] x [minZ, maxZ].
//
// IMPORTANT: The returned slice is reused on subsequent calls.
// Copy the results if you need to persist them.
//
// The returned candidates may include entities outside the rectangle;
// the caller must perform the precise test (narrow phase).
func (g *SpatialGrid) QueryRect(minX, minZ, maxX, maxZ float64) []uint32 {
	g.scratch = g.scratch[:0]

	// Both ends clamp into range: a rectangle lying wholly outside the grid
	// still overlaps the edge cells where outside entities were clamped.
	minCol, maxCol := g.col(minX), g.col(maxX)
	minRow, maxRow := g.row(minZ), g.row(maxZ)

	for row := minRow; row <= maxRow; row++ {
		for col := minCol; col <= maxCol; col++ {
			g.scratch = append(g.scratch, g.cells[row*g.cols+col]...)
		}
	}

	return g.scratch
}

// Stats summarises cell occupancy; combat exports it as broad-phase metrics.
func (g *SpatialGrid) Stats() GridStats {
	var totalEntities, maxInCell, nonEmpty int
	for _, cell := range g.cells {
		count := len(cell)
		totalEntities += count
		if count > maxInCell {
			maxInCell = count
		}
		if count > 0 {
			nonEmpty++
		}
	}

	avgPerCell := 0.0
	if nonEmpty > 0 {
		avgPerCell = float64(totalEntities) / float64(nonEmpty)
	}

	return GridStats{
		CellSize:       g.cellSize,
		TotalCells:     len(g.cells),
		NonEmptyCells:  nonEmpty,
		TotalEntities:  totalEntities,
		MaxInCell:      maxInCell,
		AvgPerNonEmpty: avgPerCell,
	}
}

// GridStats contains grid occupancy statistics.
type GridStats struct {
	CellSize       float64
	TotalCells     int
	NonEmptyCells  int
	TotalEntities  int
	MaxInCell      int
	AvgPerNonEmpty float64
}
