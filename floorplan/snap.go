package floorplan

import "math"

// Default grid resolutions in world units
const (
	DefaultRoomGrid     = 20.0
	DefaultCorridorGrid = 40.0
)

// Snap rounds a coordinate to the nearest multiple of the given cell size.
// A cell size of 0 or less disables snapping and returns the value unchanged.
func Snap(value, cell float64) float64 {
	if cell <= 0 {
		return value
	}
	return math.Round(value/cell) * cell
}

// SnapPoint snaps both axes of p to the same cell size
func SnapPoint(p Point, cell float64) Point {
	return Point{X: Snap(p.X, cell), Y: Snap(p.Y, cell)}
}

// SnapAtLeast snaps a length to the grid without letting it fall below
// minimum. If the nearest multiple is too small, the next multiple above
// minimum is used instead.
func SnapAtLeast(value, cell, minimum float64) float64 {
	v := Snap(math.Max(value, minimum), cell)
	if v >= minimum {
		return v
	}
	if cell <= 0 {
		return minimum
	}
	return math.Ceil(minimum/cell) * cell
}

// Grid holds the two independent snap resolutions. Room geometry uses the
// fine grid; corridor points use the coarse one.
type Grid struct {
	Room     float64 `yaml:"room" json:"room"`
	Corridor float64 `yaml:"corridor" json:"corridor"`
}

// DefaultGrid returns the standard 20/40 grid
func DefaultGrid() Grid {
	return Grid{Room: DefaultRoomGrid, Corridor: DefaultCorridorGrid}
}

// SnapRoomPoint snaps a room origin to the fine grid
func (g Grid) SnapRoomPoint(p Point) Point {
	return SnapPoint(p, g.Room)
}

// SnapCorridorPoint snaps a corridor vertex to the coarse grid
func (g Grid) SnapCorridorPoint(p Point) Point {
	return SnapPoint(p, g.Corridor)
}
