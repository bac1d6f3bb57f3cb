package floorplan

import "fmt"

// Corridor rendering defaults
const (
	DefaultCorridorWidth = 20.0
	DefaultCorridorColor = "#9CA3AF"
)

// CorridorStyle holds the values new corridors are created with
type CorridorStyle struct {
	Width float64 `yaml:"width" json:"width"`
	Color string  `yaml:"color" json:"color"`
}

// CorridorAuthor accumulates clicked points while a corridor is being drawn.
// Points are snapped to the corridor grid and an exact duplicate of any
// point already accumulated is ignored. Self-intersecting paths are allowed.
type CorridorAuthor struct {
	grid    Grid
	drawing bool
	points  []Point
}

// NewCorridorAuthor creates an inactive author snapping to grid's corridor cell
func NewCorridorAuthor(grid Grid) *CorridorAuthor {
	return &CorridorAuthor{grid: grid}
}

// Begin enters drawing mode with an empty point list
func (a *CorridorAuthor) Begin() {
	a.drawing = true
	a.points = nil
}

// Drawing reports whether a session is active
func (a *CorridorAuthor) Drawing() bool {
	return a.drawing
}

// Append snaps world to the corridor grid and adds it unless it is already
// present. Returns the snapped point and whether it was added.
func (a *CorridorAuthor) Append(world Point) (Point, bool) {
	p := a.grid.SnapCorridorPoint(world)
	if !a.drawing {
		return p, false
	}
	for _, q := range a.points {
		if q == p {
			return p, false
		}
	}
	a.points = append(a.points, p)
	return p, true
}

// Points returns a copy of the accumulated points in click order
func (a *CorridorAuthor) Points() []Point {
	return append([]Point(nil), a.points...)
}

// Finish leaves drawing mode. With two or more points a corridor is built on
// floorID; otherwise the points are dropped and ok is false. seq is used for
// the generated name.
func (a *CorridorAuthor) Finish(floorID string, seq int, style CorridorStyle) (Corridor, bool) {
	pts := a.points
	a.drawing = false
	a.points = nil

	if len(pts) < 2 {
		return Corridor{}, false
	}

	width := style.Width
	if width <= 0 {
		width = DefaultCorridorWidth
	}
	return Corridor{
		ID:      NewID("corridor"),
		Name:    fmt.Sprintf("Corridor %d", seq),
		Points:  pts,
		Width:   width,
		FloorID: floorID,
		Color:   style.Color,
	}, true
}

// Discard leaves drawing mode without creating anything
func (a *CorridorAuthor) Discard() {
	a.drawing = false
	a.points = nil
}
