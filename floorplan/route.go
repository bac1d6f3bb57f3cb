package floorplan

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// ErrRoomNotFound is returned when a route endpoint does not resolve on the
// requested floor.
var ErrRoomNotFound = errors.New("room not found")

// RouteError names the endpoint that failed to resolve
type RouteError struct {
	RoomID  string
	FloorID string
}

func (e *RouteError) Error() string {
	return fmt.Sprintf("room %q not found on floor %q", e.RoomID, e.FloorID)
}

func (e *RouteError) Unwrap() error {
	return ErrRoomNotFound
}

// anchor is a corridor vertex selected as a route waypoint
type anchor struct {
	corridor int
	index    int
	point    orb.Point
}

func toOrb(p Point) orb.Point {
	return orb.Point{p.X, p.Y}
}

func fromOrb(p orb.Point) Point {
	return Point{X: p[0], Y: p[1]}
}

// corridorLine converts corridor vertices to an orb.LineString
func corridorLine(c Corridor) orb.LineString {
	ls := make(orb.LineString, len(c.Points))
	for i, p := range c.Points {
		ls[i] = toOrb(p)
	}
	return ls
}

// nearestAnchor scans every vertex of every corridor and returns the one
// closest to target. Ties keep the first vertex found.
func nearestAnchor(lines []orb.LineString, target orb.Point) (anchor, bool) {
	best := anchor{corridor: -1}
	bestDist := math.Inf(1)
	for ci, ls := range lines {
		for pi, p := range ls {
			if d := planar.Distance(p, target); d < bestDist {
				bestDist = d
				best = anchor{corridor: ci, index: pi, point: p}
			}
		}
	}
	return best, best.corridor >= 0
}

// PlanRoute connects the centers of two rooms on one floor via the corridor
// vertices nearest to each. When both anchors are on the same corridor the
// route follows that corridor's vertices between them; otherwise it jumps
// straight from one anchor to the other. A route is always produced for
// rooms that exist.
func PlanRoute(rooms []Room, corridors []Corridor, floorID, startID, endID string) ([]Point, error) {
	onFloor := RoomsOnFloor(rooms, floorID)
	startRoom, ok := findRoom(onFloor, startID)
	if !ok {
		return nil, &RouteError{RoomID: startID, FloorID: floorID}
	}
	endRoom, ok := findRoom(onFloor, endID)
	if !ok {
		return nil, &RouteError{RoomID: endID, FloorID: floorID}
	}

	start := startRoom.Center()
	end := endRoom.Center()

	var lines []orb.LineString
	for _, c := range CorridorsOnFloor(corridors, floorID) {
		lines = append(lines, corridorLine(c))
	}

	nearStart, ok := nearestAnchor(lines, toOrb(start))
	if !ok {
		return collapseDuplicates([]Point{start, end}), nil
	}
	nearEnd, _ := nearestAnchor(lines, toOrb(end))

	route := []Point{start, fromOrb(nearStart.point)}
	if nearStart.corridor == nearEnd.corridor && nearStart.index != nearEnd.index {
		route = append(route, walkCorridor(lines[nearStart.corridor], nearStart.index, nearEnd.index)...)
	}
	route = append(route, fromOrb(nearEnd.point), end)

	return collapseDuplicates(route), nil
}

// walkCorridor returns the vertices strictly between from and to, in travel
// order.
func walkCorridor(ls orb.LineString, from, to int) []Point {
	step := 1
	if to < from {
		step = -1
	}
	var out []Point
	for i := from + step; i != to; i += step {
		out = append(out, fromOrb(ls[i]))
	}
	return out
}

// collapseDuplicates removes consecutive identical waypoints
func collapseDuplicates(pts []Point) []Point {
	out := make([]Point, 0, len(pts))
	for _, p := range pts {
		if n := len(out); n > 0 && out[n-1] == p {
			continue
		}
		out = append(out, p)
	}
	return out
}

// RouteLength returns the total polyline length of a route
func RouteLength(route []Point) float64 {
	ls := make(orb.LineString, len(route))
	for i, p := range route {
		ls[i] = toOrb(p)
	}
	return planar.Length(ls)
}

// RoutePlanner answers route queries against a MapModel. It reads the
// collections on every call and never caches them across edits.
type RoutePlanner struct {
	model MapModel
}

// NewRoutePlanner creates a planner reading from model
func NewRoutePlanner(model MapModel) *RoutePlanner {
	return &RoutePlanner{model: model}
}

// Route computes the waypoints from startID to endID on floorID
func (p *RoutePlanner) Route(floorID, startID, endID string) ([]Point, error) {
	return PlanRoute(p.model.Rooms(), p.model.Corridors(), floorID, startID, endID)
}
