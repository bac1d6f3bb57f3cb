package floorplan

import "math"

// Minimum usable room size in world units
const (
	MinRoomWidth  = 60.0
	MinRoomHeight = 40.0
)

// DefaultHandleRadius is the hit radius of a resize handle in viewport units.
// The editor divides it by the zoom before hit testing in world space.
const DefaultHandleRadius = 8.0

// Handle identifies a resize grip on a selected room
type Handle int

const (
	HandleBottomRight  Handle = iota // both axes
	HandleTopRight                   // width grows right, height grows up
	HandleBottomLeft                 // width grows left, height grows down
	HandleCenterRight                // width only
	HandleCenterBottom               // height only
)

// Handles lists every resize handle in hit-test priority order
var Handles = []Handle{
	HandleBottomRight,
	HandleTopRight,
	HandleBottomLeft,
	HandleCenterRight,
	HandleCenterBottom,
}

// String returns the handle name used on the wire
func (h Handle) String() string {
	switch h {
	case HandleBottomRight:
		return "bottom-right"
	case HandleTopRight:
		return "top-right"
	case HandleBottomLeft:
		return "bottom-left"
	case HandleCenterRight:
		return "center-right"
	case HandleCenterBottom:
		return "center-bottom"
	default:
		return "unknown"
	}
}

// ParseHandle converts a wire name back to a Handle
func ParseHandle(s string) (Handle, bool) {
	for _, h := range Handles {
		if h.String() == s {
			return h, true
		}
	}
	return 0, false
}

// HandlePosition returns the world position of a handle on r
func HandlePosition(r Rect, h Handle) Point {
	switch h {
	case HandleTopRight:
		return Point{X: r.X + r.Width, Y: r.Y}
	case HandleBottomLeft:
		return Point{X: r.X, Y: r.Y + r.Height}
	case HandleCenterRight:
		return Point{X: r.X + r.Width, Y: r.Y + r.Height/2}
	case HandleCenterBottom:
		return Point{X: r.X + r.Width/2, Y: r.Y + r.Height}
	default:
		return Point{X: r.X + r.Width, Y: r.Y + r.Height}
	}
}

// MinSize is the lower bound applied to every resize frame
type MinSize struct {
	Width  float64 `yaml:"minWidth" json:"minWidth"`
	Height float64 `yaml:"minHeight" json:"minHeight"`
}

// DefaultMinSize returns the 60x40 minimum
func DefaultMinSize() MinSize {
	return MinSize{Width: MinRoomWidth, Height: MinRoomHeight}
}

func (m MinSize) clamp(w, h float64) (float64, float64) {
	return math.Max(w, m.Width), math.Max(h, m.Height)
}

// DragSession records where inside the room the pointer was pressed.
type DragSession struct {
	RoomID string `json:"roomId"`
	Offset Point  `json:"offset"` // pointer world position minus room origin at press
}

// NewDragSession starts a drag of room at the given pointer position
func NewDragSession(room Room, pressWorld Point) DragSession {
	return DragSession{
		RoomID: room.ID,
		Offset: pressWorld.Sub(Point{X: room.X, Y: room.Y}),
	}
}

// Target returns the grid-snapped room origin for a pointer position
func (s DragSession) Target(pointerWorld Point, cell float64) Point {
	return SnapPoint(pointerWorld.Sub(s.Offset), cell)
}

// ResizeSession holds uncommitted geometry for an in-progress resize. The
// shared model is not touched until Commit.
type ResizeSession struct {
	RoomID     string  `json:"roomId"`
	Handle     Handle  `json:"handle"`
	Original   Rect    `json:"original"`
	PressWorld Point   `json:"pressWorld"`
	Width      float64 `json:"width"`  // transient
	Height     float64 `json:"height"` // transient
	Min        MinSize `json:"min"`
}

// NewResizeSession snapshots the room geometry and press position
func NewResizeSession(room Room, h Handle, pressWorld Point, min MinSize) ResizeSession {
	return ResizeSession{
		RoomID:     room.ID,
		Handle:     h,
		Original:   room.Bounds(),
		PressWorld: pressWorld,
		Width:      room.Width,
		Height:     room.Height,
		Min:        min,
	}
}

// Update recomputes the transient size for a pointer position. The minimum
// size is enforced on every frame; no grid snapping happens here.
func (s *ResizeSession) Update(pointerWorld Point) {
	d := pointerWorld.Sub(s.PressWorld)
	w, h := s.Original.Width, s.Original.Height

	switch s.Handle {
	case HandleBottomRight:
		w += d.X
		h += d.Y
	case HandleTopRight:
		w += d.X
		h -= d.Y
	case HandleBottomLeft:
		w -= d.X
		h += d.Y
	case HandleCenterRight:
		w += d.X
	case HandleCenterBottom:
		h += d.Y
	}

	s.Width, s.Height = s.Min.clamp(w, h)
}

// Preview returns the rectangle to draw for the current frame. The origin
// stays at the original position for every handle, so the top-right and
// bottom-left handles grow the room from the top-left corner.
func (s ResizeSession) Preview() Rect {
	return Rect{X: s.Original.X, Y: s.Original.Y, Width: s.Width, Height: s.Height}
}

// Commit returns the final grid-aligned size, never below the minimum
func (s ResizeSession) Commit(cell float64) Size {
	return Size{
		Width:  SnapAtLeast(s.Width, cell, s.Min.Width),
		Height: SnapAtLeast(s.Height, cell, s.Min.Height),
	}
}

// Hit is the result of a pointer press hit test
type Hit struct {
	RoomID   string
	Handle   Handle
	OnHandle bool
}

// HitTest finds what a press at world lands on. Handles of the selected room
// are checked first so resize wins over drag; otherwise the topmost (last)
// room containing the point is returned.
func HitTest(rooms []Room, selectedID string, world Point, handleRadius float64) Hit {
	if selectedID != "" {
		for _, r := range rooms {
			if r.ID != selectedID {
				continue
			}
			for _, h := range Handles {
				if Distance(world, HandlePosition(r.Bounds(), h)) <= handleRadius {
					return Hit{RoomID: r.ID, Handle: h, OnHandle: true}
				}
			}
		}
	}

	for i := len(rooms) - 1; i >= 0; i-- {
		if rooms[i].Bounds().Contains(world) {
			return Hit{RoomID: rooms[i].ID}
		}
	}
	return Hit{}
}

// updateRoom returns a copy of rooms with fn applied to the room with id.
// The second result is false if no room matched.
func updateRoom(rooms []Room, id string, fn func(*Room)) ([]Room, bool) {
	out := cloneRooms(rooms)
	for i := range out {
		if out[i].ID == id {
			fn(&out[i])
			return out, true
		}
	}
	return out, false
}

func findRoom(rooms []Room, id string) (Room, bool) {
	for _, r := range rooms {
		if r.ID == id {
			return r, true
		}
	}
	return Room{}, false
}
