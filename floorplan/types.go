package floorplan

// Point represents a 2D coordinate
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p + q
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns p - q
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Size represents width/height in world units
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rect is an axis-aligned rectangle with its origin at the top-left corner.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the midpoint of the rectangle
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Contains reports whether p lies inside r (edges inclusive)
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width && p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// Room is a rectangular area on a floor. Geometry is in world units.
type Room struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Color   string  `json:"color,omitempty"`
	FloorID string  `json:"floorId"`
	NodeID  string  `json:"nodeId,omitempty"` // network node device placed in this room
}

// Bounds returns the room rectangle
func (r Room) Bounds() Rect {
	return Rect{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
}

// Center returns the room center in world coordinates
func (r Room) Center() Point {
	return r.Bounds().Center()
}

// Corridor is an authored polyline used for routing between rooms.
// Width is the rendering thickness, not a routing weight.
type Corridor struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Points  []Point `json:"points"`
	Width   float64 `json:"width"`
	FloorID string  `json:"floorId"`
	Color   string  `json:"color,omitempty"`
}

// Clone returns a deep copy of the corridor
func (c Corridor) Clone() Corridor {
	out := c
	out.Points = append([]Point(nil), c.Points...)
	return out
}

// Floor is a level of a building
type Floor struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Level      int    `json:"level"`
	BuildingID string `json:"buildingId"`
}

// Building is the top-level container
type Building struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DeviceType classifies a device placed on the map
type DeviceType string

const (
	DeviceNode       DeviceType = "node"
	DeviceGateway    DeviceType = "gateway"
	DeviceWheelchair DeviceType = "wheelchair"
	DeviceAppliance  DeviceType = "appliance"
)

// Device is read by the engine only for its room placement.
type Device struct {
	ID      string     `json:"id"`
	Name    string     `json:"name"`
	Type    DeviceType `json:"type"`
	Room    string     `json:"room,omitempty"` // room name, not id
	FloorID string     `json:"floorId,omitempty"`
}

// Document is the full set of map collections. It is also the export/import
// file shape.
type Document struct {
	Buildings []Building `json:"buildings"`
	Floors    []Floor    `json:"floors"`
	Rooms     []Room     `json:"rooms"`
	Corridors []Corridor `json:"corridors"`
	Devices   []Device   `json:"devices"`
}

// Clone returns a deep copy of the document. Nil collections become empty
// slices so JSON output is consistent.
func (d Document) Clone() Document {
	out := Document{
		Buildings: append(make([]Building, 0, len(d.Buildings)), d.Buildings...),
		Floors:    append(make([]Floor, 0, len(d.Floors)), d.Floors...),
		Rooms:     cloneRooms(d.Rooms),
		Corridors: cloneCorridors(d.Corridors),
		Devices:   append(make([]Device, 0, len(d.Devices)), d.Devices...),
	}
	return out
}

// FindFloor returns the floor with the given id
func (d *Document) FindFloor(id string) (*Floor, bool) {
	for i := range d.Floors {
		if d.Floors[i].ID == id {
			return &d.Floors[i], true
		}
	}
	return nil, false
}

func cloneRooms(rooms []Room) []Room {
	return append(make([]Room, 0, len(rooms)), rooms...)
}

func cloneCorridors(corridors []Corridor) []Corridor {
	out := make([]Corridor, len(corridors))
	for i, c := range corridors {
		out[i] = c.Clone()
	}
	return out
}

// RoomsOnFloor filters rooms by floor id, preserving order
func RoomsOnFloor(rooms []Room, floorID string) []Room {
	var out []Room
	for _, r := range rooms {
		if r.FloorID == floorID {
			out = append(out, r)
		}
	}
	return out
}

// CorridorsOnFloor filters corridors by floor id, preserving order
func CorridorsOnFloor(corridors []Corridor, floorID string) []Corridor {
	var out []Corridor
	for _, c := range corridors {
		if c.FloorID == floorID {
			out = append(out, c)
		}
	}
	return out
}

// DevicesOnFloor filters devices by floor id, preserving order
func DevicesOnFloor(devices []Device, floorID string) []Device {
	var out []Device
	for _, d := range devices {
		if d.FloorID == floorID {
			out = append(out, d)
		}
	}
	return out
}
