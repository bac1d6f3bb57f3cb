package floorplan

import "math"

// Room creation defaults
const (
	DefaultRoomWidth  = 120.0
	DefaultRoomHeight = 80.0
	DefaultRoomColor  = "#DBEAFE"
)

// RoomDefaults configures new rooms
type RoomDefaults struct {
	Width  float64 `yaml:"defaultWidth" json:"defaultWidth"`
	Height float64 `yaml:"defaultHeight" json:"defaultHeight"`
	Color  string  `yaml:"defaultColor" json:"defaultColor"`
}

func (d RoomDefaults) size(min MinSize) (float64, float64) {
	w, h := d.Width, d.Height
	if w <= 0 {
		w = DefaultRoomWidth
	}
	if h <= 0 {
		h = DefaultRoomHeight
	}
	return min.clamp(w, h)
}

// NewRoom builds a room on floorID with its origin snapped to the room grid
func NewRoom(floorID, name string, at Point, defaults RoomDefaults, min MinSize, grid Grid) Room {
	w, h := defaults.size(min)
	origin := grid.SnapRoomPoint(at)
	color := defaults.Color
	if color == "" {
		color = DefaultRoomColor
	}
	return Room{
		ID:      NewID("room"),
		Name:    name,
		X:       origin.X,
		Y:       origin.Y,
		Width:   SnapAtLeast(w, grid.Room, min.Width),
		Height:  SnapAtLeast(h, grid.Room, min.Height),
		Color:   color,
		FloorID: floorID,
	}
}

// SynthesizeDeviceRooms makes sure every node device on floorID has a room.
// A node naming a room that does not exist gets a new default-size room in a
// row below the existing rooms; the room's NodeID points back at the device.
// Existing rooms without a NodeID pick up the back-reference. The returned
// slice is the full, updated room collection; added reports how many rooms
// were created.
func SynthesizeDeviceRooms(rooms []Room, devices []Device, floorID string, defaults RoomDefaults, min MinSize, grid Grid) (out []Room, added int) {
	out = cloneRooms(rooms)

	byName := make(map[string]int)
	bottom := 0.0
	for i, r := range out {
		if r.FloorID != floorID {
			continue
		}
		if _, seen := byName[r.Name]; !seen {
			byName[r.Name] = i
		}
		bottom = math.Max(bottom, r.Y+r.Height)
	}

	gap := math.Max(grid.Room, 1)
	w, h := defaults.size(min)
	w = SnapAtLeast(w, grid.Room, min.Width)
	h = SnapAtLeast(h, grid.Room, min.Height)
	cursor := grid.SnapRoomPoint(Point{X: gap, Y: bottom + 2*gap})

	for _, d := range devices {
		if d.Type != DeviceNode || d.Room == "" || d.FloorID != floorID {
			continue
		}
		if i, ok := byName[d.Room]; ok {
			if out[i].NodeID == "" {
				out[i].NodeID = d.ID
			}
			continue
		}

		r := NewRoom(floorID, d.Room, cursor, defaults, min, grid)
		r.Width, r.Height = w, h
		r.NodeID = d.ID
		out = append(out, r)
		byName[d.Room] = len(out) - 1
		added++
		cursor.X += w + gap
	}
	return out, added
}
