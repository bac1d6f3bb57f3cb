package floorplan

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDragSessionTarget(t *testing.T) {
	room := Room{ID: "r", X: 100, Y: 100, Width: 120, Height: 80}

	tests := []struct {
		name    string
		press   Point
		pointer Point
		want    Point
	}{
		{"pressed at origin", Point{X: 100, Y: 100}, Point{X: 113, Y: 107}, Point{X: 120, Y: 100}},
		{"offset preserved", Point{X: 150, Y: 130}, Point{X: 190, Y: 130}, Point{X: 140, Y: 100}},
		{"no movement", Point{X: 150, Y: 130}, Point{X: 150, Y: 130}, Point{X: 100, Y: 100}},
		{"small jitter snaps back", Point{X: 150, Y: 130}, Point{X: 155, Y: 121}, Point{X: 100, Y: 100}},
		{"negative coordinates", Point{X: 100, Y: 100}, Point{X: -31, Y: -9}, Point{X: -40, Y: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewDragSession(room, tt.press)
			got := s.Target(tt.pointer, DefaultRoomGrid)
			if got != tt.want {
				t.Errorf("Target(%v) = %v, want %v", tt.pointer, got, tt.want)
			}
		})
	}
}

func TestDragTargetAlwaysOnGrid(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	room := Room{ID: "r", X: 40, Y: 60, Width: 100, Height: 60}
	s := NewDragSession(room, Point{X: 57.3, Y: 81.9})
	for i := 0; i < 500; i++ {
		p := Point{X: rng.Float64()*2000 - 1000, Y: rng.Float64()*2000 - 1000}
		got := s.Target(p, DefaultRoomGrid)
		assert.Equal(t, got, SnapPoint(got, DefaultRoomGrid), "pointer %v", p)
	}
}

func TestResizeBottomRightClampsToMinimum(t *testing.T) {
	room := Room{ID: "r", X: 0, Y: 0, Width: 80, Height: 60}
	s := NewResizeSession(room, HandleBottomRight, Point{X: 80, Y: 60}, DefaultMinSize())

	// raw width 55, raw height 60
	s.Update(Point{X: 55, Y: 60})
	assert.Equal(t, 60.0, s.Width, "transient width is clamped every frame")
	assert.Equal(t, 60.0, s.Height)

	size := s.Commit(DefaultRoomGrid)
	assert.Equal(t, Size{Width: 60, Height: 60}, size)
}

func TestResizeHandles(t *testing.T) {
	room := Room{ID: "r", X: 100, Y: 100, Width: 120, Height: 80}
	min := DefaultMinSize()

	tests := []struct {
		handle           Handle
		delta            Point
		wantW, wantH     float64
		commitW, commitH float64
	}{
		{HandleBottomRight, Point{X: 31, Y: 9}, 151, 89, 160, 80},
		{HandleTopRight, Point{X: 20, Y: -20}, 140, 100, 140, 100},
		{HandleBottomLeft, Point{X: -20, Y: 20}, 140, 100, 140, 100},
		{HandleCenterRight, Point{X: 40, Y: 500}, 160, 80, 160, 80},
		{HandleCenterBottom, Point{X: 500, Y: 13}, 120, 93, 120, 100},
	}
	for _, tt := range tests {
		t.Run(tt.handle.String(), func(t *testing.T) {
			press := HandlePosition(room.Bounds(), tt.handle)
			s := NewResizeSession(room, tt.handle, press, min)
			s.Update(press.Add(tt.delta))
			assert.InDelta(t, tt.wantW, s.Width, 1e-9)
			assert.InDelta(t, tt.wantH, s.Height, 1e-9)
			assert.Equal(t, Size{Width: tt.commitW, Height: tt.commitH}, s.Commit(DefaultRoomGrid))
		})
	}
}

// The top-right and bottom-left handles only change the size. The room keeps
// its origin, so it grows from the top-left corner rather than from the
// opposite edge.
func TestResizeKeepsOrigin(t *testing.T) {
	room := Room{ID: "r", X: 100, Y: 100, Width: 80, Height: 60}

	for _, h := range []Handle{HandleTopRight, HandleBottomLeft} {
		t.Run(h.String(), func(t *testing.T) {
			press := HandlePosition(room.Bounds(), h)
			s := NewResizeSession(room, h, press, DefaultMinSize())
			s.Update(press.Add(Point{X: 20, Y: -20}))
			s.Update(press.Add(Point{X: -20, Y: 20}))

			preview := s.Preview()
			assert.Equal(t, 100.0, preview.X)
			assert.Equal(t, 100.0, preview.Y)
		})
	}
}

func TestResizeNeverBelowMinimum(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	min := DefaultMinSize()

	for i := 0; i < 200; i++ {
		room := Room{ID: "r", X: 0, Y: 0, Width: 60 + rng.Float64()*200, Height: 40 + rng.Float64()*200}
		h := Handles[rng.Intn(len(Handles))]
		press := HandlePosition(room.Bounds(), h)
		s := NewResizeSession(room, h, press, min)

		for frame := 0; frame < 20; frame++ {
			s.Update(press.Add(Point{X: rng.Float64()*800 - 400, Y: rng.Float64()*800 - 400}))
			require.GreaterOrEqual(t, s.Width, min.Width)
			require.GreaterOrEqual(t, s.Height, min.Height)
		}
		size := s.Commit(DefaultRoomGrid)
		assert.GreaterOrEqual(t, size.Width, min.Width)
		assert.GreaterOrEqual(t, size.Height, min.Height)
		assert.Equal(t, size.Width, Snap(size.Width, DefaultRoomGrid))
		assert.Equal(t, size.Height, Snap(size.Height, DefaultRoomGrid))
	}
}

func TestHitTest(t *testing.T) {
	rooms := []Room{
		{ID: "a", X: 0, Y: 0, Width: 100, Height: 100},
		{ID: "b", X: 100, Y: 100, Width: 100, Height: 100},
	}

	tests := []struct {
		name     string
		selected string
		at       Point
		want     Hit
	}{
		{"empty space", "", Point{X: 500, Y: 500}, Hit{}},
		{"body of unselected room", "", Point{X: 50, Y: 50}, Hit{RoomID: "a"}},
		{"shared corner picks topmost", "", Point{X: 100, Y: 100}, Hit{RoomID: "b"}},
		{"handle wins over overlapping body", "a", Point{X: 102, Y: 101}, Hit{RoomID: "a", Handle: HandleBottomRight, OnHandle: true}},
		{"top-right handle", "a", Point{X: 100, Y: 3}, Hit{RoomID: "a", Handle: HandleTopRight, OnHandle: true}},
		{"center-bottom handle", "a", Point{X: 50, Y: 105}, Hit{RoomID: "a", Handle: HandleCenterBottom, OnHandle: true}},
		{"outside handle radius", "a", Point{X: 50, Y: 110}, Hit{}},
		{"handles only for selected room", "b", Point{X: 100, Y: 0}, Hit{RoomID: "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HitTest(rooms, tt.selected, tt.at, DefaultHandleRadius))
		})
	}
}

func TestParseHandle(t *testing.T) {
	for _, h := range Handles {
		got, ok := ParseHandle(h.String())
		assert.True(t, ok)
		assert.Equal(t, h, got)
	}
	_, ok := ParseHandle("top-left")
	assert.False(t, ok)
}
