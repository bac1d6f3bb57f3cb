package floorplan

import (
	"bytes"
	"image/color"
	"image/png"
	"testing"

	"github.com/tdewolff/canvas"
)

func renderTestDocument() Document {
	doc := sampleDocument()
	doc.Rooms[0].Color = "#A7F3D0"
	return doc
}

func TestFloorRenderer_RenderToSVG(t *testing.T) {
	r := NewFloorRenderer(renderTestDocument(), "f1", DefaultConfig().Render, DefaultGrid())
	r.Route = []Point{{X: 60, Y: 40}, {X: 0, Y: 120}, {X: 200, Y: 120}}

	var buf bytes.Buffer
	if err := r.RenderToSVG(&buf); err != nil {
		t.Fatalf("Failed to render to SVG: %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte("<svg")) {
		t.Errorf("Output does not contain <svg tag")
	}
	if !bytes.Contains(buf.Bytes(), []byte("path")) {
		t.Errorf("Output does not contain path elements")
	}
}

func TestFloorRenderer_RenderToPNG(t *testing.T) {
	r := NewFloorRenderer(renderTestDocument(), "f1", RenderConfig{Padding: 20}, DefaultGrid())
	r.Resolution = canvas.DPMM(1)

	var buf bytes.Buffer
	if err := r.RenderToPNG(&buf); err != nil {
		t.Fatalf("Failed to render to PNG: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("Failed to decode PNG: %v", err)
	}

	// content spans x 0..200 and y 0..120 plus 20 padding on each side
	b := img.Bounds()
	if b.Dx() < 235 || b.Dx() > 245 || b.Dy() < 155 || b.Dy() > 165 {
		t.Errorf("unexpected image size %dx%d, want about 240x160", b.Dx(), b.Dy())
	}
}

func TestFloorRenderer_EmptyFloor(t *testing.T) {
	r := NewFloorRenderer(Document{}, "nothing", RenderConfig{}, DefaultGrid())
	if got := r.Bounds(); got != (Rect{}) {
		t.Errorf("Bounds() = %+v, want zero rect", got)
	}
	var buf bytes.Buffer
	if err := r.RenderToSVG(&buf); err != nil {
		t.Fatalf("Failed to render empty floor: %v", err)
	}
}

func TestFloorRenderer_Bounds(t *testing.T) {
	r := &FloorRenderer{
		Rooms:     []Room{{X: 40, Y: 20, Width: 100, Height: 60}},
		Corridors: []Corridor{{Points: []Point{{X: -40, Y: 200}, {X: 0, Y: 200}}}},
		Route:     []Point{{X: 300, Y: 0}},
	}
	want := Rect{X: -40, Y: 0, Width: 340, Height: 200}
	if got := r.Bounds(); got != want {
		t.Errorf("Bounds() = %+v, want %+v", got, want)
	}
}

func TestFrameFlipsYAxis(t *testing.T) {
	f := frame{min: Point{X: 0, Y: 0}, padding: 10, width: 120, height: 120}
	_, topY := f.toCanvas(Point{X: 0, Y: 0})
	_, bottomY := f.toCanvas(Point{X: 0, Y: 100})
	if topY <= bottomY {
		t.Errorf("world y=0 maps to %v, y=100 maps to %v; expected top above bottom", topY, bottomY)
	}
	if topY != 110 || bottomY != 10 {
		t.Errorf("toCanvas y = (%v, %v), want (110, 10)", topY, bottomY)
	}
}

func TestParseHexColor(t *testing.T) {
	fallback := color.RGBA{1, 2, 3, 255}
	tests := []struct {
		in   string
		want color.RGBA
	}{
		{"#DBEAFE", color.RGBA{0xDB, 0xEA, 0xFE, 255}},
		{"10b981", color.RGBA{0x10, 0xB9, 0x81, 255}},
		{"", fallback},
		{"#fff", fallback},
		{"#zzzzzz", fallback},
	}
	for _, tt := range tests {
		if got := parseHexColor(tt.in, fallback); got != tt.want {
			t.Errorf("parseHexColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNrgbaToRGBA(t *testing.T) {
	tests := []struct {
		in   color.NRGBA
		want color.RGBA
	}{
		{color.NRGBA{255, 255, 255, 0}, color.RGBA{0, 0, 0, 0}},
		{color.NRGBA{10, 20, 30, 255}, color.RGBA{10, 20, 30, 255}},
		{color.NRGBA{255, 0, 100, 128}, color.RGBA{128, 0, 50, 128}},
	}
	for _, tt := range tests {
		if got := nrgbaToRGBA(tt.in); got != tt.want {
			t.Errorf("nrgbaToRGBA(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNodePositions(t *testing.T) {
	r := &FloorRenderer{
		Rooms: []Room{{Name: "Lab", X: 0, Y: 0, Width: 100, Height: 60}},
		Devices: []Device{
			{ID: "n1", Type: DeviceNode, Room: "Lab"},
			{ID: "g1", Type: DeviceGateway, Room: "Lab"},
			{ID: "n2", Type: DeviceNode, Room: "Missing"},
		},
	}
	got := r.nodePositions()
	if len(got) != 1 || got[0] != (Point{X: 50, Y: 30}) {
		t.Errorf("nodePositions() = %v, want [(50,30)]", got)
	}
}
