package floorplan

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/tdewolff/canvas/renderers/svg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// DefaultRenderDPI gives two PNG pixels per world unit
const DefaultRenderDPI = 2 * 25.4

var (
	roomOutline   = color.RGBA{R: 55, G: 65, B: 81, A: 255}
	nodeFill      = color.RGBA{R: 16, G: 185, B: 129, A: 255}
	routeStroke   = color.RGBA{R: 220, G: 38, B: 38, A: 255}
	gridStroke    = color.RGBA{R: 229, G: 231, B: 235, A: 255}
	fallbackColor = color.RGBA{R: 156, G: 163, B: 175, A: 255}
)

// nrgbaToRGBA converts color.NRGBA to color.RGBA by premultiplying alpha
// This is needed for the canvas library which expects premultiplied RGBA
func nrgbaToRGBA(c color.NRGBA) color.RGBA {
	if c.A == 0 {
		return color.RGBA{0, 0, 0, 0}
	}
	if c.A == 255 {
		return color.RGBA{c.R, c.G, c.B, 255}
	}
	alpha32 := uint32(c.A)
	return color.RGBA{
		R: uint8((uint32(c.R) * alpha32) / 255),
		G: uint8((uint32(c.G) * alpha32) / 255),
		B: uint8((uint32(c.B) * alpha32) / 255),
		A: c.A,
	}
}

// parseHexColor parses "#RRGGBB". Anything else yields fallback.
func parseHexColor(hex string, fallback color.RGBA) color.RGBA {
	if len(hex) > 0 && hex[0] == '#' {
		hex = hex[1:]
	}
	if len(hex) != 6 {
		return fallback
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b); err != nil {
		return fallback
	}
	return color.RGBA{r, g, b, 255}
}

// FloorRenderer draws one floor as vector graphics
type FloorRenderer struct {
	Rooms       []Room
	Corridors   []Corridor
	Devices     []Device
	Route       []Point           // optional overlay
	GridSpacing float64           // 0 disables grid lines
	Padding     float64           // world units around the content
	Resolution  canvas.Resolution // PNG only
	RoomAlpha   uint8
}

// NewFloorRenderer collects the floor's collections from doc
func NewFloorRenderer(doc Document, floorID string, cfg RenderConfig, grid Grid) *FloorRenderer {
	r := &FloorRenderer{
		Rooms:      RoomsOnFloor(doc.Rooms, floorID),
		Corridors:  CorridorsOnFloor(doc.Corridors, floorID),
		Devices:    DevicesOnFloor(doc.Devices, floorID),
		Padding:    cfg.Padding,
		Resolution: canvas.DPI(DefaultRenderDPI),
		RoomAlpha:  220,
	}
	if cfg.DPI > 0 {
		r.Resolution = canvas.DPI(cfg.DPI)
	}
	if cfg.GridLines {
		r.GridSpacing = grid.Room
	}
	return r
}

// canvasRenderer is an interface that both svg and rasterizer renderers implement
type canvasRenderer interface {
	RenderPath(path *canvas.Path, style canvas.Style, m canvas.Matrix)
}

// frame maps world coordinates onto the canvas. Canvas y grows upward, so
// the world y axis is flipped to keep rooms in screen orientation.
type frame struct {
	min           Point
	padding       float64
	width, height float64
}

func (f frame) toCanvas(p Point) (float64, float64) {
	return (p.X - f.min.X) + f.padding, f.height - ((p.Y - f.min.Y) + f.padding)
}

// toImage maps world coordinates to raster pixels
func (f frame) toImage(p Point, dpmm float64) (int, int) {
	x := ((p.X - f.min.X) + f.padding) * dpmm
	y := ((p.Y - f.min.Y) + f.padding) * dpmm
	return int(math.Round(x)), int(math.Round(y))
}

func (f frame) polyline(pts []Point, closed bool) *canvas.Path {
	cp := &canvas.Path{}
	for i, p := range pts {
		cx, cy := f.toCanvas(p)
		if i == 0 {
			cp.MoveTo(cx, cy)
		} else {
			cp.LineTo(cx, cy)
		}
	}
	if closed {
		cp.Close()
	}
	return cp
}

// RenderToSVG writes the floor as an SVG to the provided writer
func (r *FloorRenderer) RenderToSVG(w io.Writer) error {
	f := r.frame()
	svgRenderer := svg.New(w, f.width, f.height, nil)
	r.renderToCanvas(svgRenderer, f)
	return svgRenderer.Close()
}

// RenderToPNG writes the floor as a PNG with room labels
func (r *FloorRenderer) RenderToPNG(w io.Writer) error {
	f := r.frame()
	rast := rasterizer.New(f.width, f.height, r.Resolution, canvas.DefaultColorSpace)
	r.renderToCanvas(rast, f)
	r.drawLabels(rast, f)
	return png.Encode(w, rast)
}

// Bounds returns the world-space extent of everything drawn. An empty floor
// yields a zero rectangle at the origin.
func (r *FloorRenderer) Bounds() Rect {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	grow := func(p Point) {
		minX, minY = math.Min(minX, p.X), math.Min(minY, p.Y)
		maxX, maxY = math.Max(maxX, p.X), math.Max(maxY, p.Y)
	}
	for _, rm := range r.Rooms {
		grow(Point{X: rm.X, Y: rm.Y})
		grow(Point{X: rm.X + rm.Width, Y: rm.Y + rm.Height})
	}
	for _, c := range r.Corridors {
		for _, p := range c.Points {
			grow(p)
		}
	}
	for _, p := range r.Route {
		grow(p)
	}
	if math.IsInf(minX, 1) {
		return Rect{}
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

func (r *FloorRenderer) frame() frame {
	b := r.Bounds()
	pad := math.Max(r.Padding, 1)
	return frame{
		min:     Point{X: b.X, Y: b.Y},
		padding: pad,
		width:   b.Width + 2*pad,
		height:  b.Height + 2*pad,
	}
}

// renderToCanvas draws background, grid, corridors, rooms, devices and the
// route overlay in that order
func (r *FloorRenderer) renderToCanvas(renderer canvasRenderer, f frame) {
	bgStyle := canvas.DefaultStyle
	bgStyle.Fill = canvas.Paint{Color: canvas.White}
	renderer.RenderPath(canvas.Rectangle(f.width, f.height), bgStyle, canvas.Identity)

	if r.GridSpacing > 0 {
		gridStyle := canvas.DefaultStyle
		gridStyle.Fill = canvas.Paint{Color: canvas.Transparent}
		gridStyle.Stroke = canvas.Paint{Color: gridStroke}
		gridStyle.StrokeWidth = 0.5

		lo := Point{X: f.min.X - f.padding, Y: f.min.Y - f.padding}
		hi := Point{X: lo.X + f.width, Y: lo.Y + f.height}
		for x := math.Ceil(lo.X/r.GridSpacing) * r.GridSpacing; x <= hi.X; x += r.GridSpacing {
			renderer.RenderPath(f.polyline([]Point{{X: x, Y: lo.Y}, {X: x, Y: hi.Y}}, false), gridStyle, canvas.Identity)
		}
		for y := math.Ceil(lo.Y/r.GridSpacing) * r.GridSpacing; y <= hi.Y; y += r.GridSpacing {
			renderer.RenderPath(f.polyline([]Point{{X: lo.X, Y: y}, {X: hi.X, Y: y}}, false), gridStyle, canvas.Identity)
		}
	}

	for _, c := range r.Corridors {
		if len(c.Points) < 2 {
			continue
		}
		style := canvas.DefaultStyle
		style.Fill = canvas.Paint{Color: canvas.Transparent}
		style.Stroke = canvas.Paint{Color: parseHexColor(c.Color, fallbackColor)}
		style.StrokeWidth = math.Max(c.Width, 1)
		renderer.RenderPath(f.polyline(c.Points, false), style, canvas.Identity)
	}

	for _, rm := range r.Rooms {
		fill := parseHexColor(rm.Color, parseHexColor(DefaultRoomColor, fallbackColor))
		style := canvas.DefaultStyle
		style.Fill = canvas.Paint{Color: nrgbaToRGBA(color.NRGBA{R: fill.R, G: fill.G, B: fill.B, A: r.RoomAlpha})}
		style.Stroke = canvas.Paint{Color: roomOutline}
		style.StrokeWidth = 2.0
		renderer.RenderPath(f.polyline(rectCorners(rm.Bounds()), true), style, canvas.Identity)
	}

	nodeStyle := canvas.DefaultStyle
	nodeStyle.Fill = canvas.Paint{Color: nodeFill}
	nodeStyle.Stroke = canvas.Paint{Color: canvas.Black}
	nodeStyle.StrokeWidth = 1.0
	for _, p := range r.nodePositions() {
		cx, cy := f.toCanvas(p)
		renderer.RenderPath(canvas.Circle(6.0).Translate(cx, cy), nodeStyle, canvas.Identity)
	}

	if len(r.Route) >= 2 {
		style := canvas.DefaultStyle
		style.Fill = canvas.Paint{Color: canvas.Transparent}
		style.Stroke = canvas.Paint{Color: routeStroke}
		style.StrokeWidth = 4.0
		style.Dashes = []float64{12.0, 6.0}
		renderer.RenderPath(f.polyline(r.Route, false), style, canvas.Identity)
	}
}

// nodePositions places each node device at the center of its room
func (r *FloorRenderer) nodePositions() []Point {
	var out []Point
	for _, d := range r.Devices {
		if d.Type != DeviceNode || d.Room == "" {
			continue
		}
		for _, rm := range r.Rooms {
			if rm.Name == d.Room {
				out = append(out, rm.Center())
				break
			}
		}
	}
	return out
}

// drawLabels writes each room's name at its top-left corner
func (r *FloorRenderer) drawLabels(img draw.Image, f frame) {
	dpmm := r.Resolution.DPMM()
	for _, rm := range r.Rooms {
		if rm.Name == "" {
			continue
		}
		x, y := f.toImage(Point{X: rm.X, Y: rm.Y}, dpmm)
		drawText(img, x+4, y+14, rm.Name, roomOutline)
	}
}

// drawText renders text onto an image at the specified position
func drawText(img draw.Image, x, y int, text string, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}

func rectCorners(r Rect) []Point {
	return []Point{
		{X: r.X, Y: r.Y},
		{X: r.X + r.Width, Y: r.Y},
		{X: r.X + r.Width, Y: r.Y + r.Height},
		{X: r.X, Y: r.Y + r.Height},
	}
}
