package floorplan

import "math"

// Default zoom range for the canvas view
const (
	DefaultMinZoom = 0.3
	DefaultMaxZoom = 3.0
)

// AffineMatrix for 2D transforms: x' = ax + by + tx, y' = cx + dy + ty
type AffineMatrix struct {
	A  float64 `json:"a"`
	B  float64 `json:"b"`
	Tx float64 `json:"tx"`
	C  float64 `json:"c"`
	D  float64 `json:"d"`
	Ty float64 `json:"ty"`
}

// Identity returns an identity matrix (no transformation)
func Identity() AffineMatrix {
	return AffineMatrix{A: 1, B: 0, Tx: 0, C: 0, D: 1, Ty: 0}
}

// TransformPoint applies an affine transform to a point
// x' = a*x + b*y + tx
// y' = c*x + d*y + ty
func TransformPoint(p Point, m AffineMatrix) Point {
	return Point{
		X: m.A*p.X + m.B*p.Y + m.Tx,
		Y: m.C*p.X + m.D*p.Y + m.Ty,
	}
}

// MultiplyMatrices composes two affine transforms: result = m1 * m2
// Applying result is equivalent to applying m2 first, then m1
func MultiplyMatrices(m1, m2 AffineMatrix) AffineMatrix {
	return AffineMatrix{
		A:  m1.A*m2.A + m1.B*m2.C,
		B:  m1.A*m2.B + m1.B*m2.D,
		Tx: m1.A*m2.Tx + m1.B*m2.Ty + m1.Tx,
		C:  m1.C*m2.A + m1.D*m2.C,
		D:  m1.C*m2.B + m1.D*m2.D,
		Ty: m1.C*m2.Tx + m1.D*m2.Ty + m1.Ty,
	}
}

// InvertMatrix computes the inverse of an affine transform
// Returns identity if matrix is singular (determinant ~= 0)
func InvertMatrix(m AffineMatrix) AffineMatrix {
	det := m.A*m.D - m.B*m.C
	if math.Abs(det) < 1e-10 {
		return Identity()
	}

	invDet := 1.0 / det
	return AffineMatrix{
		A:  m.D * invDet,
		B:  -m.B * invDet,
		Tx: (m.B*m.Ty - m.D*m.Tx) * invDet,
		C:  -m.C * invDet,
		D:  m.A * invDet,
		Ty: (m.C*m.Tx - m.A*m.Ty) * invDet,
	}
}

// Translation creates a translation-only transform
func Translation(tx, ty float64) AffineMatrix {
	return AffineMatrix{A: 1, B: 0, Tx: tx, C: 0, D: 1, Ty: ty}
}

// Scale creates a scaling transform
func Scale(sx, sy float64) AffineMatrix {
	return AffineMatrix{A: sx, B: 0, Tx: 0, C: 0, D: sy, Ty: 0}
}

// Distance calculates Euclidean distance between two points
func Distance(p1, p2 Point) float64 {
	dx := p2.X - p1.X
	dy := p2.Y - p1.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// ToWorld maps a viewport point to world space for the given pan and zoom.
// It inverts the canvas transform translate(pan) · scale(zoom).
func ToWorld(screen, pan Point, zoom float64) Point {
	return TransformPoint(screen, InvertMatrix(viewMatrix(pan, zoom)))
}

// ToScreen maps a world point to viewport space: world * zoom + pan.
func ToScreen(world, pan Point, zoom float64) Point {
	return TransformPoint(world, viewMatrix(pan, zoom))
}

func viewMatrix(pan Point, zoom float64) AffineMatrix {
	return MultiplyMatrices(Translation(pan.X, pan.Y), Scale(zoom, zoom))
}

// Viewport relates device pixels to SVG user space. A zero ClientSize or
// ViewBox size means the canvas is drawn 1:1.
type Viewport struct {
	Origin     Point `json:"origin"`     // device position of the canvas top-left
	ClientSize Size  `json:"clientSize"` // rendered size in device pixels
	ViewBox    Rect  `json:"viewBox"`    // SVG viewBox in user units
}

func (vp Viewport) scale() (float64, float64) {
	sx, sy := 1.0, 1.0
	if vp.ClientSize.Width > 0 && vp.ViewBox.Width > 0 {
		sx = vp.ViewBox.Width / vp.ClientSize.Width
	}
	if vp.ClientSize.Height > 0 && vp.ViewBox.Height > 0 {
		sy = vp.ViewBox.Height / vp.ClientSize.Height
	}
	return sx, sy
}

// Matrix returns the device -> user-space transform
func (vp Viewport) Matrix() AffineMatrix {
	sx, sy := vp.scale()
	toOrigin := Translation(-vp.Origin.X, -vp.Origin.Y)
	toBox := MultiplyMatrices(Translation(vp.ViewBox.X, vp.ViewBox.Y), Scale(sx, sy))
	return MultiplyMatrices(toBox, toOrigin)
}

// View is the pan/zoom state of the canvas. Pan is unconstrained; Zoom is
// kept within [MinZoom, MaxZoom].
type View struct {
	Pan      Point    `json:"pan"`
	Zoom     float64  `json:"zoom"`
	MinZoom  float64  `json:"minZoom"`
	MaxZoom  float64  `json:"maxZoom"`
	Viewport Viewport `json:"viewport"`
}

// NewView creates a view at zoom 1 with the given zoom range
func NewView(minZoom, maxZoom float64) View {
	if minZoom <= 0 {
		minZoom = DefaultMinZoom
	}
	if maxZoom < minZoom {
		maxZoom = minZoom
	}
	v := View{MinZoom: minZoom, MaxZoom: maxZoom}
	v.Zoom = v.ClampZoom(1)
	return v
}

// ClampZoom restricts z to the configured range
func (v View) ClampZoom(z float64) float64 {
	lo, hi := v.MinZoom, v.MaxZoom
	if lo <= 0 {
		lo = DefaultMinZoom
	}
	if hi <= 0 {
		hi = DefaultMaxZoom
	}
	return math.Max(lo, math.Min(hi, z))
}

// Matrix returns the full device -> world transform
func (v View) Matrix() AffineMatrix {
	return MultiplyMatrices(InvertMatrix(viewMatrix(v.Pan, v.ClampZoom(v.Zoom))), v.Viewport.Matrix())
}

// ToWorld maps a device pixel position to world coordinates
func (v View) ToWorld(screen Point) Point {
	return TransformPoint(screen, v.Matrix())
}

// ToScreen maps a world position back to device pixels
func (v View) ToScreen(world Point) Point {
	return TransformPoint(world, InvertMatrix(v.Matrix()))
}

// SetZoom sets the zoom level, clamped to range
func (v *View) SetZoom(z float64) {
	v.Zoom = v.ClampZoom(z)
}

// PanBy shifts the view by a delta in viewport units
func (v *View) PanBy(dx, dy float64) {
	v.Pan.X += dx
	v.Pan.Y += dy
}

// ZoomAt multiplies the zoom by factor while keeping the world point under
// screen fixed.
func (v *View) ZoomAt(screen Point, factor float64) {
	if factor <= 0 {
		return
	}
	anchor := v.ToWorld(screen)
	v.Zoom = v.ClampZoom(v.ClampZoom(v.Zoom) * factor)
	user := TransformPoint(screen, v.Viewport.Matrix())
	v.Pan = Point{X: user.X - anchor.X*v.Zoom, Y: user.Y - anchor.Y*v.Zoom}
}
