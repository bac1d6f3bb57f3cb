package floorplan

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/simplify"
)

// Feature layer names carried in the "layer" property
const (
	LayerRoom     = "room"
	LayerCorridor = "corridor"
	LayerDevice   = "device"
	LayerRoute    = "route"
)

// ExportOptions tunes the GeoJSON export
type ExportOptions struct {
	// Route is drawn as an extra LineString when it has two or more points
	Route []Point
	// SimplifyTolerance drops corridor vertices within this distance of the
	// line through their neighbours. 0 keeps every vertex.
	SimplifyTolerance float64
}

// roomPolygon returns a room's bounds as a closed polygon
func roomPolygon(r Room) orb.Polygon {
	return orb.Bound{
		Min: orb.Point{r.X, r.Y},
		Max: orb.Point{r.X + r.Width, r.Y + r.Height},
	}.ToPolygon()
}

// FloorToGeoJSON exports one floor as a feature collection in world
// coordinates: rooms as polygons, corridors as line strings, placed node
// devices as points and an optional route.
func FloorToGeoJSON(doc Document, floorID string, opts ExportOptions) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	rooms := RoomsOnFloor(doc.Rooms, floorID)

	for _, r := range rooms {
		poly := roomPolygon(r)
		f := geojson.NewFeature(poly)
		f.ID = r.ID
		f.Properties["layer"] = LayerRoom
		f.Properties["name"] = r.Name
		f.Properties["floorId"] = r.FloorID
		f.Properties["color"] = r.Color
		f.Properties["area"] = planar.Area(poly)
		if r.NodeID != "" {
			f.Properties["nodeId"] = r.NodeID
		}
		fc.Append(f)
	}

	for _, c := range CorridorsOnFloor(doc.Corridors, floorID) {
		ls := corridorLine(c)
		if opts.SimplifyTolerance > 0 && len(ls) > 2 {
			if s, ok := simplify.DouglasPeucker(opts.SimplifyTolerance).Simplify(ls.Clone()).(orb.LineString); ok {
				ls = s
			}
		}
		f := geojson.NewFeature(ls)
		f.ID = c.ID
		f.Properties["layer"] = LayerCorridor
		f.Properties["name"] = c.Name
		f.Properties["floorId"] = c.FloorID
		f.Properties["width"] = c.Width
		f.Properties["color"] = c.Color
		f.Properties["length"] = planar.Length(ls)
		fc.Append(f)
	}

	for _, d := range DevicesOnFloor(doc.Devices, floorID) {
		var at orb.Point
		placed := false
		for _, r := range rooms {
			if d.Room != "" && r.Name == d.Room {
				at, _ = planar.CentroidArea(roomPolygon(r))
				placed = true
				break
			}
		}
		if !placed {
			continue
		}
		f := geojson.NewFeature(at)
		f.ID = d.ID
		f.Properties["layer"] = LayerDevice
		f.Properties["name"] = d.Name
		f.Properties["type"] = string(d.Type)
		f.Properties["room"] = d.Room
		fc.Append(f)
	}

	if len(opts.Route) >= 2 {
		ls := make(orb.LineString, len(opts.Route))
		for i, p := range opts.Route {
			ls[i] = toOrb(p)
		}
		f := geojson.NewFeature(ls)
		f.Properties["layer"] = LayerRoute
		f.Properties["length"] = planar.Length(ls)
		fc.Append(f)
	}

	return fc
}
