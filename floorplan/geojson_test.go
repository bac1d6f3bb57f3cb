package floorplan

import (
	"encoding/json"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func featuresByLayer(fc *geojson.FeatureCollection) map[string][]*geojson.Feature {
	out := make(map[string][]*geojson.Feature)
	for _, f := range fc.Features {
		layer, _ := f.Properties["layer"].(string)
		out[layer] = append(out[layer], f)
	}
	return out
}

func TestFloorToGeoJSON(t *testing.T) {
	doc := sampleDocument()
	fc := FloorToGeoJSON(doc, "f1", ExportOptions{
		Route: []Point{{X: 60, Y: 40}, {X: 0, Y: 120}},
	})
	layers := featuresByLayer(fc)

	require.Len(t, layers[LayerRoom], 1)
	room := layers[LayerRoom][0]
	assert.Equal(t, "r1", room.ID)
	poly, ok := room.Geometry.(orb.Polygon)
	require.True(t, ok)
	assert.Len(t, poly[0], 5, "closed ring")
	assert.InDelta(t, 120*80, room.Properties["area"].(float64), 1e-9)

	require.Len(t, layers[LayerCorridor], 1)
	corr := layers[LayerCorridor][0]
	assert.IsType(t, orb.LineString{}, corr.Geometry)
	assert.InDelta(t, 200, corr.Properties["length"].(float64), 1e-9)

	require.Len(t, layers[LayerDevice], 1)
	dev := layers[LayerDevice][0]
	assert.Equal(t, orb.Point{60, 40}, dev.Geometry)
	assert.Equal(t, "node", dev.Properties["type"])

	require.Len(t, layers[LayerRoute], 1)
	assert.InDelta(t, 100, layers[LayerRoute][0].Properties["length"].(float64), 1e-9)
}

func TestFloorToGeoJSONSimplify(t *testing.T) {
	doc := Document{Corridors: []Corridor{{
		ID: "c", FloorID: "f1",
		Points: []Point{{X: 0, Y: 0}, {X: 40, Y: 1}, {X: 80, Y: 0}, {X: 120, Y: 0}, {X: 120, Y: 80}},
	}}}

	full := featuresByLayer(FloorToGeoJSON(doc, "f1", ExportOptions{}))[LayerCorridor][0]
	assert.Len(t, full.Geometry.(orb.LineString), 5)

	simple := featuresByLayer(FloorToGeoJSON(doc, "f1", ExportOptions{SimplifyTolerance: 2}))[LayerCorridor][0]
	assert.Equal(t, orb.LineString{{0, 0}, {120, 0}, {120, 80}}, simple.Geometry)
	assert.Len(t, doc.Corridors[0].Points, 5, "document is not modified")
}

func TestFloorToGeoJSONMarshals(t *testing.T) {
	fc := FloorToGeoJSON(sampleDocument(), "f2", ExportOptions{})
	data, err := fc.MarshalJSON()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "FeatureCollection", decoded["type"])
	assert.Len(t, decoded["features"], 2)
}

func TestFloorToGeoJSONEmptyFloor(t *testing.T) {
	fc := FloorToGeoJSON(sampleDocument(), "nope", ExportOptions{Route: []Point{{X: 1, Y: 1}}})
	assert.Empty(t, fc.Features, "single-point route is not exported")
}
