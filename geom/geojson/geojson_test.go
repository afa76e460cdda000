package geojson

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	osm "github.com/omniscale/go-osm"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omniscale/osmfilter/element"
)

func testElements() *element.Elements {
	el := element.NewElements()
	el.Ways[20] = &element.ResolvedWay{
		ID:     20,
		Tags:   osm.Tags{"highway": "footway", "name": "Deichweg"},
		Refs:   []int64{1, 2, 3},
		Coords: []element.Coord{{Long: 8.1, Lat: 53.1}, {Long: 8.2, Lat: 53.2}, {Long: 8.3, Lat: 53.3}},
	}
	el.Ways[10] = &element.ResolvedWay{
		ID:      10,
		Tags:    osm.Tags{"highway": "path"},
		Refs:    []int64{4},
		Coords:  []element.Coord{{Long: 9, Lat: 54}},
		Missing: 1,
	}
	el.Relations[30] = &element.ResolvedRelation{
		ID:   30,
		Tags: osm.Tags{"type": "route", "route": "hiking"},
		Members: []element.ResolvedMember{
			{Type: element.Way, ID: 20, Way: el.Ways[20]},
			{Type: element.Way, ID: 10, Way: el.Ways[10]},
			{Type: element.Relation, ID: 31, Relation: &element.ResolvedRelation{
				ID: 31,
				Members: []element.ResolvedMember{
					{Type: element.Way, ID: 40, Way: &element.ResolvedWay{
						ID: 40, Refs: []int64{5, 6}, Coords: []element.Coord{{Long: 1, Lat: 2}, {Long: 3, Lat: 4}},
					}},
				},
			}},
			{Type: element.Way, ID: 41},
		},
		Missing: 1,
	}
	el.Relations[32] = &element.ResolvedRelation{
		ID:      32,
		Members: []element.ResolvedMember{{Type: element.Way, ID: 99}},
		Missing: 1,
	}
	return el
}

func TestParseType(t *testing.T) {
	typ, err := ParseType("line")
	require.NoError(t, err)
	assert.Equal(t, Line, typ)
	typ, err = ParseType("MultiLine")
	require.NoError(t, err)
	assert.Equal(t, MultiLine, typ)
	_, err = ParseType("Polygon")
	assert.Error(t, err)
}

func TestLines(t *testing.T) {
	fc, res, err := FeatureCollection(testElements(), nil, Options{Type: Line})
	require.NoError(t, err)
	assert.Equal(t, Result{Features: 2}, res)
	require.Len(t, fc.Features, 2)

	// sorted by ID, degenerate lines are exported
	f := fc.Features[0]
	assert.Equal(t, int64(10), f.ID)
	assert.Equal(t, orb.LineString{{9, 54}}, f.Geometry)

	f = fc.Features[1]
	assert.Equal(t, int64(20), f.ID)
	assert.Equal(t, orb.LineString{{8.1, 53.1}, {8.2, 53.2}, {8.3, 53.3}}, f.Geometry)
	assert.Equal(t, geojson.Properties{"highway": "footway", "name": "Deichweg"}, f.Properties)

	fc, res, err = FeatureCollection(testElements(), nil, Options{Type: Line, SkipDegenerate: true})
	require.NoError(t, err)
	assert.Equal(t, Result{Features: 1, Skipped: 1}, res)
	assert.Len(t, fc.Features, 1)
}

func TestMultiLines(t *testing.T) {
	fc, res, err := FeatureCollection(testElements(), nil, Options{Type: MultiLine})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Features)
	mls, ok := fc.Features[0].Geometry.(orb.MultiLineString)
	require.True(t, ok)
	assert.Len(t, mls, 3, "includes ways of member relations")
	assert.Equal(t, orb.LineString{{1, 2}, {3, 4}}, mls[2])
	assert.Equal(t, orb.MultiLineString{}, fc.Features[1].Geometry)

	fc, res, err = FeatureCollection(testElements(), nil, Options{Type: MultiLine, SkipDegenerate: true})
	require.NoError(t, err)
	assert.Equal(t, Result{Features: 1, Skipped: 1}, res)
	assert.Len(t, fc.Features[0].Geometry.(orb.MultiLineString), 2)
}

func TestPoints(t *testing.T) {
	ds := element.NewDataset()
	ds.AddNode(&osm.Node{Element: osm.Element{ID: 2, Tags: osm.Tags{"amenity": "bench"}}, Long: 8, Lat: 53})
	ds.AddNode(&osm.Node{Element: osm.Element{ID: 1}, Long: 9, Lat: 54})
	fc, res, err := FeatureCollection(nil, ds, Options{Type: Point})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Features)
	assert.Equal(t, orb.Point{9, 54}, fc.Features[0].Geometry)
	assert.Equal(t, geojson.Properties{}, fc.Features[0].Properties)
	assert.Equal(t, geojson.Properties{"amenity": "bench"}, fc.Features[1].Properties)

	_, _, err = FeatureCollection(testElements(), nil, Options{Type: Point})
	assert.Error(t, err)
}

func TestExport(t *testing.T) {
	var buf bytes.Buffer
	_, err := Export(&buf, testElements(), nil, Options{})
	require.NoError(t, err)

	var doc struct {
		Type     string `json:"type"`
		Features []struct {
			Type     string `json:"type"`
			ID       int64  `json:"id"`
			Geometry struct {
				Type        string       `json:"type"`
				Coordinates [][2]float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]string `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "FeatureCollection", doc.Type)
	require.Len(t, doc.Features, 2)
	f := doc.Features[1]
	assert.Equal(t, "Feature", f.Type)
	assert.Equal(t, int64(20), f.ID)
	assert.Equal(t, "LineString", f.Geometry.Type)
	assert.Equal(t, [][2]float64{{8.1, 53.1}, {8.2, 53.2}, {8.3, 53.3}}, f.Geometry.Coordinates)
	assert.Equal(t, map[string]string{"highway": "footway", "name": "Deichweg"}, f.Properties)
}

func TestExportFile(t *testing.T) {
	dir := t.TempDir()
	fname := filepath.Join(dir, "out.geojson")
	require.NoError(t, os.WriteFile(fname, []byte("old"), 0644))

	res, err := ExportFile(fname, testElements(), nil, Options{Type: Line, Indent: true})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Features)

	data, err := os.ReadFile(fname)
	require.NoError(t, err)
	fc, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)
	assert.Len(t, fc.Features, 2)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left")

	// failed exports keep the previous file
	_, err = ExportFile(fname, nil, nil, Options{Type: Line})
	assert.Error(t, err)
	data, err = os.ReadFile(fname)
	require.NoError(t, err)
	assert.NotEqual(t, "old", string(data))
	entries, err = os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = ExportFile(filepath.Join(dir, "missing", "out.geojson"), testElements(), nil, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), filepath.Join(dir, "missing", "out.geojson"))
}
