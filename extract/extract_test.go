package extract

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	osm "github.com/omniscale/go-osm"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omniscale/osmfilter/cache"
	"github.com/omniscale/osmfilter/element"
	"github.com/omniscale/osmfilter/filter/config"
	geojsonexport "github.com/omniscale/osmfilter/geom/geojson"
	"github.com/omniscale/osmfilter/log"
	"github.com/omniscale/osmfilter/parser/pbf/pbftest"
)

const walkFilter = `
prefilter:
  node:
    foot: ["no"]
  way:
    highway: [footway, path]
  relation: {}
whitefilter:
  - [[], []]
blackfilter:
  - [foot, "no"]
`

func node(id int64, long, lat float64, tags osm.Tags) osm.Node {
	return osm.Node{Element: osm.Element{ID: id, Tags: tags}, Long: long, Lat: lat}
}

func way(id int64, tags osm.Tags, refs ...int64) osm.Way {
	return osm.Way{Element: osm.Element{ID: id, Tags: tags}, Refs: refs}
}

func writeFixture(t *testing.T, dir string) string {
	filename := filepath.Join(dir, "walk.osm.pbf")
	require.NoError(t, pbftest.WriteFile(filename, pbftest.Fixture{
		Nodes: []osm.Node{
			node(1, 8.0, 53.0, nil),
			node(2, 8.1, 53.1, nil),
			node(3, 8.2, 53.2, osm.Tags{"barrier": "gate", "foot": "no"}),
			node(4, 8.3, 53.3, nil),
			node(5, 8.4, 53.4, nil),
			node(6, 8.5, 53.5, nil),
		},
		Ways: []osm.Way{
			way(10, osm.Tags{"highway": "footway"}, 1, 2, 3),
			way(11, osm.Tags{"highway": "motorway"}, 3, 4),
			way(12, osm.Tags{"highway": "footway", "foot": "no"}, 4, 5),
			way(13, osm.Tags{"highway": "path"}, 6),
		},
		BlockSize: 3,
	}))
	return filename
}

func filterSpec(t *testing.T, doc string) *config.FilterSpec {
	spec, err := config.Parse([]byte(doc))
	require.NoError(t, err)
	return spec
}

func testOptions(t *testing.T) Options {
	dir := t.TempDir()
	return Options{
		Name:           "walk",
		Input:          writeFixture(t, dir),
		Output:         filepath.Join(dir, "walk.geojson"),
		CacheDir:       filepath.Join(dir, "cache"),
		CacheBackend:   cache.BadgerBackend,
		Filter:         filterSpec(t, walkFilter),
		CreateElements: true,
		LoadElements:   true,
		ExportType:     geojsonexport.Line,
	}
}

func captureLog(t *testing.T) *bytes.Buffer {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })
	return &buf
}

func TestRun(t *testing.T) {
	opts := testOptions(t)
	ds, el, err := Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, []int64{10, 13}, element.SortedIDs(ds.Ways))
	assert.Empty(t, ds.Nodes, "node 3 is rejected by the blackfilter")

	require.Equal(t, 2, el.Len(element.Way))
	// foot=no of node 3 does not affect the ways referencing it
	w := el.Ways[10]
	assert.Equal(t, []int64{1, 2, 3}, w.Refs)
	require.Len(t, w.Coords, 3)
	for i, c := range w.Coords {
		assert.InDelta(t, 8.0+0.1*float64(i), c.Long, 1e-7)
		assert.InDelta(t, 53.0+0.1*float64(i), c.Lat, 1e-7)
	}
	assert.Equal(t, 0, w.Missing)
	assert.Len(t, el.Ways[13].Coords, 1)

	data, err := os.ReadFile(opts.Output)
	require.NoError(t, err)
	fc, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)
	require.Len(t, fc.Features, 2)
	assert.Equal(t, "footway", fc.Features[0].Properties["highway"])
	assert.Equal(t, "LineString", fc.Features[0].Geometry.GeoJSONType())
}

func TestRunSkipDegenerate(t *testing.T) {
	opts := testOptions(t)
	opts.SkipDegenerate = true
	_, _, err := Run(context.Background(), opts)
	require.NoError(t, err)

	data, err := os.ReadFile(opts.Output)
	require.NoError(t, err)
	fc, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)
	assert.Len(t, fc.Features, 1)
}

func TestRunCached(t *testing.T) {
	opts := testOptions(t)
	ds, el, err := Run(context.Background(), opts)
	require.NoError(t, err)

	buf := captureLog(t)
	cachedDs, cachedEl, err := Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Reading dataset cache")
	assert.Contains(t, buf.String(), "Reading elements cache")
	assert.NotContains(t, buf.String(), "Reading OSM data")
	assert.Equal(t, ds, cachedDs)
	assert.Equal(t, el, cachedEl)

	// new rules reuse the dataset
	buf.Reset()
	opts.Filter = filterSpec(t, walkFilter+"  - [highway, path]\n")
	ds, el, err = Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Reading dataset cache")
	assert.Contains(t, buf.String(), "Building elements")
	assert.Equal(t, []int64{10}, element.SortedIDs(ds.Ways))
	assert.Equal(t, 1, el.Len(element.Way))

	// new prefilter requires a new dataset
	buf.Reset()
	opts.Filter.Prefilter = filterSpec(t, `prefilter: {way: {highway: [motorway]}}`).Prefilter
	ds, _, err = Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Reading OSM data")
	assert.Equal(t, []int64{11}, element.SortedIDs(ds.Ways))

	// forced rebuild
	buf.Reset()
	opts.NewPrefilterData = true
	_, _, err = Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Reading OSM data")
	assert.Contains(t, buf.String(), "Building elements")
}

func TestRunWithoutElements(t *testing.T) {
	opts := testOptions(t)
	opts.CreateElements = false
	opts.Output = ""
	ds, el, err := Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Nil(t, el)
	assert.Equal(t, 2, ds.Len(element.Way))

	opts = testOptions(t)
	opts.CreateElements = false
	_, _, err = Run(context.Background(), opts)
	assert.Error(t, err, "line export needs elements")

	opts.ExportType = geojsonexport.Point
	opts.Filter = filterSpec(t, "prefilter: {node: {foot: [\"no\"]}}\n")
	ds, _, err = Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 1, ds.Len(element.Node))
	data, err := os.ReadFile(opts.Output)
	require.NoError(t, err)
	fc, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, "Point", fc.Features[0].Geometry.GeoJSONType())
}

func TestRunErrors(t *testing.T) {
	opts := testOptions(t)
	opts.Input = filepath.Join(t.TempDir(), "missing.osm.pbf")
	_, _, err := Run(context.Background(), opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), opts.Input)

	opts = testOptions(t)
	opts.Filter = nil
	_, _, err = Run(context.Background(), opts)
	assert.Error(t, err)

	opts = testOptions(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = Run(ctx, opts)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = os.Stat(opts.Output)
	assert.True(t, os.IsNotExist(err))
}
