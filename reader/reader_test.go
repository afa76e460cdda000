package reader

import (
	"context"
	"path/filepath"
	"testing"

	osm "github.com/omniscale/go-osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omniscale/osmfilter/element"
	"github.com/omniscale/osmfilter/filter"
	"github.com/omniscale/osmfilter/filter/config"
	"github.com/omniscale/osmfilter/parser/pbf/pbftest"
)

func node(id int64, long, lat float64, tags osm.Tags) osm.Node {
	return osm.Node{Element: osm.Element{ID: id, Tags: tags}, Long: long, Lat: lat}
}

func way(id int64, tags osm.Tags, refs ...int64) osm.Way {
	return osm.Way{Element: osm.Element{ID: id, Tags: tags}, Refs: refs}
}

func writeFixture(t *testing.T) string {
	filename := filepath.Join(t.TempDir(), "test.osm.pbf")
	require.NoError(t, pbftest.WriteFile(filename, pbftest.Fixture{
		Nodes: []osm.Node{
			node(1, 8.0, 53.0, nil),
			node(2, 8.1, 53.1, nil),
			node(3, 8.2, 53.2, osm.Tags{"highway": "crossing"}),
			node(4, 8.3, 53.3, nil),
			node(5, 8.4, 53.4, osm.Tags{"amenity": "bench"}),
			node(6, 8.5, 53.5, nil),
		},
		Ways: []osm.Way{
			way(10, osm.Tags{"highway": "footway"}, 1, 2, 3),
			way(11, osm.Tags{"highway": "motorway"}, 3, 4),
			way(12, nil, 4, 6),
		},
		Relations: []osm.Relation{
			{Element: osm.Element{ID: 20, Tags: osm.Tags{"type": "route"}}, Members: []osm.Member{
				{ID: 12, Type: osm.WayMember},
				{ID: 5, Type: osm.NodeMember, Role: "stop"},
				{ID: 21, Type: osm.RelationMember},
				{ID: 99, Type: osm.WayMember},
			}},
			{Element: osm.Element{ID: 21, Tags: osm.Tags{"type": "route"}}, Members: []osm.Member{
				{ID: 11, Type: osm.WayMember},
			}},
		},
		BlockSize: 2,
	}))
	return filename
}

func prefilter(t *testing.T, doc string) *filter.Prefilter {
	spec, err := config.Parse([]byte(doc))
	require.NoError(t, err)
	return filter.NewPrefilter(spec.Prefilter)
}

func TestReadPbfWays(t *testing.T) {
	ds, err := ReadPbf(context.Background(), writeFixture(t), prefilter(t, `
prefilter:
  node: {}
  way:
    highway: [footway]
  relation: {}
`), Options{Concurrency: 2})
	require.NoError(t, err)

	assert.Equal(t, 0, ds.Len(element.Node))
	assert.Equal(t, 0, ds.Len(element.Relation))
	require.Equal(t, 1, ds.Len(element.Way))
	assert.True(t, ds.Has(element.Way, 10))
	assert.False(t, ds.Has(element.Way, 11), "motorway is rejected")
	assert.Equal(t, []int64{1, 2, 3}, ds.Ways[10].Refs)

	// referenced nodes are available as coords
	assert.Len(t, ds.Coords, 3)
	for i, id := range []int64{1, 2, 3} {
		c, ok := ds.Coord(id)
		require.True(t, ok)
		assert.InDelta(t, 8.0+0.1*float64(i), c.Long, 1e-7)
		assert.InDelta(t, 53.0+0.1*float64(i), c.Lat, 1e-7)
	}
	assert.Empty(t, ds.MemberWays)
	assert.Empty(t, ds.MemberRelations)
}

func TestReadPbfNodes(t *testing.T) {
	ds, err := ReadPbf(context.Background(), writeFixture(t), prefilter(t, `
prefilter:
  node:
    amenity: __any__
    highway: [crossing]
`), Options{})
	require.NoError(t, err)

	assert.Equal(t, 2, ds.Len(element.Node))
	assert.True(t, ds.Has(element.Node, 3))
	assert.True(t, ds.Has(element.Node, 5))
	assert.Equal(t, osm.Tags{"amenity": "bench"}, ds.Nodes[5].Tags)
	assert.Equal(t, 0, ds.Len(element.Way))
	assert.Empty(t, ds.Coords)
}

func TestReadPbfRelations(t *testing.T) {
	ds, err := ReadPbf(context.Background(), writeFixture(t), prefilter(t, `
prefilter:
  relation:
    type: [route]
`), Options{})
	require.NoError(t, err)

	// 21 is retained itself and not a member relation
	assert.Equal(t, 2, ds.Len(element.Relation))
	assert.Empty(t, ds.MemberRelations)

	assert.Len(t, ds.MemberWays, 2)
	_, ok := ds.Way(12)
	assert.True(t, ok)
	_, ok = ds.Way(11)
	assert.True(t, ok)
	_, ok = ds.Way(99)
	assert.False(t, ok, "not in file")

	// refs of member ways and node members
	for _, id := range []int64{3, 4, 5, 6} {
		_, ok := ds.Coord(id)
		assert.True(t, ok, "coord %d", id)
	}
	assert.Len(t, ds.Coords, 4)
}

func TestReadPbfMemberRelation(t *testing.T) {
	ds, err := ReadPbf(context.Background(), writeFixture(t), prefilter(t, `
prefilter:
  relation:
    type: [route]
  way:
    highway: [motorway]
`), Options{})
	require.NoError(t, err)
	assert.True(t, ds.Has(element.Way, 11))
	assert.Len(t, ds.MemberWays, 1)
	assert.Contains(t, ds.MemberWays, int64(12))
}

func TestReadPbfRejectAll(t *testing.T) {
	ds, err := ReadPbf(context.Background(), writeFixture(t), prefilter(t, "prefilter: {}\n"), Options{})
	require.NoError(t, err)
	assert.Equal(t, element.Counts{}, ds.Counts())
}

func TestReadPbfErrors(t *testing.T) {
	_, err := ReadPbf(context.Background(), filepath.Join(t.TempDir(), "missing.osm.pbf"),
		prefilter(t, "prefilter: {}\n"), Options{})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ReadPbf(ctx, writeFixture(t), prefilter(t, "prefilter:\n  node: any\n"), Options{})
	assert.Error(t, err)
}
