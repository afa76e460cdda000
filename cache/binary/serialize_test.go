package binary

import (
	"testing"

	osm "github.com/omniscale/go-osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omniscale/osmfilter/element"
)

func TestMarshalNode(t *testing.T) {
	node := &osm.Node{Long: 8.123456789012, Lat: -53.000000001}
	node.ID = 12345
	node.Tags = osm.Tags{"name": "test", "amenity": "bench"}

	data, err := MarshalNode(node)
	require.NoError(t, err)
	result, err := UnmarshalNode(12345, data)
	require.NoError(t, err)
	assert.Equal(t, node, result, "coordinates are stored without loss")

	node = &osm.Node{}
	node.ID = 1
	data, err = MarshalNode(node)
	require.NoError(t, err)
	result, err = UnmarshalNode(1, data)
	require.NoError(t, err)
	assert.Nil(t, result.Tags)
	assert.Equal(t, 0.0, result.Long)
}

func TestMarshalCoord(t *testing.T) {
	c := element.Coord{Long: -179.9999999, Lat: 89.9999999}
	data, err := MarshalCoord(c)
	require.NoError(t, err)
	result, err := UnmarshalCoord(data)
	require.NoError(t, err)
	assert.Equal(t, c, result)
}

func TestMarshalWay(t *testing.T) {
	way := &osm.Way{Refs: []int64{1, 2, 3, -4, 2, 1 << 40}}
	way.ID = 12345
	way.Tags = osm.Tags{"name": "test", "highway": "trunk"}

	data, err := MarshalWay(way)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, -4, 2, 1 << 40}, way.Refs, "refs are not modified")

	result, err := UnmarshalWay(12345, data)
	require.NoError(t, err)
	assert.Equal(t, way, result)

	way = &osm.Way{Refs: []int64{}}
	data, err = MarshalWay(way)
	require.NoError(t, err)
	result, err = UnmarshalWay(0, data)
	require.NoError(t, err)
	assert.Equal(t, []int64{}, result.Refs)
}

func TestMarshalRelation(t *testing.T) {
	rel := &osm.Relation{Members: []osm.Member{
		{ID: 123, Type: osm.WayMember, Role: "outer"},
		{ID: 12, Type: osm.NodeMember, Role: ""},
		{ID: 1234, Type: osm.RelationMember, Role: "subarea"},
	}}
	rel.ID = 42
	rel.Tags = osm.Tags{"type": "route", "route": "hiking"}

	data, err := MarshalRelation(rel)
	require.NoError(t, err)
	result, err := UnmarshalRelation(42, data)
	require.NoError(t, err)
	assert.Equal(t, rel, result)
}

func TestUnmarshalInvalid(t *testing.T) {
	_, err := UnmarshalWay(1, []byte{0xff, 0xff})
	assert.Error(t, err)
	_, err = UnmarshalResolvedRelation([]byte{0x0a})
	assert.Error(t, err)
}

func TestMarshalResolvedWay(t *testing.T) {
	w := &element.ResolvedWay{
		ID:      7,
		Tags:    osm.Tags{"highway": "footway"},
		Refs:    []int64{3, 1, 2},
		Coords:  []element.Coord{{Long: 8.3, Lat: 53.3}, {Long: 8.1, Lat: 53.1}, {Long: 8.2, Lat: 53.2}},
		Missing: 2,
	}
	data, err := MarshalResolvedWay(w)
	require.NoError(t, err)
	result, err := UnmarshalResolvedWay(data)
	require.NoError(t, err)
	assert.Equal(t, w, result)
}

func TestMarshalResolvedRelation(t *testing.T) {
	sub := &element.ResolvedRelation{
		ID:   8,
		Tags: osm.Tags{"type": "route"},
		Members: []element.ResolvedMember{
			{Type: element.Relation, ID: 9, Role: "sub"},
		},
		Missing: 1,
	}
	r := &element.ResolvedRelation{
		ID:   -1,
		Tags: osm.Tags{"type": "route", "name": "Rundweg"},
		Members: []element.ResolvedMember{
			{Type: element.Way, ID: 7, Role: "forward", Way: &element.ResolvedWay{
				ID: 7, Refs: []int64{1, 2}, Coords: []element.Coord{{Long: 1, Lat: 2}, {Long: 3, Lat: 4}},
			}},
			{Type: element.Node, ID: 1, Role: "stop", Node: &element.ResolvedNode{
				ID: 1, Coord: element.Coord{Long: 1, Lat: 2},
			}},
			{Type: element.Relation, ID: 8, Relation: sub},
			{Type: element.Way, ID: 99, Role: "missing"},
		},
		Missing: 1,
	}
	data, err := MarshalResolvedRelation(r)
	require.NoError(t, err)
	result, err := UnmarshalResolvedRelation(data)
	require.NoError(t, err)
	assert.Equal(t, r, result)
	assert.False(t, result.Members[3].Resolved())
}
