package query

import (
	"testing"

	osm "github.com/omniscale/go-osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omniscale/osmfilter/cache"
	"github.com/omniscale/osmfilter/element"
)

func TestCollect(t *testing.T) {
	c, err := cache.Open(t.TempDir(), "query", cache.BadgerBackend)
	require.NoError(t, err)

	ds := element.NewDataset()
	ds.AddNode(&osm.Node{Element: osm.Element{ID: 1, Tags: osm.Tags{"barrier": "gate"}}, Long: 8, Lat: 53})
	ds.AddCoord(2, element.Coord{Long: 9, Lat: 54})
	ds.AddWay(&osm.Way{Element: osm.Element{ID: 5, Tags: osm.Tags{"highway": "footway"}}, Refs: []int64{1, 2, 3}})
	ds.AddMemberWay(&osm.Way{Element: osm.Element{ID: 6}, Refs: []int64{2}})
	ds.AddRelation(&osm.Relation{
		Element: osm.Element{ID: 7, Tags: osm.Tags{"type": "route"}},
		Members: []osm.Member{{ID: 5, Type: osm.WayMember}, {ID: 6, Type: osm.WayMember}},
	})
	require.NoError(t, c.StoreDataset("fp", ds))

	r, err := c.OpenReader(cache.DatasetArtifact)
	require.NoError(t, err)
	defer r.Close()

	ns := collectNodes(r, []int64{1, 2, 3})
	require.Len(t, ns, 3)
	assert.False(t, ns["1"].CoordOnly)
	assert.Equal(t, "gate", ns["1"].Tags["barrier"])
	assert.True(t, ns["2"].CoordOnly)
	assert.Equal(t, 54.0, ns["2"].Lat)
	assert.Nil(t, ns["3"])

	rels := collectRelations(r, []int64{7, 8}, true)
	require.NotNil(t, rels["7"])
	assert.Nil(t, rels["8"])
	ws := rels["7"].Ways
	require.Len(t, ws, 2)
	assert.False(t, ws["5"].Member)
	assert.Len(t, ws["5"].Nodes, 3)
	assert.True(t, ws["6"].Member)
}
