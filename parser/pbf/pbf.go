package pbf

import (
	osm "github.com/omniscale/go-osm"
	"github.com/pkg/errors"

	"github.com/omniscale/osmfilter/parser/pbf/internal/osmpbf"
)

const coordScale = 0.000000001

// Batch contains all entities of a single data block.
type Batch struct {
	Block     Block
	Nodes     []osm.Node
	Ways      []osm.Way
	Relations []osm.Relation
}

// Len returns the number of entities in the batch.
func (b *Batch) Len() int {
	return len(b.Nodes) + len(b.Ways) + len(b.Relations)
}

// blockDecoder decodes the primitive groups of a single block. The first
// decoding error is kept in err, all following lookups return zero values.
type blockDecoder struct {
	strings     []string
	granularity int64
	latOffset   int64
	lonOffset   int64
	err         error
}

func newBlockDecoder(block *osmpbf.PrimitiveBlock) *blockDecoder {
	d := &blockDecoder{
		granularity: int64(block.GetGranularity()),
		latOffset:   block.GetLatOffset(),
		lonOffset:   block.GetLonOffset(),
	}
	if st := block.GetStringtable(); st != nil {
		d.strings = make([]string, len(st.S))
		for i, bytes := range st.S {
			d.strings[i] = string(bytes)
		}
	}
	return d
}

func (d *blockDecoder) fail(format string, args ...interface{}) {
	if d.err == nil {
		d.err = errors.Errorf(format, args...)
	}
}

func (d *blockDecoder) str(idx int64) string {
	if idx < 0 || idx >= int64(len(d.strings)) {
		d.fail("string table index %d out of range (%d strings)", idx, len(d.strings))
		return ""
	}
	return d.strings[idx]
}

func (d *blockDecoder) lon(v int64) float64 {
	return coordScale * float64(d.lonOffset+(d.granularity*v))
}

func (d *blockDecoder) lat(v int64) float64 {
	return coordScale * float64(d.latOffset+(d.granularity*v))
}

// nodeTags returns nil for nodes with only a created_by tag.
func nodeTags(tags osm.Tags) osm.Tags {
	if _, ok := tags["created_by"]; ok && len(tags) == 1 {
		return nil
	}
	return tags
}

func (d *blockDecoder) denseNodes(dense *osmpbf.DenseNodes) []osm.Node {
	if len(dense.Lat) != len(dense.Id) || len(dense.Lon) != len(dense.Id) {
		d.fail("dense nodes with %d ids, %d lats and %d lons", len(dense.Id), len(dense.Lat), len(dense.Lon))
		return nil
	}
	var lastID, lastLon, lastLat int64
	nodes := make([]osm.Node, len(dense.Id))
	pos := 0

	for i := range nodes {
		lastID += dense.Id[i]
		lastLon += dense.Lon[i]
		lastLat += dense.Lat[i]
		nodes[i].ID = lastID
		nodes[i].Long = d.lon(lastLon)
		nodes[i].Lat = d.lat(lastLat)
		if len(dense.KeysVals) > 0 {
			nodes[i].Tags = nodeTags(d.denseNodeTags(dense.KeysVals, &pos))
		}
	}
	return nodes
}

// denseNodeTags parses the tags of one node from keysVals, starting at pos.
// Tags of each node are terminated by a 0.
func (d *blockDecoder) denseNodeTags(keysVals []int32, pos *int) osm.Tags {
	// make map later if needed
	var result osm.Tags
	for {
		if *pos >= len(keysVals) {
			return result
		}
		key := keysVals[*pos]
		*pos += 1
		if key == 0 {
			return result
		}
		if *pos >= len(keysVals) {
			d.fail("dense node keys_vals without value for key %d", key)
			return result
		}
		val := keysVals[*pos]
		*pos += 1
		if result == nil {
			result = make(osm.Tags)
		}
		result[d.str(int64(key))] = d.str(int64(val))
	}
}

func (d *blockDecoder) tags(keys []uint32, vals []uint32) osm.Tags {
	if len(keys) == 0 {
		return nil
	}
	if len(keys) != len(vals) {
		d.fail("%d keys but %d values", len(keys), len(vals))
		return nil
	}
	tags := make(osm.Tags, len(keys))
	for i := range keys {
		tags[d.str(int64(keys[i]))] = d.str(int64(vals[i]))
	}
	return tags
}

func (d *blockDecoder) nodes(nodes []*osmpbf.Node) []osm.Node {
	result := make([]osm.Node, len(nodes))
	for i, nd := range nodes {
		result[i].ID = nd.GetId()
		result[i].Long = d.lon(nd.GetLon())
		result[i].Lat = d.lat(nd.GetLat())
		result[i].Tags = nodeTags(d.tags(nd.Keys, nd.Vals))
	}
	return result
}

func parseDeltaRefs(refs []int64) []int64 {
	result := make([]int64, len(refs))
	var lastRef int64

	for i, refDelta := range refs {
		lastRef += refDelta
		result[i] = lastRef
	}
	return result
}

func (d *blockDecoder) ways(ways []*osmpbf.Way) []osm.Way {
	result := make([]osm.Way, len(ways))
	for i, w := range ways {
		result[i].ID = w.GetId()
		result[i].Tags = d.tags(w.Keys, w.Vals)
		result[i].Refs = parseDeltaRefs(w.Refs)
	}
	return result
}

func (d *blockDecoder) members(rel *osmpbf.Relation) []osm.Member {
	if len(rel.RolesSid) != len(rel.Memids) || len(rel.Types) != len(rel.Memids) {
		d.fail("relation %d with %d member ids, %d roles and %d types",
			rel.GetId(), len(rel.Memids), len(rel.RolesSid), len(rel.Types))
		return nil
	}
	result := make([]osm.Member, len(rel.Memids))

	var lastID int64
	for i := range rel.Memids {
		lastID += rel.Memids[i]
		result[i].ID = lastID
		result[i].Role = d.str(int64(rel.RolesSid[i]))
		switch rel.Types[i] {
		case osmpbf.Relation_NODE:
			result[i].Type = osm.NodeMember
		case osmpbf.Relation_WAY:
			result[i].Type = osm.WayMember
		case osmpbf.Relation_RELATION:
			result[i].Type = osm.RelationMember
		default:
			d.fail("relation %d with invalid member type %d", rel.GetId(), rel.Types[i])
		}
	}
	return result
}

func (d *blockDecoder) relations(relations []*osmpbf.Relation) []osm.Relation {
	result := make([]osm.Relation, len(relations))
	for i, rel := range relations {
		result[i].ID = rel.GetId()
		result[i].Tags = d.tags(rel.Keys, rel.Vals)
		result[i].Members = d.members(rel)
	}
	return result
}
