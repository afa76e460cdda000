package element

import (
	osm "github.com/omniscale/go-osm"
)

// Dataset holds all entities that passed the prefilter, keyed by kind
// then ID.
//
// Coords, MemberWays and MemberRelations hold the entities that are
// referenced by retained ways and relations without passing the prefilter
// themselves. They are only used for reference lookups.
type Dataset struct {
	Nodes     map[int64]*osm.Node
	Ways      map[int64]*osm.Way
	Relations map[int64]*osm.Relation

	Coords          map[int64]Coord
	MemberWays      map[int64]*osm.Way
	MemberRelations map[int64]*osm.Relation
}

func NewDataset() *Dataset {
	return &Dataset{
		Nodes:           make(map[int64]*osm.Node),
		Ways:            make(map[int64]*osm.Way),
		Relations:       make(map[int64]*osm.Relation),
		Coords:          make(map[int64]Coord),
		MemberWays:      make(map[int64]*osm.Way),
		MemberRelations: make(map[int64]*osm.Relation),
	}
}

func (d *Dataset) AddNode(nd *osm.Node) { d.Nodes[nd.ID] = nd }
func (d *Dataset) AddWay(w *osm.Way) { d.Ways[w.ID] = w }
func (d *Dataset) AddRelation(r *osm.Relation) { d.Relations[r.ID] = r }
func (d *Dataset) AddCoord(id int64, c Coord) { d.Coords[id] = c }
func (d *Dataset) AddMemberWay(w *osm.Way) { d.MemberWays[w.ID] = w }
func (d *Dataset) AddMemberRelation(r *osm.Relation) { d.MemberRelations[r.ID] = r }

// Node returns the retained node with id.
func (d *Dataset) Node(id int64) (*osm.Node, bool) {
	nd, ok := d.Nodes[id]
	return nd, ok
}

// Coord returns the coordinate of a retained or referenced node.
func (d *Dataset) Coord(id int64) (Coord, bool) {
	if nd, ok := d.Nodes[id]; ok {
		return CoordOf(nd), true
	}
	c, ok := d.Coords[id]
	return c, ok
}

// Way returns a retained or referenced way.
func (d *Dataset) Way(id int64) (*osm.Way, bool) {
	if w, ok := d.Ways[id]; ok {
		return w, true
	}
	w, ok := d.MemberWays[id]
	return w, ok
}

// Relation returns a retained or referenced relation.
func (d *Dataset) Relation(id int64) (*osm.Relation, bool) {
	if r, ok := d.Relations[id]; ok {
		return r, true
	}
	r, ok := d.MemberRelations[id]
	return r, ok
}

// Has reports whether an entity of kind with id is retained.
func (d *Dataset) Has(kind Kind, id int64) bool {
	var ok bool
	switch kind {
	case Node:
		_, ok = d.Nodes[id]
	case Way:
		_, ok = d.Ways[id]
	case Relation:
		_, ok = d.Relations[id]
	}
	return ok
}

// Len returns the number of retained entities of kind.
func (d *Dataset) Len(kind Kind) int {
	switch kind {
	case Node:
		return len(d.Nodes)
	case Way:
		return len(d.Ways)
	case Relation:
		return len(d.Relations)
	}
	return 0
}

// Tags returns the tags of the retained entity.
func (d *Dataset) Tags(kind Kind, id int64) (osm.Tags, bool) {
	switch kind {
	case Node:
		if nd, ok := d.Nodes[id]; ok {
			return nd.Tags, true
		}
	case Way:
		if w, ok := d.Ways[id]; ok {
			return w.Tags, true
		}
	case Relation:
		if r, ok := d.Relations[id]; ok {
			return r.Tags, true
		}
	}
	return nil, false
}

// Counts contains the number of entities in each part of a Dataset.
type Counts struct {
	Nodes           int `json:"nodes"`
	Ways            int `json:"ways"`
	Relations       int `json:"relations"`
	Coords          int `json:"coords"`
	MemberWays      int `json:"member_ways"`
	MemberRelations int `json:"member_relations"`
}

func (d *Dataset) Counts() Counts {
	return Counts{
		Nodes:           len(d.Nodes),
		Ways:            len(d.Ways),
		Relations:       len(d.Relations),
		Coords:          len(d.Coords),
		MemberWays:      len(d.MemberWays),
		MemberRelations: len(d.MemberRelations),
	}
}

// WithEntities returns a new Dataset with the given retained entities.
// Entities of d that are not retained are added to the reference stores
// of the new Dataset, so references to them can still be resolved. d is
// not modified.
func (d *Dataset) WithEntities(nodes map[int64]*osm.Node, ways map[int64]*osm.Way, rels map[int64]*osm.Relation) *Dataset {
	res := &Dataset{
		Nodes:           nodes,
		Ways:            ways,
		Relations:       rels,
		Coords:          make(map[int64]Coord, len(d.Coords)),
		MemberWays:      make(map[int64]*osm.Way, len(d.MemberWays)),
		MemberRelations: make(map[int64]*osm.Relation, len(d.MemberRelations)),
	}
	for id, c := range d.Coords {
		res.Coords[id] = c
	}
	for id, nd := range d.Nodes {
		if _, ok := nodes[id]; !ok {
			res.Coords[id] = CoordOf(nd)
		}
	}
	for id, w := range d.MemberWays {
		res.MemberWays[id] = w
	}
	for id, w := range d.Ways {
		if _, ok := ways[id]; !ok {
			res.MemberWays[id] = w
		}
	}
	for id, r := range d.MemberRelations {
		res.MemberRelations[id] = r
	}
	for id, r := range d.Relations {
		if _, ok := rels[id]; !ok {
			res.MemberRelations[id] = r
		}
	}
	return res
}
