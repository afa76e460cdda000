package cache

import (
	"github.com/dustin/go-humanize"
	osm "github.com/omniscale/go-osm"
	"github.com/pkg/errors"

	"github.com/omniscale/osmfilter/cache/binary"
	"github.com/omniscale/osmfilter/element"
	"github.com/omniscale/osmfilter/log"
)

func datasetCounts(ds *element.Dataset) map[string]int {
	c := ds.Counts()
	return map[string]int{
		"nodes":            c.Nodes,
		"ways":             c.Ways,
		"relations":        c.Relations,
		"coords":           c.Coords,
		"member_ways":      c.MemberWays,
		"member_relations": c.MemberRelations,
	}
}

// StoreDataset replaces the dataset artifact with ds.
func (c *Cache) StoreDataset(fingerprint string, ds *element.Dataset) error {
	defer log.Step("Writing dataset cache")()
	return c.write(DatasetArtifact, fingerprint, datasetCounts(ds), func(put PutFunc) error {
		for id, nd := range ds.Nodes {
			data, err := binary.MarshalNode(nd)
			if err != nil {
				return err
			}
			if err := put(idToKeyBuf(nodePrefix, id), data); err != nil {
				return err
			}
		}
		for id, coord := range ds.Coords {
			data, err := binary.MarshalCoord(coord)
			if err != nil {
				return err
			}
			if err := put(idToKeyBuf(coordPrefix, id), data); err != nil {
				return err
			}
		}
		if err := putWays(put, wayPrefix, ds.Ways); err != nil {
			return err
		}
		if err := putWays(put, memberWayPrefix, ds.MemberWays); err != nil {
			return err
		}
		if err := putRelations(put, relationPrefix, ds.Relations); err != nil {
			return err
		}
		return putRelations(put, memberRelationPrefix, ds.MemberRelations)
	})
}

func putWays(put PutFunc, prefix byte, ways map[int64]*osm.Way) error {
	for id, w := range ways {
		data, err := binary.MarshalWay(w)
		if err != nil {
			return err
		}
		if err := put(idToKeyBuf(prefix, id), data); err != nil {
			return err
		}
	}
	return nil
}

func putRelations(put PutFunc, prefix byte, rels map[int64]*osm.Relation) error {
	for id, r := range rels {
		data, err := binary.MarshalRelation(r)
		if err != nil {
			return err
		}
		if err := put(idToKeyBuf(prefix, id), data); err != nil {
			return err
		}
	}
	return nil
}

// LoadDataset returns the cached dataset if it matches fingerprint. It
// returns nil without an error on a cache miss.
func (c *Cache) LoadDataset(fingerprint string) (*element.Dataset, error) {
	st, err := c.openArtifact(DatasetArtifact)
	if err != nil || st == nil {
		return nil, err
	}
	defer st.Close()

	meta, err := c.readMeta(st, DatasetArtifact, fingerprint)
	if err != nil || meta == nil {
		return nil, err
	}

	defer log.Step("Reading dataset cache")()
	ds := element.NewDataset()
	err = iterate(st, nodePrefix, func(id int64, data []byte) error {
		nd, err := binary.UnmarshalNode(id, data)
		if err != nil {
			return err
		}
		ds.AddNode(nd)
		return nil
	})
	if err != nil {
		return nil, err
	}
	err = iterate(st, coordPrefix, func(id int64, data []byte) error {
		coord, err := binary.UnmarshalCoord(data)
		if err != nil {
			return errors.Wrapf(err, "coord %d", id)
		}
		ds.AddCoord(id, coord)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := iterateWays(st, wayPrefix, ds.AddWay); err != nil {
		return nil, err
	}
	if err := iterateWays(st, memberWayPrefix, ds.AddMemberWay); err != nil {
		return nil, err
	}
	if err := iterateRelations(st, relationPrefix, ds.AddRelation); err != nil {
		return nil, err
	}
	if err := iterateRelations(st, memberRelationPrefix, ds.AddMemberRelation); err != nil {
		return nil, err
	}

	if counts := datasetCounts(ds); !equalCounts(counts, meta.Counts) {
		log.Printf("[warn] Cache %s is incomplete (%v, expected %v)", c.Path(DatasetArtifact), counts, meta.Counts)
		return nil, nil
	}
	log.Printf("[info] Loaded %s nodes, %s ways, %s relations from cache",
		humanize.Comma(int64(len(ds.Nodes))),
		humanize.Comma(int64(len(ds.Ways))),
		humanize.Comma(int64(len(ds.Relations))),
	)
	return ds, nil
}

func iterate(st Store, prefix byte, fn func(id int64, data []byte) error) error {
	return st.Iterate([]byte{prefix}, func(key, value []byte) error {
		id, err := idFromKeyBuf(key)
		if err != nil {
			return err
		}
		return fn(id, value)
	})
}

func iterateWays(st Store, prefix byte, add func(*osm.Way)) error {
	return iterate(st, prefix, func(id int64, data []byte) error {
		w, err := binary.UnmarshalWay(id, data)
		if err != nil {
			return err
		}
		add(w)
		return nil
	})
}

func iterateRelations(st Store, prefix byte, add func(*osm.Relation)) error {
	return iterate(st, prefix, func(id int64, data []byte) error {
		r, err := binary.UnmarshalRelation(id, data)
		if err != nil {
			return err
		}
		add(r)
		return nil
	})
}

func equalCounts(a, b map[string]int) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || bv != v {
			return false
		}
	}
	return true
}
