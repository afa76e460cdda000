package cache

import (
	osm "github.com/omniscale/go-osm"
	"github.com/pkg/errors"

	"github.com/omniscale/osmfilter/cache/binary"
	"github.com/omniscale/osmfilter/element"
)

// Reader gives random access to single entities of an artifact, without
// checking the fingerprint. All lookups return NotFound for missing IDs.
type Reader struct {
	st   Store
	meta *Meta
}

// OpenReader opens the dataset or elements artifact. It returns NotFound if
// the artifact does not exist or has an incompatible version.
func (c *Cache) OpenReader(artifact string) (*Reader, error) {
	if artifact != DatasetArtifact && artifact != ElementsArtifact {
		return nil, errors.Errorf("unknown cache artifact %q", artifact)
	}
	st, err := c.openArtifact(artifact)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, NotFound
	}
	meta, err := loadMeta(st)
	if err != nil {
		st.Close()
		return nil, errors.Wrapf(err, "meta of %s", c.Path(artifact))
	}
	if meta == nil || meta.Version != Version || meta.Kind != artifact {
		st.Close()
		return nil, NotFound
	}
	return &Reader{st: st, meta: meta}, nil
}

func (r *Reader) Meta() *Meta { return r.meta }

func (r *Reader) Close() error { return r.st.Close() }

// Node returns a retained node.
func (r *Reader) Node(id int64) (*osm.Node, error) {
	data, err := r.st.Get(idToKeyBuf(nodePrefix, id))
	if err != nil {
		return nil, err
	}
	return binary.UnmarshalNode(id, data)
}

// Coord returns the coordinate of a retained or referenced node.
func (r *Reader) Coord(id int64) (element.Coord, error) {
	nd, err := r.Node(id)
	if err == nil {
		return element.CoordOf(nd), nil
	} else if err != NotFound {
		return element.Coord{}, err
	}
	data, err := r.st.Get(idToKeyBuf(coordPrefix, id))
	if err != nil {
		return element.Coord{}, err
	}
	return binary.UnmarshalCoord(data)
}

// Way returns a retained or referenced way. member is true for referenced
// ways.
func (r *Reader) Way(id int64) (w *osm.Way, member bool, err error) {
	data, err := r.st.Get(idToKeyBuf(wayPrefix, id))
	if err == NotFound {
		member = true
		data, err = r.st.Get(idToKeyBuf(memberWayPrefix, id))
	}
	if err != nil {
		return nil, false, err
	}
	w, err = binary.UnmarshalWay(id, data)
	return w, member, err
}

// Relation returns a retained or referenced relation. member is true for
// referenced relations.
func (r *Reader) Relation(id int64) (rel *osm.Relation, member bool, err error) {
	data, err := r.st.Get(idToKeyBuf(relationPrefix, id))
	if err == NotFound {
		member = true
		data, err = r.st.Get(idToKeyBuf(memberRelationPrefix, id))
	}
	if err != nil {
		return nil, false, err
	}
	rel, err = binary.UnmarshalRelation(id, data)
	return rel, member, err
}

func (r *Reader) ResolvedWay(id int64) (*element.ResolvedWay, error) {
	data, err := r.st.Get(idToKeyBuf(wayPrefix, id))
	if err != nil {
		return nil, err
	}
	return binary.UnmarshalResolvedWay(data)
}

func (r *Reader) ResolvedRelation(id int64) (*element.ResolvedRelation, error) {
	data, err := r.st.Get(idToKeyBuf(relationPrefix, id))
	if err != nil {
		return nil, err
	}
	return binary.UnmarshalResolvedRelation(data)
}
