package cache

import (
	"github.com/omniscale/osmfilter/cache/binary"
	"github.com/omniscale/osmfilter/element"
	"github.com/omniscale/osmfilter/log"
)

func elementsCounts(el *element.Elements) map[string]int {
	return map[string]int{
		"ways":      len(el.Ways),
		"relations": len(el.Relations),
	}
}

// StoreElements replaces the elements artifact with el.
func (c *Cache) StoreElements(fingerprint string, el *element.Elements) error {
	defer log.Step("Writing elements cache")()
	return c.write(ElementsArtifact, fingerprint, elementsCounts(el), func(put PutFunc) error {
		for id, w := range el.Ways {
			data, err := binary.MarshalResolvedWay(w)
			if err != nil {
				return err
			}
			if err := put(idToKeyBuf(wayPrefix, id), data); err != nil {
				return err
			}
		}
		for id, r := range el.Relations {
			data, err := binary.MarshalResolvedRelation(r)
			if err != nil {
				return err
			}
			if err := put(idToKeyBuf(relationPrefix, id), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadElements returns the cached elements if they match fingerprint. It
// returns nil without an error on a cache miss.
func (c *Cache) LoadElements(fingerprint string) (*element.Elements, error) {
	st, err := c.openArtifact(ElementsArtifact)
	if err != nil || st == nil {
		return nil, err
	}
	defer st.Close()

	meta, err := c.readMeta(st, ElementsArtifact, fingerprint)
	if err != nil || meta == nil {
		return nil, err
	}

	defer log.Step("Reading elements cache")()
	el := element.NewElements()
	err = iterate(st, wayPrefix, func(id int64, data []byte) error {
		w, err := binary.UnmarshalResolvedWay(data)
		if err != nil {
			return err
		}
		el.Ways[id] = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	err = iterate(st, relationPrefix, func(id int64, data []byte) error {
		r, err := binary.UnmarshalResolvedRelation(data)
		if err != nil {
			return err
		}
		el.Relations[id] = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	if counts := elementsCounts(el); !equalCounts(counts, meta.Counts) {
		log.Printf("[warn] Cache %s is incomplete (%v, expected %v)", c.Path(ElementsArtifact), counts, meta.Counts)
		return nil, nil
	}
	return el, nil
}
