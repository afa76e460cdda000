package filter

import (
	"fmt"
	"sort"
	"strings"

	osm "github.com/omniscale/go-osm"

	"github.com/omniscale/osmfilter/element"
	"github.com/omniscale/osmfilter/filter/config"
)

// kindPrefilter is the prefilter of a single kind. values maps keys to
// the accepted values, with config.AnyValue for all values.
type kindPrefilter struct {
	any    bool
	values map[string]map[string]struct{}
}

func (f *kindPrefilter) match(tags osm.Tags) bool {
	if f.any {
		return true
	}
	for k, v := range tags {
		values, ok := f.values[k]
		if !ok {
			continue
		}
		if _, ok := values[config.AnyValue]; ok {
			return true
		}
		if _, ok := values[v]; ok {
			return true
		}
	}
	return false
}

// Prefilter decides which entities are retained while reading. Match is
// safe for concurrent use.
type Prefilter struct {
	kinds [3]kindPrefilter
}

func NewPrefilter(c config.Prefilter) *Prefilter {
	p := &Prefilter{}
	for kind, kf := range c {
		if kf == nil {
			continue
		}
		f := kindPrefilter{any: kf.Any}
		if len(kf.Values) > 0 {
			f.values = make(map[string]map[string]struct{}, len(kf.Values))
			for k, values := range kf.Values {
				set := make(map[string]struct{}, len(values))
				for _, v := range values {
					set[v] = struct{}{}
				}
				f.values[k] = set
			}
		}
		p.kinds[kind] = f
	}
	return p
}

// Match returns true if an entity of kind with tags is retained.
func (p *Prefilter) Match(kind element.Kind, tags osm.Tags) bool {
	return p.kinds[kind].match(tags)
}

// Rejects returns true if no entity of kind is ever retained.
func (p *Prefilter) Rejects(kind element.Kind) bool {
	f := p.kinds[kind]
	return !f.any && len(f.values) == 0
}

// Canonical returns an order independent string representation of the
// prefilter, used for cache fingerprints.
func (p *Prefilter) Canonical() string {
	parts := make([]string, 0, len(element.Kinds))
	for _, kind := range element.Kinds {
		f := p.kinds[kind]
		var desc string
		switch {
		case f.any:
			desc = "any"
		case len(f.values) == 0:
			desc = "none"
		default:
			keys := make([]string, 0, len(f.values))
			for k := range f.values {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			kvs := make([]string, 0, len(keys))
			for _, k := range keys {
				values := make([]string, 0, len(f.values[k]))
				for v := range f.values[k] {
					values = append(values, fmt.Sprintf("%q", v))
				}
				sort.Strings(values)
				kvs = append(kvs, fmt.Sprintf("%q:[%s]", k, strings.Join(values, ",")))
			}
			desc = "{" + strings.Join(kvs, ",") + "}"
		}
		parts = append(parts, kind.String()+"="+desc)
	}
	return strings.Join(parts, ";")
}
