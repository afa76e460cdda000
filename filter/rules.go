package filter

import (
	"fmt"
	"sort"
	"strings"

	osm "github.com/omniscale/go-osm"
	"github.com/pkg/errors"

	"github.com/omniscale/osmfilter/element"
	"github.com/omniscale/osmfilter/filter/config"
)

// Rule matches if A and B both match a tag of the entity. A and B can
// match the same tag.
type Rule struct {
	A, B Matcher
}

func (r Rule) Match(tags osm.Tags) bool {
	return r.A.Match(tags) && r.B.Match(tags)
}

func (r Rule) String() string {
	return "[" + r.A.String() + ", " + r.B.String() + "]"
}

// UniversalRule matches every entity.
var UniversalRule = Rule{A: AnyKeyValue(), B: AnyKeyValue()}

// RuleFilter accepts entities that match no Black matcher and at least
// one White rule.
type RuleFilter struct {
	White []Rule
	Black []Matcher
}

// NewRuleFilter creates the RuleFilter of spec. A missing whitefilter
// accepts every entity, an empty whitefilter none.
func NewRuleFilter(spec *config.FilterSpec) (*RuleFilter, error) {
	f := &RuleFilter{}
	if spec.Whitefilter == nil {
		f.White = []Rule{UniversalRule}
	} else {
		f.White = make([]Rule, 0, len(*spec.Whitefilter))
		for i, r := range *spec.Whitefilter {
			a, err := NewMatcher(r[0])
			if err != nil {
				return nil, errors.Wrapf(err, "whitefilter rule %d", i+1)
			}
			b, err := NewMatcher(r[1])
			if err != nil {
				return nil, errors.Wrapf(err, "whitefilter rule %d", i+1)
			}
			f.White = append(f.White, Rule{A: a, B: b})
		}
	}
	for i, c := range spec.Blackfilter {
		m, err := NewMatcher(c)
		if err != nil {
			return nil, errors.Wrapf(err, "blackfilter matcher %d", i+1)
		}
		f.Black = append(f.Black, m)
	}
	return f, nil
}

// Accept checks the blackfilter first and the whitefilter only for
// entities that are not rejected.
func (f *RuleFilter) Accept(tags osm.Tags) bool {
	for _, m := range f.Black {
		if m.Match(tags) {
			return false
		}
	}
	for _, r := range f.White {
		if r.Match(tags) {
			return true
		}
	}
	return false
}

// Apply returns a new Dataset with all accepted entities of ds. Rejected
// entities are kept as references only.
func (f *RuleFilter) Apply(ds *element.Dataset) *element.Dataset {
	nodes := make(map[int64]*osm.Node)
	for id, nd := range ds.Nodes {
		if f.Accept(nd.Tags) {
			nodes[id] = nd
		}
	}
	ways := make(map[int64]*osm.Way)
	for id, w := range ds.Ways {
		if f.Accept(w.Tags) {
			ways[id] = w
		}
	}
	rels := make(map[int64]*osm.Relation)
	for id, r := range ds.Relations {
		if f.Accept(r.Tags) {
			rels[id] = r
		}
	}
	return ds.WithEntities(nodes, ways, rels)
}

// Canonical returns an order independent string representation of the
// filter, used for cache fingerprints.
func (f *RuleFilter) Canonical() string {
	white := make([]string, len(f.White))
	for i, r := range f.White {
		white[i] = r.String()
	}
	sort.Strings(white)
	black := make([]string, len(f.Black))
	for i, m := range f.Black {
		black[i] = m.String()
	}
	sort.Strings(black)
	return fmt.Sprintf("white:%s;black:%s", strings.Join(dedup(white), ","), strings.Join(dedup(black), ","))
}

// dedup removes duplicates from a sorted slice.
func dedup(s []string) []string {
	var result []string
	for _, v := range s {
		if len(result) == 0 || v != result[len(result)-1] {
			result = append(result, v)
		}
	}
	return result
}
