package filter

import (
	"fmt"

	osm "github.com/omniscale/go-osm"

	"github.com/omniscale/osmfilter/filter/config"
)

type MatcherType int

const (
	MatchExact MatcherType = iota
	MatchAnyValue
	MatchAnyKeyValue
)

// Matcher matches a single tag. Use Exact, AnyValue or AnyKeyValue to
// create a Matcher.
type Matcher struct {
	typ   MatcherType
	key   string
	value string
}

// Exact matches tags with key and value.
func Exact(key, value string) Matcher {
	return Matcher{typ: MatchExact, key: key, value: value}
}

// AnyValue matches tags with key.
func AnyValue(key string) Matcher {
	return Matcher{typ: MatchAnyValue, key: key}
}

// AnyKeyValue matches every tag.
func AnyKeyValue() Matcher {
	return Matcher{typ: MatchAnyKeyValue}
}

// NewMatcher creates a Matcher from the [key, value] config.
func NewMatcher(c config.Matcher) (Matcher, error) {
	switch {
	case c.Key == nil && c.Value == nil:
		return AnyKeyValue(), nil
	case c.Key == nil:
		return Matcher{}, fmt.Errorf("matcher with wildcard key and value '%s'", *c.Value)
	case c.Value == nil:
		return AnyValue(*c.Key), nil
	}
	return Exact(*c.Key, *c.Value), nil
}

func (m Matcher) Type() MatcherType { return m.typ }
func (m Matcher) Key() string       { return m.key }
func (m Matcher) Value() string     { return m.value }

// MatchTag returns true if the single tag k=v matches.
func (m Matcher) MatchTag(k, v string) bool {
	switch m.typ {
	case MatchAnyKeyValue:
		return true
	case MatchAnyValue:
		return k == m.key
	}
	return k == m.key && v == m.value
}

// Match returns true if any of the tags matches. AnyKeyValue also matches
// entities without tags.
func (m Matcher) Match(tags osm.Tags) bool {
	switch m.typ {
	case MatchAnyKeyValue:
		return true
	case MatchAnyValue:
		_, ok := tags[m.key]
		return ok
	}
	v, ok := tags[m.key]
	return ok && v == m.value
}

func (m Matcher) String() string {
	switch m.typ {
	case MatchAnyKeyValue:
		return "[[], []]"
	case MatchAnyValue:
		return fmt.Sprintf("[%q, []]", m.key)
	}
	return fmt.Sprintf("[%q, %q]", m.key, m.value)
}
