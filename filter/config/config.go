// Package config loads filter specifications from YAML files.
//
//	prefilter:
//	  node: {}
//	  way:
//	    highway: [footway, path]
//	  relation: any
//	whitefilter:
//	  - [[], []]
//	blackfilter:
//	  - [foot, "no"]
package config

import (
	"fmt"
	"io/ioutil"
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/omniscale/osmfilter/element"
)

// AnyValue in a prefilter value list matches all values of the key.
const AnyValue = "__any__"

type FilterSpec struct {
	Prefilter Prefilter `yaml:"prefilter"`
	// Whitefilter is nil if the file has no whitefilter, which is
	// interpreted as a single rule that matches everything.
	Whitefilter *[]Rule   `yaml:"whitefilter"`
	Blackfilter []Matcher `yaml:"blackfilter"`
}

// Prefilter contains the filter for each kind. Kinds without an entry
// reject all entities.
type Prefilter map[element.Kind]*KindFilter

// KindFilter retains all entities if Any is set. Otherwise it retains
// entities with at least one of the key/values. An empty KindFilter
// rejects all entities.
type KindFilter struct {
	Any    bool
	Values KeyValues
}

type KeyValues map[string][]string

// Matcher is a [key, value] pair. Key or Value are nil for [] wildcards.
type Matcher struct {
	Key   *string
	Value *string
}

// Rule is a pair of Matchers.
type Rule [2]Matcher

func (p *Prefilter) UnmarshalYAML(unmarshal func(interface{}) error) error {
	if *p == nil {
		*p = make(Prefilter)
	}
	slice := yaml.MapSlice{}
	if err := unmarshal(&slice); err != nil {
		return err
	}
	for _, item := range slice {
		name, ok := item.Key.(string)
		if !ok {
			return fmt.Errorf("prefilter key '%v' not a string", item.Key)
		}
		kind, err := element.ParseKind(name)
		if err != nil {
			return errors.Wrap(err, "prefilter")
		}
		if _, ok := (*p)[kind]; ok {
			return fmt.Errorf("prefilter for %s defined twice", kind)
		}
		kf, err := parseKindFilter(item.Value)
		if err != nil {
			return errors.Wrapf(err, "prefilter for %s", kind)
		}
		(*p)[kind] = kf
	}
	return nil
}

func parseKindFilter(v interface{}) (*KindFilter, error) {
	switch v := v.(type) {
	case nil:
		return &KindFilter{}, nil
	case string:
		if v == "any" {
			return &KindFilter{Any: true}, nil
		}
		return nil, fmt.Errorf("expected 'any' or a mapping, got '%s'", v)
	case yaml.MapSlice:
		kf := &KindFilter{Values: make(KeyValues)}
		for _, item := range v {
			k, ok := item.Key.(string)
			if !ok {
				return nil, fmt.Errorf("key '%v' not a string", item.Key)
			}
			values, err := parseValues(item.Value)
			if err != nil {
				return nil, errors.Wrapf(err, "key '%s'", k)
			}
			kf.Values[k] = append(kf.Values[k], values...)
		}
		return kf, nil
	case map[interface{}]interface{}:
		slice := make(yaml.MapSlice, 0, len(v))
		for k, val := range v {
			slice = append(slice, yaml.MapItem{Key: k, Value: val})
		}
		return parseKindFilter(slice)
	}
	return nil, fmt.Errorf("expected 'any' or a mapping, got %v", v)
}

// parseValues accepts a single value or a list of values.
func parseValues(v interface{}) ([]string, error) {
	switch v := v.(type) {
	case []interface{}:
		values := make([]string, 0, len(v))
		for _, item := range v {
			s, err := scalar(item)
			if err != nil {
				return nil, err
			}
			values = append(values, s)
		}
		return values, nil
	default:
		s, err := scalar(v)
		if err != nil {
			return nil, err
		}
		return []string{s}, nil
	}
}

// scalar converts YAML scalars to strings. Booleans are rejected, as
// YAML 1.1 parses unquoted values like no or yes as booleans.
func scalar(v interface{}) (string, error) {
	switch v := v.(type) {
	case string:
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		return "", fmt.Errorf("value %v is a boolean, quote it to match the tag value", v)
	}
	return "", fmt.Errorf("value '%v' not a string", v)
}

// wildcard returns true for the [] placeholder.
func wildcard(v interface{}) bool {
	l, ok := v.([]interface{})
	return ok && len(l) == 0
}

func (m *Matcher) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var items []interface{}
	if err := unmarshal(&items); err != nil {
		return errors.Wrap(err, "matcher must be a list of key and value")
	}
	*m = Matcher{}
	if len(items) > 2 {
		return fmt.Errorf("matcher %v with more than key and value", items)
	}
	if len(items) > 0 && !wildcard(items[0]) {
		k, err := scalar(items[0])
		if err != nil {
			return errors.Wrap(err, "matcher key")
		}
		m.Key = &k
	}
	if len(items) > 1 && !wildcard(items[1]) {
		v, err := scalar(items[1])
		if err != nil {
			return errors.Wrap(err, "matcher value")
		}
		m.Value = &v
	}
	if m.Key == nil && m.Value != nil {
		return fmt.Errorf("matcher with wildcard key and value '%s'", *m.Value)
	}
	return nil
}

func (r *Rule) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var matchers []Matcher
	if err := unmarshal(&matchers); err != nil {
		return err
	}
	if len(matchers) != 2 {
		return fmt.Errorf("rule needs two matchers, got %d", len(matchers))
	}
	r[0], r[1] = matchers[0], matchers[1]
	return nil
}

// Parse parses a filter spec.
func Parse(b []byte) (*FilterSpec, error) {
	spec := &FilterSpec{}
	if err := yaml.UnmarshalStrict(b, spec); err != nil {
		return nil, err
	}
	return spec, nil
}

// Load reads and parses the filter spec file.
func Load(filename string) (*FilterSpec, error) {
	b, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "reading filter spec %s", filename)
	}
	spec, err := Parse(b)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing filter spec %s", filename)
	}
	return spec, nil
}
