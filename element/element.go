/*
Package element contains the data model of osmfilter: the Kind discriminant,
the prefiltered Dataset and the resolved Elements.

Raw entities use the types from github.com/omniscale/go-osm.
*/
package element

import (
	"fmt"
	"strings"

	osm "github.com/omniscale/go-osm"
)

// Kind is the entity kind. It is used as key for all kind-indexed mappings.
type Kind int

const (
	Node Kind = iota
	Way
	Relation
)

// Kinds lists all kinds in file order.
var Kinds = []Kind{Node, Way, Relation}

func (k Kind) String() string {
	switch k {
	case Node:
		return "node"
	case Way:
		return "way"
	case Relation:
		return "relation"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind parses node, way or relation (case-insensitive).
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "node":
		return Node, nil
	case "way":
		return Way, nil
	case "relation":
		return Relation, nil
	}
	return 0, fmt.Errorf("unknown element kind %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	kind, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// MemberKind maps a relation member type to Kind.
func MemberKind(t osm.MemberType) Kind {
	switch t {
	case osm.WayMember:
		return Way
	case osm.RelationMember:
		return Relation
	}
	return Node
}

// MemberType maps Kind to the relation member type.
func (k Kind) MemberType() osm.MemberType {
	switch k {
	case Way:
		return osm.WayMember
	case Relation:
		return osm.RelationMember
	}
	return osm.NodeMember
}

// Coord is a WGS84 coordinate.
type Coord struct {
	Long float64 `json:"lon"`
	Lat  float64 `json:"lat"`
}

// CoordOf returns the coordinate of a node.
func CoordOf(nd *osm.Node) Coord {
	return Coord{Long: nd.Long, Lat: nd.Lat}
}

// CopyTags returns a copy of t. The copy of nil tags is an empty map.
func CopyTags(t osm.Tags) osm.Tags {
	result := make(osm.Tags, len(t))
	for k, v := range t {
		result[k] = v
	}
	return result
}
