package element

import (
	"sort"

	osm "github.com/omniscale/go-osm"
)

// ResolvedNode is a node member with embedded coordinate and tags.
type ResolvedNode struct {
	ID    int64    `json:"id"`
	Tags  osm.Tags `json:"tags,omitempty"`
	Coord Coord    `json:"coord"`
}

// ResolvedWay is a way with all available node references replaced by
// their coordinates. Refs and Coords have the same length and keep the
// order of the original way. Missing counts the dropped references.
type ResolvedWay struct {
	ID      int64    `json:"id"`
	Tags    osm.Tags `json:"tags,omitempty"`
	Refs    []int64  `json:"refs"`
	Coords  []Coord  `json:"coords"`
	Missing int      `json:"missing,omitempty"`
}

// ResolvedMember is a relation member. Exactly one of Node, Way or Relation
// is set for resolved members, none for dangling references.
type ResolvedMember struct {
	Type     Kind              `json:"type"`
	ID       int64             `json:"id"`
	Role     string            `json:"role"`
	Node     *ResolvedNode     `json:"node,omitempty"`
	Way      *ResolvedWay      `json:"way,omitempty"`
	Relation *ResolvedRelation `json:"relation,omitempty"`
}

func (m *ResolvedMember) Resolved() bool {
	return m.Node != nil || m.Way != nil || m.Relation != nil
}

// ResolvedRelation is a relation with embedded members. Nested relations
// are only resolved to their immediate members.
type ResolvedRelation struct {
	ID      int64            `json:"id"`
	Tags    osm.Tags         `json:"tags,omitempty"`
	Members []ResolvedMember `json:"members"`
	Missing int              `json:"missing,omitempty"`
}

// Elements contains all resolved ways and relations, keyed by kind then ID.
type Elements struct {
	Ways      map[int64]*ResolvedWay
	Relations map[int64]*ResolvedRelation
}

func NewElements() *Elements {
	return &Elements{
		Ways:      make(map[int64]*ResolvedWay),
		Relations: make(map[int64]*ResolvedRelation),
	}
}

// Len returns the number of resolved elements of kind.
func (e *Elements) Len(kind Kind) int {
	switch kind {
	case Way:
		return len(e.Ways)
	case Relation:
		return len(e.Relations)
	}
	return 0
}

// WayIDs returns all way IDs in ascending order.
func (e *Elements) WayIDs() []int64 {
	return SortedIDs(e.Ways)
}

// RelationIDs returns all relation IDs in ascending order.
func (e *Elements) RelationIDs() []int64 {
	return SortedIDs(e.Relations)
}

// SortedIDs returns the keys of m in ascending order.
func SortedIDs[T any](m map[int64]T) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
