// Package binary serializes entities for the cache.
//
// All messages are protobuf encoded. Refs and member IDs are delta
// encoded, tags use the compact array encoding of tagsAsArray. IDs are
// stored in the cache keys and are not part of the top-level messages.
package binary

import (
	"github.com/gogo/protobuf/proto"
	osm "github.com/omniscale/go-osm"
	"github.com/pkg/errors"

	"github.com/omniscale/osmfilter/element"
)

func MarshalNode(node *osm.Node) ([]byte, error) {
	pbfNode := &Node{
		Long: node.Long,
		Lat:  node.Lat,
		Tags: tagsAsArray(node.Tags),
	}
	return proto.Marshal(pbfNode)
}

func UnmarshalNode(id int64, data []byte) (*osm.Node, error) {
	pbfNode := &Node{}
	if err := proto.Unmarshal(data, pbfNode); err != nil {
		return nil, errors.Wrapf(err, "unmarshaling node %d", id)
	}
	tags, err := tagsFromArray(pbfNode.Tags)
	if err != nil {
		return nil, errors.Wrapf(err, "unmarshaling node %d", id)
	}
	node := &osm.Node{Long: pbfNode.Long, Lat: pbfNode.Lat}
	node.ID = id
	node.Tags = tags
	return node, nil
}

func MarshalCoord(c element.Coord) ([]byte, error) {
	return proto.Marshal(&Node{Long: c.Long, Lat: c.Lat})
}

func UnmarshalCoord(data []byte) (element.Coord, error) {
	pbfNode := &Node{}
	if err := proto.Unmarshal(data, pbfNode); err != nil {
		return element.Coord{}, errors.Wrap(err, "unmarshaling coord")
	}
	return element.Coord{Long: pbfNode.Long, Lat: pbfNode.Lat}, nil
}

// deltaPack returns a delta encoded copy of data.
func deltaPack(data []int64) []int64 {
	result := make([]int64, len(data))
	var last int64
	for i, v := range data {
		result[i] = v - last
		last = v
	}
	return result
}

// deltaUnpack decodes data in place. It always returns a non-nil slice.
func deltaUnpack(data []int64) []int64 {
	if data == nil {
		return []int64{}
	}
	for i := 1; i < len(data); i++ {
		data[i] = data[i] + data[i-1]
	}
	return data
}

func MarshalWay(way *osm.Way) ([]byte, error) {
	pbfWay := &Way{
		Refs: deltaPack(way.Refs),
		Tags: tagsAsArray(way.Tags),
	}
	return proto.Marshal(pbfWay)
}

func UnmarshalWay(id int64, data []byte) (*osm.Way, error) {
	pbfWay := &Way{}
	if err := proto.Unmarshal(data, pbfWay); err != nil {
		return nil, errors.Wrapf(err, "unmarshaling way %d", id)
	}
	tags, err := tagsFromArray(pbfWay.Tags)
	if err != nil {
		return nil, errors.Wrapf(err, "unmarshaling way %d", id)
	}
	way := &osm.Way{Refs: deltaUnpack(pbfWay.Refs)}
	way.ID = id
	way.Tags = tags
	return way, nil
}

func MarshalRelation(relation *osm.Relation) ([]byte, error) {
	pbfRelation := &Relation{
		MemberIds:   make([]int64, len(relation.Members)),
		MemberTypes: make([]int32, len(relation.Members)),
		MemberRoles: make([]string, len(relation.Members)),
		Tags:        tagsAsArray(relation.Tags),
	}
	for i, m := range relation.Members {
		pbfRelation.MemberIds[i] = m.ID
		pbfRelation.MemberTypes[i] = int32(m.Type)
		pbfRelation.MemberRoles[i] = m.Role
	}
	pbfRelation.MemberIds = deltaPack(pbfRelation.MemberIds)
	return proto.Marshal(pbfRelation)
}

func UnmarshalRelation(id int64, data []byte) (*osm.Relation, error) {
	pbfRelation := &Relation{}
	if err := proto.Unmarshal(data, pbfRelation); err != nil {
		return nil, errors.Wrapf(err, "unmarshaling relation %d", id)
	}
	n := len(pbfRelation.MemberIds)
	if len(pbfRelation.MemberTypes) != n || len(pbfRelation.MemberRoles) != n {
		return nil, errors.Errorf("relation %d with inconsistent members", id)
	}
	tags, err := tagsFromArray(pbfRelation.Tags)
	if err != nil {
		return nil, errors.Wrapf(err, "unmarshaling relation %d", id)
	}

	relation := &osm.Relation{Members: make([]osm.Member, n)}
	relation.ID = id
	relation.Tags = tags
	ids := deltaUnpack(pbfRelation.MemberIds)
	for i := range relation.Members {
		relation.Members[i].ID = ids[i]
		relation.Members[i].Type = osm.MemberType(pbfRelation.MemberTypes[i])
		relation.Members[i].Role = pbfRelation.MemberRoles[i]
	}
	return relation, nil
}

func resolvedWayMessage(w *element.ResolvedWay) *ResolvedWay {
	msg := &ResolvedWay{
		Id:      w.ID,
		Tags:    tagsAsArray(w.Tags),
		Refs:    deltaPack(w.Refs),
		Longs:   make([]float64, len(w.Coords)),
		Lats:    make([]float64, len(w.Coords)),
		Missing: int32(w.Missing),
	}
	for i, c := range w.Coords {
		msg.Longs[i] = c.Long
		msg.Lats[i] = c.Lat
	}
	return msg
}

func resolvedWayFromMessage(msg *ResolvedWay) (*element.ResolvedWay, error) {
	if len(msg.Longs) != len(msg.Refs) || len(msg.Lats) != len(msg.Refs) {
		return nil, errors.Errorf("resolved way %d with %d refs but %d/%d coords",
			msg.Id, len(msg.Refs), len(msg.Longs), len(msg.Lats))
	}
	tags, err := tagsFromArray(msg.Tags)
	if err != nil {
		return nil, errors.Wrapf(err, "resolved way %d", msg.Id)
	}
	w := &element.ResolvedWay{
		ID:      msg.Id,
		Tags:    tags,
		Refs:    deltaUnpack(msg.Refs),
		Coords:  make([]element.Coord, len(msg.Longs)),
		Missing: int(msg.Missing),
	}
	for i := range w.Coords {
		w.Coords[i] = element.Coord{Long: msg.Longs[i], Lat: msg.Lats[i]}
	}
	return w, nil
}

func resolvedRelationMessage(r *element.ResolvedRelation) *ResolvedRelation {
	msg := &ResolvedRelation{
		Id:      r.ID,
		Tags:    tagsAsArray(r.Tags),
		Members: make([]*ResolvedMember, len(r.Members)),
		Missing: int32(r.Missing),
	}
	for i, m := range r.Members {
		pm := &ResolvedMember{Type: int32(m.Type), Id: m.ID, Role: m.Role}
		switch {
		case m.Node != nil:
			pm.Node = &ResolvedNode{
				Id:   m.Node.ID,
				Tags: tagsAsArray(m.Node.Tags),
				Long: m.Node.Coord.Long,
				Lat:  m.Node.Coord.Lat,
			}
		case m.Way != nil:
			pm.Way = resolvedWayMessage(m.Way)
		case m.Relation != nil:
			pm.Relation = resolvedRelationMessage(m.Relation)
		}
		msg.Members[i] = pm
	}
	return msg
}

func resolvedRelationFromMessage(msg *ResolvedRelation) (*element.ResolvedRelation, error) {
	tags, err := tagsFromArray(msg.Tags)
	if err != nil {
		return nil, errors.Wrapf(err, "resolved relation %d", msg.Id)
	}
	r := &element.ResolvedRelation{
		ID:      msg.Id,
		Tags:    tags,
		Members: make([]element.ResolvedMember, len(msg.Members)),
		Missing: int(msg.Missing),
	}
	for i, pm := range msg.Members {
		m := element.ResolvedMember{Type: element.Kind(pm.Type), ID: pm.Id, Role: pm.Role}
		switch {
		case pm.Node != nil:
			nodeTags, err := tagsFromArray(pm.Node.Tags)
			if err != nil {
				return nil, errors.Wrapf(err, "resolved relation %d", msg.Id)
			}
			m.Node = &element.ResolvedNode{
				ID:    pm.Node.Id,
				Tags:  nodeTags,
				Coord: element.Coord{Long: pm.Node.Long, Lat: pm.Node.Lat},
			}
		case pm.Way != nil:
			if m.Way, err = resolvedWayFromMessage(pm.Way); err != nil {
				return nil, err
			}
		case pm.Relation != nil:
			if m.Relation, err = resolvedRelationFromMessage(pm.Relation); err != nil {
				return nil, err
			}
		}
		r.Members[i] = m
	}
	return r, nil
}

func MarshalResolvedWay(w *element.ResolvedWay) ([]byte, error) {
	return proto.Marshal(resolvedWayMessage(w))
}

func UnmarshalResolvedWay(data []byte) (*element.ResolvedWay, error) {
	msg := &ResolvedWay{}
	if err := proto.Unmarshal(data, msg); err != nil {
		return nil, errors.Wrap(err, "unmarshaling resolved way")
	}
	return resolvedWayFromMessage(msg)
}

func MarshalResolvedRelation(r *element.ResolvedRelation) ([]byte, error) {
	return proto.Marshal(resolvedRelationMessage(r))
}

func UnmarshalResolvedRelation(data []byte) (*element.ResolvedRelation, error) {
	msg := &ResolvedRelation{}
	if err := proto.Unmarshal(data, msg); err != nil {
		return nil, errors.Wrap(err, "unmarshaling resolved relation")
	}
	return resolvedRelationFromMessage(msg)
}
