package binary

import (
	proto "github.com/gogo/protobuf/proto"
)

// The cache messages use proto3 encoding for numeric fields. Coordinates
// are stored as doubles, so cached coordinates are identical to the parsed
// ones. String fields are encoded without the proto3 flag, as tags are not
// guaranteed to be valid UTF-8.

type Node struct {
	Long float64  `protobuf:"fixed64,1,opt,name=long,proto3" json:"long,omitempty"`
	Lat  float64  `protobuf:"fixed64,2,opt,name=lat,proto3" json:"lat,omitempty"`
	Tags []string `protobuf:"bytes,3,rep,name=tags" json:"tags,omitempty"`
}

func (m *Node) Reset()         { *m = Node{} }
func (m *Node) String() string { return proto.CompactTextString(m) }
func (*Node) ProtoMessage()    {}

type Way struct {
	Tags []string `protobuf:"bytes,1,rep,name=tags" json:"tags,omitempty"`
	Refs []int64  `protobuf:"zigzag64,2,rep,packed,name=refs,proto3" json:"refs,omitempty"`
}

func (m *Way) Reset()         { *m = Way{} }
func (m *Way) String() string { return proto.CompactTextString(m) }
func (*Way) ProtoMessage()    {}

type Relation struct {
	Tags        []string `protobuf:"bytes,1,rep,name=tags" json:"tags,omitempty"`
	MemberIds   []int64  `protobuf:"zigzag64,2,rep,packed,name=member_ids,proto3" json:"member_ids,omitempty"`
	MemberTypes []int32  `protobuf:"varint,3,rep,packed,name=member_types,proto3" json:"member_types,omitempty"`
	MemberRoles []string `protobuf:"bytes,4,rep,name=member_roles" json:"member_roles,omitempty"`
}

func (m *Relation) Reset()         { *m = Relation{} }
func (m *Relation) String() string { return proto.CompactTextString(m) }
func (*Relation) ProtoMessage()    {}

type ResolvedNode struct {
	Id   int64    `protobuf:"zigzag64,1,opt,name=id,proto3" json:"id,omitempty"`
	Tags []string `protobuf:"bytes,2,rep,name=tags" json:"tags,omitempty"`
	Long float64  `protobuf:"fixed64,3,opt,name=long,proto3" json:"long,omitempty"`
	Lat  float64  `protobuf:"fixed64,4,opt,name=lat,proto3" json:"lat,omitempty"`
}

func (m *ResolvedNode) Reset()         { *m = ResolvedNode{} }
func (m *ResolvedNode) String() string { return proto.CompactTextString(m) }
func (*ResolvedNode) ProtoMessage()    {}

type ResolvedWay struct {
	Id      int64     `protobuf:"zigzag64,1,opt,name=id,proto3" json:"id,omitempty"`
	Tags    []string  `protobuf:"bytes,2,rep,name=tags" json:"tags,omitempty"`
	Refs    []int64   `protobuf:"zigzag64,3,rep,packed,name=refs,proto3" json:"refs,omitempty"`
	Longs   []float64 `protobuf:"fixed64,4,rep,packed,name=longs,proto3" json:"longs,omitempty"`
	Lats    []float64 `protobuf:"fixed64,5,rep,packed,name=lats,proto3" json:"lats,omitempty"`
	Missing int32     `protobuf:"varint,6,opt,name=missing,proto3" json:"missing,omitempty"`
}

func (m *ResolvedWay) Reset()         { *m = ResolvedWay{} }
func (m *ResolvedWay) String() string { return proto.CompactTextString(m) }
func (*ResolvedWay) ProtoMessage()    {}

type ResolvedMember struct {
	Type     int32             `protobuf:"varint,1,opt,name=type,proto3" json:"type,omitempty"`
	Id       int64             `protobuf:"zigzag64,2,opt,name=id,proto3" json:"id,omitempty"`
	Role     string            `protobuf:"bytes,3,opt,name=role" json:"role,omitempty"`
	Node     *ResolvedNode     `protobuf:"bytes,4,opt,name=node,proto3" json:"node,omitempty"`
	Way      *ResolvedWay      `protobuf:"bytes,5,opt,name=way,proto3" json:"way,omitempty"`
	Relation *ResolvedRelation `protobuf:"bytes,6,opt,name=relation,proto3" json:"relation,omitempty"`
}

func (m *ResolvedMember) Reset()         { *m = ResolvedMember{} }
func (m *ResolvedMember) String() string { return proto.CompactTextString(m) }
func (*ResolvedMember) ProtoMessage()    {}

type ResolvedRelation struct {
	Id      int64             `protobuf:"zigzag64,1,opt,name=id,proto3" json:"id,omitempty"`
	Tags    []string          `protobuf:"bytes,2,rep,name=tags" json:"tags,omitempty"`
	Members []*ResolvedMember `protobuf:"bytes,3,rep,name=members,proto3" json:"members,omitempty"`
	Missing int32             `protobuf:"varint,4,opt,name=missing,proto3" json:"missing,omitempty"`
}

func (m *ResolvedRelation) Reset()         { *m = ResolvedRelation{} }
func (m *ResolvedRelation) String() string { return proto.CompactTextString(m) }
func (*ResolvedRelation) ProtoMessage()    {}
