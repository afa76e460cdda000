// Package osmpbf contains the protobuf messages of the OSM PBF format
// (fileformat.proto and osmformat.proto, proto2 syntax).
//
// The messages are plain structs with protobuf struct tags. They are
// (un)marshaled by github.com/gogo/protobuf/proto.
package osmpbf

import (
	proto "github.com/gogo/protobuf/proto"
)

type Blob struct {
	Raw      []byte `protobuf:"bytes,1,opt,name=raw" json:"raw,omitempty"`
	RawSize  *int32 `protobuf:"varint,2,opt,name=raw_size" json:"raw_size,omitempty"`
	ZlibData []byte `protobuf:"bytes,3,opt,name=zlib_data" json:"zlib_data,omitempty"`
	LzmaData []byte `protobuf:"bytes,4,opt,name=lzma_data" json:"lzma_data,omitempty"`
	Bzip2    []byte `protobuf:"bytes,5,opt,name=OBSOLETE_bzip2_data" json:"OBSOLETE_bzip2_data,omitempty"`
	Lz4Data  []byte `protobuf:"bytes,6,opt,name=lz4_data" json:"lz4_data,omitempty"`
	ZstdData []byte `protobuf:"bytes,7,opt,name=zstd_data" json:"zstd_data,omitempty"`
}

func (m *Blob) Reset()         { *m = Blob{} }
func (m *Blob) String() string { return proto.CompactTextString(m) }
func (*Blob) ProtoMessage()    {}

func (m *Blob) GetRaw() []byte {
	if m != nil {
		return m.Raw
	}
	return nil
}

func (m *Blob) GetRawSize() int32 {
	if m != nil && m.RawSize != nil {
		return *m.RawSize
	}
	return 0
}

func (m *Blob) GetZlibData() []byte {
	if m != nil {
		return m.ZlibData
	}
	return nil
}

// Compression returns the name of the used compression or "raw".
func (m *Blob) Compression() string {
	switch {
	case m.Raw != nil:
		return "raw"
	case m.ZlibData != nil:
		return "zlib"
	case m.LzmaData != nil:
		return "lzma"
	case m.Bzip2 != nil:
		return "bzip2"
	case m.Lz4Data != nil:
		return "lz4"
	case m.ZstdData != nil:
		return "zstd"
	}
	return "none"
}

type BlobHeader struct {
	Type      *string `protobuf:"bytes,1,req,name=type" json:"type,omitempty"`
	Indexdata []byte  `protobuf:"bytes,2,opt,name=indexdata" json:"indexdata,omitempty"`
	Datasize  *int32  `protobuf:"varint,3,req,name=datasize" json:"datasize,omitempty"`
}

func (m *BlobHeader) Reset()         { *m = BlobHeader{} }
func (m *BlobHeader) String() string { return proto.CompactTextString(m) }
func (*BlobHeader) ProtoMessage()    {}

func (m *BlobHeader) GetType() string {
	if m != nil && m.Type != nil {
		return *m.Type
	}
	return ""
}

func (m *BlobHeader) GetDatasize() int32 {
	if m != nil && m.Datasize != nil {
		return *m.Datasize
	}
	return 0
}
