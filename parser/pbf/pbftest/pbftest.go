// Package pbftest writes small OSM PBF files for tests.
package pbftest

import (
	"bytes"
	"compress/zlib"
	structs "encoding/binary"
	"io"
	"math"
	"os"
	"sort"

	"github.com/gogo/protobuf/proto"
	osm "github.com/omniscale/go-osm"
	"github.com/pkg/errors"

	"github.com/omniscale/osmfilter/parser/pbf/internal/osmpbf"
)

// Fixture describes the content of a PBF file.
type Fixture struct {
	Nodes     []osm.Node
	Ways      []osm.Way
	Relations []osm.Relation

	// BlockSize is the maximum number of entities per block. All entities
	// of a kind are written into a single block if BlockSize is 0.
	BlockSize int
	// Raw disables zlib compression of the blobs.
	Raw bool
	// PlainNodes writes Node messages instead of DenseNodes.
	PlainNodes bool
	// RequiredFeatures defaults to OsmSchema-V0.6 and DenseNodes.
	RequiredFeatures []string
}

// WriteFile writes the fixture to filename.
func WriteFile(filename string, f Fixture) error {
	out, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "creating %s", filename)
	}
	if err := Write(out, f); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Write writes the header and all entities of the fixture to w. Nodes are
// written before ways, ways before relations.
func Write(w io.Writer, f Fixture) error {
	features := f.RequiredFeatures
	if features == nil {
		features = []string{"OsmSchema-V0.6", "DenseNodes"}
	}
	header := &osmpbf.HeaderBlock{
		RequiredFeatures: features,
		Writingprogram:   proto.String("pbftest"),
	}
	if err := writeMessage(w, "OSMHeader", header, f.Raw); err != nil {
		return err
	}

	for _, chunk := range chunks(len(f.Nodes), f.BlockSize) {
		st := newStringTable()
		group := &osmpbf.PrimitiveGroup{}
		if f.PlainNodes {
			group.Nodes = plainNodes(st, f.Nodes[chunk[0]:chunk[1]])
		} else {
			group.Dense = denseNodes(st, f.Nodes[chunk[0]:chunk[1]])
		}
		if err := writeMessage(w, "OSMData", st.block(group), f.Raw); err != nil {
			return err
		}
	}
	for _, chunk := range chunks(len(f.Ways), f.BlockSize) {
		st := newStringTable()
		group := &osmpbf.PrimitiveGroup{Ways: ways(st, f.Ways[chunk[0]:chunk[1]])}
		if err := writeMessage(w, "OSMData", st.block(group), f.Raw); err != nil {
			return err
		}
	}
	for _, chunk := range chunks(len(f.Relations), f.BlockSize) {
		st := newStringTable()
		group := &osmpbf.PrimitiveGroup{Relations: relations(st, f.Relations[chunk[0]:chunk[1]])}
		if err := writeMessage(w, "OSMData", st.block(group), f.Raw); err != nil {
			return err
		}
	}
	return nil
}

// WriteBlob writes a block with the given type and raw blob data to w.
// The blob data is written as is and can be used to create invalid files.
func WriteBlob(w io.Writer, typ string, blob []byte) error {
	header := &osmpbf.BlobHeader{
		Type:     proto.String(typ),
		Datasize: proto.Int32(int32(len(blob))),
	}
	headerData, err := proto.Marshal(header)
	if err != nil {
		return errors.Wrap(err, "marshaling blob header")
	}
	var size [4]byte
	structs.BigEndian.PutUint32(size[:], uint32(len(headerData)))
	for _, data := range [][]byte{size[:], headerData, blob} {
		if _, err := w.Write(data); err != nil {
			return errors.Wrap(err, "writing block")
		}
	}
	return nil
}

// LzmaBlob returns blob data that is marked as lzma compressed.
func LzmaBlob(data []byte) []byte {
	blob, err := proto.Marshal(&osmpbf.Blob{LzmaData: data, RawSize: proto.Int32(int32(len(data)))})
	if err != nil {
		panic(err)
	}
	return blob
}

// ZlibBlob returns zlib compressed blob data with the given raw_size.
func ZlibBlob(data []byte, rawSize int32) []byte {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	zw.Write(data)
	zw.Close()
	blob, err := proto.Marshal(&osmpbf.Blob{ZlibData: buf.Bytes(), RawSize: proto.Int32(rawSize)})
	if err != nil {
		panic(err)
	}
	return blob
}

func writeMessage(w io.Writer, typ string, msg proto.Message, raw bool) error {
	data, err := proto.Marshal(msg)
	if err != nil {
		return errors.Wrapf(err, "marshaling %s", typ)
	}
	blob := &osmpbf.Blob{RawSize: proto.Int32(int32(len(data)))}
	if raw {
		blob.Raw = data
	} else {
		var buf bytes.Buffer
		zw := zlib.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			return errors.Wrap(err, "compressing blob")
		}
		if err := zw.Close(); err != nil {
			return errors.Wrap(err, "compressing blob")
		}
		blob.ZlibData = buf.Bytes()
	}
	blobData, err := proto.Marshal(blob)
	if err != nil {
		return errors.Wrap(err, "marshaling blob")
	}
	return WriteBlob(w, typ, blobData)
}

// chunks splits n entities into [start, end) ranges of size.
func chunks(n, size int) [][2]int {
	if n == 0 {
		return nil
	}
	if size <= 0 {
		size = n
	}
	var result [][2]int
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		result = append(result, [2]int{start, end})
	}
	return result
}

type stringTable struct {
	idx     map[string]int
	strings [][]byte
}

func newStringTable() *stringTable {
	// index 0 is reserved as delimiter
	return &stringTable{idx: map[string]int{"": 0}, strings: [][]byte{{}}}
}

func (st *stringTable) add(s string) int {
	if i, ok := st.idx[s]; ok {
		return i
	}
	i := len(st.strings)
	st.idx[s] = i
	st.strings = append(st.strings, []byte(s))
	return i
}

func (st *stringTable) block(group *osmpbf.PrimitiveGroup) *osmpbf.PrimitiveBlock {
	return &osmpbf.PrimitiveBlock{
		Stringtable:    &osmpbf.StringTable{S: st.strings},
		Primitivegroup: []*osmpbf.PrimitiveGroup{group},
	}
}

func (st *stringTable) tags(tags osm.Tags) (keys, vals []uint32) {
	for _, k := range sortedKeys(tags) {
		keys = append(keys, uint32(st.add(k)))
		vals = append(vals, uint32(st.add(tags[k])))
	}
	return keys, vals
}

func sortedKeys(tags osm.Tags) []string {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// coord encodes with the default granularity of 100 nanodegrees.
func coord(c float64) int64 {
	return int64(math.Round(c * 1e7))
}

func denseNodes(st *stringTable, nodes []osm.Node) *osmpbf.DenseNodes {
	dense := &osmpbf.DenseNodes{}
	var lastID, lastLat, lastLon int64
	for _, nd := range nodes {
		lat, lon := coord(nd.Lat), coord(nd.Long)
		dense.Id = append(dense.Id, nd.ID-lastID)
		dense.Lat = append(dense.Lat, lat-lastLat)
		dense.Lon = append(dense.Lon, lon-lastLon)
		lastID, lastLat, lastLon = nd.ID, lat, lon
		for _, k := range sortedKeys(nd.Tags) {
			dense.KeysVals = append(dense.KeysVals, int32(st.add(k)), int32(st.add(nd.Tags[k])))
		}
		dense.KeysVals = append(dense.KeysVals, 0)
	}
	return dense
}

func plainNodes(st *stringTable, nodes []osm.Node) []*osmpbf.Node {
	result := make([]*osmpbf.Node, len(nodes))
	for i, nd := range nodes {
		keys, vals := st.tags(nd.Tags)
		result[i] = &osmpbf.Node{
			Id:   proto.Int64(nd.ID),
			Keys: keys,
			Vals: vals,
			Lat:  proto.Int64(coord(nd.Lat)),
			Lon:  proto.Int64(coord(nd.Long)),
		}
	}
	return result
}

func deltaRefs(refs []int64) []int64 {
	result := make([]int64, len(refs))
	var last int64
	for i, ref := range refs {
		result[i] = ref - last
		last = ref
	}
	return result
}

func ways(st *stringTable, ways []osm.Way) []*osmpbf.Way {
	result := make([]*osmpbf.Way, len(ways))
	for i, w := range ways {
		keys, vals := st.tags(w.Tags)
		result[i] = &osmpbf.Way{
			Id:   proto.Int64(w.ID),
			Keys: keys,
			Vals: vals,
			Refs: deltaRefs(w.Refs),
		}
	}
	return result
}

func relations(st *stringTable, rels []osm.Relation) []*osmpbf.Relation {
	result := make([]*osmpbf.Relation, len(rels))
	for i, r := range rels {
		keys, vals := st.tags(r.Tags)
		rel := &osmpbf.Relation{
			Id:   proto.Int64(r.ID),
			Keys: keys,
			Vals: vals,
		}
		ids := make([]int64, len(r.Members))
		for j, m := range r.Members {
			ids[j] = m.ID
			rel.RolesSid = append(rel.RolesSid, int32(st.add(m.Role)))
			rel.Types = append(rel.Types, osmpbf.Relation_MemberType(m.Type))
		}
		rel.Memids = deltaRefs(ids)
		result[i] = rel
	}
	return result
}
