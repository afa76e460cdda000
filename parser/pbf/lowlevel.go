package pbf

import (
	"bytes"
	"compress/zlib"
	structs "encoding/binary"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gogo/protobuf/proto"
	"github.com/pkg/errors"

	"github.com/omniscale/osmfilter/parser/pbf/internal/osmpbf"
)

const (
	maxBlobHeaderSize = 64 * 1024
	maxBlobSize       = 32 * 1024 * 1024
)

var supportedFeatures = map[string]bool{"OsmSchema-V0.6": true, "DenseNodes": true}

// Block is the position of a single blob inside a PBF file.
// Offset points to the start of the blob data, Size is the
// length of the blob data.
type Block struct {
	Index  int
	Offset int64
	Size   int32
	Type   string
}

// BlockError is returned for all errors that are caused by a single block.
type BlockError struct {
	Index  int
	Offset int64
	Err    error
}

func (e *BlockError) Error() string {
	return fmt.Sprintf("block %d at offset %d: %v", e.Index, e.Offset, e.Err)
}

func (e *BlockError) Cause() error  { return e.Err }
func (e *BlockError) Unwrap() error { return e.Err }

func blockError(b Block, err error) error {
	return &BlockError{Index: b.Index, Offset: b.Offset, Err: err}
}

// Blocks lazily indexes the blocks of a PBF file by reading the
// BlobHeaders. Blob data is skipped.
type Blocks struct {
	r      io.ReaderAt
	offset int64
	index  int
}

// Next returns the position of the next block or io.EOF after the last
// block.
func (br *Blocks) Next() (Block, error) {
	headerStart := br.offset
	var sizeBuf [4]byte
	n, err := br.r.ReadAt(sizeBuf[:], br.offset)
	if n == 0 && err == io.EOF {
		return Block{}, io.EOF
	}
	if n != 4 {
		if err == nil || err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return Block{}, &BlockError{Index: br.index, Offset: headerStart, Err: errors.Wrap(err, "reading blob header size")}
	}
	size := int32(structs.BigEndian.Uint32(sizeBuf[:]))
	if size <= 0 || size > maxBlobHeaderSize {
		return Block{}, &BlockError{Index: br.index, Offset: headerStart, Err: errors.Errorf("invalid blob header size %d", size)}
	}

	data := make([]byte, size)
	if _, err := br.r.ReadAt(data, br.offset+4); err != nil {
		return Block{}, &BlockError{Index: br.index, Offset: headerStart, Err: errors.Wrap(err, "reading blob header")}
	}
	header := &osmpbf.BlobHeader{}
	if err := proto.Unmarshal(data, header); err != nil {
		return Block{}, &BlockError{Index: br.index, Offset: headerStart, Err: errors.Wrap(err, "unmarshaling blob header")}
	}
	datasize := header.GetDatasize()
	if datasize < 0 || datasize > maxBlobSize {
		return Block{}, &BlockError{Index: br.index, Offset: headerStart, Err: errors.Errorf("invalid blob size %d", datasize)}
	}

	b := Block{
		Index:  br.index,
		Offset: br.offset + 4 + int64(size),
		Size:   datasize,
		Type:   header.GetType(),
	}
	br.offset = b.Offset + int64(datasize)
	br.index += 1
	return b, nil
}

// readBlobData reads the blob of block b and returns the uncompressed
// content.
func readBlobData(r io.ReaderAt, b Block) ([]byte, error) {
	data := make([]byte, b.Size)
	n, err := r.ReadAt(data, b.Offset)
	if n != int(b.Size) {
		if err == nil || err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, errors.Wrapf(err, "reading blob, only got %d bytes instead of %d", n, b.Size)
	}

	blob := &osmpbf.Blob{}
	if err := proto.Unmarshal(data, blob); err != nil {
		return nil, errors.Wrap(err, "unmarshaling blob")
	}

	// pbf contains (uncompressed) raw or zlibdata
	switch blob.Compression() {
	case "raw":
		return blob.GetRaw(), nil
	case "zlib":
		zr, err := zlib.NewReader(bytes.NewReader(blob.GetZlibData()))
		if err != nil {
			return nil, errors.Wrap(err, "start uncompressing zlib data")
		}
		defer zr.Close()
		if size := blob.GetRawSize(); size <= 0 || size > maxBlobSize {
			return nil, errors.Errorf("invalid raw blob size %d", size)
		}
		raw := make([]byte, blob.GetRawSize())
		if _, err := io.ReadFull(zr, raw); err != nil {
			return nil, errors.Wrap(err, "uncompressing zlib data")
		}
		return raw, nil
	default:
		return nil, errors.Errorf("unsupported blob compression %s", blob.Compression())
	}
}

func readPrimitiveBlock(r io.ReaderAt, b Block) (*osmpbf.PrimitiveBlock, error) {
	raw, err := readBlobData(r, b)
	if err != nil {
		return nil, err
	}
	block := &osmpbf.PrimitiveBlock{}
	if err := proto.Unmarshal(raw, block); err != nil {
		return nil, errors.Wrap(err, "unmarshaling primitive block")
	}
	return block, nil
}

// Bbox of the data in the PBF file, in WGS84.
type Bbox struct {
	MinLon, MinLat, MaxLon, MaxLat float64
}

type Header struct {
	Time     time.Time
	Sequence int64
	Filename string
	Size     int64

	WritingProgram   string
	Bbox             *Bbox
	RequiredFeatures []string
	OptionalFeatures []string
}

func readAndParseHeaderBlock(r io.ReaderAt, b Block) (*Header, error) {
	raw, err := readBlobData(r, b)
	if err != nil {
		return nil, err
	}

	header := &osmpbf.HeaderBlock{}
	if err := proto.Unmarshal(raw, header); err != nil {
		return nil, errors.Wrap(err, "unmarshaling header block")
	}

	for _, feature := range header.RequiredFeatures {
		if !supportedFeatures[feature] {
			return nil, errors.Errorf("cannot parse file, feature %s not supported", feature)
		}
	}

	result := &Header{}
	if timestamp := header.GetOsmosisReplicationTimestamp(); timestamp != 0 {
		// keep result.Time zero if timestamp is 0
		result.Time = time.Unix(timestamp, 0)
	}
	result.Sequence = header.GetOsmosisReplicationSequenceNumber()
	result.WritingProgram = header.GetWritingprogram()
	result.RequiredFeatures = header.RequiredFeatures
	result.OptionalFeatures = header.OptionalFeatures
	if bbox := header.Bbox; bbox != nil {
		result.Bbox = &Bbox{
			MinLon: coordScale * float64(bbox.GetLeft()),
			MinLat: coordScale * float64(bbox.GetBottom()),
			MaxLon: coordScale * float64(bbox.GetRight()),
			MaxLat: coordScale * float64(bbox.GetTop()),
		}
	}
	return result, nil
}

// Pbf is an opened PBF file with a parsed header.
type Pbf struct {
	file       *os.File
	Filename   string
	header     *Header
	dataOffset int64
}

// Open opens filename and parses the OSMHeader block.
func Open(filename string) (*Pbf, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", filename)
	}
	f := &Pbf{Filename: filename, file: file}
	if err := f.parseHeader(); err != nil {
		file.Close()
		return nil, errors.Wrapf(err, "parsing header of %s", filename)
	}
	return f, nil
}

func (pbf *Pbf) Close() error {
	return pbf.file.Close()
}

func (pbf *Pbf) Header() *Header {
	return pbf.header
}

func (pbf *Pbf) parseHeader() error {
	br := &Blocks{r: pbf.file}
	b, err := br.Next()
	if err == io.EOF {
		return errors.New("empty file")
	}
	if err != nil {
		return err
	}
	if b.Type != "OSMHeader" {
		return blockError(b, errors.Errorf("invalid block type, expected OSMHeader, got %s", b.Type))
	}
	header, err := readAndParseHeaderBlock(pbf.file, b)
	if err != nil {
		return blockError(b, err)
	}
	header.Filename = pbf.Filename
	if fi, err := pbf.file.Stat(); err == nil {
		header.Size = fi.Size()
	}
	pbf.header = header
	pbf.dataOffset = br.offset
	return nil
}

// BlockPositions returns an index of all data blocks, starting after the
// header block.
func (pbf *Pbf) BlockPositions() *Blocks {
	return &Blocks{r: pbf.file, offset: pbf.dataOffset, index: 1}
}
