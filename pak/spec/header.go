package spec

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

type Compression uint8

const (
	CompressionUnknown Compression = iota
	CompressionNone
	CompressionGzip
)

// PixelFormat mirrors the tile codec formats so readers can interpret
// the stored tiles without decoding one.
type PixelFormat uint8

const (
	PixelFormatUnknown PixelFormat = iota
	PixelFormatRGBA8
	PixelFormatF32
)

type Header struct {
	HeaderMagic       uint64
	DirectoryOffset   uint64
	DirectoryLength   uint64
	MetadataOffset    uint64
	MetadataLength    uint64
	TileDataOffset    uint64
	TileDataLength    uint64
	TileEntriesCount  uint64
	TileContentsCount uint64

	InternalCompression Compression
	Format              PixelFormat
	MinLevel            uint8
	MaxLevel            uint8
	TileSize            uint32
}

const (
	headerMagic     uint64 = 0x6B6150796B53 // "SkyPak"
	headerMagicMask uint64 = 1<<56 - 1
	HeaderMagicV1   uint64 = headerMagic | (0x01 << 56)

	HeaderLength = 80
)

var ErrInvalidHeader = errors.New("skytiles: invalid file header")
var ErrInvalidVersion = errors.New("skytiles: invalid version")

func SerializeHeader(header *Header) []byte {
	var buffer bytes.Buffer
	writer := bufio.NewWriter(&buffer)
	binary.Write(writer, binary.LittleEndian, header)
	writer.Flush()
	return buffer.Bytes()
}

func DeserializeHeader(buffer []byte) (*Header, error) {
	header := Header{}
	reader := bytes.NewReader(buffer)
	err := binary.Read(reader, binary.LittleEndian, &header)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidHeader, err)
	}
	if header.HeaderMagic&headerMagicMask != headerMagic {
		return nil, ErrInvalidHeader
	}
	if header.HeaderMagic != HeaderMagicV1 {
		return nil, ErrInvalidVersion
	}
	return &header, nil
}
