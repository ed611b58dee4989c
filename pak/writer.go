package pak

import (
	"bufio"
	"cmp"
	"crypto/md5"
	"io"
	"log/slog"
	"os"
	"slices"
	"sync"

	"github.com/astrovis/go-skytiles/pak/spec"
	"github.com/astrovis/go-skytiles/tile"
)

type Writer interface {
	io.Closer

	WriteTile(pos tile.Pos, tileData []byte) error
	Finalize() error
}

type WriterParams struct {
	Metadata       []byte
	HeaderMetadata HeaderMetadata
	Logger         *slog.Logger
}

type writer struct {
	logger *slog.Logger
	file   *os.File
	header spec.Header

	mu         sync.Mutex
	tileWriter *bufio.Writer
	tileOffset uint64

	entries   []spec.Entry
	locations map[[16]byte]uint32 // hash -> entry index

	metadata []byte
}

func NewWriter(filePath string) (Writer, error) {
	return NewWriterParams(filePath, WriterParams{})
}

func NewWriterParams(filePath string, params WriterParams) (w Writer, err error) {
	logger := params.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			file.Close()
		}
	}()

	_, err = file.Seek(spec.HeaderLength, io.SeekStart)
	if err != nil {
		return nil, err
	}

	header := spec.Header{
		HeaderMagic:         spec.HeaderMagicV1,
		InternalCompression: spec.CompressionGzip,
		TileDataOffset:      spec.HeaderLength,
	}
	params.HeaderMetadata.CopyToHeader(&header)

	return &writer{
		logger:     logger,
		file:       file,
		header:     header,
		tileWriter: bufio.NewWriter(file),
		tileOffset: 0,
		locations:  make(map[[16]byte]uint32),
		metadata:   params.Metadata,
	}, nil
}

func (w *writer) WriteTile(pos tile.Pos, tileData []byte) error {
	if len(tileData) == 0 {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	digest := md5.Sum(tileData)
	entryIdx, exists := w.locations[digest]

	if exists {
		entry := spec.Entry{
			TileCode:  spec.EncodeTileCode(pos),
			Offset:    w.entries[entryIdx].Offset,
			Length:    w.entries[entryIdx].Length,
			RunLength: 1,
		}
		w.entries = append(w.entries, entry)
		return nil
	}

	entry := spec.Entry{
		TileCode:  spec.EncodeTileCode(pos),
		Offset:    w.tileOffset,
		Length:    uint32(len(tileData)),
		RunLength: 1,
	}

	_, err := w.tileWriter.Write(tileData)
	if err != nil {
		return err
	}

	w.tileOffset += uint64(len(tileData))

	w.locations[digest] = uint32(len(w.entries))
	w.entries = append(w.entries, entry)

	return nil
}

func (w *writer) Finalize() error {
	if w.tileWriter == nil {
		panic("skytiles: finalize called twice")
	}

	w.logger.Debug("skytiles: flush tile data")
	err := w.tileWriter.Flush()
	if err != nil {
		return err
	}
	w.header.TileDataLength = w.tileOffset
	w.header.TileContentsCount = uint64(len(w.locations))
	w.tileWriter = nil

	w.logger.Debug("skytiles: sort directory")
	slices.SortFunc(w.entries, func(a, b spec.Entry) int {
		return cmp.Compare(a.TileCode, b.TileCode)
	})
	w.noteLevels()

	w.logger.Debug("skytiles: compact directory")
	w.header.TileEntriesCount = uint64(len(w.entries))
	w.entries = spec.CompactEntries(w.entries)

	w.logger.Debug("skytiles: write metadata")
	offset := w.header.TileDataOffset + w.header.TileDataLength
	if len(w.metadata) > 0 {
		if _, err := w.file.Write(w.metadata); err != nil {
			return err
		}
		w.header.MetadataOffset = offset
		w.header.MetadataLength = uint64(len(w.metadata))
		offset += w.header.MetadataLength
	}

	w.logger.Debug("skytiles: write directory")
	dirData := spec.SerializeDirectory(w.entries)
	dirCompressed, err := spec.Compress(dirData, w.header.InternalCompression)
	if err != nil {
		return err
	}
	if _, err := w.file.Write(dirCompressed); err != nil {
		return err
	}
	w.header.DirectoryOffset = offset
	w.header.DirectoryLength = uint64(len(dirCompressed))

	w.logger.Debug("skytiles: write header")
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, err := w.file.Write(spec.SerializeHeader(&w.header)); err != nil {
		return err
	}

	err = w.file.Close()
	if err != nil {
		return err
	}
	w.file = nil

	w.logger.Debug("skytiles: done!")
	return nil
}

// noteLevels records the level range actually written. Entries must be
// sorted, so the extremes are the first and last codes.
func (w *writer) noteLevels() {
	if len(w.entries) == 0 {
		return
	}
	w.header.MinLevel = uint8(spec.DecodeTileCode(w.entries[0].TileCode).N)
	w.header.MaxLevel = uint8(spec.DecodeTileCode(w.entries[len(w.entries)-1].TileCode).N)
}

func (w *writer) Close() error {
	if w.file == nil {
		return nil
	}
	return w.file.Close()
}
