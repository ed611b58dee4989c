package pak_test

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/astrovis/go-skytiles/pak"
	"github.com/astrovis/go-skytiles/pak/spec"
	"github.com/astrovis/go-skytiles/tile"
)

func TestWriterReader(t *testing.T) {
	tiles := make(map[tile.Pos][]byte)
	for pos := range tile.Positions(4) {
		tiles[pos] = fmt.Appendf(nil, "%v/%v/%v", pos.N, pos.X, pos.Y)
	}

	filePath := filepath.Join(t.TempDir(), "sky.pak")
	writerMetadata := []byte(`{"foo":"bar"}`)

	writer, err := pak.NewWriterParams(filePath, pak.WriterParams{
		Metadata: writerMetadata,
		HeaderMetadata: pak.HeaderMetadata{
			Format:   spec.PixelFormatRGBA8,
			TileSize: 256,
		},
	})
	if err != nil {
		t.Fatalf("NewWriterParams failed: %v", err)
	}
	defer writer.Close()

	for pos, tileData := range tiles {
		if err := writer.WriteTile(pos, tileData); err != nil {
			t.Fatalf("WriteTile failed: %v", err)
		}
	}

	if err := writer.Finalize(); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	reader, err := pak.NewFileReader(filePath)
	if err != nil {
		t.Fatalf("NewFileReader failed: %v", err)
	}
	defer reader.Close()

	metadata := reader.HeaderMetadata()
	if metadata.Format != spec.PixelFormatRGBA8 || metadata.TileSize != 256 {
		t.Errorf("HeaderMetadata = %+v", metadata)
	}
	if metadata.MinLevel != 0 || metadata.MaxLevel != 4 {
		t.Errorf("level range = [%d, %d], want [0, 4]", metadata.MinLevel, metadata.MaxLevel)
	}

	readerMetadata, err := reader.ReadMetadata()
	if err != nil {
		t.Fatalf("ReadMetadata failed: %v", err)
	}
	if got, want := readerMetadata, writerMetadata; !cmp.Equal(got, want) {
		t.Errorf("ReadMetadata data mismatch")
	}

	if got, want := maps.Collect(reader.Tiles()), tiles; !cmp.Equal(got, want) {
		t.Errorf("Tiles data mismatch")
	}

	for pos, want := range tiles {
		tileData, err := reader.ReadTile(pos)
		if err != nil {
			t.Fatalf("ReadTile(%v) failed: %v", pos, err)
		}
		if got := tileData; !cmp.Equal(got, want) {
			t.Fatalf("ReadTile(%v) = %v, want = %v", pos, got, want)
		}
	}

	tileData, err := reader.ReadTile(tile.Pos{N: 9, X: 9, Y: 9})
	if err != nil {
		t.Errorf("ReadTile(missing tile) failed: %v", err)
	}
	if len(tileData) != 0 {
		t.Errorf("ReadTile(missing tile) expected empty tile, got: %v bytes", len(tileData))
	}
}

func TestWriterDeduplicatesContent(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "dedup.pak")

	writer, err := pak.NewWriter(filePath)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	defer writer.Close()

	shared := []byte("identical tile body")
	positions := []tile.Pos{
		{N: 2, X: 0, Y: 0},
		{N: 2, X: 1, Y: 0},
		{N: 2, X: 3, Y: 3},
	}
	for _, pos := range positions {
		if err := writer.WriteTile(pos, shared); err != nil {
			t.Fatalf("WriteTile failed: %v", err)
		}
	}
	if err := writer.Finalize(); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	reader, err := pak.NewFileReader(filePath)
	if err != nil {
		t.Fatalf("NewFileReader failed: %v", err)
	}
	defer reader.Close()

	locations := make(map[pak.Location]bool)
	for _, pos := range positions {
		location, err := reader.ReadLocation(pos)
		if err != nil {
			t.Fatalf("ReadLocation failed: %v", err)
		}
		if location.Length == 0 {
			t.Fatalf("ReadLocation(%v) missing", pos)
		}
		locations[location] = true
	}
	if len(locations) != 1 {
		t.Errorf("shared content stored at %d locations, want 1", len(locations))
	}
}

func TestReaderRejectsGarbage(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "garbage.pak")
	if err := os.WriteFile(filePath, []byte("definitely not an archive"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := pak.NewFileReader(filePath); err == nil {
		t.Error("NewFileReader accepted garbage")
	}
}
