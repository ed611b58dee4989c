package wwt_test

import (
	"maps"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/astrovis/go-skytiles/tile"
	"github.com/astrovis/go-skytiles/wwt"
)

func TestWriterReader(t *testing.T) {
	rootDir := t.TempDir()
	pattern := wwt.Pattern(rootDir, "png")

	tiles := map[tile.Pos][]byte{
		{N: 0, X: 0, Y: 0}: []byte("tile000"),
		{N: 1, X: 1, Y: 1}: []byte("tile111"),
		{N: 6, X: 0, Y: 0}: []byte("tile600"),
		{N: 6, X: 6, Y: 6}: []byte("tile666"),
		{N: 6, X: 6, Y: 2}: []byte("tile662"),
	}

	writer, err := wwt.NewWriter(pattern)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}

	for pos, tileData := range tiles {
		if err := writer.WriteTile(pos, tileData); err != nil {
			t.Errorf("WriteTile(%v) failed: %v", pos, err)
		}
	}

	if err := writer.Finalize(); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	reader, err := wwt.NewReader(pattern)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}

	if got, want := maps.Collect(tile.IterTiles(reader)), tiles; !cmp.Equal(got, want) {
		t.Errorf("VisitTiles data mismatch")
	}

	for pos, tileData := range tiles {
		data, err := reader.ReadTile(pos)
		if err != nil {
			t.Errorf("ReadTile(%v) failed: %v", pos, err)
			continue
		}
		if !cmp.Equal(data, tileData) {
			t.Errorf("ReadTile data mismatch for %v", pos)
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

func TestPatternLayout(t *testing.T) {
	pattern := wwt.Pattern("/data/sky", "png")
	want := filepath.Join("/data/sky", "{n}", "{y}", "{y}_{x}.png")
	if pattern != want {
		t.Errorf("Pattern = %q, want %q", pattern, want)
	}

	root := t.TempDir()
	writer, err := wwt.NewWriter(wwt.Pattern(root, "png"))
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	if err := writer.WriteTile(tile.Pos{N: 3, X: 5, Y: 2}, []byte("x")); err != nil {
		t.Fatalf("WriteTile failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "3", "2", "2_5.png")); err != nil {
		t.Errorf("tile file not at WWT path: %v", err)
	}
}

func TestInvalidPattern(t *testing.T) {
	for _, pattern := range []string{"", "/tiles/{n}/{x}.png", "/tiles/{x}_{y}.png"} {
		if _, err := wwt.NewWriter(pattern); err == nil {
			t.Errorf("NewWriter(%q) accepted invalid pattern", pattern)
		}
		if _, err := wwt.NewReader(pattern); err == nil {
			t.Errorf("NewReader(%q) accepted invalid pattern", pattern)
		}
	}
}

func TestVisitSkipsForeignFiles(t *testing.T) {
	root := t.TempDir()
	pattern := wwt.Pattern(root, "png")

	writer, err := wwt.NewWriter(pattern)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	if err := writer.WriteTile(tile.Pos{N: 1, X: 0, Y: 1}, []byte("t")); err != nil {
		t.Fatalf("WriteTile failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "index.html"), []byte("<html>"), 0644); err != nil {
		t.Fatal(err)
	}
	// Mismatched directory and file names do not parse as a tile.
	if err := os.WriteFile(filepath.Join(root, "1", "1", "2_0.png"), []byte("bad"), 0644); err != nil {
		t.Fatal(err)
	}

	reader, err := wwt.NewReader(pattern)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	var visited []tile.Pos
	err = reader.VisitTiles(func(pos tile.Pos, _ []byte) error {
		visited = append(visited, pos)
		return nil
	})
	if err != nil {
		t.Fatalf("VisitTiles failed: %v", err)
	}
	want := []tile.Pos{{N: 1, X: 0, Y: 1}}
	if diff := cmp.Diff(want, visited); diff != "" {
		t.Errorf("visited tiles mismatch (-want +got):\n%s", diff)
	}
}
