package wwt

import (
	"os"
	"path/filepath"

	"github.com/astrovis/go-skytiles/tile"
)

// Writer implements tile.Writer interface for the WWT directory layout.
type Writer struct {
	filePattern string
}

// NewWriter creates a new Writer for the given file pattern
// (e.g. "/home/user/tiles/{n}/{y}/{y}_{x}.png").
func NewWriter(filePattern string) (*Writer, error) {
	if err := validatePattern(filePattern); err != nil {
		return nil, err
	}
	return &Writer{filePattern}, nil
}

func (w *Writer) WriteTile(pos tile.Pos, tileData []byte) error {
	filePath := formatPattern(w.filePattern, pos)

	dirPath := filepath.Dir(filePath)
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return err
	}

	return os.WriteFile(filePath, tileData, 0644)
}

func (w *Writer) Finalize() error {
	return nil
}
