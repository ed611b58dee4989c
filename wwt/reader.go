package wwt

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/astrovis/go-skytiles/tile"
)

// Reader implements tile.Reader interface for the WWT directory layout.
type Reader struct {
	filePattern string
	rootDir     string
	pathRegexp  *regexp.Regexp
}

// NewReader creates a new Reader for the given file pattern
// (e.g. "/home/user/tiles/{n}/{y}/{y}_{x}.png").
func NewReader(filePattern string) (*Reader, error) {
	if err := validatePattern(filePattern); err != nil {
		return nil, err
	}

	pathRegex, err := regexp.Compile(patternRegexp(filePattern))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPattern, err)
	}

	path0 := formatPattern(filePattern, tile.Pos{N: 0, X: 0, Y: 0})
	path1 := formatPattern(filePattern, tile.Pos{N: 1, X: 1, Y: 1})
	for path0 != path1 {
		path0 = filepath.Dir(path0)
		path1 = filepath.Dir(path1)
	}
	rootDir := path0

	return &Reader{filePattern, rootDir, pathRegex}, nil
}

func (r *Reader) ReadTile(pos tile.Pos) ([]byte, error) {
	filePath := formatPattern(r.filePattern, pos)
	tileData, err := os.ReadFile(filePath)
	if os.IsNotExist(err) {
		return make([]byte, 0), nil
	}
	if err != nil {
		return nil, err
	}
	return tileData, nil
}

func (r *Reader) VisitTiles(visitor func(tile.Pos, []byte) error) error {
	return filepath.WalkDir(r.rootDir, func(filePath string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		matches := r.pathRegexp.FindStringSubmatch(filePath)
		if matches == nil {
			return nil
		}

		n, _ := strconv.Atoi(matches[r.pathRegexp.SubexpIndex("n")])
		x, _ := strconv.Atoi(matches[r.pathRegexp.SubexpIndex("x")])
		y, _ := strconv.Atoi(matches[r.pathRegexp.SubexpIndex("y")])
		pos := tile.Pos{N: uint32(n), X: uint32(x), Y: uint32(y)}

		// Repeated placeholders match loosely, so confirm the parse by
		// formatting the position back into a path.
		if formatPattern(r.filePattern, pos) != filePath {
			return nil
		}

		tileData, err := os.ReadFile(filePath)
		if err != nil {
			return err
		}

		return visitor(pos, tileData)
	})
}
