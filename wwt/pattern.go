// Package wwt provides API for reading and writing tiles as individual
// files in the WorldWide Telescope directory layout, where a tile at
// level n lives at "{n}/{y}/{y}_{x}.ext".
package wwt

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/astrovis/go-skytiles/tile"
)

var ErrInvalidPattern = errors.New("skytiles: invalid file pattern")

// Pattern returns the standard WWT file pattern rooted at dir, with
// the given extension ("png" for image pyramids, "skt" for data ones).
func Pattern(dir, ext string) string {
	return filepath.Join(dir, "{n}", "{y}", "{y}_{x}."+ext)
}

func validatePattern(pattern string) error {
	for _, p := range []string{"{n}", "{x}", "{y}"} {
		if !strings.Contains(pattern, p) {
			return fmt.Errorf("%w: placeholder %v not found", ErrInvalidPattern, p)
		}
	}
	return nil
}

func formatPattern(pattern string, pos tile.Pos) string {
	result := pattern
	result = strings.ReplaceAll(result, "{n}", fmt.Sprintf("%d", pos.N))
	result = strings.ReplaceAll(result, "{x}", fmt.Sprintf("%d", pos.X))
	result = strings.ReplaceAll(result, "{y}", fmt.Sprintf("%d", pos.Y))
	return result
}

// patternRegexp turns the pattern into a matcher with one named group
// per placeholder. Repeated placeholders ({y} appears twice in the WWT
// layout) match as plain digit runs; callers cross-check the parsed
// position by re-formatting the pattern.
func patternRegexp(pattern string) string {
	result := pattern
	for _, p := range []struct{ from, to string }{
		{"{n}", `(?P<n>\d+)`},
		{"{x}", `(?P<x>\d+)`},
		{"{y}", `(?P<y>\d+)`},
	} {
		result = strings.Replace(result, p.from, p.to, 1)
		result = strings.ReplaceAll(result, p.from, `\d+`)
	}
	return "^" + result + "$"
}
