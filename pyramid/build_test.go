package pyramid

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astrovis/go-skytiles/pixel"
	"github.com/astrovis/go-skytiles/sampler"
	"github.com/astrovis/go-skytiles/tile"
	"github.com/astrovis/go-skytiles/toast"
)

// memStore keeps encoded tiles in memory for inspection.
type memStore struct {
	mu    sync.Mutex
	tiles map[tile.Pos][]byte
}

func newMemStore() *memStore {
	return &memStore{tiles: make(map[tile.Pos][]byte)}
}

func (s *memStore) WriteTile(pos tile.Pos, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tiles[pos] = data
	return nil
}

func (s *memStore) Finalize() error { return nil }

func (s *memStore) decode(t *testing.T, pos tile.Pos) *pixel.Buffer {
	t.Helper()
	s.mu.Lock()
	data, ok := s.tiles[pos]
	s.mu.Unlock()
	require.True(t, ok, "tile %v not stored", pos)
	buf, err := pixel.Decode(data)
	require.NoError(t, err)
	return buf
}

// valueSampler fills every pixel of a leaf with a per-position value.
type valueSampler struct {
	value func(tile.Pos) float32
	fail  map[tile.Pos]bool
}

func (s *valueSampler) Format() pixel.Format { return pixel.FormatF32 }

func (s *valueSampler) Sample(_ context.Context, t toast.Tile, size int) (*pixel.Buffer, error) {
	if s.fail[t.Pos] {
		return nil, sampler.ErrSourceUnavailable
	}
	buf := pixel.NewBuffer(pixel.FormatF32, size)
	for y := range size {
		for x := range size {
			buf.SetF32(x, y, s.value(t.Pos))
		}
	}
	return buf, nil
}

func constSampler(v float32) *valueSampler {
	return &valueSampler{value: func(tile.Pos) float32 { return v }}
}

func TestBuildTwoLevels(t *testing.T) {
	// Uniform level-1 leaves 1, 3, 5, 7 must merge into a root whose
	// quadrants carry the same values.
	leaf := map[tile.Pos]float32{
		{N: 1, X: 0, Y: 0}: 1,
		{N: 1, X: 1, Y: 0}: 3,
		{N: 1, X: 0, Y: 1}: 5,
		{N: 1, X: 1, Y: 1}: 7,
	}
	s := &valueSampler{value: func(p tile.Pos) float32 { return leaf[p] }}
	store := newMemStore()

	b, err := NewBuilder(Config{Depth: 1, TileSize: 2, Workers: 2})
	require.NoError(t, err)

	report, err := b.Build(context.Background(), s, store)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), report.Produced)
	assert.Empty(t, report.Failed)

	root := store.decode(t, tile.Pos{})
	want := [][]float32{{1, 3}, {5, 7}}
	for y := range 2 {
		for x := range 2 {
			require.True(t, root.Valid(x, y))
			assert.Equal(t, want[y][x], root.F32At(x, y), "root pixel (%d, %d)", x, y)
		}
	}
}

func TestBuildCompleteness(t *testing.T) {
	const depth = 3
	store := newMemStore()

	b, err := NewBuilder(Config{Depth: depth, TileSize: 2, Workers: 4})
	require.NoError(t, err)

	report, err := b.Build(context.Background(), constSampler(2), store)
	require.NoError(t, err)

	assert.Equal(t, tile.DepthTiles(depth), report.Produced)
	assert.Len(t, store.tiles, int(tile.DepthTiles(depth)))
	for n := range uint32(depth + 1) {
		for pos := range tile.LevelPositions(n) {
			_, ok := store.tiles[pos]
			assert.True(t, ok, "missing tile %v", pos)
		}
	}

	// Merging uniform data keeps it uniform all the way up.
	root := store.decode(t, tile.Pos{})
	assert.Equal(t, float32(2), root.F32At(1, 1))
}

// blankSampler returns fully invalid buffers, like a footprint with no
// source coverage at all.
type blankSampler struct{}

func (blankSampler) Format() pixel.Format { return pixel.FormatF32 }

func (blankSampler) Sample(_ context.Context, _ toast.Tile, size int) (*pixel.Buffer, error) {
	return pixel.NewBuffer(pixel.FormatF32, size), nil
}

func TestBuildNoCoverageIsNotFailure(t *testing.T) {
	store := newMemStore()
	b, err := NewBuilder(Config{Depth: 1, TileSize: 2, Workers: 2})
	require.NoError(t, err)

	report, err := b.Build(context.Background(), blankSampler{}, store)
	require.NoError(t, err)

	// Every tile exists, fully invalid.
	assert.Equal(t, uint64(5), report.Produced)
	assert.Empty(t, report.Failed)
	root := store.decode(t, tile.Pos{})
	assert.False(t, root.AnyValid())
}

func TestBuildBottomOnly(t *testing.T) {
	store := newMemStore()
	b, err := NewBuilder(Config{Depth: 2, TileSize: 2, Workers: 2, BottomOnly: true})
	require.NoError(t, err)

	report, err := b.Build(context.Background(), constSampler(1), store)
	require.NoError(t, err)

	assert.Equal(t, uint64(16), report.Produced)
	assert.Len(t, store.tiles, 16)
	for pos := range store.tiles {
		assert.Equal(t, uint32(2), pos.N)
	}
}

func TestBuildTopLevel(t *testing.T) {
	store := newMemStore()
	b, err := NewBuilder(Config{Depth: 2, TileSize: 2, Workers: 2, TopLevel: 1})
	require.NoError(t, err)

	report, err := b.Build(context.Background(), constSampler(1), store)
	require.NoError(t, err)

	assert.Equal(t, uint64(20), report.Produced)
	_, hasRoot := store.tiles[tile.Pos{}]
	assert.False(t, hasRoot, "root produced despite top level 1")
}

func TestBuildFailurePropagation(t *testing.T) {
	bad := tile.Pos{N: 2, X: 1, Y: 1}
	s := constSampler(1)
	s.fail = map[tile.Pos]bool{bad: true}
	store := newMemStore()

	b, err := NewBuilder(Config{Depth: 2, TileSize: 2, Workers: 2})
	require.NoError(t, err)

	report, err := b.Build(context.Background(), s, store)
	require.Error(t, err)

	// The failed leaf and its whole ancestor chain are reported; the
	// other three level-1 subtrees still complete.
	want := []tile.Pos{
		{N: 0, X: 0, Y: 0},
		{N: 1, X: 0, Y: 0},
		bad,
	}
	assert.Equal(t, want, report.Failed)
	assert.Equal(t, uint64(18), report.Produced)

	for _, pos := range []tile.Pos{
		{N: 1, X: 1, Y: 0},
		{N: 1, X: 0, Y: 1},
		{N: 1, X: 1, Y: 1},
	} {
		_, ok := store.tiles[pos]
		assert.True(t, ok, "sibling subtree tile %v missing", pos)
	}
}

func TestBuildFilterPrune(t *testing.T) {
	// Prune everything under level-1 position (1, 1). The rest of the
	// pyramid, root included, must still be produced without failures.
	pruned := tile.Pos{N: 1, X: 1, Y: 1}
	store := newMemStore()

	b, err := NewBuilder(Config{
		Depth:    2,
		TileSize: 2,
		Workers:  2,
		Filter:   func(t toast.Tile) bool { return !t.Pos.IsSub(pruned) },
	})
	require.NoError(t, err)

	report, err := b.Build(context.Background(), constSampler(4), store)
	require.NoError(t, err)
	assert.Empty(t, report.Failed)
	assert.Equal(t, uint64(16), report.Produced)

	root := store.decode(t, tile.Pos{})
	assert.True(t, root.Valid(0, 0))
	assert.False(t, root.Valid(1, 1), "pruned quadrant valid in root")
}

func TestBuildPeakBuffers(t *testing.T) {
	cfg := Config{Depth: 3, TileSize: 2, Workers: 2}
	store := newMemStore()

	b, err := NewBuilder(cfg)
	require.NoError(t, err)

	report, err := b.Build(context.Background(), constSampler(1), store)
	require.NoError(t, err)

	// Memory stays proportional to depth and worker count, never to the
	// tile count of the pyramid.
	assert.Greater(t, report.PeakBuffers, 0)
	assert.LessOrEqual(t, report.PeakBuffers, 4*(int(cfg.Depth)+cfg.Workers))
}

func TestBuildCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b, err := NewBuilder(Config{Depth: 2, TileSize: 2, Workers: 2})
	require.NoError(t, err)

	_, err = b.Build(ctx, constSampler(1), newMemStore())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewBuilderConfig(t *testing.T) {
	bad := []Config{
		{Depth: 0, TileSize: 2},
		{Depth: 25, TileSize: 2},
		{Depth: 2, TileSize: 3},
		{Depth: 2, TileSize: 1},
		{Depth: 2, TileSize: 2, TopLevel: 3},
		{Depth: 2, TileSize: 2, Workers: -1},
	}
	for _, cfg := range bad {
		_, err := NewBuilder(cfg)
		assert.ErrorIs(t, err, ErrConfig, "config %+v", cfg)
	}

	b, err := NewBuilder(Config{Depth: 2, TileSize: 2})
	require.NoError(t, err)
	assert.Greater(t, b.config.Workers, 0, "default worker count")
}

func TestProgressCallback(t *testing.T) {
	var mu sync.Mutex
	var last, total uint64

	b, err := NewBuilder(Config{Depth: 1, TileSize: 2, Workers: 1},
		WithProgress(func(p, t uint64) {
			mu.Lock()
			defer mu.Unlock()
			if p > last {
				last = p
			}
			total = t
		}))
	require.NoError(t, err)

	_, err = b.Build(context.Background(), constSampler(1), newMemStore())
	require.NoError(t, err)

	assert.Equal(t, uint64(5), last)
	assert.Equal(t, uint64(5), total)
}

func TestReportErrorMentionsCount(t *testing.T) {
	s := constSampler(1)
	s.fail = map[tile.Pos]bool{{N: 1, X: 0, Y: 0}: true}

	b, err := NewBuilder(Config{Depth: 1, TileSize: 2, Workers: 1})
	require.NoError(t, err)

	report, err := b.Build(context.Background(), s, newMemStore())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrPersistence))
	assert.Len(t, report.Failed, 2)
}
