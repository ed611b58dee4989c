package pyramid

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/astrovis/go-skytiles/pixel"
	"github.com/astrovis/go-skytiles/sampler"
	"github.com/astrovis/go-skytiles/tile"
	"github.com/astrovis/go-skytiles/toast"
)

// Builder runs pyramid builds for one configuration.
type Builder struct {
	config   Config
	logger   *slog.Logger
	progress func(produced, total uint64)
}

type Option func(*Builder)

func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) { b.logger = logger }
}

// WithProgress registers a callback invoked after every persisted tile.
func WithProgress(fn func(produced, total uint64)) Option {
	return func(b *Builder) { b.progress = fn }
}

func NewBuilder(config Config, opts ...Option) (*Builder, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	b := &Builder{
		config: config,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Report summarizes a finished build.
type Report struct {
	// Produced counts tiles handed to the writer.
	Produced uint64

	// Failed lists positions that could not be produced, including the
	// ancestor chain above every failed leaf or write. The rest of the
	// pyramid is complete.
	Failed []tile.Pos

	// PeakBuffers is the largest number of child buffers resident in
	// pending merge groups at any point of the build.
	PeakBuffers int
}

// Build produces every tile of the configured pyramid: leaves from the
// sampler, every shallower level by merging, each tile written to the
// store as soon as it is complete. A sampler or store failure abandons
// the affected subtree's ancestor chain; independent subtrees still
// complete, and the returned error then reports the failed positions.
func (b *Builder) Build(ctx context.Context, s sampler.Sampler, store tile.Writer) (*Report, error) {
	run := &build{
		Builder: b,
		format:  s.Format(),
		sampler: s,
		store:   store,
		total:   b.config.TotalTiles(),
		groups:  make(map[tile.Pos]*mergeGroup),
	}

	leaves := make(chan toast.Tile, b.config.Workers*2)

	var workers sync.WaitGroup
	for range b.config.Workers {
		workers.Add(1)
		go func() {
			defer workers.Done()
			for t := range leaves {
				run.leaf(ctx, t)
			}
		}()
	}

	for _, t := range toast.Level1() {
		if !run.produce(ctx, t, leaves) {
			break
		}
	}
	close(leaves)
	workers.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &Report{
		Produced:    run.produced,
		Failed:      run.failed,
		PeakBuffers: run.peakBuffers,
	}
	slices.SortFunc(report.Failed, func(a, c tile.Pos) int {
		return cmp.Or(cmp.Compare(a.N, c.N), cmp.Compare(a.Y, c.Y), cmp.Compare(a.X, c.X))
	})

	if len(report.Failed) > 0 {
		return report, fmt.Errorf("skytiles: build finished with %d failed tiles", len(report.Failed))
	}
	return report, nil
}

// mergeGroup accumulates the four children of one pending parent.
type mergeGroup struct {
	children  [4]*pixel.Buffer
	remaining int
	anyFailed bool
	buffers   int
}

type build struct {
	*Builder
	format  pixel.Format
	sampler sampler.Sampler
	store   tile.Writer
	total   uint64

	mu          sync.Mutex
	groups      map[tile.Pos]*mergeGroup
	produced    uint64
	failed      []tile.Pos
	peakBuffers int
}

// produce walks the quadtree deepest-first, feeding leaf footprints to
// the worker pool. Subtrees rejected by the filter complete immediately
// as missing, so their parents do not wait for them.
func (r *build) produce(ctx context.Context, t toast.Tile, leaves chan<- toast.Tile) bool {
	if ctx.Err() != nil {
		return false
	}

	if r.config.Filter != nil && !r.config.Filter(t) {
		if !r.config.BottomOnly {
			r.complete(t.Pos, nil, false)
		}
		return true
	}

	if t.Pos.N == r.config.Depth {
		select {
		case leaves <- t:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for _, child := range toast.Children(t) {
		if !r.produce(ctx, child, leaves) {
			return false
		}
	}
	return true
}

// leaf samples one deepest-level tile, stores it and reports the result
// up the merge chain. Footprints with no source coverage still produce
// a fully invalid tile, so every position of the pyramid exists.
func (r *build) leaf(ctx context.Context, t toast.Tile) {
	buf, err := r.sampler.Sample(ctx, t, r.config.TileSize)
	if err == nil {
		err = r.storeTile(t.Pos, buf)
	}

	if err != nil {
		if ctx.Err() != nil {
			return
		}
		r.logger.Error("skytiles: leaf failed", "pos", t.Pos, "err", err)
		r.markFailed(t.Pos)
		buf = nil
	}

	if !r.config.BottomOnly {
		r.complete(t.Pos, buf, err != nil)
	}
}

// complete reports one finished child (a buffer, a missing subtree, or
// a failure) to its parent group, and performs the merge when the
// fourth sibling arrives. Merges cascade up the ancestor chain on the
// worker that completed each last sibling.
func (r *build) complete(pos tile.Pos, buf *pixel.Buffer, failed bool) {
	for pos.N > r.config.TopLevel {
		parent, ix, iy := pos.Parent()

		r.mu.Lock()
		g := r.groups[parent]
		if g == nil {
			g = &mergeGroup{remaining: 4}
			r.groups[parent] = g
		}
		g.children[iy*2+ix] = buf
		g.remaining--
		if buf != nil {
			g.buffers++
		}
		if failed {
			g.anyFailed = true
		}
		if g.remaining > 0 {
			r.notePeakLocked()
			r.mu.Unlock()
			return
		}
		delete(r.groups, parent)
		r.mu.Unlock()

		buf, failed = r.finishGroup(parent, g)
		pos = parent
	}
}

// mergeGroup turns a completed sibling group into the parent's own
// completion result.
func (r *build) finishGroup(parent tile.Pos, g *mergeGroup) (*pixel.Buffer, bool) {
	if g.anyFailed {
		r.markFailed(parent)
		return nil, true
	}
	if g.buffers == 0 {
		// Whole subtree pruned by the filter.
		return nil, false
	}

	merged := MergeChildren(g.children, r.format, r.config.TileSize)
	if err := r.storeTile(parent, merged); err != nil {
		r.logger.Error("skytiles: merge store failed", "pos", parent, "err", err)
		r.markFailed(parent)
		return nil, true
	}
	return merged, false
}

func (r *build) storeTile(pos tile.Pos, buf *pixel.Buffer) error {
	data, err := pixel.Encode(buf)
	if err != nil {
		return err
	}
	if err := r.store.WriteTile(pos, data); err != nil {
		return fmt.Errorf("%w: %v: %w", ErrPersistence, pos, err)
	}

	r.mu.Lock()
	r.produced++
	produced := r.produced
	r.mu.Unlock()

	if r.progress != nil {
		r.progress(produced, r.total)
	}
	return nil
}

func (r *build) markFailed(pos tile.Pos) {
	r.mu.Lock()
	r.failed = append(r.failed, pos)
	r.mu.Unlock()
}

// notePeakLocked tracks the high-water mark of buffers held by pending
// merge groups. Callers hold r.mu.
func (r *build) notePeakLocked() {
	var buffers int
	for _, g := range r.groups {
		buffers += g.buffers
	}
	if buffers > r.peakBuffers {
		r.peakBuffers = buffers
	}
}
