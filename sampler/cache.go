package sampler

import (
	"container/list"
	"sync"
)

// Source chunks are read in fixed-size blocks so that repeated samples
// within a tile hit memory, not the source.
const chunkSize = 256

type chunkKey struct {
	cx, cy int
}

// chunkCache is a session-scoped LRU cache of decoded source windows.
// It is shared by all workers sampling from the same source.
type chunkCache struct {
	src Source

	mu     sync.Mutex
	chunks map[chunkKey]*list.Element
	order  *list.List // front = most recently used
	limit  int
}

type chunkEntry struct {
	key chunkKey
	win *Window
}

func newChunkCache(src Source, limit int) *chunkCache {
	return &chunkCache{
		src:    src,
		chunks: make(map[chunkKey]*list.Element),
		order:  list.New(),
		limit:  limit,
	}
}

// window returns the chunk containing source pixel (x, y), reading it
// from the source on a miss. The caller must have checked that (x, y)
// lies within the source bounds.
func (c *chunkCache) window(x, y int) (*Window, error) {
	key := chunkKey{cx: floorDiv(x, chunkSize), cy: floorDiv(y, chunkSize)}

	c.mu.Lock()
	if elem, ok := c.chunks[key]; ok {
		c.order.MoveToFront(elem)
		win := elem.Value.(*chunkEntry).win
		c.mu.Unlock()
		return win, nil
	}
	c.mu.Unlock()

	// Read outside the lock; concurrent readers of the same chunk may
	// duplicate work but never block each other on I/O.
	r := Rect{
		X0: key.cx * chunkSize,
		Y0: key.cy * chunkSize,
		X1: (key.cx + 1) * chunkSize,
		Y1: (key.cy + 1) * chunkSize,
	}.Intersect(c.src.Bounds())

	win, err := c.src.ReadWindow(r)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.chunks[key]; ok {
		return elem.Value.(*chunkEntry).win, nil
	}
	c.chunks[key] = c.order.PushFront(&chunkEntry{key: key, win: win})
	for c.order.Len() > c.limit {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.chunks, oldest.Value.(*chunkEntry).key)
	}
	return win, nil
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b < 0 {
		q--
	}
	return q
}
