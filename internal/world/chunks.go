package world

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pixil98/go-craft/internal/protocol"
)

const (
	// ChunkEdge is the horizontal size of a chunk column in blocks.
	ChunkEdge = 16
	// ChunkHeight is the vertical extent of the world in blocks.
	ChunkHeight = 256
	// BlockAir is the empty block state.
	BlockAir int32 = 0
)

// ChunkPos keys a chunk column.
type ChunkPos struct {
	X int32 `json:"x"`
	Z int32 `json:"z"`
}

// ChunkPosAt returns the chunk containing the given block coordinate.
func ChunkPosAt(pos protocol.Position) ChunkPos {
	return ChunkPos{X: pos.X >> 4, Z: pos.Z >> 4}
}

// Chunk is one 16x16 column of block states. It is not safe for concurrent
// use on its own; the ChunkCache serializes access per chunk.
type Chunk struct {
	blocks []int32
}

func NewChunk() *Chunk {
	return &Chunk{blocks: make([]int32, ChunkEdge*ChunkEdge*ChunkHeight)}
}

// NewChunkFromBlocks restores a chunk from a previously exported block array.
func NewChunkFromBlocks(blocks []int32) (*Chunk, error) {
	if len(blocks) != ChunkEdge*ChunkEdge*ChunkHeight {
		return nil, fmt.Errorf("block array has %d entries, want %d", len(blocks), ChunkEdge*ChunkEdge*ChunkHeight)
	}
	c := NewChunk()
	copy(c.blocks, blocks)
	return c, nil
}

func blockIndex(x, y, z int32) int {
	return int((y*ChunkEdge+z)*ChunkEdge + x)
}

// Block returns the state at chunk-relative coordinates.
func (c *Chunk) Block(x, y, z int32) int32 {
	return c.blocks[blockIndex(x, y, z)]
}

// SetBlock sets the state at chunk-relative coordinates.
func (c *Chunk) SetBlock(x, y, z int32, state int32) {
	c.blocks[blockIndex(x, y, z)] = state
}

// Blocks exports a copy of the block array.
func (c *Chunk) Blocks() []int32 {
	out := make([]int32, len(c.blocks))
	copy(out, c.blocks)
	return out
}

// encode serializes the column for a ChunkData packet: one VarInt per block
// in index order. Frame compression keeps mostly-air columns small.
func (c *Chunk) encode() []byte {
	var w protocol.Writer
	for _, b := range c.blocks {
		w.VarInt(b)
	}
	return w.Bytes()
}

// ChunkSource is the persistence collaborator. Load reports ok=false for a
// chunk that was never saved. Implementations may be slow; the cache keeps
// loads off paths that would stall other chunks.
type ChunkSource interface {
	Load(pos ChunkPos) (*Chunk, bool, error)
}

// ChunkSink persists chunk columns.
type ChunkSink interface {
	Save(pos ChunkPos, c *Chunk) error
}

// Generator produces terrain for chunks the source has never seen.
type Generator interface {
	Generate(pos ChunkPos) *Chunk
}

// ChunkCache keeps loaded chunks in memory, loading from the source (or
// generating) on first use. Each chunk loads and locks independently: a
// slow load of one chunk never blocks access to another, and only the
// goroutine that first requests a chunk performs the load while later
// requesters wait on it.
type ChunkCache struct {
	source ChunkSource
	sink   ChunkSink
	gen    Generator

	mu      sync.Mutex
	entries map[ChunkPos]*chunkEntry
}

type chunkEntry struct {
	ready chan struct{}
	err   error

	mu    sync.Mutex
	chunk *Chunk
	dirty bool
}

func NewChunkCache(source ChunkSource, sink ChunkSink, gen Generator) *ChunkCache {
	return &ChunkCache{
		source:  source,
		sink:    sink,
		gen:     gen,
		entries: make(map[ChunkPos]*chunkEntry),
	}
}

func (cc *ChunkCache) entry(pos ChunkPos) (*chunkEntry, error) {
	cc.mu.Lock()
	e, ok := cc.entries[pos]
	if ok {
		cc.mu.Unlock()
		<-e.ready
		return e, e.err
	}

	e = &chunkEntry{ready: make(chan struct{})}
	cc.entries[pos] = e
	cc.mu.Unlock()

	e.chunk, e.err = cc.load(pos)
	close(e.ready)

	if e.err != nil {
		// Leave the failure out of the cache so a later request retries.
		cc.mu.Lock()
		delete(cc.entries, pos)
		cc.mu.Unlock()
	}
	return e, e.err
}

func (cc *ChunkCache) load(pos ChunkPos) (*Chunk, error) {
	if cc.source != nil {
		c, ok, err := cc.source.Load(pos)
		if err != nil {
			return nil, fmt.Errorf("loading chunk (%d, %d): %w", pos.X, pos.Z, err)
		}
		if ok {
			return c, nil
		}
	}
	return cc.gen.Generate(pos), nil
}

// EncodeColumn loads the chunk and returns its packet serialization.
func (cc *ChunkCache) EncodeColumn(pos ChunkPos) ([]byte, error) {
	e, err := cc.entry(pos)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.chunk.encode(), nil
}

// BlockAt returns the block state at a world position.
func (cc *ChunkCache) BlockAt(pos protocol.Position) (int32, error) {
	if pos.Y < 0 || pos.Y >= ChunkHeight {
		return 0, ErrOutOfBounds
	}
	e, err := cc.entry(ChunkPosAt(pos))
	if err != nil {
		return 0, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.chunk.Block(pos.X&15, pos.Y, pos.Z&15), nil
}

// SetBlockAt mutates one block and marks the chunk dirty for the next flush.
func (cc *ChunkCache) SetBlockAt(pos protocol.Position, state int32) error {
	if pos.Y < 0 || pos.Y >= ChunkHeight {
		return ErrOutOfBounds
	}
	e, err := cc.entry(ChunkPosAt(pos))
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.chunk.SetBlock(pos.X&15, pos.Y, pos.Z&15, state)
	e.dirty = true
	return nil
}

// Flush persists every dirty chunk. Called from the tick driver and once
// more on shutdown.
func (cc *ChunkCache) Flush(ctx context.Context) error {
	if cc.sink == nil {
		return nil
	}

	cc.mu.Lock()
	snapshot := make(map[ChunkPos]*chunkEntry, len(cc.entries))
	for pos, e := range cc.entries {
		snapshot[pos] = e
	}
	cc.mu.Unlock()

	for pos, e := range snapshot {
		select {
		case <-e.ready:
		default:
			continue // still loading, nothing to persist yet
		}
		if e.err != nil {
			continue
		}

		e.mu.Lock()
		if !e.dirty {
			e.mu.Unlock()
			continue
		}
		c, err := NewChunkFromBlocks(e.chunk.blocks)
		if err != nil {
			e.mu.Unlock()
			return err
		}
		e.dirty = false
		e.mu.Unlock()

		if err := cc.sink.Save(pos, c); err != nil {
			slog.WarnContext(ctx, "saving chunk", "x", pos.X, "z", pos.Z, "error", err)
			e.mu.Lock()
			e.dirty = true
			e.mu.Unlock()
		}
	}
	return nil
}

// SetBlock routes a block mutation through the registry so callers never
// touch chunk storage directly.
func (r *Registry) SetBlock(pos protocol.Position, state int32) error {
	return r.chunks.SetBlockAt(pos, state)
}

// Tick flushes dirty chunks; the driver calls this every world tick.
func (r *Registry) Tick(ctx context.Context) error {
	return r.chunks.Flush(ctx)
}

// FlatGenerator fills every chunk with a uniform slab of ground from the
// bottom of the world up to SurfaceY.
type FlatGenerator struct {
	SurfaceY int32
	Block    int32
}

func (g *FlatGenerator) Generate(ChunkPos) *Chunk {
	c := NewChunk()
	for y := int32(0); y <= g.SurfaceY && y < ChunkHeight; y++ {
		for z := int32(0); z < ChunkEdge; z++ {
			for x := int32(0); x < ChunkEdge; x++ {
				c.SetBlock(x, y, z, g.Block)
			}
		}
	}
	return c
}
