package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pixil98/go-craft/internal/world"
)

// chunkAsset is the on-disk form of one chunk column. Blocks are packed as
// big-endian int32s so the JSON carries a single base64 field instead of
// sixty-five thousand numbers.
type chunkAsset struct {
	Version int    `json:"version"`
	X       int32  `json:"x"`
	Z       int32  `json:"z"`
	Blocks  []byte `json:"blocks"`
}

func (a *chunkAsset) Validate() error {
	if a.Version != 1 {
		return fmt.Errorf("unsupported chunk version %d", a.Version)
	}
	if len(a.Blocks)%4 != 0 {
		return fmt.Errorf("block payload length %d is not int32-aligned", len(a.Blocks))
	}
	return nil
}

// ChunkStore persists chunk columns as one JSON file each under a directory.
// It satisfies both world.ChunkSource and world.ChunkSink; the chunk cache
// in front of it makes per-chunk caching decisions.
type ChunkStore struct {
	path string
}

func NewChunkStore(path string) (*ChunkStore, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("creating chunk directory: %w", err)
	}
	return &ChunkStore{path: path}, nil
}

// Load reads one chunk column. A chunk that was never saved reports ok=false
// so the caller can fall back to the generator.
func (s *ChunkStore) Load(pos world.ChunkPos) (*world.Chunk, bool, error) {
	data, err := os.ReadFile(s.filePath(pos))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading chunk file: %w", err)
	}

	var asset chunkAsset
	if err := json.Unmarshal(data, &asset); err != nil {
		return nil, false, fmt.Errorf("unmarshalling chunk: %w", err)
	}
	if err := asset.Validate(); err != nil {
		return nil, false, fmt.Errorf("validating %s: %w", filepath.Base(s.filePath(pos)), err)
	}

	blocks := make([]int32, len(asset.Blocks)/4)
	for i := range blocks {
		blocks[i] = int32(binary.BigEndian.Uint32(asset.Blocks[i*4:]))
	}
	c, err := world.NewChunkFromBlocks(blocks)
	if err != nil {
		return nil, false, fmt.Errorf("restoring chunk (%d, %d): %w", pos.X, pos.Z, err)
	}
	return c, true, nil
}

// Save writes one chunk column atomically: data lands in a temp file first
// so an interrupted write never leaves a truncated chunk behind.
func (s *ChunkStore) Save(pos world.ChunkPos, c *world.Chunk) error {
	blocks := c.Blocks()
	packed := make([]byte, len(blocks)*4)
	for i, b := range blocks {
		binary.BigEndian.PutUint32(packed[i*4:], uint32(b))
	}

	asset := &chunkAsset{
		Version: 1,
		X:       pos.X,
		Z:       pos.Z,
		Blocks:  packed,
	}
	jsonData, err := json.Marshal(asset)
	if err != nil {
		return fmt.Errorf("marshalling json: %w", err)
	}

	return atomicWrite(s.filePath(pos), jsonData, 0644)
}

// atomicWrite writes data to a temp file then renames it to the target path.
// This prevents partial or empty files if the process is interrupted.
func atomicWrite(path string, data []byte, perm os.FileMode) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		if removeErr := os.Remove(tmp); removeErr != nil {
			slog.Warn("failed to remove temp file after rename failure", "path", tmp, "error", removeErr)
		}
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

func (s *ChunkStore) filePath(pos world.ChunkPos) string {
	return filepath.Join(s.path, fmt.Sprintf("chunk_%d_%d.json", pos.X, pos.Z))
}
