package command

import (
	"fmt"

	"github.com/pixil98/go-craft/internal/storage"
	"github.com/pixil98/go-craft/internal/world"
	"github.com/pixil98/go-errors"
)

type StorageConfig struct {
	ChunkPath string          `json:"chunk_path"`
	Generator GeneratorConfig `json:"generator"`
}

func (c *StorageConfig) Validate() error {
	el := errors.NewErrorList()

	if c.ChunkPath == "" {
		el.Add(fmt.Errorf("chunk_path is required"))
	}
	el.Add(c.Generator.Validate())

	return el.Err()
}

func (c *StorageConfig) BuildChunkStore() (*storage.ChunkStore, error) {
	return storage.NewChunkStore(c.ChunkPath)
}

type GeneratorConfig struct {
	SurfaceY int32 `json:"surface_y"`
	Block    int32 `json:"block"`
}

func (c *GeneratorConfig) Validate() error {
	el := errors.NewErrorList()

	if c.SurfaceY < 0 || c.SurfaceY >= world.ChunkHeight {
		el.Add(fmt.Errorf("surface_y must be between 0 and %d", world.ChunkHeight-1))
	}
	if c.Block < 0 {
		el.Add(fmt.Errorf("block must not be negative"))
	}

	return el.Err()
}

func (c *GeneratorConfig) BuildGenerator() *world.FlatGenerator {
	g := &world.FlatGenerator{SurfaceY: c.SurfaceY, Block: c.Block}
	if g.SurfaceY == 0 {
		g.SurfaceY = 64
	}
	if g.Block == 0 {
		g.Block = 1 // stone
	}
	return g
}
