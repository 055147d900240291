package world

import (
	"errors"
	"math"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

var (
	ErrEntityGone   = errors.New("entity despawned")
	ErrOutOfBounds  = errors.New("position out of bounds")
	ErrChunkMissing = errors.New("chunk not loaded")
)

// Registry is the single owner of all mutable world state: player entities
// and block data. Sessions hold entity ids, never records, and all mutation
// goes through scoped accessors so the registry controls the locking
// discipline. Entity records are locked individually; unrelated sessions
// never serialize on each other.
type Registry struct {
	chunks *ChunkCache

	mu       sync.RWMutex
	entities map[EntityID]*entityRecord

	nextID atomic.Int32
}

type entityRecord struct {
	mu   sync.Mutex
	ent  PlayerEntity
	gone bool
}

func NewRegistry(chunks *ChunkCache) *Registry {
	return &Registry{
		chunks:   chunks,
		entities: make(map[EntityID]*entityRecord),
	}
}

// SpawnPlayer creates a player entity and returns a snapshot of it.
func (r *Registry) SpawnPlayer(name string, uid uuid.UUID, x, y, z float64) PlayerEntity {
	ent := PlayerEntity{
		ID:     EntityID(r.nextID.Add(1)),
		UUID:   uid,
		Name:   name,
		X:      x,
		Y:      y,
		Z:      z,
		Health: 20,
	}

	r.mu.Lock()
	r.entities[ent.ID] = &entityRecord{ent: ent}
	r.mu.Unlock()

	return ent
}

// Despawn removes an entity. Once Despawn returns, no query observes the
// entity and in-flight WithEntityMut calls fail with ErrEntityGone.
func (r *Registry) Despawn(id EntityID) error {
	r.mu.Lock()
	rec, ok := r.entities[id]
	if !ok {
		r.mu.Unlock()
		return ErrEntityGone
	}
	delete(r.entities, id)
	r.mu.Unlock()

	rec.mu.Lock()
	rec.gone = true
	rec.mu.Unlock()

	return nil
}

// GetEntity returns a snapshot of the entity.
func (r *Registry) GetEntity(id EntityID) (PlayerEntity, bool) {
	r.mu.RLock()
	rec, ok := r.entities[id]
	r.mu.RUnlock()
	if !ok {
		return PlayerEntity{}, false
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.gone {
		return PlayerEntity{}, false
	}
	return rec.ent, true
}

// WithEntityMut runs fn with exclusive access to the entity record. The
// mutation is transactional: partial writes are never observable, and fn
// must not block on other registry calls or the network.
func (r *Registry) WithEntityMut(id EntityID, fn func(*PlayerEntity) error) error {
	r.mu.RLock()
	rec, ok := r.entities[id]
	r.mu.RUnlock()
	if !ok {
		return ErrEntityGone
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.gone {
		return ErrEntityGone
	}
	return fn(&rec.ent)
}

// Nearby returns snapshots of all entities within radius blocks of (x, z),
// measured horizontally. A despawned entity never appears.
func (r *Registry) Nearby(x, z float64, radius float64) []PlayerEntity {
	r.mu.RLock()
	recs := make([]*entityRecord, 0, len(r.entities))
	for _, rec := range r.entities {
		recs = append(recs, rec)
	}
	r.mu.RUnlock()

	var out []PlayerEntity
	for _, rec := range recs {
		rec.mu.Lock()
		if !rec.gone {
			dx, dz := rec.ent.X-x, rec.ent.Z-z
			if math.Sqrt(dx*dx+dz*dz) <= radius {
				out = append(out, rec.ent)
			}
		}
		rec.mu.Unlock()
	}
	return out
}

// Count returns the number of live entities.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entities)
}

// Chunks exposes the block store behind the registry.
func (r *Registry) Chunks() *ChunkCache {
	return r.chunks
}
