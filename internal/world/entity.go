package world

import "github.com/google/uuid"

// EntityID identifies an entity in the registry. Ids are allocated from a
// monotonic counter and never reused while the process lives.
type EntityID int32

// PlayerEntity is the mutable record for a connected player. The registry
// exclusively owns these records; everything else holds an EntityID and
// reads through snapshots or mutates through Registry.WithEntityMut.
type PlayerEntity struct {
	ID   EntityID
	UUID uuid.UUID
	Name string

	X        float64
	Y        float64
	Z        float64
	Yaw      float32
	Pitch    float32
	OnGround bool

	Health float32
}

// OfflineUUID derives a deterministic offline-mode player uuid from a
// username, following the OfflinePlayer name-uuid convention.
func OfflineUUID(name string) uuid.UUID {
	return uuid.NewMD5(uuid.UUID{}, []byte("OfflinePlayer:"+name))
}
