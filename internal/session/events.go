package session

import (
	"fmt"

	"github.com/pixil98/go-craft/internal/protocol"
	"github.com/pixil98/go-craft/internal/world"
)

// eventPacket converts a bus event into the clientbound packet a subscriber
// forwards. Returns nil for kinds a client has no packet for.
func eventPacket(ev *world.Event) protocol.Packet {
	switch ev.Kind {
	case world.EventEntityMoved:
		return &protocol.TeleportEntity{
			EntityID: int32(ev.Entity),
			X:        ev.X,
			Y:        ev.Y,
			Z:        ev.Z,
			Yaw:      protocol.AngleFromDegrees(ev.Yaw),
			Pitch:    protocol.AngleFromDegrees(ev.Pitch),
			OnGround: ev.OnGround,
		}
	case world.EventEntitySpawned:
		return &protocol.SpawnPlayer{
			EntityID:   int32(ev.Entity),
			PlayerUUID: ev.UUID,
			X:          ev.X,
			Y:          ev.Y,
			Z:          ev.Z,
			Yaw:        protocol.AngleFromDegrees(ev.Yaw),
			Pitch:      protocol.AngleFromDegrees(ev.Pitch),
		}
	case world.EventEntityDespawned:
		return &protocol.RemoveEntities{
			EntityIDs: []int32{int32(ev.Entity)},
		}
	case world.EventBlockChanged:
		return &protocol.BlockUpdate{
			Location: ev.BlockPos,
			BlockID:  ev.BlockID,
		}
	case world.EventChat:
		return &protocol.SystemChat{
			Content: chatText(fmt.Sprintf("<%s> %s", ev.Name, ev.Message)),
		}
	default:
		return nil
	}
}
