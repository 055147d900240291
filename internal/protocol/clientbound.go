package protocol

import "github.com/google/uuid"

// AngleFromDegrees converts a rotation in degrees to the wire's 1/256-turn
// angle byte.
func AngleFromDegrees(deg float32) byte {
	return byte(deg / 360 * 256)
}

// StatusResponse carries the server list JSON document.
type StatusResponse struct {
	JSON string
}

func (*StatusResponse) ID() int32 { return IDStatusResponse }

func (p *StatusResponse) Marshal(w *Writer) {
	w.String(p.JSON)
}

func (p *StatusResponse) Unmarshal(r *Reader) (err error) {
	p.JSON, err = r.String(MaxStringChars)
	return err
}

// PingResponse echoes a PingRequest payload.
type PingResponse struct {
	Payload int64
}

func (*PingResponse) ID() int32 { return IDPingResponse }

func (p *PingResponse) Marshal(w *Writer) {
	w.Int64(p.Payload)
}

func (p *PingResponse) Unmarshal(r *Reader) (err error) {
	p.Payload, err = r.Int64()
	return err
}

// LoginDisconnect rejects a login with a chat-JSON reason.
type LoginDisconnect struct {
	Reason string
}

func (*LoginDisconnect) ID() int32 { return IDLoginDisconnect }

func (p *LoginDisconnect) Marshal(w *Writer) {
	w.String(p.Reason)
}

func (p *LoginDisconnect) Unmarshal(r *Reader) (err error) {
	p.Reason, err = r.String(MaxStringChars)
	return err
}

// SetCompression announces the frame compression threshold. Every frame
// after it uses the compressed layout.
type SetCompression struct {
	Threshold int32
}

func (*SetCompression) ID() int32 { return IDSetCompression }

func (p *SetCompression) Marshal(w *Writer) {
	w.VarInt(p.Threshold)
}

func (p *SetCompression) Unmarshal(r *Reader) (err error) {
	p.Threshold, err = r.VarInt()
	return err
}

// LoginSuccess completes the login exchange and moves the connection to
// play. Profile properties are not served; the count on the wire is zero.
type LoginSuccess struct {
	PlayerUUID uuid.UUID
	Username   string
}

func (*LoginSuccess) ID() int32 { return IDLoginSuccess }

func (p *LoginSuccess) Marshal(w *Writer) {
	w.UUID(p.PlayerUUID)
	w.String(p.Username)
	w.VarInt(0)
}

func (p *LoginSuccess) Unmarshal(r *Reader) error {
	var err error
	if p.PlayerUUID, err = r.UUID(); err != nil {
		return err
	}
	if p.Username, err = r.String(16); err != nil {
		return err
	}
	n, err := r.VarInt()
	if err != nil {
		return err
	}
	if n != 0 {
		return malformedf("login success carries %d unsupported properties", n)
	}
	return nil
}

// JoinGame moves a freshly logged-in client into the world.
type JoinGame struct {
	EntityID           int32
	Hardcore           bool
	MaxPlayers         int32
	ViewDistance       int32
	SimulationDistance int32
	ReducedDebugInfo   bool
	DimensionName      string
	HashedSeed         int64
	GameMode           byte
}

func (*JoinGame) ID() int32 { return IDJoinGame }

func (p *JoinGame) Marshal(w *Writer) {
	w.Int32(p.EntityID)
	w.Bool(p.Hardcore)
	w.VarInt(p.MaxPlayers)
	w.VarInt(p.ViewDistance)
	w.VarInt(p.SimulationDistance)
	w.Bool(p.ReducedDebugInfo)
	w.String(p.DimensionName)
	w.Int64(p.HashedSeed)
	w.Byte(p.GameMode)
}

func (p *JoinGame) Unmarshal(r *Reader) (err error) {
	if p.EntityID, err = r.Int32(); err != nil {
		return err
	}
	if p.Hardcore, err = r.Bool(); err != nil {
		return err
	}
	if p.MaxPlayers, err = r.VarInt(); err != nil {
		return err
	}
	if p.ViewDistance, err = r.VarInt(); err != nil {
		return err
	}
	if p.SimulationDistance, err = r.VarInt(); err != nil {
		return err
	}
	if p.ReducedDebugInfo, err = r.Bool(); err != nil {
		return err
	}
	if p.DimensionName, err = r.String(MaxStringChars); err != nil {
		return err
	}
	if p.HashedSeed, err = r.Int64(); err != nil {
		return err
	}
	p.GameMode, err = r.Byte()
	return err
}

// KeepAliveClientbound challenges the client to echo an id before the idle
// timeout.
type KeepAliveClientbound struct {
	KeepAliveID int64
}

func (*KeepAliveClientbound) ID() int32 { return IDKeepAliveClientbound }

func (p *KeepAliveClientbound) Marshal(w *Writer) {
	w.Int64(p.KeepAliveID)
}

func (p *KeepAliveClientbound) Unmarshal(r *Reader) (err error) {
	p.KeepAliveID, err = r.Int64()
	return err
}

// SyncPlayerPosition teleports the client to an absolute position.
type SyncPlayerPosition struct {
	X          float64
	Y          float64
	Z          float64
	Yaw        float32
	Pitch      float32
	Flags      byte
	TeleportID int32
}

func (*SyncPlayerPosition) ID() int32 { return IDSyncPlayerPosition }

func (p *SyncPlayerPosition) Marshal(w *Writer) {
	w.Float64(p.X)
	w.Float64(p.Y)
	w.Float64(p.Z)
	w.Float32(p.Yaw)
	w.Float32(p.Pitch)
	w.Byte(p.Flags)
	w.VarInt(p.TeleportID)
}

func (p *SyncPlayerPosition) Unmarshal(r *Reader) (err error) {
	if p.X, err = r.Float64(); err != nil {
		return err
	}
	if p.Y, err = r.Float64(); err != nil {
		return err
	}
	if p.Z, err = r.Float64(); err != nil {
		return err
	}
	if p.Yaw, err = r.Float32(); err != nil {
		return err
	}
	if p.Pitch, err = r.Float32(); err != nil {
		return err
	}
	if p.Flags, err = r.Byte(); err != nil {
		return err
	}
	p.TeleportID, err = r.VarInt()
	return err
}

// SystemChat displays a server-originated chat-JSON message.
type SystemChat struct {
	Content string
	Overlay bool
}

func (*SystemChat) ID() int32 { return IDSystemChat }

func (p *SystemChat) Marshal(w *Writer) {
	w.String(p.Content)
	w.Bool(p.Overlay)
}

func (p *SystemChat) Unmarshal(r *Reader) (err error) {
	if p.Content, err = r.String(MaxStringChars); err != nil {
		return err
	}
	p.Overlay, err = r.Bool()
	return err
}

// SpawnPlayer makes another player's entity visible.
type SpawnPlayer struct {
	EntityID   int32
	PlayerUUID uuid.UUID
	X          float64
	Y          float64
	Z          float64
	Yaw        byte
	Pitch      byte
}

func (*SpawnPlayer) ID() int32 { return IDSpawnPlayer }

func (p *SpawnPlayer) Marshal(w *Writer) {
	w.VarInt(p.EntityID)
	w.UUID(p.PlayerUUID)
	w.Float64(p.X)
	w.Float64(p.Y)
	w.Float64(p.Z)
	w.Byte(p.Yaw)
	w.Byte(p.Pitch)
}

func (p *SpawnPlayer) Unmarshal(r *Reader) (err error) {
	if p.EntityID, err = r.VarInt(); err != nil {
		return err
	}
	if p.PlayerUUID, err = r.UUID(); err != nil {
		return err
	}
	if p.X, err = r.Float64(); err != nil {
		return err
	}
	if p.Y, err = r.Float64(); err != nil {
		return err
	}
	if p.Z, err = r.Float64(); err != nil {
		return err
	}
	if p.Yaw, err = r.Byte(); err != nil {
		return err
	}
	p.Pitch, err = r.Byte()
	return err
}

// TeleportEntity moves another entity to an absolute position.
type TeleportEntity struct {
	EntityID int32
	X        float64
	Y        float64
	Z        float64
	Yaw      byte
	Pitch    byte
	OnGround bool
}

func (*TeleportEntity) ID() int32 { return IDTeleportEntity }

func (p *TeleportEntity) Marshal(w *Writer) {
	w.VarInt(p.EntityID)
	w.Float64(p.X)
	w.Float64(p.Y)
	w.Float64(p.Z)
	w.Byte(p.Yaw)
	w.Byte(p.Pitch)
	w.Bool(p.OnGround)
}

func (p *TeleportEntity) Unmarshal(r *Reader) (err error) {
	if p.EntityID, err = r.VarInt(); err != nil {
		return err
	}
	if p.X, err = r.Float64(); err != nil {
		return err
	}
	if p.Y, err = r.Float64(); err != nil {
		return err
	}
	if p.Z, err = r.Float64(); err != nil {
		return err
	}
	if p.Yaw, err = r.Byte(); err != nil {
		return err
	}
	if p.Pitch, err = r.Byte(); err != nil {
		return err
	}
	p.OnGround, err = r.Bool()
	return err
}

// RemoveEntities despawns entities on the client.
type RemoveEntities struct {
	EntityIDs []int32
}

func (*RemoveEntities) ID() int32 { return IDRemoveEntities }

func (p *RemoveEntities) Marshal(w *Writer) {
	w.VarInt(int32(len(p.EntityIDs)))
	for _, id := range p.EntityIDs {
		w.VarInt(id)
	}
}

func (p *RemoveEntities) Unmarshal(r *Reader) error {
	n, err := r.VarInt()
	if err != nil {
		return err
	}
	if n < 0 || n > 1024 {
		return malformedf("entity id count %d exceeds bound 1024", n)
	}
	p.EntityIDs = make([]int32, n)
	for i := range p.EntityIDs {
		if p.EntityIDs[i], err = r.VarInt(); err != nil {
			return err
		}
	}
	return nil
}

// BlockUpdate replaces a single block.
type BlockUpdate struct {
	Location Position
	BlockID  int32
}

func (*BlockUpdate) ID() int32 { return IDBlockUpdate }

func (p *BlockUpdate) Marshal(w *Writer) {
	w.Position(p.Location)
	w.VarInt(p.BlockID)
}

func (p *BlockUpdate) Unmarshal(r *Reader) (err error) {
	if p.Location, err = r.Position(); err != nil {
		return err
	}
	p.BlockID, err = r.VarInt()
	return err
}

// ChunkData carries one chunk column, serialized by the world package.
type ChunkData struct {
	ChunkX int32
	ChunkZ int32
	Data   []byte
}

func (*ChunkData) ID() int32 { return IDChunkData }

func (p *ChunkData) Marshal(w *Writer) {
	w.Int32(p.ChunkX)
	w.Int32(p.ChunkZ)
	w.ByteArray(p.Data)
}

func (p *ChunkData) Unmarshal(r *Reader) (err error) {
	if p.ChunkX, err = r.Int32(); err != nil {
		return err
	}
	if p.ChunkZ, err = r.Int32(); err != nil {
		return err
	}
	p.Data, err = r.ByteArray(MaxFrameSize)
	return err
}

// PlayDisconnect kicks a play-state client with a chat-JSON reason.
type PlayDisconnect struct {
	Reason string
}

func (*PlayDisconnect) ID() int32 { return IDPlayDisconnect }

func (p *PlayDisconnect) Marshal(w *Writer) {
	w.String(p.Reason)
}

func (p *PlayDisconnect) Unmarshal(r *Reader) (err error) {
	p.Reason, err = r.String(MaxStringChars)
	return err
}
