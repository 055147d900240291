package protocol

import "github.com/google/uuid"

// Handshake intents, carried in the NextState field.
const (
	IntentStatus int32 = 1
	IntentLogin  int32 = 2
)

// Handshake opens every connection and names the state the client wants
// to move to.
type Handshake struct {
	ProtocolVersion int32
	ServerAddress   string
	ServerPort      uint16
	NextState       int32
}

func (*Handshake) ID() int32 { return IDHandshake }

func (p *Handshake) Marshal(w *Writer) {
	w.VarInt(p.ProtocolVersion)
	w.String(p.ServerAddress)
	w.Uint16(p.ServerPort)
	w.VarInt(p.NextState)
}

func (p *Handshake) Unmarshal(r *Reader) (err error) {
	if p.ProtocolVersion, err = r.VarInt(); err != nil {
		return err
	}
	if p.ServerAddress, err = r.String(255); err != nil {
		return err
	}
	if p.ServerPort, err = r.Uint16(); err != nil {
		return err
	}
	p.NextState, err = r.VarInt()
	return err
}

// StatusRequest asks for the server list JSON. No fields.
type StatusRequest struct{}

func (*StatusRequest) ID() int32               { return IDStatusRequest }
func (*StatusRequest) Marshal(*Writer)         {}
func (*StatusRequest) Unmarshal(*Reader) error { return nil }

// PingRequest carries an opaque payload the server echoes back.
type PingRequest struct {
	Payload int64
}

func (*PingRequest) ID() int32 { return IDPingRequest }

func (p *PingRequest) Marshal(w *Writer) {
	w.Int64(p.Payload)
}

func (p *PingRequest) Unmarshal(r *Reader) (err error) {
	p.Payload, err = r.Int64()
	return err
}

// LoginStart begins authentication with the desired username.
type LoginStart struct {
	Name       string
	PlayerUUID uuid.UUID
}

func (*LoginStart) ID() int32 { return IDLoginStart }

func (p *LoginStart) Marshal(w *Writer) {
	w.String(p.Name)
	w.UUID(p.PlayerUUID)
}

func (p *LoginStart) Unmarshal(r *Reader) (err error) {
	if p.Name, err = r.String(16); err != nil {
		return err
	}
	p.PlayerUUID, err = r.UUID()
	return err
}

// ChatMessage is an unsigned play-state chat line.
type ChatMessage struct {
	Message string
}

func (*ChatMessage) ID() int32 { return IDChatMessage }

func (p *ChatMessage) Marshal(w *Writer) {
	w.String(p.Message)
}

func (p *ChatMessage) Unmarshal(r *Reader) (err error) {
	p.Message, err = r.String(256)
	return err
}

// KeepAliveServerbound echoes the id of the most recent clientbound
// keep-alive.
type KeepAliveServerbound struct {
	KeepAliveID int64
}

func (*KeepAliveServerbound) ID() int32 { return IDKeepAliveServerbound }

func (p *KeepAliveServerbound) Marshal(w *Writer) {
	w.Int64(p.KeepAliveID)
}

func (p *KeepAliveServerbound) Unmarshal(r *Reader) (err error) {
	p.KeepAliveID, err = r.Int64()
	return err
}

// SetPlayerPosition updates position without rotation.
type SetPlayerPosition struct {
	X        float64
	Y        float64
	Z        float64
	OnGround bool
}

func (*SetPlayerPosition) ID() int32 { return IDSetPlayerPosition }

func (p *SetPlayerPosition) Marshal(w *Writer) {
	w.Float64(p.X)
	w.Float64(p.Y)
	w.Float64(p.Z)
	w.Bool(p.OnGround)
}

func (p *SetPlayerPosition) Unmarshal(r *Reader) (err error) {
	if p.X, err = r.Float64(); err != nil {
		return err
	}
	if p.Y, err = r.Float64(); err != nil {
		return err
	}
	if p.Z, err = r.Float64(); err != nil {
		return err
	}
	p.OnGround, err = r.Bool()
	return err
}

// SetPlayerPositionRotation updates position and look direction together.
type SetPlayerPositionRotation struct {
	X        float64
	Y        float64
	Z        float64
	Yaw      float32
	Pitch    float32
	OnGround bool
}

func (*SetPlayerPositionRotation) ID() int32 { return IDSetPlayerPositionRotation }

func (p *SetPlayerPositionRotation) Marshal(w *Writer) {
	w.Float64(p.X)
	w.Float64(p.Y)
	w.Float64(p.Z)
	w.Float32(p.Yaw)
	w.Float32(p.Pitch)
	w.Bool(p.OnGround)
}

func (p *SetPlayerPositionRotation) Unmarshal(r *Reader) (err error) {
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
	p.OnGround, err = r.Bool()
	return err
}

// SetPlayerRotation updates look direction only.
type SetPlayerRotation struct {
	Yaw      float32
	Pitch    float32
	OnGround bool
}

func (*SetPlayerRotation) ID() int32 { return IDSetPlayerRotation }

func (p *SetPlayerRotation) Marshal(w *Writer) {
	w.Float32(p.Yaw)
	w.Float32(p.Pitch)
	w.Bool(p.OnGround)
}

func (p *SetPlayerRotation) Unmarshal(r *Reader) (err error) {
	if p.Yaw, err = r.Float32(); err != nil {
		return err
	}
	if p.Pitch, err = r.Float32(); err != nil {
		return err
	}
	p.OnGround, err = r.Bool()
	return err
}

// Digging statuses for PlayerAction.
const (
	ActionStartDigging  int32 = 0
	ActionCancelDigging int32 = 1
	ActionFinishDigging int32 = 2
)

// PlayerAction reports block digging progress.
type PlayerAction struct {
	Status   int32
	Location Position
	Face     byte
	Sequence int32
}

func (*PlayerAction) ID() int32 { return IDPlayerAction }

func (p *PlayerAction) Marshal(w *Writer) {
	w.VarInt(p.Status)
	w.Position(p.Location)
	w.Byte(p.Face)
	w.VarInt(p.Sequence)
}

func (p *PlayerAction) Unmarshal(r *Reader) (err error) {
	if p.Status, err = r.VarInt(); err != nil {
		return err
	}
	if p.Location, err = r.Position(); err != nil {
		return err
	}
	if p.Face, err = r.Byte(); err != nil {
		return err
	}
	p.Sequence, err = r.VarInt()
	return err
}
