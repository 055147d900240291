package protocol

// State is a connection's protocol phase. It selects which packet id → type
// mapping is active; decoding is only valid under the state the bytes
// arrived in.
type State int

const (
	StateHandshake State = iota
	StateStatus
	StateLogin
	StatePlay
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateHandshake:
		return "handshake"
	case StateStatus:
		return "status"
	case StateLogin:
		return "login"
	case StatePlay:
		return "play"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Packet is one typed packet body. Marshal writes the fields after the
// packet id; Unmarshal consumes exactly the fields Marshal writes.
type Packet interface {
	ID() int32
	Marshal(w *Writer)
	Unmarshal(r *Reader) error
}

// The decode tables are built once at init and never mutated afterward.
var (
	serverbound = map[State]map[int32]func() Packet{
		StateHandshake: {
			IDHandshake: func() Packet { return &Handshake{} },
		},
		StateStatus: {
			IDStatusRequest: func() Packet { return &StatusRequest{} },
			IDPingRequest:   func() Packet { return &PingRequest{} },
		},
		StateLogin: {
			IDLoginStart: func() Packet { return &LoginStart{} },
		},
		StatePlay: {
			IDChatMessage:               func() Packet { return &ChatMessage{} },
			IDKeepAliveServerbound:      func() Packet { return &KeepAliveServerbound{} },
			IDSetPlayerPosition:         func() Packet { return &SetPlayerPosition{} },
			IDSetPlayerPositionRotation: func() Packet { return &SetPlayerPositionRotation{} },
			IDSetPlayerRotation:         func() Packet { return &SetPlayerRotation{} },
			IDPlayerAction:              func() Packet { return &PlayerAction{} },
		},
	}

	clientbound = map[State]map[int32]func() Packet{
		StateStatus: {
			IDStatusResponse: func() Packet { return &StatusResponse{} },
			IDPingResponse:   func() Packet { return &PingResponse{} },
		},
		StateLogin: {
			IDLoginDisconnect: func() Packet { return &LoginDisconnect{} },
			IDLoginSuccess:    func() Packet { return &LoginSuccess{} },
			IDSetCompression:  func() Packet { return &SetCompression{} },
		},
		StatePlay: {
			IDSpawnPlayer:          func() Packet { return &SpawnPlayer{} },
			IDBlockUpdate:          func() Packet { return &BlockUpdate{} },
			IDPlayDisconnect:       func() Packet { return &PlayDisconnect{} },
			IDKeepAliveClientbound: func() Packet { return &KeepAliveClientbound{} },
			IDChunkData:            func() Packet { return &ChunkData{} },
			IDJoinGame:             func() Packet { return &JoinGame{} },
			IDSyncPlayerPosition:   func() Packet { return &SyncPlayerPosition{} },
			IDRemoveEntities:       func() Packet { return &RemoveEntities{} },
			IDSystemChat:           func() Packet { return &SystemChat{} },
			IDTeleportEntity:       func() Packet { return &TeleportEntity{} },
		},
	}
)

// Decode parses a serverbound frame body under the given state. Unknown ids
// and layout violations (including trailing bytes) are MalformedErrors.
func Decode(state State, frame []byte) (Packet, error) {
	return decode(serverbound, state, frame)
}

// DecodeClientbound parses a clientbound frame body under the given state.
// The server never calls this on live traffic; it exists for tests and for
// client-side tooling built on this package.
func DecodeClientbound(state State, frame []byte) (Packet, error) {
	return decode(clientbound, state, frame)
}

func decode(table map[State]map[int32]func() Packet, state State, frame []byte) (Packet, error) {
	r := NewReader(frame)
	id, err := r.VarInt()
	if err != nil {
		return nil, err
	}

	ctor, ok := table[state][id]
	if !ok {
		return nil, malformedf("unknown packet id 0x%02x in state %s", id, state)
	}

	pkt := ctor()
	if err := pkt.Unmarshal(r); err != nil {
		return nil, err
	}
	if r.Len() > 0 {
		return nil, malformedf("%d trailing bytes after packet 0x%02x", r.Len(), id)
	}
	return pkt, nil
}

// Encode serializes a packet body: VarInt id followed by the fields. The
// result still needs framing (EncodeFrame) before it can go on the wire.
func Encode(pkt Packet) []byte {
	var w Writer
	w.VarInt(pkt.ID())
	pkt.Marshal(&w)
	return w.Bytes()
}
