package protocol

// Packet ids are only meaningful within a connection state and direction;
// the same value names different packets elsewhere.
const (
	// Handshake (C→S)
	IDHandshake int32 = 0x00

	// Status (C→S)
	IDStatusRequest int32 = 0x00
	IDPingRequest   int32 = 0x01

	// Status (S→C)
	IDStatusResponse int32 = 0x00
	IDPingResponse   int32 = 0x01

	// Login (C→S)
	IDLoginStart int32 = 0x00

	// Login (S→C)
	IDLoginDisconnect int32 = 0x00
	IDLoginSuccess    int32 = 0x02
	IDSetCompression  int32 = 0x03

	// Play (C→S)
	IDChatMessage               int32 = 0x05
	IDKeepAliveServerbound      int32 = 0x14
	IDSetPlayerPosition         int32 = 0x16
	IDSetPlayerPositionRotation int32 = 0x17
	IDSetPlayerRotation         int32 = 0x18
	IDPlayerAction              int32 = 0x21

	// Play (S→C)
	IDSpawnPlayer          int32 = 0x03
	IDBlockUpdate          int32 = 0x09
	IDPlayDisconnect       int32 = 0x1b
	IDKeepAliveClientbound int32 = 0x24
	IDChunkData            int32 = 0x25
	IDJoinGame             int32 = 0x29
	IDSyncPlayerPosition   int32 = 0x3e
	IDRemoveEntities       int32 = 0x40
	IDSystemChat           int32 = 0x69
	IDTeleportEntity       int32 = 0x6d
)
