package session

import "time"

// Settings are the fixed-at-startup values the protocol core consumes. The
// config layer validates and builds one of these; nothing here changes while
// the server runs.
type Settings struct {
	ServerVersion        string
	ProtocolVersion      int32
	Motd                 string
	MaxPlayers           int
	ViewDistance         int32
	CompressionThreshold int
	QueueSize            int
	IdleTimeout          time.Duration
	DimensionName        string

	SpawnX float64
	SpawnY float64
	SpawnZ float64
}

// DefaultSettings returns the values used where the config file is silent.
func DefaultSettings() Settings {
	return Settings{
		ServerVersion:        "1.20.1",
		ProtocolVersion:      763,
		Motd:                 "A go-craft server",
		MaxPlayers:           20,
		ViewDistance:         4,
		CompressionThreshold: 256,
		QueueSize:            512,
		IdleTimeout:          30 * time.Second,
		DimensionName:        "minecraft:overworld",
		SpawnY:               65,
	}
}

// viewRadius is the event scope radius in blocks implied by the view
// distance in chunks.
func (s Settings) viewRadius() float64 {
	return float64(s.ViewDistance) * 16
}
