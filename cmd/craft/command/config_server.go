package command

import (
	"fmt"
	"time"

	"github.com/pixil98/go-craft/internal/session"
	"github.com/pixil98/go-errors"
)

type ServerConfig struct {
	Motd                 string  `json:"motd"`
	MaxPlayers           int     `json:"max_players"`
	ViewDistance         int32   `json:"view_distance"`
	CompressionThreshold *int    `json:"compression_threshold"`
	QueueSize            int     `json:"queue_size"`
	IdleTimeout          string  `json:"idle_timeout"`
	SpawnX               float64 `json:"spawn_x"`
	SpawnY               float64 `json:"spawn_y"`
	SpawnZ               float64 `json:"spawn_z"`
}

func (c *ServerConfig) Validate() error {
	el := errors.NewErrorList()

	if c.MaxPlayers < 0 {
		el.Add(fmt.Errorf("max_players must not be negative"))
	}
	if c.ViewDistance < 0 || c.ViewDistance > 32 {
		el.Add(fmt.Errorf("view_distance must be between 0 and 32"))
	}
	if c.QueueSize < 0 {
		el.Add(fmt.Errorf("queue_size must not be negative"))
	}
	if c.IdleTimeout != "" {
		if _, err := time.ParseDuration(c.IdleTimeout); err != nil {
			el.Add(fmt.Errorf("parsing idle_timeout: %w", err))
		}
	}

	return el.Err()
}

// BuildSettings folds the configured values over the defaults. A zero value
// means "not set"; compression_threshold is a pointer because zero and
// negative are both meaningful.
func (c *ServerConfig) BuildSettings() (session.Settings, error) {
	s := session.DefaultSettings()

	if c.Motd != "" {
		s.Motd = c.Motd
	}
	if c.MaxPlayers > 0 {
		s.MaxPlayers = c.MaxPlayers
	}
	if c.ViewDistance > 0 {
		s.ViewDistance = c.ViewDistance
	}
	if c.CompressionThreshold != nil {
		s.CompressionThreshold = *c.CompressionThreshold
	}
	if c.QueueSize > 0 {
		s.QueueSize = c.QueueSize
	}
	if c.IdleTimeout != "" {
		d, err := time.ParseDuration(c.IdleTimeout)
		if err != nil {
			return session.Settings{}, fmt.Errorf("parsing idle_timeout: %w", err)
		}
		s.IdleTimeout = d
	}

	s.SpawnX = c.SpawnX
	if c.SpawnY != 0 {
		s.SpawnY = c.SpawnY
	}
	s.SpawnZ = c.SpawnZ

	return s, nil
}
