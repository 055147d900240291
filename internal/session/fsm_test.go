package session

import (
	"testing"

	"github.com/pixil98/go-craft/internal/protocol"
	"github.com/pixil98/go-testutil"
)

func TestLegal(t *testing.T) {
	tests := map[string]struct {
		state protocol.State
		id    int32
		want  bool
	}{
		"handshake in handshake":     {protocol.StateHandshake, protocol.IDHandshake, true},
		"status request in status":   {protocol.StateStatus, protocol.IDStatusRequest, true},
		"ping in status":             {protocol.StateStatus, protocol.IDPingRequest, true},
		"login start in login":       {protocol.StateLogin, protocol.IDLoginStart, true},
		"movement in play":           {protocol.StatePlay, protocol.IDSetPlayerPosition, true},
		"chat in play":               {protocol.StatePlay, protocol.IDChatMessage, true},
		"status request in play":     {protocol.StatePlay, protocol.IDStatusRequest, false},
		"login start in play":        {protocol.StatePlay, protocol.IDLoginStart, false},
		"movement in login":          {protocol.StateLogin, protocol.IDSetPlayerPosition, false},
		"ping in login":              {protocol.StateLogin, protocol.IDPingRequest, false},
		"anything in closed":         {protocol.StateClosed, protocol.IDHandshake, false},
		"keep-alive before play":     {protocol.StateLogin, protocol.IDKeepAliveServerbound, false},
		"player action in handshake": {protocol.StateHandshake, protocol.IDPlayerAction, false},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			testutil.AssertEqual(t, "legal", Legal(tt.state, tt.id), tt.want)
		})
	}
}

func TestCanTransition(t *testing.T) {
	tests := map[string]struct {
		from protocol.State
		to   protocol.State
		want bool
	}{
		"handshake to status":  {protocol.StateHandshake, protocol.StateStatus, true},
		"handshake to login":   {protocol.StateHandshake, protocol.StateLogin, true},
		"login to play":        {protocol.StateLogin, protocol.StatePlay, true},
		"handshake to play":    {protocol.StateHandshake, protocol.StatePlay, false},
		"status to login":      {protocol.StateStatus, protocol.StateLogin, false},
		"status to play":       {protocol.StateStatus, protocol.StatePlay, false},
		"play to login":        {protocol.StatePlay, protocol.StateLogin, false},
		"play to handshake":    {protocol.StatePlay, protocol.StateHandshake, false},
		"anywhere to closed":   {protocol.StatePlay, protocol.StateClosed, true},
		"status to closed":     {protocol.StateStatus, protocol.StateClosed, true},
		"closed is terminal":   {protocol.StateClosed, protocol.StateHandshake, false},
		"closed stays closed":  {protocol.StateClosed, protocol.StateClosed, false},
		"no backwards to self": {protocol.StateLogin, protocol.StateLogin, false},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			testutil.AssertEqual(t, "transition", CanTransition(tt.from, tt.to), tt.want)
		})
	}
}
