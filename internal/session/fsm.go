package session

import "github.com/pixil98/go-craft/internal/protocol"

// legalPacketIDs is the single inspectable table of which serverbound packet
// ids a connection may send in each state. Anything else is a protocol
// violation and closes the connection. Closed admits nothing.
var legalPacketIDs = map[protocol.State]map[int32]struct{}{
	protocol.StateHandshake: {
		protocol.IDHandshake: {},
	},
	protocol.StateStatus: {
		protocol.IDStatusRequest: {},
		protocol.IDPingRequest:   {},
	},
	protocol.StateLogin: {
		protocol.IDLoginStart: {},
	},
	protocol.StatePlay: {
		protocol.IDChatMessage:               {},
		protocol.IDKeepAliveServerbound:      {},
		protocol.IDSetPlayerPosition:         {},
		protocol.IDSetPlayerPositionRotation: {},
		protocol.IDSetPlayerRotation:         {},
		protocol.IDPlayerAction:              {},
	},
}

// Legal reports whether a packet id may arrive in the given state.
func Legal(state protocol.State, id int32) bool {
	_, ok := legalPacketIDs[state][id]
	return ok
}

// LegalPacketIDs returns the set of packet ids admitted in a state.
func LegalPacketIDs(state protocol.State) map[int32]struct{} {
	out := make(map[int32]struct{}, len(legalPacketIDs[state]))
	for id := range legalPacketIDs[state] {
		out[id] = struct{}{}
	}
	return out
}

// validTransitions enumerates the one-directional edges of the connection
// state machine. Play is a stable operational state: nothing leads out of it
// except Closed.
var validTransitions = map[protocol.State]map[protocol.State]struct{}{
	protocol.StateHandshake: {
		protocol.StateStatus: {},
		protocol.StateLogin:  {},
	},
	protocol.StateLogin: {
		protocol.StatePlay: {},
	},
}

// CanTransition reports whether the state machine may move between two
// states. Closed is reachable from everywhere and is terminal.
func CanTransition(from, to protocol.State) bool {
	if from == protocol.StateClosed {
		return false
	}
	if to == protocol.StateClosed {
		return true
	}
	_, ok := validTransitions[from][to]
	return ok
}
