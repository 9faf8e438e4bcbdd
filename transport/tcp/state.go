// File: transport/tcp/state.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package tcp

import "fmt"

// State is the lifecycle stage of a Conn.
type State int32

const (
	StateConnecting State = iota
	StateConnected
	StateDisconnecting
	StateDisconnected
)

var stateNames = [...]string{
	StateConnecting:    "Connecting",
	StateConnected:     "Connected",
	StateDisconnecting: "Disconnecting",
	StateDisconnected:  "Disconnected",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int32(s))
	}
	return stateNames[s]
}

// transitions lists every legal edge. Disconnecting is entered only from
// Connected; Disconnected is terminal.
var transitions = map[State][]State{
	StateConnecting:    {StateConnected, StateDisconnected},
	StateConnected:     {StateDisconnecting, StateDisconnected},
	StateDisconnecting: {StateDisconnected},
	StateDisconnected:  nil,
}

// CanTransition reports whether a Conn may move from s to next.
func (s State) CanTransition(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
