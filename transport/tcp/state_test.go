package tcp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

var allStates = []State{StateConnecting, StateConnected, StateDisconnecting, StateDisconnected}

func TestState_TransitionTable(t *testing.T) {
	want := map[[2]State]bool{
		{StateConnecting, StateConnected}:       true,
		{StateConnecting, StateDisconnected}:    true,
		{StateConnected, StateDisconnecting}:    true,
		{StateConnected, StateDisconnected}:     true,
		{StateDisconnecting, StateDisconnected}: true,
	}
	for _, from := range allStates {
		for _, to := range allStates {
			assert.Equal(t, want[[2]State{from, to}], from.CanTransition(to), "%s -> %s", from, to)
			if from.CanTransition(to) {
				assert.Greater(t, to, from, "transitions never go backwards")
			}
		}
	}
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "Disconnecting", StateDisconnecting.String())
	assert.Equal(t, "State(9)", State(9).String())
}

type connOp int

const (
	opEstablish connOp = iota
	opSend
	opShutdown
	opForceClose
	opForceCloseDelayed
	opAdvance
	opPeerClose
	opStartRead
	opStopRead
	opCount
)

var opNames = [...]string{"establish", "send", "shutdown", "forceClose", "forceCloseDelayed", "advance", "peerClose", "startRead", "stopRead"}

func (o connOp) String() string { return opNames[o] }

// connModel predicts the state after each operation.
type connModel struct {
	state State
	armed bool // a delayed force close is pending
}

func (m *connModel) apply(op connOp) {
	switch op {
	case opEstablish:
		if m.state == StateConnecting {
			m.state = StateConnected
		}
	case opShutdown:
		if m.state == StateConnected {
			m.state = StateDisconnecting
		}
	case opForceClose, opPeerClose:
		m.state = StateDisconnected
	case opForceCloseDelayed:
		if m.state == StateDisconnected {
			return
		}
		if m.state == StateConnected {
			m.state = StateDisconnecting
		}
		m.armed = true
	case opAdvance:
		if m.armed {
			m.state = StateDisconnected
			m.armed = false
		}
	}
}

func (h *harness) apply(op connOp) {
	switch op {
	case opEstablish:
		if h.conn.State() == StateConnecting {
			h.conn.ConnectEstablished()
		}
	case opSend:
		h.conn.SendString("x")
	case opShutdown:
		h.conn.Shutdown()
	case opForceClose:
		h.conn.ForceClose()
	case opForceCloseDelayed:
		h.conn.ForceCloseWithDelay(time.Second)
	case opAdvance:
		h.loop.Advance(time.Second)
	case opPeerClose:
		h.sock.FeedEOF()
		h.conn.handleRead(time.Now())
	case opStartRead:
		h.conn.StartRead()
	case opStopRead:
		h.conn.StopRead()
	}
	h.loop.RunPending()
}

func TestConn_StateMachineFollowsTable(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		h := newHarness()
		model := connModel{state: StateConnecting}
		ops := rapid.SliceOfN(rapid.IntRange(0, int(opCount)-1), 1, 30).Draw(t, "ops")

		for _, raw := range ops {
			op := connOp(raw)
			before := h.conn.State()
			h.apply(op)
			model.apply(op)
			after := h.conn.State()

			if after != model.state {
				t.Fatalf("%s from %s: got %s, want %s", op, before, after, model.state)
			}
			if after != before && !before.CanTransition(after) {
				t.Fatalf("%s: illegal transition %s -> %s", op, before, after)
			}
		}
		if h.conn.State() == StateDisconnected {
			if h.closes != 1 {
				t.Fatalf("close callback ran %d times", h.closes)
			}
			if !h.ch.Removed() || !h.sock.Closed() {
				t.Fatalf("disconnected connection was not destroyed")
			}
		}
	})
}
