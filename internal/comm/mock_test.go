package comm

import "firestige.xyz/packetcomm/internal/buffer"

// stubTransceiver replays queued payloads and records sent ones.
type stubTransceiver struct {
	inbox      [][]byte
	current    []byte
	sent       [][]byte
	refuseSend bool
	closed     bool
}

func (s *stubTransceiver) Send(payload []byte) bool {
	if s.refuseSend {
		return false
	}
	s.sent = append(s.sent, buffer.Clone(payload))
	return true
}

func (s *stubTransceiver) Receive() bool {
	if len(s.inbox) == 0 {
		return false
	}
	s.current, s.inbox = s.inbox[0], s.inbox[1:]
	return true
}

func (s *stubTransceiver) Received() []byte { return s.current }

func (s *stubTransceiver) Close() error {
	s.closed = true
	return nil
}

func (s *stubTransceiver) push(frames ...[]byte) {
	s.inbox = append(s.inbox, frames...)
}

// stuckTransceiver always claims pending input and never yields a frame.
type stuckTransceiver struct {
	availableCalls int
	receiveCalls   int
}

func (s *stuckTransceiver) Send([]byte) bool { return true }
func (s *stuckTransceiver) Receive() bool    { s.receiveCalls++; return false }
func (s *stuckTransceiver) Received() []byte { return nil }
func (s *stuckTransceiver) Available() bool  { s.availableCalls++; return true }

// noisyTransceiver always yields corrupt (empty) frames.
type noisyTransceiver struct {
	receiveCalls int
}

func (n *noisyTransceiver) Send([]byte) bool { return true }
func (n *noisyTransceiver) Receive() bool    { n.receiveCalls++; return true }
func (n *noisyTransceiver) Received() []byte { return []byte{} }
func (n *noisyTransceiver) Available() bool  { return true }
