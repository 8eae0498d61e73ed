package transport

import "firestige.xyz/packetcomm/internal/codec"

// DefaultLoopbackDepth is how many frames a loopback end buffers.
const DefaultLoopbackDepth = 64

// Loopback is one end of an in-memory link. Frames are encoded on Send and
// decoded on Receive exactly as on a real wire.
type Loopback struct {
	peer       *Loopback
	inbox      [][]byte
	depth      int
	maxPayload int
	frame      []byte
	closed     bool
}

// NewLoopbackPair returns two connected ends.
func NewLoopbackPair(maxPayload int) (*Loopback, *Loopback) {
	a := newLoopback(maxPayload)
	b := newLoopback(maxPayload)
	a.peer, b.peer = b, a
	return a, b
}

// NewEcho returns an end whose sends arrive at itself.
func NewEcho(maxPayload int) *Loopback {
	l := newLoopback(maxPayload)
	l.peer = l
	return l
}

func newLoopback(maxPayload int) *Loopback {
	return &Loopback{
		depth:      DefaultLoopbackDepth,
		maxPayload: maxPayload,
		frame:      make([]byte, 0, maxPayload+1),
	}
}

// Send encodes payload onto the peer's inbox. It fails when either end is
// closed, the payload is too large or the peer's inbox is full.
func (l *Loopback) Send(payload []byte) bool {
	if l.closed || l.peer.closed || len(payload) > l.maxPayload {
		return false
	}
	wire, err := codec.EncodeFrame(nil, payload)
	if err != nil {
		return false
	}
	return l.peer.Inject(wire)
}

// Inject queues raw wire bytes as if they had arrived from the peer.
func (l *Loopback) Inject(wire []byte) bool {
	if l.closed || len(l.inbox) >= l.depth {
		return false
	}
	l.inbox = append(l.inbox, wire)
	return true
}

func (l *Loopback) Receive() bool {
	if len(l.inbox) == 0 {
		return false
	}
	wire := l.inbox[0]
	l.inbox[0] = nil
	l.inbox = l.inbox[1:]
	l.frame = codec.DecodeFrame(l.frame[:0], wire)
	return true
}

func (l *Loopback) Received() []byte { return l.frame }

func (l *Loopback) Available() bool { return len(l.inbox) > 0 }

// Pending returns the number of queued frames.
func (l *Loopback) Pending() int { return len(l.inbox) }

func (l *Loopback) Close() error {
	l.closed = true
	l.inbox = nil
	return nil
}
