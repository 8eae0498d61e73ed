package comm

// Transceiver moves payloads between endpoints. Framing, checksums and the
// physical transport are its business; the engine only sees payloads.
//
// Receive must not block for long: it reports whether a frame was taken off
// the transport, and Received then returns that frame's payload, which is
// empty when the frame failed its integrity check. The returned slice is only
// valid until the next Receive.
type Transceiver interface {
	Send(payload []byte) bool
	Receive() bool
	Received() []byte
}

// Availabler is implemented by transceivers that can tell whether more
// input is pending without consuming it.
type Availabler interface {
	Available() bool
}
