package transport

import (
	"io"

	"firestige.xyz/packetcomm/internal/comm"
)

// Observer sees every non-empty payload received through an observed
// transceiver, before the engine dispatches it. The slice must not be
// retained.
type Observer func(payload []byte)

type observed struct {
	comm.Transceiver
	observers []Observer
}

// Observe wraps t so that each received payload is also passed to the
// observers. The wrapper keeps t's Availabler capability.
func Observe(t comm.Transceiver, observers ...Observer) comm.Transceiver {
	o := &observed{Transceiver: t, observers: observers}
	if av, ok := t.(comm.Availabler); ok {
		return &observedAvailable{observed: o, avail: av}
	}
	return o
}

func (o *observed) Receive() bool {
	if !o.Transceiver.Receive() {
		return false
	}
	if payload := o.Transceiver.Received(); len(payload) > 0 {
		for _, fn := range o.observers {
			fn(payload)
		}
	}
	return true
}

func (o *observed) Close() error {
	if c, ok := o.Transceiver.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

type observedAvailable struct {
	*observed
	avail comm.Availabler
}

func (o *observedAvailable) Available() bool { return o.avail.Available() }
