// Package packet defines the typed, fixed-layout packets exchanged between
// endpoints and the registry used to dispatch received payloads to them.
//
// A payload is the packet ID (IDSize bytes, big-endian) followed by the bytes
// of each field binding in the order the bindings were added. Event packets
// carry the ID only.
package packet

import "fmt"

// Kind distinguishes the two packet variants.
type Kind uint8

const (
	KindData Kind = iota
	KindEvent
)

func (k Kind) String() string {
	switch k {
	case KindData:
		return "data"
	case KindEvent:
		return "event"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Packet is the behavior shared by data and event packets.
type Packet interface {
	ID() ID
	Kind() Kind
	// Size is the payload length including the ID.
	Size() int
	// SerializeInto writes the payload into buf and returns the number of
	// bytes written, or 0 when buf is shorter than Size.
	SerializeInto(buf []byte) int
	// ApplyFrom copies a received payload into the bound variables. It
	// reports false, without touching anything, unless buf carries this
	// packet's ID and is exactly Size bytes long.
	ApplyFrom(buf []byte) bool
	// OnReceive runs the receive callback, if any.
	OnReceive()
	SetCallback(fn func())
}

type header struct {
	id       ID
	callback func()
}

func (h *header) ID() ID                { return h.id }
func (h *header) SetCallback(fn func()) { h.callback = fn }

func (h *header) OnReceive() {
	if h.callback != nil {
		h.callback()
	}
}

func (h *header) matches(buf []byte, size int) bool {
	if len(buf) != size {
		return false
	}
	id, ok := ReadID(buf)
	return ok && id == h.id
}

// DataPacket carries an ordered list of field bindings.
type DataPacket struct {
	header
	bindings []Binding
	size     int
	sealed   bool
}

// NewDataPacket returns a data packet with the given bindings. Nil bindings
// are skipped.
func NewDataPacket(id ID, bindings ...Binding) *DataPacket {
	p := &DataPacket{header: header{id: id}, size: IDSize}
	for _, b := range bindings {
		_ = p.Add(b)
	}
	return p
}

// Add appends a binding to the layout. It fails once the packet has been
// registered.
func (p *DataPacket) Add(b Binding) error {
	if p.sealed {
		return fmt.Errorf("%w: packet %s", ErrPacketSealed, p.id)
	}
	if b == nil {
		return ErrNilBinding
	}
	p.bindings = append(p.bindings, b)
	p.size += b.Width()
	return nil
}

func (p *DataPacket) Kind() Kind { return KindData }
func (p *DataPacket) Size() int  { return p.size }

// Fields returns the number of bindings.
func (p *DataPacket) Fields() int { return len(p.bindings) }

func (p *DataPacket) SerializeInto(buf []byte) int {
	if len(buf) < p.size {
		return 0
	}
	PutID(buf, p.id)
	off := IDSize
	for _, b := range p.bindings {
		w := b.Width()
		b.Put(buf[off : off+w])
		off += w
	}
	return off
}

func (p *DataPacket) ApplyFrom(buf []byte) bool {
	if !p.matches(buf, p.size) {
		return false
	}
	off := IDSize
	for _, b := range p.bindings {
		w := b.Width()
		b.Load(buf[off : off+w])
		off += w
	}
	return true
}

func (p *DataPacket) seal() { p.sealed = true }

// EventPacket carries no fields; receiving it only triggers the callback.
type EventPacket struct {
	header
}

func NewEventPacket(id ID) *EventPacket {
	return &EventPacket{header: header{id: id}}
}

func (p *EventPacket) Kind() Kind { return KindEvent }
func (p *EventPacket) Size() int  { return IDSize }

func (p *EventPacket) SerializeInto(buf []byte) int {
	if len(buf) < IDSize {
		return 0
	}
	PutID(buf, p.id)
	return IDSize
}

func (p *EventPacket) ApplyFrom(buf []byte) bool {
	return p.matches(buf, IDSize)
}
