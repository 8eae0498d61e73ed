package packet

import (
	"fmt"
	"reflect"
)

// MatchResult classifies a registry lookup for a received payload.
type MatchResult uint8

const (
	MatchOK MatchResult = iota
	MatchTooShort
	MatchUnknownID
	MatchSizeMismatch
)

func (m MatchResult) String() string {
	switch m {
	case MatchOK:
		return "ok"
	case MatchTooShort:
		return "too_short"
	case MatchUnknownID:
		return "unknown_id"
	case MatchSizeMismatch:
		return "size_mismatch"
	default:
		return fmt.Sprintf("MatchResult(%d)", uint8(m))
	}
}

// Registry is the ordered set of packets an endpoint can receive. IDs are
// unique. Lookups scan in registration order; the set is expected to stay
// small.
type Registry struct {
	packets []Packet
}

func NewRegistry() *Registry {
	return &Registry{}
}

// IsNil reports whether p is nil or a nil pointer behind the interface.
func IsNil(p Packet) bool {
	if p == nil {
		return true
	}
	v := reflect.ValueOf(p)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

// Register adds p. Data packets are sealed so their size stays fixed.
func (r *Registry) Register(p Packet) error {
	if IsNil(p) {
		return ErrNilPacket
	}
	if _, _, exists := r.Lookup(p.ID()); exists {
		return fmt.Errorf("%w: %s already registered", ErrDuplicateID, p.ID())
	}
	if dp, ok := p.(*DataPacket); ok {
		dp.seal()
	}
	r.packets = append(r.packets, p)
	return nil
}

// Lookup returns the packet registered under id and its registration index.
func (r *Registry) Lookup(id ID) (Packet, int, bool) {
	for i, p := range r.packets {
		if p.ID() == id {
			return p, i, true
		}
	}
	return nil, -1, false
}

// Match finds the packet a received payload belongs to: the leading ID must
// be registered and the payload length must equal that packet's size.
func (r *Registry) Match(buf []byte) (Packet, int, MatchResult) {
	id, ok := ReadID(buf)
	if !ok {
		return nil, -1, MatchTooShort
	}
	p, idx, found := r.Lookup(id)
	if !found {
		return nil, -1, MatchUnknownID
	}
	if p.Size() != len(buf) {
		return nil, -1, MatchSizeMismatch
	}
	return p, idx, MatchOK
}

func (r *Registry) Len() int { return len(r.packets) }

func (r *Registry) At(i int) Packet { return r.packets[i] }

// Packets returns a copy of the registered packets in registration order.
func (r *Registry) Packets() []Packet {
	out := make([]Packet, len(r.packets))
	copy(out, r.packets)
	return out
}

// MaxSize returns the largest registered payload size.
func (r *Registry) MaxSize() int {
	max := 0
	for _, p := range r.packets {
		if s := p.Size(); s > max {
			max = s
		}
	}
	return max
}
