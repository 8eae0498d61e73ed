package catalog

import (
	"fmt"
	"strings"

	"firestige.xyz/packetcomm/internal/packet"
)

// Instance is a packet built from a Definition together with the storage its
// fields are bound to.
type Instance struct {
	def    Definition
	packet packet.Packet
	fields []*field
	byName map[string]*field
}

func (i *Instance) Name() string           { return i.def.Name }
func (i *Instance) Definition() Definition { return i.def }
func (i *Instance) Packet() packet.Packet  { return i.packet }

// Set parses text into the named field. Integers accept Go literal prefixes
// (0x, 0b, 0o); bytes fields take hex.
func (i *Instance) Set(name, text string) error {
	f, ok := i.byName[name]
	if !ok {
		return fmt.Errorf("packet %q has no field %q", i.def.Name, name)
	}
	if err := f.set(text); err != nil {
		return fmt.Errorf("packet %q field %q: %w", i.def.Name, name, err)
	}
	return nil
}

// Values returns the current field values keyed by field name.
func (i *Instance) Values() map[string]any {
	out := make(map[string]any, len(i.fields))
	for _, f := range i.fields {
		out[f.name] = f.get()
	}
	return out
}

// String renders the packet as name{field=value ...} in layout order.
func (i *Instance) String() string {
	var b strings.Builder
	b.WriteString(i.def.Name)
	b.WriteByte('{')
	for n, f := range i.fields {
		if n > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(f.name)
		b.WriteByte('=')
		b.WriteString(f.format())
	}
	b.WriteByte('}')
	return b.String()
}

// Set holds the instances built from one catalog.
type Set struct {
	instances []*Instance
	byName    map[string]*Instance
}

// Build allocates storage for every definition and returns the packets.
// Packets are not registered anywhere yet.
func (c *Catalog) Build() (*Set, error) {
	s := &Set{byName: make(map[string]*Instance, len(c.Packets))}
	for _, def := range c.Packets {
		inst, err := build(def)
		if err != nil {
			return nil, err
		}
		s.instances = append(s.instances, inst)
		s.byName[def.Name] = inst
	}
	return s, nil
}

func build(def Definition) (*Instance, error) {
	inst := &Instance{def: def, byName: make(map[string]*field, len(def.Fields))}
	id := packet.ID(def.ID)

	if def.Type == TypeEvent {
		inst.packet = packet.NewEventPacket(id)
		return inst, nil
	}

	dp := packet.NewDataPacket(id)
	for _, fd := range def.Fields {
		f, err := newField(fd)
		if err != nil {
			return nil, fmt.Errorf("packet %q: %w", def.Name, err)
		}
		if err := dp.Add(f.binding); err != nil {
			return nil, fmt.Errorf("packet %q: %w", def.Name, err)
		}
		inst.fields = append(inst.fields, f)
		inst.byName[f.name] = f
	}
	inst.packet = dp
	return inst, nil
}

// Instances returns the instances in catalog order.
func (s *Set) Instances() []*Instance {
	return s.instances
}

// Lookup finds an instance by packet name.
func (s *Set) Lookup(name string) (*Instance, bool) {
	inst, ok := s.byName[name]
	return inst, ok
}

// RegisterAll registers every packet with r and installs fn, if not nil, as
// the receive callback of each.
func (s *Set) RegisterAll(r interface{ Register(packet.Packet) error }, fn func(*Instance)) error {
	for _, inst := range s.instances {
		if fn != nil {
			inst := inst
			inst.packet.SetCallback(func() { fn(inst) })
		}
		if err := r.Register(inst.packet); err != nil {
			return fmt.Errorf("register %q: %w", inst.def.Name, err)
		}
	}
	return nil
}
