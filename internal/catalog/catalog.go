// Package catalog reads declarative packet layouts and turns them into
// registered packets backed by catalog-owned storage.
package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	ErrInvalid = errors.New("catalog: invalid definition")
)

// Packet types.
const (
	TypeData  = "data"
	TypeEvent = "event"
)

// Catalog is the file root.
type Catalog struct {
	Packets []Definition `yaml:"packets" json:"packets"`
}

// Definition describes one packet layout.
type Definition struct {
	ID     int        `yaml:"id" json:"id"`
	Name   string     `yaml:"name" json:"name"`
	Type   string     `yaml:"type" json:"type"` // data | event, default data
	Fields []FieldDef `yaml:"fields,omitempty" json:"fields,omitempty"`
}

// FieldDef describes one field. Size is only meaningful for the bytes kind.
type FieldDef struct {
	Name string `yaml:"name" json:"name"`
	Kind string `yaml:"kind" json:"kind"`
	Size int    `yaml:"size,omitempty" json:"size,omitempty"`
}

// Load reads and validates a catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse decodes data as JSON when filename ends in .json and as YAML
// otherwise, then validates it. Unknown keys are rejected.
func Parse(data []byte, filename string) (*Catalog, error) {
	var c Catalog
	if strings.EqualFold(filepath.Ext(filename), ".json") {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&c); err != nil {
			return nil, fmt.Errorf("failed to parse catalog %s: %w", filename, err)
		}
	} else {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&c); err != nil {
			return nil, fmt.Errorf("failed to parse catalog %s: %w", filename, err)
		}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks IDs and names are unique and every layout is well formed.
// It fills in the default packet type.
func (c *Catalog) Validate() error {
	if len(c.Packets) == 0 {
		return fmt.Errorf("%w: no packets defined", ErrInvalid)
	}
	ids := make(map[int]string, len(c.Packets))
	names := make(map[string]bool, len(c.Packets))

	for i := range c.Packets {
		d := &c.Packets[i]
		if d.Name == "" {
			return fmt.Errorf("%w: packet[%d]: name is required", ErrInvalid, i)
		}
		if names[d.Name] {
			return fmt.Errorf("%w: packet %q defined twice", ErrInvalid, d.Name)
		}
		names[d.Name] = true

		if d.ID < 0 || d.ID > 0xFFFF {
			return fmt.Errorf("%w: packet %q: id %d out of range 0-65535", ErrInvalid, d.Name, d.ID)
		}
		if other, dup := ids[d.ID]; dup {
			return fmt.Errorf("%w: packet %q reuses id %d of %q", ErrInvalid, d.Name, d.ID, other)
		}
		ids[d.ID] = d.Name

		if d.Type == "" {
			d.Type = TypeData
		}
		switch d.Type {
		case TypeEvent:
			if len(d.Fields) > 0 {
				return fmt.Errorf("%w: event packet %q cannot have fields", ErrInvalid, d.Name)
			}
		case TypeData:
			if err := validateFields(d); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: packet %q: type must be 'data' or 'event', got %q", ErrInvalid, d.Name, d.Type)
		}
	}
	return nil
}

func validateFields(d *Definition) error {
	seen := make(map[string]bool, len(d.Fields))
	for j, f := range d.Fields {
		if f.Name == "" {
			return fmt.Errorf("%w: packet %q: field[%d]: name is required", ErrInvalid, d.Name, j)
		}
		if seen[f.Name] {
			return fmt.Errorf("%w: packet %q: field %q defined twice", ErrInvalid, d.Name, f.Name)
		}
		seen[f.Name] = true

		if _, ok := kinds[f.Kind]; !ok {
			return fmt.Errorf("%w: packet %q: field %q: unknown kind %q", ErrInvalid, d.Name, f.Name, f.Kind)
		}
		if f.Kind == KindBytes && f.Size <= 0 {
			return fmt.Errorf("%w: packet %q: field %q: bytes kind requires size > 0", ErrInvalid, d.Name, f.Name)
		}
		if f.Kind != KindBytes && f.Size != 0 {
			return fmt.Errorf("%w: packet %q: field %q: size only applies to bytes", ErrInvalid, d.Name, f.Name)
		}
	}
	return nil
}

// PayloadSize returns the wire payload size of d, ID included.
func (d Definition) PayloadSize() int {
	size := 2
	for _, f := range d.Fields {
		if f.Kind == KindBytes {
			size += f.Size
			continue
		}
		size += kinds[f.Kind]
	}
	return size
}
