package catalog

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"firestige.xyz/packetcomm/internal/packet"
)

// Field kinds.
const (
	KindUint8   = "uint8"
	KindInt8    = "int8"
	KindBool    = "bool"
	KindUint16  = "uint16"
	KindInt16   = "int16"
	KindUint32  = "uint32"
	KindInt32   = "int32"
	KindUint64  = "uint64"
	KindInt64   = "int64"
	KindFloat32 = "float32"
	KindFloat64 = "float64"
	KindBytes   = "bytes"
)

// kinds maps each kind to its fixed width; bytes takes its width from Size.
var kinds = map[string]int{
	KindUint8: 1, KindInt8: 1, KindBool: 1,
	KindUint16: 2, KindInt16: 2,
	KindUint32: 4, KindInt32: 4, KindFloat32: 4,
	KindUint64: 8, KindInt64: 8, KindFloat64: 8,
	KindBytes: 0,
}

// field owns the storage a binding writes through.
type field struct {
	name    string
	kind    string
	binding packet.Binding
	get     func() any
	set     func(string) error
}

type unsigned interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

type signed interface {
	~int8 | ~int16 | ~int32 | ~int64
}

func unsignedField[T unsigned](f *field, bits int, bind func(*T) packet.Binding) {
	v := new(T)
	f.binding = bind(v)
	f.get = func() any { return *v }
	f.set = func(s string) error {
		n, err := strconv.ParseUint(s, 0, bits)
		if err != nil {
			return err
		}
		*v = T(n)
		return nil
	}
}

func signedField[T signed](f *field, bits int, bind func(*T) packet.Binding) {
	v := new(T)
	f.binding = bind(v)
	f.get = func() any { return *v }
	f.set = func(s string) error {
		n, err := strconv.ParseInt(s, 0, bits)
		if err != nil {
			return err
		}
		*v = T(n)
		return nil
	}
}

func newField(def FieldDef) (*field, error) {
	f := &field{name: def.Name, kind: def.Kind}
	switch def.Kind {
	case KindUint8:
		unsignedField(f, 8, packet.Uint8)
	case KindUint16:
		unsignedField(f, 16, packet.Uint16)
	case KindUint32:
		unsignedField(f, 32, packet.Uint32)
	case KindUint64:
		unsignedField(f, 64, packet.Uint64)
	case KindInt8:
		signedField(f, 8, packet.Int8)
	case KindInt16:
		signedField(f, 16, packet.Int16)
	case KindInt32:
		signedField(f, 32, packet.Int32)
	case KindInt64:
		signedField(f, 64, packet.Int64)
	case KindBool:
		v := new(bool)
		f.binding = packet.Bool(v)
		f.get = func() any { return *v }
		f.set = func(s string) error {
			b, err := strconv.ParseBool(s)
			if err != nil {
				return err
			}
			*v = b
			return nil
		}
	case KindFloat32:
		v := new(float32)
		f.binding = packet.Float32(v)
		f.get = func() any { return *v }
		f.set = func(s string) error {
			n, err := strconv.ParseFloat(s, 32)
			if err != nil {
				return err
			}
			*v = float32(n)
			return nil
		}
	case KindFloat64:
		v := new(float64)
		f.binding = packet.Float64(v)
		f.get = func() any { return *v }
		f.set = func(s string) error {
			n, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return err
			}
			*v = n
			return nil
		}
	case KindBytes:
		v := make([]byte, def.Size)
		f.binding = packet.Bytes(v)
		f.get = func() any { return append([]byte(nil), v...) }
		f.set = func(s string) error {
			raw, err := hex.DecodeString(s)
			if err != nil {
				return err
			}
			if len(raw) != len(v) {
				return fmt.Errorf("want %d bytes, got %d", len(v), len(raw))
			}
			copy(v, raw)
			return nil
		}
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalid, def.Kind)
	}
	return f, nil
}

// format renders the current value for logs.
func (f *field) format() string {
	if f.kind == KindBytes {
		return hex.EncodeToString(f.get().([]byte))
	}
	return fmt.Sprint(f.get())
}
