package packet

import (
	"encoding/binary"
	"math"
)

// Binding ties a fixed-width region of a packet payload to an
// application-owned variable. Multi-byte values travel big-endian.
type Binding interface {
	// Width is the number of payload bytes the binding occupies.
	Width() int
	// Put writes the bound value into dst[:Width()].
	Put(dst []byte)
	// Load overwrites the bound value from src[:Width()].
	Load(src []byte)
}

type scalar[T any] struct {
	ptr   *T
	width int
	put   func([]byte, T)
	load  func([]byte) T
}

func (s *scalar[T]) Width() int      { return s.width }
func (s *scalar[T]) Put(dst []byte)  { s.put(dst, *s.ptr) }
func (s *scalar[T]) Load(src []byte) { *s.ptr = s.load(src) }

func Uint8(p *uint8) Binding {
	return &scalar[uint8]{ptr: p, width: 1,
		put:  func(b []byte, v uint8) { b[0] = v },
		load: func(b []byte) uint8 { return b[0] },
	}
}

func Int8(p *int8) Binding {
	return &scalar[int8]{ptr: p, width: 1,
		put:  func(b []byte, v int8) { b[0] = byte(v) },
		load: func(b []byte) int8 { return int8(b[0]) },
	}
}

func Bool(p *bool) Binding {
	return &scalar[bool]{ptr: p, width: 1,
		put: func(b []byte, v bool) {
			b[0] = 0
			if v {
				b[0] = 1
			}
		},
		load: func(b []byte) bool { return b[0] != 0 },
	}
}

func Uint16(p *uint16) Binding {
	return &scalar[uint16]{ptr: p, width: 2,
		put:  binary.BigEndian.PutUint16,
		load: binary.BigEndian.Uint16,
	}
}

func Int16(p *int16) Binding {
	return &scalar[int16]{ptr: p, width: 2,
		put:  func(b []byte, v int16) { binary.BigEndian.PutUint16(b, uint16(v)) },
		load: func(b []byte) int16 { return int16(binary.BigEndian.Uint16(b)) },
	}
}

func Uint32(p *uint32) Binding {
	return &scalar[uint32]{ptr: p, width: 4,
		put:  binary.BigEndian.PutUint32,
		load: binary.BigEndian.Uint32,
	}
}

func Int32(p *int32) Binding {
	return &scalar[int32]{ptr: p, width: 4,
		put:  func(b []byte, v int32) { binary.BigEndian.PutUint32(b, uint32(v)) },
		load: func(b []byte) int32 { return int32(binary.BigEndian.Uint32(b)) },
	}
}

func Uint64(p *uint64) Binding {
	return &scalar[uint64]{ptr: p, width: 8,
		put:  binary.BigEndian.PutUint64,
		load: binary.BigEndian.Uint64,
	}
}

func Int64(p *int64) Binding {
	return &scalar[int64]{ptr: p, width: 8,
		put:  func(b []byte, v int64) { binary.BigEndian.PutUint64(b, uint64(v)) },
		load: func(b []byte) int64 { return int64(binary.BigEndian.Uint64(b)) },
	}
}

func Float32(p *float32) Binding {
	return &scalar[float32]{ptr: p, width: 4,
		put:  func(b []byte, v float32) { binary.BigEndian.PutUint32(b, math.Float32bits(v)) },
		load: func(b []byte) float32 { return math.Float32frombits(binary.BigEndian.Uint32(b)) },
	}
}

func Float64(p *float64) Binding {
	return &scalar[float64]{ptr: p, width: 8,
		put:  func(b []byte, v float64) { binary.BigEndian.PutUint64(b, math.Float64bits(v)) },
		load: func(b []byte) float64 { return math.Float64frombits(binary.BigEndian.Uint64(b)) },
	}
}

type rawBytes []byte

func (r rawBytes) Width() int      { return len(r) }
func (r rawBytes) Put(dst []byte)  { copy(dst, r) }
func (r rawBytes) Load(src []byte) { copy(r, src) }

// Bytes binds a fixed-length byte region. The binding writes through view,
// so its length is the field width.
func Bytes(view []byte) Binding {
	return rawBytes(view)
}
