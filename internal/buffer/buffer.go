// Package buffer provides the growable byte storage used on the send and
// receive paths, and helpers for non-owning byte views.
package buffer

import (
	"errors"
	"fmt"
	"unsafe"
)

var (
	// ErrLimitExceeded is returned when growth would pass the hard limit.
	ErrLimitExceeded = errors.New("buffer: capacity limit exceeded")
)

// Growth policy for EnsureCapacity.
const (
	DiscardContent = false
	KeepContent    = true
)

// Buffer owns a byte region with an explicit length. Growth is lazy and
// optionally capped by a hard limit; a zero limit means unbounded.
type Buffer struct {
	data  []byte
	limit int
}

// New returns a buffer with the given initial capacity and hard limit.
func New(capacity, limit int) *Buffer {
	if capacity < 0 {
		capacity = 0
	}
	return &Buffer{
		data:  make([]byte, 0, capacity),
		limit: limit,
	}
}

// EnsureCapacity makes room for at least min bytes. With keep set the current
// content survives a reallocation; otherwise the length is reset to zero
// whenever the buffer has to grow.
func (b *Buffer) EnsureCapacity(min int, keep bool) error {
	if min <= cap(b.data) {
		return nil
	}
	if b.limit > 0 && min > b.limit {
		return fmt.Errorf("%w: need %d, limit %d", ErrLimitExceeded, min, b.limit)
	}
	grown := make([]byte, 0, min)
	if keep {
		grown = append(grown, b.data...)
	}
	b.data = grown
	return nil
}

// SetLen sets the length of the valid region. It panics if n is outside
// [0, Cap()].
func (b *Buffer) SetLen(n int) {
	b.data = b.data[:n]
}

// Bytes returns a view of the valid region.
func (b *Buffer) Bytes() []byte { return b.data }

// Full returns a view of the whole capacity, for writers that report how much
// they filled.
func (b *Buffer) Full() []byte { return b.data[:cap(b.data)] }

// Len returns the length of the valid region.
func (b *Buffer) Len() int { return len(b.data) }

// Cap returns the current capacity.
func (b *Buffer) Cap() int { return cap(b.data) }

// Limit returns the hard limit, zero when unbounded.
func (b *Buffer) Limit() int { return b.limit }

// Reset empties the valid region without releasing storage.
func (b *Buffer) Reset() { b.data = b.data[:0] }

// Clone returns a deep copy of v that shares no storage with it.
func Clone(v []byte) []byte {
	if v == nil {
		return nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out
}

// SameView reports whether a and b view the same storage with the same
// length. Content is not compared.
func SameView(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	if len(a) == 0 {
		return unsafe.SliceData(a) == unsafe.SliceData(b)
	}
	return &a[0] == &b[0]
}
