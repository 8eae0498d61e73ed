package codec

// FrameReader splits a byte stream into stuffed frame bodies at each
// Delimiter. Bodies longer than the configured maximum are discarded and the
// reader skips everything up to the next delimiter.
type FrameReader struct {
	buf       []byte
	max       int
	skipping  bool
	overflows uint64
}

// NewFrameReader returns a reader accepting stuffed bodies of at most
// maxFrameSize bytes, excluding the delimiter.
func NewFrameReader(maxFrameSize int) *FrameReader {
	if maxFrameSize < 1 {
		maxFrameSize = 1
	}
	return &FrameReader{
		buf: make([]byte, 0, maxFrameSize),
		max: maxFrameSize,
	}
}

// NewFrameReaderForPayload sizes the reader so that any payload of up to
// maxPayload bytes fits once framed.
func NewFrameReaderForPayload(maxPayload int) *FrameReader {
	return NewFrameReader(MaxEncodedLen(maxPayload + 1))
}

// Push feeds one byte. When b completes a frame, the stuffed body is returned
// with done set; the body aliases internal storage and is valid until the
// next call. A delimiter closing an oversized or empty run yields a nil body
// with done set, so callers can count it as a failed frame.
func (r *FrameReader) Push(b byte) (body []byte, done bool) {
	if b == Delimiter {
		if r.skipping {
			r.skipping = false
			r.buf = r.buf[:0]
			return nil, true
		}
		body = r.buf
		r.buf = r.buf[:0]
		return body, true
	}
	if r.skipping {
		return nil, false
	}
	if len(r.buf)+1 > r.max {
		r.skipping = true
		r.overflows++
		r.buf = r.buf[:0]
		return nil, false
	}
	r.buf = append(r.buf, b)
	return nil, false
}

// Pending reports the number of buffered bytes of an incomplete frame.
func (r *FrameReader) Pending() int {
	return len(r.buf)
}

// Overflows returns how many frames were discarded for exceeding the limit.
func (r *FrameReader) Overflows() uint64 {
	return r.overflows
}

// MaxFrameSize returns the configured body limit.
func (r *FrameReader) MaxFrameSize() int {
	return r.max
}

// Reset drops any partial frame and leaves skip mode.
func (r *FrameReader) Reset() {
	r.buf = r.buf[:0]
	r.skipping = false
}
