// Package transport provides Transceiver implementations over byte streams,
// serial ports, UDP sockets and in-memory links. All of them carry payloads
// in the frame format of the codec package.
package transport

import (
	"errors"
	"io"

	"firestige.xyz/packetcomm/internal/codec"
)

const readChunk = 256

// Stream frames payloads over a byte stream. Reads must return promptly when
// no data is pending (a read timeout on serial ports, EOF on buffers);
// Receive keeps reading until it completes a frame or a read comes back
// empty.
type Stream struct {
	rw         io.ReadWriter
	reader     *codec.FrameReader
	maxPayload int

	chunk   []byte
	pending []byte
	frame   []byte
	out     []byte
	err     error
}

// NewStream wraps rw, accepting payloads of at most maxPayload bytes.
func NewStream(rw io.ReadWriter, maxPayload int) *Stream {
	return &Stream{
		rw:         rw,
		reader:     codec.NewFrameReaderForPayload(maxPayload),
		maxPayload: maxPayload,
		chunk:      make([]byte, readChunk),
		frame:      make([]byte, 0, maxPayload+1),
		out:        make([]byte, 0, codec.MaxEncodedLen(maxPayload+1)+1),
	}
}

func (s *Stream) Send(payload []byte) bool {
	if len(payload) > s.maxPayload {
		return false
	}
	var err error
	s.out, err = codec.EncodeFrame(s.out[:0], payload)
	if err != nil {
		return false
	}
	if _, err = s.rw.Write(s.out); err != nil {
		s.err = err
		return false
	}
	return true
}

// Receive reports true each time a delimiter closes a frame. Frames that fail
// decoding, or overflowed the size limit, leave Received empty. One call
// consumes at most one maximum frame plus one read chunk; a stream without
// delimiters makes it return false with the rest left pending.
func (s *Stream) Receive() bool {
	budget := s.reader.MaxFrameSize() + 1 + readChunk
	for consumed := 0; ; {
		for len(s.pending) > 0 {
			if consumed >= budget {
				return false
			}
			consumed++
			b := s.pending[0]
			s.pending = s.pending[1:]
			if body, done := s.reader.Push(b); done {
				s.frame = codec.DecodeFrame(s.frame[:0], body)
				return true
			}
		}
		n, err := s.rw.Read(s.chunk)
		if err != nil && !errors.Is(err, io.EOF) {
			s.err = err
		}
		if n == 0 {
			return false
		}
		s.pending = s.chunk[:n]
	}
}

func (s *Stream) Received() []byte { return s.frame }

// Err returns the last read or write error.
func (s *Stream) Err() error { return s.err }

// Overflows returns how many frames were dropped for exceeding the size limit.
func (s *Stream) Overflows() uint64 { return s.reader.Overflows() }

// Close closes the underlying stream when it is closable.
func (s *Stream) Close() error {
	if c, ok := s.rw.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
