package transport

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/packetcomm/internal/codec"
)

// pipe reads from in and writes to out; reads return EOF when in is drained.
type pipe struct {
	in  bytes.Buffer
	out bytes.Buffer
}

func (p *pipe) Read(b []byte) (int, error)  { return p.in.Read(b) }
func (p *pipe) Write(b []byte) (int, error) { return p.out.Write(b) }

type failingWriter struct{ pipe }

func (f *failingWriter) Write([]byte) (int, error) { return 0, errors.New("unplugged") }

func frame(t *testing.T, payload []byte) []byte {
	t.Helper()
	out, err := codec.EncodeFrame(nil, payload)
	require.NoError(t, err)
	return out
}

func TestStreamSendWritesFrame(t *testing.T) {
	p := &pipe{}
	s := NewStream(p, 32)

	require.True(t, s.Send([]byte{0x00, 0x01, 3, 7}))
	assert.Equal(t, frame(t, []byte{0x00, 0x01, 3, 7}), p.out.Bytes())

	assert.False(t, s.Send(nil))
	assert.False(t, s.Send(make([]byte, 33)))
}

func TestStreamSendReportsWriteError(t *testing.T) {
	s := NewStream(&failingWriter{}, 8)
	assert.False(t, s.Send([]byte{1}))
	assert.EqualError(t, s.Err(), "unplugged")
}

func TestStreamReceiveFrames(t *testing.T) {
	p := &pipe{}
	p.in.Write(frame(t, []byte{0x00, 0x02}))
	p.in.Write([]byte{0x03, 0x11, 0x22, 0x00}) // bad checksum
	p.in.Write(frame(t, []byte{0x00, 0x05, 0x00, 0x09}))
	p.in.Write([]byte{0x02, 0x44}) // incomplete
	s := NewStream(p, 32)

	require.True(t, s.Receive())
	assert.Equal(t, []byte{0x00, 0x02}, s.Received())

	require.True(t, s.Receive())
	assert.Empty(t, s.Received())

	require.True(t, s.Receive())
	assert.Equal(t, []byte{0x00, 0x05, 0x00, 0x09}, s.Received())

	assert.False(t, s.Receive())
	assert.NoError(t, s.Err())

	p.in.Write([]byte{0x01, 0x00})
	// completes the partial frame: 02 44 01 -> [44 00], checksum 0x00 != 0x44
	require.True(t, s.Receive())
	assert.Empty(t, s.Received())
}

func TestStreamReceiveAcrossChunks(t *testing.T) {
	p := &pipe{}
	payload := bytes.Repeat([]byte{0xAB}, 200)
	for i := 0; i < 3; i++ {
		p.in.Write(frame(t, payload))
	}
	s := NewStream(p, 255)

	for i := 0; i < 3; i++ {
		require.True(t, s.Receive(), "frame %d", i)
		assert.Equal(t, payload, s.Received())
	}
	assert.False(t, s.Receive())
}

func TestStreamDropsOversizedFrames(t *testing.T) {
	p := &pipe{}
	p.in.Write(frame(t, bytes.Repeat([]byte{0x01}, 40)))
	p.in.Write(frame(t, []byte{0x00, 0x07}))
	s := NewStream(p, 8)

	require.True(t, s.Receive())
	assert.Empty(t, s.Received())
	assert.Equal(t, uint64(1), s.Overflows())

	require.True(t, s.Receive())
	assert.Equal(t, []byte{0x00, 0x07}, s.Received())
}

// noise never runs dry and never sends a delimiter.
type noise struct {
	read int
}

func (n *noise) Read(b []byte) (int, error) {
	for i := range b {
		b[i] = 0x11
	}
	n.read += len(b)
	return len(b), nil
}

func (n *noise) Write(b []byte) (int, error) { return len(b), nil }

func TestStreamReceiveIsBoundedOnEndlessInput(t *testing.T) {
	src := &noise{}
	s := NewStream(src, 8)
	budget := s.reader.MaxFrameSize() + 1 + readChunk

	assert.False(t, s.Receive())
	assert.LessOrEqual(t, src.read, budget+readChunk)
	assert.Equal(t, uint64(1), s.Overflows())

	assert.False(t, s.Receive())
	assert.LessOrEqual(t, src.read, 2*(budget+readChunk))
}

func TestStreamReceiveResumesPendingBytes(t *testing.T) {
	p := &pipe{}
	p.in.Write(bytes.Repeat([]byte{0x11}, 300))
	p.in.WriteByte(codec.Delimiter)
	p.in.Write(frame(t, []byte{0x00, 0x07}))
	s := NewStream(p, 8)

	var got []byte
	for i := 0; i < 4 && got == nil; i++ {
		if s.Receive() && len(s.Received()) > 0 {
			got = append([]byte(nil), s.Received()...)
		}
	}
	assert.Equal(t, []byte{0x00, 0x07}, got)
}

func TestStreamCloseWithoutCloser(t *testing.T) {
	assert.NoError(t, NewStream(&pipe{}, 4).Close())
}
