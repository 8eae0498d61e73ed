package codec

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func patterned(n int, zeroEvery int) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = byte(i*7 + 1)
		if zeroEvery > 0 && i%zeroEvery == 0 {
			p[i] = 0
		}
	}
	return p
}

func TestChecksum(t *testing.T) {
	assert.Equal(t, byte(0), Checksum(nil))
	assert.Equal(t, byte(0x01^0x02^0x04), Checksum([]byte{0x01, 0x02, 0x04}))
	assert.Equal(t, byte(0), Checksum([]byte{0xAA, 0xAA}))
}

func TestStuffKnownVectors(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want []byte
	}{
		{"single zero", []byte{0x00}, []byte{0x01, 0x01}},
		{"two zeros", []byte{0x00, 0x00}, []byte{0x01, 0x01, 0x01}},
		{"mixed", []byte{0x11, 0x22, 0x00, 0x33}, []byte{0x03, 0x11, 0x22, 0x02, 0x33}},
		{"no zeros", []byte{0x11, 0x22, 0x33, 0x44}, []byte{0x05, 0x11, 0x22, 0x33, 0x44}},
		{"trailing zero", []byte{0x11, 0x00}, []byte{0x02, 0x11, 0x01}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Stuff(nil, tt.in)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Stuff() mismatch (-want +got):\n%s", diff)
			}
			back, ok := Unstuff(nil, got)
			require.True(t, ok)
			assert.Equal(t, tt.in, back)
		})
	}
}

func TestStuffLongRuns(t *testing.T) {
	for _, n := range []int{253, 254, 255, 508, 600} {
		in := bytes.Repeat([]byte{0x42}, n)
		out := Stuff(nil, in)
		assert.NotContains(t, out, Delimiter, "n=%d", n)
		assert.LessOrEqual(t, len(out), MaxEncodedLen(n), "n=%d", n)
		back, ok := Unstuff(nil, out)
		require.True(t, ok, "n=%d", n)
		assert.Equal(t, in, back, "n=%d", n)
	}
}

func TestUnstuffRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
	}{
		{"empty", nil},
		{"zero code", []byte{0x00, 0x11}},
		{"code past end", []byte{0x05, 0x11, 0x22}},
		{"embedded zero", []byte{0x03, 0x11, 0x00}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := Unstuff(nil, tt.in)
			assert.False(t, ok)
		})
	}
}

func TestEncodeFrameLayout(t *testing.T) {
	frame, err := EncodeFrame(nil, []byte{0x00, 0x01, 3, 7})
	require.NoError(t, err)
	// payload ++ xor = 00 01 03 07 05
	want := []byte{0x01, 0x05, 0x01, 0x03, 0x07, 0x05, 0x00}
	if diff := cmp.Diff(want, frame); diff != "" {
		t.Errorf("EncodeFrame() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 1, bytes.Count(frame, []byte{Delimiter}))
	assert.Equal(t, Delimiter, frame[len(frame)-1])
}

func TestEncodeFrameRejectsEmptyPayload(t *testing.T) {
	out, err := EncodeFrame([]byte{0xAB}, nil)
	assert.ErrorIs(t, err, ErrEmptyPayload)
	assert.Equal(t, []byte{0xAB}, out)
}

func TestFrameRoundTrip(t *testing.T) {
	const maxFrameSize = 300
	for n := 1; n < maxFrameSize; n++ {
		payload := patterned(n, 5)
		frame, err := EncodeFrame(nil, payload)
		require.NoError(t, err)
		got := DecodeFrame(nil, frame)
		if !bytes.Equal(payload, got) {
			t.Fatalf("round trip failed for length %d", n)
		}
	}
}

func TestDecodeFrameAppendsToDst(t *testing.T) {
	frame, err := EncodeFrame(nil, []byte{9, 8, 7})
	require.NoError(t, err)
	dst := []byte{1, 2}
	out := DecodeFrame(dst, frame[:len(frame)-1])
	assert.Equal(t, []byte{1, 2, 9, 8, 7}, out)
}

func TestDecodeFrameFailuresYieldEmpty(t *testing.T) {
	tests := []struct {
		name string
		body []byte
	}{
		{"empty", nil},
		{"delimiter only", []byte{0x00}},
		{"checksum only", Stuff(nil, []byte{0x00})},
		{"bad checksum", Stuff(nil, []byte{0x01, 0x02, 0xFF})},
		{"malformed stuffing", []byte{0x09, 0x01}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, DecodeFrame(nil, tt.body), 0)
		})
	}
}

func TestChecksumDetectsSingleBitFlips(t *testing.T) {
	payload := patterned(40, 9)
	raw := append(append([]byte{}, payload...), Checksum(payload))
	for i := 0; i < len(payload); i++ {
		for bit := 0; bit < 8; bit++ {
			corrupted := append([]byte{}, raw...)
			corrupted[i] ^= 1 << bit
			body := Stuff(nil, corrupted)
			assert.Len(t, DecodeFrame(nil, body), 0, "byte %d bit %d", i, bit)
		}
	}
}

func TestChecksumDetectsFlipsInEncodedFrame(t *testing.T) {
	payload := []byte{0x10, 0x20, 0x30, 0x40, 0x50}
	frame, err := EncodeFrame(nil, payload)
	require.NoError(t, err)
	body := frame[:len(frame)-1]
	// payload has no zeros, so body[0] is the only code byte
	for i := 1; i <= len(payload); i++ {
		for bit := 0; bit < 8; bit++ {
			corrupted := append([]byte{}, body...)
			corrupted[i] ^= 1 << bit
			assert.Len(t, DecodeFrame(nil, corrupted), 0, "byte %d bit %d", i, bit)
		}
	}
}

func TestFrameReaderSplitsStream(t *testing.T) {
	var stream []byte
	payloads := [][]byte{{1, 2, 3}, {0, 0, 4}, {5}}
	for _, p := range payloads {
		var err error
		stream, err = EncodeFrame(stream, p)
		require.NoError(t, err)
	}

	r := NewFrameReaderForPayload(16)
	var got [][]byte
	for _, b := range stream {
		if body, done := r.Push(b); done {
			got = append(got, DecodeFrame(nil, body))
		}
	}
	assert.Equal(t, payloads, got)
	assert.Zero(t, r.Pending())
}

func TestFrameReaderResyncsAfterOverflow(t *testing.T) {
	r := NewFrameReader(4)
	good, err := EncodeFrame(nil, []byte{0x01, 0x02})
	require.NoError(t, err)

	stream := append(bytes.Repeat([]byte{0x11}, 10), Delimiter)
	stream = append(stream, good...)

	var bodies [][]byte
	var failed int
	for _, b := range stream {
		body, done := r.Push(b)
		if !done {
			continue
		}
		if body == nil {
			failed++
			continue
		}
		bodies = append(bodies, DecodeFrame(nil, body))
	}
	assert.Equal(t, 1, failed)
	assert.Equal(t, uint64(1), r.Overflows())
	require.Len(t, bodies, 1)
	assert.Equal(t, []byte{0x01, 0x02}, bodies[0])
}

func TestFrameReaderReset(t *testing.T) {
	r := NewFrameReader(8)
	r.Push(0x05)
	r.Push(0x06)
	assert.Equal(t, 2, r.Pending())
	r.Reset()
	assert.Zero(t, r.Pending())
	assert.Equal(t, 8, r.MaxFrameSize())
}
