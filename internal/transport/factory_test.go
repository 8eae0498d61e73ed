package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeOptions(t *testing.T) {
	var opts SerialOptions
	err := DecodeOptions(map[string]any{
		"device":       "/dev/ttyUSB1",
		"baud_rate":    "57600",
		"read_timeout": "3ms",
	}, &opts)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB1", opts.Device)
	assert.Equal(t, 57600, opts.BaudRate)
	assert.Equal(t, 3*time.Millisecond, opts.ReadTimeout)

	err = DecodeOptions(map[string]any{"baud": 9600}, &opts)
	assert.Error(t, err)
}

func TestOpenByKind(t *testing.T) {
	tr, err := Open(KindLoopback, nil, 16)
	require.NoError(t, err)
	require.True(t, tr.Send([]byte{0x00, 0x01}))
	require.True(t, tr.Receive())
	assert.Equal(t, []byte{0x00, 0x01}, tr.Received())

	tr, err = Open(KindUDP, map[string]any{"listen": "127.0.0.1:0"}, 16)
	require.NoError(t, err)
	_, isUDP := tr.(*UDP)
	assert.True(t, isUDP)
	require.NoError(t, tr.(*UDP).Close())

	port := &fakePort{}
	withFakePort(t, port, nil)
	tr, err = Open(KindSerial, map[string]any{"device": "/dev/ttyS1"}, 16)
	require.NoError(t, err)
	_, isStream := tr.(*Stream)
	assert.True(t, isStream)

	_, err = Open("carrier-pigeon", nil, 16)
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, err = Open(KindSerial, map[string]any{}, 16)
	assert.Error(t, err)
}
