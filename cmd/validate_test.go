package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunValidate(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, runValidate(writeFixture(t, ""), &buf))

	out := buf.String()
	assert.Contains(t, out, "VALID: loopback transport, 2 packet(s)")
	assert.Contains(t, out, "0x0001 steering")
	assert.Contains(t, out, "0x0002 arm")
}

func TestRunValidateFrameTooSmall(t *testing.T) {
	var buf bytes.Buffer
	err := runValidate(writeFixture(t, "    max_frame_size: 3\n"), &buf)
	assert.ErrorContains(t, err, `packet "steering" needs 4 bytes`)
}

func TestRunValidateMissingConfig(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, runValidate("/nonexistent/packetcomm.yml", &buf))
	assert.Empty(t, buf.String())
}
