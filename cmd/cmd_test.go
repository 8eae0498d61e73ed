package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const testCatalog = `
packets:
  - id: 1
    name: steering
    fields:
      - {name: x, kind: uint8}
      - {name: y, kind: uint8}
  - id: 2
    name: arm
    type: event
`

// writeFixture writes a loopback config and its catalog into a temp dir and
// returns the config path. engine is extra YAML under packetcomm.engine.
func writeFixture(t *testing.T, engine string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "packets.yml"), []byte(testCatalog), 0644))

	cfg := `
packetcomm:
  log:
    level: warn
  engine:
    name: cmd-test
` + engine + `
  transport:
    type: loopback
  catalog:
    path: packets.yml
`
	path := filepath.Join(dir, "packetcomm.yml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0644))
	return path
}
