package daemon

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/packetcomm/internal/catalog"
	"firestige.xyz/packetcomm/internal/comm"
	"firestige.xyz/packetcomm/internal/config"
	"firestige.xyz/packetcomm/internal/log"
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

// writeFixture writes a loopback config with the given extra YAML under
// packetcomm: and a two-packet catalog next to it.
func writeFixture(t *testing.T, dir, extra string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "packets.yml"), []byte(testCatalog), 0644))
	content := `
packetcomm:
  log:
    level: warn
  transport:
    type: loopback
  catalog:
    path: packets.yml
` + extra
	path := filepath.Join(dir, "packetcomm.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func loadConfig(t *testing.T, extra string) *config.GlobalConfig {
	t.Helper()
	cfg, err := config.Load(writeFixture(t, t.TempDir(), extra))
	require.NoError(t, err)
	require.NoError(t, log.Init(cfg.Log))
	return cfg
}

func TestOpenRuntimeLoopback(t *testing.T) {
	var got []string
	rt, err := OpenRuntime(loadConfig(t, "  engine:\n    name: rt-test\n"), func(inst *catalog.Instance) {
		got = append(got, inst.String())
	})
	require.NoError(t, err)
	defer rt.Close()

	_, queued := rt.Endpoint.(*comm.QueuedEngine)
	assert.False(t, queued)
	assert.Equal(t, 2, rt.Engine.Registry().Len())

	inst, ok := rt.Set.Lookup("steering")
	require.True(t, ok)
	require.NoError(t, inst.Set("x", "3"))
	require.NoError(t, inst.Set("y", "7"))
	require.True(t, rt.Endpoint.Send(inst.Packet()))

	st := rt.Endpoint.Receive()
	assert.Equal(t, 1, st.Successes)
	assert.Equal(t, []string{"steering{x=3 y=7}"}, got)
}

func TestOpenRuntimeQueued(t *testing.T) {
	rt, err := OpenRuntime(loadConfig(t, `
  engine:
    name: rt-test-queued
    change_rate: 0.5
    queue:
      enabled: true
      capacity: 4
`), nil)
	require.NoError(t, err)
	defer rt.Close()

	q, ok := rt.Endpoint.(*comm.QueuedEngine)
	require.True(t, ok)
	assert.Equal(t, 4, q.Queue().Cap())
	assert.Same(t, q.Engine, rt.Engine)
}

func TestOpenRuntimeRejectsPacketLargerThanFrame(t *testing.T) {
	_, err := OpenRuntime(loadConfig(t, `
  engine:
    name: rt-test-small-frame
    max_frame_size: 3
`), nil)
	assert.ErrorIs(t, err, comm.ErrPacketTooLarge)
	assert.ErrorContains(t, err, `register "steering"`)
}

func TestOpenRuntimeMissingCatalog(t *testing.T) {
	cfg := loadConfig(t, "")
	cfg.Catalog.Path = filepath.Join(t.TempDir(), "missing.yml")
	_, err := OpenRuntime(cfg, nil)
	assert.Error(t, err)
}

func TestDaemonStartRunStop(t *testing.T) {
	dir := t.TempDir()
	configPath := writeFixture(t, dir, `
  engine:
    name: daemon-test
    poll_frequency_hz: 200
  metrics:
    enabled: true
    listen: 127.0.0.1:0
`)
	pidFile := filepath.Join(dir, "packetcomm.pid")

	d, err := New(configPath, pidFile, 20*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, d.Start())

	_, err = os.Stat(pidFile)
	require.NoError(t, err, "PID file should exist after Start")

	resp, err := http.Get("http://" + d.MetricsAddr() + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), "packetcomm_connection_stability")

	inst, ok := d.Runtime().Set.Lookup("arm")
	require.True(t, ok)
	require.True(t, d.Runtime().Endpoint.Send(inst.Packet()))

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	require.NoError(t, d.Run(ctx))

	assert.Equal(t, 1, d.received)
	_, err = os.Stat(pidFile)
	assert.True(t, os.IsNotExist(err), "PID file should be removed after Stop")

	// Stop is idempotent.
	d.Stop()
}

func TestDaemonReload(t *testing.T) {
	dir := t.TempDir()
	configPath := writeFixture(t, dir, "  engine:\n    name: reload-test\n")

	d, err := New(configPath, "", 0)
	require.NoError(t, err)
	require.NoError(t, d.Start())
	defer d.Stop()

	writeFixture(t, dir, `
  engine:
    name: reload-test
    poll_frequency_hz: 100
    change_rate: 0.5
  metrics:
    enabled: true
`)
	require.NoError(t, d.Reload())

	assert.Equal(t, 100.0, d.config.Engine.PollFrequencyHz)
	assert.Equal(t, 0.5, d.config.Engine.ChangeRate)
	assert.False(t, d.config.Metrics.Enabled, "metrics changes need a restart")
	select {
	case next := <-d.reloaded:
		assert.Equal(t, 10*time.Millisecond, next)
	default:
		t.Fatal("expected a new poll interval")
	}
}

func TestDaemonReloadRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	configPath := writeFixture(t, dir, "")

	d, err := New(configPath, "", 0)
	require.NoError(t, err)
	require.NoError(t, d.Start())
	defer d.Stop()

	require.NoError(t, os.WriteFile(configPath, []byte("packetcomm:\n  engine:\n    poll_frequency_hz: -1\n"), 0644))
	assert.Error(t, d.Reload())
	assert.Equal(t, 50.0, d.config.Engine.PollFrequencyHz)
}

func TestDaemonStartFailsWithoutCatalog(t *testing.T) {
	dir := t.TempDir()
	configPath := writeFixture(t, dir, "")
	require.NoError(t, os.Remove(filepath.Join(dir, "packets.yml")))
	pidFile := filepath.Join(dir, "packetcomm.pid")

	d, err := New(configPath, pidFile, 0)
	require.NoError(t, err)
	assert.Error(t, d.Start())

	_, err = os.Stat(pidFile)
	assert.True(t, os.IsNotExist(err))
}

func TestPollInterval(t *testing.T) {
	assert.Equal(t, 20*time.Millisecond, pollInterval(50))
	assert.Equal(t, time.Second, pollInterval(1))
	assert.Equal(t, time.Millisecond, pollInterval(2e10))
}

func TestColdChanges(t *testing.T) {
	base := func() *config.GlobalConfig {
		return &config.GlobalConfig{
			Engine: config.EngineConfig{Name: "ground", MaxReceivingFailures: 5, MaxFrameSize: 255, PollFrequencyHz: 50},
			Transport: config.TransportConfig{
				Type:    "serial",
				Options: map[string]any{"device": "/dev/ttyUSB0", "baud_rate": 57600},
			},
			Catalog: config.CatalogConfig{Path: "packets.yml"},
		}
	}
	tests := []struct {
		name   string
		modify func(c *config.GlobalConfig)
		want   []string
	}{
		{"unchanged", func(c *config.GlobalConfig) {}, nil},
		{"hot settings only", func(c *config.GlobalConfig) {
			c.Engine.PollFrequencyHz = 100
			c.Engine.ChangeRate = 0.5
			c.Log.Level = "debug"
		}, nil},
		{"transport device", func(c *config.GlobalConfig) { c.Transport.Options["device"] = "/dev/ttyUSB1" }, []string{"transport"}},
		{"transport baud rate", func(c *config.GlobalConfig) { c.Transport.Options["baud_rate"] = 115200 }, []string{"transport"}},
		{"transport option added", func(c *config.GlobalConfig) { c.Transport.Options["parity"] = "E" }, []string{"transport"}},
		{"transport type", func(c *config.GlobalConfig) { c.Transport.Type = "udp" }, []string{"transport"}},
		{"engine frame size", func(c *config.GlobalConfig) { c.Engine.MaxFrameSize = 64 }, []string{"engine"}},
		{"catalog and queue", func(c *config.GlobalConfig) {
			c.Catalog.Path = "other.yml"
			c.Engine.Queue.Enabled = true
		}, []string{"catalog.path", "engine.queue"}},
		{"metrics", func(c *config.GlobalConfig) { c.Metrics.Enabled = true }, []string{"metrics"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := base()
			tt.modify(next)
			assert.Equal(t, tt.want, coldChanges(base(), next))
		})
	}
}

func TestDaemonReloadKeepsTransportOptions(t *testing.T) {
	dir := t.TempDir()
	configPath := writeFixture(t, dir, "  engine:\n    name: reload-options-test\n")

	d, err := New(configPath, "", 0)
	require.NoError(t, err)
	require.NoError(t, d.Start())
	defer d.Stop()

	require.NoError(t, os.WriteFile(configPath, []byte(`
packetcomm:
  log:
    level: warn
  engine:
    name: reload-options-test
  transport:
    type: loopback
    options:
      depth: 8
  catalog:
    path: packets.yml
`), 0644))
	require.NoError(t, d.Reload())
	assert.Empty(t, d.config.Transport.Options)
}
