// Package config handles global configuration loading using viper.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"firestige.xyz/packetcomm/internal/log"
)

// GlobalConfig represents the top-level configuration.
// Maps to the `packetcomm:` root key in YAML.
type GlobalConfig struct {
	Log       log.Config      `mapstructure:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Transport TransportConfig `mapstructure:"transport"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
}

// ─── Engine ───

// EngineConfig tunes the packet communication engine.
type EngineConfig struct {
	Name                 string      `mapstructure:"name"`
	MaxReceivingFailures int         `mapstructure:"max_receiving_failures"`
	MaxFrameSize         int         `mapstructure:"max_frame_size"`    // largest payload, ID included
	PollFrequencyHz      float64     `mapstructure:"poll_frequency_hz"` // receive cycles per second
	ChangeRate           float64     `mapstructure:"change_rate"`       // 0 = derive from poll frequency
	Queue                QueueConfig `mapstructure:"queue"`
}

// QueueConfig selects the queued engine variant.
type QueueConfig struct {
	Enabled  bool `mapstructure:"enabled"`
	Capacity int  `mapstructure:"capacity"`
}

// ─── Transport ───

// TransportConfig picks a transceiver. Options are decoded by the transport
// package according to Type.
type TransportConfig struct {
	Type    string         `mapstructure:"type"` // serial | udp | loopback
	Options map[string]any `mapstructure:"options"`
}

// ─── Catalog ───

// CatalogConfig points at the packet layout file.
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

// ─── Metrics ───

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
	Path    string `mapstructure:"path"`
}

// ─── Loading ───

// configRoot is the top-level wrapper matching the YAML structure `packetcomm: ...`.
type configRoot struct {
	PacketComm GlobalConfig `mapstructure:"packetcomm"`
}

// Load loads configuration from file.
// The YAML file uses `packetcomm:` as root key; env vars use the PACKETCOMM_ prefix
// (e.g., PACKETCOMM_ENGINE_POLL_FREQUENCY_HZ).
func Load(path string) (*GlobalConfig, error) {
	v := viper.New()

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// key "packetcomm.log.level" maps to env "PACKETCOMM_LOG_LEVEL"
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.PacketComm

	if cfg.Catalog.Path != "" && !filepath.IsAbs(cfg.Catalog.Path) {
		cfg.Catalog.Path = filepath.Join(filepath.Dir(path), cfg.Catalog.Path)
	}

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values for configuration.
// All keys use the "packetcomm." prefix to match the YAML root wrapper.
func setDefaults(v *viper.Viper) {
	// Log defaults
	v.SetDefault("packetcomm.log.level", "info")
	v.SetDefault("packetcomm.log.pattern", log.DefaultPattern)
	v.SetDefault("packetcomm.log.time", log.DefaultTime)
	v.SetDefault("packetcomm.log.file.enabled", false)
	v.SetDefault("packetcomm.log.file.filename", "/var/log/packetcomm/packetcomm.log")
	v.SetDefault("packetcomm.log.file.max_size", 100)
	v.SetDefault("packetcomm.log.file.max_backups", 5)
	v.SetDefault("packetcomm.log.file.max_age", 30)
	v.SetDefault("packetcomm.log.file.compress", true)

	// Metrics defaults
	v.SetDefault("packetcomm.metrics.enabled", false)
	v.SetDefault("packetcomm.metrics.listen", ":9091")
	v.SetDefault("packetcomm.metrics.path", "/metrics")

	// Engine defaults
	v.SetDefault("packetcomm.engine.name", "default")
	v.SetDefault("packetcomm.engine.max_receiving_failures", 5)
	v.SetDefault("packetcomm.engine.max_frame_size", 255)
	v.SetDefault("packetcomm.engine.poll_frequency_hz", 50.0)
	v.SetDefault("packetcomm.engine.change_rate", 0.0)
	v.SetDefault("packetcomm.engine.queue.enabled", false)
	v.SetDefault("packetcomm.engine.queue.capacity", 32)

	// Transport defaults
	v.SetDefault("packetcomm.transport.type", "loopback")
}

// ValidateAndApplyDefaults validates configuration and applies runtime defaults.
func (cfg *GlobalConfig) ValidateAndApplyDefaults() error {
	// ── Log ──
	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("invalid log level: %s (must be trace/debug/info/warn/error)", cfg.Log.Level)
	}
	if cfg.Log.File.Enabled && cfg.Log.File.Filename == "" {
		return fmt.Errorf("log.file.filename is required when log.file.enabled=true")
	}

	// ── Engine ──
	e := &cfg.Engine
	if e.Name == "" {
		e.Name = "default"
	}
	if e.MaxReceivingFailures < 0 {
		return fmt.Errorf("engine.max_receiving_failures must be >= 0, got %d", e.MaxReceivingFailures)
	}
	if e.MaxFrameSize < 2 || e.MaxFrameSize > 0xFFFF {
		return fmt.Errorf("engine.max_frame_size must be within 2-65535, got %d", e.MaxFrameSize)
	}
	if e.PollFrequencyHz <= 0 {
		return fmt.Errorf("engine.poll_frequency_hz must be positive, got %v", e.PollFrequencyHz)
	}
	if e.ChangeRate != 0 && (e.ChangeRate <= 0 || e.ChangeRate >= 1) {
		return fmt.Errorf("engine.change_rate must be within (0, 1), got %v", e.ChangeRate)
	}
	if e.Queue.Enabled && e.Queue.Capacity < 1 {
		return fmt.Errorf("engine.queue.capacity must be >= 1 when engine.queue.enabled=true")
	}

	// ── Transport ──
	switch cfg.Transport.Type {
	case "serial", "udp", "loopback":
	default:
		return fmt.Errorf("unsupported transport.type: %s (must be serial/udp/loopback)", cfg.Transport.Type)
	}

	// ── Catalog ──
	if cfg.Catalog.Path == "" {
		return fmt.Errorf("catalog.path is required")
	}

	// ── Metrics ──
	if cfg.Metrics.Enabled && cfg.Metrics.Listen == "" {
		return fmt.Errorf("metrics.listen is required when metrics.enabled=true")
	}

	return nil
}
