// Package daemon runs a long-lived packetcomm endpoint: it polls the engine at
// the configured frequency and owns the metrics server, the PID file and
// signal handling.
package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"reflect"
	"strconv"
	"sync"
	"syscall"
	"time"

	"firestige.xyz/packetcomm/internal/catalog"
	"firestige.xyz/packetcomm/internal/config"
	"firestige.xyz/packetcomm/internal/log"
	"firestige.xyz/packetcomm/internal/metrics"
)

// Daemon manages the endpoint process lifecycle.
type Daemon struct {
	// Configuration
	config     *config.GlobalConfig
	configPath string
	pidFile    string
	statsEvery time.Duration

	// Core components
	runtime       *Runtime
	metricsServer *metrics.Server // nil if metrics disabled
	received      int

	// Lifecycle management
	ctx      context.Context
	cancel   context.CancelFunc
	sigChan  chan os.Signal
	reloaded chan time.Duration
	stopOnce sync.Once
}

// New loads the configuration and creates a Daemon. statsEvery is the interval
// between stability log lines; zero disables them.
func New(configPath, pidFile string, statsEvery time.Duration) (*Daemon, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	d := &Daemon{
		config:     cfg,
		configPath: configPath,
		pidFile:    pidFile,
		statsEvery: statsEvery,
		reloaded:   make(chan time.Duration, 1),
	}
	d.ctx, d.cancel = context.WithCancel(context.Background())
	return d, nil
}

// Start initializes logging, writes the PID file, opens the endpoint and starts
// the metrics server.
func (d *Daemon) Start() error {
	// 1. Initialize logging system
	if err := log.Init(d.config.Log); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger := log.GetLogger()
	logger.WithFields(map[string]interface{}{
		"config":    d.configPath,
		"transport": d.config.Transport.Type,
		"endpoint":  d.config.Engine.Name,
	}).Info("starting packetcomm daemon")

	// 2. Write PID file
	if err := d.writePIDFile(); err != nil {
		return err
	}

	// 3. Open transport and register catalog packets
	rt, err := OpenRuntime(d.config, d.onReceive)
	if err != nil {
		d.removePIDFile()
		return fmt.Errorf("failed to open endpoint: %w", err)
	}
	d.runtime = rt

	// 4. Start metrics server
	if err := d.startMetrics(); err != nil {
		rt.Close()
		d.removePIDFile()
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	logger.Infof("daemon started, %d packet(s) registered", len(rt.Set.Instances()))
	return nil
}

func (d *Daemon) onReceive(inst *catalog.Instance) {
	d.received++
	log.GetLogger().WithField("id", inst.Packet().ID()).Infof("received %s", inst)
}

// Runtime returns the endpoint opened by Start.
func (d *Daemon) Runtime() *Runtime { return d.runtime }

// MetricsAddr returns the metrics listen address, or "" when disabled.
func (d *Daemon) MetricsAddr() string {
	if d.metricsServer == nil {
		return ""
	}
	return d.metricsServer.Addr()
}

// Run polls the endpoint until ctx is done or SIGINT/SIGTERM arrives, then
// stops the daemon. SIGHUP reloads the configuration.
func (d *Daemon) Run(ctx context.Context) error {
	d.sigChan = make(chan os.Signal, 1)
	signal.Notify(d.sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)
	defer d.Stop()

	logger := log.GetLogger()
	interval := pollInterval(d.config.Engine.PollFrequencyHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var statsC <-chan time.Time
	if d.statsEvery > 0 {
		stats := time.NewTicker(d.statsEvery)
		defer stats.Stop()
		statsC = stats.C
	}

	logger.Infof("polling every %s", interval)
	var cycles int
	for {
		select {
		case <-ctx.Done():
			logger.Infof("stopped after %d cycles, %d packets received, stability %d%%",
				cycles, d.received, d.runtime.Endpoint.Stability())
			return nil

		case <-d.ctx.Done():
			return nil

		case sig := <-d.sigChan:
			switch sig {
			case syscall.SIGHUP:
				if err := d.Reload(); err != nil {
					logger.WithError(err).Error("failed to reload config")
				}
			default:
				logger.Infof("received %s, shutting down", sig)
				return nil
			}

		case next := <-d.reloaded:
			ticker.Reset(next)
			logger.Infof("polling every %s", next)

		case <-ticker.C:
			d.runtime.Endpoint.Receive()
			cycles++

		case <-statsC:
			logger.Infof("connection stability %d%%", d.runtime.Endpoint.Stability())
		}
	}
}

// Reload re-reads the configuration file.
// Hot-reloadable: log settings, poll frequency, stability change rate.
// Cold (requires restart): transport, catalog, queue, metrics.
func (d *Daemon) Reload() error {
	logger := log.GetLogger()
	logger.Infof("reloading configuration from %s", d.configPath)

	next, err := config.Load(d.configPath)
	if err != nil {
		return fmt.Errorf("failed to load new config: %w", err)
	}

	if err := log.Init(next.Log); err != nil {
		return fmt.Errorf("failed to reinitialize logging: %w", err)
	}
	if err := d.runtime.applyStability(next.Engine); err != nil {
		return err
	}
	if next.Engine.PollFrequencyHz != d.config.Engine.PollFrequencyHz {
		select {
		case d.reloaded <- pollInterval(next.Engine.PollFrequencyHz):
		default:
		}
	}

	restart := coldChanges(d.config, next)
	if len(restart) > 0 {
		log.GetLogger().Warnf("changes to %v require a restart", restart)
	}

	d.config.Log = next.Log
	d.config.Engine.PollFrequencyHz = next.Engine.PollFrequencyHz
	d.config.Engine.ChangeRate = next.Engine.ChangeRate
	log.GetLogger().Info("configuration reloaded")
	return nil
}

// Stop releases the endpoint, the metrics server and the PID file. It is safe
// to call more than once.
func (d *Daemon) Stop() {
	d.stopOnce.Do(func() {
		logger := log.GetLogger()
		logger.Info("initiating graceful shutdown")

		if d.sigChan != nil {
			signal.Stop(d.sigChan)
		}

		if d.runtime != nil {
			if err := d.runtime.Close(); err != nil {
				logger.WithError(err).Error("error closing endpoint")
			}
		}

		if d.metricsServer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := d.metricsServer.Stop(shutdownCtx); err != nil {
				logger.WithError(err).Error("error stopping metrics server")
			}
		}

		d.cancel()

		if err := d.removePIDFile(); err != nil {
			logger.WithError(err).Error("error removing PID file")
		}
		logger.Info("daemon stopped")
	})
}

// coldChanges lists the settings that differ between cur and next and only
// take effect after a restart.
func coldChanges(cur, next *config.GlobalConfig) []string {
	var restart []string
	if next.Transport.Type != cur.Transport.Type ||
		!reflect.DeepEqual(next.Transport.Options, cur.Transport.Options) {
		restart = append(restart, "transport")
	}
	if next.Catalog.Path != cur.Catalog.Path {
		restart = append(restart, "catalog.path")
	}
	if next.Engine.Name != cur.Engine.Name ||
		next.Engine.MaxReceivingFailures != cur.Engine.MaxReceivingFailures ||
		next.Engine.MaxFrameSize != cur.Engine.MaxFrameSize {
		restart = append(restart, "engine")
	}
	if next.Engine.Queue != cur.Engine.Queue {
		restart = append(restart, "engine.queue")
	}
	if next.Metrics != cur.Metrics {
		restart = append(restart, "metrics")
	}
	return restart
}

func pollInterval(hz float64) time.Duration {
	interval := time.Duration(float64(time.Second) / hz)
	if interval <= 0 {
		interval = time.Millisecond
	}
	return interval
}

// startMetrics starts the metrics HTTP server if enabled.
func (d *Daemon) startMetrics() error {
	if !d.config.Metrics.Enabled {
		log.GetLogger().Debug("metrics server disabled")
		return nil
	}

	d.metricsServer = metrics.NewServer(d.config.Metrics.Listen, d.config.Metrics.Path)
	if err := d.metricsServer.Start(d.ctx); err != nil {
		d.metricsServer = nil
		return err
	}
	return nil
}

// writePIDFile writes the current process ID to the PID file.
func (d *Daemon) writePIDFile() error {
	if d.pidFile == "" {
		return nil
	}

	data := []byte(strconv.Itoa(os.Getpid()) + "\n")
	if err := os.WriteFile(d.pidFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write PID file %s: %w", d.pidFile, err)
	}
	return nil
}

// removePIDFile removes the PID file.
func (d *Daemon) removePIDFile() error {
	if d.pidFile == "" {
		return nil
	}
	if err := os.Remove(d.pidFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove PID file %s: %w", d.pidFile, err)
	}
	return nil
}
