package daemon

import (
	"fmt"
	"io"

	"firestige.xyz/packetcomm/internal/catalog"
	"firestige.xyz/packetcomm/internal/comm"
	"firestige.xyz/packetcomm/internal/config"
	"firestige.xyz/packetcomm/internal/log"
	"firestige.xyz/packetcomm/internal/transport"
)

// Runtime is an engine bound to the configured transport with every catalog
// packet registered.
type Runtime struct {
	Set *catalog.Set
	// Engine is the immediate engine, or the one embedded in the queued
	// endpoint.
	Engine   *comm.Engine
	Endpoint comm.Endpoint
}

// OpenRuntime loads the catalog, opens the transport and registers every
// packet. onReceive, if not nil, becomes the receive callback of each packet.
// Logging must already be initialized.
func OpenRuntime(cfg *config.GlobalConfig, onReceive func(*catalog.Instance)) (*Runtime, error) {
	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return nil, err
	}
	set, err := cat.Build()
	if err != nil {
		return nil, err
	}

	tr, err := transport.Open(cfg.Transport.Type, cfg.Transport.Options, cfg.Engine.MaxFrameSize)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s transport: %w", cfg.Transport.Type, err)
	}

	rt, err := newRuntime(cfg, set, tr)
	if err != nil {
		if c, ok := tr.(io.Closer); ok {
			c.Close()
		}
		return nil, err
	}
	if err := set.RegisterAll(rt.Endpoint, onReceive); err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

func newRuntime(cfg *config.GlobalConfig, set *catalog.Set, tr comm.Transceiver) (*Runtime, error) {
	if logger := log.GetLogger().WithField("endpoint", cfg.Engine.Name); logger.IsTraceEnabled() {
		tr = transport.Observe(tr, func(p []byte) {
			logger.Tracef("rx % X", p)
		})
	}

	opts := []comm.Option{
		comm.WithName(cfg.Engine.Name),
		comm.WithMaxReceivingFailures(cfg.Engine.MaxReceivingFailures),
		comm.WithMaxFrameSize(cfg.Engine.MaxFrameSize),
	}

	rt := &Runtime{Set: set}
	if cfg.Engine.Queue.Enabled {
		q, err := comm.NewQueued(tr, cfg.Engine.Queue.Capacity, opts...)
		if err != nil {
			return nil, err
		}
		rt.Engine, rt.Endpoint = q.Engine, q
	} else {
		e, err := comm.New(tr, opts...)
		if err != nil {
			return nil, err
		}
		rt.Engine, rt.Endpoint = e, e
	}

	if err := rt.applyStability(cfg.Engine); err != nil {
		return nil, err
	}
	return rt, nil
}

// applyStability configures the estimator from an explicit change rate, or
// from the poll frequency when none is set.
func (rt *Runtime) applyStability(cfg config.EngineConfig) error {
	if cfg.ChangeRate != 0 {
		return rt.Engine.SetStabilityChangeRate(cfg.ChangeRate)
	}
	return rt.Engine.AdaptStabilityToFrequency(cfg.PollFrequencyHz)
}

// Close closes the endpoint and its transport.
func (rt *Runtime) Close() error {
	return rt.Endpoint.Close()
}
