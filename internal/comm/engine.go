// Package comm implements the packet communication engine: it serializes
// registered packets onto a Transceiver, dispatches received payloads to
// their packets and keeps a running connection stability estimate.
//
// The engine is single-threaded. Send and Receive must be called from one
// goroutine, typically a fixed-rate polling loop.
package comm

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"firestige.xyz/packetcomm/internal/buffer"
	"firestige.xyz/packetcomm/internal/log"
	"firestige.xyz/packetcomm/internal/metrics"
	"firestige.xyz/packetcomm/internal/packet"
	"firestige.xyz/packetcomm/internal/stability"
)

const (
	// DefaultMaxReceivingFailures bounds failed receive attempts per cycle.
	DefaultMaxReceivingFailures = 5
	// DefaultMaxFrameSize bounds the payload size the send buffer may grow to.
	DefaultMaxFrameSize = 255
	// DefaultName labels metrics and log lines of an unnamed engine.
	DefaultName = "default"
)

var (
	ErrNilTransceiver = errors.New("comm: nil transceiver")
	ErrPacketTooLarge = errors.New("comm: packet exceeds max frame size")
)

// Endpoint is the surface shared by Engine and QueuedEngine.
type Endpoint interface {
	Register(p packet.Packet) error
	Send(p packet.Packet) bool
	Receive() CycleStats
	Stability() uint8
	Close() error
}

// CycleStats summarizes one receive cycle.
type CycleStats struct {
	Attempts  int
	Successes int
	Failures  int
	// Applied counts packets written to their fields this cycle. It equals
	// Successes for the immediate engine.
	Applied        int
	BudgetExceeded bool
	// Score is Successes/Attempts*100, or 0 without attempts.
	Score float64
}

type Option func(*Engine)

// WithName labels the engine's metrics and logs.
func WithName(name string) Option {
	return func(e *Engine) { e.name = name }
}

// WithMaxReceivingFailures sets how many failed attempts a cycle tolerates.
// Negative values are ignored.
func WithMaxReceivingFailures(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.maxFailures = n
		}
	}
}

// WithMaxFrameSize caps the payload size of outbound packets.
func WithMaxFrameSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxFrameSize = n
		}
	}
}

func WithLogger(l log.Logger) Option {
	return func(e *Engine) { e.baseLogger = l }
}

// WithEstimator replaces the default stability estimator.
func WithEstimator(est *stability.Estimator) Option {
	return func(e *Engine) {
		if est != nil {
			e.estimator = est
		}
	}
}

// Engine applies every matching frame as soon as it is received.
type Engine struct {
	name         string
	transceiver  Transceiver
	registry     *packet.Registry
	estimator    *stability.Estimator
	sendBuf      *buffer.Buffer
	maxFailures  int
	maxFrameSize int
	baseLogger   log.Logger // nil follows the global logger across reloads
	receiving    bool
	stats        engineMetrics
}

type engineMetrics struct {
	rxOK, rxEmpty, rxUnknown, rxSize, rxShort, rxRejected, rxTransport prometheus.Counter
	txOK, txBuffer, txTransport                                        prometheus.Counter
	budget                                                             prometheus.Counter
	stability                                                          prometheus.Gauge
	cycle                                                              prometheus.Observer
}

func newEngineMetrics(name string) engineMetrics {
	rx := func(result string) prometheus.Counter {
		return metrics.FramesReceivedTotal.WithLabelValues(name, result)
	}
	tx := func(result string) prometheus.Counter {
		return metrics.FramesSentTotal.WithLabelValues(name, result)
	}
	return engineMetrics{
		rxOK:        rx(metrics.ResultOK),
		rxEmpty:     rx(metrics.ResultEmpty),
		rxUnknown:   rx(metrics.ResultUnknownID),
		rxSize:      rx(metrics.ResultSizeMismatch),
		rxShort:     rx(metrics.ResultTooShort),
		rxRejected:  rx(metrics.ResultRejected),
		rxTransport: rx(metrics.ResultTransport),
		txOK:        tx(metrics.ResultOK),
		txBuffer:    tx(metrics.ResultBuffer),
		txTransport: tx(metrics.ResultTransport),
		budget:      metrics.ReceiveBudgetExceededTotal.WithLabelValues(name),
		stability:   metrics.ConnectionStability.WithLabelValues(name),
		cycle:       metrics.ReceiveCycleSeconds.WithLabelValues(name),
	}
}

// New returns an engine bound to t.
func New(t Transceiver, opts ...Option) (*Engine, error) {
	if t == nil {
		return nil, ErrNilTransceiver
	}
	e := &Engine{
		name:         DefaultName,
		transceiver:  t,
		registry:     packet.NewRegistry(),
		estimator:    stability.NewDefault(),
		maxFailures:  DefaultMaxReceivingFailures,
		maxFrameSize: DefaultMaxFrameSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.sendBuf = buffer.New(0, e.maxFrameSize)
	e.stats = newEngineMetrics(e.name)
	return e, nil
}

func (e *Engine) Name() string { return e.name }

func (e *Engine) logger() log.Logger {
	l := e.baseLogger
	if l == nil {
		l = log.GetLogger()
	}
	return l.WithField("endpoint", e.name)
}

// Register makes p receivable. IDs must be unique and p must fit the max
// frame size.
func (e *Engine) Register(p packet.Packet) error {
	if p != nil && !packet.IsNil(p) && p.Size() > e.maxFrameSize {
		return fmt.Errorf("%w: packet %s is %d bytes, limit %d", ErrPacketTooLarge, p.ID(), p.Size(), e.maxFrameSize)
	}
	return e.registry.Register(p)
}

func (e *Engine) Registry() *packet.Registry { return e.registry }

// Send serializes p into the reusable send buffer and hands it to the
// transceiver. It reports false when the buffer cannot hold p or the
// transceiver refuses the payload.
func (e *Engine) Send(p packet.Packet) bool {
	if p == nil {
		return false
	}
	size := p.Size()
	if err := e.sendBuf.EnsureCapacity(size, buffer.DiscardContent); err != nil {
		e.stats.txBuffer.Inc()
		e.logger().WithError(err).Debugf("cannot send packet %s", p.ID())
		return false
	}
	e.sendBuf.SetLen(size)
	n := p.SerializeInto(e.sendBuf.Bytes())
	if n == 0 {
		e.stats.txBuffer.Inc()
		return false
	}
	if !e.transceiver.Send(e.sendBuf.Bytes()[:n]) {
		e.stats.txTransport.Inc()
		return false
	}
	e.stats.txOK.Inc()
	return true
}

// Receive runs one receive cycle: every pending frame is matched against the
// registry and applied to its packet, whose callback then runs. The cycle
// ends when the transceiver runs dry or more than the configured number of
// attempts fail. Calling Receive from a packet callback does nothing.
func (e *Engine) Receive() CycleStats {
	if !e.enter() {
		return CycleStats{}
	}
	defer e.leave()

	start := time.Now()
	st := e.poll(func(p packet.Packet, _ int, frame []byte) bool {
		if !p.ApplyFrom(frame) {
			return false
		}
		p.OnReceive()
		return true
	})
	st.Applied = st.Successes
	e.finishCycle(&st, start)
	return st
}

func (e *Engine) enter() bool {
	if e.receiving {
		e.logger().Warn("receive called while a receive cycle is running, ignored")
		return false
	}
	e.receiving = true
	return true
}

func (e *Engine) leave() { e.receiving = false }

// poll drains the transceiver, handing each matched frame to accept.
func (e *Engine) poll(accept func(p packet.Packet, index int, frame []byte) bool) CycleStats {
	var st CycleStats
	avail, canPeek := e.transceiver.(Availabler)

	for st.Failures <= e.maxFailures {
		if canPeek && !avail.Available() {
			break
		}
		if !e.transceiver.Receive() {
			if !canPeek {
				break
			}
			// input was reported pending but produced no frame
			st.Attempts++
			st.Failures++
			e.stats.rxTransport.Inc()
			continue
		}
		st.Attempts++

		frame := e.transceiver.Received()
		if len(frame) == 0 {
			st.Failures++
			e.stats.rxEmpty.Inc()
			e.traceDrop("empty", frame)
			continue
		}
		p, idx, res := e.registry.Match(frame)
		if res != packet.MatchOK {
			st.Failures++
			e.countDrop(res)
			e.traceDrop(res.String(), frame)
			continue
		}
		if !accept(p, idx, frame) {
			st.Failures++
			e.stats.rxRejected.Inc()
			e.traceDrop("rejected", frame)
			continue
		}
		st.Successes++
		e.stats.rxOK.Inc()
	}

	if st.Failures > e.maxFailures {
		st.BudgetExceeded = true
		e.stats.budget.Inc()
		e.logger().Debugf("receive cycle stopped after %d failures in %d attempts", st.Failures, st.Attempts)
	}
	if st.Attempts > 0 {
		st.Score = float64(st.Successes) / float64(st.Attempts) * 100
	}
	return st
}

func (e *Engine) finishCycle(st *CycleStats, start time.Time) {
	e.estimator.Update(st.Score)
	e.stats.stability.Set(e.estimator.Value())
	e.stats.cycle.Observe(time.Since(start).Seconds())
}

func (e *Engine) countDrop(res packet.MatchResult) {
	switch res {
	case packet.MatchUnknownID:
		e.stats.rxUnknown.Inc()
	case packet.MatchSizeMismatch:
		e.stats.rxSize.Inc()
	default:
		e.stats.rxShort.Inc()
	}
}

func (e *Engine) traceDrop(reason string, frame []byte) {
	if l := e.logger(); l.IsTraceEnabled() {
		l.WithField("reason", reason).Tracef("dropped frame % X", frame)
	}
}

// Stability returns the connection stability estimate in [0, 100].
func (e *Engine) Stability() uint8 { return e.estimator.Stability() }

// AdaptStabilityToFrequency tunes the estimator for a loop calling Receive
// hz times per second.
func (e *Engine) AdaptStabilityToFrequency(hz float64) error {
	return e.estimator.AdaptToFrequency(hz)
}

// SetStabilityChangeRate sets the estimator's smoothing factor directly.
func (e *Engine) SetStabilityChangeRate(beta float64) error {
	return e.estimator.SetChangeRate(beta)
}

// Close closes the transceiver when it holds resources.
func (e *Engine) Close() error {
	if c, ok := e.transceiver.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
