package comm

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"firestige.xyz/packetcomm/internal/metrics"
	"firestige.xyz/packetcomm/internal/packet"
)

// QueuedEngine buffers received frames and applies at most one frame per
// packet per cycle, oldest first. Bursts of one packet therefore cannot
// overwrite its fields several times within a cycle, and frames of other
// packets keep flowing.
type QueuedEngine struct {
	*Engine
	queue     *SinkingQueue
	updated   []bool
	evictions prometheus.Counter
	depth     prometheus.Gauge
}

// NewQueued returns a queued engine with a receive queue of the given
// capacity.
func NewQueued(t Transceiver, capacity int, opts ...Option) (*QueuedEngine, error) {
	e, err := New(t, opts...)
	if err != nil {
		return nil, err
	}
	return &QueuedEngine{
		Engine:    e,
		queue:     NewSinkingQueue(capacity),
		evictions: metrics.QueueEvictionsTotal.WithLabelValues(e.name),
		depth:     metrics.QueueDepth.WithLabelValues(e.name),
	}, nil
}

// Queue exposes the receive queue for inspection.
func (q *QueuedEngine) Queue() *SinkingQueue { return q.queue }

// Receive polls the transceiver into the queue, then applies the oldest
// queued frame of each registered packet. The score reflects the poll phase
// only, so a backlog draining over a silent link does not count as a good
// connection.
func (q *QueuedEngine) Receive() CycleStats {
	if !q.enter() {
		return CycleStats{}
	}
	defer q.leave()

	start := time.Now()
	st := q.poll(func(_ packet.Packet, index int, frame []byte) bool {
		if q.queue.Push(index, frame) {
			q.evictions.Inc()
			q.logger().Debug("receive queue full, oldest frame evicted")
		}
		return true
	})

	if n := q.registry.Len(); cap(q.updated) < n {
		q.updated = make([]bool, n)
	} else {
		q.updated = q.updated[:n]
	}
	st.Applied = q.queue.consume(q.updated, func(index int, data []byte) bool {
		p := q.registry.At(index)
		if !p.ApplyFrom(data) {
			return false
		}
		p.OnReceive()
		return true
	})

	q.depth.Set(float64(q.queue.Len()))
	q.finishCycle(&st, start)
	return st
}

// Close drops queued frames and closes the transceiver.
func (q *QueuedEngine) Close() error {
	if n := q.queue.Drain(); n > 0 {
		q.logger().Debugf("dropped %d queued frames on close", n)
	}
	q.depth.Set(0)
	return q.Engine.Close()
}
