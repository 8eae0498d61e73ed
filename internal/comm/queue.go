package comm

import "firestige.xyz/packetcomm/internal/buffer"

// DefaultQueueCapacity is the receive queue size of a QueuedEngine.
const DefaultQueueCapacity = 32

type queueEntry struct {
	index int // registry index of the matched packet
	data  []byte
}

// SinkingQueue is a bounded FIFO of received payloads. When full, the oldest
// entry sinks out to make room for the newest.
type SinkingQueue struct {
	entries   []queueEntry
	capacity  int
	evictions uint64
}

func NewSinkingQueue(capacity int) *SinkingQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &SinkingQueue{
		entries:  make([]queueEntry, 0, capacity),
		capacity: capacity,
	}
}

// Push stores a deep copy of frame for the packet at registry index and
// reports whether an older entry was evicted.
func (q *SinkingQueue) Push(index int, frame []byte) (evicted bool) {
	if len(q.entries) == q.capacity {
		copy(q.entries, q.entries[1:])
		q.entries[len(q.entries)-1] = queueEntry{}
		q.entries = q.entries[:len(q.entries)-1]
		q.evictions++
		evicted = true
	}
	q.entries = append(q.entries, queueEntry{index: index, data: buffer.Clone(frame)})
	return evicted
}

func (q *SinkingQueue) Len() int { return len(q.entries) }

func (q *SinkingQueue) Cap() int { return q.capacity }

// Evictions returns how many entries were dropped to make room.
func (q *SinkingQueue) Evictions() uint64 { return q.evictions }

// Drain discards every entry and returns how many there were.
func (q *SinkingQueue) Drain() int {
	n := len(q.entries)
	clear(q.entries)
	q.entries = q.entries[:0]
	return n
}

// consume walks the queue oldest first and offers each entry to apply unless
// an entry for the same registry index was already applied in this pass.
// Applied entries and entries apply refuses are removed; skipped ones keep
// their order. The walk stops once distinct indexes are exhausted. It
// returns the number of applied entries.
func (q *SinkingQueue) consume(updated []bool, apply func(index int, data []byte) bool) int {
	clear(updated)
	remaining := len(updated)
	applied := 0

	kept := q.entries[:0]
	for i, ent := range q.entries {
		if remaining == 0 {
			kept = append(kept, q.entries[i:]...)
			break
		}
		if ent.index < 0 || ent.index >= len(updated) {
			continue
		}
		if updated[ent.index] {
			kept = append(kept, ent)
			continue
		}
		if !apply(ent.index, ent.data) {
			continue
		}
		updated[ent.index] = true
		remaining--
		applied++
	}
	clear(q.entries[len(kept):])
	q.entries = kept
	return applied
}
