// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FramesReceivedTotal counts received frames by endpoint and outcome
	FramesReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "packetcomm_frames_received_total",
			Help: "Total number of frames received, by outcome",
		},
		[]string{"endpoint", "result"},
	)

	// FramesSentTotal counts send attempts by endpoint and outcome
	FramesSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "packetcomm_frames_sent_total",
			Help: "Total number of frames sent, by outcome",
		},
		[]string{"endpoint", "result"},
	)

	// ReceiveBudgetExceededTotal counts receive cycles cut short by failures
	ReceiveBudgetExceededTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "packetcomm_receive_budget_exceeded_total",
			Help: "Total number of receive cycles ended by the failure budget",
		},
		[]string{"endpoint"},
	)

	// QueueEvictionsTotal counts entries dropped from a full receive queue
	QueueEvictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "packetcomm_queue_evictions_total",
			Help: "Total number of queued frames evicted to make room",
		},
		[]string{"endpoint"},
	)

	// QueueDepth tracks frames waiting in the receive queue
	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "packetcomm_queue_depth",
			Help: "Number of frames waiting in the receive queue",
		},
		[]string{"endpoint"},
	)

	// ConnectionStability tracks the smoothed receive score (0-100)
	ConnectionStability = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "packetcomm_connection_stability",
			Help: "Smoothed receive success score between 0 and 100",
		},
		[]string{"endpoint"},
	)

	// ReceiveCycleSeconds measures one receive cycle
	ReceiveCycleSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "packetcomm_receive_cycle_seconds",
			Help:    "Duration of receive cycles in seconds",
			Buckets: prometheus.ExponentialBuckets(0.000001, 2, 20), // 1µs to ~1s
		},
		[]string{"endpoint"},
	)
)

// Outcome labels for FramesReceivedTotal and FramesSentTotal.
const (
	ResultOK           = "ok"
	ResultEmpty        = "empty"
	ResultUnknownID    = "unknown_id"
	ResultSizeMismatch = "size_mismatch"
	ResultTooShort     = "too_short"
	ResultRejected     = "rejected"
	ResultBuffer       = "buffer"
	ResultTransport    = "transport"
)
