package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SyncMetrics records the behavior of the order synchronization engine.
type SyncMetrics struct {
	pollDuration     *prometheus.HistogramVec
	pollFailure      *prometheus.CounterVec
	transitions      *prometheus.CounterVec
	dedupDrops       *prometheus.CounterVec
	streamReconnects *prometheus.CounterVec
}

// NewSyncMetrics registers the sync engine metrics on the provided registerer.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	if reg == nil {
		return &SyncMetrics{}
	}
	pollDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "order_sync_poll_duration_seconds",
		Help:    "Duration of order poll cycles in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	pollFailure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_sync_poll_failure",
		Help: "Failed order poll cycles.",
	}, []string{"reason"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_sync_transitions",
		Help: "Status transitions notified, by source channel.",
	}, []string{"channel"})
	dedupDrops := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_sync_dedup_drops",
		Help: "Updates absorbed because the status was already known.",
	}, []string{"channel"})
	streamReconnects := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_sync_stream_reconnects",
		Help: "Stream reconnect attempts.",
	}, []string{"reason"})
	reg.MustRegister(pollDuration, pollFailure, transitions, dedupDrops, streamReconnects)
	return &SyncMetrics{
		pollDuration:     pollDuration,
		pollFailure:      pollFailure,
		transitions:      transitions,
		dedupDrops:       dedupDrops,
		streamReconnects: streamReconnects,
	}
}

// ObservePoll records the duration of a poll cycle.
func (s *SyncMetrics) ObservePoll(outcome string, duration time.Duration) {
	if s == nil || s.pollDuration == nil {
		return
	}
	s.pollDuration.WithLabelValues(normalizeLabel(outcome)).Observe(duration.Seconds())
}

// IncPollFailure counts a failed poll cycle.
func (s *SyncMetrics) IncPollFailure(reason string) {
	if s == nil || s.pollFailure == nil {
		return
	}
	s.pollFailure.WithLabelValues(normalizeLabel(reason)).Inc()
}

// IncTransition counts a notified status transition.
func (s *SyncMetrics) IncTransition(channel string) {
	if s == nil || s.transitions == nil {
		return
	}
	s.transitions.WithLabelValues(normalizeLabel(channel)).Inc()
}

// IncDedupDrop counts an update absorbed by the dedup rule.
func (s *SyncMetrics) IncDedupDrop(channel string) {
	if s == nil || s.dedupDrops == nil {
		return
	}
	s.dedupDrops.WithLabelValues(normalizeLabel(channel)).Inc()
}

// IncStreamReconnect counts a stream reconnect attempt.
func (s *SyncMetrics) IncStreamReconnect(reason string) {
	if s == nil || s.streamReconnects == nil {
		return
	}
	s.streamReconnects.WithLabelValues(normalizeLabel(reason)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
