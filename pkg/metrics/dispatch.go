package metrics

import "github.com/prometheus/client_golang/prometheus"

// DispatchMetrics records notification fanout outcomes.
type DispatchMetrics struct {
	sends   *prometheus.CounterVec
	batches *prometheus.CounterVec
	dropped *prometheus.CounterVec
	retries prometheus.Counter
}

// NewDispatchMetrics registers the dispatcher metrics on the provided registerer.
func NewDispatchMetrics(reg prometheus.Registerer) *DispatchMetrics {
	if reg == nil {
		return &DispatchMetrics{}
	}
	sends := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notify_sends_total",
		Help: "Per-recipient send attempts by outcome.",
	}, []string{"kind", "outcome"})
	batches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notify_batches_total",
		Help: "Recipient batches processed.",
	}, []string{"kind"})
	dropped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notify_permanent_failures_total",
		Help: "Recipients abandoned after exhausting retries.",
	}, []string{"kind"})
	retries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notify_retry_rounds_total",
		Help: "Shrinking-batch retry rounds executed.",
	})
	reg.MustRegister(sends, batches, dropped, retries)
	return &DispatchMetrics{
		sends:   sends,
		batches: batches,
		dropped: dropped,
		retries: retries,
	}
}

// IncSend records one per-recipient send attempt.
func (d *DispatchMetrics) IncSend(kind, outcome string) {
	if d == nil || d.sends == nil {
		return
	}
	d.sends.WithLabelValues(normalizeLabel(kind), normalizeLabel(outcome)).Inc()
}

// IncBatch records one processed batch.
func (d *DispatchMetrics) IncBatch(kind string) {
	if d == nil || d.batches == nil {
		return
	}
	d.batches.WithLabelValues(normalizeLabel(kind)).Inc()
}

// IncDropped records recipients abandoned after the final attempt.
func (d *DispatchMetrics) IncDropped(kind string, count int) {
	if d == nil || d.dropped == nil || count <= 0 {
		return
	}
	d.dropped.WithLabelValues(normalizeLabel(kind)).Add(float64(count))
}

// IncRetryRound records one shrinking-batch retry round.
func (d *DispatchMetrics) IncRetryRound() {
	if d == nil || d.retries == nil {
		return
	}
	d.retries.Inc()
}
