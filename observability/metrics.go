package observability

import "github.com/prometheus/client_golang/prometheus"

const namespace = "chatroom"

// Metrics counts what happens on the synchronization path.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	SnapshotsDelivered prometheus.Counter
	SnapshotsConflated prometheus.Counter
	MessagesSent       prometheus.Counter
	SendsFailed        prometheus.Counter
	Placeholders       prometheus.Counter
	OpenSubscriptions  prometheus.Gauge
}

// NewMetrics creates the collectors and registers them on reg, when reg is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SnapshotsDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_delivered_total",
			Help:      "Recent-window snapshots handed to subscribers.",
		}),
		SnapshotsConflated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_conflated_total",
			Help:      "Snapshots replaced by a newer one before the subscriber read them.",
		}),
		MessagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Messages written to the store.",
		}),
		SendsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sends_failed_total",
			Help:      "Message writes that failed and were dropped.",
		}),
		Placeholders: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "placeholder_fields_total",
			Help:      "Record fields replaced by a placeholder while decoding.",
		}),
		OpenSubscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_subscriptions",
			Help:      "Live snapshot subscriptions currently open.",
		}),
	}
	if reg == nil {
		return m
	}
	reg.MustRegister(
		m.SnapshotsDelivered,
		m.SnapshotsConflated,
		m.MessagesSent,
		m.SendsFailed,
		m.Placeholders,
		m.OpenSubscriptions,
	)
	return m
}

func (m *Metrics) SnapshotDelivered(conflated bool) {
	if m == nil {
		return
	}
	m.SnapshotsDelivered.Inc()
	if conflated {
		m.SnapshotsConflated.Inc()
	}
}

func (m *Metrics) MessageSent() {
	if m == nil {
		return
	}
	m.MessagesSent.Inc()
}

func (m *Metrics) SendFailed() {
	if m == nil {
		return
	}
	m.SendsFailed.Inc()
}

func (m *Metrics) PlaceholdersUsed(n int) {
	if m == nil || n == 0 {
		return
	}
	m.Placeholders.Add(float64(n))
}

func (m *Metrics) SubscriptionOpened() {
	if m == nil {
		return
	}
	m.OpenSubscriptions.Inc()
}

func (m *Metrics) SubscriptionClosed() {
	if m == nil {
		return
	}
	m.OpenSubscriptions.Dec()
}
