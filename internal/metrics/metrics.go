package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels successful operations.
	OutcomeSuccess = "success"
	// OutcomeError labels failed operations (dependency or pipeline issues).
	OutcomeError = "error"
	// OutcomeTimeout labels remote calls abandoned at their deadline.
	OutcomeTimeout = "timeout"
)

// Alert evaluation outcomes.
const (
	AlertCreated   = "created"
	AlertThrottled = "throttled"
	AlertSkipped   = "skipped"
)

const namespace = "dustinel"

var (
	scoresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scores_total",
			Help:      "Scored check-ins, partitioned by scoring method and risk level.",
		},
		[]string{"method", "risk_level"},
	)

	remoteModelSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "remote_model_seconds",
			Help:      "Remote model call latency in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 8},
		},
		[]string{"outcome"},
	)

	alertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Alert evaluations, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification attempts, partitioned by channel and outcome.",
		},
		[]string{"channel", "outcome"},
	)

	checkinsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkins_total",
			Help:      "Check-ins handled, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	checkinDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "checkin_seconds",
			Help:      "End-to-end check-in latency in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 6, 10},
		},
	)
)

// Register attaches risk engine collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		scoresTotal,
		remoteModelSeconds,
		alertsTotal,
		notificationsTotal,
		checkinsTotal,
		checkinDurationSeconds,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveScoring counts a produced score by provenance and level.
func ObserveScoring(method, level string) {
	scoresTotal.WithLabelValues(method, level).Inc()
}

// ObserveRemoteModel records a remote model attempt.
func ObserveRemoteModel(duration time.Duration, outcome string) {
	switch outcome {
	case OutcomeSuccess, OutcomeTimeout:
	default:
		outcome = OutcomeError
	}
	remoteModelSeconds.WithLabelValues(outcome).Observe(nonNegative(duration).Seconds())
}

// ObserveAlert counts an alert evaluation outcome.
func ObserveAlert(outcome string) {
	alertsTotal.WithLabelValues(outcome).Inc()
}

// ObserveNotification counts a single channel delivery attempt.
func ObserveNotification(channel string, delivered bool) {
	outcome := OutcomeSuccess
	if !delivered {
		outcome = OutcomeError
	}
	notificationsTotal.WithLabelValues(channel, outcome).Inc()
}

// ObserveCheckin records a check-in duration and outcome label.
func ObserveCheckin(duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	checkinsTotal.WithLabelValues(label).Inc()
	checkinDurationSeconds.Observe(nonNegative(duration).Seconds())
}

func nonNegative(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
