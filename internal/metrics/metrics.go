package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	cyclesStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "moodpulse",
			Name:      "cycles_started_total",
			Help:      "Count of survey cycles started.",
		},
	)

	answersRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "moodpulse",
			Name:      "answers_recorded_total",
			Help:      "Count of survey answers recorded by step.",
		},
		[]string{"step"},
	)

	remindersSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "moodpulse",
			Name:      "reminders_sent_total",
			Help:      "Count of reminder notifications sent by the sweep.",
		},
	)

	requestsTimedOut = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "moodpulse",
			Name:      "requests_timed_out_total",
			Help:      "Count of mood requests marked not_answered.",
		},
	)

	pendingRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "moodpulse",
			Name:      "pending_requests",
			Help:      "Pending mood requests seen by the last sweep.",
		},
	)

	sweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "moodpulse",
			Name:      "sweep_duration_seconds",
			Help:      "Time spent scanning pending requests.",
			Buckets:   []float64{.01, .05, .1, .5, 1, 2, 5},
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(cyclesStarted, answersRecorded, remindersSent,
			requestsTimedOut, pendingRequests, sweepDuration)
	})
}

func IncCycleStarted() {
	cyclesStarted.Inc()
}

func IncAnswerRecorded(step string) {
	answersRecorded.WithLabelValues(step).Inc()
}

func IncReminderSent() {
	remindersSent.Inc()
}

func IncRequestTimedOut() {
	requestsTimedOut.Inc()
}

func SetPendingRequests(n int) {
	pendingRequests.Set(float64(n))
}

func ObserveSweepDuration(seconds float64) {
	sweepDuration.Observe(seconds)
}
