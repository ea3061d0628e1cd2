// Package metrics records study activity as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/p-n-ai/pai-study/internal/study"
)

const namespace = "study"

// Recorder turns study events into metrics. It implements study.EventLogger.
type Recorder struct {
	sessionsStarted prometheus.Counter
	sessionsActive  prometheus.Gauge
	navigations     *prometheus.CounterVec
	answers         *prometheus.CounterVec
	quizzes         prometheus.Counter
	quizScore       prometheus.Histogram
}

// New registers the study metrics on reg.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		sessionsStarted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Study sessions created.",
		}),
		sessionsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Study sessions currently open.",
		}),
		navigations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "navigations_total",
			Help:      "Position changes, by trigger.",
		}, []string{"trigger"}),
		answers: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_total",
			Help:      "Quiz answers, by outcome.",
		}, []string{"outcome"}),
		quizzes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quizzes_completed_total",
			Help:      "Quizzes answered to the end.",
		}),
		quizScore: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "quiz_score_ratio",
			Help:      "Share of correct answers in completed quizzes.",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
		}),
	}
}

func (r *Recorder) LogEvent(event study.Event) error {
	switch event.EventType {
	case study.EventSessionStarted:
		r.sessionsStarted.Inc()
		r.sessionsActive.Inc()
	case study.EventSessionEnded:
		r.sessionsActive.Dec()
	case study.EventNavigated:
		r.navigations.WithLabelValues("user").Inc()
	case study.EventAutoAdvanced:
		r.navigations.WithLabelValues("auto").Inc()
	case study.EventQuestionAnswered:
		outcome := "incorrect"
		if correct, _ := event.Data["correct"].(bool); correct {
			outcome = "correct"
		}
		r.answers.WithLabelValues(outcome).Inc()
	case study.EventQuizCompleted:
		r.quizzes.Inc()
		correct, _ := event.Data["correct"].(int)
		if total, _ := event.Data["total"].(int); total > 0 {
			r.quizScore.Observe(float64(correct) / float64(total))
		}
	}
	return nil
}

// NewRegistry returns a registry with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
