// Package metrics holds the Prometheus collectors for the LMS service.
// A nil *Collectors is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collectors struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	quizSubmissions *prometheus.CounterVec
	quizScores      prometheus.Histogram
	activeAttempts  prometheus.Gauge
	downloads       *prometheus.CounterVec
	offlineBytes    prometheus.Gauge
	progressCommits *prometheus.CounterVec
}

// New registers every collector on a fresh registry.
func New() *Collectors {
	c := &Collectors{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "endpoint"},
		),
		quizSubmissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lms_quiz_submissions_total",
				Help: "Quiz attempts submitted, by trigger and persistence outcome",
			},
			[]string{"trigger", "persisted"},
		),
		quizScores: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lms_quiz_score_percent",
			Help:    "Distribution of submitted quiz scores",
			Buckets: []float64{25, 50, 75, 85, 95, 100},
		}),
		activeAttempts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lms_quiz_active_attempts",
			Help: "Quiz attempts currently in progress",
		}),
		downloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lms_offline_downloads_total",
				Help: "Offline module downloads, by result",
			},
			[]string{"result"},
		),
		offlineBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lms_offline_estimated_bytes",
			Help: "Estimated bytes held by the offline cache",
		}),
		progressCommits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lms_progress_commits_total",
				Help: "Progress store commits, by operation and result",
			},
			[]string{"operation", "result"},
		),
	}
	c.registry.MustRegister(
		c.requests,
		c.requestDuration,
		c.quizSubmissions,
		c.quizScores,
		c.activeAttempts,
		c.downloads,
		c.offlineBytes,
		c.progressCommits,
	)
	return c
}

// Handler exposes the registry in the Prometheus text format.
func (c *Collectors) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Gatherer is used by tests to read collected values.
func (c *Collectors) Gatherer() prometheus.Gatherer {
	return c.registry
}

func (c *Collectors) ObserveRequest(method, endpoint string, status int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.requests.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	c.requestDuration.WithLabelValues(method, endpoint).Observe(elapsed.Seconds())
}

func (c *Collectors) QuizSubmitted(trigger string, persisted bool, score int) {
	if c == nil {
		return
	}
	c.quizSubmissions.WithLabelValues(trigger, strconv.FormatBool(persisted)).Inc()
	c.quizScores.Observe(float64(score))
}

func (c *Collectors) AttemptStarted() {
	if c == nil {
		return
	}
	c.activeAttempts.Inc()
}

func (c *Collectors) AttemptEnded() {
	if c == nil {
		return
	}
	c.activeAttempts.Dec()
}

func (c *Collectors) Download(result string) {
	if c == nil {
		return
	}
	c.downloads.WithLabelValues(result).Inc()
}

func (c *Collectors) OfflineUsage(used int64) {
	if c == nil {
		return
	}
	c.offlineBytes.Set(float64(used))
}

func (c *Collectors) ProgressCommit(operation string, err error) {
	if c == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.progressCommits.WithLabelValues(operation, result).Inc()
}
