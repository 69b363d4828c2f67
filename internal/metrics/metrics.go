// Package metrics holds the Prometheus collectors of the dashboard.
package metrics

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "camdash"

// Metrics groups every collector behind one private registry.
type Metrics struct {
	registry *prometheus.Registry

	backendRequests  *prometheus.CounterVec
	backendDuration  *prometheus.HistogramVec
	downloadRuns     *prometheus.CounterVec
	reviewResolved   *prometheus.CounterVec
	referenceSaves   *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	activeSessions   prometheus.Gauge
	websocketClients prometheus.Gauge
}

// NewMetrics creates and registers all collectors.
func NewMetrics() (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		backendRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_requests_total",
			Help:      "Backend API calls by endpoint and outcome",
		}, []string{"endpoint", "outcome"}),
		backendDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_request_duration_seconds",
			Help:      "Latency of backend API calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		downloadRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "download_runs_total",
			Help:      "Bulk download runs by terminal state",
		}, []string{"state"}),
		reviewResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "review_resolutions_total",
			Help:      "Review queue entries resolved by resolution",
		}, []string{"resolution"}),
		referenceSaves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reference_saves_total",
			Help:      "Manually saved references by result",
		}, []string{"result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Dashboard HTTP requests",
		}, []string{"method", "status_code"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Dashboard sessions currently held in memory",
		}),
		websocketClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_clients",
			Help:      "Browsers subscribed to download progress",
		}),
	}

	collectors := []prometheus.Collector{
		m.backendRequests, m.backendDuration, m.downloadRuns, m.reviewResolved,
		m.referenceSaves, m.httpRequests, m.activeSessions, m.websocketClients,
	}
	for _, c := range collectors {
		if err := m.registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}
	return m, nil
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog:      log.New(os.Stderr, "metrics handler: ", log.LstdFlags),
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveBackend matches the API client's observer signature.
func (m *Metrics) ObserveBackend(endpoint, outcome string, elapsed time.Duration) {
	m.backendRequests.WithLabelValues(endpoint, outcome).Inc()
	m.backendDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// DownloadFinished counts a run that reached a terminal state.
func (m *Metrics) DownloadFinished(state string) {
	m.downloadRuns.WithLabelValues(state).Inc()
}

// ReviewResolved counts one resolved review queue entry.
func (m *Metrics) ReviewResolved(resolution string) {
	m.reviewResolved.WithLabelValues(resolution).Inc()
}

// ReferencesSaved records the outcome of a manual save batch.
func (m *Metrics) ReferencesSaved(saved, failed int) {
	m.referenceSaves.WithLabelValues("saved").Add(float64(saved))
	m.referenceSaves.WithLabelValues("failed").Add(float64(failed))
}

// HTTPRequest counts one served dashboard request.
func (m *Metrics) HTTPRequest(method string, status int) {
	m.httpRequests.WithLabelValues(method, fmt.Sprint(status)).Inc()
}

// SetActiveSessions updates the session gauge.
func (m *Metrics) SetActiveSessions(n int) {
	m.activeSessions.Set(float64(n))
}

// SetWebsocketClients updates the websocket client gauge.
func (m *Metrics) SetWebsocketClients(n int) {
	m.websocketClients.Set(float64(n))
}
