// Package metrics exposes Prometheus collectors for the share service.
//
// All methods are nil-safe: components accept a *Metrics and may be handed
// nil in tests, which results in zero overhead.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	uploadsTotal      prometheus.Counter
	downloadsTotal    prometheus.Counter
	activeRooms       prometheus.Gauge
	signalingMessages *prometheus.CounterVec
	janitorSweeps     prometheus.Counter
	filesExpired      prometheus.Counter
	roomsExpired      prometheus.Counter
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		uploadsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "titaniumshare_uploads_total",
			Help: "Confirmed file uploads.",
		}),
		downloadsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "titaniumshare_downloads_total",
			Help: "Successful download URL mints.",
		}),
		activeRooms: factory.NewGauge(prometheus.GaugeOpts{
			Name: "titaniumshare_active_rooms",
			Help: "Rooms currently registered in the signaling hub.",
		}),
		signalingMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "titaniumshare_signaling_messages_total",
			Help: "Signaling envelopes processed, by type.",
		}, []string{"type"}),
		janitorSweeps: factory.NewCounter(prometheus.CounterOpts{
			Name: "titaniumshare_janitor_sweeps_total",
			Help: "Completed janitor sweep passes.",
		}),
		filesExpired: factory.NewCounter(prometheus.CounterOpts{
			Name: "titaniumshare_files_expired_total",
			Help: "Files removed by the janitor after expiry.",
		}),
		roomsExpired: factory.NewCounter(prometheus.CounterOpts{
			Name: "titaniumshare_rooms_expired_total",
			Help: "Rooms removed by the janitor after expiry.",
		}),
	}
}

// Handler returns the /metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// IncUploads records a confirmed upload.
func (m *Metrics) IncUploads() {
	if m != nil {
		m.uploadsTotal.Inc()
	}
}

// IncDownloads records a successful download URL mint.
func (m *Metrics) IncDownloads() {
	if m != nil {
		m.downloadsTotal.Inc()
	}
}

// SetActiveRooms records the hub's current room count.
func (m *Metrics) SetActiveRooms(n int) {
	if m != nil {
		m.activeRooms.Set(float64(n))
	}
}

// IncSignalingMessage records a processed signaling envelope.
func (m *Metrics) IncSignalingMessage(msgType string) {
	if m != nil {
		m.signalingMessages.WithLabelValues(msgType).Inc()
	}
}

// IncJanitorSweeps records a completed sweep pass.
func (m *Metrics) IncJanitorSweeps() {
	if m != nil {
		m.janitorSweeps.Inc()
	}
}

// AddFilesExpired records files reaped by the janitor.
func (m *Metrics) AddFilesExpired(n int) {
	if m != nil {
		m.filesExpired.Add(float64(n))
	}
}

// AddRoomsExpired records rooms reaped by the janitor.
func (m *Metrics) AddRoomsExpired(n int) {
	if m != nil {
		m.roomsExpired.Add(float64(n))
	}
}
