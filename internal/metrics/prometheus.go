package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var connectionStates = []string{"disconnected", "connecting", "open", "closing"}

// Metrics holds the Prometheus collectors for the voice pipeline.
type Metrics struct {
	registry *prometheus.Registry

	// Connection
	ConnState       *prometheus.GaugeVec
	ReconnectsTotal prometheus.Counter
	FramesSent      *prometheus.CounterVec
	FramesReceived  *prometheus.CounterVec
	MalformedFrames prometheus.Counter

	// Audio
	ChunksEmitted      prometheus.Counter
	PlaybackBuffers    prometheus.Counter
	PlaybackActiveFlag prometheus.Gauge

	// Control API
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ConnState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "voice_connection_state",
			Help: "1 for the current WebSocket connection state, 0 otherwise",
		}, []string{"state"}),
		ReconnectsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "voice_reconnects_scheduled_total",
			Help: "Total number of reconnect attempts scheduled",
		}),
		FramesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voice_frames_sent_total",
			Help: "Total number of frames written to the backend",
		}, []string{"kind"}),
		FramesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voice_frames_received_total",
			Help: "Total number of frames received from the backend",
		}, []string{"kind"}),
		MalformedFrames: factory.NewCounter(prometheus.CounterOpts{
			Name: "voice_malformed_frames_total",
			Help: "Total number of inbound frames dropped as malformed",
		}),
		ChunksEmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "voice_audio_chunks_emitted_total",
			Help: "Total number of captured audio chunks emitted",
		}),
		PlaybackBuffers: factory.NewCounter(prometheus.CounterOpts{
			Name: "voice_playback_buffers_total",
			Help: "Total number of audio buffers queued for playback",
		}),
		PlaybackActiveFlag: factory.NewGauge(prometheus.GaugeOpts{
			Name: "voice_playback_active",
			Help: "1 while streamed audio is playing",
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voice_control_requests_total",
			Help: "Total number of control API requests",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "voice_control_request_duration_seconds",
			Help:    "Control API request duration",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"method", "route"}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ConnectionState(state string) {
	for _, s := range connectionStates {
		value := 0.0
		if s == state {
			value = 1
		}
		m.ConnState.WithLabelValues(s).Set(value)
	}
}

func (m *Metrics) ReconnectScheduled() {
	m.ReconnectsTotal.Inc()
}

func (m *Metrics) FrameSent(kind string) {
	m.FramesSent.WithLabelValues(kind).Inc()
}

func (m *Metrics) FrameReceived(kind string) {
	m.FramesReceived.WithLabelValues(kind).Inc()
}

func (m *Metrics) MalformedFrame() {
	m.MalformedFrames.Inc()
}

func (m *Metrics) ChunkEmitted() {
	m.ChunksEmitted.Inc()
}

func (m *Metrics) PlaybackBuffer() {
	m.PlaybackBuffers.Inc()
}

func (m *Metrics) PlaybackActive(active bool) {
	if active {
		m.PlaybackActiveFlag.Set(1)
		return
	}
	m.PlaybackActiveFlag.Set(0)
}

func (m *Metrics) Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

// Middleware records request counts and latency per route template.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			m.HTTPRequests.WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(c.Request().Method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
