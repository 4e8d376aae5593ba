package health

import (
	"context"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/vcaremind/voice-client/internal/connection"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// playbackBacklog is the queue depth at which playback is reported degraded.
const playbackBacklog = 256

type ComponentStatus struct {
	Status    Status `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

type RuntimeStats struct {
	Goroutines         int    `json:"goroutines"`
	MemoryAllocMB      uint64 `json:"memory_alloc_mb"`
	MemoryTotalAllocMB uint64 `json:"memory_total_alloc_mb"`
	MemorySysMB        uint64 `json:"memory_sys_mb"`
	NumGC              uint32 `json:"num_gc"`
}

type ConnectionStats struct {
	State         string     `json:"state"`
	Retries       int        `json:"retries"`
	LastHeartbeat *time.Time `json:"last_heartbeat,omitempty"`
}

type PlaybackStats struct {
	Playing     bool `json:"playing"`
	QueueLength int  `json:"queue_length"`
}

type RequestStats struct {
	TotalRequests uint64 `json:"total_requests"`
}

type Stats struct {
	Connection ConnectionStats `json:"connection"`
	Playback   PlaybackStats   `json:"playback"`
	Requests   RequestStats    `json:"requests"`
	Runtime    RuntimeStats    `json:"runtime"`
}

type HealthResponse struct {
	Status        Status                     `json:"status"`
	Timestamp     time.Time                  `json:"timestamp"`
	Version       string                     `json:"version"`
	UptimeSeconds int64                      `json:"uptime_seconds"`
	Stats         Stats                      `json:"stats"`
	Components    map[string]ComponentStatus `json:"components"`
}

type ConnectionProbe interface {
	State() connection.State
	Retries() int
	ReconnectEnabled() bool
	LastHeartbeat() time.Time
}

type PlaybackProbe interface {
	IsPlaying() bool
	QueueLen() int
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	conn      ConnectionProbe
	playback  PlaybackProbe
	redis     Pinger
	version   string
	startTime time.Time

	totalRequests uint64
}

// NewHandler builds the health handler. redis may be nil when the handoff
// service is not configured; the component is then left out.
func NewHandler(conn ConnectionProbe, playback PlaybackProbe, redis Pinger, version string) *Handler {
	return &Handler{
		conn:      conn,
		playback:  playback,
		redis:     redis,
		version:   version,
		startTime: time.Now(),
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Liveness)
	e.GET("/health/ready", h.Readiness)
}

func (h *Handler) IncrementRequests() {
	atomic.AddUint64(&h.totalRequests, 1)
}

// Liveness godoc
// @Summary      Liveness probe
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) Liveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Readiness godoc
// @Summary      Readiness probe with component checks
// @Tags         health
// @Produce      json
// @Success      200  {object}  HealthResponse
// @Failure      503  {object}  HealthResponse
// @Router       /health/ready [get]
func (h *Handler) Readiness(c echo.Context) error {
	resp := h.Check(c.Request().Context())

	statusCode := http.StatusOK
	if resp.Status == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}
	return c.JSON(statusCode, resp)
}

func (h *Handler) Check(ctx context.Context) HealthResponse {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	components := make(map[string]ComponentStatus)
	var mu sync.Mutex
	var wg sync.WaitGroup

	checks := []struct {
		name  string
		check func(context.Context) ComponentStatus
	}{
		{"websocket", h.checkWebSocket},
		{"playback", h.checkPlayback},
	}
	if h.redis != nil {
		checks = append(checks, struct {
			name  string
			check func(context.Context) ComponentStatus
		}{"redis", h.checkRedis})
	}

	wg.Add(len(checks))
	for _, check := range checks {
		go func(name string, fn func(context.Context) ComponentStatus) {
			defer wg.Done()
			status := fn(ctx)
			mu.Lock()
			components[name] = status
			mu.Unlock()
		}(check.name, check.check)
	}
	wg.Wait()

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	stats := Stats{
		Requests: RequestStats{
			TotalRequests: atomic.LoadUint64(&h.totalRequests),
		},
		Runtime: RuntimeStats{
			Goroutines:         runtime.NumGoroutine(),
			MemoryAllocMB:      memStats.Alloc / 1024 / 1024,
			MemoryTotalAllocMB: memStats.TotalAlloc / 1024 / 1024,
			MemorySysMB:        memStats.Sys / 1024 / 1024,
			NumGC:              memStats.NumGC,
		},
	}
	if h.conn != nil {
		stats.Connection = ConnectionStats{
			State:   h.conn.State().String(),
			Retries: h.conn.Retries(),
		}
		if hb := h.conn.LastHeartbeat(); !hb.IsZero() {
			stats.Connection.LastHeartbeat = &hb
		}
	}
	if h.playback != nil {
		stats.Playback = PlaybackStats{
			Playing:     h.playback.IsPlaying(),
			QueueLength: h.playback.QueueLen(),
		}
	}

	return HealthResponse{
		Status:        h.computeOverallStatus(components),
		Timestamp:     time.Now().UTC(),
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Stats:         stats,
		Components:    components,
	}
}

func (h *Handler) checkWebSocket(ctx context.Context) ComponentStatus {
	start := time.Now()
	if h.conn == nil {
		return ComponentStatus{
			Status: StatusUnhealthy,
			Error:  "connection client not configured",
		}
	}

	switch h.conn.State() {
	case connection.StateOpen:
		return ComponentStatus{
			Status:    StatusHealthy,
			LatencyMs: time.Since(start).Milliseconds(),
		}
	case connection.StateConnecting:
		return ComponentStatus{
			Status:    StatusDegraded,
			LatencyMs: time.Since(start).Milliseconds(),
			Error:     "connecting",
		}
	}

	if h.conn.ReconnectEnabled() {
		return ComponentStatus{
			Status:    StatusDegraded,
			LatencyMs: time.Since(start).Milliseconds(),
			Error:     "reconnect pending",
		}
	}
	return ComponentStatus{
		Status:    StatusUnhealthy,
		LatencyMs: time.Since(start).Milliseconds(),
		Error:     "not connected",
	}
}

func (h *Handler) checkPlayback(ctx context.Context) ComponentStatus {
	start := time.Now()
	if h.playback == nil {
		return ComponentStatus{
			Status: StatusUnhealthy,
			Error:  "player not configured",
		}
	}

	if n := h.playback.QueueLen(); n >= playbackBacklog {
		return ComponentStatus{
			Status:    StatusDegraded,
			LatencyMs: time.Since(start).Milliseconds(),
			Error:     "playback backlog",
		}
	}
	return ComponentStatus{
		Status:    StatusHealthy,
		LatencyMs: time.Since(start).Milliseconds(),
	}
}

func (h *Handler) checkRedis(ctx context.Context) ComponentStatus {
	start := time.Now()
	if err := h.redis.Ping(ctx); err != nil {
		return ComponentStatus{
			Status:    StatusUnhealthy,
			LatencyMs: time.Since(start).Milliseconds(),
			Error:     "ping failed",
		}
	}
	return ComponentStatus{
		Status:    StatusHealthy,
		LatencyMs: time.Since(start).Milliseconds(),
	}
}

func (h *Handler) computeOverallStatus(components map[string]ComponentStatus) Status {
	criticalComponents := []string{"websocket", "playback"}

	for _, name := range criticalComponents {
		if status, ok := components[name]; ok && status.Status == StatusUnhealthy {
			return StatusUnhealthy
		}
	}

	for _, status := range components {
		if status.Status != StatusHealthy {
			return StatusDegraded
		}
	}
	return StatusHealthy
}
