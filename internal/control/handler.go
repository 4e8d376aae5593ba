package control

import (
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/vcaremind/voice-client/internal/coordinator"
	"github.com/vcaremind/voice-client/internal/dto"
	"github.com/vcaremind/voice-client/internal/shared"
	"github.com/vcaremind/voice-client/internal/voicesession"
)

type StatusResponse struct {
	Session     voicesession.Status  `json:"session"`
	Coordinator coordinator.Snapshot `json:"coordinator"`
}

type Handler struct {
	session   *voicesession.Session
	coord     *coordinator.Coordinator
	hub       *Hub
	keepalive time.Duration
	logger    *slog.Logger
}

func NewHandler(session *voicesession.Session, coord *coordinator.Coordinator, hub *Hub, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		session:   session,
		coord:     coord,
		hub:       hub,
		keepalive: sseKeepAliveInterval,
		logger:    logger.With("handler", "control"),
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/status", h.Status)

	g.PUT("/surfaces/:name", h.RegisterSurface)
	g.DELETE("/surfaces/:name", h.UnregisterSurface)
	g.POST("/surfaces/:name/pause", h.PauseSurface)
	g.POST("/surfaces/:name/resume", h.ResumeSurface)
	g.GET("/surfaces/:name/events", h.Events)
	g.POST("/foreground", h.Foreground)
	g.PUT("/background", h.Background)

	g.POST("/talk/start", h.StartTalking)
	g.POST("/talk/stop", h.StopTalking)
	g.POST("/text", h.SendText)
	g.POST("/frame", h.SubmitFrame)
	g.PUT("/volume", h.SetVolume)
	g.POST("/announce", h.Announce)

	g.POST("/notifications/voice", h.RequestVoiceNotification)
	g.POST("/notifications/fetch", h.FetchNotifications)
	g.POST("/notifications/read", h.MarkRead)
}

func (h *Handler) surfaceResponse(surface coordinator.Surface) dto.SurfaceResponse {
	resp := dto.SurfaceResponse{
		Name:        surface.Name,
		ChatCapable: surface.ChatCapable,
	}
	if current, ok := h.coord.Current(); ok && current.Name == surface.Name {
		resp.ChatAvailable = h.coord.IsChatAvailable()
	}
	return resp
}

// Status godoc
// @Summary      Pipeline and surface status
// @Tags         control
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /v1/status [get]
func (h *Handler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, StatusResponse{
		Session:     h.session.Status(),
		Coordinator: h.coord.Snapshot(),
	})
}

// RegisterSurface godoc
// @Summary      Bring a surface to the foreground
// @Description  The surface becomes current and receives pipeline events on its event stream.
// @Tags         surfaces
// @Accept       json
// @Produce      json
// @Param        name     path  string              true  "Surface name"
// @Param        request  body  dto.SurfaceRequest  true  "Surface capabilities"
// @Success      200  {object}  dto.SurfaceResponse
// @Failure      400  {object}  shared.APIError
// @Router       /v1/surfaces/{name} [put]
func (h *Handler) RegisterSurface(c echo.Context) error {
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		return shared.BadRequest("missing_name", "surface name is required")
	}

	var req dto.SurfaceRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_request", "invalid request body")
	}

	surface := coordinator.Surface{Name: name, ChatCapable: req.ChatCapable}
	if err := h.coord.Register(surface, h.hub.ListenerFor(name)); err != nil {
		return shared.FromError(err)
	}

	h.logger.Info("surface registered", "surface", name, "chat_capable", req.ChatCapable)
	return c.JSON(http.StatusOK, h.surfaceResponse(surface))
}

// UnregisterSurface godoc
// @Summary      Remove a surface
// @Tags         surfaces
// @Param        name  path  string  true  "Surface name"
// @Success      204
// @Failure      404  {object}  shared.APIError
// @Router       /v1/surfaces/{name} [delete]
func (h *Handler) UnregisterSurface(c echo.Context) error {
	if err := h.coord.Unregister(c.Param("name")); err != nil {
		return shared.FromError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// PauseSurface godoc
// @Summary      Pause a surface
// @Tags         surfaces
// @Param        name  path  string  true  "Surface name"
// @Success      204
// @Failure      404  {object}  shared.APIError
// @Router       /v1/surfaces/{name}/pause [post]
func (h *Handler) PauseSurface(c echo.Context) error {
	if err := h.coord.Pause(c.Param("name")); err != nil {
		return shared.FromError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ResumeSurface godoc
// @Summary      Resume a paused surface
// @Tags         surfaces
// @Produce      json
// @Param        name  path  string  true  "Surface name"
// @Success      200  {object}  dto.SurfaceResponse
// @Failure      404  {object}  shared.APIError
// @Router       /v1/surfaces/{name}/resume [post]
func (h *Handler) ResumeSurface(c echo.Context) error {
	name := c.Param("name")
	if err := h.coord.Resume(name, h.hub.ListenerFor(name)); err != nil {
		return shared.FromError(err)
	}
	surface, _ := h.coord.Current()
	return c.JSON(http.StatusOK, h.surfaceResponse(surface))
}

// Events godoc
// @Summary      Stream pipeline events for a surface
// @Description  Server-sent events. Only the current surface receives pipeline events.
// @Tags         surfaces
// @Produce      text/event-stream
// @Param        name  path  string  true  "Surface name"
// @Success      200
// @Router       /v1/surfaces/{name}/events [get]
func (h *Handler) Events(c echo.Context) error {
	name := c.Param("name")
	events, unsubscribe := h.hub.Subscribe(name)
	defer unsubscribe()

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")

	stream, err := newEventStream(res, events, h.keepalive)
	if err != nil {
		return shared.InternalError("streaming_unsupported", "streaming not supported")
	}
	res.WriteHeader(http.StatusOK)
	res.Flush()

	h.logger.Debug("event stream opened", "surface", name)
	if err := stream.Run(c.Request().Context()); err != nil {
		h.logger.Debug("event stream ended", "surface", name, "error", err)
	}
	return nil
}

// Foreground godoc
// @Summary      Return the app to the foreground
// @Tags         surfaces
// @Success      204
// @Router       /v1/foreground [post]
func (h *Handler) Foreground(c echo.Context) error {
	h.coord.Foreground()
	return c.NoContent(http.StatusNoContent)
}

// Background godoc
// @Summary      Report whether the background listener service is running
// @Tags         surfaces
// @Accept       json
// @Param        request  body  dto.BackgroundRequest  true  "Service state"
// @Success      204
// @Failure      400  {object}  shared.APIError
// @Router       /v1/background [put]
func (h *Handler) Background(c echo.Context) error {
	var req dto.BackgroundRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_request", "invalid request body")
	}
	h.coord.SetBackgroundServiceRunning(req.Running)
	return c.NoContent(http.StatusNoContent)
}

// StartTalking godoc
// @Summary      Start a user turn
// @Description  Starts microphone capture. Streamed playback is flushed when barge-in applies.
// @Tags         talk
// @Success      204
// @Failure      503  {object}  shared.APIError
// @Router       /v1/talk/start [post]
func (h *Handler) StartTalking(c echo.Context) error {
	if err := h.session.StartTalking(); err != nil {
		h.logger.Warn("failed to start talking", "error", err)
		return shared.FromError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// StopTalking godoc
// @Summary      End a user turn
// @Tags         talk
// @Success      204
// @Router       /v1/talk/stop [post]
func (h *Handler) StopTalking(c echo.Context) error {
	if err := h.session.StopTalking(); err != nil {
		return shared.FromError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// SendText godoc
// @Summary      Send a typed message
// @Tags         talk
// @Accept       json
// @Produce      json
// @Param        request  body  dto.TextRequest  true  "Message"
// @Success      202  {object}  dto.AcceptedResponse
// @Failure      400  {object}  shared.APIError
// @Failure      503  {object}  shared.APIError
// @Router       /v1/text [post]
func (h *Handler) SendText(c echo.Context) error {
	var req dto.TextRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_request", "invalid request body")
	}
	if strings.TrimSpace(req.Text) == "" {
		return shared.BadRequest("missing_text", "text is required")
	}
	if err := h.session.SendText(req.Text); err != nil {
		return shared.FromError(err)
	}
	return c.JSON(http.StatusAccepted, dto.AcceptedResponse{Status: "accepted"})
}

// SubmitFrame godoc
// @Summary      Attach a camera frame to the next audio chunk
// @Tags         talk
// @Accept       json
// @Produce      json
// @Param        request  body  dto.FrameRequest  true  "Base64 JPEG"
// @Success      202  {object}  dto.AcceptedResponse
// @Failure      400  {object}  shared.APIError
// @Router       /v1/frame [post]
func (h *Handler) SubmitFrame(c echo.Context) error {
	var req dto.FrameRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_request", "invalid request body")
	}
	if req.Image == "" {
		return shared.BadRequest("missing_image", "image is required")
	}
	if _, err := base64.StdEncoding.DecodeString(req.Image); err != nil {
		return shared.BadRequest("invalid_image", "image must be base64 encoded")
	}
	h.session.SubmitFrame(req.Image)
	return c.JSON(http.StatusAccepted, dto.AcceptedResponse{Status: "accepted"})
}

// SetVolume godoc
// @Summary      Set the playback volume
// @Description  Values outside [0,1] are clamped.
// @Tags         talk
// @Accept       json
// @Produce      json
// @Param        request  body  dto.VolumeRequest  true  "Volume"
// @Success      200  {object}  dto.VolumeResponse
// @Failure      400  {object}  shared.APIError
// @Router       /v1/volume [put]
func (h *Handler) SetVolume(c echo.Context) error {
	var req dto.VolumeRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_request", "invalid request body")
	}
	player := h.session.Player()
	player.SetVolume(req.Volume)
	return c.JSON(http.StatusOK, dto.VolumeResponse{Volume: player.Volume()})
}

// Announce godoc
// @Summary      Play a local prompt
// @Description  The prompt is skipped if streamed audio holds the output.
// @Tags         talk
// @Accept       json
// @Produce      json
// @Param        request  body  dto.AnnounceRequest  true  "Prompt name"
// @Success      202  {object}  dto.AcceptedResponse
// @Failure      400  {object}  shared.APIError
// @Failure      503  {object}  shared.APIError
// @Router       /v1/announce [post]
func (h *Handler) Announce(c echo.Context) error {
	var req dto.AnnounceRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_request", "invalid request body")
	}
	if req.Prompt == "" {
		return shared.BadRequest("missing_prompt", "prompt is required")
	}
	if err := h.session.Announce(req.Prompt); err != nil {
		return shared.FromError(err)
	}
	return c.JSON(http.StatusAccepted, dto.AcceptedResponse{Status: "accepted"})
}

// RequestVoiceNotification godoc
// @Summary      Request a spoken notification
// @Tags         notifications
// @Accept       json
// @Produce      json
// @Param        request  body  dto.VoiceNotificationRequest  true  "Notification"
// @Success      202  {object}  dto.VoiceNotificationResponse
// @Failure      400  {object}  shared.APIError
// @Failure      429  {object}  shared.APIError
// @Failure      503  {object}  shared.APIError
// @Router       /v1/notifications/voice [post]
func (h *Handler) RequestVoiceNotification(c echo.Context) error {
	notifications := h.session.Notifications()
	if notifications == nil {
		return shared.ServiceUnavailable("notifications_disabled", "notifications are not configured")
	}

	var req dto.VoiceNotificationRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_request", "invalid request body")
	}

	requestID, err := notifications.RequestVoiceNotification(req.Text, req.Type)
	if err != nil {
		return shared.FromError(err)
	}
	return c.JSON(http.StatusAccepted, dto.VoiceNotificationResponse{RequestID: requestID})
}

// FetchNotifications godoc
// @Summary      Ask the backend for the notification list
// @Description  The list arrives on the current surface's event stream.
// @Tags         notifications
// @Accept       json
// @Produce      json
// @Param        request  body  dto.FetchNotificationsRequest  false  "Query parameters"
// @Success      202  {object}  dto.AcceptedResponse
// @Failure      503  {object}  shared.APIError
// @Router       /v1/notifications/fetch [post]
func (h *Handler) FetchNotifications(c echo.Context) error {
	notifications := h.session.Notifications()
	if notifications == nil {
		return shared.ServiceUnavailable("notifications_disabled", "notifications are not configured")
	}

	var req dto.FetchNotificationsRequest
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return shared.BadRequest("invalid_request", "invalid request body")
		}
	}
	if err := notifications.FetchNotifications(req.Params); err != nil {
		return shared.FromError(err)
	}
	return c.JSON(http.StatusAccepted, dto.AcceptedResponse{Status: "accepted"})
}

// MarkRead godoc
// @Summary      Mark notifications as read
// @Tags         notifications
// @Accept       json
// @Produce      json
// @Param        request  body  dto.MarkReadRequest  true  "Notification ids"
// @Success      202  {object}  dto.AcceptedResponse
// @Failure      400  {object}  shared.APIError
// @Failure      503  {object}  shared.APIError
// @Router       /v1/notifications/read [post]
func (h *Handler) MarkRead(c echo.Context) error {
	notifications := h.session.Notifications()
	if notifications == nil {
		return shared.ServiceUnavailable("notifications_disabled", "notifications are not configured")
	}

	var req dto.MarkReadRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_request", "invalid request body")
	}
	if err := notifications.MarkRead(req.IDs); err != nil {
		return shared.FromError(err)
	}
	return c.JSON(http.StatusAccepted, dto.AcceptedResponse{Status: "accepted"})
}
