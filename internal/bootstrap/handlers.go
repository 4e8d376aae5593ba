package bootstrap

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/fx"

	_ "github.com/vcaremind/voice-client/docs"
	"github.com/vcaremind/voice-client/internal/control"
	"github.com/vcaremind/voice-client/internal/coordinator"
	"github.com/vcaremind/voice-client/internal/metrics"
	"github.com/vcaremind/voice-client/internal/voicesession"
)

type HandlerParams struct {
	fx.In

	ControlHandler *control.Handler
	Metrics        *metrics.Metrics
}

func RegisterRoutes(e *echo.Echo, params HandlerParams) {
	params.ControlHandler.RegisterRoutes(e.Group("/v1"))

	e.GET("/metrics", params.Metrics.Handler())
	e.GET("/swagger/*", echoSwagger.EchoWrapHandlerV3())
}

func ProvideControlHandler(session *voicesession.Session, coord *coordinator.Coordinator, hub *control.Hub, logger *slog.Logger) *control.Handler {
	return control.NewHandler(session, coord, hub, logger)
}

var HandlersModule = fx.Options(
	fx.Provide(ProvideControlHandler),
	fx.Invoke(RegisterRoutes),
)
