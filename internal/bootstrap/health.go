package bootstrap

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"

	"github.com/vcaremind/voice-client/internal/audio"
	"github.com/vcaremind/voice-client/internal/connection"
	"github.com/vcaremind/voice-client/internal/handoff"
	"github.com/vcaremind/voice-client/internal/health"
)

const version = "1.0.0"

func ProvideHealthHandler(client *connection.Client, player *audio.Player, svc *handoff.Service) *health.Handler {
	var redis health.Pinger
	if svc != nil {
		redis = svc
	}
	return health.NewHandler(client, player, redis, version)
}

func requestCounter(h *health.Handler) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h.IncrementRequests()
			return next(c)
		}
	}
}

func RegisterHealthRoutes(e *echo.Echo, h *health.Handler) {
	e.Use(requestCounter(h))
	h.RegisterRoutes(e)
}

var HealthModule = fx.Options(
	fx.Provide(ProvideHealthHandler),
	fx.Invoke(RegisterHealthRoutes),
)
