package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/fx"

	"github.com/vcaremind/voice-client/internal/control"
	"github.com/vcaremind/voice-client/internal/coordinator"
	"github.com/vcaremind/voice-client/internal/metrics"
)

var defaultCORSConfig = middleware.CORSConfig{
	AllowOrigins: []string{"*"},
	AllowMethods: []string{
		http.MethodGet,
		http.MethodHead,
		http.MethodPut,
		http.MethodPost,
		http.MethodDelete,
		http.MethodOptions,
	},
	AllowHeaders: []string{
		"Accept",
		"Content-Type",
		"X-Requested-With",
	},
	MaxAge: 86400,
}

func NewEchoServer(m *metrics.Metrics) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(defaultCORSConfig))
	e.Use(m.Middleware())
	return e
}

func StartServer(lc fx.Lifecycle, e *echo.Echo, cfg *Config, logger *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				logger.Info("control API starting", "addr", cfg.ControlAddr)
				if err := e.Start(cfg.ControlAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("control API error", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return e.Shutdown(ctx)
		},
	})
}

// AutoSurface registers a chat-capable surface at startup so a headless
// client connects without a UI.
type AutoSurface string

func RegisterAutoSurface(lc fx.Lifecycle, name AutoSurface, coord *coordinator.Coordinator, hub *control.Hub, logger *slog.Logger) {
	if name == "" {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			surface := coordinator.Surface{Name: string(name), ChatCapable: true}
			if err := coord.Register(surface, hub.ListenerFor(surface.Name)); err != nil {
				return err
			}
			logger.Info("auto surface registered", "surface", surface.Name)
			return nil
		},
	})
}

var ServerModule = fx.Options(
	fx.Provide(NewEchoServer),
	fx.Invoke(StartServer),
)

// Options assembles the application. Extra options are appended, which lets
// callers supply an AutoSurface or override providers.
func Options(extra ...fx.Option) fx.Option {
	return fx.Options(
		ConfigModule,
		InfrastructureModule,
		VoiceModule,
		ServerModule,
		HealthModule,
		HandlersModule,
		GRPCModule,
		fx.Options(extra...),
	)
}

func Run(autoSurface string) {
	fx.New(
		Options(
			fx.Supply(AutoSurface(autoSurface)),
			fx.Invoke(RegisterAutoSurface),
		),
	).Run()
}
