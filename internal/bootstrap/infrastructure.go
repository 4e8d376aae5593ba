package bootstrap

import (
	"context"
	"log/slog"
	"os"

	"github.com/benbjohnson/clock"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/vcaremind/voice-client/internal/handoff"
	"github.com/vcaremind/voice-client/internal/metrics"
)

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func ProvideLogger(cfg *Config) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)
	return logger
}

func ProvideClock() clock.Clock {
	return clock.New()
}

// ProvideRedisClient returns nil when no Redis address is configured; the
// background listener handoff is then disabled.
func ProvideRedisClient(lc fx.Lifecycle, cfg *Config) *redis.Client {
	if !cfg.RedisEnabled() {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return client
}

func ProvideHandoffService(client *redis.Client, cfg *Config, logger *slog.Logger) *handoff.Service {
	if client == nil {
		return nil
	}
	return handoff.NewService(client, cfg.DeviceID, logger)
}

var ConfigModule = fx.Options(
	fx.Provide(LoadConfig),
)

var InfrastructureModule = fx.Options(
	fx.Provide(
		ProvideLogger,
		ProvideClock,
		ProvideRedisClient,
		ProvideHandoffService,
		metrics.New,
	),
)
