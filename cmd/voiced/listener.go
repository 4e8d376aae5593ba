package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/vcaremind/voice-client/internal/bootstrap"
	"github.com/vcaremind/voice-client/internal/connection"
	"github.com/vcaremind/voice-client/internal/handoff"
	"github.com/vcaremind/voice-client/internal/notification"
	"github.com/vcaremind/voice-client/internal/transport"
)

func listenerCmd() *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "listener",
		Short: "Run the background listener that takes over while the app is hidden",
		Long: `Run the background listener. It advertises itself through Redis so the
foreground client keeps the connection alive for a grace period when its last
surface goes away, then holds its own backend connection while resumed and
releases it when paused. Notifications received while active are logged.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := bootstrap.LoadConfig()
			if err != nil {
				return err
			}
			if !cfg.RedisEnabled() {
				return errors.New("REDIS_ADDR is required for the background listener")
			}
			logger := bootstrap.ProvideLogger(cfg)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runListener(ctx, cfg, ttl, logger)
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", handoff.DefaultAliveTTL, "presence key lifetime")
	return cmd
}

func runListener(ctx context.Context, cfg *bootstrap.Config, ttl time.Duration, logger *slog.Logger) error {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()

	client := connection.NewClient(connection.Config{
		URL:               cfg.WebSocketURL,
		ReadTimeout:       cfg.ReadTimeout,
		HeartbeatInterval: cfg.HeartbeatInterval,
	}, connection.WithLogger(logger))
	manager := notification.NewManager(notification.Config{}, client, nil, nil, logger)
	client.SetCallbacks(connection.Callbacks{
		OnMessage: func(resp *transport.Response) { manager.Handle(resp) },
	})
	manager.SetCallbacks(notification.Callbacks{
		OnNotificationCreated: func(n transport.Notification) {
			logger.Info("notification received", "id", n.ID.String(), "title", n.Title)
		},
		OnVoiceNotification: func(v notification.VoiceNotification) {
			logger.Info("voice notification received", "text", v.Text, "type", v.Type)
		},
	})

	svc := handoff.NewService(rdb, cfg.DeviceID, logger)
	listener := handoff.NewListener(svc, ttl, nil, handoff.ListenerCallbacks{
		OnResume: client.Connect,
		OnPause:  client.Disconnect,
	}, logger)

	if err := listener.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client.Disconnect()
	return listener.Stop(stopCtx)
}
