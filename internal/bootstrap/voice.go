package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/vcaremind/voice-client/internal/audio"
	"github.com/vcaremind/voice-client/internal/connection"
	"github.com/vcaremind/voice-client/internal/control"
	"github.com/vcaremind/voice-client/internal/coordinator"
	"github.com/vcaremind/voice-client/internal/handoff"
	"github.com/vcaremind/voice-client/internal/metrics"
	"github.com/vcaremind/voice-client/internal/notification"
	"github.com/vcaremind/voice-client/internal/shared"
	"github.com/vcaremind/voice-client/internal/voicesession"
)

// hideCloser keeps the capture device from closing a shared stream between
// turns.
type hideCloser struct {
	io.Reader
}

func ProvideCaptureDevice(lc fx.Lifecycle, cfg *Config) (audio.CaptureDevice, error) {
	switch cfg.AudioInput {
	case "":
		return audio.NewReaderDevice(nil, false), nil
	case "-":
		return audio.NewReaderDevice(hideCloser{os.Stdin}, false), nil
	}

	f, err := os.Open(cfg.AudioInput)
	if err != nil {
		return nil, fmt.Errorf("open audio input %s: %w", cfg.AudioInput, err)
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return f.Close()
		},
	})
	return audio.NewReaderDevice(hideCloser{f}, true), nil
}

func ProvidePlaybackDevice(cfg *Config) (audio.PlaybackDevice, error) {
	switch cfg.AudioOutput {
	case "":
		return audio.DiscardDevice{}, nil
	case "-":
		return audio.NewWriterDevice(os.Stdout, true), nil
	}

	f, err := os.Create(cfg.AudioOutput)
	if err != nil {
		return nil, fmt.Errorf("open audio output %s: %w", cfg.AudioOutput, err)
	}
	return audio.NewWriterDevice(f, false), nil
}

func ProvideConnectionClient(cfg *Config, clk clock.Clock, logger *slog.Logger) *connection.Client {
	return connection.NewClient(connection.Config{
		URL:               cfg.WebSocketURL,
		ReadTimeout:       cfg.ReadTimeout,
		HeartbeatInterval: cfg.HeartbeatInterval,
		Backoff: shared.BackoffConfig{
			Initial:     cfg.ReconnectBaseDelay,
			MaxAttempts: cfg.ReconnectMaxAttempts,
			MaxDelay:    cfg.ReconnectMaxDelay,
			Jitter:      connection.DefaultReconnectJitter,
		},
	}, connection.WithClock(clk), connection.WithLogger(logger))
}

func ProvideGate() *audio.Gate {
	return audio.NewGate()
}

func ProvideRecorder(cfg *Config, device audio.CaptureDevice, gate *audio.Gate, clk clock.Clock, logger *slog.Logger) *audio.Recorder {
	return audio.NewRecorder(audio.RecorderConfig{
		SampleRate:   cfg.CaptureSampleRate,
		ChunkSamples: cfg.ChunkSamples,
		HalfDuplex:   cfg.HalfDuplex,
	}, device, gate, clk, logger)
}

func ProvidePlayer(cfg *Config, device audio.PlaybackDevice, gate *audio.Gate, logger *slog.Logger) *audio.Player {
	return audio.NewPlayer(audio.PlayerConfig{
		SampleRate: cfg.PlaybackSampleRate,
		DeviceRate: cfg.DeviceSampleRate,
		Volume:     cfg.PlaybackVolume,
	}, device, gate, logger)
}

func ProvideNotificationManager(cfg *Config, client *connection.Client, player *audio.Player, clk clock.Clock, logger *slog.Logger) *notification.Manager {
	return notification.NewManager(notification.Config{
		Cooldown: cfg.NotificationCooldown,
		AutoPlay: cfg.NotificationAutoPlay,
	}, client, player, clk, logger)
}

// ProvideAnnouncer returns nil when no prompts directory is configured.
func ProvideAnnouncer(cfg *Config, player *audio.Player, logger *slog.Logger) *voicesession.Announcer {
	if cfg.PromptsDir == "" {
		return nil
	}
	return voicesession.NewAnnouncer(voicesession.DirClips{Dir: cfg.PromptsDir}, player, logger)
}

type SessionParams struct {
	fx.In

	Config        *Config
	Client        *connection.Client
	Recorder      *audio.Recorder
	Player        *audio.Player
	Notifications *notification.Manager
	Announcer     *voicesession.Announcer
	Metrics       *metrics.Metrics
	Clock         clock.Clock
	Logger        *slog.Logger
}

func ProvideSession(lc fx.Lifecycle, p SessionParams) *voicesession.Session {
	s := voicesession.New(voicesession.Config{
		BargeIn: voicesession.BargeInPolicy{AllowWhileSpeaking: p.Config.BargeIn},
	}, voicesession.Deps{
		Client:        p.Client,
		Recorder:      p.Recorder,
		Player:        p.Player,
		Notifications: p.Notifications,
		Announcer:     p.Announcer,
		Metrics:       p.Metrics,
		Clock:         p.Clock,
		Log:           p.Logger,
	})
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return s.Close()
		},
	})
	return s
}

func ProvideCoordinator(lc fx.Lifecycle, cfg *Config, session *voicesession.Session, svc *handoff.Service, clk clock.Clock, logger *slog.Logger) *coordinator.Coordinator {
	var background coordinator.BackgroundService
	if svc != nil {
		background = svc
	}
	c := coordinator.New(coordinator.Config{Grace: cfg.BackgroundGrace}, session, background, clk, logger)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			c.Close()
			return nil
		},
	})
	return c
}

func ProvideEventHub(lc fx.Lifecycle, logger *slog.Logger) *control.Hub {
	hub := control.NewHub(logger)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			hub.Close()
			return nil
		},
	})
	return hub
}

// StartHandoffMonitor feeds the background listener's presence into the
// coordinator. It is a no-op without Redis.
func StartHandoffMonitor(lc fx.Lifecycle, cfg *Config, svc *handoff.Service, coord *coordinator.Coordinator, clk clock.Clock, logger *slog.Logger) {
	if svc == nil {
		logger.Info("background listener handoff disabled")
		return
	}
	monitor := handoff.NewMonitor(svc, cfg.HandoffPoll, clk, coord.SetBackgroundServiceRunning, logger)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			monitor.Start(context.Background())
			return nil
		},
		OnStop: func(ctx context.Context) error {
			monitor.Stop()
			return nil
		},
	})
}

var VoiceModule = fx.Options(
	fx.Provide(
		ProvideCaptureDevice,
		ProvidePlaybackDevice,
		ProvideConnectionClient,
		ProvideGate,
		ProvideRecorder,
		ProvidePlayer,
		ProvideNotificationManager,
		ProvideAnnouncer,
		ProvideSession,
		ProvideCoordinator,
		ProvideEventHub,
	),
	fx.Invoke(StartHandoffMonitor),
)
