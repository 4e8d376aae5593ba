package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vcaremind/voice-client/internal/bootstrap"
	"github.com/vcaremind/voice-client/internal/connection"
	"github.com/vcaremind/voice-client/internal/notification"
	"github.com/vcaremind/voice-client/internal/transport"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func notifyCmd() *cobra.Command {
	var (
		kind      string
		emergency bool
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "notify <text>",
		Short: "Ask the backend to speak a notification",
		Long: `Connect to the backend, request a voice notification for the given text,
and print the backend's reply. The audio itself is not played.

Examples:
  voiced notify "Time to take your tablet"
  voiced notify --type reminder "Appointment at 3pm"
  voiced notify --emergency "Fall detected"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := bootstrap.LoadConfig()
			if err != nil {
				return err
			}
			if emergency {
				kind = notification.KindEmergency
			}
			vn, err := notify(cfg, strings.Join(args, " "), kind, timeout)
			if err != nil {
				return err
			}
			vn.AudioBase64 = fmt.Sprintf("<%d bytes>", len(vn.AudioBase64))

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(vn)
		},
	}
	cmd.Flags().StringVar(&kind, "type", notification.KindInfo, "notification type")
	cmd.Flags().BoolVar(&emergency, "emergency", false, "send as an emergency notification")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "how long to wait for the reply")
	return cmd
}

func notify(cfg *bootstrap.Config, text, kind string, timeout time.Duration) (notification.VoiceNotification, error) {
	log := discardLogger()
	client := connection.NewClient(connection.Config{URL: cfg.WebSocketURL}, connection.WithLogger(log))
	manager := notification.NewManager(notification.Config{}, client, nil, nil, log)

	opened := make(chan struct{}, 1)
	replies := make(chan notification.VoiceNotification, 1)
	failures := make(chan error, 1)

	client.SetCallbacks(connection.Callbacks{
		OnConnected: func() { opened <- struct{}{} },
		OnMessage:   func(resp *transport.Response) { manager.Handle(resp) },
		OnDisconnected: func(code int, reason string) {
			select {
			case failures <- fmt.Errorf("disconnected: %d %s", code, reason):
			default:
			}
		},
	})
	manager.SetCallbacks(notification.Callbacks{
		OnVoiceNotification: func(v notification.VoiceNotification) { replies <- v },
		OnError: func(err error) {
			select {
			case failures <- err:
			default:
			}
		},
	})

	client.Connect()
	defer client.Disconnect()

	deadline := time.After(timeout)
	select {
	case <-opened:
	case err := <-failures:
		return notification.VoiceNotification{}, err
	case <-deadline:
		return notification.VoiceNotification{}, errors.New("timed out connecting to backend")
	}

	if _, err := manager.RequestVoiceNotification(text, kind); err != nil {
		return notification.VoiceNotification{}, err
	}

	select {
	case vn := <-replies:
		return vn, nil
	case err := <-failures:
		return notification.VoiceNotification{}, err
	case <-deadline:
		return notification.VoiceNotification{}, errors.New("timed out waiting for voice notification")
	}
}
