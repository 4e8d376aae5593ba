package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vcaremind/voice-client/internal/bootstrap"
	"github.com/vcaremind/voice-client/internal/connection"
	"github.com/vcaremind/voice-client/internal/transport"
)

type probeResult struct {
	URL       string `json:"url"`
	State     string `json:"state"`
	LatencyMs int64  `json:"latency_ms"`
	Code      int    `json:"close_code,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Error     string `json:"error,omitempty"`
}

func probeCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Dial the voice backend once and report the result",
		Long: `Dial the configured backend WebSocket, wait for the connection to open,
then close it normally. Exits non-zero when the socket did not open.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := bootstrap.LoadConfig()
			if err != nil {
				return err
			}
			result := probe(cfg, timeout)

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				return err
			}
			if result.State != connection.StateOpen.String() {
				return fmt.Errorf("backend not reachable: %s", result.State)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "how long to wait for the socket to open")
	return cmd
}

func probe(cfg *bootstrap.Config, timeout time.Duration) probeResult {
	client := connection.NewClient(connection.Config{
		URL:              cfg.WebSocketURL,
		HandshakeTimeout: timeout,
	}, connection.WithLogger(discardLogger()))

	opened := make(chan struct{}, 1)
	closed := make(chan probeResult, 1)
	client.SetCallbacks(connection.Callbacks{
		OnConnected: func() { opened <- struct{}{} },
		OnDisconnected: func(code int, reason string) {
			select {
			case closed <- probeResult{Code: code, Reason: reason}:
			default:
			}
		},
	})

	result := probeResult{URL: cfg.WebSocketURL}
	start := time.Now()
	client.Connect()
	defer client.Disconnect()

	select {
	case <-opened:
		result.LatencyMs = time.Since(start).Milliseconds()
	case c := <-closed:
		result.Code, result.Reason = c.Code, c.Reason
	case <-time.After(timeout):
		result.Error = "timed out"
		result.Code = transport.CloseAbnormal
	}
	result.State = client.State().String()
	return result
}
