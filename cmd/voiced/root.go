package main

import (
	"github.com/spf13/cobra"

	"github.com/vcaremind/voice-client/internal/bootstrap"
)

func rootCmd() *cobra.Command {
	var surface string

	root := &cobra.Command{
		Use:   "voiced",
		Short: "Real-time voice client",
		Long: `voiced streams microphone audio to the voice backend over a WebSocket,
plays the streamed replies, and exposes a local control API for UI surfaces.

Configuration comes from the environment, an optional .env file, and the
YAML file named by VOICE_CONFIG.`,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			bootstrap.Run(surface)
		},
	}
	root.Flags().StringVar(&surface, "surface", "", "register a chat-capable surface at startup so the client connects without a UI")

	root.AddCommand(runCmd())
	root.AddCommand(probeCmd())
	root.AddCommand(notifyCmd())
	root.AddCommand(listenerCmd())
	return root
}

func runCmd() *cobra.Command {
	var surface string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the voice client and its control API",
		Run: func(cmd *cobra.Command, args []string) {
			bootstrap.Run(surface)
		},
	}
	cmd.Flags().StringVar(&surface, "surface", "", "register a chat-capable surface at startup")
	return cmd
}
