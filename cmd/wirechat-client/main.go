package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/wirechat-client/internal/app"
	"github.com/vovakirdan/wirechat-client/internal/audio"
	"github.com/vovakirdan/wirechat-client/internal/config"
	"github.com/vovakirdan/wirechat-client/internal/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		overrides  config.Config
	)

	cmd := &cobra.Command{
		Use:           "wirechat-client",
		Short:         "WireChat call signaling and session-state core",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			bootLog := log.New("info")
			cfg, path, err := config.Load(bootLog, configPath)
			if err != nil {
				return err
			}
			cfg.UpdateFrom(overrides)

			logger := log.New(cfg.LogLevel)
			logger.Info().Str("config", path).Str("server", cfg.ServerURL).Msg("starting wirechat client core")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application := app.New(cfg, logger, audio.NopRouter{})

			go func() {
				for u := range application.Updates() {
					ev := logger.Info().Str("phase", u.Session.Phase.String())
					if u.Session.PeerID != "" {
						ev = ev.Str("peer", u.Session.PeerID)
					}
					if u.Err != nil {
						ev = ev.Str("error", u.Err.Code)
					}
					ev.Msg("call state")
				}
			}()

			return application.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to config file")
	cmd.Flags().StringVar(&overrides.ServerURL, "server", "", "signaling server WebSocket URL")
	cmd.Flags().StringVar(&overrides.AuthToken, "token", "", "JWT auth token")
	cmd.Flags().StringVar(&overrides.LogLevel, "log-level", "", "log level (debug, info, warn, error)")

	return cmd
}
