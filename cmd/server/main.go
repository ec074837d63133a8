package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/lpusphere/sphere-server/internal/app"
	"github.com/lpusphere/sphere-server/internal/config"
	"github.com/lpusphere/sphere-server/internal/log"
)

func main() {
	var (
		configPath string
		overrides  config.Config
	)

	rootCmd := &cobra.Command{
		Use:           "sphere-server",
		Short:         "Campus chat server for class group messaging",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&overrides.DatabasePath, "db", "", "path to sqlite database")
	rootCmd.PersistentFlags().StringVar(&overrides.LogLevel, "log-level", "", "log level (debug, info, warn, error)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(configPath, overrides)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := app.New(&cfg, logger)
			if err != nil {
				return err
			}

			logger.Info().Str("addr", cfg.Addr).Msg("starting sphere server")
			if err := application.Run(ctx); err != nil {
				return err
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}
	serveCmd.Flags().StringVar(&overrides.Addr, "addr", "", "HTTP listen address")

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate a fresh database with the sample campus roster",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(configPath, overrides)
			if err != nil {
				return err
			}
			return runSeed(cmd.Context(), cfg, logger)
		},
	}

	rootCmd.AddCommand(serveCmd, seedCmd)
	// Bare invocation serves.
	rootCmd.RunE = serveCmd.RunE

	if err := rootCmd.Execute(); err != nil {
		logger := log.New("error")
		logger.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func loadConfig(configPath string, overrides config.Config) (config.Config, *zerolog.Logger, error) {
	bootLog := log.New(defaultLevel(overrides.LogLevel))

	cfg, path, err := config.Load(bootLog, configPath)
	if err != nil {
		return cfg, nil, err
	}
	cfg.UpdateFrom(overrides)

	logger := log.New(cfg.LogLevel)
	logger.Debug().Str("config_path", path).Msg("configuration loaded")
	return cfg, logger, nil
}

func defaultLevel(override string) string {
	if override != "" {
		return override
	}
	return "info"
}
