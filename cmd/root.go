// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"firestige.xyz/cobslog/internal/config"
	"firestige.xyz/cobslog/internal/log"
	"firestige.xyz/cobslog/internal/metrics"
)

var (
	// Global flags
	configFile string
	logLevel   string

	appConfig = config.Default()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cobslog",
	Short: "cobslog - recover telemetry records from COBS framed serial logs",
	Long: `cobslog reads the byte stream a device writes over a serial link, splits it
into COBS frames and recovers the fixed-size telemetry records it carries.

Frames that fail to decode become missing-data records (all bytes 0xFF), so
record positions stay aligned with the device's sampling schedule. A single
short frame carries the firmware build identifier.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
// Interrupts cancel the command context, which ends a capture normally.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"config file path (YAML, root key cobslog)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"override log level (trace/debug/info/warn/error)")

	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(framesCmd)
	rootCmd.AddCommand(captureCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(versionCmd)
}

func loadConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
		if err := cfg.ValidateAndApplyDefaults(); err != nil {
			return err
		}
	}
	if err := log.Init(&cfg.Log); err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	appConfig = cfg
	return nil
}

// startMetrics serves Prometheus metrics when enabled. The returned function
// stops the server.
func startMetrics(ctx context.Context, cfg *config.Config) (func(), error) {
	if !cfg.Metrics.Enabled {
		return func() {}, nil
	}
	s := metrics.NewServer(cfg.Metrics.Listen, cfg.Metrics.Path)
	if err := s.Start(ctx); err != nil {
		return nil, err
	}
	return func() {
		if err := s.Stop(context.Background()); err != nil {
			log.GetLogger().WithError(err).Warn("metrics server stop failed")
		}
	}, nil
}
