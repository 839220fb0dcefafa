// Package root contains the root command for the application
package root

import (
	"context"

	"fjacquet/finchat/internal/config"
	"fjacquet/finchat/internal/container"
	"fjacquet/finchat/internal/logging"

	"github.com/spf13/cobra"
)

// CommonFlags represents the flags that are common to every command
type CommonFlags struct {
	LogLevel  string
	LogFormat string
}

var (
	// Log is the shared logger instance for commands
	Log = logging.NewLogrusAdapter("info", "text")

	// Cfg is the configuration loaded before any command runs
	Cfg *config.Config

	// Cmd is the root command
	Cmd = &cobra.Command{
		Use:   "finchat",
		Short: "A chat bot that records personal finance transactions.",
		Long: `finchat records expenses and incomes from short chat messages.
It asks for whatever the message left out (payment method, card, installments,
category), shows a preview and registers the entry once confirmed.`,
		Run: func(cmd *cobra.Command, args []string) {
			Log.Info("Welcome to finchat!")
			Log.Info("Use --help to see available commands")
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.LoadEnv(Log)
			cfg, err := config.InitializeConfig()
			if err != nil {
				Log.Fatalf("Failed to load configuration: %v", err)
				return
			}
			applyFlags(cmd, cfg)
			Cfg = cfg
			Log = config.NewLogger(cfg)
			Log.Debug("Configuration loaded",
				logging.F("log_level", cfg.Log.Level),
				logging.F("log_format", cfg.Log.Format))
		},
	}

	// SharedFlags are accessible to all commands
	SharedFlags = CommonFlags{}
)

// Init initializes the root command and all flags
func Init() {
	Cmd.PersistentFlags().StringVar(&SharedFlags.LogLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	Cmd.PersistentFlags().StringVar(&SharedFlags.LogFormat, "log-format", "", "Log format (text or json)")
}

// applyFlags lets explicit command-line flags override the configuration.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	if f := cmd.Flags().Lookup("log-level"); f != nil && f.Changed {
		cfg.Log.Level = SharedFlags.LogLevel
	}
	if f := cmd.Flags().Lookup("log-format"); f != nil && f.Changed {
		cfg.Log.Format = SharedFlags.LogFormat
	}
}

// NewContainer wires the application for a command.
func NewContainer(ctx context.Context) (*container.Container, error) {
	if Cfg == nil {
		cfg, err := config.InitializeConfig()
		if err != nil {
			return nil, err
		}
		Cfg = cfg
	}
	return container.NewContainer(ctx, Cfg, Log)
}
