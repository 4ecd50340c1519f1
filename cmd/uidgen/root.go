package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/haukened/uidgen/internal/config"
	"github.com/spf13/cobra"
)

// Build-time variables set via ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Swapped in tests.
var (
	loadConfig = config.Load
	runServe   = serve
)

// configFunc returns the effective configuration for a command.
type configFunc func() (*config.Config, error)

// newRootCmd builds the command tree. serve runs when no subcommand is given.
func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var keyFile string

	resolveConfig := func() (*config.Config, error) {
		cfg, err := loadConfig()
		if err != nil {
			return nil, withExit(exitConfig, err)
		}
		if keyFile != "" {
			cfg.KeyFile = keyFile
		}
		return cfg, nil
	}

	serveRun := func(cmd *cobra.Command, _ []string) error {
		cfg, err := resolveConfig()
		if err != nil {
			return err
		}
		slog.SetDefault(newLogger(stderr, cfg))
		return runServe(cmd.Context(), cfg)
	}

	root := &cobra.Command{
		Use:           "uidgen",
		Short:         "Unique user id generator service",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serveRun,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&keyFile, "key-file", "", "cipher key file (overrides UIDGEN_KEY_FILE)")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP service (default command)",
		Args:  cobra.NoArgs,
		RunE:  serveRun,
	})
	root.AddCommand(newEncryptCmd(resolveConfig))
	root.AddCommand(newGenerateCmd(resolveConfig))
	root.AddCommand(newInitKeyCmd(resolveConfig))
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "uidgen %s (commit %s, built %s)\n", Version, Commit, BuildDate)
		},
	})
	return root
}

// newLogger builds the process logger from the log_format and log_level settings.
func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
